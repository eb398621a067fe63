package permissions

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Status enumerates coarse permission results for input capture and injection.
type Status string

const (
	// StatusUnknown indicates no explicit signal about permission state.
	StatusUnknown Status = "unknown"
	// StatusGranted signals that permission was previously granted.
	StatusGranted Status = "granted"
	// StatusDenied indicates the user has explicitly denied access.
	StatusDenied Status = "denied"
	// StatusPromptRequired means the platform will prompt at runtime.
	StatusPromptRequired Status = "prompt"
	// StatusUnavailable reports that the capability is not supported.
	StatusUnavailable Status = "unavailable"
)

// ProbeResult represents the coarse state for a permission surface.
type ProbeResult struct {
	Status   Status
	Message  string
	Guidance string
}

// LookupEnvFunc exposes environment probing for testability.
type LookupEnvFunc func(string) (string, bool)

// DefaultLookupEnv is the standard environment resolver.
func DefaultLookupEnv(key string) (string, bool) {
	return lookupEnv(key)
}

// lookupEnv is declared for swapping in tests.
var lookupEnv = func(key string) (string, bool) {
	return os.LookupEnv(key)
}

// Filesystem hooks for the Linux device probes.
var (
	runtimeGOOS = func() string { return runtime.GOOS }
	globDevices = func() ([]string, error) { return filepath.Glob("/dev/input/event*") }
	openDevice  = func(path string, flag int) error {
		f, err := os.OpenFile(path, flag, 0)
		if err != nil {
			return err
		}
		return f.Close()
	}
)

const uinputPath = "/dev/uinput"

const inputGroupGuidance = "add the user to the 'input' group (or install a udev rule) and log in again"

// ProbeAccessibility inspects environment flags for accessibility trust.
func ProbeAccessibility(lookup LookupEnvFunc) ProbeResult {
	if lookup == nil {
		lookup = lookupEnv
	}
	if value, ok := lookup("MACROHOOK_ACCESSIBILITY"); ok {
		return interpretPermissionFlag("accessibility", value)
	}
	if runtimeGOOS() == "darwin" {
		return ProbeResult{Status: StatusPromptRequired, Message: "accessibility trust required"}
	}
	return ProbeResult{Status: StatusUnavailable, Message: "accessibility prompts unavailable"}
}

// ProbeInputMonitoring reports the macOS Input Monitoring grant used by event taps.
func ProbeInputMonitoring(lookup LookupEnvFunc) ProbeResult {
	if lookup == nil {
		lookup = lookupEnv
	}
	if value, ok := lookup("MACROHOOK_INPUT_MONITORING"); ok {
		return interpretPermissionFlag("input monitoring", value)
	}
	if runtimeGOOS() == "darwin" {
		return ProbeResult{Status: StatusPromptRequired, Message: "input monitoring will prompt when the hook is installed"}
	}
	return ProbeResult{Status: StatusUnavailable, Message: "input monitoring is a macOS permission"}
}

// ProbeInputDevices checks that /dev/input event devices can be read.
func ProbeInputDevices(lookup LookupEnvFunc) ProbeResult {
	if lookup == nil {
		lookup = lookupEnv
	}
	if value, ok := lookup("MACROHOOK_INPUT_DEVICES"); ok {
		return interpretPermissionFlag("input devices", value)
	}
	if runtimeGOOS() != "linux" {
		return ProbeResult{Status: StatusUnavailable, Message: "evdev input devices unsupported on this platform"}
	}
	devices, err := globDevices()
	if err != nil || len(devices) == 0 {
		return ProbeResult{Status: StatusUnavailable, Message: "no /dev/input event devices present"}
	}
	var lastErr error
	for _, device := range devices {
		if lastErr = openDevice(device, os.O_RDONLY); lastErr == nil {
			return ProbeResult{Status: StatusGranted, Message: "input devices readable"}
		}
	}
	if errors.Is(lastErr, os.ErrPermission) {
		return ProbeResult{Status: StatusDenied, Message: "input devices not readable", Guidance: inputGroupGuidance}
	}
	return ProbeResult{Status: StatusUnknown, Message: "input devices could not be opened: " + lastErr.Error()}
}

// ProbeUinput checks that /dev/uinput can be opened for event injection.
func ProbeUinput(lookup LookupEnvFunc) ProbeResult {
	if lookup == nil {
		lookup = lookupEnv
	}
	if value, ok := lookup("MACROHOOK_UINPUT"); ok {
		return interpretPermissionFlag("uinput", value)
	}
	if runtimeGOOS() != "linux" {
		return ProbeResult{Status: StatusUnavailable, Message: "uinput unsupported on this platform"}
	}
	err := openDevice(uinputPath, os.O_WRONLY)
	switch {
	case err == nil:
		return ProbeResult{Status: StatusGranted, Message: "uinput writable"}
	case errors.Is(err, os.ErrNotExist):
		return ProbeResult{Status: StatusUnavailable, Message: "uinput module not loaded", Guidance: "run 'modprobe uinput'"}
	case errors.Is(err, os.ErrPermission):
		return ProbeResult{Status: StatusDenied, Message: "uinput not writable", Guidance: inputGroupGuidance}
	default:
		return ProbeResult{Status: StatusUnknown, Message: "uinput could not be opened: " + err.Error()}
	}
}

func interpretPermissionFlag(name, value string) ProbeResult {
	normalised := strings.ToLower(strings.TrimSpace(value))
	switch normalised {
	case "granted", "allow", "allowed", "yes", "true":
		return ProbeResult{Status: StatusGranted, Message: name + " permission pre-authorised via env override"}
	case "denied", "no", "false", "blocked":
		return ProbeResult{Status: StatusDenied, Message: name + " permission denied via env override", Guidance: "grant the permission or update MACROHOOK_* env to re-test"}
	case "prompt", "ask":
		return ProbeResult{Status: StatusPromptRequired, Message: name + " permission will prompt at runtime"}
	case "unavailable", "unsupported":
		return ProbeResult{Status: StatusUnavailable, Message: name + " permission unavailable on this platform"}
	default:
		return ProbeResult{Status: StatusUnknown, Message: name + " permission state unknown"}
	}
}

// StatusString returns the string representation for manifest integration.
func (p ProbeResult) StatusString() string {
	if p.Status == "" {
		return string(StatusUnknown)
	}
	return string(p.Status)
}
