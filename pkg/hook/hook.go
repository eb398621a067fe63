package hook

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/offlinefirst/macrohook/pkg/events"
)

// Backend names accepted by New.
const (
	BackendAuto      = "auto"
	BackendQuartz    = "quartz"
	BackendEvdev     = "evdev"
	BackendTerminal  = "terminal"
	BackendSynthetic = "synthetic"
)

// Callback receives every raw input event while a hook is installed. It runs
// on the adapter's delivery goroutine and must return quickly.
type Callback func(events.RawEvent)

// Adapter installs a process-wide input hook.
type Adapter interface {
	Name() string
	// Start installs the hook and returns once installation succeeded or
	// failed. Cancelling ctx uninstalls the hook; Stop must still be called.
	Start(ctx context.Context, cb Callback) error
	// Stop uninstalls the hook and waits for callback delivery to finish.
	Stop() error
}

// Options configure hook backends.
type Options struct {
	Logger *slog.Logger
	Clock  func() time.Time
	Debug  bool

	// Devices lists evdev device nodes; empty means every /dev/input/event*.
	Devices []string
	// ScreenWidth and ScreenHeight bound the evdev cursor model. Zero means
	// DefaultScreenWidth by DefaultScreenHeight.
	ScreenWidth  int
	ScreenHeight int

	// Screen overrides the tcell screen used by the terminal backend.
	Screen tcell.Screen
	// OnInterrupt is invoked by the terminal backend on Ctrl-C.
	OnInterrupt func()

	// Script and Interval drive the synthetic backend.
	Script   []events.RawEvent
	Interval time.Duration
}

// Screen size assumed by the evdev backend when Options leaves it unset.
const (
	DefaultScreenWidth  = 1920
	DefaultScreenHeight = 1080
)

// New constructs the named backend. "auto" picks the native hook for the
// current platform.
func New(name string, opts Options) (Adapter, error) {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	resolved := ResolveBackend(name)
	switch resolved {
	case BackendQuartz:
		return newQuartz(opts), nil
	case BackendEvdev:
		return newEvdev(opts), nil
	case BackendTerminal:
		return newTerminal(opts), nil
	case BackendSynthetic:
		return NewSynthetic(opts), nil
	default:
		return nil, fmt.Errorf("unknown hook backend %q", name)
	}
}

// ResolveBackend maps "auto" (or empty) onto the native backend name.
func ResolveBackend(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized != "" && normalized != BackendAuto {
		return normalized
	}
	switch runtimeGOOS() {
	case "darwin":
		return BackendQuartz
	case "linux":
		return BackendEvdev
	default:
		return BackendTerminal
	}
}

// runtimeGOOS is extracted for testability.
var runtimeGOOS = func() string { return runtime.GOOS }

var (
	activeMu   sync.Mutex
	activeName string
)

// claim reserves the process-wide hook slot.
func claim(name string) error {
	activeMu.Lock()
	defer activeMu.Unlock()
	if activeName != "" {
		return fmt.Errorf("%w: %s hook already installed", ErrHookActive, activeName)
	}
	activeName = name
	return nil
}

func release(name string) {
	activeMu.Lock()
	defer activeMu.Unlock()
	if activeName == name {
		activeName = ""
	}
}

// Active reports the name of the installed backend, if any.
func Active() (string, bool) {
	activeMu.Lock()
	defer activeMu.Unlock()
	return activeName, activeName != ""
}

// traced wraps cb with debug logging of every raw event.
func traced(opts Options, backend string, cb Callback) Callback {
	if !opts.Debug {
		return cb
	}
	logger := opts.Logger
	return func(raw events.RawEvent) {
		logger.Debug("raw input event", "backend", backend, "type", raw.Type, "code", raw.Code, "value", raw.Value, "x", raw.X, "y", raw.Y, "delta", raw.Delta)
		cb(raw)
	}
}
