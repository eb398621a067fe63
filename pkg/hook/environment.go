package hook

import (
	"github.com/offlinefirst/macrohook/pkg/permissions"
)

// Environment summarises hook backend support on this host.
type Environment struct {
	Provider   string
	Available  bool
	Permission string
	Message    string
	Guidance   string
}

// DetectEnvironment reports whether the native hook for this platform can be
// installed, falling back to the terminal provider when it cannot.
func DetectEnvironment() Environment {
	return detectEnvironment(nil)
}

func detectEnvironment(lookup permissions.LookupEnvFunc) Environment {
	provider := ResolveBackend(BackendAuto)
	var probe permissions.ProbeResult
	switch provider {
	case BackendQuartz:
		probe = permissions.ProbeAccessibility(lookup)
	case BackendEvdev:
		probe = permissions.ProbeInputDevices(lookup)
	default:
		return Environment{
			Provider:   BackendTerminal,
			Available:  true,
			Permission: "not_applicable",
			Message:    "no global hook on this platform; terminal capture only",
		}
	}

	env := Environment{
		Provider:   provider,
		Permission: probe.StatusString(),
		Message:    probe.Message,
		Guidance:   probe.Guidance,
		Available:  probe.Status != permissions.StatusDenied && probe.Status != permissions.StatusUnavailable,
	}
	if !env.Available {
		if env.Message == "" {
			env.Message = provider + " permission missing"
		}
		env.Provider = BackendTerminal
	}
	return env
}
