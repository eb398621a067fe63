package hook

import (
	"errors"
	"strings"
)

var (
	// ErrHookInstall matches every *HookInstallError.
	ErrHookInstall = errors.New("input hook installation failed")
	// ErrHookActive indicates another hook is already installed in this process.
	ErrHookActive = errors.New("input hook already active")
	// ErrAccessibilityPermission indicates the host must grant Accessibility trust.
	ErrAccessibilityPermission = errors.New("macOS accessibility permission required for event capture")
	// ErrNotInstalled is returned when stopping a hook that was never started.
	ErrNotInstalled = errors.New("input hook not installed")
)

// HookInstallError reports why the platform refused to install a hook.
type HookInstallError struct {
	Backend  string
	Message  string
	Guidance string
	Err      error
}

func (e *HookInstallError) Error() string {
	var b strings.Builder
	b.WriteString(e.Backend)
	b.WriteString(" hook: ")
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString(ErrHookInstall.Error())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *HookInstallError) Unwrap() error {
	return e.Err
}

func (e *HookInstallError) Is(target error) bool {
	return target == ErrHookInstall
}

func newInstallError(backend, message, guidance string, err error) error {
	return &HookInstallError{
		Backend:  backend,
		Message:  strings.TrimSpace(message),
		Guidance: strings.TrimSpace(guidance),
		Err:      err,
	}
}
