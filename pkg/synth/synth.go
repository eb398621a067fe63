// Package synth turns normalized input events back into platform input:
// CoreGraphics on macOS, a uinput virtual device on Linux, a headless browser
// page for rehearsals, or a printed dry run.
package synth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/offlinefirst/macrohook/pkg/events"
)

// Backend names accepted by New.
const (
	BackendAuto    = "auto"
	BackendQuartz  = "quartz"
	BackendUinput  = "uinput"
	BackendBrowser = "browser"
	BackendDryRun  = "dryrun"
)

// Synthesizer emits one event into the host input stream.
type Synthesizer interface {
	Name() string
	Emit(ctx context.Context, ev events.Event) error
	Close() error
}

// Options configure synthesizer backends.
type Options struct {
	Logger *slog.Logger

	// Output and NoColor apply to the dry-run printer.
	Output  io.Writer
	NoColor bool

	// ScreenWidth and ScreenHeight size the uinput absolute pointer.
	ScreenWidth  int
	ScreenHeight int
	// Settle is how long to wait after creating a uinput device.
	Settle time.Duration

	// BrowserURL and Headless configure the browser backend.
	BrowserURL string
	Headless   bool
}

// New constructs the named backend; "auto" picks the native injector.
func New(name string, opts Options) (Synthesizer, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	switch resolved := ResolveBackend(name); resolved {
	case BackendQuartz:
		return newQuartz(opts)
	case BackendUinput:
		return newUinput(opts)
	case BackendBrowser:
		return NewBrowser(opts)
	case BackendDryRun:
		return NewDryRun(opts), nil
	default:
		return nil, fmt.Errorf("unknown synth backend %q", name)
	}
}

// ResolveBackend maps "auto" (or empty) onto the native backend name.
func ResolveBackend(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "dry-run" {
		return BackendDryRun
	}
	if normalized != "" && normalized != BackendAuto {
		return normalized
	}
	switch runtimeGOOS() {
	case "darwin":
		return BackendQuartz
	case "linux":
		return BackendUinput
	default:
		return BackendDryRun
	}
}

// runtimeGOOS is extracted for testability.
var runtimeGOOS = func() string { return runtime.GOOS }
