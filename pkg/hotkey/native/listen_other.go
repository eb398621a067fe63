//go:build !((darwin && cgo) || windows)

package native

import (
	"context"
	"errors"
	"fmt"

	"github.com/offlinefirst/macrohook/pkg/hotkey"
)

// Supported reports whether Listen can register hotkeys on this platform.
const Supported = false

// Listen is unavailable without a native hotkey backend.
func Listen(ctx context.Context, b hotkey.Binding, fn func()) error {
	return fmt.Errorf("hotkey %s: %w", b, errors.ErrUnsupported)
}
