//go:build !darwin

package synth

import (
	"errors"
	"fmt"
)

func newQuartz(Options) (Synthesizer, error) {
	return nil, fmt.Errorf("CoreGraphics injection requires macOS: %w", errors.ErrUnsupported)
}
