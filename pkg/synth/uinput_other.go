//go:build !linux

package synth

import (
	"errors"
	"fmt"
)

func newUinput(Options) (Synthesizer, error) {
	return nil, fmt.Errorf("uinput injection requires Linux: %w", errors.ErrUnsupported)
}
