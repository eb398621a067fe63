package player

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument marks rejected playback parameters.
	ErrInvalidArgument = errors.New("invalid playback argument")
	// ErrPlayback marks a synthesizer failure mid-playback.
	ErrPlayback = errors.New("playback failed")
)

// InvalidArgumentError names the rejected parameter.
type InvalidArgumentError struct {
	Name  string
	Value any
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Name, e.Value)
}

func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// PlaybackError reports which event the platform refused.
type PlaybackError struct {
	Index int
	Loop  int
	Err   error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playback failed at event %d (loop %d): %v", e.Index, e.Loop+1, e.Err)
}

func (e *PlaybackError) Unwrap() error {
	return e.Err
}

func (e *PlaybackError) Is(target error) bool {
	return target == ErrPlayback
}
