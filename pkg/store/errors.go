package store

import (
	"errors"
	"fmt"
)

// ErrCorruptData marks a macro file that failed structural validation.
var ErrCorruptData = errors.New("corrupt macro data")

// CorruptDataError describes why a macro file was rejected.
type CorruptDataError struct {
	Path   string
	Reason string
	Err    error
}

func (e *CorruptDataError) Error() string {
	msg := "corrupt macro data"
	if e.Path != "" {
		msg = fmt.Sprintf("corrupt macro file %s", e.Path)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CorruptDataError) Unwrap() error {
	return e.Err
}

func (e *CorruptDataError) Is(target error) bool {
	return target == ErrCorruptData
}

func corrupt(format string, args ...any) *CorruptDataError {
	return &CorruptDataError{Reason: fmt.Sprintf(format, args...)}
}

func withPath(err error, path string) error {
	var cde *CorruptDataError
	if errors.As(err, &cde) && cde.Path == "" {
		cde.Path = path
	}
	return err
}
