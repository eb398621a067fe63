package session

import (
	"errors"
	"fmt"
)

// ErrBusy indicates a record or play request arrived while another session
// was active.
var ErrBusy = errors.New("session busy")

// BusyError reports which request was refused and the state that refused it.
type BusyError struct {
	Request string
	State   State
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("cannot %s: %s session in progress", e.Request, e.State)
}

// Is allows errors.Is(err, ErrBusy) comparisons.
func (e *BusyError) Is(target error) bool {
	return target == ErrBusy
}
