// Package macro holds the recorded macro model and the recorder that builds it.
package macro

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/offlinefirst/macrohook/pkg/events"
)

// ErrInvalidState reports a recorder call made in the wrong state.
var ErrInvalidState = errors.New("invalid recorder state")

// Macro is an ordered, replayable sequence of input events.
type Macro struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
	Events    []events.Event
}

// New builds a macro with a fresh ID.
func New(name string, createdAt time.Time, evs []events.Event) Macro {
	return Macro{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: createdAt,
		Events:    evs,
	}
}

// Len returns the number of events.
func (m Macro) Len() int {
	return len(m.Events)
}

// Duration is the offset of the last event.
func (m Macro) Duration() time.Duration {
	if len(m.Events) == 0 {
		return 0
	}
	return m.Events[len(m.Events)-1].Offset()
}

// Equal compares metadata and events pairwise. CreatedAt is compared at
// microsecond precision, which is what the store keeps.
func (m Macro) Equal(other Macro) bool {
	if m.ID != other.ID || m.Name != other.Name {
		return false
	}
	if m.CreatedAt.UnixMicro() != other.CreatedAt.UnixMicro() {
		return false
	}
	return EventsEqual(m.Events, other.Events)
}

// EventsEqual reports whether two event sequences are identical.
func EventsEqual(a, b []events.Event) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Validate checks event kinds and timestamp ordering.
func (m Macro) Validate() error {
	var previous int64
	for i, ev := range m.Events {
		if !ev.Kind.Valid() {
			return fmt.Errorf("event %d: unknown kind %d", i, uint16(ev.Kind))
		}
		if ev.Micros < 0 {
			return fmt.Errorf("event %d: negative timestamp %d", i, ev.Micros)
		}
		if ev.Micros < previous {
			return fmt.Errorf("event %d: timestamp %d precedes %d", i, ev.Micros, previous)
		}
		previous = ev.Micros
	}
	return nil
}

// Clone returns a copy that shares no event storage with m.
func (m Macro) Clone() Macro {
	clone := m
	if m.Events != nil {
		clone.Events = append([]events.Event(nil), m.Events...)
	}
	return clone
}

// Counts tallies events per kind.
func (m Macro) Counts() map[events.Kind]int {
	counts := make(map[events.Kind]int)
	for _, ev := range m.Events {
		counts[ev.Kind]++
	}
	return counts
}
