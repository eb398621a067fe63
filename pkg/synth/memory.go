package synth

import (
	"context"
	"errors"
	"sync"

	"github.com/offlinefirst/macrohook/pkg/events"
)

// ErrInjected is returned by Memory when FailAt is reached and Err is unset.
var ErrInjected = errors.New("injected synthesis failure")

// Memory collects emitted events. It backs tests and in-process rehearsals.
type Memory struct {
	// FailAt makes the Emit call with that 0-based index fail when Fail is set.
	FailAt int
	Fail   bool
	Err    error
	// OnEmit runs after an event is accepted, with its call index.
	OnEmit func(index int, ev events.Event)

	mu      sync.Mutex
	calls   int
	emitted []events.Event
	closed  bool
}

// NewMemory returns a collector that never fails.
func NewMemory() *Memory {
	return &Memory{}
}

// NewFailingMemory returns a collector whose Emit fails at index.
func NewFailingMemory(index int, err error) *Memory {
	return &Memory{FailAt: index, Fail: true, Err: err}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Emit(ctx context.Context, ev events.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	index := m.calls
	m.calls++
	if m.Fail && index == m.FailAt {
		m.mu.Unlock()
		if m.Err != nil {
			return m.Err
		}
		return ErrInjected
	}
	m.emitted = append(m.emitted, ev)
	hook := m.OnEmit
	m.mu.Unlock()
	if hook != nil {
		hook(index, ev)
	}
	return nil
}

// Events returns a copy of everything emitted so far.
func (m *Memory) Events() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]events.Event(nil), m.emitted...)
}

// Closed reports whether Close was called.
func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
