package macro

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/offlinefirst/macrohook/pkg/events"
)

// Recorder buffers normalized events into a macro while recording is active.
type Recorder struct {
	mu        sync.Mutex
	logger    *slog.Logger
	clock     func() time.Time
	recording bool
	name      string
	started   time.Time
	buffer    []events.Event
	clamped   int
	rejected  int
}

// RecorderOptions configure a Recorder.
type RecorderOptions struct {
	Logger *slog.Logger
	Clock  func() time.Time
}

// NewRecorder returns an idle recorder.
func NewRecorder(opts RecorderOptions) *Recorder {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Recorder{logger: logger, clock: clock}
}

// Start opens a recording session.
func (r *Recorder) Start(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		return fmt.Errorf("start %q: already recording %q: %w", name, r.name, ErrInvalidState)
	}
	r.recording = true
	r.name = name
	r.started = r.clock()
	r.buffer = nil
	r.clamped = 0
	r.rejected = 0
	return nil
}

// Started returns the session start time, or zero when idle.
func (r *Recorder) Started() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return time.Time{}
	}
	return r.started
}

// Recording reports whether a session is open.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Record appends ev and reports whether it was accepted. Events arriving
// while idle are rejected and logged. A timestamp earlier than the previous
// one is raised to it.
func (r *Recorder) Record(ev events.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		r.rejected++
		r.logger.Debug("event rejected: recorder idle", "event", ev.String())
		return false
	}
	if n := len(r.buffer); n > 0 && ev.Micros < r.buffer[n-1].Micros {
		ev.Micros = r.buffer[n-1].Micros
		r.clamped++
	}
	if ev.Micros < 0 {
		ev.Micros = 0
		r.clamped++
	}
	r.buffer = append(r.buffer, ev)
	return true
}

// Len returns the number of buffered events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buffer)
}

// Clamped returns how many timestamps were adjusted in the current or last session.
func (r *Recorder) Clamped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clamped
}

// Stop closes the session and returns the finished macro. The recorder
// releases the buffer; the macro owns it from here on.
func (r *Recorder) Stop() (Macro, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return Macro{}, fmt.Errorf("stop: not recording: %w", ErrInvalidState)
	}
	r.recording = false
	evs := r.buffer
	if evs == nil {
		evs = []events.Event{}
	}
	r.buffer = nil
	m := New(r.name, r.started, evs)
	r.logger.Debug("recording finished", "name", m.Name, "events", m.Len(), "clamped", r.clamped)
	return m, nil
}
