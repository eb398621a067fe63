package hook

import (
	"context"
	"sync"
	"time"

	"github.com/offlinefirst/macrohook/pkg/events"
)

// Synthetic replays a fixed script of raw events as if they came from the
// platform. It honours the same single-instance rule as the native hooks.
type Synthetic struct {
	script   []events.RawEvent
	interval time.Duration
	clock    func() time.Time
	opts     Options

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	drained chan struct{}
}

// NewSynthetic builds a scripted adapter. Events whose Time is zero are
// stamped with the adapter clock at delivery.
func NewSynthetic(opts Options) *Synthetic {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Synthetic{
		script:   append([]events.RawEvent(nil), opts.Script...),
		interval: opts.Interval,
		clock:    clock,
		opts:     opts,
	}
}

// DefaultScript types "hi", clicks and scrolls; useful for smoke runs.
func DefaultScript() []events.RawEvent {
	key := func(kind events.Kind, code int32) events.RawEvent {
		return events.RawEvent{Platform: events.PlatformSynthetic, Type: int(kind), Code: int(code)}
	}
	pointer := func(kind events.Kind, code int, x, y float64, delta int) events.RawEvent {
		return events.RawEvent{Platform: events.PlatformSynthetic, Type: int(kind), Code: code, X: x, Y: y, Delta: delta}
	}
	return []events.RawEvent{
		key(events.KindKeyDown, 35),
		key(events.KindKeyUp, 35),
		key(events.KindKeyDown, 23),
		key(events.KindKeyUp, 23),
		pointer(events.KindMouseMove, 0, 200, 120, 0),
		pointer(events.KindMouseButtonDown, int(events.ButtonLeft), 200, 120, 0),
		pointer(events.KindMouseButtonUp, int(events.ButtonLeft), 200, 120, 0),
		pointer(events.KindMouseWheel, 0, 200, 120, -1),
	}
}

func (s *Synthetic) Name() string { return BackendSynthetic }

// Start claims the hook slot and begins delivering the script.
func (s *Synthetic) Start(ctx context.Context, cb Callback) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrHookActive
	}
	if err := claim(BackendSynthetic); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.drained = make(chan struct{})
	s.running = true

	deliver := traced(s.opts, BackendSynthetic, cb)
	go s.run(runCtx, deliver, s.done, s.drained)
	return nil
}

func (s *Synthetic) run(ctx context.Context, cb Callback, done, drained chan struct{}) {
	defer close(done)
	defer close(drained)
	for i, raw := range s.script {
		if i > 0 && s.interval > 0 {
			timer := time.NewTimer(s.interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
		if ctx.Err() != nil {
			return
		}
		if raw.Platform == "" {
			raw.Platform = events.PlatformSynthetic
		}
		if raw.Time.IsZero() {
			raw.Time = s.clock()
		}
		cb(raw)
	}
}

// Drained is closed once every scripted event has been delivered.
func (s *Synthetic) Drained() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drained == nil {
		ch := make(chan struct{})
		return ch
	}
	return s.drained
}

// Stop halts delivery and releases the hook slot.
func (s *Synthetic) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotInstalled
	}
	s.running = false
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done
	release(BackendSynthetic)
	return nil
}
