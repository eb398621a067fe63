// Package player replays macros through a synthesizer with original or
// scaled timing.
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/offlinefirst/macrohook/pkg/events"
	"github.com/offlinefirst/macrohook/pkg/macro"
	"github.com/offlinefirst/macrohook/pkg/schedule"
	"github.com/offlinefirst/macrohook/pkg/synth"
)

// State is the player lifecycle state.
type State int

const (
	StateIdle State = iota
	StatePlaying
	StatePaused
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options are per-playback parameters.
type Options struct {
	Speed float64
	Loops int
	// Window holds each loop until the local time of day is inside it.
	Window schedule.TimeRange
}

// DefaultOptions plays once at recorded speed.
func DefaultOptions() Options {
	return Options{Speed: 1, Loops: 1}
}

// Validate rejects non-positive or non-finite speeds and loop counts below one.
func (o Options) Validate() error {
	if o.Speed <= 0 || math.IsNaN(o.Speed) || math.IsInf(o.Speed, 0) {
		return &InvalidArgumentError{Name: "speed", Value: o.Speed}
	}
	if o.Loops < 1 {
		return &InvalidArgumentError{Name: "loop count", Value: o.Loops}
	}
	return nil
}

// Config wires a player to its synthesizer and time sources.
type Config struct {
	Synth   synth.Synthesizer
	Logger  *slog.Logger
	Clock   func() time.Time
	Sleeper func(context.Context, time.Duration) error
	// OnEmit runs after each successfully emitted event.
	OnEmit func(loop, index int, ev events.Event)
}

// Result summarises one playback.
type Result struct {
	Emitted        int
	LoopsCompleted int
	Cancelled      bool
	// LastIndex is the index of the last emitted event, -1 if none.
	LastIndex int
	Started   time.Time
	Elapsed   time.Duration
	Paused    time.Duration
}

// Player drives timed emission of one macro at a time.
type Player struct {
	synth   synth.Synthesizer
	logger  *slog.Logger
	clock   func() time.Time
	sleeper func(context.Context, time.Duration) error
	onEmit  func(loop, index int, ev events.Event)

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	gate   *gate
}

// New validates cfg and returns an idle player.
func New(cfg Config) (*Player, error) {
	if cfg.Synth == nil {
		return nil, errors.New("player requires a synthesizer")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	sleeper := cfg.Sleeper
	if sleeper == nil {
		sleeper = defaultSleeper
	}
	return &Player{
		synth:   cfg.Synth,
		logger:  logger,
		clock:   clock,
		sleeper: sleeper,
		onEmit:  cfg.OnEmit,
	}, nil
}

// State reports the current lifecycle state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StatePlaying && p.gate != nil && p.gate.isPaused() {
		return StatePaused
	}
	return p.state
}

// Play replays m and blocks until it completes, is cancelled or fails.
// Event i of each loop is emitted at loop start + Micros/Speed, shifted by
// any time spent paused. Events are never reordered; late ones go out
// immediately.
func (p *Player) Play(ctx context.Context, m macro.Macro, opts Options) (Result, error) {
	run, err := p.Prepare(ctx, m, opts)
	if err != nil {
		return Result{}, err
	}
	return run()
}

// Prepare claims the player for m and returns a function that performs the
// playback. Pause, Resume and Cancel act on it as soon as Prepare returns,
// even before the returned function is called.
func (p *Player) Prepare(ctx context.Context, m macro.Macro, opts Options) (func() (Result, error), error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	runCtx, cancel := context.WithCancel(ctx)
	g := newGate(p.clock)
	p.mu.Lock()
	if p.state == StatePlaying {
		p.mu.Unlock()
		cancel()
		return nil, fmt.Errorf("play %q: already playing: %w", m.Name, macro.ErrInvalidState)
	}
	p.state = StatePlaying
	p.cancel = cancel
	p.gate = g
	p.mu.Unlock()

	return func() (Result, error) {
		return p.finish(ctx, runCtx, cancel, g, m, opts)
	}, nil
}

func (p *Player) finish(ctx, runCtx context.Context, cancel context.CancelFunc, g *gate, m macro.Macro, opts Options) (Result, error) {
	started := p.clock()
	res := Result{LastIndex: -1, Started: started}
	err := p.run(runCtx, g, m, opts, &res)
	cancel()

	res.Elapsed = p.clock().Sub(started)
	res.Paused = g.elapsedPaused()

	final := StateIdle
	switch {
	case err == nil:
	case errors.Is(err, ErrPlayback):
		final = StateError
	case errors.Is(err, context.Canceled) && ctx.Err() == nil:
		res.Cancelled = true
		err = nil
	default:
		res.Cancelled = true
	}

	p.mu.Lock()
	p.state = final
	p.cancel = nil
	p.gate = nil
	p.mu.Unlock()

	p.logger.Debug("playback finished",
		"name", m.Name,
		"emitted", res.Emitted,
		"loops", res.LoopsCompleted,
		"cancelled", res.Cancelled,
		"elapsed", res.Elapsed,
	)
	return res, err
}

func (p *Player) run(ctx context.Context, g *gate, m macro.Macro, opts Options, res *Result) error {
	for loop := 0; loop < opts.Loops; loop++ {
		if err := p.waitForWindow(ctx, g, opts.Window); err != nil {
			return err
		}
		loopStart := p.clock()
		pausedBase := g.elapsedPaused()

		for i, ev := range m.Events {
			offset := scheduleOffset(ev.Micros, opts.Speed)
			for {
				if err := g.wait(ctx); err != nil {
					return err
				}
				due := loopStart.Add(addDuration(offset, g.elapsedPaused()-pausedBase))
				wait := due.Sub(p.clock())
				if wait <= 0 {
					break
				}
				if err := p.sleeper(ctx, wait); err != nil {
					return err
				}
			}
			// A cancel or pause that landed during the sleep wins over emission.
			if err := g.wait(ctx); err != nil {
				return err
			}

			if err := p.synth.Emit(ctx, ev); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				p.logger.Error("synthesizer rejected event", "index", i, "loop", loop, "event", ev.String(), "error", err)
				return &PlaybackError{Index: i, Loop: loop, Err: err}
			}
			res.Emitted++
			res.LastIndex = i
			if p.onEmit != nil {
				p.onEmit(loop, i, ev)
			}
		}
		res.LoopsCompleted++
	}
	return nil
}

func (p *Player) waitForWindow(ctx context.Context, g *gate, window schedule.TimeRange) error {
	for {
		if err := g.wait(ctx); err != nil {
			return err
		}
		wait := window.Until(p.clock())
		if wait <= 0 {
			return nil
		}
		p.logger.Info("waiting for playback window", "window", window.String(), "wait", wait)
		if err := p.sleeper(ctx, wait); err != nil {
			return err
		}
	}
}

// Cancel stops the active playback. Events already emitted are not undone.
func (p *Player) Cancel() bool {
	p.mu.Lock()
	cancel := p.cancel
	g := p.gate
	p.mu.Unlock()
	if cancel == nil {
		return false
	}
	g.stop()
	cancel()
	return true
}

// Pause holds emission until Resume. It reports whether playback was running.
func (p *Player) Pause() bool {
	p.mu.Lock()
	g := p.gate
	p.mu.Unlock()
	if g == nil {
		return false
	}
	return g.pause()
}

// Resume releases a paused playback.
func (p *Player) Resume() bool {
	p.mu.Lock()
	g := p.gate
	p.mu.Unlock()
	if g == nil {
		return false
	}
	return g.resume()
}

func defaultSleeper(ctx context.Context, wait time.Duration) error {
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// scheduleOffset returns micros/speed as a Duration, saturating at the
// largest Duration instead of overflowing for tiny speeds.
func scheduleOffset(micros int64, speed float64) time.Duration {
	nanos := float64(micros) * float64(time.Microsecond) / speed
	if nanos >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(nanos)
}

func addDuration(a, b time.Duration) time.Duration {
	if b > 0 && a > math.MaxInt64-b {
		return time.Duration(math.MaxInt64)
	}
	return a + b
}
