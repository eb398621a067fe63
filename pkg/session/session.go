// Package session is the single authority over what the engine is doing:
// recording, playing, paused or idle. Every transition goes through one
// mutex so record and play requests can never overlap.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/offlinefirst/macrohook/pkg/capture"
	"github.com/offlinefirst/macrohook/pkg/events"
	"github.com/offlinefirst/macrohook/pkg/hook"
	"github.com/offlinefirst/macrohook/pkg/macro"
	"github.com/offlinefirst/macrohook/pkg/player"
	"github.com/offlinefirst/macrohook/pkg/synth"
)

// State is the controller lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRecording
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config wires the controller to its hook, synthesizer and time sources.
type Config struct {
	// NewAdapter returns a fresh hook adapter for each recording.
	NewAdapter func() (hook.Adapter, error)
	Filter     events.Filter
	QueueSize  int

	// Observe is passed to each recording pipeline (capture.Options.Observe).
	Observe func(events.Event)

	Synth   synth.Synthesizer
	Sleeper func(context.Context, time.Duration) error
	OnEmit  func(loop, index int, ev events.Event)

	Logger  *slog.Logger
	Clock   func() time.Time
	Journal io.Writer
}

// StopResult carries whatever the stopped session produced. Macro and
// Capture are set after a recording, Playback after a playback.
type StopResult struct {
	Macro    *macro.Macro
	Capture  *capture.Stats
	Playback *player.Result
}

type playback struct {
	name   string
	done   chan struct{}
	result player.Result
	err    error
}

// Controller serialises record, play, pause, resume and stop requests.
type Controller struct {
	cfg    Config
	logger *slog.Logger
	clock  func() time.Time
	player *player.Player
	notify *notifier

	mu       sync.Mutex
	state    State
	pipeline *capture.Pipeline
	active   *playback
	last     *playback
	timeline []Change
}

// New returns an idle controller. Synth may be nil for a record-only
// controller; NewAdapter may be nil for a play-only one.
func New(cfg Config) (*Controller, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	c := &Controller{
		cfg:    cfg,
		logger: logger,
		clock:  clock,
		notify: newNotifier(),
	}
	if cfg.Synth != nil {
		p, err := player.New(player.Config{
			Synth:   cfg.Synth,
			Logger:  logger,
			Clock:   clock,
			Sleeper: cfg.Sleeper,
			OnEmit:  cfg.OnEmit,
		})
		if err != nil {
			return nil, fmt.Errorf("initialise player: %w", err)
		}
		c.player = p
	}
	return c, nil
}

// State reports the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers an observer for state changes.
func (c *Controller) Subscribe(observer Observer) *Subscription {
	return c.notify.subscribe(observer)
}

// Timeline returns every transition so far.
func (c *Controller) Timeline() []Change {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Change(nil), c.timeline...)
}

// RequestRecord installs the hook and starts recording a macro named name.
// Cancelling ctx uninstalls the hook; RequestStop still collects the macro.
func (c *Controller) RequestRecord(ctx context.Context, name string) error {
	c.mu.Lock()
	if c.state != StateIdle {
		state := c.state
		c.mu.Unlock()
		return &BusyError{Request: "record", State: state}
	}
	if c.cfg.NewAdapter == nil {
		c.mu.Unlock()
		return errors.New("recording requires a hook adapter")
	}
	adapter, err := c.cfg.NewAdapter()
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("create hook adapter: %w", err)
	}
	pipeline, err := capture.NewPipeline(capture.Options{
		Adapter:   adapter,
		Name:      name,
		Filter:    c.cfg.Filter,
		QueueSize: c.cfg.QueueSize,
		Observe:   c.cfg.Observe,
		Logger:    c.logger,
		Clock:     c.clock,
		Journal:   c.cfg.Journal,
	})
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if err := pipeline.Start(ctx); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("start recording: %w", err)
	}
	c.pipeline = pipeline
	c.transition(StateRecording, "record "+name, nil)
	c.mu.Unlock()
	c.notify.flush()
	return nil
}

// RequestPlay starts playing m on its own goroutine. Cancelling ctx aborts
// the playback with ctx's error; RequestStop aborts it cleanly.
func (c *Controller) RequestPlay(ctx context.Context, m macro.Macro, opts player.Options) error {
	c.mu.Lock()
	if c.state != StateIdle {
		state := c.state
		c.mu.Unlock()
		return &BusyError{Request: "play", State: state}
	}
	if c.player == nil {
		c.mu.Unlock()
		return errors.New("playback requires a synthesizer")
	}
	run, err := c.player.Prepare(ctx, m.Clone(), opts)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	pb := &playback{name: m.Name, done: make(chan struct{})}
	c.active = pb
	c.transition(StatePlaying, "play "+m.Name, nil)
	c.mu.Unlock()
	c.notify.flush()

	go c.play(pb, run)
	return nil
}

func (c *Controller) play(pb *playback, run func() (player.Result, error)) {
	res, err := run()

	reason := "completed"
	switch {
	case err != nil:
		reason = "failed"
	case res.Cancelled:
		reason = "cancelled"
	}

	c.mu.Lock()
	pb.result, pb.err = res, err
	c.active = nil
	c.last = pb
	c.transition(StateIdle, reason, err)
	c.mu.Unlock()
	c.notify.flush()

	if err != nil {
		c.logger.Error("playback failed", "name", pb.name, "emitted", res.Emitted, "error", err)
	} else {
		c.logger.Info("playback finished", "name", pb.name, "emitted", res.Emitted, "loops", res.LoopsCompleted, "cancelled", res.Cancelled)
	}
	close(pb.done)
}

// RequestStop ends the active session. Stopping a recording hands back the
// macro; stopping a playback waits for its goroutine and returns its
// result. Stopping while idle does nothing.
func (c *Controller) RequestStop() (StopResult, error) {
	c.mu.Lock()
	switch c.state {
	case StateRecording:
		pipeline := c.pipeline
		c.pipeline = nil
		m, stats, err := pipeline.Stop()
		result := StopResult{Capture: &stats}
		if m.Events != nil {
			result.Macro = &m
		}
		c.transition(StateIdle, "recording stopped", err)
		c.mu.Unlock()
		c.notify.flush()
		return result, err
	case StatePlaying, StatePaused:
		pb := c.active
		c.player.Cancel()
		c.mu.Unlock()
		<-pb.done
		res := pb.result
		return StopResult{Playback: &res}, pb.err
	default:
		c.mu.Unlock()
		return StopResult{}, nil
	}
}

// RequestPause holds the active playback.
func (c *Controller) RequestPause() error {
	c.mu.Lock()
	if c.state != StatePlaying || !c.player.Pause() {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("pause while %s: %w", state, macro.ErrInvalidState)
	}
	c.transition(StatePaused, "pause", nil)
	c.mu.Unlock()
	c.notify.flush()
	return nil
}

// RequestResume releases a paused playback.
func (c *Controller) RequestResume() error {
	c.mu.Lock()
	if c.state != StatePaused || !c.player.Resume() {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("resume while %s: %w", state, macro.ErrInvalidState)
	}
	c.transition(StatePlaying, "resume", nil)
	c.mu.Unlock()
	c.notify.flush()
	return nil
}

// Wait blocks until the active playback ends and returns its outcome. With
// no active playback it returns the previous one, if any.
func (c *Controller) Wait(ctx context.Context) (player.Result, error) {
	c.mu.Lock()
	pb := c.active
	if pb == nil {
		pb = c.last
	}
	c.mu.Unlock()
	if pb == nil {
		return player.Result{}, nil
	}
	select {
	case <-pb.done:
		return pb.result, pb.err
	case <-ctx.Done():
		return player.Result{}, ctx.Err()
	}
}

// transition must be called with c.mu held.
func (c *Controller) transition(to State, reason string, err error) {
	change := Change{From: c.state, To: to, Reason: reason, Err: err, At: c.clock()}
	c.state = to
	c.timeline = append(c.timeline, change)
	c.notify.enqueue(change)
	c.logger.Debug("session state changed", "from", change.From, "to", change.To, "reason", reason)
}
