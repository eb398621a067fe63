// Package capture turns raw hook callbacks into a recorded macro without ever
// blocking the hook thread.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/offlinefirst/macrohook/pkg/events"
	"github.com/offlinefirst/macrohook/pkg/hook"
	"github.com/offlinefirst/macrohook/pkg/macro"
)

// DefaultQueueSize bounds the hand-off between the hook callback and the
// recorder goroutine.
const DefaultQueueSize = 4096

// ErrNotRunning is returned by Stop when the pipeline was never started.
var ErrNotRunning = errors.New("capture pipeline not running")

// Options controls a recording pipeline.
type Options struct {
	Adapter   hook.Adapter
	Name      string
	Filter    events.Filter
	QueueSize int
	Logger    *slog.Logger
	Clock     func() time.Time

	// Observe sees every normalized event before filtering, on the hook
	// goroutine. It must return quickly and must not stop the pipeline.
	Observe func(events.Event)
	// Journal receives one line per pipeline milestone when set.
	Journal io.Writer
}

// Stats reports what happened to the raw events seen by a pipeline.
type Stats struct {
	Received   int
	Normalized events.NormalizerStats
	Filtered   int
	Overflow   int
	Recorded   int
	Clamped    int
}

// Pipeline wires a hook adapter to a macro recorder through a buffered
// channel. The callback only normalizes, filters and enqueues; the consumer
// goroutine owns the recorder.
type Pipeline struct {
	opts     Options
	logger   *slog.Logger
	clock    func() time.Time
	recorder *macro.Recorder

	mu         sync.RWMutex
	running    bool
	closed     bool
	queue      chan events.Event
	normalizer *events.Normalizer
	consumed   chan struct{}

	received atomic.Int64
	filtered atomic.Int64
	overflow atomic.Int64
}

// NewPipeline validates opts and returns an idle pipeline.
func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.Adapter == nil {
		return nil, errors.New("hook adapter must be provided")
	}
	if opts.QueueSize < 0 {
		return nil, fmt.Errorf("queue size must be positive, got %d", opts.QueueSize)
	}
	if opts.QueueSize == 0 {
		opts.QueueSize = DefaultQueueSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Pipeline{
		opts:     opts,
		logger:   logger,
		clock:    clock,
		recorder: macro.NewRecorder(macro.RecorderOptions{Logger: logger, Clock: clock}),
	}, nil
}

// Start opens the recording and installs the hook. Cancelling ctx uninstalls
// the hook; Stop must still be called to collect the macro.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("start pipeline: %w", macro.ErrInvalidState)
	}
	if err := p.recorder.Start(p.opts.Name); err != nil {
		p.mu.Unlock()
		return err
	}
	p.normalizer = events.NewNormalizer(p.recorder.Started())
	p.queue = make(chan events.Event, p.opts.QueueSize)
	p.consumed = make(chan struct{})
	p.closed = false
	p.received.Store(0)
	p.filtered.Store(0)
	p.overflow.Store(0)
	p.running = true
	go p.consume(p.queue, p.consumed)
	p.mu.Unlock()

	if err := p.opts.Adapter.Start(ctx, p.deliver); err != nil {
		p.shutdown()
		_, _ = p.recorder.Stop()
		p.setStopped()
		p.journal("hook", "install failed: %v", err)
		return err
	}
	p.logger.Info("recording started", "backend", p.opts.Adapter.Name(), "name", p.opts.Name)
	p.journal("hook", "installed %s backend", p.opts.Adapter.Name())
	return nil
}

// deliver runs on the hook goroutine and never blocks on the consumer.
func (p *Pipeline) deliver(raw events.RawEvent) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed || p.queue == nil {
		return
	}
	p.received.Add(1)
	ev, ok := p.normalizer.Apply(raw)
	if !ok {
		return
	}
	if p.opts.Observe != nil {
		p.opts.Observe(ev)
	}
	if !p.opts.Filter.Allows(ev) {
		p.filtered.Add(1)
		return
	}
	select {
	case p.queue <- ev:
	default:
		p.overflow.Add(1)
	}
}

func (p *Pipeline) consume(queue <-chan events.Event, done chan<- struct{}) {
	defer close(done)
	for ev := range queue {
		p.recorder.Record(ev)
	}
}

// Stop uninstalls the hook, drains the queue and returns the recorded macro.
func (p *Pipeline) Stop() (macro.Macro, Stats, error) {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return macro.Macro{}, Stats{}, ErrNotRunning
	}
	p.mu.Unlock()

	hookErr := p.opts.Adapter.Stop()
	if errors.Is(hookErr, hook.ErrNotInstalled) {
		hookErr = nil
	}
	p.shutdown()

	stats := p.stats()
	m, err := p.recorder.Stop()
	p.setStopped()
	if err != nil {
		return macro.Macro{}, stats, err
	}
	stats.Recorded = m.Len()

	if stats.Overflow > 0 {
		p.logger.Warn("capture queue overflowed", "dropped", stats.Overflow, "queue_size", p.opts.QueueSize)
	}
	p.logger.Info("recording stopped",
		"name", m.Name,
		"events", stats.Recorded,
		"filtered", stats.Filtered,
		"dropped", stats.Normalized.TotalDropped(),
		"overflow", stats.Overflow,
	)
	p.journal("recorder", "recorded %d events (%d filtered, %d dropped, %d overflow)", stats.Recorded, stats.Filtered, stats.Normalized.TotalDropped(), stats.Overflow)
	if hookErr != nil {
		return m, stats, fmt.Errorf("uninstall hook: %w", hookErr)
	}
	return m, stats, nil
}

// Running reports whether the pipeline is recording.
func (p *Pipeline) Running() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// Len reports how many events the recorder holds so far.
func (p *Pipeline) Len() int {
	return p.recorder.Len()
}

// shutdown closes the queue and waits for the consumer to drain it.
func (p *Pipeline) shutdown() {
	p.mu.Lock()
	if p.closed || p.queue == nil {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	consumed := p.consumed
	p.mu.Unlock()
	<-consumed
}

func (p *Pipeline) setStopped() {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
}

func (p *Pipeline) stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	stats := Stats{
		Received: int(p.received.Load()),
		Filtered: int(p.filtered.Load()),
		Overflow: int(p.overflow.Load()),
		Clamped:  p.recorder.Clamped(),
	}
	if p.normalizer != nil {
		stats.Normalized = p.normalizer.Stats()
	}
	return stats
}

func (p *Pipeline) journal(subsystem, message string, args ...any) {
	if p.opts.Journal == nil {
		return
	}
	formatted := message
	if len(args) > 0 {
		formatted = fmt.Sprintf(message, args...)
	}
	line := fmt.Sprintf("[%s] subsystem=%s %s\n", p.clock().UTC().Format(time.RFC3339), subsystem, formatted)
	_, _ = io.WriteString(p.opts.Journal, line)
}
