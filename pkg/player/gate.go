package player

import (
	"context"
	"sync"
	"time"
)

// gate coordinates pause/resume/cancel signals for one playback and keeps
// the total time spent paused so the schedule can be shifted by it.
type gate struct {
	mu          sync.Mutex
	clock       func() time.Time
	paused      bool
	pausedAt    time.Time
	pausedTotal time.Duration
	stopping    bool
	signal      chan struct{}
}

func newGate(clock func() time.Time) *gate {
	return &gate{clock: clock, signal: make(chan struct{}, 1)}
}

// pause reports whether the call changed state.
func (g *gate) pause() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused || g.stopping {
		return false
	}
	g.paused = true
	g.pausedAt = g.clock()
	return true
}

// resume reports whether the call changed state.
func (g *gate) resume() bool {
	g.mu.Lock()
	if !g.paused {
		g.mu.Unlock()
		return false
	}
	g.paused = false
	g.pausedTotal += g.clock().Sub(g.pausedAt)
	g.mu.Unlock()
	g.notify()
	return true
}

func (g *gate) stop() {
	g.mu.Lock()
	g.stopping = true
	if g.paused {
		g.paused = false
		g.pausedTotal += g.clock().Sub(g.pausedAt)
	}
	g.mu.Unlock()
	g.notify()
}

// elapsedPaused returns the accumulated paused time.
func (g *gate) elapsedPaused() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pausedTotal
}

func (g *gate) isPaused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// wait blocks while paused. It returns ctx.Err() when ctx ends and
// context.Canceled once stop was called.
func (g *gate) wait(ctx context.Context) error {
	for {
		g.mu.Lock()
		paused := g.paused
		stopping := g.stopping
		g.mu.Unlock()

		if stopping {
			return context.Canceled
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !paused {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-g.signal:
		}
	}
}

func (g *gate) notify() {
	select {
	case g.signal <- struct{}{}:
	default:
	}
}
