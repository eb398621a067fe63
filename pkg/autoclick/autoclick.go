// Package autoclick generates click macros from a target point, a click
// action and timing and position policies. The result plays through the
// regular player, so pause, cancel, speed and time windows apply unchanged.
package autoclick

import (
	"math/rand/v2"
	"time"

	"github.com/offlinefirst/macrohook/pkg/events"
	"github.com/offlinefirst/macrohook/pkg/macro"
)

// MultiClickGap separates the press/release pairs of a multi-click so the
// platform recognises them as one gesture.
const MultiClickGap = 20 * time.Millisecond

// Options describe a click macro.
type Options struct {
	Name     string
	Target   Point
	Action   ClickAction
	Position PositionPolicy
	Delay    DelayPolicy
	// Repeat is the number of click cycles, at least 1.
	Repeat int
	// Seed makes jitter reproducible; zero draws a random seed.
	Seed      uint64
	CreatedAt time.Time
}

// Build expands opts into a macro. Each cycle moves to the resolved point,
// performs the action, then waits one resolved delay before the next cycle.
func Build(opts Options) (macro.Macro, error) {
	if err := opts.Action.Validate(); err != nil {
		return macro.Macro{}, err
	}
	if err := opts.Delay.Validate(); err != nil {
		return macro.Macro{}, err
	}
	position := opts.Position
	if position == nil {
		position = Exact{}
	}
	if area, ok := position.(RandomArea); ok {
		if err := area.Validate(); err != nil {
			return macro.Macro{}, err
		}
	}
	if opts.Repeat < 1 {
		return macro.Macro{}, invalid("repeat must be at least 1, got %d", opts.Repeat)
	}

	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	perCycle := 1 + 2*opts.Action.Count
	evs := make([]events.Event, 0, opts.Repeat*perCycle)
	var at time.Duration
	for cycle := 0; cycle < opts.Repeat; cycle++ {
		if cycle > 0 {
			at += opts.Delay.Resolve(rng)
		}
		p := position.Resolve(opts.Target, rng)
		evs = append(evs, events.Event{Kind: events.KindMouseMove, X: p.X, Y: p.Y, Micros: at.Microseconds()})
		at = appendClicks(&evs, opts.Action, p, at)
	}
	return macro.New(opts.Name, opts.CreatedAt, evs), nil
}

func appendClicks(evs *[]events.Event, action ClickAction, p Point, at time.Duration) time.Duration {
	button := func(kind events.Kind, t time.Duration) events.Event {
		return events.Event{Kind: kind, Code: action.Button, X: p.X, Y: p.Y, Micros: t.Microseconds()}
	}
	if action.Hold > 0 {
		*evs = append(*evs, button(events.KindMouseButtonDown, at))
		at += action.Hold
		*evs = append(*evs, button(events.KindMouseButtonUp, at))
		return at
	}
	for i := 0; i < action.Count; i++ {
		if i > 0 {
			at += MultiClickGap
		}
		*evs = append(*evs, button(events.KindMouseButtonDown, at), button(events.KindMouseButtonUp, at))
	}
	return at
}
