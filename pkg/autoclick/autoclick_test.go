package autoclick

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/offlinefirst/macrohook/pkg/events"
)

func TestBuildDoubleClickCycles(t *testing.T) {
	m, err := Build(Options{
		Name:   "double",
		Target: Point{X: 300, Y: 400},
		Action: DoubleLeft(),
		Delay:  DelayPolicy{Base: time.Second},
		Repeat: 2,
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("built macro invalid: %v", err)
	}
	want := []events.Event{
		{Kind: events.KindMouseMove, X: 300, Y: 400, Micros: 0},
		{Kind: events.KindMouseButtonDown, Code: events.ButtonLeft, X: 300, Y: 400, Micros: 0},
		{Kind: events.KindMouseButtonUp, Code: events.ButtonLeft, X: 300, Y: 400, Micros: 0},
		{Kind: events.KindMouseButtonDown, Code: events.ButtonLeft, X: 300, Y: 400, Micros: 20_000},
		{Kind: events.KindMouseButtonUp, Code: events.ButtonLeft, X: 300, Y: 400, Micros: 20_000},
		{Kind: events.KindMouseMove, X: 300, Y: 400, Micros: 1_020_000},
	}
	if m.Len() != 10 {
		t.Fatalf("expected 10 events, got %d", m.Len())
	}
	for i, ev := range want {
		if m.Events[i] != ev {
			t.Fatalf("event %d: want %+v, got %+v", i, ev, m.Events[i])
		}
	}
}

func TestBuildHoldKeepsButtonDown(t *testing.T) {
	m, err := Build(Options{Target: Point{X: 1, Y: 2}, Action: HoldButton(events.ButtonRight, 750*time.Millisecond), Repeat: 1})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if m.Len() != 3 || m.Events[2].Kind != events.KindMouseButtonUp || m.Events[2].Micros != 750_000 {
		t.Fatalf("unexpected hold macro: %+v", m.Events)
	}
	if m.Duration() != 750*time.Millisecond {
		t.Fatalf("unexpected duration %s", m.Duration())
	}
}

func TestRandomAreaStaysInBounds(t *testing.T) {
	m, err := Build(Options{
		Target:   Point{X: 100, Y: 100},
		Action:   SingleLeft(),
		Position: RandomArea{HalfWidth: 5, HalfHeight: 2},
		Delay:    DelayPolicy{Base: 100 * time.Millisecond, MinJitter: 10 * time.Millisecond, MaxJitter: 30 * time.Millisecond},
		Repeat:   200,
		Seed:     42,
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	var prevMove int64 = -1
	for _, ev := range m.Events {
		if ev.X < 95 || ev.X > 105 || ev.Y < 98 || ev.Y > 102 {
			t.Fatalf("event outside area: %+v", ev)
		}
		if ev.Kind != events.KindMouseMove {
			continue
		}
		if prevMove >= 0 {
			gap := ev.Micros - prevMove
			if gap < 110_000 || gap > 130_000 {
				t.Fatalf("cycle gap %dus outside delay policy", gap)
			}
		}
		prevMove = ev.Micros
	}

	again, err := Build(Options{
		Target:   Point{X: 100, Y: 100},
		Action:   SingleLeft(),
		Position: RandomArea{HalfWidth: 5, HalfHeight: 2},
		Delay:    DelayPolicy{Base: 100 * time.Millisecond, MinJitter: 10 * time.Millisecond, MaxJitter: 30 * time.Millisecond},
		Repeat:   200,
		Seed:     42,
	})
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	for i := range m.Events {
		if m.Events[i] != again.Events[i] {
			t.Fatalf("same seed produced different event %d", i)
		}
	}
}

func TestDelayResolveIsInclusive(t *testing.T) {
	policy := DelayPolicy{MinJitter: time.Microsecond, MaxJitter: 2 * time.Microsecond}
	rng := rand.New(rand.NewPCG(1, 2))
	seen := map[time.Duration]bool{}
	for i := 0; i < 200; i++ {
		seen[policy.Resolve(rng)] = true
	}
	if len(seen) != 2 || !seen[time.Microsecond] || !seen[2*time.Microsecond] {
		t.Fatalf("expected both bounds to be drawn, got %v", seen)
	}
	fixed := DelayPolicy{Base: time.Second}
	if got := fixed.Resolve(rng); got != time.Second {
		t.Fatalf("expected fixed delay, got %s", got)
	}
}

func TestBuildRejectsInvalidPolicies(t *testing.T) {
	valid := Options{Target: Point{X: 1, Y: 1}, Action: SingleLeft(), Repeat: 1}
	cases := map[string]func(o *Options){
		"zero clicks":     func(o *Options) { o.Action.Count = 0 },
		"held double":     func(o *Options) { o.Action = ClickAction{Button: events.ButtonLeft, Count: 2, Hold: time.Second} },
		"negative hold":   func(o *Options) { o.Action.Hold = -time.Second },
		"unknown button":  func(o *Options) { o.Action.Button = 9 },
		"negative base":   func(o *Options) { o.Delay.Base = -time.Millisecond },
		"inverted jitter": func(o *Options) { o.Delay = DelayPolicy{MinJitter: 5, MaxJitter: 1} },
		"negative area":   func(o *Options) { o.Position = RandomArea{HalfWidth: -1} },
		"no repeats":      func(o *Options) { o.Repeat = 0 },
		"negative jitter": func(o *Options) { o.Delay.MinJitter = -1 },
	}
	for name, mutate := range cases {
		opts := valid
		mutate(&opts)
		if _, err := Build(opts); !errors.Is(err, ErrInvalidPolicy) {
			t.Fatalf("%s: expected ErrInvalidPolicy, got %v", name, err)
		}
	}
}
