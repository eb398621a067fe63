package autoclick

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/offlinefirst/macrohook/pkg/events"
)

// ErrInvalidPolicy marks a rejected click, delay or position setting.
var ErrInvalidPolicy = errors.New("invalid autoclick policy")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidPolicy, fmt.Sprintf(format, args...))
}

// ClickAction is what happens at each target: Count press/release pairs,
// or a single press held for Hold.
type ClickAction struct {
	Button int32
	Count  int
	Hold   time.Duration
}

// SingleLeft clicks the left button once.
func SingleLeft() ClickAction { return ClickAction{Button: events.ButtonLeft, Count: 1} }

// DoubleLeft double-clicks the left button.
func DoubleLeft() ClickAction { return ClickAction{Button: events.ButtonLeft, Count: 2} }

// RightClick clicks the right button once.
func RightClick() ClickAction { return ClickAction{Button: events.ButtonRight, Count: 1} }

// HoldButton presses button for d before releasing it.
func HoldButton(button int32, d time.Duration) ClickAction {
	return ClickAction{Button: button, Count: 1, Hold: d}
}

// Validate enforces a known button, at least one click, a non-negative hold
// and a single click whenever the button is held.
func (a ClickAction) Validate() error {
	if a.Button < events.ButtonLeft || a.Button > events.ButtonForward {
		return invalid("unknown mouse button %d", a.Button)
	}
	if a.Count < 1 {
		return invalid("click count must be at least 1, got %d", a.Count)
	}
	if a.Hold < 0 {
		return invalid("hold must not be negative, got %s", a.Hold)
	}
	if a.Hold > 0 && a.Count != 1 {
		return invalid("a held click must have count 1, got %d", a.Count)
	}
	return nil
}

// DelayPolicy spaces consecutive clicks by Base plus a random jitter drawn
// uniformly from [MinJitter, MaxJitter].
type DelayPolicy struct {
	Base      time.Duration
	MinJitter time.Duration
	MaxJitter time.Duration
}

// Validate rejects negative durations and an inverted jitter range.
func (d DelayPolicy) Validate() error {
	switch {
	case d.Base < 0:
		return invalid("base interval must not be negative, got %s", d.Base)
	case d.MinJitter < 0:
		return invalid("minimum jitter must not be negative, got %s", d.MinJitter)
	case d.MaxJitter < 0:
		return invalid("maximum jitter must not be negative, got %s", d.MaxJitter)
	case d.MinJitter > d.MaxJitter:
		return invalid("minimum jitter %s exceeds maximum %s", d.MinJitter, d.MaxJitter)
	}
	return nil
}

// Resolve draws one delay. Jitter has microsecond resolution.
func (d DelayPolicy) Resolve(rng *rand.Rand) time.Duration {
	lo := d.MinJitter.Microseconds()
	hi := d.MaxJitter.Microseconds()
	jitter := lo
	if hi > lo {
		jitter += rng.Int64N(hi - lo + 1)
	}
	return d.Base + time.Duration(jitter)*time.Microsecond
}

// Point is a screen coordinate.
type Point struct {
	X, Y int32
}

// PositionPolicy picks where each click lands relative to the target.
type PositionPolicy interface {
	Resolve(base Point, rng *rand.Rand) Point
}

// Exact always clicks the target itself.
type Exact struct{}

func (Exact) Resolve(base Point, _ *rand.Rand) Point { return base }

// RandomArea clicks anywhere in the rectangle spanning HalfWidth and
// HalfHeight either side of the target, bounds included.
type RandomArea struct {
	HalfWidth  int32
	HalfHeight int32
}

// Validate rejects negative extents.
func (a RandomArea) Validate() error {
	if a.HalfWidth < 0 || a.HalfHeight < 0 {
		return invalid("area extents must not be negative, got %dx%d", a.HalfWidth, a.HalfHeight)
	}
	return nil
}

func (a RandomArea) Resolve(base Point, rng *rand.Rand) Point {
	return Point{
		X: base.X + inclusive(rng, a.HalfWidth),
		Y: base.Y + inclusive(rng, a.HalfHeight),
	}
}

func inclusive(rng *rand.Rand, half int32) int32 {
	if half <= 0 {
		return 0
	}
	return int32(rng.Int64N(2*int64(half)+1)) - half
}
