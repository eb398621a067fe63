package events

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies the closed set of input event variants.
type Kind uint16

const (
	KindKeyDown Kind = iota + 1
	KindKeyUp
	KindMouseMove
	KindMouseButtonDown
	KindMouseButtonUp
	KindMouseWheel
)

var kindNames = map[Kind]string{
	KindKeyDown:         "key_down",
	KindKeyUp:           "key_up",
	KindMouseMove:       "mouse_move",
	KindMouseButtonDown: "mouse_down",
	KindMouseButtonUp:   "mouse_up",
	KindMouseWheel:      "mouse_wheel",
}

// Valid reports whether k is one of the known variants.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// String returns the stable textual name used in exports and logs.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint16(k))
}

// ParseKind resolves a textual kind name.
func ParseKind(name string) (Kind, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for kind, candidate := range kindNames {
		if candidate == normalized {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q", name)
}

// Mouse button codes carried in Event.Code for button events.
const (
	ButtonLeft    int32 = 1
	ButtonRight   int32 = 2
	ButtonMiddle  int32 = 3
	ButtonBack    int32 = 4
	ButtonForward int32 = 5
)

// ButtonName returns a readable label for a mouse button code.
func ButtonName(code int32) string {
	switch code {
	case ButtonLeft:
		return "left"
	case ButtonRight:
		return "right"
	case ButtonMiddle:
		return "middle"
	case ButtonBack:
		return "back"
	case ButtonForward:
		return "forward"
	default:
		return fmt.Sprintf("button%d", code)
	}
}

// ParseButton resolves "left", "right", "middle" (and numeric codes).
func ParseButton(name string) (int32, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "left", "1":
		return ButtonLeft, nil
	case "right", "2":
		return ButtonRight, nil
	case "middle", "3":
		return ButtonMiddle, nil
	case "back", "4":
		return ButtonBack, nil
	case "forward", "5":
		return ButtonForward, nil
	default:
		return 0, fmt.Errorf("unknown mouse button %q", name)
	}
}

// Event is one normalized input action. Micros is the offset from the start
// of the recording in microseconds.
type Event struct {
	Kind   Kind
	Code   int32
	X      int32
	Y      int32
	Delta  int32
	Micros int64
}

// Offset returns the timestamp as a duration.
func (e Event) Offset() time.Duration {
	return time.Duration(e.Micros) * time.Microsecond
}

// IsMouse reports whether the event carries pointer coordinates.
func (e Event) IsMouse() bool {
	switch e.Kind {
	case KindMouseMove, KindMouseButtonDown, KindMouseButtonUp, KindMouseWheel:
		return true
	default:
		return false
	}
}

// Equal compares the canonical fields of two events.
func (e Event) Equal(other Event) bool {
	return e == other
}

func (e Event) String() string {
	switch e.Kind {
	case KindKeyDown, KindKeyUp:
		return fmt.Sprintf("%s %s @%s", e.Kind, KeyName(e.Code), e.Offset())
	case KindMouseMove:
		return fmt.Sprintf("%s (%d,%d) @%s", e.Kind, e.X, e.Y, e.Offset())
	case KindMouseButtonDown, KindMouseButtonUp:
		return fmt.Sprintf("%s %s (%d,%d) @%s", e.Kind, ButtonName(e.Code), e.X, e.Y, e.Offset())
	case KindMouseWheel:
		return fmt.Sprintf("%s %+d (%d,%d) @%s", e.Kind, e.Delta, e.X, e.Y, e.Offset())
	default:
		return fmt.Sprintf("%s @%s", e.Kind, e.Offset())
	}
}
