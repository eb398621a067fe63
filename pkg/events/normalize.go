package events

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Drop reasons reported by the Normalizer.
const (
	DropUnknownPlatform = "unknown_platform"
	DropUnknownType     = "unknown_type"
	DropUnknownKey      = "unknown_key"
	DropUnknownButton   = "unknown_button"
	DropKeyRepeat       = "key_repeat"
	DropHorizontalWheel = "horizontal_wheel"
	DropZeroWheel       = "zero_wheel"
)

// Normalize converts a raw hook event into an Event whose timestamp is
// relative to start. It reports false for events outside the supported set.
func Normalize(raw RawEvent, start time.Time) (Event, bool) {
	ev, reason := normalize(raw, start)
	return ev, reason == ""
}

func normalize(raw RawEvent, start time.Time) (Event, string) {
	var (
		ev     Event
		reason string
	)
	switch raw.Platform {
	case PlatformQuartz:
		ev, reason = fromQuartz(raw)
	case PlatformEvdev:
		ev, reason = fromEvdev(raw)
	case PlatformTerminal, PlatformSynthetic:
		ev, reason = passthrough(raw)
	default:
		return Event{}, DropUnknownPlatform
	}
	if reason != "" {
		return Event{}, reason
	}
	ev.Micros = offsetMicros(raw.Time, start)
	return ev, ""
}

func offsetMicros(at, start time.Time) int64 {
	if at.IsZero() || start.IsZero() {
		return 0
	}
	micros := at.Sub(start).Microseconds()
	if micros < 0 {
		return 0
	}
	return micros
}

func coord(v float64) int32 {
	if math.IsNaN(v) {
		return 0
	}
	r := math.Round(v)
	if r > math.MaxInt32 {
		return math.MaxInt32
	}
	if r < math.MinInt32 {
		return math.MinInt32
	}
	return int32(r)
}

func pointer(kind Kind, raw RawEvent) Event {
	return Event{Kind: kind, X: coord(raw.X), Y: coord(raw.Y)}
}

func fromQuartz(raw RawEvent) (Event, string) {
	switch raw.Type {
	case QuartzKeyDown, QuartzKeyUp:
		key, ok := KeyByMac(raw.Code)
		if !ok {
			return Event{}, DropUnknownKey
		}
		kind := KindKeyDown
		if raw.Type == QuartzKeyUp {
			kind = KindKeyUp
		}
		if raw.Type == QuartzKeyDown && raw.Value == KeyValueRepeat {
			return Event{}, DropKeyRepeat
		}
		return Event{Kind: kind, Code: key.Code}, ""
	case QuartzFlagsChanged:
		key, ok := KeyByMac(raw.Code)
		if !ok || !IsModifier(key.Code) {
			return Event{}, DropUnknownKey
		}
		kind := KindKeyUp
		if raw.Value != 0 {
			kind = KindKeyDown
		}
		return Event{Kind: kind, Code: key.Code}, ""
	case QuartzMouseMoved, QuartzLeftMouseDragged, QuartzRightMouseDragged, QuartzOtherMouseDragged:
		return pointer(KindMouseMove, raw), ""
	case QuartzLeftMouseDown, QuartzRightMouseDown, QuartzOtherMouseDown,
		QuartzLeftMouseUp, QuartzRightMouseUp, QuartzOtherMouseUp:
		button, ok := quartzButton(raw)
		if !ok {
			return Event{}, DropUnknownButton
		}
		kind := KindMouseButtonDown
		switch raw.Type {
		case QuartzLeftMouseUp, QuartzRightMouseUp, QuartzOtherMouseUp:
			kind = KindMouseButtonUp
		}
		ev := pointer(kind, raw)
		ev.Code = button
		return ev, ""
	case QuartzScrollWheel:
		if raw.Delta == 0 {
			return Event{}, DropZeroWheel
		}
		ev := pointer(KindMouseWheel, raw)
		ev.Delta = int32(raw.Delta)
		return ev, ""
	default:
		return Event{}, DropUnknownType
	}
}

// quartzButton maps kCGMouseEventButtonNumber (0 left, 1 right, 2 middle).
func quartzButton(raw RawEvent) (int32, bool) {
	switch raw.Type {
	case QuartzLeftMouseDown, QuartzLeftMouseUp:
		return ButtonLeft, true
	case QuartzRightMouseDown, QuartzRightMouseUp:
		return ButtonRight, true
	}
	switch raw.Code {
	case 2:
		return ButtonMiddle, true
	case 3:
		return ButtonBack, true
	case 4:
		return ButtonForward, true
	default:
		return 0, false
	}
}

func fromEvdev(raw RawEvent) (Event, string) {
	switch raw.Type {
	case EvKey:
		if raw.Value == KeyValueRepeat {
			return Event{}, DropKeyRepeat
		}
		if button, ok := evdevButton(raw.Code); ok {
			kind := KindMouseButtonUp
			if raw.Value == KeyValueDown {
				kind = KindMouseButtonDown
			}
			ev := pointer(kind, raw)
			ev.Code = button
			return ev, ""
		}
		if _, ok := KeyByCode(int32(raw.Code)); !ok {
			return Event{}, DropUnknownKey
		}
		kind := KindKeyUp
		if raw.Value == KeyValueDown {
			kind = KindKeyDown
		}
		return Event{Kind: kind, Code: int32(raw.Code)}, ""
	case EvRel:
		switch raw.Code {
		case RelX, RelY:
			return pointer(KindMouseMove, raw), ""
		case RelWheel:
			if raw.Value == 0 {
				return Event{}, DropZeroWheel
			}
			ev := pointer(KindMouseWheel, raw)
			ev.Delta = int32(raw.Value)
			return ev, ""
		case RelHWheel:
			return Event{}, DropHorizontalWheel
		default:
			return Event{}, DropUnknownType
		}
	case EvAbs:
		switch raw.Code {
		case AbsX, AbsY:
			return pointer(KindMouseMove, raw), ""
		default:
			return Event{}, DropUnknownType
		}
	default:
		return Event{}, DropUnknownType
	}
}

func evdevButton(code int) (int32, bool) {
	switch code {
	case BtnLeft, BtnTouch:
		return ButtonLeft, true
	case BtnRight:
		return ButtonRight, true
	case BtnMiddle:
		return ButtonMiddle, true
	case BtnSide:
		return ButtonBack, true
	case BtnExtra:
		return ButtonForward, true
	default:
		return 0, false
	}
}

// passthrough handles backends that already speak the canonical model: Type
// carries the Kind and Code the canonical key or button.
func passthrough(raw RawEvent) (Event, string) {
	kind := Kind(raw.Type)
	if !kind.Valid() {
		return Event{}, DropUnknownType
	}
	switch kind {
	case KindKeyDown, KindKeyUp:
		if _, ok := KeyByCode(int32(raw.Code)); !ok {
			return Event{}, DropUnknownKey
		}
		return Event{Kind: kind, Code: int32(raw.Code)}, ""
	case KindMouseMove:
		return pointer(kind, raw), ""
	case KindMouseButtonDown, KindMouseButtonUp:
		if raw.Code < int(ButtonLeft) || raw.Code > int(ButtonForward) {
			return Event{}, DropUnknownButton
		}
		ev := pointer(kind, raw)
		ev.Code = int32(raw.Code)
		return ev, ""
	case KindMouseWheel:
		if raw.Delta == 0 {
			return Event{}, DropZeroWheel
		}
		ev := pointer(kind, raw)
		ev.Delta = int32(raw.Delta)
		return ev, ""
	default:
		return Event{}, DropUnknownType
	}
}

// NormalizerStats summarises accepted and dropped raw events.
type NormalizerStats struct {
	Accepted int
	Dropped  map[string]int
}

// TotalDropped sums all drop reasons.
func (s NormalizerStats) TotalDropped() int {
	total := 0
	for _, n := range s.Dropped {
		total += n
	}
	return total
}

// Reasons returns the drop reasons in stable order.
func (s NormalizerStats) Reasons() []string {
	reasons := make([]string, 0, len(s.Dropped))
	for reason := range s.Dropped {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	return reasons
}

// Normalizer applies Normalize against a fixed recording start and counts
// what it drops.
type Normalizer struct {
	start time.Time

	mu       sync.Mutex
	accepted int
	dropped  map[string]int
}

// NewNormalizer anchors timestamps at start.
func NewNormalizer(start time.Time) *Normalizer {
	return &Normalizer{start: start, dropped: make(map[string]int)}
}

// Start returns the anchor time.
func (n *Normalizer) Start() time.Time {
	return n.start
}

// Apply normalizes raw, recording the outcome.
func (n *Normalizer) Apply(raw RawEvent) (Event, bool) {
	ev, reason := normalize(raw, n.start)
	n.mu.Lock()
	defer n.mu.Unlock()
	if reason != "" {
		n.dropped[reason]++
		return Event{}, false
	}
	n.accepted++
	return ev, true
}

// Stats returns a snapshot of the counters.
func (n *Normalizer) Stats() NormalizerStats {
	n.mu.Lock()
	defer n.mu.Unlock()
	dropped := make(map[string]int, len(n.dropped))
	for k, v := range n.dropped {
		dropped[k] = v
	}
	return NormalizerStats{Accepted: n.accepted, Dropped: dropped}
}
