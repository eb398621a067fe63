package events

import (
	"testing"
	"time"
)

var base = time.Date(2024, 3, 14, 9, 26, 0, 0, time.UTC)

func TestNormalizeQuartzEvents(t *testing.T) {
	cases := map[string]struct {
		raw      RawEvent
		expected Event
	}{
		"key down": {
			raw:      RawEvent{Platform: PlatformQuartz, Type: QuartzKeyDown, Code: 0, Time: base.Add(1500 * time.Microsecond)},
			expected: Event{Kind: KindKeyDown, Code: 30, Micros: 1500},
		},
		"key up": {
			raw:      RawEvent{Platform: PlatformQuartz, Type: QuartzKeyUp, Code: 36, Time: base.Add(time.Millisecond)},
			expected: Event{Kind: KindKeyUp, Code: KeyEnter, Micros: 1000},
		},
		"modifier pressed": {
			raw:      RawEvent{Platform: PlatformQuartz, Type: QuartzFlagsChanged, Code: 56, Value: 1, Time: base},
			expected: Event{Kind: KindKeyDown, Code: KeyLeftShift},
		},
		"dragged becomes move": {
			raw:      RawEvent{Platform: PlatformQuartz, Type: QuartzLeftMouseDragged, X: 10.4, Y: 20.6, Time: base},
			expected: Event{Kind: KindMouseMove, X: 10, Y: 21},
		},
		"right button": {
			raw:      RawEvent{Platform: PlatformQuartz, Type: QuartzRightMouseDown, X: 5, Y: 6, Time: base},
			expected: Event{Kind: KindMouseButtonDown, Code: ButtonRight, X: 5, Y: 6},
		},
		"middle button up": {
			raw:      RawEvent{Platform: PlatformQuartz, Type: QuartzOtherMouseUp, Code: 2, Time: base},
			expected: Event{Kind: KindMouseButtonUp, Code: ButtonMiddle},
		},
		"scroll": {
			raw:      RawEvent{Platform: PlatformQuartz, Type: QuartzScrollWheel, Delta: -3, X: 1, Y: 2, Time: base},
			expected: Event{Kind: KindMouseWheel, Delta: -3, X: 1, Y: 2},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, ok := Normalize(tc.raw, base)
			if !ok {
				t.Fatalf("expected event to be accepted")
			}
			if !got.Equal(tc.expected) {
				t.Fatalf("expected %+v, got %+v", tc.expected, got)
			}
		})
	}
}

func TestNormalizeEvdevEvents(t *testing.T) {
	cases := map[string]struct {
		raw      RawEvent
		expected Event
	}{
		"key": {
			raw:      RawEvent{Platform: PlatformEvdev, Type: EvKey, Code: 30, Value: KeyValueDown, Time: base.Add(2 * time.Second)},
			expected: Event{Kind: KindKeyDown, Code: 30, Micros: 2_000_000},
		},
		"button": {
			raw:      RawEvent{Platform: PlatformEvdev, Type: EvKey, Code: BtnLeft, Value: KeyValueUp, X: 100, Y: 50, Time: base},
			expected: Event{Kind: KindMouseButtonUp, Code: ButtonLeft, X: 100, Y: 50},
		},
		"motion": {
			raw:      RawEvent{Platform: PlatformEvdev, Type: EvRel, Code: RelX, X: 7, Y: 9, Time: base},
			expected: Event{Kind: KindMouseMove, X: 7, Y: 9},
		},
		"wheel": {
			raw:      RawEvent{Platform: PlatformEvdev, Type: EvRel, Code: RelWheel, Value: 1, Time: base},
			expected: Event{Kind: KindMouseWheel, Delta: 1},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, ok := Normalize(tc.raw, base)
			if !ok {
				t.Fatalf("expected event to be accepted")
			}
			if got != tc.expected {
				t.Fatalf("expected %+v, got %+v", tc.expected, got)
			}
		})
	}
}

func TestNormalizeDropsUnsupported(t *testing.T) {
	cases := map[string]RawEvent{
		"platform":   {Platform: "wayland", Type: 1},
		"quartz tap": {Platform: PlatformQuartz, Type: 99},
		"repeat":     {Platform: PlatformEvdev, Type: EvKey, Code: 30, Value: KeyValueRepeat},
		"hwheel":     {Platform: PlatformEvdev, Type: EvRel, Code: RelHWheel, Value: 1},
		"unknown":    {Platform: PlatformEvdev, Type: EvKey, Code: 600, Value: 1},
		"bad kind":   {Platform: PlatformSynthetic, Type: 99},
		"no wheel":   {Platform: PlatformSynthetic, Type: int(KindMouseWheel)},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if ev, ok := Normalize(raw, base); ok {
				t.Fatalf("expected drop, got %+v", ev)
			}
		})
	}
}

func TestNormalizeClampsEarlyTimestamps(t *testing.T) {
	raw := RawEvent{Platform: PlatformSynthetic, Type: int(KindKeyDown), Code: 30, Time: base.Add(-time.Second)}
	ev, ok := Normalize(raw, base)
	if !ok {
		t.Fatalf("expected event to be accepted")
	}
	if ev.Micros != 0 {
		t.Fatalf("expected clamped timestamp, got %d", ev.Micros)
	}
}

func TestNormalizerCountsDrops(t *testing.T) {
	n := NewNormalizer(base)
	n.Apply(RawEvent{Platform: PlatformSynthetic, Type: int(KindKeyDown), Code: 30, Time: base})
	n.Apply(RawEvent{Platform: PlatformEvdev, Type: EvKey, Code: 30, Value: KeyValueRepeat})
	n.Apply(RawEvent{Platform: PlatformEvdev, Type: EvKey, Code: 30, Value: KeyValueRepeat})
	n.Apply(RawEvent{Platform: "other"})

	stats := n.Stats()
	if stats.Accepted != 1 {
		t.Fatalf("expected 1 accepted, got %d", stats.Accepted)
	}
	if stats.TotalDropped() != 3 {
		t.Fatalf("expected 3 dropped, got %d", stats.TotalDropped())
	}
	if stats.Dropped[DropKeyRepeat] != 2 {
		t.Fatalf("expected 2 repeats, got %d", stats.Dropped[DropKeyRepeat])
	}
	reasons := stats.Reasons()
	if len(reasons) != 2 || reasons[0] != DropKeyRepeat || reasons[1] != DropUnknownPlatform {
		t.Fatalf("unexpected reasons: %v", reasons)
	}
}
