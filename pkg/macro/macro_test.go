package macro

import (
	"errors"
	"testing"
	"time"

	"github.com/offlinefirst/macrohook/pkg/events"
)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestRecorderLifecycle(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	rec := NewRecorder(RecorderOptions{Clock: fixedClock(start)})

	if rec.Record(events.Event{Kind: events.KindKeyDown, Code: 30}) {
		t.Fatalf("expected idle recorder to reject events")
	}
	if _, err := rec.Stop(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on idle stop, got %v", err)
	}

	if err := rec.Start("greeting"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := rec.Start("again"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on double start, got %v", err)
	}
	if !rec.Started().Equal(start) {
		t.Fatalf("expected start time %v, got %v", start, rec.Started())
	}

	recorded := []events.Event{
		{Kind: events.KindKeyDown, Code: 35, Micros: 100},
		{Kind: events.KindKeyUp, Code: 35, Micros: 180},
		{Kind: events.KindMouseMove, X: 4, Y: 5, Micros: 250},
	}
	for _, ev := range recorded {
		if !rec.Record(ev) {
			t.Fatalf("expected %v to be accepted", ev)
		}
	}

	m, err := rec.Stop()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if m.Name != "greeting" || !m.CreatedAt.Equal(start) {
		t.Fatalf("unexpected metadata: %+v", m)
	}
	if !EventsEqual(m.Events, recorded) {
		t.Fatalf("unexpected events: %v", m.Events)
	}
	if m.Duration() != 250*time.Microsecond {
		t.Fatalf("expected 250µs duration, got %s", m.Duration())
	}
	if rec.Recording() || rec.Len() != 0 {
		t.Fatalf("expected recorder to be idle and empty after stop")
	}
}

func TestRecorderKeepsTimestampsNonDecreasing(t *testing.T) {
	rec := NewRecorder(RecorderOptions{})
	if err := rec.Start("jitter"); err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, micros := range []int64{10, 50, 40, 40, 90, -5, 120} {
		rec.Record(events.Event{Kind: events.KindMouseMove, Micros: micros})
	}
	m, err := rec.Stop()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("expected valid macro, got %v", err)
	}
	if rec.Clamped() != 3 {
		t.Fatalf("expected 3 clamped timestamps, got %d", rec.Clamped())
	}
	if got := m.Events[2].Micros; got != 50 {
		t.Fatalf("expected out-of-order event raised to 50, got %d", got)
	}
}

func TestRecorderEmptySessionYieldsValidMacro(t *testing.T) {
	rec := NewRecorder(RecorderOptions{})
	if err := rec.Start("empty"); err != nil {
		t.Fatalf("start: %v", err)
	}
	m, err := rec.Stop()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if m.Len() != 0 || m.Events == nil {
		t.Fatalf("expected non-nil empty event slice, got %#v", m.Events)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("empty macro should validate: %v", err)
	}
	if m.Duration() != 0 {
		t.Fatalf("expected zero duration, got %s", m.Duration())
	}
}

func TestMacroValidate(t *testing.T) {
	cases := map[string]struct {
		events  []events.Event
		wantErr bool
	}{
		"ordered":      {events: []events.Event{{Kind: events.KindKeyDown, Micros: 1}, {Kind: events.KindKeyUp, Micros: 1}}},
		"backwards":    {events: []events.Event{{Kind: events.KindKeyDown, Micros: 5}, {Kind: events.KindKeyUp, Micros: 4}}, wantErr: true},
		"negative":     {events: []events.Event{{Kind: events.KindKeyDown, Micros: -1}}, wantErr: true},
		"unknown kind": {events: []events.Event{{Kind: events.Kind(42)}}, wantErr: true},
	}
	for name, tc := range cases {
		err := Macro{Events: tc.events}.Validate()
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s: unexpected error state: %v", name, err)
		}
	}
}

func TestMacroCloneIsIndependent(t *testing.T) {
	original := New("clone", time.Now(), []events.Event{{Kind: events.KindKeyDown, Code: 30}})
	clone := original.Clone()
	clone.Events[0].Code = 31
	if original.Events[0].Code != 30 {
		t.Fatalf("clone shares storage with original")
	}
	if original.Equal(clone) {
		t.Fatalf("expected modified clone to differ")
	}
	if counts := original.Counts(); counts[events.KindKeyDown] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}
