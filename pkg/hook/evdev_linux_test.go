//go:build linux

package hook

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/offlinefirst/macrohook/pkg/events"
)

func inputRecord(typ, code uint16, value int32) []byte {
	record := make([]byte, inputEventSize)
	binary.NativeEndian.PutUint16(record[16:18], typ)
	binary.NativeEndian.PutUint16(record[18:20], code)
	binary.NativeEndian.PutUint32(record[20:24], uint32(value))
	return record
}

func newTestReader(c *collector, width, height int) *evdevReader {
	clock := func() time.Time { return time.Unix(0, 0) }
	return newEvdevReader(c.add, clock, width, height)
}

func lastPosition(t *testing.T, c *collector) (float64, float64) {
	t.Helper()
	got := c.snapshot()
	if len(got) == 0 {
		t.Fatalf("no events emitted")
	}
	last := got[len(got)-1]
	return last.X, last.Y
}

func TestEvdevRelativeMotionStartsAtCentreAndStaysOnScreen(t *testing.T) {
	c := &collector{}
	r := newTestReader(c, 1000, 800)

	r.handle(absAxes{}, inputRecord(events.EvRel, events.RelX, -5))
	r.handle(absAxes{}, inputRecord(events.EvSyn, events.SynReport, 0))
	if x, y := lastPosition(t, c); x != 495 || y != 400 {
		t.Fatalf("expected motion relative to the screen centre, got %v,%v", x, y)
	}

	for i := 0; i < 100; i++ {
		r.handle(absAxes{}, inputRecord(events.EvRel, events.RelX, 1000))
		r.handle(absAxes{}, inputRecord(events.EvRel, events.RelY, 1000))
		r.handle(absAxes{}, inputRecord(events.EvSyn, events.SynReport, 0))
	}
	if x, y := lastPosition(t, c); x != 999 || y != 799 {
		t.Fatalf("expected the cursor pinned to the bottom-right pixel, got %v,%v", x, y)
	}

	r.handle(absAxes{}, inputRecord(events.EvRel, events.RelX, -10))
	r.handle(absAxes{}, inputRecord(events.EvSyn, events.SynReport, 0))
	if x, _ := lastPosition(t, c); x != 989 {
		t.Fatalf("expected motion away from the edge to register at once, got %v", x)
	}

	for i := 0; i < 10; i++ {
		r.handle(absAxes{}, inputRecord(events.EvRel, events.RelX, -500))
		r.handle(absAxes{}, inputRecord(events.EvSyn, events.SynReport, 0))
	}
	if x, _ := lastPosition(t, c); x != 0 {
		t.Fatalf("expected the cursor pinned to the left edge, got %v", x)
	}
}

func TestEvdevAbsoluteAxesScaleToScreen(t *testing.T) {
	c := &collector{}
	r := newTestReader(c, 1000, 500)
	tablet := absAxes{x: axisRange{min: 0, max: 4095}, y: axisRange{min: 0, max: 4095}}

	r.handle(tablet, inputRecord(events.EvAbs, events.AbsX, 4095))
	r.handle(tablet, inputRecord(events.EvAbs, events.AbsY, 0))
	r.handle(tablet, inputRecord(events.EvSyn, events.SynReport, 0))
	if x, y := lastPosition(t, c); x != 999 || y != 0 {
		t.Fatalf("expected device extremes to map to screen extremes, got %v,%v", x, y)
	}

	r.handle(tablet, inputRecord(events.EvAbs, events.AbsY, 2048))
	r.handle(tablet, inputRecord(events.EvSyn, events.SynReport, 0))
	if _, y := lastPosition(t, c); y != 250 {
		t.Fatalf("expected mid-range reading to land mid-screen, got %v", y)
	}

	r.handle(absAxes{}, inputRecord(events.EvAbs, events.AbsX, 5000))
	r.handle(absAxes{}, inputRecord(events.EvSyn, events.SynReport, 0))
	if x, _ := lastPosition(t, c); x != 999 {
		t.Fatalf("expected unranged readings clamped to the screen, got %v", x)
	}
}

func TestEvdevButtonsCarryCursorPosition(t *testing.T) {
	c := &collector{}
	r := newTestReader(c, 0, 0)

	r.handle(absAxes{}, inputRecord(events.EvKey, events.BtnLeft, 1))
	got := c.snapshot()
	if len(got) != 1 {
		t.Fatalf("expected one button event, got %d", len(got))
	}
	want := float64(DefaultScreenWidth / 2)
	if got[0].X != want || got[0].Y != float64(DefaultScreenHeight/2) || got[0].Code != events.BtnLeft {
		t.Fatalf("expected button at default screen centre, got %+v", got[0])
	}
}

func TestEvdevIOCGABSRequest(t *testing.T) {
	if got := evdevIOCGABS(events.AbsX); got != 0x80184540 {
		t.Fatalf("unexpected EVIOCGABS(ABS_X): %#x", got)
	}
	if got := evdevIOCGABS(events.AbsY); got != 0x80184541 {
		t.Fatalf("unexpected EVIOCGABS(ABS_Y): %#x", got)
	}
}
