package hook

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/offlinefirst/macrohook/pkg/events"
)

type collector struct {
	mu  sync.Mutex
	got []events.RawEvent
}

func (c *collector) add(raw events.RawEvent) {
	c.mu.Lock()
	c.got = append(c.got, raw)
	c.mu.Unlock()
}

func (c *collector) snapshot() []events.RawEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]events.RawEvent(nil), c.got...)
}

func (c *collector) waitFor(t *testing.T, n int) []events.RawEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if got := c.snapshot(); len(got) >= n {
			return got
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d events, have %d", n, len(c.snapshot()))
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSyntheticDeliversScript(t *testing.T) {
	base := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)
	adapter := NewSynthetic(Options{
		Script: DefaultScript(),
		Clock:  func() time.Time { return base },
	})
	var c collector
	if err := adapter.Start(context.Background(), c.add); err != nil {
		t.Fatalf("start: %v", err)
	}
	select {
	case <-adapter.Drained():
	case <-time.After(2 * time.Second):
		t.Fatalf("script not drained")
	}
	if err := adapter.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	got := c.snapshot()
	if len(got) != len(DefaultScript()) {
		t.Fatalf("expected %d events, got %d", len(DefaultScript()), len(got))
	}
	for _, raw := range got {
		if raw.Platform != events.PlatformSynthetic {
			t.Fatalf("unexpected platform %q", raw.Platform)
		}
		if !raw.Time.Equal(base) {
			t.Fatalf("expected clock timestamp, got %s", raw.Time)
		}
	}
}

func TestOnlyOneHookPerProcess(t *testing.T) {
	first := NewSynthetic(Options{})
	second := NewSynthetic(Options{})
	if err := first.Start(context.Background(), func(events.RawEvent) {}); err != nil {
		t.Fatalf("start first: %v", err)
	}
	err := second.Start(context.Background(), func(events.RawEvent) {})
	if !errors.Is(err, ErrHookActive) {
		t.Fatalf("expected ErrHookActive, got %v", err)
	}
	if name, ok := Active(); !ok || name != BackendSynthetic {
		t.Fatalf("expected synthetic to be active, got %q", name)
	}
	if err := first.Stop(); err != nil {
		t.Fatalf("stop first: %v", err)
	}
	if _, ok := Active(); ok {
		t.Fatalf("expected hook slot to be released")
	}
	if err := second.Start(context.Background(), func(events.RawEvent) {}); err != nil {
		t.Fatalf("start second after release: %v", err)
	}
	if err := second.Stop(); err != nil {
		t.Fatalf("stop second: %v", err)
	}
	if err := second.Stop(); !errors.Is(err, ErrNotInstalled) {
		t.Fatalf("expected ErrNotInstalled on double stop, got %v", err)
	}
}

func TestSyntheticStopsOnContextCancel(t *testing.T) {
	script := make([]events.RawEvent, 100)
	for i := range script {
		script[i] = events.RawEvent{Type: int(events.KindMouseMove), X: float64(i)}
	}
	adapter := NewSynthetic(Options{Script: script, Interval: 50 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	var c collector
	if err := adapter.Start(ctx, c.add); err != nil {
		t.Fatalf("start: %v", err)
	}
	c.waitFor(t, 1)
	cancel()
	select {
	case <-adapter.Drained():
	case <-time.After(2 * time.Second):
		t.Fatalf("expected delivery to stop after cancel")
	}
	if err := adapter.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if got := len(c.snapshot()); got >= len(script) {
		t.Fatalf("expected cancellation to cut the script short, got %d events", got)
	}
}

func TestHookInstallErrorMatchesSentinel(t *testing.T) {
	err := newInstallError(BackendEvdev, "no readable input devices", "join the input group", errors.New("permission denied"))
	if !errors.Is(err, ErrHookInstall) {
		t.Fatalf("expected ErrHookInstall match")
	}
	var installErr *HookInstallError
	if !errors.As(err, &installErr) {
		t.Fatalf("expected *HookInstallError")
	}
	if installErr.Guidance == "" {
		t.Fatalf("expected guidance to be preserved")
	}
	if got := err.Error(); got != "evdev hook: no readable input devices: permission denied" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestResolveBackend(t *testing.T) {
	original := runtimeGOOS
	defer func() { runtimeGOOS = original }()

	cases := map[string]string{"darwin": BackendQuartz, "linux": BackendEvdev, "windows": BackendTerminal}
	for goos, expected := range cases {
		runtimeGOOS = func() string { return goos }
		if got := ResolveBackend("auto"); got != expected {
			t.Fatalf("%s: expected %s, got %s", goos, expected, got)
		}
	}
	if got := ResolveBackend(" Terminal "); got != BackendTerminal {
		t.Fatalf("expected explicit backend to win, got %s", got)
	}
	if _, err := New("wayland", Options{}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestTerminalTranslatesKeysAndMouse(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	adapter, err := New(BackendTerminal, Options{Screen: screen})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	var c collector
	if err := adapter.Start(context.Background(), c.add); err != nil {
		t.Fatalf("start: %v", err)
	}

	screen.InjectKey(tcell.KeyRune, 'A', tcell.ModNone)
	got := c.waitFor(t, 4)
	expected := []struct {
		kind events.Kind
		code int32
	}{
		{events.KindKeyDown, events.KeyLeftShift},
		{events.KindKeyDown, 30},
		{events.KindKeyUp, 30},
		{events.KindKeyUp, events.KeyLeftShift},
	}
	for i, want := range expected {
		ev, ok := events.Normalize(got[i], got[i].Time)
		if !ok {
			t.Fatalf("event %d dropped by normalizer", i)
		}
		if ev.Kind != want.kind || ev.Code != want.code {
			t.Fatalf("event %d: expected %s %d, got %s %d", i, want.kind, want.code, ev.Kind, ev.Code)
		}
	}

	screen.InjectMouse(4, 2, tcell.ButtonPrimary, tcell.ModNone)
	screen.InjectMouse(4, 2, tcell.ButtonNone, tcell.ModNone)
	got = c.waitFor(t, 6)
	down, _ := events.Normalize(got[4], got[4].Time)
	up, _ := events.Normalize(got[5], got[5].Time)
	if down.Kind != events.KindMouseButtonDown || down.Code != events.ButtonLeft || down.X != 4 || down.Y != 2 {
		t.Fatalf("unexpected button down %+v", down)
	}
	if up.Kind != events.KindMouseButtonUp {
		t.Fatalf("unexpected button up %+v", up)
	}

	if err := adapter.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
