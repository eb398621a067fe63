package hook

import (
	"context"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/offlinefirst/macrohook/pkg/events"
)

// terminalHook reads keyboard and mouse input from the controlling terminal.
// Terminals report key presses only, so each press is delivered as a
// down/up pair. Coordinates are character cells.
type terminalHook struct {
	opts Options

	mu      sync.Mutex
	running bool
	screen  tcell.Screen
	fini    func()
	done    chan struct{}
}

func newTerminal(opts Options) Adapter {
	return &terminalHook{opts: opts}
}

func (h *terminalHook) Name() string { return BackendTerminal }

func (h *terminalHook) Start(ctx context.Context, cb Callback) error {
	if ctx == nil {
		ctx = context.Background()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return ErrHookActive
	}
	if err := claim(BackendTerminal); err != nil {
		return err
	}

	screen := h.opts.Screen
	if screen == nil {
		var err error
		screen, err = tcell.NewScreen()
		if err != nil {
			release(BackendTerminal)
			return newInstallError(BackendTerminal, "open terminal", "run from an interactive terminal", err)
		}
	}
	if err := screen.Init(); err != nil {
		release(BackendTerminal)
		return newInstallError(BackendTerminal, "initialise terminal", "run from an interactive terminal", err)
	}
	screen.EnableMouse()

	var once sync.Once
	h.fini = func() { once.Do(screen.Fini) }
	h.screen = screen
	h.done = make(chan struct{})
	h.running = true

	translator := &terminalTranslator{cb: traced(h.opts, BackendTerminal, cb), opts: h.opts}
	go translator.run(screen, h.done)
	go func(done <-chan struct{}, fini func()) {
		select {
		case <-ctx.Done():
			fini()
		case <-done:
		}
	}(h.done, h.fini)
	return nil
}

func (h *terminalHook) Stop() error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return ErrNotInstalled
	}
	h.running = false
	fini, done := h.fini, h.done
	h.screen = nil
	h.mu.Unlock()

	fini()
	<-done
	release(BackendTerminal)
	return nil
}

type terminalTranslator struct {
	cb      Callback
	opts    Options
	buttons tcell.ButtonMask
	x, y    int
}

func (t *terminalTranslator) run(screen tcell.Screen, done chan<- struct{}) {
	defer close(done)
	for {
		ev := screen.PollEvent()
		if ev == nil {
			return
		}
		switch e := ev.(type) {
		case *tcell.EventKey:
			t.key(e)
		case *tcell.EventMouse:
			t.mouse(e)
		}
	}
}

func (t *terminalTranslator) send(kind events.Kind, code int, x, y, delta int) {
	t.cb(events.RawEvent{
		Platform: events.PlatformTerminal,
		Type:     int(kind),
		Code:     code,
		X:        float64(x),
		Y:        float64(y),
		Delta:    delta,
		Time:     t.opts.Clock(),
	})
}

func (t *terminalTranslator) press(code int32, shift, ctrl bool) {
	if ctrl {
		t.send(events.KindKeyDown, int(events.KeyLeftCtrl), 0, 0, 0)
	}
	if shift {
		t.send(events.KindKeyDown, int(events.KeyLeftShift), 0, 0, 0)
	}
	t.send(events.KindKeyDown, int(code), 0, 0, 0)
	t.send(events.KindKeyUp, int(code), 0, 0, 0)
	if shift {
		t.send(events.KindKeyUp, int(events.KeyLeftShift), 0, 0, 0)
	}
	if ctrl {
		t.send(events.KindKeyUp, int(events.KeyLeftCtrl), 0, 0, 0)
	}
}

func (t *terminalTranslator) key(e *tcell.EventKey) {
	k := e.Key()
	if k == tcell.KeyCtrlC && t.opts.OnInterrupt != nil {
		t.opts.OnInterrupt()
		return
	}
	if k == tcell.KeyRune {
		key, shift, ok := events.KeyByRune(e.Rune())
		if !ok {
			t.opts.Logger.Debug("terminal rune without key mapping", "rune", string(e.Rune()))
			return
		}
		t.press(key.Code, shift, e.Modifiers()&tcell.ModCtrl != 0)
		return
	}
	if name, ok := terminalKeys[k]; ok {
		key, _ := events.KeyByName(name)
		t.press(key.Code, e.Modifiers()&tcell.ModShift != 0, e.Modifiers()&tcell.ModCtrl != 0)
		return
	}
	if k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ {
		letter := rune('a' + int(k-tcell.KeyCtrlA))
		key, _, ok := events.KeyByRune(letter)
		if ok {
			t.press(key.Code, false, true)
		}
	}
}

var terminalKeys = map[tcell.Key]string{
	tcell.KeyEnter:      "enter",
	tcell.KeyTab:        "tab",
	tcell.KeyBackspace2: "backspace",
	tcell.KeyEscape:     "esc",
	tcell.KeyUp:         "up",
	tcell.KeyDown:       "down",
	tcell.KeyLeft:       "left",
	tcell.KeyRight:      "right",
	tcell.KeyHome:       "home",
	tcell.KeyEnd:        "end",
	tcell.KeyPgUp:       "pageup",
	tcell.KeyPgDn:       "pagedown",
	tcell.KeyInsert:     "insert",
	tcell.KeyDelete:     "delete",
	tcell.KeyF1:         "f1",
	tcell.KeyF2:         "f2",
	tcell.KeyF3:         "f3",
	tcell.KeyF4:         "f4",
	tcell.KeyF5:         "f5",
	tcell.KeyF6:         "f6",
	tcell.KeyF7:         "f7",
	tcell.KeyF8:         "f8",
	tcell.KeyF9:         "f9",
	tcell.KeyF10:        "f10",
	tcell.KeyF11:        "f11",
	tcell.KeyF12:        "f12",
}

var terminalButtons = []struct {
	mask tcell.ButtonMask
	code int32
}{
	{tcell.ButtonPrimary, events.ButtonLeft},
	{tcell.ButtonSecondary, events.ButtonRight},
	{tcell.ButtonMiddle, events.ButtonMiddle},
}

func (t *terminalTranslator) mouse(e *tcell.EventMouse) {
	x, y := e.Position()
	buttons := e.Buttons()
	changed := false
	for _, b := range terminalButtons {
		was := t.buttons&b.mask != 0
		is := buttons&b.mask != 0
		switch {
		case is && !was:
			t.send(events.KindMouseButtonDown, int(b.code), x, y, 0)
			changed = true
		case was && !is:
			t.send(events.KindMouseButtonUp, int(b.code), x, y, 0)
			changed = true
		}
	}
	if buttons&tcell.WheelUp != 0 {
		t.send(events.KindMouseWheel, 0, x, y, 1)
		changed = true
	}
	if buttons&tcell.WheelDown != 0 {
		t.send(events.KindMouseWheel, 0, x, y, -1)
		changed = true
	}
	if !changed && (x != t.x || y != t.y) {
		t.send(events.KindMouseMove, 0, x, y, 0)
	}
	t.buttons = buttons &^ (tcell.WheelUp | tcell.WheelDown | tcell.WheelLeft | tcell.WheelRight)
	t.x, t.y = x, y
}
