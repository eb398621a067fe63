package synth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/offlinefirst/macrohook/pkg/events"
)

// wheelPixels is how far one wheel notch scrolls the page.
const wheelPixels = 100

// Browser replays events into a Chromium page driven over CDP. Coordinates are
// page coordinates; keys go to whatever element has focus.
type Browser struct {
	mu      sync.Mutex
	browser *rod.Browser
	page    *rod.Page
	closed  bool
}

// NewBrowser launches Chromium and opens opts.BrowserURL (about:blank when empty).
func NewBrowser(opts Options) (*Browser, error) {
	url := opts.BrowserURL
	if url == "" {
		url = "about:blank"
	}

	path, _ := launcher.LookPath()
	l := launcher.New().Bin(path).Headless(opts.Headless)
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	page, err := browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("open %s: %w", url, err)
	}
	if opts.ScreenWidth > 0 && opts.ScreenHeight > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             opts.ScreenWidth,
			Height:            opts.ScreenHeight,
			DeviceScaleFactor: 1,
		}); err != nil {
			_ = browser.Close()
			return nil, fmt.Errorf("set viewport: %w", err)
		}
	}
	if err := page.WaitLoad(); err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("wait for %s: %w", url, err)
	}
	opts.Logger.Debug("browser synthesizer ready", "url", url, "headless", opts.Headless)
	return &Browser{browser: browser, page: page}, nil
}

func (b *Browser) Name() string { return BackendBrowser }

// Page exposes the driven page, e.g. to evaluate the result of a rehearsal.
func (b *Browser) Page() *rod.Page {
	return b.page
}

func (b *Browser) Emit(ctx context.Context, ev events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.New("browser closed")
	}
	page := b.page.Context(ctx)

	switch ev.Kind {
	case events.KindKeyDown, events.KindKeyUp:
		key, ok := browserKey(ev.Code)
		if !ok {
			return fmt.Errorf("no browser key for %s", events.KeyName(ev.Code))
		}
		if ev.Kind == events.KindKeyDown {
			return page.Keyboard.Press(key)
		}
		return page.Keyboard.Release(key)
	case events.KindMouseMove:
		return page.Mouse.MoveTo(proto.Point{X: float64(ev.X), Y: float64(ev.Y)})
	case events.KindMouseButtonDown, events.KindMouseButtonUp:
		button, ok := browserButton(ev.Code)
		if !ok {
			return fmt.Errorf("unsupported mouse button %d", ev.Code)
		}
		if err := page.Mouse.MoveTo(proto.Point{X: float64(ev.X), Y: float64(ev.Y)}); err != nil {
			return err
		}
		if ev.Kind == events.KindMouseButtonDown {
			return page.Mouse.Down(button, 1)
		}
		return page.Mouse.Up(button, 1)
	case events.KindMouseWheel:
		return page.Mouse.Scroll(0, float64(-ev.Delta*wheelPixels), 1)
	default:
		return fmt.Errorf("unsupported event kind %s", ev.Kind)
	}
}

func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.browser.Close()
}

func browserButton(code int32) (proto.InputMouseButton, bool) {
	switch code {
	case events.ButtonLeft:
		return proto.InputMouseButtonLeft, true
	case events.ButtonRight:
		return proto.InputMouseButtonRight, true
	case events.ButtonMiddle:
		return proto.InputMouseButtonMiddle, true
	case events.ButtonBack:
		return proto.InputMouseButtonBack, true
	case events.ButtonForward:
		return proto.InputMouseButtonForward, true
	default:
		return "", false
	}
}

var browserKeys = map[string]input.Key{
	"esc":        input.Escape,
	"backspace":  input.Backspace,
	"tab":        input.Tab,
	"enter":      input.Enter,
	"space":      input.Space,
	"capslock":   input.CapsLock,
	"leftctrl":   input.ControlLeft,
	"rightctrl":  input.ControlRight,
	"leftshift":  input.ShiftLeft,
	"rightshift": input.ShiftRight,
	"leftalt":    input.AltLeft,
	"rightalt":   input.AltRight,
	"leftmeta":   input.MetaLeft,
	"rightmeta":  input.MetaRight,
	"home":       input.Home,
	"end":        input.End,
	"pageup":     input.PageUp,
	"pagedown":   input.PageDown,
	"insert":     input.Insert,
	"delete":     input.Delete,
	"up":         input.ArrowUp,
	"down":       input.ArrowDown,
	"left":       input.ArrowLeft,
	"right":      input.ArrowRight,
	"f1":         input.F1,
	"f2":         input.F2,
	"f3":         input.F3,
	"f4":         input.F4,
	"f5":         input.F5,
	"f6":         input.F6,
	"f7":         input.F7,
	"f8":         input.F8,
	"f9":         input.F9,
	"f10":        input.F10,
	"f11":        input.F11,
	"f12":        input.F12,
}

// browserKey maps a canonical key code onto a CDP key. Printable keys map to
// their unshifted character.
func browserKey(code int32) (input.Key, bool) {
	key, ok := events.KeyByCode(code)
	if !ok {
		return 0, false
	}
	if mapped, ok := browserKeys[key.Name]; ok {
		return mapped, true
	}
	if key.Rune > ' ' && key.Rune < 0x7f {
		return input.Key(key.Rune), true
	}
	return 0, false
}
