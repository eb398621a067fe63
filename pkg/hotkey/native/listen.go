//go:build (darwin && cgo) || windows

package native

import (
	"context"
	"fmt"

	"golang.design/x/hotkey"

	mhotkey "github.com/offlinefirst/macrohook/pkg/hotkey"
)

// Supported reports whether Listen can register hotkeys on this platform.
const Supported = true

var keyMap = map[string]hotkey.Key{
	"space": hotkey.KeySpace, "return": hotkey.KeyReturn, "escape": hotkey.KeyEscape,
	"delete": hotkey.KeyDelete, "tab": hotkey.KeyTab,
	"left": hotkey.KeyLeft, "right": hotkey.KeyRight, "up": hotkey.KeyUp, "down": hotkey.KeyDown,
	"a": hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD, "e": hotkey.KeyE,
	"f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH, "i": hotkey.KeyI, "j": hotkey.KeyJ,
	"k": hotkey.KeyK, "l": hotkey.KeyL, "m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO,
	"p": hotkey.KeyP, "q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX, "y": hotkey.KeyY,
	"z": hotkey.KeyZ,
	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3, "4": hotkey.Key4,
	"5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7, "8": hotkey.Key8, "9": hotkey.Key9,
	"f1": hotkey.KeyF1, "f2": hotkey.KeyF2, "f3": hotkey.KeyF3, "f4": hotkey.KeyF4,
	"f5": hotkey.KeyF5, "f6": hotkey.KeyF6, "f7": hotkey.KeyF7, "f8": hotkey.KeyF8,
	"f9": hotkey.KeyF9, "f10": hotkey.KeyF10, "f11": hotkey.KeyF11, "f12": hotkey.KeyF12,
}

// Listen registers b and calls fn on every key-down until ctx ends. On macOS
// the process must run its main function through mainthread.Init.
func Listen(ctx context.Context, b mhotkey.Binding, fn func()) error {
	key, ok := keyMap[b.Key]
	if !ok {
		return fmt.Errorf("hotkey %s: unsupported key", b)
	}
	mods := make([]hotkey.Modifier, 0, len(b.Mods))
	for _, mod := range b.Mods {
		mapped, ok := modifierMap[mod]
		if !ok {
			return fmt.Errorf("hotkey %s: modifier %s unavailable on this platform", b, mod)
		}
		mods = append(mods, mapped)
	}

	hk := hotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("register hotkey %s: %w", b, err)
	}
	defer hk.Unregister()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hk.Keydown():
			fn()
		}
	}
}
