package hotkey

import (
	"fmt"

	"github.com/offlinefirst/macrohook/pkg/events"
)

// modifierCodes lists the canonical key codes that satisfy each modifier.
var modifierCodes = map[Modifier][]int32{
	ModCtrl:  {events.KeyLeftCtrl, events.KeyRightCtrl},
	ModShift: {events.KeyLeftShift, events.KeyRightShift},
	ModAlt:   {events.KeyLeftAlt, events.KeyRightAlt},
	ModSuper: {events.KeyLeftMeta, events.KeyRightMeta},
}

// Matcher recognises a binding in a stream of recorded key events. It serves
// the stop hotkey on platforms without a native hotkey backend, where the
// capture hook already sees every key. A Matcher is not safe for concurrent
// use; feed it from the goroutine that delivers events.
type Matcher struct {
	binding Binding
	key     int32
	held    map[int32]bool
}

// NewMatcher resolves b to canonical key codes.
func NewMatcher(b Binding) (*Matcher, error) {
	key, ok := events.KeyByName(b.Key)
	if !ok {
		return nil, fmt.Errorf("hotkey %s: no key code for %q", b, b.Key)
	}
	return &Matcher{binding: b, key: key.Code, held: map[int32]bool{}}, nil
}

// Binding returns the binding being matched.
func (m *Matcher) Binding() Binding {
	return m.binding
}

// Key returns the canonical code of the binding's non-modifier key.
func (m *Matcher) Key() int32 {
	return m.key
}

// Match updates the held-key state with ev and reports whether ev is the
// key-down that completes the binding. Auto-repeat downs of a held key do
// not match again.
func (m *Matcher) Match(ev events.Event) bool {
	switch ev.Kind {
	case events.KindKeyUp:
		delete(m.held, ev.Code)
		return false
	case events.KindKeyDown:
	default:
		return false
	}
	repeat := m.held[ev.Code]
	m.held[ev.Code] = true
	if ev.Code != m.key || repeat {
		return false
	}
	for _, mod := range m.binding.Mods {
		if !m.holds(mod) {
			return false
		}
	}
	return true
}

func (m *Matcher) holds(mod Modifier) bool {
	for _, code := range modifierCodes[mod] {
		if m.held[code] {
			return true
		}
	}
	return false
}
