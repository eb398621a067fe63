// Package hotkey parses key combinations such as "ctrl+shift+f8" and matches
// them against recorded key events. It links no platform hotkey backend, so
// configuration can validate bindings on headless hosts; registration lives
// in the native subpackage.
package hotkey

import (
	"fmt"
	"slices"
	"strings"
)

// Modifier is a platform-neutral modifier name.
type Modifier string

const (
	ModCtrl  Modifier = "ctrl"
	ModShift Modifier = "shift"
	ModAlt   Modifier = "alt"
	ModSuper Modifier = "super"
)

var modifierOrder = []Modifier{ModCtrl, ModShift, ModAlt, ModSuper}

var modifierAliases = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"shift":   ModShift,
	"alt":     ModAlt,
	"option":  ModAlt,
	"opt":     ModAlt,
	"super":   ModSuper,
	"cmd":     ModSuper,
	"command": ModSuper,
	"win":     ModSuper,
	"meta":    ModSuper,
}

var keyAliases = map[string]string{
	"enter": "return",
	"esc":   "escape",
	"del":   "delete",
}

// Binding is a parsed hotkey. Build it with Parse.
type Binding struct {
	Mods []Modifier
	Key  string
}

// Parse reads a "+"-separated combination: any modifiers followed by exactly
// one key. Names are case-insensitive.
func Parse(spec string) (Binding, error) {
	trimmed := strings.TrimSpace(spec)
	if trimmed == "" {
		return Binding{}, fmt.Errorf("empty hotkey")
	}
	var b Binding
	seen := map[Modifier]bool{}
	parts := strings.Split(trimmed, "+")
	for i, part := range parts {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			return Binding{}, fmt.Errorf("hotkey %q has an empty component", spec)
		}
		if mod, ok := modifierAliases[name]; ok && i < len(parts)-1 {
			if seen[mod] {
				return Binding{}, fmt.Errorf("hotkey %q repeats modifier %s", spec, mod)
			}
			seen[mod] = true
			continue
		}
		if i != len(parts)-1 {
			return Binding{}, fmt.Errorf("hotkey %q: %q is not a modifier", spec, part)
		}
		if alias, ok := keyAliases[name]; ok {
			name = alias
		}
		if !slices.Contains(keyNames, name) {
			return Binding{}, fmt.Errorf("hotkey %q: unsupported key %q", spec, part)
		}
		b.Key = name
	}
	for _, mod := range modifierOrder {
		if seen[mod] {
			b.Mods = append(b.Mods, mod)
		}
	}
	return b, nil
}

// String renders the canonical form, modifiers in a fixed order.
func (b Binding) String() string {
	parts := make([]string, 0, len(b.Mods)+1)
	for _, mod := range b.Mods {
		parts = append(parts, string(mod))
	}
	return strings.Join(append(parts, b.Key), "+")
}

// keyNames lists the keys every supported platform can register.
var keyNames = func() []string {
	names := []string{"space", "return", "escape", "delete", "tab", "left", "right", "up", "down"}
	for c := 'a'; c <= 'z'; c++ {
		names = append(names, string(c))
	}
	for c := '0'; c <= '9'; c++ {
		names = append(names, string(c))
	}
	for i := 1; i <= 12; i++ {
		names = append(names, fmt.Sprintf("f%d", i))
	}
	return names
}()
