package events

import (
	"fmt"
	"strings"
	"unicode"
)

// Key describes one entry of the canonical key table. Code follows the Linux
// input-event-codes numbering; Mac is the Carbon virtual keycode; Rune is the
// unshifted character produced by the key, if any.
type Key struct {
	Name string
	Code int32
	Mac  int
	Rune rune
}

// Canonical codes referenced outside the table.
const (
	KeyEsc        int32 = 1
	KeyBackspace  int32 = 14
	KeyTab        int32 = 15
	KeyEnter      int32 = 28
	KeyLeftCtrl   int32 = 29
	KeyLeftShift  int32 = 42
	KeyRightShift int32 = 54
	KeyLeftAlt    int32 = 56
	KeySpace      int32 = 57
	KeyRightCtrl  int32 = 97
	KeyRightAlt   int32 = 100
	KeyLeftMeta   int32 = 125
	KeyRightMeta  int32 = 126
)

const noMac = -1

var keyTable = []Key{
	{"esc", KeyEsc, 53, 0},
	{"1", 2, 18, '1'}, {"2", 3, 19, '2'}, {"3", 4, 20, '3'}, {"4", 5, 21, '4'}, {"5", 6, 23, '5'},
	{"6", 7, 22, '6'}, {"7", 8, 26, '7'}, {"8", 9, 28, '8'}, {"9", 10, 25, '9'}, {"0", 11, 29, '0'},
	{"minus", 12, 27, '-'},
	{"equal", 13, 24, '='},
	{"backspace", KeyBackspace, 51, 0},
	{"tab", KeyTab, 48, '\t'},
	{"q", 16, 12, 'q'}, {"w", 17, 13, 'w'}, {"e", 18, 14, 'e'}, {"r", 19, 15, 'r'}, {"t", 20, 17, 't'},
	{"y", 21, 16, 'y'}, {"u", 22, 32, 'u'}, {"i", 23, 34, 'i'}, {"o", 24, 31, 'o'}, {"p", 25, 35, 'p'},
	{"leftbrace", 26, 33, '['},
	{"rightbrace", 27, 30, ']'},
	{"enter", KeyEnter, 36, '\r'},
	{"leftctrl", KeyLeftCtrl, 59, 0},
	{"a", 30, 0, 'a'}, {"s", 31, 1, 's'}, {"d", 32, 2, 'd'}, {"f", 33, 3, 'f'}, {"g", 34, 5, 'g'},
	{"h", 35, 4, 'h'}, {"j", 36, 38, 'j'}, {"k", 37, 40, 'k'}, {"l", 38, 37, 'l'},
	{"semicolon", 39, 41, ';'},
	{"apostrophe", 40, 39, '\''},
	{"grave", 41, 50, '`'},
	{"leftshift", KeyLeftShift, 56, 0},
	{"backslash", 43, 42, '\\'},
	{"z", 44, 6, 'z'}, {"x", 45, 7, 'x'}, {"c", 46, 8, 'c'}, {"v", 47, 9, 'v'}, {"b", 48, 11, 'b'},
	{"n", 49, 45, 'n'}, {"m", 50, 46, 'm'},
	{"comma", 51, 43, ','},
	{"dot", 52, 47, '.'},
	{"slash", 53, 44, '/'},
	{"rightshift", KeyRightShift, 60, 0},
	{"leftalt", KeyLeftAlt, 58, 0},
	{"space", KeySpace, 49, ' '},
	{"capslock", 58, 57, 0},
	{"f1", 59, 122, 0}, {"f2", 60, 120, 0}, {"f3", 61, 99, 0}, {"f4", 62, 118, 0},
	{"f5", 63, 96, 0}, {"f6", 64, 97, 0}, {"f7", 65, 98, 0}, {"f8", 66, 100, 0},
	{"f9", 67, 101, 0}, {"f10", 68, 109, 0}, {"f11", 87, 103, 0}, {"f12", 88, 111, 0},
	{"rightctrl", KeyRightCtrl, 62, 0},
	{"rightalt", KeyRightAlt, 61, 0},
	{"home", 102, 115, 0},
	{"up", 103, 126, 0},
	{"pageup", 104, 116, 0},
	{"left", 105, 123, 0},
	{"right", 106, 124, 0},
	{"end", 107, 119, 0},
	{"down", 108, 125, 0},
	{"pagedown", 109, 121, 0},
	{"insert", 110, 114, 0},
	{"delete", 111, 117, 0},
	{"leftmeta", KeyLeftMeta, 55, 0},
	{"rightmeta", KeyRightMeta, 54, 0},
	{"sysrq", 99, noMac, 0},
	{"pause", 119, noMac, 0},
}

var (
	keysByCode = make(map[int32]Key, len(keyTable))
	keysByName = make(map[string]Key, len(keyTable))
	keysByMac  = make(map[int]Key, len(keyTable))
	keysByRune = make(map[rune]Key, len(keyTable))
)

var keyAliases = map[string]string{
	"escape": "esc",
	"return": "enter",
	"ctrl":   "leftctrl",
	"shift":  "leftshift",
	"alt":    "leftalt",
	"option": "leftalt",
	"cmd":    "leftmeta",
	"meta":   "leftmeta",
	"super":  "leftmeta",
	"del":    "delete",
	"pgup":   "pageup",
	"pgdn":   "pagedown",
}

func init() {
	for _, key := range keyTable {
		keysByCode[key.Code] = key
		keysByName[key.Name] = key
		if key.Mac != noMac {
			keysByMac[key.Mac] = key
		}
		if key.Rune != 0 {
			keysByRune[key.Rune] = key
		}
	}
}

// KeyByCode looks up a canonical key code.
func KeyByCode(code int32) (Key, bool) {
	key, ok := keysByCode[code]
	return key, ok
}

// KeyByName resolves a key name or alias, case-insensitively.
func KeyByName(name string) (Key, bool) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := keyAliases[normalized]; ok {
		normalized = alias
	}
	key, ok := keysByName[normalized]
	return key, ok
}

// KeyByMac translates a macOS virtual keycode.
func KeyByMac(mac int) (Key, bool) {
	key, ok := keysByMac[mac]
	return key, ok
}

// KeyByRune returns the key producing r and whether shift is needed for it.
func KeyByRune(r rune) (Key, bool, bool) {
	if key, ok := keysByRune[r]; ok {
		return key, false, true
	}
	if unicode.IsUpper(r) {
		if key, ok := keysByRune[unicode.ToLower(r)]; ok {
			return key, true, true
		}
	}
	if base, ok := shiftedRunes[r]; ok {
		return keysByRune[base], true, true
	}
	return Key{}, false, false
}

var shiftedRunes = map[rune]rune{
	'!': '1', '@': '2', '#': '3', '$': '4', '%': '5', '^': '6', '&': '7', '*': '8', '(': '9', ')': '0',
	'_': '-', '+': '=', '{': '[', '}': ']', ':': ';', '"': '\'', '~': '`', '|': '\\', '<': ',', '>': '.', '?': '/',
}

// KeyName returns the table name for a code, or a numeric label.
func KeyName(code int32) string {
	if key, ok := keysByCode[code]; ok {
		return key.Name
	}
	return fmt.Sprintf("key%d", code)
}

// IsModifier reports whether the code is a ctrl, shift, alt or meta key.
func IsModifier(code int32) bool {
	switch code {
	case KeyLeftCtrl, KeyRightCtrl, KeyLeftShift, KeyRightShift, KeyLeftAlt, KeyRightAlt, KeyLeftMeta, KeyRightMeta:
		return true
	default:
		return false
	}
}
