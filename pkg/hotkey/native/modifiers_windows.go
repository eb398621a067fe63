//go:build windows

package native

import (
	"golang.design/x/hotkey"

	mhotkey "github.com/offlinefirst/macrohook/pkg/hotkey"
)

var modifierMap = map[mhotkey.Modifier]hotkey.Modifier{
	mhotkey.ModCtrl:  hotkey.ModCtrl,
	mhotkey.ModShift: hotkey.ModShift,
	mhotkey.ModAlt:   hotkey.ModAlt,
	mhotkey.ModSuper: hotkey.ModWin,
}
