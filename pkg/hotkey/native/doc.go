// Package native registers parsed bindings as OS-level global hotkeys on
// macOS and Windows. Linux has no native backend: the X11 backend of
// golang.design/x/hotkey aborts at init without a display, so recordings
// match the stop key from the captured event stream instead
// (hotkey.Matcher).
package native
