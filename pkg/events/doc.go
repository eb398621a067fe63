// Package events defines the platform-independent input event model shared by
// capture, persistence and playback, together with the normalizer that turns
// raw hook events from the quartz, evdev and terminal backends into it.
package events
