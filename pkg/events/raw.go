package events

import "time"

// Platform identifiers carried by RawEvent.
const (
	PlatformQuartz    = "quartz"
	PlatformEvdev     = "evdev"
	PlatformTerminal  = "terminal"
	PlatformSynthetic = "synthetic"
)

// RawEvent is a platform event as delivered by a hook backend. Type, Code and
// Value keep their platform meaning; the normalizer interprets them.
type RawEvent struct {
	Platform string
	Type     int
	Code     int
	Value    int
	X        float64
	Y        float64
	Delta    int
	Time     time.Time
}

// Quartz CGEventType values.
const (
	QuartzLeftMouseDown     = 1
	QuartzLeftMouseUp       = 2
	QuartzRightMouseDown    = 3
	QuartzRightMouseUp      = 4
	QuartzMouseMoved        = 5
	QuartzLeftMouseDragged  = 6
	QuartzRightMouseDragged = 7
	QuartzKeyDown           = 10
	QuartzKeyUp             = 11
	QuartzFlagsChanged      = 12
	QuartzScrollWheel       = 22
	QuartzOtherMouseDown    = 25
	QuartzOtherMouseUp      = 26
	QuartzOtherMouseDragged = 27
)

// Linux input event types and codes used by the evdev backend.
const (
	EvSyn = 0x00
	EvKey = 0x01
	EvRel = 0x02
	EvAbs = 0x03

	SynReport = 0x00

	RelX      = 0x00
	RelY      = 0x01
	RelHWheel = 0x06
	RelWheel  = 0x08

	AbsX = 0x00
	AbsY = 0x01

	BtnLeft   = 0x110
	BtnRight  = 0x111
	BtnMiddle = 0x112
	BtnSide   = 0x113
	BtnExtra  = 0x114
	BtnTouch  = 0x14a
)

// Evdev key values.
const (
	KeyValueUp     = 0
	KeyValueDown   = 1
	KeyValueRepeat = 2
)
