//go:build darwin

package synth

/*
#cgo darwin LDFLAGS: -framework CoreGraphics -framework ApplicationServices
#include <ApplicationServices/ApplicationServices.h>
#include <stdint.h>

static Boolean axTrusted(void) {
        return AXIsProcessTrusted();
}

static int postKey(int keycode, int down) {
        CGEventRef ev = CGEventCreateKeyboardEvent(NULL, (CGKeyCode)keycode, down ? true : false);
        if (ev == NULL) {
                return -1;
        }
        CGEventPost(kCGHIDEventTap, ev);
        CFRelease(ev);
        return 0;
}

static int postMouse(CGEventType type, double x, double y, int button) {
        CGMouseButton cgButton = kCGMouseButtonLeft;
        if (button == 1) {
                cgButton = kCGMouseButtonRight;
        } else if (button >= 2) {
                cgButton = kCGMouseButtonCenter;
        }
        CGEventRef ev = CGEventCreateMouseEvent(NULL, type, CGPointMake(x, y), cgButton);
        if (ev == NULL) {
                return -1;
        }
        if (button >= 2) {
                CGEventSetIntegerValueField(ev, kCGMouseEventButtonNumber, button);
        }
        CGEventPost(kCGHIDEventTap, ev);
        CFRelease(ev);
        return 0;
}

static int postScroll(int32_t delta) {
        CGEventRef ev = CGEventCreateScrollWheelEvent(NULL, kCGScrollEventUnitLine, 1, delta);
        if (ev == NULL) {
                return -1;
        }
        CGEventPost(kCGHIDEventTap, ev);
        CFRelease(ev);
        return 0;
}
*/
import "C"

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/offlinefirst/macrohook/pkg/events"
)

type quartz struct {
	mu   sync.Mutex
	held map[int32]bool
}

func newQuartz(opts Options) (Synthesizer, error) {
	if C.axTrusted() == C.Boolean(0) {
		return nil, fmt.Errorf("posting events requires Accessibility trust: %w", os.ErrPermission)
	}
	return &quartz{held: make(map[int32]bool)}, nil
}

func (q *quartz) Name() string { return BackendQuartz }

// quartzButtonNumber converts to kCGMouseEventButtonNumber numbering.
func quartzButtonNumber(code int32) (int, error) {
	switch code {
	case events.ButtonLeft:
		return 0, nil
	case events.ButtonRight:
		return 1, nil
	case events.ButtonMiddle:
		return 2, nil
	case events.ButtonBack:
		return 3, nil
	case events.ButtonForward:
		return 4, nil
	default:
		return 0, fmt.Errorf("unsupported mouse button %d", code)
	}
}

func (q *quartz) moveType() C.CGEventType {
	switch {
	case q.held[events.ButtonLeft]:
		return C.kCGEventLeftMouseDragged
	case q.held[events.ButtonRight]:
		return C.kCGEventRightMouseDragged
	case len(q.held) > 0:
		return C.kCGEventOtherMouseDragged
	default:
		return C.kCGEventMouseMoved
	}
}

func (q *quartz) Emit(ctx context.Context, ev events.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	var rc C.int
	switch ev.Kind {
	case events.KindKeyDown, events.KindKeyUp:
		key, ok := events.KeyByCode(ev.Code)
		if !ok || key.Mac < 0 {
			return fmt.Errorf("no macOS keycode for %s", events.KeyName(ev.Code))
		}
		down := 0
		if ev.Kind == events.KindKeyDown {
			down = 1
		}
		rc = C.postKey(C.int(key.Mac), C.int(down))
	case events.KindMouseMove:
		rc = C.postMouse(q.moveType(), C.double(ev.X), C.double(ev.Y), 0)
	case events.KindMouseButtonDown, events.KindMouseButtonUp:
		number, err := quartzButtonNumber(ev.Code)
		if err != nil {
			return err
		}
		var typ C.CGEventType
		down := ev.Kind == events.KindMouseButtonDown
		switch {
		case number == 0 && down:
			typ = C.kCGEventLeftMouseDown
		case number == 0:
			typ = C.kCGEventLeftMouseUp
		case number == 1 && down:
			typ = C.kCGEventRightMouseDown
		case number == 1:
			typ = C.kCGEventRightMouseUp
		case down:
			typ = C.kCGEventOtherMouseDown
		default:
			typ = C.kCGEventOtherMouseUp
		}
		rc = C.postMouse(typ, C.double(ev.X), C.double(ev.Y), C.int(number))
		if down {
			q.held[ev.Code] = true
		} else {
			delete(q.held, ev.Code)
		}
	case events.KindMouseWheel:
		rc = C.postScroll(C.int32_t(ev.Delta))
	default:
		return fmt.Errorf("unsupported event kind %s", ev.Kind)
	}
	if rc != 0 {
		return errors.New("CoreGraphics refused to create the event")
	}
	return nil
}

func (q *quartz) Close() error { return nil }
