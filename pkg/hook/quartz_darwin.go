//go:build darwin

package hook

/*
#cgo darwin CFLAGS: -x objective-c -fmodules -fobjc-arc
#cgo darwin LDFLAGS: -framework CoreGraphics -framework ApplicationServices
#include <ApplicationServices/ApplicationServices.h>
#include <CoreFoundation/CoreFoundation.h>
#include <stdint.h>

static Boolean axCheckTrusted(void) {
        const void *keys[] = { kAXTrustedCheckOptionPrompt };
        const void *values[] = { kCFBooleanTrue };
        CFDictionaryRef options = CFDictionaryCreate(kCFAllocatorDefault, keys, values, 1,
                                                     &kCFTypeDictionaryKeyCallBacks,
                                                     &kCFTypeDictionaryValueCallBacks);
        Boolean trusted = AXIsProcessTrustedWithOptions(options);
        CFRelease(options);
        return trusted;
}

extern CGEventRef goHandleHookEvent(CGEventTapProxy proxy, CGEventType type, CGEventRef event, void *userInfo);

static CFMachPortRef createEventTap(uintptr_t handle, CGEventMask mask) {
        return CGEventTapCreate(kCGSessionEventTap,
                                kCGHeadInsertEventTap,
                                kCGEventTapOptionListenOnly,
                                mask,
                                goHandleHookEvent,
                                (void *)handle);
}

static CFRunLoopSourceRef tapSource(CFMachPortRef tap) {
        return CFMachPortCreateRunLoopSource(kCFAllocatorDefault, tap, 0);
}

static void enableTap(CFMachPortRef tap) {
        CGEventTapEnable(tap, true);
}

static CGEventMask cgEventMaskBit(CGEventType type) {
        return ((CGEventMask)1) << type;
}

static CFRunLoopRef currentRunLoop(void) {
        return CFRunLoopGetCurrent();
}

static void addSourceToRunLoop(CFRunLoopRef loop, CFRunLoopSourceRef source) {
        CFRunLoopAddSource(loop, source, kCFRunLoopCommonModes);
}

static void runCurrentRunLoop(void) {
        CFRunLoopRun();
}

static void stopRunLoop(CFRunLoopRef loop) {
        CFRunLoopStop(loop);
}

static double cgEventGetX(CGEventRef event) {
        return CGEventGetLocation(event).x;
}

static double cgEventGetY(CGEventRef event) {
        return CGEventGetLocation(event).y;
}

static int64_t cgEventGetKeycode(CGEventRef event) {
        return CGEventGetIntegerValueField(event, kCGKeyboardEventKeycode);
}

static int64_t cgEventGetAutorepeat(CGEventRef event) {
        return CGEventGetIntegerValueField(event, kCGKeyboardEventAutorepeat);
}

static int64_t cgEventGetButton(CGEventRef event) {
        return CGEventGetIntegerValueField(event, kCGMouseEventButtonNumber);
}

static int64_t cgEventGetScroll(CGEventRef event) {
        return CGEventGetIntegerValueField(event, kCGScrollWheelEventDeltaAxis1);
}

static int modifierDown(CGEventRef event, int64_t keycode) {
        CGEventFlags flags = CGEventGetFlags(event);
        switch (keycode) {
        case 56: case 60: return (flags & kCGEventFlagMaskShift) != 0;
        case 59: case 62: return (flags & kCGEventFlagMaskControl) != 0;
        case 58: case 61: return (flags & kCGEventFlagMaskAlternate) != 0;
        case 55: case 54: return (flags & kCGEventFlagMaskCommand) != 0;
        case 57: return (flags & kCGEventFlagMaskAlphaShift) != 0;
        }
        return 0;
}
*/
import "C"

import (
	"context"
	"runtime"
	"runtime/cgo"
	"sync"
	"unsafe"

	"github.com/offlinefirst/macrohook/pkg/events"
)

type quartzHook struct {
	opts Options

	mu      sync.Mutex
	running bool
	stream  *quartzStream
}

type quartzStream struct {
	cb       Callback
	opts     Options
	tap      C.CFMachPortRef
	stopOnce sync.Once
	loop     C.CFRunLoopRef
	stopped  chan struct{}
}

func newQuartz(opts Options) Adapter {
	return &quartzHook{opts: opts}
}

func (h *quartzHook) Name() string { return BackendQuartz }

func (h *quartzHook) Start(ctx context.Context, cb Callback) error {
	if ctx == nil {
		ctx = context.Background()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return ErrHookActive
	}
	if C.axCheckTrusted() == C.Boolean(0) {
		return newInstallError(BackendQuartz, "accessibility trust not granted",
			"enable this binary under System Settings > Privacy & Security > Accessibility and Input Monitoring",
			ErrAccessibilityPermission)
	}
	if err := claim(BackendQuartz); err != nil {
		return err
	}

	stream := &quartzStream{
		cb:      traced(h.opts, BackendQuartz, cb),
		opts:    h.opts,
		stopped: make(chan struct{}),
	}
	installed := make(chan error, 1)
	go stream.run(ctx, installed)
	if err := <-installed; err != nil {
		<-stream.stopped
		release(BackendQuartz)
		return err
	}
	h.stream = stream
	h.running = true
	h.opts.Logger.Debug("quartz event tap installed")
	return nil
}

// run owns the locked OS thread hosting the CFRunLoop for the tap.
func (s *quartzStream) run(ctx context.Context, installed chan<- error) {
	defer close(s.stopped)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	handle := cgo.NewHandle(s)
	defer handle.Delete()

	mask := C.cgEventMaskBit(C.kCGEventKeyDown) |
		C.cgEventMaskBit(C.kCGEventKeyUp) |
		C.cgEventMaskBit(C.kCGEventFlagsChanged) |
		C.cgEventMaskBit(C.kCGEventLeftMouseDown) |
		C.cgEventMaskBit(C.kCGEventLeftMouseUp) |
		C.cgEventMaskBit(C.kCGEventRightMouseDown) |
		C.cgEventMaskBit(C.kCGEventRightMouseUp) |
		C.cgEventMaskBit(C.kCGEventOtherMouseDown) |
		C.cgEventMaskBit(C.kCGEventOtherMouseUp) |
		C.cgEventMaskBit(C.kCGEventMouseMoved) |
		C.cgEventMaskBit(C.kCGEventLeftMouseDragged) |
		C.cgEventMaskBit(C.kCGEventRightMouseDragged) |
		C.cgEventMaskBit(C.kCGEventOtherMouseDragged) |
		C.cgEventMaskBit(C.kCGEventScrollWheel)

	tap := C.createEventTap(C.uintptr_t(handle), mask)
	if tap == 0 {
		installed <- newInstallError(BackendQuartz, "CGEventTapCreate returned NULL",
			"grant Input Monitoring to this binary and restart it", nil)
		return
	}
	defer C.CFRelease(C.CFTypeRef(tap))
	source := C.tapSource(tap)
	defer C.CFRelease(C.CFTypeRef(source))

	s.tap = tap
	s.loop = C.currentRunLoop()
	C.addSourceToRunLoop(s.loop, source)
	C.enableTap(tap)

	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		select {
		case <-ctx.Done():
			s.stopLoop()
		case <-s.stopped:
		}
	}()

	installed <- nil
	C.runCurrentRunLoop()
	s.stopLoop()
}

func (s *quartzStream) stopLoop() {
	s.stopOnce.Do(func() {
		if s.loop != 0 {
			C.stopRunLoop(s.loop)
		}
	})
}

func (h *quartzHook) Stop() error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return ErrNotInstalled
	}
	stream := h.stream
	h.running = false
	h.stream = nil
	h.mu.Unlock()

	stream.stopLoop()
	<-stream.stopped
	release(BackendQuartz)
	return nil
}

//export goHandleHookEvent
func goHandleHookEvent(_ C.CGEventTapProxy, eventType C.CGEventType, event C.CGEventRef, userInfo unsafe.Pointer) C.CGEventRef {
	stream, ok := cgo.Handle(uintptr(userInfo)).Value().(*quartzStream)
	if !ok {
		return event
	}

	switch eventType {
	case C.kCGEventTapDisabledByTimeout, C.kCGEventTapDisabledByUserInput:
		stream.opts.Logger.Warn("quartz event tap disabled by the system, re-enabling")
		C.enableTap(stream.tap)
		return event
	}

	raw := events.RawEvent{
		Platform: events.PlatformQuartz,
		Type:     int(eventType),
		Time:     stream.opts.Clock(),
	}
	switch eventType {
	case C.kCGEventKeyDown, C.kCGEventKeyUp:
		raw.Code = int(C.cgEventGetKeycode(event))
		if C.cgEventGetAutorepeat(event) != 0 {
			raw.Value = events.KeyValueRepeat
		}
	case C.kCGEventFlagsChanged:
		keycode := C.cgEventGetKeycode(event)
		raw.Code = int(keycode)
		raw.Value = int(C.modifierDown(event, keycode))
	default:
		raw.X = float64(C.cgEventGetX(event))
		raw.Y = float64(C.cgEventGetY(event))
		switch eventType {
		case C.kCGEventOtherMouseDown, C.kCGEventOtherMouseUp, C.kCGEventOtherMouseDragged:
			raw.Code = int(C.cgEventGetButton(event))
		case C.kCGEventScrollWheel:
			raw.Delta = int(C.cgEventGetScroll(event))
		}
	}
	stream.cb(raw)
	return event
}
