//go:build linux

package synth

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/offlinefirst/macrohook/pkg/events"
)

// ioctl requests from linux/uinput.h.
const (
	uiDevCreate  = 0x5501
	uiDevDestroy = 0x5502
	uiSetEvBit   = 0x40045564
	uiSetKeyBit  = 0x40045565
	uiSetRelBit  = 0x40045566
	uiSetAbsBit  = 0x40045567
)

const (
	uinputNameSize = 80
	absCount       = 64
	// sizeof(struct uinput_user_dev)
	uinputUserDevSize = uinputNameSize + 8 + 4 + 4*absCount*4
	inputEventSize    = 24
	busVirtual        = 0x06
)

var uinputDevicePath = "/dev/uinput"

type uinput struct {
	mu      sync.Mutex
	fd      int
	closed  bool
	width   int
	height  int
	lastX   int32
	lastY   int32
	scratch []byte
}

var uinputButtons = map[int32]uint16{
	events.ButtonLeft:    events.BtnLeft,
	events.ButtonRight:   events.BtnRight,
	events.ButtonMiddle:  events.BtnMiddle,
	events.ButtonBack:    events.BtnSide,
	events.ButtonForward: events.BtnExtra,
}

func newUinput(opts Options) (Synthesizer, error) {
	width, height := opts.ScreenWidth, opts.ScreenHeight
	if width <= 0 || height <= 0 {
		return nil, errors.New("uinput requires playback.screen_width and playback.screen_height")
	}

	fd, err := unix.Open(uinputDevicePath, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		if errors.Is(err, unix.EACCES) || errors.Is(err, unix.EPERM) {
			return nil, fmt.Errorf("open %s: %w (add the user to the 'input' group or install a udev rule)", uinputDevicePath, os.ErrPermission)
		}
		return nil, fmt.Errorf("open %s: %w", uinputDevicePath, err)
	}

	u := &uinput{fd: fd, width: width, height: height, scratch: make([]byte, 0, inputEventSize*3)}
	if err := u.configure(); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	settle := opts.Settle
	if settle <= 0 {
		settle = 200 * time.Millisecond
	}
	time.Sleep(settle)
	opts.Logger.Debug("uinput device created", "width", width, "height", height)
	return u, nil
}

func (u *uinput) configure() error {
	for _, bit := range []int{events.EvSyn, events.EvKey, events.EvRel, events.EvAbs} {
		if err := unix.IoctlSetInt(u.fd, uiSetEvBit, bit); err != nil {
			return fmt.Errorf("UI_SET_EVBIT %d: %w", bit, err)
		}
	}
	for code := int32(1); code < 256; code++ {
		if _, ok := events.KeyByCode(code); !ok {
			continue
		}
		if err := unix.IoctlSetInt(u.fd, uiSetKeyBit, int(code)); err != nil {
			return fmt.Errorf("UI_SET_KEYBIT %d: %w", code, err)
		}
	}
	for _, btn := range uinputButtons {
		if err := unix.IoctlSetInt(u.fd, uiSetKeyBit, int(btn)); err != nil {
			return fmt.Errorf("UI_SET_KEYBIT %d: %w", btn, err)
		}
	}
	if err := unix.IoctlSetInt(u.fd, uiSetRelBit, events.RelWheel); err != nil {
		return fmt.Errorf("UI_SET_RELBIT: %w", err)
	}
	for _, axis := range []int{events.AbsX, events.AbsY} {
		if err := unix.IoctlSetInt(u.fd, uiSetAbsBit, axis); err != nil {
			return fmt.Errorf("UI_SET_ABSBIT %d: %w", axis, err)
		}
	}

	dev := make([]byte, uinputUserDevSize)
	copy(dev[:uinputNameSize-1], "macrohook virtual input")
	off := uinputNameSize
	binary.NativeEndian.PutUint16(dev[off:], busVirtual)
	binary.NativeEndian.PutUint16(dev[off+2:], 0x1d6b)
	binary.NativeEndian.PutUint16(dev[off+4:], 0x4d48)
	binary.NativeEndian.PutUint16(dev[off+6:], 1)
	absmax := uinputNameSize + 8 + 4
	binary.NativeEndian.PutUint32(dev[absmax+4*events.AbsX:], uint32(u.width-1))
	binary.NativeEndian.PutUint32(dev[absmax+4*events.AbsY:], uint32(u.height-1))
	if _, err := unix.Write(u.fd, dev); err != nil {
		return fmt.Errorf("write uinput_user_dev: %w", err)
	}
	if err := unix.IoctlSetInt(u.fd, uiDevCreate, 0); err != nil {
		return fmt.Errorf("UI_DEV_CREATE: %w", err)
	}
	return nil
}

func (u *uinput) Name() string { return BackendUinput }

func (u *uinput) Emit(ctx context.Context, ev events.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return errors.New("uinput device closed")
	}

	buf := u.scratch[:0]
	if ev.IsMouse() && (ev.X != u.lastX || ev.Y != u.lastY || ev.Kind == events.KindMouseMove) {
		buf = appendInputEvent(buf, events.EvAbs, events.AbsX, clampAxis(ev.X, u.width))
		buf = appendInputEvent(buf, events.EvAbs, events.AbsY, clampAxis(ev.Y, u.height))
		u.lastX, u.lastY = ev.X, ev.Y
	}
	switch ev.Kind {
	case events.KindKeyDown, events.KindKeyUp:
		value := int32(events.KeyValueUp)
		if ev.Kind == events.KindKeyDown {
			value = events.KeyValueDown
		}
		buf = appendInputEvent(buf, events.EvKey, uint16(ev.Code), value)
	case events.KindMouseButtonDown, events.KindMouseButtonUp:
		btn, ok := uinputButtons[ev.Code]
		if !ok {
			return fmt.Errorf("unsupported mouse button %d", ev.Code)
		}
		value := int32(events.KeyValueUp)
		if ev.Kind == events.KindMouseButtonDown {
			value = events.KeyValueDown
		}
		buf = appendInputEvent(buf, events.EvKey, btn, value)
	case events.KindMouseWheel:
		buf = appendInputEvent(buf, events.EvRel, events.RelWheel, ev.Delta)
	case events.KindMouseMove:
	default:
		return fmt.Errorf("unsupported event kind %s", ev.Kind)
	}
	buf = appendInputEvent(buf, events.EvSyn, events.SynReport, 0)

	if _, err := unix.Write(u.fd, buf); err != nil {
		return fmt.Errorf("write uinput event: %w", err)
	}
	return nil
}

func (u *uinput) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return nil
	}
	u.closed = true
	destroyErr := unix.IoctlSetInt(u.fd, uiDevDestroy, 0)
	closeErr := unix.Close(u.fd)
	if destroyErr != nil {
		return fmt.Errorf("UI_DEV_DESTROY: %w", destroyErr)
	}
	return closeErr
}

func clampAxis(v int32, size int) int32 {
	if v < 0 {
		return 0
	}
	if int(v) >= size {
		return int32(size - 1)
	}
	return v
}

// appendInputEvent encodes a struct input_event with a zero timestamp; the
// kernel stamps injected events itself.
func appendInputEvent(buf []byte, typ, code uint16, value int32) []byte {
	var record [inputEventSize]byte
	binary.NativeEndian.PutUint16(record[16:], typ)
	binary.NativeEndian.PutUint16(record[18:], code)
	binary.NativeEndian.PutUint32(record[20:], uint32(value))
	return append(buf, record[:]...)
}
