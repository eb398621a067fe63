//go:build linux

package hook

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/offlinefirst/macrohook/pkg/events"
)

// inputEventSize is sizeof(struct input_event) on 64-bit kernels.
const inputEventSize = 24

const pollTimeoutMillis = 100

var deviceGlob = "/dev/input/event*"

type evdevHook struct {
	opts Options

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	fds     []int
}

func newEvdev(opts Options) Adapter {
	return &evdevHook{opts: opts}
}

func (h *evdevHook) Name() string { return BackendEvdev }

func (h *evdevHook) Start(ctx context.Context, cb Callback) error {
	if ctx == nil {
		ctx = context.Background()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return ErrHookActive
	}

	paths := h.opts.Devices
	if len(paths) == 0 {
		matches, err := filepath.Glob(deviceGlob)
		if err != nil {
			return newInstallError(BackendEvdev, "enumerate input devices", "", err)
		}
		sort.Strings(matches)
		paths = matches
	}
	if len(paths) == 0 {
		return newInstallError(BackendEvdev, "no input devices found",
			"check that /dev/input is populated or pass hook.devices explicitly", nil)
	}

	if err := claim(BackendEvdev); err != nil {
		return err
	}

	var (
		fds      []int
		firstErr error
	)
	for _, path := range paths {
		fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("open %s: %w", path, err)
			}
			h.opts.Logger.Debug("skipping input device", "device", path, "error", err)
			continue
		}
		fds = append(fds, fd)
	}
	if len(fds) == 0 {
		release(BackendEvdev)
		guidance := "add the user to the 'input' group or run with access to /dev/input"
		return newInstallError(BackendEvdev, "no readable input devices", guidance, firstErr)
	}

	runCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.done = make(chan struct{})
	h.fds = fds
	h.running = true

	reader := newEvdevReader(traced(h.opts, BackendEvdev, cb), h.opts.Clock, h.opts.ScreenWidth, h.opts.ScreenHeight)
	for _, fd := range fds {
		reader.abs[int32(fd)] = queryAbsAxes(fd)
	}
	go reader.run(runCtx, fds, h.done, h.opts)
	h.opts.Logger.Debug("evdev hook installed", "devices", len(fds))
	return nil
}

func (h *evdevHook) Stop() error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return ErrNotInstalled
	}
	h.running = false
	cancel, done, fds := h.cancel, h.done, h.fds
	h.fds = nil
	h.mu.Unlock()

	cancel()
	<-done
	for _, fd := range fds {
		_ = unix.Close(fd)
	}
	release(BackendEvdev)
	return nil
}

// axisRange is the reported span of one absolute axis. A zero range means
// the device does not report the axis.
type axisRange struct {
	min, max int32
}

type absAxes struct {
	x, y axisRange
}

// evdevIOCGABS builds EVIOCGABS(axis): _IOR('E', 0x40+axis, struct input_absinfo).
func evdevIOCGABS(axis int) uintptr {
	const absinfoSize = 6 * 4
	const base = 2<<30 | absinfoSize<<16 | 'E'<<8
	return uintptr(base) | uintptr(0x40+axis)
}

// queryAbsAxes reads the X and Y ranges of an absolute pointer. Devices
// without absolute axes report zero ranges.
func queryAbsAxes(fd int) absAxes {
	read := func(axis int) axisRange {
		// value, minimum, maximum, fuzz, flat, resolution
		var info [6]int32
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), evdevIOCGABS(axis), uintptr(unsafe.Pointer(&info)))
		if errno != 0 {
			return axisRange{}
		}
		return axisRange{min: info[1], max: info[2]}
	}
	return absAxes{x: read(events.AbsX), y: read(events.AbsY)}
}

// evdevReader folds relative and absolute motion into a cursor position on a
// width by height screen and emits one motion event per SYN_REPORT.
//
// Relative devices carry no absolute position, so the model starts at the
// screen centre. Both the model and the real pointer stop at the screen
// edges, so pushing the pointer into a corner brings them back in line.
// Absolute axes are scaled from the device range to the screen.
type evdevReader struct {
	cb    Callback
	clock func() time.Time

	width, height float64
	abs           map[int32]absAxes

	x, y  float64
	moved bool
	axis  int
}

func newEvdevReader(cb Callback, clock func() time.Time, width, height int) *evdevReader {
	if width <= 0 {
		width = DefaultScreenWidth
	}
	if height <= 0 {
		height = DefaultScreenHeight
	}
	return &evdevReader{
		cb:     cb,
		clock:  clock,
		width:  float64(width),
		height: float64(height),
		abs:    map[int32]absAxes{},
		x:      float64(width / 2),
		y:      float64(height / 2),
	}
}

func (r *evdevReader) run(ctx context.Context, fds []int, done chan<- struct{}, opts Options) {
	defer close(done)
	pollFds := make([]unix.PollFd, len(fds))
	for i, fd := range fds {
		pollFds[i] = unix.PollFd{Fd: int32(fd), Events: unix.POLLIN}
	}
	buf := make([]byte, inputEventSize*64)

	for ctx.Err() == nil {
		n, err := unix.Poll(pollFds, pollTimeoutMillis)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			opts.Logger.Error("evdev poll failed", "error", err)
			return
		}
		if n == 0 {
			continue
		}
		for i := range pollFds {
			revents := pollFds[i].Revents
			if revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
				opts.Logger.Warn("input device went away", "fd", pollFds[i].Fd)
				pollFds[i].Fd = -1
				continue
			}
			if revents&unix.POLLIN == 0 {
				continue
			}
			read, err := unix.Read(int(pollFds[i].Fd), buf)
			if err != nil {
				if errors.Is(err, unix.EAGAIN) {
					continue
				}
				opts.Logger.Warn("read input device", "fd", pollFds[i].Fd, "error", err)
				continue
			}
			axes := r.abs[pollFds[i].Fd]
			for off := 0; off+inputEventSize <= read; off += inputEventSize {
				r.handle(axes, buf[off:off+inputEventSize])
			}
		}
	}
}

func (r *evdevReader) handle(axes absAxes, record []byte) {
	typ := int(binary.NativeEndian.Uint16(record[16:18]))
	code := int(binary.NativeEndian.Uint16(record[18:20]))
	value := int32(binary.NativeEndian.Uint32(record[20:24]))

	switch typ {
	case events.EvSyn:
		if code == events.SynReport && r.moved {
			r.moved = false
			r.emit(events.EvRel, r.axis, 0)
		}
	case events.EvRel:
		switch code {
		case events.RelX:
			r.x = clampAxis(r.x+float64(value), r.width)
			r.moved, r.axis = true, code
		case events.RelY:
			r.y = clampAxis(r.y+float64(value), r.height)
			r.moved, r.axis = true, code
		default:
			r.emit(typ, code, int(value))
		}
	case events.EvAbs:
		switch code {
		case events.AbsX:
			r.x = scaleAxis(value, axes.x, r.width)
			r.moved, r.axis = true, events.RelX
		case events.AbsY:
			r.y = scaleAxis(value, axes.y, r.height)
			r.moved, r.axis = true, events.RelY
		}
	case events.EvKey:
		r.emit(typ, code, int(value))
	}
}

// scaleAxis maps an absolute reading onto [0, size-1]. Without a known
// device range the reading is taken as a screen coordinate.
func scaleAxis(value int32, rng axisRange, size float64) float64 {
	if rng.max <= rng.min {
		return clampAxis(float64(value), size)
	}
	ratio := float64(value-rng.min) / float64(rng.max-rng.min)
	return clampAxis(math.Round(ratio*(size-1)), size)
}

func clampAxis(v, size float64) float64 {
	return math.Max(0, math.Min(v, size-1))
}

func (r *evdevReader) emit(typ, code, value int) {
	r.cb(events.RawEvent{
		Platform: events.PlatformEvdev,
		Type:     typ,
		Code:     code,
		Value:    value,
		X:        r.x,
		Y:        r.y,
		Time:     r.clock(),
	})
}
