package capture

import (
	"context"
	"time"

	"github.com/offlinefirst/macrohook/pkg/events"
	"github.com/offlinefirst/macrohook/pkg/hook"
)

// Status classifies how a click capture ended.
type Status int

const (
	StatusCaptured Status = iota + 1
	StatusCancelled
	StatusTimeout
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusCaptured:
		return "captured"
	case StatusCancelled:
		return "cancelled"
	case StatusTimeout:
		return "timeout"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of CaptureNextClick. X, Y and Button are set only
// when Status is StatusCaptured; Reason only when it is StatusFailed.
type Result struct {
	Status Status
	X, Y   int32
	Button int32
	Reason string
}

// CaptureNextClick installs adapter until the next mouse button press, the
// timeout elapses or ctx is cancelled. The hook is always uninstalled before
// it returns. A non-positive timeout waits for ctx alone.
func CaptureNextClick(ctx context.Context, adapter hook.Adapter, timeout time.Duration) Result {
	if adapter == nil {
		return Result{Status: StatusFailed, Reason: "hook adapter must be provided"}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return Result{Status: StatusCancelled}
	}

	clicks := make(chan events.Event, 1)
	start := time.Now()
	hookCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	err := adapter.Start(hookCtx, func(raw events.RawEvent) {
		ev, ok := events.Normalize(raw, start)
		if !ok || ev.Kind != events.KindMouseButtonDown {
			return
		}
		select {
		case clicks <- ev:
		default:
		}
	})
	if err != nil {
		return Result{Status: StatusFailed, Reason: "install hook: " + err.Error()}
	}
	defer func() { _ = adapter.Stop() }()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case ev := <-clicks:
		return Result{Status: StatusCaptured, X: ev.X, Y: ev.Y, Button: ev.Code}
	case <-expired:
		return Result{Status: StatusTimeout}
	case <-ctx.Done():
		return Result{Status: StatusCancelled}
	}
}
