package synth

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/offlinefirst/macrohook/pkg/events"
)

// DryRun prints each event instead of injecting it.
type DryRun struct {
	mu    sync.Mutex
	out   io.Writer
	count int

	tag     *color.Color
	key     *color.Color
	pointer *color.Color
}

// NewDryRun writes to opts.Output.
func NewDryRun(opts Options) *DryRun {
	d := &DryRun{
		out:     opts.Output,
		tag:     color.New(color.FgHiBlack),
		key:     color.New(color.FgGreen),
		pointer: color.New(color.FgCyan),
	}
	if opts.NoColor {
		for _, c := range []*color.Color{d.tag, d.key, d.pointer} {
			c.DisableColor()
		}
	}
	return d
}

func (d *DryRun) Name() string { return BackendDryRun }

func (d *DryRun) Emit(ctx context.Context, ev events.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.count++
	if _, err := d.tag.Fprintf(d.out, "[dry-run %04d %10s] ", d.count, ev.Offset()); err != nil {
		return err
	}
	paint := d.pointer
	if ev.Kind == events.KindKeyDown || ev.Kind == events.KindKeyUp {
		paint = d.key
	}
	if _, err := paint.Fprintln(d.out, describe(ev)); err != nil {
		return err
	}
	return nil
}

// Count reports how many events were printed.
func (d *DryRun) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

func (d *DryRun) Close() error { return nil }

func describe(ev events.Event) string {
	switch ev.Kind {
	case events.KindKeyDown:
		return fmt.Sprintf("press %s", events.KeyName(ev.Code))
	case events.KindKeyUp:
		return fmt.Sprintf("release %s", events.KeyName(ev.Code))
	case events.KindMouseMove:
		return fmt.Sprintf("move to (%d,%d)", ev.X, ev.Y)
	case events.KindMouseButtonDown:
		return fmt.Sprintf("%s down at (%d,%d)", events.ButtonName(ev.Code), ev.X, ev.Y)
	case events.KindMouseButtonUp:
		return fmt.Sprintf("%s up at (%d,%d)", events.ButtonName(ev.Code), ev.X, ev.Y)
	case events.KindMouseWheel:
		return fmt.Sprintf("scroll %+d at (%d,%d)", ev.Delta, ev.X, ev.Y)
	default:
		return ev.Kind.String()
	}
}
