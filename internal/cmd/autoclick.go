package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/offlinefirst/macrohook/pkg/autoclick"
	"github.com/offlinefirst/macrohook/pkg/capture"
	"github.com/offlinefirst/macrohook/pkg/events"
	"github.com/offlinefirst/macrohook/pkg/runmanifest"
)

type autoclickOptions struct {
	x, y       int32
	pick       bool
	backend    string
	button     string
	clicks     int
	hold       time.Duration
	interval   time.Duration
	jitterMin  time.Duration
	jitterMax  time.Duration
	halfWidth  int32
	halfHeight int32
	repeat     int
	seed       uint64
	name       string
	save       bool
	playback   playbackFlags
}

func newAutoclickCommand(rc *RootCommand) *cobra.Command {
	opts := &autoclickOptions{}
	c := &cobra.Command{
		Use:   "autoclick",
		Short: "Generate and play a repeating click macro",
		Long: `Build a macro that clicks a target point repeatedly, optionally inside a
random area and with random extra delay between cycles, then play it. Use
--pick to choose the target with the next mouse click, or --save to store the
macro instead of playing it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rc.ensureAppContext()
			if err != nil {
				return err
			}
			opts.applyDefaults(cmd, app)
			return runAutoclick(cmd, app, *opts)
		},
	}

	flags := c.Flags()
	flags.Int32Var(&opts.x, "x", 0, "Target X coordinate")
	flags.Int32Var(&opts.y, "y", 0, "Target Y coordinate")
	flags.BoolVar(&opts.pick, "pick", false, "Pick the target with the next mouse click")
	flags.StringVar(&opts.backend, "backend", "", "Hook backend used by --pick")
	flags.StringVar(&opts.button, "button", "", "Mouse button (left, right, middle, back, forward)")
	flags.IntVar(&opts.clicks, "clicks", 0, "Clicks per cycle, 2 for a double click")
	flags.DurationVar(&opts.hold, "hold", 0, "Hold the button down this long instead of clicking")
	flags.DurationVar(&opts.interval, "interval", 0, "Base delay between cycles")
	flags.DurationVar(&opts.jitterMin, "jitter-min", 0, "Minimum random delay added to each interval")
	flags.DurationVar(&opts.jitterMax, "jitter-max", 0, "Maximum random delay added to each interval")
	flags.Int32Var(&opts.halfWidth, "half-width", 0, "Randomise X by up to this many pixels either side")
	flags.Int32Var(&opts.halfHeight, "half-height", 0, "Randomise Y by up to this many pixels either side")
	flags.IntVar(&opts.repeat, "repeat", 0, "Number of click cycles")
	flags.Uint64Var(&opts.seed, "seed", 0, "Seed for reproducible jitter (0 picks one)")
	flags.StringVar(&opts.name, "name", "autoclick", "Macro name")
	flags.BoolVar(&opts.save, "save", false, "Save the macro to the macros directory instead of playing it")
	opts.playback.register(flags)
	return c
}

func (o *autoclickOptions) applyDefaults(cmd *cobra.Command, app *AppContext) {
	flags := cmd.Flags()
	ac := app.Config.Autoclick
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	if !flags.Changed("backend") {
		o.backend = app.Config.Hook.Backend
	}
	if !flags.Changed("button") {
		o.button = ac.Button
	}
	if !flags.Changed("clicks") {
		o.clicks = ac.Clicks
	}
	if !flags.Changed("hold") {
		o.hold = ms(ac.HoldMS)
	}
	if !flags.Changed("interval") {
		o.interval = ms(ac.IntervalMS)
	}
	if !flags.Changed("jitter-min") {
		o.jitterMin = ms(ac.JitterMinMS)
	}
	if !flags.Changed("jitter-max") {
		o.jitterMax = ms(ac.JitterMaxMS)
	}
	if !flags.Changed("half-width") {
		o.halfWidth = int32(ac.HalfWidth)
	}
	if !flags.Changed("half-height") {
		o.halfHeight = int32(ac.HalfHeight)
	}
	if !flags.Changed("repeat") {
		o.repeat = ac.Repeat
	}
	o.playback.applyDefaults(flags, app)
}

func runAutoclick(cmd *cobra.Command, app *AppContext, opts autoclickOptions) error {
	stdout := cmd.OutOrStdout()
	flags := cmd.Flags()

	target := autoclick.Point{X: opts.x, Y: opts.y}
	switch {
	case opts.pick:
		fmt.Fprintln(stdout, "Click the target point...")
		res, err := pickPoint(cmd, app, opts.backend, 30*time.Second)
		if err != nil {
			return err
		}
		target = autoclick.Point{X: res.X, Y: res.Y}
		fmt.Fprintf(stdout, "Target %d,%d\n", target.X, target.Y)
	case !flags.Changed("x") || !flags.Changed("y"):
		return errors.New("either --x and --y or --pick is required")
	}

	button, err := events.ParseButton(opts.button)
	if err != nil {
		return err
	}
	action := autoclick.ClickAction{Button: button, Count: opts.clicks, Hold: opts.hold}

	var position autoclick.PositionPolicy = autoclick.Exact{}
	if opts.halfWidth > 0 || opts.halfHeight > 0 {
		position = autoclick.RandomArea{HalfWidth: opts.halfWidth, HalfHeight: opts.halfHeight}
	}

	m, err := autoclick.Build(autoclick.Options{
		Name:     opts.name,
		Target:   target,
		Action:   action,
		Position: position,
		Delay: autoclick.DelayPolicy{
			Base:      opts.interval,
			MinJitter: opts.jitterMin,
			MaxJitter: opts.jitterMax,
		},
		Repeat:    opts.repeat,
		Seed:      opts.seed,
		CreatedAt: timeNow(),
	})
	if err != nil {
		return err
	}
	app.Logger.Info("click macro built", "name", m.Name, "events", m.Len(), "duration", m.Duration())

	if opts.save {
		path, err := saveMacro(app, m, "")
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Saved %s events to %s\n", countStyle.Render(fmt.Sprint(m.Len())), path)
		return nil
	}
	return playMacro(cmd, app, runmanifest.KindAutoclick, m, "", opts.playback)
}

// pickPoint waits for the next mouse click and fails unless one arrives.
func pickPoint(cmd *cobra.Command, app *AppContext, backend string, timeout time.Duration) (capture.Result, error) {
	adapter, err := newPointAdapter(app, backend)
	if err != nil {
		return capture.Result{}, err
	}
	res := capture.CaptureNextClick(cmd.Context(), adapter, timeout)
	if res.Status != capture.StatusCaptured {
		if res.Reason != "" {
			return res, fmt.Errorf("pick target: %s: %s", res.Status, res.Reason)
		}
		return res, fmt.Errorf("pick target: %s", res.Status)
	}
	return res, nil
}
