package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/offlinefirst/macrohook/pkg/events"
	"github.com/offlinefirst/macrohook/pkg/macro"
	"github.com/offlinefirst/macrohook/pkg/player"
	"github.com/offlinefirst/macrohook/pkg/runmanifest"
	"github.com/offlinefirst/macrohook/pkg/schedule"
	"github.com/offlinefirst/macrohook/pkg/session"
	"github.com/offlinefirst/macrohook/pkg/synth"
)

// playbackFlags are shared by play and autoclick.
type playbackFlags struct {
	speed       float64
	loops       int
	synth       string
	window      string
	stopHotkey  string
	pauseHotkey string
	noHotkey    bool
}

func (p *playbackFlags) register(flags *pflag.FlagSet) {
	flags.Float64Var(&p.speed, "speed", 0, "Playback speed multiplier (default from config)")
	flags.IntVar(&p.loops, "loops", 0, "Number of times to play the macro (default from config)")
	flags.StringVar(&p.synth, "synth", "", "Synthesizer backend (auto, quartz, uinput, browser, dryrun)")
	flags.StringVar(&p.window, "window", "", "Only start loops inside this daily window, e.g. 09:00-17:30")
	flags.StringVar(&p.stopHotkey, "stop-hotkey", "", "Global hotkey that stops playback")
	flags.StringVar(&p.pauseHotkey, "pause-hotkey", "", "Global hotkey that toggles pause and resume")
	flags.BoolVar(&p.noHotkey, "no-hotkey", false, "Do not register playback hotkeys")
}

// applyDefaults fills unset flags from the loaded configuration.
func (p *playbackFlags) applyDefaults(flags *pflag.FlagSet, app *AppContext) {
	pb := app.Config.Playback
	if !flags.Changed("speed") {
		p.speed = pb.Speed
	}
	if !flags.Changed("loops") {
		p.loops = pb.Loops
	}
	if !flags.Changed("synth") {
		p.synth = pb.Synth
	}
	if !flags.Changed("window") {
		p.window = pb.Window
	}
	if !flags.Changed("stop-hotkey") {
		p.stopHotkey = app.Config.Record.StopHotkey
	}
	if p.noHotkey {
		p.stopHotkey = ""
		p.pauseHotkey = ""
	}
}

func newPlayCommand(rc *RootCommand) *cobra.Command {
	opts := &playbackFlags{}
	c := &cobra.Command{
		Use:   "play <name|file>",
		Short: "Replay a recorded macro",
		Long: `Replay a macro by library name or file path. Files may be binary macros or
JSON, JSONL and YAML exports.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rc.ensureAppContext()
			if err != nil {
				return err
			}
			opts.applyDefaults(cmd.Flags(), app)
			m, path, err := loadMacro(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}
			return playMacro(cmd, app, runmanifest.KindPlay, m, path, *opts)
		},
	}
	opts.register(c.Flags())
	return c
}

func playMacro(cmd *cobra.Command, app *AppContext, kind string, m macro.Macro, path string, opts playbackFlags) error {
	cfg := app.Config
	stdout := cmd.OutOrStdout()

	window, err := schedule.ParseTimeRange(opts.window)
	if err != nil {
		return err
	}
	popts := player.Options{Speed: opts.speed, Loops: opts.loops, Window: window}
	if err := popts.Validate(); err != nil {
		return err
	}

	synthesizer, err := synth.New(opts.synth, synth.Options{
		Logger:       app.Logger,
		Output:       stdout,
		ScreenWidth:  cfg.Playback.ScreenWidth,
		ScreenHeight: cfg.Playback.ScreenHeight,
		BrowserURL:   cfg.Playback.BrowserURL,
		Headless:     cfg.Playback.Headless,
	})
	if err != nil {
		return fmt.Errorf("initialise synthesizer: %w", err)
	}
	defer synthesizer.Close()

	run, err := beginRun(app, kind)
	if err != nil {
		return err
	}
	run.manifest.Macro = runmanifest.MacroInfo{Name: m.Name, ID: m.ID.String(), Path: path, Events: m.Len()}
	run.manifest.Settings.SynthBackend = synthesizer.Name()
	run.manifest.Settings.Speed = popts.Speed
	run.manifest.Settings.Loops = popts.Loops
	run.manifest.Settings.Window = opts.window

	var onEmit func(loop, index int, ev events.Event)
	if app.Debug {
		onEmit = func(loop, index int, ev events.Event) {
			app.Logger.Debug("event emitted", "loop", loop, "index", index, "event", ev.String())
		}
	}
	controller, err := session.New(session.Config{
		Synth:   synthesizer,
		OnEmit:  onEmit,
		Logger:  app.Logger,
		Journal: run.journal,
	})
	if err != nil {
		return run.finish(runmanifest.StateErrored, err)
	}
	sub := controller.Subscribe(stateReporter(cmd))
	defer sub.Unsubscribe()

	signals, stopSignals := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	ctx, cancel := context.WithCancel(signals)
	defer cancel()

	fmt.Fprintf(stdout, "%s %s (%d events, speed %gx, loops %d) via %s\n",
		titleStyle.Render("Playing"), m.Name, m.Len(), popts.Speed, popts.Loops, synthesizer.Name())
	if !window.IsZero() {
		fmt.Fprintf(stdout, "  loops start only inside %s\n", window)
	}

	// Interrupts stop the playback cleanly instead of failing it.
	if err := controller.RequestPlay(context.WithoutCancel(ctx), m, popts); err != nil {
		run.manifest.RecordTimeline(controller.Timeline())
		return run.finish(runmanifest.StateErrored, err)
	}
	go func() {
		<-ctx.Done()
		_, _ = controller.RequestStop()
	}()
	listenHotkey(ctx, app, "stop", opts.stopHotkey, func() { _, _ = controller.RequestStop() })
	listenHotkey(ctx, app, "pause", opts.pauseHotkey, func() {
		var err error
		if controller.State() == session.StatePaused {
			err = controller.RequestResume()
		} else {
			err = controller.RequestPause()
		}
		if err != nil {
			app.Logger.Debug("pause hotkey ignored", "error", err)
		}
	})

	res, playErr := controller.Wait(context.Background())
	run.manifest.RecordTimeline(controller.Timeline())
	run.manifest.RecordPlayback(res, playErr)

	termination := runmanifest.StateCompleted
	switch {
	case playErr != nil:
		termination = runmanifest.StateErrored
	case res.Cancelled:
		termination = runmanifest.StateCancelled
	}
	fmt.Fprintf(stdout, "%s %d events over %d loops in %s\n",
		statusStyle(termination).Render(termination), res.Emitted, res.LoopsCompleted, res.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(stdout, "Manifest: %s\n", run.layout.ManifestPath)
	return run.finish(termination, playErr)
}
