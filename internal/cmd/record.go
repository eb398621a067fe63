package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/offlinefirst/macrohook/pkg/events"
	"github.com/offlinefirst/macrohook/pkg/hook"
	"github.com/offlinefirst/macrohook/pkg/hotkey"
	"github.com/offlinefirst/macrohook/pkg/runmanifest"
	"github.com/offlinefirst/macrohook/pkg/session"
)

type recordOptions struct {
	backend     string
	duration    time.Duration
	ignoreMoves bool
	exclude     []string
	stopHotkey  string
	noHotkey    bool
	out         string
}

func newRecordCommand(rc *RootCommand) *cobra.Command {
	opts := &recordOptions{}
	c := &cobra.Command{
		Use:   "record <name>",
		Short: "Record keyboard and mouse input into a macro",
		Long: `Install the global input hook and record until the stop hotkey is pressed,
the --duration elapses or the process is interrupted. The macro is saved to
the macros directory unless --out names a file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rc.ensureAppContext()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if !flags.Changed("backend") {
				opts.backend = app.Config.Hook.Backend
			}
			if !flags.Changed("ignore-moves") {
				opts.ignoreMoves = app.Config.Record.IgnoreMoves
			}
			if !flags.Changed("stop-hotkey") {
				opts.stopHotkey = app.Config.Record.StopHotkey
			}
			return runRecord(cmd, app, args[0], *opts)
		},
	}

	flags := c.Flags()
	flags.StringVar(&opts.backend, "backend", "", "Hook backend (auto, quartz, evdev, terminal, synthetic)")
	flags.DurationVar(&opts.duration, "duration", 0, "Stop recording after this long (0 waits for the hotkey)")
	flags.BoolVar(&opts.ignoreMoves, "ignore-moves", false, "Drop mouse move events")
	flags.StringSliceVar(&opts.exclude, "exclude", nil, "Additional key names to leave out of the recording")
	flags.StringVar(&opts.stopHotkey, "stop-hotkey", "", "Global hotkey that stops recording, e.g. ctrl+shift+f8")
	flags.BoolVar(&opts.noHotkey, "no-hotkey", false, "Do not register the stop hotkey")
	flags.StringVarP(&opts.out, "out", "o", "", "Write the macro to this path instead of the macros directory")
	return c
}

func runRecord(cmd *cobra.Command, app *AppContext, name string, opts recordOptions) error {
	cfg := app.Config
	stdout := cmd.OutOrStdout()

	filter, err := events.NewFilter(opts.ignoreMoves, append(append([]string(nil), cfg.Record.ExcludeKeys...), opts.exclude...))
	if err != nil {
		return err
	}
	if opts.noHotkey {
		opts.stopHotkey = ""
	}
	var stopKey *hotkey.Matcher
	if opts.stopHotkey != "" {
		binding, err := hotkey.Parse(opts.stopHotkey)
		if err != nil {
			return fmt.Errorf("stop hotkey: %w", err)
		}
		if stopKey, err = hotkey.NewMatcher(binding); err != nil {
			return fmt.Errorf("stop hotkey: %w", err)
		}
		// The hotkey press that ends the recording must not end up in it.
		filter.Exclude(stopKey.Key())
	}

	run, err := beginRun(app, runmanifest.KindRecord)
	if err != nil {
		return err
	}
	run.manifest.Macro.Name = name
	run.manifest.Settings.HookBackend = hook.ResolveBackend(opts.backend)
	run.manifest.Settings.IgnoreMoves = opts.ignoreMoves

	ctx, stopSignals := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopRequests := make(chan string, 1)
	requestStop := func(reason string) {
		select {
		case stopRequests <- reason:
		default:
		}
	}

	// The hook already sees every key, so the stop hotkey is matched in the
	// captured stream. This is the only stop key on Linux.
	var observe func(events.Event)
	if stopKey != nil {
		observe = func(ev events.Event) {
			if stopKey.Match(ev) {
				requestStop("hotkey")
			}
		}
	}

	var synthetic *hook.Synthetic
	controller, err := session.New(session.Config{
		NewAdapter: func() (hook.Adapter, error) {
			hookOpts := hook.Options{
				Logger:       app.Logger,
				Debug:        app.Debug,
				Devices:      cfg.Hook.Devices,
				ScreenWidth:  cfg.Playback.ScreenWidth,
				ScreenHeight: cfg.Playback.ScreenHeight,
				OnInterrupt:  func() { requestStop("interrupt") },
			}
			if hook.ResolveBackend(opts.backend) == hook.BackendSynthetic {
				hookOpts.Script = hook.DefaultScript()
			}
			adapter, err := hook.New(opts.backend, hookOpts)
			if s, ok := adapter.(*hook.Synthetic); ok {
				synthetic = s
			}
			return adapter, err
		},
		Filter:    filter,
		QueueSize: cfg.Hook.QueueSize,
		Observe:   observe,
		Logger:    app.Logger,
		Journal:   run.journal,
	})
	if err != nil {
		return run.finish(runmanifest.StateErrored, err)
	}
	sub := controller.Subscribe(stateReporter(cmd))
	defer sub.Unsubscribe()

	if err := controller.RequestRecord(ctx, name); err != nil {
		run.manifest.RecordTimeline(controller.Timeline())
		if errors.Is(err, hook.ErrHookInstall) {
			fmt.Fprintln(cmd.ErrOrStderr(), warnStyle.Render("Input hook could not be installed; run `macrohook doctor` to check permissions."))
		}
		return run.finish(runmanifest.StateErrored, err)
	}

	listenHotkey(ctx, app, "stop", opts.stopHotkey, func() { requestStop("hotkey") })

	var drained <-chan struct{}
	if synthetic != nil {
		drained = synthetic.Drained()
	}
	var expired <-chan time.Time
	if opts.duration > 0 {
		timer := time.NewTimer(opts.duration)
		defer timer.Stop()
		expired = timer.C
	}

	hint := "Ctrl-C"
	if opts.stopHotkey != "" {
		hint = opts.stopHotkey + " or Ctrl-C"
	}
	fmt.Fprintf(stdout, "%s %s (press %s to stop)\n", titleStyle.Render("Recording"), name, hint)

	var reason string
	select {
	case <-ctx.Done():
		reason = "interrupt"
	case reason = <-stopRequests:
	case <-drained:
		reason = "script drained"
	case <-expired:
		reason = "duration elapsed"
	}

	result, stopErr := controller.RequestStop()
	run.manifest.RecordTimeline(controller.Timeline())
	if result.Capture != nil {
		run.manifest.RecordCapture(*result.Capture)
	}
	if result.Macro == nil {
		if stopErr == nil {
			stopErr = errors.New("recording produced no macro")
		}
		return run.finish(runmanifest.StateErrored, stopErr)
	}

	m := *result.Macro
	path, err := saveMacro(app, m, opts.out)
	if err != nil {
		return run.finish(runmanifest.StateErrored, fmt.Errorf("save macro: %w", err))
	}
	run.manifest.Macro = runmanifest.MacroInfo{Name: m.Name, ID: m.ID.String(), Path: path, Events: m.Len()}

	fmt.Fprintf(stdout, "Saved %s events to %s (%s)\n", countStyle.Render(fmt.Sprint(m.Len())), path, reason)
	if stats := result.Capture; stats != nil && (stats.Filtered > 0 || stats.Overflow > 0) {
		fmt.Fprintf(stdout, "  filtered: %d  overflow: %d  dropped: %d\n", stats.Filtered, stats.Overflow, stats.Normalized.TotalDropped())
	}
	fmt.Fprintf(stdout, "Manifest: %s\n", run.layout.ManifestPath)
	return run.finish(reason, stopErr)
}

// stateReporter prints each controller transition to stderr.
func stateReporter(cmd *cobra.Command) session.Observer {
	out := cmd.ErrOrStderr()
	return func(change session.Change) {
		fmt.Fprintf(out, "%s %s -> %s", dateStyle.Render(change.At.Format("15:04:05")), change.From, titleStyle.Render(change.To.String()))
		if change.Reason != "" {
			fmt.Fprintf(out, " (%s)", change.Reason)
		}
		fmt.Fprintln(out)
	}
}
