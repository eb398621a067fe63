package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/offlinefirst/macrohook/pkg/hook"
	"github.com/offlinefirst/macrohook/pkg/permissions"
	"github.com/offlinefirst/macrohook/pkg/synth"
)

// probeLookup is swapped in tests.
var probeLookup permissions.LookupEnvFunc = permissions.DefaultLookupEnv

func newDoctorCommand(rc *RootCommand) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check permissions and show the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rc.ensureAppContext()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printResolvedConfig(app, out)
			fmt.Fprintln(out)

			env := hook.DetectEnvironment()
			available := "ok"
			if !env.Available {
				available = "unavailable"
			}
			fmt.Fprintln(out, headerStyle.Render("Native hook"))
			fmt.Fprintf(out, "  provider: %s (%s)\n", env.Provider, statusStyle(available).Render(available))
			if env.Message != "" {
				fmt.Fprintf(out, "  %s\n", env.Message)
			}
			if env.Guidance != "" {
				fmt.Fprintf(out, "  %s %s\n", warnStyle.Render("hint"), env.Guidance)
			}
			fmt.Fprintln(out)

			probes := []struct {
				name   string
				result permissions.ProbeResult
			}{
				{"accessibility", permissions.ProbeAccessibility(probeLookup)},
				{"input monitoring", permissions.ProbeInputMonitoring(probeLookup)},
				{"input devices", permissions.ProbeInputDevices(probeLookup)},
				{"uinput", permissions.ProbeUinput(probeLookup)},
			}

			fmt.Fprintln(out, headerStyle.Render("Permissions"))
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, probe := range probes {
				status := probe.result.StatusString()
				fmt.Fprintf(w, "  %s\t%s\t%s\n", probe.name, statusStyle(status).Render(status), probe.result.Message)
				app.Logger.Debug("permission probed", "surface", probe.name, "status", status)
			}
			w.Flush()
			for _, probe := range probes {
				if probe.result.Guidance != "" && probe.result.Status != permissions.StatusGranted {
					fmt.Fprintf(out, "  %s %s\n", warnStyle.Render("hint"), probe.result.Guidance)
				}
			}
			return nil
		},
	}
}

func printResolvedConfig(app *AppContext, out io.Writer) {
	cfg := app.Config
	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Configuration (source: %s)", cfg.Source)))
	fmt.Fprintf(out, "  paths.macros_dir: %s\n", cfg.Paths.MacrosDir)
	fmt.Fprintf(out, "  paths.runs_dir: %s\n", cfg.Paths.RunsDir)
	fmt.Fprintf(out, "  paths.library_db: %s\n", cfg.Paths.LibraryDB)
	fmt.Fprintf(out, "  hook.backend: %s (resolves to %s)\n", cfg.Hook.Backend, hook.ResolveBackend(cfg.Hook.Backend))
	fmt.Fprintf(out, "  playback.synth: %s (resolves to %s)\n", cfg.Playback.Synth, synth.ResolveBackend(cfg.Playback.Synth))
	fmt.Fprintf(out, "  playback.speed: %g\n", cfg.Playback.Speed)
	fmt.Fprintf(out, "  playback.loops: %d\n", cfg.Playback.Loops)
	if cfg.Playback.Window != "" {
		fmt.Fprintf(out, "  playback.window: %s\n", cfg.Playback.Window)
	}
	fmt.Fprintf(out, "  record.ignore_moves: %t\n", cfg.Record.IgnoreMoves)
	fmt.Fprintf(out, "  record.stop_hotkey: %s\n", cfg.Record.StopHotkey)
	fmt.Fprintf(out, "  logging.level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "  logging.format: %s\n", cfg.Logging.Format)
}
