package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/offlinefirst/macrohook/pkg/capture"
	"github.com/offlinefirst/macrohook/pkg/events"
	"github.com/offlinefirst/macrohook/pkg/hook"
)

func newCapturePointCommand(rc *RootCommand) *cobra.Command {
	var (
		backend string
		timeout time.Duration
	)
	c := &cobra.Command{
		Use:   "capture-point",
		Short: "Print the position of the next mouse click",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rc.ensureAppContext()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("backend") {
				backend = app.Config.Hook.Backend
			}
			adapter, err := newPointAdapter(app, backend)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Waiting for a mouse click...")
			res := capture.CaptureNextClick(cmd.Context(), adapter, timeout)
			status := res.Status.String()
			switch res.Status {
			case capture.StatusCaptured:
				fmt.Fprintf(cmd.OutOrStdout(), "%s x=%d y=%d button=%s\n", statusStyle(status).Render(status), res.X, res.Y, events.ButtonName(res.Button))
				return nil
			case capture.StatusFailed:
				return fmt.Errorf("capture point: %s", res.Reason)
			default:
				fmt.Fprintln(cmd.OutOrStdout(), statusStyle(status).Render(status))
				return nil
			}
		},
	}
	c.Flags().StringVar(&backend, "backend", "", "Hook backend (auto, quartz, evdev, terminal, synthetic)")
	c.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Give up after this long (0 waits until interrupted)")
	return c
}

func newPointAdapter(app *AppContext, backend string) (hook.Adapter, error) {
	opts := hook.Options{
		Logger:       app.Logger,
		Debug:        app.Debug,
		Devices:      app.Config.Hook.Devices,
		ScreenWidth:  app.Config.Playback.ScreenWidth,
		ScreenHeight: app.Config.Playback.ScreenHeight,
	}
	if hook.ResolveBackend(backend) == hook.BackendSynthetic {
		opts.Script = hook.DefaultScript()
	}
	return hook.New(backend, opts)
}
