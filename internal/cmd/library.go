package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/offlinefirst/macrohook/pkg/library"
)

func newLibraryCommand(rc *RootCommand) *cobra.Command {
	c := &cobra.Command{
		Use:   "library",
		Short: "Maintain the macro index",
	}
	c.AddCommand(newLibrarySyncCommand(rc), newLibraryWatchCommand(rc))
	return c
}

func newLibrarySyncCommand(rc *RootCommand) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Re-index the macros directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rc.ensureAppContext()
			if err != nil {
				return err
			}
			lib, res, err := openLibrary(cmd.Context(), app)
			if err != nil {
				return err
			}
			defer lib.Close()
			printSyncResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func newLibraryWatchCommand(rc *RootCommand) *cobra.Command {
	var debounce time.Duration
	c := &cobra.Command{
		Use:   "watch",
		Short: "Keep the macro index in sync until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rc.ensureAppContext()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(app.Config.Paths.MacrosDir, 0o755); err != nil {
				return fmt.Errorf("ensure macros directory: %w", err)
			}
			lib, err := library.Open(app.Config.Paths.LibraryDB, app.Logger)
			if err != nil {
				return err
			}
			defer lib.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Watching %s (Ctrl-C to stop)\n", app.Config.Paths.MacrosDir)
			return lib.Watch(ctx, app.Config.Paths.MacrosDir, library.WatchOptions{
				Debounce: debounce,
				OnSync: func(res library.SyncResult, err error) {
					if err != nil {
						app.Logger.Error("library sync failed", "error", err)
						return
					}
					if res.Changed() {
						printSyncResult(out, res)
					}
				},
			})
		},
	}
	c.Flags().DurationVar(&debounce, "debounce", library.DefaultDebounce, "Quiet period before re-indexing")
	return c
}

func printSyncResult(out io.Writer, res library.SyncResult) {
	fmt.Fprintf(out, "%s added=%d updated=%d removed=%d unchanged=%d\n",
		titleStyle.Render("index"), len(res.Added), len(res.Updated), len(res.Removed), res.Unchanged)
	for _, path := range res.Skipped {
		fmt.Fprintf(out, "  %s %s\n", warnStyle.Render("skipped"), path)
	}
}
