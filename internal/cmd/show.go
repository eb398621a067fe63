package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/offlinefirst/macrohook/pkg/events"
	"github.com/offlinefirst/macrohook/pkg/macro"
)

func newShowCommand(rc *RootCommand) *cobra.Command {
	var (
		listEvents bool
		limit      int
	)
	c := &cobra.Command{
		Use:   "show <name|file>",
		Short: "Show a macro's metadata and events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rc.ensureAppContext()
			if err != nil {
				return err
			}
			m, path, err := loadMacro(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}
			displayMacro(cmd.OutOrStdout(), m, path)
			if listEvents {
				displayEvents(cmd.OutOrStdout(), m, limit)
			}
			return nil
		},
	}
	c.Flags().BoolVarP(&listEvents, "events", "e", false, "Print every event")
	c.Flags().IntVar(&limit, "limit", 0, "Print at most this many events (0 prints all)")
	return c
}

func displayMacro(out io.Writer, m macro.Macro, path string) {
	fmt.Fprintln(out, headerStyle.Render(m.Name))
	fmt.Fprintf(out, "  ID:       %s\n", idStyle.Render(m.ID.String()))
	fmt.Fprintf(out, "  File:     %s\n", path)
	fmt.Fprintf(out, "  Created:  %s\n", dateStyle.Render(m.CreatedAt.Local().Format(time.DateTime)))
	fmt.Fprintf(out, "  Duration: %s\n", m.Duration())
	fmt.Fprintf(out, "  Events:   %s\n", countStyle.Render(fmt.Sprint(m.Len())))

	counts := m.Counts()
	for _, kind := range []events.Kind{
		events.KindKeyDown,
		events.KindKeyUp,
		events.KindMouseMove,
		events.KindMouseButtonDown,
		events.KindMouseButtonUp,
		events.KindMouseWheel,
	} {
		if n := counts[kind]; n > 0 {
			fmt.Fprintf(out, "    %-18s %d\n", kind, n)
		}
	}
}

func displayEvents(out io.Writer, m macro.Macro, limit int) {
	fmt.Fprintln(out)
	for i, ev := range m.Events {
		if limit > 0 && i >= limit {
			fmt.Fprintf(out, "  ... %d more\n", m.Len()-limit)
			return
		}
		fmt.Fprintf(out, "  %5d  %s\n", i, ev)
	}
}
