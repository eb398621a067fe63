package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/offlinefirst/macrohook/pkg/library"
)

func newListCommand(rc *RootCommand) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved macros",
		Long:  `Index the macros directory and list every macro it contains.`,
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

			entries, err := lib.List(cmd.Context())
			if err != nil {
				return err
			}
			displayEntries(cmd.OutOrStdout(), app.Config.Paths.MacrosDir, entries)
			for _, skipped := range res.Skipped {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s unreadable macro %s\n", warnStyle.Render("skipped"), skipped)
			}
			return nil
		},
	}
}

func displayEntries(out io.Writer, dir string, entries []library.Entry) {
	if len(entries) == 0 {
		fmt.Fprintf(out, "No macros in %s\n", dir)
		return
	}

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Macros in %s (%d)", dir, len(entries))))
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tEVENTS\tCREATED\tFILE\tID")
	for _, entry := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			titleStyle.Render(entry.Name),
			countStyle.Render(fmt.Sprint(entry.Events)),
			dateStyle.Render(entry.CreatedAt.Local().Format(time.DateTime)),
			filepath.Base(entry.Path),
			idStyle.Render(shortID(entry.ID)),
		)
	}
	w.Flush()
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
