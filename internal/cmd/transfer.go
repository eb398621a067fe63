package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/offlinefirst/macrohook/pkg/store"
)

func newExportCommand(rc *RootCommand) *cobra.Command {
	var (
		format string
		output string
	)
	c := &cobra.Command{
		Use:   "export <name|file>",
		Short: "Export a macro as JSON, JSONL or YAML",
		Long: `Write a macro in a text format. Without --output the macro goes to stdout;
with --output the format defaults to the file extension.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rc.ensureAppContext()
			if err != nil {
				return err
			}
			m, _, err := loadMacro(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}

			if format == "" {
				format = store.FormatJSON
				if output != "" {
					if format, err = store.FormatFromPath(output); err != nil {
						return err
					}
				}
			}

			if output == "" {
				return store.Export(cmd.OutOrStdout(), m, format)
			}
			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create export file: %w", err)
			}
			if err := store.Export(file, m, format); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("close export file: %w", err)
			}
			app.Logger.Info("macro exported", "name", m.Name, "format", format, "path", output)
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", m.Name, output)
			return nil
		},
	}
	c.Flags().StringVarP(&format, "format", "f", "", "Export format: json, jsonl, yaml, mhm")
	c.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	return c
}

func newImportCommand(rc *RootCommand) *cobra.Command {
	var (
		format string
		name   string
		output string
	)
	c := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a JSON, JSONL or YAML macro into the macros directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rc.ensureAppContext()
			if err != nil {
				return err
			}
			path := args[0]
			if format == "" {
				if format, err = store.FormatFromPath(path); err != nil {
					return err
				}
			}
			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer file.Close()

			m, err := store.Import(file, format)
			if err != nil {
				return err
			}
			if strings.TrimSpace(name) != "" {
				m.Name = name
			}
			saved, err := saveMacro(app, m, output)
			if err != nil {
				return err
			}
			app.Logger.Info("macro imported", "name", m.Name, "events", m.Len(), "path", saved)
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%s events) to %s\n", m.Name, countStyle.Render(fmt.Sprint(m.Len())), saved)
			return nil
		},
	}
	c.Flags().StringVarP(&format, "format", "f", "", "Input format (default from the file extension)")
	c.Flags().StringVar(&name, "name", "", "Rename the imported macro")
	c.Flags().StringVarP(&output, "output", "o", "", "Write to this path instead of the macros directory")
	return c
}
