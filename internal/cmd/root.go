package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/offlinefirst/macrohook/internal/buildinfo"
	"github.com/offlinefirst/macrohook/pkg/config"
	"github.com/offlinefirst/macrohook/pkg/logging"
)

// AppContext exposes lazily initialised configuration and logging facilities.
type AppContext struct {
	Config config.Config
	Logger *slog.Logger
	Debug  bool
}

// RootCommand owns the cobra tree and the global flags shared by every
// subcommand.
type RootCommand struct {
	cmd        *cobra.Command
	stdout     io.Writer
	stderr     io.Writer
	appCtx     *AppContext
	configPath string
	logLevel   string
	logFormat  string
	debug      bool
}

// NewRootCommand constructs the CLI with its subcommands and global flags.
func NewRootCommand() *RootCommand {
	rc := &RootCommand{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	root := &cobra.Command{
		Use:   "macrohook",
		Short: "Record and replay keyboard and mouse macros",
		Long: `macrohook installs a global input hook to record keyboard and mouse
activity into a macro file, and replays macros through the platform's input
injector with speed, loop, pause and time-window control.

Quick Start:
  macrohook record login        # record until the stop hotkey or Ctrl-C
  macrohook play login --loops 3
  macrohook list                # index and list saved macros`,
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	flags := root.PersistentFlags()
	flags.StringVar(&rc.configPath, "config", "", "Path to config file (default: ./macrohook.yaml if present)")
	flags.StringVar(&rc.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	flags.StringVar(&rc.logFormat, "log-format", "", "Override log output format (json, console)")
	flags.BoolVar(&rc.debug, "debug", false, "Log every raw hook event and force debug level")

	root.AddCommand(
		newRecordCommand(rc),
		newPlayCommand(rc),
		newAutoclickCommand(rc),
		newCapturePointCommand(rc),
		newListCommand(rc),
		newShowCommand(rc),
		newExportCommand(rc),
		newImportCommand(rc),
		newLibraryCommand(rc),
		newDoctorCommand(rc),
		newVersionCommand(),
	)

	rc.cmd = root
	return rc
}

// SetOutput redirects command output, mainly for tests.
func (rc *RootCommand) SetOutput(stdout, stderr io.Writer) {
	rc.stdout = stdout
	rc.stderr = stderr
}

// Execute loads .env overrides, parses args and dispatches to a subcommand.
func (rc *RootCommand) Execute(args []string) error {
	return rc.ExecuteContext(context.Background(), args)
}

// ExecuteContext is Execute with a caller supplied context.
func (rc *RootCommand) ExecuteContext(ctx context.Context, args []string) error {
	// A missing .env is the common case.
	_ = godotenv.Load()

	rc.cmd.SetOut(rc.stdout)
	rc.cmd.SetErr(rc.stderr)
	rc.cmd.SetArgs(args)
	if err := rc.cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(rc.stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func (rc *RootCommand) ensureAppContext() (*AppContext, error) {
	if rc.appCtx != nil {
		return rc.appCtx, nil
	}

	cfg, err := config.Load(rc.configPath)
	if err != nil {
		return nil, err
	}

	if rc.logLevel != "" {
		lvl, err := config.NormalizeLogLevel(rc.logLevel)
		if err != nil {
			return nil, err
		}
		cfg.Logging.Level = lvl
	}
	if rc.logFormat != "" {
		format, err := config.NormalizeFormat(rc.logFormat)
		if err != nil {
			return nil, err
		}
		cfg.Logging.Format = format
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: rc.stderr,
		Debug:  rc.debug,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("configuration loaded", "source", cfg.Source, "macros_dir", cfg.Paths.MacrosDir, "runs_dir", cfg.Paths.RunsDir)

	rc.appCtx = &AppContext{Config: cfg, Logger: logger, Debug: rc.debug}
	return rc.appCtx, nil
}

func versionString() string {
	return fmt.Sprintf("%s (go%s/%s)", buildinfo.Describe(), runtimeVersion(), runtimeGOOS())
}

// runtimeVersion is extracted for testability.
var runtimeVersion = func() string { return runtime.Version() }

// runtimeGOOS is extracted for testability.
var runtimeGOOS = func() string { return runtime.GOOS }
