package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/offlinefirst/macrohook/pkg/events"
	"github.com/offlinefirst/macrohook/pkg/hotkey"
	"github.com/offlinefirst/macrohook/pkg/schedule"
)

// DefaultFileNames are tried in order when no explicit path is given.
var DefaultFileNames = []string{"macrohook.yaml", "macrohook.yml", "macrohook.toml"}

var (
	hookBackends  = []string{"auto", "quartz", "evdev", "terminal", "synthetic"}
	synthBackends = []string{"auto", "quartz", "uinput", "browser", "dryrun", "dry-run"}
)

// Config captures the user-adjustable knobs for recording and playback.
type Config struct {
	Paths     PathsConfig     `yaml:"paths" toml:"paths"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Hook      HookConfig      `yaml:"hook" toml:"hook"`
	Record    RecordConfig    `yaml:"record" toml:"record"`
	Playback  PlaybackConfig  `yaml:"playback" toml:"playback"`
	Autoclick AutoclickConfig `yaml:"autoclick" toml:"autoclick"`

	// Source indicates where the configuration originated (defaults or a file path).
	Source string `yaml:"-" toml:"-"`
}

// PathsConfig controls filesystem locations used by the CLI.
type PathsConfig struct {
	MacrosDir string `yaml:"macros_dir" toml:"macros_dir"`
	RunsDir   string `yaml:"runs_dir" toml:"runs_dir"`
	LibraryDB string `yaml:"library_db" toml:"library_db"`
}

// LoggingConfig defines log verbosity and formatting.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// HookConfig selects and tunes the input hook.
type HookConfig struct {
	Backend   string   `yaml:"backend" toml:"backend"`
	Devices   []string `yaml:"devices" toml:"devices"`
	QueueSize int      `yaml:"queue_size" toml:"queue_size"`
}

// RecordConfig controls what a recording keeps.
type RecordConfig struct {
	IgnoreMoves bool     `yaml:"ignore_moves" toml:"ignore_moves"`
	ExcludeKeys []string `yaml:"exclude_keys" toml:"exclude_keys"`
	// StopHotkey ends the active session; empty disables it.
	StopHotkey string `yaml:"stop_hotkey" toml:"stop_hotkey"`
}

// PlaybackConfig holds playback defaults and synthesizer settings. The screen
// size also bounds cursor positions recorded by the evdev hook.
type PlaybackConfig struct {
	Speed        float64 `yaml:"speed" toml:"speed"`
	Loops        int     `yaml:"loops" toml:"loops"`
	Synth        string  `yaml:"synth" toml:"synth"`
	Window       string  `yaml:"window" toml:"window"`
	ScreenWidth  int     `yaml:"screen_width" toml:"screen_width"`
	ScreenHeight int     `yaml:"screen_height" toml:"screen_height"`
	BrowserURL   string  `yaml:"browser_url" toml:"browser_url"`
	Headless     bool    `yaml:"headless" toml:"headless"`
}

// AutoclickConfig holds the defaults for generated click macros.
type AutoclickConfig struct {
	IntervalMS  int    `yaml:"interval_ms" toml:"interval_ms"`
	JitterMinMS int    `yaml:"jitter_min_ms" toml:"jitter_min_ms"`
	JitterMaxMS int    `yaml:"jitter_max_ms" toml:"jitter_max_ms"`
	HalfWidth   int    `yaml:"half_width" toml:"half_width"`
	HalfHeight  int    `yaml:"half_height" toml:"half_height"`
	Button      string `yaml:"button" toml:"button"`
	Clicks      int    `yaml:"clicks" toml:"clicks"`
	HoldMS      int    `yaml:"hold_ms" toml:"hold_ms"`
	Repeat      int    `yaml:"repeat" toml:"repeat"`
}

// Default returns the baseline configuration used when no overrides are supplied.
func Default() Config {
	return Config{
		Paths: PathsConfig{
			MacrosDir: "macros",
			RunsDir:   "runs",
			LibraryDB: filepath.Join("macros", "library.db"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Hook: HookConfig{
			Backend:   "auto",
			QueueSize: 4096,
		},
		Record: RecordConfig{
			StopHotkey: "ctrl+shift+f8",
		},
		Playback: PlaybackConfig{
			Speed:        1,
			Loops:        1,
			Synth:        "auto",
			ScreenWidth:  1920,
			ScreenHeight: 1080,
			BrowserURL:   "about:blank",
			Headless:     true,
		},
		Autoclick: AutoclickConfig{
			IntervalMS: 1000,
			Button:     "left",
			Clicks:     1,
			Repeat:     10,
		},
		Source: "<defaults>",
	}
}

// Load reads configuration from disk if present, otherwise returning defaults.
// When path is empty, the loader tries DefaultFileNames in the working
// directory but tolerates their absence. Files ending in .toml are parsed as
// TOML, everything else as YAML. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()

	candidate := strings.TrimSpace(path)
	explicit := candidate != ""
	if !explicit {
		for _, name := range DefaultFileNames {
			if _, err := os.Stat(name); err == nil {
				candidate = name
				break
			}
		}
		if candidate == "" {
			return cfg, nil
		}
	}

	file, err := os.Open(candidate)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("config file %q not found", candidate)
		}
		return cfg, fmt.Errorf("open config file %q: %w", candidate, err)
	}
	defer file.Close()

	if err := decode(file, candidate, &cfg); err != nil {
		return cfg, err
	}
	cfg.Source = candidate
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func decode(r io.Reader, name string, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(name), ".toml") {
		dec := toml.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return fmt.Errorf("parse %s: %s", name, strict.String())
			}
			return fmt.Errorf("parse %s: %w", name, err)
		}
		return nil
	}

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// Validate ensures essential configuration values are present and sensible.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Paths.MacrosDir) == "" {
		return errors.New("paths.macros_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.RunsDir) == "" {
		return errors.New("paths.runs_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.LibraryDB) == "" {
		return errors.New("paths.library_db must not be empty")
	}

	if _, err := NormalizeLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if _, err := NormalizeFormat(c.Logging.Format); err != nil {
		return err
	}

	if !slices.Contains(hookBackends, c.Hook.Backend) {
		return fmt.Errorf("hook.backend %q is not one of %s", c.Hook.Backend, strings.Join(hookBackends, ", "))
	}
	if c.Hook.QueueSize <= 0 {
		return errors.New("hook.queue_size must be positive")
	}

	if _, err := events.NewFilter(c.Record.IgnoreMoves, c.Record.ExcludeKeys); err != nil {
		return fmt.Errorf("record.exclude_keys: %w", err)
	}
	if c.Record.StopHotkey != "" {
		if _, err := hotkey.Parse(c.Record.StopHotkey); err != nil {
			return fmt.Errorf("record.stop_hotkey: %w", err)
		}
	}

	if c.Playback.Speed <= 0 {
		return errors.New("playback.speed must be positive")
	}
	if c.Playback.Loops < 1 {
		return errors.New("playback.loops must be at least 1")
	}
	if !slices.Contains(synthBackends, c.Playback.Synth) {
		return fmt.Errorf("playback.synth %q is not one of %s", c.Playback.Synth, strings.Join(synthBackends, ", "))
	}
	if _, err := schedule.ParseTimeRange(c.Playback.Window); err != nil {
		return fmt.Errorf("playback.window: %w", err)
	}
	if c.Playback.ScreenWidth <= 0 || c.Playback.ScreenHeight <= 0 {
		return errors.New("playback.screen_width and playback.screen_height must be positive")
	}

	a := c.Autoclick
	if a.IntervalMS < 0 || a.JitterMinMS < 0 || a.JitterMaxMS < 0 {
		return errors.New("autoclick intervals must not be negative")
	}
	if a.JitterMinMS > a.JitterMaxMS {
		return errors.New("autoclick.jitter_min_ms must not exceed autoclick.jitter_max_ms")
	}
	if a.HalfWidth < 0 || a.HalfHeight < 0 {
		return errors.New("autoclick.half_width and autoclick.half_height must not be negative")
	}
	if _, err := events.ParseButton(a.Button); err != nil {
		return fmt.Errorf("autoclick.button: %w", err)
	}
	if a.Clicks < 1 {
		return errors.New("autoclick.clicks must be at least 1")
	}
	if a.HoldMS < 0 {
		return errors.New("autoclick.hold_ms must not be negative")
	}
	if a.HoldMS > 0 && a.Clicks != 1 {
		return errors.New("autoclick.hold_ms requires autoclick.clicks = 1")
	}
	if a.Repeat < 1 {
		return errors.New("autoclick.repeat must be at least 1")
	}

	return nil
}

func (c *Config) normalize() {
	defaults := Default()

	c.Paths.MacrosDir = cleanPath(c.Paths.MacrosDir, defaults.Paths.MacrosDir)
	c.Paths.RunsDir = cleanPath(c.Paths.RunsDir, defaults.Paths.RunsDir)
	c.Paths.LibraryDB = cleanPath(c.Paths.LibraryDB, defaults.Paths.LibraryDB)

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaults.Logging.Format
	}

	c.Hook.Backend = strings.ToLower(strings.TrimSpace(c.Hook.Backend))
	if c.Hook.Backend == "" {
		c.Hook.Backend = defaults.Hook.Backend
	}
	if c.Hook.QueueSize == 0 {
		c.Hook.QueueSize = defaults.Hook.QueueSize
	}

	c.Record.StopHotkey = strings.TrimSpace(c.Record.StopHotkey)

	c.Playback.Synth = strings.ToLower(strings.TrimSpace(c.Playback.Synth))
	if c.Playback.Synth == "" {
		c.Playback.Synth = defaults.Playback.Synth
	}
	c.Playback.Window = strings.TrimSpace(c.Playback.Window)
	if c.Playback.Speed == 0 {
		c.Playback.Speed = defaults.Playback.Speed
	}
	if c.Playback.Loops == 0 {
		c.Playback.Loops = defaults.Playback.Loops
	}
	if strings.TrimSpace(c.Playback.BrowserURL) == "" {
		c.Playback.BrowserURL = defaults.Playback.BrowserURL
	}

	c.Autoclick.Button = strings.ToLower(strings.TrimSpace(c.Autoclick.Button))
	if c.Autoclick.Button == "" {
		c.Autoclick.Button = defaults.Autoclick.Button
	}
}

func cleanPath(value, fallback string) string {
	cleaned := filepath.Clean(strings.TrimSpace(value))
	if cleaned == "." || cleaned == "" {
		return fallback
	}
	return cleaned
}

// NormalizeLogLevel validates and lowercases known logging levels.
func NormalizeLogLevel(level string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return "info", nil
	case "debug":
		return "debug", nil
	case "warn", "warning":
		return "warn", nil
	case "error":
		return "error", nil
	default:
		return "", fmt.Errorf("unsupported log level %q", level)
	}
}

// NormalizeFormat validates and canonicalizes logging format identifiers.
func NormalizeFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return "json", nil
	case "console", "text":
		return "console", nil
	default:
		return "", fmt.Errorf("unsupported log format %q", format)
	}
}
