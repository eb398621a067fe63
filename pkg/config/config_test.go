package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	defer os.Chdir(cwd)

	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir temp dir: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.MacrosDir != "macros" || cfg.Paths.RunsDir != "runs" {
		t.Fatalf("unexpected default paths: %+v", cfg.Paths)
	}
	if cfg.Source != "<defaults>" {
		t.Fatalf("expected default source marker, got %q", cfg.Source)
	}
	if cfg.Playback.Speed != 1 || cfg.Playback.Loops != 1 {
		t.Fatalf("unexpected default playback: %+v", cfg.Playback)
	}
	if cfg.Hook.QueueSize != 4096 || cfg.Hook.Backend != "auto" {
		t.Fatalf("unexpected default hook: %+v", cfg.Hook)
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadFromYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "macrohook.yaml")
	content := `paths:
  macros_dir: ./saved/
  runs_dir: artifacts
logging:
  level: DEBUG
  format: console
hook:
  backend: Terminal
  devices: [/dev/input/event3]
record:
  ignore_moves: true
  exclude_keys: [f8, escape]
  stop_hotkey: ctrl+alt+q
playback:
  speed: 2.5
  loops: 3
  synth: dryrun
  window: "23:00-02:00"
autoclick:
  interval_ms: 250
  jitter_min_ms: 10
  jitter_max_ms: 40
  button: Right
  clicks: 2
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Paths.MacrosDir != "saved" || cfg.Paths.RunsDir != "artifacts" {
		t.Fatalf("unexpected paths: %+v", cfg.Paths)
	}
	if cfg.Paths.LibraryDB != filepath.Join("macros", "library.db") {
		t.Fatalf("expected untouched library path, got %q", cfg.Paths.LibraryDB)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Fatalf("unexpected logging: %+v", cfg.Logging)
	}
	if cfg.Hook.Backend != "terminal" || len(cfg.Hook.Devices) != 1 || cfg.Hook.QueueSize != 4096 {
		t.Fatalf("unexpected hook: %+v", cfg.Hook)
	}
	if !cfg.Record.IgnoreMoves || len(cfg.Record.ExcludeKeys) != 2 || cfg.Record.StopHotkey != "ctrl+alt+q" {
		t.Fatalf("unexpected record: %+v", cfg.Record)
	}
	if cfg.Playback.Speed != 2.5 || cfg.Playback.Loops != 3 || cfg.Playback.Synth != "dryrun" || cfg.Playback.Window != "23:00-02:00" {
		t.Fatalf("unexpected playback: %+v", cfg.Playback)
	}
	if !cfg.Playback.Headless || cfg.Playback.ScreenWidth != 1920 {
		t.Fatalf("expected playback defaults to survive: %+v", cfg.Playback)
	}
	if cfg.Autoclick.Button != "right" || cfg.Autoclick.Clicks != 2 || cfg.Autoclick.JitterMaxMS != 40 {
		t.Fatalf("unexpected autoclick: %+v", cfg.Autoclick)
	}
	if cfg.Source != cfgPath {
		t.Fatalf("expected source to equal path, got %q", cfg.Source)
	}
}

func TestLoadFromTOML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "macrohook.toml")
	content := `[paths]
runs_dir = "toml-runs"

[playback]
speed = 0.5
synth = "browser"
headless = false
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.RunsDir != "toml-runs" || cfg.Playback.Speed != 0.5 || cfg.Playback.Synth != "browser" || cfg.Playback.Headless {
		t.Fatalf("unexpected toml config: %+v", cfg)
	}
}

func TestLoadFindsDefaultFileName(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	defer os.Chdir(cwd)
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir temp dir: %v", err)
	}
	if err := os.WriteFile("macrohook.toml", []byte("[playback]\nloops = 4\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Playback.Loops != 4 || cfg.Source != "macrohook.toml" {
		t.Fatalf("expected default toml to load, got loops=%d source=%q", cfg.Playback.Loops, cfg.Source)
	}
}

func TestLoadRejectsBadFiles(t *testing.T) {
	cases := map[string]string{
		"unknown.yaml": "capture:\n  unsupported: true\n",
		"unknown.toml": "[hook]\nmystery = 1\n",
		"speed.yaml":   "playback:\n  speed: -1\n",
		"backend.yaml": "hook:\n  backend: x11\n",
		"window.yaml":  "playback:\n  window: \"09:00-09:00\"\n",
		"hotkey.yaml":  "record:\n  stop_hotkey: ctrl+hyper\n",
		"exclude.yaml": "record:\n  exclude_keys: [nokey]\n",
		"jitter.yaml":  "autoclick:\n  jitter_min_ms: 50\n  jitter_max_ms: 10\n",
		"hold.yaml":    "autoclick:\n  clicks: 2\n  hold_ms: 100\n",
		"log.yaml":     "logging:\n  level: chatty\n",
		"synth.yaml":   "playback:\n  synth: robot\n",
		"button.yaml":  "autoclick:\n  button: sideways\n",
	}
	dir := t.TempDir()
	for name, content := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if _, err := Load(path); err == nil {
			t.Fatalf("%s: expected an error", name)
		}
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestNormalizeHelpers(t *testing.T) {
	if got, err := NormalizeLogLevel("WARNING"); err != nil || got != "warn" {
		t.Fatalf("unexpected level %q (%v)", got, err)
	}
	if got, err := NormalizeFormat("text"); err != nil || got != "console" {
		t.Fatalf("unexpected format %q (%v)", got, err)
	}
	if _, err := NormalizeFormat("xml"); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestLoadValidatesHotkeyWithoutDisplay(t *testing.T) {
	t.Setenv("DISPLAY", "")
	t.Setenv("WAYLAND_DISPLAY", "")
	os.Unsetenv("DISPLAY")
	os.Unsetenv("WAYLAND_DISPLAY")

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "headless.yaml")
	content := "hook:\n  backend: evdev\nrecord:\n  stop_hotkey: ctrl+shift+f8\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Record.StopHotkey != "ctrl+shift+f8" || cfg.Hook.Backend != "evdev" {
		t.Fatalf("unexpected headless config: %+v %+v", cfg.Record, cfg.Hook)
	}
}
