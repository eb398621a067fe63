package runmanifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/offlinefirst/macrohook/pkg/capture"
	"github.com/offlinefirst/macrohook/pkg/config"
	"github.com/offlinefirst/macrohook/pkg/events"
	"github.com/offlinefirst/macrohook/pkg/player"
	"github.com/offlinefirst/macrohook/pkg/session"
)

func TestBuildLayoutAndRelativePaths(t *testing.T) {
	layout := BuildLayout("/tmp/runs", "20240512_093000_record")

	if layout.Root != filepath.Join("/tmp/runs", "20240512_093000_record") {
		t.Fatalf("unexpected root: %s", layout.Root)
	}
	if layout.ManifestPath != filepath.Join(layout.Root, "manifest.json") {
		t.Fatalf("unexpected manifest path: %s", layout.ManifestPath)
	}

	rel := layout.RelativePaths()
	if rel.Root != "." {
		t.Fatalf("expected relative root '.', got %q", rel.Root)
	}
	if rel.Manifest != "manifest.json" || rel.Journal != "session.log" {
		t.Fatalf("unexpected relative paths: %+v", rel)
	}
}

func TestEnsureFilesystemCreatesJournal(t *testing.T) {
	layout := BuildLayout(t.TempDir(), "run")

	if err := EnsureFilesystem(layout); err != nil {
		t.Fatalf("EnsureFilesystem failed: %v", err)
	}
	info, err := os.Stat(layout.Root)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected run directory at %s: %v", layout.Root, err)
	}
	if _, err := os.Stat(layout.JournalPath); err != nil {
		t.Fatalf("expected journal at %s: %v", layout.JournalPath, err)
	}

	journal, err := OpenJournal(layout)
	if err != nil {
		t.Fatalf("OpenJournal failed: %v", err)
	}
	if _, err := journal.WriteString("first\n"); err != nil {
		t.Fatalf("write journal: %v", err)
	}
	journal.Close()

	// Re-running must not truncate what was already written.
	if err := EnsureFilesystem(layout); err != nil {
		t.Fatalf("second EnsureFilesystem failed: %v", err)
	}
	data, err := os.ReadFile(layout.JournalPath)
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}
	if string(data) != "first\n" {
		t.Fatalf("journal was truncated: %q", data)
	}
}

func TestManifestLifecycleRoundTrip(t *testing.T) {
	dir := t.TempDir()
	layout := BuildLayout(dir, "run-1")
	if err := EnsureFilesystem(layout); err != nil {
		t.Fatalf("EnsureFilesystem failed: %v", err)
	}

	cfg := config.Default()
	cfg.Source = "macrohook.yaml"
	cfg.Playback.Speed = 2
	cfg.Playback.Window = "08:00-18:00"
	created := time.Date(2024, 5, 12, 9, 30, 0, 0, time.FixedZone("CEST", 2*3600))

	man := New(Options{
		RunID:      "run-1",
		Kind:       KindPlay,
		CreatedAt:  created,
		Hostname:   "workstation",
		AppVersion: "test",
		Config:     cfg,
		Layout:     layout,
	})
	if man.Status.State != StatePending {
		t.Fatalf("expected pending state, got %s", man.Status.State)
	}
	if man.CreatedAt.Location() != time.UTC || man.CreatedAt.Hour() != 7 {
		t.Fatalf("expected UTC creation time, got %v", man.CreatedAt)
	}
	if man.Settings.Speed != 2 || man.Settings.Window != "08:00-18:00" || man.Settings.HookBackend != "auto" {
		t.Fatalf("unexpected settings: %+v", man.Settings)
	}
	man.Macro = MacroInfo{Name: "login", Events: 3}

	man.Start(created)
	if man.Status.State != StateRunning || man.Status.StartedAt == nil {
		t.Fatalf("expected running state with start time: %+v", man.Status)
	}

	at := created.Add(time.Second)
	man.RecordTimeline([]session.Change{
		{From: session.StateIdle, To: session.StatePlaying, Reason: "play login", At: at},
		{From: session.StatePlaying, To: session.StateIdle, Reason: "cancelled", At: at.Add(time.Second)},
	})
	man.RecordPlayback(player.Result{
		Emitted:        2,
		LoopsCompleted: 0,
		Cancelled:      true,
		LastIndex:      1,
		Elapsed:        1500 * time.Millisecond,
	}, nil)
	man.Finish(at.Add(time.Second), StateCancelled, nil)

	if err := Save(man, layout.ManifestPath); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(layout.ManifestPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.SchemaVersion != SchemaVersion || loaded.RunID != "run-1" || loaded.Kind != KindPlay {
		t.Fatalf("unexpected identity: %+v", loaded)
	}
	if loaded.ConfigSource != "macrohook.yaml" || loaded.Macro.Name != "login" {
		t.Fatalf("unexpected source or macro: %+v", loaded)
	}
	if loaded.Status.State != StateCancelled || loaded.Status.Termination != StateCancelled {
		t.Fatalf("unexpected final status: %+v", loaded.Status)
	}
	if len(loaded.Status.Controller) != 2 || loaded.Status.Controller[0].State != "playing" || loaded.Status.Controller[1].Reason != "cancelled" {
		t.Fatalf("unexpected controller timeline: %+v", loaded.Status.Controller)
	}
	if loaded.Status.Playback == nil || loaded.Status.Playback.Emitted != 2 || loaded.Status.Playback.ElapsedSeconds != 1.5 {
		t.Fatalf("unexpected playback summary: %+v", loaded.Status.Playback)
	}
	if loaded.Status.Capture != nil {
		t.Fatalf("playback run must not carry capture stats")
	}
}

func TestManifestRecordsFailures(t *testing.T) {
	man := New(Options{RunID: "r", Kind: KindRecord, Config: config.Default(), Layout: BuildLayout("runs", "r")})
	man.RecordCapture(capture.Stats{
		Received:   10,
		Normalized: events.NormalizerStats{Accepted: 8, Dropped: map[string]int{"unknown_key": 2}},
		Filtered:   1,
		Recorded:   7,
	})
	boom := errors.New("hook vanished")
	man.RecordTimeline([]session.Change{{From: session.StateRecording, To: session.StateIdle, Reason: "recording stopped", Err: boom}})
	man.RecordPlayback(player.Result{LastIndex: -1}, boom)
	man.Finish(time.Now(), "stopped", boom)

	if man.Status.State != StateErrored || man.Status.Summary != "hook vanished" {
		t.Fatalf("expected errored status, got %+v", man.Status)
	}
	if man.Status.Capture.Recorded != 7 || man.Status.Capture.Dropped["unknown_key"] != 2 {
		t.Fatalf("unexpected capture summary: %+v", man.Status.Capture)
	}
	if man.Status.Controller[0].Error != "hook vanished" {
		t.Fatalf("expected timeline error, got %+v", man.Status.Controller[0])
	}
	if man.Status.Playback.Error != "hook vanished" {
		t.Fatalf("expected playback error, got %+v", man.Status.Playback)
	}
}

func TestResolveRunIDAvoidsCollisions(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 5, 12, 9, 30, 0, 0, time.UTC)

	first, err := ResolveRunID(dir, KindRecord, now)
	if err != nil {
		t.Fatalf("ResolveRunID failed: %v", err)
	}
	if first != "20240512_093000_record" {
		t.Fatalf("unexpected run id: %s", first)
	}
	if err := os.MkdirAll(filepath.Join(dir, first), 0o755); err != nil {
		t.Fatalf("create collision dir: %v", err)
	}

	second, err := ResolveRunID(dir, KindRecord, now)
	if err != nil {
		t.Fatalf("ResolveRunID failed: %v", err)
	}
	if second != first+"_01" {
		t.Fatalf("expected collision suffix, got %s", second)
	}

	bare, err := ResolveRunID(dir, "", now)
	if err != nil || bare != "20240512_093000" {
		t.Fatalf("unexpected bare run id %q (%v)", bare, err)
	}
}

func TestResolveRunIDRequiresDirectory(t *testing.T) {
	if _, err := ResolveRunID("  ", KindPlay, time.Now()); err == nil || !strings.Contains(err.Error(), "must not be empty") {
		t.Fatalf("expected empty directory error, got %v", err)
	}
}
