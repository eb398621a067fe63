// Package runmanifest writes a JSON record of every record, play or
// autoclick session so runs can be audited after the fact.
package runmanifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/offlinefirst/macrohook/pkg/capture"
	"github.com/offlinefirst/macrohook/pkg/config"
	"github.com/offlinefirst/macrohook/pkg/player"
	"github.com/offlinefirst/macrohook/pkg/session"
)

// SchemaVersion captures the manifest version for compatibility checks.
const SchemaVersion = 1

// Session kinds.
const (
	KindRecord    = "record"
	KindPlay      = "play"
	KindAutoclick = "autoclick"
)

// Run states.
const (
	StatePending   = "pending"
	StateRunning   = "running"
	StateCompleted = "completed"
	StateCancelled = "cancelled"
	StateErrored   = "error"
)

// Layout represents the absolute filesystem locations for a run.
type Layout struct {
	Root         string
	ManifestPath string
	JournalPath  string
}

// Paths holds the relative locations stored in the manifest for portability.
type Paths struct {
	Root     string `json:"root"`
	Manifest string `json:"manifest"`
	Journal  string `json:"journal"`
}

// MacroInfo identifies the macro a run produced or consumed.
type MacroInfo struct {
	Name   string `json:"name,omitempty"`
	ID     string `json:"id,omitempty"`
	Path   string `json:"path,omitempty"`
	Events int    `json:"events"`
}

// Settings records the engine configuration the run used.
type Settings struct {
	HookBackend  string  `json:"hook_backend,omitempty"`
	SynthBackend string  `json:"synth_backend,omitempty"`
	Speed        float64 `json:"speed,omitempty"`
	Loops        int     `json:"loops,omitempty"`
	Window       string  `json:"window,omitempty"`
	IgnoreMoves  bool    `json:"ignore_moves,omitempty"`
}

// Status summarises the lifecycle of a run.
type Status struct {
	State       string                    `json:"state"`
	Summary     string                    `json:"summary,omitempty"`
	StartedAt   *time.Time                `json:"started_at,omitempty"`
	EndedAt     *time.Time                `json:"ended_at,omitempty"`
	Termination string                    `json:"termination,omitempty"`
	Controller  []ControllerTimelineEntry `json:"controller_timeline,omitempty"`
	Capture     *CaptureSummary           `json:"capture,omitempty"`
	Playback    *PlaybackSummary          `json:"playback,omitempty"`
}

// ControllerTimelineEntry records controller state transitions for diagnostics.
type ControllerTimelineEntry struct {
	State     string    `json:"state"`
	Reason    string    `json:"reason,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// CaptureSummary is the manifest form of capture.Stats.
type CaptureSummary struct {
	Received int            `json:"received"`
	Recorded int            `json:"recorded"`
	Filtered int            `json:"filtered"`
	Overflow int            `json:"overflow"`
	Clamped  int            `json:"clamped"`
	Dropped  map[string]int `json:"dropped,omitempty"`
}

// PlaybackSummary is the manifest form of player.Result.
type PlaybackSummary struct {
	Emitted        int     `json:"emitted"`
	LoopsCompleted int     `json:"loops_completed"`
	Cancelled      bool    `json:"cancelled"`
	LastIndex      int     `json:"last_index"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	PausedSeconds  float64 `json:"paused_seconds,omitempty"`
	Error          string  `json:"error,omitempty"`
}

// Manifest is the durable metadata describing a run.
type Manifest struct {
	SchemaVersion int       `json:"schema_version"`
	RunID         string    `json:"run_id"`
	Kind          string    `json:"kind"`
	CreatedAt     time.Time `json:"created_at"`
	Hostname      string    `json:"hostname"`
	AppVersion    string    `json:"app_version"`
	ConfigSource  string    `json:"config_source"`
	Macro         MacroInfo `json:"macro"`
	Settings      Settings  `json:"settings"`
	Paths         Paths     `json:"paths"`
	Status        Status    `json:"status"`
}

// Options captures the knobs for creating a new manifest.
type Options struct {
	RunID      string
	Kind       string
	CreatedAt  time.Time
	Hostname   string
	AppVersion string
	Config     config.Config
	Layout     Layout
}

// New constructs a manifest using the supplied options.
func New(opts Options) Manifest {
	return Manifest{
		SchemaVersion: SchemaVersion,
		RunID:         opts.RunID,
		Kind:          opts.Kind,
		CreatedAt:     opts.CreatedAt.UTC(),
		Hostname:      opts.Hostname,
		AppVersion:    opts.AppVersion,
		ConfigSource:  opts.Config.Source,
		Settings: Settings{
			HookBackend:  opts.Config.Hook.Backend,
			SynthBackend: opts.Config.Playback.Synth,
			Speed:        opts.Config.Playback.Speed,
			Loops:        opts.Config.Playback.Loops,
			Window:       opts.Config.Playback.Window,
			IgnoreMoves:  opts.Config.Record.IgnoreMoves,
		},
		Paths:  opts.Layout.RelativePaths(),
		Status: Status{State: StatePending},
	}
}

// Start marks the run as running.
func (m *Manifest) Start(at time.Time) {
	started := at.UTC()
	m.Status.State = StateRunning
	m.Status.StartedAt = &started
}

// Finish closes the run. A nil err with termination "cancelled" records a
// cancelled run; any err records a failure.
func (m *Manifest) Finish(at time.Time, termination string, err error) {
	ended := at.UTC()
	m.Status.EndedAt = &ended
	m.Status.Termination = termination
	switch {
	case err != nil:
		m.Status.State = StateErrored
		m.Status.Summary = err.Error()
	case termination == StateCancelled:
		m.Status.State = StateCancelled
	default:
		m.Status.State = StateCompleted
	}
}

// RecordTimeline copies the controller transitions into the manifest.
func (m *Manifest) RecordTimeline(changes []session.Change) {
	m.Status.Controller = m.Status.Controller[:0]
	for _, change := range changes {
		entry := ControllerTimelineEntry{
			State:     change.To.String(),
			Reason:    change.Reason,
			Timestamp: change.At.UTC(),
		}
		if change.Err != nil {
			entry.Error = change.Err.Error()
		}
		m.Status.Controller = append(m.Status.Controller, entry)
	}
}

// RecordCapture stores recording statistics.
func (m *Manifest) RecordCapture(stats capture.Stats) {
	summary := &CaptureSummary{
		Received: stats.Received,
		Recorded: stats.Recorded,
		Filtered: stats.Filtered,
		Overflow: stats.Overflow,
		Clamped:  stats.Clamped,
	}
	if len(stats.Normalized.Dropped) > 0 {
		summary.Dropped = make(map[string]int, len(stats.Normalized.Dropped))
		for reason, n := range stats.Normalized.Dropped {
			summary.Dropped[reason] = n
		}
	}
	m.Status.Capture = summary
}

// RecordPlayback stores a playback outcome.
func (m *Manifest) RecordPlayback(res player.Result, err error) {
	summary := &PlaybackSummary{
		Emitted:        res.Emitted,
		LoopsCompleted: res.LoopsCompleted,
		Cancelled:      res.Cancelled,
		LastIndex:      res.LastIndex,
		ElapsedSeconds: res.Elapsed.Seconds(),
		PausedSeconds:  res.Paused.Seconds(),
	}
	if err != nil {
		summary.Error = err.Error()
	}
	m.Status.Playback = summary
}

// BuildLayout creates an absolute filesystem layout for a run.
func BuildLayout(runsDir, runID string) Layout {
	root := filepath.Join(runsDir, runID)
	return Layout{
		Root:         root,
		ManifestPath: filepath.Join(root, "manifest.json"),
		JournalPath:  filepath.Join(root, "session.log"),
	}
}

// RelativePaths exposes the manifest-friendly relative paths for the layout.
func (l Layout) RelativePaths() Paths {
	return Paths{
		Root:     ".",
		Manifest: filepath.Base(l.ManifestPath),
		Journal:  filepath.Base(l.JournalPath),
	}
}

// EnsureFilesystem creates the run directory and an empty journal.
func EnsureFilesystem(layout Layout) error {
	if err := os.MkdirAll(layout.Root, 0o755); err != nil {
		return fmt.Errorf("create run root: %w", err)
	}
	file, err := os.OpenFile(layout.JournalPath, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("initialise session journal: %w", err)
	}
	return file.Close()
}

// OpenJournal opens the run journal for appending.
func OpenJournal(layout Layout) (*os.File, error) {
	file, err := os.OpenFile(layout.JournalPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open session journal: %w", err)
	}
	return file, nil
}

// Save writes the manifest JSON to disk with indentation for readability.
func Save(man Manifest, path string) error {
	data, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Load reads a manifest JSON file from disk.
func Load(path string) (Manifest, error) {
	var man Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return man, fmt.Errorf("read manifest: %w", err)
	}
	if err := json.Unmarshal(data, &man); err != nil {
		return man, fmt.Errorf("decode manifest: %w", err)
	}
	return man, nil
}

// ResolveRunID chooses a run identifier derived from the timestamp and kind
// and avoids collisions.
func ResolveRunID(runsDir, kind string, now time.Time) (string, error) {
	if strings.TrimSpace(runsDir) == "" {
		return "", errors.New("runs directory must not be empty")
	}

	base := now.UTC().Format("20060102_150405")
	if kind != "" {
		base += "_" + kind
	}
	candidate := base
	suffix := 1
	for {
		_, err := os.Stat(filepath.Join(runsDir, candidate))
		if err == nil {
			candidate = fmt.Sprintf("%s_%02d", base, suffix)
			suffix++
			continue
		}
		if errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}
		return "", fmt.Errorf("inspect runs directory: %w", err)
	}
}
