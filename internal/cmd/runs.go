package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/offlinefirst/macrohook/internal/buildinfo"
	"github.com/offlinefirst/macrohook/pkg/runmanifest"
)

var (
	timeNow      = time.Now
	hostname     = os.Hostname
	manifestSave = runmanifest.Save
)

// sessionRun tracks the manifest and journal of one record, play or
// autoclick invocation.
type sessionRun struct {
	layout   runmanifest.Layout
	manifest runmanifest.Manifest
	journal  *os.File
}

func beginRun(app *AppContext, kind string) (*sessionRun, error) {
	runsDir := app.Config.Paths.RunsDir
	if err := os.MkdirAll(runsDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure runs directory: %w", err)
	}

	runID, err := runmanifest.ResolveRunID(runsDir, kind, timeNow())
	if err != nil {
		return nil, fmt.Errorf("resolve run id: %w", err)
	}

	layout := runmanifest.BuildLayout(runsDir, runID)
	if err := runmanifest.EnsureFilesystem(layout); err != nil {
		return nil, fmt.Errorf("prepare run filesystem: %w", err)
	}

	host, err := hostname()
	if err != nil {
		host = "unknown"
	}

	manifest := runmanifest.New(runmanifest.Options{
		RunID:      runID,
		Kind:       kind,
		CreatedAt:  timeNow(),
		Hostname:   host,
		AppVersion: buildinfo.Describe(),
		Config:     app.Config,
		Layout:     layout,
	})
	if err := manifestSave(manifest, layout.ManifestPath); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	journal, err := runmanifest.OpenJournal(layout)
	if err != nil {
		return nil, err
	}

	manifest.Start(timeNow())
	if err := manifestSave(manifest, layout.ManifestPath); err != nil {
		journal.Close()
		return nil, fmt.Errorf("update manifest status: %w", err)
	}

	app.Logger.Info("session run prepared", "run_id", runID, "kind", kind, "root", layout.Root)
	return &sessionRun{layout: layout, manifest: manifest, journal: journal}, nil
}

// finish stamps the final state and persists the manifest. runErr is
// returned unchanged unless persisting fails as well.
func (r *sessionRun) finish(termination string, runErr error) error {
	r.manifest.Finish(timeNow(), termination, runErr)
	if r.journal != nil {
		r.journal.Close()
	}
	if err := manifestSave(r.manifest, r.layout.ManifestPath); err != nil {
		if runErr != nil {
			return fmt.Errorf("%v (additionally failed to persist manifest: %w)", runErr, err)
		}
		return fmt.Errorf("finalise manifest: %w", err)
	}
	return runErr
}
