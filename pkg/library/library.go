// Package library keeps a SQLite index of the macro files in a directory so
// macros can be listed and looked up by name without decoding every file.
package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/offlinefirst/macrohook/pkg/store"
)

// ErrNotFound is returned by Lookup when no indexed macro matches.
var ErrNotFound = errors.New("macro not found in library")

const schema = `
CREATE TABLE IF NOT EXISTS macros (
	path        TEXT PRIMARY KEY,
	id          TEXT NOT NULL,
	name        TEXT NOT NULL,
	events      INTEGER NOT NULL,
	created_at  INTEGER NOT NULL,
	modified_at INTEGER NOT NULL,
	size        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS macros_name ON macros(name);
`

// Entry is one indexed macro file.
type Entry struct {
	Path       string
	ID         string
	Name       string
	Events     int
	CreatedAt  time.Time
	ModifiedAt time.Time
	Size       int64
}

// SyncResult lists what a Sync changed. Skipped holds unreadable files.
type SyncResult struct {
	Added     []string
	Updated   []string
	Removed   []string
	Skipped   []string
	Unchanged int
}

// Changed reports whether the index was modified.
func (r SyncResult) Changed() bool {
	return len(r.Added)+len(r.Updated)+len(r.Removed) > 0
}

// Library is an open index database.
type Library struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens or creates the index at path; ":memory:" keeps it in memory.
func Open(path string, logger *slog.Logger) (*Library, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create library directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open library: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("library ping failed: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create library schema: %w", err)
	}
	return &Library{db: db, logger: logger}, nil
}

// Close releases the database.
func (l *Library) Close() error {
	return l.db.Close()
}

// Sync indexes every macro file directly inside dir and prunes entries whose
// files are gone. Files whose size and modification time are unchanged are
// not re-read.
func (l *Library) Sync(ctx context.Context, dir string) (SyncResult, error) {
	var res SyncResult
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return res, fmt.Errorf("resolve %s: %w", dir, err)
	}
	matches, err := filepath.Glob(filepath.Join(absDir, "*"+store.Extension))
	if err != nil {
		return res, fmt.Errorf("scan %s: %w", absDir, err)
	}
	sort.Strings(matches)

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin sync: %w", err)
	}
	defer tx.Rollback()

	known, err := indexedUnder(ctx, tx, absDir)
	if err != nil {
		return res, err
	}

	seen := make(map[string]bool, len(matches))
	for _, path := range matches {
		stat, err := os.Stat(path)
		if err != nil || !stat.Mode().IsRegular() {
			continue
		}
		seen[path] = true
		modified := stat.ModTime().UnixNano()
		if prev, ok := known[path]; ok && prev.modified == modified && prev.size == stat.Size() {
			res.Unchanged++
			continue
		}

		info, err := store.ReadInfo(path)
		if err != nil {
			l.logger.Warn("skipping unreadable macro", "path", path, "error", err)
			res.Skipped = append(res.Skipped, path)
			delete(seen, path)
			continue
		}

		var created int64
		if !info.CreatedAt.IsZero() {
			created = info.CreatedAt.UnixMicro()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO macros (path, id, name, events, created_at, modified_at, size)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET
				id = excluded.id,
				name = excluded.name,
				events = excluded.events,
				created_at = excluded.created_at,
				modified_at = excluded.modified_at,
				size = excluded.size`,
			path, info.ID.String(), info.Name, info.EventCount, created, modified, stat.Size(),
		); err != nil {
			return res, fmt.Errorf("index %s: %w", path, err)
		}
		if _, ok := known[path]; ok {
			res.Updated = append(res.Updated, path)
		} else {
			res.Added = append(res.Added, path)
		}
	}

	for path := range known {
		if seen[path] {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM macros WHERE path = ?`, path); err != nil {
			return res, fmt.Errorf("prune %s: %w", path, err)
		}
		res.Removed = append(res.Removed, path)
	}
	sort.Strings(res.Removed)

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("commit sync: %w", err)
	}
	l.logger.Debug("library synced",
		"dir", absDir,
		"added", len(res.Added),
		"updated", len(res.Updated),
		"removed", len(res.Removed),
		"skipped", len(res.Skipped),
	)
	return res, nil
}

type fileState struct {
	modified int64
	size     int64
}

func indexedUnder(ctx context.Context, tx *sql.Tx, dir string) (map[string]fileState, error) {
	rows, err := tx.QueryContext(ctx, `SELECT path, modified_at, size FROM macros`)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	defer rows.Close()

	known := make(map[string]fileState)
	for rows.Next() {
		var path string
		var state fileState
		if err := rows.Scan(&path, &state.modified, &state.size); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		if filepath.Dir(path) == dir {
			known[path] = state
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return known, nil
}

// List returns every indexed macro ordered by name then path.
func (l *Library) List(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT path, id, name, events, created_at, modified_at, size
		FROM macros ORDER BY name COLLATE NOCASE, path`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return entries, nil
}

// Lookup finds a macro by its recorded name, falling back to the file name
// without extension. Names compare case-insensitively.
func (l *Library) Lookup(ctx context.Context, name string) (Entry, error) {
	entries, err := l.List(ctx)
	if err != nil {
		return Entry{}, err
	}
	want := strings.TrimSpace(name)
	for _, entry := range entries {
		if strings.EqualFold(entry.Name, want) {
			return entry, nil
		}
	}
	for _, entry := range entries {
		base := strings.TrimSuffix(filepath.Base(entry.Path), store.Extension)
		if strings.EqualFold(base, want) {
			return entry, nil
		}
	}
	return Entry{}, fmt.Errorf("%q: %w", name, ErrNotFound)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var entry Entry
	var created, modified int64
	if err := row.Scan(&entry.Path, &entry.ID, &entry.Name, &entry.Events, &created, &modified, &entry.Size); err != nil {
		return Entry{}, fmt.Errorf("scan failed: %w", err)
	}
	if created != 0 {
		entry.CreatedAt = time.UnixMicro(created).UTC()
	}
	entry.ModifiedAt = time.Unix(0, modified).UTC()
	return entry, nil
}
