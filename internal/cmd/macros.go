package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/offlinefirst/macrohook/pkg/hotkey"
	"github.com/offlinefirst/macrohook/pkg/hotkey/native"
	"github.com/offlinefirst/macrohook/pkg/library"
	"github.com/offlinefirst/macrohook/pkg/macro"
	"github.com/offlinefirst/macrohook/pkg/store"
)

func openLibrary(ctx context.Context, app *AppContext) (*library.Library, library.SyncResult, error) {
	if err := os.MkdirAll(app.Config.Paths.MacrosDir, 0o755); err != nil {
		return nil, library.SyncResult{}, fmt.Errorf("ensure macros directory: %w", err)
	}
	lib, err := library.Open(app.Config.Paths.LibraryDB, app.Logger)
	if err != nil {
		return nil, library.SyncResult{}, err
	}
	res, err := lib.Sync(ctx, app.Config.Paths.MacrosDir)
	if err != nil {
		lib.Close()
		return nil, library.SyncResult{}, err
	}
	return lib, res, nil
}

// loadMacro accepts a file path in any supported format or the name of a
// macro in the library.
func loadMacro(ctx context.Context, app *AppContext, ref string) (macro.Macro, string, error) {
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		m, err := loadMacroFile(ref)
		return m, ref, err
	}
	if strings.ContainsRune(ref, os.PathSeparator) || filepath.Ext(ref) != "" {
		return macro.Macro{}, "", fmt.Errorf("macro file %q not found", ref)
	}

	lib, _, err := openLibrary(ctx, app)
	if err != nil {
		return macro.Macro{}, "", err
	}
	defer lib.Close()

	entry, err := lib.Lookup(ctx, ref)
	if err != nil {
		if errors.Is(err, library.ErrNotFound) {
			return macro.Macro{}, "", fmt.Errorf("macro %q not found in %s", ref, app.Config.Paths.MacrosDir)
		}
		return macro.Macro{}, "", err
	}
	m, err := store.Load(entry.Path)
	return m, entry.Path, err
}

func loadMacroFile(path string) (macro.Macro, error) {
	format, err := store.FormatFromPath(path)
	if err != nil {
		return macro.Macro{}, err
	}
	if format == store.FormatBinary {
		return store.Load(path)
	}
	file, err := os.Open(path)
	if err != nil {
		return macro.Macro{}, fmt.Errorf("open macro: %w", err)
	}
	defer file.Close()
	return store.Import(file, format)
}

// saveMacro writes m into the macros directory unless out names a path.
func saveMacro(app *AppContext, m macro.Macro, out string) (string, error) {
	path := out
	if path == "" {
		if err := os.MkdirAll(app.Config.Paths.MacrosDir, 0o755); err != nil {
			return "", fmt.Errorf("ensure macros directory: %w", err)
		}
		path = filepath.Join(app.Config.Paths.MacrosDir, store.FileName(m.Name))
	}
	if err := store.Save(m, path); err != nil {
		return "", err
	}
	return path, nil
}

// listenHotkey calls fn whenever spec is pressed until ctx ends. A hotkey
// that cannot be registered is logged and otherwise ignored; without a native
// backend only recordings can be stopped by hotkey.
func listenHotkey(ctx context.Context, app *AppContext, purpose, spec string, fn func()) {
	if strings.TrimSpace(spec) == "" {
		return
	}
	binding, err := hotkey.Parse(spec)
	if err != nil {
		app.Logger.Warn("ignoring hotkey", "purpose", purpose, "hotkey", spec, "error", err)
		return
	}
	if !native.Supported {
		app.Logger.Debug("no native hotkey backend", "purpose", purpose, "hotkey", binding.String())
		return
	}
	go func() {
		if err := native.Listen(ctx, binding, fn); err != nil {
			app.Logger.Warn("hotkey unavailable", "purpose", purpose, "hotkey", binding.String(), "error", err)
		}
	}()
}
