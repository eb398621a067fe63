package store

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/offlinefirst/macrohook/pkg/macro"
)

// Extension is the file suffix of binary macro files.
const Extension = ".mhm"

// Save writes m to path atomically: the encoding goes to a temporary file in
// the same directory, is synced, then renamed over the destination. On any
// failure the destination is left untouched and the temporary file removed.
func Save(m macro.Macro, path string) (err error) {
	if strings.TrimSpace(path) == "" {
		return errors.New("destination path must not be empty")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create macro directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	w := bufio.NewWriter(tmp)
	if err := Encode(w, m); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("move macro into place: %w", err)
	}
	return nil
}

// Load reads and validates the macro stored at path.
func Load(path string) (macro.Macro, error) {
	file, err := os.Open(path)
	if err != nil {
		return macro.Macro{}, fmt.Errorf("open macro: %w", err)
	}
	defer file.Close()

	m, err := Decode(bufio.NewReader(file))
	if err != nil {
		return macro.Macro{}, withPath(err, path)
	}
	return m, nil
}

// ReadInfo returns the header of the macro at path without reading events.
func ReadInfo(path string) (Info, error) {
	file, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open macro: %w", err)
	}
	defer file.Close()

	head := make([]byte, fixedHeaderSize)
	if _, err := io.ReadFull(file, head); err != nil {
		return Info{}, withPath(&CorruptDataError{Reason: "truncated header", Err: err}, path)
	}
	fixed, err := parseFixed(head)
	if err != nil {
		return Info{}, withPath(err, path)
	}
	rest := make([]byte, fixed.nameLen+idSize)
	if _, err := io.ReadFull(file, rest); err != nil {
		return Info{}, withPath(&CorruptDataError{Reason: "truncated header", Err: err}, path)
	}
	info, _, err := parseHeader(append(head, rest...))
	if err != nil {
		return Info{}, withPath(err, path)
	}
	return info, nil
}

// FileName derives a file name for a macro name.
func FileName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ', r == '.':
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "macro" + Extension
	}
	return b.String() + Extension
}
