package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/offlinefirst/macrohook/pkg/events"
	"github.com/offlinefirst/macrohook/pkg/macro"
)

func sampleMacro() macro.Macro {
	created := time.Date(2024, 5, 1, 10, 30, 0, 123456789, time.UTC)
	return macro.New("login flow", created, []events.Event{
		{Kind: events.KindMouseMove, X: 100, Y: 200, Micros: 0},
		{Kind: events.KindMouseButtonDown, Code: events.ButtonLeft, X: 100, Y: 200, Micros: 15_000},
		{Kind: events.KindMouseButtonUp, Code: events.ButtonLeft, X: 100, Y: 200, Micros: 80_000},
		{Kind: events.KindKeyDown, Code: events.KeyLeftShift, Micros: 120_000},
		{Kind: events.KindKeyDown, Code: 30, Micros: 121_000},
		{Kind: events.KindKeyUp, Code: 30, Micros: 160_000},
		{Kind: events.KindKeyUp, Code: events.KeyLeftShift, Micros: 161_000},
		{Kind: events.KindMouseWheel, X: -5, Y: 900, Delta: -3, Micros: 161_000},
		{Kind: events.KindKeyDown, Code: 240, Micros: 500_000},
	})
}

func encoded(t *testing.T, m macro.Macro) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := Encode(&buf, m); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

// resum rewrites the trailer so only the targeted corruption is detected.
func resum(data []byte) []byte {
	out := append([]byte(nil), data...)
	binary.LittleEndian.PutUint32(out[len(out)-4:], crc32.ChecksumIEEE(out[:len(out)-4]))
	return out
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", FileName("Login Flow"))

	original := sampleMacro()
	if err := Save(original, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !loaded.Equal(original) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", original, loaded)
	}

	info, err := ReadInfo(path)
	if err != nil {
		t.Fatalf("read info: %v", err)
	}
	if info.Name != "login flow" || info.EventCount != original.Len() || info.ID != original.ID {
		t.Fatalf("unexpected info: %+v", info)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "login-flow.mhm" {
		t.Fatalf("expected only the macro file, got %v", entries)
	}
}

func TestEmptyMacroRoundTrip(t *testing.T) {
	original := macro.New("", time.Time{}, []events.Event{})
	decoded, err := Decode(bytes.NewReader(encoded(t, original)))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.Equal(original) || decoded.Len() != 0 {
		t.Fatalf("unexpected empty round trip: %+v", decoded)
	}
}

func TestDecodeRejectsCorruptData(t *testing.T) {
	good := encoded(t, sampleMacro())
	headerLen := fixedHeaderSize + len("login flow") + idSize

	cases := map[string][]byte{
		"bad magic": resum(append([]byte("XXXX"), good[4:]...)),
		"unknown version": func() []byte {
			data := append([]byte(nil), good...)
			binary.LittleEndian.PutUint16(data[4:], 7)
			return resum(data)
		}(),
		"truncated header": good[:10],
		"truncated body":   good[:len(good)-10],
		"trailing bytes":   append(append([]byte(nil), good...), 0, 0),
		"checksum": func() []byte {
			data := append([]byte(nil), good...)
			data[headerLen+3] ^= 0xff
			return data
		}(),
		"non-monotonic": func() []byte {
			data := append([]byte(nil), good...)
			second := headerLen + recordSize + 18
			binary.LittleEndian.PutUint64(data[second:], 999_999_999)
			return resum(data)
		}(),
		"unknown kind": func() []byte {
			data := append([]byte(nil), good...)
			binary.LittleEndian.PutUint16(data[headerLen:], 99)
			return resum(data)
		}(),
	}
	for name, data := range cases {
		_, err := Decode(bytes.NewReader(data))
		var cde *CorruptDataError
		if !errors.Is(err, ErrCorruptData) || !errors.As(err, &cde) {
			t.Fatalf("%s: expected CorruptDataError, got %v", name, err)
		}
	}
}

func TestLoadUnknownVersionLeavesNoState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "future.mhm")
	data := encoded(t, sampleMacro())
	binary.LittleEndian.PutUint16(data[4:], FormatVersion+1)
	if err := os.WriteFile(path, resum(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	m, err := Load(path)
	if !errors.Is(err, ErrCorruptData) {
		t.Fatalf("expected ErrCorruptData, got %v", err)
	}
	if !strings.Contains(err.Error(), path) || !strings.Contains(err.Error(), "unknown format version") {
		t.Fatalf("expected path and reason in error, got %q", err.Error())
	}
	if m.Events != nil || m.Name != "" {
		t.Fatalf("expected zero macro on failure, got %+v", m)
	}
	if _, err := ReadInfo(path); !errors.Is(err, ErrCorruptData) {
		t.Fatalf("expected ReadInfo to reject the version, got %v", err)
	}
}

func TestSaveFailureKeepsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keep.mhm")
	if err := Save(sampleMacro(), path); err != nil {
		t.Fatalf("save: %v", err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	invalid := sampleMacro()
	invalid.Events[1].Micros = -10
	if err := Save(invalid, path); err == nil {
		t.Fatalf("expected invalid macro to be rejected")
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read after: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Fatalf("destination changed after failed save")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected temp files to be cleaned up, found %d entries", len(entries))
	}
}

func TestExportImportFormats(t *testing.T) {
	original := sampleMacro()
	for _, format := range []string{FormatJSON, FormatJSONL, FormatYAML, FormatBinary} {
		var buf bytes.Buffer
		if err := Export(&buf, original, format); err != nil {
			t.Fatalf("%s export: %v", format, err)
		}
		imported, err := Import(bytes.NewReader(buf.Bytes()), format)
		if err != nil {
			t.Fatalf("%s import: %v\n%s", format, err, buf.String())
		}
		if !imported.Equal(original) {
			t.Fatalf("%s round trip mismatch:\nwant %+v\ngot  %+v", format, original.Events, imported.Events)
		}
	}
}

func TestImportRejectsInvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"foreign kind":  `{"kind":"other","version":1,"name":"x"}`,
		"bad version":   `{"kind":"macrohook.macro","version":9,"name":"x"}`,
		"unknown event": `{"kind":"macrohook.macro","version":1,"events":[{"type":"teleport","t_us":0}]}`,
		"unknown key":   `{"kind":"macrohook.macro","version":1,"events":[{"type":"key_down","key":"hyper","t_us":0}]}`,
		"backwards":     `{"kind":"macrohook.macro","version":1,"events":[{"type":"mouse_move","t_us":5},{"type":"mouse_move","t_us":1}]}`,
		"unknown field": `{"kind":"macrohook.macro","version":1,"colour":"red"}`,
	}
	for name, doc := range cases {
		if _, err := Import(strings.NewReader(doc), FormatJSON); !errors.Is(err, ErrCorruptData) {
			t.Fatalf("%s: expected ErrCorruptData, got %v", name, err)
		}
	}
}

func TestImportJSONLIsStrict(t *testing.T) {
	header := `{"kind":"macrohook.macro","version":1,"name":"x"}`
	record := `{"type":"key_down","key":"a","t_us":0}`

	m, err := Import(strings.NewReader(header+"\n"+record+"\n"), FormatJSONL)
	if err != nil {
		t.Fatalf("valid jsonl rejected: %v", err)
	}
	if m.Name != "x" || m.Len() != 1 {
		t.Fatalf("unexpected import: %+v", m)
	}

	cases := map[string]string{
		"unknown header field": `{"kind":"macrohook.macro","version":1,"name":"x","colour":"red"}`,
		"unknown record field": header + "\n" + `{"type":"key_down","key":"a","t_us":0,"pressure":3}`,
		"two values per line":  header + "\n" + record + " " + `{"type":"key_up","key":"a","t_us":1}`,
		"events in header":     `{"kind":"macrohook.macro","version":1,"events":[` + record + `]}`,
	}
	for name, doc := range cases {
		if _, err := Import(strings.NewReader(doc), FormatJSONL); !errors.Is(err, ErrCorruptData) {
			t.Fatalf("%s: expected ErrCorruptData, got %v", name, err)
		}
	}
}

func TestFormatHelpers(t *testing.T) {
	cases := map[string]string{
		"a.mhm":    FormatBinary,
		"b.JSON":   FormatJSON,
		"c.ndjson": FormatJSONL,
		"d.yml":    FormatYAML,
	}
	for path, want := range cases {
		got, err := FormatFromPath(path)
		if err != nil || got != want {
			t.Fatalf("%s: expected %s, got %s (%v)", path, want, got, err)
		}
	}
	if _, err := FormatFromPath("e.txt"); err == nil {
		t.Fatalf("expected unknown extension to fail")
	}
	if got := FileName("  My Macro.v2 "); got != "my-macro-v2.mhm" {
		t.Fatalf("unexpected file name %q", got)
	}
}
