package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/offlinefirst/macrohook/pkg/events"
	"github.com/offlinefirst/macrohook/pkg/macro"
)

// Interchange formats.
const (
	FormatBinary = "mhm"
	FormatJSON   = "json"
	FormatJSONL  = "jsonl"
	FormatYAML   = "yaml"
)

// documentKind tags interchange documents so Import can reject foreign files.
const documentKind = "macrohook.macro"

type document struct {
	Kind      string        `json:"kind" yaml:"kind"`
	Version   int           `json:"version" yaml:"version"`
	ID        string        `json:"id" yaml:"id"`
	Name      string        `json:"name" yaml:"name"`
	CreatedAt time.Time     `json:"created_at" yaml:"created_at"`
	Events    []eventRecord `json:"events,omitempty" yaml:"events,omitempty"`
}

type eventRecord struct {
	Type   string `json:"type" yaml:"type"`
	Key    string `json:"key,omitempty" yaml:"key,omitempty"`
	Button string `json:"button,omitempty" yaml:"button,omitempty"`
	Code   int32  `json:"code,omitempty" yaml:"code,omitempty"`
	X      int32  `json:"x,omitempty" yaml:"x,omitempty"`
	Y      int32  `json:"y,omitempty" yaml:"y,omitempty"`
	Delta  int32  `json:"delta,omitempty" yaml:"delta,omitempty"`
	Micros int64  `json:"t_us" yaml:"t_us"`
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case Extension:
		return FormatBinary, nil
	case ".json":
		return FormatJSON, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("cannot infer macro format from %q", path)
	}
}

// NormalizeFormat canonicalises a user supplied format name.
func NormalizeFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "mhm", "binary", "bin":
		return FormatBinary, nil
	case "json":
		return FormatJSON, nil
	case "jsonl", "ndjson":
		return FormatJSONL, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported macro format %q", format)
	}
}

// Export writes m to w in the named format.
func Export(w io.Writer, m macro.Macro, format string) error {
	format, err := NormalizeFormat(format)
	if err != nil {
		return err
	}
	if format == FormatBinary {
		return Encode(w, m)
	}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("export %q: %w", m.Name, err)
	}

	doc := toDocument(m)
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		records := doc.Events
		doc.Events = nil
		if err := enc.Encode(doc); err != nil {
			return err
		}
		for _, record := range records {
			if err := enc.Encode(record); err != nil {
				return err
			}
		}
		return nil
	}
}

// Import reads a macro from r in the named format and validates it.
func Import(r io.Reader, format string) (macro.Macro, error) {
	format, err := NormalizeFormat(format)
	if err != nil {
		return macro.Macro{}, err
	}
	if format == FormatBinary {
		return Decode(r)
	}

	var doc document
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return macro.Macro{}, &CorruptDataError{Reason: "decode json", Err: err}
		}
	case FormatYAML:
		data, err := io.ReadAll(r)
		if err != nil {
			return macro.Macro{}, fmt.Errorf("read yaml: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return macro.Macro{}, &CorruptDataError{Reason: "decode yaml", Err: err}
		}
	default:
		doc, err = decodeJSONL(r)
		if err != nil {
			return macro.Macro{}, err
		}
	}
	return fromDocument(doc)
}

func decodeJSONL(r io.Reader) (document, error) {
	var doc document
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		line++
		if line == 1 {
			if err := decodeJSONLine(text, &doc); err != nil {
				return document{}, &CorruptDataError{Reason: "decode jsonl header", Err: err}
			}
			if len(doc.Events) > 0 {
				return document{}, &CorruptDataError{Reason: "jsonl header carries events"}
			}
			continue
		}
		var record eventRecord
		if err := decodeJSONLine(text, &record); err != nil {
			return document{}, &CorruptDataError{Reason: fmt.Sprintf("decode jsonl line %d", line), Err: err}
		}
		doc.Events = append(doc.Events, record)
	}
	if err := scanner.Err(); err != nil {
		return document{}, fmt.Errorf("read jsonl: %w", err)
	}
	return doc, nil
}

// decodeJSONLine decodes exactly one JSON value from text, rejecting unknown
// fields like the json and yaml importers do.
func decodeJSONLine(text string, v any) error {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("trailing data after value")
	}
	return nil
}

func toDocument(m macro.Macro) document {
	doc := document{
		Kind:      documentKind,
		Version:   FormatVersion,
		ID:        m.ID.String(),
		Name:      m.Name,
		CreatedAt: m.CreatedAt.UTC(),
		Events:    make([]eventRecord, len(m.Events)),
	}
	for i, ev := range m.Events {
		record := eventRecord{Type: ev.Kind.String(), Micros: ev.Micros}
		switch ev.Kind {
		case events.KindKeyDown, events.KindKeyUp:
			if key, ok := events.KeyByCode(ev.Code); ok {
				record.Key = key.Name
			} else {
				record.Code = ev.Code
			}
		case events.KindMouseButtonDown, events.KindMouseButtonUp:
			if ev.Code >= events.ButtonLeft && ev.Code <= events.ButtonForward {
				record.Button = events.ButtonName(ev.Code)
			} else {
				record.Code = ev.Code
			}
			record.X, record.Y = ev.X, ev.Y
		case events.KindMouseMove:
			record.X, record.Y = ev.X, ev.Y
		case events.KindMouseWheel:
			record.X, record.Y, record.Delta = ev.X, ev.Y, ev.Delta
		}
		doc.Events[i] = record
	}
	return doc
}

func fromDocument(doc document) (macro.Macro, error) {
	if doc.Kind != documentKind {
		return macro.Macro{}, corrupt("not a macro document (kind %q)", doc.Kind)
	}
	if doc.Version != FormatVersion {
		return macro.Macro{}, corrupt("unknown format version %d", doc.Version)
	}
	var id uuid.UUID
	if doc.ID != "" {
		parsed, err := uuid.Parse(doc.ID)
		if err != nil {
			return macro.Macro{}, &CorruptDataError{Reason: "bad id", Err: err}
		}
		id = parsed
	} else {
		id = uuid.New()
	}

	evs := make([]events.Event, len(doc.Events))
	for i, record := range doc.Events {
		ev, err := fromRecord(record)
		if err != nil {
			return macro.Macro{}, corrupt("event %d: %v", i, err)
		}
		evs[i] = ev
	}
	m := macro.Macro{ID: id, Name: doc.Name, Events: evs}
	if !doc.CreatedAt.IsZero() {
		m.CreatedAt = doc.CreatedAt.UTC()
	}
	if err := m.Validate(); err != nil {
		return macro.Macro{}, &CorruptDataError{Reason: "validate", Err: err}
	}
	return m, nil
}

func fromRecord(record eventRecord) (events.Event, error) {
	kind, err := events.ParseKind(record.Type)
	if err != nil {
		return events.Event{}, err
	}
	ev := events.Event{Kind: kind, X: record.X, Y: record.Y, Delta: record.Delta, Micros: record.Micros}
	switch kind {
	case events.KindKeyDown, events.KindKeyUp:
		ev.Code = record.Code
		if record.Key != "" {
			key, ok := events.KeyByName(record.Key)
			if !ok {
				return events.Event{}, fmt.Errorf("unknown key %q", record.Key)
			}
			ev.Code = key.Code
		}
		ev.X, ev.Y, ev.Delta = 0, 0, 0
	case events.KindMouseButtonDown, events.KindMouseButtonUp:
		ev.Code = record.Code
		if record.Button != "" || record.Code == 0 {
			button, err := events.ParseButton(record.Button)
			if err != nil {
				return events.Event{}, err
			}
			ev.Code = button
		}
		ev.Delta = 0
	case events.KindMouseMove:
		ev.Delta = 0
	}
	return ev, nil
}
