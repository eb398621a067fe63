// Package store persists macros in a versioned binary format and converts
// them to and from human-readable interchange formats.
package store

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/offlinefirst/macrohook/pkg/events"
	"github.com/offlinefirst/macrohook/pkg/macro"
)

// FormatVersion is the only binary layout this package reads and writes.
const FormatVersion = 1

var magic = [4]byte{'M', 'H', 'M', 'C'}

const (
	// magic + version + count + createdAt + name length
	fixedHeaderSize = 4 + 2 + 4 + 8 + 2
	idSize          = 16
	recordSize      = 2 + 4 + 4 + 4 + 4 + 8
	trailerSize     = 4
	maxNameLength   = math.MaxUint16
)

// Info is the header metadata of an encoded macro.
type Info struct {
	Version    int
	ID         uuid.UUID
	Name       string
	CreatedAt  time.Time
	EventCount int
}

// Encode writes m in the binary format. The macro must validate.
func Encode(w io.Writer, m macro.Macro) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("encode %q: %w", m.Name, err)
	}
	if len(m.Name) > maxNameLength {
		return fmt.Errorf("encode: name is %d bytes, limit %d", len(m.Name), maxNameLength)
	}
	if uint64(len(m.Events)) > math.MaxUint32 {
		return fmt.Errorf("encode: %d events exceed the format limit", len(m.Events))
	}

	buf := bytes.NewBuffer(make([]byte, 0, fixedHeaderSize+len(m.Name)+idSize+recordSize*len(m.Events)+trailerSize))
	buf.Write(magic[:])
	buf.Write(binary.LittleEndian.AppendUint16(nil, FormatVersion))
	buf.Write(binary.LittleEndian.AppendUint32(nil, uint32(len(m.Events))))
	var created int64
	if !m.CreatedAt.IsZero() {
		created = m.CreatedAt.UnixMicro()
	}
	buf.Write(binary.LittleEndian.AppendUint64(nil, uint64(created)))
	buf.Write(binary.LittleEndian.AppendUint16(nil, uint16(len(m.Name))))
	buf.WriteString(m.Name)
	buf.Write(m.ID[:])

	var record [recordSize]byte
	for _, ev := range m.Events {
		putRecord(record[:], ev)
		buf.Write(record[:])
	}
	buf.Write(binary.LittleEndian.AppendUint32(nil, crc32.ChecksumIEEE(buf.Bytes())))

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write macro: %w", err)
	}
	return nil
}

func putRecord(dst []byte, ev events.Event) {
	binary.LittleEndian.PutUint16(dst[0:], uint16(ev.Kind))
	binary.LittleEndian.PutUint32(dst[2:], uint32(ev.Code))
	binary.LittleEndian.PutUint32(dst[6:], uint32(ev.X))
	binary.LittleEndian.PutUint32(dst[10:], uint32(ev.Y))
	binary.LittleEndian.PutUint32(dst[14:], uint32(ev.Delta))
	binary.LittleEndian.PutUint64(dst[18:], uint64(ev.Micros))
}

func readRecord(src []byte) events.Event {
	return events.Event{
		Kind:   events.Kind(binary.LittleEndian.Uint16(src[0:])),
		Code:   int32(binary.LittleEndian.Uint32(src[2:])),
		X:      int32(binary.LittleEndian.Uint32(src[6:])),
		Y:      int32(binary.LittleEndian.Uint32(src[10:])),
		Delta:  int32(binary.LittleEndian.Uint32(src[14:])),
		Micros: int64(binary.LittleEndian.Uint64(src[18:])),
	}
}

// Decode reads one encoded macro from r, which must hold nothing else.
// Any structural problem yields a *CorruptDataError and no macro.
func Decode(r io.Reader) (macro.Macro, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return macro.Macro{}, fmt.Errorf("read macro: %w", err)
	}
	info, offset, err := parseHeader(data)
	if err != nil {
		return macro.Macro{}, err
	}

	body := uint64(info.EventCount) * recordSize
	want := uint64(offset) + body + trailerSize
	if uint64(len(data)) < want {
		return macro.Macro{}, corrupt("truncated: %d bytes, header promises %d events (%d bytes)", len(data), info.EventCount, want)
	}
	if uint64(len(data)) > want {
		return macro.Macro{}, corrupt("%d trailing bytes after checksum", uint64(len(data))-want)
	}

	payload := data[:len(data)-trailerSize]
	stored := binary.LittleEndian.Uint32(data[len(data)-trailerSize:])
	if sum := crc32.ChecksumIEEE(payload); sum != stored {
		return macro.Macro{}, corrupt("checksum mismatch: stored %08x, computed %08x", stored, sum)
	}

	evs := make([]events.Event, info.EventCount)
	var previous int64
	for i := range evs {
		start := offset + i*recordSize
		ev := readRecord(data[start : start+recordSize])
		if !ev.Kind.Valid() {
			return macro.Macro{}, corrupt("event %d: unknown kind %d", i, uint16(ev.Kind))
		}
		if ev.Micros < 0 {
			return macro.Macro{}, corrupt("event %d: negative timestamp %d", i, ev.Micros)
		}
		if ev.Micros < previous {
			return macro.Macro{}, corrupt("event %d: timestamp %d precedes %d", i, ev.Micros, previous)
		}
		previous = ev.Micros
		evs[i] = ev
	}

	return macro.Macro{
		ID:        info.ID,
		Name:      info.Name,
		CreatedAt: info.CreatedAt,
		Events:    evs,
	}, nil
}

type fixedHeader struct {
	version uint16
	count   uint32
	created int64
	nameLen int
}

func parseFixed(data []byte) (fixedHeader, error) {
	if len(data) < fixedHeaderSize {
		return fixedHeader{}, corrupt("truncated header: %d bytes", len(data))
	}
	if !bytes.Equal(data[:4], magic[:]) {
		return fixedHeader{}, corrupt("bad magic %q", data[:4])
	}
	version := binary.LittleEndian.Uint16(data[4:])
	if version != FormatVersion {
		return fixedHeader{}, corrupt("unknown format version %d", version)
	}
	return fixedHeader{
		version: version,
		count:   binary.LittleEndian.Uint32(data[6:]),
		created: int64(binary.LittleEndian.Uint64(data[10:])),
		nameLen: int(binary.LittleEndian.Uint16(data[18:])),
	}, nil
}

// parseHeader validates the header and returns the offset of the first record.
func parseHeader(data []byte) (Info, int, error) {
	fixed, err := parseFixed(data)
	if err != nil {
		return Info{}, 0, err
	}
	offset := fixedHeaderSize
	if len(data) < offset+fixed.nameLen+idSize {
		return Info{}, 0, corrupt("truncated header: name and id need %d bytes", fixed.nameLen+idSize)
	}
	name := string(data[offset : offset+fixed.nameLen])
	offset += fixed.nameLen
	var id uuid.UUID
	copy(id[:], data[offset:offset+idSize])
	offset += idSize

	info := Info{
		Version:    int(fixed.version),
		ID:         id,
		Name:       name,
		EventCount: int(fixed.count),
	}
	if fixed.created != 0 {
		info.CreatedAt = time.UnixMicro(fixed.created).UTC()
	}
	return info, offset, nil
}
