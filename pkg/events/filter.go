package events

import (
	"fmt"
	"strings"
)

// Filter enforces recording exclusions. The zero value permits all events.
type Filter struct {
	dropMoves bool
	excluded  map[int32]struct{}
}

// NewFilter builds a filter dropping pointer moves when ignoreMoves is set and
// key events whose names appear in excludeKeys.
func NewFilter(ignoreMoves bool, excludeKeys []string) (Filter, error) {
	filter := Filter{
		dropMoves: ignoreMoves,
		excluded:  make(map[int32]struct{}, len(excludeKeys)),
	}
	for _, name := range excludeKeys {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		key, ok := KeyByName(trimmed)
		if !ok {
			return Filter{}, fmt.Errorf("unknown key %q in exclusion list", trimmed)
		}
		filter.excluded[key.Code] = struct{}{}
	}
	return filter, nil
}

// Exclude adds key codes to the exclusion set.
func (f *Filter) Exclude(codes ...int32) {
	if f.excluded == nil {
		f.excluded = make(map[int32]struct{}, len(codes))
	}
	for _, code := range codes {
		f.excluded[code] = struct{}{}
	}
}

// Allows reports whether the event should be recorded.
func (f Filter) Allows(ev Event) bool {
	switch ev.Kind {
	case KindMouseMove:
		return !f.dropMoves
	case KindKeyDown, KindKeyUp:
		if len(f.excluded) == 0 {
			return true
		}
		_, blocked := f.excluded[ev.Code]
		return !blocked
	default:
		return true
	}
}
