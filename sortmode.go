package sprite

import (
	"fmt"
	"strings"
)

// SortMode selects the submission order of a batch.
type SortMode int

const (
	// Deferred draws sprites in call order when the batch ends.
	Deferred SortMode = iota

	// Immediate draws each sprite as soon as it is submitted. Only one
	// immediate batch may be open per Coordinator.
	Immediate

	// Texture groups sprites by texture. Sprites sharing a texture keep
	// call order.
	Texture

	// BackToFront orders sprites by descending depth.
	BackToFront

	// FrontToBack orders sprites by ascending depth.
	FrontToBack
)

// String returns the sort mode name.
func (m SortMode) String() string {
	switch m {
	case Deferred:
		return "Deferred"
	case Immediate:
		return "Immediate"
	case Texture:
		return "Texture"
	case BackToFront:
		return "BackToFront"
	case FrontToBack:
		return "FrontToBack"
	default:
		return "Unknown"
	}
}

// Valid reports whether m is a defined sort mode.
func (m SortMode) Valid() bool {
	return m >= Deferred && m <= FrontToBack
}

// MarshalText implements encoding.TextMarshaler.
func (m SortMode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSortMode, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Names are matched
// case-insensitively.
func (m *SortMode) UnmarshalText(text []byte) error {
	for s := Deferred; s <= FrontToBack; s++ {
		if strings.EqualFold(string(text), s.String()) {
			*m = s
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedSortMode, text)
}
