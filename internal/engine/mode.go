package engine

import (
	"fmt"
	"strings"
)

// Mode selects what the merge routine does with resolved pages.
type Mode int

const (
	// ModeConvert writes an archive and, when configured, a cover file.
	ModeConvert Mode = iota
	// ModeScan resolves every page and discards the bytes.
	ModeScan
	// ModeCover writes only the cover file.
	ModeCover
)

// ParseMode converts a mode name into a Mode.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "convert":
		return ModeConvert, nil
	case "scan":
		return ModeScan, nil
	case "cover":
		return ModeCover, nil
	default:
		return ModeConvert, fmt.Errorf("unknown mode %q", value)
	}
}

func (m Mode) String() string {
	switch m {
	case ModeConvert:
		return "convert"
	case ModeScan:
		return "scan"
	case ModeCover:
		return "cover"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// MarshalText renders the mode name in JSON and YAML reports.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}
