package cbz

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
)

// Compression selects how page entries are stored.
type Compression int

const (
	CompressionOptimal Compression = iota
	CompressionNone
	CompressionFastest
	CompressionSmallest
)

// ParseCompression maps a configuration value to a Compression.
func ParseCompression(value string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "optimal":
		return CompressionOptimal, nil
	case "none":
		return CompressionNone, nil
	case "fastest":
		return CompressionFastest, nil
	case "smallest":
		return CompressionSmallest, nil
	default:
		return CompressionOptimal, fmt.Errorf("unknown compression %q", value)
	}
}

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionFastest:
		return "fastest"
	case CompressionSmallest:
		return "smallest"
	default:
		return "optimal"
	}
}

func (c Compression) method() uint16 {
	if c == CompressionNone {
		return zip.Store
	}
	return zip.Deflate
}

func (c Compression) level() int {
	switch c {
	case CompressionFastest:
		return flate.BestSpeed
	case CompressionSmallest:
		return flate.BestCompression
	default:
		return flate.DefaultCompression
	}
}

func (c Compression) compressor() zip.Compressor {
	level := c.level()
	return func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, level)
	}
}
