package mobi

import (
	"path/filepath"
	"strings"
)

// IsPrimary reports whether name has a primary container extension.
func IsPrimary(name string) bool {
	lower := strings.ToLower(filepath.Base(name))
	if strings.HasSuffix(lower, ".azw.res") {
		return false
	}
	switch filepath.Ext(lower) {
	case ".azw", ".azw3", ".mobi":
		return true
	default:
		return false
	}
}

// IsHDContainer reports whether name has an HD container extension.
func IsHDContainer(name string) bool {
	lower := strings.ToLower(filepath.Base(name))
	switch filepath.Ext(lower) {
	case ".res", ".azw6":
		return true
	default:
		return false
	}
}
