package textutil

import (
	"strings"
	"unicode"
)

// SanitizeFileName makes a book title usable as a file name. Path separators,
// colons and asterisks become dashes, other reserved characters and control
// characters are dropped, and whitespace runs collapse to one space.
func SanitizeFileName(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*':
			return '-'
		case '?', '"', '<', '>', '|':
			return -1
		}
		if unicode.IsSpace(r) {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	return strings.Join(strings.Fields(mapped), " ")
}
