package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TitleCase upper-cases the first letter of every word in value.
func TitleCase(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return cases.Title(language.Und).String(strings.ReplaceAll(value, "_", " "))
}

// BookStem returns the file stem for a book: the sanitized title, or the
// sanitized fallback when the title has no usable characters.
func BookStem(title, fallback string) string {
	if stem := strings.Trim(SanitizeFileName(title), ". "); stem != "" {
		return stem
	}
	return strings.Trim(SanitizeFileName(fallback), ". ")
}
