// Package textutil provides small text helpers shared by the CLI and the
// conversion engine.
//
// SanitizeFileName turns a book title into a safe archive or cover file name.
// TitleCase formats mode and status labels for console tables.
package textutil
