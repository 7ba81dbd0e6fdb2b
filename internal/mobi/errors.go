package mobi

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingEXTH marks a container without the extended header section.
	ErrMissingEXTH = errors.New("extended header (EXTH) missing")
	// ErrInvalidHeader marks a structurally broken header.
	ErrInvalidHeader = errors.New("invalid header")
	// ErrUnsupportedRecord marks a record whose bytes cannot be written as a
	// page, such as an HD placeholder or an unknown image encoding.
	ErrUnsupportedRecord = errors.New("unsupported record")
	// ErrEmptyRecord marks a zero-length record.
	ErrEmptyRecord = errors.New("empty record")
)

// MetadataError reports a container that could not be decoded. It is fatal
// for the book it belongs to and is never retried.
type MetadataError struct {
	Path    string
	Section string
	Err     error
}

func (e *MetadataError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("decode %s: %v", e.Section, e.Err)
	}
	return fmt.Sprintf("decode %s of %s: %v", e.Section, e.Path, e.Err)
}

func (e *MetadataError) Unwrap() error { return e.Err }

// ErrorKind classifies the error for reporting.
func (e *MetadataError) ErrorKind() string { return "metadata" }

func metadataErr(path, section string, err error) error {
	return &MetadataError{Path: path, Section: section, Err: err}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidHeader, fmt.Sprintf(format, args...))
}
