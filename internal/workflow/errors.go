package workflow

import (
	"errors"

	"cbzmage/internal/cbz"
	"cbzmage/internal/engine"
)

// ErrRunLocked reports that another run holds the state directory lock.
var ErrRunLocked = errors.New("another cbzmage run is using the state directory")

// ErrPreflight reports that a directory the run writes to is unusable.
var ErrPreflight = errors.New("preflight checks failed")

// ErrorClassifier allows errors to declare their classification for reporting.
type ErrorClassifier interface {
	ErrorKind() string
}

// errorKind classifies a book failure for logs and history.
func errorKind(err error) string {
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		return classifier.ErrorKind()
	}
	switch {
	case errors.Is(err, engine.ErrNoImages):
		return "no_images"
	case errors.Is(err, cbz.ErrMappingExhausted):
		return "archive"
	default:
		return "io"
	}
}

func errorHint(kind string) string {
	switch kind {
	case "metadata":
		return "the file is not a readable comic container; check that it is DRM-free and complete"
	case "no_images":
		return "the book holds no page images; text books cannot be converted"
	case "archive":
		return "the archive outgrew its size estimate; the partial .temp file is kept for inspection"
	default:
		return "check file permissions and free disk space"
	}
}
