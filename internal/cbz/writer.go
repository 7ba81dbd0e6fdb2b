package cbz

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"cbzmage/internal/mmap"
)

const (
	// CoverName is the entry name of a dedicated cover page.
	CoverName = "cover.jpg"
	// TempSuffix is appended to the destination while the archive is written.
	TempSuffix = ".temp"
)

// ErrMappingExhausted reports an archive that outgrew its size estimate.
var ErrMappingExhausted = errors.New("archive exceeds mapped size estimate")

// PageName returns the entry name of the 1-based page n.
func PageName(n int) string {
	return fmt.Sprintf("page-%04d.jpg", n)
}

// TempPath returns the temporary path used while writing path.
func TempPath(path string) string {
	return path + TempSuffix
}

// Writer streams entries into a memory-mapped archive. It is not safe for
// concurrent use.
type Writer struct {
	path        string
	region      *mmap.Writer
	zip         *zip.Writer
	compression Compression
	modified    time.Time
	entries     int
	done        bool
}

// Create starts an archive destined for path, mapping estimate bytes of
// working space at TempPath(path).
func Create(path string, estimate int64, compression Compression) (*Writer, error) {
	region, err := mmap.Create(TempPath(path), estimate)
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	zw := zip.NewWriter(region)
	zw.RegisterCompressor(zip.Deflate, compression.compressor())
	return &Writer{
		path:        path,
		region:      region,
		zip:         zw,
		compression: compression,
		modified:    time.Now(),
	}, nil
}

// Path returns the final destination.
func (w *Writer) Path() string { return w.path }

// Entries returns the number of entries written.
func (w *Writer) Entries() int { return w.entries }

// Estimate returns the size of the mapped working space.
func (w *Writer) Estimate() int64 { return w.region.Size() }

// WriteEntry adds one entry holding the bytes content writes.
func (w *Writer) WriteEntry(name string, content io.WriterTo) error {
	if w.done {
		return mmap.ErrClosed
	}
	entry, err := w.zip.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   w.compression.method(),
		Modified: w.modified,
	})
	if err != nil {
		return w.wrap(name, err)
	}
	if _, err := content.WriteTo(entry); err != nil {
		return w.wrap(name, err)
	}
	w.entries++
	return nil
}

// Commit finishes the archive, truncates it to its real length, and moves it
// over the destination. It returns the final archive size. On error the
// temporary file stays on disk and the destination is untouched.
func (w *Writer) Commit() (int64, error) {
	if w.done {
		return 0, mmap.ErrClosed
	}
	w.done = true

	if err := w.zip.Close(); err != nil {
		_ = w.region.Close()
		return 0, w.wrap("central directory", err)
	}
	size := w.region.Position()
	if err := w.region.Close(); err != nil {
		return 0, fmt.Errorf("finalize %s: %w", TempPath(w.path), err)
	}
	if err := os.Rename(TempPath(w.path), w.path); err != nil {
		return 0, fmt.Errorf("replace %s: %w", w.path, err)
	}
	return size, nil
}

// Abort stops writing and releases the mapping. The partial temporary file
// is kept.
func (w *Writer) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	return w.region.Close()
}

func (w *Writer) wrap(name string, err error) error {
	if errors.Is(err, mmap.ErrRegionFull) {
		return fmt.Errorf("write %s: %w (estimate %d bytes)", name, ErrMappingExhausted, w.region.Size())
	}
	return fmt.Errorf("write %s: %w", name, err)
}
