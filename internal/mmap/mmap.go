// Package mmap maps container files for reading and pre-sized archive files
// for writing.
package mmap

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// ErrRegionFull is returned when a write would run past the end of a
// pre-sized writable mapping.
var ErrRegionFull = errors.New("mmap: write exceeds mapped region")

// ErrClosed is returned by operations on a closed mapping.
var ErrClosed = errors.New("mmap: mapping closed")

// ReaderAt is a read-only shared mapping of a whole file. It is safe for
// concurrent ReadAt calls.
type ReaderAt struct {
	path string
	data []byte
}

// Open maps path read-only. Empty files produce a valid zero-length reader.
func Open(path string) (*ReaderAt, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	size := info.Size()
	if size == 0 {
		return &ReaderAt{path: path}, nil
	}
	if size != int64(int(size)) {
		return nil, fmt.Errorf("mmap %s: file too large (%d bytes)", path, size)
	}

	data, err := unix.Mmap(int(file.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	// Records are read front to back, mostly once.
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)
	return &ReaderAt{path: path, data: data}, nil
}

// Path returns the mapped file path.
func (r *ReaderAt) Path() string { return r.path }

// Size returns the mapped length.
func (r *ReaderAt) Size() int64 { return int64(len(r.data)) }

// ReadAt implements io.ReaderAt.
func (r *ReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("mmap: negative offset %d", off)
	}
	if off >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(p, r.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Close unmaps the file.
func (r *ReaderAt) Close() error {
	if r.data == nil {
		return nil
	}
	data := r.data
	r.data = nil
	return unix.Munmap(data)
}

// Writer is a read-write shared mapping over a file pre-sized to an upper
// bound. Writes advance a cursor; Close unmaps and truncates the file to the
// cursor so the estimate never survives on disk.
type Writer struct {
	file *os.File
	data []byte
	pos  int64
	size int64
}

// Create creates (or truncates) path, extends it to size bytes, and maps it
// read-write.
func Create(path string, size int64) (*Writer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("mmap %s: invalid region size %d", path, size)
	}
	if size != int64(int(size)) {
		return nil, fmt.Errorf("mmap %s: region too large (%d bytes)", path, size)
	}
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	if err := unix.Ftruncate(int(file.Fd()), size); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("size %s: %w", path, err)
	}
	data, err := unix.Mmap(int(file.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	return &Writer{file: file, data: data, size: size}, nil
}

// Write copies p at the cursor. It fails with ErrRegionFull without writing
// anything when p does not fit.
func (w *Writer) Write(p []byte) (int, error) {
	if w.data == nil {
		return 0, ErrClosed
	}
	if int64(len(p)) > w.size-w.pos {
		return 0, ErrRegionFull
	}
	n := copy(w.data[w.pos:], p)
	w.pos += int64(n)
	return n, nil
}

// Position returns the number of bytes written so far.
func (w *Writer) Position() int64 { return w.pos }

// Size returns the region length the file was mapped with. It is unchanged by
// Close.
func (w *Writer) Size() int64 { return w.size }

// Close flushes and unmaps the region, truncates the file to Position, and
// closes it. The file is left on disk in every case.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	file := w.file
	w.file = nil

	var errs []error
	if w.data != nil {
		if err := unix.Msync(w.data, unix.MS_SYNC); err != nil {
			errs = append(errs, fmt.Errorf("msync: %w", err))
		}
		if err := unix.Munmap(w.data); err != nil {
			errs = append(errs, fmt.Errorf("munmap: %w", err))
		}
		w.data = nil
		if w.pos < w.size {
			if err := file.Truncate(w.pos); err != nil {
				errs = append(errs, fmt.Errorf("truncate: %w", err))
			}
		}
	}
	if err := file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close: %w", err))
	}
	return errors.Join(errs...)
}
