package engine

import (
	"bytes"
	"fmt"

	"cbzmage/internal/bufpool"
	"cbzmage/internal/cbz"
	"cbzmage/internal/fileutil"
)

// sink receives resolved images. Implementations: archiveSink (ModeConvert),
// scanSink (ModeScan) and coverSink (ModeCover).
type sink interface {
	cover(buf *bufpool.Buffer, result *Result) error
	page(n int, buf *bufpool.Buffer) error
	fallbackCover(buf *bufpool.Buffer, result *Result) error
	// wantsPages is false when the sink is done once a cover exists.
	wantsPages() bool
	finish(result *Result) error
	abort()
}

// archiveSink holds the cover image until the archive is committed, so a book
// that fails to commit leaves no cover file behind.
type archiveSink struct {
	writer    *cbz.Writer
	coverPath string
	coverData []byte
}

func (s *archiveSink) cover(buf *bufpool.Buffer, result *Result) error {
	if err := s.writer.WriteEntry(cbz.CoverName, buf); err != nil {
		return err
	}
	s.keepCover(buf)
	return nil
}

func (s *archiveSink) page(n int, buf *bufpool.Buffer) error {
	return s.writer.WriteEntry(cbz.PageName(n), buf)
}

func (s *archiveSink) fallbackCover(buf *bufpool.Buffer, result *Result) error {
	s.keepCover(buf)
	return nil
}

func (s *archiveSink) keepCover(buf *bufpool.Buffer) {
	if s.coverPath != "" {
		s.coverData = append(s.coverData[:0], buf.Bytes()...)
	}
}

func (s *archiveSink) wantsPages() bool { return true }

func (s *archiveSink) finish(result *Result) error {
	size, err := s.writer.Commit()
	if err != nil {
		return err
	}
	result.Archive = s.writer.Path()
	result.ArchiveBytes = size
	if s.coverData == nil {
		return nil
	}
	if err := fileutil.WriteAtomic(s.coverPath, bytes.NewReader(s.coverData), 0o644); err != nil {
		return fmt.Errorf("write cover: %w", err)
	}
	result.CoverFile = s.coverPath
	return nil
}

func (s *archiveSink) abort() { _ = s.writer.Abort() }

type scanSink struct{}

func (scanSink) cover(*bufpool.Buffer, *Result) error         { return nil }
func (scanSink) page(int, *bufpool.Buffer) error              { return nil }
func (scanSink) fallbackCover(*bufpool.Buffer, *Result) error { return nil }
func (scanSink) wantsPages() bool                             { return true }
func (scanSink) finish(*Result) error                         { return nil }
func (scanSink) abort()                                       {}

type coverSink struct {
	coverPath string
}

func (s *coverSink) cover(buf *bufpool.Buffer, result *Result) error {
	return s.write(buf, result)
}

func (s *coverSink) page(int, *bufpool.Buffer) error { return nil }

func (s *coverSink) fallbackCover(buf *bufpool.Buffer, result *Result) error {
	return s.write(buf, result)
}

func (s *coverSink) write(buf *bufpool.Buffer, result *Result) error {
	if err := fileutil.WriteAtomic(s.coverPath, buf, 0o644); err != nil {
		return fmt.Errorf("write cover: %w", err)
	}
	result.CoverFile = s.coverPath
	return nil
}

func (s *coverSink) wantsPages() bool { return false }

func (s *coverSink) finish(*Result) error { return nil }

func (s *coverSink) abort() {}
