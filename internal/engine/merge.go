package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"cbzmage/internal/bufpool"
	"cbzmage/internal/logging"
	"cbzmage/internal/mobi"
)

// Source tells which container a resolved image came from.
type Source int

const (
	SourceNone Source = iota
	SourceHD
	SourceSD
)

func (s Source) String() string {
	switch s {
	case SourceHD:
		return "hd"
	case SourceSD:
		return "sd"
	default:
		return "none"
	}
}

// resolved is the outcome of one HD-then-SD attempt. buf is nil for
// SourceNone and owned by the caller otherwise.
type resolved struct {
	source Source
	buf    *bufpool.Buffer
}

func (r resolved) release() {
	if r.buf != nil {
		r.buf.Release()
	}
}

// resolve loads hd when present and falls back to sd. HD failures are never
// errors. SD records that cannot be represented yield SourceNone; any other
// SD failure is returned.
func (e *Engine) resolve(logger *slog.Logger, label string, hd, sd mobi.PageRecord) (resolved, error) {
	if hd != nil {
		buf, err := hd.Load(e.pool)
		if err == nil {
			return resolved{source: SourceHD, buf: buf}, nil
		}
		logger.Debug("HD image unavailable, using SD",
			logging.String("entry", label),
			logging.Error(err),
		)
	}
	if sd == nil {
		return resolved{}, nil
	}
	buf, err := sd.Load(e.pool)
	switch {
	case err == nil:
		return resolved{source: SourceSD, buf: buf}, nil
	case errors.Is(err, mobi.ErrUnsupportedRecord), errors.Is(err, mobi.ErrEmptyRecord):
		return resolved{}, nil
	default:
		return resolved{}, fmt.Errorf("read %s: %w", label, err)
	}
}

// merge runs the shared cover and page loop for one book, feeding out.
func (e *Engine) merge(logger *slog.Logger, book *mobi.Book, hd *mobi.PageRecordSet, out sink, result *Result) error {
	cover, err := e.resolve(logger, "cover", hd.CoverRecord(), book.Records.CoverRecord())
	if err != nil {
		return err
	}
	realCover := cover.source != SourceNone
	if realCover {
		err := out.cover(cover.buf, result)
		cover.release()
		if err != nil {
			return err
		}
		result.HdCover = cover.source == SourceHD
		result.SdCover = cover.source == SourceSD
		if !out.wantsPages() {
			return nil
		}
	}

	for i := 0; i < book.Records.Len(); i++ {
		label := fmt.Sprintf("page %d", i+1)
		page, err := e.resolve(logger, label, hd.At(i), book.Records.At(i))
		if err != nil {
			return err
		}
		if page.source == SourceNone {
			result.Skipped++
			logging.WarnWithContext(logger, "page skipped", "page_unreadable",
				logging.Int("content_index", i),
				logging.Hint("the book may be damaged; re-download it"),
				logging.Impact("archive is missing one page"),
			)
			continue
		}

		result.Pages++
		if page.source == SourceHD {
			result.HdImages++
		} else {
			result.SdImages++
		}
		if err := out.page(result.Pages, page.buf); err != nil {
			page.release()
			return err
		}
		if !realCover && !result.FallbackCover {
			if err := out.fallbackCover(page.buf, result); err != nil {
				page.release()
				return err
			}
			result.FallbackCover = true
		}
		page.release()

		if !out.wantsPages() {
			break
		}
	}
	return nil
}
