package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cbzmage/internal/bufpool"
	"cbzmage/internal/cbz"
	"cbzmage/internal/hdmatch"
	"cbzmage/internal/logging"
	"cbzmage/internal/mmap"
	"cbzmage/internal/mobi"
)

// ErrNoImages reports a book in which no image could be resolved.
var ErrNoImages = errors.New("book contains no readable images")

// MetadataReader decodes primary containers and binds analysed HD containers
// to them. *mobi.Reader implements it.
type MetadataReader interface {
	ReadBook(path string, src mobi.Source, opts mobi.ReadOptions) (*mobi.Book, error)
	ReadHDRecords(book *mobi.Book, hd *mobi.HDHeader, src mobi.Source) (*mobi.PageRecordSet, error)
}

// Options configures an Engine.
type Options struct {
	Reader      MetadataReader
	Pool        *bufpool.Pool
	Compression cbz.Compression
	// OutputDir receives archives.
	OutputDir string
	// CoverDir receives standalone cover files. Empty disables them in
	// ModeConvert; ModeCover falls back to OutputDir.
	CoverDir string
	Logger   *slog.Logger
	// Now is used for Result.Checked; tests may pin it.
	Now func() time.Time
}

// Engine converts books. It is safe for concurrent use by several workers.
type Engine struct {
	reader      MetadataReader
	pool        *bufpool.Pool
	compression cbz.Compression
	outputDir   string
	coverDir    string
	logger      *slog.Logger
	now         func() time.Time
	names       *nameRegistry
}

// New builds an Engine. A nil Reader or Pool gets the package default.
func New(opts Options) *Engine {
	reader := opts.Reader
	if reader == nil {
		reader = mobi.NewReader()
	}
	pool := opts.Pool
	if pool == nil {
		pool = bufpool.New(bufpool.Options{})
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		reader:      reader,
		pool:        pool,
		compression: opts.Compression,
		outputDir:   opts.OutputDir,
		coverDir:    opts.CoverDir,
		logger:      logging.NewComponentLogger(opts.Logger, "engine"),
		now:         now,
		names:       newNameRegistry(),
	}
}

// Pool returns the buffer pool shared by all books.
func (e *Engine) Pool() *bufpool.Pool { return e.pool }

// Run processes one book in mode. ctx only contributes log fields: a book
// that has started is always carried to completion so no archive is left
// half written.
func (e *Engine) Run(ctx context.Context, mode Mode, job Job) (*Result, error) {
	logger := logging.WithContext(logging.WithBook(ctx, job.Primary), e.logger).
		With(logging.Mode(mode.String()))

	src, err := mmap.Open(job.Primary)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", job.Primary, err)
	}
	defer src.Close()

	book, err := e.reader.ReadBook(job.Primary, src, mobi.ReadOptions{
		Title:       true,
		Keys:        true,
		Images:      true,
		RequireEXTH: true,
	})
	if err != nil {
		return nil, err
	}

	result := &Result{Title: book.DisplayTitle()}
	hdSet, hdSize, closeHD := e.bindHD(logger, book, job.Containers, result)
	defer closeHD()

	if book.Records.Len() == 0 && book.Records.CoverRecord() == nil {
		return nil, fmt.Errorf("%s: %w", job.Primary, ErrNoImages)
	}

	result.Name = e.names.claim(book.DisplayTitle(), job.Primary)
	out, err := e.newSink(mode, result.Name, src.Size()+hdSize)
	if err != nil {
		return nil, err
	}
	if err := e.merge(logger, book, hdSet, out, result); err != nil {
		out.abort()
		return nil, err
	}
	if result.Empty() {
		out.abort()
		return nil, fmt.Errorf("%s: %w", job.Primary, ErrNoImages)
	}
	if err := out.finish(result); err != nil {
		return nil, err
	}
	result.Checked = e.now()

	logger.Info(completionMessage(mode),
		logging.String(logging.FieldEventType, "book_"+mode.String()),
		logging.Int("pages", result.Pages),
		logging.Int("hd_images", result.HdImages),
		logging.Int("sd_images", result.SdImages),
		logging.String("cover_source", result.CoverSource()),
		logging.ArchiveBytes(result.ArchiveBytes),
	)
	return result, nil
}

// bindHD selects the HD container for book among candidates and maps it. It
// returns a nil set, and logs why, whenever the book has to use SD images
// only. The returned func releases the mapping.
func (e *Engine) bindHD(logger *slog.Logger, book *mobi.Book, candidates []*hdmatch.Container, result *Result) (*mobi.PageRecordSet, int64, func()) {
	noop := func() {}
	if len(candidates) == 0 {
		logging.WarnWithContext(logger, "no HD image container", "hd_container_missing",
			logging.Hint("download the book again with HD images to get full resolution pages"),
			logging.Impact("archive uses standard definition images"),
		)
		return nil, 0, noop
	}
	container := hdmatch.Select(book, candidates)
	if container == nil {
		logging.WarnWithContext(logger, "no HD image container matches book", "hd_container_unmatched",
			logging.Int("candidates", len(candidates)),
			logging.Int("image_count", book.ImageCount()),
			logging.Hint("check that the .azw.res file belongs to this book"),
			logging.Impact("archive uses standard definition images"),
		)
		return nil, 0, noop
	}

	hdSrc, err := mmap.Open(container.Path)
	if err != nil {
		e.warnHDUnusable(logger, container.Path, err)
		return nil, 0, noop
	}
	set, err := e.reader.ReadHDRecords(book, container.Header, hdSrc)
	if err != nil {
		_ = hdSrc.Close()
		e.warnHDUnusable(logger, container.Path, err)
		return nil, 0, noop
	}
	result.HDContainer = container.Path
	logger.Debug("HD container bound",
		logging.HDContainer(container.Path),
		logging.Int("hd_slots", container.Header.ImageCount()),
		logging.Int("image_count", book.ImageCount()),
	)
	return set, hdSrc.Size(), func() { _ = hdSrc.Close() }
}

func (e *Engine) warnHDUnusable(logger *slog.Logger, path string, err error) {
	logging.WarnWithContext(logger, "HD container unusable", "hd_container_unreadable",
		logging.HDContainer(path),
		logging.Error(err),
		logging.Hint("re-download the book or remove the damaged .azw.res file"),
		logging.Impact("archive uses standard definition images"),
	)
}

func (e *Engine) newSink(mode Mode, name string, estimate int64) (sink, error) {
	switch mode {
	case ModeConvert:
		if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
		writer, err := cbz.Create(filepath.Join(e.outputDir, name+".cbz"), estimate, e.compression)
		if err != nil {
			return nil, err
		}
		coverPath := ""
		if e.coverDir != "" {
			coverPath = filepath.Join(e.coverDir, name+".jpg")
		}
		return &archiveSink{writer: writer, coverPath: coverPath}, nil
	case ModeScan:
		return scanSink{}, nil
	case ModeCover:
		dir := e.coverDir
		if dir == "" {
			dir = e.outputDir
		}
		return &coverSink{coverPath: filepath.Join(dir, name+".jpg")}, nil
	default:
		return nil, fmt.Errorf("unknown mode %v", mode)
	}
}

func completionMessage(mode Mode) string {
	switch mode {
	case ModeScan:
		return "book scanned"
	case ModeCover:
		return "cover extracted"
	default:
		return "book converted"
	}
}
