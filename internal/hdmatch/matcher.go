package hdmatch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"cbzmage/internal/logging"
	"cbzmage/internal/mmap"
	"cbzmage/internal/mobi"
)

// HeaderReader decodes the header of an HD container.
type HeaderReader interface {
	ReadHDHeader(path string, src mobi.Source) (*mobi.HDHeader, error)
}

// Container is an analysed HD container.
type Container struct {
	Path   string
	Dir    string
	Header *mobi.HDHeader
}

// Table maps directories to the HD containers found in them.
type Table struct {
	byDir   map[string][]*Container
	total   int
	skipped int
}

// Analyze decodes every HD container in paths using at most workers
// goroutines. Containers that cannot be decoded are logged and left out; only
// cancellation fails the analysis.
func Analyze(ctx context.Context, reader HeaderReader, paths []string, workers int, logger *slog.Logger) (*Table, error) {
	logger = logging.NewComponentLogger(logger, "hdmatch")
	if workers <= 0 {
		workers = 1
	}

	results := make([]*Container, len(paths))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for i, path := range paths {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			container, err := analyzeOne(reader, path)
			if err != nil {
				logging.WarnWithContext(logger, "HD container skipped", "hd_container_unreadable",
					logging.HDContainer(path),
					logging.Error(err),
					logging.Hint("re-download the book or remove the damaged .azw.res file"),
					logging.Impact("books in this directory use standard definition images"),
				)
				return nil
			}
			results[i] = container
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("analyze HD containers: %w", err)
	}

	table := &Table{byDir: make(map[string][]*Container)}
	for _, container := range results {
		if container == nil {
			table.skipped++
			continue
		}
		table.byDir[container.Dir] = append(table.byDir[container.Dir], container)
		table.total++
	}
	logger.Debug("HD containers analysed",
		logging.Int("hd_containers", table.total),
		logging.Int("skipped", table.skipped),
		logging.Int("directories", len(table.byDir)),
	)
	return table, nil
}

func analyzeOne(reader HeaderReader, path string) (*Container, error) {
	src, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	header, err := reader.ReadHDHeader(path, src)
	if err != nil {
		return nil, err
	}
	return &Container{Path: path, Dir: dirKey(path), Header: header}, nil
}

// Match returns every container in the directory of primary. The slice is
// shared and must not be modified.
func (t *Table) Match(primary string) []*Container {
	if t == nil {
		return nil
	}
	return t.byDir[dirKey(primary)]
}

// Len returns the number of analysed containers.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return t.total
}

// Skipped returns the number of containers that could not be decoded.
func (t *Table) Skipped() int {
	if t == nil {
		return 0
	}
	return t.skipped
}

// Select picks the container for book among candidates: the one whose content
// key matches, else the first whose image slot count matches, else nil.
func Select(book *mobi.Book, candidates []*Container) *Container {
	if book == nil || len(candidates) == 0 {
		return nil
	}
	if key := book.Key(); key != "" {
		for _, candidate := range candidates {
			if candidate.Header.Key() == key {
				return candidate
			}
		}
	}
	for _, candidate := range candidates {
		if candidate.Header.ImageCount() == book.ImageCount() {
			return candidate
		}
	}
	return nil
}

func dirKey(path string) string {
	dir := filepath.Dir(path)
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return filepath.Clean(dir)
}
