package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cbzmage/internal/mobi"
)

var (
	// ErrNotFound indicates the input path does not exist.
	ErrNotFound = errors.New("input path not found")
	// ErrNoInputs indicates the input path holds no primary containers.
	ErrNoInputs = errors.New("no primary container files found")
)

// RecursiveSuffix on a directory argument requests a recursive search.
const RecursiveSuffix = "*"

// Inputs lists the files found for one run, sorted by path.
type Inputs struct {
	Root      string
	Recursive bool
	Primary   []string
	HD        []string
}

// Discover classifies the container files under path. A single primary file
// yields itself plus the HD containers next to it.
func Discover(path string, recursive bool) (*Inputs, error) {
	path = strings.TrimSpace(path)
	if trimmed, ok := strings.CutSuffix(path, RecursiveSuffix); ok {
		path = filepath.Clean(trimmed)
		recursive = true
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrNotFound)
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("stat input: %w", err)
	}

	inputs := &Inputs{Root: path, Recursive: recursive}
	if !info.IsDir() {
		if !mobi.IsPrimary(path) {
			return nil, fmt.Errorf("%w: %s is not a primary container", ErrNoInputs, path)
		}
		inputs.Primary = []string{path}
		inputs.HD, err = listHD(filepath.Dir(path))
		if err != nil {
			return nil, err
		}
		return inputs, nil
	}

	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != path && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		switch {
		case mobi.IsHDContainer(p):
			inputs.HD = append(inputs.HD, p)
		case mobi.IsPrimary(p):
			inputs.Primary = append(inputs.Primary, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", path, err)
	}
	if len(inputs.Primary) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoInputs, path)
	}
	slices.Sort(inputs.Primary)
	slices.Sort(inputs.HD)
	return inputs, nil
}

func listHD(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var hd []string
	for _, entry := range entries {
		if entry.IsDir() || !mobi.IsHDContainer(entry.Name()) {
			continue
		}
		hd = append(hd, filepath.Join(dir, entry.Name()))
	}
	return hd, nil
}
