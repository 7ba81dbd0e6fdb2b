package engine

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"cbzmage/internal/textutil"
)

// nameRegistry hands out output stems that are unique within one run.
type nameRegistry struct {
	mu    sync.Mutex
	taken map[string]string
}

func newNameRegistry() *nameRegistry {
	return &nameRegistry{taken: make(map[string]string)}
}

// claim returns the stem for the book at primary titled title. A title already
// claimed by another book gets the primary file stem appended.
func (r *nameRegistry) claim(title, primary string) string {
	fileStem := primaryStem(primary)
	stem := textutil.BookStem(title, fileStem)

	r.mu.Lock()
	defer r.mu.Unlock()
	candidate := stem
	for attempt := 1; ; attempt++ {
		key := strings.ToLower(candidate)
		owner, ok := r.taken[key]
		if !ok || owner == primary {
			r.taken[key] = primary
			return candidate
		}
		switch attempt {
		case 1:
			candidate = fmt.Sprintf("%s_%s", stem, fileStem)
		default:
			candidate = fmt.Sprintf("%s_%s_%d", stem, fileStem, attempt)
		}
	}
}

func primaryStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
