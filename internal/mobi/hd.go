package mobi

var (
	magicAZW6 = []byte("AZW6")
	magicRESC = []byte("RESC")
)

// HDHeader is the analysed header of an HD container. It records where each
// HD image slot lives so record sets can be bound to a fresh mapping of the
// file later. One header may be shared by several books.
type HDHeader struct {
	Path       string
	Title      string
	ASIN       string
	ContentKey string

	size  int64
	slots []recordEntry
}

// ImageCount returns the number of HD image slots, placeholders included.
func (h *HDHeader) ImageCount() int {
	if h == nil {
		return 0
	}
	return len(h.slots)
}

// Size returns the container length observed during analysis.
func (h *HDHeader) Size() int64 {
	if h == nil {
		return 0
	}
	return h.size
}

// Key returns the identifier used to pair the container with a book.
func (h *HDHeader) Key() string {
	if h == nil {
		return ""
	}
	return firstNonEmpty(h.ContentKey, h.ASIN)
}
