package mobi

import (
	"bytes"
	"encoding/binary"
	"strings"
)

const (
	palmDocHeaderLen = 16

	// Offsets inside record 0.
	mobiMagicOff        = 16
	mobiHeaderLenOff    = 20
	fullNameOffsetOff   = 84
	fullNameLengthOff   = 88
	firstImageIndexOff  = 108
	exthFlagsOff        = 128
	lastContentIndexOff = 194

	exthPresentFlag = 0x40
	noIndex         = 0xFFFFFFFF

	exthASIN         = 113
	exthCoverOffset  = 201
	exthThumbOffset  = 202
	exthUpdatedTitle = 503
	exthContentKey   = 504
)

var magicMOBI = []byte("MOBI")

// ReadOptions selects which parts of a container are decoded. Fields that are
// not requested stay zero and cost nothing to skip.
type ReadOptions struct {
	// Title decodes the full name and the EXTH updated title.
	Title bool
	// Keys decodes the ASIN and content key used to pair HD containers.
	Keys bool
	// Images classifies image records into the cover and content set.
	Images bool
	// RequireEXTH turns a missing EXTH section into a MetadataError.
	RequireEXTH bool
}

// Book is the decoded view of a primary container.
type Book struct {
	Path       string
	Title      string
	ASIN       string
	ContentKey string
	Records    PageRecordSet

	firstImage    int
	coverImage    int
	thumbImage    int
	contentImages []int
	imageSlots    int
}

// DisplayTitle returns the decoded title, or "" when none was decoded.
func (b *Book) DisplayTitle() string {
	if b == nil {
		return ""
	}
	return strings.TrimSpace(b.Title)
}

// ImageCount returns the number of record slots between the first image and
// the last content record, the positions an HD container has to mirror.
func (b *Book) ImageCount() int {
	if b == nil {
		return 0
	}
	return b.imageSlots
}

// Key returns the identifier used to pair the book with an HD container.
func (b *Book) Key() string {
	if b == nil {
		return ""
	}
	return firstNonEmpty(b.ContentKey, b.ASIN)
}

type exthHeader struct {
	values map[uint32][]byte
}

func (e *exthHeader) uint(kind uint32) (int, bool) {
	if e == nil {
		return 0, false
	}
	raw, ok := e.values[kind]
	if !ok || len(raw) < 4 {
		return 0, false
	}
	value := binary.BigEndian.Uint32(raw)
	if value == noIndex {
		return 0, false
	}
	return int(value), true
}

func (e *exthHeader) text(kind uint32) string {
	if e == nil {
		return ""
	}
	return strings.TrimSpace(string(bytes.TrimRight(e.values[kind], "\x00")))
}

// parseEXTH decodes the EXTH section starting at data[0]. It returns nil when
// the section magic is absent.
func parseEXTH(data []byte) (*exthHeader, error) {
	if len(data) < 12 || !bytes.Equal(data[:4], []byte("EXTH")) {
		return nil, nil
	}
	length := int(binary.BigEndian.Uint32(data[4:]))
	count := int(binary.BigEndian.Uint32(data[8:]))
	if length < 12 || length > len(data) {
		return nil, invalid("EXTH length %d exceeds record of %d bytes", length, len(data))
	}
	// Every entry carries at least an 8-byte header.
	if count < 0 || count > (length-12)/8 {
		return nil, invalid("EXTH count %d does not fit %d bytes", count, length)
	}
	header := &exthHeader{values: make(map[uint32][]byte, count)}
	pos := 12
	for i := 0; i < count; i++ {
		if pos+8 > length {
			return nil, invalid("EXTH entry %d truncated", i)
		}
		kind := binary.BigEndian.Uint32(data[pos:])
		size := int(binary.BigEndian.Uint32(data[pos+4:]))
		if size < 8 || pos+size > length {
			return nil, invalid("EXTH entry %d has bad length %d", i, size)
		}
		header.values[kind] = data[pos+8 : pos+size]
		pos += size
	}
	return header, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
