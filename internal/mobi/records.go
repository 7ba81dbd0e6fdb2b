package mobi

import (
	"bytes"
	"fmt"
	"io"

	"cbzmage/internal/bufpool"
)

// PageRecord references one image inside a decoded container. Load reads the
// image bytes into a pooled buffer owned by the caller; it fails with
// ErrUnsupportedRecord or ErrEmptyRecord when the record cannot be written,
// in which case no buffer is returned.
type PageRecord interface {
	Load(pool *bufpool.Pool) (*bufpool.Buffer, error)
}

// PageRecordSet is the ordered content of one container plus an optional
// dedicated cover. Content index i is page i+1 of the output.
type PageRecordSet struct {
	Cover   PageRecord
	Content []PageRecord
}

// Len returns the number of content records.
func (s *PageRecordSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Content)
}

// At returns the content record at index i, or nil when the set is absent or
// has no record there.
func (s *PageRecordSet) At(i int) PageRecord {
	if s == nil || i < 0 || i >= len(s.Content) {
		return nil
	}
	return s.Content[i]
}

// CoverRecord returns the dedicated cover, or nil.
func (s *PageRecordSet) CoverRecord() PageRecord {
	if s == nil {
		return nil
	}
	return s.Cover
}

// sdRecord is a raw image record of a primary container.
type sdRecord struct {
	src   io.ReaderAt
	entry recordEntry
}

func (r *sdRecord) Load(pool *bufpool.Pool) (*bufpool.Buffer, error) {
	if r.entry.length <= 0 {
		return nil, ErrEmptyRecord
	}
	return loadEntry(pool, r.src, r.entry)
}

// hdRecord is a CRES record of an HD container: a 12 byte prefix followed by
// the image. Placeholder records and unknown encodings are unsupported.
type hdRecord struct {
	src   io.ReaderAt
	entry recordEntry
}

func (r *hdRecord) Load(pool *bufpool.Pool) (*bufpool.Buffer, error) {
	if r.entry.length <= 0 {
		return nil, ErrEmptyRecord
	}
	sig := recordSignature(r.src, r.entry)
	if !bytes.Equal(sig, magicCRES) || r.entry.length <= int64(cresPrefixLength) {
		return nil, ErrUnsupportedRecord
	}
	buf, err := loadEntry(pool, r.src, r.entry)
	if err != nil {
		return nil, err
	}
	buf.Skip(cresPrefixLength)
	if !isImageSignature(buf.Bytes()) {
		buf.Release()
		return nil, ErrUnsupportedRecord
	}
	return buf, nil
}

func loadEntry(pool *bufpool.Pool, src io.ReaderAt, entry recordEntry) (*bufpool.Buffer, error) {
	buf := pool.Acquire()
	n, err := buf.ReadFrom(io.NewSectionReader(src, entry.offset, entry.length))
	if err != nil {
		buf.Release()
		return nil, fmt.Errorf("read record at %d: %w", entry.offset, err)
	}
	if n != entry.length {
		buf.Release()
		return nil, fmt.Errorf("read record at %d: got %d of %d bytes", entry.offset, n, entry.length)
	}
	return buf, nil
}
