package testsupport

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// NoImage marks an unset cover or thumbnail index in a BookSpec.
const NoImage = -1

// BookSpec describes a synthetic primary container.
type BookSpec struct {
	// Name is the database name stored in the PDB header.
	Name string
	// FullName is the MOBI full name.
	FullName   string
	Title      string
	ASIN       string
	ContentKey string
	// OmitEXTH writes a MOBI header without the extended header section.
	OmitEXTH bool
	// Images are the records starting at the first image index, in order.
	Images [][]byte
	// CoverIndex and ThumbIndex are image indexes; use NoImage for none.
	CoverIndex int
	ThumbIndex int
}

// HDSpec describes a synthetic HD container. A nil slot is written as a
// placeholder record.
type HDSpec struct {
	Name       string
	Title      string
	ASIN       string
	ContentKey string
	Slots      [][]byte
}

var (
	eofRecord = []byte{0xE9, 0x8E, 0x0D, 0x0A}
	// textRecord stands in for the compressed book text, which in real
	// containers dwarfs the per-page archive framing.
	textRecord = []byte("<html><body>" + strings.Repeat("<p>page text</p>", 256) + "</body></html>")
)

// FakeJPEG returns size bytes that start with a JPEG signature followed by
// deterministic noise for seed. Noise keeps compressed sizes close to the
// input so archive size bounds are meaningful.
func FakeJPEG(seed int64, size int) []byte {
	if size < 8 {
		size = 8
	}
	data := make([]byte, size)
	rng := rand.New(rand.NewSource(seed))
	_, _ = rng.Read(data)
	copy(data, []byte{0xFF, 0xD8, 0xFF, 0xE0})
	data[size-2], data[size-1] = 0xFF, 0xD9
	return data
}

// FakeJPEGs returns count distinct fake images of the given size.
func FakeJPEGs(seed int64, count, size int) [][]byte {
	images := make([][]byte, count)
	for i := range images {
		images[i] = FakeJPEG(seed+int64(i), size)
	}
	return images
}

// BuildBook writes a primary container described by spec to path.
func BuildBook(t testing.TB, path string, spec BookSpec) {
	t.Helper()
	writeFixture(t, path, EncodeBook(spec))
}

// BuildHDContainer writes an HD container described by spec to path.
func BuildHDContainer(t testing.TB, path string, spec HDSpec) {
	t.Helper()
	writeFixture(t, path, EncodeHDContainer(spec))
}

// EncodeBook returns the bytes of a primary container.
func EncodeBook(spec BookSpec) []byte {
	const (
		mobiHeaderLen = 232
		exthStart     = 16 + mobiHeaderLen
		firstImage    = 2
	)
	head := make([]byte, exthStart)
	binary.BigEndian.PutUint16(head[0:], 1)
	copy(head[16:], "MOBI")
	binary.BigEndian.PutUint32(head[20:], mobiHeaderLen)
	if len(spec.Images) > 0 {
		binary.BigEndian.PutUint32(head[108:], firstImage)
		binary.BigEndian.PutUint16(head[194:], uint16(firstImage+len(spec.Images)-1))
	} else {
		binary.BigEndian.PutUint32(head[108:], 0xFFFFFFFF)
	}

	var exth []byte
	if !spec.OmitEXTH {
		binary.BigEndian.PutUint32(head[128:], 0x40)
		entries := exthEntries{}
		entries.text(113, spec.ASIN)
		entries.index(201, spec.CoverIndex)
		entries.index(202, spec.ThumbIndex)
		entries.text(503, spec.Title)
		entries.text(504, spec.ContentKey)
		exth = entries.encode()
	}

	binary.BigEndian.PutUint32(head[84:], uint32(exthStart+len(exth)))
	binary.BigEndian.PutUint32(head[88:], uint32(len(spec.FullName)))
	rec0 := append(head, exth...)
	rec0 = append(rec0, spec.FullName...)
	rec0 = append(rec0, 0, 0)

	records := [][]byte{rec0, textRecord}
	records = append(records, spec.Images...)
	records = append(records, []byte("FLIS\x00\x00\x00\x08"), []byte("FCIS\x00\x00\x00\x14"), eofRecord)
	return encodePDB(firstNonEmpty(spec.Name, "fixture"), "BOOKMOBI", records)
}

// EncodeHDContainer returns the bytes of an HD container.
func EncodeHDContainer(spec HDSpec) []byte {
	const headerLen = 48
	head := make([]byte, headerLen)
	copy(head, "AZW6")
	binary.BigEndian.PutUint32(head[4:], headerLen)
	entries := exthEntries{}
	entries.text(113, spec.ASIN)
	entries.text(503, spec.Title)
	entries.text(504, spec.ContentKey)
	rec0 := append(head, entries.encode()...)

	records := [][]byte{rec0}
	for _, slot := range spec.Slots {
		if slot == nil {
			records = append(records, []byte{0xA0, 0xA0, 0xA0, 0xA0, 0, 0, 0, 0})
			continue
		}
		cres := make([]byte, 12, 12+len(slot))
		copy(cres, "CRES")
		records = append(records, append(cres, slot...))
	}
	records = append(records, []byte("kindle:embed:0001"), eofRecord)
	return encodePDB(firstNonEmpty(spec.Name, "fixture-hd"), "RBINCONT", records)
}

type exthEntries struct {
	buf   bytes.Buffer
	count int
}

func (e *exthEntries) text(kind uint32, value string) {
	if value == "" {
		return
	}
	e.add(kind, []byte(value))
}

func (e *exthEntries) index(kind uint32, value int) {
	if value < 0 {
		return
	}
	raw := make([]byte, 4)
	binary.BigEndian.PutUint32(raw, uint32(value))
	e.add(kind, raw)
}

func (e *exthEntries) add(kind uint32, data []byte) {
	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[0:], kind)
	binary.BigEndian.PutUint32(hdr[4:], uint32(8+len(data)))
	e.buf.Write(hdr[:])
	e.buf.Write(data)
	e.count++
}

func (e *exthEntries) encode() []byte {
	out := make([]byte, 12, 12+e.buf.Len())
	copy(out, "EXTH")
	binary.BigEndian.PutUint32(out[4:], uint32(12+e.buf.Len()))
	binary.BigEndian.PutUint32(out[8:], uint32(e.count))
	return append(out, e.buf.Bytes()...)
}

func encodePDB(name, kind string, records [][]byte) []byte {
	const headerLen = 78
	head := make([]byte, headerLen)
	copy(head[:31], name)
	copy(head[60:68], kind)
	binary.BigEndian.PutUint16(head[76:], uint16(len(records)))

	var out bytes.Buffer
	out.Write(head)
	offset := headerLen + 8*len(records) + 2
	for i, record := range records {
		var entry [8]byte
		binary.BigEndian.PutUint32(entry[0:], uint32(offset))
		entry[5] = byte(i >> 16)
		entry[6] = byte(i >> 8)
		entry[7] = byte(i)
		out.Write(entry[:])
		offset += len(record)
	}
	out.Write([]byte{0, 0})
	for _, record := range records {
		out.Write(record)
	}
	return out.Bytes()
}

func writeFixture(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
