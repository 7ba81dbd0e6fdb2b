package mobi

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	pdbHeaderLen   = 78
	pdbEntryLen    = 8
	pdbNameLen     = 32
	pdbNumRecsOff  = 76
	pdbTypeOff     = 60
	pdbCreatorOff  = 64
	signatureBytes = 4
)

// Source is a random-access view of a container file, usually a memory map.
type Source interface {
	io.ReaderAt
	Size() int64
}

type recordEntry struct {
	offset int64
	length int64
}

type pdbHeader struct {
	name    string
	kind    string
	records []recordEntry
}

func readPDB(src Source) (*pdbHeader, error) {
	size := src.Size()
	if size < pdbHeaderLen {
		return nil, invalid("file shorter than database header (%d bytes)", size)
	}
	head, err := readBytes(src, 0, pdbHeaderLen)
	if err != nil {
		return nil, err
	}

	count := int(binary.BigEndian.Uint16(head[pdbNumRecsOff:]))
	if count == 0 {
		return nil, invalid("database has no records")
	}
	listLen := int64(count * pdbEntryLen)
	if pdbHeaderLen+listLen > size {
		return nil, invalid("record list of %d entries exceeds file", count)
	}
	list, err := readBytes(src, pdbHeaderLen, listLen)
	if err != nil {
		return nil, err
	}

	offsets := make([]int64, count)
	for i := range offsets {
		offsets[i] = int64(binary.BigEndian.Uint32(list[i*pdbEntryLen:]))
	}
	records := make([]recordEntry, count)
	for i, offset := range offsets {
		end := size
		if i+1 < count {
			end = offsets[i+1]
		}
		if offset < pdbHeaderLen+listLen || offset > end || end > size {
			return nil, invalid("record %d spans [%d,%d) outside file of %d bytes", i, offset, end, size)
		}
		records[i] = recordEntry{offset: offset, length: end - offset}
	}

	return &pdbHeader{
		name:    cString(head[:pdbNameLen]),
		kind:    string(head[pdbTypeOff:pdbCreatorOff+4]),
		records: records,
	}, nil
}

func readBytes(src io.ReaderAt, offset, length int64) ([]byte, error) {
	buf := make([]byte, length)
	if _, err := src.ReadAt(buf, offset); err != nil {
		return nil, fmt.Errorf("read %d bytes at %d: %w", length, offset, err)
	}
	return buf, nil
}

// recordSignature returns the first bytes of a record without reading the
// rest of it.
func recordSignature(src io.ReaderAt, entry recordEntry) []byte {
	n := min(entry.length, signatureBytes)
	if n <= 0 {
		return nil
	}
	sig, err := readBytes(src, entry.offset, n)
	if err != nil {
		return nil
	}
	return sig
}

func cString(raw []byte) string {
	for i, b := range raw {
		if b == 0 {
			return string(raw[:i])
		}
	}
	return string(raw)
}
