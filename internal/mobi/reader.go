package mobi

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Reader decodes primary and HD containers. It holds no state and is safe for
// concurrent use.
type Reader struct{}

// NewReader returns a container reader.
func NewReader() *Reader { return &Reader{} }

// ReadBook decodes the fields of a primary container selected by opts.
func (r *Reader) ReadBook(path string, src Source, opts ReadOptions) (*Book, error) {
	pdb, err := readPDB(src)
	if err != nil {
		return nil, metadataErr(path, "database header", err)
	}
	rec0, err := readBytes(src, pdb.records[0].offset, pdb.records[0].length)
	if err != nil {
		return nil, metadataErr(path, "record 0", err)
	}
	if len(rec0) < mobiHeaderLenOff+4 || !bytes.Equal(rec0[mobiMagicOff:mobiMagicOff+4], magicMOBI) {
		return nil, metadataErr(path, "MOBI header", invalid("MOBI magic not found"))
	}
	mobiEnd := palmDocHeaderLen + int(binary.BigEndian.Uint32(rec0[mobiHeaderLenOff:]))
	if mobiEnd > len(rec0) || mobiEnd < mobiHeaderLenOff+4 {
		return nil, metadataErr(path, "MOBI header", invalid("header length %d does not fit record 0", mobiEnd-palmDocHeaderLen))
	}
	header := mobiFields{data: rec0, end: mobiEnd}

	var exth *exthHeader
	if flags, ok := header.u32(exthFlagsOff); ok && flags&exthPresentFlag != 0 {
		exth, err = parseEXTH(rec0[mobiEnd:])
		if err != nil {
			return nil, metadataErr(path, "EXTH header", err)
		}
	}
	if exth == nil && opts.RequireEXTH {
		return nil, metadataErr(path, "EXTH header", ErrMissingEXTH)
	}

	book := &Book{Path: path, coverImage: -1, thumbImage: -1}
	if opts.Title {
		book.Title = firstNonEmpty(exth.text(exthUpdatedTitle), header.fullName(), pdb.name)
	}
	if opts.Keys {
		book.ASIN = exth.text(exthASIN)
		book.ContentKey = exth.text(exthContentKey)
	}
	if opts.Images {
		classifyImages(book, pdb, src, header, exth)
	}
	return book, nil
}

// ReadHDHeader decodes an HD container completely: its header fields and the
// record slots holding HD images.
func (r *Reader) ReadHDHeader(path string, src Source) (*HDHeader, error) {
	pdb, err := readPDB(src)
	if err != nil {
		return nil, metadataErr(path, "database header", err)
	}
	rec0, err := readBytes(src, pdb.records[0].offset, pdb.records[0].length)
	if err != nil {
		return nil, metadataErr(path, "record 0", err)
	}

	hd := &HDHeader{Path: path, size: src.Size()}
	if len(rec0) >= 8 && (bytes.HasPrefix(rec0, magicAZW6) || bytes.HasPrefix(rec0, magicRESC)) {
		headerLen := int(binary.BigEndian.Uint32(rec0[4:]))
		if headerLen >= 8 && headerLen <= len(rec0) {
			exth, err := parseEXTH(rec0[headerLen:])
			if err != nil {
				return nil, metadataErr(path, "EXTH header", err)
			}
			hd.Title = exth.text(exthUpdatedTitle)
			hd.ASIN = exth.text(exthASIN)
			hd.ContentKey = exth.text(exthContentKey)
		}
	}
	if hd.Title == "" {
		hd.Title = pdb.name
	}

	for _, entry := range pdb.records[1:] {
		if !isHDSlot(recordSignature(src, entry)) {
			break
		}
		hd.slots = append(hd.slots, entry)
	}
	return hd, nil
}

// ReadHDRecords binds an analysed HD container to book. src must map the same
// file the header was read from. The returned set mirrors book.Records: the
// same length and index order, with nil where the container has no slot.
func (r *Reader) ReadHDRecords(book *Book, hd *HDHeader, src Source) (*PageRecordSet, error) {
	if book == nil || hd == nil {
		return nil, nil
	}
	if src.Size() != hd.size {
		return nil, metadataErr(hd.Path, "HD container", fmt.Errorf("size changed from %d to %d bytes since analysis", hd.size, src.Size()))
	}
	slot := func(k int) PageRecord {
		if k < 0 || k >= len(hd.slots) {
			return nil
		}
		return &hdRecord{src: src, entry: hd.slots[k]}
	}
	set := &PageRecordSet{
		Cover:   slot(book.coverImage),
		Content: make([]PageRecord, len(book.contentImages)),
	}
	for i, k := range book.contentImages {
		set.Content[i] = slot(k)
	}
	return set, nil
}

func classifyImages(book *Book, pdb *pdbHeader, src Source, header mobiFields, exth *exthHeader) {
	first, ok := header.u32(firstImageIndexOff)
	if !ok || first == noIndex || int(first) >= len(pdb.records) {
		return
	}
	firstImage := int(first)
	last := len(pdb.records) - 1
	if lastContent, ok := header.u16(lastContentIndexOff); ok && int(lastContent) >= firstImage && int(lastContent) < last {
		last = int(lastContent)
	}
	book.firstImage = firstImage
	book.imageSlots = last - firstImage + 1

	if cover, ok := exth.uint(exthCoverOffset); ok && cover < book.imageSlots {
		book.coverImage = cover
	}
	if thumb, ok := exth.uint(exthThumbOffset); ok && thumb < book.imageSlots {
		book.thumbImage = thumb
	}

	for k := 0; k < book.imageSlots; k++ {
		entry := pdb.records[firstImage+k]
		if !isImageSignature(recordSignature(src, entry)) {
			continue
		}
		record := &sdRecord{src: src, entry: entry}
		switch k {
		case book.coverImage:
			book.Records.Cover = record
		case book.thumbImage:
		default:
			book.contentImages = append(book.contentImages, k)
			book.Records.Content = append(book.Records.Content, record)
		}
	}
}

// mobiFields reads fixed-offset fields of record 0 bounded by the declared
// MOBI header length.
type mobiFields struct {
	data []byte
	end  int
}

func (m mobiFields) u32(offset int) (uint32, bool) {
	if offset+4 > m.end {
		return 0, false
	}
	return binary.BigEndian.Uint32(m.data[offset:]), true
}

func (m mobiFields) u16(offset int) (uint16, bool) {
	if offset+2 > m.end {
		return 0, false
	}
	return binary.BigEndian.Uint16(m.data[offset:]), true
}

func (m mobiFields) fullName() string {
	offset, ok := m.u32(fullNameOffsetOff)
	if !ok {
		return ""
	}
	length, ok := m.u32(fullNameLengthOff)
	if !ok || length == 0 || int64(offset)+int64(length) > int64(len(m.data)) {
		return ""
	}
	return string(m.data[offset : offset+length])
}
