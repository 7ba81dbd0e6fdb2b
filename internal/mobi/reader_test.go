package mobi_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"cbzmage/internal/bufpool"
	"cbzmage/internal/mobi"
	"cbzmage/internal/testsupport"
)

var allFields = mobi.ReadOptions{Title: true, Keys: true, Images: true, RequireEXTH: true}

func loadBytes(t *testing.T, pool *bufpool.Pool, record mobi.PageRecord) []byte {
	t.Helper()
	if record == nil {
		t.Fatal("expected record, got nil")
	}
	buf, err := record.Load(pool)
	if err != nil {
		t.Fatalf("load record: %v", err)
	}
	defer buf.Release()
	return append([]byte(nil), buf.Bytes()...)
}

func TestReadBookClassifiesImages(t *testing.T) {
	images := testsupport.FakeJPEGs(1, 5, 2048)
	data := testsupport.EncodeBook(testsupport.BookSpec{
		FullName:   "Full Name",
		Title:      "Updated Title",
		ASIN:       "B00TEST",
		ContentKey: "CK-1",
		Images:     images,
		CoverIndex: 0,
		ThumbIndex: 1,
	})

	book, err := mobi.NewReader().ReadBook("book.azw3", bytes.NewReader(data), allFields)
	if err != nil {
		t.Fatalf("ReadBook: %v", err)
	}
	if book.DisplayTitle() != "Updated Title" {
		t.Fatalf("title = %q", book.DisplayTitle())
	}
	if book.ASIN != "B00TEST" || book.Key() != "CK-1" {
		t.Fatalf("keys = %q/%q", book.ASIN, book.Key())
	}
	if book.ImageCount() != 5 {
		t.Fatalf("image count = %d, want 5", book.ImageCount())
	}
	if got := book.Records.Len(); got != 3 {
		t.Fatalf("content records = %d, want 3", got)
	}

	pool := bufpool.New(bufpool.Options{MinCapacity: 1024, LowWater: 128})
	if got := loadBytes(t, pool, book.Records.CoverRecord()); !bytes.Equal(got, images[0]) {
		t.Fatal("cover bytes differ from image 0")
	}
	for i := 0; i < 3; i++ {
		if got := loadBytes(t, pool, book.Records.At(i)); !bytes.Equal(got, images[i+2]) {
			t.Fatalf("content %d differs from image %d", i, i+2)
		}
	}
}

func TestReadBookSelectiveDecode(t *testing.T) {
	data := testsupport.EncodeBook(testsupport.BookSpec{
		FullName:   "Only Name",
		ASIN:       "B00TEST",
		Images:     testsupport.FakeJPEGs(2, 2, 64),
		CoverIndex: testsupport.NoImage,
		ThumbIndex: testsupport.NoImage,
	})

	book, err := mobi.NewReader().ReadBook("book.azw3", bytes.NewReader(data), mobi.ReadOptions{Title: true})
	if err != nil {
		t.Fatalf("ReadBook: %v", err)
	}
	if book.Title != "Only Name" {
		t.Fatalf("title = %q, want full name fallback", book.Title)
	}
	if book.ASIN != "" {
		t.Fatalf("ASIN decoded without Keys: %q", book.ASIN)
	}
	if book.Records.Len() != 0 || book.Records.CoverRecord() != nil {
		t.Fatal("records decoded without Images")
	}
}

func TestReadBookWithoutCoverKeepsAllImages(t *testing.T) {
	images := testsupport.FakeJPEGs(3, 4, 64)
	images = append(images[:2], append([][]byte{[]byte("RESC0000")}, images[2:]...)...)
	data := testsupport.EncodeBook(testsupport.BookSpec{
		Images:     images,
		CoverIndex: testsupport.NoImage,
		ThumbIndex: testsupport.NoImage,
	})

	book, err := mobi.NewReader().ReadBook("book.azw3", bytes.NewReader(data), allFields)
	if err != nil {
		t.Fatalf("ReadBook: %v", err)
	}
	if book.Records.CoverRecord() != nil {
		t.Fatal("unexpected cover record")
	}
	if got := book.Records.Len(); got != 4 {
		t.Fatalf("content records = %d, want 4 (non-image record skipped)", got)
	}
	if book.ImageCount() != 5 {
		t.Fatalf("image count = %d, want 5 slots", book.ImageCount())
	}
}

func TestReadBookMissingEXTH(t *testing.T) {
	data := testsupport.EncodeBook(testsupport.BookSpec{
		OmitEXTH: true,
		Images:   testsupport.FakeJPEGs(4, 1, 64),
	})

	_, err := mobi.NewReader().ReadBook("book.azw3", bytes.NewReader(data), allFields)
	if !errors.Is(err, mobi.ErrMissingEXTH) {
		t.Fatalf("expected ErrMissingEXTH, got %v", err)
	}
	var metaErr *mobi.MetadataError
	if !errors.As(err, &metaErr) {
		t.Fatalf("expected MetadataError, got %T", err)
	}
	if metaErr.Path != "book.azw3" || metaErr.ErrorKind() != "metadata" {
		t.Fatalf("unexpected metadata error %+v", metaErr)
	}

	opts := allFields
	opts.RequireEXTH = false
	if _, err := mobi.NewReader().ReadBook("book.azw3", bytes.NewReader(data), opts); err != nil {
		t.Fatalf("optional EXTH should decode: %v", err)
	}
}

// corruptEXTHCount rewrites the entry count of the first EXTH section in data.
func corruptEXTHCount(t *testing.T, data []byte, count uint32) []byte {
	t.Helper()
	at := bytes.Index(data, []byte("EXTH"))
	if at < 0 {
		t.Fatal("fixture has no EXTH section")
	}
	out := append([]byte(nil), data...)
	binary.BigEndian.PutUint32(out[at+8:], count)
	return out
}

func TestReadBookRejectsOversizedEXTHCount(t *testing.T) {
	data := corruptEXTHCount(t, testsupport.EncodeBook(testsupport.BookSpec{
		Title:  "Hostile",
		Images: testsupport.FakeJPEGs(6, 1, 64),
	}), 0x7FFFFFFF)

	_, err := mobi.NewReader().ReadBook("hostile.azw3", bytes.NewReader(data), allFields)
	if !errors.Is(err, mobi.ErrInvalidHeader) {
		t.Fatalf("expected ErrInvalidHeader, got %v", err)
	}
	var metaErr *mobi.MetadataError
	if !errors.As(err, &metaErr) || metaErr.Section != "EXTH header" {
		t.Fatalf("expected EXTH MetadataError, got %v", err)
	}
}

func TestReadHDHeaderRejectsOversizedEXTHCount(t *testing.T) {
	data := corruptEXTHCount(t, testsupport.EncodeHDContainer(testsupport.HDSpec{
		Title: "Hostile",
		Slots: testsupport.FakeJPEGs(7, 1, 64),
	}), 0xFFFFFFFF)

	_, err := mobi.NewReader().ReadHDHeader("hostile.azw.res", bytes.NewReader(data))
	if !errors.Is(err, mobi.ErrInvalidHeader) {
		t.Fatalf("expected ErrInvalidHeader, got %v", err)
	}
}

func TestReadBookRejectsTruncatedFile(t *testing.T) {
	data := testsupport.EncodeBook(testsupport.BookSpec{Images: testsupport.FakeJPEGs(5, 1, 64)})
	_, err := mobi.NewReader().ReadBook("short.azw3", bytes.NewReader(data[:60]), allFields)
	if !errors.Is(err, mobi.ErrInvalidHeader) {
		t.Fatalf("expected ErrInvalidHeader, got %v", err)
	}
}

func TestReadHDRecordsAlignsWithBook(t *testing.T) {
	sd := testsupport.FakeJPEGs(10, 4, 256)
	hd := testsupport.FakeJPEGs(20, 4, 1024)
	book, err := mobi.NewReader().ReadBook("vol.azw3", bytes.NewReader(testsupport.EncodeBook(testsupport.BookSpec{
		ContentKey: "CK-2",
		Images:     sd,
		CoverIndex: 0,
		ThumbIndex: testsupport.NoImage,
	})), allFields)
	if err != nil {
		t.Fatalf("ReadBook: %v", err)
	}

	hdData := testsupport.EncodeHDContainer(testsupport.HDSpec{
		Title:      "HD",
		ContentKey: "CK-2",
		Slots:      [][]byte{hd[0], hd[1], nil, hd[3]},
	})
	reader := mobi.NewReader()
	header, err := reader.ReadHDHeader("vol.azw.res", bytes.NewReader(hdData))
	if err != nil {
		t.Fatalf("ReadHDHeader: %v", err)
	}
	if header.ImageCount() != 4 || header.Key() != "CK-2" || header.Title != "HD" {
		t.Fatalf("unexpected header %+v (count %d)", header, header.ImageCount())
	}
	if header.Size() != int64(len(hdData)) {
		t.Fatalf("size = %d, want %d", header.Size(), len(hdData))
	}

	set, err := reader.ReadHDRecords(book, header, bytes.NewReader(hdData))
	if err != nil {
		t.Fatalf("ReadHDRecords: %v", err)
	}
	if set.Len() != book.Records.Len() {
		t.Fatalf("HD length %d != SD length %d", set.Len(), book.Records.Len())
	}

	pool := bufpool.New(bufpool.Options{MinCapacity: 512, LowWater: 64})
	if got := loadBytes(t, pool, set.CoverRecord()); !bytes.Equal(got, hd[0]) {
		t.Fatal("HD cover differs")
	}
	if got := loadBytes(t, pool, set.At(0)); !bytes.Equal(got, hd[1]) {
		t.Fatal("HD page 1 differs")
	}
	if _, err := set.At(1).Load(pool); !errors.Is(err, mobi.ErrUnsupportedRecord) {
		t.Fatalf("placeholder load: expected ErrUnsupportedRecord, got %v", err)
	}
	if got := loadBytes(t, pool, set.At(2)); !bytes.Equal(got, hd[3]) {
		t.Fatal("HD page 3 differs")
	}
	if stats := pool.Stats(); stats.Free == 0 {
		t.Fatal("released buffers should return to the pool")
	}
}

func TestReadHDRecordsShortContainer(t *testing.T) {
	book, err := mobi.NewReader().ReadBook("vol.azw3", bytes.NewReader(testsupport.EncodeBook(testsupport.BookSpec{
		Images:     testsupport.FakeJPEGs(30, 3, 64),
		CoverIndex: testsupport.NoImage,
		ThumbIndex: testsupport.NoImage,
	})), allFields)
	if err != nil {
		t.Fatalf("ReadBook: %v", err)
	}
	hdData := testsupport.EncodeHDContainer(testsupport.HDSpec{Slots: testsupport.FakeJPEGs(40, 1, 64)})
	reader := mobi.NewReader()
	header, err := reader.ReadHDHeader("vol.azw6", bytes.NewReader(hdData))
	if err != nil {
		t.Fatalf("ReadHDHeader: %v", err)
	}
	set, err := reader.ReadHDRecords(book, header, bytes.NewReader(hdData))
	if err != nil {
		t.Fatalf("ReadHDRecords: %v", err)
	}
	if set.At(0) == nil {
		t.Fatal("slot 0 should be present")
	}
	if set.At(1) != nil || set.At(2) != nil {
		t.Fatal("slots beyond the container should be nil")
	}
}

func TestReadHDRecordsDetectsResize(t *testing.T) {
	book := &mobi.Book{}
	hdData := testsupport.EncodeHDContainer(testsupport.HDSpec{Slots: testsupport.FakeJPEGs(50, 1, 64)})
	reader := mobi.NewReader()
	header, err := reader.ReadHDHeader("vol.azw6", bytes.NewReader(hdData))
	if err != nil {
		t.Fatalf("ReadHDHeader: %v", err)
	}
	_, err = reader.ReadHDRecords(book, header, bytes.NewReader(append(hdData, 0)))
	var metaErr *mobi.MetadataError
	if !errors.As(err, &metaErr) {
		t.Fatalf("expected MetadataError, got %v", err)
	}
}

func TestEmptyImageRecord(t *testing.T) {
	pool := bufpool.New(bufpool.Options{})
	data := testsupport.EncodeBook(testsupport.BookSpec{
		Images:     testsupport.FakeJPEGs(60, 2, 64),
		CoverIndex: testsupport.NoImage,
		ThumbIndex: testsupport.NoImage,
	})
	book, err := mobi.NewReader().ReadBook("b.azw3", bytes.NewReader(data), allFields)
	if err != nil {
		t.Fatalf("ReadBook: %v", err)
	}
	for i := 0; i < book.Records.Len(); i++ {
		buf, err := book.Records.At(i).Load(pool)
		if err != nil {
			t.Fatalf("load %d: %v", i, err)
		}
		if mobi.ImageType(buf.Bytes()) != "jpeg" {
			t.Fatalf("record %d is not a jpeg", i)
		}
		buf.Release()
	}
}

func TestExtensionClassification(t *testing.T) {
	cases := []struct {
		name    string
		primary bool
		hd      bool
	}{
		{"book.azw", true, false},
		{"book.AZW3", true, false},
		{"book.mobi", true, false},
		{"book.azw.res", false, true},
		{"book.azw6", false, true},
		{"book.res", false, true},
		{"book.cbz", false, false},
		{"notes.txt", false, false},
	}
	for _, tc := range cases {
		if got := mobi.IsPrimary(tc.name); got != tc.primary {
			t.Errorf("IsPrimary(%q) = %v", tc.name, got)
		}
		if got := mobi.IsHDContainer(tc.name); got != tc.hd {
			t.Errorf("IsHDContainer(%q) = %v", tc.name, got)
		}
	}
}
