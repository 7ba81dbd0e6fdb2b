package hdmatch_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"cbzmage/internal/hdmatch"
	"cbzmage/internal/logging"
	"cbzmage/internal/mobi"
	"cbzmage/internal/testsupport"
)

func hdSlots(seed int64, count int) [][]byte {
	return testsupport.FakeJPEGs(seed, count, 128)
}

func TestAnalyzeGroupsByDirectory(t *testing.T) {
	root := t.TempDir()
	shared := filepath.Join(root, "series", "vol.azw.res")
	other := filepath.Join(root, "series", "other.azw6")
	broken := filepath.Join(root, "series", "broken.azw.res")
	testsupport.BuildHDContainer(t, shared, testsupport.HDSpec{ContentKey: "A", Slots: hdSlots(1, 3)})
	testsupport.BuildHDContainer(t, other, testsupport.HDSpec{ContentKey: "B", Slots: hdSlots(2, 2)})
	testsupport.WriteFile(t, broken, 12)

	table, err := hdmatch.Analyze(context.Background(), mobi.NewReader(), []string{shared, other, broken}, 2, logging.NewNop())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if table.Len() != 2 || table.Skipped() != 1 {
		t.Fatalf("len=%d skipped=%d, want 2/1", table.Len(), table.Skipped())
	}

	one := table.Match(filepath.Join(root, "series", "vol1.azw3"))
	two := table.Match(filepath.Join(root, "series", "vol2.azw3"))
	if len(one) != 2 || len(two) != 2 {
		t.Fatalf("expected both containers for each primary, got %d and %d", len(one), len(two))
	}
	if one[0] != two[0] || one[1] != two[1] {
		t.Fatal("primaries in one directory should share container references")
	}
	if one[0].Path != shared || one[1].Path != other {
		t.Fatalf("unexpected container order %s, %s", one[0].Path, one[1].Path)
	}

	if got := table.Match(filepath.Join(root, "elsewhere", "vol3.azw3")); len(got) != 0 {
		t.Fatalf("sibling directory should not match, got %d", len(got))
	}
}

func TestAnalyzeHonoursCancellation(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "vol.azw.res")
	testsupport.BuildHDContainer(t, path, testsupport.HDSpec{Slots: hdSlots(3, 1)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := hdmatch.Analyze(ctx, mobi.NewReader(), []string{path}, 1, nil); err == nil {
		t.Fatal("expected canceled analysis to fail")
	}
}

func readBook(t *testing.T, spec testsupport.BookSpec) *mobi.Book {
	t.Helper()
	book, err := mobi.NewReader().ReadBook("book.azw3", bytes.NewReader(testsupport.EncodeBook(spec)), mobi.ReadOptions{Keys: true, Images: true})
	if err != nil {
		t.Fatalf("ReadBook: %v", err)
	}
	return book
}

func container(t *testing.T, name string, spec testsupport.HDSpec) *hdmatch.Container {
	t.Helper()
	header, err := mobi.NewReader().ReadHDHeader(name, bytes.NewReader(testsupport.EncodeHDContainer(spec)))
	if err != nil {
		t.Fatalf("ReadHDHeader: %v", err)
	}
	return &hdmatch.Container{Path: name, Header: header}
}

func TestSelect(t *testing.T) {
	book := readBook(t, testsupport.BookSpec{
		ContentKey: "KEY-2",
		Images:     testsupport.FakeJPEGs(10, 3, 64),
		CoverIndex: testsupport.NoImage,
		ThumbIndex: testsupport.NoImage,
	})
	byKey := container(t, "key.azw.res", testsupport.HDSpec{ContentKey: "KEY-2", Slots: hdSlots(4, 1)})
	byCount := container(t, "count.azw.res", testsupport.HDSpec{ContentKey: "KEY-9", Slots: hdSlots(5, 3)})
	neither := container(t, "neither.azw.res", testsupport.HDSpec{ContentKey: "KEY-7", Slots: hdSlots(6, 5)})

	if got := hdmatch.Select(book, []*hdmatch.Container{neither, byCount, byKey}); got != byKey {
		t.Fatalf("expected key match, got %v", got)
	}
	if got := hdmatch.Select(book, []*hdmatch.Container{neither, byCount}); got != byCount {
		t.Fatalf("expected count match, got %v", got)
	}
	if got := hdmatch.Select(book, []*hdmatch.Container{neither}); got != nil {
		t.Fatalf("expected no match, got %v", got.Path)
	}
	if got := hdmatch.Select(book, nil); got != nil {
		t.Fatal("expected nil without candidates")
	}
}
