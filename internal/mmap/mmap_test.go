package mmap

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenReadsFileContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.azw3")
	content := []byte("BOOKMOBI record data")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	reader, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reader.Close()

	if reader.Size() != int64(len(content)) {
		t.Fatalf("size %d, want %d", reader.Size(), len(content))
	}
	got, err := io.ReadAll(io.NewSectionReader(reader, 4, 4))
	if err != nil {
		t.Fatalf("read section: %v", err)
	}
	if string(got) != "MOBI" {
		t.Fatalf("unexpected section %q", got)
	}

	buf := make([]byte, 8)
	n, err := reader.ReadAt(buf, int64(len(content)-3))
	if n != 3 || !errors.Is(err, io.EOF) {
		t.Fatalf("expected short read with EOF, got n=%d err=%v", n, err)
	}
}

func TestOpenEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.azw")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	reader, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reader.Close()
	if reader.Size() != 0 {
		t.Fatalf("expected empty mapping, got %d", reader.Size())
	}
	if _, err := reader.ReadAt(make([]byte, 1), 0); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestWriterTruncatesToPosition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.cbz.temp")
	writer, err := Create(path, 4096)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if writer.Size() != 4096 {
		t.Fatalf("region size %d", writer.Size())
	}
	if _, err := writer.Write([]byte("PK\x03\x04")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := writer.Write(bytes.Repeat([]byte{0xAB}, 100)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if writer.Position() != 104 {
		t.Fatalf("position %d, want 104", writer.Position())
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if writer.Size() != 4096 {
		t.Fatalf("region size after Close %d, want 4096", writer.Size())
	}
	if _, err := writer.Write([]byte("x")); !errors.Is(err, ErrClosed) {
		t.Fatalf("write after Close: expected ErrClosed, got %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 104 {
		t.Fatalf("file size %d, want 104", info.Size())
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(got, []byte("PK\x03\x04")) {
		t.Fatalf("unexpected prefix %q", got[:4])
	}
}

func TestWriterRejectsOverflow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small")
	writer, err := Create(path, 8)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer writer.Close()

	if _, err := writer.Write([]byte("12345")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := writer.Write([]byte("6789")); !errors.Is(err, ErrRegionFull) {
		t.Fatalf("expected ErrRegionFull, got %v", err)
	}
	if writer.Position() != 5 {
		t.Fatalf("failed write must not advance position, got %d", writer.Position())
	}
}

func TestCreateRejectsEmptyRegion(t *testing.T) {
	if _, err := Create(filepath.Join(t.TempDir(), "zero"), 0); err == nil {
		t.Fatal("expected error for zero-sized region")
	}
}
