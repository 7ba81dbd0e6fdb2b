package bufpool

import (
	"errors"
	"io"
)

// ErrReleased is returned when a released buffer is used again.
var ErrReleased = errors.New("bufpool: buffer already released")

// Buffer is a pooled byte buffer. Its logical length (Len) is independent of
// its physical capacity (Cap); capacity only grows while the buffer is held.
// A Buffer is owned by one goroutine until Release.
type Buffer struct {
	pool     *Pool
	data     []byte
	n        int
	start    int
	original int
}

// Bytes returns the logical content, excluding any prefix dropped by Skip.
// The slice is only valid until the next read or Release.
func (b *Buffer) Bytes() []byte {
	if b.data == nil {
		return nil
	}
	return b.data[b.start:b.n]
}

// Len returns the number of content bytes (after Skip).
func (b *Buffer) Len() int { return b.n - b.start }

// Cap returns the physical capacity of the backing array.
func (b *Buffer) Cap() int { return len(b.data) }

// Skip drops the first n content bytes from Bytes without moving data.
func (b *Buffer) Skip(n int) {
	if n <= 0 {
		return
	}
	b.start = min(b.start+n, b.n)
}

// Reset empties the buffer while keeping its backing array.
func (b *Buffer) Reset() {
	b.n = 0
	b.start = 0
}

// Fill performs a single read from r into the free space at the logical end
// of the buffer and returns the number of bytes read. When the headroom left
// after the read falls below the pool's low-water mark the buffer grows.
func (b *Buffer) Fill(r io.Reader) (int, error) {
	if b.data == nil {
		return 0, ErrReleased
	}
	if len(b.data)-b.n == 0 {
		b.grow()
	}
	remaining := len(b.data) - b.n
	read, err := r.Read(b.data[b.n:])
	if read > 0 {
		b.n += read
		if remaining-read < b.pool.lowWater {
			b.grow()
		}
	}
	return read, err
}

// ReadFrom fills the buffer from r until EOF. It implements io.ReaderFrom.
func (b *Buffer) ReadFrom(r io.Reader) (int64, error) {
	var total int64
	for {
		read, err := b.Fill(r)
		total += int64(read)
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, err
		}
		if read == 0 {
			return total, io.ErrNoProgress
		}
	}
}

// WriteTo writes the content to w. It implements io.WriterTo.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	if b.data == nil {
		return 0, ErrReleased
	}
	written, err := w.Write(b.Bytes())
	return int64(written), err
}

// Release hands the backing array back to the pool. The buffer must not be
// used afterwards; a second Release is a no-op.
func (b *Buffer) Release() {
	if b.data == nil {
		return
	}
	data := b.data
	b.data = nil
	b.n = 0
	b.start = 0
	if b.pool != nil {
		b.pool.put(data)
	}
}

func (b *Buffer) grow() {
	next := b.pool.get(len(b.data) + b.original)
	copy(next, b.data[:b.n])
	old := b.data
	b.data = next
	b.pool.grown.Add(1)
	b.pool.put(old)
}
