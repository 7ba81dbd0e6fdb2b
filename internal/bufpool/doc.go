// Package bufpool hands out reusable byte buffers for record reads.
//
// A Pool keeps a free list of backing arrays shared by every conversion
// running in the process. Buffers grow on demand while they are being filled:
// once the headroom left after a read drops below the pool's low-water mark,
// the buffer moves to a larger backing array (old capacity plus the original
// minimum) and the previous array goes back to the free list. The pool never
// refuses an acquisition.
//
// Construct one Pool per run and pass it explicitly; there is no package-level
// pool.
package bufpool
