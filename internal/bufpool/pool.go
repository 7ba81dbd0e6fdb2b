package bufpool

import (
	"sync"
	"sync/atomic"
)

const (
	// DefaultMinCapacity is the physical size of a freshly allocated buffer.
	DefaultMinCapacity = 1 << 20
	// DefaultLowWater is the headroom below which a buffer grows after a read.
	DefaultLowWater = 64 << 10
	// DefaultMaxFree bounds how many idle arrays the free list retains.
	DefaultMaxFree = 64
)

// Options configures a Pool.
type Options struct {
	MinCapacity int
	LowWater    int
	MaxFree     int
}

// Stats reports pool activity.
type Stats struct {
	Allocated int64
	Reused    int64
	Grown     int64
	Free      int
}

// Pool caches byte arrays for reuse across concurrent conversions.
type Pool struct {
	mu       sync.Mutex
	free     [][]byte
	minCap   int
	lowWater int
	maxFree  int

	allocated atomic.Int64
	reused    atomic.Int64
	grown     atomic.Int64
}

// New builds a pool. Zero or inconsistent options fall back to defaults; the
// low-water mark is clamped below the minimum capacity so a fresh buffer
// always has room for at least one read.
func New(opts Options) *Pool {
	minCap := opts.MinCapacity
	if minCap <= 0 {
		minCap = DefaultMinCapacity
	}
	lowWater := opts.LowWater
	if lowWater <= 0 {
		lowWater = DefaultLowWater
	}
	if lowWater >= minCap {
		lowWater = minCap / 2
	}
	if lowWater <= 0 {
		lowWater = 1
	}
	maxFree := opts.MaxFree
	if maxFree <= 0 {
		maxFree = DefaultMaxFree
	}
	return &Pool{minCap: minCap, lowWater: lowWater, maxFree: maxFree}
}

// MinCapacity returns the physical size of a freshly issued buffer.
func (p *Pool) MinCapacity() int { return p.minCap }

// LowWater returns the growth threshold.
func (p *Pool) LowWater() int { return p.lowWater }

// Acquire returns an empty buffer with at least MinCapacity bytes of space.
func (p *Pool) Acquire() *Buffer {
	data := p.get(p.minCap)
	return &Buffer{pool: p, data: data, original: len(data)}
}

// Stats returns a snapshot of pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	free := len(p.free)
	p.mu.Unlock()
	return Stats{
		Allocated: p.allocated.Load(),
		Reused:    p.reused.Load(),
		Grown:     p.grown.Load(),
		Free:      free,
	}
}

// get pops the most recently released array that is large enough, or
// allocates a new one.
func (p *Pool) get(minimum int) []byte {
	p.mu.Lock()
	for i := len(p.free) - 1; i >= 0; i-- {
		candidate := p.free[i]
		if cap(candidate) < minimum {
			continue
		}
		last := len(p.free) - 1
		p.free[i] = p.free[last]
		p.free[last] = nil
		p.free = p.free[:last]
		p.mu.Unlock()
		p.reused.Add(1)
		return candidate[:cap(candidate)]
	}
	p.mu.Unlock()

	p.allocated.Add(1)
	return make([]byte, minimum)
}

func (p *Pool) put(data []byte) {
	if cap(data) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free) >= p.maxFree {
		// Keep the larger arrays; they satisfy every request a smaller one would.
		smallest := 0
		for i := 1; i < len(p.free); i++ {
			if cap(p.free[i]) < cap(p.free[smallest]) {
				smallest = i
			}
		}
		if cap(p.free[smallest]) >= cap(data) {
			return
		}
		p.free[smallest] = data
		return
	}
	p.free = append(p.free, data)
}
