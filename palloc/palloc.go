// Package palloc is a simplified physical-page allocator: a free list
// of page numbers with USER/ZERO allocation flags, no refcounting or
// per-CPU caching. The teacher's real allocator (biscuit's
// vm/physmem.go, mem/mem.go) manages actual host physical memory via
// unsafe.Pointer direct-mapping and per-CPU free lists for a bare-metal
// kernel; neither concern applies to a hosted simulation, so this
// package keeps only the portable part of its shape — a free list of
// page numbers handed out and returned in Get/Free — and drops the
// refcounting this module's frame table doesn't need (pages here are
// never copy-on-write shared, only owned by exactly one frame entry).
package palloc

import (
	"sync"

	"github.com/ziqian2000/PintOS/limits"
)

// Flag names the USER/ZERO allocation flags callers pass to Get. Get
// accepts them but ignores them: it keeps no separate user pool and
// does not zero a page for Zero, so callers that need a zeroed page
// clear it themselves.
type Flag int

const (
	User Flag = 1 << iota
	Zero
)

// PageNumber identifies one physical page, the palloc-space analogue of
// a device sector number.
type PageNumber uint32

// Pool is a fixed-size free list of page numbers, sized at
// construction, mirroring physmem_t's array-backed free list.
type Pool struct {
	mu    sync.Mutex
	free  []PageNumber
	total int
	// mem is the pool's backing storage: mem[pg] holds that page's
	// limits.PageSize bytes directly, the hosted-simulation analogue of
	// biscuit's mem/dmap.go direct-mapped physical memory access,
	// without the unsafe.Pointer arithmetic a real direct map needs.
	mem [][limits.PageSize]byte
}

// New creates a pool of n physical pages, all initially free.
func New(n int) *Pool {
	p := &Pool{free: make([]PageNumber, n), total: n, mem: make([][limits.PageSize]byte, n)}
	for i := 0; i < n; i++ {
		p.free[i] = PageNumber(i)
	}
	return p
}

// Page returns a slice directly onto page pg's backing bytes. Callers
// must own pg (returned by a prior Get and not yet Free'd); there is no
// synchronization here beyond what the frame table already provides by
// construction (a page belongs to exactly one entry at a time).
func (p *Pool) Page(pg PageNumber) []byte {
	return p.mem[pg][:]
}

// Get removes and returns one free page, or ok=false if the pool is
// exhausted — the frame table treats this as "must evict before
// retrying", exactly frame_get's busy-loop-until-non-nil contract.
func (p *Pool) Get(flags Flag) (PageNumber, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free) == 0 {
		return 0, false
	}
	n := len(p.free) - 1
	pg := p.free[n]
	p.free = p.free[:n]
	return pg, true
}

// Free returns pg to the pool.
func (p *Pool) Free(pg PageNumber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = append(p.free, pg)
}

// NumFree reports how many pages remain unallocated.
func (p *Pool) NumFree() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// Total reports the pool's fixed capacity.
func (p *Pool) Total() int { return p.total }
