// Package frame implements the frame table: the physical-page-keyed
// registry the page-fault handler consults to find a free frame or, if
// none remain, to pick a second-chance eviction victim. Ported from
// pintos's vm/frame.c: frame_get's "evict until non-nil" loop and
// frame_evict's clock sweep over the frame list, checking and clearing
// pagedir's accessed bit before settling on a victim.
package frame

import (
	"sync"

	"github.com/ziqian2000/PintOS/pagedir"
	"github.com/ziqian2000/PintOS/palloc"
)

// Owner is implemented by the supplemental page table so the frame
// table can ask it to evict whatever a victim frame currently backs,
// without frame importing spt (spt already depends on frame to obtain
// pages, so the dependency would otherwise cycle).
type Owner interface {
	// Evict writes back or drops the page currently mapped at va in
	// dir (dispatching by the SPT entry's variant, per vm/frame.c's
	// switch on spte->type) and returns once it is safe to reclaim the
	// frame.
	Evict(dir *pagedir.Dir, va pagedir.Addr)

	// IsPinned reports whether the SPT entry backing va currently has
	// its pinned flag set. The clock sweep in evictOne consults this
	// through the Owner interface (rather than a direct *spt.Table
	// reference) for the same reason Evict does: spt already imports
	// frame, so frame cannot import spt back.
	IsPinned(va pagedir.Addr) bool
}

// entry is one occupied frame's bookkeeping: which page directory and
// virtual address currently map it, mirroring struct frame_entry_t in
// frame.h.
type entry struct {
	dir   *pagedir.Dir
	va    pagedir.Addr
	owner Owner
}

// Table is the frame table: a fixed pool of physical pages plus, for
// each occupied one, which (dir, va) currently owns it.
type Table struct {
	mu      sync.Mutex
	pool    *palloc.Pool
	byFrame map[palloc.PageNumber]*entry
	order   []palloc.PageNumber // clock order, oldest-inserted first
	hand    int
}

// New builds a frame table over a fixed-size physical page pool.
func New(pool *palloc.Pool) *Table {
	return &Table{pool: pool, byFrame: make(map[palloc.PageNumber]*entry)}
}

// Get returns a frame to back (dir, va), evicting a second-chance
// victim if the pool is exhausted. Matches frame_get: try
// palloc_get_page, and if it fails, evict and retry until it succeeds.
func (t *Table) Get(dir *pagedir.Dir, va pagedir.Addr, owner Owner, flags palloc.Flag) palloc.PageNumber {
	for {
		if pg, ok := t.pool.Get(flags); ok {
			t.mu.Lock()
			t.byFrame[pg] = &entry{dir: dir, va: va, owner: owner}
			t.order = append(t.order, pg)
			t.mu.Unlock()
			return pg
		}
		t.evictOne()
	}
}

// Free releases pg back to the pool and drops its frame-table entry,
// matching frame_free.
func (t *Table) Free(pg palloc.PageNumber) {
	t.mu.Lock()
	delete(t.byFrame, pg)
	for i, p := range t.order {
		if p == pg {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	t.mu.Unlock()
	t.pool.Free(pg)
}

// evictOne performs one pass of the clock sweep: walk frames in
// insertion order starting from the hand, skipping any frame whose
// owner reports it pinned outright (a pinned frame gets no second
// chance and is never a candidate, per vm/frame.c:80's
// "if (!fe->spte->pinned)" guard around the whole sweep body), giving
// the rest a second chance (clear accessed if set, skip) before picking
// the first unpinned one whose accessed bit is already clear as the
// victim, matching frame_evict's pagedir_is_accessed /
// pagedir_set_accessed(false) loop.
func (t *Table) evictOne() {
	t.mu.Lock()
	if len(t.order) == 0 {
		t.mu.Unlock()
		return
	}
	var victimPg palloc.PageNumber
	var victim *entry
	for {
		if t.hand >= len(t.order) {
			t.hand = 0
		}
		pg := t.order[t.hand]
		e := t.byFrame[pg]
		if e.owner.IsPinned(e.va) {
			t.hand++
			continue
		}
		if e.dir.IsAccessed(e.va) {
			e.dir.SetAccessed(e.va, false)
			t.hand++
			continue
		}
		victimPg, victim = pg, e
		break
	}
	t.mu.Unlock()

	victim.owner.Evict(victim.dir, victim.va)
	victim.dir.ClearPage(victim.va)
	t.Free(victimPg)
}

// Pool exposes the underlying physical page pool so a caller (the SPT,
// when installing or evicting a page) can read or write a frame's
// actual bytes.
func (t *Table) Pool() *palloc.Pool {
	return t.pool
}

// Occupied reports the number of frames currently in use, for
// `pintosctl stats`.
func (t *Table) Occupied() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byFrame)
}
