// Package pagedir simulates the hardware page table each user process
// would otherwise have: a mapping from virtual address to physical page
// plus the accessed/dirty/present/writable bits the frame evictor and
// page-fault handler consult. The teacher's vm/pmap.go walks a real
// x86_64 page-table tree through unsafe.Pointer arithmetic and issues
// APIC TLB shootdowns — none of that is portable to a hosted
// simulation, so this package keeps only its PTE flag vocabulary
// (PTE_P/PTE_W/PTE_U, accessed, dirty) and backs it with a plain map
// instead of walking real page-table pages.
package pagedir

import "sync"

// Addr is a page-aligned virtual address.
type Addr uint64

// PTE mirrors the flag bits pmap.go names, minus the ones (PTE_PS,
// PTE_COW, physical frame number encoding) that only make sense for a
// real hardware entry.
type PTE struct {
	Frame    uint32
	Present  bool
	Writable bool
	User     bool
	Accessed bool
	Dirty    bool
}

// Dir is one process's page directory.
type Dir struct {
	mu      sync.Mutex
	entries map[Addr]*PTE
}

func New() *Dir {
	return &Dir{entries: make(map[Addr]*PTE)}
}

// SetPage installs (or overwrites) the mapping for va, matching
// pagedir_set_page's "map or remap, mark present" contract.
func (d *Dir) SetPage(va Addr, frame uint32, writable bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[va] = &PTE{Frame: frame, Present: true, Writable: writable, User: true}
}

// ClearPage removes va's mapping entirely, matching pagedir_clear_page.
func (d *Dir) ClearPage(va Addr) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.entries, va)
}

// GetPage reports the frame mapped at va, if present.
func (d *Dir) GetPage(va Addr) (uint32, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[va]
	if !ok || !e.Present {
		return 0, false
	}
	return e.Frame, true
}

// IsPresent reports whether va currently has a valid mapping.
func (d *Dir) IsPresent(va Addr) bool {
	_, ok := d.GetPage(va)
	return ok
}

// IsAccessed/SetAccessed implement the second-chance bit the frame
// table's clock sweep reads and clears, matching
// pagedir_is_accessed/pagedir_set_accessed.
func (d *Dir) IsAccessed(va Addr) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[va]
	return ok && e.Accessed
}

func (d *Dir) SetAccessed(va Addr, v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.entries[va]; ok {
		e.Accessed = v
	}
}

// IsDirty/SetDirty track whether a page has been written since it was
// last known clean, consulted before writing an MMAP/ELF page back.
func (d *Dir) IsDirty(va Addr) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[va]
	return ok && e.Dirty
}

func (d *Dir) SetDirty(va Addr, v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.entries[va]; ok {
		e.Dirty = v
	}
}

// Touch records a simulated access (read or write) at va: it sets the
// accessed bit always, and the dirty bit when write is true. Callers
// that simulate a page fault or memory access invoke this instead of
// letting real hardware set the bits.
func (d *Dir) Touch(va Addr, write bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[va]
	if !ok {
		return
	}
	e.Accessed = true
	if write {
		e.Dirty = true
	}
}
