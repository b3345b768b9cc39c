// Package spt implements the supplemental page table: a tagged variant
// per page recording how to (re)produce its contents on a fault —
// lazily from an ELF segment, lazily (and written back) from a memory
// mapping, or from a swap slot — plus stack-growth and the frame
// eviction callback the frame table invokes through the frame.Owner
// interface. Ported from pintos's vm/page.c: spt_load's dispatch on
// spte->type, spt_stack_growth's PHYS_BASE-relative heuristic, and
// vm/frame.c's per-type writeback-or-drop decision on eviction.
package spt

import (
	"sync"

	"github.com/ziqian2000/PintOS/defs"
	"github.com/ziqian2000/PintOS/frame"
	"github.com/ziqian2000/PintOS/inode"
	"github.com/ziqian2000/PintOS/limits"
	"github.com/ziqian2000/PintOS/pagedir"
	"github.com/ziqian2000/PintOS/palloc"
)

// Kind tags which of the three page origins a Table entry describes.
type Kind int

const (
	KindELF Kind = iota
	KindMMAP
	KindSwap
)

// Entry is one page's lazy-load recipe. Only the fields relevant to
// its Kind are meaningful, mirroring the C union inside struct spte.
type Entry struct {
	Addr      pagedir.Addr
	Kind      Kind
	Writeable bool
	Present   bool // has a frame been assigned yet?
	Pinned    bool // eviction must skip this entry's frame outright

	// ELF/MMAP fields.
	File       *inode.Inode
	FileOffset uint64
	ReadBytes  uint32
	ZeroBytes  uint32

	// SWAP fields, valid once the page has been evicted at least once.
	SwapSlot    uint32
	HasSwapSlot bool
}

// Table is one address space's supplemental page table, keyed by
// page-aligned virtual address, matching spt_init's hash table.
type Table struct {
	mu      sync.Mutex
	entries map[pagedir.Addr]*Entry

	dir    *pagedir.Dir
	frames *frame.Table
	fs     *inode.FS
	swapOf func() SwapDevice
}

// SwapDevice is the subset of *swap.Device the SPT needs, kept as an
// interface so spt does not import swap directly (avoiding a cycle
// with any future swap<->spt wiring) and so tests can substitute a fake.
type SwapDevice interface {
	Dump(page []byte) uint32
	Load(slot uint32, page []byte)
}

// New builds an empty table bound to one address space's page
// directory, frame table, and filesystem (for ELF/MMAP backing files).
func New(dir *pagedir.Dir, frames *frame.Table, fs *inode.FS, swap SwapDevice) *Table {
	t := &Table{
		entries: make(map[pagedir.Addr]*Entry),
		dir:     dir,
		frames:  frames,
		fs:      fs,
		swapOf:  func() SwapDevice { return swap },
	}
	return t
}

func pageRound(a pagedir.Addr) pagedir.Addr {
	return pagedir.Addr(uint64(a) &^ (limits.PageSize - 1))
}

// Get returns the entry for the page containing addr, or nil.
func (t *Table) Get(addr pagedir.Addr) *Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entries[pageRound(addr)]
}

// LinkElf registers a lazy ELF-segment page, matching spt_link_elf.
func (t *Table) LinkElf(va pagedir.Addr, f *inode.Inode, off uint64, readBytes, zeroBytes uint32, writeable bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	va = pageRound(va)
	t.entries[va] = &Entry{
		Addr: va, Kind: KindELF, Writeable: writeable,
		File: f, FileOffset: off, ReadBytes: readBytes, ZeroBytes: zeroBytes,
	}
}

// LinkMmap registers a lazy MMAP page, matching spt_link_mmap.
func (t *Table) LinkMmap(va pagedir.Addr, f *inode.Inode, off uint64, readBytes, zeroBytes uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	va = pageRound(va)
	t.entries[va] = &Entry{
		Addr: va, Kind: KindMMAP, Writeable: true,
		File: f, FileOffset: off, ReadBytes: readBytes, ZeroBytes: zeroBytes,
	}
}

// Remove drops the entry for va without touching its frame, for use
// once munmap or process teardown has already handled the frame side.
func (t *Table) Remove(va pagedir.Addr) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, pageRound(va))
}

// IsPinned implements frame.Owner: the frame table's eviction sweep
// calls this to decide whether the frame currently backing va is off
// limits, matching vm/frame.c:80's "if (!fe->spte->pinned)" guard.
func (t *Table) IsPinned(va pagedir.Addr) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[pageRound(va)]
	return ok && e.Pinned
}

// Pin/Unpin set or clear an entry's pinned flag, the SPT half of
// check_and_pin_addr/unpin_addr's contract with the frame table: a
// syscall pins the page it is about to dereference directly and unpins
// it once done, so the frame table's clock sweep may never pick it as a
// victim in between.
func (t *Table) Pin(va pagedir.Addr) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[pageRound(va)]; ok {
		e.Pinned = true
	}
}

func (t *Table) Unpin(va pagedir.Addr) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[pageRound(va)]; ok {
		e.Pinned = false
	}
}

// Load brings the page containing addr into memory, dispatching by
// Kind exactly as spt_load's switch does, and marks it present.
func (t *Table) Load(addr pagedir.Addr) defs.Err_t {
	va := pageRound(addr)
	t.mu.Lock()
	e, ok := t.entries[va]
	t.mu.Unlock()
	if !ok {
		return defs.EFAULT
	}
	if e.Present {
		return 0
	}

	pg := t.frames.Get(t.dir, va, t, palloc.User)
	var page [limits.PageSize]byte

	switch e.Kind {
	case KindELF, KindMMAP:
		if e.ReadBytes > 0 {
			n, err := t.fs.ReadAt(e.File, page[:e.ReadBytes], e.FileOffset)
			if err != 0 || uint32(n) != e.ReadBytes {
				t.frames.Free(pg)
				return defs.EIO
			}
		}
		// ZeroBytes portion of `page` is already zero-valued.
	case KindSwap:
		if e.HasSwapSlot {
			t.swapOf().Load(e.SwapSlot, page[:])
			e.HasSwapSlot = false
		}
		// A SWAP entry with no slot yet (fresh stack page) starts zeroed.
	}

	copy(t.frames.Pool().Page(pg), page[:])
	t.dir.SetPage(va, uint32(pg), e.Writeable)
	e.Present = true
	return 0
}

// StackGrowth creates a fresh, zero-filled SWAP-variant entry for a
// stack page, applying the same heuristic as spt_stack_growth: the
// fault address must be within limits.StackGrowthLimit of the top of
// the address space, and no farther than limits.StackGrowthSlack below
// the caller's stack pointer (a PUSHA/PUSH can fault a few words below
// esp before it is adjusted).
func StackGrowth(topOfStack pagedir.Addr, faultAddr, stackPointer pagedir.Addr) bool {
	if uint64(topOfStack)-uint64(pageRound(faultAddr)) > limits.StackGrowthLimit {
		return false
	}
	if int64(faultAddr) < int64(stackPointer)-limits.StackGrowthSlack {
		return false
	}
	return true
}

// GrowStack installs a fresh present SWAP-kind page at addr's page,
// used once StackGrowth has approved the fault.
func (t *Table) GrowStack(addr pagedir.Addr) defs.Err_t {
	va := pageRound(addr)
	t.mu.Lock()
	if _, exists := t.entries[va]; exists {
		t.mu.Unlock()
		return defs.EINVAL
	}
	e := &Entry{Addr: va, Kind: KindSwap, Writeable: true, Present: true}
	t.entries[va] = e
	t.mu.Unlock()

	pg := t.frames.Get(t.dir, va, t, palloc.User|palloc.Zero)
	for i := range t.frames.Pool().Page(pg) {
		t.frames.Pool().Page(pg)[i] = 0
	}
	t.dir.SetPage(va, uint32(pg), true)
	return 0
}

// Evict implements frame.Owner: on eviction it writes the page back
// where the original design requires it and clears Present so a later
// fault reloads it, mirroring frame_evict's per-type branch.
func (t *Table) Evict(dir *pagedir.Dir, va pagedir.Addr) {
	t.mu.Lock()
	e, ok := t.entries[va]
	t.mu.Unlock()
	if !ok {
		return
	}

	pg, hasFrame := dir.GetPage(va)
	if !hasFrame {
		return
	}
	contents := t.frames.Pool().Page(palloc.PageNumber(pg))

	dirty := dir.IsDirty(va)
	switch e.Kind {
	case KindMMAP:
		if dirty {
			t.fs.WriteAt(e.File, contents[:e.ReadBytes], e.FileOffset)
		}
	case KindELF:
		if dirty {
			t.promoteToSwap(e, contents)
		}
		// Clean ELF pages are simply dropped; they reload from the
		// executable file on the next fault.
	case KindSwap:
		t.promoteToSwap(e, contents)
	}

	t.mu.Lock()
	e.Present = false
	t.mu.Unlock()
}

func (t *Table) promoteToSwap(e *Entry, contents []byte) {
	slot := t.swapOf().Dump(contents)
	t.mu.Lock()
	e.Kind = KindSwap
	e.SwapSlot = slot
	e.HasSwapSlot = true
	t.mu.Unlock()
}

