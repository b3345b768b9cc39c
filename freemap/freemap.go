// Package freemap is the free-sector bitmap allocator backing the
// filesystem device: one bit per sector, packed 4096 bits (BSIZE*8) per
// bitmap sector and persisted through the block cache. It is a
// journal-free adaptation of biscuit's fs/bitmap.go bitmap_t: the same
// scan-for-a-zero-bit-then-mark idiom, minus the opid_t transaction
// tagging biscuit threads through every mark/unmark (journaling is out
// of scope here).
package freemap

import (
	"sync"

	"github.com/ziqian2000/PintOS/block"
	"github.com/ziqian2000/PintOS/cache"
)

const bitsPerSector = block.SectorSize * 8

// Map is a bitmap allocator over a contiguous run of sectors on a
// device, backed by a shared *cache.Cache.
type Map struct {
	mu sync.Mutex

	c         *cache.Cache
	start     block.Sector // first sector holding bitmap bits
	nsectors  uint32       // sectors covered (bits) by this bitmap
	nbitmapblks uint32     // sectors the bitmap itself occupies

	nfree uint32
}

func blkno(bit uint32) uint32   { return bit / bitsPerSector }
func byteno(bit uint32) uint32  { return (bit % bitsPerSector) / 8 }
func bitoff(bit uint32) uint    { return uint(bit % 8) }

// New builds a Map covering n sectors, with its own bitmap sectors
// beginning at start. The caller has already reserved
// ceil(n/bitsPerSector) sectors at start for the bitmap itself.
func New(c *cache.Cache, start block.Sector, n uint32) *Map {
	nb := (n + bitsPerSector - 1) / bitsPerSector
	m := &Map{c: c, start: start, nsectors: n, nbitmapblks: nb}
	m.nfree = m.countFree()
	return m
}

// Format zeroes every bitmap sector, marking all n sectors free, then
// immediately re-marks the sectors the bitmap itself occupies (bits
// [0, nbitmapblks)) as allocated — the bitmap is self-hosting, so its
// own storage must never be handed out by Alloc.
func Format(c *cache.Cache, start block.Sector, n uint32) *Map {
	m := New(c, start, n)
	var zero [block.SectorSize]byte
	for i := uint32(0); i < m.nbitmapblks; i++ {
		e := c.Lock(m.start+block.Sector(i), cache.ModeExclusive)
		c.Write(e, zero)
		c.Unlock(e)
	}
	m.nfree = n
	for i := uint32(0); i < m.nbitmapblks; i++ {
		m.setBit(i, true)
		m.nfree--
	}
	return m
}

func (m *Map) countFree() uint32 {
	var free uint32
	m.forEachBit(func(bit uint32, set bool) bool {
		if !set {
			free++
		}
		return true
	})
	return free
}

// forEachBit visits every one of m.nsectors bits in order; f returns
// false to stop early.
func (m *Map) forEachBit(f func(bit uint32, set bool) bool) {
	var lastBlk uint32 = ^uint32(0)
	var data [block.SectorSize]byte
	var e *cache.Entry
	for bit := uint32(0); bit < m.nsectors; bit++ {
		bn := blkno(bit)
		if bn != lastBlk {
			if e != nil {
				m.c.Unlock(e)
			}
			e = m.c.Lock(m.start+block.Sector(bn), cache.ModeShared)
			data = m.c.Read(e)
			lastBlk = bn
		}
		set := data[byteno(bit)]&(1<<bitoff(bit)) != 0
		if !f(bit, set) {
			break
		}
	}
	if e != nil {
		m.c.Unlock(e)
	}
}

func (m *Map) setBit(bit uint32, val bool) {
	bn := blkno(bit)
	e := m.c.Lock(m.start+block.Sector(bn), cache.ModeExclusive)
	data := m.c.Read(e)
	mask := byte(1) << bitoff(bit)
	was := data[byteno(bit)]&mask != 0
	if val {
		data[byteno(bit)] |= mask
	} else {
		data[byteno(bit)] &^= mask
	}
	if was != val {
		m.c.Write(e, data)
	}
	m.c.Unlock(e)
}

// Alloc finds and marks the first free sector, returning its index
// relative to the mapped region (0-based) and ok=false if none remain
// — the ENOSPC condition, mirroring bitmap_t.FindAndMark.
func (m *Map) Alloc() (uint32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found uint32
	ok := false
	m.forEachBit(func(bit uint32, set bool) bool {
		if !set {
			found = bit
			ok = true
			return false
		}
		return true
	})
	if !ok {
		return 0, false
	}
	m.setBit(found, true)
	m.nfree--
	return found, true
}

// Free marks bit as unallocated again, mirroring bitmap_t.Unmark.
func (m *Map) Free(bit uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setBit(bit, false)
	m.nfree++
}

// NumFree reports how many sectors remain unallocated.
func (m *Map) NumFree() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nfree
}
