// Package cache implements the fixed-size block cache: CacheMax buffers,
// each guarded by an entry lock (which buffer is this, and who holds it?)
// and a separate data lock (guarding only the bytes), with clock-hand
// eviction and a shared/exclusive hold protocol in which waiting
// writers get no priority over newly arriving readers. This is a direct port
// of the synchronization structure in pintos's filesys/cache.c
// (cache_try_lock/cache_lock/cache_unlock and the no_writers/no_need
// condition variables), restructured into Go's sync primitives the way
// biscuit's fs/bdev.go restructures the same kind of C buffer cache into
// Go mutexes and channel-free condvars (sync.Cond).
package cache

import (
	"sync"

	"github.com/ziqian2000/PintOS/block"
	"github.com/ziqian2000/PintOS/internal/klog"
	"github.com/ziqian2000/PintOS/limits"
)

// Mode selects the right cache_lock attaches: ModeShared for a reader,
// ModeExclusive for a writer, mirroring pintos's CACHE_SH/CACHE_EX.
type Mode int

const (
	ModeShared Mode = iota
	ModeExclusive
)

// entry is one cache slot. entryLock protects sector/state bookkeeping
// AND the hold counts below it: a reader or writer's right to touch the
// entry's bytes is attached here, under the same lock the eviction sweep
// reads to decide whether an entry is busy, so a buffer can never be
// picked as a victim between being locked and being read or written.
// dataLock guards only the byte array itself.
type Entry struct {
	entryLock sync.Mutex
	noWriters *sync.Cond // signaled when a holder releases the entry
	noNeed    *sync.Cond // signaled when the entry becomes fully free

	sector     block.Sector
	valid      bool // sector is bound to a real, in-use sector
	isUpToDate bool
	isDirty    bool
	pinned     bool // the eviction sweep and Flush skip a pinned entry

	readCnt  int
	writeCnt int
	waitCnt  int // goroutines blocked in attachHoldLocked, reader or writer alike

	dataLock sync.Mutex
	data     [block.SectorSize]byte
}

// Stats mirrors the counters go-nfsd's util/stats package tabulates,
// wired into `pintosctl stats` via rodaine/table.
type Stats struct {
	Hits    int64
	Misses  int64
	Evicts  int64
	Reads   int64
	Writes  int64
}

// Cache is the fixed CacheMax-buffer pool sitting in front of a Device.
type Cache struct {
	sync      sync.Mutex // guards entries[].sector/valid lookup + evictHand
	entries   [limits.CacheMax]*Entry
	evictHand int
	dev       block.Device

	statsMu sync.Mutex
	stats   Stats

	daemonStop  chan struct{}
	daemonWg    sync.WaitGroup
	readaheadCh chan block.Sector
}

// New builds a cache over dev with every slot empty, matching
// cache_init's all-zero starting state.
func New(dev block.Device) *Cache {
	c := &Cache{dev: dev}
	for i := range c.entries {
		e := &Entry{}
		e.noWriters = sync.NewCond(&e.entryLock)
		e.noNeed = sync.NewCond(&e.entryLock)
		c.entries[i] = e
	}
	return c
}

// find returns the entry already bound to sector s, or nil. Caller must
// hold c.sync, mirroring cache_find's "must hold cache_sync" contract.
func (c *Cache) find(s block.Sector) *Entry {
	for _, e := range c.entries {
		e.entryLock.Lock()
		bound := e.valid && e.sector == s
		e.entryLock.Unlock()
		if bound {
			return e
		}
	}
	return nil
}

// attachHoldLocked grants the reader or writer right on e to the caller,
// blocking until it is free to do so. e.entryLock must be held; it is
// released while waiting and reacquired before returning, exactly like
// cache_lock's own SH/EX wait loop.
func (c *Cache) attachHoldLocked(e *Entry, mode Mode) {
	if mode == ModeExclusive {
		for e.readCnt > 0 || e.writeCnt > 0 {
			e.waitCnt++
			e.noWriters.Wait()
			e.waitCnt--
		}
		e.writeCnt++
		return
	}
	for e.writeCnt > 0 {
		e.waitCnt++
		e.noWriters.Wait()
		e.waitCnt--
	}
	e.readCnt++
}

// tryLock implements cache_try_lock: find-or-bind-free-or-evict-via-
// clock-hand, then attach the requested hold before releasing the entry
// to the caller, all without ever exposing a bound-but-unheld entry to a
// concurrent eviction sweep. Returns nil if every entry it inspected was
// busy mid-eviction and the caller should retry from the top.
func (c *Cache) tryLock(s block.Sector, mode Mode) *Entry {
	c.sync.Lock()
	if e := c.find(s); e != nil {
		c.sync.Unlock()
		c.bumpHit()
		e.entryLock.Lock()
		c.attachHoldLocked(e, mode)
		e.entryLock.Unlock()
		return e
	}
	c.bumpMiss()

	// Prefer an unbound slot before evicting anything.
	for _, e := range c.entries {
		e.entryLock.Lock()
		if !e.valid {
			e.valid = true
			e.sector = s
			e.isUpToDate = false
			e.isDirty = false
			c.attachHoldLocked(e, mode)
			e.entryLock.Unlock()
			c.sync.Unlock()
			return e
		}
		e.entryLock.Unlock()
	}

	// Clock-hand sweep: rotate through entries[], evicting the first
	// idle, non-pinned one found. Idle means no readers/writers holding
	// or waiting on it right now.
	n := len(c.entries)
	for i := 0; i < n; i++ {
		idx := (c.evictHand + i) % n
		e := c.entries[idx]
		e.entryLock.Lock()
		busy := e.pinned || e.readCnt > 0 || e.writeCnt > 0 || e.waitCnt > 0
		if busy {
			e.entryLock.Unlock()
			continue
		}
		victimSector := e.sector
		wasDirty := e.isDirty
		e.entryLock.Unlock()

		if wasDirty {
			c.writeback(e, victimSector)
		}

		e.entryLock.Lock()
		if e.pinned || e.readCnt > 0 || e.writeCnt > 0 || e.waitCnt > 0 {
			// Someone grabbed it while we wrote back; try another.
			e.entryLock.Unlock()
			continue
		}
		e.valid = true
		e.sector = s
		e.isUpToDate = false
		e.isDirty = false
		c.attachHoldLocked(e, mode)
		e.entryLock.Unlock()

		c.evictHand = (idx + 1) % n
		c.bumpEvict()
		c.sync.Unlock()
		return e
	}
	c.sync.Unlock()
	return nil
}

// writeback flushes a dirty victim's bytes to disk before it is reused,
// entered without holding c.sync so disk I/O never blocks lookups.
func (c *Cache) writeback(e *Entry, sector block.Sector) {
	e.dataLock.Lock()
	buf := e.data
	e.dataLock.Unlock()
	if err := c.dev.WriteSector(sector, buf[:]); err != nil {
		klog.Debugf("cache: writeback sector %d failed: %v", sector, err)
	}
	c.bumpWrite()
}

// Lock returns the entry for sector s already locked in the requested
// mode (cache_lock): the caller's reader or writer right is attached
// before this returns, so Read/Write/SetZero never race an eviction that
// thinks the entry has no holders yet.
func (c *Cache) Lock(s block.Sector, mode Mode) *Entry {
	for {
		if e := c.tryLock(s, mode); e != nil {
			return e
		}
	}
}

// Read returns a copy of e's bytes, fetching from disk on first touch.
// The caller must already hold e via Lock(s, ModeShared) or
// Lock(s, ModeExclusive). Corresponds to cache_read's fetch-if-stale
// logic, minus the hold-acquisition cache_lock now performs. dataLock is
// held across the disk read itself (not released and reacquired around
// it) so that of any readers racing in on the same not-yet-up-to-date
// entry, exactly one issues the ReadSector and the rest simply find
// isUpToDate already set, per §4.1's data-lock/entry-lock separation.
func (c *Cache) Read(e *Entry) [block.SectorSize]byte {
	e.dataLock.Lock()
	if !e.isUpToDate {
		e.entryLock.Lock()
		sector := e.sector
		e.entryLock.Unlock()
		var buf [block.SectorSize]byte
		if err := c.dev.ReadSector(sector, buf[:]); err != nil {
			klog.Debugf("cache: read sector %d failed: %v", sector, err)
		}
		c.bumpRead()
		e.data = buf
		e.isUpToDate = true
	}
	data := e.data
	e.dataLock.Unlock()
	return data
}

// SetZero marks e's data as all-zero without reading the backing sector
// (cache_setzero), for freshly allocated sectors that never held data.
// The caller must hold e via Lock(s, ModeExclusive).
func (c *Cache) SetZero(e *Entry) {
	e.dataLock.Lock()
	e.data = [block.SectorSize]byte{}
	e.isUpToDate = true
	e.isDirty = true
	e.dataLock.Unlock()
}

// Write installs buf as e's data, marking it dirty for a later
// writeback. The caller must hold e via Lock(s, ModeExclusive).
func (c *Cache) Write(e *Entry, buf [block.SectorSize]byte) {
	e.dataLock.Lock()
	e.data = buf
	e.isUpToDate = true
	e.isDirty = true
	e.dataLock.Unlock()
}

// Dirty marks e dirty without changing its bytes, for a caller that
// mutated e's data in place under its own bookkeeping.
func (c *Cache) Dirty(e *Entry) {
	e.dataLock.Lock()
	e.isDirty = true
	e.dataLock.Unlock()
}

// Unlock releases whichever hold Lock attached. Once no hold remains it
// broadcasts noWriters if any goroutine is waiting, waking readers and
// writers alike, and otherwise signals noNeed. Waiting writers are not
// preferred: a reader attaches whenever no writer currently holds the
// entry, even while writers wait. The current holder is unambiguous: a writer
// only ever attaches while readCnt and writeCnt are both zero, so at
// most one of the two counts can be nonzero at a time.
func (c *Cache) Unlock(e *Entry) {
	e.entryLock.Lock()
	if e.writeCnt > 0 {
		e.writeCnt--
	} else if e.readCnt > 0 {
		e.readCnt--
	}
	if e.writeCnt == 0 && e.readCnt == 0 {
		if e.waitCnt > 0 {
			e.noWriters.Broadcast()
		} else {
			e.noNeed.Signal()
		}
	}
	e.entryLock.Unlock()
}

// Pin/Unpin keep an entry from being chosen as an eviction victim (and
// from being written back by Flush) while a caller needs it to stay
// resident. No package in this module calls them.
func (c *Cache) Pin(e *Entry) {
	e.entryLock.Lock()
	e.pinned = true
	e.entryLock.Unlock()
}

func (c *Cache) Unpin(e *Entry) {
	e.entryLock.Lock()
	e.pinned = false
	e.entryLock.Unlock()
}

// Free drops e back to the unbound state, flushing first if dirty.
// Matches cache_free.
func (c *Cache) Free(e *Entry) {
	e.entryLock.Lock()
	sector := e.sector
	dirty := e.isDirty
	e.entryLock.Unlock()
	if dirty {
		c.writeback(e, sector)
	}
	e.entryLock.Lock()
	e.valid = false
	e.isDirty = false
	e.isUpToDate = false
	e.entryLock.Unlock()
}

// Flush writes back every dirty, idle entry, mirroring cache_flush /
// the (disabled by default) flush daemon in pintos's cache.c.
func (c *Cache) Flush() {
	for _, e := range c.entries {
		e.entryLock.Lock()
		if !e.valid || !e.isDirty || e.pinned || e.readCnt > 0 || e.writeCnt > 0 {
			e.entryLock.Unlock()
			continue
		}
		sector := e.sector
		e.entryLock.Unlock()
		c.writeback(e, sector)
		e.entryLock.Lock()
		e.isDirty = false
		e.entryLock.Unlock()
	}
}

func (c *Cache) bumpHit()   { c.statsMu.Lock(); c.stats.Hits++; c.statsMu.Unlock() }
func (c *Cache) bumpMiss()  { c.statsMu.Lock(); c.stats.Misses++; c.statsMu.Unlock() }
func (c *Cache) bumpEvict() { c.statsMu.Lock(); c.stats.Evicts++; c.statsMu.Unlock() }
func (c *Cache) bumpRead()  { c.statsMu.Lock(); c.stats.Reads++; c.statsMu.Unlock() }
func (c *Cache) bumpWrite() { c.statsMu.Lock(); c.stats.Writes++; c.statsMu.Unlock() }

// Stats returns a snapshot of the pool's hit/miss/evict/IO counters.
func (c *Cache) Stats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}
