package inode

import (
	"sync"

	"github.com/ziqian2000/PintOS/block"
	"github.com/ziqian2000/PintOS/cache"
	"github.com/ziqian2000/PintOS/defs"
	"github.com/ziqian2000/PintOS/freemap"
)

// Inode is the in-memory handle for an open on-disk inode, keyed by the
// sector its header lives in — pintos uses the inode's own sector as
// its unique identifier instead of a separate inode-number space, and
// this module keeps that convention.
type Inode struct {
	sector block.Sector

	lock sync.Mutex // guards disk + dirty + growth

	disk  *diskInode
	dirty bool

	openCnt int
	removed bool

	denyWriteLock sync.Mutex
	denyWriteCnt  int
	writeCnt      int
	noWrite       *sync.Cond
}

// FS is the open-inode registry plus the resources (cache, free-sector
// bitmap) inodes need to grow and shrink. One FS per mounted device,
// mirroring pintos's single global open_inodes list guarded by a lock.
type FS struct {
	c    *cache.Cache
	free *freemap.Map

	mu    sync.Mutex
	open  map[block.Sector]*Inode
}

// NewFS wires a cache and a free-sector bitmap into an open-inode
// registry.
func NewFS(c *cache.Cache, free *freemap.Map) *FS {
	return &FS{c: c, free: free, open: make(map[block.Sector]*Inode)}
}

// Create allocates a fresh sector, writes an empty inode header of the
// given kind, and returns it already open with refcount 1.
func (fs *FS) Create(kind Type) (*Inode, defs.Err_t) {
	bit, ok := fs.free.Alloc()
	if !ok {
		return nil, defs.ENOSPC
	}
	sector := block.Sector(bit)
	d := newDiskInode(kind)
	e := fs.c.Lock(sector, cache.ModeExclusive)
	fs.c.Write(e, d.Encode())
	fs.c.Unlock(e)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	ip := &Inode{sector: sector, disk: d, openCnt: 1}
	ip.noWrite = sync.NewCond(&ip.denyWriteLock)
	fs.open[sector] = ip
	return ip, 0
}

// Open dedups by sector: a second Open of the same inode returns the
// same in-memory Inode with a bumped refcount, mirroring inode_open's
// walk of the open_inodes list before creating a new entry.
func (fs *FS) Open(sector block.Sector) (*Inode, defs.Err_t) {
	fs.mu.Lock()
	if ip, ok := fs.open[sector]; ok {
		ip.openCnt++
		fs.mu.Unlock()
		return ip, 0
	}
	fs.mu.Unlock()

	e := fs.c.Lock(sector, cache.ModeShared)
	raw := fs.c.Read(e)
	fs.c.Unlock(e)
	d := decodeDiskInode(raw)
	if d.Magic != Magic {
		return nil, defs.EINVAL
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if ip, ok := fs.open[sector]; ok {
		// Lost the race with another Open; use theirs.
		ip.openCnt++
		return ip, 0
	}
	ip := &Inode{sector: sector, disk: d, openCnt: 1}
	ip.noWrite = sync.NewCond(&ip.denyWriteLock)
	fs.open[sector] = ip
	return ip, 0
}

// Sector returns the inode's identifying sector.
func (ip *Inode) Sector() block.Sector { return ip.sector }

// Length returns the inode's current size in bytes.
func (ip *Inode) Length() uint64 {
	ip.lock.Lock()
	defer ip.lock.Unlock()
	return ip.disk.Length
}

// Kind returns the inode's on-disk type.
func (ip *Inode) Kind() Type {
	ip.lock.Lock()
	defer ip.lock.Unlock()
	return ip.disk.Kind
}

// TypeOf reads a sector's inode type without a full Open/Close pair —
// the original pintos exposes this so a directory layer can classify a
// child without paying for a registry entry; the distilled spec omits
// it, so it's supplemented here.
func TypeOf(fs *FS, sector block.Sector) (Type, defs.Err_t) {
	e := fs.c.Lock(sector, cache.ModeShared)
	raw := fs.c.Read(e)
	fs.c.Unlock(e)
	d := decodeDiskInode(raw)
	if d.Magic != Magic {
		return 0, defs.EINVAL
	}
	return d.Kind, 0
}

func (fs *FS) flush(ip *Inode) {
	e := fs.c.Lock(ip.sector, cache.ModeExclusive)
	fs.c.Write(e, ip.disk.Encode())
	fs.c.Unlock(e)
	ip.dirty = false
}

// Close drops ip's refcount; at zero, if the inode was Remove'd, its
// sectors are recursively erased and its registry entry dropped —
// exactly inode_close's open_cnt==0 && removed branch.
func (fs *FS) Close(ip *Inode) {
	fs.mu.Lock()
	ip.openCnt--
	if ip.openCnt > 0 {
		fs.mu.Unlock()
		return
	}
	delete(fs.open, ip.sector)
	fs.mu.Unlock()

	ip.lock.Lock()
	removed := ip.removed
	dirty := ip.dirty
	ip.lock.Unlock()

	if removed {
		fs.erase(ip)
		return
	}
	if dirty {
		fs.flush(ip)
	}
}

// Remove marks ip for deletion; the sectors aren't freed until the
// last Close, matching inode_remove's "mark removed, erase on last
// close" contract so other open handles keep working meanwhile.
func (ip *Inode) markRemoved() {
	ip.lock.Lock()
	ip.removed = true
	ip.lock.Unlock()
}

func (fs *FS) Remove(ip *Inode) {
	ip.markRemoved()
}

// DenyWrite/AllowWrite implement the executable-image protection
// pintos uses while a process is running an image: a write is refused
// with EACCES (it does not wait) while any deny is outstanding, and a
// deny blocks while a write is in-flight, exactly
// inode_deny_write/inode_allow_write's protocol around the no_write
// condition variable.
func (ip *Inode) DenyWrite() {
	ip.denyWriteLock.Lock()
	for ip.writeCnt > 0 {
		ip.noWrite.Wait()
	}
	ip.denyWriteCnt++
	ip.denyWriteLock.Unlock()
}

func (ip *Inode) AllowWrite() {
	ip.denyWriteLock.Lock()
	ip.denyWriteCnt--
	if ip.denyWriteCnt == 0 {
		ip.noWrite.Broadcast()
	}
	ip.denyWriteLock.Unlock()
}

func (ip *Inode) beginWrite() defs.Err_t {
	ip.denyWriteLock.Lock()
	defer ip.denyWriteLock.Unlock()
	if ip.denyWriteCnt > 0 {
		return defs.EACCES
	}
	ip.writeCnt++
	return 0
}

func (ip *Inode) endWrite() {
	ip.denyWriteLock.Lock()
	ip.writeCnt--
	if ip.writeCnt == 0 {
		ip.noWrite.Broadcast()
	}
	ip.denyWriteLock.Unlock()
}
