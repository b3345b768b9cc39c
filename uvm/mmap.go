package uvm

import (
	"github.com/ziqian2000/PintOS/defs"
	"github.com/ziqian2000/PintOS/inode"
	"github.com/ziqian2000/PintOS/limits"
	"github.com/ziqian2000/PintOS/pagedir"
)

// Mmap validates and installs a memory mapping over f starting at addr,
// one SPT entry per page, returning an incrementing map id. The
// validation order — page alignment, non-empty length, no overlap with
// an existing mapping — follows sys_mmap's own preconditions before it
// starts calling spt_link_mmap in a loop.
func (as *AddressSpace) Mmap(addr pagedir.Addr, f *inode.Inode, length uint64) (int, defs.Err_t) {
	if uint64(addr)%limits.PageSize != 0 || addr == 0 {
		return 0, defs.EINVAL
	}
	if length == 0 {
		return 0, defs.EINVAL
	}
	numPages := int((length + limits.PageSize - 1) / limits.PageSize)
	for i := 0; i < numPages; i++ {
		va := addr + pagedir.Addr(i)*limits.PageSize
		if as.SPT.Get(va) != nil {
			return 0, defs.EINVAL
		}
	}

	off := uint64(0)
	remaining := length
	for i := 0; i < numPages; i++ {
		va := addr + pagedir.Addr(i)*limits.PageSize
		readBytes := uint32(limits.PageSize)
		if remaining < limits.PageSize {
			readBytes = uint32(remaining)
		}
		zeroBytes := uint32(limits.PageSize) - readBytes
		as.SPT.LinkMmap(va, f, off, readBytes, zeroBytes)
		off += uint64(readBytes)
		remaining -= uint64(readBytes)
	}

	id := as.nextMapID
	as.nextMapID++
	as.mappings[id] = &mapping{file: f, startAddr: addr, numPages: numPages}
	return id, 0
}

// Munmap tears down a mapping created by Mmap: write back every dirty
// resident page through SPT.Evict (which writes via inode.FS.WriteAt),
// then drop the page's mapping and SPT entry — the order sys_munmap's
// remove_mapid uses. The mapping's file handle is left for the caller
// to close.
func (as *AddressSpace) Munmap(id int, fs *inode.FS) defs.Err_t {
	m, ok := as.mappings[id]
	if !ok {
		return defs.EINVAL
	}
	delete(as.mappings, id)

	for i := 0; i < m.numPages; i++ {
		va := m.startAddr + pagedir.Addr(i)*limits.PageSize
		e := as.SPT.Get(va)
		if e == nil {
			continue
		}
		if e.Present && as.Dir.IsDirty(va) {
			as.SPT.Evict(as.Dir, va) // writes back via the same path an eviction would
		}
		as.Dir.ClearPage(va)
		as.SPT.Remove(va)
	}
	return 0
}
