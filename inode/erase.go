package inode

import (
	"github.com/ziqian2000/PintOS/block"
	"github.com/ziqian2000/PintOS/limits"
)

// erase frees every sector an inode owns — its data sectors, its
// indirect and doubly-indirect pointer sectors, and finally its own
// header sector — a post-order walk matching inode_erase_recursive /
// inode_erase in the original: children are freed before the sector
// that points to them.
func (fs *FS) erase(ip *Inode) {
	ip.lock.Lock()
	d := ip.disk
	ip.lock.Unlock()

	for i := 0; i < limits.DirectPointers; i++ {
		fs.freeIfValid(d.Sectors[i])
	}

	if s := d.Sectors[limits.IndirectSlot]; s != limits.InvalidSector {
		fs.eraseIndirect(block.Sector(s))
	}

	if s := d.Sectors[limits.DindirectSlot]; s != limits.InvalidSector {
		fs.eraseDoublyIndirect(block.Sector(s))
	}

	fs.free.Free(uint32(ip.sector))
}

func (fs *FS) freeIfValid(s uint32) {
	if s != limits.InvalidSector {
		fs.free.Free(s)
	}
}

func (fs *FS) eraseIndirect(s block.Sector) {
	ptrs := fs.readIndirect(s)
	for _, p := range ptrs {
		fs.freeIfValid(p)
	}
	fs.free.Free(uint32(s))
}

func (fs *FS) eraseDoublyIndirect(s block.Sector) {
	l1 := fs.readIndirect(s)
	for _, p := range l1 {
		if p != limits.InvalidSector {
			fs.eraseIndirect(block.Sector(p))
		}
	}
	fs.free.Free(uint32(s))
}
