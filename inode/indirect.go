package inode

import (
	"github.com/tchajed/marshal"

	"github.com/ziqian2000/PintOS/block"
	"github.com/ziqian2000/PintOS/cache"
	"github.com/ziqian2000/PintOS/defs"
	"github.com/ziqian2000/PintOS/limits"
)

// readIndirect/writeIndirect (de)serialize an indirect sector's
// limits.PointersPerSector uint32 sector pointers. Each pointer is
// 4 bytes on disk (limits.PointersPerSector = SectorSize/4), so the
// loop uses GetInt32/PutInt32, not the 8-byte-per-int GetInts/PutInts.
func (fs *FS) readIndirect(s block.Sector) [limits.PointersPerSector]uint32 {
	e := fs.c.Lock(s, cache.ModeShared)
	raw := fs.c.Read(e)
	fs.c.Unlock(e)
	dec := marshal.NewDec(raw[:])
	var ptrs [limits.PointersPerSector]uint32
	for i := range ptrs {
		ptrs[i] = dec.GetInt32()
	}
	return ptrs
}

func (fs *FS) writeIndirect(s block.Sector, ptrs [limits.PointersPerSector]uint32) {
	enc := marshal.NewEnc(block.SectorSize)
	for _, v := range ptrs {
		enc.PutInt32(v)
	}
	var buf [block.SectorSize]byte
	copy(buf[:], enc.Finish())
	e := fs.c.Lock(s, cache.ModeExclusive)
	fs.c.Write(e, buf)
	fs.c.Unlock(e)
}

func (fs *FS) allocSector() (block.Sector, defs.Err_t) {
	bit, ok := fs.free.Alloc()
	if !ok {
		return 0, defs.ENOSPC
	}
	return block.Sector(bit), 0
}

// getDataBlock is the resolve_offset + get_data_block equivalent: given
// a zero-based data-sector index within the file, it returns the
// backing device sector, walking (and, if allocate is set, extending)
// the direct/singly-indirect/doubly-indirect pointer tree. ip.lock must
// be held by the caller.
func (fs *FS) getDataBlock(ip *Inode, idx uint32, allocate bool) (block.Sector, defs.Err_t) {
	if idx >= limits.MaxFileSectors {
		return 0, defs.EINVAL
	}

	// Direct range: indices 0..122 map straight onto Sectors[0..122].
	if idx < limits.DirectPointers {
		return fs.resolveSlot(&ip.disk.Sectors[idx], allocate)
	}
	idx -= limits.DirectPointers

	// Singly indirect range: indices 0..127 within the pointer sector
	// named by Sectors[123].
	if idx < limits.PointersPerSector {
		indirSector, err := fs.resolveSlot(&ip.disk.Sectors[limits.IndirectSlot], allocate)
		if err != 0 {
			return 0, err
		}
		if indirSector == block.Sector(limits.InvalidSector) {
			return 0, 0 // sparse hole, not allocating
		}
		ptrs := fs.readIndirect(indirSector)
		s, err := fs.resolveSlot(&ptrs[idx], allocate)
		if err != 0 {
			return 0, err
		}
		if allocate {
			fs.writeIndirect(indirSector, ptrs)
		}
		return s, 0
	}
	idx -= limits.PointersPerSector

	// Doubly indirect range: two-level walk under Sectors[124].
	l1 := idx / limits.PointersPerSector
	l2 := idx % limits.PointersPerSector
	dindirSector, err := fs.resolveSlot(&ip.disk.Sectors[limits.DindirectSlot], allocate)
	if err != 0 {
		return 0, err
	}
	if dindirSector == block.Sector(limits.InvalidSector) {
		return 0, 0
	}
	l1ptrs := fs.readIndirect(dindirSector)
	indirSector, err := fs.resolveSlot(&l1ptrs[l1], allocate)
	if err != 0 {
		return 0, err
	}
	if allocate {
		fs.writeIndirect(dindirSector, l1ptrs)
	}
	if indirSector == block.Sector(limits.InvalidSector) {
		return 0, 0
	}
	l2ptrs := fs.readIndirect(indirSector)
	s, err := fs.resolveSlot(&l2ptrs[l2], allocate)
	if err != 0 {
		return 0, err
	}
	if allocate {
		fs.writeIndirect(indirSector, l2ptrs)
	}
	return s, 0
}

// resolveSlot returns *slot if already valid; if invalid and allocate
// is set, it allocates a fresh zero-filled sector, stores it in *slot,
// and marks the inode dirty for the caller to flush.
func (fs *FS) resolveSlot(slot *uint32, allocate bool) (block.Sector, defs.Err_t) {
	if *slot != limits.InvalidSector {
		return block.Sector(*slot), 0
	}
	if !allocate {
		return block.Sector(limits.InvalidSector), 0
	}
	s, err := fs.allocSector()
	if err != 0 {
		return 0, err
	}
	e := fs.c.Lock(s, cache.ModeExclusive)
	fs.c.SetZero(e)
	fs.c.Unlock(e)
	*slot = uint32(s)
	return s, 0
}
