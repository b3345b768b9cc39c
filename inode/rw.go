package inode

import (
	"github.com/ziqian2000/PintOS/block"
	"github.com/ziqian2000/PintOS/cache"
	"github.com/ziqian2000/PintOS/defs"
	"github.com/ziqian2000/PintOS/limits"
)

// ReadAt copies min(len(buf), Length-offset) bytes starting at offset
// into buf, sector by sector through the cache, and returns the number
// of bytes actually read. Reading past EOF or through a sparse hole
// yields zero bytes for that range, matching inode_read_at.
func (fs *FS) ReadAt(ip *Inode, buf []byte, offset uint64) (int, defs.Err_t) {
	ip.lock.Lock()
	defer ip.lock.Unlock()

	length := ip.disk.Length
	if offset >= length {
		return 0, 0
	}
	if uint64(len(buf)) > length-offset {
		buf = buf[:length-offset]
	}

	total := 0
	for total < len(buf) {
		pos := offset + uint64(total)
		idx := uint32(pos / block.SectorSize)
		within := int(pos % block.SectorSize)
		chunk := block.SectorSize - within
		if chunk > len(buf)-total {
			chunk = len(buf) - total
		}

		sector, err := fs.getDataBlock(ip, idx, false)
		if err != 0 {
			return total, err
		}
		if sector == block.Sector(limits.InvalidSector) {
			// Sparse hole: reads as zero.
			for i := 0; i < chunk; i++ {
				buf[total+i] = 0
			}
		} else {
			e := fs.c.Lock(sector, cache.ModeShared)
			data := fs.c.Read(e)
			fs.c.Unlock(e)
			copy(buf[total:total+chunk], data[within:within+chunk])
		}
		total += chunk
	}
	return total, 0
}

// WriteAt writes buf at offset, growing the file (allocating new
// direct/indirect sectors as needed) if offset+len(buf) exceeds the
// current length. The length is published only after every sector the
// write touches has been allocated, matching update_inode_length's
// grow-then-publish-under-lock ordering so a concurrent reader never
// observes a length past what's actually backed by real sectors.
func (fs *FS) WriteAt(ip *Inode, buf []byte, offset uint64) (int, defs.Err_t) {
	if err := ip.beginWrite(); err != 0 {
		return 0, err
	}
	defer ip.endWrite()

	ip.lock.Lock()
	defer ip.lock.Unlock()

	end := offset + uint64(len(buf))
	if end > limits.MaxFileBytes {
		return 0, defs.EFBIG
	}

	total := 0
	for total < len(buf) {
		pos := offset + uint64(total)
		idx := uint32(pos / block.SectorSize)
		within := int(pos % block.SectorSize)
		chunk := block.SectorSize - within
		if chunk > len(buf)-total {
			chunk = len(buf) - total
		}

		sector, err := fs.getDataBlock(ip, idx, true)
		if err != 0 {
			return total, err
		}
		e := fs.c.Lock(sector, cache.ModeExclusive)
		data := fs.c.Read(e)
		copy(data[within:within+chunk], buf[total:total+chunk])
		fs.c.Write(e, data)
		fs.c.Unlock(e)

		total += chunk
	}

	if end > ip.disk.Length {
		ip.disk.Length = end
	}
	ip.dirty = true
	fs.flush(ip)
	return total, 0
}
