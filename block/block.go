// Package block defines the sector-addressed device abstraction that the
// cache, inode, and swap layers sit on top of. The teacher (biscuit's
// fs/bdev.go) wraps a virtio disk behind an Idebus_disk_t; this module
// runs hosted, so the same seek-and-transfer contract is grounded on
// go-nfsd's raw positioned-I/O idiom (golang.org/x/sys/unix.Pread/Pwrite)
// instead of a virtio queue.
package block

import "fmt"

// SectorSize is the fixed transfer unit for every Device.
const SectorSize = 512

// Invalid is the sentinel sector number meaning "no sector".
const Invalid uint32 = 0xFFFFFFFF

// Sector is a zero-based sector index on a Device.
type Sector uint32

// Device is anything that can be read and written a sector at a time.
// Both the filesystem device and the swap device implement it, so the
// cache and swap packages share one storage contract.
type Device interface {
	ReadSector(s Sector, buf []byte) error
	WriteSector(s Sector, buf []byte) error
	NumSectors() uint32
	Sync() error
}

// ErrOutOfRange reports a sector number beyond the device's extent.
type ErrOutOfRange struct {
	Sector Sector
	Max    uint32
}

func (e *ErrOutOfRange) Error() string {
	return fmt.Sprintf("sector %d out of range (device has %d sectors)", e.Sector, e.Max)
}

func checkBuf(buf []byte) {
	if len(buf) != SectorSize {
		panic("block: buffer must be exactly SectorSize bytes")
	}
}

func checkRange(s Sector, n uint32) error {
	if uint32(s) >= n {
		return &ErrOutOfRange{Sector: s, Max: n}
	}
	return nil
}
