package block

import (
	"os"

	"golang.org/x/sys/unix"
)

// FileDevice backs a Device with a plain file, addressed with positioned
// reads/writes on the raw file descriptor rather than the buffered
// os.File.ReadAt/WriteAt, mirroring go-nfsd's cmd/fs-smallfile use of
// unix.Openat/Pwrite/Fsync for its backing store.
type FileDevice struct {
	f    *os.File
	n    uint32
	path string
}

// OpenFileDevice opens (or creates, when create is true) path as a
// Device with the given sector count. Opening an existing file with a
// sector count of 0 takes the count from the file's size.
func OpenFileDevice(path string, sectors uint32, create bool) (*FileDevice, error) {
	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, err
	}
	if create {
		if err := f.Truncate(int64(sectors) * SectorSize); err != nil {
			f.Close()
			return nil, err
		}
	} else if sectors == 0 {
		fi, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, err
		}
		sectors = uint32(fi.Size() / SectorSize)
	}
	return &FileDevice{f: f, n: sectors, path: path}, nil
}

func (d *FileDevice) ReadSector(s Sector, buf []byte) error {
	checkBuf(buf)
	if err := checkRange(s, d.n); err != nil {
		return err
	}
	off := int64(s) * SectorSize
	n, err := unix.Pread(int(d.f.Fd()), buf, off)
	if err != nil {
		return err
	}
	if n != SectorSize {
		return &ErrOutOfRange{Sector: s, Max: d.n}
	}
	return nil
}

func (d *FileDevice) WriteSector(s Sector, buf []byte) error {
	checkBuf(buf)
	if err := checkRange(s, d.n); err != nil {
		return err
	}
	off := int64(s) * SectorSize
	_, err := unix.Pwrite(int(d.f.Fd()), buf, off)
	return err
}

func (d *FileDevice) NumSectors() uint32 { return d.n }

func (d *FileDevice) Sync() error {
	return unix.Fdatasync(int(d.f.Fd()))
}

func (d *FileDevice) Close() error {
	return d.f.Close()
}
