// Package inode implements the multilevel on-disk inode: 125 sector
// pointers (123 direct, 1 singly-indirect, 1 doubly-indirect), sparse
// allocation on write, an open-inode registry deduplicated by sector,
// and the deny-write mechanism used to keep an executable's backing
// file immutable while it runs. The on-disk layout and indirection walk
// are ported from pintos's filesys/inode.c (the #ifdef FS branch, the
// VM-era multilevel-indexed version); the encode/decode step is
// modeled on go-nfsd's inode/inode.go use of github.com/tchajed/marshal.
package inode

import (
	"github.com/tchajed/marshal"

	"github.com/ziqian2000/PintOS/block"
	"github.com/ziqian2000/PintOS/limits"
)

// Type is the inode's on-disk file kind.
type Type uint32

const (
	TypeFile Type = 1
	TypeDir  Type = 2
)

// Magic identifies a valid on-disk inode header (pintos's INODE_MAGIC).
const Magic uint32 = 0x494e4f44

// diskInode is the exact 512-byte on-disk layout: 125 sector pointers
// (index 0..122 direct, 123 singly-indirect, 124 doubly-indirect),
// followed by type, length, and the magic sentinel. In memory Length is
// a uint64 for arithmetic convenience, but on disk it is 4 bytes, like
// every other field here: 125*4 + 4 + 4 + 4 = 512 exactly, and
// limits.MaxFileSectors keeps any real length well under 2^32 bytes.
type diskInode struct {
	Sectors [limits.SectorPointers]uint32
	Kind    Type
	Length  uint64
	Magic   uint32
}

// Encode packs a diskInode into exactly block.SectorSize bytes, in the
// same NewEnc/PutInt style go-nfsd's Inode.Encode uses. Every field is
// 4 bytes on disk (limits.PointersPerSector = SectorSize/4), so the
// whole layout is marshalled with PutInt32, not the 8-byte-per-int
// PutInt/PutInts.
func (d *diskInode) Encode() [block.SectorSize]byte {
	enc := marshal.NewEnc(block.SectorSize)
	for _, s := range d.Sectors {
		enc.PutInt32(s)
	}
	enc.PutInt32(uint32(d.Kind))
	enc.PutInt32(uint32(d.Length))
	enc.PutInt32(d.Magic)
	var out [block.SectorSize]byte
	copy(out[:], enc.Finish())
	return out
}

// decodeDiskInode is the Decode counterpart to Encode, mirroring
// go-nfsd's package-level Decode(buf, inum) function. Every field is
// 4-byte on disk, so it is unmarshalled with GetInt32, not the
// 8-byte-per-int GetInt/GetInts.
func decodeDiskInode(raw [block.SectorSize]byte) *diskInode {
	dec := marshal.NewDec(raw[:])
	d := &diskInode{}
	for i := range d.Sectors {
		d.Sectors[i] = dec.GetInt32()
	}
	d.Kind = Type(dec.GetInt32())
	d.Length = uint64(dec.GetInt32())
	d.Magic = dec.GetInt32()
	return d
}

// newDiskInode returns a zeroed inode: every one of its 125 sector
// pointers is limits.InvalidSector (0), so the file starts out entirely
// sparse, matching inode_create's "write a zeroed inode" contract.
func newDiskInode(kind Type) *diskInode {
	return &diskInode{Kind: kind, Magic: Magic}
}
