package uvm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ziqian2000/PintOS/block"
	"github.com/ziqian2000/PintOS/cache"
	"github.com/ziqian2000/PintOS/frame"
	"github.com/ziqian2000/PintOS/freemap"
	"github.com/ziqian2000/PintOS/inode"
	"github.com/ziqian2000/PintOS/limits"
	"github.com/ziqian2000/PintOS/pagedir"
	"github.com/ziqian2000/PintOS/palloc"
	"github.com/ziqian2000/PintOS/spt"
)

type fakeSwap struct {
	slots map[uint32][]byte
	next  uint32
}

func newFakeSwap() *fakeSwap { return &fakeSwap{slots: make(map[uint32][]byte)} }
func (f *fakeSwap) Dump(page []byte) uint32 {
	s := f.next
	f.next++
	buf := make([]byte, len(page))
	copy(buf, page)
	f.slots[s] = buf
	return s
}
func (f *fakeSwap) Load(slot uint32, page []byte) { copy(page, f.slots[slot]) }

func setup(t *testing.T) (*AddressSpace, *inode.FS) {
	dev := block.NewMemDevice(8192)
	c := cache.New(dev)
	free := freemap.Format(c, 0, 8192)
	fs := inode.NewFS(c, free)
	pool := palloc.New(8)
	frames := frame.New(pool)
	dir := pagedir.New()
	spTable := spt.New(dir, frames, fs, newFakeSwap())
	as := NewAddressSpace(dir, spTable, 0xC0000000)
	as.StackPointer = 0xC0000000 - 4
	return as, fs
}

func TestStackGrowthFault(t *testing.T) {
	as, _ := setup(t)
	err := as.CheckAndPinAddr(0xC0000000 - 4)
	require.Zero(t, err)
	as.UnpinAddr(0xC0000000 - 4)
}

func TestFaultOutsideAnyRegionFails(t *testing.T) {
	as, _ := setup(t)
	err := as.CheckAndPinAddr(0x1000)
	require.NotZero(t, err)
}

func TestPinnedStackPageSurvivesEviction(t *testing.T) {
	dev := block.NewMemDevice(8192)
	c := cache.New(dev)
	free := freemap.Format(c, 0, 8192)
	fs := inode.NewFS(c, free)
	pool := palloc.New(2)
	frames := frame.New(pool)
	dir := pagedir.New()
	spTable := spt.New(dir, frames, fs, newFakeSwap())
	as := NewAddressSpace(dir, spTable, 0xC0000000)

	page1 := pagedir.Addr(0xC0000000 - limits.PageSize)
	page2 := pagedir.Addr(0xC0000000 - 2*limits.PageSize)
	page3 := pagedir.Addr(0xC0000000 - 3*limits.PageSize)

	as.StackPointer = page1 - 4
	require.Zero(t, as.CheckAndPinAddr(page1-4))
	require.True(t, as.SPT.IsPinned(page1))

	as.StackPointer = page2 - 4
	require.Zero(t, as.CheckAndPinAddr(page2-4))
	as.UnpinAddr(page2)

	// The pool is now exhausted (2 frames, both occupied): the first
	// stack page is still pinned, so a third distinct fault must evict
	// the second, unpinned one instead of the pinned one.
	as.StackPointer = page3 - 4
	require.Zero(t, as.CheckAndPinAddr(page3-4))
	require.False(t, as.SPT.Get(page2).Present)
	require.True(t, as.SPT.Get(page1).Present)

	as.UnpinAddr(page1)
	require.False(t, as.SPT.IsPinned(page1))
}

func TestMmapThenMunmap(t *testing.T) {
	as, fs := setup(t)
	ip, _ := fs.Create(inode.TypeFile)
	data := make([]byte, limits.PageSize)
	copy(data, []byte("mapped file contents"))
	fs.WriteAt(ip, data, 0)

	id, err := as.Mmap(0x40000000, ip, uint64(limits.PageSize))
	require.Zero(t, err)

	require.Zero(t, as.CheckAndPinAddr(0x40000000))
	as.Dir.SetDirty(0x40000000, true)

	require.Zero(t, as.Munmap(id, fs))
	require.Nil(t, as.SPT.Get(0x40000000))

	out := make([]byte, len(data))
	fs.ReadAt(ip, out, 0)
	require.Equal(t, data[:16], out[:16])
}

func TestMmapRejectsUnaligned(t *testing.T) {
	as, fs := setup(t)
	ip, _ := fs.Create(inode.TypeFile)
	_, err := as.Mmap(0x1001, ip, 100)
	require.NotZero(t, err)
}
