package spt

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

func (f *fakeSwap) Load(slot uint32, page []byte) {
	copy(page, f.slots[slot])
	delete(f.slots, slot)
}

func setupTable(t *testing.T, poolSize int) (*Table, *inode.FS, *frame.Table, *fakeSwap) {
	dev := block.NewMemDevice(8192)
	c := cache.New(dev)
	free := freemap.Format(c, 0, 8192)
	fs := inode.NewFS(c, free)

	pool := palloc.New(poolSize)
	frames := frame.New(pool)
	dir := pagedir.New()
	sw := newFakeSwap()
	spt := New(dir, frames, fs, sw)
	return spt, fs, frames, sw
}

func TestLoadElfPage(t *testing.T) {
	spt, fs, _, _ := setupTable(t, 4)
	ip, _ := fs.Create(inode.TypeFile)
	payload := make([]byte, limits.PageSize)
	copy(payload, []byte("elf segment bytes"))
	fs.WriteAt(ip, payload[:64], 0)

	spt.LinkElf(0x8000000, ip, 0, 64, uint32(limits.PageSize-64), true)
	err := spt.Load(0x8000000)
	require.Zero(t, err)

	e := spt.Get(0x8000000)
	require.True(t, e.Present)
}

func TestStackGrowthHeuristic(t *testing.T) {
	top := pagedir.Addr(0xC0000000)
	require.True(t, StackGrowth(top, top-4096, top-4096))
	require.True(t, StackGrowth(top, top-4096-16, top-4096)) // within slack
	require.False(t, StackGrowth(top, top-4096-1000, top-4096))
	require.False(t, StackGrowth(top, top-limits.StackGrowthLimit-8192, top-4096))
}

func TestGrowStackThenEvictPromotesToSwap(t *testing.T) {
	spt, _, _, sw := setupTable(t, 1)
	require.Zero(t, spt.GrowStack(0xC0000000-limits.PageSize))

	// Exhaust the one-page pool so a second GrowStack forces eviction
	// of the first stack page.
	require.Zero(t, spt.GrowStack(0xC0000000-2*limits.PageSize))

	require.Len(t, sw.slots, 1)
}
