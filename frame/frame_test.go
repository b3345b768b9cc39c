package frame

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ziqian2000/PintOS/pagedir"
	"github.com/ziqian2000/PintOS/palloc"
)

type recordingOwner struct {
	evicted []pagedir.Addr
	pinned  map[pagedir.Addr]bool
}

func (o *recordingOwner) Evict(dir *pagedir.Dir, va pagedir.Addr) {
	o.evicted = append(o.evicted, va)
}

func (o *recordingOwner) IsPinned(va pagedir.Addr) bool {
	return o.pinned[va]
}

func TestGetFreeNoEviction(t *testing.T) {
	pool := palloc.New(4)
	tbl := New(pool)
	dir := pagedir.New()
	owner := &recordingOwner{}

	pg := tbl.Get(dir, 0x1000, owner, palloc.User)
	dir.SetPage(0x1000, uint32(pg), true)
	require.Equal(t, 1, tbl.Occupied())
	require.Empty(t, owner.evicted)
}

func TestSecondChanceEviction(t *testing.T) {
	pool := palloc.New(1)
	tbl := New(pool)
	dir := pagedir.New()
	owner := &recordingOwner{}

	pg0 := tbl.Get(dir, 0x1000, owner, palloc.User)
	dir.SetPage(0x1000, uint32(pg0), true)
	dir.SetAccessed(0x1000, true)

	// Pool is exhausted: the next Get must evict 0x1000 (its accessed
	// bit gets cleared on the first pass, then it becomes the victim
	// once the sweep comes back around).
	pg1 := tbl.Get(dir, 0x2000, owner, palloc.User)
	dir.SetPage(0x2000, uint32(pg1), true)

	require.Equal(t, []pagedir.Addr{0x1000}, owner.evicted)
	require.Equal(t, 1, tbl.Occupied())
}

func TestPinnedFrameNeverEvicted(t *testing.T) {
	pool := palloc.New(2)
	tbl := New(pool)
	dir := pagedir.New()
	owner := &recordingOwner{pinned: map[pagedir.Addr]bool{0x1000: true}}

	pg0 := tbl.Get(dir, 0x1000, owner, palloc.User)
	dir.SetPage(0x1000, uint32(pg0), true)
	pg1 := tbl.Get(dir, 0x2000, owner, palloc.User)
	dir.SetPage(0x2000, uint32(pg1), true)

	// Pool is exhausted and 0x1000 is pinned: the sweep must skip past
	// it and evict 0x2000 instead.
	pg2 := tbl.Get(dir, 0x3000, owner, palloc.User)
	dir.SetPage(0x3000, uint32(pg2), true)

	require.Equal(t, []pagedir.Addr{0x2000}, owner.evicted)
	require.Equal(t, 2, tbl.Occupied())
}
