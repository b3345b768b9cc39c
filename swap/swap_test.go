package swap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ziqian2000/PintOS/block"
	"github.com/ziqian2000/PintOS/limits"
)

func TestDumpLoadRoundTrip(t *testing.T) {
	dev := block.NewMemDevice(limits.SectorsPerPage * 4)
	d := New(dev)
	require.Equal(t, 4, d.NumFree())

	page := make([]byte, limits.PageSize)
	page[0] = 0xAB
	slot := d.Dump(page)
	require.Equal(t, 3, d.NumFree())

	out := make([]byte, limits.PageSize)
	d.Load(slot, out)
	require.Equal(t, page, out)
	require.Equal(t, 4, d.NumFree())
}

func TestLoadFreeSlotPanics(t *testing.T) {
	dev := block.NewMemDevice(limits.SectorsPerPage * 2)
	d := New(dev)
	out := make([]byte, limits.PageSize)
	require.Panics(t, func() { d.Load(0, out) })
}

func TestDumpFullPanics(t *testing.T) {
	dev := block.NewMemDevice(limits.SectorsPerPage)
	d := New(dev)
	page := make([]byte, limits.PageSize)
	d.Dump(page)
	require.Panics(t, func() { d.Dump(page) })
}
