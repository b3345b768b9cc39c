package freemap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ziqian2000/PintOS/block"
	"github.com/ziqian2000/PintOS/cache"
)

func TestAllocFreeRoundTrip(t *testing.T) {
	dev := block.NewMemDevice(64)
	c := cache.New(dev)
	// 1 bitmap sector covers 4096 bits; requesting 400 reserves bit 0
	// for the bitmap sector itself, leaving 399 free.
	m := Format(c, 0, 400)

	require.EqualValues(t, 399, m.NumFree())
	b0, ok := m.Alloc()
	require.True(t, ok)
	require.EqualValues(t, 1, b0)
	b1, ok := m.Alloc()
	require.True(t, ok)
	require.EqualValues(t, 2, b1)
	require.EqualValues(t, 397, m.NumFree())

	m.Free(b0)
	require.EqualValues(t, 398, m.NumFree())
	b2, ok := m.Alloc()
	require.True(t, ok)
	require.EqualValues(t, 1, b2) // reused the freed bit
}

func TestAllocExhaustion(t *testing.T) {
	dev := block.NewMemDevice(4)
	c := cache.New(dev)
	// Requesting 4 bits still needs 1 bitmap sector, which reserves
	// bit 0, leaving only 3 allocatable bits.
	m := Format(c, 0, 4)
	require.EqualValues(t, 3, m.NumFree())
	for i := 0; i < 3; i++ {
		_, ok := m.Alloc()
		require.True(t, ok)
	}
	_, ok := m.Alloc()
	require.False(t, ok)
}
