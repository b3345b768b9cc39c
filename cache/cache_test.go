package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ziqian2000/PintOS/block"
	"github.com/ziqian2000/PintOS/limits"
)

func TestReadMissThenHit(t *testing.T) {
	dev := block.NewMemDevice(4)
	var seed [block.SectorSize]byte
	seed[0] = 0x42
	require.NoError(t, dev.WriteSector(0, seed[:]))

	c := New(dev)
	e := c.Lock(0, ModeShared)
	data := c.Read(e)
	c.Unlock(e)
	require.Equal(t, byte(0x42), data[0])
	require.Equal(t, int64(1), c.Stats().Misses)

	e2 := c.Lock(0, ModeShared)
	c.Read(e2)
	c.Unlock(e2)
	require.Equal(t, int64(1), c.Stats().Hits)
}

func TestWriteThenEvictFlushesDirty(t *testing.T) {
	dev := block.NewMemDevice(limits.CacheMax + 1)
	c := New(dev)

	e := c.Lock(0, ModeExclusive)
	var buf [block.SectorSize]byte
	buf[0] = 0x7
	c.Write(e, buf)
	c.Unlock(e)

	// Fill every remaining slot so the next lock forces an eviction.
	for s := block.Sector(1); s < block.Sector(limits.CacheMax); s++ {
		ei := c.Lock(s, ModeShared)
		c.Read(ei)
		c.Unlock(ei)
	}
	// One more distinct sector must evict something; sector 0 is dirty
	// and idle, so it's eligible.
	victim := c.Lock(block.Sector(limits.CacheMax), ModeShared)
	c.Read(victim)
	c.Unlock(victim)

	var out [block.SectorSize]byte
	require.NoError(t, dev.ReadSector(0, out[:]))
	if out[0] != 0x7 {
		// sector 0 may not have been the exact eviction victim; that's
		// fine as long as the cache still returns the written value.
		e2 := c.Lock(0, ModeShared)
		data := c.Read(e2)
		c.Unlock(e2)
		require.Equal(t, byte(0x7), data[0])
	}
}

func TestConcurrentReadersWritersConverge(t *testing.T) {
	dev := block.NewMemDevice(1)
	c := New(dev)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				e := c.Lock(0, ModeExclusive)
				var buf [block.SectorSize]byte
				buf[0] = byte(i)
				c.Write(e, buf)
				c.Unlock(e)
			} else {
				e := c.Lock(0, ModeShared)
				c.Read(e)
				c.Unlock(e)
			}
		}(i)
	}
	wg.Wait()
}

func TestSetZeroAvoidsDiskRead(t *testing.T) {
	dev := block.NewMemDevice(1)
	var seed [block.SectorSize]byte
	seed[0] = 0xFF
	require.NoError(t, dev.WriteSector(0, seed[:]))

	c := New(dev)
	e := c.Lock(0, ModeExclusive)
	c.SetZero(e)
	data := c.Read(e)
	c.Unlock(e)
	require.Equal(t, byte(0), data[0])
}
