// Package swap implements the swap device: a bit-per-slot bitmap over
// fixed 8-sector (SectorsPerPage) slots, ported from pintos's
// vm/swap.c. A clear bit means free, matching swap_init's all-zero
// starting bitmap; Dump finds and claims a free slot with a scan, Load
// clears the bit it reads from. Both panic on the conditions the
// original PANICs on (swap full, loading a free slot) since those are
// unrecoverable invariant violations, not ordinary error returns.
package swap

import (
	"sync"

	"github.com/ziqian2000/PintOS/block"
	"github.com/ziqian2000/PintOS/limits"
)

// SlotIndex identifies one page-sized swap slot. It is an alias of
// uint32 so *Device satisfies spt.SwapDevice.
type SlotIndex = uint32

// Device is the swap manager sitting on top of a raw block.Device.
type Device struct {
	mu    sync.Mutex
	dev   block.Device
	used  []bool
	nfree int
}

// New builds a Device over dev, whose sector count must be a multiple
// of limits.SectorsPerPage; every slot starts free.
func New(dev block.Device) *Device {
	n := dev.NumSectors() / limits.SectorsPerPage
	d := &Device{dev: dev, used: make([]bool, n), nfree: int(n)}
	return d
}

// NumSlots reports the total slot capacity.
func (d *Device) NumSlots() int {
	return len(d.used)
}

// NumFree reports how many slots remain unused.
func (d *Device) NumFree() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.nfree
}

// Dump writes one page (limits.SectorsPerPage sectors) into a freshly
// claimed slot and returns its index, matching swap_dump's
// bitmap_scan_and_flip. Panics if the device is full — swap exhaustion
// is unrecoverable in this design, exactly as the original's
// PANIC("Swap full").
func (d *Device) Dump(page []byte) SlotIndex {
	if len(page) != limits.PageSize {
		panic("swap: page must be exactly limits.PageSize bytes")
	}
	d.mu.Lock()
	slot := -1
	for i, used := range d.used {
		if !used {
			slot = i
			d.used[i] = true
			d.nfree--
			break
		}
	}
	d.mu.Unlock()
	if slot < 0 {
		panic("swap: Swap full")
	}

	base := block.Sector(uint32(slot) * limits.SectorsPerPage)
	for i := 0; i < limits.SectorsPerPage; i++ {
		if err := d.dev.WriteSector(base+block.Sector(i), page[i*block.SectorSize:(i+1)*block.SectorSize]); err != nil {
			panic("swap: write failed: " + err.Error())
		}
	}
	return SlotIndex(slot)
}

// Load reads slot's page into page and frees the slot, matching
// swap_load. Panics if slot was never Dump'd — reading a free slot is
// an invariant violation (a use-after-swap-free bug), exactly the
// original's PANIC("Swap free").
func (d *Device) Load(slot SlotIndex, page []byte) {
	if len(page) != limits.PageSize {
		panic("swap: page must be exactly limits.PageSize bytes")
	}
	d.mu.Lock()
	if int(slot) >= len(d.used) || !d.used[slot] {
		d.mu.Unlock()
		panic("swap: Swap free")
	}
	d.used[slot] = false
	d.nfree++
	d.mu.Unlock()

	base := block.Sector(uint32(slot) * limits.SectorsPerPage)
	for i := 0; i < limits.SectorsPerPage; i++ {
		if err := d.dev.ReadSector(base+block.Sector(i), page[i*block.SectorSize:(i+1)*block.SectorSize]); err != nil {
			panic("swap: read failed: " + err.Error())
		}
	}
}
