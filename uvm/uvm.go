// Package uvm is the syscall-boundary glue between a user address and
// the supplemental page table: validating and pinning a user buffer or
// string before a syscall touches it, and the mmap/munmap descriptor
// lifecycle. Ported from pintos's userprog/syscall0.c
// (check_and_pin_addr/check_and_pin_buffer/check_and_pin_string and
// sys_mmap/sys_munmap's validation order).
package uvm

import (
	"github.com/ziqian2000/PintOS/defs"
	"github.com/ziqian2000/PintOS/inode"
	"github.com/ziqian2000/PintOS/limits"
	"github.com/ziqian2000/PintOS/pagedir"
	"github.com/ziqian2000/PintOS/spt"
)

// AddressSpace bundles one process's page directory, supplemental page
// table, and stack pointer/top-of-stack bounds — everything the pin
// helpers need to resolve a fault without threading four parameters
// through every call.
type AddressSpace struct {
	Dir *pagedir.Dir
	SPT *spt.Table

	TopOfStack     pagedir.Addr
	StackPointer   pagedir.Addr
	nextMapID      int
	mappings       map[int]*mapping
}

type mapping struct {
	file       *inode.Inode
	startAddr  pagedir.Addr
	numPages   int
}

// NewAddressSpace wires up an empty address space over dir/spt.
func NewAddressSpace(dir *pagedir.Dir, spt *spt.Table, topOfStack pagedir.Addr) *AddressSpace {
	return &AddressSpace{Dir: dir, SPT: spt, TopOfStack: topOfStack, mappings: make(map[int]*mapping)}
}

// CheckAndPinAddr resolves the page containing addr: loading it from
// the SPT if it already has an entry, growing the stack if addr looks
// like a stack-growth fault, or failing, matching
// check_and_pin_addr's three-way branch. On success the page is loaded
// (Present) and pinned against the frame table's eviction sweep — set
// only here, at the syscall boundary, and not inside Load/GrowStack
// themselves, since the plain page-fault path resolves pages through
// those same calls without ever wanting to pin them. The caller must
// call UnpinAddr when done.
func (as *AddressSpace) CheckAndPinAddr(addr pagedir.Addr) defs.Err_t {
	var err defs.Err_t
	if e := as.SPT.Get(addr); e != nil {
		err = as.SPT.Load(addr)
	} else if spt.StackGrowth(as.TopOfStack, addr, as.StackPointer) {
		err = as.SPT.GrowStack(addr)
	} else {
		return defs.EFAULT
	}
	if err != 0 {
		return err
	}
	as.SPT.Pin(addr)
	return 0
}

// UnpinAddr is CheckAndPinAddr's counterpart: it clears the pinned flag
// CheckAndPinAddr set (via SPT.Pin, after SPT.Load or SPT.GrowStack
// succeeded), matching
// unpin_addr. Once cleared, the frame table's clock sweep may again
// pick this page's frame as an eviction victim.
func (as *AddressSpace) UnpinAddr(addr pagedir.Addr) {
	as.SPT.Unpin(addr)
}

// CheckAndPinBuffer pins every page touched by a size-byte buffer at
// addr, failing if any page can't be resolved or (when write is true)
// isn't writeable — matching check_and_pin_buffer's per-byte iteration
// collapsed to a per-page walk.
func (as *AddressSpace) CheckAndPinBuffer(addr pagedir.Addr, size int, write bool) defs.Err_t {
	if size == 0 {
		return 0
	}
	start := pagedir.Addr(uint64(addr) &^ (limits.PageSize - 1))
	end := addr + pagedir.Addr(size) - 1
	for va := start; va <= end; va += limits.PageSize {
		if err := as.CheckAndPinAddr(va); err != 0 {
			return err
		}
		if write {
			if e := as.SPT.Get(va); e != nil && !e.Writeable {
				return defs.EFAULT
			}
		}
	}
	return 0
}

func (as *AddressSpace) UnpinBuffer(addr pagedir.Addr, size int) {
	if size == 0 {
		return
	}
	start := pagedir.Addr(uint64(addr) &^ (limits.PageSize - 1))
	end := addr + pagedir.Addr(size) - 1
	for va := start; va <= end; va += limits.PageSize {
		as.UnpinAddr(va)
	}
}

// CheckAndPinString pins pages under a NUL-terminated string starting
// at addr, one page at a time, until the terminator is found within
// max bytes — matching check_and_pin_string's per-byte scan.
func (as *AddressSpace) CheckAndPinString(addr pagedir.Addr, max int, readByte func(pagedir.Addr) byte) (int, defs.Err_t) {
	for i := 0; i < max; i++ {
		va := addr + pagedir.Addr(i)
		page := pagedir.Addr(uint64(va) &^ (limits.PageSize - 1))
		if i == 0 || va == page {
			if err := as.CheckAndPinAddr(page); err != 0 {
				return 0, err
			}
		}
		if readByte(va) == 0 {
			return i, 0
		}
	}
	return 0, defs.EFAULT
}

func (as *AddressSpace) UnpinString(addr pagedir.Addr, n int) {
	start := pagedir.Addr(uint64(addr) &^ (limits.PageSize - 1))
	end := addr + pagedir.Addr(n)
	for va := start; va <= end; va += limits.PageSize {
		as.UnpinAddr(va)
	}
}
