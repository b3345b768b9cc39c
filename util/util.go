// Package util holds small arithmetic helpers shared by the storage and
// paging packages. The teacher's byte-packing helpers (Readn/Writen,
// built on unsafe.Pointer) are dropped here: on-disk encoding now goes
// through github.com/tchajed/marshal (see inode.diskInode), which
// covers the same concern without unsafe.
package util

func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func Rounddown(v int, b int) int {
	return v - (v % b)
}

func Roundup(v int, b int) int {
	return Rounddown(v+b-1, b)
}
