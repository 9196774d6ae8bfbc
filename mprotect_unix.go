//go:build unix

package timepin

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	mprotectExec = unix.PROT_EXEC
	mprotectRX   = unix.PROT_READ | unix.PROT_EXEC
	mprotectRWX  = unix.PROT_READ | unix.PROT_WRITE | unix.PROT_EXEC
)

func mprotect(buf []byte, flags int) error {
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))

	pageSize := uintptr(unix.Getpagesize())

	// Round address down to page boundary.
	pageStart := addr &^ (pageSize - 1)

	// Cover every page the buffer touches.
	regionSize := (addr - pageStart + uintptr(len(buf)) + pageSize - 1) &^ (pageSize - 1)

	region := unsafe.Slice((*byte)(unsafe.Pointer(pageStart)), regionSize)
	return unix.Mprotect(region, flags)
}
