package mem

import (
	"unsafe"

	"github.com/notfilippo/rawalloc/alloc"
)

func roundUp(n, align uintptr) uintptr {
	return (n + align - 1) &^ (align - 1)
}

func bytesAt(addr alloc.Address, n uintptr) []byte {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), n)
}
