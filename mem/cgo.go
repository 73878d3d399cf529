//go:build cgo

package mem

/*
#include <stddef.h>
#include <stdlib.h>
#include <string.h>

static void* rawalloc_malloc(size_t size, size_t align) {
	if (align <= _Alignof(max_align_t)) {
		return malloc(size);
	}
	void* p = NULL;
	if (posix_memalign(&p, align, size) != 0) {
		return NULL;
	}
	return p;
}

static void* rawalloc_calloc(size_t size, size_t align) {
	if (align <= _Alignof(max_align_t)) {
		return calloc(1, size);
	}
	void* p = rawalloc_malloc(size, align);
	if (p != NULL) {
		memset(p, 0, size);
	}
	return p;
}

static void* rawalloc_realloc(void* p, size_t old_size, size_t new_size, size_t align) {
	if (align <= _Alignof(max_align_t)) {
		return realloc(p, new_size);
	}
	void* n = rawalloc_malloc(new_size, align);
	if (n == NULL) {
		return NULL;
	}
	memcpy(n, p, old_size < new_size ? old_size : new_size);
	free(p);
	return n;
}
*/
import "C"

import (
	"unsafe"

	"github.com/notfilippo/rawalloc/accounting"
	"github.com/notfilippo/rawalloc/alloc"
)

// CGoAllocator is a raw allocator over libc's malloc, calloc, realloc
// and free. Alignments above max_align_t go through posix_memalign.
var CGoAllocator accounting.RawAllocator = cgoAllocator{}

var _ accounting.ZeroAllocator = cgoAllocator{}

type cgoAllocator struct{}

func (cgoAllocator) Alloc(size, align uintptr) alloc.Address {
	return alloc.Address(C.rawalloc_malloc(C.size_t(size), C.size_t(align)))
}

func (cgoAllocator) AllocZeroed(size, align uintptr) alloc.Address {
	return alloc.Address(C.rawalloc_calloc(C.size_t(size), C.size_t(align)))
}

func (cgoAllocator) Realloc(addr alloc.Address, oldSize, newSize, align uintptr) alloc.Address {
	p := C.rawalloc_realloc(unsafe.Pointer(uintptr(addr)), C.size_t(oldSize), C.size_t(newSize), C.size_t(align))
	return alloc.Address(p)
}

func (cgoAllocator) Free(addr alloc.Address, _, _ uintptr) {
	C.free(unsafe.Pointer(uintptr(addr)))
}
