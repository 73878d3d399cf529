package mem

import (
	"sync/atomic"

	"github.com/notfilippo/rawalloc/accounting"
	"github.com/notfilippo/rawalloc/alloc"
)

var _ accounting.RawAllocator = (*FaultyAllocator)(nil)

// FaultyAllocator wraps a raw allocator and declines requests on demand,
// without ever reaching the inner allocator for a declined call.
type FaultyAllocator struct {
	inner accounting.RawAllocator

	failNext  atomic.Int64
	failAbove atomic.Uintptr
	declined  atomic.Uint64
}

func NewFaultyAllocator(inner accounting.RawAllocator) *FaultyAllocator {
	return &FaultyAllocator{inner: inner}
}

// FailNext declines the next n Alloc or Realloc calls.
func (f *FaultyAllocator) FailNext(n int) {
	f.failNext.Store(int64(n))
}

// FailAbove declines every Alloc or Realloc asking for more than size
// bytes. Zero disables it.
func (f *FaultyAllocator) FailAbove(size uintptr) {
	f.failAbove.Store(size)
}

// Declined returns how many calls were declined.
func (f *FaultyAllocator) Declined() uint64 {
	return f.declined.Load()
}

func (f *FaultyAllocator) Alloc(size, align uintptr) alloc.Address {
	if f.decline(size) {
		return 0
	}
	return f.inner.Alloc(size, align)
}

func (f *FaultyAllocator) Realloc(addr alloc.Address, oldSize, newSize, align uintptr) alloc.Address {
	if f.decline(newSize) {
		return 0
	}
	return f.inner.Realloc(addr, oldSize, newSize, align)
}

func (f *FaultyAllocator) Free(addr alloc.Address, size, align uintptr) {
	f.inner.Free(addr, size, align)
}

func (f *FaultyAllocator) decline(size uintptr) bool {
	if limit := f.failAbove.Load(); limit > 0 && size > limit {
		f.declined.Add(1)
		return true
	}
	for {
		n := f.failNext.Load()
		if n <= 0 {
			return false
		}
		if f.failNext.CompareAndSwap(n, n-1) {
			f.declined.Add(1)
			return true
		}
	}
}
