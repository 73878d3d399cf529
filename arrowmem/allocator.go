package arrowmem

import (
	"unsafe"

	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/notfilippo/rawalloc/alloc"
)

// alignment matches Arrow's own buffers.
const alignment = 64

var _ memory.Allocator = (*Allocator)(nil)

// Allocator is a memory.Allocator that draws from an alloc.Allocator.
// Memory handed to Arrow is always zeroed, new tails included, as Arrow's
// builders expect. Allocation failures panic since memory.Allocator has
// no error return.
type Allocator struct {
	inner alloc.Allocator
}

func New(inner alloc.Allocator) *Allocator {
	return &Allocator{inner: inner}
}

func (a *Allocator) Allocate(size int) []byte {
	if size == 0 {
		return []byte{}
	}
	blk, err := a.inner.AllocateZeroed(layoutOf(size))
	if err != nil {
		panic(err)
	}
	return blk.Bytes()[:size:size]
}

func (a *Allocator) Reallocate(size int, b []byte) []byte {
	switch {
	case len(b) == 0:
		return a.Allocate(size)
	case size == 0:
		a.Free(b)
		return []byte{}
	case size == len(b):
		return b
	}

	var (
		oldLayout = layoutOf(len(b))
		newLayout = layoutOf(size)
		blk       alloc.Block
		err       error
	)
	if size > len(b) {
		blk, err = a.inner.GrowZeroed(blockOf(b), oldLayout, newLayout)
	} else {
		blk, err = a.inner.Shrink(blockOf(b), oldLayout, newLayout)
	}
	if err != nil {
		panic(err)
	}
	return blk.Bytes()[:size:size]
}

func (a *Allocator) Free(b []byte) {
	if len(b) == 0 {
		return
	}
	a.inner.Deallocate(blockOf(b), layoutOf(len(b)))
}

func layoutOf(size int) alloc.Layout {
	return alloc.Layout{Size: uintptr(size), Align: alignment}
}

func blockOf(b []byte) alloc.Block {
	l := layoutOf(len(b))
	return alloc.Block{
		Addr: alloc.Address(unsafe.Pointer(unsafe.SliceData(b))),
		Size: l.PaddedSize(),
	}
}
