package container

import (
	"math"
	"unsafe"

	"github.com/notfilippo/rawalloc/alloc"
)

const minBufferCap = 8

var _ alloc.MemoryConsumption = (*Buffer)(nil)

// Buffer is a growable byte vector whose storage comes from an
// alloc.Allocator. A failed growth leaves the contents untouched and
// returns the allocator's error. Release must be called once the buffer
// is no longer needed.
type Buffer struct {
	a      alloc.Allocator
	layout alloc.Layout
	block  alloc.Block
	n      int
}

// NewBuffer returns an empty buffer whose storage is aligned to align.
func NewBuffer(a alloc.Allocator, align uintptr) (*Buffer, error) {
	layout, err := alloc.NewLayout(0, align)
	if err != nil {
		return nil, err
	}
	return &Buffer{a: a, layout: layout, block: alloc.Dangling(layout)}, nil
}

// Len returns the number of bytes stored.
func (b *Buffer) Len() int { return b.n }

// Cap returns the bytes the buffer can hold without growing.
func (b *Buffer) Cap() int { return int(b.layout.Size) }

// Bytes returns the stored bytes. The slice is invalidated by the next
// call that changes the capacity.
func (b *Buffer) Bytes() []byte {
	if b.n == 0 {
		return nil
	}
	return b.block.Bytes()[:b.n]
}

// Reserve makes room for at least n more bytes. A negative n, or one
// that would overflow the length, fails with AllocationTooLarge.
func (b *Buffer) Reserve(n int) error {
	if n < 0 || n > math.MaxInt-b.n {
		return &alloc.Error{Kind: alloc.AllocationTooLarge, Op: "reserve", Layout: b.layout, Limit: uintptr(math.MaxInt - b.n)}
	}
	need := b.n + n
	if need <= b.Cap() {
		return nil
	}
	newCap := max(need, minBufferCap)
	if b.Cap() <= math.MaxInt/2 {
		newCap = max(newCap, 2*b.Cap())
	}
	return b.resize(uintptr(newCap))
}

// Append copies p to the end of the buffer.
func (b *Buffer) Append(p ...byte) error {
	if err := b.Reserve(len(p)); err != nil {
		return err
	}
	copy(b.block.Bytes()[b.n:], p)
	b.n += len(p)
	return nil
}

// Truncate keeps the first n bytes. Capacity is kept.
func (b *Buffer) Truncate(n int) {
	if n < b.n {
		b.n = max(n, 0)
	}
}

// ShrinkToFit gives unused capacity back to the allocator.
func (b *Buffer) ShrinkToFit() error {
	if b.Cap() == b.n {
		return nil
	}
	return b.resize(uintptr(b.n))
}

// Release returns the storage to the allocator and empties the buffer.
func (b *Buffer) Release() {
	b.a.Deallocate(b.block, b.layout)
	b.layout.Size = 0
	b.block = alloc.Dangling(b.layout)
	b.n = 0
}

// MemoryConsumption counts the buffer header and its usable storage.
func (b *Buffer) MemoryConsumption() uintptr {
	return unsafe.Sizeof(*b) + b.block.Size
}

func (b *Buffer) resize(size uintptr) error {
	layout, err := alloc.NewLayout(size, b.layout.Align)
	if err != nil {
		return err
	}
	var block alloc.Block
	if size >= b.layout.Size {
		block, err = b.a.Grow(b.block, b.layout, layout)
	} else {
		block, err = b.a.Shrink(b.block, b.layout, layout)
	}
	if err != nil {
		return err
	}
	b.block, b.layout = block, layout
	return nil
}
