package alloc

import "unsafe"

// Address is an opaque handle to raw memory. Backends that talk to a raw
// primitive are the only code that turns it into a pointer.
type Address uintptr

// Block is a live region returned by an Allocator. Size is the usable
// byte count and may exceed the requested size.
type Block struct {
	Addr Address
	Size uintptr
}

// Dangling returns the zero-size block for l. Its address is non-zero and
// aligned but must never be dereferenced.
func Dangling(l Layout) Block {
	return Block{Addr: Address(l.Align)}
}

// IsZero reports whether b has no usable bytes.
func (b Block) IsZero() bool { return b.Size == 0 }

// Bytes views the block as a byte slice. Only valid for memory mapped in
// this process; returns nil for zero-size blocks.
func (b Block) Bytes() []byte {
	if b.Size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(b.Addr)), b.Size)
}
