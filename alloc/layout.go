package alloc

import (
	"fmt"
	"math"
	"math/bits"
)

// Layout describes a memory request: a byte size and a power-of-two
// alignment.
type Layout struct {
	Size  uintptr
	Align uintptr
}

// NewLayout validates size and align and returns the layout, or an
// InvalidLayout error.
func NewLayout(size, align uintptr) (Layout, error) {
	l := Layout{Size: size, Align: align}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// MustLayout is like NewLayout but panics on invalid input.
func MustLayout(size, align uintptr) Layout {
	l, err := NewLayout(size, align)
	if err != nil {
		panic(err)
	}
	return l
}

// Validate reports whether l satisfies the layout invariants. Layouts
// written as literals are checked here by every allocator operation.
func (l Layout) Validate() error {
	if l.Align == 0 || bits.OnesCount64(uint64(l.Align)) != 1 {
		return &Error{Kind: InvalidLayout, Op: "layout", Layout: l}
	}
	// size padded up to align must still be sliceable.
	if l.Size > uintptr(math.MaxInt)-(l.Align-1) {
		return &Error{Kind: InvalidLayout, Op: "layout", Layout: l}
	}
	return nil
}

// PaddedSize returns Size rounded up to the next multiple of Align.
func (l Layout) PaddedSize() uintptr {
	return (l.Size + l.Align - 1) &^ (l.Align - 1)
}

// Less orders layouts by size, then by alignment.
func (l Layout) Less(other Layout) bool {
	if l.Size != other.Size {
		return l.Size < other.Size
	}
	return l.Align < other.Align
}

func (l Layout) String() string {
	return fmt.Sprintf("{%d,%d}", l.Size, l.Align)
}
