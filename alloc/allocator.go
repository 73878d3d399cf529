package alloc

import "sync"

// Allocator is the capability set generic containers allocate through.
//
// Blocks are exclusively owned by the caller until passed back to
// Deallocate, or to Grow/Shrink that returned successfully. Callers must
// pass the layout the block was obtained with; a mismatch is misuse the
// allocator does not detect. On any returned error the old block, if any,
// stays valid and unchanged.
type Allocator interface {
	// Allocate returns uninitialized memory of at least l.Size bytes
	// aligned to l.Align. A zero size always succeeds with a dangling
	// block.
	Allocate(l Layout) (Block, error)

	// AllocateZeroed is Allocate with every byte reading zero.
	AllocateZeroed(l Layout) (Block, error)

	// Deallocate releases b, obtained with layout l.
	Deallocate(b Block, l Layout)

	// Grow extends b to newLayout, which must not be smaller than
	// oldLayout. Bytes [0, oldLayout.Size) are preserved, the tail is
	// uninitialized.
	Grow(b Block, oldLayout, newLayout Layout) (Block, error)

	// GrowZeroed is Grow with bytes [oldLayout.Size, newLayout.Size) zeroed.
	GrowZeroed(b Block, oldLayout, newLayout Layout) (Block, error)

	// Shrink reduces b to newLayout, which must not be larger than
	// oldLayout. Bytes [0, newLayout.Size) are preserved.
	Shrink(b Block, oldLayout, newLayout Layout) (Block, error)
}

// MemoryConsumption is implemented by containers that can report the
// bytes they hold, including their own header.
type MemoryConsumption interface {
	MemoryConsumption() uintptr
}

// Synchronized serializes every call to a through a mutex. Backends do
// no locking of their own; hosts calling from several goroutines wrap
// them with this. The mutex is not reentrant: code running inside a call,
// such as an accountant evicting on report, must reach the inner
// allocator directly.
func Synchronized(a Allocator) Allocator {
	if s, ok := a.(*synchronized); ok {
		return s
	}
	return &synchronized{inner: a}
}

type synchronized struct {
	mu    sync.Mutex
	inner Allocator
}

func (s *synchronized) Allocate(l Layout) (Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Allocate(l)
}

func (s *synchronized) AllocateZeroed(l Layout) (Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.AllocateZeroed(l)
}

func (s *synchronized) Deallocate(b Block, l Layout) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.Deallocate(b, l)
}

func (s *synchronized) Grow(b Block, oldLayout, newLayout Layout) (Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Grow(b, oldLayout, newLayout)
}

func (s *synchronized) GrowZeroed(b Block, oldLayout, newLayout Layout) (Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.GrowZeroed(b, oldLayout, newLayout)
}

func (s *synchronized) Shrink(b Block, oldLayout, newLayout Layout) (Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Shrink(b, oldLayout, newLayout)
}
