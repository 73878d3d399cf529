package container

import "github.com/notfilippo/rawalloc/alloc"

// Scope owns blocks on behalf of a caller and deallocates whatever it
// still holds on Close, so a deferred Close releases memory on every exit
// path. It also remembers each block's layout, which the bare allocator
// interface leaves to the caller.
type Scope struct {
	a    alloc.Allocator
	held []held
}

type held struct {
	block  alloc.Block
	layout alloc.Layout
}

func NewScope(a alloc.Allocator) *Scope {
	return &Scope{a: a}
}

// Allocate allocates l and keeps the block until Release or Close.
func (s *Scope) Allocate(l alloc.Layout) (alloc.Block, error) {
	b, err := s.a.Allocate(l)
	if err != nil {
		return b, err
	}
	s.held = append(s.held, held{b, l})
	return b, nil
}

// AllocateZeroed is Allocate with zeroed memory.
func (s *Scope) AllocateZeroed(l alloc.Layout) (alloc.Block, error) {
	b, err := s.a.AllocateZeroed(l)
	if err != nil {
		return b, err
	}
	s.held = append(s.held, held{b, l})
	return b, nil
}

// Grow grows a held block to l. On failure the old block stays held.
func (s *Scope) Grow(b alloc.Block, l alloc.Layout) (alloc.Block, error) {
	i := s.find(b)
	nb, err := s.a.Grow(b, s.held[i].layout, l)
	if err != nil {
		return b, err
	}
	s.held[i] = held{nb, l}
	return nb, nil
}

// Shrink shrinks a held block to l. On failure the old block stays held.
func (s *Scope) Shrink(b alloc.Block, l alloc.Layout) (alloc.Block, error) {
	i := s.find(b)
	nb, err := s.a.Shrink(b, s.held[i].layout, l)
	if err != nil {
		return b, err
	}
	s.held[i] = held{nb, l}
	return nb, nil
}

// Release deallocates b before the scope closes.
func (s *Scope) Release(b alloc.Block) {
	i := s.find(b)
	h := s.held[i]
	s.held = append(s.held[:i], s.held[i+1:]...)
	s.a.Deallocate(h.block, h.layout)
}

// Len returns the number of blocks held.
func (s *Scope) Len() int { return len(s.held) }

// Close deallocates every held block, newest first. It is safe to call
// more than once.
func (s *Scope) Close() {
	for i := len(s.held) - 1; i >= 0; i-- {
		s.a.Deallocate(s.held[i].block, s.held[i].layout)
	}
	s.held = nil
}

func (s *Scope) find(b alloc.Block) int {
	for i := len(s.held) - 1; i >= 0; i-- {
		if s.held[i].block == b {
			return i
		}
	}
	panic("container: block not held by this scope")
}
