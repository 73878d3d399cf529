// Package alloctest checks that an alloc.Allocator honors the interface
// contract: alignment, content preservation across resizes, zero fill,
// zero-size blocks, layout validation and, when the subject exposes it,
// exact usage accounting.
package alloctest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notfilippo/rawalloc/alloc"
)

// Subject is an allocator under test.
type Subject struct {
	Allocator alloc.Allocator
	// InUse returns the bytes the allocator accounts as live. Nil skips
	// accounting checks.
	InUse func() int64
}

// Factory builds a fresh subject for every sub-test. It should register
// leak checks with t.Cleanup.
type Factory func(t *testing.T) Subject

// Layouts is the grid of valid layouts every check walks.
var Layouts = []alloc.Layout{
	{Size: 0, Align: 1},
	{Size: 0, Align: 64},
	{Size: 1, Align: 1},
	{Size: 7, Align: 8},
	{Size: 64, Align: 8},
	{Size: 100, Align: 16},
	{Size: 4096, Align: 64},
	{Size: 5000, Align: 4096},
	{Size: 3, Align: 1 << 16},
}

type resize struct {
	from, to alloc.Layout
}

var grows = []resize{
	{alloc.Layout{Size: 0, Align: 8}, alloc.Layout{Size: 16, Align: 8}},
	{alloc.Layout{Size: 1, Align: 1}, alloc.Layout{Size: 2, Align: 1}},
	{alloc.Layout{Size: 64, Align: 8}, alloc.Layout{Size: 128, Align: 8}},
	{alloc.Layout{Size: 60, Align: 8}, alloc.Layout{Size: 64, Align: 8}},
	{alloc.Layout{Size: 100, Align: 8}, alloc.Layout{Size: 10000, Align: 8}},
	{alloc.Layout{Size: 32, Align: 8}, alloc.Layout{Size: 32, Align: 256}},
	{alloc.Layout{Size: 5000, Align: 4096}, alloc.Layout{Size: 9000, Align: 16}},
}

var shrinks = []resize{
	{alloc.Layout{Size: 128, Align: 8}, alloc.Layout{Size: 32, Align: 8}},
	{alloc.Layout{Size: 64, Align: 8}, alloc.Layout{Size: 60, Align: 8}},
	{alloc.Layout{Size: 10000, Align: 8}, alloc.Layout{Size: 100, Align: 8}},
	{alloc.Layout{Size: 64, Align: 8}, alloc.Layout{Size: 0, Align: 8}},
	{alloc.Layout{Size: 9000, Align: 16}, alloc.Layout{Size: 5000, Align: 4096}},
}

// Run executes every check against subjects built by newSubject.
func Run(t *testing.T, newSubject Factory) {
	t.Run("AllocateDeallocate", func(t *testing.T) { testAllocateDeallocate(t, newSubject(t)) })
	t.Run("AllocateZeroed", func(t *testing.T) { testAllocateZeroed(t, newSubject(t)) })
	t.Run("Grow", func(t *testing.T) { testGrow(t, newSubject(t), false) })
	t.Run("GrowZeroed", func(t *testing.T) { testGrow(t, newSubject(t), true) })
	t.Run("Shrink", func(t *testing.T) { testShrink(t, newSubject(t)) })
	t.Run("ZeroSize", func(t *testing.T) { testZeroSize(t, newSubject(t)) })
	t.Run("InvalidAlignment", func(t *testing.T) { testInvalidAlignment(t, newSubject(t)) })
	t.Run("ResizeDirection", func(t *testing.T) { testResizeDirection(t, newSubject(t)) })
}

func testAllocateDeallocate(t *testing.T, s Subject) {
	for _, l := range Layouts {
		before := inUse(s)

		b, err := s.Allocator.Allocate(l)
		require.NoError(t, err, "allocate %v", l)
		requireBlock(t, b, l)
		if s.InUse != nil && l.Size > 0 {
			assert.Greater(t, s.InUse(), before, "allocate %v must be accounted", l)
		}
		Fill(b.Bytes()[:l.Size], 0xa5)

		s.Allocator.Deallocate(b, l)
		assert.Equal(t, before, inUse(s), "allocate+deallocate %v", l)
	}
}

func testAllocateZeroed(t *testing.T, s Subject) {
	for _, l := range Layouts {
		// dirty memory first so a reused region would show through.
		dirty, err := s.Allocator.Allocate(l)
		require.NoError(t, err)
		Fill(dirty.Bytes(), 0xff)
		s.Allocator.Deallocate(dirty, l)

		b, err := s.Allocator.AllocateZeroed(l)
		require.NoError(t, err, "allocate zeroed %v", l)
		requireBlock(t, b, l)
		assert.True(t, IsZero(b.Bytes()[:l.Size]), "allocate zeroed %v", l)
		s.Allocator.Deallocate(b, l)
	}
	assert.Zero(t, inUse(s))
}

func testGrow(t *testing.T, s Subject, zeroed bool) {
	for _, r := range grows {
		b, err := s.Allocator.Allocate(r.from)
		require.NoError(t, err)
		Pattern(b.Bytes()[:r.from.Size])
		if b.Size > r.from.Size {
			// garbage past the requested size must not leak into a
			// zeroed tail.
			Fill(b.Bytes()[r.from.Size:], 0xee)
		}

		var nb alloc.Block
		if zeroed {
			nb, err = s.Allocator.GrowZeroed(b, r.from, r.to)
		} else {
			nb, err = s.Allocator.Grow(b, r.from, r.to)
		}
		require.NoError(t, err, "grow %v -> %v", r.from, r.to)
		requireBlock(t, nb, r.to)

		p := nb.Bytes()
		assert.True(t, HasPattern(p[:r.from.Size]), "grow %v -> %v lost the prefix", r.from, r.to)
		if zeroed {
			assert.True(t, IsZero(p[r.from.Size:r.to.Size]), "grow zeroed %v -> %v tail", r.from, r.to)
		}
		s.Allocator.Deallocate(nb, r.to)
	}
	assert.Zero(t, inUse(s))
}

func testShrink(t *testing.T, s Subject) {
	for _, r := range shrinks {
		b, err := s.Allocator.Allocate(r.from)
		require.NoError(t, err)
		Pattern(b.Bytes()[:r.from.Size])

		nb, err := s.Allocator.Shrink(b, r.from, r.to)
		require.NoError(t, err, "shrink %v -> %v", r.from, r.to)
		requireBlock(t, nb, r.to)
		assert.True(t, HasPattern(nb.Bytes()[:r.to.Size]), "shrink %v -> %v lost the prefix", r.from, r.to)
		s.Allocator.Deallocate(nb, r.to)
	}
	assert.Zero(t, inUse(s))
}

func testZeroSize(t *testing.T, s Subject) {
	l := alloc.Layout{Size: 0, Align: 1}
	b, err := s.Allocator.Allocate(l)
	require.NoError(t, err)
	assert.NotZero(t, b.Addr)
	assert.Nil(t, b.Bytes())
	assert.Zero(t, inUse(s))
	s.Allocator.Deallocate(b, l)
	assert.Zero(t, inUse(s))

	z, err := s.Allocator.AllocateZeroed(alloc.Layout{Size: 0, Align: 32})
	require.NoError(t, err)
	assert.Zero(t, uintptr(z.Addr)%32)

	grown, err := s.Allocator.GrowZeroed(z, alloc.Layout{Size: 0, Align: 32}, alloc.Layout{Size: 48, Align: 32})
	require.NoError(t, err)
	assert.True(t, IsZero(grown.Bytes()[:48]))

	empty, err := s.Allocator.Shrink(grown, alloc.Layout{Size: 48, Align: 32}, alloc.Layout{Size: 0, Align: 32})
	require.NoError(t, err)
	assert.Zero(t, inUse(s))
	s.Allocator.Deallocate(empty, alloc.Layout{Size: 0, Align: 32})
	assert.Zero(t, inUse(s))
}

func testInvalidAlignment(t *testing.T, s Subject) {
	valid := alloc.Layout{Size: 16, Align: 8}
	b, err := s.Allocator.Allocate(valid)
	require.NoError(t, err)
	before := inUse(s)

	for _, align := range []uintptr{0, 3, 6, 12, 24, 100} {
		bad := alloc.Layout{Size: 32, Align: align}

		_, err := s.Allocator.Allocate(bad)
		assert.ErrorIs(t, err, alloc.ErrInvalidLayout, "allocate align %d", align)
		_, err = s.Allocator.AllocateZeroed(bad)
		assert.ErrorIs(t, err, alloc.ErrInvalidLayout, "allocate zeroed align %d", align)
		_, err = s.Allocator.Grow(b, valid, bad)
		assert.ErrorIs(t, err, alloc.ErrInvalidLayout, "grow align %d", align)
		_, err = s.Allocator.GrowZeroed(b, valid, bad)
		assert.ErrorIs(t, err, alloc.ErrInvalidLayout, "grow zeroed align %d", align)
		_, err = s.Allocator.Shrink(b, valid, alloc.Layout{Size: 8, Align: align})
		assert.ErrorIs(t, err, alloc.ErrInvalidLayout, "shrink align %d", align)

		assert.Equal(t, before, inUse(s))
	}
	s.Allocator.Deallocate(b, valid)
}

func testResizeDirection(t *testing.T, s Subject) {
	l := alloc.Layout{Size: 64, Align: 8}
	b, err := s.Allocator.Allocate(l)
	require.NoError(t, err)
	Pattern(b.Bytes())
	before := inUse(s)

	_, err = s.Allocator.Grow(b, l, alloc.Layout{Size: 32, Align: 8})
	assert.ErrorIs(t, err, alloc.ErrInvalidLayout)
	_, err = s.Allocator.Shrink(b, l, alloc.Layout{Size: 128, Align: 8})
	assert.ErrorIs(t, err, alloc.ErrInvalidLayout)

	assert.Equal(t, before, inUse(s))
	assert.True(t, HasPattern(b.Bytes()))
	s.Allocator.Deallocate(b, l)
}

func requireBlock(t *testing.T, b alloc.Block, l alloc.Layout) {
	t.Helper()
	require.NotZero(t, b.Addr, "block for %v", l)
	require.GreaterOrEqual(t, b.Size, l.Size, "block for %v", l)
	require.Zero(t, uintptr(b.Addr)&(l.Align-1), "block %#x not aligned to %d", uintptr(b.Addr), l.Align)
}

func inUse(s Subject) int64 {
	if s.InUse == nil {
		return 0
	}
	return s.InUse()
}
