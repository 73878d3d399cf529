package container

import (
	"math"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notfilippo/rawalloc/accountant"
	"github.com/notfilippo/rawalloc/accounting"
	"github.com/notfilippo/rawalloc/alloc"
	"github.com/notfilippo/rawalloc/mem"
)

type fixture struct {
	backend *accounting.Backend
	faulty  *mem.FaultyAllocator
	counter *accountant.Counter
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{counter: new(accountant.Counter)}
	f.faulty = mem.NewFaultyAllocator(mem.NewMmapAllocator())
	lc := mem.NewLeakCheckAllocator(f.faulty)
	t.Cleanup(func() { mem.CheckAllocatorLeaks(t, lc, true) })

	var err error
	f.backend, err = accounting.NewFor(lc, f.counter)
	require.NoError(t, err)
	return f
}

func TestBufferAppend(t *testing.T) {
	f := newFixture(t)
	buf, err := NewBuffer(f.backend, 8)
	require.NoError(t, err)
	defer buf.Release()

	assert.Zero(t, buf.Len())
	assert.Nil(t, buf.Bytes())

	var want []byte
	for i := range 1000 {
		c := byte(i)
		require.NoError(t, buf.Append(c))
		want = append(want, c)
	}
	assert.Equal(t, want, buf.Bytes())
	assert.Equal(t, 1024, buf.Cap())
	assert.EqualValues(t, 1024, f.backend.BytesInUse())
	assert.Equal(t, unsafe.Sizeof(*buf)+1024, buf.MemoryConsumption())
}

func TestBufferShrinkToFit(t *testing.T) {
	f := newFixture(t)
	buf, err := NewBuffer(f.backend, 16)
	require.NoError(t, err)
	defer buf.Release()

	require.NoError(t, buf.Append([]byte("hello, raw memory")...))
	require.NoError(t, buf.Reserve(5000))
	assert.GreaterOrEqual(t, buf.Cap(), 5017)

	buf.Truncate(5)
	require.NoError(t, buf.ShrinkToFit())
	assert.Equal(t, 5, buf.Cap())
	assert.Equal(t, []byte("hello"), buf.Bytes())
	assert.EqualValues(t, 16, f.backend.BytesInUse())

	buf.Truncate(0)
	require.NoError(t, buf.ShrinkToFit())
	assert.Zero(t, f.backend.BytesInUse())
	require.NoError(t, buf.Append('x'))
	assert.Equal(t, []byte("x"), buf.Bytes())
}

func TestBufferGrowFailureKeepsContents(t *testing.T) {
	f := newFixture(t)
	buf, err := NewBuffer(f.backend, 8)
	require.NoError(t, err)
	defer buf.Release()

	require.NoError(t, buf.Append([]byte("keep me")...))
	used := f.backend.BytesInUse()

	f.faulty.FailNext(1)
	err = buf.Reserve(1 << 20)
	require.ErrorIs(t, err, alloc.ErrOutOfMemory)
	assert.Equal(t, []byte("keep me"), buf.Bytes())
	assert.Equal(t, used, f.backend.BytesInUse())

	require.NoError(t, buf.Reserve(1<<20))
	assert.Equal(t, []byte("keep me"), buf.Bytes())
}

func TestBufferReserveOverflow(t *testing.T) {
	f := newFixture(t)
	buf, err := NewBuffer(f.backend, 8)
	require.NoError(t, err)
	defer buf.Release()

	require.NoError(t, buf.Append(1, 2, 3))
	used := f.backend.BytesInUse()

	for _, n := range []int{math.MaxInt, math.MaxInt - 2, -1} {
		err := buf.Reserve(n)
		require.ErrorIs(t, err, alloc.ErrAllocationTooLarge, "reserve %d", n)
		assert.Equal(t, 8, buf.Cap())
		assert.Equal(t, []byte{1, 2, 3}, buf.Bytes())
		assert.Equal(t, used, f.backend.BytesInUse())
	}
	assert.Zero(t, f.faulty.Declined())
}

func TestNewBufferRejectsAlignment(t *testing.T) {
	f := newFixture(t)
	_, err := NewBuffer(f.backend, 3)
	assert.ErrorIs(t, err, alloc.ErrInvalidLayout)
}

func TestScopeReleasesOnClose(t *testing.T) {
	f := newFixture(t)

	func() {
		s := NewScope(f.backend)
		defer s.Close()

		a, err := s.Allocate(alloc.MustLayout(64, 8))
		require.NoError(t, err)
		_, err = s.AllocateZeroed(alloc.MustLayout(0, 8))
		require.NoError(t, err)
		_, err = s.AllocateZeroed(alloc.MustLayout(4096, 64))
		require.NoError(t, err)

		a, err = s.Grow(a, alloc.MustLayout(1000, 8))
		require.NoError(t, err)
		_, err = s.Shrink(a, alloc.MustLayout(10, 8))
		require.NoError(t, err)

		assert.Equal(t, 3, s.Len())
		assert.EqualValues(t, 16+4096, f.backend.BytesInUse())
	}()

	assert.Zero(t, f.backend.BytesInUse())
	assert.Zero(t, f.counter.Used())
}

func TestScopeFailedGrowKeepsBlock(t *testing.T) {
	f := newFixture(t)
	s := NewScope(f.backend)
	defer s.Close()

	a, err := s.Allocate(alloc.MustLayout(64, 8))
	require.NoError(t, err)

	f.faulty.FailNext(1)
	b, err := s.Grow(a, alloc.MustLayout(1<<20, 8))
	require.ErrorIs(t, err, alloc.ErrOutOfMemory)
	assert.Equal(t, a, b)

	s.Release(b)
	assert.Zero(t, s.Len())
	assert.Zero(t, f.backend.BytesInUse())

	assert.Panics(t, func() { s.Release(a) })
}
