//go:build linux || darwin || freebsd

package mem

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	errors []string
}

func (r *recorder) Errorf(format string, args ...any) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func TestLeakCheckTracksBlocks(t *testing.T) {
	lc := NewLeakCheckAllocator(NewMmapAllocator())

	a := lc.Alloc(100, 8)
	b := lc.Alloc(200, 8)
	require.NotZero(t, a)
	require.NotZero(t, b)
	assert.Equal(t, 2, lc.Live())
	assert.EqualValues(t, 300, lc.InUse())

	a = lc.Realloc(a, 100, 5000, 8)
	require.NotZero(t, a)
	assert.EqualValues(t, 5200, lc.InUse())

	var r recorder
	CheckAllocatorLeaks(&r, lc, true)
	require.NotEmpty(t, r.errors)
	assert.Contains(t, r.errors[0], "detected 2 leaks (5200 bytes)")

	lc.Free(a, 5000, 8)
	lc.Free(b, 200, 8)

	r = recorder{}
	CheckAllocatorLeaks(&r, lc, true)
	assert.Empty(t, r.errors)
	assert.EqualValues(t, 2, lc.Allocations())
	assert.EqualValues(t, 1, lc.Reallocations())
	assert.EqualValues(t, 2, lc.Frees())
}

func TestLeakCheckRejectsMisuse(t *testing.T) {
	lc := NewLeakCheckAllocator(NewMmapAllocator())

	assert.PanicsWithValue(t, "freeing unknown memory 0x1000", func() { lc.Free(0x1000, 8, 8) })

	a := lc.Alloc(64, 8)
	assert.PanicsWithValue(t,
		fmt.Sprintf("reallocating %#x with size 32, allocated with 64", uintptr(a)),
		func() { lc.Realloc(a, 32, 128, 8) })

	lc.Free(a, 64, 8)
	assert.Zero(t, lc.Live())
}

func TestLeakCheckKeepsClaimOnFailedRealloc(t *testing.T) {
	faulty := NewFaultyAllocator(NewMmapAllocator())
	lc := NewLeakCheckAllocator(faulty)

	a := lc.Alloc(64, 8)
	faulty.FailNext(1)
	assert.Zero(t, lc.Realloc(a, 64, 1<<20, 8))
	assert.EqualValues(t, 64, lc.InUse())

	lc.Free(a, 64, 8)
	CheckAllocatorLeaks(t, lc, true)
}
