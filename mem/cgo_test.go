//go:build cgo

package mem_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notfilippo/rawalloc/accountant"
	"github.com/notfilippo/rawalloc/accounting"
	"github.com/notfilippo/rawalloc/alloc"
	"github.com/notfilippo/rawalloc/alloc/alloctest"
	"github.com/notfilippo/rawalloc/mem"
)

func TestCGoConformance(t *testing.T) {
	alloctest.Run(t, func(t *testing.T) alloctest.Subject {
		lc := mem.NewLeakCheckAllocator(mem.CGoAllocator)
		t.Cleanup(func() { mem.CheckAllocatorLeaks(t, lc, true) })

		var counter accountant.Counter
		b, err := accounting.NewFor(lc, &counter)
		require.NoError(t, err)
		t.Cleanup(func() { assert.EqualValues(t, lc.InUse(), b.BytesInUse()) })
		return alloctest.Subject{Allocator: b, InUse: b.BytesInUse}
	})
}

func TestCGoCalloc(t *testing.T) {
	var counter accountant.Counter
	b, err := accounting.NewFor(mem.CGoAllocator, &counter)
	require.NoError(t, err)

	for _, l := range []alloc.Layout{{Size: 1000, Align: 8}, {Size: 1000, Align: 128}} {
		blk, err := b.AllocateZeroed(l)
		require.NoError(t, err)
		assert.Zero(t, uintptr(blk.Addr)%l.Align)
		assert.True(t, alloctest.IsZero(blk.Bytes()))
		b.Deallocate(blk, l)
	}
	assert.Zero(t, counter.Used())
}
