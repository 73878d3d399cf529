package arrowmem_test

import (
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notfilippo/rawalloc/accountant"
	"github.com/notfilippo/rawalloc/accounting"
	"github.com/notfilippo/rawalloc/alloc"
	"github.com/notfilippo/rawalloc/arrowmem"
	"github.com/notfilippo/rawalloc/mem"
	"github.com/notfilippo/rawalloc/testdata"
)

func newBackend(t *testing.T, opts ...accounting.Option) (*accounting.Backend, *accountant.Counter) {
	lc := mem.NewLeakCheckAllocator(mem.NewMmapAllocator())
	t.Cleanup(func() { mem.CheckAllocatorLeaks(t, lc, true) })

	counter := new(accountant.Counter)
	b, err := accounting.NewFor(lc, counter, opts...)
	require.NoError(t, err)
	return b, counter
}

func TestAllocateReallocateFree(t *testing.T) {
	backend, _ := newBackend(t)
	a := arrowmem.New(backend)

	buf := a.Allocate(100)
	require.Len(t, buf, 100)
	assert.EqualValues(t, 128, backend.BytesInUse())
	for i := range buf {
		assert.Zero(t, buf[i])
		buf[i] = byte(i)
	}

	buf = a.Reallocate(1000, buf)
	require.Len(t, buf, 1000)
	assert.EqualValues(t, 1024, backend.BytesInUse())
	for i := range 100 {
		assert.Equal(t, byte(i), buf[i])
	}
	for i := 100; i < 1000; i++ {
		assert.Zero(t, buf[i], "byte %d", i)
	}

	buf = a.Reallocate(10, buf)
	require.Len(t, buf, 10)
	assert.EqualValues(t, 64, backend.BytesInUse())
	assert.Equal(t, byte(9), buf[9])

	a.Free(buf)
	assert.Zero(t, backend.BytesInUse())
}

func TestZeroLength(t *testing.T) {
	backend, _ := newBackend(t)
	a := arrowmem.New(backend)

	buf := a.Allocate(0)
	assert.NotNil(t, buf)
	assert.Empty(t, buf)

	buf = a.Reallocate(64, buf)
	require.Len(t, buf, 64)
	assert.EqualValues(t, 64, backend.BytesInUse())

	buf = a.Reallocate(0, buf)
	assert.Empty(t, buf)
	assert.Zero(t, backend.BytesInUse())
	a.Free(buf)
}

func TestCeilingPanics(t *testing.T) {
	backend, _ := newBackend(t, accounting.WithMaxSingleAllocation(1024))
	a := arrowmem.New(backend)

	assert.PanicsWithError(t, "alloc: allocate zeroed {2048,64}: allocation too large (limit 1024)", func() {
		a.Allocate(2048)
	})
	assert.Zero(t, backend.BytesInUse())
}

func TestRecords(t *testing.T) {
	backend, counter := newBackend(t)
	checked := memory.NewCheckedAllocator(arrowmem.New(backend))
	defer checked.AssertSize(t, 0)

	var records []arrow.Record
	for i := range 10 {
		records = append(records, testdata.NewRecord(i, testdata.DefaultRecordSize, checked))
	}
	assert.Positive(t, backend.BytesInUse())
	assert.GreaterOrEqual(t, backend.BytesInUse(), int64(checked.CurrentAlloc()))

	rec := records[3]
	assert.EqualValues(t, testdata.DefaultRecordSize, rec.NumRows())
	ints := rec.Column(0).(*array.Int32)
	assert.Equal(t, int32(3), ints.Value(testdata.DefaultRecordSize-1))
	labels := rec.Column(2).(*array.String)
	assert.True(t, labels.IsNull(0))
	assert.Equal(t, "row", labels.Value(1))

	for _, r := range records {
		r.Release()
	}
	assert.Zero(t, backend.BytesInUse())
	assert.Zero(t, counter.Used())
}

func TestSynchronizedRecords(t *testing.T) {
	backend, _ := newBackend(t)
	a := arrowmem.New(alloc.Synchronized(backend))

	rec := testdata.NewRecord(1, 1000, a)
	assert.EqualValues(t, 1000, rec.NumRows())
	rec.Release()
	assert.Zero(t, backend.BytesInUse())
}
