package alloc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLayoutRejectsBadAlignment(t *testing.T) {
	sizes := []uintptr{0, 1, 8, 4096, math.MaxInt}
	for _, size := range sizes {
		for _, align := range []uintptr{0, 3, 5, 6, 7, 12, 48, 1<<20 + 1} {
			_, err := NewLayout(size, align)
			assert.ErrorIs(t, err, ErrInvalidLayout, "size %d align %d", size, align)
			assert.Equal(t, InvalidLayout, KindOf(err))
		}
	}
}

func TestNewLayoutRejectsOverflow(t *testing.T) {
	_, err := NewLayout(math.MaxInt, 1)
	require.NoError(t, err)

	_, err = NewLayout(math.MaxInt, 8)
	assert.ErrorIs(t, err, ErrInvalidLayout)

	_, err = NewLayout(math.MaxInt-6, 8)
	assert.ErrorIs(t, err, ErrInvalidLayout)

	l, err := NewLayout(math.MaxInt-7, 8)
	require.NoError(t, err)
	assert.EqualValues(t, uintptr(math.MaxInt-7), l.PaddedSize())

	_, err = NewLayout(^uintptr(0), 1)
	assert.ErrorIs(t, err, ErrInvalidLayout)
}

func TestPaddedSize(t *testing.T) {
	testCases := []struct {
		size, align, padded uintptr
	}{
		{0, 1, 0},
		{0, 64, 0},
		{1, 1, 1},
		{1, 8, 8},
		{7, 8, 8},
		{8, 8, 8},
		{9, 8, 16},
		{100, 64, 128},
		{5000, 4096, 8192},
	}
	for _, tc := range testCases {
		l := MustLayout(tc.size, tc.align)
		assert.Equal(t, tc.padded, l.PaddedSize(), "%v", l)
	}
}

func TestLayoutEqualityAndOrder(t *testing.T) {
	a := MustLayout(64, 8)
	assert.Equal(t, a, Layout{Size: 64, Align: 8})
	assert.NotEqual(t, a, MustLayout(64, 16))

	assert.True(t, MustLayout(32, 64).Less(a))
	assert.True(t, a.Less(MustLayout(64, 16)))
	assert.False(t, a.Less(a))
	assert.Equal(t, "{64,8}", a.String())
}

func TestMustLayoutPanics(t *testing.T) {
	assert.Panics(t, func() { MustLayout(1, 0) })
}

func TestDangling(t *testing.T) {
	b := Dangling(MustLayout(0, 256))
	assert.EqualValues(t, 256, b.Addr)
	assert.True(t, b.IsZero())
	assert.Nil(t, b.Bytes())
}
