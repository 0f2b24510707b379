package series

import (
	"testing"

	"github.com/rustyeddy/taengine/ident"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndAt(t *testing.T) {
	s := New[float64](ident.Root, 4)

	for _, v := range []float64{1, 2, 3} {
		s.Append(v)
	}

	v, err := s.At(0)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	v, err = s.At(2)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 3, s.Count())
}

func TestInsufficientHistory(t *testing.T) {
	s := New[float64](ident.Root, 4)

	_, err := s.At(0)
	assert.ErrorIs(t, err, ErrInsufficientHistory)

	s.Append(10)
	_, err = s.At(1)
	assert.ErrorIs(t, err, ErrInsufficientHistory)

	_, err = s.At(-1)
	assert.ErrorIs(t, err, ErrNegativeLag)

	l := s.Lookup(1)
	assert.False(t, l.Ready)
	assert.Equal(t, 7.0, l.Or(7))
	assert.Equal(t, 7.0, s.Or(1, 7))
	assert.Equal(t, 10.0, s.Or(0, 7))
}

func TestRingWrapsAndEvicts(t *testing.T) {
	s := New[int](ident.Root, 4)
	require.Equal(t, 4, s.Cap())

	for i := 1; i <= 10; i++ {
		s.Append(i)
	}

	assert.Equal(t, 4, s.Len())
	assert.Equal(t, 10, s.Count())
	assert.Equal(t, 10, s.Current())
	assert.Equal(t, 7, s.Or(3, -1))

	// evicted
	_, err := s.At(4)
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestGrowOnDemand(t *testing.T) {
	s := New[int](ident.Root, 4)
	for i := 1; i <= 4; i++ {
		s.Append(i)
	}

	// lag 5 is past the ring; the read fails but the ring grows
	_, err := s.At(5)
	require.ErrorIs(t, err, ErrInsufficientHistory)
	assert.Equal(t, 8, s.Cap())

	// retained values survive the grow
	assert.Equal(t, []int{1, 2, 3, 4}, s.Last(4))

	s.Append(5)
	s.Append(6)
	v, err := s.At(5)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestReserveKeepsOrder(t *testing.T) {
	s := New[int](ident.Root, 4)
	for i := 1; i <= 6; i++ {
		s.Append(i)
	}
	s.Reserve(16)
	assert.Equal(t, 16, s.Cap())
	assert.Equal(t, []int{3, 4, 5, 6}, s.Last(10))

	for i := 7; i <= 12; i++ {
		s.Append(i)
	}
	assert.Equal(t, 10, s.Len())
	assert.Equal(t, []int{10, 11, 12}, s.Last(3))
}

func TestOldest(t *testing.T) {
	s := New[float64](ident.Root, 4)
	assert.Equal(t, 0.0, s.Oldest(3))

	s.Append(1)
	s.Append(2)
	assert.Equal(t, 1.0, s.Oldest(5))
	assert.Equal(t, 2.0, s.Oldest(0))
}

func TestKey(t *testing.T) {
	k := ident.Make(ident.Root, "close", ident.Str("SPY"))
	s := New[float64](k, 1)
	assert.Equal(t, k, s.Key())
	assert.Equal(t, MinDepth, s.Cap())
	assert.Nil(t, s.Last(0))
}

func TestGrowthIsCapped(t *testing.T) {
	s := New[float64](ident.Root, 4)
	s.Append(1)
	s.Append(2)

	_, err := s.At(1 << 50)
	require.ErrorIs(t, err, ErrInsufficientHistory)
	assert.Equal(t, 4, s.Cap(), "an unservable lag does not grow the ring")

	assert.Equal(t, 1.0, s.Oldest(1<<50))
	assert.Equal(t, []float64{1, 2}, s.Last(1<<50))
	assert.Equal(t, 7.0, s.Or(1<<40, 7))

	s.Reserve(1 << 40)
	assert.Equal(t, MaxDepth, s.Cap())
	assert.Equal(t, 2.0, s.Current())

	assert.Equal(t, MaxDepth, New[int](ident.Root, 1<<40).Cap())
}
