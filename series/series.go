// Package series provides the lagged, bounded history every indicator
// reads from and writes to.
//
// A Series is appended to by exactly one producer, once per bar. Readers
// address values by lag: lag 0 is the latest append, lag 1 the one before,
// and so on. Storage is a power-of-two ring indexed by the append count, so
// appends never shift data.
package series

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/taengine/ident"
)

var (
	// ErrInsufficientHistory is returned when a lag reaches past the values
	// the series still holds.
	ErrInsufficientHistory = errors.New("insufficient history")

	ErrNegativeLag = errors.New("negative lag")
)

const (
	// MinDepth is the smallest ring a series is created with.
	MinDepth = 4
	// MaxDepth caps ring growth. Lags at or beyond it are never retained.
	MaxDepth = 1 << 20
)

// Series is a bounded, append-only history of T addressed by lag.
// Not safe for concurrent use.
type Series[T any] struct {
	key   ident.Key
	buf   []T
	mask  int
	n     int // values currently retained
	total int // values ever appended
}

// New creates an empty series able to hold at least depth values.
func New[T any](key ident.Key, depth int) *Series[T] {
	c := nextPow2(min(max(depth, MinDepth), MaxDepth))
	return &Series[T]{
		key:  key,
		buf:  make([]T, c),
		mask: c - 1,
	}
}

// Key returns the identity of the computation that produces this series.
func (s *Series[T]) Key() ident.Key { return s.key }

// Append pushes v as the new lag 0.
func (s *Series[T]) Append(v T) {
	s.buf[s.total&s.mask] = v
	s.total++
	if s.n < len(s.buf) {
		s.n++
	}
}

// Len returns the number of values that can currently be read.
func (s *Series[T]) Len() int { return s.n }

// Count returns the number of values ever appended.
func (s *Series[T]) Count() int { return s.total }

// Cap returns the current ring size.
func (s *Series[T]) Cap() int { return len(s.buf) }

// Reserve grows the ring so that at least depth values, up to MaxDepth,
// are retained from now on. Values already evicted are not recovered.
func (s *Series[T]) Reserve(depth int) {
	depth = min(depth, MaxDepth)
	if depth <= len(s.buf) {
		return
	}
	c := nextPow2(depth)
	buf := make([]T, c)
	for lag := 0; lag < s.n; lag++ {
		buf[(s.total-1-lag)&(c-1)] = s.buf[(s.total-1-lag)&s.mask]
	}
	s.buf = buf
	s.mask = c - 1
}

// At returns the value produced lag bars ago.
//
// A lag beyond the retained history returns ErrInsufficientHistory and
// grows the ring so the same request can be served once enough bars have
// been appended. A lag of MaxDepth or more can never be served.
func (s *Series[T]) At(lag int) (T, error) {
	var zero T
	if lag < 0 {
		return zero, fmt.Errorf("series %s: lag %d: %w", s.key, lag, ErrNegativeLag)
	}
	if lag >= s.n {
		if lag < MaxDepth {
			s.Reserve(lag + 1)
		}
		return zero, fmt.Errorf("series %s: lag %d with %d values: %w",
			s.key, lag, s.n, ErrInsufficientHistory)
	}
	return s.buf[(s.total-1-lag)&s.mask], nil
}

// Lookup is the typed result of a lag read.
type Lookup[T any] struct {
	Value T
	Ready bool
}

// Or returns the looked-up value, or fallback when it was not available.
func (l Lookup[T]) Or(fallback T) T {
	if l.Ready {
		return l.Value
	}
	return fallback
}

// Lookup reads lag without producing an error value. Formulas that have a
// documented fallback use this instead of At.
func (s *Series[T]) Lookup(lag int) Lookup[T] {
	v, err := s.At(lag)
	if err != nil {
		return Lookup[T]{}
	}
	return Lookup[T]{Value: v, Ready: true}
}

// Or returns the value lag bars ago, or fallback if there is none.
func (s *Series[T]) Or(lag int, fallback T) T {
	return s.Lookup(lag).Or(fallback)
}

// Current returns lag 0, or the zero value before the first append.
func (s *Series[T]) Current() T {
	var zero T
	return s.Or(0, zero)
}

// Oldest returns the oldest retained value at or below lag, which is lag
// itself when enough history exists.
func (s *Series[T]) Oldest(lag int) T {
	if s.n == 0 {
		var zero T
		return zero
	}
	if lag >= s.n {
		s.Reserve(lag + 1)
		lag = s.n - 1
	}
	return s.buf[(s.total-1-lag)&s.mask]
}

// Last returns up to n retained values, oldest first.
func (s *Series[T]) Last(n int) []T {
	if n > s.n {
		s.Reserve(n)
		n = s.n
	}
	if n <= 0 {
		return nil
	}
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[n-1-i] = s.buf[(s.total-1-i)&s.mask]
	}
	return out
}

func nextPow2(n int) int {
	c := 1
	for c < n {
		c <<= 1
	}
	return c
}
