// Package memo is the run-scoped memoization store behind the indicator
// engine. It maps identity keys to cached state and tracks, per entry, the
// last bar that state was computed for, which is what gives "exactly once
// per bar" evaluation no matter how many times an indicator is read.
//
// A Store is owned by one simulation run and is not safe for concurrent use.
// It takes no locks; a caller needing concurrency can wrap it.
package memo

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/taengine/ident"
	"github.com/rustyeddy/taengine/series"
)

var (
	// ErrKeyCollision means a key already addresses state of another type,
	// either two formulas sharing a key or a hash collision. Fatal.
	ErrKeyCollision = errors.New("key collision")

	// ErrOutOfOrderBar means a bar index was observed to regress. Fatal.
	ErrOutOfOrderBar = errors.New("out of order bar")

	// ErrReentrant means an entry was read from inside its own update.
	ErrReentrant = errors.New("reentrant evaluation")
)

// BeforeTime is the bar an entry is stamped with before its first compute.
const BeforeTime = -1

// Stats is a snapshot of store activity.
type Stats struct {
	Entries    int
	Hits       int
	Computes   int
	Collisions int
}

// Store holds every cache entry created during one run.
type Store struct {
	entries map[ident.Key]any
	stats   Stats
	metrics *Metrics
}

type Option func(*Store)

// WithMetrics mirrors store activity into prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{entries: make(map[ident.Key]any, 64)}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Len returns the number of registered entries.
func (s *Store) Len() int { return len(s.entries) }

func (s *Store) Stats() Stats {
	st := s.stats
	st.Entries = len(s.entries)
	return st
}

// Contains reports whether key has an entry.
func (s *Store) Contains(key ident.Key) bool {
	_, ok := s.entries[key]
	return ok
}

// GetOrCreate returns the state registered for key, or builds it with
// factory and registers it. created reports which happened.
//
// Registration happens only after factory returns successfully, so a factory
// that fails or panics leaves the store unchanged. It never evaluates
// indicator logic; that is the caller's job once it holds the state.
func GetOrCreate[T any](s *Store, key ident.Key, factory func() (T, error)) (v T, created bool, err error) {
	if e, ok := s.entries[key]; ok {
		v, ok = e.(T)
		if !ok {
			s.stats.Collisions++
			s.metrics.collision()
			return v, false, fmt.Errorf("memo: key %s holds %T, want %T: %w", key, e, v, ErrKeyCollision)
		}
		return v, false, nil
	}

	v, err = factory()
	if err != nil {
		return v, false, fmt.Errorf("memo: create %s: %w", key, err)
	}
	s.entries[key] = v
	s.metrics.entries(len(s.entries))
	return v, true, nil
}

// Stamp records the last bar an entry was computed for.
// The zero value is not valid; use NewStamp.
type Stamp struct {
	bar  int
	busy bool
}

func NewStamp() Stamp { return Stamp{bar: BeforeTime} }

// Bar returns the last computed bar, or BeforeTime.
func (st *Stamp) Bar() int { return st.bar }

// Check decides whether the entry behind st must be recomputed for bar.
// due is false on a memo hit. A bar older than the stamp is
// ErrOutOfOrderBar; a check while the entry is being computed is
// ErrReentrant.
func (s *Store) Check(st *Stamp, bar int) (due bool, err error) {
	if st.busy {
		return false, ErrReentrant
	}
	switch {
	case bar < st.bar:
		return false, fmt.Errorf("memo: bar %d after %d: %w", bar, st.bar, ErrOutOfOrderBar)
	case bar == st.bar:
		s.stats.Hits++
		s.metrics.hit()
		return false, nil
	}
	return true, nil
}

// Begin marks st as being computed.
func (st *Stamp) Begin() { st.busy = true }

// Commit marks st computed for bar and counts the compute.
func (s *Store) Commit(st *Stamp, bar int) {
	st.busy = false
	st.bar = bar
	s.stats.Computes++
	s.metrics.compute()
}

// Abort clears the busy flag without stamping. After Commit it does nothing.
func (st *Stamp) Abort() { st.busy = false }

// Buffer is the entry behind a scalar recurrence: its output series and the
// bar it was last computed for.
type Buffer struct {
	Stamp
	Series *series.Series[float64]
}

// NewBuffer creates a buffer whose series already holds seed.
func NewBuffer(key ident.Key, depth int, seed float64) *Buffer {
	s := series.New[float64](key, depth)
	s.Append(seed)
	return &Buffer{Stamp: NewStamp(), Series: s}
}

// Cell is the entry behind a stateful functor.
type Cell[F any] struct {
	Stamp
	F F
}

func NewCell[F any](f F) *Cell[F] {
	return &Cell[F]{Stamp: NewStamp(), F: f}
}
