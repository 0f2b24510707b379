package engine

import (
	"math"

	"go.uber.org/zap"

	"github.com/rustyeddy/taengine/ident"
	"github.com/rustyeddy/taengine/memo"
	"github.com/rustyeddy/taengine/series"
)

// StepFunc computes the value for the current bar from the series' own
// previous value. It may read any number of current-bar inputs through its
// closure.
type StepFunc func(prev float64) float64

type bufferConfig struct {
	nan   float64
	depth int
}

type BufferOption func(*bufferConfig)

// NaNAs sets the value substituted when the step returns NaN. Default 0.
func NaNAs(v float64) BufferOption {
	return func(c *bufferConfig) { c.nan = v }
}

// Depth asks the produced series to retain at least n values.
func Depth(n int) BufferOption {
	return func(c *bufferConfig) { c.depth = n }
}

// Buffered returns the series identified by key, advanced to the current
// bar.
//
// On first use the series is created and seeded with seed. On each later
// bar the step runs exactly once with the previous output; any further
// reads in the same bar return the memoized value. A NaN result is
// replaced before it is stored so it cannot poison the recurrence.
func Buffered(sc Scope, key ident.Key, seed float64, step StepFunc, opts ...BufferOption) *series.Series[float64] {
	return buffered(sc, key, func() float64 { return seed }, step, opts)
}

// Lambda is a buffered series whose value does not depend on its own past.
// It is seeded with fn's first value, which is also the output of the bar
// that creates it, so fn runs exactly once per bar.
func Lambda(sc Scope, key ident.Key, fn func() float64, opts ...BufferOption) *series.Series[float64] {
	var (
		first  float64
		seeded bool
	)
	seed := func() float64 {
		first, seeded = fn(), true
		return first
	}
	step := func(float64) float64 {
		if seeded {
			seeded = false
			return first
		}
		return fn()
	}
	return buffered(sc, key, seed, step, opts)
}

func buffered(sc Scope, key ident.Key, seed func() float64, step StepFunc, opts []BufferOption) *series.Series[float64] {
	r := sc.run
	cfg := bufferConfig{depth: r.depth}
	for _, o := range opts {
		o(&cfg)
	}

	if !r.Started() {
		r.Fail(ErrNotStarted)
		return detached(key, cfg.depth, seed())
	}

	buf, created, err := memo.GetOrCreate(r.store, key, func() (*memo.Buffer, error) {
		return memo.NewBuffer(key, cfg.depth, seed()), nil
	})
	if err != nil {
		r.Fail(err)
		return detached(key, cfg.depth, seed())
	}
	if created {
		r.log.Debug("buffer created", zap.Stringer("key", key), zap.Int("bar", r.bar))
	}
	buf.Series.Reserve(cfg.depth)

	due, err := r.store.Check(&buf.Stamp, r.bar)
	if err != nil {
		r.Fail(err)
		return buf.Series
	}
	if !due {
		return buf.Series
	}

	buf.Begin()
	defer buf.Abort()
	v := step(buf.Series.Current())
	if math.IsNaN(v) {
		r.log.Debug("step returned NaN", zap.Stringer("key", key), zap.Int("bar", r.bar))
		v = cfg.nan
	}
	buf.Series.Append(v)
	r.store.Commit(&buf.Stamp, r.bar)
	return buf.Series
}

// detached builds a throwaway series so callers still get a value after
// the run has failed. The driver aborts on Run.Err before it is used.
func detached(key ident.Key, depth int, v float64) *series.Series[float64] {
	s := series.New[float64](key, depth)
	s.Append(v)
	return s
}

// Functor is a stateful, possibly multi-output indicator. Advance performs
// one bar's update of every output together.
type Functor interface {
	Advance()
}

// Stateful returns the functor identified by key, advanced to the current
// bar. factory runs once, on first use.
func Stateful[F Functor](sc Scope, key ident.Key, factory func() F) F {
	r := sc.run
	if !r.Started() {
		r.Fail(ErrNotStarted)
		f := factory()
		f.Advance()
		return f
	}

	cell, created, err := memo.GetOrCreate(r.store, key, func() (*memo.Cell[F], error) {
		return memo.NewCell(factory()), nil
	})
	if err != nil {
		r.Fail(err)
		f := factory()
		f.Advance()
		return f
	}
	if created {
		r.log.Debug("functor created", zap.Stringer("key", key), zap.Int("bar", r.bar))
	}

	due, err := r.store.Check(&cell.Stamp, r.bar)
	if err != nil {
		r.Fail(err)
		return cell.F
	}
	if due {
		cell.Begin()
		defer cell.Abort()
		cell.F.Advance()
		r.store.Commit(&cell.Stamp, r.bar)
	}
	return cell.F
}
