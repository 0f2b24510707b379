// Package indicators provides technical analysis formulas built on the
// engine's evaluation protocol.
//
// Every formula takes an engine.Scope first. Calling the same formula with
// the same inputs and parameters from the same scope returns the same,
// already advanced series; it is computed at most once per bar however many
// times it is read. Composite formulas evaluate their parts within their own
// key, so their internal state is never shared with a top-level call.
//
// Usage:
//
//	ema := indicators.EMA(sc, spy.Close, 20)
//	if ema.Current() > spy.Close.Current() { ... }
//
// Degenerate ratios never produce NaN or Inf: denominators are floored at
// Epsilon, and each formula documents its value on flat input.
package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/taengine/ident"
	"github.com/rustyeddy/taengine/series"
)

// Series is the float64 series every formula consumes and produces.
type Series = series.Series[float64]

// Epsilon floors denominators of ratios that may degenerate.
const Epsilon = 1e-10

// div returns num/den with |den| floored at Epsilon, keeping its sign.
func div(num, den float64) float64 {
	if math.Abs(den) < Epsilon {
		if den < 0 {
			den = -Epsilon
		} else {
			den = Epsilon
		}
	}
	return num / den
}

func mustPeriod(name string, n int) {
	if n <= 0 {
		panic(fmt.Sprintf("%s period must be > 0, got %d", name, n))
	}
}

// window returns how many of the last n values of src are available.
func window(src *Series, n int) int {
	return min(n, src.Len())
}

// newOutput creates a functor-owned output series keyed under the functor.
func newOutput(key ident.Key, name string, depth int) *Series {
	return series.New[float64](key.Child(ident.Site(name)), depth)
}
