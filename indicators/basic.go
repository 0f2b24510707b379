package indicators

import (
	"math"

	"github.com/rustyeddy/taengine/engine"
	"github.com/rustyeddy/taengine/ident"
)

// Const is a series holding v on every bar.
func Const(sc engine.Scope, v float64) *Series {
	return engine.Lambda(sc, sc.Key("Const", ident.Float(v)), func() float64 { return v })
}

// Delay returns src delayed by n bars. Until n bars exist it repeats the
// oldest value available.
func Delay(sc engine.Scope, src *Series, n int) *Series {
	if n < 0 {
		panic("Delay bars must be >= 0")
	}
	src.Reserve(n + 1)
	return engine.Lambda(sc, sc.Key("Delay", ident.Of(src), ident.Int(n)), func() float64 {
		return src.Oldest(n)
	})
}

// Highest is the maximum of the last n values of src, or of those
// available while fewer than n exist.
func Highest(sc engine.Scope, src *Series, n int) *Series {
	mustPeriod("Highest", n)
	src.Reserve(n)
	return engine.Lambda(sc, sc.Key("Highest", ident.Of(src), ident.Int(n)), func() float64 {
		hi := math.Inf(-1)
		for k := 0; k < window(src, n); k++ {
			hi = math.Max(hi, src.Or(k, hi))
		}
		if math.IsInf(hi, -1) {
			return math.NaN()
		}
		return hi
	})
}

// Lowest is the minimum of the last n values of src, or of those
// available while fewer than n exist.
func Lowest(sc engine.Scope, src *Series, n int) *Series {
	mustPeriod("Lowest", n)
	src.Reserve(n)
	return engine.Lambda(sc, sc.Key("Lowest", ident.Of(src), ident.Int(n)), func() float64 {
		lo := math.Inf(1)
		for k := 0; k < window(src, n); k++ {
			lo = math.Min(lo, src.Or(k, lo))
		}
		if math.IsInf(lo, 1) {
			return math.NaN()
		}
		return lo
	})
}

// Range is Highest - Lowest over the same window.
func Range(sc engine.Scope, src *Series, n int) *Series {
	key := sc.Key("Range", ident.Of(src), ident.Int(n))
	in := sc.Within(key)
	hi := Highest(in, src, n)
	lo := Lowest(in, src, n)
	return engine.Lambda(sc, key, func() float64 {
		return hi.Current() - lo.Current()
	})
}

// Return is the one-bar simple return of src. 0 on the first bar.
func Return(sc engine.Scope, src *Series) *Series {
	src.Reserve(2)
	return engine.Lambda(sc, sc.Key("Return", ident.Of(src)), func() float64 {
		prev := src.Lookup(1)
		if !prev.Ready {
			return 0
		}
		return div(src.Current(), prev.Value) - 1
	})
}

// LogReturn is ln(src[0]/src[1]). 0 on the first bar. Non-positive
// prices are floored at Epsilon.
func LogReturn(sc engine.Scope, src *Series) *Series {
	src.Reserve(2)
	return engine.Lambda(sc, sc.Key("LogReturn", ident.Of(src)), func() float64 {
		prev := src.Lookup(1)
		if !prev.Ready {
			return 0
		}
		return math.Log(math.Max(Epsilon, src.Current()) / math.Max(Epsilon, prev.Value))
	})
}

// Sub is a - b.
func Sub(sc engine.Scope, a, b *Series) *Series {
	return engine.Lambda(sc, sc.Key("Sub", ident.Of(a), ident.Of(b)), func() float64 {
		return a.Current() - b.Current()
	})
}
