package indicators

import (
	"math"

	"github.com/rustyeddy/taengine/engine"
	"github.com/rustyeddy/taengine/ident"
)

// SMA is the simple moving average of the last n values of src. While fewer
// than n values exist it averages those available.
//
// A series produced by another formula holds its seed ahead of its first
// bar's value, so during warm-up an SMA of a derived series counts the seed
// as one of the available values: over a derived copy of 1, 2, 3 it gives
// 1, 4/3, 2 where the raw input gives 1, 1.5, 2. The same padding applies to
// every window read over a derived series (the MACD signal, CCI's mean
// deviation, Stochastic %D).
func SMA(sc engine.Scope, src *Series, n int) *Series {
	mustPeriod("SMA", n)
	src.Reserve(n)
	key := sc.Key("SMA", ident.Of(src), ident.Int(n))
	return engine.Buffered(sc, key, src.Current(), func(float64) float64 {
		m := window(src, n)
		sum := 0.0
		for k := 0; k < m; k++ {
			sum += src.Or(k, 0)
		}
		return sum / float64(m)
	})
}

// EMA is the exponential moving average with alpha = 2/(n+1), seeded with
// the first value of src.
func EMA(sc engine.Scope, src *Series, n int) *Series {
	mustPeriod("EMA", n)
	alpha := 2.0 / float64(n+1)
	key := sc.Key("EMA", ident.Of(src), ident.Int(n))
	return engine.Buffered(sc, key, src.Current(), func(prev float64) float64 {
		return prev + alpha*(src.Current()-prev)
	})
}

// SMMA is Wilder's smoothed moving average, an EMA with alpha = 1/n.
func SMMA(sc engine.Scope, src *Series, n int) *Series {
	mustPeriod("SMMA", n)
	key := sc.Key("SMMA", ident.Of(src), ident.Int(n))
	return engine.Buffered(sc, key, src.Current(), func(prev float64) float64 {
		return prev + (src.Current()-prev)/float64(n)
	})
}

// WMA is the linearly weighted moving average, newest value weighted n.
func WMA(sc engine.Scope, src *Series, n int) *Series {
	mustPeriod("WMA", n)
	src.Reserve(n)
	key := sc.Key("WMA", ident.Of(src), ident.Int(n))
	return engine.Buffered(sc, key, src.Current(), func(float64) float64 {
		m := window(src, n)
		sum, weights := 0.0, 0.0
		for k := 0; k < m; k++ {
			w := float64(n - k)
			sum += w * src.Or(k, 0)
			weights += w
		}
		return sum / weights
	})
}

// DEMA is 2*EMA - EMA(EMA).
func DEMA(sc engine.Scope, src *Series, n int) *Series {
	key := sc.Key("DEMA", ident.Of(src), ident.Int(n))
	in := sc.Within(key)
	e1 := EMA(in, src, n)
	e2 := EMA(in, e1, n)
	return engine.Lambda(sc, key, func() float64 {
		return 2*e1.Current() - e2.Current()
	})
}

// TEMA is 3*EMA - 3*EMA(EMA) + EMA(EMA(EMA)).
func TEMA(sc engine.Scope, src *Series, n int) *Series {
	key := sc.Key("TEMA", ident.Of(src), ident.Int(n))
	in := sc.Within(key)
	e1 := EMA(in, src, n)
	e2 := EMA(in, e1, n)
	e3 := EMA(in, e2, n)
	return engine.Lambda(sc, key, func() float64 {
		return 3*e1.Current() - 3*e2.Current() + e3.Current()
	})
}

// HMA is the Hull moving average: WMA(2*WMA(n/2) - WMA(n), sqrt(n)).
func HMA(sc engine.Scope, src *Series, n int) *Series {
	mustPeriod("HMA", n)
	key := sc.Key("HMA", ident.Of(src), ident.Int(n))
	in := sc.Within(key)
	half := WMA(in, src, max(1, n/2))
	full := WMA(in, src, n)
	raw := engine.Lambda(in, in.Key("raw"), func() float64 {
		return 2*half.Current() - full.Current()
	})
	return WMA(in, raw, max(1, int(math.Round(math.Sqrt(float64(n))))))
}

// ZLEMA is the zero-lag EMA: an EMA of src + (src - src[(n-1)/2]).
func ZLEMA(sc engine.Scope, src *Series, n int) *Series {
	mustPeriod("ZLEMA", n)
	lag := (n - 1) / 2
	src.Reserve(lag + 1)
	key := sc.Key("ZLEMA", ident.Of(src), ident.Int(n))
	in := sc.Within(key)
	adjusted := engine.Lambda(in, in.Key("adjusted"), func() float64 {
		return 2*src.Current() - src.Oldest(lag)
	})
	return EMA(in, adjusted, n)
}

// KAMA is Kaufman's adaptive moving average. The smoothing constant moves
// between those of EMA(fast) and EMA(slow) with the efficiency ratio over
// erPeriod bars. Until erPeriod bars of history exist it returns the
// current input.
func KAMA(sc engine.Scope, src *Series, erPeriod, fast, slow int) *Series {
	mustPeriod("KAMA", erPeriod)
	mustPeriod("KAMA fast", fast)
	mustPeriod("KAMA slow", slow)
	src.Reserve(erPeriod + 1)

	fastSC := 2.0 / float64(fast+1)
	slowSC := 2.0 / float64(slow+1)
	key := sc.Key("KAMA", ident.Of(src), ident.Int(erPeriod), ident.Int(fast), ident.Int(slow))
	return engine.Buffered(sc, key, src.Current(), func(prev float64) float64 {
		cur := src.Current()
		past, err := src.At(erPeriod)
		if err != nil {
			return cur
		}
		volatility := 0.0
		for k := 0; k < erPeriod; k++ {
			volatility += math.Abs(src.Or(k, 0) - src.Or(k+1, 0))
		}
		er := div(math.Abs(cur-past), volatility)
		c := er*(fastSC-slowSC) + slowSC
		return prev + c*c*(cur-prev)
	})
}
