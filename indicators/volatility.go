package indicators

import (
	"math"

	"github.com/rustyeddy/taengine/engine"
	"github.com/rustyeddy/taengine/ident"
)

// StdDev is the population standard deviation of the last n values of src,
// or of those available while fewer than n exist.
func StdDev(sc engine.Scope, src *Series, n int) *Series {
	mustPeriod("StdDev", n)
	src.Reserve(n)
	return engine.Lambda(sc, sc.Key("StdDev", ident.Of(src), ident.Int(n)), func() float64 {
		m := window(src, n)
		if m == 0 {
			return 0
		}
		mean := 0.0
		for k := 0; k < m; k++ {
			mean += src.Or(k, 0)
		}
		mean /= float64(m)
		ss := 0.0
		for k := 0; k < m; k++ {
			d := src.Or(k, 0) - mean
			ss += d * d
		}
		return math.Sqrt(ss / float64(m))
	})
}

// BollingerResult holds bands k standard deviations around SMA(n).
type BollingerResult struct {
	sc  engine.Scope
	src *Series
	n   int
	k   float64

	middle, upper, lower, pctB *Series
}

func Bollinger(sc engine.Scope, src *Series, n int, k float64) *BollingerResult {
	mustPeriod("Bollinger", n)
	key := sc.Key("Bollinger", ident.Of(src), ident.Int(n), ident.Float(k))
	return engine.Stateful(sc, key, func() *BollingerResult {
		return &BollingerResult{sc: sc.Within(key), src: src, n: n, k: k}
	})
}

func (b *BollingerResult) Advance() {
	mid := SMA(b.sc, b.src, b.n)
	sd := StdDev(b.sc, b.src, b.n)
	k, src := b.k, b.src
	b.middle = mid
	b.upper = engine.Lambda(b.sc, b.sc.Key("upper"), func() float64 {
		return mid.Current() + k*sd.Current()
	})
	b.lower = engine.Lambda(b.sc, b.sc.Key("lower"), func() float64 {
		return mid.Current() - k*sd.Current()
	})
	up, lo := b.upper, b.lower
	// %B is 0 on flat input
	b.pctB = engine.Lambda(b.sc, b.sc.Key("percentB"), func() float64 {
		return div(src.Current()-lo.Current(), up.Current()-lo.Current())
	})
}

func (b *BollingerResult) Middle() *Series   { return b.middle }
func (b *BollingerResult) Upper() *Series    { return b.upper }
func (b *BollingerResult) Lower() *Series    { return b.lower }
func (b *BollingerResult) PercentB() *Series { return b.pctB }
