package indicators

import (
	"math"

	"github.com/rustyeddy/taengine/engine"
	"github.com/rustyeddy/taengine/ident"
	"github.com/rustyeddy/taengine/market"
)

// TrueRange is max(high-low, |high-prevClose|, |low-prevClose|). On the
// first bar it is high-low.
func TrueRange(sc engine.Scope, bars *market.Instrument) *Series {
	bars.Close.Reserve(2)
	return engine.Lambda(sc, sc.Key("TrueRange", ident.Of(bars)), func() float64 {
		return trueRange(bars)
	})
}

func trueRange(bars *market.Instrument) float64 {
	hi, lo := bars.High.Current(), bars.Low.Current()
	prev := bars.Close.Lookup(1)
	if !prev.Ready {
		return hi - lo
	}
	return math.Max(hi-lo, math.Max(math.Abs(hi-prev.Value), math.Abs(lo-prev.Value)))
}

// ATR is the average true range, Wilder-smoothed over n bars.
func ATR(sc engine.Scope, bars *market.Instrument, n int) *Series {
	mustPeriod("ATR", n)
	key := sc.Key("ATR", ident.Of(bars), ident.Int(n))
	in := sc.Within(key)
	return SMMA(in, TrueRange(in, bars), n)
}
