package indicators

import (
	"math"

	"github.com/rustyeddy/taengine/engine"
	"github.com/rustyeddy/taengine/ident"
	"github.com/rustyeddy/taengine/market"
)

// RSI is Wilder's relative strength index over n bars. 50 on flat input.
func RSI(sc engine.Scope, src *Series, n int) *Series {
	mustPeriod("RSI", n)
	src.Reserve(2)
	key := sc.Key("RSI", ident.Of(src), ident.Int(n))
	in := sc.Within(key)

	change := func() float64 {
		prev := src.Lookup(1)
		if !prev.Ready {
			return 0
		}
		return src.Current() - prev.Value
	}
	gain := engine.Lambda(in, in.Key("gain"), func() float64 { return math.Max(0, change()) })
	loss := engine.Lambda(in, in.Key("loss"), func() float64 { return math.Max(0, -change()) })
	avgGain := SMMA(in, gain, n)
	avgLoss := SMMA(in, loss, n)

	return engine.Lambda(sc, key, func() float64 {
		g, l := avgGain.Current(), avgLoss.Current()
		if g+l < Epsilon {
			return 50
		}
		return 100 * g / (g + l)
	})
}

// CCI is the commodity channel index of the typical price over n bars.
// 0 on flat input.
func CCI(sc engine.Scope, bars *market.Instrument, n int) *Series {
	mustPeriod("CCI", n)
	key := sc.Key("CCI", ident.Of(bars), ident.Int(n))
	in := sc.Within(key)

	tp := engine.Lambda(in, in.Key("typical"), func() float64 {
		return (bars.High.Current() + bars.Low.Current() + bars.Close.Current()) / 3
	}, engine.Depth(n))
	mean := SMA(in, tp, n)

	return engine.Lambda(sc, key, func() float64 {
		m := window(tp, n)
		avg := mean.Current()
		dev := 0.0
		for k := 0; k < m; k++ {
			dev += math.Abs(tp.Or(k, avg) - avg)
		}
		dev /= float64(m)
		return div(tp.Current()-avg, 0.015*dev)
	})
}

// StochasticResult is the stochastic oscillator: %K over n bars and %D, an
// SMA of %K over smooth bars. 0 on flat input.
type StochasticResult struct {
	sc        engine.Scope
	bars      *market.Instrument
	n, smooth int

	k, d *Series
}

func Stochastic(sc engine.Scope, bars *market.Instrument, n, smooth int) *StochasticResult {
	mustPeriod("Stochastic", n)
	mustPeriod("Stochastic smooth", smooth)
	key := sc.Key("Stochastic", ident.Of(bars), ident.Int(n), ident.Int(smooth))
	return engine.Stateful(sc, key, func() *StochasticResult {
		return &StochasticResult{sc: sc.Within(key), bars: bars, n: n, smooth: smooth}
	})
}

func (s *StochasticResult) Advance() {
	hh := Highest(s.sc, s.bars.High, s.n)
	ll := Lowest(s.sc, s.bars.Low, s.n)
	c := s.bars.Close
	s.k = engine.Lambda(s.sc, s.sc.Key("K"), func() float64 {
		return 100 * div(c.Current()-ll.Current(), hh.Current()-ll.Current())
	})
	s.d = SMA(s.sc, s.k, s.smooth)
}

func (s *StochasticResult) K() *Series { return s.k }
func (s *StochasticResult) D() *Series { return s.d }

// WilliamsR is Williams' %R over n bars, from -100 to 0. 0 on flat input.
func WilliamsR(sc engine.Scope, bars *market.Instrument, n int) *Series {
	mustPeriod("WilliamsR", n)
	key := sc.Key("WilliamsR", ident.Of(bars), ident.Int(n))
	in := sc.Within(key)
	hh := Highest(in, bars.High, n)
	ll := Lowest(in, bars.Low, n)
	return engine.Lambda(sc, key, func() float64 {
		r := hh.Current() - ll.Current()
		if r < Epsilon {
			return 0
		}
		return -100 * (hh.Current() - bars.Close.Current()) / r
	})
}

// OBV is on-balance volume: volume added on up closes, subtracted on down
// closes. Starts at 0.
func OBV(sc engine.Scope, bars *market.Instrument) *Series {
	bars.Close.Reserve(2)
	return engine.Buffered(sc, sc.Key("OBV", ident.Of(bars)), 0, func(prev float64) float64 {
		last := bars.Close.Lookup(1)
		if !last.Ready {
			return prev
		}
		switch cur := bars.Close.Current(); {
		case cur > last.Value:
			return prev + bars.Volume.Current()
		case cur < last.Value:
			return prev - bars.Volume.Current()
		}
		return prev
	})
}
