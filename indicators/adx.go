package indicators

import (
	"math"

	"github.com/rustyeddy/taengine/engine"
	"github.com/rustyeddy/taengine/ident"
	"github.com/rustyeddy/taengine/market"
)

// ADXResult is Wilder's directional movement system. All smoothing is
// Wilder's (alpha = 1/n) seeded with the first observation.
//
// On flat input every output is 0.
type ADXResult struct {
	bars *market.Instrument
	n    float64

	started         bool
	tr, plus, minus float64
	adx             float64

	plusDI, minusDI, adxS *Series
}

func ADX(sc engine.Scope, bars *market.Instrument, n int) *ADXResult {
	mustPeriod("ADX", n)
	bars.High.Reserve(2)
	bars.Low.Reserve(2)
	bars.Close.Reserve(2)
	key := sc.Key("ADX", ident.Of(bars), ident.Int(n))
	depth := sc.Run().Depth()
	return engine.Stateful(sc, key, func() *ADXResult {
		return &ADXResult{
			bars:    bars,
			n:       float64(n),
			plusDI:  newOutput(key, "plusDI", depth),
			minusDI: newOutput(key, "minusDI", depth),
			adxS:    newOutput(key, "adx", depth),
		}
	})
}

func (a *ADXResult) Advance() {
	b := a.bars
	var tr, plusDM, minusDM float64
	if prevHigh := b.High.Lookup(1); prevHigh.Ready {
		up := b.High.Current() - prevHigh.Value
		down := b.Low.Or(1, 0) - b.Low.Current()
		if up > down && up > 0 {
			plusDM = up
		}
		if down > up && down > 0 {
			minusDM = down
		}
	}
	tr = trueRange(b)

	if !a.started {
		a.tr, a.plus, a.minus = tr, plusDM, minusDM
	} else {
		a.tr += (tr - a.tr) / a.n
		a.plus += (plusDM - a.plus) / a.n
		a.minus += (minusDM - a.minus) / a.n
	}

	pdi := 100 * div(a.plus, a.tr)
	mdi := 100 * div(a.minus, a.tr)
	dx := 100 * div(math.Abs(pdi-mdi), pdi+mdi)

	if !a.started {
		a.adx = dx
		a.started = true
	} else {
		a.adx += (dx - a.adx) / a.n
	}

	a.plusDI.Append(pdi)
	a.minusDI.Append(mdi)
	a.adxS.Append(a.adx)
}

func (a *ADXResult) PlusDI() *Series  { return a.plusDI }
func (a *ADXResult) MinusDI() *Series { return a.minusDI }
func (a *ADXResult) ADX() *Series     { return a.adxS }
