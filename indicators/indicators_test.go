package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/taengine/engine"
	"github.com/rustyeddy/taengine/ident"
	"github.com/rustyeddy/taengine/market"
	"github.com/rustyeddy/taengine/series"
)

type harness struct {
	t    *testing.T
	run  *engine.Run
	inst *market.Instrument
	at   time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{
		t:    t,
		run:  engine.NewRun(),
		inst: market.NewInstrument("EUR_USD", 8),
		at:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
}

// step advances the run and pushes b, returning the root scope.
func (h *harness) step(b market.Bar) engine.Scope {
	h.t.Helper()
	require.NoError(h.t, h.run.Advance())
	h.at = h.at.Add(time.Minute)
	b.Time = h.at
	b.Instrument = h.inst.Name
	require.NoError(h.t, h.inst.Push(b))
	return h.run.Root()
}

// close pushes a flat bar at c.
func (h *harness) close(c float64) engine.Scope {
	return h.step(market.Bar{Open: c, High: c, Low: c, Close: c, Volume: 1})
}

func TestSMAUnderfilledWindow(t *testing.T) {
	h := newHarness(t)
	want := []float64{1, 1.5, 2, 3, 4}
	for i, c := range []float64{1, 2, 3, 4, 5} {
		sc := h.close(c)
		assert.InDelta(t, want[i], SMA(sc, h.inst.Close, 3).Current(), 1e-12, "bar %d", i+1)
	}
}

func TestSMAOfDerivedSeriesCountsSeed(t *testing.T) {
	h := newHarness(t)
	want := []float64{1, 4.0 / 3, 2, 3, 4}
	for i, c := range []float64{1, 2, 3, 4, 5} {
		sc := h.close(c)
		copied := engine.Lambda(sc, sc.Key("copy"), func() float64 { return h.inst.Close.Current() })
		assert.InDelta(t, want[i], SMA(sc, copied, 3).Current(), 1e-12, "bar %d", i+1)
	}
}

func TestEMASeedAndConvergence(t *testing.T) {
	h := newHarness(t)

	sc := h.close(10)
	assert.Equal(t, 10.0, EMA(sc, h.inst.Close, 10).Current(), "first bar equals the seed")

	for i := 0; i < 50; i++ {
		sc = h.close(20)
		EMA(sc, h.inst.Close, 10)
	}
	assert.InDelta(t, 20.0, EMA(sc, h.inst.Close, 10).Current(), 1e-3)
}

func TestEMARecurrence(t *testing.T) {
	h := newHarness(t)
	h.close(1)
	ema := EMA(h.run.Root(), h.inst.Close, 3)
	sc := h.close(3)
	ema = EMA(sc, h.inst.Close, 3)
	// alpha = 0.5
	assert.InDelta(t, 2.0, ema.Current(), 1e-12)
	assert.InDelta(t, 1.0, ema.Or(1, 0), 1e-12)
}

func TestFormulaMemoizedWithinBar(t *testing.T) {
	h := newHarness(t)
	for i := 1; i <= 4; i++ {
		sc := h.close(float64(i))
		a := EMA(sc, h.inst.Close, 5)
		b := EMA(sc, h.inst.Close, 5)
		c := EMA(sc, h.inst.Close, 5)
		require.Same(t, a, b)
		require.Same(t, a, c)
	}
	st := h.run.Store().Stats()
	assert.Equal(t, 1, st.Entries)
	assert.EqualValues(t, 4, st.Computes)
	assert.EqualValues(t, 8, st.Hits)
	assert.NoError(t, h.run.Err())
}

func TestDistinctParamsDistinctState(t *testing.T) {
	h := newHarness(t)
	var fast, slow *Series
	for _, c := range []float64{1, 5, 9} {
		sc := h.close(c)
		fast = EMA(sc, h.inst.Close, 2)
		slow = EMA(sc, h.inst.Close, 8)
	}
	assert.NotSame(t, fast, slow)
	assert.NotEqual(t, fast.Key(), slow.Key())
	assert.Greater(t, fast.Current(), slow.Current())
}

func TestCallSiteDiscrimination(t *testing.T) {
	h := newHarness(t)
	sc := h.close(1)
	a := EMA(sc.At("left"), h.inst.Close, 5)
	b := EMA(sc.At("right"), h.inst.Close, 5)
	assert.NotSame(t, a, b)
	assert.Equal(t, a.Current(), b.Current())
}

func TestMACDKeysDistinctFromBareEMA(t *testing.T) {
	h := newHarness(t)
	var m *MACDResult
	var bare *Series
	for _, c := range []float64{10, 11, 13, 12, 15, 16} {
		sc := h.close(c)
		bare = EMA(sc, h.inst.Close, 3)
		m = MACD(sc, h.inst.Close, 3, 6, 2)
	}
	require.NoError(t, h.run.Err())

	assert.NotSame(t, bare, m.Fast())
	assert.NotEqual(t, bare.Key(), m.Fast().Key())
	assert.InDelta(t, bare.Current(), m.Fast().Current(), 1e-12)

	assert.InDelta(t, m.Fast().Current()-m.Slow().Current(), m.Line().Current(), 1e-12)
	assert.InDelta(t, m.Line().Current()-m.Signal().Current(), m.Divergence().Current(), 1e-12)
	assert.Greater(t, m.Line().Current(), 0.0, "rising input")

	// functor + fast + slow + line + signal + divergence, and the bare EMA
	assert.Equal(t, 7, h.run.Store().Len())
}

func TestMACDSameBarReturnsSameFunctor(t *testing.T) {
	h := newHarness(t)
	sc := h.close(1)
	a := MACD(sc, h.inst.Close, 12, 26, 9)
	b := MACD(sc, h.inst.Close, 12, 26, 9)
	assert.Same(t, a, b)
	assert.Equal(t, 2, a.Line().Count(), "seed plus one step")
}

func TestKAMAInsufficientHistoryFallsBack(t *testing.T) {
	h := newHarness(t)
	var k *Series
	for i := 1; i <= 10; i++ {
		sc := h.close(float64(i))
		k = KAMA(sc, h.inst.Close, 10, 2, 30)
		assert.Equal(t, float64(i), k.Current(), "bar %d", i)
	}
	sc := h.close(11)
	k = KAMA(sc, h.inst.Close, 10, 2, 30)
	// efficiency ratio 1: smoothing (2/3)^2
	assert.InDelta(t, 10+4.0/9, k.Current(), 1e-12)
}

func TestFlatInputPolicies(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 30; i++ {
		sc := h.close(100)
		CCI(sc, h.inst, 10)
		ADX(sc, h.inst, 10)
		Stochastic(sc, h.inst, 10, 3)
		WilliamsR(sc, h.inst, 10)
		RSI(sc, h.inst.Close, 10)
		LinRegression(sc, h.inst.Close, 10)
		Bollinger(sc, h.inst.Close, 10, 2)
	}
	sc := h.run.Root()
	require.NoError(t, h.run.Err())

	assert.Equal(t, 0.0, CCI(sc, h.inst, 10).Current())
	adx := ADX(sc, h.inst, 10)
	assert.Equal(t, 0.0, adx.ADX().Current())
	assert.Equal(t, 0.0, adx.PlusDI().Current())
	assert.Equal(t, 0.0, adx.MinusDI().Current())
	st := Stochastic(sc, h.inst, 10, 3)
	assert.Equal(t, 0.0, st.K().Current())
	assert.Equal(t, 0.0, st.D().Current())
	assert.Equal(t, 0.0, WilliamsR(sc, h.inst, 10).Current())
	assert.Equal(t, 50.0, RSI(sc, h.inst.Close, 10).Current())

	lr := LinRegression(sc, h.inst.Close, 10)
	assert.Equal(t, 0.0, lr.R2().Current())
	assert.Equal(t, 0.0, lr.Slope().Current())
	assert.InDelta(t, 100.0, lr.Intercept().Current(), 1e-9)

	bb := Bollinger(sc, h.inst.Close, 10, 2)
	assert.Equal(t, 100.0, bb.Upper().Current())
	assert.Equal(t, 100.0, bb.Lower().Current())
	assert.Equal(t, 0.0, bb.PercentB().Current())
}

func TestLinRegression(t *testing.T) {
	h := newHarness(t)
	var lr *RegressionResult
	for i := 0; i < 8; i++ {
		sc := h.close(2*float64(i) + 1)
		lr = LinRegression(sc, h.inst.Close, 5)
	}
	assert.InDelta(t, 2.0, lr.Slope().Current(), 1e-9)
	assert.InDelta(t, 15.0, lr.Intercept().Current(), 1e-9)
	assert.InDelta(t, 1.0, lr.R2().Current(), 1e-9)
}

func TestLogRegression(t *testing.T) {
	h := newHarness(t)
	var lr *RegressionResult
	for i := 0; i < 10; i++ {
		sc := h.close(100 * math.Pow(1.1, float64(i)))
		lr = LogRegression(sc, h.inst.Close, 6)
	}
	assert.InDelta(t, math.Log(1.1), lr.Slope().Current(), 1e-9)
	assert.InDelta(t, 1.0, lr.R2().Current(), 1e-9)
}

func TestFitLineShortWindows(t *testing.T) {
	s, last, r2 := fitLine(nil)
	assert.Zero(t, s+last+r2)
	s, last, r2 = fitLine([]float64{7})
	assert.Equal(t, []float64{0, 7, 0}, []float64{s, last, r2})
}

func TestCAPM(t *testing.T) {
	r := engine.NewRun()
	bench := series.New[float64](ident.Make(ident.Root, "bench"), 8)
	asset := series.New[float64](ident.Make(ident.Root, "asset"), 8)

	var c *CAPMResult
	for i := 0; i < 40; i++ {
		require.NoError(t, r.Advance())
		x := 0.01 * math.Sin(float64(i))
		bench.Append(x)
		asset.Append(2*x + 0.001)
		c = CAPM(r.Root(), asset, bench, 20)
		if i == 0 {
			assert.Equal(t, 0.0, c.Beta().Current(), "no benchmark variance yet")
		}
	}
	require.NoError(t, r.Err())
	assert.InDelta(t, 2.0, c.Beta().Current(), 1e-6)
	assert.InDelta(t, 0.001, c.Alpha().Current(), 1e-6)
}

func TestWindowFormulas(t *testing.T) {
	h := newHarness(t)
	closes := []float64{5, 3, 4, 1}
	var hi, lo, rg, dl, wma *Series
	for _, c := range closes {
		sc := h.close(c)
		hi = Highest(sc, h.inst.Close, 3)
		lo = Lowest(sc, h.inst.Close, 3)
		rg = Range(sc, h.inst.Close, 3)
		dl = Delay(sc, h.inst.Close, 2)
		wma = WMA(sc, h.inst.Close, 3)
	}
	assert.Equal(t, 4.0, hi.Current())
	assert.Equal(t, 1.0, lo.Current())
	assert.Equal(t, 3.0, rg.Current())
	assert.Equal(t, 3.0, dl.Current())
	assert.Equal(t, 5.0, dl.Or(1, 0))
	assert.InDelta(t, (3*1.0+2*4+1*3)/6, wma.Current(), 1e-12)
}

func TestDelayPadsWithOldest(t *testing.T) {
	h := newHarness(t)
	want := []float64{1, 1, 1, 2}
	for i, c := range []float64{1, 2, 3, 4} {
		sc := h.close(c)
		assert.Equal(t, want[i], Delay(sc, h.inst.Close, 2).Current(), "bar %d", i+1)
	}
}

func TestReturns(t *testing.T) {
	h := newHarness(t)
	sc := h.close(100)
	assert.Equal(t, 0.0, Return(sc, h.inst.Close).Current())
	assert.Equal(t, 0.0, LogReturn(sc, h.inst.Close).Current())

	sc = h.close(110)
	assert.InDelta(t, 0.1, Return(sc, h.inst.Close).Current(), 1e-12)
	assert.InDelta(t, math.Log(1.1), LogReturn(sc, h.inst.Close).Current(), 1e-12)
}

func TestConstantInputMovingAverages(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 12; i++ {
		sc := h.close(42)
		for name, s := range map[string]*Series{
			"SMA":   SMA(sc, h.inst.Close, 4),
			"WMA":   WMA(sc, h.inst.Close, 4),
			"DEMA":  DEMA(sc, h.inst.Close, 4),
			"TEMA":  TEMA(sc, h.inst.Close, 4),
			"HMA":   HMA(sc, h.inst.Close, 4),
			"ZLEMA": ZLEMA(sc, h.inst.Close, 4),
			"KAMA":  KAMA(sc, h.inst.Close, 4, 2, 30),
		} {
			assert.InDelta(t, 42.0, s.Current(), 1e-9, name)
		}
	}
	assert.NoError(t, h.run.Err())
}

func TestTrueRangeATROBV(t *testing.T) {
	h := newHarness(t)
	bars := []market.Bar{
		{Open: 11, High: 12, Low: 10, Close: 11, Volume: 100},
		{Open: 13, High: 15, Low: 13, Close: 14, Volume: 200},
		{Open: 12, High: 14, Low: 12, Close: 13, Volume: 300},
		{Open: 13, High: 14, Low: 12, Close: 13, Volume: 400},
	}
	wantTR := []float64{2, 4, 2, 2}
	wantATR := []float64{2, 3, 2.5, 2.25}
	wantOBV := []float64{0, 200, -100, -100}
	for i, b := range bars {
		sc := h.step(b)
		assert.Equal(t, wantTR[i], TrueRange(sc, h.inst).Current(), "tr bar %d", i+1)
		assert.InDelta(t, wantATR[i], ATR(sc, h.inst, 2).Current(), 1e-12, "atr bar %d", i+1)
		assert.Equal(t, wantOBV[i], OBV(sc, h.inst).Current(), "obv bar %d", i+1)
	}
}

func TestOscillatorRanges(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 40; i++ {
		c := 100 + 10*math.Sin(float64(i)/3)
		sc := h.step(market.Bar{Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 10})

		rsi := RSI(sc, h.inst.Close, 14).Current()
		assert.True(t, rsi >= 0 && rsi <= 100, "rsi %v", rsi)
		st := Stochastic(sc, h.inst, 14, 3)
		assert.True(t, st.K().Current() >= 0 && st.K().Current() <= 100)
		wr := WilliamsR(sc, h.inst, 14).Current()
		assert.True(t, wr >= -100 && wr <= 0, "williams %v", wr)
		adx := ADX(sc, h.inst, 14).ADX().Current()
		assert.True(t, adx >= 0 && adx <= 100, "adx %v", adx)
		assert.False(t, math.IsNaN(CCI(sc, h.inst, 14).Current()))
	}
	assert.NoError(t, h.run.Err())
}

func TestInvalidPeriodPanics(t *testing.T) {
	h := newHarness(t)
	sc := h.close(1)
	assert.Panics(t, func() { SMA(sc, h.inst.Close, 0) })
	assert.Panics(t, func() { EMA(sc, h.inst.Close, -1) })
	assert.Panics(t, func() { Delay(sc, h.inst.Close, -1) })
}
