package indicators

import (
	"github.com/rustyeddy/taengine/engine"
	"github.com/rustyeddy/taengine/ident"
)

// MACDResult holds the outputs of one MACD evaluation. Its EMAs live under
// the MACD key and never share state with bare EMA calls.
type MACDResult struct {
	sc                 engine.Scope
	src                *Series
	fast, slow, signal int

	fastEMA, slowEMA *Series
	line, sig, div   *Series
}

// MACD is the moving average convergence/divergence of src.
//
//	Line       = EMA(fast) - EMA(slow)
//	Signal     = EMA(Line, signal)
//	Divergence = Line - Signal
func MACD(sc engine.Scope, src *Series, fast, slow, signal int) *MACDResult {
	mustPeriod("MACD fast", fast)
	mustPeriod("MACD slow", slow)
	mustPeriod("MACD signal", signal)
	key := sc.Key("MACD", ident.Of(src), ident.Int(fast), ident.Int(slow), ident.Int(signal))
	return engine.Stateful(sc, key, func() *MACDResult {
		return &MACDResult{sc: sc.Within(key), src: src, fast: fast, slow: slow, signal: signal}
	})
}

func (m *MACDResult) Advance() {
	m.fastEMA = EMA(m.sc, m.src, m.fast)
	m.slowEMA = EMA(m.sc, m.src, m.slow)
	f, s := m.fastEMA, m.slowEMA
	m.line = engine.Lambda(m.sc, m.sc.Key("line"), func() float64 {
		return f.Current() - s.Current()
	})
	m.sig = EMA(m.sc, m.line, m.signal)
	line, sig := m.line, m.sig
	m.div = engine.Lambda(m.sc, m.sc.Key("divergence"), func() float64 {
		return line.Current() - sig.Current()
	})
}

func (m *MACDResult) Fast() *Series       { return m.fastEMA }
func (m *MACDResult) Slow() *Series       { return m.slowEMA }
func (m *MACDResult) Line() *Series       { return m.line }
func (m *MACDResult) Signal() *Series     { return m.sig }
func (m *MACDResult) Divergence() *Series { return m.div }
