package strategies

import (
	"encoding/json"

	"github.com/rustyeddy/taengine/backtest"
	"github.com/rustyeddy/taengine/indicators"
)

// EMACross watches a single instrument for fast/slow EMA crossovers.
//   - Emits both EMAs every bar the instrument trades
//   - Emits a signal of +1 on an upward cross, -1 on a downward cross, else 0
//   - Tracks the position the signals imply (+1 long, -1 short, 0 flat)
//
// The EMAs are read several times per bar; the engine computes them once.
type EMACross struct {
	*EMACrossConfig

	lastDiff     float64
	haveLastDiff bool

	position int
	crosses  int
}

type EMACrossConfig struct {
	Instrument string `json:"instrument"`
	FastPeriod int    `json:"fast-period"` // 12
	SlowPeriod int    `json:"slow-period"` // 26
}

func (e *EMACrossConfig) JSON() ([]byte, error) {
	return json.Marshal(e)
}

func EMACrossConfigDefaults() *EMACrossConfig {
	return &EMACrossConfig{
		Instrument: "SPY",
		FastPeriod: 12,
		SlowPeriod: 26,
	}
}

func NewEMACross(cfg *EMACrossConfig) *EMACross {
	if cfg.FastPeriod <= 0 || cfg.SlowPeriod <= 0 {
		panic("EMACross periods must be > 0")
	}
	return &EMACross{EMACrossConfig: cfg}
}

func (s *EMACross) Name() string { return "ema-cross" }

// Position returns +1 long, -1 short or 0 before the first cross.
func (s *EMACross) Position() int { return s.position }

// Crosses returns how many crossovers have been seen.
func (s *EMACross) Crosses() int { return s.crosses }

func (s *EMACross) OnBar(c *backtest.Context) error {
	if !c.Traded(s.Instrument) {
		return nil
	}
	inst, _ := c.Instrument(s.Instrument)

	fast := indicators.EMA(c.Scope, inst.Close, s.FastPeriod)
	slow := indicators.EMA(c.Scope, inst.Close, s.SlowPeriod)
	c.Emit(s.Instrument, "ema.fast", fast.Current())
	c.Emit(s.Instrument, "ema.slow", slow.Current())

	diff := s.spread(c)

	signal := 0.0
	if s.haveLastDiff {
		switch {
		case s.lastDiff <= 0 && diff > 0:
			signal = 1
		case s.lastDiff >= 0 && diff < 0:
			signal = -1
		}
	}
	s.lastDiff = diff
	s.haveLastDiff = true

	if signal != 0 {
		s.crosses++
		s.position = int(signal)
	}
	c.Emit(s.Instrument, "ema.signal", signal)
	c.Emit(s.Instrument, "ema.position", float64(s.position))
	return nil
}

// spread asks for the same EMAs again, as a separate decision routine would.
func (s *EMACross) spread(c *backtest.Context) float64 {
	inst, _ := c.Instrument(s.Instrument)
	return indicators.EMA(c.Scope, inst.Close, s.FastPeriod).Current() -
		indicators.EMA(c.Scope, inst.Close, s.SlowPeriod).Current()
}
