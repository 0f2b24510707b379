// Package strategies holds the algorithms the backtest driver runs.
package strategies

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/taengine/backtest"
	"github.com/rustyeddy/taengine/config"
	"github.com/rustyeddy/taengine/indicators"
)

// Chain runs each algorithm in order on every bar.
type Chain []backtest.Algorithm

func (ch Chain) Name() string {
	names := make([]string, len(ch))
	for i, a := range ch {
		names[i] = a.Name()
	}
	return strings.Join(names, "+")
}

func (ch Chain) OnBar(c *backtest.Context) error {
	for _, a := range ch {
		if err := a.OnBar(c); err != nil {
			return fmt.Errorf("%s: %w", a.Name(), err)
		}
	}
	return nil
}

// ByName builds a built-in strategy.
func ByName(name, instrument string, fast, slow int) (backtest.Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "noop", "none", "":
		return Noop{}, nil

	case "ema-cross", "emacross":
		return NewEMACross(&EMACrossConfig{
			Instrument: instrument,
			FastPeriod: fast,
			SlowPeriod: slow,
		}), nil

	default:
		return nil, fmt.Errorf("unknown strategy %q (supported: noop, ema-cross)", name)
	}
}

// FromConfig builds the configured strategy followed by the configured
// indicator list.
func FromConfig(cfg *config.Config) (backtest.Algorithm, error) {
	var ch Chain

	if t := cfg.Strategy.Type; t != "" && t != "none" {
		s, err := ByName(t, cfg.Strategy.Instrument, cfg.Strategy.FastPeriod, cfg.Strategy.SlowPeriod)
		if err != nil {
			return nil, err
		}
		ch = append(ch, s)
	}
	if len(cfg.Indicators) > 0 {
		ind, err := NewConfigured(indicators.Default(), cfg.Indicators, cfg.Run.Benchmark)
		if err != nil {
			return nil, err
		}
		ch = append(ch, ind)
	}

	switch len(ch) {
	case 0:
		return Noop{}, nil
	case 1:
		return ch[0], nil
	}
	return ch, nil
}
