package strategies

import (
	"fmt"

	"github.com/rustyeddy/taengine/backtest"
	"github.com/rustyeddy/taengine/config"
	"github.com/rustyeddy/taengine/indicators"
	"github.com/rustyeddy/taengine/market"
)

// Configured evaluates the indicators listed in a config on every bar their
// instrument trades and emits every output. A formula with one output
// emits it under the indicator name, others as name.output.
type Configured struct {
	reg   *indicators.Registry
	specs []spec
}

type spec struct {
	config.IndicatorConfig
	field     market.Field
	benchmark string
}

// NewConfigured checks every entry against reg. benchmark is used by
// entries that need one and do not name their own.
func NewConfigured(reg *indicators.Registry, list []config.IndicatorConfig, benchmark string) (*Configured, error) {
	c := &Configured{reg: reg}
	for _, ic := range list {
		f, ok := reg.Lookup(ic.Type)
		if !ok {
			return nil, fmt.Errorf("indicator %s: unknown type %q", ic.Name, ic.Type)
		}
		field, err := ic.Field()
		if err != nil {
			return nil, fmt.Errorf("indicator %s: %w", ic.Name, err)
		}
		if _, err := f.Resolve(ic.Params); err != nil {
			return nil, fmt.Errorf("indicator %s: %w", ic.Name, err)
		}
		sp := spec{IndicatorConfig: ic, field: field}
		if f.NeedsBenchmark {
			sp.benchmark = ic.Benchmark
			if sp.benchmark == "" {
				sp.benchmark = benchmark
			}
			if sp.benchmark == "" {
				return nil, fmt.Errorf("indicator %s: %s needs a benchmark", ic.Name, f.Name)
			}
		}
		c.specs = append(c.specs, sp)
	}
	return c, nil
}

func (c *Configured) Name() string { return "indicators" }

func (c *Configured) OnBar(ctx *backtest.Context) error {
	for _, sp := range c.specs {
		if !ctx.Traded(sp.Instrument) {
			continue
		}
		inst, _ := ctx.Instrument(sp.Instrument)
		in := indicators.Inputs{Bars: inst, Source: inst.Field(sp.field)}
		if sp.benchmark != "" {
			if !ctx.Traded(sp.benchmark) {
				continue
			}
			in.Benchmark, _ = ctx.Instrument(sp.benchmark)
		}

		outs, err := c.reg.Evaluate(ctx.Scope, sp.Type, in, sp.Params)
		if err != nil {
			return fmt.Errorf("indicator %s: %w", sp.Name, err)
		}
		for _, o := range outs {
			name := sp.Name
			if len(outs) > 1 {
				name += "." + o.Name
			}
			ctx.Emit(sp.Instrument, name, o.Series.Current())
		}
	}
	return nil
}
