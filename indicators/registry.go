package indicators

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rustyeddy/taengine/engine"
	"github.com/rustyeddy/taengine/market"
	"github.com/rustyeddy/taengine/series"
)

// Inputs are the series a registered formula may read.
type Inputs struct {
	Bars *market.Instrument
	// Source is the price series for single-input formulas. Defaults to
	// Bars.Close.
	Source    *Series
	Benchmark *market.Instrument
}

// ParamKind constrains a parameter value.
type ParamKind int

const (
	Period ParamKind = iota // integer in [1, series.MaxDepth]
	Count                   // integer in [0, series.MaxDepth]
	Real
)

type Param struct {
	Name    string
	Kind    ParamKind
	Default float64
}

// Params are resolved parameter values by name.
type Params map[string]float64

func (p Params) Int(name string) int { return int(p[name]) }

// Output is one named output series of an evaluated formula.
type Output struct {
	Name   string
	Series *Series
}

// Formula describes a registered indicator and how to build it.
type Formula struct {
	Name        string
	Description string
	Params      []Param
	Outputs     []string
	// NeedsBenchmark formulas read Inputs.Benchmark.
	NeedsBenchmark bool
	Build          func(sc engine.Scope, in Inputs, p Params) []Output
}

// Registry maps formula names, case-insensitively, to formulas.
type Registry struct {
	formulas map[string]Formula
}

func NewRegistry() *Registry {
	return &Registry{formulas: make(map[string]Formula)}
}

func (r *Registry) Register(f Formula) error {
	if f.Name == "" || f.Build == nil {
		return fmt.Errorf("formula needs a name and a builder")
	}
	k := strings.ToLower(f.Name)
	if _, dup := r.formulas[k]; dup {
		return fmt.Errorf("formula %s already registered", f.Name)
	}
	r.formulas[k] = f
	return nil
}

func (r *Registry) Lookup(name string) (Formula, bool) {
	f, ok := r.formulas[strings.ToLower(name)]
	return f, ok
}

// Formulas returns every formula sorted by name.
func (r *Registry) Formulas() []Formula {
	out := make([]Formula, 0, len(r.formulas))
	for _, f := range r.formulas {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Resolve fills defaults into raw and validates every value.
func (f Formula) Resolve(raw map[string]float64) (Params, error) {
	known := make(map[string]bool, len(f.Params))
	p := make(Params, len(f.Params))
	for _, def := range f.Params {
		known[def.Name] = true
		v, ok := raw[def.Name]
		if !ok {
			v = def.Default
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%s: param %s must be finite", f.Name, def.Name)
		}
		switch def.Kind {
		case Period, Count:
			if v != math.Trunc(v) {
				return nil, fmt.Errorf("%s: param %s must be an integer, got %v", f.Name, def.Name, v)
			}
			if def.Kind == Period && v < 1 {
				return nil, fmt.Errorf("%s: param %s must be >= 1, got %v", f.Name, def.Name, v)
			}
			if v < 0 {
				return nil, fmt.Errorf("%s: param %s must be >= 0, got %v", f.Name, def.Name, v)
			}
			if v > series.MaxDepth {
				return nil, fmt.Errorf("%s: param %s must be <= %d, got %v", f.Name, def.Name, series.MaxDepth, v)
			}
		}
		p[def.Name] = v
	}
	for name := range raw {
		if !known[name] {
			return nil, fmt.Errorf("%s: unknown param %q", f.Name, name)
		}
	}
	return p, nil
}

// Evaluate builds the named formula for the current bar.
func (r *Registry) Evaluate(sc engine.Scope, name string, in Inputs, raw map[string]float64) ([]Output, error) {
	f, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown indicator %q", name)
	}
	if in.Bars == nil {
		return nil, fmt.Errorf("%s: no instrument bars", f.Name)
	}
	if in.Source == nil {
		in.Source = in.Bars.Close
	}
	if f.NeedsBenchmark && in.Benchmark == nil {
		return nil, fmt.Errorf("%s: benchmark instrument required", f.Name)
	}
	p, err := f.Resolve(raw)
	if err != nil {
		return nil, err
	}
	return f.Build(sc, in, p), nil
}

func value(s *Series) []Output { return []Output{{Name: "value", Series: s}} }

func period(name string, def int) Param {
	return Param{Name: name, Kind: Period, Default: float64(def)}
}

func single(name, desc string, def int, fn func(engine.Scope, *Series, int) *Series) Formula {
	return Formula{
		Name:        name,
		Description: desc,
		Params:      []Param{period("period", def)},
		Outputs:     []string{"value"},
		Build: func(sc engine.Scope, in Inputs, p Params) []Output {
			return value(fn(sc, in.Source, p.Int("period")))
		},
	}
}

func barsSingle(name, desc string, def int, fn func(engine.Scope, *market.Instrument, int) *Series) Formula {
	return Formula{
		Name:        name,
		Description: desc,
		Params:      []Param{period("period", def)},
		Outputs:     []string{"value"},
		Build: func(sc engine.Scope, in Inputs, p Params) []Output {
			return value(fn(sc, in.Bars, p.Int("period")))
		},
	}
}

func regressionFormula(name, desc string, fn func(engine.Scope, *Series, int) *RegressionResult) Formula {
	return Formula{
		Name:        name,
		Description: desc,
		Params:      []Param{period("period", 20)},
		Outputs:     []string{"slope", "intercept", "r2"},
		Build: func(sc engine.Scope, in Inputs, p Params) []Output {
			r := fn(sc, in.Source, p.Int("period"))
			return []Output{{"slope", r.Slope()}, {"intercept", r.Intercept()}, {"r2", r.R2()}}
		},
	}
}

// Default returns a registry holding every formula in this package.
func Default() *Registry {
	r := NewRegistry()
	for _, f := range []Formula{
		{
			Name:        "Const",
			Description: "constant value",
			Params:      []Param{{Name: "value", Kind: Real}},
			Outputs:     []string{"value"},
			Build: func(sc engine.Scope, _ Inputs, p Params) []Output {
				return value(Const(sc, p["value"]))
			},
		},
		{
			Name:        "Delay",
			Description: "input delayed by n bars",
			Params:      []Param{{Name: "bars", Kind: Count, Default: 1}},
			Outputs:     []string{"value"},
			Build: func(sc engine.Scope, in Inputs, p Params) []Output {
				return value(Delay(sc, in.Source, p.Int("bars")))
			},
		},
		{
			Name:        "Return",
			Description: "one-bar simple return",
			Outputs:     []string{"value"},
			Build: func(sc engine.Scope, in Inputs, _ Params) []Output {
				return value(Return(sc, in.Source))
			},
		},
		{
			Name:        "LogReturn",
			Description: "one-bar log return",
			Outputs:     []string{"value"},
			Build: func(sc engine.Scope, in Inputs, _ Params) []Output {
				return value(LogReturn(sc, in.Source))
			},
		},
		single("SMA", "simple moving average", 20, SMA),
		single("EMA", "exponential moving average", 20, EMA),
		single("SMMA", "Wilder smoothed moving average", 14, SMMA),
		single("WMA", "linearly weighted moving average", 20, WMA),
		single("DEMA", "double exponential moving average", 20, DEMA),
		single("TEMA", "triple exponential moving average", 20, TEMA),
		single("HMA", "Hull moving average", 20, HMA),
		single("ZLEMA", "zero-lag exponential moving average", 20, ZLEMA),
		single("Highest", "highest value over n bars", 20, Highest),
		single("Lowest", "lowest value over n bars", 20, Lowest),
		single("Range", "highest minus lowest over n bars", 20, Range),
		single("StdDev", "population standard deviation", 20, StdDev),
		single("RSI", "relative strength index", 14, RSI),
		{
			Name:        "KAMA",
			Description: "Kaufman adaptive moving average",
			Params:      []Param{period("period", 10), period("fast", 2), period("slow", 30)},
			Outputs:     []string{"value"},
			Build: func(sc engine.Scope, in Inputs, p Params) []Output {
				return value(KAMA(sc, in.Source, p.Int("period"), p.Int("fast"), p.Int("slow")))
			},
		},
		{
			Name:        "MACD",
			Description: "moving average convergence/divergence",
			Params:      []Param{period("fast", 12), period("slow", 26), period("signal", 9)},
			Outputs:     []string{"fast", "slow", "line", "signal", "divergence"},
			Build: func(sc engine.Scope, in Inputs, p Params) []Output {
				m := MACD(sc, in.Source, p.Int("fast"), p.Int("slow"), p.Int("signal"))
				return []Output{
					{"fast", m.Fast()}, {"slow", m.Slow()}, {"line", m.Line()},
					{"signal", m.Signal()}, {"divergence", m.Divergence()},
				}
			},
		},
		{
			Name:        "Bollinger",
			Description: "Bollinger bands",
			Params:      []Param{period("period", 20), {Name: "k", Kind: Real, Default: 2}},
			Outputs:     []string{"middle", "upper", "lower", "percentB"},
			Build: func(sc engine.Scope, in Inputs, p Params) []Output {
				b := Bollinger(sc, in.Source, p.Int("period"), p["k"])
				return []Output{
					{"middle", b.Middle()}, {"upper", b.Upper()},
					{"lower", b.Lower()}, {"percentB", b.PercentB()},
				}
			},
		},
		regressionFormula("LinRegression", "linear regression over n bars", LinRegression),
		regressionFormula("LogRegression", "log-linear regression over n bars", LogRegression),
		barsSingle("CCI", "commodity channel index", 20, CCI),
		barsSingle("WilliamsR", "Williams %R", 14, WilliamsR),
		barsSingle("ATR", "average true range", 14, ATR),
		{
			Name:        "TrueRange",
			Description: "true range",
			Outputs:     []string{"value"},
			Build: func(sc engine.Scope, in Inputs, _ Params) []Output {
				return value(TrueRange(sc, in.Bars))
			},
		},
		{
			Name:        "OBV",
			Description: "on-balance volume",
			Outputs:     []string{"value"},
			Build: func(sc engine.Scope, in Inputs, _ Params) []Output {
				return value(OBV(sc, in.Bars))
			},
		},
		{
			Name:        "Stochastic",
			Description: "stochastic oscillator",
			Params:      []Param{period("period", 14), period("smooth", 3)},
			Outputs:     []string{"k", "d"},
			Build: func(sc engine.Scope, in Inputs, p Params) []Output {
				s := Stochastic(sc, in.Bars, p.Int("period"), p.Int("smooth"))
				return []Output{{"k", s.K()}, {"d", s.D()}}
			},
		},
		{
			Name:        "ADX",
			Description: "average directional index",
			Params:      []Param{period("period", 14)},
			Outputs:     []string{"plusDI", "minusDI", "adx"},
			Build: func(sc engine.Scope, in Inputs, p Params) []Output {
				a := ADX(sc, in.Bars, p.Int("period"))
				return []Output{{"plusDI", a.PlusDI()}, {"minusDI", a.MinusDI()}, {"adx", a.ADX()}}
			},
		},
		{
			Name:           "CAPM",
			Description:    "alpha and beta of returns against a benchmark",
			Params:         []Param{period("period", 60)},
			Outputs:        []string{"alpha", "beta"},
			NeedsBenchmark: true,
			Build: func(sc engine.Scope, in Inputs, p Params) []Output {
				asset := Return(sc, in.Source)
				bench := Return(sc, in.Benchmark.Close)
				c := CAPM(sc, asset, bench, p.Int("period"))
				return []Output{{"alpha", c.Alpha()}, {"beta", c.Beta()}}
			},
		},
	} {
		if err := r.Register(f); err != nil {
			panic(err)
		}
	}
	return r
}
