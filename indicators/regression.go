package indicators

import (
	"math"

	"github.com/rustyeddy/taengine/engine"
	"github.com/rustyeddy/taengine/ident"
)

// RegressionResult is a least-squares line through the last n values of a
// series, bars numbered oldest to newest.
//
//	Slope     change per bar
//	Intercept fitted value at the current bar
//	R2        coefficient of determination, 0 when the window is flat
type RegressionResult struct {
	src *Series
	n   int
	log bool

	slope, intercept, r2 *Series
}

// LinRegression fits src over n bars.
func LinRegression(sc engine.Scope, src *Series, n int) *RegressionResult {
	return regression(sc, "LinRegression", src, n, false)
}

// LogRegression fits ln(src) over n bars, so Slope is the log growth per
// bar. Non-positive values are floored at Epsilon.
func LogRegression(sc engine.Scope, src *Series, n int) *RegressionResult {
	return regression(sc, "LogRegression", src, n, true)
}

func regression(sc engine.Scope, site ident.Site, src *Series, n int, log bool) *RegressionResult {
	mustPeriod(string(site), n)
	src.Reserve(n)
	key := sc.Key(site, ident.Of(src), ident.Int(n))
	depth := sc.Run().Depth()
	return engine.Stateful(sc, key, func() *RegressionResult {
		return &RegressionResult{
			src:       src,
			n:         n,
			log:       log,
			slope:     newOutput(key, "slope", depth),
			intercept: newOutput(key, "intercept", depth),
			r2:        newOutput(key, "r2", depth),
		}
	})
}

func (r *RegressionResult) Advance() {
	ys := r.src.Last(r.n)
	if r.log {
		for i, y := range ys {
			ys[i] = math.Log(math.Max(Epsilon, y))
		}
	}
	slope, icpt, r2 := fitLine(ys)
	r.slope.Append(slope)
	r.intercept.Append(icpt)
	r.r2.Append(r2)
}

func (r *RegressionResult) Slope() *Series     { return r.slope }
func (r *RegressionResult) Intercept() *Series { return r.intercept }
func (r *RegressionResult) R2() *Series        { return r.r2 }

// fitLine regresses ys on x = 0..len-1 and returns the slope, the fitted
// value at the last x and R².
func fitLine(ys []float64) (slope, last, r2 float64) {
	m := float64(len(ys))
	switch len(ys) {
	case 0:
		return 0, 0, 0
	case 1:
		return 0, ys[0], 0
	}

	var sx, sy float64
	for i, y := range ys {
		sx += float64(i)
		sy += y
	}
	mx, my := sx/m, sy/m

	var sxx, sxy, sst float64
	for i, y := range ys {
		dx := float64(i) - mx
		dy := y - my
		sxx += dx * dx
		sxy += dx * dy
		sst += dy * dy
	}
	slope = sxy / sxx
	icpt := my - slope*mx
	last = icpt + slope*(m-1)

	if sst < Epsilon {
		return slope, last, 0
	}
	var sse float64
	for i, y := range ys {
		e := y - (icpt + slope*float64(i))
		sse += e * e
	}
	return slope, last, math.Max(0, 1-sse/sst)
}
