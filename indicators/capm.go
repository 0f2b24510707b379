package indicators

import (
	"github.com/rustyeddy/taengine/engine"
	"github.com/rustyeddy/taengine/ident"
)

// CAPMResult regresses an asset's returns on a benchmark's returns using
// exponentially weighted means, variance and covariance with
// alpha = 2/(n+1).
//
//	Beta  = cov(asset, benchmark) / var(benchmark)
//	Alpha = mean(asset) - Beta * mean(benchmark)
//
// Both inputs are return series, e.g. from Return. Beta is 0 while the
// benchmark has shown no variance.
type CAPMResult struct {
	asset, bench *Series
	a            float64

	started  bool
	mx, my   float64
	vx, cxy  float64
	alphaOut *Series
	betaOut  *Series
}

func CAPM(sc engine.Scope, asset, benchmark *Series, n int) *CAPMResult {
	mustPeriod("CAPM", n)
	key := sc.Key("CAPM", ident.Of(asset), ident.Of(benchmark), ident.Int(n))
	depth := sc.Run().Depth()
	return engine.Stateful(sc, key, func() *CAPMResult {
		return &CAPMResult{
			asset:    asset,
			bench:    benchmark,
			a:        2.0 / float64(n+1),
			alphaOut: newOutput(key, "alpha", depth),
			betaOut:  newOutput(key, "beta", depth),
		}
	})
}

func (c *CAPMResult) Advance() {
	x, y := c.bench.Current(), c.asset.Current()
	if !c.started {
		c.mx, c.my = x, y
		c.started = true
	} else {
		dx, dy := x-c.mx, y-c.my
		c.mx += c.a * dx
		c.my += c.a * dy
		c.vx = (1 - c.a) * (c.vx + c.a*dx*dx)
		c.cxy = (1 - c.a) * (c.cxy + c.a*dx*dy)
	}

	beta := 0.0
	if c.vx >= Epsilon*Epsilon {
		beta = c.cxy / c.vx
	}
	c.betaOut.Append(beta)
	c.alphaOut.Append(c.my - beta*c.mx)
}

func (c *CAPMResult) Alpha() *Series { return c.alphaOut }
func (c *CAPMResult) Beta() *Series  { return c.betaOut }
