package strategies

import "github.com/rustyeddy/taengine/backtest"

// Noop does nothing. Useful to replay a dataset through the driver alone.
type Noop struct{}

func (Noop) Name() string                    { return "noop" }
func (Noop) OnBar(c *backtest.Context) error { return nil }
