package backtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rustyeddy/taengine/engine"
	"github.com/rustyeddy/taengine/ident"
	"github.com/rustyeddy/taengine/indicators"
	"github.com/rustyeddy/taengine/journal"
	"github.com/rustyeddy/taengine/market"
	"github.com/rustyeddy/taengine/memo"
)

type algoFunc struct {
	name string
	fn   func(c *Context) error
}

func (a algoFunc) Name() string           { return a.name }
func (a algoFunc) OnBar(c *Context) error { return a.fn(c) }

type recorder struct {
	values []journal.ValueRecord
	runs   []journal.RunRecord
}

func (r *recorder) RecordValue(v journal.ValueRecord) error {
	r.values = append(r.values, v)
	return nil
}

func (r *recorder) RecordRun(rec journal.RunRecord) error {
	r.runs = append(r.runs, rec)
	return nil
}

func (r *recorder) Close() error { return nil }

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func bar(inst string, day int, c float64) market.Bar {
	return market.Bar{
		Time:       day0.AddDate(0, 0, day),
		Instrument: inst,
		Open:       c, High: c + 1, Low: c - 1, Close: c,
		Volume: 100,
	}
}

func TestRunnerGroupsBarsAndJournals(t *testing.T) {
	feed := NewSliceFeed(
		bar("SPY", 0, 1), bar("QQQ", 0, 10),
		bar("SPY", 1, 2), bar("QQQ", 1, 20),
		bar("SPY", 2, 3),
	)
	rec := &recorder{}
	var sizes []int

	algo := algoFunc{name: "probe", fn: func(c *Context) error {
		sizes = append(sizes, len(c.Bars))
		spy, ok := c.Instrument("SPY")
		require.True(t, ok)
		// read twice: one compute per bar
		e1 := indicators.SMA(c.Scope, spy.Close, 2)
		e2 := indicators.SMA(c.Scope, spy.Close, 2)
		require.Same(t, e1, e2)
		c.Emit("SPY", "sma", e1.Current())
		return nil
	}}

	r := &Runner{
		Run:       engine.NewRun(engine.WithID("RUN1")),
		Feed:      feed,
		Algorithm: algo,
		Journal:   rec,
		Name:      "demo",
		Dataset:   "memory",
	}
	res, err := r.Exec(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{2, 2, 1}, sizes)
	assert.Equal(t, "RUN1", res.RunID)
	assert.Equal(t, 3, res.Bars)
	assert.Equal(t, 3, res.Values)
	assert.Equal(t, day0, res.Start)
	assert.Equal(t, day0.AddDate(0, 0, 2), res.End)
	assert.Equal(t, 3, res.Stats.Computes)
	assert.Equal(t, 3, res.Stats.Hits)

	require.Len(t, rec.values, 3)
	assert.Equal(t, []float64{1, 1.5, 2.5}, []float64{rec.values[0].Value, rec.values[1].Value, rec.values[2].Value})
	assert.Equal(t, "RUN1", rec.values[2].RunID)
	assert.Equal(t, 2, rec.values[2].Bar)

	require.Len(t, rec.runs, 1)
	run := rec.runs[0]
	assert.Equal(t, "probe", run.Algorithm)
	assert.Equal(t, "demo", run.Name)
	assert.Equal(t, 3, run.Bars)
	assert.Empty(t, run.Error)
}

func TestRunnerOutOfOrderTimestamps(t *testing.T) {
	rec := &recorder{}
	r := &Runner{
		Run:       engine.NewRun(),
		Feed:      NewSliceFeed(bar("SPY", 1, 1), bar("SPY", 0, 1)),
		Algorithm: algoFunc{name: "noop", fn: func(*Context) error { return nil }},
		Journal:   rec,
	}
	res, err := r.Exec(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrOutOfOrderBar)
	assert.Equal(t, 1, res.Bars)
	assert.ErrorIs(t, r.Run.Err(), engine.ErrOutOfOrderBar)

	require.Len(t, rec.runs, 1)
	assert.Contains(t, rec.runs[0].Error, "out of order bar")
}

func TestRunnerDuplicateInstrument(t *testing.T) {
	r := &Runner{
		Run:       engine.NewRun(),
		Feed:      NewSliceFeed(bar("SPY", 0, 1), bar("SPY", 0, 2)),
		Algorithm: algoFunc{name: "noop", fn: func(*Context) error { return nil }},
	}
	_, err := r.Exec(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestRunnerFatalEngineError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	key := ident.Make(ident.Root, "shared")
	calls := 0
	algo := algoFunc{name: "collide", fn: func(c *Context) error {
		calls++
		engine.Lambda(c.Scope, key, func() float64 { return 1 })
		engine.Stateful(c.Scope, key, func() *counter { return &counter{} })
		return nil
	}}
	r := &Runner{
		Run:       engine.NewRun(engine.WithLogger(zap.New(core))),
		Feed:      NewSliceFeed(bar("SPY", 0, 1), bar("SPY", 1, 1), bar("SPY", 2, 1)),
		Algorithm: algo,
	}
	res, err := r.Exec(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, memo.ErrKeyCollision)
	assert.Equal(t, 1, calls, "aborted after the failing bar")
	assert.Equal(t, 0, res.Bars)
	assert.Equal(t, 1, logs.FilterMessage("run failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("backtest failed").Len())
}

type counter struct{ n int }

func (c *counter) Advance() { c.n++ }

func TestRunnerAlgorithmError(t *testing.T) {
	boom := errors.New("boom")
	r := &Runner{
		Run:       engine.NewRun(),
		Feed:      NewSliceFeed(bar("SPY", 0, 1)),
		Algorithm: algoFunc{name: "bad", fn: func(*Context) error { return boom }},
	}
	_, err := r.Exec(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestRunnerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &Runner{
		Run:       engine.NewRun(),
		Feed:      NewSliceFeed(bar("SPY", 0, 1)),
		Algorithm: algoFunc{name: "noop", fn: func(*Context) error { return nil }},
	}
	_, err := r.Exec(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunnerRequiresFields(t *testing.T) {
	_, err := (&Runner{}).Exec(context.Background())
	assert.Error(t, err)
	_, err = (&Runner{Run: engine.NewRun()}).Exec(context.Background())
	assert.Error(t, err)
	_, err = (&Runner{Run: engine.NewRun(), Feed: NewSliceFeed()}).Exec(context.Background())
	assert.Error(t, err)
}
