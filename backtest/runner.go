// Package backtest drives an indicator run over historical bars: it groups
// feed rows into simulated bars, advances the engine clock, appends the
// bars to their instruments and hands each bar to an Algorithm.
package backtest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/taengine/engine"
	"github.com/rustyeddy/taengine/journal"
	"github.com/rustyeddy/taengine/market"
	"github.com/rustyeddy/taengine/memo"
)

// Algorithm is called once per simulated bar, after every bar of that
// timestamp has been appended to its instrument.
type Algorithm interface {
	Name() string
	OnBar(c *Context) error
}

// Context is what an Algorithm sees on one bar.
type Context struct {
	ctx   context.Context
	runID string

	// Scope is the root scope for indicator calls.
	Scope    engine.Scope
	Bar      int
	Time     time.Time
	Universe *market.Universe
	// Bars are the rows that arrived on this bar.
	Bars []market.Bar

	emitted []journal.ValueRecord
}

func (c *Context) Context() context.Context { return c.ctx }

// Instrument returns the named instrument's input series.
func (c *Context) Instrument(name string) (*market.Instrument, bool) {
	return c.Universe.Get(name)
}

// Traded reports whether name printed a bar at this timestamp.
func (c *Context) Traded(name string) bool {
	for _, b := range c.Bars {
		if b.Instrument == name {
			return true
		}
	}
	return false
}

// Emit records a value for the journal.
func (c *Context) Emit(instrument, name string, v float64) {
	c.emitted = append(c.emitted, journal.ValueRecord{
		RunID:      c.runID,
		Bar:        c.Bar,
		Time:       c.Time,
		Instrument: instrument,
		Name:       name,
		Value:      v,
	})
}

// Emitted returns the values recorded so far on this bar.
func (c *Context) Emitted() []journal.ValueRecord { return c.emitted }

// Runner drives a run forward using a feed and an algorithm.
type Runner struct {
	Run       *engine.Run
	Feed      Feed
	Algorithm Algorithm
	// Journal defaults to journal.Nop.
	Journal journal.Journal
	// Log defaults to the run's logger.
	Log *zap.Logger

	// Name, Dataset and Config are copied into the run record.
	Name    string
	Dataset string
	Config  []byte
}

// Result is a summary of a finished run.
type Result struct {
	RunID  string
	Bars   int
	Values int
	Start  time.Time
	End    time.Time
	Stats  memo.Stats
}

// Exec executes the loop:
//  1. read every row of the next timestamp
//  2. advance the engine clock
//  3. push the rows into the universe
//  4. algorithm.OnBar
//  5. journal emitted values
//
// A fatal engine error, a timestamp going backwards or a cancelled ctx ends
// the run. The run record is journaled either way.
func (r *Runner) Exec(ctx context.Context) (Result, error) {
	if r.Run == nil {
		return Result{}, fmt.Errorf("backtest: Run is required")
	}
	if r.Feed == nil {
		return Result{}, fmt.Errorf("backtest: Feed is required")
	}
	if r.Algorithm == nil {
		return Result{}, fmt.Errorf("backtest: Algorithm is required")
	}
	defer r.Feed.Close()

	j := r.Journal
	if j == nil {
		j = journal.Nop{}
	}
	log := r.Log
	if log == nil {
		log = r.Run.Logger()
	}
	log = log.With(zap.String("algorithm", r.Algorithm.Name()))

	res := Result{RunID: r.Run.ID()}
	created := time.Now().UTC()
	log.Info("backtest started", zap.String("dataset", r.Dataset))

	err := r.loop(ctx, j, log, &res)

	res.Stats = r.Run.Store().Stats()
	rec := journal.RunRecord{
		RunID:     res.RunID,
		Name:      r.Name,
		Algorithm: r.Algorithm.Name(),
		Dataset:   r.Dataset,
		Created:   created,
		Start:     res.Start,
		End:       res.End,
		Bars:      res.Bars,
		Values:    res.Values,
		Entries:   res.Stats.Entries,
		Hits:      res.Stats.Hits,
		Computes:  res.Stats.Computes,
		Config:    r.Config,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if jerr := j.RecordRun(rec); jerr != nil && err == nil {
		err = fmt.Errorf("backtest: record run: %w", jerr)
	}

	if err != nil {
		log.Error("backtest failed", zap.Int("bars", res.Bars), zap.Error(err))
		return res, err
	}
	log.Info("backtest finished",
		zap.Int("bars", res.Bars),
		zap.Int("values", res.Values),
		zap.Int("computes", res.Stats.Computes),
		zap.Int("hits", res.Stats.Hits),
	)
	return res, nil
}

func (r *Runner) loop(ctx context.Context, j journal.Journal, log *zap.Logger, res *Result) error {
	uni := market.NewUniverse(r.Run.Depth())
	g := &grouper{feed: r.Feed}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		group, err := g.next()
		if err != nil {
			r.Run.Fail(err)
			return err
		}
		if len(group) == 0 {
			return nil
		}
		t := group[0].Time

		if err := r.Run.Advance(); err != nil {
			return err
		}
		for _, b := range group {
			if err := uni.Push(b); err != nil {
				return fmt.Errorf("backtest: %w", err)
			}
		}

		c := &Context{
			ctx:      ctx,
			runID:    res.RunID,
			Scope:    r.Run.Root(),
			Bar:      r.Run.Bar(),
			Time:     t,
			Universe: uni,
			Bars:     group,
		}
		if err := r.Algorithm.OnBar(c); err != nil {
			return fmt.Errorf("backtest: bar %d %s: %w", c.Bar, t.Format(time.RFC3339), err)
		}
		if err := r.Run.Err(); err != nil {
			return err
		}

		if res.Start.IsZero() {
			res.Start = t
		}
		res.End = t
		res.Bars++

		for _, v := range c.emitted {
			if err := j.RecordValue(v); err != nil {
				return fmt.Errorf("backtest: record value: %w", err)
			}
			res.Values++
		}
		log.Debug("bar", zap.Int("bar", c.Bar), zap.Time("time", t), zap.Int("rows", len(group)))
	}
}

// grouper collects consecutive feed rows sharing a timestamp.
type grouper struct {
	feed    Feed
	pending *market.Bar
	last    time.Time
}

func (g *grouper) next() ([]market.Bar, error) {
	var group []market.Bar
	seen := make(map[string]bool)

	for {
		var b market.Bar
		if g.pending != nil {
			b, g.pending = *g.pending, nil
		} else {
			nb, ok, err := g.feed.Next()
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			b = nb
		}

		if len(group) == 0 {
			if !g.last.IsZero() && !b.Time.After(g.last) {
				return nil, fmt.Errorf("backtest: bar %s %s not after %s: %w",
					b.Instrument, b.Time.Format(time.RFC3339), g.last.Format(time.RFC3339), engine.ErrOutOfOrderBar)
			}
			group = append(group, b)
			seen[b.Instrument] = true
			continue
		}
		if t := group[0].Time; !b.Time.Equal(t) {
			g.pending = &b
			break
		}
		if seen[b.Instrument] {
			return nil, fmt.Errorf("backtest: duplicate %s bar at %s", b.Instrument, b.Time.Format(time.RFC3339))
		}
		seen[b.Instrument] = true
		group = append(group, b)
	}

	if len(group) > 0 {
		g.last = group[0].Time
	}
	return group, nil
}
