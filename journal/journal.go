// Package journal records what a run computed: the indicator values a
// strategy emits on each bar and one summary row per run.
package journal

import (
	"time"
)

// ValueRecord is one emitted indicator value.
type ValueRecord struct {
	RunID      string
	Bar        int
	Time       time.Time
	Instrument string
	Name       string
	Value      float64
}

// RunRecord summarizes one run.
type RunRecord struct {
	RunID     string
	Name      string
	Algorithm string
	Dataset   string
	Created   time.Time

	Start time.Time
	End   time.Time
	Bars  int

	Values int

	// memo store activity
	Entries  int
	Hits     int
	Computes int

	Config []byte
	// Error is the fatal error that stopped the run, if any.
	Error string
}

type Journal interface {
	RecordValue(ValueRecord) error
	RecordRun(RunRecord) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordValue(ValueRecord) error { return nil }
func (Nop) RecordRun(RunRecord) error     { return nil }
func (Nop) Close() error                  { return nil }
