package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/taengine/market"
)

// Feed yields bars in time order. Implementations should be deterministic
// and return (ok=false, err=nil) at EOF.
type Feed interface {
	Next() (b market.Bar, ok bool, err error)
	Close() error
}

// CSVFeed reads bar rows:
//
//	time,instrument,open,high,low,close[,volume]
//
// where time is RFC3339 or RFC3339Nano.
//
// It optionally filters bars to [From, To).
// Header row ("time,...") is allowed.
// Empty/short rows are skipped.
type CSVFeed struct {
	c    io.Closer
	r    *csv.Reader
	from time.Time
	to   time.Time
	line int

	sawFirst bool
}

func NewCSVFeed(path string, from, to time.Time) (*CSVFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	feed := NewCSVFeedReader(f, from, to)
	feed.c = f
	return feed, nil
}

// NewCSVFeedReader reads rows from r. Close does not close r.
func NewCSVFeedReader(r io.Reader, from, to time.Time) *CSVFeed {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return &CSVFeed{r: cr, from: from, to: to}
}

func (f *CSVFeed) Close() error {
	if f.c != nil {
		return f.c.Close()
	}
	return nil
}

func (f *CSVFeed) Next() (market.Bar, bool, error) {
	for {
		row, err := f.r.Read()
		if err == io.EOF {
			return market.Bar{}, false, nil
		}
		if err != nil {
			return market.Bar{}, false, err
		}
		f.line++
		if len(row) == 0 {
			continue
		}

		// Allow a single header row
		if !f.sawFirst {
			f.sawFirst = true
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}

		b, ok, err := parseBarRow(row)
		if err != nil {
			return market.Bar{}, false, fmt.Errorf("line %d: %w", f.line, err)
		}
		if !ok || !inRange(b.Time, f.from, f.to) {
			continue
		}
		return b, true, nil
	}
}

func parseBarRow(row []string) (market.Bar, bool, error) {
	// Need at least: time,instrument,open,high,low,close
	if len(row) < 6 {
		return market.Bar{}, false, nil
	}

	ts := strings.TrimSpace(row[0])
	if ts == "" {
		return market.Bar{}, false, nil
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return market.Bar{}, false, fmt.Errorf("bad time %q: %w", ts, err)
	}

	inst := strings.TrimSpace(row[1])
	if inst == "" {
		return market.Bar{}, false, nil
	}

	names := []string{"open", "high", "low", "close", "volume"}
	var v [5]float64
	for i := 0; i < 5 && i+2 < len(row); i++ {
		s := strings.TrimSpace(row[i+2])
		if s == "" && i == 4 {
			break
		}
		if v[i], err = strconv.ParseFloat(s, 64); err != nil {
			return market.Bar{}, false, fmt.Errorf("bad %s %q: %w", names[i], row[i+2], err)
		}
	}

	b := market.Bar{
		Time:       t,
		Instrument: inst,
		Open:       v[0],
		High:       v[1],
		Low:        v[2],
		Close:      v[3],
		Volume:     v[4],
	}
	return b, true, b.Validate()
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}

// SliceFeed replays bars held in memory.
type SliceFeed struct {
	bars []market.Bar
	i    int
}

func NewSliceFeed(bars ...market.Bar) *SliceFeed {
	return &SliceFeed{bars: bars}
}

func (f *SliceFeed) Next() (market.Bar, bool, error) {
	if f.i >= len(f.bars) {
		return market.Bar{}, false, nil
	}
	b := f.bars[f.i]
	f.i++
	return b, true, nil
}

func (f *SliceFeed) Close() error { return nil }
