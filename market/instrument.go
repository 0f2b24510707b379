package market

import (
	"fmt"
	"sort"
	"time"

	"github.com/rustyeddy/taengine/ident"
	"github.com/rustyeddy/taengine/series"
)

// Instrument owns the raw input series of one tradable instrument. The
// driver is their only producer: one Push per bar the instrument trades.
type Instrument struct {
	Name string

	Open   *series.Series[float64]
	High   *series.Series[float64]
	Low    *series.Series[float64]
	Close  *series.Series[float64]
	Volume *series.Series[float64]

	key  ident.Key
	last time.Time
}

// NewInstrument creates empty input series keyed by the instrument name.
func NewInstrument(name string, depth int) *Instrument {
	key := ident.Make(ident.Root, "market.Instrument", ident.Str(name))
	mk := func(f Field) *series.Series[float64] {
		return series.New[float64](key.Child(ident.Site(f)), depth)
	}
	return &Instrument{
		Name:   name,
		Open:   mk(Open),
		High:   mk(High),
		Low:    mk(Low),
		Close:  mk(Close),
		Volume: mk(Volume),
		key:    key,
	}
}

func (in *Instrument) Key() ident.Key { return in.key }

// Bars returns how many bars have been pushed.
func (in *Instrument) Bars() int { return in.Close.Count() }

// LastTime returns the time of the latest pushed bar.
func (in *Instrument) LastTime() time.Time { return in.last }

// Field returns the input series for f.
func (in *Instrument) Field(f Field) *series.Series[float64] {
	switch f {
	case Open:
		return in.Open
	case High:
		return in.High
	case Low:
		return in.Low
	case Volume:
		return in.Volume
	default:
		return in.Close
	}
}

// Push appends b to every input series.
func (in *Instrument) Push(b Bar) error {
	if b.Instrument != in.Name {
		return fmt.Errorf("instrument %s: bar for %s", in.Name, b.Instrument)
	}
	if err := b.Validate(); err != nil {
		return err
	}
	in.Open.Append(b.Open)
	in.High.Append(b.High)
	in.Low.Append(b.Low)
	in.Close.Append(b.Close)
	in.Volume.Append(b.Volume)
	in.last = b.Time
	return nil
}

// Current returns the latest bar, or false before the first Push.
func (in *Instrument) Current() (Bar, bool) {
	if in.Close.Len() == 0 {
		return Bar{}, false
	}
	return Bar{
		Time:       in.last,
		Instrument: in.Name,
		Open:       in.Open.Current(),
		High:       in.High.Current(),
		Low:        in.Low.Current(),
		Close:      in.Close.Current(),
		Volume:     in.Volume.Current(),
	}, true
}

// Universe is the set of instruments seen during a run.
type Universe struct {
	depth int
	insts map[string]*Instrument
}

func NewUniverse(depth int) *Universe {
	return &Universe{depth: depth, insts: make(map[string]*Instrument)}
}

// Push routes b to its instrument, creating it on first sight.
func (u *Universe) Push(b Bar) error {
	in, ok := u.insts[b.Instrument]
	if !ok {
		in = NewInstrument(b.Instrument, u.depth)
		u.insts[b.Instrument] = in
	}
	return in.Push(b)
}

func (u *Universe) Get(name string) (*Instrument, bool) {
	in, ok := u.insts[name]
	return in, ok
}

// Names returns the instrument names, sorted.
func (u *Universe) Names() []string {
	out := make([]string, 0, len(u.insts))
	for n := range u.insts {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
