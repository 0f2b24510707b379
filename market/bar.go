// Package market holds the per-bar inputs the indicator engine consumes:
// OHLCV bars and, per instrument, the input series they are appended to.
package market

import (
	"fmt"
	"time"
)

// Bar is one instrument's OHLCV values for a simulated period.
type Bar struct {
	Time       time.Time
	Instrument string
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
}

// Validate rejects bars whose prices are inconsistent.
func (b Bar) Validate() error {
	if b.Instrument == "" {
		return fmt.Errorf("bar %s: instrument is required", b.Time.Format(time.RFC3339))
	}
	if b.High < b.Low {
		return fmt.Errorf("bar %s %s: high %.6f below low %.6f",
			b.Instrument, b.Time.Format(time.RFC3339), b.High, b.Low)
	}
	if b.Volume < 0 {
		return fmt.Errorf("bar %s %s: negative volume", b.Instrument, b.Time.Format(time.RFC3339))
	}
	return nil
}

// Typical returns (high + low + close) / 3.
func (b Bar) Typical() float64 {
	return (b.High + b.Low + b.Close) / 3
}

// Field names one input series of an instrument.
type Field string

const (
	Open   Field = "open"
	High   Field = "high"
	Low    Field = "low"
	Close  Field = "close"
	Volume Field = "volume"
)

// Fields lists every input field in OHLCV order.
var Fields = []Field{Open, High, Low, Close, Volume}

// ParseField accepts the lower-case field names.
func ParseField(s string) (Field, error) {
	for _, f := range Fields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown input field %q (supported: open, high, low, close, volume)", s)
}

func (b Bar) Value(f Field) float64 {
	switch f {
	case Open:
		return b.Open
	case High:
		return b.High
	case Low:
		return b.Low
	case Volume:
		return b.Volume
	default:
		return b.Close
	}
}
