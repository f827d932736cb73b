package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrEmptySeries marks a fetch that succeeded but returned zero bars.
// Scan cycles treat it the same as a provider failure: the instrument
// is reported data_unavailable for the cycle.
var ErrEmptySeries = errors.New("empty bar series")

// Bar is one OHLCV price bar as delivered by the market-data provider.
// Prices are in the instrument's quote currency; Volume is the traded
// quantity for the bar. Immutable once produced.
type Bar struct {
	TS     time.Time `json:"ts"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Series is the ordered bar history for exactly one instrument.
// Insertion order is chronological order; timestamps are strictly increasing.
type Series struct {
	Symbol   string   `json:"symbol"`
	Interval Interval `json:"interval"`
	Bars     []Bar    `json:"bars"`
}

// Len returns the number of bars.
func (s Series) Len() int { return len(s.Bars) }

// Closes returns the close-price sequence in chronological order.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// LastPrice returns the most recent close. ok is false for an empty series.
func (s Series) LastPrice() (price float64, ok bool) {
	if len(s.Bars) == 0 {
		return 0, false
	}
	return s.Bars[len(s.Bars)-1].Close, true
}

// Interval is the bar granularity requested from the provider.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval1h  Interval = "1h"
)

// ParseInterval validates s against the recognized interval set.
func ParseInterval(s string) (Interval, error) {
	iv := Interval(s)
	if !iv.Valid() {
		return "", fmt.Errorf("unknown interval %q (want 1m, 5m, 15m or 1h)", s)
	}
	return iv, nil
}

// Valid reports whether iv is a recognized interval.
func (iv Interval) Valid() bool {
	switch iv {
	case Interval1m, Interval5m, Interval15m, Interval1h:
		return true
	}
	return false
}

// Duration returns the bar length as a time.Duration.
func (iv Interval) Duration() time.Duration {
	switch iv {
	case Interval1m:
		return time.Minute
	case Interval5m:
		return 5 * time.Minute
	case Interval15m:
		return 15 * time.Minute
	case Interval1h:
		return time.Hour
	}
	return 0
}

// LookbackTradingDays returns how many trading days of history a fetch
// should cover: one day at 1-minute granularity, five otherwise.
func (iv Interval) LookbackTradingDays() int {
	if iv == Interval1m {
		return 1
	}
	return 5
}

// Window is the absolute time range for a bar fetch, derived from the
// interval's lookback via the market calendar.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}
