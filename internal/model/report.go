package model

import (
	"encoding/json"
	"sort"
	"time"
)

// Cross classifies the most recent oscillator/signal transition.
type Cross string

const (
	CrossBuy          Cross = "BUY"          // oscillator crossed above its signal line
	CrossSell         Cross = "SELL"         // oscillator crossed below its signal line
	CrossNone         Cross = "NONE"         // no crossing between the last two samples
	CrossInsufficient Cross = "INSUFFICIENT" // fewer than two defined points to compare
)

// Actionable reports whether the kind represents a directional signal.
func (c Cross) Actionable() bool { return c == CrossBuy || c == CrossSell }

// Crossover is the detector verdict plus the two compared point-pairs,
// kept for audit. The point fields are zero when Kind is INSUFFICIENT.
type Crossover struct {
	Kind       Cross   `json:"kind"`
	MacdPrev   float64 `json:"macd_prev"`
	MacdNow    float64 `json:"macd_now"`
	SignalPrev float64 `json:"signal_prev"`
	SignalNow  float64 `json:"signal_now"`
}

// Instrument evaluation statuses reported per cycle.
const (
	StatusOK          = "ok"
	StatusUnavailable = "data_unavailable"
)

// InstrumentReport is the per-instrument outcome of one refresh cycle.
// Vwap is nil when the session VWAP is undefined (zero cumulative volume).
type InstrumentReport struct {
	Symbol      string    `json:"symbol"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	LastPrice   float64   `json:"last_price"`
	Vwap        *float64  `json:"vwap,omitempty"`
	Bars        int       `json:"bars"`
	Crossover   Crossover `json:"crossover"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// LatestKey returns the Redis key holding the most recent report JSON.
func (r *InstrumentReport) LatestKey() string { return "report:latest:" + r.Symbol }

// StreamKey returns the Redis stream key: "reports:{symbol}".
func (r *InstrumentReport) StreamKey() string { return "reports:" + r.Symbol }

// Channel returns the PubSub channel: "pub:report:{symbol}".
func (r *InstrumentReport) Channel() string { return "pub:report:" + r.Symbol }

// JSON returns the JSON-encoded report entry.
func (r *InstrumentReport) JSON() []byte {
	b, _ := json.Marshal(r)
	return b
}

// CycleReport aggregates one refresh cycle across all instruments.
// Produced fresh each cycle and never mutated after construction.
type CycleReport struct {
	Cycle      int64                       `json:"cycle"`
	StartedAt  time.Time                   `json:"started_at"`
	FinishedAt time.Time                   `json:"finished_at"`
	Entries    map[string]InstrumentReport `json:"entries"`
}

// Symbols returns the instrument identifiers in sorted order, so report
// consumers iterate deterministically.
func (cr *CycleReport) Symbols() []string {
	out := make([]string, 0, len(cr.Entries))
	for sym := range cr.Entries {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// JSON returns the JSON-encoded cycle report.
func (cr *CycleReport) JSON() []byte {
	b, _ := json.Marshal(cr)
	return b
}

// PubSub channel and stream for emitted alerts.
const (
	AlertChannel = "pub:alert"
	AlertStream  = "alerts"
)

// AlertIntent is a notification request produced by the alert gate.
// Delivery is the transport layer's concern; the core only constructs these.
type AlertIntent struct {
	Symbol    string    `json:"symbol"`
	Kind      Cross     `json:"kind"`
	LastPrice float64   `json:"last_price"`
	Message   string    `json:"message"`
	TS        time.Time `json:"ts"`
}

// Subject returns the notification subject line.
func (a *AlertIntent) Subject() string { return "Trading Alert: " + a.Symbol }

// JSON returns the JSON-encoded intent.
func (a *AlertIntent) JSON() []byte {
	b, _ := json.Marshal(a)
	return b
}
