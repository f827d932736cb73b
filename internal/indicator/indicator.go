// Package indicator implements the oscillator math run on every scan cycle:
// exponential moving averages, the MACD/signal pair and cumulative VWAP.
//
// All computations are pure series transforms. They allocate fresh output
// slices, never mutate the input bars and carry no state between calls, so
// recomputing over the same series is bit-identical. Undefined points are
// represented as NaN; callers must check before acting on a value.
package indicator

// MACDConfig holds the three EMA spans of the oscillator.
type MACDConfig struct {
	Fast   int `json:"fast"`
	Slow   int `json:"slow"`
	Signal int `json:"signal"`
}

// DefaultMACD is the conventional 12/26/9 parameterization.
var DefaultMACD = MACDConfig{Fast: 12, Slow: 26, Signal: 9}

// Normalize replaces non-positive spans with their conventional defaults.
// Span ordering is not enforced here; config validation owns that.
func (c MACDConfig) Normalize() MACDConfig {
	if c.Fast <= 0 {
		c.Fast = DefaultMACD.Fast
	}
	if c.Slow <= 0 {
		c.Slow = DefaultMACD.Slow
	}
	if c.Signal <= 0 {
		c.Signal = DefaultMACD.Signal
	}
	return c
}

// OscillatorSeries carries the MACD and signal lines, index-aligned with the
// close sequence they were computed from. NaN marks an undefined point.
type OscillatorSeries struct {
	MACD   []float64
	Signal []float64
}

// Len returns the number of points in the oscillator (both lines share it).
func (o OscillatorSeries) Len() int { return len(o.MACD) }
