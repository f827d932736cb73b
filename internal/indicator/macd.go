package indicator

import "crosswatch/internal/model"

// ComputeMACD derives the MACD and signal lines from the close sequence of s.
// MACD = EMA(fast) - EMA(slow) over the closes; the signal line is
// EMA(signal) applied to the MACD line itself. Output lines share the input
// length; an empty series yields empty lines. With fewer bars than the slow
// span the early values are defined but numerically unstable, so crossover
// classification, not raw magnitude, is the actionable output.
func ComputeMACD(s model.Series, cfg MACDConfig) OscillatorSeries {
	cfg = cfg.Normalize()
	closes := s.Closes()

	fast := emaSeries(closes, cfg.Fast)
	slow := emaSeries(closes, cfg.Slow)

	macd := make([]float64, len(closes))
	for i := range closes {
		macd[i] = fast[i] - slow[i]
	}
	return OscillatorSeries{
		MACD:   macd,
		Signal: emaSeries(macd, cfg.Signal),
	}
}
