package indicator

import (
	"math"

	"crosswatch/internal/model"
)

// ComputeVWAP returns the cumulative volume-weighted average price per bar.
// Typical price per bar is (high + low + close) / 3; VWAP at index i divides
// the running typical-price*volume sum by the running volume sum over bars
// 0..i. While the cumulative volume is zero the value is NaN, never coerced
// to zero or infinity; a zero-volume bar after trading has started leaves
// the running average unchanged.
func ComputeVWAP(s model.Series) []float64 {
	out := make([]float64, len(s.Bars))
	var cumPV, cumVol float64
	for i, b := range s.Bars {
		tp := (b.High + b.Low + b.Close) / 3
		cumPV += tp * b.Volume
		cumVol += b.Volume
		if cumVol == 0 {
			out[i] = math.NaN()
		} else {
			out[i] = cumPV / cumVol
		}
	}
	return out
}

// LastVWAP returns the final defined VWAP value of s, or ok=false when the
// series is empty or the entire volume column is zero.
func LastVWAP(s model.Series) (float64, bool) {
	vwap := ComputeVWAP(s)
	if len(vwap) == 0 {
		return 0, false
	}
	v := vwap[len(vwap)-1]
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
