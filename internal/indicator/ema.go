package indicator

// emaSeries computes the exponential moving average of values with smoothing
// α = 2/(span+1), seeded with the first input value (recursive form, no
// finite-sample bias correction). Every index is therefore defined; early
// values simply weight a short history and stabilize as the series grows.
// A NaN input poisons the recursion from its position onward.
func emaSeries(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}
