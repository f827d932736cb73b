package indicator

import (
	"math"

	"crosswatch/internal/model"
)

// Detect classifies the most recent MACD/signal relationship of osc.
//
// Undefined (NaN) points are dropped from each line independently, then the
// last two surviving points of each are compared. Fewer than two points on
// either line yields CrossInsufficient. A crossing requires strict
// inequality on both sides: equality at either sampled point is CrossNone,
// which keeps flat or quantized data from firing spurious signals. No
// look-back beyond the two samples and no smoothing is applied here.
func Detect(osc OscillatorSeries) model.Crossover {
	mPrev, mNow, ok := lastTwoDefined(osc.MACD)
	if !ok {
		return model.Crossover{Kind: model.CrossInsufficient}
	}
	sPrev, sNow, ok := lastTwoDefined(osc.Signal)
	if !ok {
		return model.Crossover{Kind: model.CrossInsufficient}
	}

	c := model.Crossover{
		Kind:       model.CrossNone,
		MacdPrev:   mPrev,
		MacdNow:    mNow,
		SignalPrev: sPrev,
		SignalNow:  sNow,
	}
	switch {
	case mPrev < sPrev && mNow > sNow:
		c.Kind = model.CrossBuy
	case mPrev > sPrev && mNow < sNow:
		c.Kind = model.CrossSell
	}
	return c
}

// lastTwoDefined walks v from the tail and returns the last two non-NaN
// values in series order. ok is false when fewer than two exist.
func lastTwoDefined(v []float64) (prev, now float64, ok bool) {
	found := 0
	for i := len(v) - 1; i >= 0 && found < 2; i-- {
		if math.IsNaN(v[i]) {
			continue
		}
		if found == 0 {
			now = v[i]
		} else {
			prev = v[i]
		}
		found++
	}
	return prev, now, found == 2
}
