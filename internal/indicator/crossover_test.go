package indicator

import (
	"math"
	"testing"

	"crosswatch/internal/model"
)

var nan = math.NaN()

func TestDetect_CanonicalBuy(t *testing.T) {
	// MACD moves from below the signal line to above it.
	osc := OscillatorSeries{MACD: []float64{-1, 1}, Signal: []float64{0, 0}}
	got := Detect(osc)
	if got.Kind != model.CrossBuy {
		t.Fatalf("kind: got %s, want %s", got.Kind, model.CrossBuy)
	}
	if got.MacdPrev != -1 || got.MacdNow != 1 || got.SignalPrev != 0 || got.SignalNow != 0 {
		t.Errorf("audit points: got %+v", got)
	}
}

func TestDetect_CanonicalSell(t *testing.T) {
	osc := OscillatorSeries{MACD: []float64{1, -1}, Signal: []float64{0, 0}}
	if got := Detect(osc); got.Kind != model.CrossSell {
		t.Errorf("kind: got %s, want %s", got.Kind, model.CrossSell)
	}
}

func TestDetect_NoCrossoverWhenParallel(t *testing.T) {
	// MACD stays above the signal line on both samples.
	osc := OscillatorSeries{MACD: []float64{2, 3}, Signal: []float64{1, 1}}
	if got := Detect(osc); got.Kind != model.CrossNone {
		t.Errorf("kind: got %s, want %s", got.Kind, model.CrossNone)
	}
}

func TestDetect_EqualityIsNotACrossing(t *testing.T) {
	// Strict inequality is required on both sides; ties never fire.
	cases := []struct {
		name string
		osc  OscillatorSeries
	}{
		{"equal_both_ends", OscillatorSeries{MACD: []float64{1, 2}, Signal: []float64{1, 2}}},
		{"tie_at_prev", OscillatorSeries{MACD: []float64{0, 1}, Signal: []float64{0, 0}}},
		{"tie_at_now", OscillatorSeries{MACD: []float64{-1, 0}, Signal: []float64{0, 0}}},
		{"flat_zero", OscillatorSeries{MACD: []float64{0, 0}, Signal: []float64{0, 0}}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Detect(c.osc); got.Kind != model.CrossNone {
				t.Errorf("kind: got %s, want %s", got.Kind, model.CrossNone)
			}
		})
	}
}

func TestDetect_InsufficientHistory(t *testing.T) {
	cases := []struct {
		name string
		osc  OscillatorSeries
	}{
		{"empty", OscillatorSeries{}},
		{"one_point", OscillatorSeries{MACD: []float64{1}, Signal: []float64{1}}},
		{"all_nan", OscillatorSeries{MACD: []float64{nan, nan}, Signal: []float64{nan, nan}}},
		{"signal_too_short", OscillatorSeries{MACD: []float64{-1, 1}, Signal: []float64{nan, 0}}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Detect(c.osc)
			if got.Kind != model.CrossInsufficient {
				t.Errorf("kind: got %s, want %s", got.Kind, model.CrossInsufficient)
			}
			if got.MacdNow != 0 || got.SignalNow != 0 {
				t.Errorf("audit points should stay zero on insufficient history: %+v", got)
			}
		})
	}
}

func TestDetect_DropsUndefinedPointsIndependently(t *testing.T) {
	// NaN warm-up values are discarded per line before sampling the last two
	// defined points, so the lines may clean to different source indexes.
	osc := OscillatorSeries{
		MACD:   []float64{nan, -1, 1},
		Signal: []float64{0, nan, 0},
	}
	got := Detect(osc)
	if got.Kind != model.CrossBuy {
		t.Fatalf("kind: got %s, want %s", got.Kind, model.CrossBuy)
	}
	if got.MacdPrev != -1 || got.SignalPrev != 0 {
		t.Errorf("cleaned sampling: got %+v", got)
	}
}

func TestDetect_UsesOnlyLastTwoPoints(t *testing.T) {
	// Older history is ignored: a crossing further back does not fire.
	osc := OscillatorSeries{
		MACD:   []float64{-5, 5, 6, 7},
		Signal: []float64{0, 0, 0, 0},
	}
	if got := Detect(osc); got.Kind != model.CrossNone {
		t.Errorf("kind: got %s, want %s (crossing is stale)", got.Kind, model.CrossNone)
	}
}

func TestDetect_FromComputedOscillator(t *testing.T) {
	// End-to-end: 20 bars of steady decline keep MACD falling toward its
	// steady-state lag, with the signal line (an EMA of MACD) trailing just
	// above it. A single sharp recovery bar then snaps MACD upward through
	// the slower-moving signal line, so the final two points straddle it.
	// The series ends on the reversal bar: one bar later MACD would already
	// sit above the signal line on both samples and no longer be a crossing.
	closes := make([]float64, 0, 21)
	for i := 0; i < 20; i++ { // decline 200 → 105, 5 per bar
		closes = append(closes, 200-float64(i)*5)
	}
	closes = append(closes, 145) // recovery bar
	osc := ComputeMACD(seriesFromCloses(closes...), MACDConfig{Fast: 3, Slow: 6, Signal: 4})

	got := Detect(osc)
	if got.Kind != model.CrossBuy {
		t.Fatalf("kind: got %s, want %s (macd %.4f→%.4f, signal %.4f→%.4f)",
			got.Kind, model.CrossBuy, got.MacdPrev, got.MacdNow, got.SignalPrev, got.SignalNow)
	}
	if !(got.MacdPrev < got.SignalPrev && got.MacdNow > got.SignalNow) {
		t.Errorf("audit points inconsistent with a buy crossing: %+v", got)
	}
}
