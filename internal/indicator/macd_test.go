package indicator

import (
	"math"
	"testing"
	"time"

	"crosswatch/internal/model"
)

// ────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────

// seriesFromCloses builds a series where only the close column matters.
func seriesFromCloses(closes ...float64) model.Series {
	base := time.Date(2026, time.August, 19, 9, 30, 0, 0, time.UTC)
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{
			TS:     base.Add(time.Duration(i) * 5 * time.Minute),
			Open:   c,
			High:   c + 0.5,
			Low:    c - 0.5,
			Close:  c,
			Volume: 1000,
		}
	}
	return model.Series{Symbol: "TEST", Interval: model.Interval5m, Bars: bars}
}

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

// ────────────────────────────────────────────────────────────
// EMA Correctness
// ────────────────────────────────────────────────────────────

func TestEMA_SeededWithFirstValue(t *testing.T) {
	// EMA(span=2) over [10, 11, 12], α = 2/(2+1) = 2/3:
	//   ema[0] = 10                            (seed, no bias correction)
	//   ema[1] = (2/3)*11 + (1/3)*10    = 32/3  ≈ 10.666667
	//   ema[2] = (2/3)*12 + (1/3)*(32/3) = 104/9 ≈ 11.555556
	got := emaSeries([]float64{10, 11, 12}, 2)
	want := []float64{10, 32.0 / 3, 104.0 / 9}
	if len(got) != len(want) {
		t.Fatalf("length: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		assertClose(t, "ema[2] index "+string(rune('0'+i)), got[i], want[i], 1e-9)
	}
}

func TestEMA_EmptyInput(t *testing.T) {
	if got := emaSeries(nil, 9); len(got) != 0 {
		t.Errorf("empty input: got %d values, want 0", len(got))
	}
}

// ────────────────────────────────────────────────────────────
// MACD Correctness
// ────────────────────────────────────────────────────────────

func TestMACD_HandComputed(t *testing.T) {
	// Closes [10, 11, 12] with spans fast=2, slow=3, signal=2.
	//
	// fast EMA (α=2/3): [10, 32/3, 104/9]
	// slow EMA (α=1/2): [10, 10.5, 11.25]
	// MACD = fast - slow:
	//   macd[0] = 0
	//   macd[1] = 32/3 - 21/2  = 1/6   ≈ 0.166667
	//   macd[2] = 104/9 - 45/4 = 11/36 ≈ 0.305556
	// signal = EMA(macd, α=2/3):
	//   sig[0] = 0
	//   sig[1] = (2/3)*(1/6)                 = 1/9   ≈ 0.111111
	//   sig[2] = (2/3)*(11/36) + (1/3)*(1/9) = 13/54 ≈ 0.240741
	osc := ComputeMACD(seriesFromCloses(10, 11, 12), MACDConfig{Fast: 2, Slow: 3, Signal: 2})

	wantMACD := []float64{0, 1.0 / 6, 11.0 / 36}
	wantSig := []float64{0, 1.0 / 9, 13.0 / 54}
	if osc.Len() != 3 {
		t.Fatalf("oscillator length: got %d, want 3", osc.Len())
	}
	for i := range wantMACD {
		assertClose(t, "MACD", osc.MACD[i], wantMACD[i], 1e-9)
		assertClose(t, "signal", osc.Signal[i], wantSig[i], 1e-9)
	}
}

func TestMACD_ConstantSeriesConvergesToZero(t *testing.T) {
	// Fast and slow EMAs of a constant both equal the constant, so MACD and
	// the signal line are exactly zero at every index.
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 250.0
	}
	osc := ComputeMACD(seriesFromCloses(closes...), DefaultMACD)
	for i := 0; i < osc.Len(); i++ {
		if osc.MACD[i] != 0 {
			t.Errorf("MACD[%d]: got %v, want 0 for constant closes", i, osc.MACD[i])
		}
		if osc.Signal[i] != 0 {
			t.Errorf("signal[%d]: got %v, want 0 for constant closes", i, osc.Signal[i])
		}
	}
}

func TestMACD_MonotonicRisePositiveAfterWarmup(t *testing.T) {
	// On a strictly increasing series the fast EMA tracks price more closely
	// than the slow EMA, so MACD is positive once past the slow span.
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	osc := ComputeMACD(seriesFromCloses(closes...), DefaultMACD)
	for i := 26; i < osc.Len(); i++ {
		if osc.MACD[i] <= 0 {
			t.Errorf("MACD[%d]: got %v, want > 0 on monotonic rise", i, osc.MACD[i])
		}
	}
}

func TestMACD_Deterministic(t *testing.T) {
	// Recomputation over the identical series must be bit-identical.
	s := seriesFromCloses(101.5, 103.25, 99.75, 104.5, 102.0, 108.125, 107.5)
	a := ComputeMACD(s, DefaultMACD)
	b := ComputeMACD(s, DefaultMACD)
	for i := 0; i < a.Len(); i++ {
		if math.Float64bits(a.MACD[i]) != math.Float64bits(b.MACD[i]) {
			t.Errorf("MACD[%d] differs across recomputation: %v vs %v", i, a.MACD[i], b.MACD[i])
		}
		if math.Float64bits(a.Signal[i]) != math.Float64bits(b.Signal[i]) {
			t.Errorf("signal[%d] differs across recomputation: %v vs %v", i, a.Signal[i], b.Signal[i])
		}
	}
}

func TestMACD_EmptySeries(t *testing.T) {
	osc := ComputeMACD(model.Series{Symbol: "EMPTY"}, DefaultMACD)
	if osc.Len() != 0 || len(osc.Signal) != 0 {
		t.Errorf("empty series: got %d/%d points, want 0/0", len(osc.MACD), len(osc.Signal))
	}
}

func TestMACDConfig_Normalize(t *testing.T) {
	got := MACDConfig{}.Normalize()
	if got != DefaultMACD {
		t.Errorf("zero config: got %+v, want %+v", got, DefaultMACD)
	}
	custom := MACDConfig{Fast: 5, Slow: 35, Signal: 5}
	if got := custom.Normalize(); got != custom {
		t.Errorf("valid config mutated: got %+v, want %+v", got, custom)
	}
	partial := MACDConfig{Fast: 8, Slow: 0, Signal: -1}.Normalize()
	want := MACDConfig{Fast: 8, Slow: 26, Signal: 9}
	if partial != want {
		t.Errorf("partial config: got %+v, want %+v", partial, want)
	}
}
