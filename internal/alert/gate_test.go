package alert

import (
	"testing"
	"time"

	"crosswatch/internal/model"
)

var cycleEnd = time.Date(2026, time.August, 19, 14, 35, 0, 0, time.UTC)

// reportWith builds a single-cycle report from per-symbol entries.
func reportWith(entries ...model.InstrumentReport) *model.CycleReport {
	r := &model.CycleReport{
		Cycle:      7,
		StartedAt:  cycleEnd.Add(-2 * time.Second),
		FinishedAt: cycleEnd,
		Entries:    make(map[string]model.InstrumentReport),
	}
	for _, e := range entries {
		r.Entries[e.Symbol] = e
	}
	return r
}

func okEntry(sym string, kind model.Cross, price float64) model.InstrumentReport {
	return model.InstrumentReport{
		Symbol:    sym,
		Status:    model.StatusOK,
		LastPrice: price,
		Bars:      390,
		Crossover: model.Crossover{Kind: kind},
	}
}

func TestGate_DisabledProducesNothing(t *testing.T) {
	g := NewGate(Policy{Enabled: false})
	got := g.Evaluate(reportWith(okEntry("AAPL", model.CrossBuy, 189.50)))
	if len(got) != 0 {
		t.Errorf("disabled gate fired %d intents", len(got))
	}
}

func TestGate_DefaultRefiresEveryCycle(t *testing.T) {
	// Without FireOnce a standing crossover alerts on every cycle.
	g := NewGate(Policy{Enabled: true})
	rep := reportWith(okEntry("AAPL", model.CrossBuy, 189.50))
	for cycle := 0; cycle < 3; cycle++ {
		if got := g.Evaluate(rep); len(got) != 1 {
			t.Fatalf("cycle %d: got %d intents, want 1", cycle, len(got))
		}
	}
}

func TestGate_FireOnceSuppressesWhilePersisting(t *testing.T) {
	g := NewGate(Policy{Enabled: true, FireOnce: true})

	buy := reportWith(okEntry("AAPL", model.CrossBuy, 189.50))
	if got := g.Evaluate(buy); len(got) != 1 {
		t.Fatalf("first BUY: got %d intents, want 1", len(got))
	}
	if got := g.Evaluate(buy); len(got) != 0 {
		t.Fatalf("persisting BUY: got %d intents, want 0", len(got))
	}

	// A cycle with no crossing re-arms the symbol.
	none := reportWith(okEntry("AAPL", model.CrossNone, 189.10))
	if got := g.Evaluate(none); len(got) != 0 {
		t.Fatalf("NONE cycle: got %d intents, want 0", len(got))
	}
	if got := g.Evaluate(buy); len(got) != 1 {
		t.Fatalf("re-armed BUY: got %d intents, want 1", len(got))
	}
}

func TestGate_FireOnceFiresOnKindChange(t *testing.T) {
	g := NewGate(Policy{Enabled: true, FireOnce: true})
	if got := g.Evaluate(reportWith(okEntry("TSLA", model.CrossBuy, 250))); len(got) != 1 {
		t.Fatalf("BUY: got %d intents, want 1", len(got))
	}
	got := g.Evaluate(reportWith(okEntry("TSLA", model.CrossSell, 248)))
	if len(got) != 1 || got[0].Kind != model.CrossSell {
		t.Fatalf("BUY→SELL flip: got %+v, want one SELL intent", got)
	}
}

func TestGate_EmitOnFilter(t *testing.T) {
	g := NewGate(Policy{Enabled: true, EmitOn: []model.Cross{model.CrossSell}})
	if got := g.Evaluate(reportWith(okEntry("AAPL", model.CrossBuy, 189.50))); len(got) != 0 {
		t.Errorf("BUY with SELL-only policy: got %d intents, want 0", len(got))
	}
	if got := g.Evaluate(reportWith(okEntry("AAPL", model.CrossSell, 188.00))); len(got) != 1 {
		t.Errorf("SELL with SELL-only policy: got %d intents, want 1", len(got))
	}
}

func TestGate_SkipsNonActionableAndUnavailable(t *testing.T) {
	g := NewGate(Policy{Enabled: true})
	rep := reportWith(
		okEntry("FLAT", model.CrossNone, 10),
		okEntry("THIN", model.CrossInsufficient, 0),
		model.InstrumentReport{
			Symbol: "DOWN",
			Status: model.StatusUnavailable,
			Error:  "provider timeout",
		},
	)
	if got := g.Evaluate(rep); len(got) != 0 {
		t.Errorf("got %d intents from non-actionable entries, want 0", len(got))
	}
}

func TestGate_IntentContents(t *testing.T) {
	g := NewGate(Policy{Enabled: true})
	got := g.Evaluate(reportWith(okEntry("AAPL", model.CrossBuy, 189.5)))
	if len(got) != 1 {
		t.Fatalf("got %d intents, want 1", len(got))
	}
	in := got[0]
	if in.Message != "AAPL: BUY SIGNAL at $189.50" {
		t.Errorf("message: got %q", in.Message)
	}
	if in.Subject() != "Trading Alert: AAPL" {
		t.Errorf("subject: got %q", in.Subject())
	}
	if in.Symbol != "AAPL" || in.Kind != model.CrossBuy || in.LastPrice != 189.5 {
		t.Errorf("fields: got %+v", in)
	}
	if !in.TS.Equal(cycleEnd) {
		t.Errorf("ts: got %v, want report finish time %v", in.TS, cycleEnd)
	}
}

func TestGate_MultiSymbolOrderedOutput(t *testing.T) {
	g := NewGate(Policy{Enabled: true})
	got := g.Evaluate(reportWith(
		okEntry("MSFT", model.CrossSell, 410),
		okEntry("AAPL", model.CrossBuy, 189.5),
		okEntry("NVDA", model.CrossBuy, 880),
	))
	if len(got) != 3 {
		t.Fatalf("got %d intents, want 3", len(got))
	}
	for i, want := range []string{"AAPL", "MSFT", "NVDA"} {
		if got[i].Symbol != want {
			t.Errorf("intent %d: got %s, want %s", i, got[i].Symbol, want)
		}
	}
}

func TestGate_ResetRearmsFireOnce(t *testing.T) {
	g := NewGate(Policy{Enabled: true, FireOnce: true})
	rep := reportWith(okEntry("AAPL", model.CrossBuy, 189.5))
	g.Evaluate(rep)
	if got := g.Evaluate(rep); len(got) != 0 {
		t.Fatalf("suppressed repeat: got %d intents, want 0", len(got))
	}
	g.Reset()
	if got := g.Evaluate(rep); len(got) != 1 {
		t.Errorf("after Reset: got %d intents, want 1", len(got))
	}
}
