// Package alert decides which crossover results become notifications.
//
// The gate sits between the scan cycle and the notification dispatcher: the
// cycle hands it a finished CycleReport, the gate applies the configured
// policy and returns the intents to deliver. It never performs delivery.
package alert

import (
	"fmt"
	"sync"
	"time"

	"crosswatch/internal/model"
)

// Policy controls which crossover results produce alert intents.
type Policy struct {
	Enabled  bool
	EmitOn   []model.Cross // empty means BUY and SELL
	FireOnce bool          // suppress repeats while the same crossover persists
}

// Normalize applies the default emit set.
func (p Policy) Normalize() Policy {
	if len(p.EmitOn) == 0 {
		p.EmitOn = []model.Cross{model.CrossBuy, model.CrossSell}
	}
	return p
}

func (p Policy) wants(k model.Cross) bool {
	for _, e := range p.EmitOn {
		if e == k {
			return true
		}
	}
	return false
}

// Gate evaluates cycle reports against a Policy.
//
// By default an alert re-fires on every cycle while the crossover condition
// persists; each cycle is a full recompute, so a standing crossover keeps
// producing the same verdict. With FireOnce set, a symbol fires once per
// distinct crossover event and re-arms when the detected kind changes,
// including a change to NONE or INSUFFICIENT.
type Gate struct {
	policy Policy

	mu       sync.Mutex
	lastSeen map[string]model.Cross // per-symbol kind from the previous evaluation
}

// NewGate creates a gate with the given policy.
func NewGate(policy Policy) *Gate {
	return &Gate{
		policy:   policy.Normalize(),
		lastSeen: make(map[string]model.Cross),
	}
}

// Evaluate returns the intents the policy produces for report, ordered by
// symbol. Unavailable instruments and non-actionable kinds never fire.
func (g *Gate) Evaluate(report *model.CycleReport) []model.AlertIntent {
	if !g.policy.Enabled {
		return nil
	}
	ts := report.FinishedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	var intents []model.AlertIntent
	for _, sym := range report.Symbols() {
		entry := report.Entries[sym]
		kind := entry.Crossover.Kind

		fire := entry.Status == model.StatusOK && kind.Actionable() && g.policy.wants(kind)
		if g.policy.FireOnce {
			if g.lastSeen[sym] == kind {
				fire = false
			}
			g.lastSeen[sym] = kind
		}
		if !fire {
			continue
		}

		intents = append(intents, model.AlertIntent{
			Symbol:    sym,
			Kind:      kind,
			LastPrice: entry.LastPrice,
			Message:   fmt.Sprintf("%s: %s SIGNAL at $%.2f", sym, kind, entry.LastPrice),
			TS:        ts,
		})
	}
	return intents
}

// Reset clears the fire-once state, re-arming every symbol.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastSeen = make(map[string]model.Cross)
}
