package scanner

import "time"

// Pacer produces the trigger events that drive repeated scan cycles.
// The service loop selects on C() rather than sleeping, so tests can
// drive cycles without wall-clock waits and cancellation is observed
// between cycles, never mid-sleep.
type Pacer interface {
	// C delivers one value per cycle trigger.
	C() <-chan time.Time

	// Stop releases the underlying timer. No further triggers arrive.
	Stop()
}

// NewTickerPacer returns a Pacer that fires every d on a time.Ticker.
func NewTickerPacer(d time.Duration) Pacer {
	return &tickerPacer{t: time.NewTicker(d)}
}

type tickerPacer struct {
	t *time.Ticker
}

func (p *tickerPacer) C() <-chan time.Time { return p.t.C }
func (p *tickerPacer) Stop()               { p.t.Stop() }
