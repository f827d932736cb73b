package notification

import (
	"context"
	"log"

	"crosswatch/internal/model"
)

// Delivery is the outcome of sending one intent through one channel.
// Err is nil on success.
type Delivery struct {
	Channel string
	Err     error
}

// Ok reports whether the delivery succeeded.
func (d Delivery) Ok() bool { return d.Err == nil }

// Dispatcher fans one alert intent out to every configured channel.
//
// A channel failure is recorded in its Delivery and never stops the other
// channels or the calling cycle; the caller decides how to surface failures.
type Dispatcher struct {
	notifiers []Notifier
}

// NewDispatcher creates a dispatcher over the given channels. With none
// configured it falls back to the log notifier so alerts are never dropped
// silently.
func NewDispatcher(notifiers ...Notifier) *Dispatcher {
	if len(notifiers) == 0 {
		notifiers = []Notifier{NewLogNotifier()}
	}
	return &Dispatcher{notifiers: notifiers}
}

// Channels returns the configured channel names in dispatch order.
func (d *Dispatcher) Channels() []string {
	out := make([]string, len(d.notifiers))
	for i, n := range d.notifiers {
		out[i] = n.Name()
	}
	return out
}

// Dispatch sends intent through every channel and returns one Delivery per
// channel, in dispatch order.
func (d *Dispatcher) Dispatch(ctx context.Context, intent model.AlertIntent) []Delivery {
	out := make([]Delivery, 0, len(d.notifiers))
	for _, n := range d.notifiers {
		err := n.Send(ctx, intent)
		if err != nil {
			log.Printf("[notify] delivery via %s failed: %v", n.Name(), err)
		}
		out = append(out, Delivery{Channel: n.Name(), Err: err})
	}
	return out
}
