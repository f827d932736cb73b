// Package notification delivers alert intents to external channels
// (email, Telegram, webhooks) and reports per-channel outcomes.
package notification

import (
	"context"
	"log"

	"crosswatch/internal/model"
)

// Notifier is the interface for all delivery backends.
type Notifier interface {
	// Name identifies the channel in logs, metrics and delivery records.
	Name() string

	// Send delivers one alert intent. Returns error if delivery fails.
	Send(ctx context.Context, intent model.AlertIntent) error
}

// LogNotifier writes alerts to the process log (useful for development and
// as a fallback when no external channel is configured).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) Send(ctx context.Context, intent model.AlertIntent) error {
	log.Printf("[notify] [%s] %s", intent.Kind, intent.Message)
	return nil
}
