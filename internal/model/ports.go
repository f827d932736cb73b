package model

import "context"

// ── Collaborator Port Interfaces ──
// These interfaces decouple the scan core from concrete collaborators
// (HTTP provider, Redis, SQLite). The core tolerates any of them failing;
// a provider error is scoped to one instrument, a sink error to one write.

// BarProvider fetches the bar history for one instrument.
// An empty series or an error marks the instrument data_unavailable for
// the cycle; neither aborts sibling instruments.
type BarProvider interface {
	FetchBars(ctx context.Context, symbol string, interval Interval, window Window) (Series, error)
}

// ReportSink receives each completed cycle report. Writes are best effort:
// the scanner logs sink errors and continues.
type ReportSink interface {
	// WriteReport persists or publishes one cycle report.
	WriteReport(ctx context.Context, report *CycleReport) error

	// Close releases underlying resources.
	Close() error
}

// AlertSink records emitted alert intents and their delivery outcome,
// for audit and for downstream consumers.
type AlertSink interface {
	RecordAlert(ctx context.Context, intent AlertIntent, delivered bool, deliveryErr string) error
}
