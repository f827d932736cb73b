package notification

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"crosswatch/internal/model"
)

type fakeNotifier struct {
	name string
	err  error
	sent []model.AlertIntent
}

func (f *fakeNotifier) Name() string { return f.name }

func (f *fakeNotifier) Send(ctx context.Context, intent model.AlertIntent) error {
	f.sent = append(f.sent, intent)
	return f.err
}

func testIntent() model.AlertIntent {
	return model.AlertIntent{
		Symbol:    "AAPL",
		Kind:      model.CrossBuy,
		LastPrice: 189.5,
		Message:   "AAPL: BUY SIGNAL at $189.50",
		TS:        time.Date(2026, time.August, 19, 14, 35, 0, 0, time.UTC),
	}
}

func TestDispatcher_FanOutContinuesPastFailure(t *testing.T) {
	bad := &fakeNotifier{name: "email", err: errors.New("smtp refused")}
	good := &fakeNotifier{name: "telegram"}
	d := NewDispatcher(bad, good)

	got := d.Dispatch(context.Background(), testIntent())
	if len(got) != 2 {
		t.Fatalf("got %d deliveries, want 2", len(got))
	}
	if got[0].Channel != "email" || got[0].Ok() {
		t.Errorf("delivery 0: got %+v, want failed email", got[0])
	}
	if got[1].Channel != "telegram" || !got[1].Ok() {
		t.Errorf("delivery 1: got %+v, want ok telegram", got[1])
	}
	// The failing channel must not starve the healthy one.
	if len(good.sent) != 1 {
		t.Errorf("telegram received %d intents, want 1", len(good.sent))
	}
}

func TestDispatcher_DefaultsToLogChannel(t *testing.T) {
	d := NewDispatcher()
	chans := d.Channels()
	if len(chans) != 1 || chans[0] != "log" {
		t.Errorf("channels: got %v, want [log]", chans)
	}
	got := d.Dispatch(context.Background(), testIntent())
	if len(got) != 1 || !got[0].Ok() {
		t.Errorf("log dispatch: got %+v", got)
	}
}

func TestEmailNotifier_MessageFormat(t *testing.T) {
	n := NewEmailNotifier(EmailConfig{
		Host:     "smtp.example.com",
		Username: "bot@example.com",
		To:       []string{"trader@example.com", "desk@example.com"},
	})
	msg := string(n.message(testIntent()))

	for _, want := range []string{
		"From: bot@example.com\r\n",
		"To: trader@example.com, desk@example.com\r\n",
		"Subject: Trading Alert: AAPL\r\n",
		"Content-Type: text/plain; charset=utf-8\r\n",
		"\r\n\r\nAAPL: BUY SIGNAL at $189.50",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestEmailNotifier_Defaults(t *testing.T) {
	n := NewEmailNotifier(EmailConfig{Host: "smtp.gmail.com", Username: "bot@example.com"})
	if n.cfg.Port != 465 {
		t.Errorf("port: got %d, want 465", n.cfg.Port)
	}
	if n.cfg.From != "bot@example.com" {
		t.Errorf("from: got %q, want username fallback", n.cfg.From)
	}
}

func TestEscapeMarkdown(t *testing.T) {
	// MarkdownV2 treats '.' as reserved; '$' and ':' pass through.
	got := escapeMarkdown("AAPL: BUY SIGNAL at $189.50")
	if got != "AAPL: BUY SIGNAL at $189\\.50" {
		t.Errorf("escape: got %q", got)
	}
}
