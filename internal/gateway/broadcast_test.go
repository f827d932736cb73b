package gateway

import (
	"encoding/json"
	"testing"
	"time"
)

// envelope is the parsed WS message structure.
type envelope struct {
	Channel    string          `json:"channel"`
	Data       json.RawMessage `json:"data"`
	TS         string          `json:"ts"`
	Seq        int64           `json:"seq"`
	ChannelSeq int64           `json:"channel_seq"`
}

// TestBroadcastEnvelopeFormat verifies the hand-crafted JSON envelope
// matches the expected structure:
// {"channel":"...","data":...,"ts":"...","seq":N,"channel_seq":N}
func TestBroadcastEnvelopeFormat(t *testing.T) {
	h := NewHub()
	channel := "pub:report:AAPL"
	data := []byte(`{"symbol":"AAPL","status":"ok","last_price":189.5}`)

	before := time.Now().UTC()
	h.Broadcast(channel, data)

	frames := h.BacklogRange(channel, 1, 1)
	if len(frames) != 1 {
		t.Fatalf("expected 1 buffered frame, got %d", len(frames))
	}

	var env envelope
	if err := json.Unmarshal(frames[0], &env); err != nil {
		t.Fatalf("envelope is not valid JSON: %v\nraw: %s", err, frames[0])
	}

	if env.Channel != channel {
		t.Errorf("channel: got %q, want %q", env.Channel, channel)
	}
	if env.Seq != 1 {
		t.Errorf("seq: got %d, want 1", env.Seq)
	}
	if env.ChannelSeq != 1 {
		t.Errorf("channel_seq: got %d, want 1", env.ChannelSeq)
	}

	// Data should round-trip as JSON
	var report map[string]interface{}
	if err := json.Unmarshal(env.Data, &report); err != nil {
		t.Fatalf("data is not valid JSON: %v", err)
	}
	if report["symbol"] != "AAPL" {
		t.Errorf("data.symbol: got %v, want AAPL", report["symbol"])
	}

	// TS should be valid RFC3339Nano and sane
	parsed, err := time.Parse(time.RFC3339Nano, env.TS)
	if err != nil {
		t.Errorf("ts is not valid RFC3339Nano: %v", err)
	}
	if parsed.Before(before.Add(-time.Second)) || parsed.After(time.Now().UTC().Add(time.Second)) {
		t.Errorf("ts out of range: %v", parsed)
	}
}

// TestBroadcast_PerChannelSeq verifies that per-channel sequence numbers
// track independently while the global seq covers all channels.
func TestBroadcast_PerChannelSeq(t *testing.T) {
	h := NewHub()
	channelA := "pub:report:AAPL"
	channelB := "pub:report:MSFT"

	for i := 0; i < 3; i++ {
		h.Broadcast(channelA, []byte(`{}`))
	}
	for i := 0; i < 2; i++ {
		h.Broadcast(channelB, []byte(`{}`))
	}

	if got := h.ChannelSeq(channelA); got != 3 {
		t.Errorf("channelA seq: got %d, want 3", got)
	}
	if got := h.ChannelSeq(channelB); got != 2 {
		t.Errorf("channelB seq: got %d, want 2", got)
	}

	framesA := h.BacklogRange(channelA, 1, 10)
	if len(framesA) != 3 {
		t.Fatalf("channelA backlog: expected 3 frames, got %d", len(framesA))
	}
	for i, frame := range framesA {
		var env envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			t.Fatalf("frame[%d]: invalid JSON: %v", i, err)
		}
		if env.ChannelSeq != int64(i)+1 {
			t.Errorf("frame[%d] channel_seq: got %d, want %d", i, env.ChannelSeq, i+1)
		}
	}

	// Global seq on channelB's last frame is 5 (3 from A + 2 from B)
	framesB := h.BacklogRange(channelB, 2, 2)
	if len(framesB) != 1 {
		t.Fatalf("channelB backlog: expected 1 frame, got %d", len(framesB))
	}
	var env envelope
	if err := json.Unmarshal(framesB[0], &env); err != nil {
		t.Fatalf("channelB frame: invalid JSON: %v", err)
	}
	if env.Seq != 5 {
		t.Errorf("global seq: got %d, want 5", env.Seq)
	}
	if env.ChannelSeq != 2 {
		t.Errorf("channelB channel_seq: got %d, want 2", env.ChannelSeq)
	}
}

// TestHub_LatestAll verifies the latest payload per channel is retained
// for the REST snapshot endpoint, overwriting older frames.
func TestHub_LatestAll(t *testing.T) {
	h := NewHub()

	h.Broadcast("pub:report:AAPL", []byte(`{"cycle":1}`))
	h.Broadcast("pub:report:AAPL", []byte(`{"cycle":2}`))
	h.Broadcast("pub:alert", []byte(`{"kind":"BUY"}`))

	latest := h.LatestAll()
	if len(latest) != 2 {
		t.Fatalf("expected 2 channels, got %d", len(latest))
	}
	if string(latest["pub:report:AAPL"]) != `{"cycle":2}` {
		t.Errorf("report channel kept stale payload: %s", latest["pub:report:AAPL"])
	}
	if string(latest["pub:alert"]) != `{"kind":"BUY"}` {
		t.Errorf("alert channel payload: %s", latest["pub:alert"])
	}
}

func TestBacklogRange_UnknownChannel(t *testing.T) {
	h := NewHub()
	if frames := h.BacklogRange("pub:report:TSLA", 1, 10); frames != nil {
		t.Errorf("expected nil for unknown channel, got %d frames", len(frames))
	}
}

// TestClientMatchesChannel covers the symbol filter:
// unfiltered clients take everything including the pub:report:all firehose,
// filtered clients take only their symbols plus non-report channels.
func TestClientMatchesChannel(t *testing.T) {
	tests := []struct {
		name    string
		filter  []string
		channel string
		want    bool
	}{
		{"unfiltered_report", nil, "pub:report:AAPL", true},
		{"unfiltered_firehose", nil, "pub:report:all", true},
		{"unfiltered_alert", nil, "pub:alert", true},
		{"filtered_own_symbol", []string{"AAPL"}, "pub:report:AAPL", true},
		{"filtered_other_symbol", []string{"AAPL"}, "pub:report:MSFT", false},
		{"filtered_skips_firehose", []string{"AAPL"}, "pub:report:all", false},
		{"filtered_still_gets_alerts", []string{"AAPL"}, "pub:alert", true},
		{"filtered_two_symbols", []string{"AAPL", "MSFT"}, "pub:report:MSFT", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{}
			c.setFilter(tt.filter)
			if got := c.matchesChannel(tt.channel); got != tt.want {
				t.Errorf("matchesChannel(%q) = %v, want %v", tt.channel, got, tt.want)
			}
		})
	}
}

func TestReportSymbol(t *testing.T) {
	tests := []struct {
		channel string
		wantSym string
		wantOK  bool
	}{
		{"pub:report:AAPL", "AAPL", true},
		{"pub:report:all", "all", true},
		{"pub:report:", "", false},
		{"pub:alert", "", false},
		{"garbage", "", false},
	}

	for _, tt := range tests {
		sym, ok := reportSymbol(tt.channel)
		if ok != tt.wantOK || sym != tt.wantSym {
			t.Errorf("reportSymbol(%q) = (%q, %v), want (%q, %v)",
				tt.channel, sym, ok, tt.wantSym, tt.wantOK)
		}
	}
}

// TestUnsubscribeClearsFilter verifies a cleared filter returns the client
// to firehose mode.
func TestUnsubscribeClearsFilter(t *testing.T) {
	c := &Client{}
	c.setFilter([]string{"AAPL"})
	if c.matchesChannel("pub:report:MSFT") {
		t.Fatal("filter not applied")
	}
	c.setFilter(nil)
	if !c.matchesChannel("pub:report:MSFT") {
		t.Error("cleared filter should match all report channels")
	}
	if !c.matchesChannel("pub:report:all") {
		t.Error("cleared filter should match the firehose channel")
	}
}
