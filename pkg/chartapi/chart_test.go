package chartapi

import (
	"errors"
	"strings"
	"testing"
	"time"

	"crosswatch/internal/model"
)

const chartFixture = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "AAPL", "currency": "USD", "regularMarketPrice": 189.5},
      "timestamp": [1755610200, 1755610260, 1755610320],
      "indicators": {"quote": [{
        "open":   [189.10, null, 189.30],
        "high":   [189.40, null, 189.60],
        "low":    [189.00, null, 189.20],
        "close":  [189.25, null, 189.50],
        "volume": [120000, null, 95000]
      }]}
    }],
    "error": null
  }
}`

func TestParseChartSeries_DropsNullCloseRows(t *testing.T) {
	s, err := parseChartSeries("AAPL", model.Interval1m, []byte(chartFixture))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.Symbol != "AAPL" || s.Interval != model.Interval1m {
		t.Errorf("series identity: got %s/%s", s.Symbol, s.Interval)
	}
	// The null-close middle row is dropped; the series stays dense.
	if s.Len() != 2 {
		t.Fatalf("bars: got %d, want 2", s.Len())
	}
	if !s.Bars[0].TS.Equal(time.Unix(1755610200, 0).UTC()) {
		t.Errorf("bar 0 ts: got %v", s.Bars[0].TS)
	}
	if s.Bars[0].Close != 189.25 || s.Bars[0].Volume != 120000 {
		t.Errorf("bar 0: got %+v", s.Bars[0])
	}
	if s.Bars[1].Close != 189.50 || s.Bars[1].High != 189.60 {
		t.Errorf("bar 1: got %+v", s.Bars[1])
	}
}

func TestParseChartSeries_ErrorEnvelope(t *testing.T) {
	raw := `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`
	_, err := parseChartSeries("NOPE", model.Interval5m, []byte(raw))
	if err == nil {
		t.Fatal("expected error from upstream envelope")
	}
	if !strings.Contains(err.Error(), "Not Found") {
		t.Errorf("error: got %q, want upstream code surfaced", err)
	}
}

func TestParseChartSeries_EmptyResult(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"no_result", `{"chart":{"result":[],"error":null}}`},
		{"no_timestamps", `{"chart":{"result":[{"timestamp":[],"indicators":{"quote":[{}]}}],"error":null}}`},
		{"all_null_closes", `{"chart":{"result":[{"timestamp":[1755610200],"indicators":{"quote":[{"close":[null]}]}}],"error":null}}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := parseChartSeries("AAPL", model.Interval5m, []byte(c.raw))
			if !errors.Is(err, ErrNoData) {
				t.Errorf("err: got %v, want ErrNoData", err)
			}
		})
	}
}

func TestParseChartSeries_Malformed(t *testing.T) {
	_, err := parseChartSeries("AAPL", model.Interval5m, []byte(`{nope`))
	if err == nil || !strings.Contains(err.Error(), "parse chart response") {
		t.Errorf("err: got %v, want parse failure", err)
	}
}

func TestBuildURL(t *testing.T) {
	c := NewClient(Config{BaseURL: "https://example.test/"})
	got, err := c.buildURL("market.chart", "BRK.B")
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}
	if got != "https://example.test/v8/finance/chart/BRK.B" {
		t.Errorf("url: got %q", got)
	}
	if _, err := c.buildURL("market.nope", "AAPL"); err == nil {
		t.Error("expected unknown route error")
	}
}
