package chartapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"crosswatch/internal/model"
)

// chartResponse mirrors the v8 chart envelope. Quote columns arrive as
// nullable arrays aligned to the timestamp array; a null close means the
// exchange printed no trade for that minute.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol             string  `json:"symbol"`
		Currency           string  `json:"currency"`
		RegularMarketPrice float64 `json:"regularMarketPrice"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []quoteColumns `json:"quote"`
	} `json:"indicators"`
}

type quoteColumns struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}

// FetchBars retrieves OHLCV bars for symbol over the given window at the
// given granularity. Rows without a close print are dropped, so the returned
// series is dense. Returns ErrNoData when the provider has nothing for the
// symbol/range.
func (c *Client) FetchBars(ctx context.Context, symbol string, interval model.Interval, window model.Window) (model.Series, error) {
	params := url.Values{}
	params.Set("interval", string(interval))
	params.Set("period1", strconv.FormatInt(window.From.Unix(), 10))
	params.Set("period2", strconv.FormatInt(window.To.Unix(), 10))
	params.Set("includePrePost", "false")

	raw, err := c.doRequest(ctx, "market.chart", symbol, params)
	if err != nil {
		return model.Series{}, err
	}
	return parseChartSeries(symbol, interval, raw)
}

// parseChartSeries decodes a v8 chart payload into a dense bar series.
func parseChartSeries(symbol string, interval model.Interval, raw []byte) (model.Series, error) {
	var resp chartResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return model.Series{}, fmt.Errorf("chartapi: parse chart response: %w", err)
	}
	if resp.Chart.Error != nil {
		return model.Series{}, resp.Chart.Error
	}
	if len(resp.Chart.Result) == 0 {
		return model.Series{}, ErrNoData
	}

	res := resp.Chart.Result[0]
	if len(res.Timestamp) == 0 || len(res.Indicators.Quote) == 0 {
		return model.Series{}, ErrNoData
	}
	q := res.Indicators.Quote[0]

	bars := make([]model.Bar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		closePx := col(q.Close, i)
		if closePx == nil {
			continue // no trade printed for this slot
		}
		bars = append(bars, model.Bar{
			TS:     time.Unix(ts, 0).UTC(),
			Open:   val(col(q.Open, i)),
			High:   val(col(q.High, i)),
			Low:    val(col(q.Low, i)),
			Close:  *closePx,
			Volume: val(col(q.Volume, i)),
		})
	}
	if len(bars) == 0 {
		return model.Series{}, ErrNoData
	}

	return model.Series{Symbol: symbol, Interval: interval, Bars: bars}, nil
}

// col indexes a nullable quote column, tolerating ragged arrays.
func col(arr []*float64, i int) *float64 {
	if i >= len(arr) {
		return nil
	}
	return arr[i]
}

func val(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
