package chartapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Contract is one option quote. Money fields are decimals so strike and
// premium arithmetic stays exact when filtered, sorted and displayed.
type Contract struct {
	ContractSymbol    string          `json:"contractSymbol"`
	Strike            decimal.Decimal `json:"strike"`
	LastPrice         decimal.Decimal `json:"lastPrice"`
	Bid               decimal.Decimal `json:"bid"`
	Ask               decimal.Decimal `json:"ask"`
	Volume            int64           `json:"volume"`
	OpenInterest      int64           `json:"openInterest"`
	ImpliedVolatility float64         `json:"impliedVolatility"`
	InTheMoney        bool            `json:"inTheMoney"`
}

// Chain is the call/put table for one expiration.
type Chain struct {
	Symbol     string
	Expiration time.Time
	Underlying decimal.Decimal // regular market price at fetch time
	Calls      []Contract
	Puts       []Contract
}

// optionsResponse mirrors the v7 options envelope.
type optionsResponse struct {
	OptionChain struct {
		Result []struct {
			UnderlyingSymbol string  `json:"underlyingSymbol"`
			ExpirationDates  []int64 `json:"expirationDates"`
			Quote            struct {
				RegularMarketPrice decimal.Decimal `json:"regularMarketPrice"`
			} `json:"quote"`
			Options []struct {
				ExpirationDate int64      `json:"expirationDate"`
				Calls          []Contract `json:"calls"`
				Puts           []Contract `json:"puts"`
			} `json:"options"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"optionChain"`
}

// ListExpirations returns the available option expiration dates for symbol,
// in chronological order.
func (c *Client) ListExpirations(ctx context.Context, symbol string) ([]time.Time, error) {
	raw, err := c.doRequest(ctx, "market.options", symbol, nil)
	if err != nil {
		return nil, err
	}
	resp, err := parseOptionsResponse(raw)
	if err != nil {
		return nil, err
	}

	res := resp.OptionChain.Result[0]
	out := make([]time.Time, 0, len(res.ExpirationDates))
	for _, ts := range res.ExpirationDates {
		out = append(out, time.Unix(ts, 0).UTC())
	}
	return out, nil
}

// FetchChain retrieves the option chain for one expiration. A zero
// expiration requests the provider's default (nearest) one.
func (c *Client) FetchChain(ctx context.Context, symbol string, expiration time.Time) (Chain, error) {
	var params url.Values
	if !expiration.IsZero() {
		params = url.Values{}
		params.Set("date", strconv.FormatInt(expiration.Unix(), 10))
	}
	raw, err := c.doRequest(ctx, "market.options", symbol, params)
	if err != nil {
		return Chain{}, err
	}
	resp, err := parseOptionsResponse(raw)
	if err != nil {
		return Chain{}, err
	}

	res := resp.OptionChain.Result[0]
	if len(res.Options) == 0 {
		return Chain{}, ErrNoData
	}
	opt := res.Options[0]
	return Chain{
		Symbol:     symbol,
		Expiration: time.Unix(opt.ExpirationDate, 0).UTC(),
		Underlying: res.Quote.RegularMarketPrice,
		Calls:      opt.Calls,
		Puts:       opt.Puts,
	}, nil
}

func parseOptionsResponse(raw []byte) (*optionsResponse, error) {
	var resp optionsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("chartapi: parse options response: %w", err)
	}
	if resp.OptionChain.Error != nil {
		return nil, resp.OptionChain.Error
	}
	if len(resp.OptionChain.Result) == 0 {
		return nil, ErrNoData
	}
	return &resp, nil
}

// NearStrikes filters contracts to strikes within pct of the underlying
// price and returns the topN most traded by open interest. Ties and the
// final presentation order are by ascending strike. The input is not
// modified.
func NearStrikes(contracts []Contract, underlying decimal.Decimal, pct float64, topN int) []Contract {
	if topN <= 0 || underlying.IsZero() {
		return nil
	}
	band := underlying.Mul(decimal.NewFromFloat(pct))

	near := make([]Contract, 0, len(contracts))
	for _, ct := range contracts {
		if ct.Strike.Sub(underlying).Abs().Cmp(band) <= 0 {
			near = append(near, ct)
		}
	}

	sort.Slice(near, func(i, j int) bool {
		if near[i].OpenInterest != near[j].OpenInterest {
			return near[i].OpenInterest > near[j].OpenInterest
		}
		return near[i].Strike.Cmp(near[j].Strike) < 0
	})
	if len(near) > topN {
		near = near[:topN]
	}

	sort.Slice(near, func(i, j int) bool {
		return near[i].Strike.Cmp(near[j].Strike) < 0
	})
	return near
}
