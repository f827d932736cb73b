// cmd/chartsim — Demo quote API server.
// Serves synthetic v8 chart and v7 options responses in the provider's wire
// format, so the scanner runs end to end without touching the real API.
// Point the scanner at it with PROVIDER_BASE_URL=http://localhost:9097.
//
// Bars are a pure function of (symbol, slot index): the same window always
// returns identical data, and overlapping windows agree bar for bar.
//
// Config (env vars):
//
//	CHARTSIM_ADDR — listen address (default: ":9097")
//	CHARTSIM_SEED — base seed mixed into every symbol (default: "1")
package main

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"crosswatch/config"
	"crosswatch/internal/markethours"
	"crosswatch/internal/model"
)

var baseSeed int64

// ─── Wire shapes (mirror the provider JSON) ───────────────────────────────────

type chartPayload struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  interface{}   `json:"error"`
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

type contract struct {
	ContractSymbol    string  `json:"contractSymbol"`
	Strike            float64 `json:"strike"`
	LastPrice         float64 `json:"lastPrice"`
	Bid               float64 `json:"bid"`
	Ask               float64 `json:"ask"`
	Volume            int64   `json:"volume"`
	OpenInterest      int64   `json:"openInterest"`
	ImpliedVolatility float64 `json:"impliedVolatility"`
	InTheMoney        bool    `json:"inTheMoney"`
}

type optionsPayload struct {
	OptionChain struct {
		Result []optionsResult `json:"result"`
		Error  interface{}     `json:"error"`
	} `json:"optionChain"`
}

type optionsResult struct {
	UnderlyingSymbol string  `json:"underlyingSymbol"`
	ExpirationDates  []int64 `json:"expirationDates"`
	Quote            struct {
		RegularMarketPrice float64 `json:"regularMarketPrice"`
	} `json:"quote"`
	Options []optionsBlock `json:"options"`
}

type optionsBlock struct {
	ExpirationDate int64      `json:"expirationDate"`
	Calls          []contract `json:"calls"`
	Puts           []contract `json:"puts"`
}

// ─── Price model ──────────────────────────────────────────────────────────────

func symbolSeed(symbol string) int64 {
	h := fnv.New64a()
	h.Write([]byte(strings.ToUpper(symbol)))
	return int64(h.Sum64()&0x7fffffffffff) ^ baseSeed
}

func slotNoise(seed, slot int64) *rand.Rand {
	return rand.New(rand.NewSource(seed ^ slot*2654435761))
}

// priceAt returns the simulated price at a slot boundary. Two sine terms
// give intraday drift plus a slower swing; the hash noise adds bar-to-bar
// texture without accumulating state.
func priceAt(seed, slot int64) float64 {
	base := 40 + float64(seed%400)
	swing := 0.03*math.Sin(2*math.Pi*float64(slot)/78) +
		0.012*math.Sin(2*math.Pi*float64(slot)/7.3)
	jitter := 0.004 * (slotNoise(seed, slot).Float64()*2 - 1)
	return base * (1 + swing + jitter)
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

func handleChart(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimPrefix(r.URL.Path, "/v8/finance/chart/")
	if symbol == "" {
		http.NotFound(w, r)
		return
	}

	interval, err := model.ParseInterval(r.URL.Query().Get("interval"))
	if err != nil {
		interval = model.Interval5m
	}
	step := int64(interval.Duration() / time.Second)

	now := time.Now().Unix()
	period1 := queryInt(r, "period1", now-86400)
	period2 := queryInt(r, "period2", now)
	if period2 > now {
		period2 = now
	}
	// Bound the response like the real API does for long ranges.
	if maxSlots := int64(5000); (period2-period1)/step > maxSlots {
		period1 = period2 - maxSlots*step
	}

	seed := symbolSeed(symbol)
	var res chartResult
	res.Meta.Symbol = symbol
	res.Meta.Currency = "USD"

	q := &quoteColumns{}
	for ts := period1 - period1%step; ts <= period2; ts += step {
		if !markethours.IsMarketOpen(time.Unix(ts, 0)) {
			continue
		}
		slot := ts / step
		res.Timestamp = append(res.Timestamp, ts)

		if slot%37 == 17 {
			// A slot with no trade prints: null quote columns.
			q.Open = append(q.Open, nil)
			q.High = append(q.High, nil)
			q.Low = append(q.Low, nil)
			q.Close = append(q.Close, nil)
			q.Volume = append(q.Volume, nil)
			continue
		}

		open := priceAt(seed, slot)
		closePx := priceAt(seed, slot+1)
		span := math.Abs(closePx-open) * 0.3
		high := math.Max(open, closePx) + span
		low := math.Min(open, closePx) - span
		volume := math.Floor(50000 + slotNoise(seed^0x5eed, slot).Float64()*30000)

		q.Open = append(q.Open, f(open))
		q.High = append(q.High, f(high))
		q.Low = append(q.Low, f(low))
		q.Close = append(q.Close, f(closePx))
		q.Volume = append(q.Volume, f(volume))
	}
	res.Meta.RegularMarketPrice = priceAt(seed, now/step)
	res.Indicators.Quote = []quoteColumns{*q}

	var payload chartPayload
	payload.Chart.Result = []chartResult{res}
	writeJSON(w, payload)
}

func handleOptions(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimPrefix(r.URL.Path, "/v7/finance/options/")
	if symbol == "" {
		http.NotFound(w, r)
		return
	}

	seed := symbolSeed(symbol)
	spot := priceAt(seed, time.Now().Unix()/300)
	expirations := nextFridays(4)

	expiry := expirations[0]
	if dateParam := queryInt(r, "date", 0); dateParam > 0 {
		for _, e := range expirations {
			if e == dateParam {
				expiry = e
				break
			}
		}
	}

	calls, puts := buildChain(symbol, seed, spot, expiry)

	var res optionsResult
	res.UnderlyingSymbol = symbol
	res.ExpirationDates = expirations
	res.Quote.RegularMarketPrice = spot
	res.Options = []optionsBlock{{ExpirationDate: expiry, Calls: calls, Puts: puts}}

	var payload optionsPayload
	payload.OptionChain.Result = []optionsResult{res}
	writeJSON(w, payload)
}

// buildChain generates strikes around the spot with a put/call pair each.
// Open interest peaks at the money and the IV smile widens away from it.
func buildChain(symbol string, seed int64, spot float64, expiry int64) (calls, puts []contract) {
	strikeStep := 5.0
	switch {
	case spot < 50:
		strikeStep = 1.0
	case spot < 200:
		strikeStep = 2.5
	}
	atm := math.Round(spot/strikeStep) * strikeStep
	expiryTag := time.Unix(expiry, 0).UTC().Format("060102")

	for k := int64(-10); k <= 10; k++ {
		strike := atm + float64(k)*strikeStep
		if strike <= 0 {
			continue
		}
		n := slotNoise(seed^expiry, k)
		extrinsic := spot * 0.015 * (1 + 0.2*n.Float64())
		oi := int64((11-absInt(k))*800) + int64(n.Float64()*200)
		iv := 0.25 + 0.012*float64(absInt(k)) + 0.02*n.Float64()

		callMid := math.Max(spot-strike, 0) + extrinsic
		calls = append(calls, contract{
			ContractSymbol:    fmt.Sprintf("%s%sC%08d", symbol, expiryTag, int64(strike*1000)),
			Strike:            strike,
			LastPrice:         round2(callMid),
			Bid:               round2(callMid * 0.97),
			Ask:               round2(callMid * 1.03),
			Volume:            oi / 7,
			OpenInterest:      oi,
			ImpliedVolatility: iv,
			InTheMoney:        strike < spot,
		})

		putMid := math.Max(strike-spot, 0) + extrinsic
		puts = append(puts, contract{
			ContractSymbol:    fmt.Sprintf("%s%sP%08d", symbol, expiryTag, int64(strike*1000)),
			Strike:            strike,
			LastPrice:         round2(putMid),
			Bid:               round2(putMid * 0.97),
			Ask:               round2(putMid * 1.03),
			Volume:            oi / 7,
			OpenInterest:      oi,
			ImpliedVolatility: iv,
			InTheMoney:        strike > spot,
		})
	}
	return calls, puts
}

// ─── main ─────────────────────────────────────────────────────────────────────

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[chartsim] starting demo quote server...")

	addr := config.GetEnv("CHARTSIM_ADDR", ":9097")
	baseSeed = int64(config.GetEnvInt("CHARTSIM_SEED", 1))

	http.HandleFunc("/v8/finance/chart/", handleChart)
	http.HandleFunc("/v7/finance/options/", handleOptions)
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, `{"status":"ok","service":"chartsim"}`)
	})

	log.Printf("[chartsim] ✅ listening on %s  (chart: http://localhost%s/v8/finance/chart/AAPL)", addr, addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("[chartsim] server error: %v", err)
	}
}

// ─── helpers ──────────────────────────────────────────────────────────────────

func queryInt(r *http.Request, key string, fallback int64) int64 {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[chartsim] encode error: %v", err)
	}
}

// nextFridays returns the next n Friday midnights UTC as unix seconds.
func nextFridays(n int) []int64 {
	day := time.Now().UTC().Truncate(24 * time.Hour)
	var out []int64
	for len(out) < n {
		day = day.Add(24 * time.Hour)
		if day.Weekday() == time.Friday {
			out = append(out, day.Unix())
		}
	}
	return out
}

func f(v float64) *float64 { return &v }

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func absInt(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
