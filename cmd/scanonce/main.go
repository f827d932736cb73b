// cmd/scanonce runs a single scan cycle against the quote provider and
// prints the per-instrument verdicts, then exits. Alerts the policy would
// emit are printed through the log notifier only; real delivery belongs to
// the long-running scanner. Useful for cron jobs and for eyeballing the
// scanner's view of the market without standing up the full service.
//
// Usage:
//
//	go run ./cmd/scanonce --symbols=AAPL,MSFT --interval=5m --chain
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"crosswatch/internal/alert"
	"crosswatch/internal/model"
	"crosswatch/internal/notification"
	"crosswatch/internal/scanner"
	"crosswatch/pkg/chartapi"

	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	_ = godotenv.Load() // best-effort; real environment variables win

	symbolsFlag := flag.String("symbols", "", "Comma-separated symbols (default: TICKERS env / watchlist)")
	intervalFlag := flag.String("interval", "", "Bar interval: 1m, 5m, 15m, 1h (default: BAR_INTERVAL env)")
	chainFlag := flag.Bool("chain", false, "Also print near-the-money option chains for healthy symbols")
	chainPct := flag.Float64("chain-pct", 0.05, "Strike band around spot for --chain")
	chainTop := flag.Int("chain-top", 10, "Strikes per side for --chain")
	chainExpiry := flag.String("chain-expiry", "", "Expiration date YYYY-MM-DD for --chain (default: nearest)")
	flag.Parse()

	cfg := scanner.LoadConfig()
	symbols := cfg.Symbols
	if *symbolsFlag != "" {
		symbols = splitSymbols(*symbolsFlag)
	}
	if *intervalFlag != "" {
		iv, err := model.ParseInterval(*intervalFlag)
		if err != nil {
			log.Fatalf("[scanonce] %v", err)
		}
		cfg.Interval = iv
	}
	if len(symbols) == 0 {
		log.Fatal("[scanonce] no symbols to scan")
	}

	client := chartapi.NewClient(chartapi.Config{
		BaseURL: cfg.ProviderBaseURL,
		Timeout: time.Duration(cfg.ProviderTimeoutSec) * time.Second,
		Debug:   cfg.ProviderDebug,
	})
	runner := &scanner.Runner{
		Provider: client,
		Interval: cfg.Interval,
		MACD:     cfg.MACD,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	report, _ := runner.RunCycle(ctx, symbols, 1)

	fmt.Println()
	fmt.Printf("  %-8s %-18s %10s %10s  %-12s\n", "SYMBOL", "STATUS", "PRICE", "VWAP", "CROSS")
	unavailable := 0
	for _, sym := range report.Symbols() {
		e := report.Entries[sym]
		if e.Status != model.StatusOK {
			unavailable++
			fmt.Printf("  %-8s %-18s %10s %10s  %-12s (%s)\n", sym, e.Status, "-", "-", e.Crossover.Kind, e.Error)
			continue
		}
		fmt.Printf("  %-8s %-18s %10.2f %10s  %-12s\n", sym, e.Status, e.LastPrice, fmtVwap(e.Vwap), e.Crossover.Kind)
	}

	// Dry-run the alert policy: intents go to the log channel only.
	gate := alert.NewGate(cfg.Policy)
	dispatcher := notification.NewDispatcher(notification.NewLogNotifier())
	intents := gate.Evaluate(report)
	for _, intent := range intents {
		dispatcher.Dispatch(ctx, intent)
	}

	if *chainFlag {
		var expiry time.Time
		if *chainExpiry != "" {
			var err error
			expiry, err = time.Parse("2006-01-02", *chainExpiry)
			if err != nil {
				log.Fatalf("[scanonce] bad --chain-expiry: %v", err)
			}
		}
		for _, sym := range report.Symbols() {
			if report.Entries[sym].Status == model.StatusOK {
				printChain(ctx, client, sym, expiry, *chainPct, *chainTop)
			}
		}
	}

	fmt.Println()
	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║          SCAN COMPLETE               ║")
	fmt.Println("╠══════════════════════════════════════╣")
	fmt.Printf("║  Interval:          %-16v ║\n", cfg.Interval)
	fmt.Printf("║  Instruments:       %-16d ║\n", len(report.Entries))
	fmt.Printf("║  Unavailable:       %-16d ║\n", unavailable)
	fmt.Printf("║  Alert intents:     %-16d ║\n", len(intents))
	fmt.Println("╚══════════════════════════════════════╝")

	// Non-zero exit when nothing could be evaluated, so cron notices.
	if len(report.Entries) > 0 && unavailable == len(report.Entries) {
		os.Exit(1)
	}
}

func splitSymbols(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func fmtVwap(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

func printChain(ctx context.Context, client *chartapi.Client, symbol string, expiry time.Time, pct float64, top int) {
	chain, err := client.FetchChain(ctx, symbol, expiry)
	if err != nil {
		log.Printf("[scanonce] %s: option chain unavailable: %v", symbol, err)
		if errors.Is(err, chartapi.ErrNoData) && !expiry.IsZero() {
			if dates, lerr := client.ListExpirations(ctx, symbol); lerr == nil && len(dates) > 0 {
				avail := make([]string, len(dates))
				for i, d := range dates {
					avail[i] = d.Format("2006-01-02")
				}
				log.Printf("[scanonce] %s: available expirations: %s", symbol, strings.Join(avail, ", "))
			}
		}
		return
	}
	fmt.Printf("\n  %s options, expiry %s, spot %s\n",
		symbol, chain.Expiration.Format("2006-01-02"), chain.Underlying.StringFixed(2))
	printContracts("CALLS", chartapi.NearStrikes(chain.Calls, chain.Underlying, pct, top))
	printContracts("PUTS", chartapi.NearStrikes(chain.Puts, chain.Underlying, pct, top))
}

func printContracts(side string, contracts []chartapi.Contract) {
	if len(contracts) == 0 {
		fmt.Printf("    %-5s  (no strikes in band)\n", side)
		return
	}
	fmt.Printf("    %-5s %10s %10s %10s %10s\n", side, "strike", "bid", "ask", "OI")
	for _, ct := range contracts {
		fmt.Printf("    %-5s %10s %10s %10s %10d\n", "",
			ct.Strike.StringFixed(2), ct.Bid.StringFixed(2), ct.Ask.StringFixed(2), ct.OpenInterest)
	}
}
