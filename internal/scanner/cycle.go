package scanner

import (
	"context"
	"log"
	"time"

	"crosswatch/internal/indicator"
	"crosswatch/internal/markethours"
	"crosswatch/internal/metrics"
	"crosswatch/internal/model"
)

// Runner executes one scan cycle: fetch bars, compute MACD and VWAP,
// classify the crossover, assemble the report. It carries no indicator
// state between cycles; every cycle recomputes from the full freshly
// fetched series.
type Runner struct {
	Provider model.BarProvider
	Interval model.Interval
	MACD     indicator.MACDConfig
	Metrics  *metrics.Metrics // optional
	Now      func() time.Time // optional, defaults to time.Now
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// RunCycle evaluates every symbol once and assembles the cycle report.
// A provider failure or empty series marks that one instrument
// data_unavailable; sibling instruments still evaluate. The returned
// series map holds the bars fetched for each healthy instrument, for
// callers that archive them.
func (r *Runner) RunCycle(ctx context.Context, symbols []string, cycle int64) (*model.CycleReport, map[string]model.Series) {
	started := r.now()
	report := &model.CycleReport{
		Cycle:     cycle,
		StartedAt: started,
		Entries:   make(map[string]model.InstrumentReport, len(symbols)),
	}
	fetched := make(map[string]model.Series, len(symbols))

	window := model.Window{
		From: markethours.LookbackStart(started, r.Interval.LookbackTradingDays()),
		To:   started,
	}

	for _, sym := range symbols {
		if ctx.Err() != nil {
			log.Printf("[scanner] cycle %d interrupted: %v", cycle, ctx.Err())
			break
		}
		entry, series, ok := r.evaluate(ctx, sym, window)
		report.Entries[sym] = entry
		if ok {
			fetched[sym] = series
		}
	}

	report.FinishedAt = r.now()
	return report, fetched
}

// evaluate produces the report entry for one instrument. ok is false when
// the instrument is data_unavailable; the series is then empty.
func (r *Runner) evaluate(ctx context.Context, symbol string, window model.Window) (model.InstrumentReport, model.Series, bool) {
	evaluated := r.now()

	fetchStart := time.Now()
	series, err := r.Provider.FetchBars(ctx, symbol, r.Interval, window)
	if r.Metrics != nil {
		r.Metrics.FetchDur.Observe(time.Since(fetchStart).Seconds())
	}

	if err == nil && series.Len() == 0 {
		err = model.ErrEmptySeries
	}
	if err != nil {
		log.Printf("[scanner] %s: data unavailable: %v", symbol, err)
		if r.Metrics != nil {
			r.Metrics.FetchErrors.WithLabelValues(symbol).Inc()
		}
		return model.InstrumentReport{
			Symbol:      symbol,
			Status:      model.StatusUnavailable,
			Error:       err.Error(),
			Crossover:   model.Crossover{Kind: model.CrossInsufficient},
			EvaluatedAt: evaluated,
		}, model.Series{}, false
	}

	osc := indicator.ComputeMACD(series, r.MACD)
	cross := indicator.Detect(osc)

	entry := model.InstrumentReport{
		Symbol:      symbol,
		Status:      model.StatusOK,
		Bars:        series.Len(),
		Crossover:   cross,
		EvaluatedAt: evaluated,
	}
	if px, ok := series.LastPrice(); ok {
		entry.LastPrice = px
	}
	if v, ok := indicator.LastVWAP(series); ok {
		entry.Vwap = &v
	}

	if r.Metrics != nil {
		r.Metrics.BarsFetched.WithLabelValues(symbol).Add(float64(series.Len()))
		if cross.Kind.Actionable() {
			r.Metrics.Crossovers.WithLabelValues(symbol, string(cross.Kind)).Inc()
		}
	}
	if cross.Kind.Actionable() {
		log.Printf("[scanner] %s: %s crossover (macd %.4f vs signal %.4f)",
			symbol, cross.Kind, cross.MacdNow, cross.SignalNow)
	}
	return entry, series, true
}
