package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"crosswatch/internal/model"
)

// LoadBars reads archived bars for a symbol/interval between from and to
// (inclusive), ordered by timestamp. An empty result is not an error.
func (a *Archive) LoadBars(ctx context.Context, symbol string, interval model.Interval, from, to time.Time) (model.Series, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT ts, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND interval = ? AND ts BETWEEN ? AND ?
		ORDER BY ts ASC
	`, symbol, string(interval), from.Unix(), to.Unix())
	if err != nil {
		return model.Series{}, fmt.Errorf("sqlite load bars: %w", err)
	}
	defer rows.Close()

	s := model.Series{Symbol: symbol, Interval: interval}
	for rows.Next() {
		var ts int64
		var volume sql.NullFloat64
		var b model.Bar
		if err := rows.Scan(&ts, &b.Open, &b.High, &b.Low, &b.Close, &volume); err != nil {
			return model.Series{}, fmt.Errorf("sqlite scan bar: %w", err)
		}
		b.TS = time.Unix(ts, 0).UTC()
		b.Volume = volume.Float64
		s.Bars = append(s.Bars, b)
	}
	if err := rows.Err(); err != nil {
		return model.Series{}, fmt.Errorf("sqlite iterate bars: %w", err)
	}
	return s, nil
}

// Symbols lists the distinct instruments present in the bars table for an
// interval, for replay discovery.
func (a *Archive) Symbols(ctx context.Context, interval model.Interval) ([]string, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT DISTINCT symbol FROM bars WHERE interval = ? ORDER BY symbol`,
		string(interval))
	if err != nil {
		return nil, fmt.Errorf("sqlite list symbols: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}
