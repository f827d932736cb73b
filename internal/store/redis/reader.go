package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"crosswatch/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

// ReaderConfig configures the Redis reader.
type ReaderConfig struct {
	Addr     string
	Password string
	DB       int
}

// Reader serves the gateway's REST queries: latest report per symbol and
// recent alert history. It reads the keys and streams the Publisher writes.
type Reader struct {
	client *goredis.Client
}

// NewReader creates a new Redis Reader and pings the server.
func NewReader(cfg ReaderConfig) (*Reader, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis-reader] connected to %s", cfg.Addr)
	return &Reader{client: client}, nil
}

// Client returns the underlying Redis client for PubSub subscriptions.
func (r *Reader) Client() *goredis.Client { return r.client }

// LatestReport returns the most recent report for one symbol, or ok=false
// when none is stored (never scanned, or the latest key expired).
func (r *Reader) LatestReport(ctx context.Context, symbol string) (model.InstrumentReport, bool, error) {
	rep := model.InstrumentReport{Symbol: symbol}
	raw, err := r.client.Get(ctx, rep.LatestKey()).Result()
	if err == goredis.Nil {
		return model.InstrumentReport{}, false, nil
	}
	if err != nil {
		return model.InstrumentReport{}, false, fmt.Errorf("redis GET %s: %w", rep.LatestKey(), err)
	}

	var out model.InstrumentReport
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return model.InstrumentReport{}, false, fmt.Errorf("parse latest report %s: %w", symbol, err)
	}
	return out, true, nil
}

// RecentAlerts returns up to count alerts from the capped alerts stream,
// newest first.
func (r *Reader) RecentAlerts(ctx context.Context, count int64) ([]model.AlertIntent, error) {
	msgs, err := r.client.XRevRangeN(ctx, model.AlertStream, "+", "-", count).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis XREVRANGE %s: %w", model.AlertStream, err)
	}

	out := make([]model.AlertIntent, 0, len(msgs))
	for _, msg := range msgs {
		data, ok := msg.Values["data"].(string)
		if !ok {
			continue
		}
		var intent model.AlertIntent
		if err := json.Unmarshal([]byte(data), &intent); err != nil {
			log.Printf("[redis-reader] skipping malformed alert %s: %v", msg.ID, err)
			continue
		}
		out = append(out, intent)
	}
	return out, nil
}

// Close closes the Redis client.
func (r *Reader) Close() error {
	return r.client.Close()
}
