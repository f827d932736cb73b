// Package redis persists cycle reports and alerts to Redis: latest-value
// keys for REST reads, capped streams for short history and PubSub channels
// for live fan-out to the gateway.
package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"crosswatch/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	// Stream trimming: roughly a trading week of 5m-cycle reports.
	reportStreamMaxLen = 1000
	alertStreamMaxLen  = 1000
	defaultLatestTTL   = 30 * time.Minute
)

// PublisherConfig configures the Redis publisher.
type PublisherConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Publisher writes per-instrument reports and alert events to Redis.
type Publisher struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// New creates a new Redis Publisher and pings the server.
func New(cfg PublisherConfig) (*Publisher, error) {
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

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Publisher{client: client}, nil
}

// WriteReport persists one cycle in a single pipeline. Per instrument:
// SET report:latest:{SYM} with TTL, XADD to reports:{SYM} with approximate
// trimming, PUBLISH to pub:report:{SYM}. The whole cycle is then published
// once on pub:report:all for aggregate subscribers.
func (p *Publisher) WriteReport(ctx context.Context, report *model.CycleReport) error {
	if len(report.Entries) == 0 {
		return nil
	}

	pipe := p.client.Pipeline()
	for _, sym := range report.Symbols() {
		entry := report.Entries[sym]
		jsonData := string(entry.JSON())

		pipe.Set(ctx, entry.LatestKey(), jsonData, defaultLatestTTL)
		pipe.XAdd(ctx, &goredis.XAddArgs{
			Stream: entry.StreamKey(),
			MaxLen: reportStreamMaxLen,
			Approx: true,
			Values: map[string]interface{}{"data": jsonData},
		})
		pipe.Publish(ctx, entry.Channel(), jsonData)
	}
	pipe.Publish(ctx, "pub:report:all", string(report.JSON()))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis report pipeline (cycle %d): %w", report.Cycle, err)
	}
	return nil
}

// PublishAlert records an alert on the capped alerts stream and announces it
// on pub:alert for live subscribers.
func (p *Publisher) PublishAlert(ctx context.Context, intent model.AlertIntent) error {
	jsonData := string(intent.JSON())

	pipe := p.client.Pipeline()
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: model.AlertStream,
		MaxLen: alertStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": jsonData},
	})
	pipe.Publish(ctx, model.AlertChannel, jsonData)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis alert pipeline (%s %s): %w", intent.Symbol, intent.Kind, err)
	}
	return nil
}

// Close closes the Redis client.
func (p *Publisher) Close() error {
	return p.client.Close()
}
