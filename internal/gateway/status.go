package gateway

import (
	"context"
	"encoding/json"
	"runtime"
	"time"

	"crosswatch/internal/markethours"
)

// StartStatusBroadcast pushes a market-status frame to every client on a
// fixed cadence. Dashboards use it for the session banner and the
// process stats panel.
func (h *Hub) StartStatusBroadcast(ctx context.Context, start time.Time, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.broadcastStatus(start)
			}
		}
	}()
}

func (h *Hub) broadcastStatus(start time.Time) {
	now := time.Now()
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	frame, _ := json.Marshal(map[string]interface{}{
		"type":          "status",
		"market_open":   markethours.IsMarketOpen(now),
		"market_status": markethours.StatusString(now),
		"ws_clients":    h.ClientCount(),
		"goroutines":    runtime.NumGoroutine(),
		"heap_alloc_mb": float64(ms.HeapAlloc) / 1024 / 1024,
		"gc_runs":       ms.NumGC,
		"uptime_sec":    int64(time.Since(start).Seconds()),
		"server_ts":     now.UTC().Format(time.RFC3339Nano),
	})

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- frame:
		default:
		}
	}
}
