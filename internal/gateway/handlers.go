package gateway

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	redisstore "crosswatch/internal/store/redis"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// RegisterRoutes registers the WS endpoint and the REST surface on mux.
func RegisterRoutes(mux *http.ServeMux, hub *Hub, reader *redisstore.Reader, processStart time.Time) {
	// WebSocket endpoint. ?last_ts= trims the initial snapshot to frames
	// newer than the client's reconnect cursor.
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[gateway] ws upgrade error: %v", err)
			return
		}
		hub.HandleWSConn(conn, r.URL.Query().Get("last_ts"))
	})

	// REST: latest report frames. Without ?symbol= this serves the hub's
	// in-memory latest frame per channel; with it, the durable copy from
	// Redis, which survives gateway restarts.
	mux.HandleFunc("/api/reports/latest", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		if sym := r.URL.Query().Get("symbol"); sym != "" {
			report, ok, err := reader.LatestReport(r.Context(), sym)
			if err != nil {
				http.Error(w, `{"error":"redis unavailable"}`, http.StatusBadGateway)
				return
			}
			if !ok {
				http.Error(w, `{"error":"no report for symbol"}`, http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(report)
			return
		}
		json.NewEncoder(w).Encode(hub.LatestAll())
	})

	// REST: recent alert intents, newest first.
	mux.HandleFunc("/api/alerts/recent", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		count := int64(50)
		if s := r.URL.Query().Get("count"); s != "" {
			if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 && n <= 500 {
				count = n
			}
		}
		alerts, err := reader.RecentAlerts(r.Context(), count)
		if err != nil {
			http.Error(w, `{"error":"redis unavailable"}`, http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(alerts)
	})

	// REST: gap backfill. Returns the buffered envelopes for a channel in
	// [from, to] plus the current channel seq so the client can re-anchor.
	mux.HandleFunc("/api/missed", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		channel := r.URL.Query().Get("channel")
		if channel == "" {
			http.Error(w, `{"error":"channel is required"}`, http.StatusBadRequest)
			return
		}
		from, _ := strconv.ParseInt(r.URL.Query().Get("from"), 10, 64)
		to, _ := strconv.ParseInt(r.URL.Query().Get("to"), 10, 64)
		if to == 0 {
			to = hub.ChannelSeq(channel)
		}

		frames := hub.BacklogRange(channel, from, to)
		out := struct {
			Channel    string            `json:"channel"`
			From       int64             `json:"from"`
			To         int64             `json:"to"`
			CurrentSeq int64             `json:"current_seq"`
			Frames     []json.RawMessage `json:"frames"`
		}{
			Channel:    channel,
			From:       from,
			To:         to,
			CurrentSeq: hub.ChannelSeq(channel),
			Frames:     make([]json.RawMessage, len(frames)),
		}
		for i, f := range frames {
			out.Frames[i] = f
		}
		json.NewEncoder(w).Encode(out)
	})

	// Health endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		redisOK := true
		if err := reader.Client().Ping(r.Context()).Err(); err != nil {
			redisOK = false
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":     "ok",
			"redis":      redisOK,
			"ws_clients": hub.ClientCount(),
			"uptime_sec": int64(time.Since(processStart).Seconds()),
			"ts":         time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
