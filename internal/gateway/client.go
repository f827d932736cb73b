package gateway

import (
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client represents a single WebSocket peer. A client with an empty
// symbol filter receives every channel; a filtered client receives only
// matching per-symbol report channels plus alerts and status frames.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	filterMu sync.RWMutex
	symbols  map[string]bool
}

// subscribeMsg is the client→server control message.
//
//	{"type":"SUBSCRIBE","symbols":["AAPL","MSFT"]}   set the filter
//	{"type":"UNSUBSCRIBE"}                            clear it (firehose)
//	{"ping":1712345}                                  latency probe
type subscribeMsg struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols"`
	Ping    int64    `json:"ping"`
}

func (c *Client) sendInitialState(lastTS string) {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()

	var cutoff time.Time
	if lastTS != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, lastTS); err == nil {
			cutoff = parsed
		}
	}

	for channel, entry := range c.hub.latest {
		if !cutoff.IsZero() && !entry.TS.After(cutoff) {
			continue
		}
		envelope, _ := json.Marshal(map[string]interface{}{
			"channel":     channel,
			"data":        json.RawMessage(entry.Data),
			"ts":          entry.TS.Format(time.RFC3339Nano),
			"channel_seq": entry.Seq,
			"initial":     true,
		})
		select {
		case c.send <- envelope:
		default:
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))

			// Coalesce queued messages into one frame, newline separated
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(msg)
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.RemoveClient(c)
		c.conn.Close()
		log.Println("[gateway] ws client disconnected")
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var m subscribeMsg
		if json.Unmarshal(msg, &m) != nil {
			continue
		}

		switch m.Type {
		case "SUBSCRIBE":
			c.setFilter(m.Symbols)
			log.Printf("[gateway] client filter set: %v", m.Symbols)
		case "UNSUBSCRIBE":
			c.setFilter(nil)
			log.Println("[gateway] client filter cleared")
		default:
			if m.Ping > 0 {
				pong, _ := json.Marshal(map[string]interface{}{
					"type":      "pong",
					"ping":      m.Ping,
					"server_ts": time.Now().UnixMilli(),
				})
				select {
				case c.send <- pong:
				default:
				}
			}
		}
	}
}

func (c *Client) setFilter(symbols []string) {
	set := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		if s != "" {
			set[s] = true
		}
	}
	c.filterMu.Lock()
	c.symbols = set
	c.filterMu.Unlock()
}

// matchesChannel reports whether this client should receive a frame on
// the given channel. Alerts and non-report channels always deliver.
// Filtered clients take per-symbol report frames instead of the
// aggregate pub:report:all.
func (c *Client) matchesChannel(channel string) bool {
	c.filterMu.RLock()
	defer c.filterMu.RUnlock()

	if len(c.symbols) == 0 {
		return true
	}
	sym, ok := reportSymbol(channel)
	if !ok {
		return true
	}
	if sym == "all" {
		return false
	}
	return c.symbols[sym]
}

const reportChannelPrefix = "pub:report:"

// reportSymbol extracts SYM from "pub:report:SYM". ok is false for any
// other channel shape.
func reportSymbol(channel string) (string, bool) {
	if !strings.HasPrefix(channel, reportChannelPrefix) {
		return "", false
	}
	sym := channel[len(reportChannelPrefix):]
	if sym == "" {
		return "", false
	}
	return sym, true
}
