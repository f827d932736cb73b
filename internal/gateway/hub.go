// Package gateway fans scanner output out to WebSocket clients. A Redis
// PubSub feed delivers per-symbol reports, cycle aggregates and alerts;
// the hub wraps each payload in a sequenced envelope, remembers the
// latest frame per channel and keeps a short backlog so clients can
// backfill gaps over REST.
package gateway

import (
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Hub manages the connected WebSocket clients and the per-channel
// broadcast state (latest frame, sequence numbers, backlogs).
type Hub struct {
	mu          sync.RWMutex
	clients     map[*Client]bool
	latest      map[string]latestEntry
	seq         int64
	channelSeqs map[string]int64
	backlogs    map[string]*Backlog
}

type latestEntry struct {
	Data json.RawMessage
	TS   time.Time
	Seq  int64 // per-channel seq for gap detection
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		latest:      make(map[string]latestEntry),
		channelSeqs: make(map[string]int64),
		backlogs:    make(map[string]*Backlog),
	}
}

// HandleWSConn registers an upgraded connection and starts its pumps.
// lastTS, when parseable, suppresses initial-state frames the client
// already saw before reconnecting.
func (h *Hub) HandleWSConn(conn *websocket.Conn, lastTS string) {
	client := &Client{
		conn:    conn,
		send:    make(chan []byte, 256),
		hub:     h,
		symbols: make(map[string]bool),
	}

	conn.EnableWriteCompression(true)

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	log.Printf("[gateway] ws client connected (%d total)", count)

	go client.sendInitialState(lastTS)
	go client.writePump()
	go client.readPump()
}

// RemoveClient unregisters a client and closes its send queue.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	h.mu.Unlock()
	close(c.send)
}

// Broadcast wraps data in the sequenced envelope and fans it out to every
// client whose filter matches the channel. The envelope JSON is built by
// hand; broadcast sits on the fan-out hot path and the frame layout is
// fixed.
func (h *Hub) Broadcast(channel string, data []byte) {
	now := time.Now().UTC()

	h.mu.Lock()
	h.channelSeqs[channel]++
	channelSeq := h.channelSeqs[channel]
	h.seq++
	seq := h.seq
	h.latest[channel] = latestEntry{Data: data, TS: now, Seq: channelSeq}
	bl, ok := h.backlogs[channel]
	if !ok {
		bl = NewBacklog(500)
		h.backlogs[channel] = bl
	}
	h.mu.Unlock()

	buf := make([]byte, 0, len(channel)+len(data)+160)
	buf = append(buf, `{"channel":"`...)
	buf = append(buf, channel...)
	buf = append(buf, `","data":`...)
	buf = append(buf, data...)
	buf = append(buf, `,"ts":"`...)
	buf = now.AppendFormat(buf, time.RFC3339Nano)
	buf = append(buf, `","seq":`...)
	buf = strconv.AppendInt(buf, seq, 10)
	buf = append(buf, `,"channel_seq":`...)
	buf = strconv.AppendInt(buf, channelSeq, 10)
	buf = append(buf, '}')

	bl.Push(channelSeq, buf)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if !client.matchesChannel(channel) {
			continue
		}
		select {
		case client.send <- buf:
		default: // slow client, frame dropped; backlog covers the gap
		}
	}
}

// LatestAll returns a snapshot of the newest payload per channel.
func (h *Hub) LatestAll() map[string]json.RawMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()
	cp := make(map[string]json.RawMessage, len(h.latest))
	for k, v := range h.latest {
		cp[k] = v.Data
	}
	return cp
}

// BacklogRange returns buffered envelopes for a channel in [fromSeq, toSeq].
// Serves the /api/missed gap-backfill endpoint.
func (h *Hub) BacklogRange(channel string, fromSeq, toSeq int64) [][]byte {
	h.mu.RLock()
	bl, ok := h.backlogs[channel]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	entries := bl.Range(fromSeq, toSeq)
	result := make([][]byte, len(entries))
	for i, e := range entries {
		result[i] = e.Data
	}
	return result
}

// ChannelSeq returns the current sequence number for a channel.
func (h *Hub) ChannelSeq(channel string) int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.channelSeqs[channel]
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
