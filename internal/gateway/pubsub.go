package gateway

import (
	"context"
	"log"

	goredis "github.com/go-redis/redis/v8"

	"crosswatch/internal/model"
)

// PubSubFeed bridges Redis PubSub into the hub: every scanner report and
// alert published by the scanner is rebroadcast to WebSocket clients.
type PubSubFeed struct {
	hub *Hub
	rdb *goredis.Client
}

// NewPubSubFeed creates a feed for the given hub and Redis client.
func NewPubSubFeed(hub *Hub, rdb *goredis.Client) *PubSubFeed {
	return &PubSubFeed{hub: hub, rdb: rdb}
}

// Run subscribes to the report pattern and the alert channel and routes
// messages until ctx is cancelled.
func (f *PubSubFeed) Run(ctx context.Context) {
	pubsub := f.rdb.PSubscribe(ctx, reportChannelPrefix+"*", model.AlertChannel)
	defer pubsub.Close()

	log.Printf("[gateway] subscribed to %s* and %s", reportChannelPrefix, model.AlertChannel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			f.hub.Broadcast(msg.Channel, []byte(msg.Payload))
		}
	}
}
