package realtime

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

// RedisBroker fans events out through a Redis pub/sub channel so that every
// API instance delivers them to its own websocket clients.
type RedisBroker struct {
	client  *redis.Client
	channel string
	local   *Hub
}

// NewRedisBroker wraps local with Redis distribution on channel.
func NewRedisBroker(client *redis.Client, channel string, local *Hub) *RedisBroker {
	return &RedisBroker{client: client, channel: channel, local: local}
}

// Publish sends ev to Redis. If Redis is unreachable the event is still
// delivered to this instance's subscribers.
func (b *RedisBroker) Publish(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("realtime: failed to encode event for %s: %v", ev.Topic, err)
		return
	}
	if err := b.client.Publish(ctx, b.channel, string(payload)).Err(); err != nil {
		log.Printf("realtime: redis publish failed, delivering locally: %v", err)
		b.local.deliver(ev)
	}
}

func (b *RedisBroker) Subscribe(topic string) (<-chan Event, func()) {
	return b.local.Subscribe(topic)
}

func (b *RedisBroker) OnEvent(fn func(Event)) {
	b.local.OnEvent(fn)
}

// Run relays events from Redis into the local hub until ctx is done.
func (b *RedisBroker) Run(ctx context.Context) {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	log.Printf("realtime: relaying redis channel %q", b.channel)
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			log.Println("realtime: relay shutting down")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.relay(msg.Payload)
		}
	}
}

func (b *RedisBroker) relay(payload string) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		log.Printf("realtime: ignoring malformed event: %v", err)
		return
	}
	b.local.deliver(ev)
}
