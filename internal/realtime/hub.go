package realtime

import (
	"context"
	"log"
	"sync"
	"time"
)

// Actions carried by change events.
const (
	ActionInsert = "insert"
	ActionUpdate = "update"
)

// Event tells subscribers that a watched row changed. Subscribers re-fetch;
// the event carries identifiers only.
type Event struct {
	Topic     string    `json:"topic"`
	Table     string    `json:"table"`
	Action    string    `json:"action"`
	RecordID  string    `json:"record_id"`
	ClientKey string    `json:"client_key,omitempty"`
	At        time.Time `json:"at"`
}

// Topic builds the subscription key for rows of table whose column equals value.
func Topic(table, column, value string) string {
	return table + ":" + column + "=" + value
}

// Publisher broadcasts change events.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Broker is a Publisher that clients can also subscribe to.
type Broker interface {
	Publisher
	Subscribe(topic string) (<-chan Event, func())
	OnEvent(fn func(Event))
}

// Hub is an in-process broker keyed by topic.
type Hub struct {
	mu       sync.RWMutex
	subs     map[string]map[int]chan Event
	watchers []func(Event)
	nextID   int
	buffer   int
}

// NewHub creates a hub whose subscriber channels hold buffer events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 1
	}
	return &Hub{
		subs:   make(map[string]map[int]chan Event),
		buffer: buffer,
	}
}

// Subscribe returns a channel of events for topic and a cancel func that
// unsubscribes and closes the channel. Cancel is safe to call more than once.
func (h *Hub) Subscribe(topic string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Event, h.buffer)
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[int]chan Event)
	}
	h.subs[topic][id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[topic], id)
			if len(h.subs[topic]) == 0 {
				delete(h.subs, topic)
			}
			close(ch)
		})
	}
	return ch, cancel
}

// OnEvent registers fn to run for every published event regardless of topic.
func (h *Hub) OnEvent(fn func(Event)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.watchers = append(h.watchers, fn)
}

// Publish delivers ev to local subscribers.
func (h *Hub) Publish(_ context.Context, ev Event) {
	h.deliver(ev)
}

// deliver never blocks: a subscriber whose buffer is full misses the event
// and catches up on its next re-fetch.
func (h *Hub) deliver(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subs[ev.Topic] {
		select {
		case ch <- ev:
		default:
			log.Printf("realtime: dropping %s event for subscriber %d on %s", ev.Action, id, ev.Topic)
		}
	}
	for _, fn := range h.watchers {
		fn(ev)
	}
}

// Subscribers reports how many subscriptions exist for topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}
