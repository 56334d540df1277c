package notification

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"property-workflow-backend/internal/model"
)

// PushSender sends a single web push message.
type PushSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender sends through the webpush library.
type WebPushSender struct{}

func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// SubscriptionStore is the part of the store the push workers need.
type SubscriptionStore interface {
	ListPushSubscriptions(ctx context.Context, userID string) ([]model.PushSubscription, error)
	DeletePushSubscriptionByEndpoint(ctx context.Context, endpoint string) error
}

// pushPayload is what the service worker on the client receives.
type pushPayload struct {
	NotificationID string `json:"notification_id"`
	Type           string `json:"type"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	EntityType     string `json:"entity_type,omitempty"`
	EntityID       string `json:"entity_id,omitempty"`
}

// WorkerPool delivers notification rows to their recipients' browsers.
type WorkerPool struct {
	size    int
	jobs    chan model.Notification
	store   SubscriptionStore
	webpush *webpush.Options
	sender  PushSender
}

// NewWorkerPool creates a pool of size workers with a queue of queueSize jobs.
func NewWorkerPool(size, queueSize int, store SubscriptionStore, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan model.Notification, queueSize),
		store:   store,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Push worker %d started", id)
	for {
		select {
		case n := <-wp.jobs:
			wp.deliver(ctx, n)
		case <-ctx.Done():
			log.Printf("Push worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues n for delivery. It never blocks: when the queue is full the
// push is dropped, the notification row itself is already stored.
func (wp *WorkerPool) Dispatch(n model.Notification) bool {
	select {
	case wp.jobs <- n:
		return true
	default:
		log.Printf("Push queue full; dropping push for notification %s", n.ID)
		return false
	}
}

func (wp *WorkerPool) deliver(ctx context.Context, n model.Notification) {
	subs, err := wp.store.ListPushSubscriptions(ctx, n.RecipientID)
	if err != nil {
		log.Printf("Error fetching push subscriptions for %s: %v", n.RecipientID, err)
		return
	}
	if len(subs) == 0 {
		return
	}

	payload, err := json.Marshal(pushPayload{
		NotificationID: n.ID,
		Type:           n.Type,
		Title:          n.Title,
		Body:           n.Message,
		EntityType:     n.RelatedEntityType,
		EntityID:       n.RelatedEntityID,
	})
	if err != nil {
		log.Printf("Error encoding push for notification %s: %v", n.ID, err)
		return
	}

	for _, sub := range subs {
		wp.send(ctx, sub, payload)
	}
}

func (wp *WorkerPool) send(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending push to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		log.Printf("Push subscription %s is expired. Deleting.", sub.Endpoint)
		if err := wp.store.DeletePushSubscriptionByEndpoint(ctx, sub.Endpoint); err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
