// Package notification records inbox entries and pushes them to browsers.
package notification

import (
	"context"
	"log"

	"property-workflow-backend/internal/model"
	"property-workflow-backend/internal/realtime"
)

// Message describes one logical notification sent to any number of recipients.
type Message struct {
	RecipientIDs []string
	SenderID     string
	Type         string
	Title        string
	Body         string
	EntityType   string
	EntityID     string
}

// Recorder persists notification rows.
type Recorder interface {
	CreateNotification(ctx context.Context, n *model.Notification) error
}

// Dispatcher hands a stored notification to push delivery.
type Dispatcher interface {
	Dispatch(n model.Notification) bool
}

// Notifier fans a Message out to one row per recipient.
type Notifier struct {
	store     Recorder
	publisher realtime.Publisher
	pusher    Dispatcher
}

// NewNotifier creates a notifier. publisher and pusher may be nil.
func NewNotifier(store Recorder, publisher realtime.Publisher, pusher Dispatcher) *Notifier {
	return &Notifier{store: store, publisher: publisher, pusher: pusher}
}

// Notify stores one row per distinct recipient and returns how many were
// stored. Senders never notify themselves. Failures are logged and skipped so
// that notification problems never undo the change that triggered them.
func (n *Notifier) Notify(ctx context.Context, msg Message) int {
	var sender *string
	if msg.SenderID != "" {
		sender = &msg.SenderID
	}

	seen := make(map[string]struct{}, len(msg.RecipientIDs))
	created := 0
	for _, recipient := range msg.RecipientIDs {
		if recipient == "" || recipient == msg.SenderID {
			continue
		}
		if _, dup := seen[recipient]; dup {
			continue
		}
		seen[recipient] = struct{}{}

		row := model.Notification{
			RecipientID:       recipient,
			SenderID:          sender,
			Type:              msg.Type,
			Title:             msg.Title,
			Message:           msg.Body,
			RelatedEntityType: msg.EntityType,
			RelatedEntityID:   msg.EntityID,
		}
		if err := n.store.CreateNotification(ctx, &row); err != nil {
			log.Printf("Failed to create %s notification for %s: %v", msg.Type, recipient, err)
			continue
		}
		created++

		if n.publisher != nil {
			n.publisher.Publish(ctx, realtime.Event{
				Topic:    realtime.Topic("notifications", "recipient_id", recipient),
				Table:    "notifications",
				Action:   realtime.ActionInsert,
				RecordID: row.ID,
			})
		}
		if n.pusher != nil {
			n.pusher.Dispatch(row)
		}
	}
	return created
}
