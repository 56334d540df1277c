// Package workflow enforces the vacancy, maintenance and approval state
// machines and emits the notifications and change events that follow them.
package workflow

import (
	"context"
	"time"

	"property-workflow-backend/internal/directory"
	"property-workflow-backend/internal/model"
	"property-workflow-backend/internal/notification"
	"property-workflow-backend/internal/realtime"
	"property-workflow-backend/internal/storage"
	"property-workflow-backend/internal/store"
)

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID   string
	Role model.Role
}

// Notifier fans a message out to its recipients and reports how many rows it stored.
type Notifier interface {
	Notify(ctx context.Context, msg notification.Message) int
}

// Deps are the collaborators shared by the workflow services.
type Deps struct {
	Store     store.Store
	Notifier  Notifier
	Publisher realtime.Publisher
	Directory *directory.Directory
	Uploader  storage.Uploader
	// ApprovalListLimit caps approval listings.
	ApprovalListLimit int
	Now               func() time.Time
}

type base struct {
	store     store.Store
	notifier  Notifier
	publisher realtime.Publisher
	now       func() time.Time
}

func newBase(d Deps) base {
	now := d.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return base{store: d.Store, notifier: d.Notifier, publisher: d.Publisher, now: now}
}

func (b base) notify(ctx context.Context, msg notification.Message) {
	if b.notifier == nil || len(msg.RecipientIDs) == 0 {
		return
	}
	b.notifier.Notify(ctx, msg)
}

func (b base) publish(ctx context.Context, table, column, value, action, recordID, clientKey string) {
	if b.publisher == nil {
		return
	}
	b.publisher.Publish(ctx, realtime.Event{
		Topic:     realtime.Topic(table, column, value),
		Table:     table,
		Action:    action,
		RecordID:  recordID,
		ClientKey: clientKey,
		At:        b.now(),
	})
}

// isManager reports whether actor is an active manager of propertyID.
func (b base) isManager(ctx context.Context, actor Actor, propertyID string) (bool, error) {
	if actor.Role != model.RolePropertyManager {
		return false, nil
	}
	return b.store.IsPropertyStaff(ctx, propertyID, actor.ID, model.RolePropertyManager)
}

func (b base) requireManager(ctx context.Context, actor Actor, propertyID string) error {
	ok, err := b.isManager(ctx, actor, propertyID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// managedProperties returns the properties actor is an active manager of.
func (b base) managedProperties(ctx context.Context, actor Actor) ([]string, error) {
	return b.store.PropertiesForStaff(ctx, actor.ID, model.RolePropertyManager)
}

func strPtr(s string) *string {
	return &s
}
