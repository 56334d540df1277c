package store

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"property-workflow-backend/internal/model"
)

func (s *gormStore) CreateNotification(ctx context.Context, n *model.Notification) error {
	return s.db.WithContext(ctx).Create(n).Error
}

func (s *gormStore) ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	tx := s.db.WithContext(ctx).Where("recipient_id = ?", recipientID)
	if unreadOnly {
		tx = tx.Where("is_read = ?", false)
	}
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	notifications := []model.Notification{}
	err := tx.Order("created_at DESC").Order("id DESC").Find(&notifications).Error
	return notifications, err
}

func (s *gormStore) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}

// MarkNotificationRead is idempotent for notifications already read.
func (s *gormStore) MarkNotificationRead(ctx context.Context, recipientID, id string, at time.Time) error {
	var n model.Notification
	if err := s.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Take(&n).Error; err != nil {
		return notFound(err)
	}
	if n.IsRead {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_read": true, "read_at": at}).Error
}

func (s *gormStore) MarkAllNotificationsRead(ctx context.Context, recipientID string, at time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Updates(map[string]any{"is_read": true, "read_at": at})
	return res.RowsAffected, res.Error
}

func (s *gormStore) UpsertPushSubscription(ctx context.Context, sub *model.PushSubscription) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth"}),
	}).Create(sub).Error
}

func (s *gormStore) DeletePushSubscription(ctx context.Context, userID, endpoint string) error {
	res := s.db.WithContext(ctx).
		Where("endpoint = ? AND user_id = ?", endpoint, userID).
		Delete(&model.PushSubscription{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) DeletePushSubscriptionByEndpoint(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error
}

func (s *gormStore) ListPushSubscriptions(ctx context.Context, userID string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&subs).Error
	return subs, err
}
