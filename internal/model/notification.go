package model

import (
	"time"

	"gorm.io/gorm"
)

// Notification types emitted by the workflows.
const (
	NotificationVacancyNotice        = "vacancy_notice"
	NotificationVacancyUpdate        = "vacancy_update"
	NotificationVacancyMessage       = "vacancy_message"
	NotificationMaintenanceRequest   = "maintenance_request"
	NotificationMaintenanceAssigned  = "maintenance_assigned"
	NotificationMaintenanceCompleted = "maintenance_completed"
	NotificationApprovalUpdate       = "approval_update"
)

// Notification is an informational inbox entry for one recipient.
type Notification struct {
	ID                string     `gorm:"primaryKey;size:36" json:"id"`
	RecipientID       string     `gorm:"size:36;not null;index:idx_notification_inbox,priority:1" json:"recipient_id"`
	SenderID          *string    `gorm:"size:36" json:"sender_id"`
	Type              string     `gorm:"size:64;not null" json:"type"`
	Title             string     `gorm:"size:255;not null" json:"title"`
	Message           string     `gorm:"type:text" json:"message"`
	RelatedEntityType string     `gorm:"size:64" json:"related_entity_type"`
	RelatedEntityID   string     `gorm:"size:36" json:"related_entity_id"`
	IsRead            bool       `gorm:"not null;default:false;index:idx_notification_inbox,priority:2" json:"is_read"`
	ReadAt            *time.Time `json:"read_at"`
	CreatedAt         time.Time  `gorm:"not null" json:"created_at"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
