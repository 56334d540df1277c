package model

import (
	"time"

	"gorm.io/gorm"
)

// NoticeStatus is the lifecycle state of a vacancy notice.
type NoticeStatus string

const (
	NoticePending             NoticeStatus = "pending"
	NoticeInspectionScheduled NoticeStatus = "inspection_scheduled"
	NoticeRejected            NoticeStatus = "rejected"
	NoticeCompleted           NoticeStatus = "completed"

	// NoticeLegacyApproved was used interchangeably with completed; rows are
	// rewritten to NoticeCompleted during migration.
	NoticeLegacyApproved NoticeStatus = "approved"
)

// VacancyNotice is a tenant's intent to vacate a unit.
type VacancyNotice struct {
	ID              string       `gorm:"primaryKey;size:36" json:"id"`
	TenantID        string       `gorm:"size:36;index;not null" json:"tenant_id"`
	PropertyID      string       `gorm:"size:36;index;not null" json:"property_id"`
	UnitID          string       `gorm:"size:36" json:"unit_id"`
	MoveOutDate     time.Time    `gorm:"not null" json:"move_out_date"`
	Reason          string       `gorm:"type:text;not null" json:"reason"`
	Status          NoticeStatus `gorm:"size:32;index;not null" json:"status"`
	InspectionDate  *time.Time   `json:"inspection_date"`
	ManagerResponse *string      `gorm:"type:text" json:"manager_response"`
	CreatedAt       time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null" json:"updated_at"`
}

func (n *VacancyNotice) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}

// VacancyNoticeMessage is one entry of the chat thread attached to a notice.
type VacancyNoticeMessage struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	VacancyNoticeID string    `gorm:"size:36;not null;uniqueIndex:idx_notice_message_client_key,priority:1;index:idx_notice_message_order,priority:1" json:"vacancy_notice_id"`
	SenderID        string    `gorm:"size:36;not null" json:"sender_id"`
	Message         string    `gorm:"type:text;not null" json:"message"`
	ClientKey       string    `gorm:"size:64;not null;uniqueIndex:idx_notice_message_client_key,priority:2" json:"client_key"`
	CreatedAt       time.Time `gorm:"not null;index:idx_notice_message_order,priority:2" json:"created_at"`
}

func (m *VacancyNoticeMessage) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
