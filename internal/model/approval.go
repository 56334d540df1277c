package model

import (
	"time"

	"gorm.io/gorm"
)

// ApprovalStatus is the review state of an approval.
type ApprovalStatus string

const (
	ApprovalPending    ApprovalStatus = "pending"
	ApprovalInProgress ApprovalStatus = "in_progress"
	ApprovalApproved   ApprovalStatus = "approved"
	ApprovalRejected   ApprovalStatus = "rejected"
)

// Approval is a generic request waiting for a privileged reviewer.
// ApprovalType is free-form: property, user, lease, tenant, permission_request, ...
type Approval struct {
	ID              string         `gorm:"primaryKey;size:36" json:"id"`
	UserID          string         `gorm:"size:36;index;not null" json:"user_id"`
	ApprovalType    string         `gorm:"size:64;index;not null" json:"approval_type"`
	Status          ApprovalStatus `gorm:"size:32;index;not null" json:"status"`
	PropertyID      *string        `gorm:"size:36" json:"property_id"`
	Notes           string         `gorm:"type:text" json:"notes"`
	Metadata        map[string]any `gorm:"type:text;serializer:json" json:"metadata"`
	ReviewedBy      *string        `gorm:"size:36" json:"reviewed_by"`
	ReviewedAt      *time.Time     `json:"reviewed_at"`
	RejectionReason *string        `gorm:"type:text" json:"rejection_reason"`
	AdminResponse   *string        `gorm:"type:text" json:"admin_response"`
	CreatedAt       time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
}

func (a *Approval) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
