package store

import (
	"time"

	"property-workflow-backend/internal/model"
)

// NoticeQuery selects vacancy notices. A non-nil, empty PropertyIDs matches nothing.
type NoticeQuery struct {
	TenantID    string
	PropertyIDs []string
	Status      model.NoticeStatus
}

// NoticeUpdate carries the columns written alongside a notice transition.
type NoticeUpdate struct {
	InspectionDate *time.Time
	ResponseLine   string
	At             time.Time
}

// MaintenanceQuery selects maintenance requests.
type MaintenanceQuery struct {
	TenantID     string
	TechnicianID string
	PropertyIDs  []string
	Status       model.MaintenanceStatus
}

// ApprovalQuery selects approvals, newest first.
type ApprovalQuery struct {
	Type   string
	Status model.ApprovalStatus
	Search string
	Limit  int
}

// ApprovalReview carries the review columns of an approval transition.
type ApprovalReview struct {
	Status          model.ApprovalStatus
	ReviewedBy      string
	ReviewedAt      time.Time
	AdminResponse   *string
	RejectionReason *string
}
