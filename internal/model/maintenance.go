package model

import (
	"time"

	"gorm.io/gorm"
)

// MaintenanceStatus is the lifecycle state of a maintenance request.
type MaintenanceStatus string

const (
	MaintenancePending    MaintenanceStatus = "pending"
	MaintenanceAssigned   MaintenanceStatus = "assigned"
	MaintenanceScheduled  MaintenanceStatus = "scheduled"
	MaintenanceInProgress MaintenanceStatus = "in_progress"
	MaintenanceCompleted  MaintenanceStatus = "completed"
	MaintenanceCancelled  MaintenanceStatus = "cancelled"
)

// Priority ranks a maintenance request.
type Priority string

const (
	PriorityLow       Priority = "low"
	PriorityMedium    Priority = "medium"
	PriorityHigh      Priority = "high"
	PriorityUrgent    Priority = "urgent"
	PriorityEmergency Priority = "emergency"
)

// MaintenanceRequest is a repair job raised against a property.
type MaintenanceRequest struct {
	ID                     string            `gorm:"primaryKey;size:36" json:"id"`
	Title                  string            `gorm:"size:255;not null" json:"title"`
	Description            string            `gorm:"type:text" json:"description"`
	Status                 MaintenanceStatus `gorm:"size:32;index;not null" json:"status"`
	Priority               Priority          `gorm:"size:16;not null" json:"priority"`
	PropertyID             string            `gorm:"size:36;index;not null" json:"property_id"`
	UnitID                 *string           `gorm:"size:36" json:"unit_id"`
	TenantID               string            `gorm:"size:36;index;not null" json:"tenant_id"`
	AssignedToTechnicianID *string           `gorm:"size:36;index" json:"assigned_to_technician_id"`
	CategoryID             *string           `gorm:"size:36" json:"category_id"`
	ScheduledDate          *time.Time        `json:"scheduled_date"`
	CompletionReportID     *string           `gorm:"size:36" json:"completion_report_id"`
	BeforePhotoURL         *string           `gorm:"size:1024" json:"before_photo_url"`
	WorkStartedAt          *time.Time        `json:"work_started_at"`
	CompletedAt            *time.Time        `json:"completed_at"`
	ActualCost             float64           `gorm:"not null;default:0" json:"actual_cost"`
	CreatedAt              time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt              time.Time         `gorm:"not null" json:"updated_at"`
}

func (r *MaintenanceRequest) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// ReportStatus is the state of a completion report.
type ReportStatus string

const (
	// ReportDraft is a staged report whose request has not been completed yet.
	ReportDraft     ReportStatus = "draft"
	ReportSubmitted ReportStatus = "submitted"
)

// MaintenanceCompletionReport is the technician's record of the finished job.
type MaintenanceCompletionReport struct {
	ID                   string       `gorm:"primaryKey;size:36" json:"id"`
	MaintenanceRequestID string       `gorm:"size:36;uniqueIndex;not null" json:"maintenance_request_id"`
	TechnicianID         string       `gorm:"size:36;not null" json:"technician_id"`
	PropertyID           string       `gorm:"size:36;not null" json:"property_id"`
	Notes                string       `gorm:"type:text" json:"notes"`
	HoursSpent           float64      `gorm:"not null;default:0" json:"hours_spent"`
	MaterialsUsed        string       `gorm:"type:text" json:"materials_used"`
	ActualCost           float64      `gorm:"not null;default:0" json:"actual_cost"`
	AfterRepairImageURL  *string      `gorm:"size:1024" json:"after_repair_image_url"`
	Status               ReportStatus `gorm:"size:16;index;not null" json:"status"`
	SubmittedAt          *time.Time   `json:"submitted_at"`
	CreatedAt            time.Time    `gorm:"not null" json:"created_at"`
}

func (r *MaintenanceCompletionReport) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
