package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"property-workflow-backend/internal/model"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrStaleState is returned when a conditional update matched no row
	// because the record was not in one of the expected states.
	ErrStaleState = errors.New("record is not in the expected state")
)

// Store defines the interface for all record-store operations.
type Store interface {
	CreateProfile(ctx context.Context, p *model.Profile) error
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	ListProfiles(ctx context.Context, ids []string) ([]model.Profile, error)
	AddPropertyStaff(ctx context.Context, staff *model.PropertyStaff) error
	// ResolveRecipients returns the active staff of a property holding role.
	ResolveRecipients(ctx context.Context, propertyID string, role model.Role) ([]string, error)
	IsPropertyStaff(ctx context.Context, propertyID, userID string, role model.Role) (bool, error)
	PropertiesForStaff(ctx context.Context, userID string, role model.Role) ([]string, error)

	CreateNotice(ctx context.Context, n *model.VacancyNotice) error
	GetNotice(ctx context.Context, id string) (*model.VacancyNotice, error)
	ListNotices(ctx context.Context, q NoticeQuery) ([]model.VacancyNotice, error)
	TransitionNotice(ctx context.Context, id string, from, to model.NoticeStatus, upd NoticeUpdate) error
	AppendManagerResponse(ctx context.Context, id, line string) error

	// InsertMessage stores m unless a message with the same client key
	// already exists for the notice, in which case m is filled from the
	// stored row and created is false.
	InsertMessage(ctx context.Context, m *model.VacancyNoticeMessage) (created bool, err error)
	ListMessages(ctx context.Context, noticeID string) ([]model.VacancyNoticeMessage, error)

	CreateMaintenanceRequest(ctx context.Context, r *model.MaintenanceRequest) error
	GetMaintenanceRequest(ctx context.Context, id string) (*model.MaintenanceRequest, error)
	ListMaintenanceRequests(ctx context.Context, q MaintenanceQuery) ([]model.MaintenanceRequest, error)
	UpdateMaintenanceRequest(ctx context.Context, id string, from []model.MaintenanceStatus, updates map[string]any) error
	StageReport(ctx context.Context, r *model.MaintenanceCompletionReport) error
	CommitReport(ctx context.Context, r *model.MaintenanceCompletionReport, at time.Time) error
	DeleteDraftReport(ctx context.Context, id string) error
	DeleteDraftsForRequest(ctx context.Context, requestID string) error
	GetReportForRequest(ctx context.Context, requestID string) (*model.MaintenanceCompletionReport, error)
	DeleteStaleDrafts(ctx context.Context, before time.Time) (int64, error)
	FindUnlinkedCompletedRequests(ctx context.Context) ([]model.MaintenanceRequest, error)

	CreateApproval(ctx context.Context, a *model.Approval) error
	GetApproval(ctx context.Context, id string) (*model.Approval, error)
	ListApprovals(ctx context.Context, q ApprovalQuery) ([]model.Approval, error)
	ReviewApproval(ctx context.Context, id string, from []model.ApprovalStatus, upd ApprovalReview) error

	CreateNotification(ctx context.Context, n *model.Notification) error
	ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]model.Notification, error)
	CountUnread(ctx context.Context, recipientID string) (int64, error)
	MarkNotificationRead(ctx context.Context, recipientID, id string, at time.Time) error
	MarkAllNotificationsRead(ctx context.Context, recipientID string, at time.Time) (int64, error)

	UpsertPushSubscription(ctx context.Context, sub *model.PushSubscription) error
	DeletePushSubscription(ctx context.Context, userID, endpoint string) error
	ListPushSubscriptions(ctx context.Context, userID string) ([]model.PushSubscription, error)
	DeletePushSubscriptionByEndpoint(ctx context.Context, endpoint string) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// conditional turns a zero-row conditional update into ErrStaleState.
func conditional(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}
