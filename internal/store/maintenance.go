package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"property-workflow-backend/internal/model"
)

func (s *gormStore) CreateMaintenanceRequest(ctx context.Context, r *model.MaintenanceRequest) error {
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("failed to create maintenance request: %w", err)
	}
	return nil
}

func (s *gormStore) GetMaintenanceRequest(ctx context.Context, id string) (*model.MaintenanceRequest, error) {
	var r model.MaintenanceRequest
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (s *gormStore) ListMaintenanceRequests(ctx context.Context, q MaintenanceQuery) ([]model.MaintenanceRequest, error) {
	requests := []model.MaintenanceRequest{}
	if q.PropertyIDs != nil && len(q.PropertyIDs) == 0 {
		return requests, nil
	}

	tx := s.db.WithContext(ctx).Model(&model.MaintenanceRequest{})
	if q.TenantID != "" {
		tx = tx.Where("tenant_id = ?", q.TenantID)
	}
	if q.TechnicianID != "" {
		tx = tx.Where("assigned_to_technician_id = ?", q.TechnicianID)
	}
	if q.PropertyIDs != nil {
		tx = tx.Where("property_id IN ?", q.PropertyIDs)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	if err := tx.Order("created_at DESC").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// UpdateMaintenanceRequest applies updates only while the request is in one
// of the from statuses.
func (s *gormStore) UpdateMaintenanceRequest(ctx context.Context, id string, from []model.MaintenanceStatus, updates map[string]any) error {
	res := s.db.WithContext(ctx).
		Model(&model.MaintenanceRequest{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if err := conditional(res); err != nil {
		if errors.Is(err, ErrStaleState) {
			return err
		}
		return fmt.Errorf("failed to update maintenance request %s: %w", id, err)
	}
	return nil
}

// StageReport inserts the report as a draft. A draft has no effect on its
// request until CommitReport succeeds.
func (s *gormStore) StageReport(ctx context.Context, r *model.MaintenanceCompletionReport) error {
	r.Status = model.ReportDraft
	r.SubmittedAt = nil
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("failed to stage completion report: %w", err)
	}
	return nil
}

// CommitReport submits a staged report and completes its request in one
// transaction: either both rows change or neither does.
func (s *gormStore) CommitReport(ctx context.Context, r *model.MaintenanceCompletionReport, at time.Time) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.MaintenanceCompletionReport{}).
			Where("id = ? AND status = ?", r.ID, model.ReportDraft).
			Updates(map[string]any{
				"status":       model.ReportSubmitted,
				"submitted_at": at,
			})
		if err := conditional(res); err != nil {
			return err
		}

		res = tx.Model(&model.MaintenanceRequest{}).
			Where("id = ? AND status = ?", r.MaintenanceRequestID, model.MaintenanceInProgress).
			Updates(map[string]any{
				"status":               model.MaintenanceCompleted,
				"completion_report_id": r.ID,
				"actual_cost":          r.ActualCost,
				"completed_at":         at,
				"updated_at":           at,
			})
		return conditional(res)
	})
	if err != nil {
		if errors.Is(err, ErrStaleState) {
			return err
		}
		return fmt.Errorf("failed to commit completion report %s: %w", r.ID, err)
	}

	r.Status = model.ReportSubmitted
	r.SubmittedAt = &at
	return nil
}

// DeleteDraftReport removes a staged report; submitted reports are never deleted.
func (s *gormStore) DeleteDraftReport(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, model.ReportDraft).
		Delete(&model.MaintenanceCompletionReport{}).Error
}

// DeleteDraftsForRequest clears drafts left by an earlier failed completion
// attempt so that a new report can be staged.
func (s *gormStore) DeleteDraftsForRequest(ctx context.Context, requestID string) error {
	return s.db.WithContext(ctx).
		Where("maintenance_request_id = ? AND status = ?", requestID, model.ReportDraft).
		Delete(&model.MaintenanceCompletionReport{}).Error
}

func (s *gormStore) GetReportForRequest(ctx context.Context, requestID string) (*model.MaintenanceCompletionReport, error) {
	var r model.MaintenanceCompletionReport
	err := s.db.WithContext(ctx).
		Where("maintenance_request_id = ? AND status = ?", requestID, model.ReportSubmitted).
		Take(&r).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (s *gormStore) DeleteStaleDrafts(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", model.ReportDraft, before).
		Delete(&model.MaintenanceCompletionReport{})
	return res.RowsAffected, res.Error
}

// FindUnlinkedCompletedRequests returns completed requests without a
// submitted report behind their completion_report_id.
func (s *gormStore) FindUnlinkedCompletedRequests(ctx context.Context) ([]model.MaintenanceRequest, error) {
	requests := []model.MaintenanceRequest{}
	err := s.db.WithContext(ctx).
		Model(&model.MaintenanceRequest{}).
		Where("status = ?", model.MaintenanceCompleted).
		Where("completion_report_id IS NULL OR NOT EXISTS (?)",
			s.db.Model(&model.MaintenanceCompletionReport{}).
				Select("1").
				Where("maintenance_completion_reports.id = maintenance_requests.completion_report_id").
				Where("maintenance_completion_reports.status = ?", model.ReportSubmitted),
		).
		Find(&requests).Error
	return requests, err
}
