package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"property-workflow-backend/internal/model"
)

func (s *gormStore) CreateApproval(ctx context.Context, a *model.Approval) error {
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("failed to create approval: %w", err)
	}
	return nil
}

func (s *gormStore) GetApproval(ctx context.Context, id string) (*model.Approval, error) {
	var a model.Approval
	if err := s.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// likeEscaper makes a search term match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListApprovals filters in the query itself so type and search cover the whole
// table, not only the returned page.
func (s *gormStore) ListApprovals(ctx context.Context, q ApprovalQuery) ([]model.Approval, error) {
	tx := s.db.WithContext(ctx).Model(&model.Approval{})
	if q.Type != "" {
		tx = tx.Where("approval_type = ?", q.Type)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
		tx = tx.Where(`LOWER(notes) LIKE ? ESCAPE '\' OR LOWER(approval_type) LIKE ? ESCAPE '\' OR LOWER(user_id) LIKE ? ESCAPE '\'`, like, like, like)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	approvals := []model.Approval{}
	if err := tx.Order("created_at DESC").Find(&approvals).Error; err != nil {
		return nil, err
	}
	return approvals, nil
}

func (s *gormStore) ReviewApproval(ctx context.Context, id string, from []model.ApprovalStatus, upd ApprovalReview) error {
	updates := map[string]any{
		"status":      upd.Status,
		"reviewed_by": upd.ReviewedBy,
		"reviewed_at": upd.ReviewedAt,
		"updated_at":  upd.ReviewedAt,
	}
	if upd.AdminResponse != nil {
		updates["admin_response"] = *upd.AdminResponse
	}
	if upd.RejectionReason != nil {
		updates["rejection_reason"] = *upd.RejectionReason
	}

	res := s.db.WithContext(ctx).
		Model(&model.Approval{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if err := conditional(res); err != nil {
		if errors.Is(err, ErrStaleState) {
			return err
		}
		return fmt.Errorf("failed to review approval %s: %w", id, err)
	}
	return nil
}
