package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"property-workflow-backend/internal/model"
)

// appendLine appends to a nullable text column, separating entries with a newline.
const appendLine = "CASE WHEN manager_response IS NULL OR manager_response = '' THEN ? ELSE manager_response || ? END"

func (s *gormStore) CreateNotice(ctx context.Context, n *model.VacancyNotice) error {
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("failed to create vacancy notice: %w", err)
	}
	return nil
}

func (s *gormStore) GetNotice(ctx context.Context, id string) (*model.VacancyNotice, error) {
	var n model.VacancyNotice
	if err := s.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &n, nil
}

func (s *gormStore) ListNotices(ctx context.Context, q NoticeQuery) ([]model.VacancyNotice, error) {
	notices := []model.VacancyNotice{}
	if q.PropertyIDs != nil && len(q.PropertyIDs) == 0 {
		return notices, nil
	}

	tx := s.db.WithContext(ctx).Model(&model.VacancyNotice{})
	if q.TenantID != "" {
		tx = tx.Where("tenant_id = ?", q.TenantID)
	}
	if q.PropertyIDs != nil {
		tx = tx.Where("property_id IN ?", q.PropertyIDs)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	if err := tx.Order("created_at DESC").Find(&notices).Error; err != nil {
		return nil, err
	}
	return notices, nil
}

// TransitionNotice moves a notice from one status to another only if it is
// still in the from status.
func (s *gormStore) TransitionNotice(ctx context.Context, id string, from, to model.NoticeStatus, upd NoticeUpdate) error {
	updates := map[string]any{
		"status":     to,
		"updated_at": upd.At,
	}
	if upd.InspectionDate != nil {
		updates["inspection_date"] = *upd.InspectionDate
	}
	if upd.ResponseLine != "" {
		updates["manager_response"] = gorm.Expr(appendLine, upd.ResponseLine, "\n"+upd.ResponseLine)
	}

	res := s.db.WithContext(ctx).
		Model(&model.VacancyNotice{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if err := conditional(res); err != nil {
		if errors.Is(err, ErrStaleState) {
			return err
		}
		return fmt.Errorf("failed to transition notice %s: %w", id, err)
	}
	return nil
}

func (s *gormStore) AppendManagerResponse(ctx context.Context, id, line string) error {
	res := s.db.WithContext(ctx).
		Model(&model.VacancyNotice{}).
		Where("id = ?", id).
		Update("manager_response", gorm.Expr(appendLine, line, "\n"+line))
	if res.Error != nil {
		return fmt.Errorf("failed to append manager response on notice %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) InsertMessage(ctx context.Context, m *model.VacancyNoticeMessage) (bool, error) {
	var existing model.VacancyNoticeMessage
	err := s.db.WithContext(ctx).
		Where("vacancy_notice_id = ? AND client_key = ?", m.VacancyNoticeID, m.ClientKey).
		Take(&existing).Error
	if err == nil {
		*m = existing
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		// A concurrent post with the same key may have won the unique index.
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			if lookupErr := s.db.WithContext(ctx).
				Where("vacancy_notice_id = ? AND client_key = ?", m.VacancyNoticeID, m.ClientKey).
				Take(&existing).Error; lookupErr == nil {
				*m = existing
				return false, nil
			}
		}
		return false, fmt.Errorf("failed to insert message: %w", err)
	}
	return true, nil
}

// ListMessages returns the thread oldest first; id breaks created_at ties so
// the order is stable across reads.
func (s *gormStore) ListMessages(ctx context.Context, noticeID string) ([]model.VacancyNoticeMessage, error) {
	messages := []model.VacancyNoticeMessage{}
	err := s.db.WithContext(ctx).
		Where("vacancy_notice_id = ?", noticeID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&messages).Error
	return messages, err
}
