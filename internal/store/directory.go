package store

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"property-workflow-backend/internal/model"
)

func (s *gormStore) CreateProfile(ctx context.Context, p *model.Profile) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

func (s *gormStore) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	var p model.Profile
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *gormStore) ListProfiles(ctx context.Context, ids []string) ([]model.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var profiles []model.Profile
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// AddPropertyStaff creates or re-activates a staff assignment.
func (s *gormStore) AddPropertyStaff(ctx context.Context, staff *model.PropertyStaff) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "property_id"}, {Name: "user_id"}, {Name: "role"}},
		DoUpdates: clause.AssignmentColumns([]string{"active"}),
	}).Create(staff).Error
}

func (s *gormStore) ResolveRecipients(ctx context.Context, propertyID string, role model.Role) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&model.PropertyStaff{}).
		Where("property_id = ? AND role = ? AND active = ?", propertyID, role, true).
		Order("user_id").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s recipients for property %s: %w", role, propertyID, err)
	}
	return ids, nil
}

func (s *gormStore) IsPropertyStaff(ctx context.Context, propertyID, userID string, role model.Role) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.PropertyStaff{}).
		Where("property_id = ? AND user_id = ? AND role = ? AND active = ?", propertyID, userID, role, true).
		Count(&count).Error
	return count > 0, err
}

func (s *gormStore) PropertiesForStaff(ctx context.Context, userID string, role model.Role) ([]string, error) {
	ids := []string{}
	err := s.db.WithContext(ctx).
		Model(&model.PropertyStaff{}).
		Where("user_id = ? AND role = ? AND active = ?", userID, role, true).
		Pluck("property_id", &ids).Error
	if ids == nil {
		ids = []string{}
	}
	return ids, err
}
