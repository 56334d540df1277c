package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"property-workflow-backend/internal/model"
	"property-workflow-backend/internal/notification"
	"property-workflow-backend/internal/parse"
	"property-workflow-backend/internal/realtime"
	"property-workflow-backend/internal/storage"
	"property-workflow-backend/internal/store"
)

const maintenanceEntity = "maintenance_request"

// RequestInput is a tenant's maintenance request.
type RequestInput struct {
	Title       string         `json:"title" validate:"required,max=255"`
	Description string         `json:"description"`
	Priority    model.Priority `json:"priority" validate:"omitempty,oneof=low medium high urgent emergency"`
	PropertyID  string         `json:"property_id" validate:"required"`
	UnitID      string         `json:"unit_id"`
	CategoryID  string         `json:"category_id"`
}

// ReportInput is the technician's completion form. Numeric fields are the raw
// text the technician typed.
type ReportInput struct {
	Notes         string `json:"notes"`
	HoursSpent    string `json:"hours_spent"`
	MaterialsUsed string `json:"materials_used"`
	ActualCost    string `json:"actual_cost"`
}

// MaintenanceService runs maintenance requests from creation to completion.
type MaintenanceService struct {
	base
	uploader storage.Uploader
}

// NewMaintenanceService creates a MaintenanceService.
func NewMaintenanceService(d Deps) *MaintenanceService {
	uploader := d.Uploader
	if uploader == nil {
		uploader = storage.Disabled{}
	}
	return &MaintenanceService{base: newBase(d), uploader: uploader}
}

// Create records a pending request and notifies the property's managers.
func (s *MaintenanceService) Create(ctx context.Context, tenant Actor, in RequestInput) (*model.MaintenanceRequest, error) {
	if tenant.Role != model.RoleTenant {
		return nil, ErrForbidden
	}
	in.Title = strings.TrimSpace(in.Title)
	in.PropertyID = strings.TrimSpace(in.PropertyID)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	}

	req := &model.MaintenanceRequest{
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		Status:      model.MaintenancePending,
		Priority:    in.Priority,
		PropertyID:  in.PropertyID,
		TenantID:    tenant.ID,
	}
	if unit := strings.TrimSpace(in.UnitID); unit != "" {
		req.UnitID = &unit
	}
	if category := strings.TrimSpace(in.CategoryID); category != "" {
		req.CategoryID = &category
	}
	if err := s.store.CreateMaintenanceRequest(ctx, req); err != nil {
		return nil, err
	}

	managers, err := s.store.ResolveRecipients(ctx, req.PropertyID, model.RolePropertyManager)
	if err != nil {
		log.Printf("Maintenance request %s: could not resolve managers: %v", req.ID, err)
	}
	s.notify(ctx, notification.Message{
		RecipientIDs: managers,
		SenderID:     tenant.ID,
		Type:         model.NotificationMaintenanceRequest,
		Title:        "New maintenance request",
		Body:         fmt.Sprintf("%s (%s priority)", req.Title, req.Priority),
		EntityType:   maintenanceEntity,
		EntityID:     req.ID,
	})
	s.publish(ctx, "maintenance_requests", "property_id", req.PropertyID, realtime.ActionInsert, req.ID, "")
	return req, nil
}

// Assign gives the request to a technician, replacing any earlier assignment.
// With a scheduled date the request becomes scheduled, otherwise assigned.
func (s *MaintenanceService) Assign(ctx context.Context, manager Actor, requestID, technicianID string, scheduledDate *time.Time) (*model.MaintenanceRequest, error) {
	technicianID = strings.TrimSpace(technicianID)
	if technicianID == "" {
		return nil, invalid("technician_id", "is required")
	}

	req, err := s.store.GetMaintenanceRequest(ctx, requestID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if err := s.requireManager(ctx, manager, req.PropertyID); err != nil {
		return nil, err
	}
	tech, err := s.store.GetProfile(ctx, technicianID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && tech.Role != model.RoleTechnician) {
		return nil, invalid("technician_id", "is not a technician")
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	to := model.MaintenanceAssigned
	updates := map[string]any{
		"assigned_to_technician_id": tech.ID,
		"updated_at":                now,
	}
	if scheduledDate != nil && !scheduledDate.IsZero() {
		to = model.MaintenanceScheduled
		updates["scheduled_date"] = scheduledDate.UTC()
	}
	updates["status"] = to

	from := []model.MaintenanceStatus{model.MaintenancePending, model.MaintenanceAssigned, model.MaintenanceScheduled}
	if !slices.Contains(from, req.Status) {
		return nil, fmt.Errorf("%w: request is %s", ErrInvalidTransition, req.Status)
	}
	if err := s.store.UpdateMaintenanceRequest(ctx, req.ID, from, updates); err != nil {
		return nil, mapStoreErr(err)
	}

	body := req.Title
	if to == model.MaintenanceScheduled {
		body = fmt.Sprintf("%s, scheduled for %s", req.Title, scheduledDate.UTC().Format("2 Jan 2006 15:04 MST"))
	}
	s.notify(ctx, notification.Message{
		RecipientIDs: []string{tech.ID},
		SenderID:     manager.ID,
		Type:         model.NotificationMaintenanceAssigned,
		Title:        "New job assigned",
		Body:         body,
		EntityType:   maintenanceEntity,
		EntityID:     req.ID,
	})
	s.publish(ctx, "maintenance_requests", "id", req.ID, realtime.ActionUpdate, req.ID, "")
	return s.reload(ctx, req.ID)
}

// StartJob moves an assigned request to in_progress, storing an optional
// before photo first.
func (s *MaintenanceService) StartJob(ctx context.Context, tech Actor, requestID string, before *storage.File) (*model.MaintenanceRequest, error) {
	req, err := s.assignedRequest(ctx, tech, requestID)
	if err != nil {
		return nil, err
	}
	from := []model.MaintenanceStatus{model.MaintenanceAssigned, model.MaintenanceScheduled}
	if !slices.Contains(from, req.Status) {
		return nil, fmt.Errorf("%w: request is %s", ErrInvalidTransition, req.Status)
	}

	now := s.now()
	updates := map[string]any{
		"status":          model.MaintenanceInProgress,
		"work_started_at": now,
		"updated_at":      now,
	}
	if before != nil {
		url, err := s.upload(ctx, req.ID, "before", before)
		if err != nil {
			return nil, err
		}
		updates["before_photo_url"] = url
	}
	if err := s.store.UpdateMaintenanceRequest(ctx, req.ID, from, updates); err != nil {
		return nil, mapStoreErr(err)
	}

	s.publish(ctx, "maintenance_requests", "id", req.ID, realtime.ActionUpdate, req.ID, "")
	return s.reload(ctx, req.ID)
}

// CompleteJob files the completion report and completes the request. The
// report is staged as a draft, then promoted together with the request
// status in one transaction. If that fails the draft is removed again, so a
// request is completed exactly when a submitted report exists for it.
func (s *MaintenanceService) CompleteJob(ctx context.Context, tech Actor, requestID string, in ReportInput, after *storage.File) (*model.MaintenanceCompletionReport, error) {
	hours, err := parse.NonNegativeDecimal(in.HoursSpent)
	if err != nil {
		return nil, invalid("hours_spent", err.Error())
	}
	cost, err := parse.Money(in.ActualCost)
	if err != nil {
		return nil, invalid("actual_cost", err.Error())
	}

	req, err := s.assignedRequest(ctx, tech, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != model.MaintenanceInProgress {
		return nil, fmt.Errorf("%w: request is %s", ErrInvalidTransition, req.Status)
	}

	report := &model.MaintenanceCompletionReport{
		MaintenanceRequestID: req.ID,
		TechnicianID:         tech.ID,
		PropertyID:           req.PropertyID,
		Notes:                strings.TrimSpace(in.Notes),
		HoursSpent:           hours,
		MaterialsUsed:        strings.TrimSpace(in.MaterialsUsed),
		ActualCost:           cost,
	}
	if after != nil {
		url, err := s.upload(ctx, req.ID, "after", after)
		if err != nil {
			return nil, err
		}
		report.AfterRepairImageURL = &url
	}

	if err := s.store.DeleteDraftsForRequest(ctx, req.ID); err != nil {
		return nil, err
	}
	if err := s.store.StageReport(ctx, report); err != nil {
		return nil, err
	}
	if err := s.store.CommitReport(ctx, report, s.now()); err != nil {
		if delErr := s.store.DeleteDraftReport(ctx, report.ID); delErr != nil {
			log.Printf("Maintenance request %s: draft report %s left for reconcile: %v", req.ID, report.ID, delErr)
		}
		return nil, mapStoreErr(err)
	}

	managers, err := s.store.ResolveRecipients(ctx, req.PropertyID, model.RolePropertyManager)
	if err != nil {
		log.Printf("Maintenance request %s: could not resolve managers: %v", req.ID, err)
	}
	s.notify(ctx, notification.Message{
		RecipientIDs: managers,
		SenderID:     tech.ID,
		Type:         model.NotificationMaintenanceCompleted,
		Title:        "Maintenance job completed",
		Body:         fmt.Sprintf("%s: %.2f hours, cost %.2f", req.Title, hours, cost),
		EntityType:   maintenanceEntity,
		EntityID:     req.ID,
	})
	s.publish(ctx, "maintenance_requests", "id", req.ID, realtime.ActionUpdate, req.ID, "")
	return report, nil
}

// Get returns a request visible to viewer.
func (s *MaintenanceService) Get(ctx context.Context, viewer Actor, requestID string) (*model.MaintenanceRequest, error) {
	req, err := s.store.GetMaintenanceRequest(ctx, requestID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if err := s.canView(ctx, viewer, req); err != nil {
		return nil, err
	}
	return req, nil
}

// List returns the requests viewer may see, newest first.
func (s *MaintenanceService) List(ctx context.Context, viewer Actor, status model.MaintenanceStatus) ([]model.MaintenanceRequest, error) {
	q := store.MaintenanceQuery{Status: status}
	switch viewer.Role {
	case model.RoleTenant:
		q.TenantID = viewer.ID
	case model.RoleTechnician:
		q.TechnicianID = viewer.ID
	case model.RolePropertyManager:
		ids, err := s.managedProperties(ctx, viewer)
		if err != nil {
			return nil, err
		}
		q.PropertyIDs = ids
	case model.RoleSuperAdmin:
	default:
		return nil, ErrForbidden
	}
	return s.store.ListMaintenanceRequests(ctx, q)
}

// GetReport returns the submitted completion report of a request.
func (s *MaintenanceService) GetReport(ctx context.Context, viewer Actor, requestID string) (*model.MaintenanceCompletionReport, error) {
	if _, err := s.Get(ctx, viewer, requestID); err != nil {
		return nil, err
	}
	report, err := s.store.GetReportForRequest(ctx, requestID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return report, nil
}

func (s *MaintenanceService) canView(ctx context.Context, viewer Actor, req *model.MaintenanceRequest) error {
	switch {
	case viewer.Role == model.RoleSuperAdmin:
		return nil
	case viewer.ID == req.TenantID:
		return nil
	case req.AssignedToTechnicianID != nil && viewer.ID == *req.AssignedToTechnicianID:
		return nil
	}
	return s.requireManager(ctx, viewer, req.PropertyID)
}

// assignedRequest loads a request that must be assigned to tech.
func (s *MaintenanceService) assignedRequest(ctx context.Context, tech Actor, requestID string) (*model.MaintenanceRequest, error) {
	if tech.Role != model.RoleTechnician {
		return nil, ErrForbidden
	}
	req, err := s.store.GetMaintenanceRequest(ctx, requestID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if req.AssignedToTechnicianID == nil || *req.AssignedToTechnicianID != tech.ID {
		return nil, ErrForbidden
	}
	return req, nil
}

func (s *MaintenanceService) upload(ctx context.Context, requestID, kind string, f *storage.File) (string, error) {
	key := storage.PhotoKey(requestID, kind, f.Filename)
	url, err := s.uploader.Upload(ctx, key, f.ContentType, f.Body)
	if err != nil {
		return "", fmt.Errorf("failed to store %s photo: %w", kind, err)
	}
	return url, nil
}

func (s *MaintenanceService) reload(ctx context.Context, id string) (*model.MaintenanceRequest, error) {
	req, err := s.store.GetMaintenanceRequest(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return req, nil
}
