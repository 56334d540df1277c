package workflow

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"property-workflow-backend/internal/model"
	"property-workflow-backend/internal/notification"
	"property-workflow-backend/internal/realtime"
	"property-workflow-backend/internal/store"
)

const approvalEntity = "approval"

var approvalTransitions = map[model.ApprovalStatus][]model.ApprovalStatus{
	model.ApprovalPending:    {model.ApprovalInProgress, model.ApprovalApproved, model.ApprovalRejected},
	model.ApprovalInProgress: {model.ApprovalApproved, model.ApprovalRejected},
}

// CanTransitionApproval reports whether from -> to is a legal approval transition.
func CanTransitionApproval(from, to model.ApprovalStatus) bool {
	return slices.Contains(approvalTransitions[from], to)
}

// ApprovalInput is a request for review.
type ApprovalInput struct {
	Type       string         `json:"approval_type" validate:"required,max=64"`
	PropertyID string         `json:"property_id"`
	Notes      string         `json:"notes"`
	Metadata   map[string]any `json:"metadata"`
}

// ApprovalFilter narrows the review inbox.
type ApprovalFilter struct {
	Type   string
	Status model.ApprovalStatus
	Search string
	Limit  int
}

// ApprovalService runs the generic approval queue.
type ApprovalService struct {
	base
	listLimit int
}

// NewApprovalService creates an ApprovalService.
func NewApprovalService(d Deps) *ApprovalService {
	limit := d.ApprovalListLimit
	if limit <= 0 {
		limit = 100
	}
	return &ApprovalService{base: newBase(d), listLimit: limit}
}

// Submit queues a pending approval on behalf of requester.
func (s *ApprovalService) Submit(ctx context.Context, requester Actor, in ApprovalInput) (*model.Approval, error) {
	in.Type = strings.TrimSpace(in.Type)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	a := &model.Approval{
		UserID:       requester.ID,
		ApprovalType: in.Type,
		Status:       model.ApprovalPending,
		Notes:        strings.TrimSpace(in.Notes),
		Metadata:     in.Metadata,
	}
	if pid := strings.TrimSpace(in.PropertyID); pid != "" {
		a.PropertyID = &pid
	}
	if err := s.store.CreateApproval(ctx, a); err != nil {
		return nil, err
	}
	s.publish(ctx, "approvals", "status", string(model.ApprovalPending), realtime.ActionInsert, a.ID, "")
	return a, nil
}

// StartReview marks a pending approval as being reviewed.
func (s *ApprovalService) StartReview(ctx context.Context, reviewer Actor, id string) (*model.Approval, error) {
	return s.review(ctx, reviewer, id, model.ApprovalInProgress, store.ApprovalReview{},
		"is being reviewed")
}

// Approve accepts an approval. response is optional.
func (s *ApprovalService) Approve(ctx context.Context, reviewer Actor, id, response string) (*model.Approval, error) {
	var upd store.ApprovalReview
	if response = strings.TrimSpace(response); response != "" {
		upd.AdminResponse = &response
	}
	return s.review(ctx, reviewer, id, model.ApprovalApproved, upd, "was approved")
}

// Reject declines an approval. A reason is required.
func (s *ApprovalService) Reject(ctx context.Context, reviewer Actor, id, reason string) (*model.Approval, error) {
	if reason = strings.TrimSpace(reason); reason == "" {
		return nil, invalid("reason", "is required")
	}
	return s.review(ctx, reviewer, id, model.ApprovalRejected,
		store.ApprovalReview{RejectionReason: &reason}, "was rejected")
}

func (s *ApprovalService) review(ctx context.Context, reviewer Actor, id string, to model.ApprovalStatus, upd store.ApprovalReview, outcome string) (*model.Approval, error) {
	if reviewer.Role != model.RoleSuperAdmin {
		return nil, ErrForbidden
	}
	a, err := s.store.GetApproval(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if !CanTransitionApproval(a.Status, to) {
		return nil, fmt.Errorf("%w: approval is %s, cannot move to %s", ErrInvalidTransition, a.Status, to)
	}

	upd.Status = to
	upd.ReviewedBy = reviewer.ID
	upd.ReviewedAt = s.now()
	if err := s.store.ReviewApproval(ctx, a.ID, []model.ApprovalStatus{a.Status}, upd); err != nil {
		return nil, mapStoreErr(err)
	}

	body := fmt.Sprintf("Your %s approval %s.", strings.ReplaceAll(a.ApprovalType, "_", " "), outcome)
	if upd.RejectionReason != nil {
		body += " Reason: " + *upd.RejectionReason
	} else if upd.AdminResponse != nil {
		body += " " + *upd.AdminResponse
	}
	s.notify(ctx, notification.Message{
		RecipientIDs: []string{a.UserID},
		SenderID:     reviewer.ID,
		Type:         model.NotificationApprovalUpdate,
		Title:        "Approval update",
		Body:         body,
		EntityType:   approvalEntity,
		EntityID:     a.ID,
	})
	s.publish(ctx, "approvals", "id", a.ID, realtime.ActionUpdate, a.ID, "")

	updated, err := s.store.GetApproval(ctx, a.ID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return updated, nil
}

// Get returns an approval to a reviewer or to its requester.
func (s *ApprovalService) Get(ctx context.Context, viewer Actor, id string) (*model.Approval, error) {
	a, err := s.store.GetApproval(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if viewer.Role != model.RoleSuperAdmin && viewer.ID != a.UserID {
		return nil, ErrForbidden
	}
	return a, nil
}

// List returns approvals newest first. Filters apply to the whole queue
// before the limit is taken.
func (s *ApprovalService) List(ctx context.Context, reviewer Actor, f ApprovalFilter) ([]model.Approval, error) {
	if reviewer.Role != model.RoleSuperAdmin {
		return nil, ErrForbidden
	}
	limit := f.Limit
	if limit <= 0 || limit > s.listLimit {
		limit = s.listLimit
	}
	return s.store.ListApprovals(ctx, store.ApprovalQuery{
		Type:   strings.TrimSpace(f.Type),
		Status: f.Status,
		Search: f.Search,
		Limit:  limit,
	})
}
