package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"property-workflow-backend/internal/model"
	"property-workflow-backend/internal/notification"
	"property-workflow-backend/internal/realtime"
	"property-workflow-backend/internal/store"
)

const noticeEntity = "vacancy_notice"

// noticeTransitions is the complete vacancy notice state machine.
var noticeTransitions = map[model.NoticeStatus][]model.NoticeStatus{
	model.NoticePending:             {model.NoticeInspectionScheduled, model.NoticeRejected},
	model.NoticeInspectionScheduled: {model.NoticeCompleted},
}

// CanTransitionNotice reports whether from -> to is a legal notice transition.
func CanTransitionNotice(from, to model.NoticeStatus) bool {
	for _, next := range noticeTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NoticeInput is a tenant's vacancy notice.
type NoticeInput struct {
	PropertyID  string    `json:"property_id" validate:"required"`
	UnitID      string    `json:"unit_id"`
	MoveOutDate time.Time `json:"move_out_date" validate:"required"`
	Reason      string    `json:"reason" validate:"required"`
}

// NoticeService runs the vacancy notice lifecycle and its message thread.
type NoticeService struct {
	base
	directory directoryLookup
}

// NewNoticeService creates a NoticeService.
func NewNoticeService(d Deps) *NoticeService {
	s := &NoticeService{base: newBase(d)}
	if d.Directory != nil {
		s.directory = d.Directory
	}
	return s
}

// Submit records a new pending notice and notifies the property's managers.
func (s *NoticeService) Submit(ctx context.Context, tenant Actor, in NoticeInput) (*model.VacancyNotice, error) {
	if tenant.Role != model.RoleTenant {
		return nil, ErrForbidden
	}
	in.PropertyID = strings.TrimSpace(in.PropertyID)
	in.Reason = strings.TrimSpace(in.Reason)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	notice := &model.VacancyNotice{
		TenantID:    tenant.ID,
		PropertyID:  in.PropertyID,
		UnitID:      strings.TrimSpace(in.UnitID),
		MoveOutDate: in.MoveOutDate.UTC(),
		Reason:      in.Reason,
		Status:      model.NoticePending,
	}
	if err := s.store.CreateNotice(ctx, notice); err != nil {
		return nil, err
	}

	managers, err := s.store.ResolveRecipients(ctx, notice.PropertyID, model.RolePropertyManager)
	if err != nil {
		log.Printf("Notice %s: could not resolve managers: %v", notice.ID, err)
	}
	s.notify(ctx, notification.Message{
		RecipientIDs: managers,
		SenderID:     tenant.ID,
		Type:         model.NotificationVacancyNotice,
		Title:        "New vacancy notice",
		Body:         fmt.Sprintf("Move-out requested for %s: %s", notice.MoveOutDate.Format("2 Jan 2006"), notice.Reason),
		EntityType:   noticeEntity,
		EntityID:     notice.ID,
	})
	s.publish(ctx, "vacancy_notices", "property_id", notice.PropertyID, realtime.ActionInsert, notice.ID, "")
	return notice, nil
}

// ScheduleInspection moves a pending notice to inspection_scheduled.
func (s *NoticeService) ScheduleInspection(ctx context.Context, manager Actor, noticeID string, inspectionDate *time.Time, note string) (*model.VacancyNotice, error) {
	if inspectionDate == nil || inspectionDate.IsZero() {
		return nil, invalid("inspection_date", "is required")
	}
	at := inspectionDate.UTC()
	line := "Inspection scheduled for " + at.Format("2 Jan 2006 15:04 MST")
	if note = strings.TrimSpace(note); note != "" {
		line += ": " + note
	}
	return s.transition(ctx, manager, noticeID, model.NoticeInspectionScheduled,
		store.NoticeUpdate{InspectionDate: &at, ResponseLine: line},
		"Inspection scheduled", line)
}

// Reject moves a pending notice to rejected. The reason is also posted to
// the notice's message thread.
func (s *NoticeService) Reject(ctx context.Context, manager Actor, noticeID, reason string) (*model.VacancyNotice, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, invalid("reason", "is required")
	}
	line := "Rejected: " + reason
	notice, err := s.transition(ctx, manager, noticeID, model.NoticeRejected,
		store.NoticeUpdate{ResponseLine: line},
		"Vacancy notice rejected", reason)
	if err != nil {
		return nil, err
	}

	if err := s.postRejection(ctx, manager, notice.ID, reason); err != nil {
		log.Printf("Notice %s: rejection reason not added to thread: %v", notice.ID, err)
	}
	return notice, nil
}

// postRejection appends reason to the thread as manager's message. A row
// already stored under the rejection key by someone else is left alone and
// the reason goes in under a fresh key.
func (s *NoticeService) postRejection(ctx context.Context, manager Actor, noticeID, reason string) error {
	keys := []string{rejectKeyPrefix + noticeID, rejectKeyPrefix + uuid.NewString()}
	for _, key := range keys {
		msg := &model.VacancyNoticeMessage{
			VacancyNoticeID: noticeID,
			SenderID:        manager.ID,
			Message:         reason,
			ClientKey:       key,
		}
		created, err := s.store.InsertMessage(ctx, msg)
		if err != nil {
			return err
		}
		if !created && msg.SenderID != manager.ID {
			continue
		}
		if created {
			s.publish(ctx, "vacancy_notice_messages", "vacancy_notice_id", noticeID, realtime.ActionInsert, msg.ID, msg.ClientKey)
		}
		return nil
	}
	return fmt.Errorf("rejection key for notice %s is taken", noticeID)
}

// Complete moves a notice with a scheduled inspection to completed.
func (s *NoticeService) Complete(ctx context.Context, manager Actor, noticeID, note string) (*model.VacancyNotice, error) {
	line := "Move-out completed"
	if note = strings.TrimSpace(note); note != "" {
		line += ": " + note
	}
	return s.transition(ctx, manager, noticeID, model.NoticeCompleted,
		store.NoticeUpdate{ResponseLine: line},
		"Move-out completed", line)
}

func (s *NoticeService) transition(ctx context.Context, manager Actor, noticeID string, to model.NoticeStatus, upd store.NoticeUpdate, title, body string) (*model.VacancyNotice, error) {
	notice, err := s.store.GetNotice(ctx, noticeID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if err := s.requireManager(ctx, manager, notice.PropertyID); err != nil {
		return nil, err
	}
	if !CanTransitionNotice(notice.Status, to) {
		return nil, fmt.Errorf("%w: notice is %s, cannot move to %s", ErrInvalidTransition, notice.Status, to)
	}

	upd.At = s.now()
	if err := s.store.TransitionNotice(ctx, notice.ID, notice.Status, to, upd); err != nil {
		return nil, mapStoreErr(err)
	}

	s.notify(ctx, notification.Message{
		RecipientIDs: []string{notice.TenantID},
		SenderID:     manager.ID,
		Type:         model.NotificationVacancyUpdate,
		Title:        title,
		Body:         body,
		EntityType:   noticeEntity,
		EntityID:     notice.ID,
	})
	s.publish(ctx, "vacancy_notices", "id", notice.ID, realtime.ActionUpdate, notice.ID, "")

	updated, err := s.store.GetNotice(ctx, notice.ID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return updated, nil
}

// Get returns a notice visible to viewer.
func (s *NoticeService) Get(ctx context.Context, viewer Actor, noticeID string) (*model.VacancyNotice, error) {
	notice, err := s.store.GetNotice(ctx, noticeID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if _, err := s.participant(ctx, viewer, notice); err != nil {
		return nil, err
	}
	return notice, nil
}

// List returns the notices viewer may see, newest first.
func (s *NoticeService) List(ctx context.Context, viewer Actor, status model.NoticeStatus) ([]model.VacancyNotice, error) {
	q := store.NoticeQuery{Status: status}
	switch viewer.Role {
	case model.RoleTenant:
		q.TenantID = viewer.ID
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
	return s.store.ListNotices(ctx, q)
}

type participantKind int

const (
	participantTenant participantKind = iota + 1
	participantManager
	participantAdmin
)

// participant decides how actor relates to notice. Anyone else is forbidden.
func (s *NoticeService) participant(ctx context.Context, actor Actor, notice *model.VacancyNotice) (participantKind, error) {
	if actor.ID == notice.TenantID {
		return participantTenant, nil
	}
	ok, err := s.isManager(ctx, actor, notice.PropertyID)
	if err != nil {
		return 0, err
	}
	if ok {
		return participantManager, nil
	}
	if actor.Role == model.RoleSuperAdmin {
		return participantAdmin, nil
	}
	return 0, ErrForbidden
}

// CanWatchThread reports whether actor may subscribe to a notice's messages.
func (s *NoticeService) CanWatchThread(ctx context.Context, actor Actor, noticeID string) error {
	_, err := s.Get(ctx, actor, noticeID)
	if errors.Is(err, ErrNotFound) {
		return ErrForbidden
	}
	return err
}
