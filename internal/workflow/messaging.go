package workflow

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"

	"property-workflow-backend/internal/directory"
	"property-workflow-backend/internal/model"
	"property-workflow-backend/internal/notification"
	"property-workflow-backend/internal/realtime"
)

const maxClientKeyLen = 64

// rejectKeyPrefix marks thread messages posted by Reject. Clients may not use it.
const rejectKeyPrefix = "reject-"

type directoryLookup interface {
	DisplayNames(ctx context.Context, ids []string) map[string]string
}

// MessageView is a thread entry with its sender's display name.
type MessageView struct {
	model.VacancyNoticeMessage
	SenderName string `json:"sender_name"`
	// Replayed is set when the client key was already stored.
	Replayed   bool   `json:"-"`
}

// PostMessage adds a message to a notice's thread. Reposting a clientKey that
// is already stored for the notice returns the stored message and notifies
// nobody. A blank clientKey is replaced by a generated one.
func (s *NoticeService) PostMessage(ctx context.Context, sender Actor, noticeID, text, clientKey string) (*MessageView, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, invalid("message", "is required")
	}
	clientKey = strings.TrimSpace(clientKey)
	if len(clientKey) > maxClientKeyLen {
		return nil, invalid("client_key", "must be at most 64 characters")
	}
	if strings.HasPrefix(clientKey, rejectKeyPrefix) {
		return nil, invalid("client_key", "uses a reserved prefix")
	}
	if clientKey == "" {
		clientKey = uuid.NewString()
	}

	notice, err := s.store.GetNotice(ctx, noticeID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	kind, err := s.participant(ctx, sender, notice)
	if err != nil {
		return nil, err
	}
	if kind == participantAdmin {
		return nil, ErrForbidden
	}

	msg := &model.VacancyNoticeMessage{
		VacancyNoticeID: notice.ID,
		SenderID:        sender.ID,
		Message:         text,
		ClientKey:       clientKey,
	}
	created, err := s.store.InsertMessage(ctx, msg)
	if err != nil {
		return nil, err
	}
	if !created {
		if msg.SenderID != sender.ID {
			return nil, ErrConflict
		}
		v := s.view(ctx, *msg)
		v.Replayed = true
		return v, nil
	}

	var recipients []string
	if kind == participantManager {
		if err := s.store.AppendManagerResponse(ctx, notice.ID, text); err != nil {
			log.Printf("Notice %s: manager response not updated: %v", notice.ID, err)
		}
		recipients = []string{notice.TenantID}
	} else {
		recipients, err = s.store.ResolveRecipients(ctx, notice.PropertyID, model.RolePropertyManager)
		if err != nil {
			log.Printf("Notice %s: could not resolve managers: %v", notice.ID, err)
		}
	}
	s.notify(ctx, notification.Message{
		RecipientIDs: recipients,
		SenderID:     sender.ID,
		Type:         model.NotificationVacancyMessage,
		Title:        "New message on vacancy notice",
		Body:         text,
		EntityType:   noticeEntity,
		EntityID:     notice.ID,
	})
	s.publish(ctx, "vacancy_notice_messages", "vacancy_notice_id", notice.ID, realtime.ActionInsert, msg.ID, msg.ClientKey)
	return s.view(ctx, *msg), nil
}

// ListMessages returns a notice's whole thread, oldest first.
func (s *NoticeService) ListMessages(ctx context.Context, viewer Actor, noticeID string) ([]MessageView, error) {
	notice, err := s.store.GetNotice(ctx, noticeID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if _, err := s.participant(ctx, viewer, notice); err != nil {
		return nil, err
	}

	msgs, err := s.store.ListMessages(ctx, notice.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.SenderID)
	}
	names := s.names(ctx, ids)

	views := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, MessageView{VacancyNoticeMessage: m, SenderName: names[m.SenderID]})
	}
	return views, nil
}

func (s *NoticeService) view(ctx context.Context, m model.VacancyNoticeMessage) *MessageView {
	return &MessageView{VacancyNoticeMessage: m, SenderName: s.names(ctx, []string{m.SenderID})[m.SenderID]}
}

func (s *NoticeService) names(ctx context.Context, ids []string) map[string]string {
	if s.directory == nil {
		names := make(map[string]string, len(ids))
		for _, id := range ids {
			names[id] = directory.UnknownName
		}
		return names
	}
	return s.directory.DisplayNames(ctx, ids)
}
