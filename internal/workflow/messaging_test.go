package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-workflow-backend/internal/model"
	"property-workflow-backend/internal/realtime"
)

func TestPostMessage_TenantNotifiesManagersAndPublishes(t *testing.T) {
	f := newFixture(t)
	svc := NewNoticeService(f.deps)
	ctx := context.Background()
	n := submitNotice(t, f, svc)

	events, cancel := f.hub.Subscribe(realtime.Topic("vacancy_notice_messages", "vacancy_notice_id", n.ID))
	defer cancel()

	msg, err := svc.PostMessage(ctx, f.tenant, n.ID, "  Can the inspection be on a Friday?  ", "key-1")
	require.NoError(t, err)
	assert.Equal(t, "Can the inspection be on a Friday?", msg.Message)
	assert.Equal(t, "Tina Tenant", msg.SenderName)

	ev := receiveEvent(t, events)
	assert.Equal(t, msg.ID, ev.RecordID)
	assert.Equal(t, "key-1", ev.ClientKey)
	assert.Equal(t, realtime.ActionInsert, ev.Action)

	assert.Len(t, f.notifications(t, f.manager.ID, model.NotificationVacancyMessage), 1)
	assert.Len(t, f.notifications(t, f.coManager.ID, model.NotificationVacancyMessage), 1)
	assert.Empty(t, f.notifications(t, f.tenant.ID, model.NotificationVacancyMessage))

	stored, err := f.store.GetNotice(ctx, n.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ManagerResponse, "tenant messages do not touch the manager response")
}

func TestPostMessage_RetryWithSameKeyIsIdempotent(t *testing.T) {
	f := newFixture(t)
	svc := NewNoticeService(f.deps)
	ctx := context.Background()
	n := submitNotice(t, f, svc)

	first, err := svc.PostMessage(ctx, f.tenant, n.ID, "Hello", "retry-key")
	require.NoError(t, err)
	before := f.totalNotifications(t)

	second, err := svc.PostMessage(ctx, f.tenant, n.ID, "Hello", "retry-key")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.False(t, first.Replayed)
	assert.True(t, second.Replayed)
	assert.Equal(t, before, f.totalNotifications(t))

	thread, err := svc.ListMessages(ctx, f.tenant, n.ID)
	require.NoError(t, err)
	assert.Len(t, thread, 1)

	_, err = svc.PostMessage(ctx, f.manager, n.ID, "Hi", "retry-key")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestPostMessage_ManagerMessageAppendsResponse(t *testing.T) {
	f := newFixture(t)
	svc := NewNoticeService(f.deps)
	ctx := context.Background()
	n := submitNotice(t, f, svc)

	_, err := svc.PostMessage(ctx, f.manager, n.ID, "Friday works.", "")
	require.NoError(t, err)
	_, err = svc.PostMessage(ctx, f.coManager, n.ID, "I'll attend too.", "")
	require.NoError(t, err)

	stored, err := f.store.GetNotice(ctx, n.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ManagerResponse)
	assert.Equal(t, "Friday works.\nI'll attend too.", *stored.ManagerResponse)

	assert.Len(t, f.notifications(t, f.tenant.ID, model.NotificationVacancyMessage), 2)
	assert.Empty(t, f.notifications(t, f.coManager.ID, model.NotificationVacancyMessage), "managers are not notified of each other")
}

func TestPostMessage_Rejections(t *testing.T) {
	f := newFixture(t)
	svc := NewNoticeService(f.deps)
	ctx := context.Background()
	n := submitNotice(t, f, svc)

	_, err := svc.PostMessage(ctx, f.tenant, n.ID, " \n\t", "")
	requireValidation(t, err, "message")

	long := make([]byte, 65)
	for i := range long {
		long[i] = 'k'
	}
	_, err = svc.PostMessage(ctx, f.tenant, n.ID, "hi", string(long))
	requireValidation(t, err, "client_key")

	for name, actor := range map[string]Actor{
		"other tenant":     f.otherTenant,
		"inactive manager": f.inactiveManager,
		"other property":   f.foreignManager,
		"admin":            f.admin,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.PostMessage(ctx, actor, n.ID, "hi", "")
			assert.ErrorIs(t, err, ErrForbidden)
		})
	}

	_, err = svc.PostMessage(ctx, f.tenant, "missing", "hi", "")
	assert.ErrorIs(t, err, ErrNotFound)

	thread, err := svc.ListMessages(ctx, f.manager, n.ID)
	require.NoError(t, err)
	assert.Empty(t, thread)
}

func TestListMessages_OrderedWithSenderNames(t *testing.T) {
	f := newFixture(t)
	svc := NewNoticeService(f.deps)
	ctx := context.Background()
	n := submitNotice(t, f, svc)

	posts := []struct {
		actor Actor
		text  string
	}{
		{f.tenant, "first"},
		{f.manager, "second"},
		{f.tenant, "third"},
	}
	for _, p := range posts {
		_, err := svc.PostMessage(ctx, p.actor, n.ID, p.text, "")
		require.NoError(t, err)
	}

	thread, err := svc.ListMessages(ctx, f.admin, n.ID)
	require.NoError(t, err)
	require.Len(t, thread, 3)
	assert.Equal(t, []string{"first", "second", "third"}, []string{thread[0].Message, thread[1].Message, thread[2].Message})
	assert.Equal(t, []string{"Tina Tenant", "Maya Manager", "Tina Tenant"}, []string{thread[0].SenderName, thread[1].SenderName, thread[2].SenderName})

	_, err = svc.ListMessages(ctx, f.otherTenant, n.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}
