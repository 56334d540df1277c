package notification

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-workflow-backend/internal/model"
	"property-workflow-backend/internal/realtime"
	"property-workflow-backend/internal/store"
	"property-workflow-backend/internal/testutil"
)

type flakyRecorder struct {
	failFor string
	rows    []model.Notification
}

func (f *flakyRecorder) CreateNotification(_ context.Context, n *model.Notification) error {
	if n.RecipientID == f.failFor {
		return errors.New("insert failed")
	}
	n.ID = fmt.Sprintf("n-%d", len(f.rows)+1)
	f.rows = append(f.rows, *n)
	return nil
}

type recordingDispatcher struct {
	jobs []model.Notification
}

func (d *recordingDispatcher) Dispatch(n model.Notification) bool {
	d.jobs = append(d.jobs, n)
	return true
}

func TestNotifier_DedupesAndSkipsSender(t *testing.T) {
	db := testutil.NewSQLite(t)
	s := store.NewGormStore(db)
	hub := realtime.NewHub(4)
	events, cancel := hub.Subscribe(realtime.Topic("notifications", "recipient_id", "mgr-1"))
	defer cancel()
	pusher := &recordingDispatcher{}

	n := NewNotifier(s, hub, pusher)
	created := n.Notify(context.Background(), Message{
		RecipientIDs: []string{"mgr-1", "mgr-2", "mgr-1", "", "tenant-1"},
		SenderID:     "tenant-1",
		Type:         model.NotificationVacancyNotice,
		Title:        "New vacancy notice",
		Body:         "Unit 4B moving out",
		EntityType:   "vacancy_notice",
		EntityID:     "notice-1",
	})
	assert.Equal(t, 2, created)

	inbox, err := s.ListNotifications(context.Background(), "mgr-1", false, 10)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "tenant-1", *inbox[0].SenderID)
	assert.Equal(t, "notice-1", inbox[0].RelatedEntityID)
	assert.False(t, inbox[0].IsRead)

	ev := <-events
	assert.Equal(t, inbox[0].ID, ev.RecordID)
	assert.Len(t, pusher.jobs, 2)

	self, err := s.ListNotifications(context.Background(), "tenant-1", false, 10)
	require.NoError(t, err)
	assert.Empty(t, self)
}

func TestNotifier_FailuresAreSwallowed(t *testing.T) {
	rec := &flakyRecorder{failFor: "mgr-2"}
	n := NewNotifier(rec, nil, nil)

	created := n.Notify(context.Background(), Message{
		RecipientIDs: []string{"mgr-1", "mgr-2", "mgr-3"},
		Type:         model.NotificationMaintenanceCompleted,
		Title:        "Job completed",
	})
	assert.Equal(t, 2, created)
	assert.Nil(t, rec.rows[0].SenderID)
}

func TestNotifier_NoRecipients(t *testing.T) {
	n := NewNotifier(&flakyRecorder{}, nil, nil)
	assert.Zero(t, n.Notify(context.Background(), Message{Type: model.NotificationApprovalUpdate}))
}
