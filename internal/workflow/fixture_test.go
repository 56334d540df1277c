package workflow

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"property-workflow-backend/internal/directory"
	"property-workflow-backend/internal/model"
	"property-workflow-backend/internal/notification"
	"property-workflow-backend/internal/realtime"
	"property-workflow-backend/internal/store"
	"property-workflow-backend/internal/testutil"
)

const (
	propertyA = "property-a"
	propertyB = "property-b"
)

type fakeUploader struct {
	mu   sync.Mutex
	keys []string
	body []string
	err  error
}

func (u *fakeUploader) Upload(_ context.Context, key, _ string, body io.Reader) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return "", u.err
	}
	b, _ := io.ReadAll(body)
	u.keys = append(u.keys, key)
	u.body = append(u.body, string(b))
	return "https://cdn.example.com/" + key, nil
}

type fixture struct {
	db       *gorm.DB
	store    store.Store
	hub      *realtime.Hub
	uploader *fakeUploader
	deps     Deps

	tenant          Actor
	otherTenant     Actor
	manager         Actor
	coManager       Actor
	inactiveManager Actor
	foreignManager  Actor
	technician      Actor
	otherTechnician Actor
	admin           Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewSQLite(t)
	s := store.NewGormStore(db)
	hub := realtime.NewHub(16)
	f := &fixture{db: db, store: s, hub: hub, uploader: &fakeUploader{}}

	actor := func(name string, role model.Role) Actor {
		return Actor{ID: testutil.SeedProfile(t, db, name, role), Role: role}
	}
	f.tenant = actor("Tina Tenant", model.RoleTenant)
	f.otherTenant = actor("Oscar Tenant", model.RoleTenant)
	f.manager = actor("Maya Manager", model.RolePropertyManager)
	f.coManager = actor("Cole Manager", model.RolePropertyManager)
	f.inactiveManager = actor("Ian Former", model.RolePropertyManager)
	f.foreignManager = actor("Fay Elsewhere", model.RolePropertyManager)
	f.technician = actor("Ted Tech", model.RoleTechnician)
	f.otherTechnician = actor("Tara Tech", model.RoleTechnician)
	f.admin = actor("Ada Admin", model.RoleSuperAdmin)

	testutil.SeedStaff(t, db, propertyA, f.manager.ID, model.RolePropertyManager, true)
	testutil.SeedStaff(t, db, propertyA, f.coManager.ID, model.RolePropertyManager, true)
	testutil.SeedStaff(t, db, propertyA, f.inactiveManager.ID, model.RolePropertyManager, false)
	testutil.SeedStaff(t, db, propertyB, f.foreignManager.ID, model.RolePropertyManager, true)

	f.deps = Deps{
		Store:             s,
		Notifier:          notification.NewNotifier(s, hub, nil),
		Publisher:         hub,
		Directory:         directory.New(s, time.Minute),
		Uploader:          f.uploader,
		ApprovalListLimit: 100,
	}
	return f
}

func (f *fixture) notifications(t *testing.T, recipientID, typ string) []model.Notification {
	t.Helper()
	var rows []model.Notification
	require.NoError(t, f.db.Where("recipient_id = ? AND type = ?", recipientID, typ).Order("created_at").Find(&rows).Error)
	return rows
}

func (f *fixture) totalNotifications(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.Notification{}).Count(&n).Error)
	return n
}

func requireValidation(t *testing.T, err error, field string) {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	require.Equal(t, field, verr.Field)
}

func receiveEvent(t *testing.T, ch <-chan realtime.Event) realtime.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for realtime event")
		return realtime.Event{}
	}
}
