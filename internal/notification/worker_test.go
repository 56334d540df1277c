package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-workflow-backend/internal/model"
	"property-workflow-backend/internal/store"
	"property-workflow-backend/internal/testutil"
)

type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

func response(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewBufferString(""))}
}

func TestWorkerPool_DispatchDoesNotBlock(t *testing.T) {
	gormDB, _ := testutil.NewMockDB(t)
	wp := NewWorkerPool(1, 1, store.NewGormStore(gormDB), &webpush.Options{})

	assert.True(t, wp.Dispatch(model.Notification{ID: "n-1"}))
	assert.False(t, wp.Dispatch(model.Notification{ID: "n-2"}), "a full queue drops instead of blocking")

	select {
	case job := <-wp.jobs:
		assert.Equal(t, "n-1", job.ID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestWorkerPool_WorkerLogic(t *testing.T) {
	gormDB, mock := testutil.NewMockDB(t)
	wp := NewWorkerPool(1, 4, store.NewGormStore(gormDB), &webpush.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	subscriptionRows := func(endpoint string) *sqlmock.Rows {
		return sqlmock.NewRows([]string{"endpoint", "user_id", "p256dh", "auth", "created_at"}).
			AddRow(endpoint, "tenant-1", "test_p256dh", "test_auth", time.Now())
	}

	t.Run("sends notification to each subscription", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(1)

		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				defer wg.Done()
				assert.Equal(t, "https://example.com/push", sub.Endpoint)
				assert.Equal(t, "test_p256dh", sub.Keys.P256dh)

				var got pushPayload
				assert.NoError(t, json.Unmarshal(payload, &got))
				assert.Equal(t, pushPayload{
					NotificationID: "n-1",
					Type:           model.NotificationVacancyUpdate,
					Title:          "Inspection scheduled",
					Body:           "Your move-out inspection is on 15 May",
					EntityType:     "vacancy_notice",
					EntityID:       "notice-1",
				}, got)
				return response(http.StatusCreated), nil
			},
		}

		mock.ExpectQuery(`SELECT \* FROM "push_subscriptions" WHERE user_id = \$1`).
			WithArgs("tenant-1").
			WillReturnRows(subscriptionRows("https://example.com/push"))

		wp.Dispatch(model.Notification{
			ID:                "n-1",
			RecipientID:       "tenant-1",
			Type:              model.NotificationVacancyUpdate,
			Title:             "Inspection scheduled",
			Message:           "Your move-out inspection is on 15 May",
			RelatedEntityType: "vacancy_notice",
			RelatedEntityID:   "notice-1",
		})
		wg.Wait()
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deletes expired subscription", func(t *testing.T) {
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				return response(http.StatusGone), nil
			},
		}

		mock.ExpectQuery(`SELECT \* FROM "push_subscriptions" WHERE user_id = \$1`).
			WithArgs("tenant-1").
			WillReturnRows(subscriptionRows("https://example.com/expired"))
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "push_subscriptions" WHERE "push_subscriptions"."endpoint" = \$1`).
			WithArgs("https://example.com/expired").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		wp.Dispatch(model.Notification{ID: "n-2", RecipientID: "tenant-1"})

		require.Eventually(t, func() bool {
			return mock.ExpectationsWereMet() == nil
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("skips recipients without subscriptions", func(t *testing.T) {
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				t.Error("no push expected")
				return response(http.StatusCreated), nil
			},
		}

		mock.ExpectQuery(`SELECT \* FROM "push_subscriptions" WHERE user_id = \$1`).
			WithArgs("nobody").
			WillReturnRows(sqlmock.NewRows([]string{"endpoint", "user_id", "p256dh", "auth", "created_at"}))

		wp.Dispatch(model.Notification{ID: "n-3", RecipientID: "nobody"})

		require.Eventually(t, func() bool {
			return mock.ExpectationsWereMet() == nil
		}, time.Second, 10*time.Millisecond)
	})
}
