package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestHub_DeliversOnlyToMatchingTopic(t *testing.T) {
	hub := NewHub(4)
	topic := Topic("vacancy_notice_messages", "vacancy_notice_id", "n-1")
	mine, cancelMine := hub.Subscribe(topic)
	defer cancelMine()
	other, cancelOther := hub.Subscribe(Topic("vacancy_notice_messages", "vacancy_notice_id", "n-2"))
	defer cancelOther()

	hub.Publish(context.Background(), Event{Topic: topic, Table: "vacancy_notice_messages", Action: ActionInsert, RecordID: "m-1", ClientKey: "k-1"})

	ev := receive(t, mine)
	assert.Equal(t, "m-1", ev.RecordID)
	assert.Equal(t, "k-1", ev.ClientKey)
	assert.False(t, ev.At.IsZero())

	select {
	case ev := <-other:
		t.Fatalf("unexpected event on other topic: %+v", ev)
	default:
	}
}

func TestHub_CancelClosesChannelOnce(t *testing.T) {
	hub := NewHub(1)
	ch, cancel := hub.Subscribe("t")
	assert.Equal(t, 1, hub.Subscribers("t"))

	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, hub.Subscribers("t"))

	// Publishing after cancel must not panic on the closed channel.
	hub.Publish(context.Background(), Event{Topic: "t"})
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub(1)
	_, cancel := hub.Subscribe("t")
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			hub.Publish(context.Background(), Event{Topic: "t"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestHub_WatchersSeeEveryTopic(t *testing.T) {
	hub := NewHub(1)
	var seen []string
	hub.OnEvent(func(ev Event) { seen = append(seen, ev.Topic) })

	hub.Publish(context.Background(), Event{Topic: "a"})
	hub.Publish(context.Background(), Event{Topic: "b"})
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestRedisBroker_PublishesEncodedEvent(t *testing.T) {
	client, mock := redismock.NewClientMock()
	hub := NewHub(1)
	broker := NewRedisBroker(client, "property-changes", hub)

	ev := Event{Topic: "notifications:recipient_id=u-1", Table: "notifications", Action: ActionInsert, RecordID: "n-1", At: time.Date(2025, 5, 15, 10, 0, 0, 0, time.UTC)}
	payload, err := json.Marshal(ev)
	require.NoError(t, err)
	mock.ExpectPublish("property-changes", string(payload)).SetVal(1)

	broker.Publish(context.Background(), ev)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisBroker_FallsBackToLocalDelivery(t *testing.T) {
	client, mock := redismock.NewClientMock()
	hub := NewHub(1)
	broker := NewRedisBroker(client, "property-changes", hub)
	ch, cancel := broker.Subscribe("t")
	defer cancel()

	ev := Event{Topic: "t", RecordID: "r-1", At: time.Date(2025, 5, 15, 10, 0, 0, 0, time.UTC)}
	payload, err := json.Marshal(ev)
	require.NoError(t, err)
	mock.ExpectPublish("property-changes", string(payload)).SetErr(errors.New("connection refused"))

	broker.Publish(context.Background(), ev)
	assert.Equal(t, "r-1", receive(t, ch).RecordID)
}

func TestRedisBroker_RelayDecodesIntoHub(t *testing.T) {
	client, _ := redismock.NewClientMock()
	hub := NewHub(1)
	broker := NewRedisBroker(client, "property-changes", hub)
	ch, cancel := broker.Subscribe("t")
	defer cancel()

	broker.relay(`{"topic":"t","table":"approvals","action":"update","record_id":"a-1"}`)
	ev := receive(t, ch)
	assert.Equal(t, "approvals", ev.Table)
	assert.Equal(t, ActionUpdate, ev.Action)

	broker.relay("not json")
	select {
	case ev := <-ch:
		t.Fatalf("malformed payload produced an event: %+v", ev)
	default:
	}
}
