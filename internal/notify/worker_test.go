package notify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/arvind-dev/backend-bazaar/internal/common"
	"github.com/arvind-dev/backend-bazaar/internal/db"
	"github.com/arvind-dev/backend-bazaar/internal/events"
)

type stubStore struct {
	store         db.Store
	notifications []db.Notification
}

func (s *stubStore) GetStore(ctx context.Context, id uuid.UUID) (db.Store, error) {
	if s.store.ID != id {
		return db.Store{}, pgx.ErrNoRows
	}
	return s.store, nil
}

func (s *stubStore) InsertNotification(ctx context.Context, n db.Notification) error {
	s.notifications = append(s.notifications, n)
	return nil
}

func TestTaskForEventMapsTopics(t *testing.T) {
	ev := db.DomainEvent{ID: uuid.New(), Topic: events.TopicOrderCreated, AggregateID: uuid.New(), Payload: []byte(`{"storeId":"x"}`)}
	task, err := TaskForEvent(ev)
	require.NoError(t, err)
	require.NotNil(t, task)
	require.Equal(t, TaskOrderCreated, task.Type())

	ev.Topic = "unknown.topic"
	task, err = TaskForEvent(ev)
	require.NoError(t, err)
	require.Nil(t, task)
}

func TestHandleEventStoresNotification(t *testing.T) {
	store := db.Store{ID: uuid.New(), RetailerID: uuid.New(), Name: "Corner Store"}
	stub := &stubStore{store: store}
	worker := &Worker{Q: stub, Log: zerolog.Nop()}

	inner, _ := json.Marshal(map[string]any{"storeId": store.ID.String(), "stock": 1})
	body, _ := json.Marshal(EventPayload{
		EventID:     uuid.NewString(),
		Topic:       events.TopicStockLow,
		AggregateID: uuid.NewString(),
		Payload:     inner,
	})
	err := worker.HandleEvent(context.Background(), asynq.NewTask(TaskStockLow, body))
	require.NoError(t, err)
	require.Len(t, stub.notifications, 1)
	require.Equal(t, store.RetailerID, stub.notifications[0].RetailerID)
	require.Equal(t, events.TopicStockLow, stub.notifications[0].Kind)
}

func TestHandleEventWithoutStoreIsDropped(t *testing.T) {
	stub := &stubStore{}
	worker := &Worker{Q: stub, Log: zerolog.Nop()}
	body, _ := json.Marshal(EventPayload{Topic: events.TopicStockLow, Payload: []byte(`{}`)})
	err := worker.HandleEvent(context.Background(), asynq.NewTask(TaskStockLow, body))
	require.NoError(t, err)
	require.Empty(t, stub.notifications)
}

func TestEmailNotifierSendsForOrderCreated(t *testing.T) {
	mail := &common.InMemoryEmail{}
	notifier := EmailNotifier{Mail: mail, Enabled: true}
	payload, _ := json.Marshal(map[string]any{"email": "asha@example.com", "orderId": uuid.NewString()})
	err := notifier.Notify(context.Background(), db.DomainEvent{Topic: events.TopicOrderCreated, Payload: payload})
	require.NoError(t, err)
	require.Len(t, mail.Outbox, 1)
	require.Equal(t, "asha@example.com", mail.Outbox[0].To)

	// no recipient, no email
	err = notifier.Notify(context.Background(), db.DomainEvent{Topic: events.TopicOrderCreated, Payload: []byte(`{}`)})
	require.NoError(t, err)
	require.Len(t, mail.Outbox, 1)
}
