package events

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/arvind-dev/backend-bazaar/internal/db"
)

type memStore struct {
	events []db.DomainEvent
	err    error
}

func (m *memStore) InsertDomainEvent(ctx context.Context, topic string, aggregateID uuid.UUID, payload []byte) (db.DomainEvent, error) {
	if m.err != nil {
		return db.DomainEvent{}, m.err
	}
	ev := db.DomainEvent{ID: uuid.New(), Topic: topic, AggregateID: aggregateID, Payload: payload}
	m.events = append(m.events, ev)
	return ev, nil
}

type recordingNotifier struct {
	seen []db.DomainEvent
	err  error
}

func (n *recordingNotifier) Notify(ctx context.Context, event db.DomainEvent) error {
	n.seen = append(n.seen, event)
	return n.err
}

func TestEmitPersistsAndNotifies(t *testing.T) {
	store := &memStore{}
	notifier := &recordingNotifier{}
	bus := &Bus{Store: store, Notifiers: []Notifier{notifier}}

	id := uuid.New()
	ev, err := bus.Emit(context.Background(), TopicOrderCreated, id, map[string]any{"orderId": id.String()})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if ev.Topic != TopicOrderCreated {
		t.Fatalf("unexpected topic %q", ev.Topic)
	}
	if len(store.events) != 1 || len(notifier.seen) != 1 {
		t.Fatalf("expected 1 persisted and 1 notified, got %d/%d", len(store.events), len(notifier.seen))
	}
}

func TestEmitRequiresTopicAndAggregate(t *testing.T) {
	bus := &Bus{Store: &memStore{}}
	if _, err := bus.Emit(context.Background(), "  ", uuid.New(), nil); err == nil {
		t.Fatal("expected error for blank topic")
	}
	if _, err := bus.Emit(context.Background(), TopicStockLow, uuid.Nil, nil); err == nil {
		t.Fatal("expected error for nil aggregate")
	}
}

func TestEmitNotifierFailureDoesNotDropEvent(t *testing.T) {
	store := &memStore{}
	notifier := &recordingNotifier{err: errors.New("boom")}
	bus := &Bus{Store: store, Notifiers: []Notifier{notifier}}

	_, err := bus.Emit(context.Background(), TopicOrderCanceled, uuid.New(), nil)
	if err == nil {
		t.Fatal("expected joined notifier error")
	}
	if len(store.events) != 1 {
		t.Fatalf("expected event persisted despite notifier failure, got %d", len(store.events))
	}
}

func TestEmitRejectsInvalidJSONPayload(t *testing.T) {
	bus := &Bus{Store: &memStore{}}
	if _, err := bus.Emit(context.Background(), TopicOrderCreated, uuid.New(), []byte("{not json")); err == nil {
		t.Fatal("expected error for invalid json payload")
	}
}
