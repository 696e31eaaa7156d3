package notify

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/arvind-dev/backend-bazaar/internal/db"
	"github.com/arvind-dev/backend-bazaar/internal/events"
)

// Asynq task types processed by the notification worker.
const (
	TaskOrderCreated  = "notify:order_created"
	TaskOrderCanceled = "notify:order_canceled"
	TaskStockLow      = "notify:stock_low"
)

// EventPayload is the task body carried through the queue.
type EventPayload struct {
	EventID     string          `json:"eventId"`
	Topic       string          `json:"topic"`
	AggregateID string          `json:"aggregateId"`
	Payload     json.RawMessage `json:"payload"`
}

// TaskForEvent maps a domain event to its queue task, or nil for topics
// without a notification.
func TaskForEvent(ev db.DomainEvent) (*asynq.Task, error) {
	var kind string
	switch ev.Topic {
	case events.TopicOrderCreated:
		kind = TaskOrderCreated
	case events.TopicOrderCanceled:
		kind = TaskOrderCanceled
	case events.TopicStockLow:
		kind = TaskStockLow
	default:
		return nil, nil
	}
	body, err := json.Marshal(EventPayload{
		EventID:     ev.ID.String(),
		Topic:       ev.Topic,
		AggregateID: ev.AggregateID.String(),
		Payload:     json.RawMessage(ev.Payload),
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(kind, body, asynq.MaxRetry(5), asynq.TaskID(ev.ID.String())), nil
}
