package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/arvind-dev/backend-bazaar/internal/db"
)

// Store defines the persistence operations the worker needs.
type Store interface {
	GetStore(ctx context.Context, id uuid.UUID) (db.Store, error)
	InsertNotification(ctx context.Context, n db.Notification) error
}

// Worker consumes notification tasks and turns them into retailer-facing
// in-app notifications.
type Worker struct {
	Q   Store
	Log zerolog.Logger
}

// Register attaches the worker's handlers to the mux.
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskOrderCreated, w.HandleEvent)
	mux.HandleFunc(TaskOrderCanceled, w.HandleEvent)
	mux.HandleFunc(TaskStockLow, w.HandleEvent)
}

// HandleEvent stores an in-app notification for the store's retailer.
func (w *Worker) HandleEvent(ctx context.Context, t *asynq.Task) error {
	if w == nil || w.Q == nil {
		return fmt.Errorf("notify worker not configured")
	}
	var env EventPayload
	if err := json.Unmarshal(t.Payload(), &env); err != nil {
		return fmt.Errorf("decode task payload: %w", err)
	}
	var inner struct {
		StoreID string `json:"storeId"`
	}
	if err := json.Unmarshal(env.Payload, &inner); err != nil {
		return fmt.Errorf("decode event payload: %w", err)
	}
	storeID, err := uuid.Parse(inner.StoreID)
	if err != nil {
		// nothing to deliver without a store; don't retry
		w.Log.Warn().Str("topic", env.Topic).Msg("notification event without store id")
		return nil
	}
	store, err := w.Q.GetStore(ctx, storeID)
	if err != nil {
		return fmt.Errorf("load store: %w", err)
	}
	if err := w.Q.InsertNotification(ctx, db.Notification{
		RetailerID: store.RetailerID,
		Kind:       env.Topic,
		Payload:    []byte(env.Payload),
	}); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	w.Log.Info().
		Str("topic", env.Topic).
		Str("store_id", storeID.String()).
		Msg("notification delivered")
	return nil
}
