package notify

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"

	"github.com/arvind-dev/backend-bazaar/internal/db"
)

// Scheduler pushes domain events onto the asynq queue. It implements
// events.DeliveryScheduler.
type Scheduler struct {
	Client *asynq.Client
	Queue  string
}

// Schedule enqueues the notification task for the event. Re-emitting the same
// event is harmless: the task id is the event id, so duplicates collapse.
func (s *Scheduler) Schedule(ctx context.Context, event db.DomainEvent) error {
	if s == nil || s.Client == nil {
		return nil
	}
	task, err := TaskForEvent(event)
	if err != nil {
		return err
	}
	if task == nil {
		return nil
	}
	opts := []asynq.Option{}
	if s.Queue != "" {
		opts = append(opts, asynq.Queue(s.Queue))
	}
	_, err = s.Client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}
