package db

import (
	"context"

	"github.com/google/uuid"
)

// InsertDomainEvent persists an emitted event before fan-out.
func (q *Queries) InsertDomainEvent(ctx context.Context, topic string, aggregateID uuid.UUID, payload []byte) (DomainEvent, error) {
	var ev DomainEvent
	err := q.db.QueryRow(ctx, `
		INSERT INTO domain_events (topic, aggregate_id, payload)
		VALUES ($1, $2, $3)
		RETURNING id, topic, aggregate_id, payload, occurred_at`,
		topic, aggregateID, payload).
		Scan(&ev.ID, &ev.Topic, &ev.AggregateID, &ev.Payload, &ev.OccurredAt)
	return ev, err
}

// InsertNotification records an in-app notification for a retailer.
func (q *Queries) InsertNotification(ctx context.Context, n Notification) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO notifications (retailer_id, kind, payload) VALUES ($1, $2, $3)`,
		n.RetailerID, n.Kind, n.Payload)
	return err
}

// ListNotificationsForRetailer returns the retailer's feed newest first.
func (q *Queries) ListNotificationsForRetailer(ctx context.Context, retailerID uuid.UUID, limit, offset int32) ([]Notification, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, retailer_id, kind, payload, created_at, read_at
		FROM notifications WHERE retailer_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		retailerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.RetailerID, &n.Kind, &n.Payload, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
