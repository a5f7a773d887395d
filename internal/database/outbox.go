package database

import (
	"context"
	"time"
)

// OutboxEvent is a pending notification row. Events are written in the
// same transaction as the change they describe and picked up later by
// the dispatcher, so a crash between commit and delivery loses nothing.
type OutboxEvent struct {
	ID          int64
	DocumentID  string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
	Attempts    int32
	DeliveredAt *time.Time
}

func (q *Queries) EnqueueEvent(ctx context.Context, documentID string, eventType string, payload []byte) (int64, error) {
	query := `
		INSERT INTO outbox_events (document_id, event_type, payload)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	var id int64
	if err := q.db.QueryRow(ctx, query, documentID, eventType, payload).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// FetchPendingEvents returns up to limit undelivered events in insertion
// order, skipping anything that has already exhausted maxAttempts.
func (q *Queries) FetchPendingEvents(ctx context.Context, limit int32, maxAttempts int32) ([]OutboxEvent, error) {
	query := `
		SELECT id, document_id, event_type, payload, created_at, attempts, delivered_at
		FROM outbox_events
		WHERE delivered_at IS NULL AND attempts < $2
		ORDER BY id
		LIMIT $1
	`
	rows, err := q.db.Query(ctx, query, limit, maxAttempts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []OutboxEvent
	for rows.Next() {
		var ev OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.DocumentID, &ev.EventType, &ev.Payload, &ev.CreatedAt, &ev.Attempts, &ev.DeliveredAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

func (q *Queries) MarkEventDelivered(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, `UPDATE outbox_events SET delivered_at = now() WHERE id = $1`, id)
	return err
}

func (q *Queries) IncrementEventAttempts(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, `UPDATE outbox_events SET attempts = attempts + 1 WHERE id = $1`, id)
	return err
}

// PurgeDeliveredEvents clears delivered rows older than the cutoff.
func (q *Queries) PurgeDeliveredEvents(ctx context.Context, before time.Time) (int64, error) {
	res, err := q.db.Exec(ctx, `DELETE FROM outbox_events WHERE delivered_at IS NOT NULL AND delivered_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}
