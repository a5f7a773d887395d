package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/09samuel/codekeeper-api-backend/internal/database"
)

// EventSource is the slice of the store the dispatcher needs. Fetched
// events are delivered at least once: a row is only marked delivered
// after the transport accepted it, so a crash mid-send replays it.
type EventSource interface {
	FetchPendingEvents(ctx context.Context, limit int32, maxAttempts int32) ([]database.OutboxEvent, error)
	MarkEventDelivered(ctx context.Context, id int64) error
	IncrementEventAttempts(ctx context.Context, id int64) error
	PurgeDeliveredEvents(ctx context.Context, before time.Time) (int64, error)
}

// Dispatcher drains the outbox and posts each event to the realtime
// transport's control endpoint.
type Dispatcher struct {
	source      EventSource
	controlURL  string
	client      *http.Client
	interval    time.Duration
	batchSize   int32
	maxAttempts int32
	retention   time.Duration
}

func NewDispatcher(source EventSource, controlURL string) *Dispatcher {
	return &Dispatcher{
		source:      source,
		controlURL:  controlURL,
		client:      &http.Client{Timeout: 5 * time.Second},
		interval:    2 * time.Second,
		batchSize:   50,
		maxAttempts: 10,
		retention:   24 * time.Hour,
	}
}

// Run polls until the context is cancelled. Intended to be started as
// a goroutine next to the HTTP server.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	purge := time.NewTicker(time.Hour)
	defer purge.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.DispatchPending(ctx); err != nil {
				log.Printf("ERROR: event dispatch: %v", err)
			}
		case <-purge.C:
			if _, err := d.source.PurgeDeliveredEvents(ctx, time.Now().Add(-d.retention)); err != nil {
				log.Printf("WARN: outbox purge: %v", err)
			}
		}
	}
}

// DispatchPending sends one batch of undelivered events in insertion
// order. A failed send bumps the attempt counter and leaves the row
// pending for the next cycle; delivery order across documents is best
// effort, per-document order follows insertion order.
func (d *Dispatcher) DispatchPending(ctx context.Context) error {
	events, err := d.source.FetchPendingEvents(ctx, d.batchSize, d.maxAttempts)
	if err != nil {
		return err
	}

	for _, ev := range events {
		if err := d.send(ctx, ev); err != nil {
			log.Printf("WARN: event %d (%s for %s) not delivered: %v", ev.ID, ev.EventType, ev.DocumentID, err)
			if err := d.source.IncrementEventAttempts(ctx, ev.ID); err != nil {
				return err
			}
			continue
		}
		if err := d.source.MarkEventDelivered(ctx, ev.ID); err != nil {
			return err
		}
	}

	return nil
}

func (d *Dispatcher) send(ctx context.Context, ev database.OutboxEvent) error {
	msg := Message{
		DocID:   ev.DocumentID,
		Type:    ev.EventType,
		Payload: json.RawMessage(ev.Payload),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.controlURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 512))

	if resp.StatusCode >= 300 {
		return fmt.Errorf("control endpoint returned %d", resp.StatusCode)
	}

	return nil
}
