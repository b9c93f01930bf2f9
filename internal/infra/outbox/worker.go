package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

// PendingEvent is one stored event the worker may try to deliver.
type PendingEvent struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
	Attempts   int
}

// Store is the durable side of the outbox as the worker sees it.
type Store interface {
	Claim(ctx context.Context, workerID string) (*PendingEvent, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Worker drains the outbox into the broker, formatting each event as a
// CloudEvents envelope. Delivery failures are retried with backoff.
type Worker struct {
	Store       Store
	Producer    Producer
	Interval    time.Duration
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration
}

func (w *Worker) Run(ctx context.Context) error {
	if w.Store == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.processOnce(ctx); err != nil {
				return err
			}
		}
	}
}

func (w *Worker) processOnce(ctx context.Context) error {
	ev, err := w.Store.Claim(ctx, w.workerID())
	if err != nil || ev == nil {
		return err
	}
	payload, headers, err := w.formatPayload(ev)
	if err != nil {
		_ = w.Store.MarkFailed(ctx, ev.ID, w.nextRetry(ev.Attempts), err.Error())
		return nil
	}
	if err := w.Producer.Publish(ctx, w.topicFor(ev.Name), ev.Aggregate, payload, headers); err != nil {
		_ = w.Store.MarkFailed(ctx, ev.ID, w.nextRetry(ev.Attempts), err.Error())
		return nil
	}
	return w.Store.MarkSent(ctx, ev.ID)
}

func (w *Worker) formatPayload(ev *PendingEvent) ([]byte, map[string]string, error) {
	data := map[string]any{}
	if err := json.Unmarshal(ev.Payload, &data); err != nil {
		return nil, nil, err
	}
	envelope := map[string]any{
		"specversion":     "1.0",
		"id":              uuid.NewString(),
		"type":            ev.Name + ".v1",
		"source":          w.source(),
		"time":            ev.OccurredAt,
		"datacontenttype": "application/json",
		"subject":         ev.Aggregate,
		"data":            data,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{
		"content-type": "application/cloudevents+json",
	}
	for k, v := range ev.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

// topicFor maps an event name to its stream, e.g. "booking.confirmed" goes to
// "booking.events.v1".
func (w *Worker) topicFor(name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	topic := base + ".events.v1"
	if w.TopicPrefix != "" {
		topic = w.TopicPrefix + topic
	}
	return topic
}

func (w *Worker) workerID() string {
	if w.ID != "" {
		return w.ID
	}
	return uuid.NewString()
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) nextRetry(attempts int) time.Time {
	if attempts < len(w.Backoff) {
		return time.Now().Add(w.Backoff[attempts])
	}
	if len(w.Backoff) > 0 {
		return time.Now().Add(w.Backoff[len(w.Backoff)-1])
	}
	return time.Now().Add(5 * time.Second)
}

func (w *Worker) source() string {
	if w.Source != "" {
		return w.Source
	}
	return "app://ereft"
}
