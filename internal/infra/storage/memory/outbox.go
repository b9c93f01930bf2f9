package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "ereft/internal/app/outbox"
	infraoutbox "ereft/internal/infra/outbox"
)

type outboxState int

const (
	outboxNew outboxState = iota
	outboxClaimed
	outboxSent
	outboxFailed
)

type outboxRecord struct {
	record      appoutbox.EventRecord
	state       outboxState
	attempts    int
	nextAttempt time.Time
}

// Outbox holds event records in memory and doubles as the worker's store so
// the single-process setup still delivers events to the broker.
type Outbox struct {
	mu      sync.Mutex
	records []*outboxRecord
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, &outboxRecord{record: record, nextAttempt: time.Now()})
	return nil
}

// Flush is a no-op; the worker delivers claimed records on its own cadence.
func (o *Outbox) Flush(ctx context.Context) error {
	return nil
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*infraoutbox.PendingEvent, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now()
	for _, rec := range o.records {
		if rec.state != outboxNew && rec.state != outboxFailed {
			continue
		}
		if rec.nextAttempt.After(now) {
			continue
		}
		rec.state = outboxClaimed
		return &infraoutbox.PendingEvent{
			ID:         rec.record.ID,
			Name:       rec.record.Name,
			Payload:    rec.record.Payload,
			OccurredAt: rec.record.OccurredAt,
			Aggregate:  rec.record.Aggregate,
			Headers:    rec.record.Headers,
			Attempts:   rec.attempts,
		}, nil
	}
	return nil, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, rec := range o.records {
		if rec.record.ID == id {
			rec.state = outboxSent
			return nil
		}
	}
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, rec := range o.records {
		if rec.record.ID == id {
			rec.state = outboxFailed
			rec.attempts++
			rec.nextAttempt = next
			return nil
		}
	}
	return nil
}

// Pending reports how many records still await delivery; used by tests and the
// readiness probe.
func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, rec := range o.records {
		if rec.state != outboxSent {
			n++
		}
	}
	return n
}

var _ appoutbox.Outbox = (*Outbox)(nil)
var _ infraoutbox.Store = (*Outbox)(nil)
