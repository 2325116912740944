package ledger

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueAudit is the dedicated queue for ledger appends.
	QueueAudit = "audit"
	// TaskTypeAppend is the task type for asynchronous ledger appends.
	TaskTypeAppend = "ledger:append"
)

// NewAppendTask packages an entry for background appending.
func NewAppendTask(entry Entry) (*asynq.Task, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAppend, data), nil
}

// DispatchMetrics receives dispatcher outcome signals.
type DispatchMetrics interface {
	AuditEnqueued()
	AuditDropped()
}

// Dispatcher is the fire-and-forget Recorder used on request paths. Entries
// are handed to the queue; the worker performs the locked append and asynq
// retries on failure, archiving exhausted tasks as a dead letter. Enqueue
// failures are logged and counted, never surfaced to the caller: the
// protected operation must succeed even when the sink is down.
type Dispatcher struct {
	client  *asynq.Client
	logger  *slog.Logger
	metrics DispatchMetrics
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(client *asynq.Client, logger *slog.Logger, metrics DispatchMetrics) *Dispatcher {
	return &Dispatcher{client: client, logger: logger, metrics: metrics}
}

// Record enqueues the entry. It never fails the caller. The timestamp
// stamped here is the event time only; the entry's chain position is
// assigned when the worker performs the append, so retried deliveries
// cannot reorder the chain.
func (d *Dispatcher) Record(ctx context.Context, entry Entry) {
	if d == nil || d.client == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	task, err := NewAppendTask(entry)
	if err != nil {
		d.drop(entry, err)
		return
	}
	_, err = d.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueAudit),
		asynq.MaxRetry(10),
		asynq.Retention(720*time.Hour))
	if err != nil {
		d.drop(entry, err)
		return
	}
	if d.metrics != nil {
		d.metrics.AuditEnqueued()
	}
}

func (d *Dispatcher) drop(entry Entry, err error) {
	if d.logger != nil {
		d.logger.Error("audit entry dropped",
			slog.String("action", entry.Action),
			slog.String("org_id", entry.OrgID),
			slog.Any("error", err))
	}
	if d.metrics != nil {
		d.metrics.AuditDropped()
	}
}
