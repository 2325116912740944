package ledger

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type countingDispatchMetrics struct {
	enqueued int
	dropped  int
}

func (m *countingDispatchMetrics) AuditEnqueued() { m.enqueued++ }
func (m *countingDispatchMetrics) AuditDropped()  { m.dropped++ }

func TestDispatcherNeverFailsCaller(t *testing.T) {
	// Point the client at a port nothing listens on. The enqueue fails, the
	// entry is counted as dropped, and Record returns normally.
	client := asynq.NewClient(asynq.RedisClientOpt{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = client.Close() })

	metrics := &countingDispatchMetrics{}
	d := NewDispatcher(client, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics)

	d.Record(context.Background(), Entry{
		OrgID:   "org-1",
		ActorID: "member-1",
		Action:  "assignment.create",
	})
	require.Equal(t, 1, metrics.dropped)
	require.Zero(t, metrics.enqueued)
}

func TestDispatcherNilClientNoOp(t *testing.T) {
	var d *Dispatcher
	require.NotPanics(t, func() {
		d.Record(context.Background(), Entry{OrgID: "org-1"})
	})
}
