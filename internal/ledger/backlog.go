package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// QueueStats is the slice of the asynq inspector the monitor reads.
type QueueStats interface {
	GetQueueInfo(qname string) (*asynq.QueueInfo, error)
}

// BacklogMetrics receives the observed queue depth.
type BacklogMetrics interface {
	AuditBacklog(n int)
}

// BacklogMonitor periodically samples the audit queue depth so operators can
// alert on appends piling up behind a slow or failing sink.
type BacklogMonitor struct {
	stats    QueueStats
	metrics  BacklogMetrics
	logger   *slog.Logger
	interval time.Duration
}

// NewBacklogMonitor constructs a monitor.
func NewBacklogMonitor(stats QueueStats, metrics BacklogMetrics, logger *slog.Logger, interval time.Duration) *BacklogMonitor {
	return &BacklogMonitor{stats: stats, metrics: metrics, logger: logger, interval: interval}
}

// Run samples the queue until the context is cancelled.
func (m *BacklogMonitor) Run(ctx context.Context) {
	if m == nil || m.stats == nil || m.metrics == nil {
		return
	}
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		m.observe()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *BacklogMonitor) observe() {
	info, err := m.stats.GetQueueInfo(QueueAudit)
	if err != nil {
		// The queue does not exist until the first enqueue.
		if m.logger != nil {
			m.logger.Debug("audit backlog sample failed", slog.Any("error", err))
		}
		return
	}
	m.metrics.AuditBacklog(info.Pending + info.Scheduled + info.Retry)
}
