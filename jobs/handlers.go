package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/anungis437/nzila-os-sub012/internal/ledger"
	"github.com/anungis437/nzila-os-sub012/internal/lifecycle"
)

// AppendMetrics receives signals about durable ledger appends.
type AppendMetrics interface {
	AuditAppended()
}

// SweepMetrics receives sweep outcome counts.
type SweepMetrics interface {
	SweepExpired(n int)
}

// NewLedgerAppendHandler processes ledger append tasks. A failed append
// returns the error so asynq retries it; tasks that exhaust retries stay in
// the archive as a dead letter for operator review. A payload that cannot be
// decoded is unrecoverable and skips retry.
func NewLedgerAppendHandler(svc *ledger.Service, logger *slog.Logger, metrics AppendMetrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var entry ledger.Entry
		if err := json.Unmarshal(t.Payload(), &entry); err != nil {
			logger.Error("undecodable audit payload", slog.Any("error", err))
			return asynq.SkipRetry
		}
		if _, err := svc.Append(ctx, entry); err != nil {
			logger.Warn("ledger append failed, will retry",
				slog.String("org_id", entry.OrgID),
				slog.Any("error", err))
			return err
		}
		if metrics != nil {
			metrics.AuditAppended()
		}
		return nil
	}
}

// NewTermSweepHandler processes sweep tasks.
func NewTermSweepHandler(sweeper *lifecycle.Sweeper, logger *slog.Logger, metrics SweepMetrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		count, err := sweeper.Sweep(ctx)
		if err != nil {
			logger.Error("term sweep failed", slog.Any("error", err))
			return err
		}
		if metrics != nil {
			metrics.SweepExpired(count)
		}
		return nil
	}
}

// NewElectionScanHandler processes election scan tasks.
func NewElectionScanHandler(store lifecycle.Store, tracker *lifecycle.ElectionTracker, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ElectionScanPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.HorizonDays <= 0 {
			payload.HorizonDays = 60
		}
		orgs, err := store.OrgsWithUpcomingElections(ctx, payload.HorizonDays)
		if err != nil {
			return err
		}
		for _, org := range orgs {
			if _, err := tracker.Upcoming(ctx, org, payload.HorizonDays); err != nil {
				logger.Warn("election scan org failed",
					slog.String("org_id", org),
					slog.Any("error", err))
			}
		}
		return nil
	}
}
