package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/anungis437/nzila-os-sub012/internal/ledger"
)

// Sweeper closes out assignments whose terms have ended. It runs outside any
// request's critical path, driven by an external scheduler.
type Sweeper struct {
	store    Store
	recorder ledger.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewSweeper constructs a Sweeper.
func NewSweeper(store Store, recorder ledger.Recorder, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		recorder: recorder,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Sweep flips every active assignment with an end date in the past to
// expired and returns the affected-row count. Idempotent: a second
// consecutive run finds nothing to flip.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	swept, err := s.store.SweepExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	for _, sa := range swept {
		if s.recorder != nil {
			s.recorder.Record(ctx, ledger.Entry{
				ActorID:      "system:sweeper",
				Action:       "assignment.expire",
				ResourceType: "role_assignment",
				ResourceID:   sa.ID,
				OrgID:        sa.OrgID,
				Granted:      true,
				GrantMethod:  ledger.GrantMethodRole,
			})
		}
	}
	if s.logger != nil && len(swept) > 0 {
		s.logger.Info("term sweep completed", slog.Int("expired", len(swept)))
	}
	return len(swept), nil
}
