package lifecycle

import (
	"context"
	"log/slog"

	"github.com/anungis437/nzila-os-sub012/internal/assignments"
)

// ElectionReader is the slice of the assignment store the tracker reads.
type ElectionReader interface {
	ListUpcomingElections(ctx context.Context, orgID string, daysAhead int) ([]assignments.MemberRoleAssignment, error)
}

// ElectionTracker surfaces elected-role assignments approaching their next
// election date. Pure reads; notification delivery is someone else's job.
type ElectionTracker struct {
	reader ElectionReader
	logger *slog.Logger
}

// NewElectionTracker constructs an ElectionTracker.
func NewElectionTracker(reader ElectionReader, logger *slog.Logger) *ElectionTracker {
	return &ElectionTracker{reader: reader, logger: logger}
}

// Upcoming returns assignments with a next election inside the horizon.
func (t *ElectionTracker) Upcoming(ctx context.Context, orgID string, horizonDays int) ([]assignments.MemberRoleAssignment, error) {
	due, err := t.reader.ListUpcomingElections(ctx, orgID, horizonDays)
	if err != nil {
		return nil, err
	}
	if t.logger != nil && len(due) > 0 {
		t.logger.Info("elections approaching",
			slog.String("org_id", orgID),
			slog.Int("count", len(due)))
	}
	return due, nil
}
