package lifecycle

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anungis437/nzila-os-sub012/internal/assignments"
)

type stubElectionReader struct {
	due map[string][]assignments.MemberRoleAssignment
}

func (s *stubElectionReader) ListUpcomingElections(ctx context.Context, orgID string, daysAhead int) ([]assignments.MemberRoleAssignment, error) {
	return s.due[orgID], nil
}

func TestElectionTrackerUpcoming(t *testing.T) {
	ctx := context.Background()
	next := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	reader := &stubElectionReader{due: map[string][]assignments.MemberRoleAssignment{
		"org-1": {{ID: "e1", OrgID: "org-1", RoleCode: "chair", NextElectionDate: &next}},
	}}
	tracker := NewElectionTracker(reader, slog.New(slog.NewTextHandler(io.Discard, nil)))

	due, err := tracker.Upcoming(ctx, "org-1", 60)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, "e1", due[0].ID)

	due, err = tracker.Upcoming(ctx, "org-2", 60)
	require.NoError(t, err)
	require.Empty(t, due)
}
