package jobs

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/anungis437/nzila-os-sub012/internal/ledger"
	"github.com/anungis437/nzila-os-sub012/internal/lifecycle"
)

type memoryChainRepo struct {
	entries []ledger.Entry
}

func (r *memoryChainRepo) WithTenantLock(ctx context.Context, orgID string, fn func(context.Context, ledger.TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memoryChainRepo) List(ctx context.Context, orgID string, rng ledger.VerifyRange) ([]ledger.Entry, error) {
	return r.entries, nil
}

func (r *memoryChainRepo) Latest(ctx context.Context, orgID string) (string, int64, error) {
	if len(r.entries) == 0 {
		return "", 0, nil
	}
	tip := r.entries[len(r.entries)-1]
	return tip.RecordHash, tip.ChainPosition, nil
}

func (r *memoryChainRepo) Insert(ctx context.Context, entry ledger.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

type countingMetrics struct {
	appended int
	swept    int
}

func (m *countingMetrics) AuditAppended() { m.appended++ }

func (m *countingMetrics) SweepExpired(n int) { m.swept += n }

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestLedgerAppendHandler(t *testing.T) {
	repo := &memoryChainRepo{}
	metrics := &countingMetrics{}
	handler := NewLedgerAppendHandler(ledger.NewService(repo), discardLogger(), metrics)

	task, err := ledger.NewAppendTask(ledger.Entry{
		OrgID:   "org-1",
		ActorID: "member-1",
		Action:  "assignment.create",
	})
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), task))
	require.Len(t, repo.entries, 1)
	require.NotEmpty(t, repo.entries[0].RecordHash)
	require.Equal(t, 1, metrics.appended)
}

func TestLedgerAppendHandlerUndecodablePayload(t *testing.T) {
	handler := NewLedgerAppendHandler(ledger.NewService(&memoryChainRepo{}), discardLogger(), nil)

	task := asynq.NewTask(ledger.TaskTypeAppend, []byte("{not json"))
	err := handler(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestLedgerAppendHandlerInvalidEntryRetries(t *testing.T) {
	handler := NewLedgerAppendHandler(ledger.NewService(&memoryChainRepo{}), discardLogger(), nil)

	// Org id is required; the append fails and the task is retried.
	task, err := ledger.NewAppendTask(ledger.Entry{ActorID: "member-1", Action: "x"})
	require.NoError(t, err)
	err = handler(context.Background(), task)
	require.Error(t, err)
	require.NotErrorIs(t, err, asynq.SkipRetry)
}

type fixedSweepStore struct {
	swept []lifecycle.SweptAssignment
}

func (s *fixedSweepStore) SweepExpired(ctx context.Context, today time.Time) ([]lifecycle.SweptAssignment, error) {
	out := s.swept
	s.swept = nil
	return out, nil
}

func (s *fixedSweepStore) OrgsWithUpcomingElections(ctx context.Context, horizonDays int) ([]string, error) {
	return nil, nil
}

func TestTermSweepHandler(t *testing.T) {
	store := &fixedSweepStore{swept: []lifecycle.SweptAssignment{
		{ID: "a1", OrgID: "org-1"},
		{ID: "a2", OrgID: "org-2"},
	}}
	metrics := &countingMetrics{}
	sweeper := lifecycle.NewSweeper(store, nil, discardLogger())
	handler := NewTermSweepHandler(sweeper, discardLogger(), metrics)

	require.NoError(t, handler(context.Background(), NewTermSweepTask()))
	require.Equal(t, 2, metrics.swept)

	require.NoError(t, handler(context.Background(), NewTermSweepTask()))
	require.Equal(t, 2, metrics.swept)
}

func TestElectionScanHandlerUndecodablePayload(t *testing.T) {
	handler := NewElectionScanHandler(&fixedSweepStore{}, nil, discardLogger())
	err := handler(context.Background(), asynq.NewTask(TaskElectionScan, []byte("not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}
