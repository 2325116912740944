package exceptions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anungis437/nzila-os-sub012/internal/ledger"
)

type memoryExceptionRepo struct {
	exceptions map[string]PermissionException
	order      []string
}

func newMemoryExceptionRepo() *memoryExceptionRepo {
	return &memoryExceptionRepo{exceptions: make(map[string]PermissionException)}
}

func (r *memoryExceptionRepo) Insert(ctx context.Context, exc PermissionException) (PermissionException, error) {
	exc.IsActive = true
	exc.CreatedAt = time.Now().UTC()
	r.exceptions[exc.ID] = exc
	r.order = append(r.order, exc.ID)
	return exc, nil
}

func (r *memoryExceptionRepo) Get(ctx context.Context, id string) (PermissionException, error) {
	exc, ok := r.exceptions[id]
	if !ok {
		return PermissionException{}, ErrNotFound
	}
	return exc, nil
}

func (r *memoryExceptionRepo) Revoke(ctx context.Context, id, revokedBy, reason string, at time.Time) error {
	exc, ok := r.exceptions[id]
	if !ok || exc.RevokedAt != nil {
		return ErrNotFound
	}
	exc.IsActive = false
	exc.RevokedAt = &at
	exc.RevokedBy = &revokedBy
	exc.RevokeReason = &reason
	r.exceptions[id] = exc
	return nil
}

func (r *memoryExceptionRepo) FindMatching(ctx context.Context, memberID, orgID, permission string) ([]PermissionException, error) {
	var out []PermissionException
	for _, id := range r.order {
		exc := r.exceptions[id]
		if exc.MemberID == memberID && exc.OrgID == orgID && exc.Permission == permission {
			out = append(out, exc)
		}
	}
	return out, nil
}

func (r *memoryExceptionRepo) IncrementUsage(ctx context.Context, id string, at time.Time) error {
	exc, ok := r.exceptions[id]
	if !ok {
		return ErrNotFound
	}
	exc.UsageCount++
	exc.LastUsedAt = &at
	r.exceptions[id] = exc
	return nil
}

func (r *memoryExceptionRepo) ConsumeMatching(ctx context.Context, memberID, orgID, permission, resourceType, resourceID string, now time.Time) (bool, error) {
	for _, id := range r.order {
		exc := r.exceptions[id]
		if exc.MemberID != memberID || exc.OrgID != orgID {
			continue
		}
		if !exc.Matches(permission, resourceType, resourceID) || !exc.Usable(now) {
			continue
		}
		exc.UsageCount++
		exc.LastUsedAt = &now
		r.exceptions[id] = exc
		return true, nil
	}
	return false, nil
}

type capturingRecorder struct {
	entries []ledger.Entry
}

func (r *capturingRecorder) Record(ctx context.Context, entry ledger.Entry) {
	r.entries = append(r.entries, entry)
}

func newExceptionService(repo Repository, rec ledger.Recorder, now time.Time) *Service {
	svc := NewService(repo, rec)
	svc.now = func() time.Time { return now }
	return svc
}

func TestGrantAuditsCreation(t *testing.T) {
	ctx := context.Background()
	rec := &capturingRecorder{}
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	svc := newExceptionService(newMemoryExceptionRepo(), rec, now)

	exc, err := svc.Grant(ctx, GrantRequest{
		MemberID:     "member-1",
		OrgID:        "org-1",
		Permission:   "finance:budget:approve",
		ResourceType: "budget",
		Reason:       "covering treasurer leave",
		ApprovedBy:   "member-chair",
	})
	require.NoError(t, err)
	require.NotEmpty(t, exc.ID)
	require.True(t, exc.IsActive)
	require.Equal(t, now, exc.EffectiveDate)

	require.Len(t, rec.entries, 1)
	require.Equal(t, "exception.grant", rec.entries[0].Action)
	require.Equal(t, "member-chair", rec.entries[0].ActorID)
	require.True(t, rec.entries[0].IsSensitive)
}

func TestGrantRejectsMissingFields(t *testing.T) {
	svc := newExceptionService(newMemoryExceptionRepo(), nil, time.Now().UTC())
	_, err := svc.Grant(context.Background(), GrantRequest{MemberID: "member-1"})
	require.Error(t, err)
}

func TestCheckGrantsUsableException(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryExceptionRepo()
	rec := &capturingRecorder{}
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	svc := newExceptionService(repo, rec, now)

	_, err := svc.Grant(ctx, GrantRequest{
		MemberID:     "member-1",
		OrgID:        "org-1",
		Permission:   "events:venue:book",
		ResourceType: "venue",
		Reason:       "one-off booking",
		ApprovedBy:   "member-chair",
	})
	require.NoError(t, err)

	granted, err := svc.Check(ctx, CheckRequest{
		MemberID:   "member-1",
		OrgID:      "org-1",
		Permission: "events:venue:book",
	})
	require.NoError(t, err)
	require.True(t, granted)

	decision := rec.entries[len(rec.entries)-1]
	require.Equal(t, "exception.check", decision.Action)
	require.True(t, decision.Granted)
	require.Equal(t, ledger.GrantMethodException, decision.GrantMethod)
}

func TestCheckDeniesWrongResource(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryExceptionRepo()
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	svc := newExceptionService(repo, nil, now)

	venueID := "venue-7"
	_, err := svc.Grant(ctx, GrantRequest{
		MemberID:     "member-1",
		OrgID:        "org-1",
		Permission:   "events:venue:book",
		ResourceType: "venue",
		ResourceID:   &venueID,
		Reason:       "one venue only",
		ApprovedBy:   "member-chair",
	})
	require.NoError(t, err)

	granted, err := svc.Check(ctx, CheckRequest{
		MemberID:     "member-1",
		OrgID:        "org-1",
		Permission:   "events:venue:book",
		ResourceType: "venue",
		ResourceID:   "venue-9",
	})
	require.NoError(t, err)
	require.False(t, granted)

	granted, err = svc.Check(ctx, CheckRequest{
		MemberID:     "member-1",
		OrgID:        "org-1",
		Permission:   "events:venue:book",
		ResourceType: "venue",
		ResourceID:   "venue-7",
	})
	require.NoError(t, err)
	require.True(t, granted)
}

func TestCheckDeniesBeforeEffectiveAndAfterExpiry(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryExceptionRepo()
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	svc := newExceptionService(repo, nil, now)

	effective := now.Add(24 * time.Hour)
	expires := now.Add(48 * time.Hour)
	_, err := svc.Grant(ctx, GrantRequest{
		MemberID:      "member-1",
		OrgID:         "org-1",
		Permission:    "docs:minutes:sign",
		ResourceType:  "document",
		Reason:        "window-bound grant",
		ApprovedBy:    "member-chair",
		EffectiveDate: &effective,
		ExpiresAt:     &expires,
	})
	require.NoError(t, err)

	req := CheckRequest{MemberID: "member-1", OrgID: "org-1", Permission: "docs:minutes:sign"}

	granted, err := svc.Check(ctx, req)
	require.NoError(t, err)
	require.False(t, granted, "not yet effective")

	svc.now = func() time.Time { return effective.Add(time.Hour) }
	granted, err = svc.Check(ctx, req)
	require.NoError(t, err)
	require.True(t, granted)

	svc.now = func() time.Time { return expires }
	granted, err = svc.Check(ctx, req)
	require.NoError(t, err)
	require.False(t, granted, "expiry boundary is exclusive")
}

func TestCheckDeniesAtUsageLimit(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryExceptionRepo()
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	svc := newExceptionService(repo, nil, now)

	limit := 2
	exc, err := svc.Grant(ctx, GrantRequest{
		MemberID:     "member-1",
		OrgID:        "org-1",
		Permission:   "finance:payment:release",
		ResourceType: "payment",
		Reason:       "two releases only",
		ApprovedBy:   "member-chair",
		UsageLimit:   &limit,
	})
	require.NoError(t, err)

	req := CheckRequest{MemberID: "member-1", OrgID: "org-1", Permission: "finance:payment:release"}

	granted, err := svc.Check(ctx, req)
	require.NoError(t, err)
	require.True(t, granted)

	require.NoError(t, svc.RecordUsage(ctx, exc.ID))
	require.NoError(t, svc.RecordUsage(ctx, exc.ID))

	granted, err = svc.Check(ctx, req)
	require.NoError(t, err)
	require.False(t, granted)
}

func TestConsumeBurnsOneUsage(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryExceptionRepo()
	rec := &capturingRecorder{}
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	svc := newExceptionService(repo, rec, now)

	limit := 1
	exc, err := svc.Grant(ctx, GrantRequest{
		MemberID:     "member-1",
		OrgID:        "org-1",
		Permission:   "finance:payment:release",
		ResourceType: "payment",
		Reason:       "single release",
		ApprovedBy:   "member-chair",
		UsageLimit:   &limit,
	})
	require.NoError(t, err)

	req := CheckRequest{MemberID: "member-1", OrgID: "org-1", Permission: "finance:payment:release"}

	granted, err := svc.Consume(ctx, req)
	require.NoError(t, err)
	require.True(t, granted)
	require.Equal(t, 1, repo.exceptions[exc.ID].UsageCount)

	// The limit is spent: a second consume is denied and leaves the counter.
	granted, err = svc.Consume(ctx, req)
	require.NoError(t, err)
	require.False(t, granted)
	require.Equal(t, 1, repo.exceptions[exc.ID].UsageCount)

	denied := rec.entries[len(rec.entries)-1]
	require.Equal(t, ledger.GrantMethodNone, denied.GrantMethod)
	require.Equal(t, "no usable exception", denied.DenialReason)
}

func TestRevokeStopsGrants(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryExceptionRepo()
	rec := &capturingRecorder{}
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	svc := newExceptionService(repo, rec, now)

	exc, err := svc.Grant(ctx, GrantRequest{
		MemberID:     "member-1",
		OrgID:        "org-1",
		Permission:   "docs:archive:read",
		ResourceType: "document",
		Reason:       "audit prep",
		ApprovedBy:   "member-chair",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, exc.ID, "member-chair", "no longer needed"))

	granted, err := svc.Check(ctx, CheckRequest{
		MemberID:   "member-1",
		OrgID:      "org-1",
		Permission: "docs:archive:read",
	})
	require.NoError(t, err)
	require.False(t, granted)

	// Revocation is terminal.
	require.ErrorIs(t, svc.Revoke(ctx, exc.ID, "member-chair", "again"), ErrNotFound)
}

func TestRevokeUnknownException(t *testing.T) {
	svc := newExceptionService(newMemoryExceptionRepo(), nil, time.Now().UTC())
	require.ErrorIs(t, svc.Revoke(context.Background(), "ghost", "member-chair", "n/a"), ErrNotFound)
}
