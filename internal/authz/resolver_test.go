package authz

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/anungis437/nzila-os-sub012/internal/assignments"
	"github.com/anungis437/nzila-os-sub012/internal/roles"
)

type stubAssignmentReader struct {
	assignments []assignments.MemberRoleAssignment
	calls       int
}

func (s *stubAssignmentReader) ListActiveForMember(ctx context.Context, memberID, orgID string) ([]assignments.MemberRoleAssignment, error) {
	s.calls++
	var out []assignments.MemberRoleAssignment
	for _, a := range s.assignments {
		if a.MemberID == memberID && a.OrgID == orgID && a.Status == assignments.StatusActive {
			out = append(out, a)
		}
	}
	return out, nil
}

type stubCatalog struct {
	roles map[string]roles.RoleDefinition
}

func (c *stubCatalog) GetByCode(ctx context.Context, code string) (roles.RoleDefinition, error) {
	role, ok := c.roles[code]
	if !ok {
		return roles.RoleDefinition{}, roles.ErrNotFound
	}
	return role, nil
}

func strPtr(s string) *string { return &s }

func newResolverFixture() (*Resolver, *stubAssignmentReader) {
	store := &stubAssignmentReader{}
	catalog := &stubCatalog{roles: map[string]roles.RoleDefinition{
		"chair":     {Code: "chair", Level: 90, IsActive: true, Permissions: []string{"governance:roles:manage", "governance:audit:review"}},
		"treasurer": {Code: "treasurer", Level: 70, IsActive: true, Permissions: []string{"finance:ledger:read", "finance:budget:approve"}},
		"secretary": {Code: "secretary", Level: 50, IsActive: true, Permissions: []string{"docs:minutes:write", "governance:audit:review"}},
	}}
	return NewResolver(store, catalog, nil, nil, nil), store
}

func activeAssignment(member, org, role string) assignments.MemberRoleAssignment {
	return assignments.MemberRoleAssignment{
		MemberID:  member,
		OrgID:     org,
		RoleCode:  role,
		ScopeType: assignments.ScopeGlobal,
		Status:    assignments.StatusActive,
	}
}

func TestHasRole(t *testing.T) {
	ctx := context.Background()
	resolver, store := newResolverFixture()
	store.assignments = []assignments.MemberRoleAssignment{
		activeAssignment("member-1", "org-1", "treasurer"),
	}

	ok, err := resolver.HasRole(ctx, "member-1", "org-1", "treasurer", nil)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = resolver.HasRole(ctx, "member-1", "org-1", "chair", nil)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = resolver.HasRole(ctx, "member-1", "org-2", "treasurer", nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHasRoleScopeFilter(t *testing.T) {
	ctx := context.Background()
	resolver, store := newResolverFixture()

	scoped := activeAssignment("member-1", "org-1", "secretary")
	scoped.ScopeType = assignments.ScopeDepartment
	scoped.ScopeValue = strPtr("finance")
	store.assignments = []assignments.MemberRoleAssignment{scoped}

	ok, err := resolver.HasRole(ctx, "member-1", "org-1", "secretary", &ScopeFilter{Type: assignments.ScopeDepartment, Value: "finance"})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = resolver.HasRole(ctx, "member-1", "org-1", "secretary", &ScopeFilter{Type: assignments.ScopeDepartment, Value: "events"})
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = resolver.HasRole(ctx, "member-1", "org-1", "secretary", &ScopeFilter{Type: assignments.ScopeRegion, Value: "north"})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGlobalAssignmentCoversEveryScope(t *testing.T) {
	ctx := context.Background()
	resolver, store := newResolverFixture()
	store.assignments = []assignments.MemberRoleAssignment{
		activeAssignment("member-1", "org-1", "chair"),
	}

	ok, err := resolver.HasRole(ctx, "member-1", "org-1", "chair", &ScopeFilter{Type: assignments.ScopeDepartment, Value: "finance"})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = resolver.HasRoleLevel(ctx, "member-1", "org-1", 80, &ScopeFilter{Type: assignments.ScopeRegion, Value: "south"})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestHasRoleLevel(t *testing.T) {
	ctx := context.Background()
	resolver, store := newResolverFixture()
	store.assignments = []assignments.MemberRoleAssignment{
		activeAssignment("member-1", "org-1", "treasurer"),
	}

	ok, err := resolver.HasRoleLevel(ctx, "member-1", "org-1", 70, nil)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = resolver.HasRoleLevel(ctx, "member-1", "org-1", 71, nil)
	require.NoError(t, err)
	require.False(t, ok)
}

type countingDecisions struct {
	granted int
	denied  int
}

func (c *countingDecisions) AuthzDecision(granted bool) {
	if granted {
		c.granted++
	} else {
		c.denied++
	}
}

func TestResolverCountsDecisions(t *testing.T) {
	ctx := context.Background()
	store := &stubAssignmentReader{assignments: []assignments.MemberRoleAssignment{
		activeAssignment("member-1", "org-1", "treasurer"),
	}}
	catalog := &stubCatalog{roles: map[string]roles.RoleDefinition{
		"treasurer": {Code: "treasurer", Level: 70, IsActive: true},
	}}
	counter := &countingDecisions{}
	resolver := NewResolver(store, catalog, nil, nil, counter)

	ok, err := resolver.HasRole(ctx, "member-1", "org-1", "treasurer", nil)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = resolver.HasRoleLevel(ctx, "member-1", "org-1", 90, nil)
	require.NoError(t, err)
	require.False(t, ok)

	require.Equal(t, 1, counter.granted)
	require.Equal(t, 1, counter.denied)
}

func TestExpiredAndSuspendedContributeNothing(t *testing.T) {
	ctx := context.Background()
	resolver, store := newResolverFixture()

	past := time.Now().UTC().AddDate(0, 0, -1)
	ended := activeAssignment("member-1", "org-1", "chair")
	ended.EndDate = &past
	suspended := activeAssignment("member-1", "org-1", "treasurer")
	suspended.Status = assignments.StatusSuspended
	store.assignments = []assignments.MemberRoleAssignment{ended, suspended}

	ok, err := resolver.HasRole(ctx, "member-1", "org-1", "chair", nil)
	require.NoError(t, err)
	require.False(t, ok)

	perms, err := resolver.EffectivePermissions(ctx, "member-1", "org-1")
	require.NoError(t, err)
	require.Empty(t, perms)
}

func TestEffectivePermissionsUnion(t *testing.T) {
	ctx := context.Background()
	resolver, store := newResolverFixture()
	store.assignments = []assignments.MemberRoleAssignment{
		activeAssignment("member-1", "org-1", "chair"),
		activeAssignment("member-1", "org-1", "secretary"),
	}

	perms, err := resolver.EffectivePermissions(ctx, "member-1", "org-1")
	require.NoError(t, err)
	// Overlapping permissions appear once and the union is sorted.
	require.Equal(t, []string{
		"docs:minutes:write",
		"governance:audit:review",
		"governance:roles:manage",
	}, perms)
}

func TestEffectivePermissionsUnknownRoleSkipped(t *testing.T) {
	ctx := context.Background()
	resolver, store := newResolverFixture()
	store.assignments = []assignments.MemberRoleAssignment{
		activeAssignment("member-1", "org-1", "treasurer"),
		activeAssignment("member-1", "org-1", "deleted-role"),
	}

	perms, err := resolver.EffectivePermissions(ctx, "member-1", "org-1")
	require.NoError(t, err)
	require.Equal(t, []string{"finance:budget:approve", "finance:ledger:read"}, perms)
}

func TestEffectivePermissionsCached(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := &stubAssignmentReader{assignments: []assignments.MemberRoleAssignment{
		activeAssignment("member-1", "org-1", "treasurer"),
	}}
	catalog := &stubCatalog{roles: map[string]roles.RoleDefinition{
		"treasurer": {Code: "treasurer", Level: 70, Permissions: []string{"finance:ledger:read"}},
	}}
	resolver := NewResolver(store, catalog, nil, NewPermissionCache(client, time.Minute), nil)

	perms, err := resolver.EffectivePermissions(ctx, "member-1", "org-1")
	require.NoError(t, err)
	require.Equal(t, []string{"finance:ledger:read"}, perms)
	require.Equal(t, 1, store.calls)

	// Second read is served from redis.
	perms, err = resolver.EffectivePermissions(ctx, "member-1", "org-1")
	require.NoError(t, err)
	require.Equal(t, []string{"finance:ledger:read"}, perms)
	require.Equal(t, 1, store.calls)

	// TTL expiry forces a fresh resolve.
	mr.FastForward(2 * time.Minute)
	_, err = resolver.EffectivePermissions(ctx, "member-1", "org-1")
	require.NoError(t, err)
	require.Equal(t, 2, store.calls)
}

func TestPermissionCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := NewPermissionCache(client, time.Minute)
	cache.Set(ctx, "org-1:member-1", []string{"finance:ledger:read"})

	perms, ok := cache.Get(ctx, "org-1:member-1")
	require.True(t, ok)
	require.Equal(t, []string{"finance:ledger:read"}, perms)

	cache.Invalidate(ctx, "org-1", "member-1")
	_, ok = cache.Get(ctx, "org-1:member-1")
	require.False(t, ok)
}

func TestPermissionCacheNilSafe(t *testing.T) {
	ctx := context.Background()
	var cache *PermissionCache
	_, ok := cache.Get(ctx, "org-1:member-1")
	require.False(t, ok)
	require.NotPanics(t, func() { cache.Set(ctx, "org-1:member-1", nil) })
	require.NotPanics(t, func() { cache.Invalidate(ctx, "org-1", "member-1") })
}
