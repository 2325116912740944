package authz

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/anungis437/nzila-os-sub012/internal/assignments"
	"github.com/anungis437/nzila-os-sub012/internal/ledger"
	"github.com/anungis437/nzila-os-sub012/internal/roles"
)

// AssignmentReader is the slice of the assignment store the resolver reads.
type AssignmentReader interface {
	ListActiveForMember(ctx context.Context, memberID, orgID string) ([]assignments.MemberRoleAssignment, error)
}

// Catalog resolves role codes to definitions.
type Catalog interface {
	GetByCode(ctx context.Context, code string) (roles.RoleDefinition, error)
}

// DecisionMetrics counts authorization outcomes.
type DecisionMetrics interface {
	AuthzDecision(granted bool)
}

// ScopeFilter narrows a check to one scope. Nil means any scope.
type ScopeFilter struct {
	Type  assignments.ScopeType
	Value string
}

// Resolver merges catalog and assignments into authorization answers.
// Permission exceptions are a separate channel and are never folded into
// role-derived answers.
type Resolver struct {
	store    AssignmentReader
	catalog  Catalog
	recorder ledger.Recorder
	cache    *PermissionCache
	metrics  DecisionMetrics
	group    singleflight.Group
	now      func() time.Time
}

// NewResolver constructs a Resolver. cache and metrics may be nil.
func NewResolver(store AssignmentReader, catalog Catalog, recorder ledger.Recorder, cache *PermissionCache, metrics DecisionMetrics) *Resolver {
	return &Resolver{
		store:    store,
		catalog:  catalog,
		recorder: recorder,
		cache:    cache,
		metrics:  metrics,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// HasRole reports whether an active, unexpired assignment matches the role
// code and, when given, the scope.
func (r *Resolver) HasRole(ctx context.Context, memberID, orgID, roleCode string, scope *ScopeFilter) (bool, error) {
	started := r.now()
	contributing, err := r.contributing(ctx, memberID, orgID)
	if err != nil {
		return false, err
	}
	granted := false
	for _, a := range contributing {
		if a.RoleCode != roleCode {
			continue
		}
		if scope == nil || a.InScope(scope.Type, scope.Value) {
			granted = true
			break
		}
	}
	r.record(ctx, memberID, orgID, "authz.has_role", "role:"+roleCode, granted, started)
	return granted, nil
}

// HasRoleLevel reports whether any active, unexpired assignment carries a
// role at or above minLevel, with a global assignment acting as a wildcard
// over every scope.
func (r *Resolver) HasRoleLevel(ctx context.Context, memberID, orgID string, minLevel int, scope *ScopeFilter) (bool, error) {
	started := r.now()
	contributing, err := r.contributing(ctx, memberID, orgID)
	if err != nil {
		return false, err
	}
	granted := false
	for _, a := range contributing {
		if scope != nil && !a.InScope(scope.Type, scope.Value) {
			continue
		}
		role, err := r.catalog.GetByCode(ctx, a.RoleCode)
		if err != nil {
			if errors.Is(err, roles.ErrNotFound) {
				continue
			}
			return false, err
		}
		if role.Level >= minLevel {
			granted = true
			break
		}
	}
	r.record(ctx, memberID, orgID, "authz.has_role_level", fmt.Sprintf("level:%d", minLevel), granted, started)
	return granted, nil
}

// EffectivePermissions returns the sorted union of permission sets from
// every contributing assignment's role. Results may be cached with a bounded
// TTL; concurrent cache fills for the same member collapse to one lookup.
func (r *Resolver) EffectivePermissions(ctx context.Context, memberID, orgID string) ([]string, error) {
	key := orgID + ":" + memberID
	if r.cache != nil {
		if perms, ok := r.cache.Get(ctx, key); ok {
			return perms, nil
		}
	}
	result, err, _ := r.group.Do(key, func() (any, error) {
		perms, err := r.resolvePermissions(ctx, memberID, orgID)
		if err != nil {
			return nil, err
		}
		if r.cache != nil {
			r.cache.Set(ctx, key, perms)
		}
		return perms, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

func (r *Resolver) resolvePermissions(ctx context.Context, memberID, orgID string) ([]string, error) {
	contributing, err := r.contributing(ctx, memberID, orgID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{})
	for _, a := range contributing {
		role, err := r.catalog.GetByCode(ctx, a.RoleCode)
		if err != nil {
			if errors.Is(err, roles.ErrNotFound) {
				continue
			}
			return nil, err
		}
		for _, p := range role.Permissions {
			set[p] = struct{}{}
		}
	}
	perms := make([]string, 0, len(set))
	for p := range set {
		perms = append(perms, p)
	}
	sort.Strings(perms)
	return perms, nil
}

func (r *Resolver) contributing(ctx context.Context, memberID, orgID string) ([]assignments.MemberRoleAssignment, error) {
	all, err := r.store.ListActiveForMember(ctx, memberID, orgID)
	if err != nil {
		return nil, err
	}
	now := r.now()
	result := all[:0]
	for _, a := range all {
		if a.Contributes(now) {
			result = append(result, a)
		}
	}
	return result, nil
}

func (r *Resolver) record(ctx context.Context, memberID, orgID, action, required string, granted bool, started time.Time) {
	if r.metrics != nil {
		r.metrics.AuthzDecision(granted)
	}
	if r.recorder == nil {
		return
	}
	entry := ledger.Entry{
		ActorID:            memberID,
		Action:             action,
		ResourceType:       "authorization",
		ResourceID:         memberID,
		OrgID:              orgID,
		Granted:            granted,
		RequiredPermission: required,
		GrantMethod:        ledger.GrantMethodRole,
		ExecutionTimeMs:    r.now().Sub(started).Milliseconds(),
	}
	if !granted {
		entry.GrantMethod = ledger.GrantMethodNone
		entry.DenialReason = "no contributing assignment"
	}
	r.recorder.Record(ctx, entry)
}
