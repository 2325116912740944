package assignments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/anungis437/nzila-os-sub012/internal/ledger"
	"github.com/anungis437/nzila-os-sub012/internal/roles"
)

const resourceTypeAssignment = "role_assignment"

var (
	// ErrUnknownRole indicates the role code is not in the catalog.
	ErrUnknownRole = errors.New("assignments: unknown role code")
	// ErrInactiveRole indicates the role exists but has been retired.
	ErrInactiveRole = errors.New("assignments: role is inactive")
	// ErrInvalidScope indicates a non-global scope without a scope value.
	ErrInvalidScope = errors.New("assignments: scope value required for non-global scope")
	// ErrInvalidTerm indicates an end date before the start date.
	ErrInvalidTerm = errors.New("assignments: end date before start date")
	// ErrEmptyPatch indicates an update with no fields to change.
	ErrEmptyPatch = errors.New("assignments: empty update patch")
)

// Catalog is the slice of the role catalog the assignment store needs.
type Catalog interface {
	GetByCode(ctx context.Context, code string) (roles.RoleDefinition, error)
}

// PermissionCache drops cached permission sets after a mutation so revoked
// or suspended members lose access on the next read, not a TTL later.
type PermissionCache interface {
	Invalidate(ctx context.Context, orgID, memberID string)
}

// Service owns the assignment lifecycle.
type Service struct {
	repo     Repository
	catalog  Catalog
	recorder ledger.Recorder
	cache    PermissionCache
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewService constructs a Service. cache may be nil.
func NewService(repo Repository, catalog Catalog, recorder ledger.Recorder, cache PermissionCache, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		catalog:  catalog,
		recorder: recorder,
		cache:    cache,
		logger:   logger,
		validate: validator.New(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Assign binds a member to a role. The role must exist and be active. The
// initial status follows RequiresApproval. Duplicate active grants for the
// same (member, org, role, scope) are observed and logged but not rejected.
func (s *Service) Assign(ctx context.Context, req AssignRequest) (MemberRoleAssignment, error) {
	if err := s.validate.Struct(req); err != nil {
		return MemberRoleAssignment{}, fmt.Errorf("assignments: invalid assign request: %w", err)
	}
	if req.ScopeType != ScopeGlobal && (req.ScopeValue == nil || *req.ScopeValue == "") {
		return MemberRoleAssignment{}, ErrInvalidScope
	}

	role, err := s.catalog.GetByCode(ctx, req.RoleCode)
	if err != nil {
		if errors.Is(err, roles.ErrNotFound) {
			return MemberRoleAssignment{}, ErrUnknownRole
		}
		return MemberRoleAssignment{}, err
	}
	if !role.IsActive {
		return MemberRoleAssignment{}, ErrInactiveRole
	}

	now := s.now()
	start := now
	if req.StartDate != nil {
		start = *req.StartDate
	}
	end := req.EndDate
	termYears := req.TermYears
	if termYears == nil {
		termYears = role.DefaultTermYears
	}
	if end == nil && termYears != nil {
		d := start.AddDate(*termYears, 0, 0)
		end = &d
	}
	if end != nil && end.Before(start) {
		return MemberRoleAssignment{}, ErrInvalidTerm
	}

	status := StatusActive
	if req.RequiresApproval {
		status = StatusPendingApproval
	}

	a := MemberRoleAssignment{
		ID:               uuid.NewString(),
		MemberID:         req.MemberID,
		OrgID:            req.OrgID,
		RoleCode:         req.RoleCode,
		ScopeType:        req.ScopeType,
		ScopeValue:       req.ScopeValue,
		StartDate:        start,
		EndDate:          end,
		TermYears:        termYears,
		NextElectionDate: req.NextElectionDate,
		AssignmentType:   req.AssignmentType,
		ElectionID:       req.ElectionID,
		VotesReceived:    req.VotesReceived,
		Status:           status,
		ActingForMember:  req.ActingForMember,
		ActingUntil:      req.ActingUntil,
		CreatedBy:        req.CreatedBy,
	}

	if !role.CanHaveMultipleHolders && status == StatusActive {
		// Uniqueness of active grants is deliberately not a hard
		// constraint; surface the duplicate for operators instead.
		if count, err := s.repo.CountActiveDuplicates(ctx, a); err == nil && count > 0 {
			s.logger.Warn("duplicate active assignment",
				slog.String("member_id", a.MemberID),
				slog.String("org_id", a.OrgID),
				slog.String("role_code", a.RoleCode),
				slog.Int("existing", count))
		}
	}

	created, err := s.repo.Insert(ctx, a)
	if err != nil {
		return MemberRoleAssignment{}, err
	}
	s.invalidate(ctx, created)
	s.record(ctx, created, req.CreatedBy, "assignment.create")
	return created, nil
}

// Approve moves a pending assignment to active. It is a dedicated, audited
// event rather than a generic status update.
func (s *Service) Approve(ctx context.Context, id, approvedBy string) (MemberRoleAssignment, error) {
	a, err := s.repo.Approve(ctx, id, approvedBy, s.now())
	if err != nil {
		return MemberRoleAssignment{}, err
	}
	s.invalidate(ctx, a)
	s.record(ctx, a, approvedBy, "assignment.approve")
	return a, nil
}

// Update applies an explicit patch. Expired assignments are immutable.
func (s *Service) Update(ctx context.Context, id, updatedBy string, patch UpdatePatch) (MemberRoleAssignment, error) {
	if patch.IsZero() {
		return MemberRoleAssignment{}, ErrEmptyPatch
	}
	if err := s.validate.Struct(patch); err != nil {
		return MemberRoleAssignment{}, fmt.Errorf("assignments: invalid patch: %w", err)
	}
	a, err := s.repo.Update(ctx, id, updatedBy, patch)
	if err != nil {
		return MemberRoleAssignment{}, err
	}
	s.invalidate(ctx, a)
	s.record(ctx, a, updatedBy, "assignment.update")
	return a, nil
}

// Suspend halts an active assignment. A suspended assignment contributes
// nothing to authorization regardless of its dates.
func (s *Service) Suspend(ctx context.Context, id, suspendedBy, reason string) (MemberRoleAssignment, error) {
	a, err := s.repo.Suspend(ctx, id, suspendedBy, reason, s.now())
	if err != nil {
		return MemberRoleAssignment{}, err
	}
	s.invalidate(ctx, a)
	s.record(ctx, a, suspendedBy, "assignment.suspend")
	return a, nil
}

// Revoke terminally expires an assignment, closing its term today.
func (s *Service) Revoke(ctx context.Context, id, revokedBy, reason string) (MemberRoleAssignment, error) {
	a, err := s.repo.Revoke(ctx, id, revokedBy, reason, s.now())
	if err != nil {
		return MemberRoleAssignment{}, err
	}
	s.invalidate(ctx, a)
	s.record(ctx, a, revokedBy, "assignment.revoke")
	return a, nil
}

// GetExpiring returns active assignments whose terms end inside the window.
func (s *Service) GetExpiring(ctx context.Context, orgID string, daysAhead int) ([]MemberRoleAssignment, error) {
	return s.repo.ListExpiring(ctx, orgID, daysAhead)
}

// GetUpcomingElections returns elected-role assignments due for re-election
// inside the window.
func (s *Service) GetUpcomingElections(ctx context.Context, orgID string, daysAhead int) ([]MemberRoleAssignment, error) {
	return s.repo.ListUpcomingElections(ctx, orgID, daysAhead)
}

func (s *Service) invalidate(ctx context.Context, a MemberRoleAssignment) {
	if s.cache == nil {
		return
	}
	s.cache.Invalidate(ctx, a.OrgID, a.MemberID)
}

func (s *Service) record(ctx context.Context, a MemberRoleAssignment, actor, action string) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(ctx, ledger.Entry{
		ActorID:      actor,
		Action:       action,
		ResourceType: resourceTypeAssignment,
		ResourceID:   a.ID,
		OrgID:        a.OrgID,
		Granted:      true,
		GrantMethod:  ledger.GrantMethodRole,
		IsSensitive:  true,
	})
}
