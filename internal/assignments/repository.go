package assignments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound indicates the requested assignment does not exist.
	ErrNotFound = errors.New("assignments: not found")
	// ErrInvalidTransition indicates the row is not in a state the
	// requested transition starts from.
	ErrInvalidTransition = errors.New("assignments: invalid status transition")
)

// Repository defines data access for member role assignments.
type Repository interface {
	Insert(ctx context.Context, a MemberRoleAssignment) (MemberRoleAssignment, error)
	Get(ctx context.Context, id string) (MemberRoleAssignment, error)
	Update(ctx context.Context, id, updatedBy string, patch UpdatePatch) (MemberRoleAssignment, error)
	Approve(ctx context.Context, id, approvedBy string, at time.Time) (MemberRoleAssignment, error)
	Suspend(ctx context.Context, id, suspendedBy, reason string, at time.Time) (MemberRoleAssignment, error)
	Revoke(ctx context.Context, id, revokedBy, reason string, today time.Time) (MemberRoleAssignment, error)
	ListExpiring(ctx context.Context, orgID string, daysAhead int) ([]MemberRoleAssignment, error)
	ListUpcomingElections(ctx context.Context, orgID string, daysAhead int) ([]MemberRoleAssignment, error)
	ListActiveForMember(ctx context.Context, memberID, orgID string) ([]MemberRoleAssignment, error)
	CountActiveDuplicates(ctx context.Context, a MemberRoleAssignment) (int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const assignmentColumns = `id, member_id, org_id, role_code, scope_type, scope_value,
start_date, end_date, term_years, next_election_date, assignment_type, election_id,
votes_received, status, suspension_reason, suspended_at, suspended_by,
acting_for_member, acting_until, approved_by, approved_at, created_by, created_at,
updated_by, updated_at`

func (r *repository) Insert(ctx context.Context, a MemberRoleAssignment) (MemberRoleAssignment, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO member_role_assignments
(id, member_id, org_id, role_code, scope_type, scope_value, start_date, end_date,
 term_years, next_election_date, assignment_type, election_id, votes_received, status,
 acting_for_member, acting_until, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
RETURNING `+assignmentColumns,
		a.ID, a.MemberID, a.OrgID, a.RoleCode, a.ScopeType, a.ScopeValue, a.StartDate,
		a.EndDate, a.TermYears, a.NextElectionDate, a.AssignmentType, a.ElectionID,
		a.VotesReceived, a.Status, a.ActingForMember, a.ActingUntil, a.CreatedBy)
	created, err := scanAssignment(row)
	if err != nil {
		return MemberRoleAssignment{}, fmt.Errorf("assignments: insert: %w", err)
	}
	return created, nil
}

func (r *repository) Get(ctx context.Context, id string) (MemberRoleAssignment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+assignmentColumns+`
FROM member_role_assignments WHERE id = $1`, id)
	a, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MemberRoleAssignment{}, ErrNotFound
		}
		return MemberRoleAssignment{}, fmt.Errorf("assignments: get: %w", err)
	}
	return a, nil
}

// Update applies the patch in one statement. Expired rows are never touched.
func (r *repository) Update(ctx context.Context, id, updatedBy string, patch UpdatePatch) (MemberRoleAssignment, error) {
	sets := []string{"updated_by = $2", "updated_at = NOW()"}
	args := []any{id, updatedBy}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.EndDate != nil {
		add("end_date", *patch.EndDate)
	}
	if patch.NextElectionDate != nil {
		add("next_election_date", *patch.NextElectionDate)
	}
	if patch.SuspensionReason != nil {
		add("suspension_reason", *patch.SuspensionReason)
	}
	if patch.SuspendedAt != nil {
		add("suspended_at", *patch.SuspendedAt)
	}
	if patch.SuspendedBy != nil {
		add("suspended_by", *patch.SuspendedBy)
	}

	row := r.pool.QueryRow(ctx, `UPDATE member_role_assignments SET `+strings.Join(sets, ", ")+`
WHERE id = $1 AND status <> 'expired'
RETURNING `+assignmentColumns, args...)
	a, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MemberRoleAssignment{}, r.transitionError(ctx, id)
		}
		return MemberRoleAssignment{}, fmt.Errorf("assignments: update: %w", err)
	}
	return a, nil
}

func (r *repository) Approve(ctx context.Context, id, approvedBy string, at time.Time) (MemberRoleAssignment, error) {
	row := r.pool.QueryRow(ctx, `UPDATE member_role_assignments
SET status = 'active', approved_by = $2, approved_at = $3, updated_by = $2, updated_at = NOW()
WHERE id = $1 AND status = 'pending_approval'
RETURNING `+assignmentColumns, id, approvedBy, at)
	a, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MemberRoleAssignment{}, r.transitionError(ctx, id)
		}
		return MemberRoleAssignment{}, fmt.Errorf("assignments: approve: %w", err)
	}
	return a, nil
}

func (r *repository) Suspend(ctx context.Context, id, suspendedBy, reason string, at time.Time) (MemberRoleAssignment, error) {
	row := r.pool.QueryRow(ctx, `UPDATE member_role_assignments
SET status = 'suspended', suspension_reason = $2, suspended_at = $3, suspended_by = $4,
    updated_by = $4, updated_at = NOW()
WHERE id = $1 AND status = 'active'
RETURNING `+assignmentColumns, id, reason, at, suspendedBy)
	a, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MemberRoleAssignment{}, r.transitionError(ctx, id)
		}
		return MemberRoleAssignment{}, fmt.Errorf("assignments: suspend: %w", err)
	}
	return a, nil
}

// Revoke is terminal. The revocation reason lands in the suspension fields,
// matching the historical row shape.
func (r *repository) Revoke(ctx context.Context, id, revokedBy, reason string, today time.Time) (MemberRoleAssignment, error) {
	row := r.pool.QueryRow(ctx, `UPDATE member_role_assignments
SET status = 'expired', end_date = $2, suspension_reason = $3, suspended_at = NOW(),
    suspended_by = $4, updated_by = $4, updated_at = NOW()
WHERE id = $1 AND status <> 'expired'
RETURNING `+assignmentColumns, id, today, reason, revokedBy)
	a, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MemberRoleAssignment{}, r.transitionError(ctx, id)
		}
		return MemberRoleAssignment{}, fmt.Errorf("assignments: revoke: %w", err)
	}
	return a, nil
}

func (r *repository) ListExpiring(ctx context.Context, orgID string, daysAhead int) ([]MemberRoleAssignment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+assignmentColumns+`
FROM member_role_assignments
WHERE org_id = $1 AND status = 'active' AND end_date IS NOT NULL
  AND end_date >= NOW() AND end_date < NOW() + make_interval(days => $2)
ORDER BY end_date`, orgID, daysAhead)
	if err != nil {
		return nil, fmt.Errorf("assignments: list expiring: %w", err)
	}
	return collectAssignments(rows)
}

// ListUpcomingElections returns elected-role assignments whose next election
// falls inside the horizon.
func (r *repository) ListUpcomingElections(ctx context.Context, orgID string, daysAhead int) ([]MemberRoleAssignment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+prefixedAssignmentColumns("a")+`
FROM member_role_assignments a
JOIN role_definitions rd ON rd.code = a.role_code
WHERE a.org_id = $1 AND a.status = 'active' AND rd.is_elected
  AND a.next_election_date IS NOT NULL
  AND a.next_election_date >= NOW()
  AND a.next_election_date < NOW() + make_interval(days => $2)
ORDER BY a.next_election_date`, orgID, daysAhead)
	if err != nil {
		return nil, fmt.Errorf("assignments: list upcoming elections: %w", err)
	}
	return collectAssignments(rows)
}

func (r *repository) ListActiveForMember(ctx context.Context, memberID, orgID string) ([]MemberRoleAssignment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+assignmentColumns+`
FROM member_role_assignments
WHERE member_id = $1 AND org_id = $2 AND status = 'active'
  AND (end_date IS NULL OR end_date > NOW())
ORDER BY created_at`, memberID, orgID)
	if err != nil {
		return nil, fmt.Errorf("assignments: list active for member: %w", err)
	}
	return collectAssignments(rows)
}

// CountActiveDuplicates reports how many active rows already hold the same
// (member, org, role, scope). Uniqueness is observed, not enforced.
func (r *repository) CountActiveDuplicates(ctx context.Context, a MemberRoleAssignment) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM member_role_assignments
WHERE member_id = $1 AND org_id = $2 AND role_code = $3 AND scope_type = $4
  AND scope_value IS NOT DISTINCT FROM $5 AND status = 'active'`,
		a.MemberID, a.OrgID, a.RoleCode, a.ScopeType, a.ScopeValue).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("assignments: count duplicates: %w", err)
	}
	return count, nil
}

// transitionError distinguishes a missing row from one in the wrong state.
func (r *repository) transitionError(ctx context.Context, id string) error {
	if _, err := r.Get(ctx, id); errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	return ErrInvalidTransition
}

func prefixedAssignmentColumns(alias string) string {
	cols := strings.Split(assignmentColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

func scanAssignment(row pgx.Row) (MemberRoleAssignment, error) {
	var a MemberRoleAssignment
	err := row.Scan(&a.ID, &a.MemberID, &a.OrgID, &a.RoleCode, &a.ScopeType, &a.ScopeValue,
		&a.StartDate, &a.EndDate, &a.TermYears, &a.NextElectionDate, &a.AssignmentType,
		&a.ElectionID, &a.VotesReceived, &a.Status, &a.SuspensionReason, &a.SuspendedAt,
		&a.SuspendedBy, &a.ActingForMember, &a.ActingUntil, &a.ApprovedBy, &a.ApprovedAt,
		&a.CreatedBy, &a.CreatedAt, &a.UpdatedBy, &a.UpdatedAt)
	return a, err
}

func collectAssignments(rows pgx.Rows) ([]MemberRoleAssignment, error) {
	defer rows.Close()
	var result []MemberRoleAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
