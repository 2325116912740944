package exceptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested exception does not exist.
var ErrNotFound = errors.New("exceptions: not found")

// Repository defines data access for permission exceptions.
type Repository interface {
	Insert(ctx context.Context, exc PermissionException) (PermissionException, error)
	Get(ctx context.Context, id string) (PermissionException, error)
	Revoke(ctx context.Context, id, revokedBy, reason string, at time.Time) error
	FindMatching(ctx context.Context, memberID, orgID, permission string) ([]PermissionException, error)
	IncrementUsage(ctx context.Context, id string, at time.Time) error
	ConsumeMatching(ctx context.Context, memberID, orgID, permission, resourceType, resourceID string, now time.Time) (bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const excColumns = `id, member_id, org_id, permission, resource_type, resource_id, reason,
approved_by, approval_date, effective_date, expires_at, revoked_at, revoked_by,
revoke_reason, usage_count, usage_limit, last_used_at, is_active, created_at`

func (r *repository) Insert(ctx context.Context, exc PermissionException) (PermissionException, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO permission_exceptions
(id, member_id, org_id, permission, resource_type, resource_id, reason, approved_by,
 approval_date, effective_date, expires_at, usage_limit, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, TRUE)
RETURNING `+excColumns,
		exc.ID, exc.MemberID, exc.OrgID, exc.Permission, exc.ResourceType, exc.ResourceID,
		exc.Reason, exc.ApprovedBy, exc.ApprovalDate, exc.EffectiveDate, exc.ExpiresAt,
		exc.UsageLimit)
	created, err := scanException(row)
	if err != nil {
		return PermissionException{}, fmt.Errorf("exceptions: insert: %w", err)
	}
	return created, nil
}

func (r *repository) Get(ctx context.Context, id string) (PermissionException, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+excColumns+` FROM permission_exceptions WHERE id = $1`, id)
	exc, err := scanException(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PermissionException{}, ErrNotFound
		}
		return PermissionException{}, fmt.Errorf("exceptions: get: %w", err)
	}
	return exc, nil
}

func (r *repository) Revoke(ctx context.Context, id, revokedBy, reason string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE permission_exceptions
SET is_active = FALSE, revoked_at = $2, revoked_by = $3, revoke_reason = $4
WHERE id = $1 AND revoked_at IS NULL`, id, at, revokedBy, reason)
	if err != nil {
		return fmt.Errorf("exceptions: revoke: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) FindMatching(ctx context.Context, memberID, orgID, permission string) ([]PermissionException, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+excColumns+` FROM permission_exceptions
WHERE member_id = $1 AND org_id = $2 AND permission = $3
ORDER BY created_at`, memberID, orgID, permission)
	if err != nil {
		return nil, fmt.Errorf("exceptions: find matching: %w", err)
	}
	defer rows.Close()
	var result []PermissionException
	for rows.Next() {
		exc, err := scanException(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, exc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *repository) IncrementUsage(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE permission_exceptions
SET usage_count = usage_count + 1, last_used_at = $2
WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("exceptions: increment usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ConsumeMatching combines the usability check and the usage increment in one
// statement so concurrent callers cannot exceed the usage limit.
func (r *repository) ConsumeMatching(ctx context.Context, memberID, orgID, permission, resourceType, resourceID string, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE permission_exceptions
SET usage_count = usage_count + 1, last_used_at = $6
WHERE id = (
    SELECT id FROM permission_exceptions
    WHERE member_id = $1 AND org_id = $2 AND permission = $3
      AND ($4 = '' OR resource_type = $4)
      AND ($5 = '' OR resource_id IS NULL OR resource_id = $5)
      AND is_active AND revoked_at IS NULL
      AND effective_date <= $6
      AND (expires_at IS NULL OR expires_at > $6)
      AND (usage_limit IS NULL OR usage_count < usage_limit)
    ORDER BY created_at
    LIMIT 1
    FOR UPDATE SKIP LOCKED
)`, memberID, orgID, permission, resourceType, resourceID, now)
	if err != nil {
		return false, fmt.Errorf("exceptions: consume: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanException(row pgx.Row) (PermissionException, error) {
	var exc PermissionException
	err := row.Scan(&exc.ID, &exc.MemberID, &exc.OrgID, &exc.Permission, &exc.ResourceType,
		&exc.ResourceID, &exc.Reason, &exc.ApprovedBy, &exc.ApprovalDate, &exc.EffectiveDate,
		&exc.ExpiresAt, &exc.RevokedAt, &exc.RevokedBy, &exc.RevokeReason, &exc.UsageCount,
		&exc.UsageLimit, &exc.LastUsedAt, &exc.IsActive, &exc.CreatedAt)
	return exc, err
}
