package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound indicates the requested role does not exist.
	ErrNotFound = errors.New("roles: not found")
	// ErrDuplicateCode indicates a role with the same code already exists.
	ErrDuplicateCode = errors.New("roles: duplicate code")
)

// Repository defines data access for role definitions.
type Repository interface {
	Create(ctx context.Context, role RoleDefinition) (RoleDefinition, error)
	GetByCode(ctx context.Context, code string) (RoleDefinition, error)
	ListByMinLevel(ctx context.Context, minLevel int) ([]RoleDefinition, error)
	ListAll(ctx context.Context) ([]RoleDefinition, error)
	Deactivate(ctx context.Context, code string) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const roleColumns = `code, name, level, permissions, is_elected, requires_board_approval,
default_term_years, can_delegate, can_have_multiple_holders, parent_role_code,
is_system_role, is_active, created_at, updated_at`

func (r *repository) Create(ctx context.Context, role RoleDefinition) (RoleDefinition, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO role_definitions
(code, name, level, permissions, is_elected, requires_board_approval, default_term_years,
 can_delegate, can_have_multiple_holders, parent_role_code, is_system_role, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, TRUE)
RETURNING `+roleColumns,
		role.Code, role.Name, role.Level, role.Permissions, role.IsElected,
		role.RequiresBoardApproval, role.DefaultTermYears, role.CanDelegate,
		role.CanHaveMultipleHolders, role.ParentRoleCode, role.IsSystemRole)
	created, err := scanRole(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return RoleDefinition{}, ErrDuplicateCode
		}
		return RoleDefinition{}, fmt.Errorf("roles: create: %w", err)
	}
	return created, nil
}

func (r *repository) GetByCode(ctx context.Context, code string) (RoleDefinition, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM role_definitions WHERE code = $1`, code)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RoleDefinition{}, ErrNotFound
		}
		return RoleDefinition{}, fmt.Errorf("roles: get by code: %w", err)
	}
	return role, nil
}

func (r *repository) ListByMinLevel(ctx context.Context, minLevel int) ([]RoleDefinition, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+`
FROM role_definitions WHERE level >= $1 AND is_active ORDER BY level DESC, code`, minLevel)
	if err != nil {
		return nil, fmt.Errorf("roles: list by min level: %w", err)
	}
	return collectRoles(rows)
}

func (r *repository) ListAll(ctx context.Context) ([]RoleDefinition, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM role_definitions ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("roles: list all: %w", err)
	}
	return collectRoles(rows)
}

func (r *repository) Deactivate(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE role_definitions
SET is_active = FALSE, updated_at = NOW()
WHERE code = $1 AND NOT is_system_role`, code)
	if err != nil {
		return fmt.Errorf("roles: deactivate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRole(row pgx.Row) (RoleDefinition, error) {
	var role RoleDefinition
	err := row.Scan(&role.Code, &role.Name, &role.Level, &role.Permissions,
		&role.IsElected, &role.RequiresBoardApproval, &role.DefaultTermYears,
		&role.CanDelegate, &role.CanHaveMultipleHolders, &role.ParentRoleCode,
		&role.IsSystemRole, &role.IsActive, &role.CreatedAt, &role.UpdatedAt)
	return role, err
}

func collectRoles(rows pgx.Rows) ([]RoleDefinition, error) {
	defer rows.Close()
	var result []RoleDefinition
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
