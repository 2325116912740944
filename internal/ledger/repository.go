package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anungis437/nzila-os-sub012/internal/platform/db"
)

// Repository defines data access for the audit ledger.
type Repository interface {
	// WithTenantLock serializes concurrent appends for the same org so the
	// chain stays linear.
	WithTenantLock(ctx context.Context, orgID string, fn func(ctx context.Context, tx TxRepository) error) error
	List(ctx context.Context, orgID string, rng VerifyRange) ([]Entry, error)
}

// TxRepository is the transactional slice of the repository used inside an
// append critical section.
type TxRepository interface {
	// Latest returns the record hash and chain position of the org's tip
	// entry, or ("", 0) for an empty chain.
	Latest(ctx context.Context, orgID string) (string, int64, error)
	Insert(ctx context.Context, entry Entry) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) WithTenantLock(ctx context.Context, orgID string, fn func(context.Context, TxRepository) error) error {
	return db.WithTenantLock(ctx, r.pool, "ledger:"+orgID, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) Latest(ctx context.Context, orgID string) (string, int64, error) {
	var hash string
	var position int64
	err := r.tx.QueryRow(ctx, `SELECT record_hash, chain_position FROM audit_log_entries
WHERE org_id = $1 ORDER BY chain_position DESC LIMIT 1`, orgID).Scan(&hash, &position)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", 0, nil
		}
		return "", 0, fmt.Errorf("ledger: latest: %w", err)
	}
	return hash, position, nil
}

func (r *txRepository) Insert(ctx context.Context, entry Entry) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO audit_log_entries
(id, chain_position, timestamp, actor_id, action, resource_type, resource_id, org_id,
 granted, required_permission, grant_method, denial_reason, record_hash, previous_hash,
 execution_time_ms, is_sensitive)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		entry.ID, entry.ChainPosition, entry.Timestamp, entry.ActorID, entry.Action,
		entry.ResourceType, entry.ResourceID, entry.OrgID, entry.Granted,
		entry.RequiredPermission, entry.GrantMethod, entry.DenialReason, entry.RecordHash,
		entry.PreviousHash, entry.ExecutionTimeMs, entry.IsSensitive)
	if err != nil {
		return fmt.Errorf("ledger: insert: %w", err)
	}
	return nil
}

func (r *repository) List(ctx context.Context, orgID string, rng VerifyRange) ([]Entry, error) {
	query := `SELECT id, chain_position, timestamp, actor_id, action, resource_type, resource_id,
org_id, granted, required_permission, grant_method, denial_reason, record_hash,
previous_hash, execution_time_ms, is_sensitive, reviewed_at, reviewed_by
FROM audit_log_entries WHERE org_id = $1`
	args := []any{orgID}
	if !rng.From.IsZero() {
		args = append(args, rng.From)
		query += fmt.Sprintf(" AND timestamp >= $%d", len(args))
	}
	if !rng.To.IsZero() {
		args = append(args, rng.To)
		query += fmt.Sprintf(" AND timestamp <= $%d", len(args))
	}
	query += " ORDER BY chain_position ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: list: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var reviewedAt *time.Time
		if err := rows.Scan(&e.ID, &e.ChainPosition, &e.Timestamp, &e.ActorID, &e.Action,
			&e.ResourceType, &e.ResourceID, &e.OrgID, &e.Granted, &e.RequiredPermission,
			&e.GrantMethod, &e.DenialReason, &e.RecordHash, &e.PreviousHash,
			&e.ExecutionTimeMs, &e.IsSensitive, &reviewedAt, &e.ReviewedBy); err != nil {
			return nil, fmt.Errorf("ledger: scan: %w", err)
		}
		e.ReviewedAt = reviewedAt
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
