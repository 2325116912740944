package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SweptAssignment identifies one row flipped by a sweep.
type SweptAssignment struct {
	ID    string
	OrgID string
}

// Store is the batch surface the background jobs drive.
type Store interface {
	SweepExpired(ctx context.Context, today time.Time) ([]SweptAssignment, error)
	OrgsWithUpcomingElections(ctx context.Context, horizonDays int) ([]string, error)
}

type store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a PostgreSQL backed store.
func NewStore(pool *pgxpool.Pool) Store {
	return &store{pool: pool}
}

// SweepExpired flips every active assignment whose term ended before today
// to expired, in one statement. Re-running changes nothing: already-expired
// rows no longer match.
func (s *store) SweepExpired(ctx context.Context, today time.Time) ([]SweptAssignment, error) {
	rows, err := s.pool.Query(ctx, `UPDATE member_role_assignments
SET status = 'expired', updated_at = NOW()
WHERE status = 'active' AND end_date IS NOT NULL AND end_date < $1
RETURNING id, org_id`, today)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: sweep: %w", err)
	}
	defer rows.Close()
	var swept []SweptAssignment
	for rows.Next() {
		var sa SweptAssignment
		if err := rows.Scan(&sa.ID, &sa.OrgID); err != nil {
			return nil, fmt.Errorf("lifecycle: sweep scan: %w", err)
		}
		swept = append(swept, sa)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return swept, nil
}

// OrgsWithUpcomingElections returns the orgs that have at least one elected
// assignment due inside the horizon.
func (s *store) OrgsWithUpcomingElections(ctx context.Context, horizonDays int) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT a.org_id
FROM member_role_assignments a
JOIN role_definitions rd ON rd.code = a.role_code
WHERE a.status = 'active' AND rd.is_elected
  AND a.next_election_date IS NOT NULL
  AND a.next_election_date >= NOW()
  AND a.next_election_date < NOW() + make_interval(days => $1)`, horizonDays)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: orgs with elections: %w", err)
	}
	defer rows.Close()
	var orgs []string
	for rows.Next() {
		var org string
		if err := rows.Scan(&org); err != nil {
			return nil, fmt.Errorf("lifecycle: org scan: %w", err)
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orgs, nil
}
