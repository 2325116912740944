package ledger

import (
	"context"
	"time"
)

// Entry is a single tamper-evident audit record. RecordHash commits to the
// entry's essential fields plus PreviousHash; PreviousHash is the RecordHash
// of the entry one chain position earlier for the same org. ChainPosition is
// assigned at append time under the org lock, so the chain stays linear even
// when deliveries arrive out of event-time order. Timestamp is the event
// time, stamped where the entry originated.
type Entry struct {
	ID                 string     `json:"id" db:"id"`
	ChainPosition      int64      `json:"chain_position" db:"chain_position"`
	Timestamp          time.Time  `json:"timestamp" db:"timestamp"`
	ActorID            string     `json:"actor_id" db:"actor_id"`
	Action             string     `json:"action" db:"action"`
	ResourceType       string     `json:"resource_type" db:"resource_type"`
	ResourceID         string     `json:"resource_id" db:"resource_id"`
	OrgID              string     `json:"org_id" db:"org_id"`
	Granted            bool       `json:"granted" db:"granted"`
	RequiredPermission string     `json:"required_permission,omitempty" db:"required_permission"`
	GrantMethod        string     `json:"grant_method,omitempty" db:"grant_method"`
	DenialReason       string     `json:"denial_reason,omitempty" db:"denial_reason"`
	RecordHash         string     `json:"record_hash" db:"record_hash"`
	PreviousHash       string     `json:"previous_hash" db:"previous_hash"`
	ExecutionTimeMs    int64      `json:"execution_time_ms" db:"execution_time_ms"`
	IsSensitive        bool       `json:"is_sensitive" db:"is_sensitive"`
	ReviewedAt         *time.Time `json:"reviewed_at,omitempty" db:"reviewed_at"`
	ReviewedBy         *string    `json:"reviewed_by,omitempty" db:"reviewed_by"`
}

// Grant methods recorded on access-decision entries.
const (
	GrantMethodRole      = "role"
	GrantMethodException = "exception"
	GrantMethodNone      = "none"
)

// Recorder accepts audit entries fire-and-forget: implementations must never
// fail the calling operation, whatever happens to the sink.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// VerifyResult summarises a chain walk for operator review.
type VerifyResult struct {
	Valid          bool `json:"valid"`
	TotalRecords   int  `json:"total_records"`
	InvalidRecords int  `json:"invalid_records"`
}

// VerifyRange optionally bounds verification by timestamp.
type VerifyRange struct {
	From time.Time
	To   time.Time
}
