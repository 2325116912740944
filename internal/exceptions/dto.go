package exceptions

import "time"

// GrantRequest enumerates every field accepted when granting an exception.
type GrantRequest struct {
	MemberID      string     `json:"member_id" validate:"required"`
	OrgID         string     `json:"org_id" validate:"required"`
	Permission    string     `json:"permission" validate:"required"`
	ResourceType  string     `json:"resource_type" validate:"required"`
	ResourceID    *string    `json:"resource_id,omitempty"`
	Reason        string     `json:"reason" validate:"required"`
	ApprovedBy    string     `json:"approved_by" validate:"required"`
	EffectiveDate *time.Time `json:"effective_date,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	UsageLimit    *int       `json:"usage_limit,omitempty" validate:"omitempty,gt=0"`
}

// CheckRequest identifies the grant being probed.
type CheckRequest struct {
	MemberID     string `json:"member_id" validate:"required"`
	OrgID        string `json:"org_id" validate:"required"`
	Permission   string `json:"permission" validate:"required"`
	ResourceType string `json:"resource_type,omitempty"`
	ResourceID   string `json:"resource_id,omitempty"`
}
