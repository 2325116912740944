package exceptions

import "time"

// PermissionException is a time/usage-bounded grant of a single permission
// outside the role system. It is created already approved.
type PermissionException struct {
	ID            string     `json:"id" db:"id"`
	MemberID      string     `json:"member_id" db:"member_id"`
	OrgID         string     `json:"org_id" db:"org_id"`
	Permission    string     `json:"permission" db:"permission"`
	ResourceType  string     `json:"resource_type" db:"resource_type"`
	ResourceID    *string    `json:"resource_id,omitempty" db:"resource_id"`
	Reason        string     `json:"reason" db:"reason"`
	ApprovedBy    string     `json:"approved_by" db:"approved_by"`
	ApprovalDate  time.Time  `json:"approval_date" db:"approval_date"`
	EffectiveDate time.Time  `json:"effective_date" db:"effective_date"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty" db:"revoked_at"`
	RevokedBy     *string    `json:"revoked_by,omitempty" db:"revoked_by"`
	RevokeReason  *string    `json:"revoke_reason,omitempty" db:"revoke_reason"`
	UsageCount    int        `json:"usage_count" db:"usage_count"`
	UsageLimit    *int       `json:"usage_limit,omitempty" db:"usage_limit"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// Usable reports whether the exception contributes a grant at the given
// instant: active, not revoked, effective, unexpired, and under its usage
// limit.
func (e PermissionException) Usable(now time.Time) bool {
	if !e.IsActive || e.RevokedAt != nil {
		return false
	}
	if now.Before(e.EffectiveDate) {
		return false
	}
	if e.ExpiresAt != nil && !e.ExpiresAt.After(now) {
		return false
	}
	if e.UsageLimit != nil && e.UsageCount >= *e.UsageLimit {
		return false
	}
	return true
}

// Matches reports whether the exception covers the requested permission and
// resource. A nil resource id on the grant covers every resource of the type.
func (e PermissionException) Matches(permission, resourceType, resourceID string) bool {
	if e.Permission != permission {
		return false
	}
	if resourceType != "" && e.ResourceType != resourceType {
		return false
	}
	if resourceID != "" && e.ResourceID != nil && *e.ResourceID != resourceID {
		return false
	}
	return true
}
