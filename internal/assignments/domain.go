package assignments

import "time"

// Status is the lifecycle state of a role assignment.
type Status string

const (
	StatusPendingApproval Status = "pending_approval"
	StatusActive          Status = "active"
	StatusSuspended       Status = "suspended"
	// StatusExpired is terminal: no transitions leave it.
	StatusExpired Status = "expired"
)

// ScopeType subdivides an organization.
type ScopeType string

const (
	ScopeGlobal     ScopeType = "global"
	ScopeDepartment ScopeType = "department"
	ScopeRegion     ScopeType = "region"
	ScopeCustom     ScopeType = "custom"
)

// AssignmentType records how the member came to hold the role.
type AssignmentType string

const (
	AssignmentElected   AssignmentType = "elected"
	AssignmentAppointed AssignmentType = "appointed"
	AssignmentActing    AssignmentType = "acting"
	AssignmentEmergency AssignmentType = "emergency"
)

// MemberRoleAssignment binds a member to a role within an org and scope for
// a term.
type MemberRoleAssignment struct {
	ID               string         `json:"id" db:"id"`
	MemberID         string         `json:"member_id" db:"member_id"`
	OrgID            string         `json:"org_id" db:"org_id"`
	RoleCode         string         `json:"role_code" db:"role_code"`
	ScopeType        ScopeType      `json:"scope_type" db:"scope_type"`
	ScopeValue       *string        `json:"scope_value,omitempty" db:"scope_value"`
	StartDate        time.Time      `json:"start_date" db:"start_date"`
	EndDate          *time.Time     `json:"end_date,omitempty" db:"end_date"`
	TermYears        *int           `json:"term_years,omitempty" db:"term_years"`
	NextElectionDate *time.Time     `json:"next_election_date,omitempty" db:"next_election_date"`
	AssignmentType   AssignmentType `json:"assignment_type" db:"assignment_type"`
	ElectionID       *string        `json:"election_id,omitempty" db:"election_id"`
	VotesReceived    *int           `json:"votes_received,omitempty" db:"votes_received"`
	Status           Status         `json:"status" db:"status"`
	SuspensionReason *string        `json:"suspension_reason,omitempty" db:"suspension_reason"`
	SuspendedAt      *time.Time     `json:"suspended_at,omitempty" db:"suspended_at"`
	SuspendedBy      *string        `json:"suspended_by,omitempty" db:"suspended_by"`
	ActingForMember  *string        `json:"acting_for_member,omitempty" db:"acting_for_member"`
	ActingUntil      *time.Time     `json:"acting_until,omitempty" db:"acting_until"`
	ApprovedBy       *string        `json:"approved_by,omitempty" db:"approved_by"`
	ApprovedAt       *time.Time     `json:"approved_at,omitempty" db:"approved_at"`
	CreatedBy        string         `json:"created_by" db:"created_by"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
	UpdatedBy        *string        `json:"updated_by,omitempty" db:"updated_by"`
	UpdatedAt        time.Time      `json:"updated_at" db:"updated_at"`
}

// Contributes reports whether the assignment grants authority at the given
// instant: only active assignments with an open or future end date count.
// Suspended assignments never contribute regardless of dates.
func (a MemberRoleAssignment) Contributes(now time.Time) bool {
	if a.Status != StatusActive {
		return false
	}
	return a.EndDate == nil || a.EndDate.After(now)
}

// InScope reports whether the assignment covers the requested scope. A
// global assignment covers every scope.
func (a MemberRoleAssignment) InScope(scopeType ScopeType, scopeValue string) bool {
	if a.ScopeType == ScopeGlobal {
		return true
	}
	if a.ScopeType != scopeType {
		return false
	}
	if scopeValue == "" {
		return true
	}
	return a.ScopeValue != nil && *a.ScopeValue == scopeValue
}
