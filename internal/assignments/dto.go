package assignments

import "time"

// AssignRequest enumerates every field accepted when binding a member to a
// role. There is no loosely-typed option bag: absent optionals stay nil.
type AssignRequest struct {
	MemberID         string         `json:"member_id" validate:"required"`
	OrgID            string         `json:"org_id" validate:"required"`
	RoleCode         string         `json:"role_code" validate:"required"`
	CreatedBy        string         `json:"created_by" validate:"required"`
	ScopeType        ScopeType      `json:"scope_type" validate:"required,oneof=global department region custom"`
	ScopeValue       *string        `json:"scope_value,omitempty"`
	StartDate        *time.Time     `json:"start_date,omitempty"`
	EndDate          *time.Time     `json:"end_date,omitempty"`
	TermYears        *int           `json:"term_years,omitempty" validate:"omitempty,gt=0"`
	NextElectionDate *time.Time     `json:"next_election_date,omitempty"`
	AssignmentType   AssignmentType `json:"assignment_type" validate:"required,oneof=elected appointed acting emergency"`
	ElectionID       *string        `json:"election_id,omitempty"`
	VotesReceived    *int           `json:"votes_received,omitempty" validate:"omitempty,gte=0"`
	RequiresApproval bool           `json:"requires_approval"`
	ActingForMember  *string        `json:"acting_for_member,omitempty"`
	ActingUntil      *time.Time     `json:"acting_until,omitempty"`
}

// UpdatePatch is the explicit set of mutable fields. Nil fields are left
// untouched; the repository applies the whole patch in a single statement so
// concurrent readers never observe partial state.
type UpdatePatch struct {
	Status           *Status    `json:"status,omitempty" validate:"omitempty,oneof=pending_approval active suspended expired"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	NextElectionDate *time.Time `json:"next_election_date,omitempty"`
	SuspensionReason *string    `json:"suspension_reason,omitempty"`
	SuspendedAt      *time.Time `json:"suspended_at,omitempty"`
	SuspendedBy      *string    `json:"suspended_by,omitempty"`
}

// IsZero reports whether the patch changes nothing.
func (p UpdatePatch) IsZero() bool {
	return p.Status == nil && p.EndDate == nil && p.NextElectionDate == nil &&
		p.SuspensionReason == nil && p.SuspendedAt == nil && p.SuspendedBy == nil
}
