package roles

import "time"

// RoleDefinition describes an administered role and its permission set.
type RoleDefinition struct {
	Code                   string    `json:"code" db:"code"`
	Name                   string    `json:"name" db:"name"`
	Level                  int       `json:"level" db:"level"`
	Permissions            []string  `json:"permissions" db:"permissions"`
	IsElected              bool      `json:"is_elected" db:"is_elected"`
	RequiresBoardApproval  bool      `json:"requires_board_approval" db:"requires_board_approval"`
	DefaultTermYears       *int      `json:"default_term_years,omitempty" db:"default_term_years"`
	CanDelegate            bool      `json:"can_delegate" db:"can_delegate"`
	CanHaveMultipleHolders bool      `json:"can_have_multiple_holders" db:"can_have_multiple_holders"`
	ParentRoleCode         *string   `json:"parent_role_code,omitempty" db:"parent_role_code"`
	IsSystemRole           bool      `json:"is_system_role" db:"is_system_role"`
	IsActive               bool      `json:"is_active" db:"is_active"`
	CreatedAt              time.Time `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time `json:"updated_at" db:"updated_at"`
}
