package roles

// CreateRoleRequest enumerates every field accepted when defining a role.
type CreateRoleRequest struct {
	Code                   string   `json:"code" validate:"required,max=64"`
	Name                   string   `json:"name" validate:"required,max=200"`
	Level                  int      `json:"level" validate:"gte=0,lte=100"`
	Permissions            []string `json:"permissions" validate:"dive,required"`
	IsElected              bool     `json:"is_elected"`
	RequiresBoardApproval  bool     `json:"requires_board_approval"`
	DefaultTermYears       *int     `json:"default_term_years,omitempty" validate:"omitempty,gt=0,lte=20"`
	CanDelegate            bool     `json:"can_delegate"`
	CanHaveMultipleHolders bool     `json:"can_have_multiple_holders"`
	ParentRoleCode         *string  `json:"parent_role_code,omitempty" validate:"omitempty,max=64"`
	IsSystemRole           bool     `json:"is_system_role"`
}
