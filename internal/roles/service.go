package roles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrSystemRole indicates the operation is forbidden for system-defined roles.
	ErrSystemRole = errors.New("roles: system role is immutable")
	// ErrUnknownParent indicates the referenced parent role does not exist.
	ErrUnknownParent = errors.New("roles: unknown parent role")
)

// Service manages the role catalog.
type Service struct {
	repo     Repository
	validate *validator.Validate
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// Create registers a new role definition. Duplicate codes are rejected, and
// parent links are checked for existence and acyclicity before insert.
func (s *Service) Create(ctx context.Context, req CreateRoleRequest) (RoleDefinition, error) {
	req.Code = strings.TrimSpace(req.Code)
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validate.Struct(req); err != nil {
		return RoleDefinition{}, fmt.Errorf("roles: invalid create request: %w", err)
	}

	if req.ParentRoleCode != nil && *req.ParentRoleCode != "" {
		if _, err := s.repo.GetByCode(ctx, *req.ParentRoleCode); err != nil {
			if errors.Is(err, ErrNotFound) {
				return RoleDefinition{}, ErrUnknownParent
			}
			return RoleDefinition{}, err
		}
		existing, err := s.repo.ListAll(ctx)
		if err != nil {
			return RoleDefinition{}, err
		}
		if err := NewHierarchy(existing).Validate(req.Code, *req.ParentRoleCode); err != nil {
			return RoleDefinition{}, err
		}
	}

	return s.repo.Create(ctx, RoleDefinition{
		Code:                   req.Code,
		Name:                   req.Name,
		Level:                  req.Level,
		Permissions:            dedupe(req.Permissions),
		IsElected:              req.IsElected,
		RequiresBoardApproval:  req.RequiresBoardApproval,
		DefaultTermYears:       req.DefaultTermYears,
		CanDelegate:            req.CanDelegate,
		CanHaveMultipleHolders: req.CanHaveMultipleHolders,
		ParentRoleCode:         req.ParentRoleCode,
		IsSystemRole:           req.IsSystemRole,
	})
}

// GetByCode fetches a role definition.
func (s *Service) GetByCode(ctx context.Context, code string) (RoleDefinition, error) {
	return s.repo.GetByCode(ctx, code)
}

// GetByMinLevel returns active roles at or above the given level.
func (s *Service) GetByMinLevel(ctx context.Context, minLevel int) ([]RoleDefinition, error) {
	return s.repo.ListByMinLevel(ctx, minLevel)
}

// Deactivate retires a role. System roles cannot be deactivated.
func (s *Service) Deactivate(ctx context.Context, code string) error {
	role, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	if role.IsSystemRole {
		return ErrSystemRole
	}
	return s.repo.Deactivate(ctx, code)
}

func dedupe(perms []string) []string {
	seen := make(map[string]struct{}, len(perms))
	result := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		result = append(result, p)
	}
	return result
}
