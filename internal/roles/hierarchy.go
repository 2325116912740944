package roles

import "errors"

// ErrHierarchyCycle indicates a parent link would make the role tree cyclic.
var ErrHierarchyCycle = errors.New("roles: hierarchy cycle")

// Hierarchy is an adjacency view over parent links. Parent chains are
// validated for acyclicity whenever a link is added, so walking a chain
// always terminates.
type Hierarchy struct {
	parent map[string]string
}

// NewHierarchy builds a hierarchy from existing definitions.
func NewHierarchy(defs []RoleDefinition) *Hierarchy {
	h := &Hierarchy{parent: make(map[string]string, len(defs))}
	for _, def := range defs {
		if def.ParentRoleCode != nil && *def.ParentRoleCode != "" {
			h.parent[def.Code] = *def.ParentRoleCode
		}
	}
	return h
}

// Validate reports whether linking child under parentCode keeps the
// hierarchy acyclic.
func (h *Hierarchy) Validate(child, parentCode string) error {
	if child == parentCode {
		return ErrHierarchyCycle
	}
	seen := map[string]struct{}{child: {}}
	for cur := parentCode; cur != ""; cur = h.parent[cur] {
		if _, ok := seen[cur]; ok {
			return ErrHierarchyCycle
		}
		seen[cur] = struct{}{}
	}
	return nil
}

// Link records a validated parent link.
func (h *Hierarchy) Link(child, parentCode string) error {
	if err := h.Validate(child, parentCode); err != nil {
		return err
	}
	h.parent[child] = parentCode
	return nil
}

// Chain returns the parent chain for code, nearest ancestor first.
func (h *Hierarchy) Chain(code string) []string {
	var chain []string
	for cur := h.parent[code]; cur != ""; cur = h.parent[cur] {
		chain = append(chain, cur)
	}
	return chain
}
