package domain

import "sort"

// Role is a team role name.
type Role string

const (
	RoleViewer      Role = "viewer"
	RoleContributor Role = "contributor"
	RolePM          Role = "pm"
	RoleDirector    Role = "director"
	RoleAdmin       Role = "admin"
)

// RoleTable maps role names to numeric authority levels.
type RoleTable map[Role]int

// DefaultRoles is the authority table used when configuration sets none.
func DefaultRoles() RoleTable {
	return RoleTable{
		RoleViewer:      0,
		RoleContributor: 1,
		RolePM:          2,
		RoleDirector:    3,
		RoleAdmin:       4,
	}
}

// Level returns the authority level of r, or -1 for an unknown role.
func (t RoleTable) Level(r Role) int {
	if lvl, ok := t[r]; ok {
		return lvl
	}
	return -1
}

// Roles returns the role names ordered by ascending level.
func (t RoleTable) Roles() []Role {
	roles := make([]Role, 0, len(t))
	for r := range t {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool {
		if t[roles[i]] == t[roles[j]] {
			return roles[i] < roles[j]
		}
		return t[roles[i]] < t[roles[j]]
	})
	return roles
}

// Member is a team member of an organisation.
type Member struct {
	ID    string `json:"id"`
	OrgID string `json:"org_id"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// Gate is an approval rule attached to a single stage transition.
type Gate struct {
	Key     string `json:"key"`
	From    Stage  `json:"from"`
	To      Stage  `json:"to"`
	MinRole Role   `json:"min_role"`
	Level   int    `json:"level"`
	Label   string `json:"label"`
}
