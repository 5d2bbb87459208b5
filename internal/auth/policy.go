package auth

import "excel-insights-api/internal/model"

type Permission string

const (
	// ManageSystem covers system settings and user administration.
	ManageSystem Permission = "manage_system"
	// ManageOwnFiles covers the caller's own uploads.
	ManageOwnFiles Permission = "manage_own_files"
)

type Decision int

const (
	Forbidden Decision = iota
	Authorized
)

func (d Decision) Allowed() bool {
	return d == Authorized
}

func (d Decision) String() string {
	if d == Authorized {
		return "authorized"
	}
	return "forbidden"
}

// Policy decides whether an identity holds a permission. All role checks
// go through Check.
type Policy struct {
	grants map[model.Role]map[Permission]bool
}

func DefaultPolicy() *Policy {
	return &Policy{
		grants: map[model.Role]map[Permission]bool{
			model.RoleUser: {
				ManageOwnFiles: true,
			},
			model.RoleAdmin: {
				ManageOwnFiles: true,
				ManageSystem:   true,
			},
		},
	}
}

func (p *Policy) Check(id Identity, perm Permission) Decision {
	if id.UserID == "" {
		return Forbidden
	}
	if p.grants[id.Role][perm] {
		return Authorized
	}
	return Forbidden
}
