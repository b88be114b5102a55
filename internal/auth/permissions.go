package auth

import "github.com/Aidin1998/accounts/pkg/models"

// Permission names an operation class checked against the caller's role.
type Permission string

const (
	OrganizationsView   Permission = "organizations_view"
	OrganizationsChange Permission = "organizations_change"
	AvatarAny           Permission = "avatar_any"
)

// DefaultRolePermissions grants permissions per organization role.
var DefaultRolePermissions = map[string][]Permission{
	models.RoleOwner:         {OrganizationsView, OrganizationsChange, AvatarAny},
	models.RoleAdministrator: {OrganizationsView, OrganizationsChange, AvatarAny},
	models.RoleManager:       {OrganizationsView, OrganizationsChange, AvatarAny},
	models.RoleReviewer:      {OrganizationsView, AvatarAny},
	models.RoleAnnotator:     {OrganizationsView, AvatarAny},
}

// Permissions is a role -> permission lookup table.
type Permissions struct {
	roles map[string]map[Permission]bool
}

// NewPermissions builds the table from the defaults. Roles present in
// overrides replace the default grants of that role.
func NewPermissions(overrides map[string][]string) *Permissions {
	p := &Permissions{roles: make(map[string]map[Permission]bool)}
	for role, perms := range DefaultRolePermissions {
		p.grant(role, perms)
	}
	for role, names := range overrides {
		perms := make([]Permission, 0, len(names))
		for _, name := range names {
			perms = append(perms, Permission(name))
		}
		p.roles[role] = nil
		p.grant(role, perms)
	}
	return p
}

func (p *Permissions) grant(role string, perms []Permission) {
	set := p.roles[role]
	if set == nil {
		set = make(map[Permission]bool, len(perms))
		p.roles[role] = set
	}
	for _, perm := range perms {
		set[perm] = true
	}
}

// Allowed reports whether role holds perm.
func (p *Permissions) Allowed(role string, perm Permission) bool {
	return p.roles[role][perm]
}
