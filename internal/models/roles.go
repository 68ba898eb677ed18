package models

// UserRole describes the platform-wide role of a user account.
type UserRole string

const (
	UserRoleUser       UserRole = "USER"
	UserRoleModerator  UserRole = "MODERATOR"
	UserRoleAdmin      UserRole = "ADMIN"
	UserRoleSuperAdmin UserRole = "SUPER_ADMIN"
)

// IsSystemAdmin reports whether the role grants cross-project administration.
func (r UserRole) IsSystemAdmin() bool {
	return r == UserRoleAdmin || r == UserRoleSuperAdmin
}

// Valid reports whether the role is a known platform role.
func (r UserRole) Valid() bool {
	switch r {
	case UserRoleUser, UserRoleModerator, UserRoleAdmin, UserRoleSuperAdmin:
		return true
	}
	return false
}

// ProjectRole describes a user's role within a single project.
type ProjectRole string

const (
	ProjectRoleViewer    ProjectRole = "VIEWER"
	ProjectRoleDeveloper ProjectRole = "DEVELOPER"
	ProjectRoleAdmin     ProjectRole = "ADMIN"
)

var projectRoleRanks = map[ProjectRole]int{
	ProjectRoleViewer:    10,
	ProjectRoleDeveloper: 20,
	ProjectRoleAdmin:     30,
}

// Rank places project roles on an ordered scale so "at least developer"
// checks compare integers instead of special-casing individual roles.
// Unknown roles rank below VIEWER.
func (r ProjectRole) Rank() int {
	return projectRoleRanks[r]
}

// Valid reports whether the role is a known project role.
func (r ProjectRole) Valid() bool {
	_, ok := projectRoleRanks[r]
	return ok
}
