package model

// Role identifies what a staff member is allowed to do on the platform.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleCounselor  Role = "COUNSELOR"
	RoleVerifier   Role = "VERIFIER"
)

// AllRoles lists every role a staff account can hold.
var AllRoles = []Role{RoleSuperAdmin, RoleAdmin, RoleCounselor, RoleVerifier}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// Can reports whether the role grants the permission.
func (r Role) Can(p Permission) bool {
	for _, granted := range rolePermissions[r] {
		if granted == p {
			return true
		}
	}
	return false
}
