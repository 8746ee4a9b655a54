package model

// Role is the closed set of roles known to the access policy. Role strings
// never appear as ad hoc literals outside this package and the policy table.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAccountant Role = "ACCOUNTANT"
	RoleHR         Role = "HR"
	RoleSales      Role = "SALES"
	RoleMarketing  Role = "MARKETING"
)

// Roles lists every known role, in no particular order.
var Roles = []Role{RoleSuperAdmin, RoleAccountant, RoleHR, RoleSales, RoleMarketing}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAccountant, RoleHR, RoleSales, RoleMarketing:
		return true
	}
	return false
}

// Principal is the already-authenticated actor supplied by the authentication
// layer on every call. This pipeline never verifies credentials itself.
type Principal struct {
	ID         string `json:"id"`
	Role       Role   `json:"role"`
	Department string `json:"department,omitempty"`
}
