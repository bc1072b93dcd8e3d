package user

type Role string

const (
	RoleOwner    Role = "owner"    // Company owner - full access
	RoleManager  Role = "manager"  // Can run and distribute payroll
	RoleEmployee Role = "employee" // Regular employee
	RolePending  Role = "pending"  // Still in onboarding
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleOwner, RoleManager, RoleEmployee, RolePending:
		return true
	}
	return false
}

// Claims is the caller identity extracted from an access token.
type Claims struct {
	UserID     string
	Email      string
	EmployeeID *string
	CompanyID  *string
	Role       Role
}

// IsOwner checks if user is company owner
func (c Claims) IsOwner() bool {
	return c.Role == RoleOwner
}

// IsManager checks if user is manager or owner
func (c Claims) IsManager() bool {
	return c.Role == RoleManager || c.Role == RoleOwner
}
