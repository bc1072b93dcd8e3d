package user

type Permission string

const (
	// Payroll
	PermissionPayrollView       Permission = "payroll.view"
	PermissionPayrollManage     Permission = "payroll.manage"
	PermissionPayrollDistribute Permission = "payroll.distribute"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleOwner: {
		// Owner has all permissions
		PermissionPayrollView,
		PermissionPayrollManage,
		PermissionPayrollDistribute,
	},
	RoleManager: {
		PermissionPayrollView,
		PermissionPayrollManage,
		PermissionPayrollDistribute,
	},
	RoleEmployee: {},
	RolePending: {
		// Pending role has no permissions
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}

	return false
}
