package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	tests := []struct {
		name       string
		role       Role
		permission Permission
		want       bool
	}{
		{"owner can distribute", RoleOwner, PermissionPayrollDistribute, true},
		{"manager can manage", RoleManager, PermissionPayrollManage, true},
		{"employee cannot view payroll", RoleEmployee, PermissionPayrollView, false},
		{"pending has nothing", RolePending, PermissionPayrollView, false},
		{"unknown role", Role("auditor"), PermissionPayrollView, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasPermission(tt.role, tt.permission))
		})
	}
}

func TestRole_IsValid(t *testing.T) {
	assert.True(t, RoleOwner.IsValid())
	assert.True(t, RolePending.IsValid())
	assert.False(t, Role("admin").IsValid())
}
