package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryContainment(t *testing.T) {
	reg := DefaultRegistry()

	assert.True(t, reg.HasPermission(RoleAdmin, PermProjectDelete))
	assert.False(t, reg.HasPermission(RoleEmployee, PermProjectDelete))
	assert.True(t, reg.HasPermission(RoleManager, PermProjectCreate))
	assert.True(t, reg.HasPermission(RoleManager, PermTeamManage))
	assert.False(t, reg.HasPermission(RoleManager, PermAuditRead))
	assert.True(t, reg.HasPermission(RoleEmployee, PermUserUpdateOwn))
	assert.False(t, reg.HasPermission(RoleEmployee, PermUserUpdate))
}

func TestRegistryUnknownRoleIsEmpty(t *testing.T) {
	reg := DefaultRegistry()

	assert.False(t, reg.HasPermission("contractor", PermUserRead))
	assert.Empty(t, reg.PermissionsOf("contractor"))
	assert.NotNil(t, reg.PermissionsOf("contractor"))
	assert.False(t, reg.KnownRole("contractor"))
}

func TestPermissionsOfReturnsSortedCopy(t *testing.T) {
	reg := DefaultRegistry()

	perms := reg.PermissionsOf(RoleEmployee)
	require.Equal(t, []Permission{
		PermProjectRead,
		PermTaskRead,
		PermTaskUpdateOwn,
		PermTimesheetCreate,
		PermTimesheetReadOwn,
		PermUserRead,
		PermUserUpdateOwn,
	}, perms)

	perms[0] = PermSystemConfig
	assert.False(t, reg.HasPermission(RoleEmployee, PermSystemConfig))
}

func TestNewRegistryIsolatedFromCatalog(t *testing.T) {
	catalog := map[Role][]Permission{"auditor": {PermAuditRead, " ", PermReportsRead}}
	reg := NewRegistry(catalog)
	catalog["auditor"][0] = PermSystemBackup

	assert.True(t, reg.HasPermission("auditor", PermAuditRead))
	assert.False(t, reg.HasPermission("auditor", PermSystemBackup))
	assert.Len(t, reg.PermissionsOf("auditor"), 2)
	assert.Equal(t, []Role{"auditor"}, reg.Roles())
}

func TestAdminIsSupersetOfCatalogResources(t *testing.T) {
	reg := DefaultRegistry()
	for _, p := range []Permission{PermUserDelete, PermDepartmentCreate, PermSystemBackup, PermAuditRead} {
		assert.True(t, reg.HasPermission(RoleAdmin, p), p)
	}
}

func TestCanAccessUserData(t *testing.T) {
	assert.False(t, CanAccessUserData(RoleEmployee, 6, 5))
	assert.True(t, CanAccessUserData(RoleEmployee, 5, 5))
	assert.True(t, CanAccessUserData(RoleManager, 999, 1))
	assert.True(t, CanAccessUserData(RoleAdmin, 2, 1))
	assert.False(t, CanAccessUserData("unknown", 2, 1))
}

func TestCanModifyProject(t *testing.T) {
	cases := []struct {
		name                     string
		role                     Role
		actor, creator, assignee int64
		want                     bool
	}{
		{"admin any", RoleAdmin, 1, 2, 3, true},
		{"manager creator", RoleManager, 2, 2, 3, true},
		{"manager assignee", RoleManager, 3, 2, 3, true},
		{"manager unrelated", RoleManager, 4, 2, 3, false},
		{"employee assignee", RoleEmployee, 3, 2, 3, true},
		{"employee creator only", RoleEmployee, 2, 2, 3, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanModifyProject(tc.role, tc.actor, tc.creator, tc.assignee))
		})
	}
}
