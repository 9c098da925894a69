package auth

import (
	"slices"
	"strings"
)

// Role names an account's position in the permission catalog.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// Permission is a "resource.action" capability string.
type Permission string

const (
	PermUserCreate    Permission = "user.create"
	PermUserRead      Permission = "user.read"
	PermUserUpdate    Permission = "user.update"
	PermUserDelete    Permission = "user.delete"
	PermUserUpdateOwn Permission = "user.update_own"

	PermEmployeeCreate Permission = "employee.create"
	PermEmployeeRead   Permission = "employee.read"
	PermEmployeeUpdate Permission = "employee.update"
	PermEmployeeDelete Permission = "employee.delete"

	PermProjectCreate Permission = "project.create"
	PermProjectRead   Permission = "project.read"
	PermProjectUpdate Permission = "project.update"
	PermProjectDelete Permission = "project.delete"

	PermTaskCreate    Permission = "task.create"
	PermTaskRead      Permission = "task.read"
	PermTaskUpdate    Permission = "task.update"
	PermTaskDelete    Permission = "task.delete"
	PermTaskUpdateOwn Permission = "task.update_own"

	PermDepartmentCreate Permission = "department.create"
	PermDepartmentRead   Permission = "department.read"
	PermDepartmentUpdate Permission = "department.update"
	PermDepartmentDelete Permission = "department.delete"

	PermMetricsRead      Permission = "metrics.read"
	PermReportsRead      Permission = "reports.read"
	PermAuditRead        Permission = "audit.read"
	PermSystemConfig     Permission = "system.config"
	PermSystemBackup     Permission = "system.backup"
	PermTeamManage       Permission = "team.manage"
	PermTimesheetCreate  Permission = "timesheet.create"
	PermTimesheetReadOwn Permission = "timesheet.read_own"
)

// DefaultCatalog is the role → permission mapping the service ships with.
func DefaultCatalog() map[Role][]Permission {
	return map[Role][]Permission{
		RoleAdmin: {
			PermUserCreate, PermUserRead, PermUserUpdate, PermUserDelete,
			PermEmployeeCreate, PermEmployeeRead, PermEmployeeUpdate, PermEmployeeDelete,
			PermProjectCreate, PermProjectRead, PermProjectUpdate, PermProjectDelete,
			PermTaskCreate, PermTaskRead, PermTaskUpdate, PermTaskDelete,
			PermDepartmentCreate, PermDepartmentRead, PermDepartmentUpdate, PermDepartmentDelete,
			PermMetricsRead, PermReportsRead, PermAuditRead,
			PermSystemConfig, PermSystemBackup,
		},
		RoleManager: {
			PermUserRead, PermUserUpdate,
			PermEmployeeRead, PermEmployeeUpdate,
			PermProjectCreate, PermProjectRead, PermProjectUpdate,
			PermTaskCreate, PermTaskRead, PermTaskUpdate, PermTaskDelete,
			PermMetricsRead, PermReportsRead, PermTeamManage,
		},
		RoleEmployee: {
			PermUserRead, PermUserUpdateOwn,
			PermProjectRead,
			PermTaskRead, PermTaskUpdateOwn,
			PermTimesheetCreate, PermTimesheetReadOwn,
		},
	}
}

// Registry is an immutable role → permission set. Build it once at startup
// and share it; no method mutates it.
type Registry struct {
	sets map[Role]map[Permission]struct{}
}

// NewRegistry copies catalog into a Registry. Blank entries are ignored.
func NewRegistry(catalog map[Role][]Permission) *Registry {
	r := &Registry{sets: make(map[Role]map[Permission]struct{}, len(catalog))}
	for role, perms := range catalog {
		role = Role(strings.TrimSpace(string(role)))
		if role == "" {
			continue
		}
		set := make(map[Permission]struct{}, len(perms))
		for _, p := range perms {
			if p = Permission(strings.TrimSpace(string(p))); p != "" {
				set[p] = struct{}{}
			}
		}
		r.sets[role] = set
	}
	return r
}

// DefaultRegistry builds a Registry from DefaultCatalog.
func DefaultRegistry() *Registry {
	return NewRegistry(DefaultCatalog())
}

// HasPermission reports set membership. Unknown roles hold nothing.
func (r *Registry) HasPermission(role Role, perm Permission) bool {
	if r == nil {
		return false
	}
	_, ok := r.sets[role][perm]
	return ok
}

// PermissionsOf returns a sorted copy of role's permissions, empty for unknown roles.
func (r *Registry) PermissionsOf(role Role) []Permission {
	if r == nil {
		return []Permission{}
	}
	set := r.sets[role]
	out := make([]Permission, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// KnownRole reports whether role has a catalog entry.
func (r *Registry) KnownRole(role Role) bool {
	if r == nil {
		return false
	}
	_, ok := r.sets[role]
	return ok
}

// Roles lists catalog roles in sorted order.
func (r *Registry) Roles() []Role {
	if r == nil {
		return nil
	}
	out := make([]Role, 0, len(r.sets))
	for role := range r.sets {
		out = append(out, role)
	}
	slices.Sort(out)
	return out
}

// CanAccessUserData: admins and managers see every account, others only their own.
// Managers are not scoped to a team.
func CanAccessUserData(role Role, targetID, actorID int64) bool {
	switch role {
	case RoleAdmin, RoleManager:
		return true
	default:
		return targetID == actorID
	}
}

// CanModifyProject: admins always; managers when they created or are assigned
// the project; everyone else only when assigned.
func CanModifyProject(role Role, actorID, creatorID, assigneeID int64) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleManager:
		return actorID == creatorID || actorID == assigneeID
	default:
		return actorID == assigneeID
	}
}
