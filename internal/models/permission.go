package models

// Permission tags a capability a role may exercise.
type Permission string

const (
	PermissionManageCatalog Permission = "catalog:manage"
	PermissionManageTerms   Permission = "terms:manage"
	PermissionEnrollSelf    Permission = "enrollments:self"
	PermissionEnrollAny     Permission = "enrollments:any"
	PermissionManageGrades  Permission = "grades:manage"
	PermissionExportRoster  Permission = "roster:export"
)

// rolePermissions is resolved once at package init and never mutated.
var rolePermissions = map[UserRole]map[Permission]struct{}{
	RoleAdmin: permissionSet(
		PermissionManageCatalog,
		PermissionManageTerms,
		PermissionEnrollSelf,
		PermissionEnrollAny,
		PermissionManageGrades,
		PermissionExportRoster,
	),
	RoleInstructor: permissionSet(
		PermissionManageGrades,
		PermissionExportRoster,
	),
	RoleStudent: permissionSet(
		PermissionEnrollSelf,
	),
}

func permissionSet(perms ...Permission) map[Permission]struct{} {
	set := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// HasPermission reports whether the role carries the given permission.
func (r UserRole) HasPermission(p Permission) bool {
	perms, ok := rolePermissions[r]
	if !ok {
		return false
	}
	_, ok = perms[p]
	return ok
}
