// Package perm decides whether a principal's flattened permission set
// satisfies a requirement. Decisions are pure; they read a User snapshot
// and never touch the network.
//
// Rules:
// - super_admin satisfies every check, regardless of the permission list
// - an unknown/empty role fails every check (fail closed)
// - permissions are opaque strings; no closed catalog is assumed
package perm

import "ucontents-console/internal/platform"

func HasPermission(u platform.User, required string) bool {
	if platform.IsSuperAdmin(u.Role) {
		return true
	}
	if !platform.ValidRole(u.Role) {
		return false
	}
	for _, p := range u.Permissions {
		if p == required {
			return true
		}
	}
	return false
}

// HasAnyPermission is true when at least one required permission is held.
// An empty requirement set is false for everyone except super_admin.
func HasAnyPermission(u platform.User, required []string) bool {
	if platform.IsSuperAdmin(u.Role) {
		return true
	}
	if !platform.ValidRole(u.Role) {
		return false
	}
	held := toSet(u.Permissions)
	for _, r := range required {
		if _, ok := held[r]; ok {
			return true
		}
	}
	return false
}

// HasAllPermissions is true when every required permission is held.
// An empty requirement set is vacuously true for any known role.
func HasAllPermissions(u platform.User, required []string) bool {
	if platform.IsSuperAdmin(u.Role) {
		return true
	}
	if !platform.ValidRole(u.Role) {
		return false
	}
	held := toSet(u.Permissions)
	for _, r := range required {
		if _, ok := held[r]; !ok {
			return false
		}
	}
	return true
}

func toSet(perms []string) map[string]struct{} {
	s := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}
