package auth

import "github.com/spec-kit/employee-service/internal/domain"

// CanPerformAction reports whether acting may promote or demote an employee
// currently holding target. The actor must outrank both the target's current
// role and the role the target would reach.
func CanPerformAction(acting, target domain.Role, action domain.TransitionAction) bool {
	dir, ok := action.Direction()
	if !ok {
		return false
	}
	next, ok := domain.NextRole(target, dir)
	if !ok {
		return false
	}
	return CanAssign(acting, target, next)
}

// CanAssign reports whether acting may move an employee from target to newRole.
func CanAssign(acting, target, newRole domain.Role) bool {
	if !acting.Valid() || !target.Valid() || !newRole.Valid() {
		return false
	}
	return acting > target && acting > newRole
}

// CanTransferSuperAdmin reports whether acting may hand over the super
// administrator role. Target rank is irrelevant.
func CanTransferSuperAdmin(acting domain.Role) bool {
	return acting == domain.RoleSuperAdministrator
}
