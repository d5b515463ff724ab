package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/employee-service/internal/domain"
)

// TestCanPerformActionPromoteMatchesRankRule checks every role pair against
// acting rank > rank of the role the target would reach
func TestCanPerformActionPromoteMatchesRankRule(t *testing.T) {
	for _, acting := range domain.Roles() {
		for _, target := range domain.Roles() {
			next, ok := domain.NextRole(target, domain.DirectionUp)
			want := ok && acting > target && acting > next
			assert.Equal(t, want, CanPerformAction(acting, target, domain.ActionPromote),
				"%s promoting %s", acting, target)
		}
	}
}

func TestCanPerformActionScenarios(t *testing.T) {
	// Administrator cannot lift a manager to their own rank.
	assert.False(t, CanPerformAction(domain.RoleAdministrator, domain.RoleManager, domain.ActionPromote))
	assert.True(t, CanPerformAction(domain.RoleSuperAdministrator, domain.RoleManager, domain.ActionPromote))

	assert.True(t, CanPerformAction(domain.RoleManager, domain.RoleEmployee, domain.ActionDemote))
	assert.False(t, CanPerformAction(domain.RoleManager, domain.RoleManager, domain.ActionDemote))
	assert.False(t, CanPerformAction(domain.RoleManager, domain.RoleIntern, domain.ActionDemote), "no role below intern")
	assert.False(t, CanPerformAction(domain.RoleSuperAdministrator, domain.RoleSuperAdministrator, domain.ActionPromote))
}

func TestCanPerformActionRejectsTransferAndUnknownRoles(t *testing.T) {
	assert.False(t, CanPerformAction(domain.RoleSuperAdministrator, domain.RoleAdministrator, domain.ActionTransferSuperAdmin))
	assert.False(t, CanPerformAction(domain.Role(9), domain.RoleIntern, domain.ActionPromote))
	assert.False(t, CanPerformAction(domain.RoleSuperAdministrator, domain.Role(-2), domain.ActionDemote))
}

func TestCanAssign(t *testing.T) {
	assert.True(t, CanAssign(domain.RoleSuperAdministrator, domain.RoleIntern, domain.RoleAdministrator))
	assert.False(t, CanAssign(domain.RoleAdministrator, domain.RoleIntern, domain.RoleAdministrator))
	assert.True(t, CanAssign(domain.RoleAdministrator, domain.RoleManager, domain.RoleIntern))
	assert.False(t, CanAssign(domain.RoleAdministrator, domain.RoleAdministrator, domain.RoleIntern))
	assert.False(t, CanAssign(domain.RoleSuperAdministrator, domain.RoleIntern, domain.Role(5)))
}

func TestCanTransferSuperAdmin(t *testing.T) {
	for _, r := range domain.Roles() {
		assert.Equal(t, r == domain.RoleSuperAdministrator, CanTransferSuperAdmin(r), r.String())
	}
}
