package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRolePermissions(t *testing.T) {
	admin := Actor{ID: 1, Role: RoleAdmin}
	tech := Actor{ID: 2, Role: RoleTechnician}

	require.True(t, admin.Can(PermQuotationTransition))
	require.False(t, tech.Can(PermQuotationTransition))
	require.True(t, tech.Can(PermTicketsWorkAssigned))
	require.False(t, admin.Can(PermTicketsWorkAssigned))
	require.False(t, Actor{Role: "client"}.Can(PermProductsView))

	require.True(t, RoleTechnician.Valid())
	require.False(t, Role("owner").Valid())

	perms := PermissionsForRole(RoleTechnician)
	require.IsIncreasing(t, perms)
	perms[0] = "mutated"
	require.NotContains(t, PermissionsForRole(RoleTechnician), "mutated")
}

func TestPagination(t *testing.T) {
	p := NewPagination(0, 0, 45)
	require.Equal(t, Pagination{Page: 1, PerPage: DefaultPerPage, Total: 45, TotalPages: 3}, p)
	require.Equal(t, 40, Offset(3, 20))
	_, per := NormalizePage(1, 1000)
	require.Equal(t, MaxPerPage, per)
}
