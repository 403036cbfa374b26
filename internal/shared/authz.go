package shared

import "sort"

// Role is the coarse account type stored on users.role.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleTechnician Role = "technician"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// Platform permissions.
const (
	PermUsersView = "users.view"
	PermUsersEdit = "users.edit"

	PermDashboardView = "dashboard.view"
	PermJobsView      = "jobs.view"
)

// Catalog and inventory permissions.
const (
	PermProductsView  = "catalog.product.view"
	PermProductsEdit  = "catalog.product.edit"
	PermOfferingsEdit = "catalog.offering.edit"
	PermInventoryView = "inventory.view"
	PermInventoryEdit = "inventory.edit"
)

// Quotation permissions.
const (
	PermQuotationView       = "sales.quotation.view"
	PermQuotationEdit       = "sales.quotation.edit"
	PermQuotationDelete     = "sales.quotation.delete"
	PermQuotationTransition = "sales.quotation.transition"
	PermQuotationDocuments  = "sales.quotation.documents"
)

// Ticket permissions.
const (
	PermTicketsView         = "tickets.view"
	PermTicketsAssign       = "tickets.assign"
	PermTicketsResolve      = "tickets.resolve"
	PermTicketsClose        = "tickets.close"
	PermTicketsWorkAssigned = "tickets.work_assigned"
	PermTicketsCalendar     = "tickets.calendar"
)

// Site content permissions.
const (
	PermPublicationsEdit = "content.publication.edit"
)

// rolePermissions is the single source of truth for what each role may do.
var rolePermissions = map[Role][]string{
	RoleAdmin: {
		PermUsersView, PermUsersEdit, PermDashboardView, PermJobsView,
		PermProductsView, PermProductsEdit, PermOfferingsEdit,
		PermInventoryView, PermInventoryEdit,
		PermQuotationView, PermQuotationEdit, PermQuotationDelete,
		PermQuotationTransition, PermQuotationDocuments,
		PermTicketsView, PermTicketsAssign, PermTicketsResolve, PermTicketsClose,
		PermPublicationsEdit,
	},
	RoleTechnician: {
		PermProductsView,
		PermTicketsWorkAssigned, PermTicketsCalendar,
	},
}

// PermissionsForRole returns a sorted copy of the permissions granted to role.
func PermissionsForRole(role Role) []string {
	perms := append([]string(nil), rolePermissions[role]...)
	sort.Strings(perms)
	return perms
}

// RoleHas reports whether role grants perm.
func RoleHas(role Role, perm string) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// Actor describes the authenticated user performing an operation.
type Actor struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// Can reports whether the actor's role grants perm.
func (a Actor) Can(perm string) bool {
	return RoleHas(a.Role, perm)
}
