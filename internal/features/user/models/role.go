package models

// Role is the coarse identity class attached to a user. The platform runs
// with a single operator today; the capability indirection keeps handlers
// unaware of that.
type Role string

const (
	RoleUser     Role = "user"
	RoleOperator Role = "operator"
)

// Capability names an administrative action a role may perform.
type Capability string

const (
	CapResolvePayments Capability = "resolve_payments"
	CapResolveNotices  Capability = "resolve_notices"
	CapManageCatalog   Capability = "manage_catalog"
	CapManageUsers     Capability = "manage_users"
)

var roleCapabilities = map[Role]map[Capability]struct{}{
	RoleOperator: {
		CapResolvePayments: {},
		CapResolveNotices:  {},
		CapManageCatalog:   {},
		CapManageUsers:     {},
	},
}

// HasCapability reports whether the role grants the capability.
func HasCapability(role Role, cap Capability) bool {
	caps, ok := roleCapabilities[role]
	if !ok {
		return false
	}
	_, ok = caps[cap]
	return ok
}
