package auth

import "github.com/Asiful600w/Daily-Fresh-sub001/pkg/domain"

// Policy is the per-surface configuration of an Authenticator. The
// authenticator itself is role-agnostic; AllowedRoles is consulted by the
// caller after a successful authentication.
type Policy struct {
	// Surface names the tenant surface ("storefront", "admin").
	Surface string
	// AuditTable is the table authentication events are appended to.
	AuditTable string
	// AllowedRoles lists roles the surface accepts after Success.
	AllowedRoles []domain.Role
}

// Permits reports whether role may hold a session on this surface.
func (p Policy) Permits(role domain.Role) bool {
	for _, r := range p.AllowedRoles {
		if r == role {
			return true
		}
	}
	return false
}

// StorefrontPolicy is the customer-facing surface: customers only.
func StorefrontPolicy() Policy {
	return Policy{
		Surface:      "storefront",
		AuditTable:   "audit_logs",
		AllowedRoles: []domain.Role{domain.RoleCustomer},
	}
}

// AdminPolicy is the merchant/admin back office: everyone but customers.
func AdminPolicy() Policy {
	return Policy{
		Surface:      "admin",
		AuditTable:   "admin_audit_logs",
		AllowedRoles: []domain.Role{domain.RoleSuperAdmin, domain.RoleAdmin, domain.RoleMerchant},
	}
}
