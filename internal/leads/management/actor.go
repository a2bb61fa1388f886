package management

import (
	"dealer_crm_backend/internal/leads/repository"
	"dealer_crm_backend/platform/apperr"

	"github.com/google/uuid"
)

// Staff roles as carried in access tokens.
const (
	RoleSuperAdmin = "super_admin"
	RoleDealer     = "dealer"
	RoleManager    = "manager"
)

// Actor is the authenticated caller of a dashboard operation.
type Actor struct {
	UserID   uuid.UUID
	Role     string
	TenantID *uuid.UUID
}

// IsSuperAdmin reports whether the actor sees every tenant.
func (a Actor) IsSuperAdmin() bool {
	return a.Role == RoleSuperAdmin
}

// Scope returns the tenant filter for the actor. Non super admins without a
// tenant are refused.
func (a Actor) Scope() (repository.Scope, error) {
	if a.IsSuperAdmin() {
		return repository.Scope{}, nil
	}
	if a.TenantID == nil {
		return repository.Scope{}, apperr.Forbidden("no tenant context")
	}
	tenantID := *a.TenantID
	return repository.Scope{TenantID: &tenantID}, nil
}
