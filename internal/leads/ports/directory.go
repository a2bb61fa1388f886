// Package ports defines consumer-driven interfaces for external dependencies.
// These interfaces are defined in the Leads domain based on what it needs,
// rather than what other domains choose to offer.
package ports

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned by directory lookups that match nothing.
var ErrNotFound = errors.New("not found")

// Tenant is the dealer data the matching engine needs.
type Tenant struct {
	ID     uuid.UUID
	Name   string
	City   string
	Region *string
}

// Manager is a staff member leads can be assigned to.
type Manager struct {
	ID         uuid.UUID
	FullName   string
	Role       string
	TenantID   *uuid.UUID
	TelegramID *int64
	IsActive   bool
}

// Notifiable reports whether the manager has a linked chat.
func (m Manager) Notifiable() bool {
	return m.TelegramID != nil && *m.TelegramID != 0
}

// TenantDirectory lists dealers for geographic matching.
type TenantDirectory interface {
	// ListActiveTenantsByCity returns active tenants whose city equals city.
	ListActiveTenantsByCity(ctx context.Context, city string) ([]Tenant, error)
	GetTenant(ctx context.Context, id uuid.UUID) (Tenant, error)
}

// StaffDirectory looks up managers.
type StaffDirectory interface {
	// ListActiveManagers returns active managers of the tenant ordered by creation time.
	ListActiveManagers(ctx context.Context, tenantID uuid.UUID, withTelegram bool) ([]Manager, error)
	// GetStaff returns ErrNotFound for unknown ids.
	GetStaff(ctx context.Context, id uuid.UUID) (Manager, error)
}
