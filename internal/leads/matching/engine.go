// Package matching routes a lead to a dealer and a manager by geography and
// availability. It never fails lead creation: no candidate simply means none.
package matching

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"dealer_crm_backend/internal/leads/ports"

	"github.com/google/uuid"
)

// Picker returns an index in [0, n). Tests replace it to make picks deterministic.
type Picker func(n int) int

// Engine resolves tenants and managers for leads.
type Engine struct {
	tenants ports.TenantDirectory
	staff   ports.StaffDirectory
	pick    Picker
}

// New creates a matching engine backed by the given directories.
func New(tenants ports.TenantDirectory, staff ports.StaffDirectory) *Engine {
	return &Engine{tenants: tenants, staff: staff, pick: rand.IntN}
}

// WithPicker overrides the random source used at creation time.
func (e *Engine) WithPicker(p Picker) *Engine {
	e.pick = p
	return e
}

// Result is the outcome of matching a new lead.
type Result struct {
	Tenant  *ports.Tenant
	Manager *ports.Manager
}

// TenantID returns the matched tenant id or nil.
func (r Result) TenantID() *uuid.UUID {
	if r.Tenant == nil {
		return nil
	}
	id := r.Tenant.ID
	return &id
}

// ManagerID returns the matched manager id or nil.
func (r Result) ManagerID() *uuid.UUID {
	if r.Manager == nil {
		return nil
	}
	id := r.Manager.ID
	return &id
}

// Match runs tenant resolution and, when a tenant is found, creation-time
// manager resolution.
func (e *Engine) Match(ctx context.Context, city string, region *string) (Result, error) {
	tenant, err := e.ResolveTenant(ctx, city, region)
	if err != nil || tenant == nil {
		return Result{}, err
	}

	manager, err := e.PickManagerForCreation(ctx, tenant.ID)
	if err != nil {
		return Result{Tenant: tenant}, err
	}
	return Result{Tenant: tenant, Manager: manager}, nil
}

// ResolveTenant returns the active tenant for the city. A tenant whose region
// equals the given region wins; otherwise the first tenant of the city is used.
// Nil means no active tenant serves the city.
func (e *Engine) ResolveTenant(ctx context.Context, city string, region *string) (*ports.Tenant, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, nil
	}

	candidates, err := e.tenants.ListActiveTenantsByCity(ctx, city)
	if err != nil {
		return nil, fmt.Errorf("list tenants for %q: %w", city, err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	if want := trimmed(region); want != "" {
		for i := range candidates {
			if trimmed(candidates[i].Region) == want {
				return &candidates[i], nil
			}
		}
	}

	return &candidates[0], nil
}

// PickManagerForCreation picks uniformly at random among the tenant's active
// managers that can be notified. When none has a linked chat, the pick falls
// back to all active managers so the lead still gets an owner.
func (e *Engine) PickManagerForCreation(ctx context.Context, tenantID uuid.UUID) (*ports.Manager, error) {
	managers, err := e.staff.ListActiveManagers(ctx, tenantID, false)
	if err != nil {
		return nil, fmt.Errorf("list managers: %w", err)
	}
	if len(managers) == 0 {
		return nil, nil
	}

	pool := make([]ports.Manager, 0, len(managers))
	for _, m := range managers {
		if m.Notifiable() {
			pool = append(pool, m)
		}
	}
	if len(pool) == 0 {
		pool = managers
	}

	chosen := pool[e.pick(len(pool))]
	return &chosen, nil
}

// PickManagerForNotify returns the oldest active manager with a linked chat.
func (e *Engine) PickManagerForNotify(ctx context.Context, tenantID uuid.UUID) (*ports.Manager, error) {
	managers, err := e.staff.ListActiveManagers(ctx, tenantID, true)
	if err != nil {
		return nil, fmt.Errorf("list notifiable managers: %w", err)
	}
	for i := range managers {
		if managers[i].Notifiable() {
			return &managers[i], nil
		}
	}
	return nil, nil
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
