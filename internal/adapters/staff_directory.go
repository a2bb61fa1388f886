package adapters

import (
	"context"
	"errors"

	identityrepo "dealer_crm_backend/internal/identity/repository"
	"dealer_crm_backend/internal/leads/ports"

	"github.com/google/uuid"
)

// IdentityReader is the narrow slice of the identity repository the leads
// domain reads tenants and staff through.
type IdentityReader interface {
	ListActiveTenantsByCity(ctx context.Context, city string) ([]identityrepo.Tenant, error)
	GetTenant(ctx context.Context, id uuid.UUID) (identityrepo.Tenant, error)
	ListActiveManagers(ctx context.Context, tenantID uuid.UUID, withTelegram bool) ([]identityrepo.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (identityrepo.User, error)
}

// Directory adapts the identity repository to ports.TenantDirectory and
// ports.StaffDirectory.
type Directory struct {
	repo IdentityReader
}

func NewDirectory(repo IdentityReader) *Directory {
	return &Directory{repo: repo}
}

var (
	_ ports.TenantDirectory = (*Directory)(nil)
	_ ports.StaffDirectory  = (*Directory)(nil)
)

func (d *Directory) ListActiveTenantsByCity(ctx context.Context, city string) ([]ports.Tenant, error) {
	rows, err := d.repo.ListActiveTenantsByCity(ctx, city)
	if err != nil {
		return nil, err
	}
	out := make([]ports.Tenant, 0, len(rows))
	for _, t := range rows {
		out = append(out, toPortTenant(t))
	}
	return out, nil
}

func (d *Directory) GetTenant(ctx context.Context, id uuid.UUID) (ports.Tenant, error) {
	t, err := d.repo.GetTenant(ctx, id)
	if err != nil {
		return ports.Tenant{}, mapIdentityErr(err)
	}
	return toPortTenant(t), nil
}

func (d *Directory) ListActiveManagers(ctx context.Context, tenantID uuid.UUID, withTelegram bool) ([]ports.Manager, error) {
	rows, err := d.repo.ListActiveManagers(ctx, tenantID, withTelegram)
	if err != nil {
		return nil, err
	}
	out := make([]ports.Manager, 0, len(rows))
	for _, u := range rows {
		out = append(out, ToManager(u))
	}
	return out, nil
}

func (d *Directory) GetStaff(ctx context.Context, id uuid.UUID) (ports.Manager, error) {
	u, err := d.repo.GetUserByID(ctx, id)
	if err != nil {
		return ports.Manager{}, mapIdentityErr(err)
	}
	return ToManager(u), nil
}

// ToManager maps a staff user to the leads view of it.
func ToManager(u identityrepo.User) ports.Manager {
	return ports.Manager{
		ID:         u.ID,
		FullName:   u.FullName,
		Role:       u.Role,
		TenantID:   u.TenantID,
		TelegramID: u.TelegramID,
		IsActive:   u.IsActive,
	}
}

func toPortTenant(t identityrepo.Tenant) ports.Tenant {
	return ports.Tenant{ID: t.ID, Name: t.Name, City: t.City, Region: t.Region}
}

func mapIdentityErr(err error) error {
	if errors.Is(err, identityrepo.ErrNotFound) {
		return ports.ErrNotFound
	}
	return err
}
