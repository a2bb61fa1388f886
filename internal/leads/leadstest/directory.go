package leadstest

import (
	"context"
	"sort"
	"sync"

	"dealer_crm_backend/internal/leads/ports"

	"github.com/google/uuid"
)

// Directory is an in-memory tenant and staff directory. Managers are returned
// in the order they were added, which stands in for creation time.
type Directory struct {
	mu      sync.Mutex
	tenants []ports.Tenant
	staff   []ports.Manager
}

func NewDirectory() *Directory {
	return &Directory{}
}

var (
	_ ports.TenantDirectory = (*Directory)(nil)
	_ ports.StaffDirectory  = (*Directory)(nil)
)

// AddTenant registers an active tenant.
func (d *Directory) AddTenant(name, city string, region *string) ports.Tenant {
	d.mu.Lock()
	defer d.mu.Unlock()
	t := ports.Tenant{ID: uuid.New(), Name: name, City: city, Region: region}
	d.tenants = append(d.tenants, t)
	return t
}

// AddManager registers an active manager of tenantID. chatID 0 means unlinked.
func (d *Directory) AddManager(tenantID uuid.UUID, name string, chatID int64) ports.Manager {
	d.mu.Lock()
	defer d.mu.Unlock()
	m := ports.Manager{ID: uuid.New(), FullName: name, Role: "manager", TenantID: &tenantID, IsActive: true}
	if chatID != 0 {
		id := chatID
		m.TelegramID = &id
	}
	d.staff = append(d.staff, m)
	return m
}

// Deactivate marks a staff member inactive.
func (d *Directory) Deactivate(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.staff {
		if d.staff[i].ID == id {
			d.staff[i].IsActive = false
		}
	}
}

func (d *Directory) ListActiveTenantsByCity(_ context.Context, city string) ([]ports.Tenant, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]ports.Tenant, 0)
	for _, t := range d.tenants {
		if t.City == city {
			out = append(out, t)
		}
	}
	return out, nil
}

func (d *Directory) GetTenant(_ context.Context, id uuid.UUID) (ports.Tenant, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range d.tenants {
		if t.ID == id {
			return t, nil
		}
	}
	return ports.Tenant{}, ports.ErrNotFound
}

func (d *Directory) ListActiveManagers(_ context.Context, tenantID uuid.UUID, withTelegram bool) ([]ports.Manager, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]ports.Manager, 0)
	for _, m := range d.staff {
		if !m.IsActive || m.Role != "manager" || m.TenantID == nil || *m.TenantID != tenantID {
			continue
		}
		if withTelegram && !m.Notifiable() {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (d *Directory) GetStaff(_ context.Context, id uuid.UUID) (ports.Manager, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, m := range d.staff {
		if m.ID == id {
			return m, nil
		}
	}
	return ports.Manager{}, ports.ErrNotFound
}

// Messenger records outbound messages and fails when Err is set.
type Messenger struct {
	mu   sync.Mutex
	Err  error
	Sent []ports.OutboundMessage
}

func (m *Messenger) Send(_ context.Context, msg ports.OutboundMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, msg)
	return nil
}

// Count returns how many messages were delivered.
func (m *Messenger) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// RetryRecorder records scheduled notify retries.
type RetryRecorder struct {
	mu    sync.Mutex
	Leads []uuid.UUID
}

func (r *RetryRecorder) ScheduleNotifyRetry(_ context.Context, leadID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Leads = append(r.Leads, leadID)
	return nil
}

// Scheduled returns the recorded lead ids sorted for stable comparison.
func (r *RetryRecorder) Scheduled() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]uuid.UUID(nil), r.Leads...)
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
