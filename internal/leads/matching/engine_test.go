package matching

import (
	"context"
	"errors"
	"testing"

	"dealer_crm_backend/internal/leads/ports"

	"github.com/google/uuid"
)

type fakeTenants struct {
	byCity map[string][]ports.Tenant
	err    error
}

func (f *fakeTenants) ListActiveTenantsByCity(_ context.Context, city string) ([]ports.Tenant, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byCity[city], nil
}

func (f *fakeTenants) GetTenant(_ context.Context, id uuid.UUID) (ports.Tenant, error) {
	for _, list := range f.byCity {
		for _, t := range list {
			if t.ID == id {
				return t, nil
			}
		}
	}
	return ports.Tenant{}, ports.ErrNotFound
}

type fakeStaff struct {
	managers map[uuid.UUID][]ports.Manager
}

func (f *fakeStaff) ListActiveManagers(_ context.Context, tenantID uuid.UUID, withTelegram bool) ([]ports.Manager, error) {
	out := make([]ports.Manager, 0)
	for _, m := range f.managers[tenantID] {
		if !m.IsActive {
			continue
		}
		if withTelegram && m.TelegramID == nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeStaff) GetStaff(_ context.Context, id uuid.UUID) (ports.Manager, error) {
	for _, list := range f.managers {
		for _, m := range list {
			if m.ID == id {
				return m, nil
			}
		}
	}
	return ports.Manager{}, ports.ErrNotFound
}

func strPtr(s string) *string { return &s }
func chatPtr(v int64) *int64 { return &v }

func TestResolveTenant(t *testing.T) {
	north := ports.Tenant{ID: uuid.New(), City: "Tashkent", Region: strPtr("Yunusabad")}
	south := ports.Tenant{ID: uuid.New(), City: "Tashkent", Region: strPtr("Chilanzar")}
	solo := ports.Tenant{ID: uuid.New(), City: "Samarkand"}
	engine := New(&fakeTenants{byCity: map[string][]ports.Tenant{
		"Tashkent":  {north, south},
		"Samarkand": {solo},
	}}, &fakeStaff{})

	tests := []struct {
		name   string
		city   string
		region *string
		want   *uuid.UUID
	}{
		{name: "single tenant in city", city: "Samarkand", want: &solo.ID},
		{name: "no tenant in city", city: "Bukhara", want: nil},
		{name: "region exact match wins", city: "Tashkent", region: strPtr("Chilanzar"), want: &south.ID},
		{name: "unknown region falls back to first", city: "Tashkent", region: strPtr("Sergeli"), want: &north.ID},
		{name: "no region falls back to first", city: "Tashkent", want: &north.ID},
		{name: "blank city matches nothing", city: "  ", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.ResolveTenant(context.Background(), tt.city, tt.region)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			switch {
			case tt.want == nil && got != nil:
				t.Fatalf("expected no tenant, got %s", got.ID)
			case tt.want != nil && (got == nil || got.ID != *tt.want):
				t.Fatalf("expected tenant %s, got %+v", *tt.want, got)
			}
		})
	}
}

func TestResolveTenantPropagatesStoreError(t *testing.T) {
	engine := New(&fakeTenants{err: errors.New("connection refused")}, &fakeStaff{})
	if _, err := engine.ResolveTenant(context.Background(), "Tashkent", nil); err == nil {
		t.Fatal("expected store error")
	}
}

func TestPickManagerForCreationPrefersNotifiable(t *testing.T) {
	tenant := uuid.New()
	withChat := ports.Manager{ID: uuid.New(), TelegramID: chatPtr(100), IsActive: true}
	withoutChat := ports.Manager{ID: uuid.New(), IsActive: true}
	staff := &fakeStaff{managers: map[uuid.UUID][]ports.Manager{tenant: {withoutChat, withChat}}}

	for i := 0; i < 20; i++ {
		got, err := New(&fakeTenants{}, staff).PickManagerForCreation(context.Background(), tenant)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got == nil || got.ID != withChat.ID {
			t.Fatalf("expected the only notifiable manager, got %+v", got)
		}
	}
}

func TestPickManagerForCreationFallsBackToAnyActive(t *testing.T) {
	tenant := uuid.New()
	a := ports.Manager{ID: uuid.New(), IsActive: true}
	b := ports.Manager{ID: uuid.New(), IsActive: true}
	inactive := ports.Manager{ID: uuid.New(), TelegramID: chatPtr(5)}
	staff := &fakeStaff{managers: map[uuid.UUID][]ports.Manager{tenant: {a, b, inactive}}}

	got, err := New(&fakeTenants{}, staff).WithPicker(func(n int) int { return n - 1 }).PickManagerForCreation(context.Background(), tenant)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.ID != b.ID {
		t.Fatalf("expected picker to choose the last active manager, got %+v", got)
	}
}

func TestPickManagerForCreationNoManagers(t *testing.T) {
	got, err := New(&fakeTenants{}, &fakeStaff{}).PickManagerForCreation(context.Background(), uuid.New())
	if err != nil || got != nil {
		t.Fatalf("expected no manager and no error, got %+v, %v", got, err)
	}
}

func TestPickManagerForNotifyTakesOldestWithChat(t *testing.T) {
	tenant := uuid.New()
	oldestNoChat := ports.Manager{ID: uuid.New(), IsActive: true}
	older := ports.Manager{ID: uuid.New(), TelegramID: chatPtr(1), IsActive: true}
	newer := ports.Manager{ID: uuid.New(), TelegramID: chatPtr(2), IsActive: true}
	staff := &fakeStaff{managers: map[uuid.UUID][]ports.Manager{tenant: {oldestNoChat, older, newer}}}

	got, err := New(&fakeTenants{}, staff).PickManagerForNotify(context.Background(), tenant)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.ID != older.ID {
		t.Fatalf("expected oldest notifiable manager, got %+v", got)
	}
}

func TestMatchWithoutTenantSkipsManagerLookup(t *testing.T) {
	res, err := New(&fakeTenants{}, &fakeStaff{}).Match(context.Background(), "Nukus", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TenantID() != nil || res.ManagerID() != nil {
		t.Fatalf("expected empty result, got %+v", res)
	}
}
