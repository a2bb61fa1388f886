package service

import (
	"context"
	"testing"

	"dealer_crm_backend/internal/identity/repository"
	"dealer_crm_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeStore struct {
	users   map[uuid.UUID]repository.User
	tenants map[uuid.UUID]repository.Tenant
}

func (f *fakeStore) GetUserByID(_ context.Context, id uuid.UUID) (repository.User, error) {
	u, ok := f.users[id]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) GetTenant(_ context.Context, id uuid.UUID) (repository.Tenant, error) {
	t, ok := f.tenants[id]
	if !ok {
		return repository.Tenant{}, repository.ErrNotFound
	}
	return t, nil
}

func (f *fakeStore) ListActiveManagers(_ context.Context, tenantID uuid.UUID, _ bool) ([]repository.User, error) {
	var out []repository.User
	for _, u := range f.users {
		if u.TenantID != nil && *u.TenantID == tenantID && u.Role == repository.RoleManager && u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeStore) UnlinkTelegram(_ context.Context, userID uuid.UUID) (repository.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	u.TelegramID = nil
	u.TelegramUsername = nil
	f.users[userID] = u
	return u, nil
}

func TestLinkCodeIsUpperCaseSuffix(t *testing.T) {
	id := uuid.MustParse("3f1c2d4e-0000-4000-8000-000000a1b2c3")
	if got := LinkCode(id); got != "A1B2C3" {
		t.Fatalf("expected A1B2C3, got %q", got)
	}
}

func TestTelegramStatusAndUnlink(t *testing.T) {
	chat := int64(42)
	name := "aziz_tg"
	user := repository.User{ID: uuid.New(), TelegramID: &chat, TelegramUsername: &name}
	store := &fakeStore{users: map[uuid.UUID]repository.User{user.ID: user}}
	svc := New(store)

	status, err := svc.TelegramStatus(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.Linked || status.Code != LinkCode(user.ID) || *status.TelegramUsername != name {
		t.Fatalf("unexpected status: %+v", status)
	}

	if _, err := svc.UnlinkTelegram(context.Background(), user.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	status, _ = svc.TelegramStatus(context.Background(), user.ID)
	if status.Linked {
		t.Fatal("expected unlinked")
	}

	if _, err := svc.TelegramStatus(context.Background(), uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListManagersUnknownTenant(t *testing.T) {
	svc := New(&fakeStore{users: map[uuid.UUID]repository.User{}, tenants: map[uuid.UUID]repository.Tenant{}})
	if _, err := svc.ListManagers(context.Background(), uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListManagersMapsLinkState(t *testing.T) {
	tenantID := uuid.New()
	chat := int64(7)
	linked := repository.User{ID: uuid.New(), FullName: "Linked", Role: repository.RoleManager, TenantID: &tenantID, TelegramID: &chat, IsActive: true}
	store := &fakeStore{
		users:   map[uuid.UUID]repository.User{linked.ID: linked},
		tenants: map[uuid.UUID]repository.Tenant{tenantID: {ID: tenantID}},
	}

	resp, err := New(store).ListManagers(context.Background(), tenantID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Items) != 1 || !resp.Items[0].TelegramLinked {
		t.Fatalf("unexpected managers: %+v", resp.Items)
	}
}
