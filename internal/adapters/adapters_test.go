package adapters

import (
	"context"
	"errors"
	"testing"

	identityrepo "dealer_crm_backend/internal/identity/repository"
	"dealer_crm_backend/internal/leads/ports"
	"dealer_crm_backend/internal/telegram"

	"github.com/google/uuid"
)

type fakeIdentity struct {
	users map[uuid.UUID]identityrepo.User
}

func (f fakeIdentity) ListActiveTenantsByCity(context.Context, string) ([]identityrepo.Tenant, error) {
	return []identityrepo.Tenant{{ID: uuid.New(), Name: "Dealer", City: "Ташкент"}}, nil
}

func (f fakeIdentity) GetTenant(context.Context, uuid.UUID) (identityrepo.Tenant, error) {
	return identityrepo.Tenant{}, identityrepo.ErrNotFound
}

func (f fakeIdentity) ListActiveManagers(context.Context, uuid.UUID, bool) ([]identityrepo.User, error) {
	out := make([]identityrepo.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f fakeIdentity) GetUserByID(_ context.Context, id uuid.UUID) (identityrepo.User, error) {
	u, ok := f.users[id]
	if !ok {
		return identityrepo.User{}, identityrepo.ErrNotFound
	}
	return u, nil
}

func TestDirectoryMapsUsersAndNotFound(t *testing.T) {
	tenantID := uuid.New()
	chat := int64(77)
	user := identityrepo.User{ID: uuid.New(), FullName: "Ivan", Role: identityrepo.RoleManager, TenantID: &tenantID, TelegramID: &chat, IsActive: true}
	dir := NewDirectory(fakeIdentity{users: map[uuid.UUID]identityrepo.User{user.ID: user}})

	m, err := dir.GetStaff(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.Notifiable() || m.FullName != "Ivan" || *m.TenantID != tenantID {
		t.Fatalf("unexpected manager: %+v", m)
	}

	if _, err := dir.GetStaff(context.Background(), uuid.New()); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ports.ErrNotFound, got %v", err)
	}
	if _, err := dir.GetTenant(context.Background(), uuid.New()); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ports.ErrNotFound, got %v", err)
	}

	tenants, err := dir.ListActiveTenantsByCity(context.Background(), "Ташкент")
	if err != nil || len(tenants) != 1 || tenants[0].Name != "Dealer" {
		t.Fatalf("unexpected tenants: %+v, %v", tenants, err)
	}
}

type recordingSender struct {
	got telegram.SendMessageRequest
}

func (r *recordingSender) SendMessage(_ context.Context, req telegram.SendMessageRequest) (int64, error) {
	r.got = req
	return 1, nil
}

func TestTelegramMessengerBuildsKeyboard(t *testing.T) {
	sender := &recordingSender{}
	m := NewTelegramMessenger(sender)

	err := m.Send(context.Background(), ports.OutboundMessage{
		ChatID: 42,
		HTML:   "<b>hi</b>",
		Buttons: [][]ports.Button{
			{{Text: "ok", CallbackData: "accept_x"}},
			{{Text: "call", URL: "https://t.me/+1"}},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender.got.ChatID != 42 || sender.got.ParseMode != telegram.ParseModeHTML {
		t.Fatalf("unexpected request: %+v", sender.got)
	}
	rows := sender.got.ReplyMarkup.InlineKeyboard
	if len(rows) != 2 || rows[0][0].CallbackData != "accept_x" || rows[1][0].URL != "https://t.me/+1" {
		t.Fatalf("unexpected keyboard: %+v", rows)
	}
}

func TestTelegramMessengerWithoutButtonsOmitsMarkup(t *testing.T) {
	sender := &recordingSender{}
	if err := NewTelegramMessenger(sender).Send(context.Background(), ports.OutboundMessage{ChatID: 1, HTML: "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender.got.ReplyMarkup != nil {
		t.Fatalf("expected no markup")
	}
}
