package telegrambot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"dealer_crm_backend/internal/events"
	identityrepo "dealer_crm_backend/internal/identity/repository"
	"dealer_crm_backend/internal/leads/dispatch"
	"dealer_crm_backend/internal/leads/ports"
	"dealer_crm_backend/internal/leads/repository"
	"dealer_crm_backend/internal/telegram"
	"dealer_crm_backend/platform/apperr"
	"dealer_crm_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeUsers struct {
	mu      sync.Mutex
	users   map[uuid.UUID]identityrepo.User
	tenants map[uuid.UUID]identityrepo.Tenant
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[uuid.UUID]identityrepo.User{}, tenants: map[uuid.UUID]identityrepo.Tenant{}}
}

func (f *fakeUsers) add(id string, name string, tenantID *uuid.UUID) identityrepo.User {
	u := identityrepo.User{ID: uuid.MustParse(id), FullName: name, Role: identityrepo.RoleManager, TenantID: tenantID, IsActive: true}
	f.users[u.ID] = u
	return u
}

func (f *fakeUsers) GetUserByTelegramID(_ context.Context, telegramID int64) (identityrepo.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.TelegramID != nil && *u.TelegramID == telegramID {
			return u, nil
		}
	}
	return identityrepo.User{}, identityrepo.ErrNotFound
}

// FindUsersByIDSuffix mirrors the SQL filter, which also matches lower case codes.
func (f *fakeUsers) FindUsersByIDSuffix(_ context.Context, code string) ([]identityrepo.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []identityrepo.User
	for _, u := range f.users {
		if strings.HasSuffix(strings.ToLower(u.ID.String()), strings.ToLower(code)) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUsers) LinkTelegram(_ context.Context, userID uuid.UUID, telegramID int64, username *string) (identityrepo.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID != userID && u.TelegramID != nil && *u.TelegramID == telegramID {
			return identityrepo.User{}, identityrepo.ErrTelegramTaken
		}
	}
	u, ok := f.users[userID]
	if !ok {
		return identityrepo.User{}, identityrepo.ErrNotFound
	}
	u.TelegramID = &telegramID
	u.TelegramUsername = username
	f.users[userID] = u
	return u, nil
}

func (f *fakeUsers) GetTenant(_ context.Context, id uuid.UUID) (identityrepo.Tenant, error) {
	t, ok := f.tenants[id]
	if !ok {
		return identityrepo.Tenant{}, identityrepo.ErrNotFound
	}
	return t, nil
}

type fakeChat struct {
	sent     []telegram.SendMessageRequest
	cleared  [][2]int64
	answered []string
}

func (c *fakeChat) SendMessage(_ context.Context, req telegram.SendMessageRequest) (int64, error) {
	c.sent = append(c.sent, req)
	return int64(len(c.sent)), nil
}

func (c *fakeChat) ClearReplyMarkup(_ context.Context, chatID, messageID int64) error {
	c.cleared = append(c.cleared, [2]int64{chatID, messageID})
	return nil
}

func (c *fakeChat) AnswerCallbackQuery(_ context.Context, _ string, text string) error {
	c.answered = append(c.answered, text)
	return nil
}

func (c *fakeChat) lastText() string {
	if len(c.sent) == 0 {
		return ""
	}
	return c.sent[len(c.sent)-1].Text
}

type leadCall struct {
	action  string
	manager ports.Manager
	leadID  uuid.UUID
}

type fakeLeads struct {
	calls []leadCall
	err   error
}

func (l *fakeLeads) AcceptViaBot(_ context.Context, m ports.Manager, id uuid.UUID) (repository.Lead, error) {
	l.calls = append(l.calls, leadCall{action: "accept", manager: m, leadID: id})
	return repository.Lead{ID: id}, l.err
}

func (l *fakeLeads) RejectViaBot(_ context.Context, m ports.Manager, id uuid.UUID) (repository.Lead, error) {
	l.calls = append(l.calls, leadCall{action: "reject", manager: m, leadID: id})
	return repository.Lead{ID: id}, l.err
}

type botFixture struct {
	users *fakeUsers
	chat  *fakeChat
	leads *fakeLeads
	links *MemoryStore
	p     *Processor
}

func newBotFixture() *botFixture {
	f := &botFixture{
		users: newFakeUsers(),
		chat:  &fakeChat{},
		leads: &fakeLeads{},
		links: NewMemoryStore(0),
	}
	f.p = NewProcessor(f.users, f.leads, f.chat, f.links, events.NewInMemoryBus(logger.Discard()), logger.Discard())
	return f
}

func text(chatID int64, body string) telegram.Update {
	return telegram.Update{Message: &telegram.Message{
		MessageID: 1,
		From:      &telegram.User{ID: chatID, Username: "aziz_tg"},
		Chat:      telegram.Chat{ID: chatID, Type: "private"},
		Text:      body,
	}}
}

func callback(chatID int64, data string) telegram.Update {
	return telegram.Update{CallbackQuery: &telegram.CallbackQuery{
		ID:      "cb-1",
		From:    &telegram.User{ID: chatID},
		Message: &telegram.Message{MessageID: 55, Chat: telegram.Chat{ID: chatID}},
		Data:    data,
	}}
}

func (f *botFixture) handle(t *testing.T, u telegram.Update) {
	t.Helper()
	if err := f.p.Handle(context.Background(), u); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLinkingScenarioStartCodeStatus(t *testing.T) {
	f := newBotFixture()
	tenantID := uuid.New()
	f.users.tenants[tenantID] = identityrepo.Tenant{ID: tenantID, Name: "Samarkand Motors"}
	user := f.users.add("3f1c2d4e-0000-4000-8000-000000a1b2c3", "Dilshod", &tenantID)

	f.handle(t, text(700, "/start"))
	if state, _ := f.links.Get(context.Background(), 700); state != StateAwaitingID {
		t.Fatalf("expected awaiting_id, got %q", state)
	}
	if f.chat.lastText() != msgEnterCode {
		t.Fatalf("unexpected prompt: %q", f.chat.lastText())
	}

	f.handle(t, text(700, " a1b2c3d "))
	if !strings.HasPrefix(f.chat.lastText(), "❌") {
		t.Fatalf("expected not found reply for a 7 char code, got %q", f.chat.lastText())
	}

	f.handle(t, text(700, "  b2c3  "))
	if state, _ := f.links.Get(context.Background(), 700); state != StateAwaitingID {
		t.Fatal("expected state kept after failed attempts")
	}

	f.handle(t, text(700, "A1B2C3"))
	linked := f.users.users[user.ID]
	if linked.TelegramID == nil || *linked.TelegramID != 700 {
		t.Fatalf("expected chat 700 linked, got %+v", linked.TelegramID)
	}
	if linked.TelegramUsername == nil || *linked.TelegramUsername != "aziz_tg" {
		t.Fatalf("expected username stored, got %v", linked.TelegramUsername)
	}
	if state, _ := f.links.Get(context.Background(), 700); state != StateNone {
		t.Fatalf("expected state cleared, got %q", state)
	}

	f.handle(t, text(700, "/status"))
	reply := f.chat.lastText()
	if !strings.Contains(reply, "Dilshod") || !strings.Contains(reply, "Samarkand Motors") {
		t.Fatalf("unexpected status reply: %q", reply)
	}
}

func TestLinkingZeroMatchesKeepsState(t *testing.T) {
	f := newBotFixture()
	user := f.users.add("3f1c2d4e-0000-4000-8000-0000000fffff", "Other", nil)

	f.handle(t, text(701, "/start"))
	f.handle(t, text(701, "ABCDEF"))

	if f.chat.lastText() != msgCodeNotFound {
		t.Fatalf("unexpected reply: %q", f.chat.lastText())
	}
	if f.users.users[user.ID].TelegramID != nil {
		t.Fatal("expected no user mutated")
	}
	if state, _ := f.links.Get(context.Background(), 701); state != StateAwaitingID {
		t.Fatal("expected state kept")
	}
}

func TestLinkingAmbiguousCodeLinksNobody(t *testing.T) {
	f := newBotFixture()
	a := f.users.add("11111111-0000-4000-8000-000000abcdef", "A", nil)
	b := f.users.add("22222222-0000-4000-8000-000000abcdef", "B", nil)

	f.handle(t, text(702, "/start"))
	f.handle(t, text(702, "abcdef"))

	if f.chat.lastText() != msgAmbiguousCode {
		t.Fatalf("unexpected reply: %q", f.chat.lastText())
	}
	if f.users.users[a.ID].TelegramID != nil || f.users.users[b.ID].TelegramID != nil {
		t.Fatal("expected no account linked")
	}
}

func TestLinkingChatBoundToAnotherUserIsReported(t *testing.T) {
	f := newBotFixture()
	first := f.users.add("11111111-0000-4000-8000-000000aaaaaa", "First", nil)
	f.users.add("22222222-0000-4000-8000-000000bbbbbb", "Second", nil)
	chat := int64(703)
	u := f.users.users[first.ID]
	u.TelegramID = &chat
	f.users.users[first.ID] = u

	// a linked chat never reaches the code step through /start
	if err := f.links.Set(context.Background(), chat, StateAwaitingID); err != nil {
		t.Fatal(err)
	}
	f.handle(t, text(chat, "BBBBBB"))

	if f.chat.lastText() != msgTelegramTaken {
		t.Fatalf("unexpected reply: %q", f.chat.lastText())
	}
}

func TestStartWhenAlreadyLinked(t *testing.T) {
	f := newBotFixture()
	user := f.users.add("11111111-0000-4000-8000-000000aaaaaa", "Linked <One>", nil)
	chat := int64(704)
	u := f.users.users[user.ID]
	u.TelegramID = &chat
	f.users.users[user.ID] = u

	f.handle(t, text(chat, "/start"))

	if !strings.Contains(f.chat.lastText(), "Linked &lt;One&gt;") {
		t.Fatalf("expected escaped confirmation, got %q", f.chat.lastText())
	}
	if state, _ := f.links.Get(context.Background(), chat); state != StateNone {
		t.Fatal("expected no pending state")
	}
}

func TestStatusNotLinked(t *testing.T) {
	f := newBotFixture()
	f.handle(t, text(705, "/status@dealer_bot"))
	if f.chat.lastText() != msgNotLinked {
		t.Fatalf("unexpected reply: %q", f.chat.lastText())
	}
}

func TestFreeTextWithoutPendingStateIsIgnored(t *testing.T) {
	f := newBotFixture()
	f.handle(t, text(706, "hello"))
	if len(f.chat.sent) != 0 {
		t.Fatal("expected no reply")
	}
}

func linkedManager(f *botFixture, chat int64) identityrepo.User {
	tenantID := uuid.New()
	user := f.users.add(uuid.NewString(), "Manager", &tenantID)
	u := f.users.users[user.ID]
	u.TelegramID = &chat
	f.users.users[user.ID] = u
	return u
}

func TestAcceptCallbackRemovesMenuAndAcks(t *testing.T) {
	f := newBotFixture()
	manager := linkedManager(f, 800)
	leadID := uuid.New()

	f.handle(t, callback(800, dispatch.AcceptData(leadID)))

	if len(f.leads.calls) != 1 || f.leads.calls[0].action != "accept" || f.leads.calls[0].leadID != leadID {
		t.Fatalf("unexpected calls: %+v", f.leads.calls)
	}
	if f.leads.calls[0].manager.ID != manager.ID {
		t.Fatal("expected the linked user to act")
	}
	if len(f.chat.cleared) != 1 || f.chat.cleared[0] != [2]int64{800, 55} {
		t.Fatalf("expected menu removed once, got %v", f.chat.cleared)
	}
	if len(f.chat.answered) != 1 || f.chat.answered[0] != toastAccepted {
		t.Fatalf("unexpected ack: %v", f.chat.answered)
	}
}

func TestRejectCallback(t *testing.T) {
	f := newBotFixture()
	linkedManager(f, 801)
	leadID := uuid.New()

	f.handle(t, callback(801, dispatch.RejectData(leadID)))

	if len(f.leads.calls) != 1 || f.leads.calls[0].action != "reject" {
		t.Fatalf("unexpected calls: %+v", f.leads.calls)
	}
	if f.chat.answered[0] != toastRejected || len(f.chat.cleared) != 1 {
		t.Fatalf("unexpected ack %v / cleared %v", f.chat.answered, f.chat.cleared)
	}
}

func TestCallbackFromUnlinkedChatIsUnauthorized(t *testing.T) {
	f := newBotFixture()

	f.handle(t, callback(900, dispatch.AcceptData(uuid.New())))

	if len(f.leads.calls) != 0 {
		t.Fatal("expected no lead mutation")
	}
	if len(f.chat.cleared) != 0 {
		t.Fatal("expected menu untouched")
	}
	if len(f.chat.answered) != 1 || f.chat.answered[0] != toastUnauthorized {
		t.Fatalf("unexpected ack: %v", f.chat.answered)
	}
}

func TestCallbackConflictKeepsMenu(t *testing.T) {
	f := newBotFixture()
	linkedManager(f, 802)
	f.leads.err = apperr.Conflict("lead is handled by another manager")

	f.handle(t, callback(802, dispatch.AcceptData(uuid.New())))

	if len(f.chat.cleared) != 0 {
		t.Fatal("expected menu kept")
	}
	if f.chat.answered[0] != toastTaken {
		t.Fatalf("unexpected ack: %v", f.chat.answered)
	}
}

func TestCallbackStoreFailureIsReturned(t *testing.T) {
	f := newBotFixture()
	linkedManager(f, 803)
	f.leads.err = apperr.Store("SetStatusByManager", errors.New("connection reset"))

	err := f.p.Handle(context.Background(), callback(803, dispatch.AcceptData(uuid.New())))
	if err == nil {
		t.Fatal("expected error")
	}
	if f.chat.answered[0] != toastFailed {
		t.Fatalf("unexpected ack: %v", f.chat.answered)
	}
}

func TestMalformedCallbackIsAcknowledged(t *testing.T) {
	f := newBotFixture()
	linkedManager(f, 804)

	f.handle(t, callback(804, "accept_not-a-uuid"))

	if len(f.leads.calls) != 0 || len(f.chat.answered) != 1 {
		t.Fatalf("unexpected calls %v / answers %v", f.leads.calls, f.chat.answered)
	}
}
