// Package telegrambot turns inbound bot updates into account linking and lead
// transitions. Only a chat linked to an active manager may act on a lead.
package telegrambot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dealer_crm_backend/internal/adapters"
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

// UserStore is the identity access the bot needs.
type UserStore interface {
	GetUserByTelegramID(ctx context.Context, telegramID int64) (identityrepo.User, error)
	FindUsersByIDSuffix(ctx context.Context, code string) ([]identityrepo.User, error)
	LinkTelegram(ctx context.Context, userID uuid.UUID, telegramID int64, username *string) (identityrepo.User, error)
	GetTenant(ctx context.Context, id uuid.UUID) (identityrepo.Tenant, error)
}

// LeadActions are the lifecycle transitions a manager can trigger from a card.
type LeadActions interface {
	AcceptViaBot(ctx context.Context, manager ports.Manager, leadID uuid.UUID) (repository.Lead, error)
	RejectViaBot(ctx context.Context, manager ports.Manager, leadID uuid.UUID) (repository.Lead, error)
}

// Chat is the outbound Bot API surface.
type Chat interface {
	SendMessage(ctx context.Context, req telegram.SendMessageRequest) (int64, error)
	ClearReplyMarkup(ctx context.Context, chatID, messageID int64) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string) error
}

type Processor struct {
	users    UserStore
	leads    LeadActions
	chat     Chat
	links    LinkStore
	eventBus events.Bus
	log      *logger.Logger
}

func NewProcessor(users UserStore, leads LeadActions, chat Chat, links LinkStore, eventBus events.Bus, log *logger.Logger) *Processor {
	return &Processor{users: users, leads: leads, chat: chat, links: links, eventBus: eventBus, log: log}
}

// Handle processes one update. Only store failures are returned.
func (p *Processor) Handle(ctx context.Context, update telegram.Update) error {
	switch {
	case update.CallbackQuery != nil:
		return p.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		return p.handleMessage(ctx, update.Message)
	default:
		return nil
	}
}

func (p *Processor) handleMessage(ctx context.Context, msg *telegram.Message) error {
	chatID := msg.Chat.ID
	ctx = context.WithValue(ctx, logger.ChatIDKey, chatID)

	switch command(msg.Text) {
	case cmdStart:
		return p.handleStart(ctx, chatID)
	case cmdStatus:
		return p.handleStatus(ctx, chatID)
	case "":
	default:
		return nil
	}

	state, err := p.links.Get(ctx, chatID)
	if err != nil {
		return fmt.Errorf("read link state: %w", err)
	}
	if state != StateAwaitingID {
		return nil
	}
	return p.handleCode(ctx, chatID, username(msg.From), msg.Text)
}

func (p *Processor) handleStart(ctx context.Context, chatID int64) error {
	user, err := p.users.GetUserByTelegramID(ctx, chatID)
	switch {
	case err == nil:
		p.reply(ctx, chatID, fmt.Sprintf(msgAlreadyLinked, escape(user.FullName)))
		p.log.TelegramEvent("start", chatID, "already_linked")
		return nil
	case !errors.Is(err, identityrepo.ErrNotFound):
		p.reply(ctx, chatID, msgInternalError)
		return fmt.Errorf("look up linked user: %w", err)
	}

	if err := p.links.Set(ctx, chatID, StateAwaitingID); err != nil {
		p.reply(ctx, chatID, msgInternalError)
		return fmt.Errorf("store link state: %w", err)
	}
	p.reply(ctx, chatID, msgEnterCode)
	p.log.TelegramEvent("start", chatID, "awaiting_id")
	return nil
}

func (p *Processor) handleStatus(ctx context.Context, chatID int64) error {
	user, err := p.users.GetUserByTelegramID(ctx, chatID)
	if errors.Is(err, identityrepo.ErrNotFound) {
		p.reply(ctx, chatID, msgNotLinked)
		return nil
	}
	if err != nil {
		p.reply(ctx, chatID, msgInternalError)
		return fmt.Errorf("look up linked user: %w", err)
	}

	text := fmt.Sprintf(msgStatusNoTenant, escape(user.FullName))
	if user.TenantID != nil {
		tenant, err := p.users.GetTenant(ctx, *user.TenantID)
		if err != nil && !errors.Is(err, identityrepo.ErrNotFound) {
			p.reply(ctx, chatID, msgInternalError)
			return fmt.Errorf("look up tenant: %w", err)
		}
		if err == nil {
			text = fmt.Sprintf(msgStatusLinked, escape(user.FullName), escape(tenant.Name))
		}
	}
	p.reply(ctx, chatID, text)
	return nil
}

func (p *Processor) handleCode(ctx context.Context, chatID int64, tgUsername *string, text string) error {
	code := normalizeCode(text)
	if len(code) != codeLength {
		p.reply(ctx, chatID, msgCodeNotFound)
		p.log.TelegramEvent("link", chatID, "bad_code")
		return nil
	}

	candidates, err := p.users.FindUsersByIDSuffix(ctx, code)
	if err != nil {
		p.reply(ctx, chatID, msgInternalError)
		return fmt.Errorf("find users by code: %w", err)
	}
	matches := exactSuffixMatches(candidates, code)

	switch len(matches) {
	case 0:
		p.reply(ctx, chatID, msgCodeNotFound)
		p.log.TelegramEvent("link", chatID, "not_found")
		return nil
	case 1:
	default:
		p.reply(ctx, chatID, msgAmbiguousCode)
		p.log.TelegramEvent("link", chatID, "ambiguous")
		return nil
	}

	user, err := p.users.LinkTelegram(ctx, matches[0].ID, chatID, tgUsername)
	if errors.Is(err, identityrepo.ErrTelegramTaken) {
		_ = p.links.Clear(ctx, chatID)
		p.reply(ctx, chatID, msgTelegramTaken)
		p.log.TelegramEvent("link", chatID, "taken")
		return nil
	}
	if err != nil {
		p.reply(ctx, chatID, msgInternalError)
		return fmt.Errorf("link telegram: %w", err)
	}

	if err := p.links.Clear(ctx, chatID); err != nil {
		p.log.WithContext(ctx).Warn("failed to clear link state", "error", err)
	}

	p.eventBus.Publish(ctx, events.TelegramLinked{
		BaseEvent:  events.NewBaseEvent(),
		UserID:     user.ID,
		TelegramID: chatID,
		Username:   derefString(tgUsername),
	})
	p.reply(ctx, chatID, fmt.Sprintf(msgLinked, escape(user.FullName)))
	p.log.TelegramEvent("link", chatID, "linked")
	return nil
}

// exactSuffixMatches keeps users whose id ends with code, ignoring case.
func exactSuffixMatches(users []identityrepo.User, code string) []identityrepo.User {
	out := make([]identityrepo.User, 0, len(users))
	for _, u := range users {
		if strings.HasSuffix(strings.ToUpper(u.ID.String()), code) {
			out = append(out, u)
		}
	}
	return out
}

func (p *Processor) handleCallback(ctx context.Context, cq *telegram.CallbackQuery) error {
	if cq.From == nil {
		return nil
	}
	actorChat := cq.From.ID
	ctx = context.WithValue(ctx, logger.ChatIDKey, actorChat)

	action, leadID, ok := parseCallback(cq.Data)
	if !ok {
		p.answer(ctx, cq.ID, "")
		return nil
	}

	user, err := p.users.GetUserByTelegramID(ctx, actorChat)
	if errors.Is(err, identityrepo.ErrNotFound) {
		p.answer(ctx, cq.ID, toastUnauthorized)
		p.log.TelegramEvent("callback", actorChat, "unauthorized")
		return nil
	}
	if err != nil {
		p.answer(ctx, cq.ID, toastFailed)
		return fmt.Errorf("look up linked user: %w", err)
	}

	manager := adapters.ToManager(user)
	var toast string
	switch action {
	case dispatch.ActionAccept:
		_, err = p.leads.AcceptViaBot(ctx, manager, leadID)
		toast = toastAccepted
	default:
		_, err = p.leads.RejectViaBot(ctx, manager, leadID)
		toast = toastRejected
	}

	if err != nil {
		switch {
		case apperr.Is(err, apperr.KindForbidden):
			p.answer(ctx, cq.ID, toastUnauthorized)
		case apperr.Is(err, apperr.KindNotFound):
			p.answer(ctx, cq.ID, toastNotFound)
		case apperr.Is(err, apperr.KindConflict):
			p.answer(ctx, cq.ID, toastTaken)
		default:
			p.answer(ctx, cq.ID, toastFailed)
			return fmt.Errorf("apply %s: %w", strings.TrimSuffix(action, "_"), err)
		}
		p.log.TelegramEvent("callback", actorChat, "refused")
		return nil
	}

	if cq.Message != nil {
		if err := p.chat.ClearReplyMarkup(ctx, cq.Message.Chat.ID, cq.Message.MessageID); err != nil {
			p.log.WithContext(ctx).Warn("failed to remove lead menu", "leadId", leadID, "error", err)
		}
	}
	p.answer(ctx, cq.ID, toast)
	p.log.TelegramEvent("callback", actorChat, strings.TrimSuffix(action, "_"))
	return nil
}

// parseCallback splits "accept_<id>" and "reject_<id>".
func parseCallback(data string) (string, uuid.UUID, bool) {
	for _, action := range []string{dispatch.ActionAccept, dispatch.ActionReject} {
		if raw, ok := strings.CutPrefix(data, action); ok {
			id, err := uuid.Parse(raw)
			if err != nil {
				return "", uuid.UUID{}, false
			}
			return action, id, true
		}
	}
	return "", uuid.UUID{}, false
}

func (p *Processor) reply(ctx context.Context, chatID int64, text string) {
	_, err := p.chat.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: telegram.ParseModeHTML,
	})
	if err != nil {
		p.log.WithContext(ctx).Warn("failed to send bot reply", "error", err)
	}
}

func (p *Processor) answer(ctx context.Context, callbackID, text string) {
	if err := p.chat.AnswerCallbackQuery(ctx, callbackID, text); err != nil {
		p.log.WithContext(ctx).Warn("failed to answer callback", "error", err)
	}
}

func username(u *telegram.User) *string {
	if u == nil || u.Username == "" {
		return nil
	}
	name := u.Username
	return &name
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
