package telegrambot

import (
	"context"
	"fmt"

	"dealer_crm_backend/internal/events"
	apphttp "dealer_crm_backend/internal/http"
	"dealer_crm_backend/platform/config"
	"dealer_crm_backend/platform/logger"
)

// Module mounts the bot webhook.
type Module struct {
	handler *WebhookHandler
	chat    WebhookRegistrar
	cfg     config.TelegramConfig
	log     *logger.Logger
}

// WebhookRegistrar registers the webhook URL with the Bot API.
type WebhookRegistrar interface {
	SetWebhook(ctx context.Context, url, secret string) error
}

// ChatClient is the full Bot API surface the module uses.
type ChatClient interface {
	Chat
	WebhookRegistrar
}

func NewModule(users UserStore, leads LeadActions, chat ChatClient, links LinkStore, eventBus events.Bus, cfg config.TelegramConfig, log *logger.Logger) *Module {
	processor := NewProcessor(users, leads, chat, links, eventBus, log)
	return &Module{
		handler: NewWebhookHandler(processor, cfg.GetTelegramWebhookSecret(), log),
		chat:    chat,
		cfg:     cfg,
		log:     log,
	}
}

func (m *Module) Name() string {
	return "telegrambot"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/telegram"))
}

// RegisterWebhook points the bot at TELEGRAM_WEBHOOK_URL. It is a no-op when
// no URL is configured.
func (m *Module) RegisterWebhook(ctx context.Context) error {
	url := m.cfg.GetTelegramWebhookURL()
	if url == "" {
		return nil
	}
	if err := m.chat.SetWebhook(ctx, url, m.cfg.GetTelegramWebhookSecret()); err != nil {
		return fmt.Errorf("register telegram webhook: %w", err)
	}
	m.log.Info("telegram webhook registered", "url", url)
	return nil
}

var _ apphttp.Module = (*Module)(nil)
