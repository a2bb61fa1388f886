// Package notification provides event handlers for sending notifications
// in response to domain events. Domain modules publish events and never talk
// to email providers directly.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dealer_crm_backend/internal/email"
	"dealer_crm_backend/internal/events"
	identityrepo "dealer_crm_backend/internal/identity/repository"
	"dealer_crm_backend/internal/leads/domain"
	"dealer_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// AdminDirectory lists the staff that receives operational alerts.
type AdminDirectory interface {
	ListActiveSuperAdmins(ctx context.Context) ([]identityrepo.User, error)
	GetTenant(ctx context.Context, id uuid.UUID) (identityrepo.Tenant, error)
}

// Config is the notification module configuration.
type Config interface {
	GetAppBaseURL() string
}

// Module handles all notification-related event subscriptions.
type Module struct {
	sender email.Sender
	admins AdminDirectory
	cfg    Config
	log    *logger.Logger
}

// New creates a new notification module.
func New(sender email.Sender, admins AdminDirectory, cfg Config, log *logger.Logger) *Module {
	return &Module{sender: sender, admins: admins, cfg: cfg, log: log}
}

// RegisterHandlers subscribes the module to the events it reacts to.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), m)
	bus.Subscribe(events.TelegramLinked{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadCreated:
		return m.handleLeadCreated(ctx, e)
	case events.TelegramLinked:
		m.log.Info("staff account linked to telegram", "userId", e.UserID, "telegramId", e.TelegramID)
		return nil
	default:
		return nil
	}
}

// handleLeadCreated alerts every super admin about a lead nobody will receive.
func (m *Module) handleLeadCreated(ctx context.Context, e events.LeadCreated) error {
	if e.AssignedManagerID != nil {
		return nil
	}

	admins, err := m.admins.ListActiveSuperAdmins(ctx)
	if err != nil {
		return fmt.Errorf("list super admins: %w", err)
	}
	if len(admins) == 0 {
		m.log.Warn("unassigned lead and no super admin to alert", "leadId", e.LeadID)
		return nil
	}

	lead := email.UnassignedLead{
		Name:       e.Name,
		Phone:      e.Phone,
		City:       e.City,
		Region:     derefString(e.Region),
		Source:     domain.SourceLabel(domain.ParseSource(e.Source)),
		TenantName: m.tenantName(ctx, e.TenantID),
		CreatedAt:  e.OccurredAt(),
		LeadURL:    m.buildURL("/leads/" + e.LeadID.String()),
	}

	var errs []error
	for _, admin := range admins {
		if strings.TrimSpace(admin.Email) == "" {
			continue
		}
		if err := m.sender.SendUnassignedLeadAlert(ctx, admin.Email, lead); err != nil {
			m.log.Error("failed to send unassigned lead alert", "leadId", e.LeadID, "to", admin.Email, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Module) tenantName(ctx context.Context, tenantID *uuid.UUID) string {
	if tenantID == nil {
		return ""
	}
	tenant, err := m.admins.GetTenant(ctx, *tenantID)
	if err != nil {
		m.log.Warn("failed to resolve tenant for alert", "tenantId", *tenantID, "error", err)
		return ""
	}
	return tenant.Name
}

func (m *Module) buildURL(path string) string {
	base := strings.TrimRight(m.cfg.GetAppBaseURL(), "/")
	return base + path
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ events.Handler = (*Module)(nil)
