// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"dealer_crm_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published after a lead and its initial history row are persisted.
type LeadCreated struct {
	BaseEvent
	LeadID            uuid.UUID  `json:"leadId"`
	TenantID          *uuid.UUID `json:"tenantId,omitempty"`
	AssignedManagerID *uuid.UUID `json:"assignedManagerId,omitempty"`
	Name              string     `json:"name"`
	Phone             string     `json:"phone"`
	City              string     `json:"city"`
	Region            *string    `json:"region,omitempty"`
	Source            string     `json:"source"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadStatusChanged is published for every status write, from the dashboard or the bot.
type LeadStatusChanged struct {
	BaseEvent
	LeadID    uuid.UUID  `json:"leadId"`
	TenantID  *uuid.UUID `json:"tenantId,omitempty"`
	ActorID   *uuid.UUID `json:"actorId,omitempty"`
	OldStatus string     `json:"oldStatus"`
	NewStatus string     `json:"newStatus"`
	Via       string     `json:"via"` // "dashboard", "telegram"
}

func (e LeadStatusChanged) EventName() string { return "leads.lead.status_changed" }

// LeadAssigned is published when the assigned manager changes.
type LeadAssigned struct {
	BaseEvent
	LeadID          uuid.UUID  `json:"leadId"`
	TenantID        *uuid.UUID `json:"tenantId,omitempty"`
	PreviousManager *uuid.UUID `json:"previousManager,omitempty"`
	NewManager      *uuid.UUID `json:"newManager,omitempty"`
	ActorID         *uuid.UUID `json:"actorId,omitempty"`
}

func (e LeadAssigned) EventName() string { return "leads.lead.assigned" }

// =============================================================================
// Telegram Domain Events
// =============================================================================

// TelegramLinked is published when a staff account is bound to a Telegram chat.
type TelegramLinked struct {
	BaseEvent
	UserID     uuid.UUID `json:"userId"`
	TelegramID int64     `json:"telegramId"`
	Username   string    `json:"username,omitempty"`
}

func (e TelegramLinked) EventName() string { return "telegram.account.linked" }
