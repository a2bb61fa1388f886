// Package dispatch delivers lead cards to managers and guards the one-way
// sent_to_telegram flag.
package dispatch

import (
	"context"
	"errors"

	"dealer_crm_backend/internal/events"
	"dealer_crm_backend/internal/leads/domain"
	"dealer_crm_backend/internal/leads/ports"
	"dealer_crm_backend/internal/leads/repository"
	"dealer_crm_backend/platform/apperr"
	"dealer_crm_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Outcome classifies a notify-by-id attempt.
type Outcome int

const (
	OutcomeSent Outcome = iota
	OutcomeAlreadySent
	OutcomeNoManager
	OutcomeFailed
)

// Result is returned by NotifyByLeadID.
type Result struct {
	Outcome    Outcome
	AssignedTo string
}

// ErrDeliveryFailed is returned by Redeliver so the job runner retries.
var ErrDeliveryFailed = errors.New("lead notification was not delivered")

// ManagerPicker resolves a notifiable manager for an unassigned lead.
type ManagerPicker interface {
	PickManagerForNotify(ctx context.Context, tenantID uuid.UUID) (*ports.Manager, error)
}

type Dispatcher struct {
	leads     repository.Store
	staff     ports.StaffDirectory
	picker    ManagerPicker
	messenger ports.Messenger
	retry     ports.NotifyRetryScheduler
	eventBus  events.Bus
	log       *logger.Logger
	inflight  singleflight.Group
}

// New creates a dispatcher. retry may be nil, in which case failed deliveries
// are only logged.
func New(leads repository.Store, staff ports.StaffDirectory, picker ManagerPicker, messenger ports.Messenger, retry ports.NotifyRetryScheduler, eventBus events.Bus, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		leads:     leads,
		staff:     staff,
		picker:    picker,
		messenger: messenger,
		retry:     retry,
		eventBus:  eventBus,
		log:       log,
	}
}

// Notify sends the lead card to manager. It returns false without touching the
// store when the manager has no chat, and false on any transport failure.
func (d *Dispatcher) Notify(ctx context.Context, lead repository.Lead, manager ports.Manager) bool {
	if !manager.Notifiable() {
		return false
	}

	text, menu := BuildLeadCard(lead)
	err := d.messenger.Send(ctx, ports.OutboundMessage{
		ChatID:  *manager.TelegramID,
		HTML:    text,
		Buttons: menu,
	})
	if err != nil {
		d.log.Warn("lead notification failed", "leadId", lead.ID, "managerId", manager.ID, "error", err)
		return false
	}

	if _, err := d.leads.MarkSentToTelegram(ctx, lead.ID); err != nil {
		d.log.DatabaseError("mark_sent_to_telegram", err)
	}
	d.log.Info("lead notification sent", "leadId", lead.ID, "managerId", manager.ID)
	return true
}

// NotifyAssigned sends the card to a newly assigned manager. A transport
// failure is queued for retry; a manager without a chat is not.
func (d *Dispatcher) NotifyAssigned(ctx context.Context, lead repository.Lead, manager ports.Manager) bool {
	if d.Notify(ctx, lead, manager) {
		return true
	}
	if manager.Notifiable() {
		d.scheduleRetry(ctx, lead.ID)
	}
	return false
}

// NotifyByLeadID delivers the lead unless it was already delivered. An
// unassigned lead is first assigned to the tenant's oldest notifiable manager.
// A failed delivery is queued for retry.
func (d *Dispatcher) NotifyByLeadID(ctx context.Context, leadID uuid.UUID, scope repository.Scope) (Result, error) {
	if scope.TenantID != nil {
		if _, err := d.leads.GetByID(ctx, leadID, scope); err != nil {
			return Result{}, d.mapLeadError(err)
		}
	}

	res, err := d.notifyOnce(ctx, leadID)
	if err != nil {
		return Result{}, err
	}

	if res.Outcome == OutcomeFailed {
		d.scheduleRetry(ctx, leadID)
	}
	return res, nil
}

func (d *Dispatcher) scheduleRetry(ctx context.Context, leadID uuid.UUID) {
	if d.retry == nil {
		return
	}
	if err := d.retry.ScheduleNotifyRetry(ctx, leadID); err != nil {
		d.log.Warn("failed to schedule notify retry", "leadId", leadID, "error", err)
	}
}

// Redeliver is the background retry entry point. It never schedules another
// retry itself and reports a failed delivery as ErrDeliveryFailed.
func (d *Dispatcher) Redeliver(ctx context.Context, leadID uuid.UUID) (Result, error) {
	res, err := d.notifyOnce(ctx, leadID)
	if err != nil {
		return Result{}, err
	}
	if res.Outcome == OutcomeFailed {
		return res, ErrDeliveryFailed
	}
	return res, nil
}

func (d *Dispatcher) notifyOnce(ctx context.Context, leadID uuid.UUID) (Result, error) {
	v, err, _ := d.inflight.Do(leadID.String(), func() (interface{}, error) {
		return d.notifyByID(ctx, leadID)
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (d *Dispatcher) notifyByID(ctx context.Context, leadID uuid.UUID) (Result, error) {
	lead, err := d.leads.GetByID(ctx, leadID, repository.Scope{})
	if err != nil {
		return Result{}, d.mapLeadError(err)
	}
	if lead.SentToTelegram {
		return Result{Outcome: OutcomeAlreadySent}, nil
	}

	if lead.AssignedManagerID == nil {
		lead, err = d.autoAssign(ctx, lead)
		if err != nil {
			return Result{}, err
		}
		if lead.AssignedManagerID == nil {
			return Result{Outcome: OutcomeNoManager}, nil
		}
	}

	manager, err := d.staff.GetStaff(ctx, *lead.AssignedManagerID)
	if errors.Is(err, ports.ErrNotFound) {
		return Result{Outcome: OutcomeNoManager}, nil
	}
	if err != nil {
		return Result{}, apperr.Store("dispatch.GetStaff", err)
	}
	if !manager.Notifiable() {
		return Result{Outcome: OutcomeNoManager, AssignedTo: manager.FullName}, nil
	}

	if !d.Notify(ctx, lead, manager) {
		return Result{Outcome: OutcomeFailed, AssignedTo: manager.FullName}, nil
	}
	return Result{Outcome: OutcomeSent, AssignedTo: manager.FullName}, nil
}

// autoAssign picks a manager for an unassigned lead and records the assignment.
// The returned lead keeps AssignedManagerID nil when nobody qualifies.
func (d *Dispatcher) autoAssign(ctx context.Context, lead repository.Lead) (repository.Lead, error) {
	if lead.TenantID == nil {
		return lead, nil
	}

	manager, err := d.picker.PickManagerForNotify(ctx, *lead.TenantID)
	if err != nil {
		return lead, apperr.Store("dispatch.PickManager", err)
	}
	if manager == nil {
		d.log.Warn("no suitable manager to notify", "leadId", lead.ID, "tenantId", *lead.TenantID)
		return lead, nil
	}

	var assigned repository.Lead
	err = d.leads.InTx(ctx, func(tx repository.Store) error {
		updated, err := tx.AssignManagerIfUnassigned(ctx, lead.ID, manager.ID)
		if err != nil {
			return err
		}
		status := updated.Status
		if _, err := tx.AddHistory(ctx, repository.AddHistoryParams{
			LeadID:    updated.ID,
			OldStatus: &status,
			NewStatus: status,
			Comment:   domain.CommentAutoAssigned + ": " + manager.FullName,
		}); err != nil {
			return err
		}
		assigned = updated
		return nil
	})
	if errors.Is(err, repository.ErrAlreadyAssigned) {
		current, getErr := d.leads.GetByID(ctx, lead.ID, repository.Scope{})
		if getErr != nil {
			return lead, d.mapLeadError(getErr)
		}
		return current, nil
	}
	if err != nil {
		return lead, d.mapLeadError(err)
	}

	managerID := manager.ID
	d.eventBus.Publish(ctx, events.LeadAssigned{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     assigned.ID,
		TenantID:   assigned.TenantID,
		NewManager: &managerID,
	})
	return assigned, nil
}

func (d *Dispatcher) mapLeadError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("Lead not found")
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	d.log.DatabaseError("dispatch", err)
	return apperr.Store("dispatch", err)
}
