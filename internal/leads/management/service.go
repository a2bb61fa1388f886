// Package management is the lead lifecycle: creation with matching, dashboard
// edits with audit history, and manager transitions coming from the bot.
package management

import (
	"context"
	"errors"
	"strings"
	"time"

	"dealer_crm_backend/internal/events"
	"dealer_crm_backend/internal/leads/dispatch"
	"dealer_crm_backend/internal/leads/domain"
	"dealer_crm_backend/internal/leads/matching"
	"dealer_crm_backend/internal/leads/ports"
	"dealer_crm_backend/internal/leads/repository"
	"dealer_crm_backend/internal/leads/transport"
	"dealer_crm_backend/platform/apperr"
	"dealer_crm_backend/platform/logger"
	"dealer_crm_backend/platform/phone"
	"dealer_crm_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Matcher routes new leads to a tenant and a manager.
type Matcher interface {
	Match(ctx context.Context, city string, region *string) (matching.Result, error)
	PickManagerForCreation(ctx context.Context, tenantID uuid.UUID) (*ports.Manager, error)
}

// Notifier is the dispatch surface the lifecycle needs.
type Notifier interface {
	NotifyAssigned(ctx context.Context, lead repository.Lead, manager ports.Manager) bool
	NotifyByLeadID(ctx context.Context, leadID uuid.UUID, scope repository.Scope) (dispatch.Result, error)
}

// Service handles lead lifecycle operations.
type Service struct {
	repo        repository.Store
	matcher     Matcher
	tenants     ports.TenantDirectory
	staff       ports.StaffDirectory
	notifier    Notifier
	eventBus    events.Bus
	log         *logger.Logger
	phoneRegion string
	now         func() time.Time
}

// New creates a new lead management service.
func New(repo repository.Store, matcher Matcher, tenants ports.TenantDirectory, staff ports.StaffDirectory, notifier Notifier, eventBus events.Bus, log *logger.Logger, phoneRegion string) *Service {
	return &Service{
		repo:        repo,
		matcher:     matcher,
		tenants:     tenants,
		staff:       staff,
		notifier:    notifier,
		eventBus:    eventBus,
		log:         log,
		phoneRegion: phoneRegion,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type createInput struct {
	name      string
	phone     string
	city      string
	region    *string
	comment   *string
	source    domain.Source
	tenantID  *uuid.UUID
	managerID *uuid.UUID
	actorID   *uuid.UUID
	notify    bool
}

// SubmitPublic stores a website form submission and notifies the matched manager.
func (s *Service) SubmitPublic(ctx context.Context, req transport.PublicLeadRequest) (transport.CreateLeadResponse, error) {
	in := createInput{
		name:    sanitize.Text(req.Name),
		phone:   strings.TrimSpace(req.Phone),
		city:    sanitize.Text(req.City),
		region:  sanitize.Optional(req.Region),
		comment: sanitize.Optional(req.Comment),
		source:  domain.SourceWebsite,
		notify:  true,
	}
	if err := validateContact(in.name, in.phone, in.city); err != nil {
		return transport.CreateLeadResponse{}, err
	}

	match, err := s.matcher.Match(ctx, in.city, in.region)
	if err != nil {
		s.log.Warn("lead matching failed, lead stays unassigned", "city", in.city, "error", err)
	}
	in.tenantID = match.TenantID()
	in.managerID = match.ManagerID()

	return s.create(ctx, in)
}

// Create stores a lead entered from the dashboard. Non super admins always
// create inside their own tenant.
func (s *Service) Create(ctx context.Context, actor Actor, req transport.CreateLeadRequest) (transport.CreateLeadResponse, error) {
	if _, err := actor.Scope(); err != nil {
		return transport.CreateLeadResponse{}, err
	}

	source := domain.SourceManual
	if req.Source != "" {
		source = domain.ParseSource(req.Source)
	}
	actorID := actor.UserID
	in := createInput{
		name:    sanitize.Text(req.Name),
		phone:   strings.TrimSpace(req.Phone),
		city:    sanitize.Text(req.City),
		region:  sanitize.Optional(req.Region),
		comment: sanitize.Optional(req.Comment),
		source:  source,
		actorID: &actorID,
		notify:  req.Notify || source == domain.SourceWebsite,
	}
	if err := validateContact(in.name, in.phone, in.city); err != nil {
		return transport.CreateLeadResponse{}, err
	}

	tenantID, err := s.targetTenant(actor, req.TenantID)
	if err != nil {
		return transport.CreateLeadResponse{}, err
	}

	switch {
	case req.ManagerID != nil:
		manager, err := s.assignableManager(ctx, *req.ManagerID, tenantID)
		if err != nil {
			return transport.CreateLeadResponse{}, err
		}
		in.tenantID = manager.TenantID
		in.managerID = &manager.ID
	case tenantID != nil:
		if err := s.ensureTenant(ctx, *tenantID); err != nil {
			return transport.CreateLeadResponse{}, err
		}
		in.tenantID = tenantID
		if actor.Role == RoleManager {
			in.managerID = &actorID
			break
		}
		manager, err := s.matcher.PickManagerForCreation(ctx, *tenantID)
		if err != nil {
			s.log.Warn("manager matching failed, lead stays unassigned", "tenantId", *tenantID, "error", err)
		}
		if manager != nil {
			in.managerID = &manager.ID
		}
	default:
		match, err := s.matcher.Match(ctx, in.city, in.region)
		if err != nil {
			s.log.Warn("lead matching failed, lead stays unassigned", "city", in.city, "error", err)
		}
		in.tenantID = match.TenantID()
		in.managerID = match.ManagerID()
	}

	return s.create(ctx, in)
}

// create expects sanitized and validated input.
func (s *Service) create(ctx context.Context, in createInput) (transport.CreateLeadResponse, error) {
	params := repository.CreateLeadParams{
		Name:              in.name,
		Phone:             phone.NormalizeE164(in.phone, s.phoneRegion),
		City:              in.city,
		Region:            in.region,
		TenantID:          in.tenantID,
		AssignedManagerID: in.managerID,
		Source:            in.source,
		Comment:           in.comment,
	}

	var lead repository.Lead
	err := s.repo.InTx(ctx, func(tx repository.Store) error {
		created, err := tx.Create(ctx, params)
		if err != nil {
			return err
		}
		if _, err := tx.AddHistory(ctx, repository.AddHistoryParams{
			LeadID:    created.ID,
			ChangedBy: in.actorID,
			NewStatus: domain.StatusNew,
			Comment:   domain.CreationComment(in.source),
		}); err != nil {
			return err
		}
		lead = created
		return nil
	})
	if err != nil {
		return transport.CreateLeadResponse{}, s.storeError("leads.create", err)
	}

	s.log.Info("lead created", "leadId", lead.ID, "tenantId", lead.TenantID, "managerId", lead.AssignedManagerID, "source", lead.Source)
	s.eventBus.Publish(ctx, events.LeadCreated{
		BaseEvent:         events.NewBaseEvent(),
		LeadID:            lead.ID,
		TenantID:          lead.TenantID,
		AssignedManagerID: lead.AssignedManagerID,
		Name:              lead.Name,
		Phone:             lead.Phone,
		City:              lead.City,
		Region:            lead.Region,
		Source:            string(lead.Source),
	})

	notified := false
	if in.notify && lead.AssignedManagerID != nil {
		res, err := s.notifier.NotifyByLeadID(ctx, lead.ID, repository.Scope{})
		if err != nil {
			s.log.Warn("lead notification skipped", "leadId", lead.ID, "error", err)
		}
		notified = err == nil && res.Outcome == dispatch.OutcomeSent
		if notified {
			lead.SentToTelegram = true
		}
	}

	return transport.CreateLeadResponse{Lead: ToLeadResponse(lead), Notified: notified}, nil
}

// Update applies a full dashboard edit and records one history row per changed
// dimension. A newly assigned manager is notified right away; a failed send
// is queued for retry.
func (s *Service) Update(ctx context.Context, actor Actor, id uuid.UUID, req transport.UpdateLeadRequest) (transport.LeadResponse, error) {
	scope, err := actor.Scope()
	if err != nil {
		return transport.LeadResponse{}, err
	}
	name, city := sanitize.Text(req.Name), sanitize.Text(req.City)
	if err := validateContact(name, req.Phone, city); err != nil {
		return transport.LeadResponse{}, err
	}
	status := domain.Status(req.Status)
	if !status.Valid() {
		return transport.LeadResponse{}, apperr.Validation("invalid status").WithDetails(map[string]string{"status": "oneof"})
	}

	current, err := s.repo.GetByID(ctx, id, scope)
	if err != nil {
		return transport.LeadResponse{}, s.storeError("leads.get", err)
	}

	tenantID, err := s.targetTenant(actor, req.TenantID)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	var manager *ports.Manager
	if req.ManagerID != nil {
		m, err := s.assignableManager(ctx, *req.ManagerID, tenantID)
		if err != nil {
			return transport.LeadResponse{}, err
		}
		manager = &m
		tenantID = m.TenantID
	} else if tenantID != nil && !sameID(tenantID, current.TenantID) {
		if err := s.ensureTenant(ctx, *tenantID); err != nil {
			return transport.LeadResponse{}, err
		}
	}

	var managerID *uuid.UUID
	if manager != nil {
		managerID = &manager.ID
	}

	fields := domain.ApplyStatus(current.StatusFields(), status, req.RejectionReason, req.ConversionValue, s.now())
	params := repository.UpdateLeadParams{
		Name:              name,
		Phone:             phone.NormalizeE164(req.Phone, s.phoneRegion),
		City:              city,
		Region:            sanitize.Optional(req.Region),
		TenantID:          tenantID,
		AssignedManagerID: managerID,
		Comment:           sanitize.Optional(req.Comment),
		Fields:            fields,
	}

	entries := domain.DiffHistory(
		domain.Snapshot{Status: current.Status, ManagerID: current.AssignedManagerID, Comment: current.Comment},
		domain.Snapshot{Status: fields.Status, ManagerID: managerID, Comment: params.Comment},
		req.Note,
	)

	actorID := actor.UserID
	var updated repository.Lead
	err = s.repo.InTx(ctx, func(tx repository.Store) error {
		lead, err := tx.Update(ctx, id, params)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if _, err := tx.AddHistory(ctx, repository.AddHistoryParams{
				LeadID:    id,
				ChangedBy: &actorID,
				OldStatus: entry.OldStatus,
				NewStatus: entry.NewStatus,
				Comment:   entry.Comment,
			}); err != nil {
				return err
			}
		}
		updated = lead
		return nil
	})
	if err != nil {
		return transport.LeadResponse{}, s.storeError("leads.update", err)
	}

	if current.Status != updated.Status {
		s.eventBus.Publish(ctx, events.LeadStatusChanged{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    updated.ID,
			TenantID:  updated.TenantID,
			ActorID:   &actorID,
			OldStatus: string(current.Status),
			NewStatus: string(updated.Status),
			Via:       "dashboard",
		})
	}

	if !sameID(current.AssignedManagerID, updated.AssignedManagerID) {
		s.eventBus.Publish(ctx, events.LeadAssigned{
			BaseEvent:       events.NewBaseEvent(),
			LeadID:          updated.ID,
			TenantID:        updated.TenantID,
			PreviousManager: current.AssignedManagerID,
			NewManager:      updated.AssignedManagerID,
			ActorID:         &actorID,
		})
		if manager != nil && s.notifier.NotifyAssigned(ctx, updated, *manager) {
			updated.SentToTelegram = true
		}
	}

	return ToLeadResponse(updated), nil
}

// AcceptViaBot moves the lead to processing and assigns it to manager.
func (s *Service) AcceptViaBot(ctx context.Context, manager ports.Manager, leadID uuid.UUID) (repository.Lead, error) {
	return s.transitionByManager(ctx, manager, leadID, domain.StatusProcessing, domain.CommentAcceptedViaBot)
}

// RejectViaBot moves the lead to rejected with the fixed bot rejection reason.
func (s *Service) RejectViaBot(ctx context.Context, manager ports.Manager, leadID uuid.UUID) (repository.Lead, error) {
	return s.transitionByManager(ctx, manager, leadID, domain.StatusRejected, domain.CommentRejectedViaBot)
}

func (s *Service) transitionByManager(ctx context.Context, manager ports.Manager, leadID uuid.UUID, target domain.Status, comment string) (repository.Lead, error) {
	if manager.Role != RoleManager || !manager.IsActive || manager.TenantID == nil {
		return repository.Lead{}, apperr.Forbidden("only active managers can act on leads")
	}

	current, err := s.repo.GetByID(ctx, leadID, repository.Scope{TenantID: manager.TenantID})
	if err != nil {
		return repository.Lead{}, s.storeError("leads.get", err)
	}

	var reason *string
	if target == domain.StatusRejected {
		r := domain.RejectionReasonViaBot
		reason = &r
	}
	fields := domain.ApplyStatus(current.StatusFields(), target, reason, current.ConversionValue, s.now())

	managerID := manager.ID
	oldStatus := current.Status
	var updated repository.Lead
	err = s.repo.InTx(ctx, func(tx repository.Store) error {
		lead, err := tx.SetStatusByManager(ctx, leadID, managerID, fields)
		if err != nil {
			return err
		}
		if _, err := tx.AddHistory(ctx, repository.AddHistoryParams{
			LeadID:    leadID,
			ChangedBy: &managerID,
			OldStatus: &oldStatus,
			NewStatus: target,
			Comment:   comment,
		}); err != nil {
			return err
		}
		updated = lead
		return nil
	})
	if errors.Is(err, repository.ErrTakenByOther) {
		return repository.Lead{}, apperr.Conflict("Lead is assigned to another manager")
	}
	if err != nil {
		return repository.Lead{}, s.storeError("leads.transition", err)
	}

	s.log.Info("lead transitioned by manager", "leadId", leadID, "managerId", managerID, "from", oldStatus, "to", target)
	s.eventBus.Publish(ctx, events.LeadStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    updated.ID,
		TenantID:  updated.TenantID,
		ActorID:   &managerID,
		OldStatus: string(oldStatus),
		NewStatus: string(target),
		Via:       "telegram",
	})
	if current.AssignedManagerID == nil {
		s.eventBus.Publish(ctx, events.LeadAssigned{
			BaseEvent:  events.NewBaseEvent(),
			LeadID:     updated.ID,
			TenantID:   updated.TenantID,
			NewManager: &managerID,
			ActorID:    &managerID,
		})
	}
	return updated, nil
}

// GetByID returns a lead visible to the actor.
func (s *Service) GetByID(ctx context.Context, actor Actor, id uuid.UUID) (transport.LeadResponse, error) {
	scope, err := actor.Scope()
	if err != nil {
		return transport.LeadResponse{}, err
	}
	lead, err := s.repo.GetByID(ctx, id, scope)
	if err != nil {
		return transport.LeadResponse{}, s.storeError("leads.get", err)
	}
	return ToLeadResponse(lead), nil
}

// History returns the audit trail of a lead visible to the actor.
func (s *Service) History(ctx context.Context, actor Actor, id uuid.UUID) ([]transport.HistoryResponse, error) {
	scope, err := actor.Scope()
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByID(ctx, id, scope); err != nil {
		return nil, s.storeError("leads.get", err)
	}
	rows, err := s.repo.ListHistory(ctx, id)
	if err != nil {
		return nil, s.storeError("leads.history", err)
	}
	items := make([]transport.HistoryResponse, len(rows))
	for i, row := range rows {
		items[i] = ToHistoryResponse(row)
	}
	return items, nil
}

// List retrieves a paginated list of leads visible to the actor.
func (s *Service) List(ctx context.Context, actor Actor, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	scope, err := actor.Scope()
	if err != nil {
		return transport.LeadListResponse{}, err
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	params := repository.ListParams{
		Scope:  scope,
		Search: req.Search,
		Offset: (req.Page - 1) * req.PageSize,
		Limit:  req.PageSize,
	}
	if actor.IsSuperAdmin() && req.TenantID != "" {
		tenantID, err := uuid.Parse(req.TenantID)
		if err != nil {
			return transport.LeadListResponse{}, apperr.Validation("invalid tenantId")
		}
		params.Scope = repository.Scope{TenantID: &tenantID}
	}
	if req.Status != "" {
		status := domain.Status(req.Status)
		params.Status = &status
	}
	if req.Source != "" {
		source := domain.ParseSource(req.Source)
		params.Source = &source
	}
	if req.ManagerID != "" {
		managerID, err := uuid.Parse(req.ManagerID)
		if err != nil {
			return transport.LeadListResponse{}, apperr.Validation("invalid managerId")
		}
		params.ManagerID = &managerID
	}

	leads, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.LeadListResponse{}, s.storeError("leads.list", err)
	}

	items := make([]transport.LeadResponse, len(leads))
	for i, lead := range leads {
		items[i] = ToLeadResponse(lead)
	}

	return transport.LeadListResponse{
		Items:      items,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: (total + req.PageSize - 1) / req.PageSize,
	}, nil
}

// Board returns lead counts per pipeline column.
func (s *Service) Board(ctx context.Context, actor Actor) (transport.BoardResponse, error) {
	scope, err := actor.Scope()
	if err != nil {
		return transport.BoardResponse{}, err
	}
	counts, err := s.repo.CountByStatus(ctx, scope)
	if err != nil {
		return transport.BoardResponse{}, s.storeError("leads.board", err)
	}
	resp := transport.BoardResponse{Counts: make(map[string]int, len(counts))}
	for _, status := range domain.AllStatuses() {
		resp.Counts[string(status)] = counts[status]
		resp.Total += counts[status]
	}
	return resp, nil
}

// targetTenant resolves the tenant an edit may write. Non super admins are
// pinned to their own tenant.
func (s *Service) targetTenant(actor Actor, requested *uuid.UUID) (*uuid.UUID, error) {
	if actor.IsSuperAdmin() {
		return requested, nil
	}
	if requested != nil && (actor.TenantID == nil || *requested != *actor.TenantID) {
		return nil, apperr.Forbidden("cannot move leads outside your tenant")
	}
	tenantID := *actor.TenantID
	return &tenantID, nil
}

func (s *Service) ensureTenant(ctx context.Context, tenantID uuid.UUID) error {
	if _, err := s.tenants.GetTenant(ctx, tenantID); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return apperr.NotFound("Tenant not found")
		}
		return s.storeError("tenants.get", err)
	}
	return nil
}

// assignableManager loads an active manager and checks it belongs to tenantID
// when one is given.
func (s *Service) assignableManager(ctx context.Context, managerID uuid.UUID, tenantID *uuid.UUID) (ports.Manager, error) {
	manager, err := s.staff.GetStaff(ctx, managerID)
	if errors.Is(err, ports.ErrNotFound) {
		return ports.Manager{}, apperr.NotFound("Manager not found")
	}
	if err != nil {
		return ports.Manager{}, s.storeError("staff.get", err)
	}
	if manager.Role != RoleManager || !manager.IsActive || manager.TenantID == nil {
		return ports.Manager{}, apperr.Validation("user is not an active manager").WithDetails(map[string]string{"managerId": "manager"})
	}
	if tenantID != nil && *manager.TenantID != *tenantID {
		return ports.Manager{}, apperr.Validation("manager belongs to another tenant").WithDetails(map[string]string{"managerId": "tenant"})
	}
	return manager, nil
}

func (s *Service) storeError(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("Lead not found")
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	s.log.DatabaseError(op, err)
	return apperr.Store(op, err)
}

func validateContact(name, phoneNumber, city string) error {
	details := map[string]string{}
	if strings.TrimSpace(name) == "" {
		details["name"] = "required"
	}
	if strings.TrimSpace(phoneNumber) == "" {
		details["phone"] = "required"
	}
	if strings.TrimSpace(city) == "" {
		details["city"] = "required"
	}
	if len(details) > 0 {
		return apperr.Validation("missing required lead fields").WithDetails(details)
	}
	return nil
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
