// Package leads provides the lead management bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"dealer_crm_backend/internal/events"
	apphttp "dealer_crm_backend/internal/http"
	"dealer_crm_backend/internal/leads/dispatch"
	"dealer_crm_backend/internal/leads/handler"
	"dealer_crm_backend/internal/leads/management"
	"dealer_crm_backend/internal/leads/matching"
	"dealer_crm_backend/internal/leads/ports"
	"dealer_crm_backend/internal/leads/repository"
	"dealer_crm_backend/platform/config"
	"dealer_crm_backend/platform/logger"
	"dealer_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler       *handler.Handler
	publicHandler *handler.PublicHandler
	management    *management.Service
	dispatcher    *dispatch.Dispatcher
}

// Dependencies are the collaborators owned by other modules.
type Dependencies struct {
	Tenants   ports.TenantDirectory
	Staff     ports.StaffDirectory
	Messenger ports.Messenger
	// Retry may be nil when no job queue is configured.
	Retry ports.NotifyRetryScheduler
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(pool *pgxpool.Pool, deps Dependencies, eventBus events.Bus, val *validator.Validator, cfg config.LeadsConfig, log *logger.Logger) *Module {
	repo := repository.New(pool)
	engine := matching.New(deps.Tenants, deps.Staff)

	dispatcher := dispatch.New(repo, deps.Staff, engine, deps.Messenger, deps.Retry, eventBus, log)
	mgmtSvc := management.New(repo, engine, deps.Tenants, deps.Staff, dispatcher, eventBus, log, cfg.GetPhoneDefaultRegion())

	return &Module{
		handler:       handler.New(mgmtSvc, dispatcher, val),
		publicHandler: handler.NewPublicHandler(mgmtSvc, val),
		management:    mgmtSvc,
		dispatcher:    dispatcher,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// ManagementService returns the lead lifecycle service for the bot.
func (m *Module) ManagementService() *management.Service {
	return m.management
}

// Dispatcher returns the notification dispatcher for the job worker.
func (m *Module) Dispatcher() *dispatch.Dispatcher {
	return m.dispatcher
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	leadsGroup := ctx.Protected.Group("/leads")
	m.handler.RegisterRoutes(leadsGroup)

	public := ctx.V1.Group("/public/leads")
	if ctx.PublicRateLimiter != nil {
		public.Use(ctx.PublicRateLimiter.RateLimit())
	}
	m.publicHandler.RegisterRoutes(public)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
