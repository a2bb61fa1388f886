// Package identity provides the identity bounded context module.
package identity

import (
	apphttp "dealer_crm_backend/internal/http"
	"dealer_crm_backend/internal/identity/handler"
	"dealer_crm_backend/internal/identity/repository"
	"dealer_crm_backend/internal/identity/service"
	"dealer_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc, repo: repo}
}

func (m *Module) Name() string {
	return "identity"
}

func (m *Module) Service() *service.Service {
	return m.service
}

// Repository exposes tenant and staff reads to the adapters.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
}

var (
	_ apphttp.Module = (*Module)(nil)
	_ Service        = (*service.Service)(nil)
)
