package handler

import (
	"net/http"

	"dealer_crm_backend/internal/identity/service"
	"dealer_crm_backend/internal/identity/transport"
	"dealer_crm_backend/platform/httpkit"
	"dealer_crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgTenantNotSet     = "tenant not set"
)

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/users/me/telegram", h.GetTelegramLink)
	rg.DELETE("/users/me/telegram", h.UnlinkTelegram)
	rg.GET("/managers", h.ListManagers)
}

func (h *Handler) GetTelegramLink(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	resp, err := h.svc.TelegramStatus(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, resp)
}

func (h *Handler) UnlinkTelegram(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	resp, err := h.svc.UnlinkTelegram(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, resp)
}

// ListManagers lists the caller's tenant managers. Super admins pick the tenant.
func (h *Handler) ListManagers(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.ListManagersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	tenantID := identity.TenantID()
	if identity.IsSuperAdmin() && req.TenantID != "" {
		parsed := uuid.MustParse(req.TenantID)
		tenantID = &parsed
	}
	if tenantID == nil {
		httpkit.Error(c, http.StatusBadRequest, msgTenantNotSet, nil)
		return
	}

	resp, err := h.svc.ListManagers(c.Request.Context(), *tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, resp)
}
