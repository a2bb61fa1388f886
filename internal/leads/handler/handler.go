package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"dealer_crm_backend/internal/leads/dispatch"
	"dealer_crm_backend/internal/leads/management"
	"dealer_crm_backend/internal/leads/repository"
	"dealer_crm_backend/internal/leads/transport"
	"dealer_crm_backend/platform/apperr"
	"dealer_crm_backend/platform/httpkit"
	"dealer_crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LeadNotifier triggers dispatch for an existing lead.
type LeadNotifier interface {
	NotifyByLeadID(ctx context.Context, leadID uuid.UUID, scope repository.Scope) (dispatch.Result, error)
}

type Handler struct {
	svc      *management.Service
	notifier LeadNotifier
	val      *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"

	msgAlreadySent   = "Already sent"
	msgNoManager     = "No suitable manager found to notify"
	msgDeliveryFailed = "Notification could not be delivered, retry scheduled"
)

func New(svc *management.Service, notifier LeadNotifier, val *validator.Validator) *Handler {
	return &Handler{svc: svc, notifier: notifier, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/board", h.Board)
	rg.POST("/notify", h.Notify)
	rg.GET("/:id", h.GetByID)
	rg.PUT("/:id", h.Update)
	rg.GET("/:id/history", h.History)
}

func actorFrom(c *gin.Context) (management.Actor, bool) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return management.Actor{}, false
	}
	return management.Actor{UserID: id.UserID(), Role: id.Role(), TenantID: id.TenantID()}, true
}

func (h *Handler) bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return false
	}
	return true
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.UUID{}, false
	}
	return id, true
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req transport.CreateLeadRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	resp, err := h.svc.Create(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, resp)
}

func (h *Handler) GetByID(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	lead, err := h.svc.GetByID(c.Request.Context(), actor, id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) Update(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.UpdateLeadRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	lead, err := h.svc.Update(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) History(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	items, err := h.svc.History(c.Request.Context(), actor, id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"items": items})
}

func (h *Handler) List(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req transport.ListLeadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	result, err := h.svc.List(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Board(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	board, err := h.svc.Board(c.Request.Context(), actor)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, board)
}

// Notify (re)triggers delivery of a lead card, e.g. after a manual reassignment.
func (h *Handler) Notify(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	scope, err := actor.Scope()
	if httpkit.HandleError(c, err) {
		return
	}

	var req transport.NotifyLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	raw := strings.TrimSpace(req.LeadID)
	if raw == "" {
		httpkit.Error(c, http.StatusBadRequest, "leadId is required", nil)
		return
	}
	leadID, err := uuid.Parse(raw)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "leadId must be a valid id", nil)
		return
	}

	res, err := h.notifier.NotifyByLeadID(c.Request.Context(), leadID, scope)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			httpkit.Error(c, http.StatusNotFound, "Lead not found", nil)
			return
		}
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, notifyResponse(res))
}

func notifyResponse(res dispatch.Result) transport.NotifyLeadResponse {
	success := true
	failure := false
	switch res.Outcome {
	case dispatch.OutcomeAlreadySent:
		return transport.NotifyLeadResponse{Message: msgAlreadySent}
	case dispatch.OutcomeNoManager:
		return transport.NotifyLeadResponse{Message: msgNoManager}
	case dispatch.OutcomeFailed:
		return transport.NotifyLeadResponse{Success: &failure, AssignedTo: res.AssignedTo, Message: msgDeliveryFailed}
	default:
		return transport.NotifyLeadResponse{Success: &success, AssignedTo: res.AssignedTo}
	}
}
