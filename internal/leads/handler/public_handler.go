package handler

import (
	"errors"
	"net/http"
	"sort"

	"dealer_crm_backend/internal/leads/management"
	"dealer_crm_backend/internal/leads/transport"
	"dealer_crm_backend/platform/apperr"
	"dealer_crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// PublicHandler handles the anonymous lead form.
type PublicHandler struct {
	svc *management.Service
	val *validator.Validator
}

const (
	publicMsgInvalidRequest = "Invalid request"
	publicMsgInternal       = "Could not save the request, please try again later"
)

// NewPublicHandler creates a new public handler for form submissions.
func NewPublicHandler(svc *management.Service, val *validator.Validator) *PublicHandler {
	return &PublicHandler{svc: svc, val: val}
}

// RegisterRoutes registers public lead routes under /public/leads.
func (h *PublicHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Submit)
}

// Submit stores a website lead. The response never exposes internal ids.
func (h *PublicHandler) Submit(c *gin.Context) {
	var req transport.PublicLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, transport.PublicLeadResponse{Error: publicMsgInvalidRequest})
		return
	}
	if err := h.val.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, transport.PublicLeadResponse{Error: firstFieldError(err)})
		return
	}

	if _, err := h.svc.SubmitPublic(c.Request.Context(), req); err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) && appErr.Kind == apperr.KindValidation {
			c.JSON(http.StatusBadRequest, transport.PublicLeadResponse{Error: appErr.Message})
			return
		}
		c.JSON(http.StatusInternalServerError, transport.PublicLeadResponse{Error: publicMsgInternal})
		return
	}

	c.JSON(http.StatusOK, transport.PublicLeadResponse{Success: true})
}

func firstFieldError(err error) string {
	fields := validator.FieldErrors(err)
	if len(fields) == 0 {
		return publicMsgInvalidRequest
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names[0] + ": " + fields[names[0]]
}
