package telegrambot

import (
	"crypto/subtle"
	"net/http"

	"dealer_crm_backend/internal/telegram"
	"dealer_crm_backend/platform/httpkit"
	"dealer_crm_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

const (
	secretHeader    = "X-Telegram-Bot-Api-Secret-Token"
	msgUpdateFailed = "could not process update"
)

// WebhookHandler receives Bot API updates.
type WebhookHandler struct {
	processor *Processor
	secret    string
	log       *logger.Logger
}

func NewWebhookHandler(processor *Processor, secret string, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{processor: processor, secret: secret, log: log}
}

func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhook", h.Receive)
}

// Receive acknowledges every well-formed update with {"ok":true} so Telegram
// does not redeliver it. Undecodable payloads are acknowledged and dropped.
func (h *WebhookHandler) Receive(c *gin.Context) {
	if h.secret != "" {
		got := c.GetHeader(secretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			httpkit.Error(c, http.StatusUnauthorized, "invalid webhook secret", nil)
			return
		}
	}

	var update telegram.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		h.log.Warn("dropping undecodable telegram update", "error", err)
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	if err := h.processor.Handle(c.Request.Context(), update); err != nil {
		h.log.Error("telegram update failed", "updateId", update.UpdateID, "error", err)
		httpkit.Error(c, http.StatusInternalServerError, msgUpdateFailed, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
