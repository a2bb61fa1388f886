package email

import (
	"context"
	"time"

	"dealer_crm_backend/platform/config"
)

// UnassignedLead is the lead summary sent to administrators.
type UnassignedLead struct {
	Name       string
	Phone      string
	City       string
	Region     string
	Source     string
	TenantName string
	CreatedAt  time.Time
	LeadURL    string
}

type Sender interface {
	SendUnassignedLeadAlert(ctx context.Context, toEmail string, lead UnassignedLead) error
}

type NoopSender struct{}

func (NoopSender) SendUnassignedLeadAlert(ctx context.Context, toEmail string, lead UnassignedLead) error {
	return nil
}

// NewSender returns an SMTP sender, or a NoopSender when SMTP is not configured.
func NewSender(cfg config.EmailConfig) Sender {
	if !cfg.IsEmailEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(), cfg.GetSMTPPassword(), cfg.GetEmailFromAddress(), cfg.GetEmailFromName())
}
