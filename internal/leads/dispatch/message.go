package dispatch

import (
	"html"
	"strings"

	"dealer_crm_backend/internal/leads/domain"
	"dealer_crm_backend/internal/leads/ports"
	"dealer_crm_backend/internal/leads/repository"
	"dealer_crm_backend/platform/phone"

	"github.com/google/uuid"
)

// Callback data prefixes for the inline menu.
const (
	ActionAccept = "accept_"
	ActionReject = "reject_"
)

// AcceptData is the callback payload of the accept button.
func AcceptData(leadID uuid.UUID) string { return ActionAccept + leadID.String() }

// RejectData is the callback payload of the reject button.
func RejectData(leadID uuid.UUID) string { return ActionReject + leadID.String() }

// BuildLeadCard renders the notification for a lead. Every free-text field is
// HTML-escaped because the message is sent with the HTML parse mode.
func BuildLeadCard(lead repository.Lead) (string, [][]ports.Button) {
	var b strings.Builder
	b.WriteString("🔔 <b>Новая заявка</b>\n\n")
	b.WriteString("👤 <b>Имя:</b> " + html.EscapeString(lead.Name) + "\n")
	b.WriteString("📞 <b>Телефон:</b> " + html.EscapeString(lead.Phone) + "\n")
	b.WriteString("📍 <b>Город:</b> " + html.EscapeString(location(lead)) + "\n")
	b.WriteString("🌐 <b>Источник:</b> " + html.EscapeString(domain.SourceLabel(lead.Source)))
	if lead.Comment != nil && strings.TrimSpace(*lead.Comment) != "" {
		b.WriteString("\n💬 <b>Комментарий:</b> " + html.EscapeString(strings.TrimSpace(*lead.Comment)))
	}

	menu := [][]ports.Button{
		{
			{Text: "✅ Взять в работу", CallbackData: AcceptData(lead.ID)},
			{Text: "❌ Отклонить", CallbackData: RejectData(lead.ID)},
		},
		{
			{Text: "📞 Позвонить", URL: callLink(lead.Phone)},
		},
	}

	return b.String(), menu
}

func location(lead repository.Lead) string {
	if lead.Region == nil || strings.TrimSpace(*lead.Region) == "" {
		return lead.City
	}
	return lead.City + ", " + strings.TrimSpace(*lead.Region)
}

func callLink(raw string) string {
	return "https://t.me/" + phone.Digits(raw)
}
