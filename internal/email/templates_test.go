package email

import (
	"strings"
	"testing"
	"time"
)

func TestRenderUnassignedLeadEscapesFields(t *testing.T) {
	content, err := renderUnassignedLead(UnassignedLead{
		Name:      "Aziz <script>",
		Phone:     "+998901234567",
		City:      "Samarkand",
		Region:    "Center",
		Source:    "Сайт",
		CreatedAt: time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC),
		LeadURL:   "https://crm.example.com/leads/1",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, want := range []string{"Aziz &lt;script&gt;", "Samarkand, Center", "не определен", "10.05.2026 12:00 UTC", "https://crm.example.com/leads/1"} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %q in rendered email", want)
		}
	}
	if strings.Contains(content, "<script>") {
		t.Fatal("expected lead fields to be escaped")
	}
}
