package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type unassignedLeadEmailData struct {
	baseEmailData
	Lead      UnassignedLead
	CreatedAt string
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func renderUnassignedLead(lead UnassignedLead) (string, error) {
	return renderEmailTemplate("unassigned_lead.html", unassignedLeadEmailData{
		baseEmailData: baseEmailData{
			Title:      "Заявка без менеджера",
			Heading:    "Новая заявка без менеджера",
			Subheading: "Назначьте ответственного в панели управления.",
			CTALabel:   "Открыть заявку",
			CTAURL:     lead.LeadURL,
		},
		Lead:      lead,
		CreatedAt: lead.CreatedAt.Format("02.01.2006 15:04 MST"),
	})
}
