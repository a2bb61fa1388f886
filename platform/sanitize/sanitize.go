// Package sanitize cleans free text coming from public forms and the dashboard
// before it is stored and later rendered into Telegram HTML cards.
package sanitize

import (
	"html"
	"regexp"
	"strings"
)

var (
	tagPattern        = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
	whitespacePattern = regexp.MustCompile(`[ \t]+`)
)

// Text strips markup, decodes entities and collapses runs of spaces.
// Tags hidden behind entities are stripped on the second pass.
func Text(s string) string {
	out := tagPattern.ReplaceAllString(s, "")
	out = html.UnescapeString(out)
	out = tagPattern.ReplaceAllString(out, "")
	out = whitespacePattern.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// Optional sanitizes an optional field. Blank results become nil.
func Optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := Text(*s)
	if v == "" {
		return nil
	}
	return &v
}
