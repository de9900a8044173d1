// internal/intake/template/selector.go

// Package template selects the cover sheet layout for an agent role and
// flattens a draft into the placeholder map the renderer substitutes into it.
package template

import "strings"

type TemplateID string

const (
	TemplateSeller    TemplateID = "seller-cover-sheet"
	TemplateBuyer     TemplateID = "buyer-cover-sheet"
	TemplateDualAgent TemplateID = "dual-agent-cover-sheet"
)

// Select maps an agent role to a template. The role string is normalized and
// matched by substring in LISTING/SELLER, BUYER, DUAL order. An unmatched role
// falls back to the buyer template; this mirrors the historical behavior and
// is intentionally not treated as an error.
func Select(agentRole string) TemplateID {
	role := strings.ToUpper(strings.TrimSpace(agentRole))

	switch {
	case strings.Contains(role, "LISTING"), strings.Contains(role, "SELLER"):
		return TemplateSeller
	case strings.Contains(role, "BUYER"):
		return TemplateBuyer
	case strings.Contains(role, "DUAL"):
		return TemplateDualAgent
	default:
		return TemplateBuyer
	}
}
