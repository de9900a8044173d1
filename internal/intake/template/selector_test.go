// internal/intake/template/selector_test.go
package template

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"transaction-intake/internal/intake/draft"
)

func TestSelect(t *testing.T) {
	tests := []struct {
		name string
		role string
		want TemplateID
	}{
		{"listing agent", "LISTING_AGENT", TemplateSeller},
		{"buyers agent", "BUYERS_AGENT", TemplateBuyer},
		{"dual agent", "DUAL_AGENT", TemplateDualAgent},
		{"lowercase with spaces", "  listing_agent  ", TemplateSeller},
		{"seller keyword", "SELLER_REP", TemplateSeller},
		{"unknown falls back to buyer", "unknown", TemplateBuyer},
		{"empty falls back to buyer", "", TemplateBuyer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Select(tt.role))
		})
	}
}

func TestFields_NeverFails(t *testing.T) {
	// Empty draft still produces a full map of empty strings and NO flags.
	fields := Fields(draft.New())

	assert.Equal(t, "", fields["propertyAddress"])
	assert.Equal(t, "", fields["sellerNames"])
	assert.Equal(t, "NO", fields["winterized"])
	assert.Equal(t, "NO", fields["referral"])
	assert.Equal(t, "", fields["documentsIncluded"])
}

func TestFields_FlattensDraft(t *testing.T) {
	d := draft.New()
	d.AgentRole = draft.RoleDualAgent
	d.Property = draft.Property{
		Address:    "123 Main St",
		SalePrice:  "450000",
		Winterized: true,
	}
	d.Clients = []draft.Client{
		{ID: "s1", Name: "Jane Seller", Phone: "2155551234", Address: "123 Main St", Type: draft.ClientSeller},
		{ID: "s2", Name: "John Seller", Type: draft.ClientSeller},
		{ID: "b1", Name: "Bob Buyer", Phone: "2155559999", Type: draft.ClientBuyer},
	}
	d.Documents["deed"] = true
	d.Documents["survey"] = true
	d.Documents["title"] = false

	fields := Fields(d)

	assert.Equal(t, "DUAL_AGENT", fields["agentRole"])
	assert.Equal(t, "450000", fields["salePrice"])
	assert.Equal(t, "YES", fields["winterized"])
	assert.Equal(t, "Jane Seller, John Seller", fields["sellerNames"])
	assert.Equal(t, "123 Main St", fields["sellerAddress"])
	assert.Equal(t, "Bob Buyer", fields["buyerNames"])
	assert.Equal(t, "2155559999", fields["buyerPhone"])
	assert.Equal(t, "deed, survey", fields["documentsIncluded"])
}

func TestFields_Deterministic(t *testing.T) {
	d := draft.New()
	d.Documents["c"] = true
	d.Documents["a"] = true
	d.Documents["b"] = true

	first := Fields(d)
	second := Fields(d)
	assert.Equal(t, first, second)
	assert.Equal(t, "a, b, c", first["documentsIncluded"])
}
