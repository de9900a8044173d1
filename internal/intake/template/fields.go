// internal/intake/template/fields.go
package template

import (
	"sort"
	"strings"

	"transaction-intake/internal/intake/draft"
)

// Fields flattens a draft into the placeholder map for cover sheet rendering.
// The mapping is total: it never fails, and missing data becomes an empty
// string. Numbers stay decimal strings, booleans render as YES/NO, and client
// names are joined with ", " when a type has several clients.
func Fields(d draft.TransactionDraft) map[string]string {
	sellers := clientsOfType(d, draft.ClientSeller)
	buyers := clientsOfType(d, draft.ClientBuyer)

	fields := map[string]string{
		"agentRole":           string(d.AgentRole),
		"propertyAddress":     d.Property.Address,
		"mlsNumber":           d.Property.MLSNumber,
		"salePrice":           d.Property.SalePrice,
		"occupancyStatus":     d.Property.OccupancyStatus,
		"winterized":          yesNo(d.Property.Winterized),
		"updateMls":           yesNo(d.Property.UpdateMLS),
		"totalCommission":     d.Commission.TotalPercent,
		"listingAgentPercent": d.Commission.ListingAgentPercent,
		"buyersAgentPercent":  d.Commission.BuyersAgentPercent,
		"referral":            yesNo(d.Commission.HasReferral),
		"referralParty":       d.Commission.ReferralParty,
		"referralFee":         d.Commission.ReferralFee,
		"brokerEin":           d.Commission.BrokerEIN,
		"sellerNames":         joinNames(sellers),
		"sellerAddress":       firstAddress(sellers),
		"sellerPhone":         firstPhone(sellers),
		"buyerNames":          joinNames(buyers),
		"buyerAddress":        firstAddress(buyers),
		"buyerPhone":          firstPhone(buyers),
		"notes":               d.AdditionalInfo.Notes,
		"specialInstructions": d.AdditionalInfo.SpecialInstructions,
		"requiresFollowUp":    yesNo(d.AdditionalInfo.RequiresFollowUp),
		"signedBy":            d.Signature.Name,
		"documentsIncluded":   includedDocuments(d),
	}
	return fields
}

func clientsOfType(d draft.TransactionDraft, t draft.ClientType) []draft.Client {
	var out []draft.Client
	for _, c := range d.Clients {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

func joinNames(clients []draft.Client) string {
	names := make([]string, 0, len(clients))
	for _, c := range clients {
		if c.Name != "" {
			names = append(names, c.Name)
		}
	}
	return strings.Join(names, ", ")
}

func firstAddress(clients []draft.Client) string {
	for _, c := range clients {
		if c.Address != "" {
			return c.Address
		}
	}
	return ""
}

func firstPhone(clients []draft.Client) string {
	for _, c := range clients {
		if c.Phone != "" {
			return c.Phone
		}
	}
	return ""
}

func includedDocuments(d draft.TransactionDraft) string {
	var names []string
	for name, included := range d.Documents {
		if included {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func yesNo(v bool) string {
	if v {
		return "YES"
	}
	return "NO"
}
