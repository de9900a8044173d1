// internal/intake/record/mapper.go

// Package record translates a finished draft into the external record store's
// wire shape. Keys are the store's stable field identifiers, never display
// names, so admin-side column renames don't break submissions.
package record

import (
	"fmt"
	"sort"
	"strings"
	"time"

	stderrors "transaction-intake/internal/common/errors"
	"transaction-intake/internal/intake/draft"

	"github.com/shopspring/decimal"
)

// Airtable field identifiers for the transactions table.
const (
	FieldAgentRole       = "fldFD9tBF4BofKvMY"
	FieldAddress         = "fldypnfnHhplWYcCW"
	FieldMLSNumber       = "fld6O2FgIXQU5G27o"
	FieldSalePrice       = "fldhHjBZJISmnP8SK"
	FieldOccupancy       = "fldV2eLxz6w0TpLFU"
	FieldWinterized      = "fldExdgBDgdB1i9jy"
	FieldUpdateMLS       = "fldw3GlfvKtyf3Hyu"
	FieldSellerNames     = "fldSqxNOZ9B5PgSab"
	FieldBuyerNames      = "fldeHKiUreeDs5n4o"
	FieldClientEmails    = "fldqeArDeRkxiYz9u"
	FieldClientPhones    = "fldBnh8W6iGW014yY"
	FieldTotalCommission = "fldE8INzEorBtx2uN"
	FieldListingPercent  = "flduuQQT7o6XAGlRe"
	FieldBuyersPercent   = "fld5KRrToAAt5kOLd"
	FieldHasReferral     = "fldewmjoaJVwiMF46"
	FieldReferralParty   = "fldzVtmn8uylVwuTF"
	FieldReferralFee     = "fldzUtcjkqPnEldP8"
	FieldBrokerEIN       = "fld20VbKbWzdR4Sp7"
	FieldDocuments       = "fldrh8eB5V8TjSZLJ"
	FieldNotes           = "fld30htJ7euVerCLW"
	FieldFollowUp        = "fldIG7LFmo1Sro6Oz"
	FieldSignedBy        = "fldFAudrTA4X7KiT7"
	FieldSubmittedAt     = "fld0pzvhRRgvs3BSp"
)

// ExternalRecord is the field-ID keyed payload for the record store.
type ExternalRecord map[string]interface{}

// ToExternalRecord converts a draft into the external record shape. It
// validates the agent role against the fixed enum, checks the role/client-type
// consistency invariant, and reports every missing required field at once so
// the caller can surface all problems together. It performs no I/O.
func ToExternalRecord(d draft.TransactionDraft) (ExternalRecord, error) {
	role := string(d.AgentRole)
	if role != "" && !validRole(role) {
		return nil, stderrors.NewInvalidEnumError("agentRole", role, draft.AgentRoles)
	}

	var missing []string
	if role == "" {
		missing = append(missing, "agentRole")
	}
	if !hasClientWithAddress(d) {
		missing = append(missing, "clients[].address")
	}
	if len(missing) > 0 {
		return nil, stderrors.NewMissingFieldsError(missing)
	}

	if err := checkRoleClients(d); err != nil {
		return nil, err
	}

	rec := ExternalRecord{
		FieldAgentRole:   role,
		FieldAddress:     d.Property.Address,
		FieldMLSNumber:   d.Property.MLSNumber,
		FieldOccupancy:   d.Property.OccupancyStatus,
		FieldWinterized:  d.Property.Winterized,
		FieldUpdateMLS:   d.Property.UpdateMLS,
		FieldHasReferral: d.Commission.HasReferral,
		FieldBrokerEIN:   d.Commission.BrokerEIN,
		FieldNotes:       d.AdditionalInfo.Notes,
		FieldFollowUp:    d.AdditionalInfo.RequiresFollowUp,
		FieldSignedBy:    d.Signature.Name,
		FieldSubmittedAt: time.Now().UTC().Format(time.RFC3339),
	}

	setAmount(rec, FieldSalePrice, d.Property.SalePrice)
	setAmount(rec, FieldTotalCommission, d.Commission.TotalPercent)
	setAmount(rec, FieldListingPercent, d.Commission.ListingAgentPercent)
	setAmount(rec, FieldBuyersPercent, d.Commission.BuyersAgentPercent)
	setAmount(rec, FieldReferralFee, d.Commission.ReferralFee)
	if d.Commission.ReferralParty != "" {
		rec[FieldReferralParty] = d.Commission.ReferralParty
	}

	rec[FieldSellerNames] = joinClientField(d, draft.ClientSeller, func(c draft.Client) string { return c.Name })
	rec[FieldBuyerNames] = joinClientField(d, draft.ClientBuyer, func(c draft.Client) string { return c.Name })
	rec[FieldClientEmails] = joinClientField(d, "", func(c draft.Client) string { return c.Email })
	rec[FieldClientPhones] = joinClientField(d, "", func(c draft.Client) string { return c.Phone })
	rec[FieldDocuments] = includedDocuments(d)

	return rec, nil
}

func validRole(role string) bool {
	for _, r := range draft.AgentRoles {
		if role == r {
			return true
		}
	}
	return false
}

func hasClientWithAddress(d draft.TransactionDraft) bool {
	for _, c := range d.Clients {
		if strings.TrimSpace(c.Address) != "" {
			return true
		}
	}
	return false
}

// checkRoleClients enforces the aggregate invariant: the client list must
// contain the type(s) the agent role implies.
func checkRoleClients(d draft.TransactionDraft) error {
	needSeller := d.AgentRole == draft.RoleListingAgent || d.AgentRole == draft.RoleDualAgent
	needBuyer := d.AgentRole == draft.RoleBuyersAgent || d.AgentRole == draft.RoleDualAgent

	if needSeller && !d.HasClientType(draft.ClientSeller) {
		return stderrors.NewMappingError(
			fmt.Sprintf("agent role %s requires at least one SELLER client", d.AgentRole))
	}
	if needBuyer && !d.HasClientType(draft.ClientBuyer) {
		return stderrors.NewMappingError(
			fmt.Sprintf("agent role %s requires at least one BUYER client", d.AgentRole))
	}
	return nil
}

// setAmount parses a user-entered money/percent string into a number. Fields
// that are empty or unparseable are simply omitted; the validator has already
// gated required amounts by this point.
func setAmount(rec ExternalRecord, fieldID, raw string) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "$")
	raw = strings.ReplaceAll(raw, ",", "")
	if raw == "" {
		return
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return
	}
	f, _ := d.Float64()
	rec[fieldID] = f
}

// joinClientField joins one field across clients, optionally filtered by type.
func joinClientField(d draft.TransactionDraft, t draft.ClientType, get func(draft.Client) string) string {
	var values []string
	for _, c := range d.Clients {
		if t != "" && c.Type != t {
			continue
		}
		if v := get(c); v != "" {
			values = append(values, v)
		}
	}
	return strings.Join(values, ", ")
}

func includedDocuments(d draft.TransactionDraft) string {
	var names []string
	for name, included := range d.Documents {
		if included {
			names = append(names, name)
		}
	}
	// Stable ordering keeps the record deterministic for the same draft.
	sort.Strings(names)
	return strings.Join(names, ", ")
}
