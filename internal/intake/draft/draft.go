// internal/intake/draft/draft.go

// Package draft holds the in-progress transaction form data and the wizard
// step table. A TransactionDraft is a value: every mutation helper returns a
// new copy and leaves the receiver untouched.
package draft

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

type AgentRole string

const (
	RoleListingAgent AgentRole = "LISTING_AGENT"
	RoleBuyersAgent  AgentRole = "BUYERS_AGENT"
	RoleDualAgent    AgentRole = "DUAL_AGENT"
)

// AgentRoles is the fixed enumerated set accepted by the record mapper.
var AgentRoles = []string{
	string(RoleListingAgent),
	string(RoleBuyersAgent),
	string(RoleDualAgent),
}

type ClientType string

const (
	ClientBuyer  ClientType = "BUYER"
	ClientSeller ClientType = "SELLER"
)

type MaritalStatus string

const (
	MaritalSingle   MaritalStatus = "SINGLE"
	MaritalMarried  MaritalStatus = "MARRIED"
	MaritalDivorced MaritalStatus = "DIVORCED"
	MaritalWidowed  MaritalStatus = "WIDOWED"
)

type Property struct {
	Address         string `json:"address"`
	MLSNumber       string `json:"mlsNumber"`
	SalePrice       string `json:"salePrice"`
	OccupancyStatus string `json:"occupancyStatus"`
	Winterized      bool   `json:"winterized"`
	UpdateMLS       bool   `json:"updateMls"`
}

type Client struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Email         string        `json:"email"`
	Phone         string        `json:"phone"`
	Address       string        `json:"address"`
	MaritalStatus MaritalStatus `json:"maritalStatus"`
	Type          ClientType    `json:"type"`
}

type Commission struct {
	TotalPercent        string `json:"totalPercent"`
	ListingAgentPercent string `json:"listingAgentPercent"`
	BuyersAgentPercent  string `json:"buyersAgentPercent"`
	HasReferral         bool   `json:"hasReferral"`
	ReferralParty       string `json:"referralParty"`
	ReferralFee         string `json:"referralFee"`
	BrokerEIN           string `json:"brokerEin"`
}

type AdditionalInfo struct {
	Notes               string `json:"notes"`
	SpecialInstructions string `json:"specialInstructions"`
	RequiresFollowUp    bool   `json:"requiresFollowUp"`
}

type Signature struct {
	Name          string `json:"name"`
	TermsAccepted bool   `json:"termsAccepted"`
	InfoConfirmed bool   `json:"infoConfirmed"`
}

// TransactionDraft is the aggregate root for one wizard session.
type TransactionDraft struct {
	AgentRole      AgentRole       `json:"agentRole"`
	Property       Property        `json:"property"`
	Clients        []Client        `json:"clients"`
	Commission     Commission      `json:"commission"`
	Documents      map[string]bool `json:"documents"`
	AdditionalInfo AdditionalInfo  `json:"additionalInfo"`
	Signature      Signature       `json:"signature"`
}

// New returns a fresh empty draft.
func New() TransactionDraft {
	return TransactionDraft{
		Documents: map[string]bool{},
	}
}

// Clone returns a deep copy. The struct fields copy by value; only the
// clients slice and documents map need explicit duplication.
func (d TransactionDraft) Clone() TransactionDraft {
	out := d
	out.Clients = make([]Client, len(d.Clients))
	copy(out.Clients, d.Clients)
	out.Documents = make(map[string]bool, len(d.Documents))
	for k, v := range d.Documents {
		out.Documents[k] = v
	}
	return out
}

// NewClient builds a client with a fresh session-stable id.
func NewClient(clientType ClientType) Client {
	return Client{
		ID:   uuid.New().String(),
		Type: clientType,
	}
}

// InferredClientType maps the agent role to the client type an "add client"
// action creates. Dual agents must pick; the caller's fallback is BUYER.
func (r AgentRole) InferredClientType() (ClientType, bool) {
	switch r {
	case RoleListingAgent:
		return ClientSeller, true
	case RoleBuyersAgent:
		return ClientBuyer, true
	default:
		return ClientBuyer, false
	}
}

// HasClientType reports whether any client of the given type exists.
func (d TransactionDraft) HasClientType(t ClientType) bool {
	for _, c := range d.Clients {
		if c.Type == t {
			return true
		}
	}
	return false
}

// ClientIndex returns the position of the client with the given id, or -1.
func (d TransactionDraft) ClientIndex(id string) int {
	for i, c := range d.Clients {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// WithField returns a copy of the draft with the field at the dotted path
// replaced. Client fields are addressed as clients.<id>.<field>.
func (d TransactionDraft) WithField(path string, value interface{}) (TransactionDraft, error) {
	out := d.Clone()

	if strings.HasPrefix(path, "documents.") {
		out.Documents[strings.TrimPrefix(path, "documents.")] = asBool(value)
		return out, nil
	}

	if strings.HasPrefix(path, "clients.") {
		return out.withClientField(strings.TrimPrefix(path, "clients."), value)
	}

	switch path {
	case "agentRole":
		out.AgentRole = AgentRole(strings.ToUpper(strings.TrimSpace(asString(value))))
	case "property.address":
		out.Property.Address = asString(value)
	case "property.mlsNumber":
		out.Property.MLSNumber = asString(value)
	case "property.salePrice":
		out.Property.SalePrice = asString(value)
	case "property.occupancyStatus":
		out.Property.OccupancyStatus = asString(value)
	case "property.winterized":
		out.Property.Winterized = asBool(value)
	case "property.updateMls":
		out.Property.UpdateMLS = asBool(value)
	case "commission.totalPercent":
		out.Commission.TotalPercent = asString(value)
	case "commission.listingAgentPercent":
		out.Commission.ListingAgentPercent = asString(value)
	case "commission.buyersAgentPercent":
		out.Commission.BuyersAgentPercent = asString(value)
	case "commission.hasReferral":
		out.Commission.HasReferral = asBool(value)
	case "commission.referralParty":
		out.Commission.ReferralParty = asString(value)
	case "commission.referralFee":
		out.Commission.ReferralFee = asString(value)
	case "commission.brokerEin":
		out.Commission.BrokerEIN = asString(value)
	case "additionalInfo.notes":
		out.AdditionalInfo.Notes = asString(value)
	case "additionalInfo.specialInstructions":
		out.AdditionalInfo.SpecialInstructions = asString(value)
	case "additionalInfo.requiresFollowUp":
		out.AdditionalInfo.RequiresFollowUp = asBool(value)
	case "signature.name":
		out.Signature.Name = asString(value)
	case "signature.termsAccepted":
		out.Signature.TermsAccepted = asBool(value)
	case "signature.infoConfirmed":
		out.Signature.InfoConfirmed = asBool(value)
	default:
		return d, fmt.Errorf("unknown field path: %s", path)
	}
	return out, nil
}

func (d TransactionDraft) withClientField(rest string, value interface{}) (TransactionDraft, error) {
	parts := strings.SplitN(rest, ".", 2)
	if len(parts) != 2 {
		return d, fmt.Errorf("client field path must be clients.<id>.<field>")
	}
	idx := d.ClientIndex(parts[0])
	if idx < 0 {
		return d, fmt.Errorf("unknown client id: %s", parts[0])
	}

	c := &d.Clients[idx]
	switch parts[1] {
	case "name":
		c.Name = asString(value)
	case "email":
		c.Email = asString(value)
	case "phone":
		c.Phone = asString(value)
	case "address":
		c.Address = asString(value)
	case "maritalStatus":
		c.MaritalStatus = MaritalStatus(strings.ToUpper(strings.TrimSpace(asString(value))))
	case "type":
		c.Type = ClientType(strings.ToUpper(strings.TrimSpace(asString(value))))
	default:
		return d, fmt.Errorf("unknown client field: %s", parts[1])
	}
	return d, nil
}

// Value resolves a top-level dotted path to its current value. Missing or
// unknown paths resolve to nil rather than an error so validators can treat
// them as empty.
func (d TransactionDraft) Value(path string) interface{} {
	if strings.HasPrefix(path, "documents.") {
		return d.Documents[strings.TrimPrefix(path, "documents.")]
	}

	switch path {
	case "agentRole":
		return string(d.AgentRole)
	case "property.address":
		return d.Property.Address
	case "property.mlsNumber":
		return d.Property.MLSNumber
	case "property.salePrice":
		return d.Property.SalePrice
	case "property.occupancyStatus":
		return d.Property.OccupancyStatus
	case "property.winterized":
		return d.Property.Winterized
	case "property.updateMls":
		return d.Property.UpdateMLS
	case "commission.totalPercent":
		return d.Commission.TotalPercent
	case "commission.listingAgentPercent":
		return d.Commission.ListingAgentPercent
	case "commission.buyersAgentPercent":
		return d.Commission.BuyersAgentPercent
	case "commission.hasReferral":
		return d.Commission.HasReferral
	case "commission.referralParty":
		return d.Commission.ReferralParty
	case "commission.referralFee":
		return d.Commission.ReferralFee
	case "commission.brokerEin":
		return d.Commission.BrokerEIN
	case "additionalInfo.notes":
		return d.AdditionalInfo.Notes
	case "additionalInfo.specialInstructions":
		return d.AdditionalInfo.SpecialInstructions
	case "additionalInfo.requiresFollowUp":
		return d.AdditionalInfo.RequiresFollowUp
	case "signature.name":
		return d.Signature.Name
	case "signature.termsAccepted":
		return d.Signature.TermsAccepted
	case "signature.infoConfirmed":
		return d.Signature.InfoConfirmed
	default:
		return nil
	}
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		// JSON numbers decode to float64. Format without an exponent so large
		// amounts stay plain decimal strings.
		return strconv.FormatFloat(s, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}

func asBool(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.EqualFold(b, "true") || b == "1" || strings.EqualFold(b, "yes")
	default:
		return false
	}
}
