// internal/intake/draft/steps.go
package draft

// WizardStep describes one screen of the intake wizard: a human label plus the
// dotted paths that must be filled before the step counts as complete. The
// table is static; navigation past an incomplete step is allowed and the list
// is only enforced at final submission.
type WizardStep struct {
	ID             int
	Label          string
	RequiredFields []string

	// RequiresClients marks the step that validates the per-client field set
	// (ClientFields) against every client in the draft.
	RequiresClients bool
}

// ClientFields are the per-client fields checked on the client step.
var ClientFields = []string{"name", "email", "phone", "address"}

// Steps is the wizard layout, in order. IDs are 1-based.
var Steps = []WizardStep{
	{
		ID:             1,
		Label:          "Agent Role",
		RequiredFields: []string{"agentRole"},
	},
	{
		ID:    2,
		Label: "Property Details",
		RequiredFields: []string{
			"property.address",
			"property.mlsNumber",
			"property.salePrice",
			"property.occupancyStatus",
		},
	},
	{
		ID:              3,
		Label:           "Client Information",
		RequiresClients: true,
	},
	{
		ID:    4,
		Label: "Commission",
		RequiredFields: []string{
			"commission.totalPercent",
			"commission.brokerEin",
		},
	},
	{
		ID:    5,
		Label: "Documents",
	},
	{
		ID:    6,
		Label: "Additional Information",
	},
	{
		ID:    7,
		Label: "Sign & Submit",
		RequiredFields: []string{
			"signature.name",
			"signature.termsAccepted",
			"signature.infoConfirmed",
		},
	},
}

// TotalSteps is the number of wizard screens.
var TotalSteps = len(Steps)

// StepByID returns the step definition, or false for out-of-range ids.
func StepByID(id int) (WizardStep, bool) {
	for _, s := range Steps {
		if s.ID == id {
			return s, true
		}
	}
	return WizardStep{}, false
}
