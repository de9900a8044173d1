// internal/intake/validation/step.go
package validation

import (
	"fmt"

	"transaction-intake/internal/intake/draft"
)

// ValidateStep runs the field rules over the step's required-field list and
// returns a map of field path to error message. An empty map means the step is
// complete. The draft is never mutated; missing subtrees resolve to empty
// values instead of failing.
func ValidateStep(stepID int, d draft.TransactionDraft) map[string]string {
	result := map[string]string{}

	step, ok := draft.StepByID(stepID)
	if !ok {
		return result
	}

	for _, path := range step.RequiredFields {
		if msg := ValidateField(path, d.Value(path)); msg != "" {
			result[path] = msg
		}
	}

	if step.RequiresClients {
		validateClients(d, result)
	}

	// Referral fields are required only once a referral is declared.
	if stepID == 4 && d.Commission.HasReferral {
		for _, path := range []string{"commission.referralParty", "commission.referralFee"} {
			if msg := ValidateField(path, d.Value(path)); msg != "" {
				result[path] = msg
			}
		}
	}

	return result
}

func validateClients(d draft.TransactionDraft, result map[string]string) {
	if len(d.Clients) == 0 {
		result["clients"] = "at least one client is required"
		return
	}
	for _, c := range d.Clients {
		for _, field := range draft.ClientFields {
			path := fmt.Sprintf("clients.%s.%s", c.ID, field)
			if msg := ValidateField(path, clientValue(c, field)); msg != "" {
				result[path] = msg
			}
		}
	}
}

func clientValue(c draft.Client, field string) interface{} {
	switch field {
	case "name":
		return c.Name
	case "email":
		return c.Email
	case "phone":
		return c.Phone
	case "address":
		return c.Address
	case "maritalStatus":
		return string(c.MaritalStatus)
	default:
		return nil
	}
}

// ValidateAll runs every wizard step and merges the results. Used by the
// submission pipeline, where validation is a hard gate.
func ValidateAll(d draft.TransactionDraft) map[string]string {
	result := map[string]string{}
	for _, step := range draft.Steps {
		for path, msg := range ValidateStep(step.ID, d) {
			result[path] = msg
		}
	}
	return result
}
