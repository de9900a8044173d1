// internal/intake/record/schema.go
package record

import (
	"strings"

	stderrors "transaction-intake/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

// recordSchema describes the transactions table as the external store expects
// it. The mapper output is checked against it before any network call, so a
// drifted field type is caught locally instead of as an opaque 422.
const recordSchema = `{
	"type": "object",
	"additionalProperties": false,
	"required": ["` + FieldAgentRole + `", "` + FieldAddress + `", "` + FieldSubmittedAt + `"],
	"properties": {
		"` + FieldAgentRole + `": {"type": "string", "enum": ["LISTING_AGENT", "BUYERS_AGENT", "DUAL_AGENT"]},
		"` + FieldAddress + `": {"type": "string"},
		"` + FieldMLSNumber + `": {"type": "string"},
		"` + FieldSalePrice + `": {"type": "number", "minimum": 0},
		"` + FieldOccupancy + `": {"type": "string"},
		"` + FieldWinterized + `": {"type": "boolean"},
		"` + FieldUpdateMLS + `": {"type": "boolean"},
		"` + FieldSellerNames + `": {"type": "string"},
		"` + FieldBuyerNames + `": {"type": "string"},
		"` + FieldClientEmails + `": {"type": "string"},
		"` + FieldClientPhones + `": {"type": "string"},
		"` + FieldTotalCommission + `": {"type": "number", "minimum": 0},
		"` + FieldListingPercent + `": {"type": "number", "minimum": 0},
		"` + FieldBuyersPercent + `": {"type": "number", "minimum": 0},
		"` + FieldHasReferral + `": {"type": "boolean"},
		"` + FieldReferralParty + `": {"type": "string"},
		"` + FieldReferralFee + `": {"type": "number", "minimum": 0},
		"` + FieldBrokerEIN + `": {"type": "string"},
		"` + FieldDocuments + `": {"type": "string"},
		"` + FieldNotes + `": {"type": "string"},
		"` + FieldFollowUp + `": {"type": "boolean"},
		"` + FieldSignedBy + `": {"type": "string"},
		"` + FieldSubmittedAt + `": {"type": "string"}
	}
}`

var schemaLoader = gojsonschema.NewStringLoader(recordSchema)

// ValidateSchema checks a mapped record against the table schema.
func ValidateSchema(rec ExternalRecord) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(map[string]interface{}(rec)))
	if err != nil {
		return stderrors.NewSchemaMismatchError(err.Error())
	}
	if result.Valid() {
		return nil
	}

	var problems []string
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return stderrors.NewSchemaMismatchError(strings.Join(problems, "; "))
}
