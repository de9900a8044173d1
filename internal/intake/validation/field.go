// internal/intake/validation/field.go

// Package validation implements the per-field and per-step form checks. All
// functions are pure: same input, same verdict, no side effects.
package validation

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Predefined patterns
var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	nonDigitRegex = regexp.MustCompile(`[^\d]`)
)

const (
	msgRequired      = "required"
	msgInvalidEmail  = "invalid email"
	msgInvalidPhone  = "invalid phone"
	msgInvalidAmount = "invalid amount"
)

// optionalFields are exempt from the presence rule. Format rules still apply
// when a value is present.
var optionalFields = map[string]bool{
	"property.winterized":                true,
	"property.updateMls":                 true,
	"commission.listingAgentPercent":     true,
	"commission.buyersAgentPercent":      true,
	"commission.hasReferral":             true,
	"additionalInfo.notes":               true,
	"additionalInfo.specialInstructions": true,
	"additionalInfo.requiresFollowUp":    true,
	"maritalStatus":                      true,
}

// ValidateField checks a single field value against the rule table. It returns
// an error message, or "" when the value passes. The first matching rule wins:
// presence, then email shape, then phone shape, then monetary shape, keyed off
// the field name.
func ValidateField(fieldName string, rawValue interface{}) string {
	if isEmpty(rawValue) {
		if optionalFields[fieldName] || optionalFields[leafName(fieldName)] {
			return ""
		}
		return msgRequired
	}

	str, ok := rawValue.(string)
	if !ok {
		// Non-string values (booleans, numbers already coerced upstream) have
		// no format rules beyond presence.
		return ""
	}
	str = strings.TrimSpace(str)

	// Rules key off the leaf segment so "commission.brokerEin" does not match
	// the amount keywords through its parent path.
	name := strings.ToLower(leafName(fieldName))
	switch {
	case strings.Contains(name, "email"):
		if !emailRegex.MatchString(str) {
			return msgInvalidEmail
		}
	case strings.Contains(name, "phone"):
		if !validPhone(str) {
			return msgInvalidPhone
		}
	case strings.Contains(name, "price") ||
		strings.Contains(name, "cost") ||
		strings.Contains(name, "commission") ||
		strings.Contains(name, "fee") ||
		strings.Contains(name, "percent"):
		if !validAmount(str) {
			return msgInvalidAmount
		}
	}
	return ""
}

// isEmpty implements the presence rule: nil, empty string, empty list, or an
// unset acceptance flag all count as missing.
func isEmpty(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case bool:
		return !val
	case []interface{}:
		return len(val) == 0
	case []string:
		return len(val) == 0
	default:
		return false
	}
}

// validPhone accepts common US formatting like "(215) 555-1234" as long as the
// normalized digit count is exactly 10.
func validPhone(s string) bool {
	digits := nonDigitRegex.ReplaceAllString(s, "")
	return len(digits) == 10
}

// validAmount strips an optional leading "$" and thousands separators, then
// requires a non-negative decimal with at most two fraction digits.
func validAmount(s string) bool {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return false
	}
	if d.IsNegative() {
		return false
	}
	return d.Exponent() >= -2
}

// leafName returns the last path segment, so per-client fields like
// clients.<id>.maritalStatus match the optional table.
func leafName(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i+1:]
	}
	return path
}
