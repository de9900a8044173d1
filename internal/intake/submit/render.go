// internal/intake/submit/render.go
package submit

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderRegex = regexp.MustCompile(`\{\{[a-zA-Z0-9_]+\}\}`)

// renderTemplate substitutes {{key}} placeholders with values from data.
// Unknown placeholders collapse to empty strings so a stale template never
// leaks braces into a sent email.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl

	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		if s, ok := v.(string); ok {
			value = s
		} else if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	return placeholderRegex.ReplaceAllString(result, "")
}
