// Package strings provides string slice helpers shared by request and model code.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each element and drops empty and repeated values,
// keeping first-seen order.
//
//	DedupeAndTrim([]string{" first aid ", "logistics", "first aid", "  "})
//	// []string{"first aid", "logistics"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}
