package utils

import "strings"

// ToStringSlice keeps the non-blank string elements of a decoded JSON array,
// such as an Okta "groups" claim. Other element types are dropped.
func ToStringSlice(slice []any) []string {
	out := make([]string, 0, len(slice))
	for _, v := range slice {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
