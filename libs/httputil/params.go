package httputil

import (
	"strings"
)

// ParseBool interprets the loose set of boolean values commonly
// found in query strings.
func ParseBool(s string) bool {
	switch strings.ToLower(s) {
	case "yes", "1", "true":
		return true
	}
	return false
}
