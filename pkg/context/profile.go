package context

import (
	"fmt"
	"strings"

	"github.com/omega-agent/omega/pkg/store"
)

// identityKeys are shown first in the formatted user profile.
var identityKeys = []string{"name", "preferred_name", "pronouns"}

// contextKeys are shown second, after identity keys.
var contextKeys = []string{"timezone", "location", "occupation"}

// FormatUserProfile renders a sender's non-system facts into the
// "User profile:" block, with identity facts first, context facts
// second, and everything else in original insertion order. Returns ""
// when only system facts exist.
func FormatUserProfile(facts []store.Fact) string {
	byKey := map[string]string{}
	order := make([]string, 0, len(facts))
	for _, f := range facts {
		if store.SystemFactKeys[f.Key] {
			continue
		}
		if _, seen := byKey[f.Key]; !seen {
			order = append(order, f.Key)
		}
		byKey[f.Key] = f.Value
	}
	if len(order) == 0 {
		return ""
	}

	known := map[string]bool{}
	var lines []string
	lines = append(lines, "User profile:")
	for _, k := range identityKeys {
		if v, ok := byKey[k]; ok {
			lines = append(lines, fmt.Sprintf("- %s: %s", k, v))
			known[k] = true
		}
	}
	for _, k := range contextKeys {
		if v, ok := byKey[k]; ok {
			lines = append(lines, fmt.Sprintf("- %s: %s", k, v))
			known[k] = true
		}
	}
	for _, k := range order {
		if known[k] {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", k, byKey[k]))
	}
	return strings.Join(lines, "\n")
}
