package store

import (
	"strings"
	"testing"
)

func TestValidateFact(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
		ok    bool
	}{
		{"plain fact", "occupation", "software engineer", true},
		{"empty key", "", "x", false},
		{"empty value", "name", "", false},
		{"numeric-leading key", "3things", "stuff", false},
		{"dollar value", "budget", "$500", false},
		{"pipe table", "schedule", "mon | tue | wed", false},
		{"single pipe ok", "motto", "work | life", true},
		{"price-like", "networth", "1,234.56", false},
		{"negative number", "offset", "-42", false},
		{"number with words ok", "goal", "run 5 km", true},
		{"oversized key", strings.Repeat("k", 51), "v", false},
		{"oversized value", "bio", strings.Repeat("v", 201), false},
		{"system key", "welcomed", "true", false},
		{"system key case-insensitive", "Preferred_Language", "Spanish", false},
	}
	for _, tc := range cases {
		err := ValidateFact(tc.key, tc.value)
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected rejection: %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%s: expected rejection", tc.name)
		}
	}
}
