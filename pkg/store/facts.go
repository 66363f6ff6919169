package store

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFact is wrapped by every validation rejection from
// ValidateFact, so callers can errors.Is on one sentinel.
var ErrInvalidFact = errors.New("store: invalid fact")

// ValidateFact applies the conservative fact sanitizer from the data
// model: it is easier to re-ask the user than to pollute the profile
// with junk. Rejections are warnings upstream, never user-visible
// errors.
func ValidateFact(key, value string) error {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" || value == "" {
		return fmt.Errorf("%w: empty key or value", ErrInvalidFact)
	}
	if len(key) > 50 {
		return fmt.Errorf("%w: key too long (%d chars)", ErrInvalidFact, len(key))
	}
	if len(value) > 200 {
		return fmt.Errorf("%w: value too long (%d chars)", ErrInvalidFact, len(value))
	}
	if SystemFactKeys[strings.ToLower(key)] {
		return fmt.Errorf("%w: system key %q", ErrInvalidFact, key)
	}
	if key[0] >= '0' && key[0] <= '9' {
		return fmt.Errorf("%w: numeric-leading key %q", ErrInvalidFact, key)
	}
	if strings.HasPrefix(value, "$") {
		return fmt.Errorf("%w: value starts with $", ErrInvalidFact)
	}
	if strings.Count(value, "|") >= 2 {
		return fmt.Errorf("%w: pipe-delimited table", ErrInvalidFact)
	}
	if looksLikePrice(value) {
		return fmt.Errorf("%w: price-like value %q", ErrInvalidFact, value)
	}
	return nil
}

// looksLikePrice reports whether value consists only of digits, dots,
// commas, and minus signs — the shape of a raw number or price the
// model sometimes tries to memorize as a "fact".
func looksLikePrice(value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i < len(value); i++ {
		switch c := value[i]; {
		case c >= '0' && c <= '9', c == '.', c == ',', c == '-':
		default:
			return false
		}
	}
	return true
}
