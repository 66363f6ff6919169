package scheduler

import (
	"strings"
	"time"
)

// ParseInterval parses a config poll-interval string ("30s", "1m",
// "500ms", or a bare number of seconds) with a floor of one second and
// a fallback default for anything unparsable.
func ParseInterval(raw string, fallback time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		if d < time.Second {
			return time.Second
		}
		return d
	}
	// Bare seconds, the way the original config expressed it.
	if d, err := time.ParseDuration(raw + "s"); err == nil && d >= time.Second {
		return d
	}
	return fallback
}
