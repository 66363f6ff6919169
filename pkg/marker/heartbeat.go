package marker

import "strconv"
import "strings"

// HeartbeatOKToken is the literal the heartbeat loop's own prompt asks
// the model to reply with when nothing needs attention.
const HeartbeatOKToken = "HEARTBEAT_OK"

// ExtractHeartbeatAdds returns every HEARTBEAT_ADD: checklist item, in
// order.
func ExtractHeartbeatAdds(text string) (items []string, remaining string) {
	values, remaining := ExtractValued(text, HeartbeatAdd)
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			items = append(items, v)
		}
	}
	return items, remaining
}

// ExtractHeartbeatRemoves returns every HEARTBEAT_REMOVE: substring.
func ExtractHeartbeatRemoves(text string) (substrings []string, remaining string) {
	values, remaining := ExtractValued(text, HeartbeatRemove)
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			substrings = append(substrings, v)
		}
	}
	return substrings, remaining
}

// ExtractHeartbeatInterval returns the last valid HEARTBEAT_INTERVAL:
// value within the 1-1440 minute range described in spec.md; values
// outside the range, or non-numeric, are silently skipped.
func ExtractHeartbeatInterval(text string) (minutes int, found bool, remaining string) {
	values, remaining := ExtractValued(text, HeartbeatInterval)
	for _, v := range values {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 1 || n > 1440 {
			continue
		}
		minutes, found = n, true
	}
	return minutes, found, remaining
}

// ExtractHeartbeatSuppress returns every section name to suppress.
func ExtractHeartbeatSuppress(text string) (sections []string, remaining string) {
	values, remaining := ExtractValued(text, HeartbeatSuppressSection)
	return trimmedNonEmpty(values), remaining
}

// ExtractHeartbeatUnsuppress returns every section name to unsuppress.
func ExtractHeartbeatUnsuppress(text string) (sections []string, remaining string) {
	values, remaining := ExtractValued(text, HeartbeatUnsuppressSection)
	return trimmedNonEmpty(values), remaining
}

func trimmedNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// stripTokenAtEdges repeatedly removes token from the start or end of
// text (after trimming whitespace around it) until neither edge matches,
// reporting whether any stripping occurred.
func stripTokenAtEdges(raw, token string) (string, bool) {
	text := strings.TrimSpace(raw)
	if text == "" || !strings.Contains(text, token) {
		return text, false
	}
	didStrip := false
	for {
		next := strings.TrimSpace(text)
		switch {
		case strings.HasPrefix(next, token):
			text = strings.TrimLeft(next[len(token):], " \t\r\n")
			didStrip = true
		case strings.HasSuffix(next, token):
			text = strings.TrimRight(next[:len(next)-len(token)], " \t\r\n")
			didStrip = true
		default:
			return next, didStrip
		}
	}
}

// StripHeartbeatOK removes a HEARTBEAT_OK token from either edge of text,
// tolerating markdown/HTML wrapping, and reports whether the token was
// present at all (regardless of whether the rest of the text is empty).
func StripHeartbeatOK(text string) (stripped string, wasPresent bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", false
	}
	normalized := StripMarkup(trimmed)
	if !strings.Contains(trimmed, HeartbeatOKToken) && !strings.Contains(normalized, HeartbeatOKToken) {
		return trimmed, false
	}
	if out, did := stripTokenAtEdges(trimmed, HeartbeatOKToken); did {
		return out, true
	}
	if out, did := stripTokenAtEdges(normalized, HeartbeatOKToken); did {
		return out, true
	}
	return trimmed, false
}
