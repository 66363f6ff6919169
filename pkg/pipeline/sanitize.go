package pipeline

import (
	"strings"
	"unicode"
)

const maxInputRunes = 8000

// sanitizeInput inspects one inbound text for suspicious content and
// returns warnings plus the (possibly truncated) text. Warnings are
// logged upstream but never block the message.
func sanitizeInput(text string) (clean string, warnings []string) {
	if strings.ContainsRune(text, 0) {
		warnings = append(warnings, "null byte in input")
		text = strings.ReplaceAll(text, "\x00", "")
	}

	controls := 0
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			controls++
		}
	}
	if controls > 0 {
		warnings = append(warnings, "control characters in input")
		text = strings.Map(func(r rune) rune {
			if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
				return -1
			}
			return r
		}, text)
	}

	if runes := []rune(text); len(runes) > maxInputRunes {
		warnings = append(warnings, "oversized input truncated")
		text = string(runes[:maxInputRunes])
	}

	lower := strings.ToLower(text)
	for _, phrase := range []string{"ignore previous instructions", "ignore all previous", "disregard your system prompt"} {
		if strings.Contains(lower, phrase) {
			warnings = append(warnings, "possible prompt injection: "+phrase)
			break
		}
	}
	return text, warnings
}
