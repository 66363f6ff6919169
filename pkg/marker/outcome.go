package marker

import "strings"

// Outcome is the result of parsing an ACTION_OUTCOME: line from an
// action task's response. The scheduler must extract this before any
// other marker processing happens, since it governs retry/completion.
type Outcome struct {
	Success bool
	Reason  string // only meaningful when !Success
	Present bool   // false if no ACTION_OUTCOME marker was found at all
}

// ExtractActionOutcome finds the (single, last-wins) ACTION_OUTCOME:
// marker and returns the parsed outcome plus the text with it stripped.
// Per the documented policy, a missing marker is not an error: the
// caller is expected to treat Present==false as success with a logged
// warning.
func ExtractActionOutcome(text string) (Outcome, string) {
	values, remaining := ExtractValued(text, ActionOutcome)
	outcome := Outcome{}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if strings.EqualFold(v, "success") {
			outcome = Outcome{Success: true, Present: true}
			continue
		}
		kind, reason, ok := strings.Cut(v, "|")
		if ok && strings.EqualFold(strings.TrimSpace(kind), "failed") {
			outcome = Outcome{Success: false, Reason: strings.TrimSpace(reason), Present: true}
		}
	}
	return outcome, remaining
}
