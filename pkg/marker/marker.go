// Package marker implements the model-driven side-effect protocol: single
// line directives such as "SCHEDULE: call John | 2026-02-17T15:00:00 | once"
// embedded in otherwise free-form assistant text. Every function in this
// package is pure text transformation; nothing here touches the store,
// the clock, or the network.
package marker

import (
	"regexp"
	"strings"

	"github.com/omega-agent/omega/pkg/shared/stringutil"
)

// Name is a marker's uppercase keyword, without the trailing colon.
type Name string

const (
	Schedule                   Name = "SCHEDULE"
	ScheduleAction             Name = "SCHEDULE_ACTION"
	CancelTask                 Name = "CANCEL_TASK"
	UpdateTask                 Name = "UPDATE_TASK"
	LangSwitch                 Name = "LANG_SWITCH"
	Personality                Name = "PERSONALITY"
	ProjectActivate            Name = "PROJECT_ACTIVATE"
	ProjectDeactivate          Name = "PROJECT_DEACTIVATE"
	ForgetConversation         Name = "FORGET_CONVERSATION"
	PurgeFacts                 Name = "PURGE_FACTS"
	WhatsAppQR                 Name = "WHATSAPP_QR"
	HeartbeatAdd               Name = "HEARTBEAT_ADD"
	HeartbeatRemove            Name = "HEARTBEAT_REMOVE"
	HeartbeatInterval          Name = "HEARTBEAT_INTERVAL"
	HeartbeatSuppressSection   Name = "HEARTBEAT_SUPPRESS_SECTION"
	HeartbeatUnsuppressSection Name = "HEARTBEAT_UNSUPPRESS_SECTION"
	SkillImprove               Name = "SKILL_IMPROVE"
	BugReport                  Name = "BUG_REPORT"
	ActionOutcome              Name = "ACTION_OUTCOME"
)

// valuedMarkers carry a "NAME: value" form. bareMarkers are emitted as a
// standalone token with no colon or value. StripAll sweeps valuedMarkers
// and then bareMarkers in list order; the order is not significant,
// because a valued marker only matches with a literal colon right after
// its name (SCHEDULE: never matches inside SCHEDULE_ACTION:).
var valuedMarkers = []Name{
	Schedule, ScheduleAction, CancelTask, UpdateTask, LangSwitch, Personality,
	ProjectActivate, HeartbeatAdd, HeartbeatRemove, HeartbeatInterval,
	HeartbeatSuppressSection, HeartbeatUnsuppressSection, SkillImprove,
	BugReport, ActionOutcome,
}

var bareMarkers = []Name{
	ProjectDeactivate, ForgetConversation, PurgeFacts, WhatsAppQR,
}

// Occurrence is one raw, unparsed hit of a marker in response text.
type Occurrence struct {
	Name  Name
	Value string // trimmed text after "NAME:"; empty for bare markers
}

// isWordChar reports whether r continues an identifier token, used to
// guard against matching a marker name as a substring of a longer word.
func isWordChar(r byte) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// ExtractValued finds every occurrence of a "NAME: value" marker, both at
// line start and inline, and returns the parsed values alongside the text
// with those occurrences removed. A line-start hit (the trimmed line
// begins with "NAME:") removes the whole line; an inline hit removes from
// the marker to the end of the line, keeping the text before it.
func ExtractValued(text string, name Name) (values []string, remaining string) {
	prefix := string(name) + ":"
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, prefix) {
			values = append(values, strings.TrimSpace(trimmed[len(prefix):]))
			continue
		}
		if idx := findToken(line, prefix); idx >= 0 {
			values = append(values, strings.TrimSpace(line[idx+len(prefix):]))
			before := strings.TrimRight(line[:idx], " \t")
			if before != "" {
				kept = append(kept, before)
			}
			continue
		}
		kept = append(kept, line)
	}
	return values, strings.Join(kept, "\n")
}

// ExtractBare finds every occurrence of a bare (no colon, no value) marker
// token and returns how many times it occurred plus the text with those
// occurrences removed, using the same line-start/inline rules as
// ExtractValued.
func ExtractBare(text string, name Name) (count int, remaining string) {
	token := string(name)
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == token {
			count++
			continue
		}
		if idx := findToken(line, token); idx >= 0 && isBareBoundary(line, idx+len(token)) {
			count++
			before := strings.TrimRight(line[:idx], " \t")
			if before != "" {
				kept = append(kept, before)
			}
			continue
		}
		kept = append(kept, line)
	}
	return count, strings.Join(kept, "\n")
}

// findToken returns the byte offset of the first occurrence of token in
// line such that the character before it (if any) is not a word
// character, or -1 if none is found. This is the inline word-boundary
// guard regexp backreferences can't express without lookbehind.
func findToken(line, token string) int {
	start := 0
	for {
		idx := strings.Index(line[start:], token)
		if idx < 0 {
			return -1
		}
		abs := start + idx
		if abs == 0 || !isWordChar(line[abs-1]) {
			return abs
		}
		start = abs + 1
	}
}

// isBareBoundary reports whether the byte at pos in line (or end of
// string) is a valid trailing boundary for a bare marker token.
func isBareBoundary(line string, pos int) bool {
	if pos >= len(line) {
		return true
	}
	return !isWordChar(line[pos])
}

var (
	collapseSpacesRE     = regexp.MustCompile(`[ \t]+`)
	normalizeNewlinesRE  = regexp.MustCompile(`[ \t]*\n[ \t]*`)
	collapseBlankLinesRE = regexp.MustCompile(`\n{3,}`)
)

// StripMarkup removes HTML tags and leading/trailing markdown emphasis
// runs a model might wrap a token in (e.g. "**HEARTBEAT_OK**").
func StripMarkup(text string) string {
	return stringutil.StripMarkup(text)
}

// NormalizeWhitespace collapses runs of spaces/tabs, trims trailing
// whitespace from line ends, and caps blank-line runs at one blank line.
func NormalizeWhitespace(text string) string {
	out := collapseSpacesRE.ReplaceAllString(text, " ")
	out = normalizeNewlinesRE.ReplaceAllString(out, "\n")
	out = collapseBlankLinesRE.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

// StripAll is the final safety-net sweep: it removes every known marker
// from text regardless of whether it was already processed, guaranteeing
// no marker literal ever reaches a channel.
func StripAll(text string) string {
	remaining := text
	for _, name := range valuedMarkers {
		_, remaining = ExtractValued(remaining, name)
	}
	for _, name := range bareMarkers {
		_, remaining = ExtractBare(remaining, name)
	}
	return NormalizeWhitespace(remaining)
}
