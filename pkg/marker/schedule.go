package marker

import (
	"strconv"
	"strings"
)

// Repeat is a task's recurrence rule. The zero value Repeat{} means "once".
type Repeat struct {
	Kind    string // "", "daily", "weekly", "monthly", "hourly", "minutely"
	Minutes int    // only set when Kind == "minutely"
}

// IsOnce reports whether the repeat rule is the non-recurring default.
func (r Repeat) IsOnce() bool {
	return r.Kind == "" || r.Kind == "once"
}

// ParseRepeat maps a marker's repeat field onto a Repeat value. An empty
// string or the literal "once" is the null (non-recurring) variant.
// "minutely:N" carries an interval in minutes; any other unrecognized
// value is treated as "once" rather than rejected, since marker parse
// failures must never abort the pipeline.
func ParseRepeat(raw string) Repeat {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" || trimmed == "once" {
		return Repeat{}
	}
	switch trimmed {
	case "daily", "weekly", "monthly", "hourly":
		return Repeat{Kind: trimmed}
	}
	if kind, rest, ok := strings.Cut(trimmed, ":"); ok && kind == "minutely" {
		if n, err := strconv.Atoi(strings.TrimSpace(rest)); err == nil && n > 0 {
			return Repeat{Kind: "minutely", Minutes: n}
		}
	}
	return Repeat{}
}

// String reformats a Repeat back into its marker field form, used by the
// round-trip tests in this package.
func (r Repeat) String() string {
	switch r.Kind {
	case "":
		return "once"
	case "minutely":
		return "minutely:" + strconv.Itoa(r.Minutes)
	default:
		return r.Kind
	}
}

// NormalizeDueAt converts an ISO-8601-ish timestamp ("2026-02-17T15:00:00"
// or with a trailing "Z") into the store's canonical
// "YYYY-MM-DD HH:MM:SS" form. The conversion is textual: the input is
// trimmed, a trailing "Z" is dropped and the first "T" becomes a space.
// The result is not parsed or validated here or by the stores.
func NormalizeDueAt(raw string) string {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimSuffix(trimmed, "Z")
	trimmed = strings.Replace(trimmed, "T", " ", 1)
	return trimmed
}

// ScheduleDirective is a parsed SCHEDULE:/SCHEDULE_ACTION: occurrence.
type ScheduleDirective struct {
	Description string
	DueAt       string // normalized
	Repeat      Repeat
	IsAction    bool
}

func parseScheduleFields(value string) (desc, dueAt string, repeat Repeat, ok bool) {
	parts := strings.SplitN(value, "|", 3)
	if len(parts) < 2 {
		return "", "", Repeat{}, false
	}
	desc = strings.TrimSpace(parts[0])
	dueAt = NormalizeDueAt(parts[1])
	if desc == "" || dueAt == "" {
		return "", "", Repeat{}, false
	}
	if len(parts) == 3 {
		repeat = ParseRepeat(parts[2])
	}
	return desc, dueAt, repeat, true
}

// ExtractSchedules pulls every SCHEDULE: (reminder) occurrence out of
// text, returning the parsed directives and the text with them stripped.
func ExtractSchedules(text string) ([]ScheduleDirective, string) {
	values, remaining := ExtractValued(text, Schedule)
	return buildSchedules(values, false), remaining
}

// ExtractScheduleActions pulls every SCHEDULE_ACTION: occurrence.
func ExtractScheduleActions(text string) ([]ScheduleDirective, string) {
	values, remaining := ExtractValued(text, ScheduleAction)
	return buildSchedules(values, true), remaining
}

func buildSchedules(values []string, isAction bool) []ScheduleDirective {
	out := make([]ScheduleDirective, 0, len(values))
	for _, v := range values {
		desc, dueAt, repeat, ok := parseScheduleFields(v)
		if !ok {
			continue // validation failure: silently skipped per error-handling design
		}
		out = append(out, ScheduleDirective{Description: desc, DueAt: dueAt, Repeat: repeat, IsAction: isAction})
	}
	return out
}

// ExtractCancelTasks pulls every CANCEL_TASK: id-prefix occurrence.
func ExtractCancelTasks(text string) (ids []string, remaining string) {
	values, remaining := ExtractValued(text, CancelTask)
	for _, v := range values {
		if id := strings.TrimSpace(v); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, remaining
}

// UpdateTaskDirective is a parsed UPDATE_TASK: occurrence. A nil field
// means "keep existing"; per spec an empty field after trim also means
// keep existing, so it is represented the same way (nil).
type UpdateTaskDirective struct {
	ID          string
	Description *string
	DueAt       *string
	Repeat      *Repeat
}

// ExtractUpdateTasks pulls every UPDATE_TASK: id|desc?|due?|repeat?
// occurrence.
func ExtractUpdateTasks(text string) ([]UpdateTaskDirective, string) {
	values, remaining := ExtractValued(text, UpdateTask)
	out := make([]UpdateTaskDirective, 0, len(values))
	for _, v := range values {
		parts := strings.Split(v, "|")
		id := strings.TrimSpace(parts[0])
		if id == "" {
			continue
		}
		d := UpdateTaskDirective{ID: id}
		if len(parts) > 1 {
			if s := strings.TrimSpace(parts[1]); s != "" {
				d.Description = &s
			}
		}
		if len(parts) > 2 {
			if s := strings.TrimSpace(parts[2]); s != "" {
				due := NormalizeDueAt(s)
				d.DueAt = &due
			}
		}
		if len(parts) > 3 {
			if s := strings.TrimSpace(parts[3]); s != "" {
				r := ParseRepeat(s)
				d.Repeat = &r
			}
		}
		out = append(out, d)
	}
	return out, remaining
}

// MatchesTaskID reports whether a stored task id matches a marker's
// id-prefix (numeric ids match exactly; task ids match on the first 8+
// characters supplied).
func MatchesTaskID(stored, prefix string) bool {
	if prefix == "" {
		return false
	}
	if prefix == stored {
		return true
	}
	if len(prefix) >= 8 && strings.HasPrefix(stored, prefix) {
		return true
	}
	return false
}
