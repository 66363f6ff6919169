package store

import (
	"strings"
	"time"
)

// DueAtLayout is the canonical on-disk/in-memory due_at format, UTC.
const DueAtLayout = "2006-01-02 15:04:05"

// SignificantWords tokenizes text into its set of lowercase words of
// length ≥4, the "significant word" unit fuzzy task dedup compares
// descriptions by (grounded in the original implementation's test
// fixtures — short words like "the", "at", "to" never count).
func SignificantWords(text string) map[string]bool {
	words := map[string]bool{}
	for _, raw := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		if len(raw) >= 4 {
			words[raw] = true
		}
	}
	return words
}

// SharedWordCount returns how many significant words two sets have in
// common.
func SharedWordCount(a, b map[string]bool) int {
	n := 0
	for w := range a {
		if b[w] {
			n++
		}
	}
	return n
}

// DescriptionsSimilar reports whether two task descriptions are fuzzy
// duplicates: at least 3 shared significant words. Descriptions with no
// significant words never match (avoids collapsing two near-empty
// descriptions purely on punctuation).
func DescriptionsSimilar(a, b string) bool {
	wa := SignificantWords(a)
	if len(wa) == 0 {
		return false
	}
	wb := SignificantWords(b)
	return SharedWordCount(wa, wb) >= 3
}

// DueAtsWithin reports whether two canonical due_at strings fall within
// window of each other. Unparseable input falls back to exact string
// equality rather than erroring, since this feeds a best-effort dedup
// check, not validation.
func DueAtsWithin(a, b string, window time.Duration) bool {
	ta, errA := time.Parse(DueAtLayout, a)
	tb, errB := time.Parse(DueAtLayout, b)
	if errA != nil || errB != nil {
		return a == b
	}
	diff := ta.Sub(tb)
	if diff < 0 {
		diff = -diff
	}
	return diff <= window
}

// AdvanceDueAt computes a recurring task's next due_at after completing
// at its current due_at.
func AdvanceDueAt(dueAt string, repeat Repeat) string {
	t, err := time.Parse(DueAtLayout, dueAt)
	if err != nil {
		return dueAt
	}
	switch repeat.Kind {
	case RepeatDaily:
		t = t.AddDate(0, 0, 1)
	case RepeatWeekly:
		t = t.AddDate(0, 0, 7)
	case RepeatMonthly:
		t = t.AddDate(0, 1, 0)
	case RepeatHourly:
		t = t.Add(time.Hour)
	case RepeatMinutely:
		n := repeat.Minutes
		if n <= 0 {
			n = 1
		}
		t = t.Add(time.Duration(n) * time.Minute)
	default:
		return dueAt
	}
	return t.Format(DueAtLayout)
}

// FuzzyDedupWindow is the ±window within which two similar-description
// tasks collapse to one, per spec.md §3.
const FuzzyDedupWindow = 30 * time.Minute
