package marker

import "strings"

// SkillImproveDirective is a parsed SKILL_IMPROVE: occurrence.
type SkillImproveDirective struct {
	Skill  string
	Lesson string
}

// ExtractSkillImprovements returns every SKILL_IMPROVE: skill|lesson
// occurrence.
func ExtractSkillImprovements(text string) ([]SkillImproveDirective, string) {
	values, remaining := ExtractValued(text, SkillImprove)
	out := make([]SkillImproveDirective, 0, len(values))
	for _, v := range values {
		skill, lesson, ok := strings.Cut(v, "|")
		skill, lesson = strings.TrimSpace(skill), strings.TrimSpace(lesson)
		if !ok || skill == "" || lesson == "" {
			continue
		}
		out = append(out, SkillImproveDirective{Skill: skill, Lesson: lesson})
	}
	return out, remaining
}

// ExtractBugReports returns every BUG_REPORT: description occurrence.
func ExtractBugReports(text string) (descriptions []string, remaining string) {
	values, remaining := ExtractValued(text, BugReport)
	return trimmedNonEmpty(values), remaining
}
