package context

import "fmt"

// OnboardingStageKey is the system fact key the stage is persisted under.
const OnboardingStageKey = "onboarding_stage"

// MaxOnboardingStage is the terminal stage; no further hints fire past it.
const MaxOnboardingStage = 5

// NextOnboardingStage computes the forward-only stage transition for one
// sender, given the current stored stage, their non-system fact count,
// and whether they have any pending task. A sender that doesn't already
// satisfy a later stage's condition never regresses; stages only ever
// advance by one per call (the caller re-evaluates on every message, so
// a sender can climb multiple stages across multiple turns, never in
// one hint).
func NextOnboardingStage(current int, realFactCount int, hasTasks bool) int {
	switch current {
	case 0:
		if realFactCount >= 1 {
			return 1
		}
	case 1:
		if realFactCount >= 3 {
			return 2
		}
	case 2:
		if hasTasks {
			return 3
		}
	case 3:
		if realFactCount >= 5 {
			return 4
		}
	case 4:
		return 5
	}
	return current
}

// BootstrapOnboardingStage computes the stage a pre-existing sender with
// no stored onboarding_stage fact should be silently set to, without
// firing a hint: it walks the transition function to a fixed point from
// stage 0 given their current fact/task state.
func BootstrapOnboardingStage(realFactCount int, hasTasks bool) int {
	stage := 0
	for {
		next := NextOnboardingStage(stage, realFactCount, hasTasks)
		if next == stage {
			return stage
		}
		stage = next
	}
}

// OnboardingHint returns the one-shot prompt addition for a stage
// transition, or "" if the stage has no hint (stage 5 and beyond).
func OnboardingHint(stage int, language string) string {
	switch stage {
	case 0:
		return fmt.Sprintf(
			"\n\nThis is your first conversation with this person. Respond ONLY with this "+
				"introduction in %s (adapt naturally, do NOT translate literally):\n\n"+
				"Start with '\U0001F44B' followed by an appropriate greeting in %s on the same line.\n\n"+
				"Glad to have them here. You are *OMEGA Ω* (always bold), their personal agent — "+
				"but before jumping into action, you'd like to get to know them a bit.\n\n"+
				"Ask their name and what they do, so you can be more useful from the start.\n\n"+
				"Do NOT mention infrastructure or any technical details. "+
				"Do NOT answer their message yet. Just this introduction, nothing else.",
			language, language)
	case 1:
		return fmt.Sprintf(
			"\n\nOnboarding hint: This person is new. At the end of your response, "+
				"casually mention that they can ask you anything or type /help to see what you can do. "+
				"Keep it brief and natural — one sentence max. Respond in %s.", language)
	case 2:
		return fmt.Sprintf(
			"\n\nOnboarding hint: This person hasn't customized your personality yet. "+
				"At the end of your response, casually mention they can tell you how to behave "+
				"(e.g. 'be more casual') or use /personality. One sentence max, only if it fits naturally. "+
				"Respond in %s.", language)
	case 3:
		return fmt.Sprintf(
			"\n\nOnboarding hint: This person just created their first task! "+
				"At the end of your response, briefly mention they can say 'show my tasks' "+
				"or type /tasks to see scheduled items. One sentence max. Respond in %s.", language)
	case 4:
		return fmt.Sprintf(
			"\n\nOnboarding hint: This person is getting comfortable. "+
				"At the end of your response, briefly mention they can organize work into projects — "+
				"just say 'create a project' or type /projects to see how. One sentence max. "+
				"Respond in %s.", language)
	default:
		return ""
	}
}
