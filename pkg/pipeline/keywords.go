package pipeline

import (
	"strings"

	ctxbuilder "github.com/omega-agent/omega/pkg/context"
)

// Curated keyword sets for the pipeline's gates: a lowercase-substring
// hit selects the memory slices and optional prompt sections for this
// turn. Multilingual where user phrasing varies; English covers most
// loanwords in the rest.
var (
	scheduleKeywords = []string{
		"remind", "reminder", "schedule", "every day", "every week", "tomorrow at",
		"my tasks", "cancel the", "recuérdame", "recordar", "agenda", "lembre",
		"rappelle", "erinnere", "ricordami", "herinner", "напомни", "задач",
	}
	recallKeywords = []string{
		"remember when", "do you remember", "recall", "we talked", "last time",
		"did i tell", "what did i say", "recuerdas", "te acuerdas", "lembra",
		"tu te souviens", "erinnerst du", "ti ricordi", "weet je nog", "помнишь",
	}
	projectKeywords = []string{
		"project", "proyecto", "projeto", "projet", "projekt", "progetto", "проект",
	}
	metaKeywords = []string{
		"what can you do", "your capabilities", "how do you work", "qué puedes hacer",
		"o que você pode", "que peux-tu", "was kannst du", "cosa puoi fare",
		"wat kan je", "что ты умеешь",
	}
	buildKeywords = []string{
		"build me", "build a", "create an app", "create a tool", "make me a",
		"develop a", "write me a program", "code me", "construye", "créame una app",
		"desenvolve", "entwickle", "разработай", "построй",
	}
)

func matchAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// gates is the outcome of keyword gating for one message.
type gates struct {
	needs       ctxbuilder.Needs
	scheduling  bool // include scheduling rules section
	projects    bool // include projects rules section
	meta        bool // include meta rules section
	buildIntent bool // enter discovery if no session is active
}

func evaluateGates(text string) gates {
	lower := strings.ToLower(text)
	g := gates{
		scheduling:  matchAny(lower, scheduleKeywords),
		projects:    matchAny(lower, projectKeywords),
		meta:        matchAny(lower, metaKeywords),
		buildIntent: matchAny(lower, buildKeywords),
	}
	g.needs = ctxbuilder.Needs{
		Recall:       matchAny(lower, recallKeywords),
		PendingTasks: g.scheduling,
		Profile:      true,
		Summaries:    true,
		Outcomes:     true,
	}
	return g
}
