package context

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/omega-agent/omega/pkg/provider"
	"github.com/omega-agent/omega/pkg/store"
)

// Needs flags which optional memory slices a given turn requires, set by
// the pipeline's keyword gates (spec.md §4.3 step 6).
type Needs struct {
	Recall       bool
	PendingTasks bool
	Profile      bool
	Summaries    bool
	Outcomes     bool
}

// recentOutcomesLimit and recentSummariesLimit are the always-loaded
// slice sizes per spec.md §4.2.
const (
	recentOutcomesLimit  = 15
	recentSummariesLimit = 3
	recallLimit          = 5
	maxHistoryMessages   = 40
	// defaultPromptTokenBudget bounds how many tokens of recalled
	// messages/summaries the builder will fold into the prompt; the
	// tokenizer is reused from the teacher's tiktoken-go dependency
	// purely as a budget gauge, not for provider-specific encoding.
	defaultPromptTokenBudget = 6000
)

// Builder assembles per-request Provider contexts from Store-backed
// memory, per spec.md §4.2.
type Builder struct {
	Store       store.Store
	TokenBudget int // 0 uses defaultPromptTokenBudget
}

// NewBuilder constructs a Builder over st with the default token budget.
func NewBuilder(st store.Store) *Builder {
	return &Builder{Store: st, TokenBudget: defaultPromptTokenBudget}
}

func (b *Builder) budget() int {
	if b.TokenBudget > 0 {
		return b.TokenBudget
	}
	return defaultPromptTokenBudget
}

// countTokens estimates the token length of text using the cl100k_base
// encoding, falling back to a word-count approximation if the tokenizer
// can't be loaded (e.g. offline without the bundled BPE ranks file).
func countTokens(text string) int {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return len(strings.Fields(text))
	}
	return len(enc.Encode(text, nil, nil))
}

// Build assembles a provider.Context for one incoming message, loading
// the memory slices Needs requests and resolving the onboarding hint and
// response language as side effects on the store.
func (b *Builder) Build(ctx context.Context, msg store.IncomingMessage, baseSystemPrompt string, needs Needs) (provider.Context, error) {
	conv, err := b.Store.GetOrCreateConversation(ctx, msg.Channel, msg.SenderID)
	if err != nil {
		return provider.Context{}, fmt.Errorf("context: get conversation: %w", err)
	}

	history, err := b.Store.GetConversationMessages(ctx, conv.ID)
	if err != nil {
		return provider.Context{}, fmt.Errorf("context: load messages: %w", err)
	}
	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}

	facts, err := b.Store.GetFacts(ctx, msg.SenderID)
	if err != nil {
		return provider.Context{}, fmt.Errorf("context: load facts: %w", err)
	}

	// Always loaded per spec.md §4.2, regardless of needs.Summaries.
	summaries, _ := b.Store.RecentSummaries(ctx, msg.Channel, msg.SenderID, recentSummariesLimit)

	var recall []store.Message
	if needs.Recall {
		recall, _ = b.Store.SearchMessages(ctx, msg.SenderID, msg.Text, recallLimit)
	}

	var pending []store.Task
	if needs.PendingTasks {
		pending, _ = b.Store.GetTasksForSender(ctx, msg.SenderID)
	}

	outcomes, _ := b.Store.RecentOutcomes(ctx, msg.SenderID, recentOutcomesLimit)
	lessons, _ := b.Store.GetLessons(ctx, msg.SenderID)

	language, err := b.resolveLanguage(ctx, msg.SenderID, msg.Text, facts)
	if err != nil {
		return provider.Context{}, err
	}

	hint := b.resolveOnboardingHint(ctx, msg.SenderID, facts, pending, language)

	systemPrompt := b.compose(baseSystemPrompt, facts, summaries, recall, pending, outcomes, lessons, language, hint)

	return provider.Context{
		SystemPrompt: systemPrompt,
		History:      toProviderHistory(history),
		Message:      msg.Text,
	}, nil
}

func toProviderHistory(msgs []store.Message) []provider.Message {
	out := make([]provider.Message, 0, len(msgs))
	for _, m := range msgs {
		role := provider.RoleUser
		if m.Role == store.MessageRoleAssistant {
			role = provider.RoleAssistant
		}
		out = append(out, provider.Message{Role: role, Content: m.Content})
	}
	return out
}

// resolveLanguage returns the sender's effective response language: a
// stored preferred_language fact wins, otherwise the text is
// auto-detected and persisted for future turns.
func (b *Builder) resolveLanguage(ctx context.Context, senderID, text string, facts []store.Fact) (string, error) {
	for _, f := range facts {
		if f.Key == "preferred_language" && f.Value != "" {
			return f.Value, nil
		}
	}
	detected := DetectLanguage(text)
	if err := b.Store.SetSystemFact(ctx, senderID, "preferred_language", detected); err != nil {
		return detected, nil // best-effort persistence; never block on it
	}
	return detected, nil
}

// resolveOnboardingHint computes the forward-only onboarding stage
// transition and persists it, returning hint text only when a
// transition actually fired this turn.
func (b *Builder) resolveOnboardingHint(ctx context.Context, senderID string, facts []store.Fact, pending []store.Task, language string) string {
	realCount := 0
	var storedStage int
	hasStage := false
	for _, f := range facts {
		if store.SystemFactKeys[f.Key] {
			if f.Key == OnboardingStageKey {
				hasStage = true
				fmt.Sscanf(f.Value, "%d", &storedStage)
			}
			continue
		}
		realCount++
	}
	hasTasks := len(pending) > 0

	if !hasStage {
		bootstrapped := BootstrapOnboardingStage(realCount, hasTasks)
		if bootstrapped > 0 {
			_ = b.Store.SetSystemFact(ctx, senderID, OnboardingStageKey, fmt.Sprintf("%d", bootstrapped))
		}
		if realCount == 0 && !hasTasks {
			// True first contact: fire the stage-0 hint but don't
			// persist a stage yet (no transition happened).
			return OnboardingHint(0, language)
		}
		return ""
	}

	next := NextOnboardingStage(storedStage, realCount, hasTasks)
	if next == storedStage {
		return ""
	}
	_ = b.Store.SetSystemFact(ctx, senderID, OnboardingStageKey, fmt.Sprintf("%d", next))
	return OnboardingHint(next, language)
}

// compose renders the full prompt, then trims it back under the token
// budget by dropping recall entries (least relevant last) and, if that
// is not enough, the oldest summaries. Base rules, profile, pending
// tasks, lessons, outcomes, and the language directive are small and
// load-bearing, so they are never trimmed.
func (b *Builder) compose(base string, facts []store.Fact, summaries []store.Conversation, recall []store.Message, pending []store.Task, outcomes []store.Outcome, lessons []store.Lesson, language, hint string) string {
	prompt := b.render(base, facts, summaries, recall, pending, outcomes, lessons, language, hint)
	for countTokens(prompt) > b.budget() && (len(recall) > 0 || len(summaries) > 0) {
		if len(recall) > 0 {
			recall = recall[:len(recall)-1]
		} else {
			summaries = summaries[:len(summaries)-1]
		}
		prompt = b.render(base, facts, summaries, recall, pending, outcomes, lessons, language, hint)
	}
	return prompt
}

func (b *Builder) render(base string, facts []store.Fact, summaries []store.Conversation, recall []store.Message, pending []store.Task, outcomes []store.Outcome, lessons []store.Lesson, language, hint string) string {
	var sb strings.Builder
	sb.WriteString(base)

	if profile := FormatUserProfile(facts); profile != "" {
		sb.WriteString("\n\n")
		sb.WriteString(profile)
	}

	if len(summaries) > 0 {
		sb.WriteString("\n\nRecent conversation history:")
		for _, c := range summaries {
			sb.WriteString(fmt.Sprintf("\n- [%s] %s", c.LastActivity.Format("2006-01-02 15:04:05"), c.Summary))
		}
	}

	if len(recall) > 0 {
		sb.WriteString("\n\nRelated past context:")
		for _, m := range recall {
			content := m.Content
			if len(content) > 200 {
				content = content[:200] + "..."
			}
			sb.WriteString(fmt.Sprintf("\n- [%s] User: %s", m.Timestamp.Format("2006-01-02 15:04:05"), content))
		}
	}

	if len(pending) > 0 {
		sb.WriteString("\n\nUser's scheduled tasks:")
		for _, t := range pending {
			badge := ""
			if t.Type == store.TaskTypeAction {
				badge = " [action]"
			}
			repeat := "once"
			if t.Repeat.Kind != "" {
				repeat = string(t.Repeat.Kind)
			}
			idShort := t.ID
			if len(idShort) > 8 {
				idShort = idShort[:8]
			}
			sb.WriteString(fmt.Sprintf("\n- [%s] %s%s (due: %s, %s)", idShort, t.Description, badge, t.DueAt, repeat))
		}
	}

	if len(lessons) > 0 {
		sb.WriteString("\n\nLearned behavioral rules:")
		for _, l := range lessons {
			sb.WriteString(fmt.Sprintf("\n- [%s] %s", l.Domain, l.Rule))
		}
	}

	if len(outcomes) > 0 {
		sb.WriteString("\n\nRecent outcomes:")
		now := time.Now().UTC()
		for _, o := range outcomes {
			sign := "~"
			if o.Score > 0 {
				sign = "+"
			} else if o.Score < 0 {
				sign = "-"
			}
			sb.WriteString(fmt.Sprintf("\n- [%s] %s: %s (%s)", sign, o.Domain, o.Lesson, relativeAgo(o.Timestamp, now)))
		}
	}

	sb.WriteString(fmt.Sprintf("\n\nIMPORTANT: Always respond in %s.", language))

	if hint != "" {
		sb.WriteString(hint)
	}

	sb.WriteString("\n\nIf the user explicitly asks you to change language (e.g. 'speak in French'), " +
		"respond in the requested language. Include LANG_SWITCH: <language> on its own line " +
		"at the END of your response.")

	return sb.String()
}

func relativeAgo(ts, now time.Time) string {
	d := now.Sub(ts)
	minutes := int(d.Minutes())
	switch {
	case minutes < 60:
		return fmt.Sprintf("%dm ago", minutes)
	case minutes < 1440:
		return fmt.Sprintf("%dh ago", minutes/60)
	default:
		return fmt.Sprintf("%dd ago", minutes/1440)
	}
}
