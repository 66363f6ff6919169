package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	ctxbuilder "github.com/omega-agent/omega/pkg/context"
	"github.com/omega-agent/omega/pkg/i18n"
	"github.com/omega-agent/omega/pkg/marker"
	"github.com/omega-agent/omega/pkg/pipeline"
	"github.com/omega-agent/omega/pkg/provider"
	"github.com/omega-agent/omega/pkg/skills"
	"github.com/omega-agent/omega/pkg/store"
)

// runAction executes one due action task: compose the specialized
// system prompt, inject any skill-triggered MCP servers, invoke the
// provider with the task description as the user message, then parse
// the ACTION_OUTCOME verdict and complete, retry, or fail accordingly.
func (l *Loop) runAction(ctx context.Context, t store.Task) {
	log := l.Log.With().Str("task", t.ID).Str("sender", t.SenderID).Logger()

	facts, _ := l.Store.GetFacts(ctx, t.SenderID)
	lang := l.senderLanguage(ctx, t.SenderID)

	mcpServers, toolAllow := l.resolveMCP(ctx, t.Description, log)

	start := l.now()
	resp, err := l.Provider.Complete(ctx, provider.Context{
		SystemPrompt: l.actionPrompt(facts, lang),
		Message:      t.Description,
		MCPServers:   mcpServers,
		ToolAllow:    toolAllow,
	})
	elapsed := l.now().Sub(start).Milliseconds()
	if err != nil {
		// Transport failure is equivalent to a reported failure with
		// the error string as reason.
		log.Warn().Err(err).Msg("action provider call failed")
		l.auditAction(ctx, t, "", store.AuditError, err.Error(), elapsed, "")
		l.failAction(ctx, t, err.Error(), lang)
		return
	}

	// Outcome comes out before any other marker processing.
	outcome, text := marker.ExtractActionOutcome(resp.Text)

	// Action tasks can spawn further tasks and mutate the heartbeat.
	text, confirms := l.Effects.Apply(ctx, pipeline.Scope{
		Channel:     t.Channel,
		SenderID:    t.SenderID,
		ReplyTarget: t.ReplyTarget,
		Language:    lang,
	}, text)
	for _, line := range confirms {
		if text != "" {
			text += "\n"
		}
		text += line
	}

	switch {
	case !outcome.Present:
		log.Warn().Msg("action response missing ACTION_OUTCOME, treating as success")
		fallthrough
	case outcome.Success:
		l.auditAction(ctx, t, text, store.AuditOK, "", elapsed, resp.Model)
		l.recordOutcome(ctx, t, 1, t.Description)
		if err := l.Store.CompleteTask(ctx, t.ID, t.Repeat); err != nil {
			log.Error().Err(err).Msg("completing action task")
		}
	default:
		l.auditAction(ctx, t, text, store.AuditError, outcome.Reason, elapsed, resp.Model)
		l.recordOutcome(ctx, t, -1, t.Description+": "+outcome.Reason)
		l.failAction(ctx, t, outcome.Reason, lang)
	}

	if trimmed := strings.TrimSpace(text); trimmed != "" && trimmed != marker.HeartbeatOKToken {
		l.sendToSender(ctx, t, trimmed)
	}
}

// recordOutcome appends a scored episode for the sender so future
// context builds carry reward awareness of how this action went.
func (l *Loop) recordOutcome(ctx context.Context, t store.Task, score int, lesson string) {
	err := l.Store.AppendOutcome(ctx, store.Outcome{
		SenderID:  t.SenderID,
		Score:     score,
		Domain:    "action",
		Lesson:    lesson,
		Timestamp: l.now(),
	})
	if err != nil {
		l.Log.Warn().Err(err).Str("task", t.ID).Msg("appending outcome")
	}
}

// failAction records one failure and notifies the user: a retry notice
// while attempts remain (the store reschedules two minutes out), or
// the permanent-failure message once the retry budget is exhausted.
func (l *Loop) failAction(ctx context.Context, t store.Task, reason, lang string) {
	if err := l.Store.FailTask(ctx, t.ID, reason, MaxActionRetries); err != nil {
		l.Log.Error().Err(err).Str("task", t.ID).Msg("failing action task")
	}
	if t.RetryCount < MaxActionRetries {
		l.sendToSender(ctx, t, i18n.F("action_retrying", lang, reason))
	} else {
		l.sendToSender(ctx, t, i18n.F("action_failed_final", lang, reason))
	}
}

func (l *Loop) sendToSender(ctx context.Context, t store.Task, text string) {
	ch := l.Channels.Get(t.Channel)
	if ch == nil {
		ch = l.Channels.Default()
	}
	if ch == nil {
		return
	}
	if err := ch.Send(ctx, store.OutgoingMessage{Text: text, ReplyTarget: t.ReplyTarget}); err != nil {
		l.Log.Error().Err(err).Str("task", t.ID).Msg("sending action result")
	}
}

// resolveMCP matches the task description against skill triggers and
// probes each declared server, dropping ones that fail to initialize.
func (l *Loop) resolveMCP(ctx context.Context, description string, log zerolog.Logger) ([]provider.MCPServer, []string) {
	decls := l.Skills.MatchTriggers(description)
	if len(decls) == 0 {
		return nil, nil
	}
	probeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	alive, tools, errs := skills.ProbeAll(probeCtx, decls)
	for _, err := range errs {
		log.Warn().Err(err).Msg("mcp server probe failed")
	}
	return alive, tools
}

// actionPrompt composes the specialized action-task system prompt:
// identity, wall clock, user profile, language directive, the channel
// delivery contract, the verification requirement, and the skill
// catalog.
func (l *Loop) actionPrompt(facts []store.Fact, lang string) string {
	var b strings.Builder
	b.WriteString(l.BasePrompt)
	fmt.Fprintf(&b, "\n\nCurrent time: %s", l.now().Format("2006-01-02 15:04:05 MST"))
	if profile := ctxbuilder.FormatUserProfile(facts); profile != "" {
		b.WriteString("\n\n")
		b.WriteString(profile)
	}
	fmt.Fprintf(&b, "\n\nAlways respond in %s.", lang)
	b.WriteString("\n\nYou are executing a scheduled action on the user's behalf. " +
		"Your text reply IS the message delivered to the user on their chat channel; " +
		"write it as if speaking to them directly.")
	b.WriteString("\n\nEnd your response with exactly one line reporting the result:\n" +
		"ACTION_OUTCOME: success\nor\nACTION_OUTCOME: failed | <short reason>")
	b.WriteString(l.Skills.PromptBlock())
	return b.String()
}
