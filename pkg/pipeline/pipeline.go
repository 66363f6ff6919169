// Package pipeline implements the message pipeline (C5): per-sender
// serialized handling of one inbound message through auth, sanitize,
// welcome, commands, session resolution, keyword gates, context build,
// one provider hop, ordered marker processing, persistence, audit, and
// the channel reply.
package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/omega-agent/omega/pkg/build"
	"github.com/omega-agent/omega/pkg/channel"
	"github.com/omega-agent/omega/pkg/config"
	ctxbuilder "github.com/omega-agent/omega/pkg/context"
	"github.com/omega-agent/omega/pkg/i18n"
	"github.com/omega-agent/omega/pkg/provider"
	"github.com/omega-agent/omega/pkg/sender"
	"github.com/omega-agent/omega/pkg/skills"
	"github.com/omega-agent/omega/pkg/store"
	"github.com/omega-agent/omega/pkg/textfs"
)

// Pipeline wires the gateway core's collaborators for message handling.
type Pipeline struct {
	Store      store.Store
	Audit      store.AuditLogger
	Provider   provider.Provider
	Builder    *ctxbuilder.Builder
	Channels   *channel.Registry
	Skills     *skills.Catalog
	Layout     textfs.Layout
	Effects    *Effects
	Serializer *sender.Serializer
	Build      *build.Pipeline

	BasePrompt  string
	ChannelAuth map[string]config.ChannelConfig
	DBInfo      string
	StartedAt   time.Time
	Log         zerolog.Logger

	// Now is the clock, overridable in tests.
	Now func() time.Time
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Dispatch is the entry point for one inbound message: gate it through
// the per-sender serializer, handle it, then drain any messages that
// buffered while handling was in flight. Runs on a per-message
// goroutine spawned by the gateway's channel ingress loop.
func (p *Pipeline) Dispatch(ctx context.Context, msg store.IncomingMessage) {
	key := sender.Key(msg.Channel, msg.SenderID)
	if !p.Serializer.Admit(key, msg) {
		lang := p.senderLanguage(ctx, msg.SenderID, msg.Text)
		p.send(ctx, msg, i18n.T("got_it_next", lang))
		return
	}
	for {
		p.Handle(ctx, msg)
		next, ok := p.Serializer.Next(key)
		if !ok {
			return
		}
		msg = next
	}
}

// Handle runs the full pipeline for one message. It never returns an
// error: every failure mode ends in an audit entry and/or a friendly
// message, per the propagation rule that a local component never
// aborts the process.
func (p *Pipeline) Handle(ctx context.Context, msg store.IncomingMessage) {
	log := p.Log.With().Str("channel", msg.Channel).Str("sender", msg.SenderID).Logger()

	if canonical, err := p.Store.ResolveSenderID(ctx, msg.Channel, msg.SenderID); err == nil && canonical != "" {
		msg.SenderID = canonical
	}

	if denied, reason := p.authDenied(msg); denied {
		lang := ctxbuilder.DetectLanguage(msg.Text)
		p.audit(ctx, msg, "", store.AuditDenied, reason, 0)
		p.send(ctx, msg, i18n.T("deny", lang))
		log.Warn().Str("reason", reason).Msg("sender denied")
		return
	}

	clean, warnings := sanitizeInput(msg.Text)
	for _, w := range warnings {
		log.Warn().Str("warning", w).Msg("input sanitizer")
	}
	msg.Text = clean

	facts, err := p.Store.GetFacts(ctx, msg.SenderID)
	if err != nil {
		log.Error().Err(err).Msg("loading facts")
		p.audit(ctx, msg, "", store.AuditError, err.Error(), 0)
		p.send(ctx, msg, i18n.T("error_memory", "English"))
		return
	}
	language := languageFromFacts(facts, msg.Text)

	if factValue(facts, "welcomed") == "" {
		p.welcome(ctx, msg)
		return
	}

	if strings.HasPrefix(strings.TrimSpace(msg.Text), "/") {
		reply := p.handleCommand(ctx, msg, facts, language)
		if reply != "" {
			p.audit(ctx, msg, reply, store.AuditOK, "", 0)
			p.send(ctx, msg, reply)
		}
		return
	}

	if p.resolveSessions(ctx, msg, facts, language) {
		return
	}

	g := evaluateGates(msg.Text)
	if g.buildIntent {
		p.startDiscovery(ctx, msg, language)
		return
	}

	p.complete(ctx, msg, g, language, log)
}

// complete is the provider round trip: context build, typing/nudges,
// one Complete call, marker processing, persistence, audit, reply.
func (p *Pipeline) complete(ctx context.Context, msg store.IncomingMessage, g gates, language string, log zerolog.Logger) {
	inbox := textfs.NewInboxGuard()
	defer inbox.Close()
	p.stageAttachments(msg, inbox, log)

	conv, err := p.Store.GetOrCreateConversation(ctx, msg.Channel, msg.SenderID)
	if err != nil {
		log.Error().Err(err).Msg("resolving conversation")
		p.audit(ctx, msg, "", store.AuditError, err.Error(), 0)
		p.send(ctx, msg, i18n.T("error_memory", language))
		return
	}

	if ch := p.Channels.Get(msg.Channel); ch != nil {
		stop := startTypingAndNudges(ctx, ch, msg.ReplyTarget, language)
		defer stop()
	}

	reqCtx, err := p.Builder.Build(ctx, msg, composeBasePrompt(p.BasePrompt, g), g.needs)
	if err != nil {
		log.Error().Err(err).Msg("building context")
		p.audit(ctx, msg, "", store.AuditError, err.Error(), 0)
		p.send(ctx, msg, i18n.T("error_memory", language))
		return
	}

	start := p.now()
	resp, err := p.Provider.Complete(ctx, reqCtx)
	elapsed := p.now().Sub(start).Milliseconds()
	if err != nil {
		log.Error().Err(err).Msg("provider call failed")
		p.audit(ctx, msg, "", store.AuditError, err.Error(), elapsed)
		p.send(ctx, msg, i18n.T(providerErrorKey(err), language))
		return
	}

	text, confirms := p.Effects.Apply(ctx, Scope{
		Channel:        msg.Channel,
		SenderID:       msg.SenderID,
		ReplyTarget:    msg.ReplyTarget,
		Language:       language,
		ConversationID: conv.ID,
	}, resp.Text)
	for _, line := range confirms {
		if text != "" {
			text += "\n"
		}
		text += line
	}

	now := p.now()
	if err := p.Store.AppendMessage(ctx, store.Message{ConversationID: conv.ID, Role: store.MessageRoleUser, Content: msg.Text, Timestamp: now}); err != nil {
		log.Error().Err(err).Msg("storing user message")
	}
	if err := p.Store.AppendMessage(ctx, store.Message{ConversationID: conv.ID, Role: store.MessageRoleAssistant, Content: text, Timestamp: now}); err != nil {
		log.Error().Err(err).Msg("storing assistant message")
	}

	p.auditModel(ctx, msg, text, store.AuditOK, "", elapsed, resp.Model)
	p.sendFull(ctx, msg, store.OutgoingMessage{
		Text:         text,
		ReplyTarget:  msg.ReplyTarget,
		ProviderName: p.Provider.Name(),
		ModelName:    resp.Model,
		ProcessingMs: elapsed,
	})
}

// welcome sends the localized first-contact greeting without a provider
// call and marks the sender welcomed.
func (p *Pipeline) welcome(ctx context.Context, msg store.IncomingMessage) {
	lang := ctxbuilder.DetectLanguage(msg.Text)
	p.send(ctx, msg, i18n.T("welcome", lang))
	if err := p.Store.SetSystemFact(ctx, msg.SenderID, "welcomed", "true"); err != nil {
		p.Log.Warn().Err(err).Msg("marking sender welcomed")
	}
	if err := p.Store.SetSystemFact(ctx, msg.SenderID, "preferred_language", lang); err != nil {
		p.Log.Warn().Err(err).Msg("persisting welcome language")
	}
	p.audit(ctx, msg, i18n.T("welcome", lang), store.AuditOK, "", 0)
}

func (p *Pipeline) authDenied(msg store.IncomingMessage) (bool, string) {
	cfg, ok := p.ChannelAuth[msg.Channel]
	if !ok || !cfg.EnforceAuth {
		return false, ""
	}
	for _, allowed := range cfg.AllowList {
		if allowed == msg.SenderID {
			return false, ""
		}
	}
	return true, "sender not in allow list"
}

// stageAttachments writes inbound attachment blobs into the workspace
// inbox for vision-enabled providers, tracked by the guard so they are
// removed once the message is handled.
func (p *Pipeline) stageAttachments(msg store.IncomingMessage, guard *textfs.InboxGuard, log zerolog.Logger) {
	for _, att := range msg.Attachments {
		name := uuid.NewString()
		switch att.Type {
		case "image":
			name += ".img"
		case "audio":
			name += ".audio"
		default:
			name += ".bin"
		}
		path := filepath.Join(p.Layout.InboxDir(), name)
		if err := os.WriteFile(path, att.Data, 0o600); err != nil {
			log.Warn().Err(err).Msg("staging attachment")
			continue
		}
		guard.Track(path)
	}
}

func (p *Pipeline) audit(ctx context.Context, msg store.IncomingMessage, output string, status store.AuditStatus, denialReason string, processingMs int64) {
	p.auditModel(ctx, msg, output, status, denialReason, processingMs, "")
}

func (p *Pipeline) auditModel(ctx context.Context, msg store.IncomingMessage, output string, status store.AuditStatus, denialReason string, processingMs int64, model string) {
	if p.Audit == nil {
		return
	}
	entry := store.AuditEntry{
		Timestamp:    p.now(),
		Channel:      msg.Channel,
		SenderID:     msg.SenderID,
		Input:        msg.Text,
		Output:       output,
		Provider:     p.Provider.Name(),
		Model:        model,
		ProcessingMs: processingMs,
		Status:       status,
		DenialReason: denialReason,
	}
	if err := p.Audit.Append(ctx, entry); err != nil {
		p.Log.Error().Err(err).Msg("appending audit entry")
	}
}

func (p *Pipeline) send(ctx context.Context, msg store.IncomingMessage, text string) {
	p.sendFull(ctx, msg, store.OutgoingMessage{Text: text, ReplyTarget: msg.ReplyTarget, ProviderName: p.Provider.Name()})
}

func (p *Pipeline) sendFull(ctx context.Context, msg store.IncomingMessage, out store.OutgoingMessage) {
	ch := p.Channels.Get(msg.Channel)
	if ch == nil {
		p.Log.Error().Str("channel", msg.Channel).Msg("no such channel for reply")
		return
	}
	if err := ch.Send(ctx, out); err != nil {
		p.Log.Error().Err(err).Str("channel", msg.Channel).Msg("sending reply")
	}
}

// senderLanguage resolves the best-effort response language for paths
// that run before the full fact load (the buffered-message ack).
func (p *Pipeline) senderLanguage(ctx context.Context, senderID, text string) string {
	facts, err := p.Store.GetFacts(ctx, senderID)
	if err != nil {
		return ctxbuilder.DetectLanguage(text)
	}
	return languageFromFacts(facts, text)
}

func languageFromFacts(facts []store.Fact, text string) string {
	if lang := factValue(facts, "preferred_language"); lang != "" {
		return lang
	}
	return ctxbuilder.DetectLanguage(text)
}

func factValue(facts []store.Fact, key string) string {
	for _, f := range facts {
		if f.Key == key {
			return f.Value
		}
	}
	return ""
}

// providerErrorKey maps a provider failure onto the i18n key for the
// user-facing message: timeouts get a specific apology, everything else
// the generic one.
func providerErrorKey(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "error_timeout"
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline") {
		return "error_timeout"
	}
	return "error_generic"
}

// Uptime reports how long the pipeline has been running, for /status.
func (p *Pipeline) Uptime() time.Duration {
	return p.now().Sub(p.StartedAt)
}
