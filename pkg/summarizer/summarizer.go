// Package summarizer implements the background idle-conversation
// rollup (C9): every minute, conversations idle past the configured
// threshold are transcribed, summarized by the provider, mined for
// facts, and closed. An idle conversation is never left open — summary
// failures close it with a fallback string instead.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/omega-agent/omega/pkg/provider"
	"github.com/omega-agent/omega/pkg/store"
)

const pollInterval = 60 * time.Second

// Summarizer rolls up idle conversations.
type Summarizer struct {
	Store    store.Store
	Provider provider.Provider
	Log      zerolog.Logger

	// IdleThreshold is how long a conversation must be inactive before
	// rollup.
	IdleThreshold time.Duration

	// SummaryPrompt and FactsPrompt come from configuration, not code.
	SummaryPrompt string
	FactsPrompt   string
}

// Run polls until ctx is cancelled.
func (s *Summarizer) Run(ctx context.Context) {
	s.Log.Info().Dur("idle_threshold", s.IdleThreshold).Msg("summarizer loop started")
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.Log.Info().Msg("summarizer loop stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick rolls up every currently-idle conversation. Exported for tests.
func (s *Summarizer) Tick(ctx context.Context) {
	idle, err := s.Store.FindIdleConversations(ctx, s.IdleThreshold)
	if err != nil {
		s.Log.Error().Err(err).Msg("querying idle conversations")
		return
	}
	for _, conv := range idle {
		s.rollup(ctx, conv)
	}
}

// SummarizeAll rolls up every active conversation regardless of idle
// time; called once at shutdown before channels stop.
func (s *Summarizer) SummarizeAll(ctx context.Context) {
	active, err := s.Store.FindAllActiveConversations(ctx)
	if err != nil {
		s.Log.Error().Err(err).Msg("querying active conversations at shutdown")
		return
	}
	for _, conv := range active {
		s.rollup(ctx, conv)
	}
}

func (s *Summarizer) rollup(ctx context.Context, conv store.Conversation) {
	log := s.Log.With().Str("conversation", conv.ID).Str("sender", conv.SenderID).Logger()

	msgs, err := s.Store.GetConversationMessages(ctx, conv.ID)
	if err != nil {
		log.Error().Err(err).Msg("loading conversation messages")
		return
	}
	if len(msgs) == 0 {
		if err := s.Store.CloseConversation(ctx, conv.ID, ""); err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Error().Err(err).Msg("closing empty conversation")
		}
		return
	}
	transcript := Transcript(msgs)

	summary, err := s.summarize(ctx, transcript)
	if err != nil {
		log.Warn().Err(err).Msg("summary failed, closing with fallback")
		summary = fmt.Sprintf("(%d messages, summary unavailable)", len(msgs))
	} else {
		s.extractFacts(ctx, conv.SenderID, transcript, log)
	}

	if err := s.Store.CloseConversation(ctx, conv.ID, summary); err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Error().Err(err).Msg("closing conversation")
	}
}

// Transcript renders messages as the "User: / Assistant:" text both
// provider calls consume.
func Transcript(msgs []store.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		role := "User"
		if m.Role == store.MessageRoleAssistant {
			role = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, m.Content)
	}
	return b.String()
}

func (s *Summarizer) summarize(ctx context.Context, transcript string) (string, error) {
	resp, err := s.Provider.Complete(ctx, provider.Context{
		SystemPrompt: s.SummaryPrompt,
		Message:      transcript,
	})
	if err != nil {
		return "", err
	}
	summary := strings.TrimSpace(resp.Text)
	if summary == "" {
		return "", errors.New("summarizer: empty summary")
	}
	return summary, nil
}

// extractFacts asks a separate provider call for `key: value` lines
// (or the word "none") and stores each line that survives fact
// validation. Failures here never block the close.
func (s *Summarizer) extractFacts(ctx context.Context, senderID, transcript string, log zerolog.Logger) {
	resp, err := s.Provider.Complete(ctx, provider.Context{
		SystemPrompt: s.FactsPrompt,
		Message:      transcript,
	})
	if err != nil {
		log.Warn().Err(err).Msg("fact extraction call failed")
		return
	}
	for key, value := range ParseFactLines(resp.Text) {
		if err := s.Store.SetFact(ctx, senderID, key, value); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("storing extracted fact")
		}
	}
}

// ParseFactLines parses the fact-extraction response: one `key: value`
// per line, the literal "none" meaning nothing to store. Lines that
// fail fact validation are dropped.
func ParseFactLines(text string) map[string]string {
	out := map[string]string{}
	trimmed := strings.TrimSpace(text)
	if strings.EqualFold(trimmed, "none") {
		return out
	}
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "- "))
		if line == "" || strings.EqualFold(line, "none") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if store.ValidateFact(key, value) != nil {
			continue
		}
		out[key] = value
	}
	return out
}
