// Package scheduler implements the due-task polling loop (C6):
// reminders are composed and sent directly; action tasks invoke the
// provider against a specialized prompt and are completed, retried, or
// permanently failed based on the ACTION_OUTCOME marker in the reply.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/omega-agent/omega/pkg/channel"
	"github.com/omega-agent/omega/pkg/i18n"
	"github.com/omega-agent/omega/pkg/pipeline"
	"github.com/omega-agent/omega/pkg/provider"
	"github.com/omega-agent/omega/pkg/skills"
	"github.com/omega-agent/omega/pkg/store"
)

// MaxActionRetries bounds how many times a failed action task is
// rescheduled before being marked permanently failed.
const MaxActionRetries = 3

// Loop polls the store for due tasks and delivers them.
type Loop struct {
	Store      store.Store
	Audit      store.AuditLogger
	Provider   provider.Provider
	Channels   *channel.Registry
	Skills     *skills.Catalog
	Effects    *pipeline.Effects
	BasePrompt string
	Poll       time.Duration
	Log        zerolog.Logger

	// Now is the clock, overridable in tests.
	Now func() time.Time
}

func (l *Loop) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// Run polls until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	l.Log.Info().Dur("poll", l.Poll).Msg("scheduler loop started")
	ticker := time.NewTicker(l.Poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			l.Log.Info().Msg("scheduler loop stopped")
			return
		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

// Tick delivers every currently-due task once. Exported for tests.
func (l *Loop) Tick(ctx context.Context) {
	tasks, err := l.Store.GetDueTasks(ctx, l.now().UTC())
	if err != nil {
		l.Log.Error().Err(err).Msg("querying due tasks")
		return
	}
	for _, t := range tasks {
		switch t.Type {
		case store.TaskTypeAction:
			l.runAction(ctx, t)
		default:
			l.deliverReminder(ctx, t)
		}
	}
}

// deliverReminder sends "Reminder: {desc}" to the task's original
// channel and reply target, then completes the task (advancing
// recurring tasks). Reminders do not retry: a failed send is logged
// and the task still completes, per the best-effort delivery rule.
func (l *Loop) deliverReminder(ctx context.Context, t store.Task) {
	lang := l.senderLanguage(ctx, t.SenderID)
	text := i18n.F("reminder", lang, t.Description)

	if ch := l.Channels.Get(t.Channel); ch != nil {
		if err := ch.Send(ctx, store.OutgoingMessage{Text: text, ReplyTarget: t.ReplyTarget}); err != nil {
			l.Log.Error().Err(err).Str("task", t.ID).Msg("sending reminder")
		}
	} else {
		l.Log.Warn().Str("channel", t.Channel).Str("task", t.ID).Msg("reminder channel missing")
	}

	if err := l.Store.CompleteTask(ctx, t.ID, t.Repeat); err != nil {
		l.Log.Error().Err(err).Str("task", t.ID).Msg("completing reminder")
	}
}

func (l *Loop) auditAction(ctx context.Context, t store.Task, output string, status store.AuditStatus, reason string, processingMs int64, model string) {
	if l.Audit == nil {
		return
	}
	err := l.Audit.Append(ctx, store.AuditEntry{
		Timestamp:    l.now(),
		Channel:      t.Channel,
		SenderID:     t.SenderID,
		Input:        t.Description,
		Output:       output,
		Provider:     l.Provider.Name(),
		Model:        model,
		ProcessingMs: processingMs,
		Status:       status,
		DenialReason: reason,
	})
	if err != nil {
		l.Log.Error().Err(err).Msg("appending action audit entry")
	}
}

func (l *Loop) senderLanguage(ctx context.Context, senderID string) string {
	facts, err := l.Store.GetFacts(ctx, senderID)
	if err != nil {
		return "English"
	}
	for _, f := range facts {
		if f.Key == "preferred_language" && f.Value != "" {
			return f.Value
		}
	}
	return "English"
}
