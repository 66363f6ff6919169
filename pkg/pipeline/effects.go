package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.mau.fi/util/ptr"

	"github.com/omega-agent/omega/pkg/heartbeat"
	"github.com/omega-agent/omega/pkg/i18n"
	"github.com/omega-agent/omega/pkg/marker"
	"github.com/omega-agent/omega/pkg/skills"
	"github.com/omega-agent/omega/pkg/store"
	"github.com/omega-agent/omega/pkg/textfs"
)

// HeartbeatControl is the slice of the heartbeat runner the marker
// applier needs: live interval updates that also persist to config.
type HeartbeatControl interface {
	SetInterval(minutes int) error
}

// Scope identifies whose response is being processed and where
// follow-up tasks should deliver.
type Scope struct {
	Channel        string
	SenderID       string
	ReplyTarget    string
	Language       string
	ConversationID string // "" when no conversation is in play (scheduler, heartbeat)
}

// Effects applies the ordered marker protocol to a model response:
// extract each category, perform its side effect, strip its markers,
// and finally sweep any stragglers so no marker literal ever reaches a
// channel. Shared by the message pipeline, the scheduler's action
// tasks, and the heartbeat loop.
type Effects struct {
	Store     store.Store
	Skills    *skills.Catalog
	Layout    textfs.Layout
	Heartbeat HeartbeatControl
	Log       zerolog.Logger

	// RestartWhatsAppPairing is invoked on a WHATSAPP_QR marker; nil
	// when no WhatsApp channel is registered.
	RestartWhatsAppPairing func(ctx context.Context) error

	// Now is the clock, overridable in tests.
	Now func() time.Time
}

func (e *Effects) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Apply processes every marker category in the fixed order the
// protocol defines (purges before schedules, so fresh tasks survive a
// PURGE_FACTS in the same response). It returns the cleaned text and
// the localized confirmation lines to append to the outbound message.
// Individual side-effect failures are logged and skipped; Apply never
// aborts the response.
func (e *Effects) Apply(ctx context.Context, scope Scope, text string) (string, []string) {
	var confirms []string
	add := func(kind, detail string) {
		if line := i18n.Confirm(kind, scope.Language, detail); line != "" {
			confirms = append(confirms, line)
		}
	}

	if lang, found, rest := marker.ExtractLangSwitch(text); found {
		text = rest
		if err := e.Store.SetSystemFact(ctx, scope.SenderID, "preferred_language", lang); err != nil {
			e.Log.Warn().Err(err).Msg("applying LANG_SWITCH")
		} else {
			scope.Language = lang
			add("language_switched", lang)
		}
	}

	if d, rest := marker.ExtractPersonality(text); d != nil {
		text = rest
		if d.Reset {
			if err := e.Store.SetSystemFact(ctx, scope.SenderID, "personality", ""); err == nil {
				add("personality_reset", "")
			}
		} else {
			if err := e.Store.SetSystemFact(ctx, scope.SenderID, "personality", d.Text); err == nil {
				add("personality_updated", "")
			}
		}
	}

	if found, rest := marker.ExtractPurgeFacts(text); found {
		text = rest
		if err := e.Store.DeleteNonSystemFacts(ctx, scope.SenderID); err != nil {
			e.Log.Warn().Err(err).Msg("applying PURGE_FACTS")
		} else {
			add("facts_purged", "")
		}
	}

	if found, rest := marker.ExtractForgetConversation(text); found {
		text = rest
		if scope.ConversationID != "" {
			if err := e.Store.CloseConversation(ctx, scope.ConversationID, ""); err != nil {
				e.Log.Warn().Err(err).Msg("applying FORGET_CONVERSATION")
			} else {
				add("conversation_forgotten", "")
			}
		}
	}

	if project, found, rest := marker.ExtractProjectActivate(text); found {
		text = rest
		if marker.ValidProjectName(project) {
			if err := e.Store.SetSystemFact(ctx, scope.SenderID, "active_project", project); err == nil {
				if scope.ConversationID != "" {
					_ = e.Store.CloseConversation(ctx, scope.ConversationID, "")
					scope.ConversationID = ""
				}
				add("project_activated", project)
			}
		} else {
			e.Log.Warn().Str("project", project).Msg("invalid project name in PROJECT_ACTIVATE")
		}
	}
	if found, rest := marker.ExtractProjectDeactivate(text); found {
		text = rest
		if err := e.Store.SetSystemFact(ctx, scope.SenderID, "active_project", ""); err == nil {
			if scope.ConversationID != "" {
				_ = e.Store.CloseConversation(ctx, scope.ConversationID, "")
				scope.ConversationID = ""
			}
			add("project_deactivated", "")
		}
	}

	text = e.applySchedules(ctx, scope, text, add)

	if ids, rest := marker.ExtractCancelTasks(text); len(ids) > 0 {
		text = rest
		for _, id := range ids {
			ok, err := e.Store.CancelTask(ctx, scope.SenderID, id)
			if err != nil {
				e.Log.Warn().Err(err).Str("id", id).Msg("applying CANCEL_TASK")
				continue
			}
			if ok {
				add("task_cancelled", id)
			}
		}
	}

	if updates, rest := marker.ExtractUpdateTasks(text); len(updates) > 0 {
		text = rest
		for _, u := range updates {
			patch := store.TaskPatch{Description: u.Description, DueAt: u.DueAt}
			if u.Repeat != nil {
				patch.Repeat = ptr.Ptr(toStoreRepeat(*u.Repeat))
			}
			ok, err := e.Store.UpdateTask(ctx, scope.SenderID, u.ID, patch)
			if err != nil {
				e.Log.Warn().Err(err).Str("id", u.ID).Msg("applying UPDATE_TASK")
				continue
			}
			if ok {
				add("task_updated", u.ID)
			}
		}
	}

	text = e.applyHeartbeatMarkers(ctx, text)

	if improvements, rest := marker.ExtractSkillImprovements(text); len(improvements) > 0 {
		text = rest
		for _, imp := range improvements {
			if err := e.Skills.AppendLesson(imp.Skill, imp.Lesson, e.now()); err != nil {
				e.Log.Warn().Err(err).Str("skill", imp.Skill).Msg("applying SKILL_IMPROVE")
			}
		}
	}

	if reports, rest := marker.ExtractBugReports(text); len(reports) > 0 {
		text = rest
		for _, desc := range reports {
			if err := textfs.AppendBugReport(e.Layout.BugLogFile(), desc, e.now()); err != nil {
				e.Log.Warn().Err(err).Msg("applying BUG_REPORT")
			}
		}
	}

	if found, rest := marker.ExtractWhatsAppQR(text); found {
		text = rest
		if e.RestartWhatsAppPairing != nil {
			if err := e.RestartWhatsAppPairing(ctx); err != nil {
				e.Log.Warn().Err(err).Msg("applying WHATSAPP_QR")
			}
		}
	}

	return marker.StripAll(text), confirms
}

func (e *Effects) applySchedules(ctx context.Context, scope Scope, text string, add func(kind, detail string)) string {
	reminders, rest := marker.ExtractSchedules(text)
	actions, rest := marker.ExtractScheduleActions(rest)
	for _, d := range append(reminders, actions...) {
		taskType := store.TaskTypeReminder
		confirmKind := "scheduled"
		if d.IsAction {
			taskType = store.TaskTypeAction
			confirmKind = "action_scheduled"
		}
		_, err := e.Store.CreateTask(ctx, store.Task{
			Channel:     scope.Channel,
			SenderID:    scope.SenderID,
			ReplyTarget: scope.ReplyTarget,
			Description: d.Description,
			DueAt:       d.DueAt,
			Repeat:      toStoreRepeat(d.Repeat),
			Type:        taskType,
		})
		if err != nil {
			e.Log.Warn().Err(err).Str("description", d.Description).Msg("creating scheduled task")
			continue
		}
		add(confirmKind, d.Description)
	}
	return rest
}

func (e *Effects) applyHeartbeatMarkers(ctx context.Context, text string) string {
	hbFile := e.Layout.HeartbeatFile()
	suppressFile := e.Layout.HeartbeatSuppressFile()

	if items, rest := marker.ExtractHeartbeatAdds(text); len(items) > 0 {
		text = rest
		for _, item := range items {
			if err := heartbeat.AddItem(hbFile, item); err != nil {
				e.Log.Warn().Err(err).Msg("applying HEARTBEAT_ADD")
			}
		}
	}
	if subs, rest := marker.ExtractHeartbeatRemoves(text); len(subs) > 0 {
		text = rest
		for _, sub := range subs {
			if err := heartbeat.RemoveMatching(hbFile, sub); err != nil {
				e.Log.Warn().Err(err).Msg("applying HEARTBEAT_REMOVE")
			}
		}
	}
	if minutes, found, rest := marker.ExtractHeartbeatInterval(text); found {
		text = rest
		if e.Heartbeat != nil {
			if err := e.Heartbeat.SetInterval(minutes); err != nil {
				e.Log.Warn().Err(err).Msg("applying HEARTBEAT_INTERVAL")
			}
		}
	}
	if sections, rest := marker.ExtractHeartbeatSuppress(text); len(sections) > 0 {
		text = rest
		for _, s := range sections {
			if err := heartbeat.Suppress(suppressFile, s); err != nil {
				e.Log.Warn().Err(err).Msg("applying HEARTBEAT_SUPPRESS_SECTION")
			}
		}
	}
	if sections, rest := marker.ExtractHeartbeatUnsuppress(text); len(sections) > 0 {
		text = rest
		for _, s := range sections {
			if err := heartbeat.Unsuppress(suppressFile, s); err != nil {
				e.Log.Warn().Err(err).Msg("applying HEARTBEAT_UNSUPPRESS_SECTION")
			}
		}
	}
	return text
}

func toStoreRepeat(r marker.Repeat) store.Repeat {
	if r.IsOnce() {
		return store.Repeat{}
	}
	return store.Repeat{Kind: store.RepeatKind(r.Kind), Minutes: r.Minutes}
}
