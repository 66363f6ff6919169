package pipeline

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/omega-agent/omega/pkg/store"
)

// handleCommand dispatches the slash-command surface synchronously
// against the store and returns the reply text (empty string means
// nothing to send). Commands short-circuit the rest of the pipeline.
func (p *Pipeline) handleCommand(ctx context.Context, msg store.IncomingMessage, facts []store.Fact, language string) string {
	fields := strings.Fields(strings.TrimSpace(msg.Text))
	if len(fields) == 0 {
		return ""
	}
	cmd := strings.ToLower(fields[0])
	arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(msg.Text), fields[0]))

	switch cmd {
	case "/status":
		return fmt.Sprintf("Uptime: %s\nProvider: %s\nDB: %s",
			p.Uptime().Round(1e9), p.Provider.Name(), p.DBInfo)

	case "/memory":
		counts, err := p.Store.Counts(ctx)
		if err != nil {
			p.Log.Error().Err(err).Msg("/memory counts")
			return "Couldn't read memory stats."
		}
		return fmt.Sprintf("Conversations: %d\nMessages: %d\nFacts: %d",
			counts.Conversations, counts.Messages, counts.Facts)

	case "/history":
		summaries, err := p.Store.RecentSummaries(ctx, msg.Channel, msg.SenderID, 5)
		if err != nil || len(summaries) == 0 {
			return "No conversation history yet."
		}
		var b strings.Builder
		b.WriteString("Recent conversations:")
		for _, c := range summaries {
			fmt.Fprintf(&b, "\n- [%s] %s", c.LastActivity.Format("2006-01-02"), c.Summary)
		}
		return b.String()

	case "/facts":
		var lines []string
		for _, f := range facts {
			if store.SystemFactKeys[f.Key] {
				continue
			}
			lines = append(lines, fmt.Sprintf("- %s: %s", f.Key, f.Value))
		}
		if len(lines) == 0 {
			return "I don't have any facts stored about you yet."
		}
		sort.Strings(lines)
		return "What I know about you:\n" + strings.Join(lines, "\n")

	case "/forget":
		conv, err := p.Store.GetOrCreateConversation(ctx, msg.Channel, msg.SenderID)
		if err == nil {
			_ = p.Store.CloseConversation(ctx, conv.ID, "")
		}
		return "Conversation forgotten."

	case "/tasks":
		tasks, err := p.Store.GetTasksForSender(ctx, msg.SenderID)
		if err != nil || len(tasks) == 0 {
			return "No pending tasks."
		}
		var b strings.Builder
		b.WriteString("Pending tasks:")
		for _, t := range tasks {
			badge := ""
			if t.Type == store.TaskTypeAction {
				badge = " [action]"
			}
			id := t.ID
			if len(id) > 8 {
				id = id[:8]
			}
			fmt.Fprintf(&b, "\n- [%s] %s%s (due %s)", id, t.Description, badge, t.DueAt)
		}
		return b.String()

	case "/cancel":
		if arg == "" {
			return "Usage: /cancel <task id>"
		}
		ok, err := p.Store.CancelTask(ctx, msg.SenderID, arg)
		if err != nil || !ok {
			return "No task found with that id."
		}
		return "Task cancelled."

	case "/language":
		if arg == "" {
			return "Current language: " + language
		}
		if err := p.Store.SetSystemFact(ctx, msg.SenderID, "preferred_language", arg); err != nil {
			return "Couldn't set language."
		}
		return "Language set to " + arg + "."

	case "/personality":
		if arg == "" {
			current := factValue(facts, "personality")
			if current == "" {
				return "No personality set. Use /personality <description> to set one."
			}
			return "Current personality: " + current
		}
		if strings.EqualFold(arg, "reset") {
			_ = p.Store.SetSystemFact(ctx, msg.SenderID, "personality", "")
			return "Personality reset."
		}
		if err := p.Store.SetSystemFact(ctx, msg.SenderID, "personality", arg); err != nil {
			return "Couldn't set personality."
		}
		return "Personality updated."

	case "/purge":
		if err := p.Store.DeleteNonSystemFacts(ctx, msg.SenderID); err != nil {
			return "Couldn't purge facts."
		}
		return "All stored facts deleted."

	case "/skills":
		if p.Skills == nil || len(p.Skills.Skills) == 0 {
			return "No skills installed."
		}
		var b strings.Builder
		b.WriteString("Skills:")
		for _, s := range p.Skills.Skills {
			status := "✓"
			if !s.Available {
				status = "✗"
			}
			fmt.Fprintf(&b, "\n%s %s — %s", status, s.Name, s.Description)
		}
		return b.String()

	case "/projects":
		entries, err := os.ReadDir(p.Layout.ProjectsDir())
		if err != nil || len(entries) == 0 {
			return "No projects yet."
		}
		active := factValue(facts, "active_project")
		var b strings.Builder
		b.WriteString("Projects:")
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			mark := ""
			if e.Name() == active {
				mark = " (active)"
			}
			fmt.Fprintf(&b, "\n- %s%s", e.Name(), mark)
		}
		return b.String()

	case "/project":
		active := factValue(facts, "active_project")
		if arg == "" {
			if active == "" {
				return "No active project. Use /project <name> to activate one."
			}
			return "Active project: " + active
		}
		if strings.EqualFold(arg, "off") {
			_ = p.Store.SetSystemFact(ctx, msg.SenderID, "active_project", "")
			return "Project deactivated."
		}
		if err := p.Store.SetSystemFact(ctx, msg.SenderID, "active_project", arg); err != nil {
			return "Couldn't activate project."
		}
		return "Switched to project: " + arg

	case "/setup":
		return p.beginSetup(ctx, msg, arg, language)

	case "/whatsapp":
		if p.Effects.RestartWhatsAppPairing == nil {
			return "WhatsApp is not configured."
		}
		if err := p.Effects.RestartWhatsAppPairing(ctx); err != nil {
			return "Couldn't restart WhatsApp pairing: " + err.Error()
		}
		return "WhatsApp pairing restarted — scan the new QR code."

	case "/help":
		return helpText

	default:
		return "Unknown command. Type /help for the list."
	}
}

const helpText = `Commands:
/status — uptime, provider, DB info
/memory — stored conversation/message/fact counts
/history — last 5 conversation summaries
/facts — what I know about you
/forget — forget the current conversation
/tasks — pending tasks
/cancel <id> — cancel a task
/language [lang] — show or set my response language
/personality [text|reset] — show, set, or reset my personality
/purge — delete all stored facts
/skills — installed skills
/projects — list projects
/project [name|off] — show, activate, or deactivate a project
/setup [description] — start a guided setup
/whatsapp — re-pair WhatsApp
/help — this list`
