package i18n

import "fmt"

// confirmTemplates holds the "✓ ..." confirmation line templates the
// message pipeline (C5 step 10) appends per applied marker category.
// Each template's single %s is the marker's user-facing detail.
var confirmTemplates = map[string]map[string]string{
	"scheduled": {
		"English":    "✓ Scheduled: %s",
		"Spanish":    "✓ Programado: %s",
		"Portuguese": "✓ Agendado: %s",
		"French":     "✓ Planifié : %s",
		"German":     "✓ Geplant: %s",
		"Italian":    "✓ Programmato: %s",
		"Dutch":      "✓ Gepland: %s",
		"Russian":    "✓ Запланировано: %s",
	},
	"action_scheduled": {
		"English":    "✓ Action scheduled: %s",
		"Spanish":    "✓ Acción programada: %s",
		"Portuguese": "✓ Ação agendada: %s",
		"French":     "✓ Action planifiée : %s",
		"German":     "✓ Aktion geplant: %s",
		"Italian":    "✓ Azione programmata: %s",
		"Dutch":      "✓ Actie gepland: %s",
		"Russian":    "✓ Действие запланировано: %s",
	},
	"task_cancelled": {
		"English":    "✓ Task cancelled: %s",
		"Spanish":    "✓ Tarea cancelada: %s",
		"Portuguese": "✓ Tarefa cancelada: %s",
		"French":     "✓ Tâche annulée : %s",
		"German":     "✓ Aufgabe abgebrochen: %s",
		"Italian":    "✓ Attività annullata: %s",
		"Dutch":      "✓ Taak geannuleerd: %s",
		"Russian":    "✓ Задача отменена: %s",
	},
	"task_updated": {
		"English":    "✓ Task updated: %s",
		"Spanish":    "✓ Tarea actualizada: %s",
		"Portuguese": "✓ Tarefa atualizada: %s",
		"French":     "✓ Tâche mise à jour : %s",
		"German":     "✓ Aufgabe aktualisiert: %s",
		"Italian":    "✓ Attività aggiornata: %s",
		"Dutch":      "✓ Taak bijgewerkt: %s",
		"Russian":    "✓ Задача обновлена: %s",
	},
	"language_switched": {
		"English":    "✓ Switched to %s",
		"Spanish":    "✓ Cambiado a %s",
		"Portuguese": "✓ Mudado para %s",
		"French":     "✓ Passé en %s",
		"German":     "✓ Gewechselt zu %s",
		"Italian":    "✓ Passato a %s",
		"Dutch":      "✓ Overgeschakeld naar %s",
		"Russian":    "✓ Переключено на %s",
	},
	"personality_updated": {
		"English":    "✓ Personality updated",
		"Spanish":    "✓ Personalidad actualizada",
		"Portuguese": "✓ Personalidade atualizada",
		"French":     "✓ Personnalité mise à jour",
		"German":     "✓ Persönlichkeit aktualisiert",
		"Italian":    "✓ Personalità aggiornata",
		"Dutch":      "✓ Persoonlijkheid bijgewerkt",
		"Russian":    "✓ Личность обновлена",
	},
	"personality_reset": {
		"English":    "✓ Personality reset",
		"Spanish":    "✓ Personalidad restablecida",
		"Portuguese": "✓ Personalidade redefinida",
		"French":     "✓ Personnalité réinitialisée",
		"German":     "✓ Persönlichkeit zurückgesetzt",
		"Italian":    "✓ Personalità ripristinata",
		"Dutch":      "✓ Persoonlijkheid gereset",
		"Russian":    "✓ Личность сброшена",
	},
	"project_activated": {
		"English":    "✓ Switched to project: %s",
		"Spanish":    "✓ Cambiado al proyecto: %s",
		"Portuguese": "✓ Mudado para o projeto: %s",
		"French":     "✓ Passé au projet : %s",
		"German":     "✓ Zu Projekt gewechselt: %s",
		"Italian":    "✓ Passato al progetto: %s",
		"Dutch":      "✓ Overgeschakeld naar project: %s",
		"Russian":    "✓ Переключено на проект: %s",
	},
	"project_deactivated": {
		"English":    "✓ Project deactivated",
		"Spanish":    "✓ Proyecto desactivado",
		"Portuguese": "✓ Projeto desativado",
		"French":     "✓ Projet désactivé",
		"German":     "✓ Projekt deaktiviert",
		"Italian":    "✓ Progetto disattivato",
		"Dutch":      "✓ Project gedeactiveerd",
		"Russian":    "✓ Проект деактивирован",
	},
	"conversation_forgotten": {
		"English":    "✓ Conversation forgotten",
		"Spanish":    "✓ Conversación olvidada",
		"Portuguese": "✓ Conversa esquecida",
		"French":     "✓ Conversation oubliée",
		"German":     "✓ Unterhaltung vergessen",
		"Italian":    "✓ Conversazione dimenticata",
		"Dutch":      "✓ Gesprek vergeten",
		"Russian":    "✓ Разговор забыт",
	},
	"facts_purged": {
		"English":    "✓ Facts purged",
		"Spanish":    "✓ Datos eliminados",
		"Portuguese": "✓ Fatos apagados",
		"French":     "✓ Faits supprimés",
		"German":     "✓ Fakten gelöscht",
		"Italian":    "✓ Fatti eliminati",
		"Dutch":      "✓ Feiten gewist",
		"Russian":    "✓ Факты удалены",
	},
}

// Confirm formats a "✓ ..." confirmation line for kind in lang,
// substituting detail into the template's one placeholder if it has
// one. Unknown kinds return an empty string so callers can safely skip
// appending it.
func Confirm(kind, lang, detail string) string {
	entry, ok := confirmTemplates[kind]
	if !ok {
		return ""
	}
	tmpl, ok := entry[lang]
	if !ok {
		tmpl = entry["English"]
	}
	if tmpl == "" {
		return ""
	}
	if countVerb(tmpl) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, detail)
}

func countVerb(tmpl string) int {
	n := 0
	for i := 0; i < len(tmpl)-1; i++ {
		if tmpl[i] == '%' && tmpl[i+1] == 's' {
			n++
		}
	}
	return n
}
