package i18n

import (
	"fmt"
	"strings"
)

// buildPhaseMessages holds, per language, the 7 fixed per-phase action
// phrases of the build pipeline (analyst through delivery), grounded on
// the original implementation's phase_message table.
var buildPhaseMessages = map[string][7]string{
	"English":    {"Analyzing requirements", "Designing architecture", "Writing tests", "Implementing code", "Validating quality", "Reviewing code", "Preparing delivery"},
	"Spanish":    {"Analizando requisitos", "Diseñando arquitectura", "Escribiendo pruebas", "Implementando código", "Validando calidad", "Revisando código", "Preparando entrega"},
	"Portuguese": {"Analisando requisitos", "Projetando arquitetura", "Escrevendo testes", "Implementando código", "Validando qualidade", "Revisando código", "Preparando entrega"},
	"French":     {"Analyse des exigences", "Conception de l'architecture", "Rédaction des tests", "Implémentation du code", "Validation de la qualité", "Révision du code", "Préparation de la livraison"},
	"German":     {"Analysiere Anforderungen", "Architektur entwerfen", "Tests schreiben", "Code implementieren", "Qualität validieren", "Code überprüfen", "Lieferung vorbereiten"},
	"Italian":    {"Analisi dei requisiti", "Progettazione dell'architettura", "Scrittura dei test", "Implementazione del codice", "Validazione della qualità", "Revisione del codice", "Preparazione della consegna"},
	"Dutch":      {"Vereisten analyseren", "Architectuur ontwerpen", "Tests schrijven", "Code implementeren", "Kwaliteit valideren", "Code reviewen", "Levering voorbereiden"},
	"Russian":    {"Анализ требований", "Проектирование архитектуры", "Написание тестов", "Реализация кода", "Проверка качества", "Обзор кода", "Подготовка к доставке"},
}

// buildPhaseNames maps the pipeline's phase identifiers (in execution
// order) onto buildPhaseMessages' fixed indices.
var buildPhaseNames = map[string]int{
	"analyst": 0, "architect": 1, "test-writer": 2, "developer": 3,
	"qa": 4, "reviewer": 5, "delivery": 6,
}

// BuildPhaseMessage returns the localized "⚙️ <phase>..." progress line
// for a known phase name. Unknown phase names get a generic fallback
// that replaces hyphens with spaces, per spec.md §4.8.
func BuildPhaseMessage(lang, phaseName string) string {
	messages, ok := buildPhaseMessages[lang]
	if !ok {
		messages = buildPhaseMessages["English"]
	}
	if idx, ok := buildPhaseNames[phaseName]; ok {
		return "⚙️ " + messages[idx] + "..."
	}
	return "⚙️ " + strings.ReplaceAll(phaseName, "-", " ") + "..."
}

// QAPassMessage reports a QA phase that verified successfully, noting
// the attempt number when it took more than one try.
func QAPassMessage(lang string, attempt int) string {
	base := pick(lang, map[string]string{
		"English": "All checks passed", "Spanish": "Todas las verificaciones pasaron",
		"Portuguese": "Todas as verificações passaram", "French": "Toutes les vérifications réussies",
		"German": "Alle Prüfungen bestanden", "Italian": "Tutte le verifiche superate",
		"Dutch": "Alle controles geslaagd", "Russian": "Все проверки пройдены",
	})
	if attempt > 1 {
		return fmt.Sprintf("%s (attempt %d).", base, attempt)
	}
	return base + "."
}

// QARetryMessage reports a QA failure that is triggering a developer
// re-invocation, out of a fixed 3-iteration budget (§4.8).
func QARetryMessage(lang string, attempt int, reason string) string {
	tmpl := pick(lang, map[string]string{
		"English":    "Verification %d/3 found issues — fixing...\n%s",
		"Spanish":    "Verificación %d/3 encontró problemas — corrigiendo...\n%s",
		"Portuguese": "Verificação %d/3 encontrou problemas — corrigindo...\n%s",
		"French":     "Vérification %d/3 a trouvé des problèmes — correction...\n%s",
		"German":     "Prüfung %d/3 hat Probleme gefunden — wird behoben...\n%s",
		"Italian":    "Verifica %d/3 ha trovato problemi — correzione...\n%s",
		"Dutch":      "Controle %d/3 vond problemen — wordt opgelost...\n%s",
		"Russian":    "Проверка %d/3 обнаружила проблемы — исправляю...\n%s",
	})
	return fmt.Sprintf(tmpl, attempt, reason)
}

// QAExhaustedMessage reports that all 3 QA iterations failed.
func QAExhaustedMessage(lang, reason, dir string) string {
	tmpl := pick(lang, map[string]string{
		"English":    "Build verification failed after 3 iterations: %s\nPartial results at `%s`",
		"Spanish":    "La verificación falló después de 3 intentos: %s\nResultados parciales en `%s`",
		"Portuguese": "A verificação falhou após 3 tentativas: %s\nResultados parciais em `%s`",
		"French":     "La vérification a échoué après 3 tentatives : %s\nRésultats partiels dans `%s`",
		"German":     "Verifizierung nach 3 Versuchen fehlgeschlagen: %s\nTeilergebnisse in `%s`",
		"Italian":    "La verifica è fallita dopo 3 tentativi: %s\nRisultati parziali in `%s`",
		"Dutch":      "Verificatie mislukt na 3 pogingen: %s\nGedeeltelijke resultaten in `%s`",
		"Russian":    "Проверка не пройдена после 3 попыток: %s\nЧастичные результаты в `%s`",
	})
	return fmt.Sprintf(tmpl, reason, dir)
}

// ReviewPassMessage reports a review phase that passed.
func ReviewPassMessage(lang string, attempt int) string {
	base := pick(lang, map[string]string{
		"English": "Code review passed", "Spanish": "Revisión de código aprobada",
		"Portuguese": "Revisão de código aprovada", "French": "Revue de code réussie",
		"German": "Code-Review bestanden", "Italian": "Revisione del codice superata",
		"Dutch": "Code review geslaagd", "Russian": "Обзор кода пройден",
	})
	if attempt > 1 {
		return fmt.Sprintf("%s (attempt %d).", base, attempt)
	}
	return base + "."
}

// ReviewRetryMessage reports a review failure triggering a developer
// re-invocation, out of a fixed 2-iteration budget (§4.8).
func ReviewRetryMessage(lang, reason string) string {
	tmpl := pick(lang, map[string]string{
		"English":    "Review found issues — fixing...\n%s",
		"Spanish":    "La revisión encontró problemas — corrigiendo...\n%s",
		"Portuguese": "A revisão encontrou problemas — corrigindo...\n%s",
		"French":     "La revue a trouvé des problèmes — correction...\n%s",
		"German":     "Review hat Probleme gefunden — wird behoben...\n%s",
		"Italian":    "La revisione ha trovato problemi — correzione...\n%s",
		"Dutch":      "Review vond problemen — wordt opgelost...\n%s",
		"Russian":    "Обзор обнаружил проблемы — исправляю...\n%s",
	})
	return fmt.Sprintf(tmpl, reason)
}

// ReviewExhaustedMessage reports that both review iterations failed.
func ReviewExhaustedMessage(lang, reason, dir string) string {
	tmpl := pick(lang, map[string]string{
		"English":    "Review failed after 2 attempts: %s\nPartial results at `%s`",
		"Spanish":    "La revisión falló después de 2 intentos: %s\nResultados parciales en `%s`",
		"Portuguese": "A revisão falhou após 2 tentativas: %s\nResultados parciais em `%s`",
		"French":     "La revue a échoué après 2 tentatives : %s\nRésultats partiels dans `%s`",
		"German":     "Code-Review nach 2 Versuchen fehlgeschlagen: %s\nTeilergebnisse in `%s`",
		"Italian":    "La revisione è fallita dopo 2 tentativi: %s\nRisultati parziali in `%s`",
		"Dutch":      "Review mislukt na 2 pogingen: %s\nGedeeltelijke resultaten in `%s`",
		"Russian":    "Обзор не пройден после 2 попыток: %s\nЧастичные результаты в `%s`",
	})
	return fmt.Sprintf(tmpl, reason, dir)
}

func pick(lang string, m map[string]string) string {
	if v, ok := m[lang]; ok {
		return v
	}
	return m["English"]
}
