// Package i18n is the gateway's one localization surface: every string
// that reaches a user is routed through T, F, Confirm or one of the
// build-progress helpers in this package, keyed by (message id, language), with English as the universal
// fallback for unsupported languages and unknown keys. No call site
// concatenates language-specific fragments itself.
package i18n

import "fmt"

// Supported lists the response languages the gateway recognizes by
// name, matching pkg/context's DetectLanguage output set.
var Supported = []string{
	"English", "Spanish", "Portuguese", "French", "German", "Italian", "Dutch", "Russian",
}

// table maps message id -> language -> localized string. A missing
// language entry falls back to the "English" entry, and a missing key
// entirely falls back to returning the key itself (callers only ever
// pass known ids, so this only matters if the catalog drifts).
var table = map[string]map[string]string{
	"welcome": {
		"English":    "👋 Hey, glad to have you here! I'm OMEGA, your personal agent.",
		"Spanish":    "👋 ¡Hola, qué bueno tenerte aquí! Soy OMEGA, tu agente personal.",
		"Portuguese": "👋 Olá, que bom ter você aqui! Eu sou o OMEGA, seu agente pessoal.",
		"French":     "👋 Salut, ravi de vous avoir ici ! Je suis OMEGA, votre agent personnel.",
		"German":     "👋 Hallo, schön dich hier zu haben! Ich bin OMEGA, dein persönlicher Agent.",
		"Italian":    "👋 Ciao, felice di averti qui! Sono OMEGA, il tuo agente personale.",
		"Dutch":      "👋 Hoi, leuk dat je er bent! Ik ben OMEGA, jouw persoonlijke agent.",
		"Russian":    "👋 Привет, рад тебя видеть! Я OMEGA, твой персональный агент.",
	},
	"deny": {
		"English":    "Sorry, you're not authorized to use this assistant.",
		"Spanish":    "Lo siento, no estás autorizado a usar este asistente.",
		"Portuguese": "Desculpe, você não está autorizado a usar este assistente.",
		"French":     "Désolé, vous n'êtes pas autorisé à utiliser cet assistant.",
		"German":     "Entschuldigung, du bist nicht berechtigt, diesen Assistenten zu nutzen.",
		"Italian":    "Spiacente, non sei autorizzato a usare questo assistente.",
		"Dutch":      "Sorry, je hebt geen toestemming om deze assistent te gebruiken.",
		"Russian":    "Извините, у вас нет доступа к этому ассистенту.",
	},
	"error_timeout": {
		"English":    "That took too long, sorry — try again in a bit?",
		"Spanish":    "Eso tardó demasiado, lo siento — ¿puedes intentarlo de nuevo en un momento?",
		"Portuguese": "Isso demorou demais, desculpe — pode tentar de novo daqui a pouco?",
		"French":     "Ça a pris trop de temps, désolé — réessayez dans un instant ?",
		"German":     "Das hat zu lange gedauert, sorry — versuch es gleich nochmal?",
		"Italian":    "Ci ha messo troppo, scusa — puoi riprovare tra poco?",
		"Dutch":      "Dat duurde te lang, sorry — probeer het zo nog eens?",
		"Russian":    "Это заняло слишком много времени, извини — попробуй ещё раз чуть позже?",
	},
	"error_generic": {
		"English":    "Something went wrong on my end, sorry.",
		"Spanish":    "Algo salió mal de mi lado, lo siento.",
		"Portuguese": "Algo deu errado do meu lado, desculpe.",
		"French":     "Quelque chose s'est mal passé de mon côté, désolé.",
		"German":     "Bei mir ist etwas schiefgelaufen, sorry.",
		"Italian":    "Qualcosa è andato storto da parte mia, scusa.",
		"Dutch":      "Er ging iets mis aan mijn kant, sorry.",
		"Russian":    "У меня что-то пошло не так, извини.",
	},
	"error_memory": {
		"English":    "I couldn't reach my memory just now, sorry.",
		"Spanish":    "No pude acceder a mi memoria justo ahora, lo siento.",
		"Portuguese": "Não consegui acessar minha memória agora, desculpe.",
		"French":     "Je n'ai pas pu accéder à ma mémoire à l'instant, désolé.",
		"German":     "Ich konnte gerade nicht auf mein Gedächtnis zugreifen, sorry.",
		"Italian":    "Non sono riuscito a raggiungere la mia memoria, scusa.",
		"Dutch":      "Ik kon mijn geheugen nu niet bereiken, sorry.",
		"Russian":    "Я не смог сейчас обратиться к памяти, извини.",
	},
	"got_it_next": {
		"English":    "Got it, I'll get to this next.",
		"Spanish":    "Entendido, me ocuparé de esto enseguida.",
		"Portuguese": "Entendi, vou cuidar disso em seguida.",
		"French":     "Compris, je m'en occupe juste après.",
		"German":     "Verstanden, ich kümmere mich gleich danach darum.",
		"Italian":    "Capito, me ne occupo subito dopo.",
		"Dutch":      "Begrepen, ik pak dit hierna op.",
		"Russian":    "Понял, займусь этим следующим.",
	},
	"thinking": {
		"English":    "Still thinking about that...",
		"Spanish":    "Todavía pensando en eso...",
		"Portuguese": "Ainda pensando nisso...",
		"French":     "J'y réfléchis encore...",
		"German":     "Denke noch darüber nach...",
		"Italian":    "Ci sto ancora pensando...",
		"Dutch":      "Nog even aan het denken...",
		"Russian":    "Всё ещё думаю об этом...",
	},
	"still_on_it": {
		"English":    "Still on it...",
		"Spanish":    "Sigo en eso...",
		"Portuguese": "Ainda nisso...",
		"French":     "Toujours dessus...",
		"German":     "Bin noch dabei...",
		"Italian":    "Ci sto ancora lavorando...",
		"Dutch":      "Ben er nog mee bezig...",
		"Russian":    "Всё ещё работаю над этим...",
	},
	"task_cancelled_reply": {
		"English":    "Build cancelled.",
		"Spanish":    "Construcción cancelada.",
		"Portuguese": "Construção cancelada.",
		"French":     "Build annulé.",
		"German":     "Build abgebrochen.",
		"Italian":    "Build annullata.",
		"Dutch":      "Build geannuleerd.",
		"Russian":    "Сборка отменена.",
	},
	"reminder": {
		"English":    "Reminder: %s",
		"Spanish":    "Recordatorio: %s",
		"Portuguese": "Lembrete: %s",
		"French":     "Rappel : %s",
		"German":     "Erinnerung: %s",
		"Italian":    "Promemoria: %s",
		"Dutch":      "Herinnering: %s",
		"Russian":    "Напоминание: %s",
	},
	"action_retrying": {
		"English":    "Action failed, retrying in 2 minutes: %s",
		"Spanish":    "La acción falló, reintentando en 2 minutos: %s",
		"Portuguese": "A ação falhou, tentando novamente em 2 minutos: %s",
		"French":     "L'action a échoué, nouvel essai dans 2 minutes : %s",
		"German":     "Aktion fehlgeschlagen, erneuter Versuch in 2 Minuten: %s",
		"Italian":    "Azione fallita, nuovo tentativo tra 2 minuti: %s",
		"Dutch":      "Actie mislukt, nieuwe poging over 2 minuten: %s",
		"Russian":    "Действие не удалось, повтор через 2 минуты: %s",
	},
	"build_confirm_ask": {
		"English":    "Here's what I'd build:\n\n%s\n\nReply 'yes' within 2 minutes to confirm, or 'no' to cancel.",
		"Spanish":    "Esto es lo que construiría:\n\n%s\n\nResponde 'sí' en 2 minutos para confirmar, o 'no' para cancelar.",
		"Portuguese": "Isto é o que eu construiria:\n\n%s\n\nResponda 'sim' em 2 minutos para confirmar, ou 'não' para cancelar.",
		"French":     "Voici ce que je construirais :\n\n%s\n\nRépondez 'oui' sous 2 minutes pour confirmer, ou 'non' pour annuler.",
		"German":     "Das würde ich bauen:\n\n%s\n\nAntworte innerhalb von 2 Minuten mit 'ja' zum Bestätigen oder 'nein' zum Abbrechen.",
		"Italian":    "Ecco cosa costruirei:\n\n%s\n\nRispondi 'sì' entro 2 minuti per confermare, o 'no' per annullare.",
		"Dutch":      "Dit zou ik bouwen:\n\n%s\n\nAntwoord binnen 2 minuten met 'ja' om te bevestigen, of 'nee' om te annuleren.",
		"Russian":    "Вот что я бы построил:\n\n%s\n\nОтветь 'да' в течение 2 минут для подтверждения или 'нет' для отмены.",
	},
	"build_done": {
		"English":    "✅ Build complete: %s\nLocation: %s",
		"Spanish":    "✅ Construcción completa: %s\nUbicación: %s",
		"Portuguese": "✅ Construção concluída: %s\nLocalização: %s",
		"French":     "✅ Build terminé : %s\nEmplacement : %s",
		"German":     "✅ Build abgeschlossen: %s\nSpeicherort: %s",
		"Italian":    "✅ Build completata: %s\nPosizione: %s",
		"Dutch":      "✅ Build voltooid: %s\nLocatie: %s",
		"Russian":    "✅ Сборка завершена: %s\nРасположение: %s",
	},
	"build_failed": {
		"English":    "The build didn't finish: %s",
		"Spanish":    "La construcción no terminó: %s",
		"Portuguese": "A construção não terminou: %s",
		"French":     "Le build ne s'est pas terminé : %s",
		"German":     "Der Build wurde nicht abgeschlossen: %s",
		"Italian":    "La build non è stata completata: %s",
		"Dutch":      "De build is niet voltooid: %s",
		"Russian":    "Сборка не завершилась: %s",
	},
	"setup_proposal": {
		"English":    "Here's my setup proposal:\n\n%s",
		"Spanish":    "Esta es mi propuesta de configuración:\n\n%s",
		"Portuguese": "Esta é a minha proposta de configuração:\n\n%s",
		"French":     "Voici ma proposition de configuration :\n\n%s",
		"German":     "Hier ist mein Einrichtungsvorschlag:\n\n%s",
		"Italian":    "Ecco la mia proposta di configurazione:\n\n%s",
		"Dutch":      "Dit is mijn installatievoorstel:\n\n%s",
		"Russian":    "Вот моё предложение по настройке:\n\n%s",
	},
	"action_failed_final": {
		"English":    "Action failed permanently: %s",
		"Spanish":    "La acción falló permanentemente: %s",
		"Portuguese": "A ação falhou permanentemente: %s",
		"French":     "L'action a échoué définitivement : %s",
		"German":     "Aktion ist endgültig fehlgeschlagen: %s",
		"Italian":    "Azione fallita definitivamente: %s",
		"Dutch":      "Actie definitief mislukt: %s",
		"Russian":    "Действие окончательно не удалось: %s",
	},
}

// F returns the localized string for key in lang with fmt arguments
// substituted into its placeholders.
func F(key, lang string, args ...any) string {
	return fmt.Sprintf(T(key, lang), args...)
}

// T returns the localized string for key in lang, falling back to
// English, then to the raw key if even English is missing.
func T(key, lang string) string {
	entry, ok := table[key]
	if !ok {
		return key
	}
	if v, ok := entry[lang]; ok {
		return v
	}
	if v, ok := entry["English"]; ok {
		return v
	}
	return key
}
