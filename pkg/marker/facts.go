package marker

import "strings"

// ExtractLangSwitch returns the last requested language name (if any)
// and the stripped text. Multiple LANG_SWITCH markers in one response
// are unusual but the last one wins, matching "last write" semantics
// used elsewhere in the catalog (e.g. UPDATE_TASK overwrites).
func ExtractLangSwitch(text string) (language string, found bool, remaining string) {
	values, remaining := ExtractValued(text, LangSwitch)
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			language, found = v, true
		}
	}
	return language, found, remaining
}

// PersonalityDirective is a parsed PERSONALITY: occurrence.
type PersonalityDirective struct {
	Reset bool
	Text  string
}

// ExtractPersonality returns the last PERSONALITY: occurrence, if any.
func ExtractPersonality(text string) (d *PersonalityDirective, remaining string) {
	values, remaining := ExtractValued(text, Personality)
	for _, v := range values {
		v = strings.TrimSpace(v)
		if strings.EqualFold(v, "reset") {
			d = &PersonalityDirective{Reset: true}
			continue
		}
		if v != "" {
			d = &PersonalityDirective{Text: v}
		}
	}
	return d, remaining
}

// ExtractProjectActivate returns the last requested project name.
func ExtractProjectActivate(text string) (project string, found bool, remaining string) {
	values, remaining := ExtractValued(text, ProjectActivate)
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			project, found = v, true
		}
	}
	return project, found, remaining
}

// ExtractProjectDeactivate reports whether a PROJECT_DEACTIVATE marker
// was present.
func ExtractProjectDeactivate(text string) (found bool, remaining string) {
	count, remaining := ExtractBare(text, ProjectDeactivate)
	return count > 0, remaining
}

// ExtractForgetConversation reports whether FORGET_CONVERSATION was
// present.
func ExtractForgetConversation(text string) (found bool, remaining string) {
	count, remaining := ExtractBare(text, ForgetConversation)
	return count > 0, remaining
}

// ExtractPurgeFacts reports whether PURGE_FACTS was present.
func ExtractPurgeFacts(text string) (found bool, remaining string) {
	count, remaining := ExtractBare(text, PurgeFacts)
	return count > 0, remaining
}

// ExtractWhatsAppQR reports whether WHATSAPP_QR was present.
func ExtractWhatsAppQR(text string) (found bool, remaining string) {
	count, remaining := ExtractBare(text, WhatsAppQR)
	return count > 0, remaining
}
