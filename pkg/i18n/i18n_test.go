package i18n

import "testing"

func TestTFallsBackToEnglish(t *testing.T) {
	if got := T("welcome", "Klingon"); got != T("welcome", "English") {
		t.Errorf("unsupported language should fall back to English, got %q", got)
	}
}

func TestTUnknownKeyReturnsKey(t *testing.T) {
	if got := T("no_such_key", "English"); got != "no_such_key" {
		t.Errorf("unknown key should echo itself, got %q", got)
	}
}

func TestConfirmSubstitution(t *testing.T) {
	got := Confirm("scheduled", "English", "Call John")
	want := "✓ Scheduled: Call John"
	if got != want {
		t.Errorf("Confirm() = %q, want %q", got, want)
	}
}

func TestConfirmNoPlaceholder(t *testing.T) {
	got := Confirm("facts_purged", "French", "unused")
	if got == "" {
		t.Fatal("expected a non-empty confirmation")
	}
}

func TestBuildPhaseMessageKnownAndFallback(t *testing.T) {
	if got := BuildPhaseMessage("English", "analyst"); got != "⚙️ Analyzing requirements..." {
		t.Errorf("got %q", got)
	}
	if got := BuildPhaseMessage("English", "custom-phase"); got != "⚙️ custom phase..." {
		t.Errorf("unknown phase fallback: got %q", got)
	}
}
