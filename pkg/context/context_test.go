package context

import (
	"strings"
	"testing"
	"time"

	"github.com/omega-agent/omega/pkg/store"
)

func TestDetectLanguage(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"hola qué tal", "Spanish"},
		{"bonjour, je vais bien merci", "French"},
		{"hallo, ich bin heute müde", "German"},
		{"hello, how are you today", "English"},
		{"ciao", "Italian"},
		{"привет как дела", "Russian"},
	}
	for _, c := range cases {
		if got := DetectLanguage(c.text); got != c.want {
			t.Errorf("DetectLanguage(%q) = %q, want %q", c.text, got, c.want)
		}
	}
}

func TestDetectLanguageShortTextSingleMatch(t *testing.T) {
	if got := DetectLanguage("hola"); got != "Spanish" {
		t.Errorf("short greeting should claim Spanish with one match, got %q", got)
	}
}

func TestFormatUserProfileOrdering(t *testing.T) {
	facts := []store.Fact{
		{Key: "occupation", Value: "engineer"},
		{Key: "preferred_language", Value: "English"}, // system key, filtered
		{Key: "pronouns", Value: "they/them"},
		{Key: "name", Value: "Alex"},
		{Key: "hobby", Value: "climbing"},
	}
	got := FormatUserProfile(facts)
	want := "User profile:\n- name: Alex\n- pronouns: they/them\n- occupation: engineer\n- hobby: climbing"
	if got != want {
		t.Errorf("FormatUserProfile =\n%q\nwant\n%q", got, want)
	}
}

func TestFormatUserProfileEmptyWhenOnlySystemFacts(t *testing.T) {
	facts := []store.Fact{{Key: "welcomed", Value: "true"}}
	if got := FormatUserProfile(facts); got != "" {
		t.Errorf("expected empty profile, got %q", got)
	}
}

func TestOnboardingStageMonotonic(t *testing.T) {
	stage := 0
	stage = NextOnboardingStage(stage, 1, false)
	if stage != 1 {
		t.Fatalf("expected stage 1, got %d", stage)
	}
	stage = NextOnboardingStage(stage, 2, false) // still <3 facts
	if stage != 1 {
		t.Fatalf("expected stage to hold at 1, got %d", stage)
	}
	stage = NextOnboardingStage(stage, 3, false)
	if stage != 2 {
		t.Fatalf("expected stage 2, got %d", stage)
	}
	stage = NextOnboardingStage(stage, 3, true)
	if stage != 3 {
		t.Fatalf("expected stage 3 on first task, got %d", stage)
	}
	stage = NextOnboardingStage(stage, 5, true)
	if stage != 4 {
		t.Fatalf("expected stage 4, got %d", stage)
	}
	stage = NextOnboardingStage(stage, 5, true)
	if stage != 5 {
		t.Fatalf("expected terminal stage 5, got %d", stage)
	}
	if OnboardingHint(5, "English") != "" {
		t.Error("terminal stage should have no hint")
	}
}

func TestBootstrapOnboardingStageFixedPoint(t *testing.T) {
	if got := BootstrapOnboardingStage(10, true); got != 5 {
		t.Errorf("a long-time user should bootstrap straight to 5, got %d", got)
	}
	if got := BootstrapOnboardingStage(0, false); got != 0 {
		t.Errorf("a brand new user should bootstrap to 0, got %d", got)
	}
}

func TestComposeTrimsRecallToTokenBudget(t *testing.T) {
	ts := time.Date(2026, 2, 17, 10, 0, 0, 0, time.UTC)
	long := strings.TrimSpace(strings.Repeat("packing peanuts ", 40))
	recall := []store.Message{
		{Content: long, Timestamp: ts},
		{Content: long, Timestamp: ts},
	}
	summaries := []store.Conversation{{Summary: "short earlier chat", LastActivity: ts}}

	roomy := &Builder{TokenBudget: 100000}
	full := roomy.compose("base rules", nil, summaries, recall, nil, nil, nil, "English", "")
	if !strings.Contains(full, "Related past context") || !strings.Contains(full, "Recent conversation history") {
		t.Fatalf("roomy budget must keep every section:\n%s", full)
	}

	tight := &Builder{TokenBudget: 60}
	trimmed := tight.compose("base rules", nil, summaries, recall, nil, nil, nil, "English", "")
	if strings.Contains(trimmed, "packing peanuts") {
		t.Fatalf("recall entries must be dropped under a tight budget:\n%s", trimmed)
	}
	if !strings.Contains(trimmed, "Always respond in English") {
		t.Fatalf("load-bearing sections must survive trimming:\n%s", trimmed)
	}
}
