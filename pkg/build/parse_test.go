package build

import "testing"

func TestParseProjectBriefValid(t *testing.T) {
	text := "PROJECT_NAME: price-tracker\nLANGUAGE: Go\nDATABASE: SQLite\nFRONTEND: no\n" +
		"SCOPE: A CLI tool that tracks cryptocurrency prices.\nCOMPONENTS:\n- price fetcher\n- storage engine\n- alert system"
	brief, ok := ParseProjectBrief(text)
	if !ok {
		t.Fatal("expected a parsed brief")
	}
	if brief.Name != "price-tracker" || brief.Language != "Go" || brief.Database != "SQLite" {
		t.Errorf("got %+v", brief)
	}
	if brief.Frontend {
		t.Error("Frontend should be false")
	}
	if len(brief.Components) != 3 {
		t.Errorf("Components = %v, want 3 entries", brief.Components)
	}
}

func TestParseProjectBriefDefaults(t *testing.T) {
	brief, ok := ParseProjectBrief("PROJECT_NAME: my-tool\nSCOPE: Does stuff")
	if !ok {
		t.Fatal("expected a parsed brief")
	}
	if brief.Language != "Go" || brief.Database != "SQLite" || brief.Frontend {
		t.Errorf("defaults not applied: %+v", brief)
	}
}

func TestParseProjectBriefMissingOrUnsafeName(t *testing.T) {
	cases := []string{
		"LANGUAGE: Python\nSCOPE: A web scraper",
		"PROJECT_NAME: \nLANGUAGE: Go",
		"PROJECT_NAME: ../../../etc\nSCOPE: evil",
		"PROJECT_NAME: foo/bar\nSCOPE: evil",
	}
	for _, text := range cases {
		if _, ok := ParseProjectBrief(text); ok {
			t.Errorf("expected rejection for %q", text)
		}
	}
}

func TestParseVerificationResult(t *testing.T) {
	if v := ParseVerificationResult("some output\nVERIFICATION: PASS"); !v.Pass {
		t.Error("expected pass")
	}
	v := ParseVerificationResult("broken\nREASON: missing import\nVERIFICATION: FAIL")
	if v.Pass || v.Reason != "missing import" {
		t.Errorf("got %+v", v)
	}
	v = ParseVerificationResult("no marker here")
	if v.Pass || v.Reason == "" {
		t.Errorf("expected a fallback failure reason, got %+v", v)
	}
}

func TestParseReviewResult(t *testing.T) {
	if r := ParseReviewResult("looks good\nREVIEW: PASS"); !r.Pass {
		t.Error("expected pass")
	}
	r := ParseReviewResult("REVIEW: FAIL\nSQL injection in handler.go:42\nMissing error check")
	if r.Pass || r.Findings == "" {
		t.Errorf("expected findings, got %+v", r)
	}
}

func TestParseBuildSummary(t *testing.T) {
	text := "All done.\nBUILD_COMPLETE\nPROJECT: price-tracker\nLOCATION: /data/workspace/builds/price-tracker\n" +
		"LANGUAGE: Go\nSUMMARY: Tracks prices.\nUSAGE: run ./price-tracker\nSKILL: price-tracker"
	summary, ok := ParseBuildSummary(text)
	if !ok {
		t.Fatal("expected a parsed summary")
	}
	if summary.Project != "price-tracker" || summary.Skill != "price-tracker" {
		t.Errorf("got %+v", summary)
	}
}

func TestParseBuildSummaryMissingMarker(t *testing.T) {
	if _, ok := ParseBuildSummary("no completion marker"); ok {
		t.Error("expected rejection without BUILD_COMPLETE")
	}
}

func TestParseDiscoveryOutputCompletePrecedence(t *testing.T) {
	text := "DISCOVERY_QUESTIONS\nWhat currency?\nDISCOVERY_COMPLETE\nIDEA_BRIEF:\nTrack BTC/USD hourly."
	out := ParseDiscoveryOutput(text)
	if !out.Complete || out.Brief != "Track BTC/USD hourly." {
		t.Errorf("got %+v", out)
	}
}

func TestParseDiscoveryOutputQuestions(t *testing.T) {
	out := ParseDiscoveryOutput("Let me ask more.\nDISCOVERY_QUESTIONS\nWhich exchange do you use?")
	if out.Complete || out.Questions != "Which exchange do you use?" {
		t.Errorf("got %+v", out)
	}
}

func TestParseDiscoveryOutputAutoComplete(t *testing.T) {
	out := ParseDiscoveryOutput("  just a plain reply with no markers  ")
	if !out.Complete || out.Brief != "just a plain reply with no markers" {
		t.Errorf("got %+v", out)
	}
}

func TestParseDiscoveryRound(t *testing.T) {
	if got := ParseDiscoveryRound("CREATED: x\nROUND: 2\n"); got != 2 {
		t.Errorf("got %d, want 2", got)
	}
	if got := ParseDiscoveryRound("no round header"); got != 1 {
		t.Errorf("got %d, want default 1", got)
	}
}
