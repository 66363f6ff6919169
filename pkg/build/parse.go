// Package build implements the seven-phase code-generation pipeline
// (spec.md §4.8): discovery, analyst, architect, test writer, developer,
// QA, reviewer, and delivery, each a single provider invocation against
// a purpose-built agent definition. Parsing here is grounded on
// original_source/backend/src/gateway/builds_parse.rs.
package build

import (
	"strconv"
	"strings"

	"github.com/omega-agent/omega/pkg/textfs"
)

// ProjectBrief is the structured output of the analyst phase.
type ProjectBrief struct {
	Name       string
	Language   string
	Database   string
	Frontend   bool
	Scope      string
	Components []string
}

// VerificationResult is the QA phase's pass/fail verdict.
type VerificationResult struct {
	Pass   bool
	Reason string
}

// ReviewResult is the reviewer phase's pass/fail verdict.
type ReviewResult struct {
	Pass     bool
	Findings string
}

// BuildSummary is the delivery phase's closing report.
type BuildSummary struct {
	Project  string
	Location string
	Language string
	Summary  string
	Usage    string
	Skill    string
}

// ChainState is a snapshot written on phase failure so partial build
// output can be inspected or resumed.
type ChainState struct {
	ProjectName     string
	ProjectDir      string
	CompletedPhases []string
	FailedPhase     string
	FailureReason   string
}

// DiscoveryOutput is the discovery agent's verdict: either it needs
// more information (Questions non-empty) or it has synthesized a brief
// (Complete true).
type DiscoveryOutput struct {
	Complete  bool
	Questions string
	Brief     string
}

func stripMarkdownBold(line string) string {
	return strings.ReplaceAll(strings.TrimSpace(line), "**", "")
}

func fieldValue(text, key string) (string, bool) {
	prefix := key + ":"
	for _, raw := range strings.Split(text, "\n") {
		line := stripMarkdownBold(raw)
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(line[len(prefix):]), true
		}
	}
	return "", false
}

func validProjectName(name string) bool {
	if name == "" || len(name) > 64 || strings.HasPrefix(name, ".") || strings.Contains(name, "..") {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}

// ParseProjectBrief parses the analyst phase's structured output.
// Resilient to markdown-bold-wrapped fields and leading prose. Returns
// false if PROJECT_NAME is missing, empty, or unsafe for use as a
// directory name.
func ParseProjectBrief(text string) (ProjectBrief, bool) {
	name, ok := fieldValue(text, "PROJECT_NAME")
	if !ok {
		return ProjectBrief{}, false
	}
	name = strings.Trim(strings.TrimSpace(name), "`")
	if !validProjectName(name) {
		return ProjectBrief{}, false
	}

	language, _ := fieldValue(text, "LANGUAGE")
	if language == "" {
		language = "Go"
	}
	database, _ := fieldValue(text, "DATABASE")
	if database == "" {
		database = "SQLite"
	}
	frontendVal, _ := fieldValue(text, "FRONTEND")
	frontend := strings.HasPrefix(strings.ToLower(frontendVal), "y")
	scope, _ := fieldValue(text, "SCOPE")
	if scope == "" {
		scope = "A software project."
	}

	var components []string
	inComponents := false
	for _, raw := range strings.Split(text, "\n") {
		line := stripMarkdownBold(raw)
		switch {
		case strings.HasPrefix(line, "COMPONENTS:"):
			inComponents = true
		case inComponents && strings.HasPrefix(line, "- "):
			components = append(components, strings.TrimSpace(line[2:]))
		case inComponents:
			inComponents = false
		}
	}

	return ProjectBrief{
		Name:       name,
		Language:   language,
		Database:   database,
		Frontend:   frontend,
		Scope:      scope,
		Components: components,
	}, true
}

// ParseVerificationResult parses the QA phase's VERIFICATION:/REASON:
// output. Absence of any marker is treated as a failure, never a
// silent pass.
func ParseVerificationResult(text string) VerificationResult {
	if strings.Contains(text, "VERIFICATION: PASS") {
		return VerificationResult{Pass: true}
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "REASON:") {
			return VerificationResult{Reason: strings.TrimSpace(line[len("REASON:"):])}
		}
	}
	if strings.Contains(text, "VERIFICATION: FAIL") {
		return VerificationResult{Reason: "Verification failed (no reason provided)"}
	}
	return VerificationResult{Reason: "No verification marker found in response"}
}

// ParseReviewResult parses the reviewer phase's REVIEW: output,
// collecting every non-blank line after the REVIEW: FAIL marker as
// findings.
func ParseReviewResult(text string) ReviewResult {
	if strings.Contains(text, "REVIEW: PASS") {
		return ReviewResult{Pass: true}
	}
	if strings.Contains(text, "REVIEW: FAIL") {
		lines := strings.Split(text, "\n")
		skip := true
		var findings []string
		for _, line := range lines {
			if skip {
				if strings.Contains(line, "REVIEW: FAIL") {
					skip = false
				}
				continue
			}
			if strings.TrimSpace(line) != "" {
				findings = append(findings, line)
			}
		}
		if len(findings) == 0 {
			return ReviewResult{Findings: "Review failed (no findings provided)"}
		}
		return ReviewResult{Findings: strings.Join(findings, "\n")}
	}
	return ReviewResult{Findings: "No review marker found in response"}
}

// ParseBuildSummary parses the delivery phase's BUILD_COMPLETE block.
// Returns false if the BUILD_COMPLETE marker is absent.
func ParseBuildSummary(text string) (BuildSummary, bool) {
	if !strings.Contains(text, "BUILD_COMPLETE") {
		return BuildSummary{}, false
	}
	get := func(key string) string {
		v, _ := fieldValue(text, key)
		return v
	}
	return BuildSummary{
		Project:  get("PROJECT"),
		Location: get("LOCATION"),
		Language: get("LANGUAGE"),
		Summary:  get("SUMMARY"),
		Usage:    get("USAGE"),
		Skill:    get("SKILL"),
	}, true
}

// ParseDiscoveryOutput parses the discovery agent's verdict.
// DISCOVERY_COMPLETE takes precedence when both markers are present;
// when neither is present the entire response is treated as a
// completed brief (auto-complete fallback).
func ParseDiscoveryOutput(text string) DiscoveryOutput {
	if strings.Contains(text, "DISCOVERY_COMPLETE") {
		if brief := linesAfter(text, "IDEA_BRIEF:", true); brief != "" {
			return DiscoveryOutput{Complete: true, Brief: brief}
		}
		return DiscoveryOutput{Complete: true, Brief: linesAfter(text, "DISCOVERY_COMPLETE", false)}
	}
	if strings.Contains(text, "DISCOVERY_QUESTIONS") {
		return DiscoveryOutput{Questions: linesAfter(text, "DISCOVERY_QUESTIONS", false)}
	}
	return DiscoveryOutput{Complete: true, Brief: strings.TrimSpace(text)}
}

// linesAfter returns every line following the first line matching
// marker, joined and trimmed. prefixMatch requires the marker to begin
// the line; otherwise a substring match suffices.
func linesAfter(text, marker string, prefixMatch bool) string {
	lines := strings.Split(text, "\n")
	idx := -1
	for i, line := range lines {
		matched := strings.Contains(line, marker)
		if prefixMatch {
			matched = strings.HasPrefix(line, marker)
		}
		if matched {
			idx = i
			break
		}
	}
	if idx == -1 || idx+1 >= len(lines) {
		return ""
	}
	return strings.TrimSpace(strings.Join(lines[idx+1:], "\n"))
}

// ParseDiscoveryRound reads the ROUND: header from a discovery session
// file's content, defaulting to 1 when absent or unparsable.
func ParseDiscoveryRound(content string) int {
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "ROUND:") {
			if n, err := strconv.Atoi(strings.TrimSpace(line[len("ROUND:"):])); err == nil {
				return n
			}
			break
		}
	}
	return 1
}

// DiscoveryFilePath resolves the on-disk session path for a sender; see
// pkg/textfs.Layout.DiscoverySessionFile, which applies the same
// sanitization and is what the pipeline actually calls.
func DiscoveryFilePath(dataDir, senderID string) string {
	return textfs.Layout{DataDir: dataDir}.DiscoverySessionFile(senderID)
}
