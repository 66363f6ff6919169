package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/omega-agent/omega/pkg/i18n"
	"github.com/omega-agent/omega/pkg/provider"
	"github.com/omega-agent/omega/pkg/textfs"
)

const (
	maxQAIterations     = 3
	maxReviewIterations = 2
)

// Notifier sends a progress or result line to the requesting user. The
// pipeline treats send failures as non-fatal: the build keeps running
// even if a progress update doesn't make it to the channel.
type Notifier func(text string) error

// Pipeline runs the seven-phase build chain against a single provider.
type Pipeline struct {
	Provider provider.Provider
	Layout   textfs.Layout
}

// NewPipeline constructs a Pipeline bound to a provider and data
// directory layout.
func NewPipeline(p provider.Provider, layout textfs.Layout) *Pipeline {
	return &Pipeline{Provider: p, Layout: layout}
}

// RunDiscoveryRound invokes the discovery agent with the session's
// accumulated transcript and the sender's latest answer, forcing
// completion on round 3 per spec.md §4.8.
func (p *Pipeline) RunDiscoveryRound(ctx context.Context, sess *textfs.Session, answer, language string) (DiscoveryOutput, error) {
	prompt := discoveryPrompt(sess, answer)
	if sess.Round >= 3 {
		prompt += "\n\nThis is the final round. You MUST output DISCOVERY_COMPLETE with an IDEA_BRIEF: now."
	}
	resp, err := p.Provider.Complete(ctx, provider.Context{
		SystemPrompt: discoveryAgentPrompt,
		Message:      prompt,
		Model:        "fast",
	})
	if err != nil {
		return DiscoveryOutput{}, fmt.Errorf("build: discovery round: %w", err)
	}
	out := ParseDiscoveryOutput(resp.Text)
	if sess.Round >= 3 && !out.Complete {
		out = DiscoveryOutput{Complete: true, Brief: strings.TrimSpace(resp.Text)}
	}
	return out, nil
}

func discoveryPrompt(sess *textfs.Session, answer string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Original request: %s\n", sess.OriginalRequest)
	if sess.Body != "" {
		b.WriteString("\nConversation so far:\n")
		b.WriteString(sess.Body)
		b.WriteString("\n")
	}
	if answer != "" {
		fmt.Fprintf(&b, "\nUser's latest answer: %s\n", answer)
	}
	return b.String()
}

const discoveryAgentPrompt = `You are a build discovery agent. Your job is to turn a vague build
request into a synthesized idea brief through a short back-and-forth.

Do NOT ask more than one round of questions at a time. If you have
enough information to describe what should be built, respond with:

DISCOVERY_COMPLETE
IDEA_BRIEF:
<synthesized description of what to build>

Otherwise respond with:

DISCOVERY_QUESTIONS
<the question(s) to ask the user next>
`

// Result is the terminal outcome of a build run.
type Result struct {
	Summary    BuildSummary
	ProjectDir string
}

// RunAnalyst invokes the analyst phase against a confirmed idea brief,
// returning the structured project brief the rest of the chain
// consumes.
func (p *Pipeline) RunAnalyst(ctx context.Context, ideaBrief, language string, notify Notifier) (string, error) {
	notify(i18n.BuildPhaseMessage(language, "analyst"))
	resp, err := p.Provider.Complete(ctx, provider.Context{
		SystemPrompt: agentFiles[0].content,
		Message:      ideaBrief,
		Model:        agentFiles[0].model,
		MaxTurns:     agentFiles[0].maxTurns,
	})
	if err != nil {
		return "", fmt.Errorf("build: analyst: %w", err)
	}
	return resp.Text, nil
}

// Run executes the remaining phases against the analyst's brief,
// sending localized progress messages through notify and writing
// chain-state.md on any unrecoverable phase failure.
func (p *Pipeline) Run(ctx context.Context, brief, language string, notify Notifier) (*Result, error) {
	projectBrief, ok := ParseProjectBrief(brief)
	if !ok {
		return nil, fmt.Errorf("build: analyst output did not include a valid PROJECT_NAME")
	}
	projectDir := filepath.Join(p.Layout.ProjectDir(projectBrief.Name))

	state := ChainState{ProjectName: projectBrief.Name, ProjectDir: projectDir}
	guard, err := WriteAgentFiles(projectDir)
	if err != nil {
		return nil, fmt.Errorf("build: writing agent files: %w", err)
	}
	defer guard.Close()

	transcript := brief

	phase := func(idx int, userMsg string) (string, error) {
		a := agentFiles[idx]
		notify(i18n.BuildPhaseMessage(language, a.phaseName))
		resp, err := p.Provider.Complete(ctx, provider.Context{
			SystemPrompt: a.content,
			Message:      userMsg,
			Model:        a.model,
			MaxTurns:     a.maxTurns,
		})
		if err != nil {
			return "", err
		}
		state.CompletedPhases = append(state.CompletedPhases, a.phaseName)
		return resp.Text, nil
	}

	fail := func(phaseName, reason string) (*Result, error) {
		state.FailedPhase = phaseName
		state.FailureReason = reason
		writeChainState(projectDir, state)
		return nil, fmt.Errorf("build: %s failed: %s", phaseName, reason)
	}

	// Phase 1: analyst already ran (its output is `brief`); record it
	// as completed and move straight to architecture.
	state.CompletedPhases = append(state.CompletedPhases, "analyst")
	notify(i18n.BuildPhaseMessage(language, "architect"))
	archResp, err := p.Provider.Complete(ctx, provider.Context{
		SystemPrompt: agentFiles[1].content,
		Message:      transcript,
		Model:        agentFiles[1].model,
	})
	if err != nil {
		return fail("architect", err.Error())
	}
	state.CompletedPhases = append(state.CompletedPhases, "architect")
	transcript = archResp.Text

	testResp, err := phase(2, transcript)
	if err != nil {
		return fail("test-writer", err.Error())
	}
	transcript = testResp

	devResp, err := phase(3, transcript)
	if err != nil {
		return fail("developer", err.Error())
	}
	transcript = devResp

	// QA loop: up to maxQAIterations, re-invoking the developer with
	// the failure reason between attempts.
	var qaText string
	for attempt := 1; attempt <= maxQAIterations; attempt++ {
		notify(i18n.BuildPhaseMessage(language, "qa"))
		resp, err := p.Provider.Complete(ctx, provider.Context{
			SystemPrompt: agentFiles[4].content,
			Message:      transcript,
			Model:        agentFiles[4].model,
		})
		if err != nil {
			return fail("qa", err.Error())
		}
		qaText = resp.Text
		result := ParseVerificationResult(qaText)
		if result.Pass {
			notify(i18n.QAPassMessage(language, attempt))
			state.CompletedPhases = append(state.CompletedPhases, "qa")
			break
		}
		if attempt == maxQAIterations {
			notify(i18n.QAExhaustedMessage(language, result.Reason, projectDir))
			return fail("qa", result.Reason)
		}
		notify(i18n.QARetryMessage(language, attempt, result.Reason))
		fixed, err := phase(3, fmt.Sprintf("%s\n\nQA found issues:\n%s", transcript, result.Reason))
		if err != nil {
			return fail("developer", err.Error())
		}
		transcript = fixed
	}

	// Review loop: up to maxReviewIterations.
	var reviewText string
	for attempt := 1; attempt <= maxReviewIterations; attempt++ {
		notify(i18n.BuildPhaseMessage(language, "reviewer"))
		resp, err := p.Provider.Complete(ctx, provider.Context{
			SystemPrompt: agentFiles[5].content,
			Message:      transcript,
			Model:        agentFiles[5].model,
			MaxTurns:     agentFiles[5].maxTurns,
		})
		if err != nil {
			return fail("reviewer", err.Error())
		}
		reviewText = resp.Text
		result := ParseReviewResult(reviewText)
		if result.Pass {
			notify(i18n.ReviewPassMessage(language, attempt))
			state.CompletedPhases = append(state.CompletedPhases, "reviewer")
			break
		}
		if attempt == maxReviewIterations {
			notify(i18n.ReviewExhaustedMessage(language, result.Findings, projectDir))
			return fail("reviewer", result.Findings)
		}
		notify(i18n.ReviewRetryMessage(language, result.Findings))
		fixed, err := phase(3, fmt.Sprintf("%s\n\nReview found issues:\n%s", transcript, result.Findings))
		if err != nil {
			return fail("developer", err.Error())
		}
		transcript = fixed
	}

	deliveryText, err := phase(6, transcript)
	if err != nil {
		return fail("delivery", err.Error())
	}
	summary, ok := ParseBuildSummary(deliveryText)
	if !ok {
		return fail("delivery", "delivery phase did not emit BUILD_COMPLETE")
	}

	return &Result{Summary: summary, ProjectDir: projectDir}, nil
}

// writeChainState persists a snapshot of build progress for user
// inspection and future resume; failures to write are swallowed since
// the caller already has a more important error to report.
func writeChainState(projectDir string, state ChainState) {
	dir := filepath.Join(projectDir, "docs", ".workflow")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# Build chain state\n\n")
	fmt.Fprintf(&b, "Project: %s\n", state.ProjectName)
	fmt.Fprintf(&b, "Directory: %s\n", state.ProjectDir)
	fmt.Fprintf(&b, "Completed phases: %s\n", strings.Join(state.CompletedPhases, ", "))
	fmt.Fprintf(&b, "Failed phase: %s\n", state.FailedPhase)
	fmt.Fprintf(&b, "Reason: %s\n", state.FailureReason)
	fmt.Fprintf(&b, "Recorded at: %s\n", time.Now().UTC().Format(time.RFC3339))
	os.WriteFile(filepath.Join(dir, "chain-state.md"), []byte(b.String()), 0o644)
}
