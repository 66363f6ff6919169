package pipeline

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/omega-agent/omega/pkg/i18n"
	"github.com/omega-agent/omega/pkg/store"
	"github.com/omega-agent/omega/pkg/textfs"
)

const (
	buildConfirmTTL = 120 * time.Second
	sessionExpiry   = 30 * time.Minute
	briefPreviewLen = 600
)

var confirmWords = []string{
	"yes", "y", "yep", "yeah", "ok", "okay", "confirm", "go", "do it", "build it",
	"si", "sí", "sim", "oui", "ja", "да", "давай",
}

var cancelWords = []string{
	"no", "nope", "cancel", "stop", "nah", "nein", "não", "nee", "non", "не", "нет", "отмена",
}

func wordIn(text string, words []string) bool {
	t := strings.ToLower(strings.TrimSpace(strings.Trim(strings.TrimSpace(text), ".,!")))
	for _, w := range words {
		if t == w {
			return true
		}
	}
	return false
}

// resolveSessions runs the session-resolution precedence of the
// pipeline: pending build confirmation first, then an active discovery
// session, then a pending setup session. Returns true when the message
// was consumed by one of them.
func (p *Pipeline) resolveSessions(ctx context.Context, msg store.IncomingMessage, facts []store.Fact, language string) bool {
	if p.resolvePendingBuild(ctx, msg, facts, language) {
		return true
	}
	if p.resolveDiscovery(ctx, msg, language) {
		return true
	}
	if p.resolveSetup(ctx, msg, facts, language) {
		return true
	}
	return false
}

// pendingBuildValue encodes the offer as "RFC3339|brief" in the
// pending_build_request system fact.
func pendingBuildValue(now time.Time, brief string) string {
	return now.UTC().Format(time.RFC3339) + "|" + brief
}

func parsePendingBuild(value string) (offered time.Time, brief string, ok bool) {
	ts, rest, found := strings.Cut(value, "|")
	if !found {
		return time.Time{}, "", false
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return time.Time{}, "", false
	}
	return t, rest, true
}

func (p *Pipeline) resolvePendingBuild(ctx context.Context, msg store.IncomingMessage, facts []store.Fact, language string) bool {
	value := factValue(facts, "pending_build_request")
	if value == "" {
		return false
	}
	clearFact := func() {
		_ = p.Store.SetSystemFact(ctx, msg.SenderID, "pending_build_request", "")
	}

	offered, brief, ok := parsePendingBuild(value)
	if !ok || p.now().Sub(offered) > buildConfirmTTL {
		clearFact()
		return false // expired or garbled offer: treat the message as new
	}

	switch {
	case wordIn(msg.Text, confirmWords):
		clearFact()
		p.runBuild(ctx, msg, brief, language)
		return true
	case wordIn(msg.Text, cancelWords):
		clearFact()
		p.send(ctx, msg, i18n.T("task_cancelled_reply", language))
		p.audit(ctx, msg, "build cancelled", store.AuditOK, "", 0)
		return true
	default:
		// A different message while an offer is pending means the user
		// moved on: drop the offer and process normally.
		clearFact()
		return false
	}
}

// runBuild drives the full chain synchronously: analyst on the
// confirmed brief, then the architect-through-delivery pipeline. The
// sender serializer already guarantees nothing else from this sender
// interleaves.
func (p *Pipeline) runBuild(ctx context.Context, msg store.IncomingMessage, brief, language string) {
	notify := func(text string) error {
		p.send(ctx, msg, text)
		return nil
	}

	analysis, err := p.Build.RunAnalyst(ctx, brief, language, notify)
	if err != nil {
		p.Log.Error().Err(err).Msg("build analyst failed")
		p.audit(ctx, msg, "", store.AuditError, err.Error(), 0)
		p.send(ctx, msg, i18n.F("build_failed", language, err.Error()))
		return
	}

	result, err := p.Build.Run(ctx, analysis, language, notify)
	if err != nil {
		// QA/review exhaustion already sent its own notification with
		// the partial-results path; the generic line covers the other
		// phase failures.
		p.Log.Warn().Err(err).Msg("build chain failed")
		p.audit(ctx, msg, "", store.AuditError, err.Error(), 0)
		p.send(ctx, msg, i18n.F("build_failed", language, err.Error()))
		return
	}
	p.audit(ctx, msg, "build complete: "+result.Summary.Project, store.AuditOK, "", 0)
	p.send(ctx, msg, i18n.F("build_done", language, result.Summary.Project, result.ProjectDir))
	if result.Summary.Summary != "" {
		p.send(ctx, msg, result.Summary.Summary)
	}
}

// sessionFresh reports whether the session file at path was touched
// within the expiry window; stale files are removed.
func sessionFresh(path string, now time.Time) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if now.Sub(info.ModTime()) > sessionExpiry {
		_ = os.Remove(path)
		return false
	}
	return true
}

func (p *Pipeline) resolveDiscovery(ctx context.Context, msg store.IncomingMessage, language string) bool {
	path := p.Layout.DiscoverySessionFile(msg.SenderID)
	if !sessionFresh(path, p.now()) {
		return false
	}
	sess, err := textfs.ReadSession(path)
	if err != nil || sess == nil {
		return false
	}

	out, err := p.Build.RunDiscoveryRound(ctx, sess, msg.Text, language)
	if err != nil {
		p.Log.Error().Err(err).Msg("discovery round failed")
		p.send(ctx, msg, i18n.T(providerErrorKey(err), language))
		return true
	}

	if out.Complete {
		_ = os.Remove(path)
		_ = p.Store.SetSystemFact(ctx, msg.SenderID, "pending_build_request", pendingBuildValue(p.now(), out.Brief))
		preview := textfs.TruncateBriefPreview(out.Brief, briefPreviewLen)
		p.send(ctx, msg, i18n.F("build_confirm_ask", language, preview))
		p.audit(ctx, msg, "discovery complete", store.AuditOK, "", 0)
		return true
	}

	sess.AppendExchange(out.Questions, msg.Text)
	if err := sess.Write(path); err != nil {
		p.Log.Warn().Err(err).Msg("persisting discovery session")
	}
	p.send(ctx, msg, out.Questions)
	p.audit(ctx, msg, out.Questions, store.AuditOK, "", 0)
	return true
}

// startDiscovery opens a fresh round-1 session for a build-intent
// message and sends the first round of questions (or skips straight to
// the confirmation ask when the discovery agent already has enough).
func (p *Pipeline) startDiscovery(ctx context.Context, msg store.IncomingMessage, language string) {
	sess := textfs.NewSession(msg.Text, p.now())
	path := p.Layout.DiscoverySessionFile(msg.SenderID)

	out, err := p.Build.RunDiscoveryRound(ctx, sess, "", language)
	if err != nil {
		p.Log.Error().Err(err).Msg("starting discovery")
		p.send(ctx, msg, i18n.T(providerErrorKey(err), language))
		return
	}

	if out.Complete {
		_ = p.Store.SetSystemFact(ctx, msg.SenderID, "pending_build_request", pendingBuildValue(p.now(), out.Brief))
		preview := textfs.TruncateBriefPreview(out.Brief, briefPreviewLen)
		p.send(ctx, msg, i18n.F("build_confirm_ask", language, preview))
		p.audit(ctx, msg, "discovery complete", store.AuditOK, "", 0)
		return
	}

	sess.AppendExchange(out.Questions, "")
	if err := sess.Write(path); err != nil {
		p.Log.Warn().Err(err).Msg("persisting discovery session")
	}
	p.send(ctx, msg, out.Questions)
	p.audit(ctx, msg, out.Questions, store.AuditOK, "", 0)
}

// resolveSetup mirrors discovery for /setup sessions, terminating in a
// setup proposal instead of a build offer.
func (p *Pipeline) resolveSetup(ctx context.Context, msg store.IncomingMessage, facts []store.Fact, language string) bool {
	if factValue(facts, "pending_setup") == "" {
		return false
	}
	path := p.Layout.SetupSessionFile(msg.SenderID)
	if !sessionFresh(path, p.now()) {
		_ = p.Store.SetSystemFact(ctx, msg.SenderID, "pending_setup", "")
		return false
	}
	sess, err := textfs.ReadSession(path)
	if err != nil || sess == nil {
		_ = p.Store.SetSystemFact(ctx, msg.SenderID, "pending_setup", "")
		return false
	}

	out, err := p.Build.RunDiscoveryRound(ctx, sess, msg.Text, language)
	if err != nil {
		p.Log.Error().Err(err).Msg("setup round failed")
		p.send(ctx, msg, i18n.T(providerErrorKey(err), language))
		return true
	}

	if out.Complete {
		_ = os.Remove(path)
		_ = p.Store.SetSystemFact(ctx, msg.SenderID, "pending_setup", "")
		p.send(ctx, msg, i18n.F("setup_proposal", language, out.Brief))
		p.audit(ctx, msg, "setup proposal delivered", store.AuditOK, "", 0)
		return true
	}

	sess.AppendExchange(out.Questions, msg.Text)
	if err := sess.Write(path); err != nil {
		p.Log.Warn().Err(err).Msg("persisting setup session")
	}
	p.send(ctx, msg, out.Questions)
	return true
}

// beginSetup starts a setup session from the /setup command.
func (p *Pipeline) beginSetup(ctx context.Context, msg store.IncomingMessage, description, language string) string {
	sess := textfs.NewSession(description, p.now())
	path := p.Layout.SetupSessionFile(msg.SenderID)

	out, err := p.Build.RunDiscoveryRound(ctx, sess, "", language)
	if err != nil {
		p.Log.Error().Err(err).Msg("starting setup session")
		return i18n.T(providerErrorKey(err), language)
	}
	if out.Complete {
		return i18n.F("setup_proposal", language, out.Brief)
	}
	if err := p.Store.SetSystemFact(ctx, msg.SenderID, "pending_setup", p.now().UTC().Format(time.RFC3339)); err != nil {
		p.Log.Warn().Err(err).Msg("marking pending setup")
	}
	sess.AppendExchange(out.Questions, "")
	if err := sess.Write(path); err != nil {
		p.Log.Warn().Err(err).Msg("persisting setup session")
	}
	return out.Questions
}
