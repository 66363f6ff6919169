package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/omega-agent/omega/pkg/build"
	"github.com/omega-agent/omega/pkg/channel"
	"github.com/omega-agent/omega/pkg/config"
	ctxbuilder "github.com/omega-agent/omega/pkg/context"
	"github.com/omega-agent/omega/pkg/provider"
	"github.com/omega-agent/omega/pkg/sender"
	"github.com/omega-agent/omega/pkg/skills"
	"github.com/omega-agent/omega/pkg/store"
	"github.com/omega-agent/omega/pkg/store/memstore"
	"github.com/omega-agent/omega/pkg/textfs"
)

type fakeProvider struct {
	calls int
	text  string
	err   error
}

func (f *fakeProvider) Name() string { return "fake" }
func (f *fakeProvider) Complete(_ context.Context, _ provider.Context) (provider.Response, error) {
	f.calls++
	if f.err != nil {
		return provider.Response{}, f.err
	}
	return provider.Response{Text: f.text, Model: "fake-1"}, nil
}

type fakeChannel struct {
	name string
	sent []store.OutgoingMessage
}

func (f *fakeChannel) Name() string { return f.name }
func (f *fakeChannel) Start(_ context.Context) (<-chan store.IncomingMessage, error) {
	ch := make(chan store.IncomingMessage)
	close(ch)
	return ch, nil
}
func (f *fakeChannel) Send(_ context.Context, msg store.OutgoingMessage) error {
	f.sent = append(f.sent, msg)
	return nil
}
func (f *fakeChannel) SendTyping(_ context.Context, _ string) error { return nil }
func (f *fakeChannel) Stop() error                                  { return nil }

type auditRecorder struct {
	entries []store.AuditEntry
}

func (a *auditRecorder) Append(_ context.Context, e store.AuditEntry) error {
	a.entries = append(a.entries, e)
	return nil
}

func newTestPipeline(t *testing.T, prov *fakeProvider) (*Pipeline, *fakeChannel, *auditRecorder, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	ch := &fakeChannel{name: "telegram"}
	audit := &auditRecorder{}
	layout := textfs.Layout{DataDir: t.TempDir()}
	if err := layout.EnsureDirs(); err != nil {
		t.Fatal(err)
	}
	catalog := &skills.Catalog{}
	p := &Pipeline{
		Store:      st,
		Audit:      audit,
		Provider:   prov,
		Builder:    ctxbuilder.NewBuilder(st),
		Channels:   channel.NewRegistry(ch),
		Skills:     catalog,
		Layout:     layout,
		Serializer: sender.New(),
		Build:      build.NewPipeline(prov, layout),
		StartedAt:  time.Now(),
		Log:        zerolog.Nop(),
	}
	p.Effects = &Effects{Store: st, Skills: catalog, Layout: layout, Log: zerolog.Nop()}
	return p, ch, audit, st
}

func welcomedMsg(t *testing.T, st *memstore.Store, text string) store.IncomingMessage {
	t.Helper()
	ctx := context.Background()
	if err := st.SetSystemFact(ctx, "842277204", "welcomed", "true"); err != nil {
		t.Fatal(err)
	}
	if err := st.SetSystemFact(ctx, "842277204", "preferred_language", "English"); err != nil {
		t.Fatal(err)
	}
	return store.IncomingMessage{
		ID: "m1", Channel: "telegram", SenderID: "842277204",
		Text: text, Timestamp: time.Now(), ReplyTarget: "842277204",
	}
}

func TestFreshSenderGetsLocalizedWelcomeWithoutProviderCall(t *testing.T) {
	prov := &fakeProvider{text: "should not be used"}
	p, ch, _, st := newTestPipeline(t, prov)

	p.Handle(context.Background(), store.IncomingMessage{
		ID: "m1", Channel: "telegram", SenderID: "842277204", Text: "hola qué tal",
		Timestamp: time.Now(), ReplyTarget: "842277204",
	})

	if prov.calls != 0 {
		t.Fatalf("welcome must not call the provider, got %d calls", prov.calls)
	}
	if len(ch.sent) != 1 || !strings.Contains(ch.sent[0].Text, "OMEGA") {
		t.Fatalf("welcome not sent: %+v", ch.sent)
	}
	if !strings.Contains(ch.sent[0].Text, "Hola") && !strings.Contains(ch.sent[0].Text, "tenerte") {
		t.Fatalf("welcome not in Spanish: %q", ch.sent[0].Text)
	}
	facts, _ := st.GetFacts(context.Background(), "842277204")
	byKey := map[string]string{}
	for _, f := range facts {
		byKey[f.Key] = f.Value
	}
	if byKey["welcomed"] != "true" || byKey["preferred_language"] != "Spanish" {
		t.Fatalf("welcome facts missing: %+v", byKey)
	}
}

func TestScheduleMarkerCreatesTaskAndConfirms(t *testing.T) {
	prov := &fakeProvider{text: "Sure, I'll remind you.\nSCHEDULE: Call John | 2026-02-17T15:00:00 | once"}
	p, ch, audit, st := newTestPipeline(t, prov)
	msg := welcomedMsg(t, st, "remind me to call John tomorrow at 3pm")

	p.Handle(context.Background(), msg)

	tasks, _ := st.GetTasksForSender(context.Background(), "842277204")
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %+v", tasks)
	}
	if tasks[0].DueAt != "2026-02-17 15:00:00" || tasks[0].Type != store.TaskTypeReminder || tasks[0].Repeat.Kind != store.RepeatOnce {
		t.Fatalf("task fields wrong: %+v", tasks[0])
	}

	if len(ch.sent) != 1 {
		t.Fatalf("expected 1 reply, got %+v", ch.sent)
	}
	reply := ch.sent[0].Text
	if !strings.Contains(reply, "✓ Scheduled: Call John") {
		t.Fatalf("confirmation line missing: %q", reply)
	}
	if strings.Contains(reply, "SCHEDULE:") {
		t.Fatalf("marker leaked: %q", reply)
	}
	if len(audit.entries) != 1 || audit.entries[0].Status != store.AuditOK {
		t.Fatalf("audit entry wrong: %+v", audit.entries)
	}
	if audit.entries[0].Model != "fake-1" {
		t.Fatalf("audit entry must carry the model name: %+v", audit.entries[0])
	}
}

func TestLangSwitchPersistsPreferredLanguage(t *testing.T) {
	prov := &fakeProvider{text: "Bien sûr !\nLANG_SWITCH: French"}
	p, ch, _, st := newTestPipeline(t, prov)
	msg := welcomedMsg(t, st, "please speak french from now on")

	p.Handle(context.Background(), msg)

	facts, _ := st.GetFacts(context.Background(), "842277204")
	lang := ""
	for _, f := range facts {
		if f.Key == "preferred_language" {
			lang = f.Value
		}
	}
	if lang != "French" {
		t.Fatalf("preferred_language not switched: %q", lang)
	}
	if len(ch.sent) != 1 || strings.Contains(ch.sent[0].Text, "LANG_SWITCH") {
		t.Fatalf("marker leaked or reply missing: %+v", ch.sent)
	}
}

func TestPurgeHappensBeforeScheduleInOneResponse(t *testing.T) {
	prov := &fakeProvider{text: "Done.\nPURGE_FACTS\nSCHEDULE: Water plants every morning routine | 2030-01-01T08:00:00 | daily"}
	p, _, _, st := newTestPipeline(t, prov)
	ctx := context.Background()
	if err := st.SetFact(ctx, "842277204", "occupation", "carpenter"); err != nil {
		t.Fatal(err)
	}
	msg := welcomedMsg(t, st, "forget everything about me and remind me to water plants daily")

	p.Handle(ctx, msg)

	facts, _ := st.GetFacts(ctx, "842277204")
	for _, f := range facts {
		if f.Key == "occupation" {
			t.Fatal("non-system fact must be purged")
		}
	}
	tasks, _ := st.GetTasksForSender(ctx, "842277204")
	if len(tasks) != 1 {
		t.Fatalf("task created after purge must survive: %+v", tasks)
	}
}

func TestAuthDenialAuditsAndReplies(t *testing.T) {
	prov := &fakeProvider{text: "nope"}
	p, ch, audit, _ := newTestPipeline(t, prov)
	p.ChannelAuth = map[string]config.ChannelConfig{
		"telegram": {EnforceAuth: true, AllowList: []string{"someone-else"}},
	}

	p.Handle(context.Background(), store.IncomingMessage{
		ID: "m1", Channel: "telegram", SenderID: "842277204", Text: "hi", ReplyTarget: "842277204",
	})

	if prov.calls != 0 {
		t.Fatal("denied sender must not reach the provider")
	}
	if len(audit.entries) != 1 || audit.entries[0].Status != store.AuditDenied {
		t.Fatalf("denial must audit: %+v", audit.entries)
	}
	if len(ch.sent) != 1 || !strings.Contains(ch.sent[0].Text, "not authorized") {
		t.Fatalf("deny message missing: %+v", ch.sent)
	}
}

func TestProviderTimeoutGetsSpecificMessage(t *testing.T) {
	prov := &fakeProvider{err: context.DeadlineExceeded}
	p, ch, audit, st := newTestPipeline(t, prov)
	msg := welcomedMsg(t, st, "how are you?")

	p.Handle(context.Background(), msg)

	if len(audit.entries) != 1 || audit.entries[0].Status != store.AuditError {
		t.Fatalf("provider failure must audit Error: %+v", audit.entries)
	}
	if len(ch.sent) != 1 || !strings.Contains(ch.sent[0].Text, "took too long") {
		t.Fatalf("timeout message missing: %+v", ch.sent)
	}
}

func TestProviderGenericErrorMessage(t *testing.T) {
	prov := &fakeProvider{err: errors.New("boom")}
	p, ch, _, st := newTestPipeline(t, prov)
	msg := welcomedMsg(t, st, "how are you?")

	p.Handle(context.Background(), msg)

	if len(ch.sent) != 1 || !strings.Contains(ch.sent[0].Text, "went wrong") {
		t.Fatalf("generic error message missing: %+v", ch.sent)
	}
}

func TestDispatchBuffersSecondMessage(t *testing.T) {
	prov := &fakeProvider{text: "ok"}
	p, ch, _, st := newTestPipeline(t, prov)
	msg := welcomedMsg(t, st, "second message")

	// Simulate an in-flight run for this sender.
	key := sender.Key(msg.Channel, msg.SenderID)
	p.Serializer.Admit(key, store.IncomingMessage{ID: "m0"})

	p.Dispatch(context.Background(), msg)

	if prov.calls != 0 {
		t.Fatal("buffered message must not be processed yet")
	}
	if len(ch.sent) != 1 || !strings.Contains(ch.sent[0].Text, "Got it") {
		t.Fatalf("buffering ack missing: %+v", ch.sent)
	}
	if buffered, ok := p.Serializer.Next(key); !ok || buffered.ID != msg.ID {
		t.Fatalf("message not buffered: %+v ok=%v", buffered, ok)
	}
}

func TestExchangeIsPersisted(t *testing.T) {
	prov := &fakeProvider{text: "Doing great!"}
	p, _, _, st := newTestPipeline(t, prov)
	msg := welcomedMsg(t, st, "how are you?")
	ctx := context.Background()

	p.Handle(ctx, msg)

	conv, _ := st.GetOrCreateConversation(ctx, "telegram", "842277204")
	msgs, _ := st.GetConversationMessages(ctx, conv.ID)
	if len(msgs) != 2 {
		t.Fatalf("expected user+assistant messages, got %+v", msgs)
	}
	if msgs[0].Role != store.MessageRoleUser || msgs[1].Role != store.MessageRoleAssistant {
		t.Fatalf("roles wrong: %+v", msgs)
	}
}

func TestTasksCommandShortCircuits(t *testing.T) {
	prov := &fakeProvider{text: "should not run"}
	p, ch, _, st := newTestPipeline(t, prov)
	msg := welcomedMsg(t, st, "/tasks")

	p.Handle(context.Background(), msg)

	if prov.calls != 0 {
		t.Fatal("commands must not call the provider")
	}
	if len(ch.sent) != 1 || !strings.Contains(ch.sent[0].Text, "No pending tasks") {
		t.Fatalf("command reply missing: %+v", ch.sent)
	}
}

func TestCancelCommand(t *testing.T) {
	prov := &fakeProvider{text: ""}
	p, ch, _, st := newTestPipeline(t, prov)
	ctx := context.Background()
	task, err := st.CreateTask(ctx, store.Task{
		Channel: "telegram", SenderID: "842277204", Description: "call John",
		DueAt: "2030-01-01 10:00:00", Type: store.TaskTypeReminder,
	})
	if err != nil {
		t.Fatal(err)
	}
	msg := welcomedMsg(t, st, "/cancel "+task.ID)

	p.Handle(ctx, msg)

	if len(ch.sent) != 1 || !strings.Contains(ch.sent[0].Text, "cancelled") {
		t.Fatalf("cancel reply missing: %+v", ch.sent)
	}
	tasks, _ := st.GetTasksForSender(ctx, "842277204")
	if len(tasks) != 0 {
		t.Fatalf("task not cancelled: %+v", tasks)
	}
}

func TestSanitizerWarnsButDoesNotBlock(t *testing.T) {
	prov := &fakeProvider{text: "hi!"}
	p, ch, _, st := newTestPipeline(t, prov)
	msg := welcomedMsg(t, st, "hello\x00 there")

	p.Handle(context.Background(), msg)

	if prov.calls != 1 {
		t.Fatal("sanitizer warnings must not block the pipeline")
	}
	if len(ch.sent) != 1 {
		t.Fatalf("reply missing: %+v", ch.sent)
	}
}
