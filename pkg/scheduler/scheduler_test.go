package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/omega-agent/omega/pkg/channel"
	"github.com/omega-agent/omega/pkg/pipeline"
	"github.com/omega-agent/omega/pkg/provider"
	"github.com/omega-agent/omega/pkg/skills"
	"github.com/omega-agent/omega/pkg/store"
	"github.com/omega-agent/omega/pkg/store/memstore"
	"github.com/omega-agent/omega/pkg/textfs"
)

type fakeProvider struct {
	calls     int
	responses []string
	err       error
}

func (f *fakeProvider) Name() string { return "fake" }
func (f *fakeProvider) Complete(_ context.Context, _ provider.Context) (provider.Response, error) {
	f.calls++
	if f.err != nil {
		return provider.Response{}, f.err
	}
	idx := f.calls - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return provider.Response{Text: f.responses[idx]}, nil
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

func newTestLoop(t *testing.T, prov *fakeProvider) (*Loop, *fakeChannel, *auditRecorder, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	ch := &fakeChannel{name: "telegram"}
	audit := &auditRecorder{}
	l := &Loop{
		Store:      st,
		Audit:      audit,
		Provider:   prov,
		Channels:   channel.NewRegistry(ch),
		Skills:     &skills.Catalog{},
		BasePrompt: "You are a test agent.",
		Poll:       time.Second,
		Log:        zerolog.Nop(),
	}
	l.Effects = &pipeline.Effects{
		Store:  st,
		Skills: l.Skills,
		Layout: textfs.Layout{DataDir: t.TempDir()},
		Log:    zerolog.Nop(),
	}
	return l, ch, audit, st
}

func pastDue() string {
	return time.Now().UTC().Add(-time.Minute).Format(store.DueAtLayout)
}

func mkTask(t *testing.T, st *memstore.Store, taskType store.TaskType, desc string) store.Task {
	t.Helper()
	task, err := st.CreateTask(context.Background(), store.Task{
		Channel: "telegram", SenderID: "842277204", ReplyTarget: "842277204",
		Description: desc, DueAt: pastDue(), Type: taskType,
	})
	if err != nil {
		t.Fatal(err)
	}
	return task
}

func TestReminderDeliveredAndCompleted(t *testing.T) {
	prov := &fakeProvider{responses: []string{""}}
	l, ch, _, st := newTestLoop(t, prov)
	mkTask(t, st, store.TaskTypeReminder, "call John")

	l.Tick(context.Background())

	if len(ch.sent) != 1 || !strings.Contains(ch.sent[0].Text, "Reminder: call John") {
		t.Fatalf("reminder not delivered: %+v", ch.sent)
	}
	if prov.calls != 0 {
		t.Fatal("reminders must not invoke the provider")
	}
	remaining, _ := st.GetTasksForSender(context.Background(), "842277204")
	if len(remaining) != 0 {
		t.Fatalf("one-shot reminder must complete: %+v", remaining)
	}
}

func TestRecurringReminderAdvances(t *testing.T) {
	prov := &fakeProvider{responses: []string{""}}
	l, _, _, st := newTestLoop(t, prov)
	task, err := st.CreateTask(context.Background(), store.Task{
		Channel: "telegram", SenderID: "842277204", ReplyTarget: "842277204",
		Description: "daily standup", DueAt: pastDue(), Type: store.TaskTypeReminder,
		Repeat: store.Repeat{Kind: store.RepeatDaily},
	})
	if err != nil {
		t.Fatal(err)
	}

	l.Tick(context.Background())

	remaining, _ := st.GetTasksForSender(context.Background(), "842277204")
	if len(remaining) != 1 {
		t.Fatalf("recurring reminder must stay pending: %+v", remaining)
	}
	if remaining[0].DueAt <= task.DueAt {
		t.Fatalf("due_at must advance: was %s, now %s", task.DueAt, remaining[0].DueAt)
	}
}

func TestActionFailureThenSuccess(t *testing.T) {
	prov := &fakeProvider{responses: []string{
		"Couldn't reach the server.\nACTION_OUTCOME: failed | SMTP down",
		"Email sent!\nACTION_OUTCOME: success",
	}}
	l, ch, audit, st := newTestLoop(t, prov)
	mkTask(t, st, store.TaskTypeAction, "send email to Ana")

	l.Tick(context.Background())

	if prov.calls != 1 {
		t.Fatalf("expected 1 provider call, got %d", prov.calls)
	}
	if len(audit.entries) != 1 || audit.entries[0].Status != store.AuditError {
		t.Fatalf("first attempt must audit Error: %+v", audit.entries)
	}
	foundRetryNotice := false
	for _, m := range ch.sent {
		if strings.Contains(m.Text, "retrying in 2 minutes") {
			foundRetryNotice = true
		}
		if strings.Contains(m.Text, "ACTION_OUTCOME") {
			t.Fatalf("marker leaked to channel: %q", m.Text)
		}
	}
	if !foundRetryNotice {
		t.Fatalf("retry notice missing: %+v", ch.sent)
	}

	// The store rescheduled two minutes out; move the clock past it.
	l.Now = func() time.Time { return time.Now().Add(3 * time.Minute) }
	ch.sent = nil
	l.Tick(context.Background())

	if prov.calls != 2 {
		t.Fatalf("expected 2 provider calls, got %d", prov.calls)
	}
	if len(audit.entries) != 2 || audit.entries[1].Status != store.AuditOK {
		t.Fatalf("second attempt must audit OK: %+v", audit.entries)
	}
	if len(ch.sent) != 1 || !strings.Contains(ch.sent[0].Text, "Email sent!") {
		t.Fatalf("success reply missing: %+v", ch.sent)
	}
	remaining, _ := st.GetTasksForSender(context.Background(), "842277204")
	if len(remaining) != 0 {
		t.Fatalf("completed action must leave no pending task: %+v", remaining)
	}
}

func TestActionRetryBound(t *testing.T) {
	prov := &fakeProvider{err: errors.New("connection refused")}
	l, ch, _, st := newTestLoop(t, prov)
	mkTask(t, st, store.TaskTypeAction, "sync the calendar")

	offset := time.Duration(0)
	for i := 0; i < 10; i++ {
		now := time.Now().Add(offset)
		l.Now = func() time.Time { return now }
		l.Tick(context.Background())
		offset += 3 * time.Minute
	}

	if prov.calls > MaxActionRetries+1 {
		t.Fatalf("provider invoked %d times, bound is %d", prov.calls, MaxActionRetries+1)
	}
	final := false
	for _, m := range ch.sent {
		if strings.Contains(m.Text, "failed permanently") {
			final = true
		}
	}
	if !final {
		t.Fatalf("permanent-failure notice missing: %+v", ch.sent)
	}
	remaining, _ := st.GetTasksForSender(context.Background(), "842277204")
	if len(remaining) != 0 {
		t.Fatalf("failed task must not stay pending: %+v", remaining)
	}
}

func TestActionMissingOutcomeTreatedAsSuccess(t *testing.T) {
	prov := &fakeProvider{responses: []string{"All done, boss."}}
	l, ch, audit, st := newTestLoop(t, prov)
	mkTask(t, st, store.TaskTypeAction, "water the plants check")

	l.Tick(context.Background())

	if len(audit.entries) != 1 || audit.entries[0].Status != store.AuditOK {
		t.Fatalf("missing outcome must audit OK: %+v", audit.entries)
	}
	if len(ch.sent) != 1 || ch.sent[0].Text != "All done, boss." {
		t.Fatalf("response text must be forwarded: %+v", ch.sent)
	}
	remaining, _ := st.GetTasksForSender(context.Background(), "842277204")
	if len(remaining) != 0 {
		t.Fatalf("task must complete: %+v", remaining)
	}
}

func TestActionCanSpawnFollowUpTask(t *testing.T) {
	prov := &fakeProvider{responses: []string{
		"Scheduled a follow-up.\nSCHEDULE: follow up with Ana about contract | 2030-01-01T10:00:00 | once\nACTION_OUTCOME: success",
	}}
	l, _, _, st := newTestLoop(t, prov)
	mkTask(t, st, store.TaskTypeAction, "email Ana the yearly contract draft")

	l.Tick(context.Background())

	remaining, _ := st.GetTasksForSender(context.Background(), "842277204")
	if len(remaining) != 1 || remaining[0].Description != "follow up with Ana about contract" {
		t.Fatalf("spawned task missing: %+v", remaining)
	}
}

func TestParseInterval(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"30s", 30 * time.Second},
		{"2m", 2 * time.Minute},
		{"45", 45 * time.Second},
		{"", 30 * time.Second},
		{"garbage", 30 * time.Second},
		{"100ms", time.Second},
	}
	for _, tc := range cases {
		if got := ParseInterval(tc.in, 30*time.Second); got != tc.want {
			t.Errorf("ParseInterval(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
