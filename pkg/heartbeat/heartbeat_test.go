package heartbeat

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/omega-agent/omega/pkg/channel"
	"github.com/omega-agent/omega/pkg/config"
	"github.com/omega-agent/omega/pkg/provider"
	"github.com/omega-agent/omega/pkg/store"
	"github.com/omega-agent/omega/pkg/textfs"
)

const sampleChecklist = `Keep an eye on things.

## SERVERS — check that all monitored hosts respond
- web-1
- web-2

## CALENDAR — upcoming events within 24h
`

func TestParseChecklist(t *testing.T) {
	c := ParseChecklist(sampleChecklist)
	if len(c.Preamble) != 1 || c.Preamble[0] != "Keep an eye on things." {
		t.Fatalf("preamble: %+v", c.Preamble)
	}
	if len(c.Sections) != 2 {
		t.Fatalf("sections: %+v", c.Sections)
	}
	if c.Sections[0].Key != "SERVERS" || c.Sections[0].Description != "check that all monitored hosts respond" {
		t.Fatalf("section 0: %+v", c.Sections[0])
	}
	if len(c.Sections[0].Lines) != 2 {
		t.Fatalf("section 0 lines: %+v", c.Sections[0].Lines)
	}
	if c.Sections[1].Key != "CALENDAR" {
		t.Fatalf("section 1: %+v", c.Sections[1])
	}
}

func TestParseChecklistHeaderWithoutDash(t *testing.T) {
	c := ParseChecklist("## just a header\n- item\n")
	if len(c.Sections) != 1 || c.Sections[0].Key != "just a header" {
		t.Fatalf("sections: %+v", c.Sections)
	}
}

func TestFilterSuppressionCaseInsensitive(t *testing.T) {
	c := ParseChecklist(sampleChecklist).Filter([]string{"servers"})
	if len(c.Sections) != 1 || c.Sections[0].Key != "CALENDAR" {
		t.Fatalf("filter: %+v", c.Sections)
	}
}

func TestEmptyWhenAllSuppressedAndNoPreamble(t *testing.T) {
	c := ParseChecklist("## A — a\n## B — b\n").Filter([]string{"a", "b"})
	if !c.Empty() {
		t.Fatalf("expected empty, got %+v", c)
	}
}

func TestSuppressUnsuppressFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "HEARTBEAT.suppress")
	if err := Suppress(path, "SERVERS"); err != nil {
		t.Fatal(err)
	}
	if err := Suppress(path, "SERVERS"); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if got := ParseSuppressions(string(data)); len(got) != 1 {
		t.Fatalf("duplicate suppression written: %v", got)
	}
	if err := Unsuppress(path, "servers"); err != nil {
		t.Fatal(err)
	}
	data, _ = os.ReadFile(path)
	if got := ParseSuppressions(string(data)); len(got) != 0 {
		t.Fatalf("unsuppress failed: %v", got)
	}
}

func TestAddAndRemoveItems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "HEARTBEAT.md")
	if err := AddItem(path, "check the backups"); err != nil {
		t.Fatal(err)
	}
	if err := AddItem(path, "water the plants"); err != nil {
		t.Fatal(err)
	}
	if err := RemoveMatching(path, "Backups"); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	content := string(data)
	if !strings.Contains(content, "water the plants") {
		t.Fatalf("surviving item missing: %q", content)
	}
	if strings.Contains(content, "backups") {
		t.Fatalf("removed item still present: %q", content)
	}
}

type fakeProvider struct {
	calls int
	text  string
}

func (f *fakeProvider) Name() string { return "fake" }
func (f *fakeProvider) Complete(_ context.Context, _ provider.Context) (provider.Response, error) {
	f.calls++
	return provider.Response{Text: f.text}, nil
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

func newTestRunner(t *testing.T, providerText string) (*Runner, *fakeProvider, *fakeChannel, textfs.Layout) {
	t.Helper()
	layout := textfs.Layout{DataDir: t.TempDir()}
	prov := &fakeProvider{text: providerText}
	ch := &fakeChannel{name: "telegram"}
	r := NewRunner(prov, channel.NewRegistry(ch), layout, "", config.HeartbeatConfig{
		IntervalMinutes: 30, Channel: "telegram", Target: "842277204",
	}, zerolog.Nop())
	return r, prov, ch, layout
}

func TestTickSkipsWhenAllSectionsSuppressed(t *testing.T) {
	r, prov, _, layout := newTestRunner(t, "HEARTBEAT_OK")
	os.WriteFile(layout.HeartbeatFile(), []byte("## A — a\n- x\n"), 0o644)
	os.WriteFile(layout.HeartbeatSuppressFile(), []byte("A\n"), 0o644)

	r.Tick(context.Background(), time.Now())
	if prov.calls != 0 {
		t.Fatalf("provider must not be called when everything is suppressed, got %d calls", prov.calls)
	}
}

func TestTickHeartbeatOKSendsNothing(t *testing.T) {
	r, prov, ch, layout := newTestRunner(t, "**HEARTBEAT_OK**")
	os.WriteFile(layout.HeartbeatFile(), []byte("## A — a\n- x\n"), 0o644)

	r.Tick(context.Background(), time.Now())
	if prov.calls != 1 {
		t.Fatalf("expected 1 provider call, got %d", prov.calls)
	}
	if len(ch.sent) != 0 {
		t.Fatalf("HEARTBEAT_OK must not produce a message, got %+v", ch.sent)
	}
}

func TestTickAlertIsForwarded(t *testing.T) {
	r, _, ch, layout := newTestRunner(t, "web-1 is not responding!")
	os.WriteFile(layout.HeartbeatFile(), []byte("## SERVERS — hosts\n- web-1\n"), 0o644)

	r.Tick(context.Background(), time.Now())
	if len(ch.sent) != 1 || ch.sent[0].Text != "web-1 is not responding!" {
		t.Fatalf("alert not forwarded: %+v", ch.sent)
	}
	if ch.sent[0].ReplyTarget != "842277204" {
		t.Fatalf("alert target wrong: %+v", ch.sent[0])
	}
}

func TestWithinActiveHoursWrapsMidnight(t *testing.T) {
	r := &Runner{cfg: config.HeartbeatConfig{ActiveStart: "22:00", ActiveEnd: "06:00"}}
	at := func(h, m int) time.Time {
		return time.Date(2026, 2, 17, h, m, 0, 0, time.Local)
	}
	if !r.withinActiveHours(at(23, 0)) {
		t.Fatal("23:00 must be inside a 22:00-06:00 window")
	}
	if !r.withinActiveHours(at(5, 59)) {
		t.Fatal("05:59 must be inside a 22:00-06:00 window")
	}
	if r.withinActiveHours(at(12, 0)) {
		t.Fatal("12:00 must be outside a 22:00-06:00 window")
	}
}

func TestSetIntervalIgnoresOutOfRangeAndUpdates(t *testing.T) {
	r, _, _, _ := newTestRunner(t, "")
	if err := r.SetInterval(90); err != nil {
		t.Fatal(err)
	}
	if r.IntervalMinutes() != 90 {
		t.Fatalf("interval not updated: %d", r.IntervalMinutes())
	}
	r.SetInterval(0)
	if r.IntervalMinutes() != 90 {
		t.Fatal("out-of-range interval must be ignored")
	}
	r.SetInterval(2000)
	if r.IntervalMinutes() != 90 {
		t.Fatal("out-of-range interval must be ignored")
	}
}
