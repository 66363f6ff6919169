package summarizer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/omega-agent/omega/pkg/provider"
	"github.com/omega-agent/omega/pkg/store"
	"github.com/omega-agent/omega/pkg/store/memstore"
)

// fakeProvider answers the summary call first, then the fact call.
type fakeProvider struct {
	summary    string
	facts      string
	summaryErr error
	calls      int
}

func (f *fakeProvider) Name() string { return "fake" }
func (f *fakeProvider) Complete(_ context.Context, _ provider.Context) (provider.Response, error) {
	f.calls++
	if f.calls == 1 {
		if f.summaryErr != nil {
			return provider.Response{}, f.summaryErr
		}
		return provider.Response{Text: f.summary}, nil
	}
	return provider.Response{Text: f.facts}, nil
}

func seedConversation(t *testing.T, st *memstore.Store, exchanges int) store.Conversation {
	t.Helper()
	ctx := context.Background()
	conv, err := st.GetOrCreateConversation(ctx, "telegram", "842277204")
	if err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-2 * time.Hour)
	for i := 0; i < exchanges; i++ {
		st.AppendMessage(ctx, store.Message{ConversationID: conv.ID, Role: store.MessageRoleUser, Content: "hello", Timestamp: old})
		st.AppendMessage(ctx, store.Message{ConversationID: conv.ID, Role: store.MessageRoleAssistant, Content: "hi there", Timestamp: old})
	}
	return conv
}

func newSummarizer(st *memstore.Store, prov *fakeProvider) *Summarizer {
	return &Summarizer{
		Store:         st,
		Provider:      prov,
		Log:           zerolog.Nop(),
		IdleThreshold: 30 * time.Minute,
		SummaryPrompt: "summarize",
		FactsPrompt:   "extract facts",
	}
}

func TestTickClosesIdleConversationWithSummary(t *testing.T) {
	st := memstore.New()
	conv := seedConversation(t, st, 2)
	prov := &fakeProvider{summary: "User said hello and was greeted.", facts: "none"}

	newSummarizer(st, prov).Tick(context.Background())

	active, _ := st.FindAllActiveConversations(context.Background())
	if len(active) != 0 {
		t.Fatalf("idle conversation must close: %+v", active)
	}
	summaries, _ := st.RecentSummaries(context.Background(), "telegram", "842277204", 5)
	if len(summaries) != 1 || summaries[0].ID != conv.ID {
		t.Fatalf("summary not stored: %+v", summaries)
	}
	if summaries[0].Summary != "User said hello and was greeted." {
		t.Fatalf("unexpected summary: %q", summaries[0].Summary)
	}
}

func TestSummaryFailureClosesWithFallback(t *testing.T) {
	st := memstore.New()
	seedConversation(t, st, 3)
	prov := &fakeProvider{summaryErr: errors.New("provider down")}

	newSummarizer(st, prov).Tick(context.Background())

	active, _ := st.FindAllActiveConversations(context.Background())
	if len(active) != 0 {
		t.Fatal("conversation must close even when the summary fails")
	}
	summaries, _ := st.RecentSummaries(context.Background(), "telegram", "842277204", 5)
	if len(summaries) != 1 || !strings.Contains(summaries[0].Summary, "summary unavailable") {
		t.Fatalf("fallback summary missing: %+v", summaries)
	}
}

func TestExtractedFactsAreValidatedAndStored(t *testing.T) {
	st := memstore.New()
	seedConversation(t, st, 1)
	prov := &fakeProvider{
		summary: "Chat about work.",
		facts:   "occupation: carpenter\nbudget: $900\nwelcomed: true\nnetworth: 123,456\nname: Ana",
	}

	newSummarizer(st, prov).Tick(context.Background())

	facts, _ := st.GetFacts(context.Background(), "842277204")
	byKey := map[string]string{}
	for _, f := range facts {
		byKey[f.Key] = f.Value
	}
	if byKey["occupation"] != "carpenter" || byKey["name"] != "Ana" {
		t.Fatalf("valid facts missing: %+v", byKey)
	}
	if _, ok := byKey["budget"]; ok {
		t.Fatal("dollar value must be rejected")
	}
	if _, ok := byKey["welcomed"]; ok {
		t.Fatal("system key must be rejected")
	}
	if _, ok := byKey["networth"]; ok {
		t.Fatal("price-like value must be rejected")
	}
}

func TestRecentConversationIsLeftOpen(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	conv, _ := st.GetOrCreateConversation(ctx, "telegram", "842277204")
	st.AppendMessage(ctx, store.Message{ConversationID: conv.ID, Role: store.MessageRoleUser, Content: "hi", Timestamp: time.Now()})
	prov := &fakeProvider{summary: "x", facts: "none"}

	newSummarizer(st, prov).Tick(ctx)

	active, _ := st.FindAllActiveConversations(ctx)
	if len(active) != 1 {
		t.Fatal("recently-active conversation must stay open")
	}
	if prov.calls != 0 {
		t.Fatal("no provider call expected for active conversations")
	}
}

func TestSummarizeAllClosesEverythingAtShutdown(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	conv, _ := st.GetOrCreateConversation(ctx, "telegram", "842277204")
	st.AppendMessage(ctx, store.Message{ConversationID: conv.ID, Role: store.MessageRoleUser, Content: "hi", Timestamp: time.Now()})
	prov := &fakeProvider{summary: "Shutdown chat.", facts: "none"}

	newSummarizer(st, prov).SummarizeAll(ctx)

	active, _ := st.FindAllActiveConversations(ctx)
	if len(active) != 0 {
		t.Fatalf("shutdown must close all active conversations: %+v", active)
	}
}

func TestParseFactLines(t *testing.T) {
	got := ParseFactLines("- name: Ana\noccupation: carpenter\nnone\nmalformed line\n")
	if len(got) != 2 || got["name"] != "Ana" || got["occupation"] != "carpenter" {
		t.Fatalf("unexpected parse: %+v", got)
	}
	if len(ParseFactLines("none")) != 0 {
		t.Fatal("literal none must yield nothing")
	}
	if len(ParseFactLines("  None  ")) != 0 {
		t.Fatal("case-insensitive none must yield nothing")
	}
}
