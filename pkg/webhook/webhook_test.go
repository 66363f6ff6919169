package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/omega-agent/omega/pkg/channel"
	"github.com/omega-agent/omega/pkg/config"
	"github.com/omega-agent/omega/pkg/store"
)

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

func newTestServer(enqueued *[]store.IncomingMessage) (*Server, *fakeChannel) {
	tg := &fakeChannel{name: "telegram"}
	s := &Server{
		Channels: channel.NewRegistry(tg),
		ChannelAuth: map[string]config.ChannelConfig{
			"telegram": {AllowList: []string{"842277204"}},
		},
		BearerToken: "secret-token",
		Log:         zerolog.Nop(),
		StartedAt:   time.Now(),
		Enqueue: func(msg store.IncomingMessage) {
			*enqueued = append(*enqueued, msg)
		},
	}
	return s, tg
}

func doJSON(t *testing.T, handler http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestHealthNeedsNoAuth(t *testing.T) {
	var enqueued []store.IncomingMessage
	s, _ := newTestServer(&enqueued)
	w := doJSON(t, s.Router(), http.MethodGet, "/api/health", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health status: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("health body: %s", w.Body.String())
	}
}

func TestWebhookRejectsBadToken(t *testing.T) {
	var enqueued []store.IncomingMessage
	s, _ := newTestServer(&enqueued)
	body := `{"source":"monitor","message":"CPU 95%","mode":"ai"}`

	if w := doJSON(t, s.Router(), http.MethodPost, "/api/webhook", "", body); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing token must 401, got %d", w.Code)
	}
	if w := doJSON(t, s.Router(), http.MethodPost, "/api/webhook", "wrong", body); w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token must 401, got %d", w.Code)
	}
	if len(enqueued) != 0 {
		t.Fatal("unauthorized requests must not enqueue")
	}
}

func TestWebhookAIModeEnqueuesPrefixedMessage(t *testing.T) {
	var enqueued []store.IncomingMessage
	s, _ := newTestServer(&enqueued)
	body := `{"source":"monitor","message":"CPU 95%","mode":"ai","channel":"telegram","target":"842277204"}`

	w := doJSON(t, s.Router(), http.MethodPost, "/api/webhook", "secret-token", body)
	if w.Code != http.StatusAccepted {
		t.Fatalf("ai mode must 202, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp["request_id"] == "" {
		t.Fatalf("request_id missing: %s", w.Body.String())
	}

	if len(enqueued) != 1 {
		t.Fatalf("expected 1 enqueued message, got %d", len(enqueued))
	}
	msg := enqueued[0]
	if !strings.HasPrefix(msg.Text, "[webhook:monitor] CPU 95%") {
		t.Fatalf("text prefix wrong: %q", msg.Text)
	}
	if msg.WebhookSource != "monitor" || msg.Channel != "telegram" || msg.SenderID != "842277204" {
		t.Fatalf("message fields wrong: %+v", msg)
	}
	if msg.ID != resp["request_id"] {
		t.Fatalf("message id %q must equal request_id %q", msg.ID, resp["request_id"])
	}
}

func TestWebhookDirectModeSendsToChannel(t *testing.T) {
	var enqueued []store.IncomingMessage
	s, tg := newTestServer(&enqueued)
	body := `{"source":"monitor","message":"deploy finished","mode":"direct"}`

	w := doJSON(t, s.Router(), http.MethodPost, "/api/webhook", "secret-token", body)
	if w.Code != http.StatusOK {
		t.Fatalf("direct mode must 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(tg.sent) != 1 || tg.sent[0].Text != "deploy finished" {
		t.Fatalf("direct send missing: %+v", tg.sent)
	}
	// Default target falls back to the allow-list head.
	if tg.sent[0].ReplyTarget != "842277204" {
		t.Fatalf("default target wrong: %+v", tg.sent[0])
	}
	if len(enqueued) != 0 {
		t.Fatal("direct mode must bypass the pipeline")
	}
}

func TestWebhookRejectsEmptyMessageAndBadMode(t *testing.T) {
	var enqueued []store.IncomingMessage
	s, _ := newTestServer(&enqueued)

	if w := doJSON(t, s.Router(), http.MethodPost, "/api/webhook", "secret-token", `{"mode":"ai"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("empty message must 400, got %d", w.Code)
	}
	if w := doJSON(t, s.Router(), http.MethodPost, "/api/webhook", "secret-token", `{"message":"x","mode":"banana"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown mode must 400, got %d", w.Code)
	}
}

func TestWebhookBodySizeCap(t *testing.T) {
	var enqueued []store.IncomingMessage
	s, _ := newTestServer(&enqueued)
	huge := `{"message":"` + strings.Repeat("a", maxBodyBytes+1024) + `","mode":"ai"}`

	w := doJSON(t, s.Router(), http.MethodPost, "/api/webhook", "secret-token", huge)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("oversized body must 400, got %d", w.Code)
	}
}

func TestPairWithoutWhatsAppChannel(t *testing.T) {
	var enqueued []store.IncomingMessage
	s, _ := newTestServer(&enqueued)
	if w := doJSON(t, s.Router(), http.MethodPost, "/api/pair", "secret-token", ""); w.Code != http.StatusNotFound {
		t.Fatalf("pair without whatsapp must 404, got %d", w.Code)
	}
}
