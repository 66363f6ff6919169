package webhook

import (
	"context"

	"github.com/omega-agent/omega/pkg/shared/httputil"
	"github.com/omega-agent/omega/pkg/store"
)

// PushChannel is the webhook's outbound leg: a channel named "webhook"
// that POSTs outgoing messages as JSON to a configured URL, so AI-mode
// webhook requests addressed to channel "webhook" get their replies
// delivered back to the caller's system.
type PushChannel struct {
	URL         string
	BearerToken string

	inbound chan store.IncomingMessage
}

// NewPushChannel constructs a PushChannel posting to url.
func NewPushChannel(url, bearerToken string) *PushChannel {
	return &PushChannel{URL: url, BearerToken: bearerToken, inbound: make(chan store.IncomingMessage)}
}

func (p *PushChannel) Name() string { return "webhook" }

// Start returns an empty stream: inbound webhook traffic arrives
// through the HTTP server, not a polled connection.
func (p *PushChannel) Start(ctx context.Context) (<-chan store.IncomingMessage, error) {
	return p.inbound, nil
}

type pushPayload struct {
	Text   string `json:"text"`
	Target string `json:"target"`
	Model  string `json:"model,omitempty"`
}

func (p *PushChannel) Send(ctx context.Context, msg store.OutgoingMessage) error {
	headers := map[string]string{}
	if p.BearerToken != "" {
		headers["Authorization"] = "Bearer " + p.BearerToken
	}
	_, _, err := httputil.PostJSON(ctx, p.URL, headers, pushPayload{
		Text:   msg.Text,
		Target: msg.ReplyTarget,
		Model:  msg.ModelName,
	}, 30)
	return err
}

// SendTyping is a no-op: HTTP callers have no typing surface.
func (p *PushChannel) SendTyping(ctx context.Context, target string) error { return nil }

func (p *PushChannel) Stop() error {
	close(p.inbound)
	return nil
}
