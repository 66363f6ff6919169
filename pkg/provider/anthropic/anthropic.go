// Package anthropic adapts the Anthropic Messages API to the
// provider.Provider interface, demonstrating that the gateway core is
// not tied to any single backend.
package anthropic

import (
	"context"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/omega-agent/omega/pkg/provider"
)

// Adapter implements provider.Provider against the Anthropic Messages
// API.
type Adapter struct {
	client       anthropic.Client
	defaultModel string
	maxTokens    int64
}

// New constructs an Adapter. defaultModel is used whenever a call does
// not request a specific model.
func New(apiKey, defaultModel string, maxTokens int64) *Adapter {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Adapter{
		client:       anthropic.NewClient(option.WithAPIKey(apiKey)),
		defaultModel: defaultModel,
		maxTokens:    maxTokens,
	}
}

func (a *Adapter) Name() string { return "anthropic" }

func (a *Adapter) Complete(ctx context.Context, reqCtx provider.Context) (provider.Response, error) {
	model := reqCtx.Model
	if model == "" {
		model = a.defaultModel
	}

	messages := make([]anthropic.MessageParam, 0, len(reqCtx.History)+1)
	for _, m := range reqCtx.History {
		if m.Role == provider.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		} else {
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(reqCtx.Message)))

	start := time.Now()
	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: a.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: reqCtx.SystemPrompt}},
		Messages:  messages,
	})
	if err != nil {
		return provider.Response{}, err
	}

	text := ""
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return provider.Response{
		Text:  text,
		Model: model,
		Usage: provider.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
		ProcessingMs: time.Since(start).Milliseconds(),
	}, nil
}
