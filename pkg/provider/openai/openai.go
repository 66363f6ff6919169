// Package openai adapts an OpenAI-compatible chat completion endpoint to
// the provider.Provider interface.
package openai

import (
	"context"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/omega-agent/omega/pkg/provider"
)

// Adapter implements provider.Provider against the OpenAI chat
// completions API.
type Adapter struct {
	client       openai.Client
	defaultModel string
}

// New constructs an Adapter. apiKey and baseURL follow openai-go's usual
// option wiring; baseURL may be empty to use the default OpenAI endpoint
// (or point at any OpenAI-compatible gateway).
func New(apiKey, baseURL, defaultModel string) *Adapter {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Adapter{client: openai.NewClient(opts...), defaultModel: defaultModel}
}

func (a *Adapter) Name() string { return "openai" }

func (a *Adapter) Complete(ctx context.Context, reqCtx provider.Context) (provider.Response, error) {
	model := reqCtx.Model
	if model == "" {
		model = a.defaultModel
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(reqCtx.History)+2)
	if reqCtx.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(reqCtx.SystemPrompt))
	}
	for _, m := range reqCtx.History {
		switch m.Role {
		case provider.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	messages = append(messages, openai.UserMessage(reqCtx.Message))

	start := time.Now()
	completion, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    model,
		Messages: messages,
	})
	if err != nil {
		return provider.Response{}, err
	}

	text := ""
	if len(completion.Choices) > 0 {
		text = completion.Choices[0].Message.Content
	}
	return provider.Response{
		Text:  text,
		Model: model,
		Usage: provider.Usage{
			InputTokens:  int(completion.Usage.PromptTokens),
			OutputTokens: int(completion.Usage.CompletionTokens),
		},
		ProcessingMs: time.Since(start).Milliseconds(),
	}, nil
}
