package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-sonnet-4-5"

// AnthropicProvider implements Provider for Anthropic Claude.
type AnthropicProvider struct {
	client *anthropic.Client
	model  string
}

type anthropicOptions struct {
	baseURL string
	model   string
}

// AnthropicOption configures an AnthropicProvider.
type AnthropicOption func(*anthropicOptions)

// WithAnthropicBaseURL sets the base URL (for testing).
func WithAnthropicBaseURL(url string) AnthropicOption {
	return func(o *anthropicOptions) {
		o.baseURL = url
	}
}

// WithAnthropicModel sets the default model.
func WithAnthropicModel(model string) AnthropicOption {
	return func(o *anthropicOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// NewAnthropicProvider creates a new Anthropic provider. SDK retries are
// disabled; the router owns fallback.
func NewAnthropicProvider(apiKey string, opts ...AnthropicOption) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	o := anthropicOptions{model: defaultAnthropicModel}
	for _, opt := range opts {
		opt(&o)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if o.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(o.baseURL))
	}

	client := anthropic.NewClient(reqOpts...)
	return &AnthropicProvider{client: &client, model: o.model}, nil
}

func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	var system []string
	if req.System != "" {
		system = append(system, req.System)
	}
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = append(system, m.Content)
		case "assistant":
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	if len(system) > 0 {
		params.System = []anthropic.TextBlockParam{{Text: strings.Join(system, "\n\n")}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return CompletionResponse{}, mapAnthropicError(err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return CompletionResponse{}, &ProviderError{Provider: "anthropic", Kind: ErrEmptyResponse, Err: errors.New("no text content in response")}
	}

	return CompletionResponse{
		Content:      text.String(),
		Model:        string(msg.Model),
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}, nil
}

// StreamComplete delivers the whole completion as one chunk.
func (p *AnthropicProvider) StreamComplete(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	return singleChunk(ctx, p, req)
}

func (p *AnthropicProvider) Models() []ModelInfo {
	return []ModelInfo{
		{ID: "claude-sonnet-4-5", Name: "Claude Sonnet 4.5", MaxTokens: 200000, Description: "Detailed lessons"},
		{ID: "claude-haiku-4-5", Name: "Claude Haiku 4.5", MaxTokens: 200000, Description: "Fast curricula"},
	}
}

// HealthCheck lists models, which needs a valid key but spends no tokens.
func (p *AnthropicProvider) HealthCheck(ctx context.Context) error {
	if _, err := p.client.Models.List(ctx, anthropic.ModelListParams{}); err != nil {
		return mapAnthropicError(err)
	}
	return nil
}

func mapAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return classify("anthropic", apiErr.StatusCode, err)
	}
	return classify("anthropic", 0, err)
}
