package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

// DefaultGoogleModel is used when no model is configured.
const DefaultGoogleModel = "gemini-2.5-flash"

// GoogleProvider implements Provider for Google Gemini.
type GoogleProvider struct {
	client *genai.Client
	model  string
}

type googleOptions struct {
	baseURL    string
	httpClient *http.Client
	model      string
}

// GoogleOption configures a GoogleProvider.
type GoogleOption func(*googleOptions)

// WithGoogleBaseURL sets the base URL (for testing).
func WithGoogleBaseURL(url string) GoogleOption {
	return func(o *googleOptions) {
		o.baseURL = url
	}
}

// WithGoogleHTTPClient sets a custom HTTP client.
func WithGoogleHTTPClient(client *http.Client) GoogleOption {
	return func(o *googleOptions) {
		o.httpClient = client
	}
}

// WithGoogleModel sets the default model.
func WithGoogleModel(model string) GoogleOption {
	return func(o *googleOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// NewGoogleProvider creates a Gemini provider using the Gemini API backend.
func NewGoogleProvider(ctx context.Context, apiKey string, opts ...GoogleOption) (*GoogleProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google API key is required")
	}
	o := googleOptions{model: DefaultGoogleModel}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: o.httpClient,
	}
	if o.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: o.baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	return &GoogleProvider{client: client, model: o.model}, nil
}

func (p *GoogleProvider) modelFor(req CompletionRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return p.model
}

func (p *GoogleProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	model := p.modelFor(req)
	result, err := p.client.Models.GenerateContent(ctx, model, googleContents(req.Messages), googleConfig(req))
	if err != nil {
		return CompletionResponse{}, mapGoogleError(err)
	}

	text := result.Text()
	if text == "" {
		return CompletionResponse{}, &ProviderError{Provider: "google", Kind: ErrEmptyResponse, Err: ErrEmptyResponse}
	}

	resp := CompletionResponse{Content: text, Model: model}
	if result.UsageMetadata != nil {
		resp.InputTokens = int(result.UsageMetadata.PromptTokenCount)
		resp.OutputTokens = int(result.UsageMetadata.CandidatesTokenCount)
	}
	return resp, nil
}

func (p *GoogleProvider) StreamComplete(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	model := p.modelFor(req)
	contents := googleContents(req.Messages)
	config := googleConfig(req)

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		for result, err := range p.client.Models.GenerateContentStream(ctx, model, contents, config) {
			if err != nil {
				send(ctx, ch, StreamChunk{Error: mapGoogleError(err)})
				return
			}
			if text := result.Text(); text != "" {
				if !send(ctx, ch, StreamChunk{Content: text}) {
					return
				}
			}
		}
		send(ctx, ch, StreamChunk{Done: true})
	}()
	return ch, nil
}

func (p *GoogleProvider) Models() []ModelInfo {
	return []ModelInfo{
		{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash", MaxTokens: 1048576, Description: "Fast default for curricula and lessons"},
		{ID: "gemini-2.5-pro", Name: "Gemini 2.5 Pro", MaxTokens: 1048576, Description: "Most capable Gemini model"},
	}
}

// HealthCheck looks up the configured model, which needs a valid key but
// spends no tokens.
func (p *GoogleProvider) HealthCheck(ctx context.Context) error {
	if _, err := p.client.Models.Get(ctx, p.model, nil); err != nil {
		return mapGoogleError(err)
	}
	return nil
}

func googleContents(msgs []Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.RoleUser
		switch m.Role {
		case "assistant":
			role = genai.RoleModel
		case "system":
			// System text travels in the config.
			continue
		}
		out = append(out, genai.NewContentFromText(m.Content, genai.Role(role)))
	}
	return out
}

func googleConfig(req CompletionRequest) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature > 0 {
		temp := float32(req.Temperature)
		config.Temperature = &temp
	}

	system := req.System
	for _, m := range req.Messages {
		if m.Role == "system" {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		}
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	return config
}

func mapGoogleError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classify("google", apiErr.Code, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return classify("google", apiErrPtr.Code, err)
	}
	return classify("google", 0, err)
}

// send delivers c unless ctx ends first.
func send(ctx context.Context, ch chan<- StreamChunk, c StreamChunk) bool {
	select {
	case ch <- c:
		return true
	case <-ctx.Done():
		return false
	}
}
