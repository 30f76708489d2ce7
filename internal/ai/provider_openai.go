package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider for OpenAI and every OpenAI-compatible
// API (DeepSeek, OpenRouter, Ollama) through one SDK client.
type OpenAIProvider struct {
	name         string
	client       *openai.Client
	defaultModel string
	models       []ModelInfo
}

type openaiOptions struct {
	name         string
	baseURL      string
	httpClient   *http.Client
	defaultModel string
	models       []ModelInfo
	headers      map[string]string
}

// OpenAIOption configures an OpenAIProvider.
type OpenAIOption func(*openaiOptions)

// WithBaseURL sets a custom base URL, including any version suffix.
func WithBaseURL(url string) OpenAIOption {
	return func(o *openaiOptions) {
		o.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) OpenAIOption {
	return func(o *openaiOptions) {
		o.httpClient = client
	}
}

// WithDefaultModel sets the model used when a request names none.
func WithDefaultModel(model string) OpenAIOption {
	return func(o *openaiOptions) {
		if model != "" {
			o.defaultModel = model
		}
	}
}

// WithModels overrides the advertised model list.
func WithModels(models []ModelInfo) OpenAIOption {
	return func(o *openaiOptions) {
		o.models = models
	}
}

// WithName sets the provider name used in errors.
func WithName(name string) OpenAIOption {
	return func(o *openaiOptions) {
		o.name = name
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) OpenAIOption {
	return func(o *openaiOptions) {
		if o.headers == nil {
			o.headers = make(map[string]string)
		}
		o.headers[key] = value
	}
}

// NewOpenAIProvider creates a provider for the OpenAI API.
func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) *OpenAIProvider {
	o := openaiOptions{
		name:         "openai",
		defaultModel: "gpt-4o-mini",
		models: []ModelInfo{
			{ID: "gpt-4o", Name: "GPT-4o", MaxTokens: 128000, Description: "Most capable OpenAI model"},
			{ID: "gpt-4o-mini", Name: "GPT-4o Mini", MaxTokens: 128000, Description: "Fast, affordable OpenAI model"},
		},
	}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := openai.DefaultConfig(apiKey)
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	client := o.httpClient
	if client == nil {
		client = &http.Client{}
	}
	if len(o.headers) > 0 {
		client = withHeaders(client, o.headers)
	}
	cfg.HTTPClient = client

	return &OpenAIProvider{
		name:         o.name,
		client:       openai.NewClientWithConfig(cfg),
		defaultModel: o.defaultModel,
		models:       o.models,
	}
}

// NewDeepSeekProvider creates a provider for the DeepSeek API.
func NewDeepSeekProvider(apiKey string, opts ...OpenAIOption) *OpenAIProvider {
	base := []OpenAIOption{
		WithName("deepseek"),
		WithBaseURL("https://api.deepseek.com/v1"),
		WithDefaultModel("deepseek-chat"),
		WithModels([]ModelInfo{
			{ID: "deepseek-chat", Name: "DeepSeek Chat", MaxTokens: 64000, Description: "Affordable general model"},
		}),
	}
	return NewOpenAIProvider(apiKey, append(base, opts...)...)
}

// NewOpenRouterProvider creates a provider for OpenRouter.
func NewOpenRouterProvider(apiKey string, opts ...OpenAIOption) *OpenAIProvider {
	base := []OpenAIOption{
		WithName("openrouter"),
		WithBaseURL("https://openrouter.ai/api/v1"),
		WithDefaultModel("google/gemini-2.5-flash"),
		WithHeader("X-Title", "Minerva"),
		WithModels([]ModelInfo{
			{ID: "google/gemini-2.5-flash", Name: "Gemini 2.5 Flash (OpenRouter)", MaxTokens: 1048576, Description: "Gemini through OpenRouter"},
		}),
	}
	return NewOpenAIProvider(apiKey, append(base, opts...)...)
}

// NewOllamaProvider creates a provider for a local Ollama server through
// its OpenAI-compatible endpoint.
func NewOllamaProvider(url string, opts ...OpenAIOption) *OpenAIProvider {
	base := []OpenAIOption{
		WithName("ollama"),
		WithBaseURL(strings.TrimRight(url, "/") + "/v1"),
		WithDefaultModel("llama3.1"),
		WithModels([]ModelInfo{
			{ID: "llama3.1", Name: "Llama 3.1", MaxTokens: 128000, Description: "Local model"},
		}),
	}
	return NewOpenAIProvider("ollama", append(base, opts...)...)
}

func (p *OpenAIProvider) request(req CompletionRequest) openai.ChatCompletionRequest {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case "assistant":
			role = openai.ChatMessageRoleAssistant
		case "system":
			role = openai.ChatMessageRoleSystem
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	return openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	}
}

func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	resp, err := p.client.CreateChatCompletion(ctx, p.request(req))
	if err != nil {
		return CompletionResponse{}, p.mapError(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return CompletionResponse{}, &ProviderError{Provider: p.name, Kind: ErrEmptyResponse, Err: errors.New("no choices in response")}
	}

	return CompletionResponse{
		Content:      resp.Choices[0].Message.Content,
		Model:        resp.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

func (p *OpenAIProvider) StreamComplete(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	chatReq := p.request(req)
	chatReq.Stream = true

	stream, err := p.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, p.mapError(err)
	}

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				send(ctx, ch, StreamChunk{Done: true})
				return
			}
			if err != nil {
				send(ctx, ch, StreamChunk{Error: p.mapError(err)})
				return
			}
			for _, choice := range resp.Choices {
				if choice.Delta.Content == "" {
					continue
				}
				if !send(ctx, ch, StreamChunk{Content: choice.Delta.Content}) {
					return
				}
			}
		}
	}()
	return ch, nil
}

func (p *OpenAIProvider) Models() []ModelInfo {
	return p.models
}

func (p *OpenAIProvider) HealthCheck(ctx context.Context) error {
	if _, err := p.client.ListModels(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", p.mapError(err))
	}
	return nil
}

func (p *OpenAIProvider) mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classify(p.name, apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classify(p.name, reqErr.HTTPStatusCode, err)
	}
	return classify(p.name, 0, err)
}

// withHeaders returns a copy of client that sets headers on every request.
func withHeaders(client *http.Client, headers map[string]string) *http.Client {
	c := *client
	base := c.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.Transport = headerTransport{base: base, headers: headers}
	return &c
}

type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t headerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	for k, v := range t.headers {
		r.Header.Set(k, v)
	}
	return t.base.RoundTrip(r)
}
