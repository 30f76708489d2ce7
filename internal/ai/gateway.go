// Package ai provides a provider-agnostic generation gateway with ordered
// fallback across providers.
package ai

import (
	"context"
	"errors"
	"fmt"
)

// TaskType identifies which flow a request belongs to.
type TaskType int

const (
	TaskCurriculum TaskType = iota
	TaskTeaching
	TaskProbe
)

func (t TaskType) String() string {
	switch t {
	case TaskCurriculum:
		return "curriculum"
	case TaskTeaching:
		return "teaching"
	case TaskProbe:
		return "probe"
	default:
		return "unknown"
	}
}

// Provider errors. Providers wrap these so callers can branch with
// errors.Is while the message keeps the upstream detail.
var (
	ErrRateLimited         = errors.New("ai: rate limited")
	ErrProviderUnavailable = errors.New("ai: provider unavailable")
	ErrNoProviders         = errors.New("ai: no providers registered")
	ErrEmptyResponse       = errors.New("ai: empty response")
)

// ProviderError records which provider failed and why.
type ProviderError struct {
	Provider string
	Kind     error
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

// Unwrap exposes both the sentinel kind and the underlying cause.
func (e *ProviderError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the input to a completion.
type CompletionRequest struct {
	Messages    []Message `json:"messages"`
	System      string    `json:"system,omitempty"`
	Model       string    `json:"model,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Task        TaskType  `json:"task,omitempty"`
}

// UserPrompt builds a single-turn request.
func UserPrompt(task TaskType, prompt string) CompletionRequest {
	return CompletionRequest{
		Messages: []Message{{Role: "user", Content: prompt}},
		Task:     task,
	}
}

// CompletionResponse is the output of a completion.
type CompletionResponse struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	Provider     string `json:"provider,omitempty"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// TotalTokens returns the sum of input and output tokens.
func (r CompletionResponse) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// StreamChunk is one piece of a streamed completion. The last chunk has
// Done set, or carries Error.
type StreamChunk struct {
	Content string
	Done    bool
	Error   error
}

// ModelInfo describes an available model.
type ModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MaxTokens   int    `json:"max_tokens"`
	Description string `json:"description"`
}

// Provider is implemented by every generation backend.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	StreamComplete(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error)
	Models() []ModelInfo
	HealthCheck(ctx context.Context) error
}

// classify wraps err with the sentinel matching an upstream HTTP status.
func classify(provider string, status int, err error) error {
	kind := ErrProviderUnavailable
	if status == 429 {
		kind = ErrRateLimited
	}
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}

// singleChunk adapts a blocking completion to the streaming interface.
func singleChunk(ctx context.Context, p Provider, req CompletionRequest) (<-chan StreamChunk, error) {
	resp, err := p.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	ch := make(chan StreamChunk, 1)
	ch <- StreamChunk{Content: resp.Content, Done: true}
	close(ch)
	return ch, nil
}
