package ai

import (
	"context"
	"strings"
	"sync"
)

// MockProvider is a test double for AI providers. Responses, when set, are
// returned in order before falling back to Response.
type MockProvider struct {
	Response  string
	Responses []string
	Err       error
	// Chunks, when set, is what StreamComplete emits instead of Response.
	Chunks []string
	// Block makes calls wait for context cancellation.
	Block bool

	mu          sync.Mutex
	calls       int
	LastRequest *CompletionRequest // captures the last request for inspection
}

// NewMockProvider creates a MockProvider that returns the given response.
func NewMockProvider(response string) *MockProvider {
	return &MockProvider{Response: response}
}

// Calls returns how many completions were requested.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockProvider) record(req CompletionRequest) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.LastRequest = &req
	if len(m.Responses) > 0 {
		resp := m.Responses[0]
		m.Responses = m.Responses[1:]
		return resp
	}
	return m.Response
}

func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	content := m.record(req)
	if m.Block {
		<-ctx.Done()
		return CompletionResponse{}, ctx.Err()
	}
	if m.Err != nil {
		return CompletionResponse{}, m.Err
	}
	return CompletionResponse{
		Content:      content,
		Model:        "mock",
		InputTokens:  10,
		OutputTokens: len(content),
	}, nil
}

func (m *MockProvider) StreamComplete(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	content := m.record(req)
	if m.Err != nil {
		return nil, m.Err
	}

	chunks := m.Chunks
	if chunks == nil {
		chunks = []string{content}
	}

	ch := make(chan StreamChunk, 1)
	go func() {
		defer close(ch)
		if m.Block {
			<-ctx.Done()
			ch <- StreamChunk{Error: ctx.Err()}
			return
		}
		for _, c := range chunks {
			select {
			case ch <- StreamChunk{Content: c}:
			case <-ctx.Done():
				return
			}
		}
		select {
		case ch <- StreamChunk{Done: true}:
		case <-ctx.Done():
		}
	}()
	return ch, nil
}

func (m *MockProvider) Models() []ModelInfo {
	return []ModelInfo{
		{ID: "mock", Name: "Mock Model", MaxTokens: 4096, Description: "Test mock"},
	}
}

func (m *MockProvider) HealthCheck(_ context.Context) error {
	return m.Err
}

// Collect drains a stream into a single string, returning the first
// in-band error.
func Collect(ch <-chan StreamChunk) (string, error) {
	var b strings.Builder
	for c := range ch {
		if c.Error != nil {
			return b.String(), c.Error
		}
		b.WriteString(c.Content)
	}
	return b.String(), nil
}
