package ai_test

import (
	"context"
	"errors"
	"testing"

	"github.com/p-n-ai/minerva/internal/ai"
)

func TestMockProvider_Complete(t *testing.T) {
	mock := ai.NewMockProvider("test response")

	resp, err := mock.Complete(context.Background(), ai.UserPrompt(ai.TaskCurriculum, "Hello"))
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "test response" {
		t.Errorf("Content = %q, want %q", resp.Content, "test response")
	}
	if resp.Model != "mock" {
		t.Errorf("Model = %q, want %q", resp.Model, "mock")
	}
	if mock.LastRequest == nil || mock.LastRequest.Messages[0].Content != "Hello" {
		t.Errorf("LastRequest = %+v", mock.LastRequest)
	}
}

func TestMockProvider_ScriptedResponses(t *testing.T) {
	mock := &ai.MockProvider{Response: "default", Responses: []string{"first", "second"}}

	var got []string
	for range 3 {
		resp, _ := mock.Complete(context.Background(), ai.UserPrompt(ai.TaskTeaching, "x"))
		got = append(got, resp.Content)
	}
	want := []string{"first", "second", "default"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, got[i], want[i])
		}
	}
	if mock.Calls() != 3 {
		t.Errorf("Calls() = %d, want 3", mock.Calls())
	}
}

func TestMockProvider_Block(t *testing.T) {
	mock := &ai.MockProvider{Block: true}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := mock.Complete(ctx, ai.UserPrompt(ai.TaskTeaching, "x")); !errors.Is(err, context.Canceled) {
		t.Errorf("Complete() error = %v, want context.Canceled", err)
	}
}

func TestMockProvider_HealthCheck(t *testing.T) {
	mock := ai.NewMockProvider("response")
	if err := mock.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestTaskType_String(t *testing.T) {
	tests := []struct {
		task     ai.TaskType
		expected string
	}{
		{ai.TaskCurriculum, "curriculum"},
		{ai.TaskTeaching, "teaching"},
		{ai.TaskProbe, "probe"},
		{ai.TaskType(99), "unknown"},
	}
	for _, tt := range tests {
		if tt.task.String() != tt.expected {
			t.Errorf("TaskType.String() = %q, want %q", tt.task.String(), tt.expected)
		}
	}
}

func TestCompletionResponse_TotalTokens(t *testing.T) {
	resp := ai.CompletionResponse{InputTokens: 100, OutputTokens: 50}
	if got := resp.TotalTokens(); got != 150 {
		t.Errorf("TotalTokens() = %d, want 150", got)
	}
}

func TestProviderError(t *testing.T) {
	cause := errors.New("quota exceeded")
	err := &ai.ProviderError{Provider: "google", Kind: ai.ErrRateLimited, Err: cause}

	if err.Error() != "google: quota exceeded" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, ai.ErrRateLimited) || !errors.Is(err, cause) {
		t.Error("ProviderError should unwrap to both kind and cause")
	}
}
