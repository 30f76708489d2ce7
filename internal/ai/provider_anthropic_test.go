package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestAnthropicProvider(t *testing.T, handler http.HandlerFunc) *AnthropicProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := NewAnthropicProvider("test-key", WithAnthropicBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewAnthropicProvider() error = %v", err)
	}
	return p
}

func TestNewAnthropicProvider_EmptyKey(t *testing.T) {
	if _, err := NewAnthropicProvider(""); err == nil {
		t.Error("NewAnthropicProvider() should reject an empty key")
	}
}

func TestAnthropicProvider_Complete(t *testing.T) {
	p := newTestAnthropicProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "test-key" {
			t.Errorf("unexpected api key header: %q", r.Header.Get("X-Api-Key"))
		}

		var body struct {
			Model    string `json:"model"`
			System   []struct {
				Text string `json:"text"`
			} `json:"system"`
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Model != defaultAnthropicModel {
			t.Errorf("model = %q, want %q", body.Model, defaultAnthropicModel)
		}
		if len(body.System) != 1 || body.System[0].Text != "You are a tutor." {
			t.Errorf("system = %+v", body.System)
		}
		if len(body.Messages) != 1 || body.Messages[0].Role != "user" {
			t.Errorf("messages = %+v", body.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_test",
			"type":        "message",
			"role":        "assistant",
			"content":     []map[string]any{{"type": "text", "text": "## Module 1: Basics"}},
			"model":       defaultAnthropicModel,
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 50, "output_tokens": 30},
		})
	})

	resp, err := p.Complete(context.Background(), CompletionRequest{
		Messages: []Message{
			{Role: "system", Content: "You are a tutor."},
			{Role: "user", Content: "Build a curriculum."},
		},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "## Module 1: Basics" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.InputTokens != 50 || resp.OutputTokens != 30 {
		t.Errorf("tokens = %d/%d, want 50/30", resp.InputTokens, resp.OutputTokens)
	}
}

func TestAnthropicProvider_Complete_RateLimited(t *testing.T) {
	calls := 0
	p := newTestAnthropicProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"type":"error","error":{"type":"rate_limit_error","message":"Rate limit exceeded"}}`)
	})

	_, err := p.Complete(context.Background(), UserPrompt(TaskCurriculum, "hi"))
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("error = %v, want ErrRateLimited", err)
	}
	if calls != 1 {
		t.Errorf("upstream calls = %d, want 1 (no SDK retries)", calls)
	}
}

func TestAnthropicProvider_StreamComplete(t *testing.T) {
	p := newTestAnthropicProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "msg_test",
			"type":    "message",
			"role":    "assistant",
			"content": []map[string]any{{"type": "text", "text": "lesson"}},
			"model":   defaultAnthropicModel,
			"usage":   map[string]any{"input_tokens": 1, "output_tokens": 1},
		})
	})

	ch, err := p.StreamComplete(context.Background(), UserPrompt(TaskTeaching, "teach"))
	if err != nil {
		t.Fatalf("StreamComplete() error = %v", err)
	}
	got, err := Collect(ch)
	if err != nil || got != "lesson" {
		t.Errorf("Collect() = %q, %v", got, err)
	}
}

func TestAnthropicProvider_HealthCheck(t *testing.T) {
	p := newTestAnthropicProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[{"id":"claude-sonnet-4-5","type":"model","display_name":"Claude Sonnet 4.5","created_at":"2025-09-29T00:00:00Z"}],"has_more":false,"first_id":"claude-sonnet-4-5","last_id":"claude-sonnet-4-5"}`)
	})

	if err := p.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestAnthropicProvider_Models(t *testing.T) {
	p, _ := NewAnthropicProvider("k")
	if len(p.Models()) == 0 {
		t.Error("Models() returned empty")
	}
}
