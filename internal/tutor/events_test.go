package tutor_test

import (
	"context"
	"testing"

	"github.com/p-n-ai/minerva/internal/tutor"
)

func TestMemoryEventLogger_LogEvent(t *testing.T) {
	logger := tutor.NewMemoryEventLogger()

	if err := logger.LogEvent(context.Background(), tutor.Event{Flow: tutor.FlowTeaching, Outcome: "ok"}); err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	events := logger.Events()
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestMemoryEventLogger_RequiresFlow(t *testing.T) {
	if err := tutor.NewMemoryEventLogger().LogEvent(context.Background(), tutor.Event{}); err == nil {
		t.Error("expected error for missing flow")
	}
}

func TestPostgresEventLogger_LogEvent_NilPool(t *testing.T) {
	logger := tutor.NewPostgresEventLogger(nil)

	err := logger.LogEvent(context.Background(), tutor.Event{Flow: tutor.FlowCurriculum})
	if err == nil {
		t.Fatal("expected error for nil pool")
	}
}

func TestPromptHash(t *testing.T) {
	a := tutor.PromptHash("Teach \"Loops\" to a Adult Learner student.")
	b := tutor.PromptHash("Teach \"Loops\" to a Adult Learner student.")
	c := tutor.PromptHash("Teach \"Maps\" to a Adult Learner student.")

	if a != b {
		t.Error("PromptHash should be stable")
	}
	if a == c {
		t.Error("different prompts should hash differently")
	}
	if len(a) != 32 {
		t.Errorf("len = %d, want 32 hex chars", len(a))
	}
}

func TestRequestID(t *testing.T) {
	if tutor.RequestID(context.Background()) != "" {
		t.Error("RequestID() should be empty without a value")
	}
	ctx := tutor.WithRequestID(context.Background(), "abc")
	if tutor.RequestID(ctx) != "abc" {
		t.Errorf("RequestID() = %q", tutor.RequestID(ctx))
	}
}
