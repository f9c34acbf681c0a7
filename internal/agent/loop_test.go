package agent

import (
	"context"
	"testing"

	"github.com/bobmatnyc/ai-commander-sub001/internal/model"
	"github.com/bobmatnyc/ai-commander-sub001/internal/providers"
)

func TestRunLoopReturnsPlainTextWithoutToolCalls(t *testing.T) {
	p := &scriptedProvider{responses: []*providers.ChatResponse{
		{Content: "hello there"},
	}}
	c := NewContext()

	resp, err := RunLoop(context.Background(), LoopConfig{
		AgentID:      "a1",
		RunID:        "r1",
		Provider:     p,
		SystemPrompt: "sys",
	}, c, "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hello there" {
		t.Fatalf("content = %q", resp.Content)
	}
	if resp.Iterations != 1 {
		t.Fatalf("iterations = %d, want 1", resp.Iterations)
	}
	if len(c.Messages) != 2 {
		t.Fatalf("context messages = %d, want 2 (user+assistant)", len(c.Messages))
	}
}

func TestRunLoopExecutesToolCallsThenReturns(t *testing.T) {
	p := &scriptedProvider{responses: []*providers.ChatResponse{
		{ToolCalls: []providers.ToolCall{{ID: "call-1", Name: "lookup", Arguments: map[string]interface{}{}}}},
		{Content: "final answer"},
	}}
	c := NewContext()

	var executed []string
	exec := func(ctx context.Context, call providers.ToolCall) (string, error) {
		executed = append(executed, call.Name)
		return "tool result", nil
	}

	resp, err := RunLoop(context.Background(), LoopConfig{
		AgentID:  "a1",
		RunID:    "r1",
		Provider: p,
		Execute:  exec,
	}, c, "do it")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "final answer" {
		t.Fatalf("content = %q", resp.Content)
	}
	if resp.Iterations != 2 {
		t.Fatalf("iterations = %d, want 2", resp.Iterations)
	}
	if len(executed) != 1 || executed[0] != "lookup" {
		t.Fatalf("executed = %v", executed)
	}
}

func TestRunLoopMaxIterationsExceeded(t *testing.T) {
	p := &scriptedProvider{responses: []*providers.ChatResponse{
		{ToolCalls: []providers.ToolCall{{ID: "c", Name: "loopy"}}},
	}}
	c := NewContext()
	exec := func(ctx context.Context, call providers.ToolCall) (string, error) { return "x", nil }

	_, err := RunLoop(context.Background(), LoopConfig{
		AgentID:       "a1",
		RunID:         "r1",
		Provider:      p,
		Execute:       exec,
		MaxIterations: 3,
	}, c, "do it forever")

	if err == nil {
		t.Fatal("expected error, got nil")
	}
	maxErr, ok := err.(*model.MaxIterationsExceededError)
	if !ok {
		t.Fatalf("expected *model.MaxIterationsExceededError, got %T: %v", err, err)
	}
	if maxErr.N != 3 {
		t.Fatalf("N = %d, want 3", maxErr.N)
	}
}

func TestRunLoopProviderErrorWrapsModelError(t *testing.T) {
	p := &scriptedProvider{responses: []*providers.ChatResponse{nil}}
	c := NewContext()

	_, err := RunLoop(context.Background(), LoopConfig{
		AgentID:  "a1",
		RunID:    "r1",
		Provider: p,
	}, c, "hi")
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := err.(*model.ModelError); !ok {
		t.Fatalf("expected *model.ModelError, got %T", err)
	}
}
