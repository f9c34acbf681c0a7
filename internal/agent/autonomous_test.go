package agent

import (
	"context"
	"testing"

	"github.com/bobmatnyc/ai-commander-sub001/internal/completion"
	"github.com/bobmatnyc/ai-commander-sub001/internal/memory"
	"github.com/bobmatnyc/ai-commander-sub001/internal/providers"
)

func TestProcessAutonomousCompletesSingleGoal(t *testing.T) {
	p := &scriptedProvider{responses: []*providers.ChatResponse{
		{Content: "1. Write README"},       // parseGoals
		{Content: "Done. [GOAL COMPLETE]"}, // executeNextAction
	}}
	store, err := memory.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	u := NewUserAgent("user-1", ModelConfig{Provider: p}, store, memory.NewHashEmbedder(memory.DefaultEmbeddingDim), nil, nil)

	result, err := u.ProcessAutonomous(context.Background(), "write the README")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Kind != completion.DecisionComplete {
		t.Fatalf("kind = %v, want Complete", result.Kind)
	}
	if len(result.GoalsAchieved) != 1 || result.GoalsAchieved[0].Status != completion.GoalCompleted {
		t.Fatalf("goals achieved = %+v", result.GoalsAchieved)
	}
}

func TestProcessAutonomousStopsForUserWhenBlocked(t *testing.T) {
	p := &scriptedProvider{responses: []*providers.ChatResponse{
		{Content: "1. Pick a deployment target"},
		{Content: "[BLOCKED] Need your decision on Option A vs B\nOptions:\n1. A\n2. B"},
	}}
	store, err := memory.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	u := NewUserAgent("user-1", ModelConfig{Provider: p}, store, memory.NewHashEmbedder(memory.DefaultEmbeddingDim), nil, nil)

	result, err := u.ProcessAutonomous(context.Background(), "pick a deployment target")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Kind != completion.DecisionStopForUser {
		t.Fatalf("kind = %v, want StopForUser", result.Kind)
	}
	if len(result.Blockers) != 1 || result.Blockers[0].Type != completion.DecisionNeeded {
		t.Fatalf("blockers = %+v", result.Blockers)
	}
}

func TestProcessAutonomousFallsBackToSingleGoalWhenParseFails(t *testing.T) {
	p := &scriptedProvider{responses: []*providers.ChatResponse{
		nil, // parseGoals call fails
		{Content: "Done. [GOAL COMPLETE]"},
	}}
	store, err := memory.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	u := NewUserAgent("user-1", ModelConfig{Provider: p}, store, memory.NewHashEmbedder(memory.DefaultEmbeddingDim), nil, nil)

	result, err := u.ProcessAutonomous(context.Background(), "do the thing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Kind != completion.DecisionComplete {
		t.Fatalf("kind = %v, want Complete", result.Kind)
	}
	if len(result.GoalsAchieved) != 1 || result.GoalsAchieved[0].Description != "do the thing" {
		t.Fatalf("goals achieved = %+v, want single goal wrapping the raw request", result.GoalsAchieved)
	}
}
