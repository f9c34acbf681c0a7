package agent

import (
	"context"
	"testing"

	"github.com/bobmatnyc/ai-commander-sub001/internal/memory"
	"github.com/bobmatnyc/ai-commander-sub001/internal/model"
	"github.com/bobmatnyc/ai-commander-sub001/internal/providers"
)

func newTestSessionAgent(t *testing.T, p providers.Provider) (*SessionAgent, *memory.LocalStore) {
	t.Helper()
	store, err := memory.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	embedder := memory.NewHashEmbedder(memory.DefaultEmbeddingDim)
	tmpl, _ := NewTemplateRegistry().Get("shell")
	s := NewSessionAgent("session-1", "sess-1", tmpl, ModelConfig{Provider: p}, store, embedder)
	return s, store
}

func TestSessionAgentUpdateAndReadState(t *testing.T) {
	s, _ := newTestSessionAgent(t, nil)

	_, err := s.ExecuteTool(context.Background(), providers.ToolCall{
		Name: "update_session_state",
		Arguments: map[string]interface{}{
			"goals":          []interface{}{"ship the feature"},
			"task":           "write tests",
			"progress":       "halfway done",
			"blockers":       []interface{}{"waiting on review"},
			"modified_files": []interface{}{"main.go"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state := s.State()
	if len(state.Goals) != 1 || state.Goals[0] != "ship the feature" {
		t.Fatalf("goals = %v", state.Goals)
	}
	if state.CurrentTask != "write tests" {
		t.Fatalf("task = %q", state.CurrentTask)
	}
	if len(state.Blockers) != 1 || state.Blockers[0] != "waiting on review" {
		t.Fatalf("blockers = %v", state.Blockers)
	}
	if len(state.ModifiedFiles) != 1 || state.ModifiedFiles[0] != "main.go" {
		t.Fatalf("modified files = %v", state.ModifiedFiles)
	}
}

func TestSessionAgentReportToUser(t *testing.T) {
	s, _ := newTestSessionAgent(t, nil)
	out, err := s.ExecuteTool(context.Background(), providers.ToolCall{
		Name: "report_to_user",
		Arguments: map[string]interface{}{
			"summary":     "done with step 1",
			"needs_input": false,
			"has_error":   false,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == "" {
		t.Fatal("expected non-empty report")
	}
}

func TestSessionAgentAnalyzeOutputUsesDetector(t *testing.T) {
	s, _ := newTestSessionAgent(t, nil)
	out, err := s.ExecuteTool(context.Background(), providers.ToolCall{
		Name:      "analyze_output",
		Arguments: map[string]interface{}{"raw": "3 tests passed, 0 failed"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == "" {
		t.Fatal("expected a non-empty summary for a meaningful line")
	}
}

func TestSessionAgentSearchMemoriesIsScopedToOwnAgentID(t *testing.T) {
	s, store := newTestSessionAgent(t, nil)
	embedder := memory.NewHashEmbedder(memory.DefaultEmbeddingDim)
	vec, _ := embedder.Embed(context.Background(), "note about the build")
	if err := store.Store(context.Background(), *model.NewMemory("session-1", "note about the build", vec)); err != nil {
		t.Fatal(err)
	}
	otherVec, _ := embedder.Embed(context.Background(), "unrelated note")
	if err := store.Store(context.Background(), *model.NewMemory("some-other-agent", "unrelated note", otherVec)); err != nil {
		t.Fatal(err)
	}

	out, err := s.ExecuteTool(context.Background(), providers.ToolCall{
		Name:      "search_memories",
		Arguments: map[string]interface{}{"query": "build"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == "" {
		t.Fatal("expected results scoped to session-1's own memory")
	}
}

func TestSessionAgentProcessOutputChangeIgnoresNoise(t *testing.T) {
	s, _ := newTestSessionAgent(t, nil)
	notif, err := s.ProcessOutputChange(context.Background(), NewContext(), "just some ordinary log line")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notif != nil {
		t.Fatalf("expected nil notification for non-meaningful output, got %+v", notif)
	}
}

func TestSessionAgentProcessOutputChangeMediumSignificanceSkipsLLM(t *testing.T) {
	// A provider that would panic if called, to prove medium-significance
	// changes reuse the detector's summary without spending an LLM call.
	s, _ := newTestSessionAgent(t, nil)
	notif, err := s.ProcessOutputChange(context.Background(), NewContext(), "12 tests passed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notif == nil {
		t.Fatal("expected a notification for medium-significance output")
	}
	if notif.Significance < model.SignificanceMedium {
		t.Fatalf("significance = %v, want >= Medium", notif.Significance)
	}
}

func TestSessionAgentProcessOutputChangeHighSignificanceCallsLLM(t *testing.T) {
	p := &scriptedProvider{responses: []*providers.ChatResponse{{Content: "the build completed successfully"}}}
	s, _ := newTestSessionAgent(t, p)

	notif, err := s.ProcessOutputChange(context.Background(), NewContext(), "build completed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notif == nil {
		t.Fatal("expected a notification for high-significance output")
	}
	if notif.Summary != "the build completed successfully" {
		t.Fatalf("summary = %q, want the LLM-backed summary", notif.Summary)
	}
	if !notif.RequiresAction {
		t.Fatal("expected RequiresAction=true for a completion event")
	}
}

func TestSessionAgentUnknownToolReturnsToolNotFoundError(t *testing.T) {
	s, _ := newTestSessionAgent(t, nil)
	_, err := s.ExecuteTool(context.Background(), providers.ToolCall{Name: "nope"})
	if _, ok := err.(*model.ToolNotFoundError); !ok {
		t.Fatalf("expected *model.ToolNotFoundError, got %T: %v", err, err)
	}
}
