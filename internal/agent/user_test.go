package agent

import (
	"context"
	"testing"

	"github.com/bobmatnyc/ai-commander-sub001/internal/memory"
	"github.com/bobmatnyc/ai-commander-sub001/internal/model"
	"github.com/bobmatnyc/ai-commander-sub001/internal/providers"
)

func newTestStoreWithMemories(t *testing.T) (*memory.LocalStore, memory.EmbeddingProvider) {
	t.Helper()
	store, err := memory.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	embedder := memory.NewHashEmbedder(memory.DefaultEmbeddingDim)

	for _, rec := range []struct{ agent, content string }{
		{"session-1", "fixed the off-by-one bug in the parser"},
		{"session-2", "deployed the staging environment"},
	} {
		vec, err := embedder.Embed(context.Background(), rec.content)
		if err != nil {
			t.Fatal(err)
		}
		if err := store.Store(context.Background(), *model.NewMemory(rec.agent, rec.content, vec)); err != nil {
			t.Fatal(err)
		}
	}
	return store, embedder
}

func TestUserAgentSearchAllMemoriesSeesEveryAgent(t *testing.T) {
	store, embedder := newTestStoreWithMemories(t)
	u := NewUserAgent("user-1", ModelConfig{}, store, embedder, nil, nil)

	out, err := u.ExecuteTool(context.Background(), providers.ToolCall{
		Name:      "search_all_memories",
		Arguments: map[string]interface{}{"query": "bug"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == "" {
		t.Fatal("expected non-empty formatted results")
	}
}

func TestUserAgentSearchMemoriesScopesToOneAgent(t *testing.T) {
	store, embedder := newTestStoreWithMemories(t)
	u := NewUserAgent("user-1", ModelConfig{}, store, embedder, nil, nil)

	out, err := u.ExecuteTool(context.Background(), providers.ToolCall{
		Name:      "search_memories",
		Arguments: map[string]interface{}{"agent_id": "session-1", "query": "bug"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == "" {
		t.Fatal("expected non-empty formatted results")
	}
}

func TestUserAgentDelegateToSessionUnwiredReturnsError(t *testing.T) {
	store, embedder := newTestStoreWithMemories(t)
	u := NewUserAgent("user-1", ModelConfig{}, store, embedder, nil, nil)

	_, err := u.ExecuteTool(context.Background(), providers.ToolCall{
		Name:      "delegate_to_session",
		Arguments: map[string]interface{}{"session_id": "session-1", "task": "do thing"},
	})
	if err == nil {
		t.Fatal("expected error when delegate callback is not wired")
	}
}

func TestUserAgentDelegateToSessionWiredCallback(t *testing.T) {
	store, embedder := newTestStoreWithMemories(t)
	var gotSession, gotTask string
	delegate := func(ctx context.Context, sessionID, task, extra string) (string, error) {
		gotSession, gotTask = sessionID, task
		return "delegated ok", nil
	}
	u := NewUserAgent("user-1", ModelConfig{}, store, embedder, delegate, nil)

	out, err := u.ExecuteTool(context.Background(), providers.ToolCall{
		Name:      "delegate_to_session",
		Arguments: map[string]interface{}{"session_id": "session-1", "task": "do thing"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "delegated ok" {
		t.Fatalf("out = %q", out)
	}
	if gotSession != "session-1" || gotTask != "do thing" {
		t.Fatalf("callback got session=%q task=%q", gotSession, gotTask)
	}
}

func TestUserAgentGetSessionStatusUnwiredReturnsError(t *testing.T) {
	store, embedder := newTestStoreWithMemories(t)
	u := NewUserAgent("user-1", ModelConfig{}, store, embedder, nil, nil)

	_, err := u.ExecuteTool(context.Background(), providers.ToolCall{
		Name:      "get_session_status",
		Arguments: map[string]interface{}{"session_id": "session-1"},
	})
	if err == nil {
		t.Fatal("expected error when session status callback is not wired")
	}
}

func TestUserAgentUnknownToolReturnsToolNotFoundError(t *testing.T) {
	store, embedder := newTestStoreWithMemories(t)
	u := NewUserAgent("user-1", ModelConfig{}, store, embedder, nil, nil)

	_, err := u.ExecuteTool(context.Background(), providers.ToolCall{Name: "nope"})
	if _, ok := err.(*model.ToolNotFoundError); !ok {
		t.Fatalf("expected *model.ToolNotFoundError, got %T: %v", err, err)
	}
}

func TestUserAgentProcessRunsLoopToCompletion(t *testing.T) {
	store, embedder := newTestStoreWithMemories(t)
	p := &scriptedProvider{responses: []*providers.ChatResponse{{Content: "all good"}}}
	u := NewUserAgent("user-1", ModelConfig{Provider: p}, store, embedder, nil, nil)

	resp, err := u.Process(context.Background(), "status?", NewContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "all good" {
		t.Fatalf("content = %q", resp.Content)
	}
}
