package agent

import (
	"context"
	"fmt"

	"github.com/bobmatnyc/ai-commander-sub001/internal/autoeval"
	"github.com/bobmatnyc/ai-commander-sub001/internal/memory"
	"github.com/bobmatnyc/ai-commander-sub001/internal/model"
	"github.com/bobmatnyc/ai-commander-sub001/internal/providers"
)

// DelegateFunc dispatches a task to a running session, returning its
// response. Injected from the cmd layer so this package never imports
// internal/executor directly — the same avoid-an-import-cycle technique
// the teacher uses for internal/tools/delegate.go's AgentRunFunc.
type DelegateFunc func(ctx context.Context, sessionID, task, extraContext string) (string, error)

// SessionStatusFunc reports a running session's current state as text
// (e.g. "working", "idle", "error: <message>").
type SessionStatusFunc func(ctx context.Context, sessionID string) (string, error)

// UserAgent is the privileged agent the operator talks to directly. It
// holds AccessAll over the memory store and can delegate tasks into any
// running session via C6.
type UserAgent struct {
	id            string
	modelConfig   ModelConfig
	store         memory.Store
	embedder      memory.EmbeddingProvider
	delegate      DelegateFunc
	sessionStatus SessionStatusFunc
	systemPrompt  string
	autoEval      *autoeval.TurnProcessor // optional; nil disables C11 feedback tracking
}

// NewUserAgent constructs the user agent.
func NewUserAgent(id string, mc ModelConfig, store memory.Store, embedder memory.EmbeddingProvider, delegate DelegateFunc, status SessionStatusFunc) *UserAgent {
	return &UserAgent{
		id:            id,
		modelConfig:   mc,
		store:         store,
		embedder:      embedder,
		delegate:      delegate,
		sessionStatus: status,
		systemPrompt: "You are the orchestrator's user agent. You can search across every " +
			"session's memories, delegate tasks to a running session, and check a " +
			"session's status. Be concise.",
	}
}

// WithAutoEval attaches a turn processor that feeds every turn into C11's
// feedback detector and per-agent feedback store.
func (u *UserAgent) WithAutoEval(p *autoeval.TurnProcessor) *UserAgent {
	u.autoEval = p
	return u
}

func (u *UserAgent) ID() string        { return u.id }
func (u *UserAgent) Kind() Kind        { return Kind{Tag: KindUser} }
func (u *UserAgent) ModelConfig() ModelConfig { return u.modelConfig }
func (u *UserAgent) Memory() memory.Store { return u.store }

func (u *UserAgent) Tools() []providers.ToolDefinition {
	return []providers.ToolDefinition{
		{Type: "function", Function: providers.ToolFunctionSchema{
			Name:        "search_all_memories",
			Description: "Search memories across every agent for a query.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{"type": "string"},
					"limit": map[string]interface{}{"type": "integer"},
				},
				"required": []string{"query"},
			},
		}},
		{Type: "function", Function: providers.ToolFunctionSchema{
			Name:        "search_memories",
			Description: "Search one agent's memories for a query.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"agent_id": map[string]interface{}{"type": "string"},
					"query":    map[string]interface{}{"type": "string"},
					"limit":    map[string]interface{}{"type": "integer"},
				},
				"required": []string{"agent_id", "query"},
			},
		}},
		{Type: "function", Function: providers.ToolFunctionSchema{
			Name:        "delegate_to_session",
			Description: "Hand a task to a running session and return its response.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": map[string]interface{}{"type": "string"},
					"task":       map[string]interface{}{"type": "string"},
					"context":    map[string]interface{}{"type": "string"},
				},
				"required": []string{"session_id", "task"},
			},
		}},
		{Type: "function", Function: providers.ToolFunctionSchema{
			Name:        "get_session_status",
			Description: "Report a running session's current state.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": map[string]interface{}{"type": "string"},
				},
				"required": []string{"session_id"},
			},
		}},
	}
}

func (u *UserAgent) ExecuteTool(ctx context.Context, call providers.ToolCall) (string, error) {
	switch call.Name {
	case "search_all_memories":
		query, _ := call.Arguments["query"].(string)
		limit := intArg(call.Arguments, "limit", 5)
		embedding, err := u.embedder.Embed(ctx, query)
		if err != nil {
			return "", &model.ToolExecutionError{Name: call.Name, Cause: err}
		}
		results, err := u.store.SearchAll(ctx, embedding, limit)
		if err != nil {
			return "", &model.ToolExecutionError{Name: call.Name, Cause: err}
		}
		return formatMemories(results), nil

	case "search_memories":
		agentID, _ := call.Arguments["agent_id"].(string)
		query, _ := call.Arguments["query"].(string)
		limit := intArg(call.Arguments, "limit", 5)
		embedding, err := u.embedder.Embed(ctx, query)
		if err != nil {
			return "", &model.ToolExecutionError{Name: call.Name, Cause: err}
		}
		results, err := u.store.Search(ctx, embedding, agentID, limit)
		if err != nil {
			return "", &model.ToolExecutionError{Name: call.Name, Cause: err}
		}
		return formatMemories(results), nil

	case "delegate_to_session":
		sessionID, _ := call.Arguments["session_id"].(string)
		task, _ := call.Arguments["task"].(string)
		extra, _ := call.Arguments["context"].(string)
		if u.delegate == nil {
			return "", &model.ToolExecutionError{Name: call.Name, Cause: fmt.Errorf("delegation is not wired")}
		}
		result, err := u.delegate(ctx, sessionID, task, extra)
		if err != nil {
			return "", &model.ToolExecutionError{Name: call.Name, Cause: err}
		}
		return result, nil

	case "get_session_status":
		sessionID, _ := call.Arguments["session_id"].(string)
		if u.sessionStatus == nil {
			return "", &model.ToolExecutionError{Name: call.Name, Cause: fmt.Errorf("session status is not wired")}
		}
		status, err := u.sessionStatus(ctx, sessionID)
		if err != nil {
			return "", &model.ToolExecutionError{Name: call.Name, Cause: err}
		}
		return status, nil

	default:
		return "", &model.ToolNotFoundError{Name: call.Name}
	}
}

// Process runs one turn of the tool-calling loop for this agent.
func (u *UserAgent) Process(ctx context.Context, message string, c *Context) (*Response, error) {
	runID := model.NewID(model.RunPrefix)
	return RunLoop(ctx, LoopConfig{
		AgentID:      u.id,
		RunID:        runID,
		Provider:     u.modelConfig.Provider,
		Model:        u.modelConfig.Model,
		SystemPrompt: u.systemPrompt,
		Tools:        u.Tools(),
		Execute:      u.ExecuteTool,
		AutoEval:     u.autoEval,
	}, c, message)
}

func intArg(args map[string]interface{}, key string, def int) int {
	v, ok := args[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return def
	}
}
