package agent

import (
	"context"
	"fmt"

	"github.com/bobmatnyc/ai-commander-sub001/internal/autoeval"
	"github.com/bobmatnyc/ai-commander-sub001/internal/changedetect"
	"github.com/bobmatnyc/ai-commander-sub001/internal/mcp"
	"github.com/bobmatnyc/ai-commander-sub001/internal/memory"
	"github.com/bobmatnyc/ai-commander-sub001/internal/model"
	"github.com/bobmatnyc/ai-commander-sub001/internal/providers"
)

// ChangeNotification is what a SessionAgent hands back to its owning
// process after observing fresh terminal output, when the user should be
// told about it.
type ChangeNotification struct {
	SessionID      string
	Summary        string
	RequiresAction bool
	ChangeType     model.ChangeType
	Significance   model.Significance
}

// SessionAgentState is the small slice of a session's mutable state an
// LLM-backed tool call can update: the goal list, current task, a
// free-form progress note, anything blocking it, and files it has
// touched. Read by the owning process to drive its own bookkeeping (C6).
type SessionAgentState struct {
	Goals         []string
	CurrentTask   string
	Progress      string
	Blockers      []string
	ModifiedFiles []string
}

// SessionAgent supervises one adapter session: it watches terminal output
// via a changedetect.Detector, decides when the user needs to be told
// something, and exposes a small tool surface for reporting status and
// recording agent-scoped memories.
type SessionAgent struct {
	id           string
	sessionID    string
	adapterType  string
	modelConfig  ModelConfig
	store        memory.Store
	embedder     memory.EmbeddingProvider
	detector     *changedetect.Detector
	systemPrompt string
	mcp          *mcp.Manager            // optional; nil means no external tool servers
	autoEval     *autoeval.TurnProcessor // optional; nil disables C11 feedback tracking

	state SessionAgentState
}

// NewSessionAgent constructs a session agent from a Template resolved for
// its adapter type.
func NewSessionAgent(id, sessionID string, tmpl Template, mc ModelConfig, store memory.Store, embedder memory.EmbeddingProvider) *SessionAgent {
	return &SessionAgent{
		id:           id,
		sessionID:    sessionID,
		adapterType:  tmpl.AdapterType,
		modelConfig:  mc,
		store:        store,
		embedder:     embedder,
		detector:     changedetect.New(),
		systemPrompt: tmpl.SystemPrompt,
	}
}

// WithMCP attaches a connected MCP manager whose tools are merged into
// this agent's own builtin tool set.
func (s *SessionAgent) WithMCP(m *mcp.Manager) *SessionAgent {
	s.mcp = m
	return s
}

// WithAutoEval attaches a turn processor that feeds every turn into C11's
// feedback detector and per-agent feedback store.
func (s *SessionAgent) WithAutoEval(p *autoeval.TurnProcessor) *SessionAgent {
	s.autoEval = p
	return s
}

func (s *SessionAgent) ID() string { return s.id }
func (s *SessionAgent) Kind() Kind {
	return Kind{Tag: KindSession, SessionID: s.sessionID, AdapterType: s.adapterType}
}
func (s *SessionAgent) ModelConfig() ModelConfig { return s.modelConfig }
func (s *SessionAgent) Memory() memory.Store     { return s.store }
func (s *SessionAgent) State() SessionAgentState { return s.state }

func (s *SessionAgent) Tools() []providers.ToolDefinition {
	defs := s.builtinTools()
	if s.mcp != nil {
		defs = append(defs, s.mcp.Definitions()...)
	}
	return defs
}

func (s *SessionAgent) builtinTools() []providers.ToolDefinition {
	return []providers.ToolDefinition{
		{Type: "function", Function: providers.ToolFunctionSchema{
			Name:        "search_memories",
			Description: "Search this session's own memories for a query.",
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
			Name:        "update_session_state",
			Description: "Record the session's current goals, task, progress, blockers, and modified files.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"goals":          map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
					"task":           map[string]interface{}{"type": "string"},
					"progress":       map[string]interface{}{"type": "string"},
					"blockers":       map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
					"modified_files": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
				},
			},
		}},
		{Type: "function", Function: providers.ToolFunctionSchema{
			Name:        "report_to_user",
			Description: "Surface a status report to the user.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"summary":     map[string]interface{}{"type": "string"},
					"progress":    map[string]interface{}{"type": "string"},
					"needs_input": map[string]interface{}{"type": "boolean"},
					"has_error":   map[string]interface{}{"type": "boolean"},
				},
				"required": []string{"summary"},
			},
		}},
		{Type: "function", Function: providers.ToolFunctionSchema{
			Name:        "analyze_output",
			Description: "Analyze a block of raw terminal output and summarize what happened.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"raw": map[string]interface{}{"type": "string"},
				},
				"required": []string{"raw"},
			},
		}},
	}
}

func (s *SessionAgent) ExecuteTool(ctx context.Context, call providers.ToolCall) (string, error) {
	if s.mcp != nil && s.mcp.Handles(call.Name) {
		return s.mcp.Execute(ctx, call)
	}

	switch call.Name {
	case "search_memories":
		query, _ := call.Arguments["query"].(string)
		limit := intArg(call.Arguments, "limit", 5)
		embedding, err := s.embedder.Embed(ctx, query)
		if err != nil {
			return "", &model.ToolExecutionError{Name: call.Name, Cause: err}
		}
		results, err := s.store.Search(ctx, embedding, s.id, limit)
		if err != nil {
			return "", &model.ToolExecutionError{Name: call.Name, Cause: err}
		}
		return formatMemories(results), nil

	case "update_session_state":
		s.state.Goals = stringListArg(call.Arguments, "goals")
		if task, ok := call.Arguments["task"].(string); ok {
			s.state.CurrentTask = task
		}
		if progress, ok := call.Arguments["progress"].(string); ok {
			s.state.Progress = progress
		}
		s.state.Blockers = stringListArg(call.Arguments, "blockers")
		s.state.ModifiedFiles = stringListArg(call.Arguments, "modified_files")
		return "state updated", nil

	case "report_to_user":
		summary, _ := call.Arguments["summary"].(string)
		needsInput, _ := call.Arguments["needs_input"].(bool)
		hasError, _ := call.Arguments["has_error"].(bool)
		return fmt.Sprintf("reported: %s (needs_input=%v, has_error=%v)", summary, needsInput, hasError), nil

	case "analyze_output":
		raw, _ := call.Arguments["raw"].(string)
		event := s.detector.Detect(raw)
		return event.Summary, nil

	default:
		return "", &model.ToolNotFoundError{Name: call.Name}
	}
}

// Process runs one turn of the tool-calling loop for this agent.
func (s *SessionAgent) Process(ctx context.Context, message string, c *Context) (*Response, error) {
	runID := model.NewID(model.RunPrefix)
	return RunLoop(ctx, LoopConfig{
		AgentID:      s.id,
		RunID:        runID,
		Provider:     s.modelConfig.Provider,
		Model:        s.modelConfig.Model,
		SystemPrompt: s.systemPrompt,
		Tools:        s.Tools(),
		Execute:      s.ExecuteTool,
		AutoEval:     s.autoEval,
	}, c, message)
}

// ProcessOutputChange runs the detector against a fresh capture and decides
// how much further analysis it warrants, per spec.md §4.9: not meaningful
// changes cost nothing, changes at or above High significance get an
// LLM-backed richer summary, everything else reuses the detector's
// pattern-based summary directly.
func (s *SessionAgent) ProcessOutputChange(ctx context.Context, c *Context, raw string) (*ChangeNotification, error) {
	event := s.detector.Detect(raw)
	if !event.IsMeaningful() {
		return nil, nil
	}

	summary := event.Summary
	if event.Significance >= model.SignificanceHigh {
		resp, err := s.Process(ctx, "Analyze this terminal output and summarize what happened in one or two sentences:\n\n"+raw, c)
		if err == nil && resp.Content != "" {
			summary = resp.Content
		}
	}

	return &ChangeNotification{
		SessionID:      s.sessionID,
		Summary:        summary,
		RequiresAction: event.RequiresNotification(),
		ChangeType:     event.Type,
		Significance:   event.Significance,
	}, nil
}

func stringListArg(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if str, ok := v.(string); ok {
			out = append(out, str)
		}
	}
	return out
}
