// Package agent is the agent runtime (C9): the user agent and per-session
// agents share one tool-calling contract driving an external LLM provider,
// backed by the memory store (C8) and, for session agents, the change
// detector (C4) and session executor (C6).
//
// Grounded on the teacher's internal/agent/loop.go (think-act-observe
// iteration, AgentEvent broadcasting, log/slog structured logging) and
// internal/tools/delegate.go's injected-callback technique for dispatching
// into another package without an import cycle.
package agent

import (
	"context"

	"github.com/bobmatnyc/ai-commander-sub001/internal/memory"
	"github.com/bobmatnyc/ai-commander-sub001/internal/providers"
)

// KindTag distinguishes the two agent roles sharing the Agent contract.
type KindTag string

const (
	KindUser    KindTag = "user"
	KindSession KindTag = "session"
)

// Kind identifies an agent's role. For KindSession, SessionID and
// AdapterType name the session it's bound to.
type Kind struct {
	Tag         KindTag
	SessionID   string
	AdapterType string
}

// ModelConfig names the provider and model an agent calls.
type ModelConfig struct {
	Provider providers.Provider
	Model    string
}

// Response is the result of one Process call.
type Response struct {
	Content    string
	Iterations int
	Usage      *providers.Usage
}

// Agent is the shared contract for the user agent and every session agent.
type Agent interface {
	ID() string
	Kind() Kind
	Process(ctx context.Context, message string, c *Context) (*Response, error)
	Tools() []providers.ToolDefinition
	ExecuteTool(ctx context.Context, call providers.ToolCall) (string, error)
	Memory() memory.Store
	ModelConfig() ModelConfig
}
