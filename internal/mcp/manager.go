// Package mcp lets a session agent's tool set (C9) be extended by
// external MCP (Model Context Protocol) servers, in addition to its
// builtins. Only the stdio transport is supported: it covers every MCP
// server the pack's own examples configure, and this module has no
// analogue of the teacher's HTTP-exposed remote-server management.
//
// Grounded on the teacher's internal/mcp: connectServer's
// create-client / Initialize / ListTools sequence is kept, generalized
// from the teacher's DB-backed, multi-tenant internal/tools.Registry
// target to this module's providers.ToolDefinition/ToolExecutor
// contract (C9's own tool-calling shape).
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	mcpclient "github.com/mark3labs/mcp-go/client"
	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/bobmatnyc/ai-commander-sub001/internal/providers"
)

// ServerConfig describes one MCP server to launch over stdio.
type ServerConfig struct {
	Name    string
	Command string
	Args    []string
	Env     map[string]string
	// Prefix is prepended to every discovered tool's name (e.g. "fs_")
	// so two servers can expose a same-named tool without colliding.
	Prefix string
}

type boundTool struct {
	server      string
	originalName string
	client      *mcpclient.Client
}

// Manager owns the set of connected MCP servers and the tools they
// contributed, merged into a single namespace for a session agent.
type Manager struct {
	mu      sync.RWMutex
	clients map[string]*mcpclient.Client
	tools   map[string]*boundTool
	defs    map[string]providers.ToolDefinition
}

// NewManager returns an empty Manager; call Connect for each configured
// server before reading Definitions.
func NewManager() *Manager {
	return &Manager{
		clients: make(map[string]*mcpclient.Client),
		tools:   make(map[string]*boundTool),
		defs:    make(map[string]providers.ToolDefinition),
	}
}

// Connect launches cfg's server over stdio, performs the MCP
// initialize handshake, and registers every tool it advertises.
func (m *Manager) Connect(ctx context.Context, cfg ServerConfig) error {
	envSlice := mapToEnvSlice(cfg.Env)
	client, err := mcpclient.NewStdioMCPClient(cfg.Command, envSlice, cfg.Args...)
	if err != nil {
		return fmt.Errorf("start mcp server %q: %w", cfg.Name, err)
	}

	initReq := mcpgo.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcpgo.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcpgo.Implementation{Name: "commander", Version: "1.0.0"}
	if _, err := client.Initialize(ctx, initReq); err != nil {
		_ = client.Close()
		return fmt.Errorf("initialize mcp server %q: %w", cfg.Name, err)
	}

	result, err := client.ListTools(ctx, mcpgo.ListToolsRequest{})
	if err != nil {
		_ = client.Close()
		return fmt.Errorf("list tools on mcp server %q: %w", cfg.Name, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[cfg.Name] = client
	registered := 0
	for _, t := range result.Tools {
		name := cfg.Prefix + t.Name
		if _, exists := m.tools[name]; exists {
			slog.Warn("mcp tool name collision, skipping", "server", cfg.Name, "tool", name)
			continue
		}
		m.tools[name] = &boundTool{server: cfg.Name, originalName: t.Name, client: client}
		m.defs[name] = providers.ToolDefinition{
			Type: "function",
			Function: providers.ToolFunctionSchema{
				Name:        name,
				Description: t.Description,
				Parameters:  schemaToParams(t.InputSchema),
			},
		}
		registered++
	}
	slog.Info("mcp server connected", "server", cfg.Name, "tools", registered)
	return nil
}

// Definitions returns every tool discovered across every connected
// server, for merging into an agent's own builtin tool list.
func (m *Manager) Definitions() []providers.ToolDefinition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	defs := make([]providers.ToolDefinition, 0, len(m.defs))
	for _, d := range m.defs {
		defs = append(defs, d)
	}
	return defs
}

// Handles reports whether name was contributed by a connected MCP
// server, so a caller's ToolExecutor can fall through to its own
// builtins for everything else.
func (m *Manager) Handles(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.tools[name]
	return ok
}

// Execute runs call against the MCP server that owns it and returns the
// concatenated text content of the result.
func (m *Manager) Execute(ctx context.Context, call providers.ToolCall) (string, error) {
	m.mu.RLock()
	bt, ok := m.tools[call.Name]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("mcp: unknown tool %q", call.Name)
	}

	req := mcpgo.CallToolRequest{}
	req.Params.Name = bt.originalName
	req.Params.Arguments = call.Arguments

	result, err := bt.client.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("mcp: call %q on %q: %w", bt.originalName, bt.server, err)
	}

	var b strings.Builder
	for _, c := range result.Content {
		if tc, ok := c.(mcpgo.TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	if result.IsError {
		return b.String(), fmt.Errorf("mcp: tool %q reported an error", call.Name)
	}
	return b.String(), nil
}

// Close shuts down every connected server's client.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, c := range m.clients {
		if err := c.Close(); err != nil {
			slog.Warn("failed to close mcp server", "server", name, "error", err)
		}
	}
}

func mapToEnvSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

// schemaToParams re-encodes an MCP tool's JSON-schema input type into the
// generic map[string]interface{} shape providers.ToolFunctionSchema
// carries (itself re-marshaled verbatim into each provider's own
// function-calling wire format).
func schemaToParams(schema mcpgo.ToolInputSchema) map[string]interface{} {
	data, err := json.Marshal(schema)
	if err != nil {
		return map[string]interface{}{"type": "object"}
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]interface{}{"type": "object"}
	}
	return out
}
