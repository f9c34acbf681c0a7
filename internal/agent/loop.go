package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/bobmatnyc/ai-commander-sub001/internal/autoeval"
	"github.com/bobmatnyc/ai-commander-sub001/internal/memory"
	"github.com/bobmatnyc/ai-commander-sub001/internal/model"
	"github.com/bobmatnyc/ai-commander-sub001/internal/providers"
	"github.com/bobmatnyc/ai-commander-sub001/internal/tracing"
)

// MaxToolIterations is the hard cap on tool-calling round-trips per turn.
// spec.md §4.9 fixes this at 10, distinct from the teacher's own default of
// 20 — see DESIGN.md's Open Question decisions.
const MaxToolIterations = 10

// ToolExecutor runs a single tool call and returns its result text for the
// model, or an error.
type ToolExecutor func(ctx context.Context, call providers.ToolCall) (string, error)

// LoopConfig configures one Process call's tool-calling loop. It is built
// fresh per turn by the calling Agent (UserAgent or SessionAgent), which
// owns the system prompt and tool set.
type LoopConfig struct {
	AgentID       string
	RunID         string
	Provider      providers.Provider
	Model         string
	MaxIterations int
	SystemPrompt  string
	Tools         []providers.ToolDefinition
	Execute       ToolExecutor
	OnEvent       EventFunc
	// AutoEval feeds every completed (or failed) turn into C11's
	// feedback detector. Nil disables auto-eval for this call.
	AutoEval *autoeval.TurnProcessor
}

// RunLoop drives the think-act-observe tool-calling loop described in
// spec.md §4.9: assemble messages, call the model, execute any tool calls
// it requests, append tool results, and repeat until the model replies
// with plain text or MaxToolIterations is exceeded.
//
// Grounded on the teacher's internal/agent/loop.go::runLoop iteration
// structure (build messages once, loop while resp.ToolCalls is non-empty,
// break on plain text), trimmed of the teacher's bootstrap/tracing/
// multi-tenant concerns which don't apply to this single-process runtime.
func RunLoop(ctx context.Context, cfg LoopConfig, c *Context, userMessage string) (*Response, error) {
	ctx, span := tracing.Tracer().Start(ctx, "agent.turn")
	defer span.End()
	span.SetAttributes(
		attribute.String("agent.id", cfg.AgentID),
		attribute.String("agent.run_id", cfg.RunID),
		attribute.String("agent.model", cfg.Model),
	)

	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = MaxToolIterations
	}

	emit(cfg.OnEvent, Event{Type: EventRunStarted, AgentID: cfg.AgentID, RunID: cfg.RunID})

	messages := assembleMessages(cfg.SystemPrompt, c, userMessage)

	var totalUsage providers.Usage
	var finalContent string
	iteration := 0

	for iteration < maxIter {
		iteration++

		resp, err := cfg.Provider.Chat(ctx, providers.ChatRequest{
			Messages: messages,
			Tools:    cfg.Tools,
			Model:    cfg.Model,
		})
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			if cfg.AutoEval != nil {
				if _, aerr := cfg.AutoEval.RecordError(ctx, cfg.AgentID, userMessage, err.Error()); aerr != nil {
					slog.Warn("autoeval: failed to record error signal", "agent", cfg.AgentID, "error", aerr)
				}
			}
			emit(cfg.OnEvent, Event{Type: EventRunFailed, AgentID: cfg.AgentID, RunID: cfg.RunID, Error: err.Error()})
			return nil, &model.ModelError{Cause: err}
		}
		if resp.Usage != nil {
			totalUsage.PromptTokens += resp.Usage.PromptTokens
			totalUsage.CompletionTokens += resp.Usage.CompletionTokens
			totalUsage.TotalTokens += resp.Usage.TotalTokens
		}

		if len(resp.ToolCalls) == 0 {
			finalContent = resp.Content
			break
		}

		messages = append(messages, providers.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, call := range resp.ToolCalls {
			emit(cfg.OnEvent, Event{Type: EventToolCall, AgentID: cfg.AgentID, RunID: cfg.RunID, Tool: call.Name})

			result, err := runToolSpan(ctx, call.Name, func(toolCtx context.Context) (string, error) {
				return cfg.Execute(toolCtx, call)
			})
			if err != nil {
				result = fmt.Sprintf("error: %v", err)
				emit(cfg.OnEvent, Event{Type: EventToolResult, AgentID: cfg.AgentID, RunID: cfg.RunID, Tool: call.Name, Error: err.Error()})
			} else {
				emit(cfg.OnEvent, Event{Type: EventToolResult, AgentID: cfg.AgentID, RunID: cfg.RunID, Tool: call.Name})
			}

			messages = append(messages, providers.Message{
				Role:       "tool",
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}

	if finalContent == "" && iteration >= maxIter {
		err := &model.MaxIterationsExceededError{N: maxIter}
		span.SetStatus(codes.Error, err.Error())
		emit(cfg.OnEvent, Event{Type: EventRunFailed, AgentID: cfg.AgentID, RunID: cfg.RunID, Error: err.Error()})
		return nil, err
	}

	finalContent = SanitizeAssistantContent(finalContent)

	if cfg.AutoEval != nil {
		previousUserInput := lastUserMessage(c.Messages)
		if _, aerr := cfg.AutoEval.ProcessUserMessage(ctx, cfg.AgentID, userMessage, finalContent, previousUserInput); aerr != nil {
			slog.Warn("autoeval: failed to process turn", "agent", cfg.AgentID, "error", aerr)
		}
	}

	c.Push(providers.Message{Role: "user", Content: userMessage})
	c.Push(providers.Message{Role: "assistant", Content: finalContent})

	slog.Debug("agent turn complete", "agent", cfg.AgentID, "iterations", iteration)

	emit(cfg.OnEvent, Event{Type: EventRunCompleted, AgentID: cfg.AgentID, RunID: cfg.RunID})
	return &Response{Content: finalContent, Iterations: iteration, Usage: &totalUsage}, nil
}

// runToolSpan wraps a single tool execution in its own child span so a
// trace backend can break down where a turn spent its time.
func runToolSpan(ctx context.Context, toolName string, fn func(context.Context) (string, error)) (string, error) {
	ctx, span := tracing.Tracer().Start(ctx, "agent.tool_call")
	defer span.End()
	span.SetAttributes(attribute.String("tool.name", toolName))

	result, err := fn(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

// assembleMessages builds the chat request per spec.md §4.9 step 1: system
// prompt, optional summary-of-history, optional relevant-memories, recent
// messages, then the new user message.
func assembleMessages(systemPrompt string, c *Context, userMessage string) []providers.Message {
	messages := []providers.Message{{Role: "system", Content: systemPrompt}}

	if c.Summary != "" {
		messages = append(messages, providers.Message{
			Role:    "system",
			Content: "Summary of earlier conversation:\n" + c.Summary,
		})
	}

	if len(c.RelevantMemories) > 0 {
		messages = append(messages, providers.Message{
			Role:    "system",
			Content: "Relevant memories:\n" + formatMemories(c.RelevantMemories),
		})
	}

	messages = append(messages, c.Messages...)
	messages = append(messages, providers.Message{Role: "user", Content: userMessage})
	return messages
}

// lastUserMessage returns the most recent user-role message in messages,
// used as the "previous" turn for C11's retry detector.
func lastUserMessage(messages []providers.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}

func formatMemories(results []memory.SearchResult) string {
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "- (%.2f) %s\n", r.Score, r.Memory.Content)
	}
	return b.String()
}
