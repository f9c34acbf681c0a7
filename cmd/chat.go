package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bobmatnyc/ai-commander-sub001/internal/agent"
	"github.com/bobmatnyc/ai-commander-sub001/internal/autoeval"
	"github.com/bobmatnyc/ai-commander-sub001/internal/completion"
	"github.com/bobmatnyc/ai-commander-sub001/internal/config"
	"github.com/bobmatnyc/ai-commander-sub001/internal/memory"
	"github.com/bobmatnyc/ai-commander-sub001/internal/providers"
	"github.com/bobmatnyc/ai-commander-sub001/internal/tracing"
)

// chatCmd sends a single message to the user agent (C9), backed by the
// local memory store (C8). It runs standalone — no executor or poller is
// started, so delegation into a live session always reports unavailable.
// With --autonomous, it drives the request to completion via C10's push-
// to-completion loop instead of returning after a single turn.
func chatCmd() *cobra.Command {
	var autonomous bool
	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Send a one-shot message to the user agent",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if autonomous {
				return runChatAutonomous(cmd.Context(), strings.Join(args, " "))
			}
			return runChat(cmd.Context(), strings.Join(args, " "))
		},
	}
	cmd.Flags().BoolVar(&autonomous, "autonomous", false, "drive the request to completion via the push-to-completion loop instead of a single turn")
	return cmd
}

// buildStandaloneUserAgent assembles the one-off C9 user agent both chat
// modes share: a real provider, the local memory store wrapped AccessAll
// per spec.md §4.8 (the user agent sees every session, unlike a session
// agent), and C11's turn processor. Delegation and session status always
// report unavailable since no executor runs alongside a standalone chat
// command.
func buildStandaloneUserAgent(ctx context.Context, cfg *config.Config) (*agent.UserAgent, error) {
	registry := providers.NewRegistry()
	registerProviders(registry, cfg)
	provider, err := registry.Get(cfg.Agents.Provider)
	if err != nil {
		return nil, fmt.Errorf("resolve provider %q: %w (configure its API key first)", cfg.Agents.Provider, err)
	}

	memStore, err := memory.NewLocalStore(filepath.Join(cfg.StatePath(), "memory", "user"))
	if err != nil {
		return nil, fmt.Errorf("open memory store: %w", err)
	}
	accessStore := memory.NewAccessControlledStore(memStore, "user", memory.AccessAll)
	embedder := newEmbedder(cfg)

	autoEvalStore, err := autoeval.NewStore(filepath.Join(cfg.StatePath(), "autoeval"))
	if err != nil {
		return nil, fmt.Errorf("open autoeval store: %w", err)
	}
	turnProcessor := autoeval.NewTurnProcessor(autoEvalStore)

	noDelegate := func(ctx context.Context, sessionID, task, extraContext string) (string, error) {
		return "", fmt.Errorf("no running session %q: start commander with `commander serve` first", sessionID)
	}
	noStatus := func(ctx context.Context, sessionID string) (string, error) {
		return "", fmt.Errorf("no running session %q", sessionID)
	}

	mc := agent.ModelConfig{Provider: provider, Model: cfg.Agents.Model}
	return agent.NewUserAgent("user", mc, accessStore, embedder, noDelegate, noStatus).WithAutoEval(turnProcessor), nil
}

func runChat(ctx context.Context, message string) error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	tracingShutdown, err := tracing.Init(ctx, "commander-chat", cfg.OTLPEndpoint)
	if err == nil {
		defer tracingShutdown(context.Background())
	}

	userAgent, err := buildStandaloneUserAgent(ctx, cfg)
	if err != nil {
		return err
	}

	resp, err := userAgent.Process(ctx, message, agent.NewContext())
	if err != nil {
		return fmt.Errorf("process message: %w", err)
	}
	fmt.Println(resp.Content)
	return nil
}

// runChatAutonomous drives message to completion or a blocker via C10's
// push-to-completion loop (UserAgent.ProcessAutonomous), reporting the
// outcome instead of a single assistant reply.
func runChatAutonomous(ctx context.Context, message string) error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	tracingShutdown, err := tracing.Init(ctx, "commander-chat", cfg.OTLPEndpoint)
	if err == nil {
		defer tracingShutdown(context.Background())
	}

	userAgent, err := buildStandaloneUserAgent(ctx, cfg)
	if err != nil {
		return err
	}

	result, err := userAgent.ProcessAutonomous(ctx, message)
	if err != nil {
		return fmt.Errorf("process autonomous request: %w", err)
	}

	switch result.Kind {
	case completion.DecisionComplete:
		fmt.Printf("done: %s\n", result.Summary)
		for _, g := range result.GoalsAchieved {
			fmt.Printf("  - %s\n", g.Description)
		}
	case completion.DecisionStopForUser:
		fmt.Printf("stopped: %s\n", result.Reason)
		fmt.Println(result.Progress)
		for _, b := range result.Blockers {
			fmt.Printf("  blocked: %s\n", b.Description)
		}
	case completion.DecisionCheckIn:
		fmt.Printf("checking in: %s\n", result.Reason)
		fmt.Println(result.Progress)
	}
	return nil
}

// newEmbedder selects the embedding backend named by cfg.Memory, falling
// back to the dependency-free hash embedder.
func newEmbedder(cfg *config.Config) memory.EmbeddingProvider {
	if cfg.Memory.OpenAIEmbeddings && cfg.Providers.OpenAI.APIKey != "" {
		return memory.NewOpenAIEmbedder(cfg.Providers.OpenAI.APIKey, cfg.Providers.OpenAI.APIBase, "text-embedding-3-small")
	}
	return memory.NewHashEmbedder(cfg.Memory.Dim())
}
