package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bobmatnyc/ai-commander-sub001/internal/adapters"
	"github.com/bobmatnyc/ai-commander-sub001/internal/agent"
	"github.com/bobmatnyc/ai-commander-sub001/internal/autoeval"
	"github.com/bobmatnyc/ai-commander-sub001/internal/botversion"
	"github.com/bobmatnyc/ai-commander-sub001/internal/config"
	"github.com/bobmatnyc/ai-commander-sub001/internal/executor"
	"github.com/bobmatnyc/ai-commander-sub001/internal/logging"
	"github.com/bobmatnyc/ai-commander-sub001/internal/memory"
	"github.com/bobmatnyc/ai-commander-sub001/internal/notify"
	"github.com/bobmatnyc/ai-commander-sub001/internal/notify/discordchannel"
	"github.com/bobmatnyc/ai-commander-sub001/internal/notify/telegramchannel"
	"github.com/bobmatnyc/ai-commander-sub001/internal/poller"
	"github.com/bobmatnyc/ai-commander-sub001/internal/providers"
	"github.com/bobmatnyc/ai-commander-sub001/internal/store"
	"github.com/bobmatnyc/ai-commander-sub001/internal/tmux"
	"github.com/bobmatnyc/ai-commander-sub001/internal/tracing"
)

// sessionSupervisor holds every live SessionAgent (C9) plus its
// conversation Context, keyed by project id, so the executor's event
// stream can drive ProcessOutputChange for the right session.
type sessionSupervisor struct {
	mu       sync.RWMutex
	sessions map[string]*supervisedSession
}

type supervisedSession struct {
	agent *agent.SessionAgent
	ctx   *agent.Context
}

func newSessionSupervisor() *sessionSupervisor {
	return &sessionSupervisor{sessions: make(map[string]*supervisedSession)}
}

func (s *sessionSupervisor) put(projectID string, sess *supervisedSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[projectID] = sess
}

func (s *sessionSupervisor) get(projectID string) (*supervisedSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[projectID]
	return sess, ok
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the poller and executor loop, watching every tracked project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

// runServe wires the C1/C3/C5/C6/C7/C12/C13 components together and
// blocks until interrupted. Every running project is resumed from its
// last saved state; the poller then takes over scanning them.
func runServe(ctx context.Context) error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	log := logging.New(cfg.LogLevel)
	slog.SetDefault(log)

	tracingShutdown, err := tracing.Init(ctx, "commander", cfg.OTLPEndpoint)
	if err != nil {
		log.Warn("failed to initialize tracing, continuing without spans", "error", err)
		tracingShutdown = func(context.Context) error { return nil }
	}
	defer tracingShutdown(context.Background())

	stateRoot := cfg.StatePath()
	projectStore := store.NewStateStore(filepath.Join(stateRoot, "projects"))

	notifyQueue, err := notify.NewQueue(filepath.Join(stateRoot, "notify"))
	if err != nil {
		return fmt.Errorf("open notification queue: %w", err)
	}
	pairings, err := notify.NewPairingStore(filepath.Join(stateRoot, "notify"))
	if err != nil {
		return fmt.Errorf("open pairing store: %w", err)
	}

	var notifyChannels []notify.Channel
	if cfg.Channels.Telegram.Enabled {
		ch, err := telegramchannel.New(cfg.Channels.Telegram, notifyQueue, pairings)
		if err != nil {
			log.Warn("failed to create telegram channel", "error", err)
		} else {
			notifyChannels = append(notifyChannels, ch)
		}
	}
	if cfg.Channels.Discord.Enabled {
		ch, err := discordchannel.New(cfg.Channels.Discord, notifyQueue, pairings)
		if err != nil {
			log.Warn("failed to create discord channel", "error", err)
		} else {
			notifyChannels = append(notifyChannels, ch)
		}
	}

	versionTracker, err := botversion.NewTracker(stateRoot)
	if err != nil {
		return fmt.Errorf("open bot version tracker: %w", err)
	}
	isRebuild, isFirstStart, startCount, err := versionTracker.CheckStart()
	if err != nil {
		return fmt.Errorf("check start: %w", err)
	}
	log.Info("starting", "start_count", startCount, "is_rebuild", isRebuild, "is_first_start", isFirstStart)

	mux := tmux.New()
	registry := adapters.New()
	exec := executor.New(mux, registry, log)
	loop := poller.NewLoop(mux, exec, log)

	// Shared session-agent plumbing (C9): one memory store scoped Own per
	// session, one auto-eval turn processor shared across every agent, and
	// the template registry that resolves each session's system prompt by
	// adapter type.
	providerRegistry := providers.NewRegistry()
	registerProviders(providerRegistry, cfg)
	sessionProvider, err := providerRegistry.Get(cfg.Agents.Provider)
	if err != nil {
		log.Warn("failed to resolve session-agent provider, session agents will not analyze output", "error", err)
	}
	sessionMemStore, err := memory.NewLocalStore(filepath.Join(stateRoot, "memory", "sessions"))
	if err != nil {
		return fmt.Errorf("open session memory store: %w", err)
	}
	sessionEmbedder := newEmbedder(cfg)
	autoEvalStore, err := autoeval.NewStore(filepath.Join(stateRoot, "autoeval"))
	if err != nil {
		return fmt.Errorf("open autoeval store: %w", err)
	}
	turnProcessor := autoeval.NewTurnProcessor(autoEvalStore)
	templates := agent.NewTemplateRegistry()
	supervisor := newSessionSupervisor()

	startSession := func(projectID, sessionID, adapterID string) {
		if sessionProvider == nil {
			return
		}
		tmpl, ok := templates.Get(adapterID)
		if !ok {
			log.Warn("no session-agent template for adapter, skipping session agent", "adapter", adapterID)
			return
		}
		modelName := cfg.Agents.Model
		if tmpl.ModelOverride != "" {
			modelName = tmpl.ModelOverride
		}
		mc := agent.ModelConfig{Provider: sessionProvider, Model: modelName}
		// session agents are wired with Own, unlike the user agent's
		// AccessAll — see memory.AccessControlledStore.
		scopedStore := memory.NewAccessControlledStore(sessionMemStore, sessionID, memory.AccessOwn)
		sa := agent.NewSessionAgent(sessionID, sessionID, tmpl, mc, scopedStore, sessionEmbedder).WithAutoEval(turnProcessor)
		supervisor.put(projectID, &supervisedSession{agent: sa, ctx: agent.NewContext()})
	}

	projects, err := projectStore.ListAllProjects(func(id string, err error) {
		log.Warn("skipping unreadable project", "id", id, "error", err)
	})
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}
	for _, p := range projects {
		adapterID := "claude-code"
		for aid := range p.SessionBindings {
			adapterID = aid
			break
		}
		if err := exec.Start(ctx, p, adapterID); err != nil {
			log.Warn("failed to resume project", "project", p.Name, "error", err)
			continue
		}
		log.Info("resumed project", "project", p.Name, "adapter", adapterID)
		startSession(p.ID, p.ID, adapterID)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	restarter := botversion.NewHotRestarter(func() {
		log.Info("hot restart requested, re-executing")
	})
	done := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go loop.Run(runCtx)
	go func() {
		if err := restarter.Watch(done); err != nil {
			log.Warn("hot restart failed", "error", err)
		}
	}()

	subID, events := exec.Subscribe()
	defer exec.Unsubscribe(subID)
	go watchRuntimeEvents(runCtx, exec, supervisor, notifyQueue, events, log)

	for _, ch := range notifyChannels {
		if err := ch.Start(runCtx); err != nil {
			log.Warn("failed to start notification channel", "channel", ch.Name(), "error", err)
		}
	}

	tsCfg := cfg.Tailscale
	if tsCfg.StateDir == "" {
		tsCfg.StateDir = cfg.TsnetStatePath()
	}
	tsCleanup, err := startTailscaleListener(runCtx, tsCfg, notifyQueue)
	if err != nil {
		log.Warn("failed to start tailscale listener", "error", err)
	} else if tsCleanup != nil {
		defer tsCleanup()
	}

	if _, err := notifyQueue.Push(runCtx, "commander started", ""); err != nil {
		log.Warn("failed to push startup notification", "error", err)
	}

	select {
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	close(done)
	for _, ch := range notifyChannels {
		if err := ch.Stop(runCtx); err != nil {
			log.Warn("failed to stop notification channel", "channel", ch.Name(), "error", err)
		}
	}
	loop.Shutdown()
	exec.Shutdown(runCtx)
	return nil
}

// watchRuntimeEvents drains the executor's runtime-event bus for the life
// of runCtx and turns transitions into cross-channel notifications
// (spec.md §1's "surfaces transitions as notifications across channels"):
// a session becoming ready or erroring pushes a formatted message
// directly, while meaningful output drives the project's SessionAgent
// through ProcessOutputChange (C9/§4.9) and only notifies when that
// analysis says the user should be told.
func watchRuntimeEvents(runCtx context.Context, exec *executor.Executor, supervisor *sessionSupervisor, notifyQueue *notify.Queue, events <-chan executor.RuntimeEvent, log *slog.Logger) {
	for {
		select {
		case <-runCtx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			handleRuntimeEvent(runCtx, exec, supervisor, notifyQueue, ev, log)
		}
	}
}

func handleRuntimeEvent(runCtx context.Context, exec *executor.Executor, supervisor *sessionSupervisor, notifyQueue *notify.Queue, ev executor.RuntimeEvent, log *slog.Logger) {
	sessionName, ok := exec.SessionName(ev.ProjectID)
	if !ok {
		sessionName = ev.ProjectID
	}

	switch ev.Type {
	case executor.EventInstanceReady:
		if _, err := notifyQueue.Push(runCtx, notify.SessionReadyMessage(sessionName, ""), sessionName); err != nil {
			log.Warn("failed to push instance-ready notification", "project_id", ev.ProjectID, "error", err)
		}

	case executor.EventInstanceError:
		msg := fmt.Sprintf("Session %q hit an error", sessionName)
		if _, err := notifyQueue.Push(runCtx, msg, sessionName); err != nil {
			log.Warn("failed to push instance-error notification", "project_id", ev.ProjectID, "error", err)
		}

	case executor.EventStateChanged:
		if ev.NewState != string(adapters.AnalysisIdle) || ev.OldState == string(adapters.AnalysisIdle) {
			return
		}
		if _, err := notifyQueue.Push(runCtx, notify.SessionReadyMessage(sessionName, ""), sessionName); err != nil {
			log.Warn("failed to push state-changed notification", "project_id", ev.ProjectID, "error", err)
		}

	case executor.EventOutputReceived:
		sess, ok := supervisor.get(ev.ProjectID)
		if !ok {
			return
		}
		notification, err := sess.agent.ProcessOutputChange(runCtx, sess.ctx, ev.Output)
		if err != nil {
			log.Warn("session agent failed to process output change", "project_id", ev.ProjectID, "error", err)
			return
		}
		if notification == nil {
			return
		}
		if _, err := notifyQueue.Push(runCtx, notify.SessionReadyMessage(sessionName, notification.Summary), sessionName); err != nil {
			log.Warn("failed to push output-change notification", "project_id", ev.ProjectID, "error", err)
		}
	}
}
