package executor

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/bobmatnyc/ai-commander-sub001/internal/adapters"
	"github.com/bobmatnyc/ai-commander-sub001/internal/changedetect"
	"github.com/bobmatnyc/ai-commander-sub001/internal/model"
	"github.com/bobmatnyc/ai-commander-sub001/internal/poller"
)

// quitSequence is sent on a graceful stop before falling back to a forced
// kill. "exit" covers shells and both assistant REPLs cleanly enough to
// flush any pending write; adapters that need something fancier can be
// given a per-adapter quit sequence later.
const quitSequence = "exit"

// defaultGracePeriod is how long a graceful stop waits for the session to
// exit on its own before destroying it.
const defaultGracePeriod = 2 * time.Second

// Multiplexer is the subset of the terminal-multiplexer facade (C1) the
// executor needs. Satisfied by *tmux.Facade; tests substitute a fake.
type Multiplexer interface {
	HasSession(ctx context.Context, name string) (bool, error)
	CreateSession(ctx context.Context, name, cwd, command string, args []string) error
	DestroySession(ctx context.Context, name string) error
	SendLine(ctx context.Context, name, pane, text string) error
	CaptureOutput(ctx context.Context, name, pane string, lastNLines int) (string, error)
}

type instance struct {
	record   model.SessionRecord
	adapter  adapters.Adapter
	detector *changedetect.Detector
}

// Executor is the session executor (C6): it owns the instance table, drives
// the terminal multiplexer, and is the single broadcaster of runtime
// events. Grounded on internal/sessions/manager.go's RWMutex-guarded map
// and commander-runtime/src/runtime.rs's start/stop/shutdown sequence.
type Executor struct {
	mu        sync.RWMutex
	instances map[string]*instance

	mux         Multiplexer
	registry    *adapters.Registry
	bus         *Bus
	log         *slog.Logger
	gracePeriod time.Duration
}

// New constructs an Executor over the given multiplexer facade and adapter
// registry.
func New(mux Multiplexer, registry *adapters.Registry, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{
		instances:   make(map[string]*instance),
		mux:         mux,
		registry:    registry,
		bus:         NewBus(),
		log:         log,
		gracePeriod: defaultGracePeriod,
	}
}

// Subscribe registers a new runtime-event receiver. Slow subscribers lose
// old events rather than block the executor (see Bus).
func (e *Executor) Subscribe() (id int, ch <-chan RuntimeEvent) {
	return e.bus.Subscribe()
}

// Unsubscribe removes a previously-registered receiver.
func (e *Executor) Unsubscribe(id int) {
	e.bus.Unsubscribe(id)
}

var nonSlugChar = regexp.MustCompile(`[^a-z0-9]+`)

func slug(name string) string {
	s := nonSlugChar.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}

// Start launches a new instance for project under adapterID: derives the
// session name, refuses a session that already exists locally or under
// foreign multiplexer ownership, creates the tmux session, and records a
// running instance in the Starting state. It then attempts one immediate
// capture; a non-empty result promotes the instance to Idle/Working (via
// the adapter's own analysis) and emits InstanceReady.
func (e *Executor) Start(ctx context.Context, project *model.Project, adapterID string) error {
	adapter, err := e.registry.GetOrNotFound(adapterID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	if _, exists := e.instances[project.ID]; exists {
		e.mu.Unlock()
		return &model.AlreadyExistsError{Kind: "instance", ID: project.ID}
	}
	e.mu.Unlock()

	sessionName := model.SessionName(slug(project.Name))

	live, err := e.mux.HasSession(ctx, sessionName)
	if err != nil {
		return err
	}
	if live {
		return &model.AlreadyExistsError{Kind: "session", ID: sessionName}
	}

	cmd, args := adapter.LaunchCommand(project.Path)
	if err := e.mux.CreateSession(ctx, sessionName, project.Path, cmd, args); err != nil {
		return err
	}

	now := time.Now().UTC()
	inst := &instance{
		record: model.SessionRecord{
			SessionName:  sessionName,
			AdapterID:    adapterID,
			ProjectID:    project.ID,
			State:        model.InstanceStarting,
			StartedAt:    now,
			LastActivity: now,
		},
		adapter:  adapter,
		detector: changedetect.New(),
	}

	e.mu.Lock()
	e.instances[project.ID] = inst
	e.mu.Unlock()
	e.bus.Broadcast(RuntimeEvent{Type: EventInstanceStarting, ProjectID: project.ID})

	output, err := e.mux.CaptureOutput(ctx, sessionName, "", 0)
	if err == nil && strings.TrimSpace(output) != "" {
		analysis := adapter.AnalyzeOutput(output)
		e.mu.Lock()
		inst.record.State = model.InstanceState(analysis.State)
		inst.record.LastOutput = output
		inst.record.LastActivity = time.Now().UTC()
		e.mu.Unlock()
		e.bus.Broadcast(RuntimeEvent{Type: EventInstanceReady, ProjectID: project.ID})
	}

	return nil
}

// Stop tears down the instance for projectID. With force, the multiplexer
// session is killed immediately. Otherwise a quit sequence is sent and the
// executor waits up to its grace period for the session to exit on its
// own before falling back to a forced kill.
func (e *Executor) Stop(ctx context.Context, projectID string, force bool) error {
	e.mu.RLock()
	inst, ok := e.instances[projectID]
	e.mu.RUnlock()
	if !ok {
		return &model.NotFoundError{Kind: "instance", ID: projectID}
	}
	sessionName := inst.record.SessionName

	if !force {
		_ = e.mux.SendLine(ctx, sessionName, "", quitSequence)
		if e.gracePeriod > 0 {
			select {
			case <-time.After(e.gracePeriod):
			case <-ctx.Done():
			}
		}
		live, err := e.mux.HasSession(ctx, sessionName)
		if err != nil {
			return err
		}
		if live {
			if err := e.mux.DestroySession(ctx, sessionName); err != nil {
				return err
			}
		}
	} else {
		if err := e.mux.DestroySession(ctx, sessionName); err != nil {
			return err
		}
	}

	e.mu.Lock()
	delete(e.instances, projectID)
	e.mu.Unlock()
	e.bus.Broadcast(RuntimeEvent{Type: EventInstanceStopped, ProjectID: projectID})
	return nil
}

// Send writes text to the instance's session without waiting for a
// response.
func (e *Executor) Send(ctx context.Context, projectID, text string) error {
	e.mu.RLock()
	inst, ok := e.instances[projectID]
	e.mu.RUnlock()
	if !ok {
		return &model.NotFoundError{Kind: "instance", ID: projectID}
	}
	return e.mux.SendLine(ctx, inst.record.SessionName, "", text)
}

// HasInstance reports whether projectID has a tracked running instance.
func (e *Executor) HasInstance(projectID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.instances[projectID]
	return ok
}

// SessionName returns the multiplexer session name for a tracked instance,
// letting callers format user-facing messages without re-deriving slug.
func (e *Executor) SessionName(projectID string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	inst, ok := e.instances[projectID]
	if !ok {
		return "", false
	}
	return inst.record.SessionName, true
}

// ListInstances returns the project ids of every tracked instance.
func (e *Executor) ListInstances() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.instances))
	for id := range e.instances {
		ids = append(ids, id)
	}
	return ids
}

// InstanceCount returns the number of tracked instances.
func (e *Executor) InstanceCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.instances)
}

// Instances returns a point-in-time snapshot for the poller (C5). It
// satisfies poller.Executor.
func (e *Executor) Instances() map[string]poller.InstanceView {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]poller.InstanceView, len(e.instances))
	for id, inst := range e.instances {
		out[id] = poller.InstanceView{
			SessionName: inst.record.SessionName,
			Adapter:     inst.adapter,
			Detector:    inst.detector,
			State:       adapters.AnalysisState(inst.record.State),
		}
	}
	return out
}

// ApplyStateTransition updates an instance's state after the poller's
// read-lock window has closed, and broadcasts StateChanged.
func (e *Executor) ApplyStateTransition(projectID string, newState adapters.AnalysisState) {
	e.mu.Lock()
	inst, ok := e.instances[projectID]
	if !ok {
		e.mu.Unlock()
		return
	}
	oldState := inst.record.State
	inst.record.State = model.InstanceState(newState)
	inst.record.LastActivity = time.Now().UTC()
	e.mu.Unlock()

	evType := EventStateChanged
	if newState == adapters.AnalysisError {
		evType = EventInstanceError
	}
	e.bus.Broadcast(RuntimeEvent{
		Type:      evType,
		ProjectID: projectID,
		OldState:  string(oldState),
		NewState:  string(newState),
	})
}

// PublishOutputReceived records the latest capture and broadcasts
// OutputReceived. Satisfies poller.Executor.
func (e *Executor) PublishOutputReceived(projectID, output string) {
	e.mu.Lock()
	if inst, ok := e.instances[projectID]; ok {
		inst.record.LastOutput = output
		inst.record.LastActivity = time.Now().UTC()
	}
	e.mu.Unlock()
	e.bus.Broadcast(RuntimeEvent{Type: EventOutputReceived, ProjectID: projectID, Output: output})
}

// Shutdown stops every tracked instance, best-effort, and is called once
// on process exit. Unlike Stop it does not fail fast: it keeps going after
// an individual instance's teardown errors so one bad session cannot
// prevent the rest from draining.
func (e *Executor) Shutdown(ctx context.Context) {
	for _, id := range e.ListInstances() {
		if err := e.Stop(ctx, id, true); err != nil {
			e.log.Warn("executor: error stopping instance during shutdown", "project_id", id, "error", err)
		}
	}
}
