package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/bobmatnyc/ai-commander-sub001/internal/adapters"
	"github.com/bobmatnyc/ai-commander-sub001/internal/changedetect"
	"github.com/bobmatnyc/ai-commander-sub001/internal/model"
)

// captureLastNLines is how many trailing lines each tick captures per
// instance, per spec.md §4.5.
const captureLastNLines = 50

// Instance is the minimal view of a tracked instance the poller needs. The
// session executor (C6) implements the accessor interface below; the
// poller never imports the executor package directly, mirroring the
// teacher's injected-callback pattern for breaking a would-be import
// cycle (internal/tools/delegate.go's AgentRunFunc).
type Instance struct {
	ProjectID string
	Adapter   adapters.Adapter
	Detector  *changedetect.Detector
}

// Capturer captures the last N lines of a session's scrollback. Satisfied
// by *tmux.Facade.
type Capturer interface {
	CaptureOutput(ctx context.Context, sessionName, pane string, lastNLines int) (string, error)
}

// Executor is the subset of the session executor's contract the poller
// needs: enumerate instances (with their session names), and apply
// proposed state transitions.
type Executor interface {
	// Instances returns a snapshot of (instance, sessionName) pairs. The
	// poller holds this snapshot only for the duration of one tick; it
	// never retains it across ticks.
	Instances() map[string]InstanceView
	// ApplyStateTransition is called once per proposed change, after the
	// read-lock used to build the snapshot has been released.
	ApplyStateTransition(projectID string, newState adapters.AnalysisState)
	// PublishOutputReceived broadcasts the OutputReceived runtime event.
	PublishOutputReceived(projectID, output string)
}

// InstanceView is the read-only snapshot of one instance the poller
// inspects during a tick.
type InstanceView struct {
	SessionName string
	Adapter     adapters.Adapter
	Detector    *changedetect.Detector
	State       adapters.AnalysisState
}

// Loop runs the adaptive poller: a single cooperative task that scans
// every live instance at SmartPoller's current interval, diffs each
// capture, and proposes state transitions via a two-phase locking
// sequence (buffer while reading, apply after releasing).
type Loop struct {
	capture  Capturer
	executor Executor
	sp       *SmartPoller
	log      *slog.Logger

	shutdown chan struct{}
}

// NewLoop constructs a poller Loop over the given capturer and executor.
func NewLoop(capture Capturer, executor Executor, log *slog.Logger) *Loop {
	if log == nil {
		log = slog.Default()
	}
	return &Loop{
		capture:  capture,
		executor: executor,
		sp:       Default(),
		log:      log,
		shutdown: make(chan struct{}),
	}
}

// Shutdown signals the loop to exit after finishing its current tick. No
// long-running operation is performed while holding a lock, so this never
// blocks waiting on in-flight captures for long.
func (l *Loop) Shutdown() {
	select {
	case <-l.shutdown:
	default:
		close(l.shutdown)
	}
}

// Run scans instances on SmartPoller's adaptive interval until Shutdown is
// called or ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	timer := time.NewTimer(l.sp.Interval())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.shutdown:
			return
		case <-timer.C:
			l.tick(ctx)
			timer.Reset(l.sp.Interval())
		}
	}
}

// tick implements the per-tick algorithm from spec.md §4.5: capture each
// instance, diff, buffer proposed transitions while "holding the read
// lock" (here: while iterating the snapshot), then apply them afterward.
func (l *Loop) tick(ctx context.Context) {
	snapshot := l.executor.Instances()

	type transition struct {
		projectID string
		state     adapters.AnalysisState
	}
	var pending []transition
	worst := model.NoneEvent()

	for projectID, inst := range snapshot {
		output, err := l.capture.CaptureOutput(ctx, inst.SessionName, "", captureLastNLines)
		if err != nil {
			l.log.Warn("poller: capture failed, skipping instance this tick", "project_id", projectID, "error", err)
			continue
		}

		change := inst.Detector.Detect(output)
		if change.Significance > worst.Significance {
			worst = change
		}
		if change.Significance == model.SignificanceIgnore {
			continue
		}

		l.executor.PublishOutputReceived(projectID, output)

		analysis := inst.Adapter.AnalyzeOutput(output)
		if analysis.State != inst.State {
			pending = append(pending, transition{projectID: projectID, state: analysis.State})
		}
	}

	// Apply queued transitions after the conceptual read lock is released.
	for _, t := range pending {
		l.executor.ApplyStateTransition(t.projectID, t.state)
	}

	l.sp.NextInterval(worst)
}
