package executor

import (
	"context"
	"testing"
	"time"

	"github.com/bobmatnyc/ai-commander-sub001/internal/adapters"
	"github.com/bobmatnyc/ai-commander-sub001/internal/model"
)

type fakeMux struct {
	sessions map[string]bool
	capture  string
	captureErr error
	destroyed []string
	sentLines []string
}

func newFakeMux() *fakeMux {
	return &fakeMux{sessions: make(map[string]bool)}
}

func (f *fakeMux) HasSession(ctx context.Context, name string) (bool, error) {
	return f.sessions[name], nil
}

func (f *fakeMux) CreateSession(ctx context.Context, name, cwd, command string, args []string) error {
	if f.sessions[name] {
		return &model.AlreadyExistsError{Kind: "session", ID: name}
	}
	f.sessions[name] = true
	return nil
}

func (f *fakeMux) DestroySession(ctx context.Context, name string) error {
	delete(f.sessions, name)
	f.destroyed = append(f.destroyed, name)
	return nil
}

func (f *fakeMux) SendLine(ctx context.Context, name, pane, text string) error {
	f.sentLines = append(f.sentLines, text)
	return nil
}

func (f *fakeMux) CaptureOutput(ctx context.Context, name, pane string, lastNLines int) (string, error) {
	return f.capture, f.captureErr
}

func testExecutor(mux *fakeMux) *Executor {
	e := New(mux, adapters.New(), nil)
	e.gracePeriod = 0
	return e
}

func TestStartCreatesInstanceAndEmitsEvents(t *testing.T) {
	mux := newFakeMux()
	mux.capture = "Ready for input"
	e := testExecutor(mux)
	id, ch := e.Subscribe()
	defer e.Unsubscribe(id)

	proj := model.NewProject("Acme Widgets", "/tmp/acme")
	if err := e.Start(context.Background(), proj, "claude-code"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if !e.HasInstance(proj.ID) {
		t.Fatal("expected instance to be tracked after Start")
	}
	if !mux.sessions["cmd-acme-widgets"] {
		t.Fatal("expected tmux session cmd-acme-widgets to be created")
	}

	var gotStarting, gotReady bool
	for i := 0; i < 2; i++ {
		select {
		case ev := <-ch:
			if ev.Type == EventInstanceStarting {
				gotStarting = true
			}
			if ev.Type == EventInstanceReady {
				gotReady = true
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for events")
		}
	}
	if !gotStarting || !gotReady {
		t.Fatalf("expected both InstanceStarting and InstanceReady, got starting=%v ready=%v", gotStarting, gotReady)
	}
}

func TestStartDuplicateFails(t *testing.T) {
	mux := newFakeMux()
	e := testExecutor(mux)
	proj := model.NewProject("dup", "/tmp/dup")
	if err := e.Start(context.Background(), proj, "claude-code"); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	err := e.Start(context.Background(), proj, "claude-code")
	if err == nil {
		t.Fatal("expected second Start for the same project to fail")
	}
	if _, ok := err.(*model.AlreadyExistsError); !ok {
		t.Fatalf("expected *model.AlreadyExistsError, got %T: %v", err, err)
	}
}

func TestStartUnknownAdapterFails(t *testing.T) {
	e := testExecutor(newFakeMux())
	proj := model.NewProject("x", "/tmp/x")
	err := e.Start(context.Background(), proj, "nonexistent")
	if err == nil {
		t.Fatal("expected error for unknown adapter")
	}
}

func TestStopForceDestroysAndForgetsInstance(t *testing.T) {
	mux := newFakeMux()
	e := testExecutor(mux)
	proj := model.NewProject("stopme", "/tmp/stopme")
	if err := e.Start(context.Background(), proj, "shell"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := e.Stop(context.Background(), proj.ID, true); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if e.HasInstance(proj.ID) {
		t.Fatal("expected instance to be forgotten after Stop")
	}
	if len(mux.destroyed) != 1 || mux.destroyed[0] != "cmd-stopme" {
		t.Fatalf("expected session cmd-stopme to be destroyed, got %v", mux.destroyed)
	}
}

func TestStopUnknownProjectFails(t *testing.T) {
	e := testExecutor(newFakeMux())
	err := e.Stop(context.Background(), "nonexistent", true)
	if _, ok := err.(*model.NotFoundError); !ok {
		t.Fatalf("expected *model.NotFoundError, got %T: %v", err, err)
	}
}

func TestStopGracefulSendsQuitSequence(t *testing.T) {
	mux := newFakeMux()
	e := testExecutor(mux)
	proj := model.NewProject("graceful", "/tmp/graceful")
	if err := e.Start(context.Background(), proj, "shell"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := e.Stop(context.Background(), proj.ID, false); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	found := false
	for _, line := range mux.sentLines {
		if line == quitSequence {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected quit sequence to be sent, got %v", mux.sentLines)
	}
}

func TestSendUnknownProjectFails(t *testing.T) {
	e := testExecutor(newFakeMux())
	err := e.Send(context.Background(), "nonexistent", "hello")
	if _, ok := err.(*model.NotFoundError); !ok {
		t.Fatalf("expected *model.NotFoundError, got %T: %v", err, err)
	}
}

func TestApplyStateTransitionBroadcastsStateChanged(t *testing.T) {
	mux := newFakeMux()
	e := testExecutor(mux)
	proj := model.NewProject("states", "/tmp/states")
	if err := e.Start(context.Background(), proj, "claude-code"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	id, ch := e.Subscribe()
	defer e.Unsubscribe(id)

	e.ApplyStateTransition(proj.ID, adapters.AnalysisIdle)

	select {
	case ev := <-ch:
		if ev.Type != EventStateChanged || ev.NewState != string(adapters.AnalysisIdle) {
			t.Fatalf("expected StateChanged to idle, got %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for StateChanged event")
	}
}

func TestApplyStateTransitionToErrorEmitsInstanceError(t *testing.T) {
	mux := newFakeMux()
	e := testExecutor(mux)
	proj := model.NewProject("erroring", "/tmp/erroring")
	if err := e.Start(context.Background(), proj, "claude-code"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	id, ch := e.Subscribe()
	defer e.Unsubscribe(id)

	e.ApplyStateTransition(proj.ID, adapters.AnalysisError)

	select {
	case ev := <-ch:
		if ev.Type != EventInstanceError {
			t.Fatalf("expected InstanceError, got %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for InstanceError event")
	}
}

func TestInstancesSnapshotSatisfiesPollerContract(t *testing.T) {
	mux := newFakeMux()
	e := testExecutor(mux)
	proj := model.NewProject("snap", "/tmp/snap")
	if err := e.Start(context.Background(), proj, "mpm"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	snap := e.Instances()
	view, ok := snap[proj.ID]
	if !ok {
		t.Fatal("expected snapshot to contain the started instance")
	}
	if view.SessionName != "cmd-snap" {
		t.Fatalf("expected session name cmd-snap, got %q", view.SessionName)
	}
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Acme Widgets": "acme-widgets",
		"  Trim Me  ":  "trim-me",
		"already-slug": "already-slug",
	}
	for in, want := range cases {
		if got := slug(in); got != want {
			t.Errorf("slug(%q) = %q, want %q", in, got, want)
		}
	}
}
