package tmux

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bobmatnyc/ai-commander-sub001/internal/model"
)

type fakeRunner struct {
	calls [][]string
	// responses keyed by the joined args string
	stdout map[string]string
	errs   map[string]error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{stdout: map[string]string{}, errs: map[string]error{}}
}

func (f *fakeRunner) key(args []string) string { return strings.Join(args, " ") }

func (f *fakeRunner) Run(ctx context.Context, args ...string) (string, error) {
	f.calls = append(f.calls, args)
	k := f.key(args)
	if err, ok := f.errs[k]; ok {
		return "", err
	}
	return f.stdout[k], nil
}

func TestParseSessionLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantErr bool
	}{
		{"valid", "my-session:1706000000", false},
		{"no colon", "my-session", true},
		{"bad timestamp", "my:session:1706000000", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSessionLine(tt.line)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseSessionLine(%q) error = %v, wantErr %v", tt.line, err, tt.wantErr)
			}
		})
	}
}

func TestParseSessionLineValues(t *testing.T) {
	s, err := parseSessionLine("cmd-acme:1706000000")
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "cmd-acme" {
		t.Errorf("got name %q", s.Name)
	}
	if s.CreatedAt.Unix() != 1706000000 {
		t.Errorf("got created-at %v", s.CreatedAt)
	}
}

func TestParsePaneLine(t *testing.T) {
	p, err := parsePaneLine("%3:1:1:80:24")
	if err != nil {
		t.Fatal(err)
	}
	if p.ID != "%3" || p.Index != 1 || !p.Active || p.Width != 80 || p.Height != 24 {
		t.Errorf("got %+v", p)
	}

	if _, err := parsePaneLine("%3:1:1:80"); err == nil {
		t.Error("expected error for short pane line")
	}
}

func TestListSessions(t *testing.T) {
	fr := newFakeRunner()
	fr.stdout["list-sessions -F #{session_name}:#{session_created}"] = "cmd-acme:1706000000\ncmd-other:1706000100\n"
	f := NewWithRunner(fr)

	sessions, err := f.ListSessions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 || sessions[0].Name != "cmd-acme" || sessions[1].Name != "cmd-other" {
		t.Errorf("got %+v", sessions)
	}
}

func TestListSessionsNoServer(t *testing.T) {
	fr := newFakeRunner()
	fr.errs["list-sessions -F #{session_name}:#{session_created}"] = errors.New("no server running on /tmp/tmux-0/default")
	f := NewWithRunner(fr)

	sessions, err := f.ListSessions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sessions != nil {
		t.Errorf("expected nil sessions when no server is running, got %+v", sessions)
	}
}

func TestHasSession(t *testing.T) {
	fr := newFakeRunner()
	fr.errs["has-session -t missing"] = errors.New("can't find session: missing")
	f := NewWithRunner(fr)

	ok, err := f.HasSession(context.Background(), "missing")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected HasSession to be false for a missing session")
	}
}

func TestCreateSessionAlreadyExists(t *testing.T) {
	fr := newFakeRunner()
	fr.errs["new-session -d -s cmd-acme -c /tmp claude"] = errors.New("duplicate session: cmd-acme")
	f := NewWithRunner(fr)

	err := f.CreateSession(context.Background(), "cmd-acme", "/tmp", "claude", nil)
	var aee *model.AlreadyExistsError
	if !errors.As(err, &aee) {
		t.Fatalf("expected AlreadyExistsError, got %v", err)
	}
}

func TestDestroySessionMissingIsNotAnError(t *testing.T) {
	fr := newFakeRunner()
	fr.errs["kill-session -t gone"] = errors.New("can't find session: gone")
	f := NewWithRunner(fr)

	if err := f.DestroySession(context.Background(), "gone"); err != nil {
		t.Errorf("destroying an already-gone session should not error, got %v", err)
	}
}

func TestCaptureOutputTrimsToLastN(t *testing.T) {
	fr := newFakeRunner()
	fr.stdout["capture-pane -t cmd-acme -p -S -2"] = "line1\nline2\nline3\n"
	f := NewWithRunner(fr)

	out, err := f.CaptureOutput(context.Background(), "cmd-acme", "", 2)
	if err != nil {
		t.Fatal(err)
	}
	if out != "line2\nline3" {
		t.Errorf("got %q", out)
	}
}

func TestSendLineSessionNotFound(t *testing.T) {
	fr := newFakeRunner()
	fr.errs["send-keys -t gone hello Enter"] = errors.New("can't find session: gone")
	f := NewWithRunner(fr)

	err := f.SendLine(context.Background(), "gone", "", "hello")
	var nfe *model.NotFoundError
	if !errors.As(err, &nfe) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestListPanes(t *testing.T) {
	fr := newFakeRunner()
	fr.stdout["list-panes -t cmd-acme -F #{pane_id}:#{pane_index}:#{pane_active}:#{pane_width}:#{pane_height}"] = "%1:0:1:80:24\n%2:1:0:80:24\n"
	f := NewWithRunner(fr)

	panes, err := f.ListPanes(context.Background(), "cmd-acme")
	if err != nil {
		t.Fatal(err)
	}
	if len(panes) != 2 || !panes[0].Active || panes[1].Active {
		t.Errorf("got %+v", panes)
	}
}

func TestLastLinesShorterThanN(t *testing.T) {
	out := lastLines("a\nb\n", 10)
	if out != "a\nb\n" {
		t.Errorf("got %q", out)
	}
}
