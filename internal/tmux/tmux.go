// Package tmux is the terminal-multiplexer facade (C1): a thin, blocking,
// synchronous layer over the tmux CLI that the rest of the system may call
// freely. Every operation fails with a typed error when the underlying
// client returns non-zero; the facade distinguishes "session does not
// exist" from generic failures. Output capture is best-effort lossy: it
// returns whatever tmux prints, including escape sequences and box-drawing
// glyphs — cleaning that up is the change detector's job (C4).
//
// Grounded on commander-tmux/src/session.rs (Session/Pane line-format
// parsing) from the original Rust implementation, and on the teacher's
// convention of shelling out via os/exec with explicit, typed error
// wrapping (internal/tools/shell.go).
package tmux

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/bobmatnyc/ai-commander-sub001/internal/model"
)

// Session describes one tmux session as reported by list-sessions.
type Session struct {
	Name      string
	CreatedAt time.Time
}

// Pane describes one pane within a tmux session as reported by
// list-panes.
type Pane struct {
	ID     string
	Index  uint32
	Active bool
	Width  uint32
	Height uint32
}

// Runner abstracts process execution so tests can substitute a fake tmux
// binary without shelling out. The default implementation (Exec) invokes
// the real tmux CLI.
type Runner interface {
	Run(ctx context.Context, args ...string) (stdout string, err error)
}

// Exec runs tmux via os/exec. It is the production Runner.
type Exec struct {
	Bin string // defaults to "tmux" if empty
}

func (e Exec) Run(ctx context.Context, args ...string) (string, error) {
	bin := e.Bin
	if bin == "" {
		bin = "tmux"
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s %s: %w: %s", bin, strings.Join(args, " "), err, errBuf.String())
	}
	return out.String(), nil
}

// Facade is the C1 terminal-multiplexer wrapper.
type Facade struct {
	run Runner
}

// New constructs a Facade backed by the real tmux binary.
func New() *Facade {
	return &Facade{run: Exec{}}
}

// NewWithRunner constructs a Facade backed by an arbitrary Runner, for
// tests.
func NewWithRunner(r Runner) *Facade {
	return &Facade{run: r}
}

const sessionListFormat = "#{session_name}:#{session_created}"

// ListSessions returns every live tmux session, oldest-created first is not
// guaranteed — callers sort if order matters.
func (f *Facade) ListSessions(ctx context.Context) ([]Session, error) {
	out, err := f.run.Run(ctx, "list-sessions", "-F", sessionListFormat)
	if err != nil {
		if noServerRunning(err) {
			return nil, nil
		}
		return nil, &model.MultiplexerError{Cause: err}
	}
	var sessions []Session
	for _, line := range splitNonEmptyLines(out) {
		s, perr := parseSessionLine(line)
		if perr != nil {
			return nil, &model.MultiplexerError{Cause: perr}
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

func parseSessionLine(line string) (Session, error) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return Session{}, fmt.Errorf("malformed session line: %q", line)
	}
	name := line[:idx]
	tsPart := line[idx+1:]
	secs, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return Session{}, fmt.Errorf("malformed session timestamp in %q: %w", line, err)
	}
	return Session{Name: name, CreatedAt: time.Unix(secs, 0).UTC()}, nil
}

// HasSession reports whether name is a currently live tmux session.
func (f *Facade) HasSession(ctx context.Context, name string) (bool, error) {
	_, err := f.run.Run(ctx, "has-session", "-t", name)
	if err != nil {
		if sessionNotFound(err) {
			return false, nil
		}
		return false, &model.MultiplexerError{Cause: err}
	}
	return true, nil
}

// CreateSession starts a new detached tmux session named name, running
// command with args inside cwd.
func (f *Facade) CreateSession(ctx context.Context, name, cwd, command string, args []string) error {
	cmdArgs := []string{"new-session", "-d", "-s", name, "-c", cwd, command}
	cmdArgs = append(cmdArgs, args...)
	_, err := f.run.Run(ctx, cmdArgs...)
	if err != nil {
		if sessionExists(err) {
			return &model.AlreadyExistsError{Kind: "session", ID: name}
		}
		return &model.MultiplexerError{Cause: err}
	}
	return nil
}

// DestroySession kills the named session. It is not an error if the
// session is already gone.
func (f *Facade) DestroySession(ctx context.Context, name string) error {
	_, err := f.run.Run(ctx, "kill-session", "-t", name)
	if err != nil && !sessionNotFound(err) {
		return &model.MultiplexerError{Cause: err}
	}
	return nil
}

// SendLine sends text followed by Enter to the named session's pane (or
// the active pane if pane is empty). It does not block waiting for a
// response.
func (f *Facade) SendLine(ctx context.Context, name, pane, text string) error {
	target := name
	if pane != "" {
		target = name + "." + pane
	}
	_, err := f.run.Run(ctx, "send-keys", "-t", target, text, "Enter")
	if err != nil {
		if sessionNotFound(err) {
			return &model.NotFoundError{Kind: "session", ID: name}
		}
		return &model.MultiplexerError{Cause: err}
	}
	return nil
}

// CaptureOutput returns the scrollback of the named session's pane (or the
// active pane if pane is empty). If lastNLines > 0, only the trailing
// lastNLines lines are returned. Capture is best-effort lossy: escape
// sequences and box-drawing glyphs are passed through unmodified.
func (f *Facade) CaptureOutput(ctx context.Context, name, pane string, lastNLines int) (string, error) {
	target := name
	if pane != "" {
		target = name + "." + pane
	}
	args := []string{"capture-pane", "-t", target, "-p"}
	if lastNLines > 0 {
		args = append(args, "-S", "-"+strconv.Itoa(lastNLines))
	}
	out, err := f.run.Run(ctx, args...)
	if err != nil {
		if sessionNotFound(err) {
			return "", &model.NotFoundError{Kind: "session", ID: name}
		}
		return "", &model.MultiplexerError{Cause: err}
	}
	if lastNLines > 0 {
		out = lastLines(out, lastNLines)
	}
	return out, nil
}

const paneListFormat = "#{pane_id}:#{pane_index}:#{pane_active}:#{pane_width}:#{pane_height}"

// ListPanes returns every pane of the named session.
func (f *Facade) ListPanes(ctx context.Context, name string) ([]Pane, error) {
	out, err := f.run.Run(ctx, "list-panes", "-t", name, "-F", paneListFormat)
	if err != nil {
		if sessionNotFound(err) {
			return nil, &model.NotFoundError{Kind: "session", ID: name}
		}
		return nil, &model.MultiplexerError{Cause: err}
	}
	var panes []Pane
	for _, line := range splitNonEmptyLines(out) {
		p, perr := parsePaneLine(line)
		if perr != nil {
			return nil, &model.MultiplexerError{Cause: perr}
		}
		panes = append(panes, p)
	}
	return panes, nil
}

func parsePaneLine(line string) (Pane, error) {
	fields := strings.Split(line, ":")
	if len(fields) != 5 {
		return Pane{}, fmt.Errorf("malformed pane line: %q", line)
	}
	idx, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return Pane{}, fmt.Errorf("malformed pane index in %q: %w", line, err)
	}
	width, err := strconv.ParseUint(fields[3], 10, 32)
	if err != nil {
		return Pane{}, fmt.Errorf("malformed pane width in %q: %w", line, err)
	}
	height, err := strconv.ParseUint(fields[4], 10, 32)
	if err != nil {
		return Pane{}, fmt.Errorf("malformed pane height in %q: %w", line, err)
	}
	return Pane{
		ID:     fields[0],
		Index:  uint32(idx),
		Active: fields[2] == "1",
		Width:  uint32(width),
		Height: uint32(height),
	}, nil
}

func splitNonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}

func sessionNotFound(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "can't find session") || strings.Contains(msg, "no such session")
}

func sessionExists(err error) bool {
	return strings.Contains(err.Error(), "duplicate session")
}

func noServerRunning(err error) bool {
	return strings.Contains(err.Error(), "no server running") || strings.Contains(err.Error(), "No such file or directory")
}
