// Package adapters is the adapter registry (C3): a polymorphic set of
// assistant personalities, each carrying a launch command, pattern sets,
// and output-analysis logic, looked up by a shared, thread-safe registry.
//
// Grounded on commander-adapters/src/registry.rs (alias resolution,
// registry shape) and commander-adapters/src/traits.rs (the
// RuntimeAdapter capability set) from the original Rust implementation.
package adapters

import (
	"strings"
	"sync"

	"github.com/bobmatnyc/ai-commander-sub001/internal/model"
	"github.com/bobmatnyc/ai-commander-sub001/internal/patterns"
)

// Info is the static description of an adapter family.
type Info struct {
	ID          string
	Name        string
	Description string
	LaunchCmd   string
	DefaultArgs []string
}

// AnalysisState is the lifecycle state an adapter infers from raw output.
type AnalysisState string

const (
	AnalysisIdle     AnalysisState = "idle"
	AnalysisWorking  AnalysisState = "working"
	AnalysisError    AnalysisState = "error"
	AnalysisStarting AnalysisState = "starting"
	AnalysisStopped  AnalysisState = "stopped"
)

// Analysis is the result of Adapter.AnalyzeOutput.
type Analysis struct {
	State       AnalysisState
	Confidence  float64
	ErrorLines  []string
	Data        map[string]any
}

// Adapter is the capability set every assistant personality implements:
// info, launch command construction, output analysis, and raw pattern
// access.
type Adapter interface {
	Info() Info
	LaunchCommand(projectPath string) (command string, args []string)
	AnalyzeOutput(output string) Analysis
	IdlePatterns() []patterns.Pattern
	ErrorPatterns() []patterns.Pattern
	IsIdle(line string) bool
	IsError(line string) bool
}

// lastNLinesDefault is how many trailing lines AnalyzeOutput considers by
// default, per spec.md §4.3.
const lastNLinesDefault = 10

// analyzeWithPatterns implements the shared analyze_output algorithm every
// built-in adapter uses: consider only the last N lines; error patterns win
// over idle, idle over working; if nothing matches but the text is
// non-empty, default to Working; if the text is empty, default to
// Starting. Confidence is the best matching pattern's confidence when
// Idle, otherwise a constant per class.
func analyzeWithPatterns(output string, idle, working, errP []patterns.Pattern) Analysis {
	lines := lastNLines(output, lastNLinesDefault)
	text := strings.Join(lines, "\n")

	if strings.TrimSpace(text) == "" {
		return Analysis{State: AnalysisStarting, Confidence: 0.5}
	}

	if best, ok := patterns.BestMatch(text, errP); ok {
		return Analysis{
			State:      AnalysisError,
			Confidence: 0.9,
			ErrorLines: matchingLines(lines, errP),
			Data:       map[string]any{"pattern": best.Name},
		}
	}
	if best, ok := patterns.BestMatch(text, idle); ok {
		return Analysis{State: AnalysisIdle, Confidence: best.Confidence, Data: map[string]any{"pattern": best.Name}}
	}
	if best, ok := patterns.BestMatch(text, working); ok {
		return Analysis{State: AnalysisWorking, Confidence: 0.5, Data: map[string]any{"pattern": best.Name}}
	}
	return Analysis{State: AnalysisWorking, Confidence: 0.5}
}

func matchingLines(lines []string, set []patterns.Pattern) []string {
	var out []string
	for _, l := range lines {
		if patterns.AnyMatch(l, set) {
			out = append(out, l)
		}
	}
	return out
}

func lastNLines(output string, n int) []string {
	all := strings.Split(output, "\n")
	if len(all) <= n {
		return all
	}
	return all[len(all)-n:]
}

// ClaudeCodeAdapter is the assistant-style ("claude-code") personality.
type ClaudeCodeAdapter struct{}

func (ClaudeCodeAdapter) Info() Info {
	return Info{
		ID:          "claude-code",
		Name:        "Claude Code",
		Description: "Anthropic's terminal coding assistant",
		LaunchCmd:   "claude",
	}
}

func (ClaudeCodeAdapter) LaunchCommand(projectPath string) (string, []string) {
	return "claude", nil
}

func (a ClaudeCodeAdapter) AnalyzeOutput(output string) Analysis {
	return analyzeWithPatterns(output, a.IdlePatterns(), patterns.ClaudeCodeWorkingPatterns(), a.ErrorPatterns())
}

func (ClaudeCodeAdapter) IdlePatterns() []patterns.Pattern  { return patterns.ClaudeCodeIdlePatterns() }
func (ClaudeCodeAdapter) ErrorPatterns() []patterns.Pattern { return patterns.ClaudeCodeErrorPatterns() }
func (a ClaudeCodeAdapter) IsIdle(line string) bool         { return patterns.AnyMatch(line, a.IdlePatterns()) }
func (a ClaudeCodeAdapter) IsError(line string) bool        { return patterns.AnyMatch(line, a.ErrorPatterns()) }

// MPMAdapter is the orchestrator-style ("mpm", multi-agent project manager)
// personality.
type MPMAdapter struct{}

func (MPMAdapter) Info() Info {
	return Info{
		ID:          "mpm",
		Name:        "Multi-agent Project Manager",
		Description: "Orchestrator-style multi-agent assistant",
		LaunchCmd:   "mpm",
	}
}

func (MPMAdapter) LaunchCommand(projectPath string) (string, []string) {
	return "mpm", nil
}

func (a MPMAdapter) AnalyzeOutput(output string) Analysis {
	return analyzeWithPatterns(output, a.IdlePatterns(), patterns.MPMWorkingPatterns(), a.ErrorPatterns())
}

func (MPMAdapter) IdlePatterns() []patterns.Pattern  { return patterns.MPMIdlePatterns() }
func (MPMAdapter) ErrorPatterns() []patterns.Pattern { return patterns.MPMErrorPatterns() }
func (a MPMAdapter) IsIdle(line string) bool         { return patterns.AnyMatch(line, a.IdlePatterns()) }
func (a MPMAdapter) IsError(line string) bool        { return patterns.AnyMatch(line, a.ErrorPatterns()) }

// ShellAdapter is the generic shell personality, restored from the
// original's shell pattern family (see SPEC_FULL.md supplemented
// features).
type ShellAdapter struct{}

func (ShellAdapter) Info() Info {
	return Info{
		ID:          "shell",
		Name:        "Generic Shell",
		Description: "Plain interactive shell session",
		LaunchCmd:   "/bin/sh",
	}
}

func (ShellAdapter) LaunchCommand(projectPath string) (string, []string) {
	return "/bin/sh", nil
}

func (a ShellAdapter) AnalyzeOutput(output string) Analysis {
	return analyzeWithPatterns(output, a.IdlePatterns(), patterns.ShellWorkingPatterns(), a.ErrorPatterns())
}

func (ShellAdapter) IdlePatterns() []patterns.Pattern  { return patterns.ShellIdlePatterns() }
func (ShellAdapter) ErrorPatterns() []patterns.Pattern { return patterns.ShellErrorPatterns() }
func (a ShellAdapter) IsIdle(line string) bool         { return patterns.AnyMatch(line, a.IdlePatterns()) }
func (a ShellAdapter) IsError(line string) bool        { return patterns.AnyMatch(line, a.ErrorPatterns()) }

// Registry holds shared, thread-safe adapter instances by id.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// New constructs a registry pre-populated with the built-in adapters
// (claude-code, mpm, shell).
func New() *Registry {
	r := &Registry{adapters: make(map[string]Adapter)}
	r.Register(ClaudeCodeAdapter{})
	r.Register(MPMAdapter{})
	r.Register(ShellAdapter{})
	return r
}

// Empty constructs a registry with no adapters registered.
func Empty() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds or replaces an adapter under its own id.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Info().ID] = a
}

// Get looks up an adapter by id.
func (r *Registry) Get(id string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[id]
	return a, ok
}

// GetOrNotFound looks up an adapter, returning a typed NotFoundError if
// absent.
func (r *Registry) GetOrNotFound(id string) (Adapter, error) {
	a, ok := r.Get(id)
	if !ok {
		return nil, &model.NotFoundError{Kind: "adapter", ID: id}
	}
	return a, nil
}

// List returns all registered adapter ids.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.adapters))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of registered adapters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.adapters)
}

// DefaultAdapter returns the claude-code adapter, the system default.
func (r *Registry) DefaultAdapter() (Adapter, bool) {
	return r.Get("claude-code")
}

// Resolve maps an alias to its canonical adapter id: cc -> claude-code,
// claude-code -> claude-code, mpm -> mpm. Unknown aliases resolve to "",
// false.
func Resolve(alias string) (string, bool) {
	switch alias {
	case "cc", "claude-code":
		return "claude-code", true
	case "mpm":
		return "mpm", true
	case "shell":
		return "shell", true
	default:
		return "", false
	}
}
