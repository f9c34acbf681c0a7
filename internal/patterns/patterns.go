// Package patterns is the pattern library (C2): curated, compiled-once
// regex sets per adapter family (assistant-style, orchestrator-style,
// generic shell), each tagged with a hand-tuned confidence in [0, 1].
//
// Grounded on commander-adapters/src/patterns.rs from the original Rust
// implementation: the pattern names, regexes, and confidence values below
// are a direct, faithful port of that module's claude_code, mpm, and shell
// sub-modules.
package patterns

import (
	"regexp"
	"sort"
	"sync"
)

// Pattern is a compiled regex paired with a human-readable name and a
// hand-tuned confidence score.
type Pattern struct {
	Name       string
	Confidence float64
	re         *regexp.Regexp
}

// NewPattern compiles pattern and panics on an invalid expression, mirroring
// the original's Regex::new(...).expect("Invalid regex pattern") — these
// are fixed, compile-time-known constants, never user input.
func NewPattern(name, expr string, confidence float64) Pattern {
	return Pattern{Name: name, Confidence: confidence, re: regexp.MustCompile(expr)}
}

// Matches reports whether the pattern matches text anywhere.
func (p Pattern) Matches(text string) bool {
	return p.re.MatchString(text)
}

// FindAll returns every non-overlapping match of the pattern in text.
func (p Pattern) FindAll(text string) []string {
	return p.re.FindAllString(text, -1)
}

// Captures returns the captured groups of the first match, skipping the
// full-match group 0. Returns nil if there is no match.
func (p Pattern) Captures(text string) []string {
	m := p.re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	return m[1:]
}

// BestMatch returns the highest-confidence pattern in the set that matches
// text, with ties broken by declaration (slice) order. Returns false if
// nothing matches.
func BestMatch(text string, set []Pattern) (Pattern, bool) {
	var best Pattern
	found := false
	for _, p := range set {
		if !p.Matches(text) {
			continue
		}
		if !found || p.Confidence > best.Confidence {
			best = p
			found = true
		}
	}
	return best, found
}

// AnyMatch reports whether any pattern in the set matches text.
func AnyMatch(text string, set []Pattern) bool {
	for _, p := range set {
		if p.Matches(text) {
			return true
		}
	}
	return false
}

// sortedNames returns the pattern names in set, for diagnostics/tests.
func sortedNames(set []Pattern) []string {
	names := make([]string, len(set))
	for i, p := range set {
		names[i] = p.Name
	}
	sort.Strings(names)
	return names
}

var (
	onceCC, onceMPM, onceShell sync.Once
	ccIdle, ccWorking, ccError []Pattern
	mpmIdle, mpmWorking, mpmError []Pattern
	shIdle, shWorking, shError []Pattern
)

// ClaudeCodeIdlePatterns returns idle-detection patterns for the
// assistant-style ("claude-code") adapter family. Compiled once and
// memoized process-wide.
func ClaudeCodeIdlePatterns() []Pattern {
	onceCC.Do(initClaudeCode)
	return ccIdle
}

// ClaudeCodeWorkingPatterns returns working-detection patterns for the
// assistant-style adapter family.
func ClaudeCodeWorkingPatterns() []Pattern {
	onceCC.Do(initClaudeCode)
	return ccWorking
}

// ClaudeCodeErrorPatterns returns error-detection patterns for the
// assistant-style adapter family.
func ClaudeCodeErrorPatterns() []Pattern {
	onceCC.Do(initClaudeCode)
	return ccError
}

func initClaudeCode() {
	ccIdle = []Pattern{
		NewPattern("prompt", `(?m)^>\s*$`, 0.9),
		NewPattern("waiting", `(?i)waiting for input`, 0.95),
		NewPattern("ready", `(?i)ready\s*$`, 0.8),
		NewPattern("idle_marker", `\[IDLE\]`, 1.0),
	}
	ccError = []Pattern{
		NewPattern("error", `(?im)^error:`, 0.95),
		NewPattern("exception", `(?i)exception|traceback`, 0.9),
		NewPattern("failed", `(?i)failed|failure`, 0.85),
		NewPattern("permission_denied", `(?i)permission denied`, 0.95),
		NewPattern("not_found", `(?i)not found|no such file`, 0.9),
	}
	ccWorking = []Pattern{
		NewPattern("thinking", `(?i)thinking|processing`, 0.9),
		NewPattern("writing", `(?i)writing|creating|updating`, 0.85),
		NewPattern("reading", `(?i)reading|analyzing`, 0.8),
		NewPattern("running", `(?i)running|executing`, 0.85),
	}
}

// MPMIdlePatterns returns idle-detection patterns for the
// orchestrator-style ("mpm") adapter family.
func MPMIdlePatterns() []Pattern {
	onceMPM.Do(initMPM)
	return mpmIdle
}

// MPMWorkingPatterns returns working-detection patterns for the
// orchestrator-style adapter family.
func MPMWorkingPatterns() []Pattern {
	onceMPM.Do(initMPM)
	return mpmWorking
}

// MPMErrorPatterns returns error-detection patterns for the
// orchestrator-style adapter family.
func MPMErrorPatterns() []Pattern {
	onceMPM.Do(initMPM)
	return mpmError
}

func initMPM() {
	mpmIdle = []Pattern{
		NewPattern("pm_ready", `(?i)PM ready`, 0.95),
		NewPattern("awaiting", `(?i)awaiting instructions`, 0.95),
		NewPattern("prompt", `(?m)^>\s*$`, 0.9),
		NewPattern("idle_marker", `\[IDLE\]`, 1.0),
	}
	mpmError = []Pattern{
		NewPattern("error", `(?im)^error:`, 0.95),
		NewPattern("exception", `(?i)exception|traceback`, 0.9),
		NewPattern("failed", `(?i)failed|failure`, 0.85),
		NewPattern("agent_error", `(?i)agent.*error`, 0.9),
	}
	mpmWorking = []Pattern{
		NewPattern("delegating", `(?i)delegating|assigning`, 0.9),
		NewPattern("coordinating", `(?i)coordinating|orchestrating`, 0.85),
		NewPattern("processing", `(?i)processing|working`, 0.8),
	}
}

// ShellIdlePatterns returns idle-detection patterns for generic shell
// sessions: bash/zsh/root/PS1-style prompts. Restored from the original
// implementation's shell pattern family, which the distilled spec.md
// summarizes but the original's pattern library keeps alongside
// claude-code and mpm (see SPEC_FULL.md's supplemented-features list).
func ShellIdlePatterns() []Pattern {
	onceShell.Do(initShell)
	return shIdle
}

// ShellWorkingPatterns returns working-detection patterns for generic shell
// sessions.
func ShellWorkingPatterns() []Pattern {
	onceShell.Do(initShell)
	return shWorking
}

// ShellErrorPatterns returns error-detection patterns for generic shell
// sessions.
func ShellErrorPatterns() []Pattern {
	onceShell.Do(initShell)
	return shError
}

func initShell() {
	shIdle = []Pattern{
		NewPattern("bash_prompt", `(?m)[$]\s*$`, 0.95),
		NewPattern("zsh_prompt", `(?m)[%]\s*$`, 0.95),
		NewPattern("root_prompt", `(?m)[#]\s*$`, 0.90),
		NewPattern("generic_prompt", `(?m)>\s*$`, 0.85),
		NewPattern("ps1_prompt", `(?m)\w+[@:~][^$#%>\n]*[$#%>]\s*$`, 0.95),
		NewPattern("bash_version", `(?m)bash-\d+\.\d+[$#]\s*$`, 0.90),
		NewPattern("idle_marker", `\[IDLE\]`, 1.0),
	}
	shError = []Pattern{
		NewPattern("command_not_found", `(?i)command not found`, 0.95),
		NewPattern("no_such_file", `(?i)no such file or directory`, 0.95),
		NewPattern("permission_denied", `(?i)permission denied`, 0.95),
		NewPattern("syntax_error", `(?i)syntax error`, 0.90),
		NewPattern("operation_not_permitted", `(?i)operation not permitted`, 0.90),
		NewPattern("bad_substitution", `(?i)bad substitution`, 0.85),
		NewPattern("is_a_directory", `(?i)is a directory`, 0.80),
		NewPattern("not_a_directory", `(?i)not a directory`, 0.80),
		NewPattern("cannot_create", `(?i)cannot create`, 0.85),
		NewPattern("cannot_open", `(?i)cannot open`, 0.85),
	}
	shWorking = []Pattern{
		NewPattern("compiling", `(?i)compiling|building`, 0.85),
		NewPattern("linking", `(?i)linking`, 0.80),
		NewPattern("downloading", `(?i)downloading|fetching`, 0.85),
		NewPattern("installing", `(?i)installing`, 0.85),
		NewPattern("progress", `\d+%`, 0.75),
		NewPattern("loading", `(?i)loading`, 0.70),
		NewPattern("running", `(?i)running|executing`, 0.80),
		NewPattern("testing", `(?i)testing|test`, 0.75),
	}
}
