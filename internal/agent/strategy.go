package agent

// StrategyKind names one of the three context-pressure strategies a
// template can declare.
type StrategyKind string

const (
	StrategyCompaction   StrategyKind = "compaction"
	StrategyPauseResume  StrategyKind = "pause_resume"
	StrategyWarnContinue StrategyKind = "warn_and_continue"
)

// ContextStrategy is how an agent responds to growing context-window
// pressure, selected per adapter template (spec.md §4.9).
type ContextStrategy struct {
	Kind      StrategyKind
	PauseCmd  string // StrategyPauseResume only
	ResumeCmd string // StrategyPauseResume only
}

// TokenStatusKind classifies how close a Context is to its window limit.
type TokenStatusKind string

const (
	TokenContinue TokenStatusKind = "continue"
	TokenWarn     TokenStatusKind = "warn"
	TokenCritical TokenStatusKind = "critical"
)

// TokenStatus is the result of periodically checking a Context's
// estimated token usage against the model's context window.
type TokenStatus struct {
	Kind         TokenStatusKind
	RemainingPct float64 // TokenWarn only
	Action       string  // TokenCritical only: the strategy-specific step to perform
}

// warnThresholdPct and criticalThresholdPct bound the fraction of the
// context window remaining before CheckTokenStatus escalates.
const (
	warnThresholdPct     = 0.25
	criticalThresholdPct = 0.10
)

// CheckTokenStatus compares c's estimated token usage against
// contextWindow and returns Continue, Warn{remaining_pct}, or
// Critical{action}, where action names the strategy-specific response
// (e.g. "compact", "pause:<cmd>", "warn").
func CheckTokenStatus(c *Context, contextWindow int, strategy ContextStrategy) TokenStatus {
	if contextWindow <= 0 {
		return TokenStatus{Kind: TokenContinue}
	}
	used := c.EstimatedTokens()
	remainingPct := 1.0 - float64(used)/float64(contextWindow)

	if remainingPct > warnThresholdPct {
		return TokenStatus{Kind: TokenContinue}
	}
	if remainingPct > criticalThresholdPct {
		return TokenStatus{Kind: TokenWarn, RemainingPct: remainingPct}
	}

	action := "warn"
	switch strategy.Kind {
	case StrategyCompaction:
		action = "compact"
	case StrategyPauseResume:
		action = "pause:" + strategy.PauseCmd
	case StrategyWarnContinue:
		action = "warn"
	}
	return TokenStatus{Kind: TokenCritical, Action: action}
}
