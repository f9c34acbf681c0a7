package completion

import "strings"

// AutonomousResult is what an autonomous run ends with: exactly one of
// Complete, NeedsInput, or CheckIn, selected by Kind (mirrors
// ContinueDecision's shape, plus the goals actually achieved).
type AutonomousResult struct {
	Kind          DecisionKind
	Summary       string // Complete
	GoalsAchieved []Goal // Complete
	Reason        string // NeedsInput, CheckIn
	Blockers      []Blocker
	Progress      string // NeedsInput, CheckIn
}

// ParseGoalLines turns an LLM's numbered-list response into Goals,
// stripping leading numbering/bullet characters from each line and
// dropping blank results. Grounded on
// autonomous.rs::UserAgent::parse_goals's line-based parsing.
func ParseGoalLines(content string) []Goal {
	var goals []Goal
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cleaned := strings.TrimLeft(line, "0123456789.)- ")
		cleaned = strings.TrimSpace(cleaned)
		if cleaned == "" {
			continue
		}
		goals = append(goals, NewGoal(cleaned))
	}
	return goals
}
