package completion

import (
	"regexp"
	"strings"
)

// goalCompleteMarkers / blockedMarkers are the marker phrases an action response
// uses to signal its outcome, per spec.md §4.10.
var (
	goalCompleteMarkers = []string{"[goal complete]", "completed", "[done]"}
	blockedMarkers      = []string{"[blocked]", "need your input", "cannot proceed"}
)

// IsGoalComplete reports whether an action's response text signals that
// the current goal is done.
func IsGoalComplete(content string) bool {
	lower := strings.ToLower(content)
	for _, m := range goalCompleteMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// IsBlocked reports whether an action's response text signals that the
// agent cannot proceed without the user.
func IsBlocked(content string) bool {
	lower := strings.ToLower(content)
	for _, m := range blockedMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

var optionLineRe = regexp.MustCompile(`(?m)^\s*\d+[.)]\s*(.+)$`)

// ExtractOptions pulls a numbered option list (e.g. "1. A\n2. B") out of a
// blocked response's body, if present.
func ExtractOptions(content string) []string {
	matches := optionLineRe.FindAllStringSubmatch(content, -1)
	if matches == nil {
		return nil
	}
	options := make([]string, 0, len(matches))
	for _, m := range matches {
		options = append(options, strings.TrimSpace(m[1]))
	}
	return options
}

// ExtractBlockerReason returns the text of a [BLOCKED] response with the
// marker itself stripped, trimmed to its first line (the options list, if
// any, follows on subsequent lines).
func ExtractBlockerReason(content string) string {
	lower := strings.ToLower(content)
	idx := strings.Index(lower, "[blocked]")
	reason := content
	if idx >= 0 {
		reason = content[idx+len("[blocked]"):]
	}
	if nl := strings.IndexByte(reason, '\n'); nl >= 0 {
		reason = reason[:nl]
	}
	return strings.TrimSpace(reason)
}

// blockerTypeKeywords orders the keyword families checked by
// ClassifyBlockerType; order matters since the first match wins.
var blockerTypeKeywords = []struct {
	keywords []string
	kind     BlockerType
}{
	{[]string{"decision", "choose", "option a", "vs", "which one", "prefer"}, DecisionNeeded},
	{[]string{"credential", "token", "api key", "access to", "permission", "account", "external service"}, ExternalDependency},
	{[]string{"ambiguous", "unclear", "not sure what you mean", "could mean"}, AmbiguousRequirements},
	{[]string{"need to know", "what is", "please provide", "missing information"}, InformationNeeded},
}

// ClassifyBlockerType matches a blocked response's text against ordered
// keyword families, falling back to ErrorRequiresJudgment when nothing
// matches.
func ClassifyBlockerType(content string) BlockerType {
	lower := strings.ToLower(content)
	for _, family := range blockerTypeKeywords {
		for _, kw := range family.keywords {
			if strings.Contains(lower, kw) {
				return family.kind
			}
		}
	}
	return ErrorRequiresJudgment
}

// BlockerFromResponse builds a Blocker from a [BLOCKED] action response,
// extracting its reason, type, and any numbered options.
func BlockerFromResponse(content string) Blocker {
	reason := ExtractBlockerReason(content)
	return WithOptions(reason, ClassifyBlockerType(content), ExtractOptions(content))
}

// configOrExternalErrorKeywords names error substrings that should become
// a blocker rather than be treated as a recoverable, retryable failure.
var configOrExternalErrorKeywords = []string{
	"configuration", "config error", "missing required", "unauthorized",
	"forbidden", "not found", "permission denied", "invalid argument",
}

// ClassifyErrorAsBlocker inspects an error returned by an autonomous
// action and decides whether it represents a hard stop (a blocker) or a
// transient, recoverable failure (nil, meaning: continue). Configuration
// and external-dependency errors become blockers; anything else is
// assumed transient.
func ClassifyErrorAsBlocker(err error) *Blocker {
	if err == nil {
		return nil
	}
	lower := strings.ToLower(err.Error())
	for _, kw := range configOrExternalErrorKeywords {
		if strings.Contains(lower, kw) {
			b := NewBlocker(err.Error(), ExternalDependency)
			return &b
		}
	}
	return nil
}
