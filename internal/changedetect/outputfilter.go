package changedetect

import "strings"

// isUINoise implements a second, layered noise check beyond the compiled
// ignore-pattern regexes: prompt echoes, spinner glyphs, box-drawing
// starts, assistant branding, and MCP invocation chatter. Grounded
// verbatim on commander-core/src/output_filter.rs::is_ui_noise.
func isUINoise(line string) bool {
	if strings.Contains(line, "] ❯ ") || strings.Contains(line, "] > ") {
		return true
	}
	if idx := strings.Index(line, "> "); idx >= 0 && idx < 30 {
		before := line[:idx]
		if !strings.Contains(before, ":") && !strings.Contains(strings.ToLower(line), "http") {
			if !strings.Contains(before, " ") || strings.HasPrefix(before, "[") {
				return true
			}
		}
	}

	if len(line) > 0 {
		r := []rune(line)[0]
		for _, spinner := range spinnerChars {
			if r == spinner {
				return true
			}
		}
		boxStarts := "╮╭│├└┌┐┘┤┬┴┼╰"
		if strings.ContainsRune(boxStarts, r) {
			return true
		}
	}

	for _, pair := range [][2]string{{"▐", "▛"}, {"▜", "▐"}, {"▝", "▜"}, {"▛", "▘"}} {
		if strings.Contains(line, pair[0]) && strings.Contains(line, pair[1]) {
			return true
		}
	}

	lower := strings.ToLower(line)
	for _, substr := range []string{
		"spelunking", "(thinking)", "thinking…", "thinking...",
		"ctrl+b", "to run in background",
		"claude code v", "claude max", "opus 4", "sonnet",
	} {
		if strings.Contains(lower, substr) {
			return true
		}
	}

	if strings.Contains(line, "(MCP)(") && (strings.Contains(line, "owner:") || strings.Contains(line, "repo:")) {
		return true
	}
	if strings.HasSuffix(strings.TrimSpace(line), "(MCP)") && !strings.Contains(line, ":") {
		return true
	}

	return false
}

// spinnerChars are the single-glyph spinner frames the original filters at
// the start of a line.
var spinnerChars = []rune("✳✶✻✽✢⏺·●○◐◑◒◓")

// isClaudeReady implements the readiness heuristic from
// commander-core/src/output_filter.rs::is_claude_ready: inspects the last
// ten non-empty lines (most-recent first) for a bare prompt, a separator
// plus a later prompt glyph, or a bypass-permissions hint.
func isClaudeReady(output string) bool {
	var nonEmpty []string
	for _, l := range strings.Split(output, "\n") {
		if strings.TrimSpace(l) != "" {
			nonEmpty = append(nonEmpty, l)
		}
	}
	if len(nonEmpty) == 0 {
		return false
	}
	// Reverse, take up to 10.
	n := len(nonEmpty)
	last := make([]string, 0, 10)
	for i := n - 1; i >= 0 && len(last) < 10; i-- {
		last = append(last, nonEmpty[i])
	}

	head := last
	if len(head) > 5 {
		head = head[:5]
	}
	head3 := last
	if len(head3) > 3 {
		head3 = head3[:3]
	}

	hasPrompt := false
	for _, l := range head3 {
		t := strings.TrimSpace(l)
		if t == "❯" || t == "❯ " || strings.HasSuffix(t, " ❯") || strings.HasSuffix(t, " ❯ ") {
			hasPrompt = true
			break
		}
	}

	hasSeparator := false
	for _, l := range head {
		if strings.HasPrefix(l, "───") || strings.HasPrefix(l, "╭─") {
			hasSeparator = true
			break
		}
	}

	hasBypassHint := false
	for _, l := range head {
		if strings.Contains(l, "bypass permissions") {
			hasBypassHint = true
			break
		}
	}

	if hasSeparator {
		for _, l := range head {
			if strings.Contains(l, "❯") {
				hasPrompt = true
				break
			}
		}
	}

	hasReadyIndicator := false
	for _, l := range head3 {
		t := strings.TrimSpace(l)
		if t == "│ ❯" || strings.HasPrefix(t, "│ ❯") || t == ">" || strings.HasSuffix(t, "> ") || strings.Contains(t, "[ready]") {
			hasReadyIndicator = true
			break
		}
	}

	_ = hasPrompt // retained for parity with the original's named intermediate
	return hasReadyIndicator || hasBypassHint
}

// cleanResponse strips UI chrome from a raw agent-facing response: empty
// lines, tool-output markers (⎿, ⏺), hook/ctrl+o/(MCP) mentions,
// and "Reading"/"Searched" progress lines. Grounded on
// output_filter.rs::clean_response.
func cleanResponse(raw string) string {
	var kept []string
	for _, line := range strings.Split(raw, "\n") {
		t := strings.TrimSpace(line)
		if t == "" {
			continue
		}
		if strings.HasPrefix(t, "⎿") || strings.HasPrefix(t, "⏺") {
			continue
		}
		lower := strings.ToLower(t)
		if strings.Contains(lower, "hook") || strings.Contains(lower, "ctrl+o") || strings.Contains(lower, "(mcp)") {
			continue
		}
		if strings.HasPrefix(t, "Reading") || strings.HasPrefix(t, "Searched") {
			continue
		}
		kept = append(kept, t)
	}
	return strings.Join(kept, "\n")
}

// cleanScreenPreview filters non-empty, non-noise lines and returns the
// last maxLines of them, trimmed and joined. Grounded on
// output_filter.rs::clean_screen_preview.
func cleanScreenPreview(output string, maxLines int) string {
	var kept []string
	for _, line := range strings.Split(output, "\n") {
		t := strings.TrimSpace(line)
		if t == "" || isUINoise(t) {
			continue
		}
		kept = append(kept, t)
	}
	if len(kept) > maxLines {
		kept = kept[len(kept)-maxLines:]
	}
	return strings.Join(kept, "\n")
}
