// Package changedetect is the change detector (C4): a five-stage
// deterministic pipeline (hash, clean, diff, classify, summarize) applied
// to each fresh capture against the previous one for the same session.
//
// Grounded verbatim on commander-core/src/change_detector/mod.rs and
// commander-core/src/change_detector/patterns.rs from the original Rust
// implementation — the regex taxonomy, ordering, and significance labels
// below are a faithful line-for-line port.
package changedetect

import (
	"hash/fnv"
	"regexp"
	"strconv"
	"strings"

	"github.com/bobmatnyc/ai-commander-sub001/internal/model"
)

type sigPattern struct {
	re           *regexp.Regexp
	changeType   model.ChangeType
	significance model.Significance
}

// defaultSignificantPatterns is the ordered taxonomy from
// commander-core/src/change_detector/patterns.rs::default_significant_patterns.
// Order matters: classify tries each pattern in turn and the first hit
// fixes a line's type.
var defaultSignificantPatterns = []sigPattern{
	{regexp.MustCompile(`\d+\s+(tests?\s+)?(passed|failed|skipped|ignored)`), model.ChangeProgress, model.SignificanceMedium},
	{regexp.MustCompile(`(?i)^(all\s+)?tests?\s+(passed|failed|ok|fail)`), model.ChangeProgress, model.SignificanceMedium},
	{regexp.MustCompile(`(?i)(specs?|checks?)\s+(passed|failed|ok|fail)`), model.ChangeProgress, model.SignificanceMedium},
	{regexp.MustCompile(`(?i)\b(completed?|finished|done|success(ful)?)\b`), model.ChangeCompletion, model.SignificanceHigh},
	{regexp.MustCompile(`(?i)^passed\b`), model.ChangeCompletion, model.SignificanceHigh},
	{regexp.MustCompile(`(?i)\b(error|failed|failure|exception|panic|fatal)\b`), model.ChangeError, model.SignificanceHigh},
	{regexp.MustCompile(`(?i)\b(segfault|segmentation fault|core dumped|killed|oom)\b`), model.ChangeError, model.SignificanceCritical},
	{regexp.MustCompile(`(?i)(waiting for|awaiting|requires?) (input|response|confirmation)`), model.ChangeWaitingForInput, model.SignificanceHigh},
	{regexp.MustCompile(`(?i)\b(confirm|proceed|continue)\s*\?\s*(\[y/n\])?`), model.ChangeWaitingForInput, model.SignificanceHigh},
	{regexp.MustCompile(`(?i)(enter|type|input|provide)\s+(your|a|the)?\s*(password|passphrase|token|key)`), model.ChangeWaitingForInput, model.SignificanceHigh},
	{regexp.MustCompile(`(?i)(creat(ed?|ing)|modif(y|ied|ying)|delet(ed?|ing)|writ(e|ing|ten))\s+\S+`), model.ChangeProgress, model.SignificanceLow},
	{regexp.MustCompile(`(?i)(compil(e|ing)|build(ing)?|link(ing)?)\s+`), model.ChangeProgress, model.SignificanceLow},
	{regexp.MustCompile(`(?i)(install(ed|ing)?|download(ed|ing)?)\s+`), model.ChangeProgress, model.SignificanceLow},
	{regexp.MustCompile(`(?i)(commit(ted)?|push(ed)?|pull(ed)?|merg(e|ed|ing))\b`), model.ChangeProgress, model.SignificanceMedium},
}

// defaultIgnorePatterns is the noise-line taxonomy from
// default_ignore_patterns, used by the Clean stage.
var defaultIgnorePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[\x{2800}-\x{28FF}]`),                 // braille spinners
	regexp.MustCompile(`[⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏]`),
	regexp.MustCompile(`[◐◑◒◓◴◵◶◷]`),
	regexp.MustCompile(`[⣾⣽⣻⢿⡿⣟⣯⣷]`),
	regexp.MustCompile(`[─│┌┐└┘├┤┬┴┼╭╮╯╰╱╲╳]`),
	regexp.MustCompile(`[═║╔╗╚╝╠╣╦╩╬]`),
	regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`),
	regexp.MustCompile(`[\[=\->\s\]]{10,}`),
	regexp.MustCompile(`\d+%\s*[\[█▓▒░\s\]]*`),
	regexp.MustCompile(`^\d{2}:\d{2}(:\d{2})?\s*$`),
	regexp.MustCompile(`[▐▛▜▌▝▘]`),
	regexp.MustCompile(`(?i)(thinking|spelunking|processing)\.{0,3}$`),
	regexp.MustCompile(`(?i)ctrl\+[a-z]`),
	regexp.MustCompile(`\(MCP\)\(`),
}

// Detector is the stateful per-session pipeline: it remembers the previous
// hash and cleaned capture so each Detect call only needs the new raw
// capture.
type Detector struct {
	prevHash       uint64
	havePrevHash   bool
	prevOutput     string
	havePrevOutput bool

	significant []sigPattern
	ignore      []*regexp.Regexp
}

// New constructs a Detector pre-loaded with the default significant and
// ignore pattern tables.
func New() *Detector {
	return &Detector{
		significant: append([]sigPattern(nil), defaultSignificantPatterns...),
		ignore:      append([]*regexp.Regexp(nil), defaultIgnorePatterns...),
	}
}

// AddSignificantPattern registers an additional classification pattern,
// appended after the built-ins (so built-ins still win ties by
// declaration order).
func (d *Detector) AddSignificantPattern(re *regexp.Regexp, t model.ChangeType, sig model.Significance) {
	d.significant = append(d.significant, sigPattern{re: re, changeType: t, significance: sig})
}

// AddIgnorePattern registers an additional noise pattern for the Clean
// stage.
func (d *Detector) AddIgnorePattern(re *regexp.Regexp) {
	d.ignore = append(d.ignore, re)
}

// Reset clears the remembered hash and capture; the next Detect call is
// therefore never treated as unchanged.
func (d *Detector) Reset() {
	d.havePrevHash = false
	d.havePrevOutput = false
	d.prevOutput = ""
}

// Detect runs the five-stage pipeline against current, updating the
// detector's remembered state before returning.
func (d *Detector) Detect(current string) model.ChangeEvent {
	h := hashOutput(current)

	// Stage 1: hash.
	if d.havePrevHash && h == d.prevHash {
		d.prevHash, d.havePrevHash = h, true
		return model.NoneEvent()
	}

	// Stage 2: clean.
	cleanedCurrent := d.clean(current)
	var cleanedPrev string
	if d.havePrevOutput {
		cleanedPrev = d.clean(d.prevOutput)
	}

	// Stage 3: diff.
	newLines := findNewLines(cleanedPrev, cleanedCurrent)

	// Stage 4: classify.
	changeType, significance := d.classify(newLines)

	// Stage 5: summarize.
	summary := d.summarize(newLines, changeType)

	d.prevHash = h
	d.havePrevHash = true
	d.prevOutput = current
	d.havePrevOutput = true

	if len(newLines) == 0 {
		return model.NoneEvent()
	}

	return model.ChangeEvent{
		Type:         changeType,
		Significance: significance,
		Summary:      summary,
		NewLines:     newLines,
	}
}

func hashOutput(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

func (d *Detector) clean(output string) string {
	var kept []string
	for _, line := range strings.Split(output, "\n") {
		if d.isNoise(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func (d *Detector) isNoise(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return true
	}
	for _, re := range d.ignore {
		if re.MatchString(trimmed) {
			return true
		}
	}
	return isUINoise(trimmed)
}

// findNewLines returns the lines present (trimmed, non-empty) in current
// but not in prev, preserving order. Mirrors
// change_detector::find_new_lines.
func findNewLines(prev, current string) []string {
	prevSet := make(map[string]struct{})
	if prev != "" {
		for _, l := range strings.Split(prev, "\n") {
			prevSet[strings.TrimSpace(l)] = struct{}{}
		}
	}
	var out []string
	for _, l := range strings.Split(current, "\n") {
		t := strings.TrimSpace(l)
		if t == "" {
			continue
		}
		if _, seen := prevSet[t]; seen {
			continue
		}
		out = append(out, t)
	}
	return out
}

// classify implements classify_change: empty lines => (None, Ignore); else
// for each line, find the first matching significant pattern, tracking the
// maximum significance seen. If lines exist but nothing matched, default
// to (Addition, Low).
func (d *Detector) classify(lines []string) (model.ChangeType, model.Significance) {
	if len(lines) == 0 {
		return model.ChangeNone, model.SignificanceIgnore
	}
	bestType := model.ChangeAddition
	bestSig := model.SignificanceLow
	matchedAny := false
	for _, line := range lines {
		for _, p := range d.significant {
			if !p.re.MatchString(line) {
				continue
			}
			matchedAny = true
			if p.significance > bestSig {
				bestSig = p.significance
				bestType = p.changeType
			}
			break // first hit fixes this line's type
		}
	}
	if !matchedAny {
		return model.ChangeAddition, model.SignificanceLow
	}
	return bestType, bestSig
}

var summaryPrefix = map[model.ChangeType]string{
	model.ChangeNone:            "",
	model.ChangeAddition:        "New output: ",
	model.ChangeModification:    "Changed: ",
	model.ChangeCompletion:      "Completed: ",
	model.ChangeError:           "Error: ",
	model.ChangeWaitingForInput: "Waiting for input: ",
	model.ChangeProgress:        "Progress: ",
}

// summarize implements summarize_change: pick the first line matching any
// significant pattern (or the first line if none matched), truncate to 100
// characters (97 + "..."), prefix by change-type label, suffix with the
// count of additional lines.
func (d *Detector) summarize(lines []string, changeType model.ChangeType) string {
	if len(lines) == 0 {
		return ""
	}
	chosen := lines[0]
	for _, line := range lines {
		for _, p := range d.significant {
			if p.re.MatchString(line) {
				chosen = line
				goto found
			}
		}
	}
found:
	if len(chosen) > 100 {
		chosen = chosen[:97] + "..."
	}
	extra := len(lines) - 1
	prefix := summaryPrefix[changeType]
	if extra > 0 {
		return prefix + chosen + " (+" + strconv.Itoa(extra) + " lines)"
	}
	return prefix + chosen
}
