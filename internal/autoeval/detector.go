// Package autoeval is the auto-eval feedback detector (C11): pattern-based
// classification of whether a user's latest message signals a correction,
// negative feedback, positive feedback, or an implicit retry of their
// previous request, plus a per-agent file store of the resulting
// FeedbackRecords and an on-demand summary.
//
// Grounded verbatim on
// original_source/crates/commander-agent/src/eval/detector.rs — the
// pattern families, their declaration order, the false-positive guard
// phrases, and the Jaccard-similarity retry threshold are a faithful
// port.
package autoeval

import (
	"regexp"
	"strings"

	"github.com/bobmatnyc/ai-commander-sub001/internal/model"
)

// FeedbackDetector classifies a user message using three ordered regex
// families, checked most-specific first: correction, explicit negative,
// then positive.
type FeedbackDetector struct {
	correctionPatterns []*regexp.Regexp
	negativePatterns   []*regexp.Regexp
	positivePatterns   []*regexp.Regexp
}

// falsePositiveNegatives are substrings that make an otherwise-matching
// negative pattern not count, e.g. "no problem" containing "no".
var falsePositiveNegatives = []string{
	"no problem", "no worries", "no rush", "not bad", "not wrong", "stop there",
}

// New constructs a FeedbackDetector with the default pattern families.
func New() *FeedbackDetector {
	return &FeedbackDetector{
		correctionPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(I meant|should be|should have)\b`),
			regexp.MustCompile(`(?i)\b(instead of|rather than|use .+ instead)\b`),
			regexp.MustCompile(`(?i)^actually[,\s]`),
		},
		negativePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(no|wrong|incorrect|that's not right|not what I)\b`),
			regexp.MustCompile(`(?i)\b(stop|cancel|nevermind|forget it|abort)\b`),
			regexp.MustCompile(`(?i)\b(doesn't work|broken|bug|failed|error)\b`),
			regexp.MustCompile(`(?i)\b(bad|terrible|awful|useless|stupid)\b`),
		},
		positivePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(thanks|thank you|thx|ty)\b`),
			regexp.MustCompile(`(?i)\b(great|perfect|exactly|excellent|awesome|nice)\b`),
			regexp.MustCompile(`(?i)\b(works|working|correct|right|good job)\b`),
		},
	}
}

// Detect classifies message against the three pattern families in order,
// returning the detected type or false if no clear signal was found.
func (d *FeedbackDetector) Detect(message string) (model.FeedbackType, bool) {
	for _, p := range d.correctionPatterns {
		if p.MatchString(message) {
			return model.FeedbackCorrection, true
		}
	}

	for _, p := range d.negativePatterns {
		if p.MatchString(message) && !isFalsePositiveNegative(message) {
			return model.FeedbackExplicitNegative, true
		}
	}

	for _, p := range d.positivePatterns {
		if p.MatchString(message) {
			return model.FeedbackPositive, true
		}
	}

	return "", false
}

func isFalsePositiveNegative(message string) bool {
	lower := strings.ToLower(message)
	for _, fp := range falsePositiveNegatives {
		if strings.Contains(lower, fp) {
			return true
		}
	}
	return false
}

// IsRetry reports whether current looks like a retry of previous: an
// exact match after normalization, or a word-level Jaccard similarity
// of 0.7 or more.
func (d *FeedbackDetector) IsRetry(current, previous string) bool {
	if current == "" || previous == "" {
		return false
	}

	normCurrent := normalize(current)
	normPrevious := normalize(previous)
	if normCurrent == normPrevious {
		return true
	}

	currentWords := wordSet(normCurrent)
	previousWords := wordSet(normPrevious)
	if len(currentWords) == 0 || len(previousWords) == 0 {
		return false
	}

	intersection := 0
	for w := range currentWords {
		if previousWords[w] {
			intersection++
		}
	}
	union := len(currentWords) + len(previousWords) - intersection
	similarity := float64(intersection) / float64(union)
	return similarity >= 0.7
}

func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' || r == '\t' || r == '\n' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func wordSet(s string) map[string]bool {
	words := strings.Fields(s)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
