package autoeval

import (
	"context"

	"github.com/bobmatnyc/ai-commander-sub001/internal/model"
)

// TurnProcessor applies the FeedbackDetector to each user turn and
// appends any detected signal to the Store.
type TurnProcessor struct {
	detector *FeedbackDetector
	store    *Store
}

// NewTurnProcessor pairs a detector with its backing store.
func NewTurnProcessor(store *Store) *TurnProcessor {
	return &TurnProcessor{detector: New(), store: store}
}

// ProcessUserMessage runs the pattern-based detector against userInput,
// falling back to the retry detector against previousUserInput when no
// pattern matches. Returns nil if no signal was detected (no record is
// appended in that case).
func (p *TurnProcessor) ProcessUserMessage(ctx context.Context, agentID, userInput, agentOutput, previousUserInput string) (*model.FeedbackRecord, error) {
	if t, ok := p.detector.Detect(userInput); ok {
		rec := model.NewFeedbackRecord(agentID, t, userInput, agentOutput)
		if err := p.store.Append(ctx, *rec); err != nil {
			return nil, err
		}
		return rec, nil
	}

	if previousUserInput != "" && p.detector.IsRetry(userInput, previousUserInput) {
		rec := model.NewFeedbackRecord(agentID, model.FeedbackImplicitRetry, userInput, agentOutput)
		if err := p.store.Append(ctx, *rec); err != nil {
			return nil, err
		}
		return rec, nil
	}

	return nil, nil
}

// RecordError appends an Error feedback signal, using errText as both
// the record's correction field and its agent output.
func (p *TurnProcessor) RecordError(ctx context.Context, agentID, userInput, errText string) (*model.FeedbackRecord, error) {
	rec := model.NewFeedbackRecord(agentID, model.FeedbackErrorSignal, userInput, errText)
	rec.Correction = errText
	if err := p.store.Append(ctx, *rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// RecordTimeout appends a Timeout feedback signal for a turn that never
// produced output.
func (p *TurnProcessor) RecordTimeout(ctx context.Context, agentID, userInput string) (*model.FeedbackRecord, error) {
	rec := model.NewFeedbackRecord(agentID, model.FeedbackTimeout, userInput, "")
	if err := p.store.Append(ctx, *rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Summary returns agentID's aggregate feedback counts.
func (p *TurnProcessor) Summary(ctx context.Context, agentID string) (Summary, error) {
	return p.store.SummaryFor(ctx, agentID)
}
