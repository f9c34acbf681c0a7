package model

import "time"

// Memory is a single agent-tagged note with an embedding vector.
//
// Invariant: a memory's agent id never changes once created.
type Memory struct {
	ID        string         `json:"id"`
	AgentID   string         `json:"agent_id"`
	Content   string         `json:"content"`
	Embedding []float32      `json:"embedding"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewMemory constructs a Memory owned by agentID.
func NewMemory(agentID, content string, embedding []float32) *Memory {
	return &Memory{
		ID:        NewID(MemoryPrefix),
		AgentID:   agentID,
		Content:   content,
		Embedding: embedding,
		CreatedAt: time.Now().UTC(),
	}
}

// FeedbackType enumerates the kinds of signal the auto-eval detector (C11)
// can attach to a user turn.
type FeedbackType string

const (
	FeedbackExplicitNegative FeedbackType = "explicit_negative"
	FeedbackImplicitRetry    FeedbackType = "implicit_retry"
	FeedbackErrorSignal      FeedbackType = "error"
	FeedbackTimeout          FeedbackType = "timeout"
	FeedbackCorrection       FeedbackType = "correction"
	FeedbackPositive         FeedbackType = "positive"
)

// FeedbackRecord captures one detected feedback signal for an agent turn.
type FeedbackRecord struct {
	ID          string       `json:"id"`
	AgentID     string       `json:"agent_id"`
	Type        FeedbackType `json:"type"`
	Context     string       `json:"context,omitempty"`
	UserInput   string       `json:"user_input"`
	AgentOutput string       `json:"agent_output"`
	Correction  string       `json:"correction,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// NewFeedbackRecord constructs a FeedbackRecord for agentID.
func NewFeedbackRecord(agentID string, t FeedbackType, userInput, agentOutput string) *FeedbackRecord {
	return &FeedbackRecord{
		ID:          NewID(FeedbackPrefix),
		AgentID:     agentID,
		Type:        t,
		UserInput:   userInput,
		AgentOutput: agentOutput,
		CreatedAt:   time.Now().UTC(),
	}
}
