package autoeval

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bobmatnyc/ai-commander-sub001/internal/model"
)

// Summary is the on-demand aggregate spec.md §4.11 names: total records,
// and counts of each outcome that matters for a health check.
type Summary struct {
	Total    int
	Positive int
	Negative int
	Errors   int
	Retries  int
}

// Store is a per-agent file-backed FeedbackRecord log: one JSON array
// file per agent, written via temp-file-then-rename.
//
// Grounded on internal/memory's LocalStore (same atomic-write
// convention), split one file per agent rather than one shared file
// since feedback is always queried scoped to a single agent and this
// avoids loading every agent's history to append one record.
type Store struct {
	mu  sync.Mutex
	dir string
}

// NewStore constructs a Store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &model.IOError{Path: dir, Cause: err}
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(agentID string) string {
	return filepath.Join(s.dir, sanitizeAgentID(agentID)+".json")
}

func sanitizeAgentID(agentID string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")
	return replacer.Replace(agentID)
}

func (s *Store) load(agentID string) ([]model.FeedbackRecord, error) {
	data, err := os.ReadFile(s.path(agentID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &model.IOError{Path: s.path(agentID), Cause: err}
	}
	var records []model.FeedbackRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &model.IOError{Path: s.path(agentID), Cause: err}
	}
	return records, nil
}

func (s *Store) save(agentID string, records []model.FeedbackRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return &model.IOError{Path: s.path(agentID), Cause: err}
	}
	tmp, err := os.CreateTemp(s.dir, "feedback-*.tmp")
	if err != nil {
		return &model.IOError{Path: s.dir, Cause: err}
	}
	tmpPath := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			os.Remove(tmpPath)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &model.IOError{Path: tmpPath, Cause: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &model.IOError{Path: tmpPath, Cause: err}
	}
	if err := tmp.Close(); err != nil {
		return &model.IOError{Path: tmpPath, Cause: err}
	}
	if err := os.Rename(tmpPath, s.path(agentID)); err != nil {
		return &model.IOError{Path: s.path(agentID), Cause: err}
	}
	cleanup = false
	return nil
}

// Append records one feedback signal for its agent.
func (s *Store) Append(ctx context.Context, rec model.FeedbackRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load(rec.AgentID)
	if err != nil {
		return err
	}
	records = append(records, rec)
	return s.save(rec.AgentID, records)
}

// List returns every feedback record recorded for agentID, oldest first.
func (s *Store) List(ctx context.Context, agentID string) ([]model.FeedbackRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(agentID)
}

// SummaryFor aggregates agentID's feedback history into a Summary.
func (s *Store) SummaryFor(ctx context.Context, agentID string) (Summary, error) {
	records, err := s.List(ctx, agentID)
	if err != nil {
		return Summary{}, err
	}
	var sum Summary
	sum.Total = len(records)
	for _, r := range records {
		switch r.Type {
		case model.FeedbackPositive:
			sum.Positive++
		case model.FeedbackExplicitNegative, model.FeedbackCorrection:
			sum.Negative++
		case model.FeedbackErrorSignal:
			sum.Errors++
		case model.FeedbackImplicitRetry:
			sum.Retries++
		}
	}
	return sum, nil
}
