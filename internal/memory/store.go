package memory

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bobmatnyc/ai-commander-sub001/internal/model"
)

// SearchResult pairs a memory with its similarity score against a query
// embedding.
type SearchResult struct {
	Memory model.Memory
	Score  float32
}

// Store is the capability set every memory backend implements. Grounded
// on commander-memory/src/store.rs's MemoryStore trait.
type Store interface {
	Store(ctx context.Context, m model.Memory) error
	Search(ctx context.Context, queryEmbedding []float32, agentID string, limit int) ([]SearchResult, error)
	SearchAll(ctx context.Context, queryEmbedding []float32, limit int) ([]SearchResult, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*model.Memory, error)
	List(ctx context.Context, agentID string, limit int) ([]model.Memory, error)
	Count(ctx context.Context, agentID string) (int, error)
	ClearAgent(ctx context.Context, agentID string) error
}

// LocalStore is a file-backed Store: all memories live in a single JSON
// file, held in an in-memory map guarded by a mutex, and persisted via
// temp-file-then-rename on every mutation. Brute-force cosine similarity
// search is suitable for collections under about 10,000 memories.
//
// Grounded on commander-memory/src/local.rs verbatim (single
// memories.json file, in-memory HashMap cache, write-through save on
// every mutating call).
type LocalStore struct {
	mu        sync.RWMutex
	memories  map[string]model.Memory
	storePath string
}

// NewLocalStore constructs a LocalStore rooted at dir, loading any
// existing memories.json.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &model.IOError{Path: dir, Cause: err}
	}
	s := &LocalStore{
		memories:  make(map[string]model.Memory),
		storePath: filepath.Join(dir, "memories.json"),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *LocalStore) load() error {
	data, err := os.ReadFile(s.storePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &model.IOError{Path: s.storePath, Cause: err}
	}
	var list []model.Memory
	if err := json.Unmarshal(data, &list); err != nil {
		return &model.MemoryError{Cause: err}
	}
	for _, m := range list {
		s.memories[m.ID] = m
	}
	return nil
}

// save is called with s.mu already held (read or write — callers that
// mutate must hold the write lock; this only marshals the current map).
func (s *LocalStore) save() error {
	list := make([]model.Memory, 0, len(s.memories))
	for _, m := range s.memories {
		list = append(list, m)
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return &model.MemoryError{Cause: err}
	}
	dir := filepath.Dir(s.storePath)
	tmp, err := os.CreateTemp(dir, "memories-*.tmp")
	if err != nil {
		return &model.IOError{Path: dir, Cause: err}
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
	if err := os.Rename(tmpPath, s.storePath); err != nil {
		return &model.IOError{Path: s.storePath, Cause: err}
	}
	cleanup = false
	return nil
}

func (s *LocalStore) Store(ctx context.Context, m model.Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memories[m.ID] = m
	return s.save()
}

func (s *LocalStore) Search(ctx context.Context, queryEmbedding []float32, agentID string, limit int) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var results []SearchResult
	for _, m := range s.memories {
		if m.AgentID != agentID {
			continue
		}
		results = append(results, SearchResult{Memory: m, Score: CosineSimilarity(queryEmbedding, m.Embedding)})
	}
	return rankAndTruncate(results, limit), nil
}

func (s *LocalStore) SearchAll(ctx context.Context, queryEmbedding []float32, limit int) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var results []SearchResult
	for _, m := range s.memories {
		results = append(results, SearchResult{Memory: m, Score: CosineSimilarity(queryEmbedding, m.Embedding)})
	}
	return rankAndTruncate(results, limit), nil
}

func rankAndTruncate(results []SearchResult, limit int) []SearchResult {
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func (s *LocalStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.memories, id)
	return s.save()
}

func (s *LocalStore) Get(ctx context.Context, id string) (*model.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.memories[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *LocalStore) List(ctx context.Context, agentID string, limit int) ([]model.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Memory
	for _, m := range s.memories {
		if m.AgentID != agentID {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *LocalStore) Count(ctx context.Context, agentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, m := range s.memories {
		if m.AgentID == agentID {
			n++
		}
	}
	return n, nil
}

func (s *LocalStore) ClearAgent(ctx context.Context, agentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, m := range s.memories {
		if m.AgentID == agentID {
			delete(s.memories, id)
		}
	}
	return s.save()
}
