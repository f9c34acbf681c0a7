package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/bobmatnyc/ai-commander-sub001/internal/model"
)

// RemoteStore is a Store backed by a Qdrant vector database, reached over
// its plain HTTP REST API. No repo in the retrieval pack imports a Qdrant
// Go client (the teacher's go.mod has none, and grepping the whole pack
// turns up only modernc.org/sqlite as a vector-adjacent dependency), so
// this talks to Qdrant's REST surface directly with net/http rather than
// fabricating a client dependency that isn't grounded anywhere in the
// corpus — Qdrant needs no dedicated SDK for basic collection/point CRUD.
//
// Grounded on commander-memory/src/qdrant.rs: same collection name
// ("memories"), same payload field names, same QDRANT_URL/QDRANT_API_KEY
// environment variables, same ensure-collection-exists-on-construction
// behavior.
type RemoteStore struct {
	baseURL    string
	apiKey     string
	collection string
	dimension  int
	client     *http.Client
}

const defaultQdrantCollection = "memories"

// NewRemoteStore connects to a Qdrant instance at baseURL (its REST port,
// typically http://host:6333) and ensures the memories collection exists.
func NewRemoteStore(ctx context.Context, baseURL, apiKey string, dimension int) (*RemoteStore, error) {
	if dimension <= 0 {
		dimension = DefaultEmbeddingDim
	}
	s := &RemoteStore{
		baseURL:    baseURL,
		apiKey:     apiKey,
		collection: defaultQdrantCollection,
		dimension:  dimension,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// RemoteStoreFromEnv builds a RemoteStore from QDRANT_URL (default
// http://localhost:6333) and QDRANT_API_KEY.
func RemoteStoreFromEnv(ctx context.Context) (*RemoteStore, error) {
	url := os.Getenv("QDRANT_URL")
	if url == "" {
		url = "http://localhost:6333"
	}
	return NewRemoteStore(ctx, url, os.Getenv("QDRANT_API_KEY"), DefaultEmbeddingDim)
}

func (s *RemoteStore) do(ctx context.Context, method, path string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &model.MemoryError{Cause: err}
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return &model.MemoryError{Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return &model.MemoryError{Cause: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &model.MemoryError{Cause: fmt.Errorf("qdrant %s %s: status %d", method, path, resp.StatusCode)}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &model.MemoryError{Cause: err}
		}
	}
	return nil
}

func (s *RemoteStore) ensureCollection(ctx context.Context) error {
	err := s.do(ctx, http.MethodPut, "/collections/"+s.collection, map[string]any{
		"vectors": map[string]any{"size": s.dimension, "distance": "Cosine"},
	}, nil)
	return err
}

type qdrantPayload struct {
	AgentID   string         `json:"agent_id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt string         `json:"created_at"`
}

func toPayload(m model.Memory) qdrantPayload {
	return qdrantPayload{
		AgentID:   m.AgentID,
		Content:   m.Content,
		Metadata:  m.Metadata,
		CreatedAt: m.CreatedAt.Format(time.RFC3339Nano),
	}
}

func fromPoint(id string, vector []float32, payload qdrantPayload) model.Memory {
	m := model.Memory{
		ID:        id,
		AgentID:   payload.AgentID,
		Content:   payload.Content,
		Embedding: vector,
		Metadata:  payload.Metadata,
	}
	if t, err := time.Parse(time.RFC3339Nano, payload.CreatedAt); err == nil {
		m.CreatedAt = t
	}
	return m
}

func (s *RemoteStore) Store(ctx context.Context, m model.Memory) error {
	return s.do(ctx, http.MethodPut, "/collections/"+s.collection+"/points", map[string]any{
		"points": []map[string]any{{
			"id":      m.ID,
			"vector":  m.Embedding,
			"payload": toPayload(m),
		}},
	}, nil)
}

type qdrantSearchHit struct {
	ID      string        `json:"id"`
	Score   float32       `json:"score"`
	Vector  []float32     `json:"vector"`
	Payload qdrantPayload `json:"payload"`
}

type qdrantSearchResponse struct {
	Result []qdrantSearchHit `json:"result"`
}

func (s *RemoteStore) search(ctx context.Context, queryEmbedding []float32, agentID string, limit int) ([]SearchResult, error) {
	body := map[string]any{
		"vector":       queryEmbedding,
		"limit":        limit,
		"with_payload": true,
		"with_vector":  true,
	}
	if agentID != "" {
		body["filter"] = map[string]any{
			"must": []map[string]any{{
				"key":   "agent_id",
				"match": map[string]any{"value": agentID},
			}},
		}
	}
	var resp qdrantSearchResponse
	if err := s.do(ctx, http.MethodPost, "/collections/"+s.collection+"/points/search", body, &resp); err != nil {
		return nil, err
	}
	out := make([]SearchResult, 0, len(resp.Result))
	for _, hit := range resp.Result {
		out = append(out, SearchResult{Memory: fromPoint(hit.ID, hit.Vector, hit.Payload), Score: hit.Score})
	}
	return out, nil
}

func (s *RemoteStore) Search(ctx context.Context, queryEmbedding []float32, agentID string, limit int) ([]SearchResult, error) {
	return s.search(ctx, queryEmbedding, agentID, limit)
}

func (s *RemoteStore) SearchAll(ctx context.Context, queryEmbedding []float32, limit int) ([]SearchResult, error) {
	return s.search(ctx, queryEmbedding, "", limit)
}

func (s *RemoteStore) Delete(ctx context.Context, id string) error {
	return s.do(ctx, http.MethodPost, "/collections/"+s.collection+"/points/delete", map[string]any{
		"points": []string{id},
	}, nil)
}

type qdrantPointResponse struct {
	Result struct {
		ID      string        `json:"id"`
		Vector  []float32     `json:"vector"`
		Payload qdrantPayload `json:"payload"`
	} `json:"result"`
}

func (s *RemoteStore) Get(ctx context.Context, id string) (*model.Memory, error) {
	var resp qdrantPointResponse
	if err := s.do(ctx, http.MethodGet, "/collections/"+s.collection+"/points/"+id, nil, &resp); err != nil {
		return nil, nil
	}
	if resp.Result.ID == "" {
		return nil, nil
	}
	m := fromPoint(resp.Result.ID, resp.Result.Vector, resp.Result.Payload)
	return &m, nil
}

type qdrantScrollResponse struct {
	Result struct {
		Points []struct {
			ID      string        `json:"id"`
			Vector  []float32     `json:"vector"`
			Payload qdrantPayload `json:"payload"`
		} `json:"points"`
	} `json:"result"`
}

func (s *RemoteStore) scroll(ctx context.Context, agentID string, limit int) ([]model.Memory, error) {
	body := map[string]any{
		"with_payload": true,
		"with_vector":  true,
	}
	if limit > 0 {
		body["limit"] = limit
	}
	if agentID != "" {
		body["filter"] = map[string]any{
			"must": []map[string]any{{
				"key":   "agent_id",
				"match": map[string]any{"value": agentID},
			}},
		}
	}
	var resp qdrantScrollResponse
	if err := s.do(ctx, http.MethodPost, "/collections/"+s.collection+"/points/scroll", body, &resp); err != nil {
		return nil, err
	}
	out := make([]model.Memory, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		out = append(out, fromPoint(p.ID, p.Vector, p.Payload))
	}
	return out, nil
}

func (s *RemoteStore) List(ctx context.Context, agentID string, limit int) ([]model.Memory, error) {
	return s.scroll(ctx, agentID, limit)
}

func (s *RemoteStore) Count(ctx context.Context, agentID string) (int, error) {
	all, err := s.scroll(ctx, agentID, 0)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

func (s *RemoteStore) ClearAgent(ctx context.Context, agentID string) error {
	return s.do(ctx, http.MethodPost, "/collections/"+s.collection+"/points/delete", map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{{
				"key":   "agent_id",
				"match": map[string]any{"value": agentID},
			}},
		},
	}, nil)
}
