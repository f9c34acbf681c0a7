// Package memory is the memory store and access control layer (C8): a
// pluggable vector store keyed by agent id, with brute-force cosine
// similarity search and an access-control wrapper enforcing Own/All
// isolation between session agents and the privileged user agent.
//
// Grounded on commander-memory/src/{lib,local,embedding,store}.rs from
// the original Rust implementation.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"net/http"
	"os"
	"time"
)

// DefaultEmbeddingDim is the dimension used by the hash-based fallback
// embedder and assumed by real providers (OpenAI's text-embedding-3-small).
const DefaultEmbeddingDim = 1536

// EmbeddingProvider generates a vector embedding for a piece of text.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	IsReal() bool
}

// HashEmbedder produces a deterministic, non-semantic embedding from a
// seeded hash of the text. It requires no network access and is used
// whenever no embedding API key is configured — matching the original's
// test-only hash fallback, promoted here to the default so the memory
// store works out of the box.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder constructs a HashEmbedder of the given dimension.
func NewHashEmbedder(dim int) HashEmbedder {
	if dim <= 0 {
		dim = DefaultEmbeddingDim
	}
	return HashEmbedder{dim: dim}
}

func (h HashEmbedder) Dimension() int { return h.dim }
func (h HashEmbedder) IsReal() bool   { return false }

func (h HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embedding := make([]float32, h.dim)
	for i := 0; i < h.dim; i++ {
		hh := fnv.New64a()
		hh.Write([]byte(text))
		hh.Write([]byte(fmt.Sprintf(":%d", i)))
		v := hh.Sum64()
		embedding[i] = float32((float64(v)/float64(^uint64(0)))*2.0 - 1.0)
	}
	normalize(embedding)
	return embedding, nil
}

func normalize(v []float32) {
	var mag float64
	for _, x := range v {
		mag += float64(x) * float64(x)
	}
	mag = math.Sqrt(mag)
	if mag == 0 {
		return
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / mag)
	}
}

// OpenAIEmbedder calls the OpenAI (or an OpenAI-compatible, e.g.
// OpenRouter) embeddings endpoint. Grounded on internal/providers/openai.go's
// http.Client-with-timeout convention.
type OpenAIEmbedder struct {
	apiKey  string
	apiBase string
	model   string
	client  *http.Client
}

// NewOpenAIEmbedder constructs an embedder against apiBase (e.g.
// "https://api.openai.com/v1" or "https://openrouter.ai/api/v1").
func NewOpenAIEmbedder(apiKey, apiBase, model string) *OpenAIEmbedder {
	if model == "" {
		model = "text-embedding-3-small"
	}
	return &OpenAIEmbedder{
		apiKey:  apiKey,
		apiBase: apiBase,
		model:   model,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *OpenAIEmbedder) Dimension() int { return DefaultEmbeddingDim }
func (e *OpenAIEmbedder) IsReal() bool   { return true }

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Model: e.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.apiBase+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding API returned status %d", resp.StatusCode)
	}
	var out embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}
	return out.Data[0].Embedding, nil
}

// ProviderFromEnv selects an embedding provider by priority: OPENAI_API_KEY,
// then OPENROUTER_API_KEY, falling back to the hash-based embedder.
func ProviderFromEnv() EmbeddingProvider {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return NewOpenAIEmbedder(key, "https://api.openai.com/v1", "text-embedding-3-small")
	}
	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		return NewOpenAIEmbedder(key, "https://openrouter.ai/api/v1", "openai/text-embedding-3-small")
	}
	return NewHashEmbedder(DefaultEmbeddingDim)
}

// CosineSimilarity returns the cosine similarity of a and b, or 0 if they
// have mismatched length or either is the zero vector.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(magA) * math.Sqrt(magB)))
}
