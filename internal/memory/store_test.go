package memory

import (
	"context"
	"math"
	"testing"

	"github.com/bobmatnyc/ai-commander-sub001/internal/model"
)

func unitVec(dominant int, dim int) []float32 {
	v := make([]float32, dim)
	v[dominant] = 1.0
	return v
}

func TestLocalStoreStoreAndGet(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	m := *model.NewMemory("agent-1", "hello", unitVec(0, 4))
	if err := s.Store(context.Background(), m); err != nil {
		t.Fatalf("Store: %v", err)
	}
	got, err := s.Get(context.Background(), m.ID)
	if err != nil || got == nil {
		t.Fatalf("Get: %v, %v", got, err)
	}
	if got.Content != "hello" {
		t.Fatalf("expected content round-trip, got %q", got.Content)
	}
}

func TestLocalStoreGetMissingReturnsNilNil(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(context.Background(), "mem-missing")
	if err != nil || got != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", got, err)
	}
}

func TestLocalStoreSearchIsolatesByAgent(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	m1 := *model.NewMemory("agent-1", "mine", unitVec(0, 4))
	m2 := *model.NewMemory("agent-2", "theirs", unitVec(0, 4))
	if err := s.Store(ctx, m1); err != nil {
		t.Fatal(err)
	}
	if err := s.Store(ctx, m2); err != nil {
		t.Fatal(err)
	}

	results, err := s.Search(ctx, unitVec(0, 4), "agent-1", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Memory.ID != m1.ID {
		t.Fatalf("expected only agent-1's memory, got %+v", results)
	}

	all, err := s.SearchAll(ctx, unitVec(0, 4), 10)
	if err != nil {
		t.Fatalf("SearchAll: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected both memories from SearchAll, got %d", len(all))
	}
}

func TestLocalStoreSearchRanksBySimilarity(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	closeMatch := *model.NewMemory("agent-1", "close", unitVec(0, 4))
	farMatch := *model.NewMemory("agent-1", "far", unitVec(1, 4))
	if err := s.Store(ctx, farMatch); err != nil {
		t.Fatal(err)
	}
	if err := s.Store(ctx, closeMatch); err != nil {
		t.Fatal(err)
	}

	results, err := s.Search(ctx, unitVec(0, 4), "agent-1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].Memory.ID != closeMatch.ID {
		t.Fatalf("expected closest match first, got %+v", results)
	}
}

func TestLocalStoreListRespectsLimit(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := s.Store(ctx, *model.NewMemory("agent-1", "note", unitVec(0, 4))); err != nil {
			t.Fatal(err)
		}
	}
	list, err := s.List(ctx, "agent-1", 3)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected limit to cap results at 3, got %d", len(list))
	}
}

func TestLocalStoreCountAndClearAgent(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := s.Store(ctx, *model.NewMemory("agent-1", "a", unitVec(0, 4))); err != nil {
		t.Fatal(err)
	}
	if err := s.Store(ctx, *model.NewMemory("agent-1", "b", unitVec(0, 4))); err != nil {
		t.Fatal(err)
	}
	if err := s.Store(ctx, *model.NewMemory("agent-2", "c", unitVec(0, 4))); err != nil {
		t.Fatal(err)
	}

	n, err := s.Count(ctx, "agent-1")
	if err != nil || n != 2 {
		t.Fatalf("expected count 2, got %d, %v", n, err)
	}

	if err := s.ClearAgent(ctx, "agent-1"); err != nil {
		t.Fatalf("ClearAgent: %v", err)
	}
	n, err = s.Count(ctx, "agent-1")
	if err != nil || n != 0 {
		t.Fatalf("expected count 0 after clear, got %d, %v", n, err)
	}
	n, err = s.Count(ctx, "agent-2")
	if err != nil || n != 1 {
		t.Fatalf("expected agent-2 untouched, got %d, %v", n, err)
	}
}

func TestLocalStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s1, err := NewLocalStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	m := *model.NewMemory("agent-1", "persisted", unitVec(0, 4))
	if err := s1.Store(ctx, m); err != nil {
		t.Fatal(err)
	}

	s2, err := NewLocalStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := s2.Get(ctx, m.ID)
	if err != nil || got == nil {
		t.Fatalf("expected memory to survive reopen, got %v, %v", got, err)
	}
}

func TestLocalStoreDelete(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	m := *model.NewMemory("agent-1", "gone soon", unitVec(0, 4))
	if err := s.Store(ctx, m); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, m.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err := s.Get(ctx, m.ID)
	if err != nil || got != nil {
		t.Fatalf("expected memory gone, got %v, %v", got, err)
	}
}

func TestHashEmbedderDeterministic(t *testing.T) {
	h := NewHashEmbedder(16)
	a, err := h.Embed(context.Background(), "the quick brown fox")
	if err != nil {
		t.Fatal(err)
	}
	b, err := h.Embed(context.Background(), "the quick brown fox")
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("expected identical embeddings for identical text, differ at %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestHashEmbedderDistinctForDistinctText(t *testing.T) {
	h := NewHashEmbedder(16)
	a, _ := h.Embed(context.Background(), "alpha")
	b, _ := h.Embed(context.Background(), "beta")
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("expected distinct embeddings for distinct text")
	}
}

func TestHashEmbedderIsUnitNormalized(t *testing.T) {
	h := NewHashEmbedder(32)
	v, err := h.Embed(context.Background(), "normalize me")
	if err != nil {
		t.Fatal(err)
	}
	var mag float64
	for _, x := range v {
		mag += float64(x) * float64(x)
	}
	mag = math.Sqrt(mag)
	if mag < 0.999 || mag > 1.001 {
		t.Fatalf("expected unit magnitude, got %f", mag)
	}
}

func TestCosineSimilarityIdenticalVectorsIsOne(t *testing.T) {
	v := unitVec(0, 4)
	got := CosineSimilarity(v, v)
	if got < 0.999 || got > 1.001 {
		t.Fatalf("expected similarity ~1.0, got %f", got)
	}
}

func TestCosineSimilarityOrthogonalVectorsIsZero(t *testing.T) {
	a := unitVec(0, 4)
	b := unitVec(1, 4)
	got := CosineSimilarity(a, b)
	if got < -0.001 || got > 0.001 {
		t.Fatalf("expected similarity ~0.0 for orthogonal vectors, got %f", got)
	}
}

func TestCosineSimilarityMismatchedLengthIsZero(t *testing.T) {
	got := CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0})
	if got != 0 {
		t.Fatalf("expected 0 for mismatched lengths, got %f", got)
	}
}
