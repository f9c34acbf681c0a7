package autoeval

import (
	"context"
	"testing"

	"github.com/bobmatnyc/ai-commander-sub001/internal/model"
)

func TestStoreAppendAndList(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	rec := *model.NewFeedbackRecord("session-1", model.FeedbackPositive, "thanks!", "glad it helped")
	if err := store.Append(context.Background(), rec); err != nil {
		t.Fatal(err)
	}

	records, err := store.List(context.Background(), "session-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].ID != rec.ID {
		t.Fatalf("records = %+v", records)
	}
}

func TestStoreListMissingAgentReturnsEmpty(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	records, err := store.List(context.Background(), "never-seen")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Fatalf("records = %+v, want empty", records)
	}
}

func TestStoreIsolatesAgents(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := store.Append(ctx, *model.NewFeedbackRecord("session-1", model.FeedbackPositive, "a", "b")); err != nil {
		t.Fatal(err)
	}
	if err := store.Append(ctx, *model.NewFeedbackRecord("session-2", model.FeedbackExplicitNegative, "c", "d")); err != nil {
		t.Fatal(err)
	}

	r1, _ := store.List(ctx, "session-1")
	r2, _ := store.List(ctx, "session-2")
	if len(r1) != 1 || len(r2) != 1 {
		t.Fatalf("r1=%v r2=%v", r1, r2)
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := store.Append(ctx, *model.NewFeedbackRecord("session-1", model.FeedbackCorrection, "a", "b")); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	records, err := reopened.List(ctx, "session-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %+v", records)
	}
}

func TestSummaryForAggregatesByType(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	agentID := "session-1"
	for _, typ := range []model.FeedbackType{
		model.FeedbackPositive,
		model.FeedbackPositive,
		model.FeedbackExplicitNegative,
		model.FeedbackCorrection,
		model.FeedbackErrorSignal,
		model.FeedbackImplicitRetry,
	} {
		if err := store.Append(ctx, *model.NewFeedbackRecord(agentID, typ, "x", "y")); err != nil {
			t.Fatal(err)
		}
	}

	sum, err := store.SummaryFor(ctx, agentID)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Total != 6 {
		t.Fatalf("total = %d", sum.Total)
	}
	if sum.Positive != 2 {
		t.Fatalf("positive = %d", sum.Positive)
	}
	if sum.Negative != 2 { // ExplicitNegative + Correction
		t.Fatalf("negative = %d", sum.Negative)
	}
	if sum.Errors != 1 {
		t.Fatalf("errors = %d", sum.Errors)
	}
	if sum.Retries != 1 {
		t.Fatalf("retries = %d", sum.Retries)
	}
}
