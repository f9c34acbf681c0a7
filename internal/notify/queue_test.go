package notify

import (
	"context"
	"testing"
	"time"

	"github.com/bobmatnyc/ai-commander-sub001/internal/model"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	q, err := NewQueue(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return q
}

func TestPushAndGetUnread(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	if _, err := q.Push(ctx, "session ready", "commander-demo"); err != nil {
		t.Fatal(err)
	}

	unread, err := q.GetUnread(ctx, "telegram")
	if err != nil {
		t.Fatal(err)
	}
	if len(unread) != 1 || unread[0].Message != "session ready" {
		t.Fatalf("unread = %+v", unread)
	}
}

func TestMarkReadIsPerChannel(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	n, err := q.Push(ctx, "hello", "")
	if err != nil {
		t.Fatal(err)
	}

	if err := q.MarkRead(ctx, "telegram", []string{n.ID}); err != nil {
		t.Fatal(err)
	}

	telegramUnread, _ := q.GetUnread(ctx, "telegram")
	if len(telegramUnread) != 0 {
		t.Fatalf("telegram unread = %+v, want empty", telegramUnread)
	}
	tuiUnread, _ := q.GetUnread(ctx, "tui")
	if len(tuiUnread) != 1 {
		t.Fatalf("tui unread = %+v, want 1", tuiUnread)
	}
}

func TestExpiredNotificationsAreDroppedOnPush(t *testing.T) {
	q := newTestQueue(t)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return start }
	ctx := context.Background()

	if _, err := q.Push(ctx, "old", ""); err != nil {
		t.Fatal(err)
	}

	q.now = func() time.Time { return start.Add(2 * time.Hour) }
	if _, err := q.Push(ctx, "new", ""); err != nil {
		t.Fatal(err)
	}

	unread, err := q.GetUnread(ctx, "telegram")
	if err != nil {
		t.Fatal(err)
	}
	if len(unread) != 1 || unread[0].Message != "new" {
		t.Fatalf("unread = %+v, want only the fresh notification", unread)
	}
}

func TestQueueEvictsOldestOverCapacity(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < model.MaxNotifications; i++ {
		pushTime := base.Add(time.Duration(i) * time.Second)
		q.now = func() time.Time { return pushTime }
		if _, err := q.Push(ctx, "filler", ""); err != nil {
			t.Fatal(err)
		}
	}

	q.now = func() time.Time { return base.Add(time.Duration(model.MaxNotifications) * time.Second) }
	newest, err := q.Push(ctx, "newest", "")
	if err != nil {
		t.Fatal(err)
	}

	unread, err := q.GetUnread(ctx, "channel")
	if err != nil {
		t.Fatal(err)
	}
	if len(unread) != model.MaxNotifications {
		t.Fatalf("unread count = %d, want %d", len(unread), model.MaxNotifications)
	}
	found := false
	for _, n := range unread {
		if n.ID == newest.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("expected the newest push to survive eviction")
	}
}

func TestQueuePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	q, err := NewQueue(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := q.Push(ctx, "persisted", ""); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewQueue(dir)
	if err != nil {
		t.Fatal(err)
	}
	unread, err := reopened.GetUnread(ctx, "channel")
	if err != nil {
		t.Fatal(err)
	}
	if len(unread) != 1 {
		t.Fatalf("unread = %+v", unread)
	}
}
