// Package notify is the cross-channel notification and pairing fabric
// (C12): a shared JSON file broadcast queue that lets a terminal session
// hand a message to every connected channel (Telegram, Discord, ...),
// and a short-lived pairing-code exchange that lets a second channel
// attach itself to a running session without sharing credentials.
package notify

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bobmatnyc/ai-commander-sub001/internal/model"
)

// Queue is a shared, file-backed broadcast queue. Every channel polls
// GetUnread and calls MarkRead for itself; the same notification can be
// read by many channels independently.
//
// Grounded on commander-telegram/src/notifications.rs's load/save/push
// functions, generalized from package-level functions over a single
// well-known path into a type so callers can point it at a test
// directory instead of the user's home directory.
type Queue struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewQueue constructs a Queue backed by notifications.json under dir.
func NewQueue(dir string) (*Queue, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &model.IOError{Path: dir, Cause: err}
	}
	return &Queue{path: filepath.Join(dir, "notifications.json"), now: time.Now}, nil
}

func (q *Queue) load() ([]model.Notification, error) {
	data, err := os.ReadFile(q.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &model.IOError{Path: q.path, Cause: err}
	}
	if len(data) == 0 {
		return nil, nil
	}
	var list []model.Notification
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, &model.IOError{Path: q.path, Cause: err}
	}
	return list, nil
}

func (q *Queue) save(list []model.Notification) error {
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return &model.IOError{Path: q.path, Cause: err}
	}
	dir := filepath.Dir(q.path)
	tmp, err := os.CreateTemp(dir, "notifications-*.tmp")
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
	if err := os.Rename(tmpPath, q.path); err != nil {
		return &model.IOError{Path: q.path, Cause: err}
	}
	cleanup = false
	return nil
}

func dropExpired(list []model.Notification, now time.Time) []model.Notification {
	kept := list[:0]
	for _, n := range list {
		if !n.IsExpired(now) {
			kept = append(kept, n)
		}
	}
	return kept
}

// Push appends a new notification, evicting expired entries first and
// then the oldest surviving entry if the queue is still at capacity.
func (q *Queue) Push(ctx context.Context, message, session string) (*model.Notification, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	list, err := q.load()
	if err != nil {
		return nil, err
	}
	now := q.now()
	list = dropExpired(list, now)
	for len(list) >= model.MaxNotifications {
		list = list[1:]
	}

	n := model.Notification{
		ID:        model.NewID(model.NotificationPrefix),
		Message:   message,
		Session:   session,
		CreatedAt: now,
	}
	list = append(list, n)
	if err := q.save(list); err != nil {
		return nil, err
	}
	return &n, nil
}

// GetUnread returns every non-expired notification that channel has not
// yet marked read.
func (q *Queue) GetUnread(ctx context.Context, channel string) ([]model.Notification, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	list, err := q.load()
	if err != nil {
		return nil, err
	}
	now := q.now()
	var unread []model.Notification
	for _, n := range list {
		if !n.IsExpired(now) && !n.IsReadBy(channel) {
			unread = append(unread, n)
		}
	}
	return unread, nil
}

// MarkRead records channel as having read each of ids. Unknown ids are
// silently ignored.
func (q *Queue) MarkRead(ctx context.Context, channel string, ids []string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	list, err := q.load()
	if err != nil {
		return err
	}
	now := q.now()
	list = dropExpired(list, now)

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for i := range list {
		if want[list[i].ID] {
			if list[i].ReadBy == nil {
				list[i].ReadBy = make(map[string]bool)
			}
			list[i].ReadBy[channel] = true
		}
	}
	return q.save(list)
}
