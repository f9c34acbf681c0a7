package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bobmatnyc/ai-commander-sub001/internal/model"
)

func TestSaveLoadProjectRoundTrip(t *testing.T) {
	s := NewStateStore(t.TempDir())
	p := model.NewProject("widgets", "/tmp/widgets")
	if err := s.SaveProject(p); err != nil {
		t.Fatalf("SaveProject: %v", err)
	}
	got, err := s.LoadProject(p.ID)
	if err != nil {
		t.Fatalf("LoadProject: %v", err)
	}
	if got.Name != "widgets" || got.ID != p.ID {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestLoadProjectNotFound(t *testing.T) {
	s := NewStateStore(t.TempDir())
	_, err := s.LoadProject("proj-nonexistent")
	if _, ok := err.(*model.NotFoundError); !ok {
		t.Fatalf("expected *model.NotFoundError, got %T: %v", err, err)
	}
}

func TestLoadProjectOptionalReturnsNilNil(t *testing.T) {
	s := NewStateStore(t.TempDir())
	p, err := s.LoadProjectOptional("proj-nonexistent")
	if err != nil || p != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", p, err)
	}
}

func TestSaveIsAtomicNoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	s := NewStateStore(dir)
	p := model.NewProject("atomic", "/tmp/atomic")
	if err := s.SaveProject(p); err != nil {
		t.Fatalf("SaveProject: %v", err)
	}
	entries, err := os.ReadDir(filepath.Join(dir, "projects"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != p.ID+".json" {
		t.Fatalf("expected exactly one final project file, got %v", entries)
	}
}

func TestDeleteProjectMissingIsNotAnError(t *testing.T) {
	s := NewStateStore(t.TempDir())
	if err := s.DeleteProject("proj-never-existed"); err != nil {
		t.Fatalf("expected deleting a missing project to be a no-op, got %v", err)
	}
}

func TestListProjectIDsEmptyDirIsEmptyNotError(t *testing.T) {
	s := NewStateStore(t.TempDir())
	ids, err := s.ListProjectIDs()
	if err != nil || len(ids) != 0 {
		t.Fatalf("expected empty, nil-error listing, got %v, %v", ids, err)
	}
}

func TestListAllProjectsSkipsUnparseableFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewStateStore(dir)
	good := model.NewProject("good", "/tmp/good")
	if err := s.SaveProject(good); err != nil {
		t.Fatalf("SaveProject: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "projects"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "projects", "proj-corrupt.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	var skipped []string
	projects, err := s.ListAllProjects(func(id string, err error) { skipped = append(skipped, id) })
	if err != nil {
		t.Fatalf("ListAllProjects: %v", err)
	}
	if len(projects) != 1 || projects[0].ID != good.ID {
		t.Fatalf("expected only the good project to load, got %+v", projects)
	}
	if len(skipped) != 1 || skipped[0] != "proj-corrupt" {
		t.Fatalf("expected the corrupt file to be reported skipped, got %v", skipped)
	}
}

func TestListEventsSortedByCreatedAtDescending(t *testing.T) {
	s := NewStateStore(t.TempDir())
	projectID := "proj-events"
	older := &model.Event{ID: "evt-1", ProjectID: projectID, CreatedAt: time.Now().Add(-time.Hour)}
	newer := &model.Event{ID: "evt-2", ProjectID: projectID, CreatedAt: time.Now()}
	if err := s.SaveEvent(older); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveEvent(newer); err != nil {
		t.Fatal(err)
	}
	events, err := s.ListEvents(projectID, nil)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 2 || events[0].ID != "evt-2" || events[1].ID != "evt-1" {
		t.Fatalf("expected newest-first order, got %+v", events)
	}
}

func TestListWorkItemsSortedByPriorityThenCreatedAt(t *testing.T) {
	s := NewStateStore(t.TempDir())
	projectID := "proj-work"
	now := time.Now()
	low := &model.WorkItem{ID: "work-1", ProjectID: projectID, Priority: model.WorkPriorityLow, CreatedAt: now}
	highEarlier := &model.WorkItem{ID: "work-2", ProjectID: projectID, Priority: model.WorkPriorityHigh, CreatedAt: now.Add(-time.Minute)}
	highLater := &model.WorkItem{ID: "work-3", ProjectID: projectID, Priority: model.WorkPriorityHigh, CreatedAt: now}
	for _, w := range []*model.WorkItem{low, highEarlier, highLater} {
		if err := s.SaveWorkItem(w); err != nil {
			t.Fatal(err)
		}
	}
	items, err := s.ListWorkItems(projectID, nil)
	if err != nil {
		t.Fatalf("ListWorkItems: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].ID != "work-2" || items[1].ID != "work-3" || items[2].ID != "work-1" {
		t.Fatalf("expected [work-2, work-3, work-1] (priority desc, then created-at asc), got %v", []string{items[0].ID, items[1].ID, items[2].ID})
	}
}

func TestDeleteWorkItemMissingIsNotAnError(t *testing.T) {
	s := NewStateStore(t.TempDir())
	if err := s.DeleteWorkItem("proj-x", "work-never-existed"); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}
