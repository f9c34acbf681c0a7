// Atomic state store (C7): one-entity-per-file JSON persistence for
// projects, events, and work items, under a fixed directory hierarchy
// rooted at a configurable base path. Every write goes through a
// temp-file-then-rename sequence so a crash mid-write never leaves a
// corrupt entity on disk.
//
// Grounded on commander-persistence/src/state_store.rs (directory
// layout, save/load/list semantics, skip-on-parse-error listing) from
// the original Rust implementation, and on the teacher's own atomic-save
// idiom in internal/sessions/manager.go's Save (CreateTemp in the target
// directory, Sync, then os.Rename).
package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"

	"github.com/bobmatnyc/ai-commander-sub001/internal/model"
)

// StateStore is the C7 atomic state store over projects, events, and
// work items, backed by one JSON file per entity under base.
type StateStore struct {
	base string
}

// NewStateStore constructs a StateStore rooted at base. Directories are
// created lazily on first write.
func NewStateStore(base string) *StateStore {
	return &StateStore{base: base}
}

func (s *StateStore) projectPath(id string) string {
	return filepath.Join(s.base, "projects", id+".json")
}

func (s *StateStore) eventPath(projectID, id string) string {
	return filepath.Join(s.base, "events", projectID, id+".json")
}

func (s *StateStore) workPath(projectID, id string) string {
	return filepath.Join(s.base, "work", projectID, id+".json")
}

// writeAtomic marshals v to indented JSON and writes it to path via a
// temp file in the same directory followed by an atomic rename.
func writeAtomic(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &model.IOError{Path: dir, Cause: err}
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &model.IOError{Path: path, Cause: err}
	}
	tmp, err := os.CreateTemp(dir, "state-*.tmp")
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
	if err := os.Rename(tmpPath, path); err != nil {
		return &model.IOError{Path: path, Cause: err}
	}
	cleanup = false
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &model.NotFoundError{Kind: "state file", ID: path}
		}
		return &model.IOError{Path: path, Cause: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &model.IOError{Path: path, Cause: err}
	}
	return nil
}

// SaveProject persists p atomically.
func (s *StateStore) SaveProject(p *model.Project) error {
	return writeAtomic(s.projectPath(p.ID), p)
}

// LoadProject reads a project by id, returning *model.NotFoundError if
// absent.
func (s *StateStore) LoadProject(id string) (*model.Project, error) {
	var p model.Project
	if err := readJSON(s.projectPath(id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadProjectOptional is LoadProject but returns (nil, nil) instead of a
// NotFoundError, for callers that treat "absent" as a normal case.
func (s *StateStore) LoadProjectOptional(id string) (*model.Project, error) {
	p, err := s.LoadProject(id)
	if err != nil {
		var nf *model.NotFoundError
		if errors.As(err, &nf) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// DeleteProject removes a project's file. Not an error if already absent.
func (s *StateStore) DeleteProject(id string) error {
	if err := os.Remove(s.projectPath(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &model.IOError{Path: s.projectPath(id), Cause: err}
	}
	return nil
}

// ListProjectIDs enumerates every project id on disk, skipping any
// directory entry that isn't a .json file.
func (s *StateStore) ListProjectIDs() ([]string, error) {
	return listIDs(filepath.Join(s.base, "projects"))
}

// ListAllProjects loads every project, logging and skipping (not
// failing on) any file that fails to parse.
func (s *StateStore) ListAllProjects(onSkip func(id string, err error)) ([]*model.Project, error) {
	ids, err := s.ListProjectIDs()
	if err != nil {
		return nil, err
	}
	var out []*model.Project
	for _, id := range ids {
		p, err := s.LoadProject(id)
		if err != nil {
			if onSkip != nil {
				onSkip(id, err)
			}
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// SaveEvent persists ev atomically under its project's event directory.
func (s *StateStore) SaveEvent(ev *model.Event) error {
	return writeAtomic(s.eventPath(ev.ProjectID, ev.ID), ev)
}

// LoadEvent reads an event by project and event id.
func (s *StateStore) LoadEvent(projectID, id string) (*model.Event, error) {
	var ev model.Event
	if err := readJSON(s.eventPath(projectID, id), &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// DeleteEvent removes an event's file. Not an error if already absent.
func (s *StateStore) DeleteEvent(projectID, id string) error {
	path := s.eventPath(projectID, id)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &model.IOError{Path: path, Cause: err}
	}
	return nil
}

// ListEvents returns every event for a project, sorted by created-at
// descending (newest first), per spec.md §4.7. Files that fail to parse
// are skipped via onSkip rather than failing the whole listing.
func (s *StateStore) ListEvents(projectID string, onSkip func(id string, err error)) ([]*model.Event, error) {
	ids, err := listIDs(filepath.Join(s.base, "events", projectID))
	if err != nil {
		return nil, err
	}
	var out []*model.Event
	for _, id := range ids {
		ev, err := s.LoadEvent(projectID, id)
		if err != nil {
			if onSkip != nil {
				onSkip(id, err)
			}
			continue
		}
		out = append(out, ev)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// SaveWorkItem persists w atomically under its project's work directory.
func (s *StateStore) SaveWorkItem(w *model.WorkItem) error {
	return writeAtomic(s.workPath(w.ProjectID, w.ID), w)
}

// LoadWorkItem reads a work item by project and id.
func (s *StateStore) LoadWorkItem(projectID, id string) (*model.WorkItem, error) {
	var w model.WorkItem
	if err := readJSON(s.workPath(projectID, id), &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// DeleteWorkItem removes a work item's file. Not an error if already
// absent.
func (s *StateStore) DeleteWorkItem(projectID, id string) error {
	path := s.workPath(projectID, id)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &model.IOError{Path: path, Cause: err}
	}
	return nil
}

// ListWorkItems returns every work item for a project, sorted by
// priority descending then created-at ascending, per spec.md §4.7.
func (s *StateStore) ListWorkItems(projectID string, onSkip func(id string, err error)) ([]*model.WorkItem, error) {
	ids, err := listIDs(filepath.Join(s.base, "work", projectID))
	if err != nil {
		return nil, err
	}
	var out []*model.WorkItem
	for _, id := range ids {
		w, err := s.LoadWorkItem(projectID, id)
		if err != nil {
			if onSkip != nil {
				onSkip(id, err)
			}
			continue
		}
		out = append(out, w)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// listIDs enumerates the entity ids (filename without .json) present in
// dir. A missing directory yields an empty list, not an error: a
// project with no events or work items yet is normal.
func listIDs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &model.IOError{Path: dir, Cause: err}
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		const suffix = ".json"
		if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
			ids = append(ids, name[:len(name)-len(suffix)])
		}
	}
	return ids, nil
}
