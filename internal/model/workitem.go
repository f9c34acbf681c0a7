package model

import "time"

// WorkState is the lifecycle of a work item.
type WorkState string

const (
	WorkPending    WorkState = "pending"
	WorkQueued     WorkState = "queued"
	WorkInProgress WorkState = "in_progress"
	WorkBlocked    WorkState = "blocked"
	WorkCompleted  WorkState = "completed"
	WorkFailed     WorkState = "failed"
	WorkCancelled  WorkState = "cancelled"
)

// WorkPriority is a total order: Low < Medium < High < Critical.
type WorkPriority int

const (
	WorkPriorityLow WorkPriority = iota
	WorkPriorityMedium
	WorkPriorityHigh
	WorkPriorityCritical
)

// WorkItem is a unit of work tracked against a project.
//
// Invariant: a work item may start only when every item in its dependency
// list is in state Completed.
type WorkItem struct {
	ID          string         `json:"id"`
	ProjectID   string         `json:"project_id"`
	Content     string         `json:"content"`
	State       WorkState      `json:"state"`
	Priority    WorkPriority   `json:"priority"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Result      string         `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	DependsOn   []string       `json:"depends_on,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// NewWorkItem constructs a pending work item for a project.
func NewWorkItem(projectID, content string, priority WorkPriority) *WorkItem {
	return &WorkItem{
		ID:        NewID(WorkPrefix),
		ProjectID: projectID,
		Content:   content,
		State:     WorkPending,
		Priority:  priority,
		CreatedAt: time.Now().UTC(),
	}
}

// CanStart reports whether the work item may begin, given the set of work
// item ids that are currently Completed. A work item with an empty
// dependency list can always start. A self-referential or cyclic dependency
// (detected elsewhere at enqueue time, see model.DetectCycle) makes
// CanStart return false forever — this is a flagged boundary behavior, not
// a hard error.
func (w *WorkItem) CanStart(completedIDs map[string]bool) bool {
	for _, dep := range w.DependsOn {
		if !completedIDs[dep] {
			return false
		}
	}
	return true
}

// Start transitions the item to InProgress, stamping started-at.
func (w *WorkItem) Start() {
	now := time.Now().UTC()
	w.State = WorkInProgress
	w.StartedAt = &now
}

// Complete transitions the item to Completed with the given result.
func (w *WorkItem) Complete(result string) {
	now := time.Now().UTC()
	w.State = WorkCompleted
	w.Result = result
	w.CompletedAt = &now
}

// Fail transitions the item to Failed with the given error.
func (w *WorkItem) Fail(cause string) {
	now := time.Now().UTC()
	w.State = WorkFailed
	w.Error = cause
	w.CompletedAt = &now
}

// DetectCycle reports whether adding edges (from -> to) for the given work
// item id into the existing dependency graph would introduce a cycle,
// including the trivial self-dependency case. items maps a work item id to
// its current dependency list.
func DetectCycle(id string, dependsOn []string, items map[string][]string) bool {
	visited := make(map[string]bool)
	var visit func(string) bool
	visit = func(cur string) bool {
		if cur == id {
			return true
		}
		if visited[cur] {
			return false
		}
		visited[cur] = true
		for _, dep := range items[cur] {
			if visit(dep) {
				return true
			}
		}
		return false
	}
	for _, dep := range dependsOn {
		if dep == id {
			return true
		}
		if visit(dep) {
			return true
		}
	}
	return false
}
