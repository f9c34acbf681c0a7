package model

import "time"

// ProjectState is the lifecycle state of a project's bound instance.
type ProjectState string

const (
	ProjectIdle    ProjectState = "idle"
	ProjectWorking ProjectState = "working"
	ProjectPaused  ProjectState = "paused"
	ProjectError   ProjectState = "error"
	ProjectStopped ProjectState = "stopped"
)

// Project is the root entity the rest of the system operates on: a
// filesystem-backed codebase with at most one live session binding per
// adapter. State transitions are monotonic within a run unless driven
// explicitly by the executor (C6).
//
// Ownership: exclusively owned by the state store (C7); the executor (C6)
// holds only a reference to a clone.
type Project struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Path             string            `json:"path"`
	State            ProjectState      `json:"state"`
	StateReason      string            `json:"state_reason,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	LastActivity     time.Time         `json:"last_activity"`
	PendingEvents    []string          `json:"pending_events,omitempty"`
	WorkQueue        []string          `json:"work_queue,omitempty"`
	SessionBindings  map[string]string `json:"session_bindings,omitempty"` // adapter id -> session name
}

// NewProject constructs a Project in its initial Idle state.
func NewProject(name, path string) *Project {
	now := time.Now().UTC()
	return &Project{
		ID:              NewID(ProjectPrefix),
		Name:            name,
		Path:            path,
		State:           ProjectIdle,
		CreatedAt:       now,
		LastActivity:    now,
		SessionBindings: make(map[string]string),
	}
}

// Bind records the session name bound to the given adapter id. A project may
// have at most one live session binding per adapter.
func (p *Project) Bind(adapterID, sessionName string) {
	if p.SessionBindings == nil {
		p.SessionBindings = make(map[string]string)
	}
	p.SessionBindings[adapterID] = sessionName
}

// Unbind removes any session binding for the given adapter id.
func (p *Project) Unbind(adapterID string) {
	delete(p.SessionBindings, adapterID)
}

// SetState transitions the project to a new lifecycle state, recording the
// reason and bumping last-activity.
func (p *Project) SetState(state ProjectState, reason string) {
	p.State = state
	p.StateReason = reason
	p.LastActivity = time.Now().UTC()
}
