package memory

import (
	"context"

	"github.com/bobmatnyc/ai-commander-sub001/internal/model"
)

// AccessLevel controls which agents' memories a caller may see.
type AccessLevel int

const (
	// AccessOwn restricts every operation to the wrapped agent's own
	// memories. Used for session agents.
	AccessOwn AccessLevel = iota
	// AccessAll grants unrestricted access to every agent's memories.
	// Used for the privileged user agent.
	AccessAll
)

// AccessControlledStore wraps any Store, enforcing Own/All isolation on
// every operation. Grounded on commander-memory/src/store.rs's
// AccessControlledStore.
type AccessControlledStore struct {
	inner   Store
	agentID string
	level   AccessLevel
}

// NewAccessControlledStore wraps inner for agentID at the given level.
func NewAccessControlledStore(inner Store, agentID string, level AccessLevel) *AccessControlledStore {
	return &AccessControlledStore{inner: inner, agentID: agentID, level: level}
}

// Store writes m, forcing its AgentID to the wrapped identity unless the
// caller holds AccessAll (the user agent may write on behalf of any
// agent, e.g. when summarizing a session's memories for it).
func (a *AccessControlledStore) Store(ctx context.Context, m model.Memory) error {
	if a.level == AccessOwn {
		m.AgentID = a.agentID
	}
	return a.inner.Store(ctx, m)
}

// Search runs a scoped search: Own always searches only the wrapped
// agent's memories, ignoring whatever agentID the caller asks for; All
// passes the requested agentID straight through.
func (a *AccessControlledStore) Search(ctx context.Context, queryEmbedding []float32, agentID string, limit int) ([]SearchResult, error) {
	if a.level == AccessOwn {
		agentID = a.agentID
	}
	return a.inner.Search(ctx, queryEmbedding, agentID, limit)
}

// SearchAll runs an unscoped search under All; under Own it still only
// searches the wrapped agent's own memories, since Own never sees across
// agents regardless of which method is called.
func (a *AccessControlledStore) SearchAll(ctx context.Context, queryEmbedding []float32, limit int) ([]SearchResult, error) {
	if a.level == AccessOwn {
		return a.inner.Search(ctx, queryEmbedding, a.agentID, limit)
	}
	return a.inner.SearchAll(ctx, queryEmbedding, limit)
}

// Get returns the memory by id, or nil if it exists but the caller's
// access level doesn't include its owning agent.
func (a *AccessControlledStore) Get(ctx context.Context, id string) (*model.Memory, error) {
	m, err := a.inner.Get(ctx, id)
	if err != nil || m == nil {
		return m, err
	}
	if a.level == AccessOwn && m.AgentID != a.agentID {
		return nil, nil
	}
	return m, nil
}

// Delete removes a memory by id. Own may only delete its own memories;
// deleting another agent's memory under AccessOwn is a silent no-op,
// matching Get's visibility rule rather than raising NotFound.
func (a *AccessControlledStore) Delete(ctx context.Context, id string) error {
	if a.level == AccessOwn {
		m, err := a.inner.Get(ctx, id)
		if err != nil {
			return err
		}
		if m == nil || m.AgentID != a.agentID {
			return nil
		}
	}
	return a.inner.Delete(ctx, id)
}

// List returns memories for the given agentID if the caller holds
// AccessAll, or always the wrapped agent's own memories under AccessOwn
// regardless of the requested agentID.
func (a *AccessControlledStore) List(ctx context.Context, agentID string, limit int) ([]model.Memory, error) {
	if a.level == AccessOwn {
		agentID = a.agentID
	}
	return a.inner.List(ctx, agentID, limit)
}

// Count mirrors List's scoping rule.
func (a *AccessControlledStore) Count(ctx context.Context, agentID string) (int, error) {
	if a.level == AccessOwn {
		agentID = a.agentID
	}
	return a.inner.Count(ctx, agentID)
}

// ClearAgent removes every memory belonging to agentID. Own refuses to
// clear a foreign agent's memories (a silent no-op, matching Delete's
// visibility rule) and otherwise always clears its own.
func (a *AccessControlledStore) ClearAgent(ctx context.Context, agentID string) error {
	if a.level == AccessOwn {
		if agentID != a.agentID {
			return nil
		}
		agentID = a.agentID
	}
	return a.inner.ClearAgent(ctx, agentID)
}
