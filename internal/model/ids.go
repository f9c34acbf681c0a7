// Package model defines the shared entity and value types that flow through
// every component of the orchestrator: projects, events, work items, session
// records, adapter info, patterns, change events, memories, feedback
// records, notifications, and pairings.
package model

import "github.com/google/uuid"

// Id prefixes for the opaque entity identifiers. Identifiers are plain
// strings so they remain cheaply cloneable, hashable, and totally ordered
// by simple string comparison.
const (
	ProjectPrefix      = "proj-"
	EventPrefix        = "evt-"
	WorkPrefix         = "work-"
	MemoryPrefix       = "mem-"
	FeedbackPrefix     = "fb-"
	RunPrefix          = "run-"
	NotificationPrefix = "notif-"
)

// NewID returns a new opaque id with the given prefix, e.g. "proj-<uuid>".
func NewID(prefix string) string {
	return prefix + uuid.NewString()
}
