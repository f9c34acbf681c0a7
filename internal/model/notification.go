package model

import "time"

// NotificationExpiry is the lifetime of a notification before it is evicted
// on the next load, per spec.
const NotificationExpiry = 1 * time.Hour

// MaxNotifications bounds the queue; oldest entries are evicted first when
// over cap.
const MaxNotifications = 100

// Notification is a single cross-channel message with per-channel
// read-tracking.
type Notification struct {
	ID        string          `json:"id"`
	Message   string          `json:"message"`
	Session   string          `json:"session,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	ReadBy    map[string]bool `json:"read_by,omitempty"`
}

// IsExpired reports whether the notification is older than
// NotificationExpiry relative to now.
func (n *Notification) IsExpired(now time.Time) bool {
	return now.Sub(n.CreatedAt) >= NotificationExpiry
}

// IsReadBy reports whether the given channel has already marked this
// notification read.
func (n *Notification) IsReadBy(channel string) bool {
	return n.ReadBy != nil && n.ReadBy[channel]
}

// PairingExpiry is the lifetime of an unconsumed pairing code.
const PairingExpiry = 5 * time.Minute

// PairingAlphabet excludes visually ambiguous characters (I, O, 0, 1).
const PairingAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// PairingCodeLength is the fixed length of a pairing code.
const PairingCodeLength = 6

// Pairing associates a short-lived code with a project/session pair.
type Pairing struct {
	ProjectName string    `json:"project_name"`
	SessionName string    `json:"session_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsExpired reports whether the pairing is older than PairingExpiry
// relative to now.
func (p *Pairing) IsExpired(now time.Time) bool {
	return now.Sub(p.CreatedAt) >= PairingExpiry
}
