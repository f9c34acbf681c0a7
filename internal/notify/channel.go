package notify

import "context"

// Channel is a transport that forwards unread entries from a Queue to a
// remote chat and lets that chat redeem pairing codes minted by
// PairingStore. Each concrete channel owns its own connection lifecycle;
// Start must not block past the point where the transport is connected.
//
// Grounded on the teacher's internal/channels.Channel interface
// (Start/Stop/Name), narrowed to the two responsibilities this fabric
// actually needs: broadcasting and pairing. The teacher's richer surface
// (streaming previews, group history, per-chat command menus) belongs to
// its own multi-tenant chat product, not this notification fabric.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
