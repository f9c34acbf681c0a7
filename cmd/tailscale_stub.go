//go:build !tsnet

package cmd

import (
	"context"

	"github.com/bobmatnyc/ai-commander-sub001/internal/config"
	"github.com/bobmatnyc/ai-commander-sub001/internal/notify"
)

// startTailscaleListener is a no-op in the default build. Build with
// `-tags tsnet` to join a tailnet and expose the remote-pairing
// listener implemented in tailscale_tsnet.go.
func startTailscaleListener(_ context.Context, cfg config.TailscaleConfig, _ *notify.Queue) (func(), error) {
	if cfg.Hostname != "" {
		return nil, nil
	}
	return nil, nil
}
