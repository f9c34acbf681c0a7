//go:build tsnet

package cmd

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"tailscale.com/tsnet"

	"github.com/bobmatnyc/ai-commander-sub001/internal/config"
	"github.com/bobmatnyc/ai-commander-sub001/internal/notify"
)

// startTailscaleListener joins the configured tailnet and serves
// GET /unread?channel=<name> over it, so a second device on the same
// tailnet can poll the shared notification queue (C12) without any
// pairing-code exchange or public ingress. Compiled only with
// `go build -tags tsnet`.
func startTailscaleListener(ctx context.Context, cfg config.TailscaleConfig, queue *notify.Queue) (func(), error) {
	if cfg.Hostname == "" {
		return nil, nil
	}

	srv := &tsnet.Server{
		Hostname:  cfg.Hostname,
		Dir:       cfg.StateDir,
		AuthKey:   cfg.AuthKey,
		Ephemeral: cfg.Ephemeral,
	}

	var ln net.Listener
	var err error
	if cfg.EnableTLS {
		ln, err = srv.ListenTLS("tcp", ":443")
	} else {
		ln, err = srv.Listen("tcp", ":80")
	}
	if err != nil {
		srv.Close()
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/unread", func(w http.ResponseWriter, r *http.Request) {
		channel := r.URL.Query().Get("channel")
		if channel == "" {
			http.Error(w, "missing channel query parameter", http.StatusBadRequest)
			return
		}
		unread, err := queue.GetUnread(r.Context(), channel)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(unread)
	})

	httpSrv := &http.Server{Handler: mux, TLSConfig: &tls.Config{}}
	go func() {
		if err := httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Warn("tsnet listener exited", "error", err)
		}
	}()
	slog.Info("tsnet remote-pairing listener started", "hostname", cfg.Hostname)

	return func() {
		httpSrv.Close()
		srv.Close()
	}, nil
}
