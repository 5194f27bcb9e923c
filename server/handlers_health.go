package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HandleHealthz responds to liveness probe requests. When a database is
// wired it must answer a ping; the memory and file backends have nothing to
// check.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness probe requests with per-dependency
// checks.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"comment_store", func() error {
			_, err := h.store.Get(r.Context(), "readyz-probe")
			return err
		}},
		{"database", func() error {
			if h.db == nil {
				return nil
			}
			return h.db.PingContext(r.Context())
		}},
		{"playback_config", func() error {
			return h.cfg.ValidatePlaybackReady()
		}},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

// HandleStatus returns a lightweight operational summary.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := map[string]any{
		"uptime":        time.Since(h.start).Round(time.Second).String(),
		"store_backend": h.cfg.CommentStoreBackend,
		"poll_interval": h.cfg.CommentPollInterval.String(),
		"ivs_enabled":   h.ivs != nil,
	}
	if h.cfg.ChannelARN != "" {
		resp["channel_arn"] = h.cfg.ChannelARN
	}
	if h.db != nil {
		stats := h.db.Stats()
		resp["db_open_conns"] = stats.OpenConnections
		resp["db_in_use"] = stats.InUse
	}
	if err := h.cfg.ValidatePlaybackReady(); err != nil {
		resp["playback"] = fmt.Sprintf("not configured: %v", err)
	} else {
		resp["playback"] = "configured"
	}
	writeJSON(w, http.StatusOK, resp)
}
