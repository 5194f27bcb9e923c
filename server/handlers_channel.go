package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/lumaview/ivs-lounge/backend/telemetry"
)

// HandleChannelGet proxies an IVS channel lookup for the viewer page. The
// ARN is the remainder of the path and contains slashes, so the whole tail
// is taken verbatim.
func (h *Handlers) HandleChannelGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.ivs == nil {
		http.Error(w, "ivs api not configured", http.StatusServiceUnavailable)
		return
	}
	arn := strings.TrimPrefix(r.URL.Path, "/api/channel/")
	if arn == "" {
		http.NotFound(w, r)
		return
	}
	ch, err := h.ivs.GetChannel(r.Context(), arn)
	if err != nil {
		telemetry.LoggerWithCorr(r.Context()).Error("channel lookup failed", "arn", arn, "err", err)
		http.Error(w, "channel lookup failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

// HandleAdminChannels lists channels (GET) or creates one (POST).
func (h *Handlers) HandleAdminChannels(w http.ResponseWriter, r *http.Request) {
	if h.ivs == nil {
		http.Error(w, "ivs api not configured", http.StatusServiceUnavailable)
		return
	}
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		chans, err := h.ivs.ListChannels(ctx)
		if err != nil {
			telemetry.LoggerWithCorr(ctx).Error("channel list failed", "err", err)
			http.Error(w, "channel list failed", http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, chans)

	case http.MethodPost:
		var body struct {
			Name        string `json:"name"`
			Type        string `json:"type"`
			LatencyMode string `json:"latencyMode"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(body.Name) == "" {
			http.Error(w, "name required", http.StatusBadRequest)
			return
		}
		ch, key, err := h.ivs.CreateChannel(ctx, body.Name, body.Type, body.LatencyMode)
		if err != nil {
			telemetry.LoggerWithCorr(ctx).Error("channel create failed", "name", body.Name, "err", err)
			http.Error(w, "channel create failed", http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"channel":   ch,
			"streamKey": key,
		})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleAdminChannelDispatcher routes /admin/channels/{arn}/stream-key. The
// ARN contains slashes, so the suffix is matched first and the remainder is
// the ARN.
func (h *Handlers) HandleAdminChannelDispatcher(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/admin/channels/")
	if arn, ok := strings.CutSuffix(path, "/stream-key"); ok {
		h.handleAdminStreamKey(w, r, arn)
		return
	}
	http.NotFound(w, r)
}

func (h *Handlers) handleAdminStreamKey(w http.ResponseWriter, r *http.Request, arn string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.ivs == nil {
		http.Error(w, "ivs api not configured", http.StatusServiceUnavailable)
		return
	}
	if arn == "" {
		http.NotFound(w, r)
		return
	}
	key, err := h.ivs.GetStreamKey(r.Context(), arn)
	if err != nil {
		telemetry.LoggerWithCorr(r.Context()).Error("stream key lookup failed", "arn", arn, "err", err)
		http.Error(w, "stream key lookup failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, key)
}
