package server

import (
	"net/http"
	"os"
	"regexp"
	"sync"
)

// HandleConfig returns the playback configuration the viewer page needs.
// A missing playback URL means the deployment is not configured for
// playback; the viewer shows a retry action against this endpoint.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.cfg.ValidatePlaybackReady(); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "playback not configured",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"channelArn":     h.cfg.ChannelARN,
		"playbackUrl":    h.cfg.PlaybackURL,
		"ingestEndpoint": h.cfg.IngestEndpoint,
		"apiEndpoint":    h.cfg.APIEndpoint,
	})
}

// debugConfigKeys is the explicit allow list for the debug snapshot. Only
// names listed here can ever be returned; the deny pattern is a second
// guard against sensitive names slipping into the list.
var debugConfigKeys = []string{
	"AWS_REGION",
	"CHANNEL_ARN",
	"PLAYBACK_URL",
	"INGEST_ENDPOINT",
	"API_ENDPOINT",
	"COMMENT_STORE_BACKEND",
	"COMMENT_POLL_INTERVAL",
	"DATA_DIR",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"ENV",
	"REDIS_CACHE_TTL",
}

var sensitiveKeyPattern = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`(?i)(secret|token|password|key|dsn|credential|auth)`)
})

// HandleDebugConfig returns the effective values of the allow-listed
// configuration names. Values are read from the environment at request time
// so overrides show up without a restart.
func (h *Handlers) HandleDebugConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	out := map[string]string{}
	for _, k := range debugConfigKeys {
		if sensitiveKeyPattern().MatchString(k) {
			continue
		}
		if v := os.Getenv(k); v != "" {
			out[k] = v
		}
	}
	writeJSON(w, http.StatusOK, out)
}
