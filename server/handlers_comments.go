package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/lumaview/ivs-lounge/backend/comments"
	"github.com/lumaview/ivs-lounge/backend/store"
	"github.com/lumaview/ivs-lounge/backend/telemetry"
)

// HandleCommentsDispatcher routes requests under /api/comments/{channelId}/*.
func (h *Handlers) HandleCommentsDispatcher(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/comments/")
	parts := strings.Split(path, "/")
	channelID := parts[0]
	tail := ""
	if len(parts) > 1 {
		tail = strings.Join(parts[1:], "/")
	}
	switch {
	case channelID == "":
		http.NotFound(w, r)
	case tail == "":
		h.handleCommentsThread(w, r, channelID)
	case tail == "stream":
		h.handleCommentsSSE(w, r, channelID)
	case tail == "ws":
		h.handleCommentsWS(w, r, channelID)
	case strings.HasSuffix(tail, "/like"):
		h.handleCommentLike(w, r, channelID, strings.TrimSuffix(tail, "/like"))
	default:
		http.NotFound(w, r)
	}
}

// handleCommentsThread serves the comment sequence for a channel: GET reads
// it, POST appends one comment, PUT replaces it wholesale (the sync engine's
// persistence path).
func (h *Handlers) handleCommentsThread(w http.ResponseWriter, r *http.Request, channelID string) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		seq, err := h.store.Get(ctx, channelID)
		if err != nil {
			telemetry.LoggerWithCorr(ctx).Error("comment fetch failed", "channel", channelID, "err", err)
			http.Error(w, "comment store unavailable", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, seq)

	case http.MethodPost:
		var body struct {
			Text     string `json:"text"`
			Username string `json:"username"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(body.Text) == "" {
			http.Error(w, "text required", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(body.Username) == "" {
			http.Error(w, "username required", http.StatusBadRequest)
			return
		}
		c := comments.New(body.Text, body.Username)
		if err := store.Append(ctx, h.store, channelID, c); err != nil {
			telemetry.LoggerWithCorr(ctx).Error("comment append failed", "channel", channelID, "err", err)
			http.Error(w, "comment store unavailable", http.StatusServiceUnavailable)
			return
		}
		telemetry.IncCommentsPosted()
		h.broadcastComment(channelID, "comment", c)
		writeJSON(w, http.StatusCreated, c)

	case http.MethodPut:
		var seq []comments.Comment
		if err := json.NewDecoder(r.Body).Decode(&seq); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := h.store.Put(ctx, channelID, seq); err != nil {
			telemetry.LoggerWithCorr(ctx).Error("comment replace failed", "channel", channelID, "err", err)
			http.Error(w, "comment store unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handlers) handleCommentLike(w http.ResponseWriter, r *http.Request, channelID, commentID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	c, err := store.Like(ctx, h.store, channelID, commentID)
	if errors.Is(err, comments.ErrNotFound) {
		http.Error(w, "comment not found", http.StatusNotFound)
		return
	}
	if err != nil {
		telemetry.LoggerWithCorr(ctx).Error("comment like failed", "channel", channelID, "err", err)
		http.Error(w, "comment store unavailable", http.StatusServiceUnavailable)
		return
	}
	telemetry.IncCommentsLiked()
	h.broadcastComment(channelID, "like", c)
	writeJSON(w, http.StatusOK, c)
}

// handleCommentsSSE streams new comments for a channel as Server-Sent Events.
func (h *Handlers) handleCommentsSSE(w http.ResponseWriter, r *http.Request, channelID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	ctx := r.Context()
	sub := h.feed.subscribe(channelID)
	defer h.feed.unsubscribe(channelID, sub)
	telemetry.AddFeedClients(1)
	defer telemetry.AddFeedClients(-1)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	enc := json.NewEncoder(w)
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-sub:
			if _, err := w.Write([]byte("data: ")); err != nil {
				return
			}
			if err := enc.Encode(c); err != nil {
				return
			}
			if _, err := w.Write([]byte("\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// broadcastComment fans a comment event out to both live feeds.
func (h *Handlers) broadcastComment(channelID, kind string, c comments.Comment) {
	h.feed.publish(channelID, c)
	if h.hub != nil {
		h.hub.Broadcast(kind, channelID, c)
	}
}
