package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lumaview/ivs-lounge/backend/telemetry"
)

// wsMessage is the envelope sent to WebSocket clients. Type is "comment" for
// new posts and "like" for like updates.
type wsMessage struct {
	Type      string `json:"type"`
	ChannelID string `json:"channelId"`
	Data      any    `json:"data"`
}

type wsClient struct {
	hub       *wsHub
	conn      *websocket.Conn
	send      chan []byte
	channelID string
}

// wsHub owns all connected WebSocket clients and serializes register,
// unregister, and broadcast through its run loop.
type wsHub struct {
	clients    map[*wsClient]bool
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *wsClient
	done       chan struct{}
}

func newWSHub() *wsHub {
	return &wsHub{
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
	}
}

func (h *wsHub) run() {
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				_ = client.conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(2*time.Second),
				)
				close(client.send)
				delete(h.clients, client)
			}
			slog.Debug("ws hub stopped, all clients disconnected")
			return
		case client := <-h.register:
			h.clients[client] = true
			telemetry.AddFeedClients(1)
			slog.Debug("ws client connected", slog.Int("total", len(h.clients)))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				telemetry.AddFeedClients(-1)
				slog.Debug("ws client disconnected", slog.Int("total", len(h.clients)))
			}
		case msg := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// Close signals the hub to stop and disconnect all clients.
func (h *wsHub) Close() {
	close(h.done)
}

// add registers a client, returning false when the hub has already stopped
// and can no longer service the register channel.
func (h *wsHub) add(c *wsClient) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// remove unregisters a client. Safe to call after the hub has stopped.
func (h *wsHub) remove(c *wsClient) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast sends a typed JSON message to all connected clients. Clients
// filter by channelId on their side; the envelope carries it.
func (h *wsHub) Broadcast(msgType, channelID string, data any) {
	payload, err := json.Marshal(wsMessage{Type: msgType, ChannelID: channelID, Data: data})
	if err != nil {
		slog.Error("ws marshal failed", slog.Any("err", err))
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		// Broadcast channel full, skip this update.
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleCommentsWS upgrades the connection and attaches it to the hub.
func (h *Handlers) handleCommentsWS(w http.ResponseWriter, r *http.Request, channelID string) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", slog.Any("err", err))
		return
	}
	client := &wsClient{hub: h.hub, conn: conn, send: make(chan []byte, 32), channelID: channelID}
	if !h.hub.add(client) {
		_ = conn.Close()
		return
	}
	go client.writePump()
	go client.readPump()
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
