// WebSocket server for real-time sync events (desktop only).
package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kbradley/liftlog/internal/logging"
	"github.com/kbradley/liftlog/internal/syncer"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Only allow connections from localhost
		return strings.HasPrefix(r.Host, "localhost") || strings.HasPrefix(r.Host, "127.0.0.1")
	},
}

// WebSocket event types.
const (
	EventSyncStateChanged = "sync.state_changed"
	EventSyncStarted      = "sync.started"
	EventSyncCompleted    = "sync.completed"
	EventSyncFailed       = "sync.failed"
)

// WSEnvelope wraps all WebSocket messages.
type WSEnvelope struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	Timestamp int64                  `json:"timestamp"`
}

// WSClient represents one WebSocket client connection.
type WSClient struct {
	id            string
	conn          *websocket.Conn
	send          chan []byte
	hub           *WSHub
	subscriptions map[string]bool
}

// WSHub maintains active client connections and broadcasts messages.
type WSHub struct {
	clients    map[string]*WSClient
	broadcast  chan []byte
	register   chan *WSClient
	unregister chan *WSClient
	logger     *logging.Logger
	mu         sync.RWMutex
}

// NewWSHub creates a hub and starts its broadcast loop.
func NewWSHub(logger *logging.Logger) *WSHub {
	if logger == nil {
		logger = logging.Get()
	}
	hub := &WSHub{
		clients:    make(map[string]*WSClient),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		logger:     logger,
	}
	go hub.run()
	return hub
}

func (h *WSHub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("websocket client connected", map[string]interface{}{
				"client_id": client.id,
				"total":     total,
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for id, client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Send buffer full, drop the connection.
					close(client.send)
					delete(h.clients, id)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends an event to all connected clients.
func (h *WSHub) Broadcast(messageType string, data map[string]interface{}) {
	envelope := WSEnvelope{
		Type:      messageType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		h.logger.Error("failed to marshal websocket message", err, nil)
		return
	}
	h.broadcast <- bytes
}

// BroadcastSyncStatus publishes an engine state transition.
func (h *WSHub) BroadcastSyncStatus(status syncer.Status) {
	data := map[string]interface{}{
		"state":           string(status.State),
		"online":          status.Online,
		"pending_uploads": status.PendingUploads,
	}
	if status.LastSyncedAt != nil {
		data["last_synced_at"] = *status.LastSyncedAt
	}
	if status.LastError != "" {
		data["last_error"] = status.LastError
	}
	h.Broadcast(EventSyncStateChanged, data)
}

// BroadcastSyncStarted notifies clients that a sync cycle began.
func (h *WSHub) BroadcastSyncStarted() {
	h.Broadcast(EventSyncStarted, map[string]interface{}{
		"status": "started",
	})
}

// BroadcastSyncCompleted notifies clients that a sync cycle finished.
func (h *WSHub) BroadcastSyncCompleted(result *syncer.Result, duration time.Duration) {
	h.Broadcast(EventSyncCompleted, map[string]interface{}{
		"uploaded":   result.Uploaded,
		"downloaded": result.Downloaded,
		"deleted":    result.Deleted,
		"conflicts":  result.Conflicts,
		"duration":   duration.Milliseconds(),
		"status":     "completed",
	})
}

// BroadcastSyncFailed notifies clients that a sync cycle failed.
func (h *WSHub) BroadcastSyncFailed(errorCode string, retryable bool, retryAfter int) {
	h.Broadcast(EventSyncFailed, map[string]interface{}{
		"error_code":  errorCode,
		"retryable":   retryable,
		"retry_after": retryAfter,
		"status":      "failed",
	})
}

// readPump pumps messages from the WebSocket connection.
func (c *WSClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var msg map[string]interface{}
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		action, ok := msg["action"].(string)
		if !ok {
			continue
		}

		switch action {
		case "subscribe":
			if events, ok := msg["events"].([]interface{}); ok {
				for _, e := range events {
					if eventStr, ok := e.(string); ok {
						c.subscriptions[eventStr] = true
					}
				}
				c.sendAck("subscribe_ack", events)
			}

		case "unsubscribe":
			if events, ok := msg["events"].([]interface{}); ok {
				for _, e := range events {
					if eventStr, ok := e.(string); ok {
						delete(c.subscriptions, eventStr)
					}
				}
			}

		case "ping":
			c.sendPong()
		}
	}
}

// writePump pumps messages to the WebSocket connection.
func (c *WSClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WSClient) sendAck(action string, events []interface{}) {
	envelope := map[string]interface{}{
		"action":     action,
		"subscribed": events,
		"timestamp":  time.Now().Unix(),
	}
	bytes, _ := json.Marshal(envelope)
	c.send <- bytes
}

func (c *WSClient) sendPong() {
	envelope := map[string]interface{}{
		"action":    "pong",
		"timestamp": time.Now().Unix(),
	}
	bytes, _ := json.Marshal(envelope)
	c.send <- bytes
}

// HandleWebSocket upgrades connections and registers clients.
func HandleWebSocket(hub *WSHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.logger.Warn("websocket upgrade failed", map[string]interface{}{
				"error": err.Error(),
			})
			return
		}

		client := &WSClient{
			id:            time.Now().Format("20060102150405.000000") + "-" + r.RemoteAddr,
			conn:          conn,
			send:          make(chan []byte, 256),
			hub:           hub,
			subscriptions: make(map[string]bool),
		}
		hub.register <- client

		go client.writePump()
		go client.readPump()
	}
}
