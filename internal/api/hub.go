package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ducminhle1904/smart-ea/internal/journal"
	"github.com/ducminhle1904/smart-ea/internal/logger"
)

// Hub fans journal events out to websocket clients.
type Hub struct {
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	lock      sync.Mutex
	logger    *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Discard()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 64),
		logger:    log,
	}
}

// Run delivers broadcasts until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.lock.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.lock.Unlock()
			return
		case message := <-h.broadcast:
			h.lock.Lock()
			for client := range h.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					client.Close()
					delete(h.clients, client)
				}
			}
			h.lock.Unlock()
		}
	}
}

// Broadcast queues msg for delivery. It drops the message and returns false
// when the queue is full.
func (h *Hub) Broadcast(msg []byte) bool {
	select {
	case h.broadcast <- msg:
		return true
	default:
		h.logger.Warning("websocket broadcast queue full, dropping message")
		return false
	}
}

// BroadcastEvent sends a journal event as JSON.
func (h *Hub) BroadcastEvent(e journal.Event) {
	msg, err := json.Marshal(e)
	if err != nil {
		h.logger.LogError("encode websocket event", err)
		return
	}
	h.Broadcast(msg)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and registers the connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warning("websocket upgrade failed: %v", err)
		return
	}
	h.lock.Lock()
	h.clients[conn] = true
	h.lock.Unlock()

	// Clients only listen; reading drains control frames and notices closes.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.lock.Lock()
				if h.clients[conn] {
					conn.Close()
					delete(h.clients, conn)
				}
				h.lock.Unlock()
				return
			}
		}
	}()
}
