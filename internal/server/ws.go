package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/athrvakulkarni11/auto-mail-sender/internal/models"
)

// StatusHub fans request-status snapshots out to connected WebSocket
// clients. Writes happen only in the run loop, so a slow client never
// blocks a pipeline worker.
type StatusHub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.Mutex
}

func NewStatusHub() *StatusHub {
	return &StatusHub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// Start begins the hub loop.
func (h *StatusHub) Start() {
	go func() {
		for {
			select {
			case conn := <-h.register:
				h.mu.Lock()
				h.clients[conn] = true
				total := len(h.clients)
				h.mu.Unlock()
				log.Printf("🔌 WebSocket client connected, total: %d", total)
			case conn := <-h.unregister:
				h.mu.Lock()
				if _, ok := h.clients[conn]; ok {
					delete(h.clients, conn)
					conn.Close()
				}
				h.mu.Unlock()
			case message := <-h.broadcast:
				h.mu.Lock()
				for conn := range h.clients {
					if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
						log.Printf("⚠️ WebSocket write failed, dropping client: %v", err)
						conn.Close()
						delete(h.clients, conn)
					}
				}
				h.mu.Unlock()
			}
		}
	}()
}

// BroadcastRequest pushes a request snapshot to every connected client.
// Registered as the orchestrator's notifier, so it fires on every status
// transition.
func (h *StatusHub) BroadcastRequest(req *models.ApplicationRequest) {
	update := map[string]interface{}{
		"type":       "request_update",
		"request_id": req.ID,
		"status":     req.Status,
		"counts":     req.Count(),
		"timestamp":  time.Now().UTC(),
	}
	if req.Error != "" {
		update["error"] = req.Error
	}

	data, err := json.Marshal(update)
	if err != nil {
		log.Printf("⚠️ Failed to marshal request update: %v", err)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		// drop the update rather than stall the pipeline
	}
}

// RegisterClient hands a new connection to the hub and blocks reading it
// until the client goes away.
func (h *StatusHub) RegisterClient(conn *websocket.Conn) {
	h.register <- conn
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.unregister <- conn
			return
		}
	}
}
