package providers

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"alerting-service/internal/logging"
)

// maxConnsPerUser caps simultaneous sockets for one user.
const maxConnsPerUser = 10

// Hub manages live WebSocket connections per user for the in-app channel.
type Hub struct {
	mu          sync.Mutex
	connections map[int64]map[*websocket.Conn]bool
	logger      *logging.Logger
}

// NewHub builds an empty connection hub.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		connections: make(map[int64]map[*websocket.Conn]bool),
		logger:      logger,
	}
}

// Add registers a connection for a user.
func (h *Hub) Add(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[userID]; !ok {
		h.connections[userID] = make(map[*websocket.Conn]bool)
	}
	if len(h.connections[userID]) >= maxConnsPerUser {
		h.logger.Warnf("max connections reached for user %d", userID)
		return
	}
	h.connections[userID][conn] = true
}

// Remove drops a connection for a user.
func (h *Hub) Remove(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.connections[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.connections, userID)
		}
	}
}

// Push sends a JSON message to every open connection of a user, dropping
// connections that error. Best effort: the stored system message is the
// delivery of record.
func (h *Hub) Push(userID int64, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Errorf("failed to encode websocket payload for user %d: %v", userID, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.connections[userID]
	if !ok {
		return
	}
	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Warnf("dropping websocket connection of user %d: %v", userID, err)
			delete(conns, conn)
		}
	}
	if len(conns) == 0 {
		delete(h.connections, userID)
	}
}
