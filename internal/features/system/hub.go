package system

import (
	"encoding/json"
	"sync"

	"go-leadflow/internal/features/engine"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

// ExecutionHub fans settled action updates out to connected websocket
// clients. It implements engine.ExecutionNotifier.
type ExecutionHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	logger  *zap.Logger
}

func NewExecutionHub(logger *zap.Logger) *ExecutionHub {
	return &ExecutionHub{
		clients: make(map[*websocket.Conn]struct{}),
		logger:  logger,
	}
}

func (h *ExecutionHub) BroadcastActionUpdate(update engine.ActionUpdate) {
	payload, err := json.Marshal(update)
	if err != nil {
		h.logger.Error("Failed to marshal action update", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// HandleConnection blocks until the client disconnects. Reads are discarded;
// the feed is one-way.
func (h *ExecutionHub) HandleConnection(c *websocket.Conn) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		c.Close()
	}()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}
