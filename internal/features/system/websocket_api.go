package system

import (
	"go-leadflow/internal/common/api"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type WebSocketApi struct {
	Hub *ExecutionHub
}

func NewWebSocketApi(hub *ExecutionHub) api.Route {
	return &WebSocketApi{
		Hub: hub,
	}
}

func (h *WebSocketApi) Setup(app *fiber.App) {
	app.Get("/api/ws/executions", websocket.New(h.Hub.HandleConnection))
}
