package execution

import (
	"go-leadflow/internal/common/api"
	"go-leadflow/internal/config"
	"go-leadflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type HistoryApi struct {
	controller *HistoryController
	config     *config.Config
}

func NewHistoryApi(controller *HistoryController, config *config.Config) api.Route {
	return &HistoryApi{
		controller: controller,
		config:     config,
	}
}

func (h *HistoryApi) Setup(app *fiber.App) {
	group := app.Group("/api/automation", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/executions", h.controller.ListRecent)
	group.Get("/executions/export", h.controller.Export)
	group.Get("/rules/:id/executions", h.controller.ListByRule)
	group.Get("/stats", h.controller.GetStats)
}
