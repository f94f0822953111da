package engine

import (
	"go-leadflow/internal/common/api"
	"go-leadflow/internal/config"
	"go-leadflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type EngineApi struct {
	controller *EngineController
	config     *config.Config
}

func NewEngineApi(controller *EngineController, config *config.Config) api.Route {
	return &EngineApi{
		controller: controller,
		config:     config,
	}
}

func (h *EngineApi) Setup(app *fiber.App) {
	group := app.Group("/api/events", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Post("/", h.controller.IngestEvent)
}
