package settings

import (
	"go-leadflow/internal/common/api"
	"go-leadflow/internal/config"
	"go-leadflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type SettingsApi struct {
	controller *SettingsController
	config     *config.Config
}

func NewSettingsApi(controller *SettingsController, config *config.Config) api.Route {
	return &SettingsApi{
		controller: controller,
		config:     config,
	}
}

func (h *SettingsApi) Setup(app *fiber.App) {
	group := app.Group("/api/settings", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/scheduler", h.controller.GetSchedulerConfig)
	group.Put("/scheduler", h.controller.UpdateSchedulerConfig)
}
