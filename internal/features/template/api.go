package template

import (
	"go-leadflow/internal/common/api"
	"go-leadflow/internal/config"
	"go-leadflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type TemplateApi struct {
	controller *TemplateController
	config     *config.Config
}

func NewTemplateApi(controller *TemplateController, config *config.Config) api.Route {
	return &TemplateApi{
		controller: controller,
		config:     config,
	}
}

func (h *TemplateApi) Setup(app *fiber.App) {
	group := app.Group("/api/automation", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/templates", h.controller.ListTemplates)
	group.Get("/templates/:id", h.controller.GetTemplate)
	group.Post("/templates/:id/instantiate", h.controller.Instantiate)
}
