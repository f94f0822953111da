package rule

import (
	"go-leadflow/internal/common/api"
	"go-leadflow/internal/config"
	"go-leadflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type RuleApi struct {
	controller *RuleController
	config     *config.Config
}

func NewRuleApi(controller *RuleController, config *config.Config) api.Route {
	return &RuleApi{
		controller: controller,
		config:     config,
	}
}

func (h *RuleApi) Setup(app *fiber.App) {
	group := app.Group("/api/automation", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/rules", h.controller.ListRules)
	group.Get("/rules/:id", h.controller.GetRule)
	group.Post("/rules", h.controller.CreateRule)
	group.Put("/rules/:id", h.controller.UpdateRule)
	group.Delete("/rules/:id", h.controller.DeleteRule)
	group.Patch("/rules/:id/toggle", h.controller.ToggleRule)
}
