package lead

import (
	"go-leadflow/internal/common/api"
	"go-leadflow/internal/config"
	"go-leadflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type LeadApi struct {
	controller *LeadController
	config     *config.Config
}

func NewLeadApi(controller *LeadController, config *config.Config) api.Route {
	return &LeadApi{
		controller: controller,
		config:     config,
	}
}

func (h *LeadApi) Setup(app *fiber.App) {
	group := app.Group("/api/leads", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/", h.controller.ListLeads)
	group.Get("/:id", h.controller.GetLead)
}
