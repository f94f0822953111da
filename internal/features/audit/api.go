package audit

import (
	"go-leadflow/internal/common/api"
	"go-leadflow/internal/config"
	"go-leadflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AuditApi struct {
	controller *AuditController
	config     *config.Config
}

func NewAuditApi(controller *AuditController, config *config.Config) api.Route {
	return &AuditApi{
		controller: controller,
		config:     config,
	}
}

func (h *AuditApi) Setup(app *fiber.App) {
	group := app.Group("/api/audit", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/logs", h.controller.ListLogs)
}
