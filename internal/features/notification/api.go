package notification

import (
	"strconv"

	"go-leadflow/internal/common/api"
	"go-leadflow/internal/config"
	"go-leadflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type NotificationApi struct {
	repo   NotificationRepository
	config *config.Config
}

func NewNotificationApi(repo NotificationRepository, config *config.Config) api.Route {
	return &NotificationApi{
		repo:   repo,
		config: config,
	}
}

func (h *NotificationApi) Setup(app *fiber.App) {
	group := app.Group("/api/notifications", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/", h.listNotifications)
	group.Patch("/:id/read", h.markRead)
}

// listNotifications godoc
// @Summary List notifications
// @Tags notifications
// @Produce json
// @Param limit query int false "Max entries"
// @Success 200 {array} Notification
// @Router /api/notifications [get]
func (h *NotificationApi) listNotifications(c *fiber.Ctx) error {
	limit, _ := strconv.ParseInt(c.Query("limit", "100"), 10, 64)
	notifications, err := h.repo.List(c.UserContext(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(notifications)
}

// markRead godoc
// @Summary Mark notification read
// @Tags notifications
// @Param id path string true "Notification ID"
// @Success 204 {object} nil
// @Router /api/notifications/{id}/read [patch]
func (h *NotificationApi) markRead(c *fiber.Ctx) error {
	if err := h.repo.MarkRead(c.UserContext(), c.Params("id")); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
