package engine

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

type EngineController struct {
	Service EngineService
}

func NewEngineController(service EngineService) *EngineController {
	return &EngineController{
		Service: service,
	}
}

// IngestEvent godoc
// @Summary Ingest a domain event
// @Description Submit a domain event for rule matching. Accepted events are processed asynchronously.
// @Tags events
// @Accept json
// @Produce json
// @Param event body Event true "Domain Event"
// @Success 202 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/events [post]
func (ctrl *EngineController) IngestEvent(c *fiber.Ctx) error {
	var ev Event
	if err := c.BodyParser(&ev); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}

	if err := ctrl.Service.HandleEvent(c.UserContext(), ev); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"accepted": true,
		"kind":     ev.Kind,
		"subject":  ev.SubjectID(),
	})
}
