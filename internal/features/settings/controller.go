package settings

import (
	"go-leadflow/internal/common/errs"

	"github.com/gofiber/fiber/v2"
)

type SettingsController struct {
	Service SettingsService
}

func NewSettingsController(service SettingsService) *SettingsController {
	return &SettingsController{Service: service}
}

// GetSchedulerConfig godoc
// @Summary Get scheduler settings
// @Description Working-hours window, weekend flag and daily execution cap
// @Tags settings
// @Produce json
// @Success 200 {object} SchedulerConfig
// @Router /api/settings/scheduler [get]
func (ctrl *SettingsController) GetSchedulerConfig(c *fiber.Ctx) error {
	config, err := ctrl.Service.GetSchedulerConfig(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(config)
}

// UpdateSchedulerConfig godoc
// @Summary Update scheduler settings
// @Tags settings
// @Accept json
// @Produce json
// @Param config body SchedulerConfig true "Scheduler Config"
// @Success 200 {object} SchedulerConfig
// @Failure 400 {object} map[string]interface{}
// @Router /api/settings/scheduler [put]
func (ctrl *SettingsController) UpdateSchedulerConfig(c *fiber.Ctx) error {
	var config SchedulerConfig
	if err := c.BodyParser(&config); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := ctrl.Service.UpdateSchedulerConfig(c.UserContext(), config); err != nil {
		if errs.IsValidation(err) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(config)
}
