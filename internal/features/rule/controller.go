package rule

import (
	"errors"

	"go-leadflow/internal/common/errs"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RuleController struct {
	Service RuleService
}

func NewRuleController(service RuleService) *RuleController {
	return &RuleController{
		Service: service,
	}
}

func statusFor(err error) int {
	switch {
	case errs.IsValidation(err):
		return fiber.StatusBadRequest
	case errors.Is(err, errs.ErrNotFound):
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// CreateRule godoc
// @Summary Create automation rule
// @Description Create a new automation rule
// @Tags automation
// @Accept json
// @Produce json
// @Param rule body AutomationRule true "Automation Rule"
// @Success 201 {object} AutomationRule
// @Failure 400 {object} map[string]interface{}
// @Router /api/automation/rules [post]
func (ctrl *RuleController) CreateRule(c *fiber.Ctx) error {
	var rule AutomationRule
	if err := c.BodyParser(&rule); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := ctrl.Service.CreateRule(c.UserContext(), &rule); err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(rule)
}

// GetRule godoc
// @Summary Get automation rule
// @Description Get an automation rule by ID
// @Tags automation
// @Produce json
// @Param id path string true "Rule ID"
// @Success 200 {object} AutomationRule
// @Failure 404 {object} map[string]interface{}
// @Router /api/automation/rules/{id} [get]
func (ctrl *RuleController) GetRule(c *fiber.Ctx) error {
	id := c.Params("id")
	rule, err := ctrl.Service.GetRule(c.UserContext(), id)
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": "Rule not found"})
	}
	return c.JSON(rule)
}

// ListRules godoc
// @Summary List automation rules
// @Description List all automation rules, newest first
// @Tags automation
// @Produce json
// @Success 200 {array} AutomationRule
// @Router /api/automation/rules [get]
func (ctrl *RuleController) ListRules(c *fiber.Ctx) error {
	rules, err := ctrl.Service.ListRules(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(rules)
}

// UpdateRule godoc
// @Summary Update automation rule
// @Description Update an existing automation rule
// @Tags automation
// @Accept json
// @Produce json
// @Param id path string true "Rule ID"
// @Param rule body AutomationRule true "Automation Rule"
// @Success 200 {object} AutomationRule
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/automation/rules/{id} [put]
func (ctrl *RuleController) UpdateRule(c *fiber.Ctx) error {
	var rule AutomationRule
	if err := c.BodyParser(&rule); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	oid, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid rule id"})
	}
	rule.ID = oid

	if err := ctrl.Service.UpdateRule(c.UserContext(), &rule); err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(rule)
}

// DeleteRule godoc
// @Summary Delete automation rule
// @Description Delete an automation rule by ID
// @Tags automation
// @Param id path string true "Rule ID"
// @Success 204 {object} nil
// @Router /api/automation/rules/{id} [delete]
func (ctrl *RuleController) DeleteRule(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := ctrl.Service.DeleteRule(c.UserContext(), id); err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ToggleRule godoc
// @Summary Enable or disable a rule
// @Description Set the is_active flag. Disabling does not cancel armed executions.
// @Tags automation
// @Accept json
// @Produce json
// @Param id path string true "Rule ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/automation/rules/{id}/toggle [patch]
func (ctrl *RuleController) ToggleRule(c *fiber.Ctx) error {
	id := c.Params("id")

	var body struct {
		IsActive bool `json:"is_active"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := ctrl.Service.SetActive(c.UserContext(), id, body.IsActive); err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"id": id, "is_active": body.IsActive})
}
