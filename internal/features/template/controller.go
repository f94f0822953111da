package template

import (
	"errors"

	"go-leadflow/internal/common/errs"

	"github.com/gofiber/fiber/v2"
)

type TemplateController struct {
	Service TemplateService
}

func NewTemplateController(service TemplateService) *TemplateController {
	return &TemplateController{Service: service}
}

// ListTemplates godoc
// @Summary List automation templates
// @Description List the template catalog, optionally filtered by category
// @Tags templates
// @Produce json
// @Param category query string false "Category filter"
// @Success 200 {array} AutomationTemplate
// @Router /api/automation/templates [get]
func (ctrl *TemplateController) ListTemplates(c *fiber.Ctx) error {
	templates, err := ctrl.Service.ListTemplates(c.UserContext(), c.Query("category"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(templates)
}

// GetTemplate godoc
// @Summary Get automation template
// @Tags templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} AutomationTemplate
// @Failure 404 {object} map[string]interface{}
// @Router /api/automation/templates/{id} [get]
func (ctrl *TemplateController) GetTemplate(c *fiber.Ctx) error {
	tmpl, err := ctrl.Service.GetTemplate(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Template not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(tmpl)
}

// Instantiate godoc
// @Summary Instantiate a template
// @Description Create a new automation rule from a template prototype
// @Tags templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 201 {object} rule.AutomationRule
// @Failure 404 {object} map[string]interface{}
// @Router /api/automation/templates/{id}/instantiate [post]
func (ctrl *TemplateController) Instantiate(c *fiber.Ctx) error {
	newRule, err := ctrl.Service.Instantiate(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Template not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(newRule)
}
