package lead

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

type LeadController struct {
	Repo LeadRepository
}

func NewLeadController(repo LeadRepository) *LeadController {
	return &LeadController{Repo: repo}
}

// ListLeads godoc
// @Summary List leads
// @Tags leads
// @Produce json
// @Param limit query int false "Max entries"
// @Success 200 {array} Lead
// @Router /api/leads [get]
func (ctrl *LeadController) ListLeads(c *fiber.Ctx) error {
	limit, _ := strconv.ParseInt(c.Query("limit", "100"), 10, 64)
	leads, err := ctrl.Repo.List(c.UserContext(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(leads)
}

// GetLead godoc
// @Summary Get lead
// @Tags leads
// @Produce json
// @Param id path string true "Lead ID"
// @Success 200 {object} Lead
// @Failure 404 {object} map[string]interface{}
// @Router /api/leads/{id} [get]
func (ctrl *LeadController) GetLead(c *fiber.Ctx) error {
	lead, err := ctrl.Repo.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if lead == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Lead not found"})
	}
	return c.JSON(lead)
}
