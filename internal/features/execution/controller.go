package execution

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

type HistoryController struct {
	Service HistoryService
}

func NewHistoryController(service HistoryService) *HistoryController {
	return &HistoryController{Service: service}
}

// ListRecent godoc
// @Summary Recent executions
// @Description List recent rule executions across all rules, newest first
// @Tags history
// @Produce json
// @Param limit query int false "Max entries"
// @Success 200 {array} ExecutionView
// @Router /api/automation/executions [get]
func (ctrl *HistoryController) ListRecent(c *fiber.Ctx) error {
	limit, _ := strconv.ParseInt(c.Query("limit", "50"), 10, 64)
	views, err := ctrl.Service.ListRecent(c.UserContext(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(views)
}

// ListByRule godoc
// @Summary Executions of one rule
// @Description List executions for a rule with per-action status, timestamps and error
// @Tags history
// @Produce json
// @Param id path string true "Rule ID"
// @Param limit query int false "Max entries"
// @Success 200 {array} ExecutionView
// @Router /api/automation/rules/{id}/executions [get]
func (ctrl *HistoryController) ListByRule(c *fiber.Ctx) error {
	limit, _ := strconv.ParseInt(c.Query("limit", "50"), 10, 64)
	views, err := ctrl.Service.ListByRule(c.UserContext(), c.Params("id"), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(views)
}

// GetStats godoc
// @Summary Automation stats
// @Description Aggregate dashboard numbers derived from the ledger
// @Tags history
// @Produce json
// @Success 200 {object} Stats
// @Router /api/automation/stats [get]
func (ctrl *HistoryController) GetStats(c *fiber.Ctx) error {
	stats, err := ctrl.Service.GetStats(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(stats)
}

// Export godoc
// @Summary Export execution history
// @Description Download recent executions as an XLSX workbook
// @Tags history
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param limit query int false "Max entries"
// @Success 200 {file} file
// @Router /api/automation/executions/export [get]
func (ctrl *HistoryController) Export(c *fiber.Ctx) error {
	limit, _ := strconv.ParseInt(c.Query("limit", "500"), 10, 64)
	data, filename, err := ctrl.Service.ExportRecent(c.UserContext(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	c.Set("Content-Disposition", "attachment; filename="+filename)
	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	return c.Send(data)
}
