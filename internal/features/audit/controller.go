package audit

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

type AuditController struct {
	Service AuditService
}

func NewAuditController(service AuditService) *AuditController {
	return &AuditController{Service: service}
}

// ListLogs godoc
// @Summary List audit logs
// @Description List audit log entries, newest first
// @Tags audit
// @Produce json
// @Param entity query string false "Filter by entity"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {array} models.AuditLog
// @Router /api/audit/logs [get]
func (ctrl *AuditController) ListLogs(c *fiber.Ctx) error {
	filters := map[string]interface{}{}
	if entity := c.Query("entity"); entity != "" {
		filters["entity"] = entity
	}

	page, _ := strconv.ParseInt(c.Query("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(c.Query("limit", "50"), 10, 64)

	logs, err := ctrl.Service.ListLogs(c.UserContext(), filters, page, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(logs)
}
