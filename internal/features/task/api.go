package task

import (
	"strconv"

	"go-leadflow/internal/common/api"
	"go-leadflow/internal/config"
	"go-leadflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type TaskApi struct {
	repo   TaskRepository
	config *config.Config
}

func NewTaskApi(repo TaskRepository, config *config.Config) api.Route {
	return &TaskApi{
		repo:   repo,
		config: config,
	}
}

func (h *TaskApi) Setup(app *fiber.App) {
	group := app.Group("/api/tasks", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/", h.listTasks)
}

// listTasks godoc
// @Summary List tasks
// @Tags tasks
// @Produce json
// @Param lead_id query string false "Filter by lead"
// @Param limit query int false "Max entries"
// @Success 200 {array} Task
// @Router /api/tasks [get]
func (h *TaskApi) listTasks(c *fiber.Ctx) error {
	limit, _ := strconv.ParseInt(c.Query("limit", "100"), 10, 64)
	tasks, err := h.repo.List(c.UserContext(), c.Query("lead_id"), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(tasks)
}
