package main

import (
	"context"
	"fmt"
	common_api "go-leadflow/internal/common/api"
	"go-leadflow/internal/config"
	"go-leadflow/internal/database"
	"go-leadflow/internal/features/audit"
	"go-leadflow/internal/features/capability"
	"go-leadflow/internal/features/engine"
	"go-leadflow/internal/features/execution"
	"go-leadflow/internal/features/lead"
	"go-leadflow/internal/features/leadsource"
	"go-leadflow/internal/features/notification"
	"go-leadflow/internal/features/rule"
	"go-leadflow/internal/features/settings"
	"go-leadflow/internal/features/system"
	"go-leadflow/internal/features/task"
	"go-leadflow/internal/features/template"
	"go-leadflow/internal/logger"
	"go-leadflow/internal/middleware"
	"go-leadflow/pkg/utils"
	"log"

	_ "go-leadflow/docs" // Import swagger docs

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Use custom CORS middleware
	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),    // Cast to Interface
		fx.ResultTags(`group:"routes"`), // Add to Group
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route) {
	log.Printf("Registering %d routes...\n", len(routes))
	for _, route := range routes {
		route.Setup(app)
	}
	log.Println("All routes registered successfully")
}

// RegisterAllRoutesWithAnnotation wraps RegisterAllRoutes with fx annotations
var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			utils.SetSecret(cfg.JWTSecret)
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// StartEngine binds the automation engine to the Fx lifecycle so pending
// work is re-armed before the server takes traffic.
func StartEngine(lc fx.Lifecycle, engineService engine.EngineService) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return engineService.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return engineService.Stop()
		},
	})
}

// StartLeadSource starts the external lead-source poller when configured.
func StartLeadSource(lc fx.Lifecycle, poller *leadsource.Poller) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return poller.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return poller.Stop()
		},
	})
}

// @title           LeadFlow Automation API
// @version         1.0
// @description     Lead automation rule engine built on Fiber, Uber Fx, and MongoDB.

// @contact.name    API Support

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host            localhost:8000
// @BasePath        /
func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Logger
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Initialize Database
			database.NewDatabase,

			// Initialize Repository
			audit.NewAuditRepository,
			rule.NewRuleRepository,
			template.NewTemplateRepository,
			execution.NewExecutionRepository,
			settings.NewSettingsRepository,
			lead.NewLeadRepository,
			task.NewTaskRepository,
			notification.NewNotificationRepository,

			// Initialize Service
			audit.NewAuditService,
			rule.NewRuleService,
			template.NewTemplateService,
			execution.NewHistoryService,
			settings.NewSettingsService,
			capability.NewDispatcher,
			engine.NewEngineService,
			system.NewExecutionHub,

			// Interface Adapters
			func(h *system.ExecutionHub) engine.ExecutionNotifier { return h },

			// Lead source poller
			leadsource.NewPoller,

			// Initialize Controller
			rule.NewRuleController,
			template.NewTemplateController,
			execution.NewHistoryController,
			settings.NewSettingsController,
			lead.NewLeadController,
			audit.NewAuditController,
			engine.NewEngineController,

			// Initialize API Routes
			AsRoute(rule.NewRuleApi),
			AsRoute(template.NewTemplateApi),
			AsRoute(execution.NewHistoryApi),
			AsRoute(settings.NewSettingsApi),
			AsRoute(lead.NewLeadApi),
			AsRoute(task.NewTaskApi),
			AsRoute(notification.NewNotificationApi),
			AsRoute(audit.NewAuditApi),
			AsRoute(engine.NewEngineApi),
			AsRoute(system.NewHealthApi),
			AsRoute(system.NewSwaggerApi),
			AsRoute(system.NewWebSocketApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			// Register Routes & Start
			RegisterAllRoutesWithAnnotation,
			StartServer,
			StartEngine,
			StartLeadSource,
		),
	)

	app.Run()
}
