package main

import (
	"context"

	"go-leadflow/internal/config"
	"go-leadflow/internal/database"
	"go-leadflow/internal/features/lead"
	"go-leadflow/internal/features/rule"
	"go-leadflow/internal/features/template"
	"go-leadflow/internal/logger"
	"go-leadflow/pkg/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Seed loads the builtin template catalog and a demo lead so a fresh
// install has something to click on. Safe to run repeatedly.
func Seed(
	lc fx.Lifecycle,
	cfg *config.Config,
	templateRepo template.TemplateRepository,
	ruleRepo rule.RuleRepository,
	leadRepo lead.LeadRepository,
	logger *zap.Logger,
	shutdowner fx.Shutdowner,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() {
					if err := shutdowner.Shutdown(); err != nil {
						logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()

				logger.Info("🌱 Starting database seeding...")

				existing, err := templateRepo.List(ctx, "")
				if err != nil {
					logger.Fatal("Failed to list templates", zap.Error(err))
				}
				seeded := make(map[string]bool, len(existing))
				for _, tmpl := range existing {
					seeded[tmpl.Name] = true
				}

				created := 0
				for _, tmpl := range template.BuiltinCatalog() {
					if seeded[tmpl.Name] {
						logger.Info("Template exists, skipping", zap.String("template", tmpl.Name))
						continue
					}
					t := tmpl
					if err := templateRepo.Create(ctx, &t); err != nil {
						logger.Error("Failed to create template",
							zap.String("template", tmpl.Name), zap.Error(err))
						continue
					}
					created++
				}
				logger.Info("Templates seeded", zap.Int("created", created))

				demo := &lead.Lead{
					Name:    "Maria Souza",
					Email:   "maria.souza@example.com",
					Phone:   "+55 11 91234-5678",
					Company: "Acme Ltda",
					Status:  "new",
					Score:   10,
					Source:  "seed",
				}
				if err := leadRepo.Upsert(ctx, demo); err != nil {
					logger.Error("Failed to seed demo lead", zap.Error(err))
				} else {
					logger.Info("Demo lead seeded", zap.String("email", demo.Email))
				}

				demoRule := &rule.AutomationRule{
					Name:        "Follow-up em lead qualificado",
					Description: "Cria tarefa de follow-up 30 minutos depois da qualificação",
					Trigger:     rule.TriggerLeadQualified,
					IsActive:    true,
					Actions: []rule.Action{
						{
							Type: rule.ActionCreateTask,
							Config: map[string]interface{}{
								"title":       "Follow-up com {{name}}",
								"description": "Lead qualificado, agendar demonstração",
							},
							DelayMinutes: 30,
						},
					},
					CreatedBy: "seed",
				}
				rules, err := ruleRepo.List(ctx)
				if err != nil {
					logger.Fatal("Failed to list rules", zap.Error(err))
				}
				haveRule := false
				for _, r := range rules {
					if r.Name == demoRule.Name {
						haveRule = true
						break
					}
				}
				if haveRule {
					logger.Info("Demo rule exists, skipping", zap.String("rule", demoRule.Name))
				} else if err := ruleRepo.Create(ctx, demoRule); err != nil {
					logger.Error("Failed to seed demo rule", zap.Error(err))
				} else {
					logger.Info("Demo rule seeded", zap.String("rule", demoRule.Name))
				}

				utils.SetSecret(cfg.JWTSecret)
				token, err := utils.GenerateToken(primitive.NewObjectID(), []string{"admin"})
				if err != nil {
					logger.Error("Failed to generate development token", zap.Error(err))
				} else {
					logger.Info("Development API token", zap.String("token", token))
				}

				logger.Info("✅ Seeding complete")
			}()
			return nil
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
			database.NewDatabase,
			template.NewTemplateRepository,
			rule.NewRuleRepository,
			lead.NewLeadRepository,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(Seed),
	)

	app.Run()
}
