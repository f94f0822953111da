package settings

import (
	"context"
	"time"

	"go-leadflow/internal/common/errs"
	common_models "go-leadflow/internal/common/models"
	"go-leadflow/internal/features/audit"
)

type SettingsService interface {
	GetSchedulerConfig(ctx context.Context) (SchedulerConfig, error)
	UpdateSchedulerConfig(ctx context.Context, config SchedulerConfig) error
}

type SettingsServiceImpl struct {
	Repo         SettingsRepository
	AuditService audit.AuditService
}

func NewSettingsService(repo SettingsRepository, auditService audit.AuditService) SettingsService {
	return &SettingsServiceImpl{
		Repo:         repo,
		AuditService: auditService,
	}
}

func (s *SettingsServiceImpl) GetSchedulerConfig(ctx context.Context) (SchedulerConfig, error) {
	settings, err := s.Repo.GetByType(ctx, SettingsTypeScheduler)
	if err != nil {
		return DefaultSchedulerConfig(), err
	}
	if settings == nil || settings.Scheduler == nil {
		return DefaultSchedulerConfig(), nil
	}
	return *settings.Scheduler, nil
}

func (s *SettingsServiceImpl) UpdateSchedulerConfig(ctx context.Context, config SchedulerConfig) error {
	if err := validateSchedulerConfig(config); err != nil {
		return err
	}

	oldConfig, _ := s.GetSchedulerConfig(ctx)

	settings := &Settings{
		Type:      SettingsTypeScheduler,
		Scheduler: &config,
		UpdatedAt: time.Now(),
	}
	err := s.Repo.Upsert(ctx, settings)
	if err == nil {
		_ = s.AuditService.LogChange(ctx, common_models.AuditActionSettings, "settings", "scheduler_config", map[string]common_models.Change{
			"scheduler_config": {
				Old: oldConfig,
				New: config,
			},
		})
	}
	return err
}

func validateSchedulerConfig(config SchedulerConfig) error {
	ve := &errs.ValidationError{}

	if config.WorkingHoursStart < 0 || config.WorkingHoursStart > 23 {
		ve.Add("working_hours_start", "must be between 0 and 23")
	}
	if config.WorkingHoursEnd < 0 || config.WorkingHoursEnd > 24 {
		ve.Add("working_hours_end", "must be between 0 and 24")
	}
	if config.WorkingHoursEnd != 0 && config.WorkingHoursEnd <= config.WorkingHoursStart {
		ve.Add("working_hours_end", "must be after working_hours_start")
	}
	if config.DailyExecutionCap < 0 {
		ve.Add("daily_execution_cap", "must not be negative")
	}
	if config.Timezone != "" {
		if _, err := time.LoadLocation(config.Timezone); err != nil {
			ve.Add("timezone", "unknown timezone")
		}
	}

	return ve.OrNil()
}
