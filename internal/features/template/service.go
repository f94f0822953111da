package template

import (
	"context"
	"fmt"

	"go-leadflow/internal/common/errs"
	common_models "go-leadflow/internal/common/models"
	"go-leadflow/internal/features/audit"
	"go-leadflow/internal/features/rule"

	"github.com/tiendc/go-deepcopy"
)

type TemplateService interface {
	ListTemplates(ctx context.Context, category string) ([]AutomationTemplate, error)
	GetTemplate(ctx context.Context, id string) (*AutomationTemplate, error)
	Instantiate(ctx context.Context, id string) (*rule.AutomationRule, error)
}

type TemplateServiceImpl struct {
	Repo         TemplateRepository
	RuleService  rule.RuleService
	AuditService audit.AuditService
}

func NewTemplateService(repo TemplateRepository, ruleService rule.RuleService, auditService audit.AuditService) TemplateService {
	return &TemplateServiceImpl{
		Repo:         repo,
		RuleService:  ruleService,
		AuditService: auditService,
	}
}

func (s *TemplateServiceImpl) ListTemplates(ctx context.Context, category string) ([]AutomationTemplate, error) {
	return s.Repo.List(ctx, category)
}

func (s *TemplateServiceImpl) GetTemplate(ctx context.Context, id string) (*AutomationTemplate, error) {
	tmpl, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tmpl == nil {
		return nil, errs.ErrNotFound
	}
	return tmpl, nil
}

// Instantiate stamps a new rule out of the template prototype. Conditions,
// actions and each action's config map are deep-copied: mutating the returned
// rule must never reach back into the catalog entry.
func (s *TemplateServiceImpl) Instantiate(ctx context.Context, id string) (*rule.AutomationRule, error) {
	tmpl, err := s.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}

	newRule, err := InstantiateRule(tmpl)
	if err != nil {
		return nil, err
	}

	if err := s.RuleService.CreateRule(ctx, newRule); err != nil {
		return nil, err
	}

	s.AuditService.LogChange(ctx, common_models.AuditActionTemplate, "template", tmpl.ID.Hex(), map[string]common_models.Change{
		"instantiated_rule": {New: newRule.ID.Hex()},
	})

	return newRule, nil
}

// InstantiateRule builds a fresh, unpersisted AutomationRule from a template.
// Identity and timestamps are assigned on create; the caller owns validation.
func InstantiateRule(tmpl *AutomationTemplate) (*rule.AutomationRule, error) {
	var conditions []rule.Condition
	if err := deepcopy.Copy(&conditions, tmpl.Rule.Conditions); err != nil {
		return nil, fmt.Errorf("failed to copy template conditions: %w", err)
	}
	var actions []rule.Action
	if err := deepcopy.Copy(&actions, tmpl.Rule.Actions); err != nil {
		return nil, fmt.Errorf("failed to copy template actions: %w", err)
	}

	return &rule.AutomationRule{
		Name:        tmpl.Name,
		Description: tmpl.Description,
		Trigger:     tmpl.Rule.Trigger,
		Conditions:  conditions,
		Actions:     actions,
		IsActive:    true,
	}, nil
}
