package rule

import (
	"context"

	"go-leadflow/internal/common/errs"
	common_models "go-leadflow/internal/common/models"
	"go-leadflow/internal/features/audit"
	"go-leadflow/pkg/utils"
)

type RuleService interface {
	CreateRule(ctx context.Context, rule *AutomationRule) error
	GetRule(ctx context.Context, id string) (*AutomationRule, error)
	ListRules(ctx context.Context) ([]AutomationRule, error)
	UpdateRule(ctx context.Context, rule *AutomationRule) error
	DeleteRule(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string, active bool) error
}

type RuleServiceImpl struct {
	Repo         RuleRepository
	AuditService audit.AuditService
}

func NewRuleService(repo RuleRepository, auditService audit.AuditService) RuleService {
	return &RuleServiceImpl{
		Repo:         repo,
		AuditService: auditService,
	}
}

func (s *RuleServiceImpl) CreateRule(ctx context.Context, rule *AutomationRule) error {
	if err := Validate(rule); err != nil {
		return err
	}

	if rule.CreatedBy == "" {
		if claims, ok := ctx.Value(utils.UserClaimsKey).(*utils.UserClaims); ok {
			rule.CreatedBy = claims.UserID
		}
	}
	rule.ExecutionCount = 0
	rule.LastExecutedAt = nil

	err := s.Repo.Create(ctx, rule)
	if err == nil {
		s.AuditService.LogChange(ctx, common_models.AuditActionRule, "rule", rule.ID.Hex(), map[string]common_models.Change{
			"rule": {New: rule},
		})
	}
	return err
}

func (s *RuleServiceImpl) GetRule(ctx context.Context, id string) (*AutomationRule, error) {
	rule, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, errs.ErrNotFound
	}
	return rule, nil
}

func (s *RuleServiceImpl) ListRules(ctx context.Context) ([]AutomationRule, error) {
	return s.Repo.List(ctx)
}

func (s *RuleServiceImpl) UpdateRule(ctx context.Context, rule *AutomationRule) error {
	if err := Validate(rule); err != nil {
		return err
	}

	oldRule, _ := s.Repo.GetByID(ctx, rule.ID.Hex())

	matched, err := s.Repo.Update(ctx, rule)
	if err != nil {
		return err
	}
	if !matched {
		return errs.ErrNotFound
	}

	s.AuditService.LogChange(ctx, common_models.AuditActionRule, "rule", rule.ID.Hex(), map[string]common_models.Change{
		"rule": {Old: oldRule, New: rule},
	})
	return nil
}

func (s *RuleServiceImpl) DeleteRule(ctx context.Context, id string) error {
	oldRule, _ := s.Repo.GetByID(ctx, id)

	err := s.Repo.Delete(ctx, id)
	if err == nil {
		name := id
		if oldRule != nil {
			name = oldRule.Name
		}
		s.AuditService.LogChange(ctx, common_models.AuditActionRule, "rule", name, map[string]common_models.Change{
			"rule": {Old: oldRule, New: "DELETED"},
		})
	}
	return err
}

// SetActive toggles a rule. Disabling never cancels action executions already
// armed by the scheduler; it only suppresses future trigger matches.
func (s *RuleServiceImpl) SetActive(ctx context.Context, id string, active bool) error {
	matched, err := s.Repo.SetActive(ctx, id, active)
	if err != nil {
		return err
	}
	if !matched {
		return errs.ErrNotFound
	}

	s.AuditService.LogChange(ctx, common_models.AuditActionRule, "rule", id, map[string]common_models.Change{
		"is_active": {New: active},
	})
	return nil
}
