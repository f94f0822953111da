package execution

import (
	"context"
	"fmt"
	"time"

	"go-leadflow/internal/features/rule"

	"github.com/xuri/excelize/v2"
)

type HistoryService interface {
	ListByRule(ctx context.Context, ruleID string, limit int64) ([]ExecutionView, error)
	ListRecent(ctx context.Context, limit int64) ([]ExecutionView, error)
	GetStats(ctx context.Context) (*Stats, error)
	ExportRecent(ctx context.Context, limit int64) ([]byte, string, error)
}

type HistoryServiceImpl struct {
	Repo     ExecutionRepository
	RuleRepo rule.RuleRepository
}

func NewHistoryService(repo ExecutionRepository, ruleRepo rule.RuleRepository) HistoryService {
	return &HistoryServiceImpl{
		Repo:     repo,
		RuleRepo: ruleRepo,
	}
}

func (s *HistoryServiceImpl) ListByRule(ctx context.Context, ruleID string, limit int64) ([]ExecutionView, error) {
	if limit <= 0 {
		limit = 50
	}
	execs, err := s.Repo.ListByRule(ctx, ruleID, limit)
	if err != nil {
		return nil, err
	}
	return toViews(execs), nil
}

func (s *HistoryServiceImpl) ListRecent(ctx context.Context, limit int64) ([]ExecutionView, error) {
	if limit <= 0 {
		limit = 50
	}
	execs, err := s.Repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	return toViews(execs), nil
}

func (s *HistoryServiceImpl) GetStats(ctx context.Context) (*Stats, error) {
	rules, err := s.RuleRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{TotalRules: int64(len(rules))}
	for _, r := range rules {
		if r.IsActive {
			stats.ActiveRules++
		}
	}

	count, err := s.Repo.CountSince(ctx, time.Now().AddDate(0, 0, -30))
	if err != nil {
		return nil, err
	}
	stats.ExecutionsLast30d = count

	return stats, nil
}

// ExportRecent renders the recent execution history as an XLSX workbook, one
// row per action execution.
func (s *HistoryServiceImpl) ExportRecent(ctx context.Context, limit int64) ([]byte, string, error) {
	views, err := s.ListRecent(ctx, limit)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Executions"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, "", err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	columns := []string{"Rule", "Subject", "Triggered At", "Execution Status", "Action", "Action Status", "Eligible At", "Executed At", "Error"}
	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, col)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	row := 2
	for _, view := range views {
		for _, action := range view.Actions {
			executedAt := ""
			if action.ExecutedAt != nil {
				executedAt = action.ExecutedAt.Format(time.RFC3339)
			}
			values := []interface{}{
				view.RuleName,
				view.SubjectID,
				view.TriggeredAt.Format(time.RFC3339),
				string(view.Status),
				string(action.Type),
				string(action.Status),
				action.EligibleAt.Format(time.RFC3339),
				executedAt,
				action.Error,
			}
			for i, v := range values {
				cell, _ := excelize.CoordinatesToCellName(i+1, row)
				f.SetCellValue(sheetName, cell, v)
			}
			row++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("executions_%s.xlsx", time.Now().Format("20060102_150405"))
	return buf.Bytes(), filename, nil
}

func toViews(execs []RuleExecution) []ExecutionView {
	views := make([]ExecutionView, len(execs))
	for i, e := range execs {
		views[i] = NewView(e)
	}
	return views
}
