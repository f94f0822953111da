package execution

import (
	"time"

	"go-leadflow/internal/features/rule"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ActionStatus string

const (
	ActionPending   ActionStatus = "pending"
	ActionCompleted ActionStatus = "completed"
	ActionFailed    ActionStatus = "failed"
)

type ExecutionStatus string

const (
	ExecutionPending    ExecutionStatus = "pending"
	ExecutionInProgress ExecutionStatus = "in_progress"
	ExecutionCompleted  ExecutionStatus = "completed"
	ExecutionFailed     ExecutionStatus = "failed"
)

// ActionExecution records one action of one firing. Type, Config and
// EligibleAt are snapshotted at trigger time: reordering or editing the rule
// afterwards never touches work that is already armed.
type ActionExecution struct {
	ActionIndex int                    `json:"action_index" bson:"action_index"`
	Type        rule.ActionType        `json:"type" bson:"type"`
	Config      map[string]interface{} `json:"config" bson:"config"`
	Status      ActionStatus           `json:"status" bson:"status"`
	EligibleAt  time.Time              `json:"eligible_at" bson:"eligible_at"`
	ExecutedAt  *time.Time             `json:"executed_at,omitempty" bson:"executed_at,omitempty"`
	Error       string                 `json:"error,omitempty" bson:"error,omitempty"`
}

// RuleExecution is one firing instance of a rule against one subject. It is
// created atomically with all its children and never deleted; only each
// child's status/executedAt/error are written, exactly once, by the executor.
type RuleExecution struct {
	ID          primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	EventID     string                 `json:"event_id,omitempty" bson:"event_id,omitempty"`
	RuleID      primitive.ObjectID     `json:"rule_id" bson:"rule_id"`
	RuleName    string                 `json:"rule_name" bson:"rule_name"`
	SubjectID   string                 `json:"subject_id" bson:"subject_id"`
	Subject     map[string]interface{} `json:"subject,omitempty" bson:"subject,omitempty"`
	TriggeredAt time.Time              `json:"triggered_at" bson:"triggered_at"`
	Actions     []ActionExecution      `json:"actions" bson:"actions"`
	CreatedAt   time.Time              `json:"created_at" bson:"created_at"`
}

// Status derives the execution state from its children: pending before any
// action has settled, in progress while some have, completed once all
// completed, failed once all settled with at least one failure.
func (e *RuleExecution) Status() ExecutionStatus {
	if len(e.Actions) == 0 {
		return ExecutionCompleted
	}

	pending, failed := 0, 0
	for _, a := range e.Actions {
		switch a.Status {
		case ActionPending:
			pending++
		case ActionFailed:
			failed++
		}
	}
	switch {
	case pending == len(e.Actions):
		return ExecutionPending
	case pending > 0:
		return ExecutionInProgress
	case failed > 0:
		return ExecutionFailed
	}
	return ExecutionCompleted
}

// ExecutionView is the history payload served to the UI, with the derived
// status materialized.
type ExecutionView struct {
	RuleExecution
	Status ExecutionStatus `json:"status"`
}

func NewView(e RuleExecution) ExecutionView {
	return ExecutionView{RuleExecution: e, Status: e.Status()}
}

// Stats are the aggregate dashboard numbers derived from the ledger.
type Stats struct {
	TotalRules        int64 `json:"total_rules"`
	ActiveRules       int64 `json:"active_rules"`
	ExecutionsLast30d int64 `json:"executions_last_30d"`
}
