package rule

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TriggerKind is the domain-event kind that makes a rule eligible to fire.
type TriggerKind string

const (
	TriggerLeadCreated    TriggerKind = "lead_created"
	TriggerLeadQualified  TriggerKind = "lead_qualified"
	TriggerStatusChanged  TriggerKind = "status_changed"
	TriggerTimeElapsed    TriggerKind = "time_elapsed"
	TriggerNoResponse     TriggerKind = "no_response"
	TriggerEmailOpened    TriggerKind = "email_opened"
	TriggerEmailClicked   TriggerKind = "email_clicked"
	TriggerFormSubmitted  TriggerKind = "form_submitted"
	TriggerScoreThreshold TriggerKind = "score_threshold"
)

func (k TriggerKind) IsValid() bool {
	switch k {
	case TriggerLeadCreated, TriggerLeadQualified, TriggerStatusChanged,
		TriggerTimeElapsed, TriggerNoResponse, TriggerEmailOpened,
		TriggerEmailClicked, TriggerFormSubmitted, TriggerScoreThreshold:
		return true
	default:
		return false
	}
}

type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorNotEquals   ConditionOperator = "not_equals"
	OperatorGreaterThan ConditionOperator = "gt"
	OperatorLessThan    ConditionOperator = "lt"
	OperatorContains    ConditionOperator = "contains"
)

func (o ConditionOperator) IsValid() bool {
	switch o {
	case OperatorEquals, OperatorNotEquals, OperatorGreaterThan, OperatorLessThan, OperatorContains:
		return true
	default:
		return false
	}
}

// Condition is a predicate over the triggering subject. All conditions of a
// rule must hold for the rule to fire; an empty list always matches.
type Condition struct {
	Field    string            `json:"field" bson:"field"`
	Operator ConditionOperator `json:"operator" bson:"operator"`
	Value    interface{}       `json:"value" bson:"value"`
}

type ActionType string

const (
	ActionCreateTask         ActionType = "create_task"
	ActionSendEmail          ActionType = "send_email"
	ActionSendWhatsApp       ActionType = "send_whatsapp"
	ActionUpdateLeadStatus   ActionType = "update_lead_status"
	ActionAddTag             ActionType = "add_tag"
	ActionCreateNotification ActionType = "create_notification"
	ActionUpdateScore        ActionType = "update_score"
)

func (t ActionType) IsValid() bool {
	switch t {
	case ActionCreateTask, ActionSendEmail, ActionSendWhatsApp, ActionUpdateLeadStatus,
		ActionAddTag, ActionCreateNotification, ActionUpdateScore:
		return true
	default:
		return false
	}
}

// Action is one side-effecting step a fired rule schedules. DelayMinutes is
// relative to the triggering event's timestamp; 0 means immediate.
type Action struct {
	Type         ActionType             `json:"type" bson:"type"`
	Config       map[string]interface{} `json:"config" bson:"config"`
	DelayMinutes int                    `json:"delay_minutes" bson:"delay_minutes"`
}

type AutomationRule struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name           string             `json:"name" bson:"name"`
	Description    string             `json:"description,omitempty" bson:"description,omitempty"`
	Trigger        TriggerKind        `json:"trigger" bson:"trigger"`
	Conditions     []Condition        `json:"conditions" bson:"conditions"`
	Actions        []Action           `json:"actions" bson:"actions"`
	IsActive       bool               `json:"is_active" bson:"is_active"`
	ExecutionCount int64              `json:"execution_count" bson:"execution_count"`
	LastExecutedAt *time.Time         `json:"last_executed_at,omitempty" bson:"last_executed_at,omitempty"`
	CreatedBy      string             `json:"created_by" bson:"created_by"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at" bson:"updated_at"`
}
