package template

import (
	"time"

	"go-leadflow/internal/features/rule"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RuleSpec is the prototype a template stamps rules out of. Same shape as
// AutomationRule minus identity and counters.
type RuleSpec struct {
	Trigger    rule.TriggerKind `json:"trigger" bson:"trigger"`
	Conditions []rule.Condition `json:"conditions" bson:"conditions"`
	Actions    []rule.Action    `json:"actions" bson:"actions"`
}

type AutomationTemplate struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	Icon        string             `json:"icon,omitempty" bson:"icon,omitempty"`
	Category    string             `json:"category,omitempty" bson:"category,omitempty"`
	Rule        RuleSpec           `json:"rule" bson:"rule"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
}
