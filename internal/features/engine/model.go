package engine

import (
	"fmt"
	"time"

	"go-leadflow/internal/features/execution"
	"go-leadflow/internal/features/rule"
)

// Event is an inbound domain event. The engine never generates these itself;
// collaborators (webhooks, the lead-source poller, the UI) forward them in.
type Event struct {
	ID         string                 `json:"id,omitempty"`
	Kind       rule.TriggerKind       `json:"kind"`
	Subject    map[string]interface{} `json:"subject"`
	OccurredAt time.Time              `json:"occurred_at,omitempty"`
}

// SubjectID extracts the subject entity id from the event payload.
func (e Event) SubjectID() string {
	for _, key := range []string{"id", "_id"} {
		if v, ok := e.Subject[key]; ok {
			return fmt.Sprintf("%v", v)
		}
	}
	return ""
}

func (e Event) Validate() error {
	if !e.Kind.IsValid() {
		return fmt.Errorf("unknown trigger kind %q", e.Kind)
	}
	if e.SubjectID() == "" {
		return fmt.Errorf("event subject must carry an id")
	}
	return nil
}

// ActionUpdate is pushed to live listeners whenever an action settles.
type ActionUpdate struct {
	ExecutionID string                 `json:"execution_id"`
	RuleID      string                 `json:"rule_id"`
	RuleName    string                 `json:"rule_name"`
	SubjectID   string                 `json:"subject_id"`
	ActionIndex int                    `json:"action_index"`
	Type        rule.ActionType        `json:"type"`
	Status      execution.ActionStatus `json:"status"`
	Error       string                 `json:"error,omitempty"`
	ExecutedAt  time.Time              `json:"executed_at"`
}

// ExecutionNotifier receives live action-status transitions. The websocket
// hub implements it; a no-op implementation is fine for tests.
type ExecutionNotifier interface {
	BroadcastActionUpdate(update ActionUpdate)
}

type NopNotifier struct{}

func (NopNotifier) BroadcastActionUpdate(ActionUpdate) {}
