package rule

import (
	"fmt"

	"go-leadflow/internal/common/errs"
)

// configKey returns the config field an action type cannot do without.
// Empty means the type has no required field.
func configKey(t ActionType) string {
	switch t {
	case ActionCreateTask:
		return "title"
	case ActionSendEmail:
		return "subject"
	case ActionSendWhatsApp, ActionCreateNotification:
		return "message"
	case ActionUpdateLeadStatus:
		return "status"
	case ActionAddTag:
		return "tag"
	case ActionUpdateScore:
		return "points"
	default:
		return ""
	}
}

// Validate checks an AutomationRule before it is persisted. It collects every
// problem instead of stopping at the first so the UI can render them all.
func Validate(r *AutomationRule) error {
	ve := &errs.ValidationError{}

	if r.Name == "" {
		ve.Add("name", "must not be empty")
	}
	if !r.Trigger.IsValid() {
		ve.Add("trigger", fmt.Sprintf("unknown trigger kind %q", r.Trigger))
	}

	for i, cond := range r.Conditions {
		if cond.Field == "" {
			ve.Add(fmt.Sprintf("conditions[%d].field", i), "must not be empty")
		}
		if !cond.Operator.IsValid() {
			ve.Add(fmt.Sprintf("conditions[%d].operator", i), fmt.Sprintf("unknown operator %q", cond.Operator))
		}
	}

	if len(r.Actions) == 0 {
		ve.Add("actions", "rule must have at least one action")
	}
	for i, action := range r.Actions {
		if !action.Type.IsValid() {
			ve.Add(fmt.Sprintf("actions[%d].type", i), fmt.Sprintf("unknown action type %q", action.Type))
			continue
		}
		if action.DelayMinutes < 0 {
			ve.Add(fmt.Sprintf("actions[%d].delay_minutes", i), "must not be negative")
		}
		if key := configKey(action.Type); key != "" {
			if v, ok := action.Config[key]; !ok || v == "" || v == nil {
				ve.Add(fmt.Sprintf("actions[%d].config.%s", i, key), "is required")
			}
		}
	}

	return ve.OrNil()
}
