package template

import (
	"testing"

	"go-leadflow/internal/features/rule"
)

func sampleTemplate() *AutomationTemplate {
	return &AutomationTemplate{
		Name:        "Welcome flow",
		Description: "Greets a new lead",
		Rule: RuleSpec{
			Trigger: rule.TriggerLeadCreated,
			Conditions: []rule.Condition{
				{Field: "source", Operator: rule.OperatorEquals, Value: "website"},
			},
			Actions: []rule.Action{
				{
					Type:         rule.ActionCreateTask,
					Config:       map[string]interface{}{"title": "Call {{name}}"},
					DelayMinutes: 15,
				},
			},
		},
	}
}

func TestInstantiateRule(t *testing.T) {
	tmpl := sampleTemplate()

	r, err := InstantiateRule(tmpl)
	if err != nil {
		t.Fatalf("InstantiateRule failed: %v", err)
	}

	if r.Name != tmpl.Name || r.Trigger != tmpl.Rule.Trigger {
		t.Errorf("rule header not copied: %+v", r)
	}
	if !r.IsActive {
		t.Error("instantiated rule should start active")
	}
	if len(r.Conditions) != 1 || len(r.Actions) != 1 {
		t.Fatalf("got %d conditions / %d actions, want 1 / 1", len(r.Conditions), len(r.Actions))
	}
	if r.Actions[0].DelayMinutes != 15 {
		t.Errorf("delay = %d, want 15", r.Actions[0].DelayMinutes)
	}
}

func TestInstantiateRuleIsDeepCopy(t *testing.T) {
	tmpl := sampleTemplate()

	r, err := InstantiateRule(tmpl)
	if err != nil {
		t.Fatalf("InstantiateRule failed: %v", err)
	}

	// Mutating the instance must not reach back into the prototype.
	r.Conditions[0].Value = "referral"
	r.Actions[0].Config["title"] = "changed"
	r.Actions[0].DelayMinutes = 99

	if got := tmpl.Rule.Conditions[0].Value; got != "website" {
		t.Errorf("template condition mutated: %v", got)
	}
	if got := tmpl.Rule.Actions[0].Config["title"]; got != "Call {{name}}" {
		t.Errorf("template action config mutated: %v", got)
	}
	if got := tmpl.Rule.Actions[0].DelayMinutes; got != 15 {
		t.Errorf("template delay mutated: %d", got)
	}
}

func TestInstantiateRuleTwiceIndependent(t *testing.T) {
	tmpl := sampleTemplate()

	first, err := InstantiateRule(tmpl)
	if err != nil {
		t.Fatalf("first InstantiateRule failed: %v", err)
	}
	second, err := InstantiateRule(tmpl)
	if err != nil {
		t.Fatalf("second InstantiateRule failed: %v", err)
	}

	first.Actions[0].Config["title"] = "first only"
	if got := second.Actions[0].Config["title"]; got != "Call {{name}}" {
		t.Errorf("instances share config state: %v", got)
	}
}

func TestBuiltinCatalogInstantiatesValidRules(t *testing.T) {
	catalog := BuiltinCatalog()
	if len(catalog) == 0 {
		t.Fatal("builtin catalog is empty")
	}

	for _, tmpl := range catalog {
		tmpl := tmpl
		t.Run(tmpl.Name, func(t *testing.T) {
			r, err := InstantiateRule(&tmpl)
			if err != nil {
				t.Fatalf("InstantiateRule failed: %v", err)
			}
			if err := rule.Validate(r); err != nil {
				t.Errorf("catalog template produces invalid rule: %v", err)
			}
		})
	}
}
