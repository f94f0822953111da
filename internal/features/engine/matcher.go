package engine

import (
	"fmt"
	"strconv"
	"strings"

	"go-leadflow/internal/features/rule"
)

// MatchRules returns the rules whose conditions all hold against the event
// subject. Each rule is evaluated independently against the same immutable
// subject map; no state is shared between evaluations.
func MatchRules(rules []rule.AutomationRule, ev Event) []rule.AutomationRule {
	var matched []rule.AutomationRule
	for _, r := range rules {
		if !r.IsActive || r.Trigger != ev.Kind {
			continue
		}
		if EvaluateConditions(r.Conditions, ev.Subject) {
			matched = append(matched, r)
		}
	}
	return matched
}

// EvaluateConditions applies every condition with logical AND. An empty
// condition list trivially matches.
func EvaluateConditions(conditions []rule.Condition, subject map[string]interface{}) bool {
	for _, cond := range conditions {
		val, exists := subject[cond.Field]
		if !exists {
			return false
		}
		if !evaluate(cond.Operator, val, cond.Value) {
			return false
		}
	}
	return true
}

func evaluate(op rule.ConditionOperator, actual, expected interface{}) bool {
	switch op {
	case rule.OperatorEquals:
		return asString(actual) == asString(expected)
	case rule.OperatorNotEquals:
		return asString(actual) != asString(expected)
	case rule.OperatorContains:
		return strings.Contains(asString(actual), asString(expected))
	case rule.OperatorGreaterThan:
		a, b, ok := asNumbers(actual, expected)
		if !ok {
			return asString(actual) > asString(expected)
		}
		return a > b
	case rule.OperatorLessThan:
		a, b, ok := asNumbers(actual, expected)
		if !ok {
			return asString(actual) < asString(expected)
		}
		return a < b
	default:
		return false
	}
}

func asString(v interface{}) string {
	return fmt.Sprintf("%v", v)
}

func asNumbers(a, b interface{}) (float64, float64, bool) {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	return af, bf, aok && bok
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
