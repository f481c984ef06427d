// Package condition evaluates step predicate lists against an execution
// context.
package condition

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mcastro2021/barrioflow/model"
)

// Evaluate reports whether every condition holds against the context (AND
// semantics). A condition whose field is absent from the context evaluates
// to false: the caller skips the step, it is never an error.
func Evaluate(conds []model.Condition, ec model.ExecutionContext) bool {
	for _, c := range conds {
		if !evaluate(c, ec) {
			return false
		}
	}
	return true
}

func evaluate(c model.Condition, ec model.ExecutionContext) bool {
	actual, ok := ec[c.Field]
	if !ok {
		return false
	}

	switch c.Op {
	case model.OpEquals:
		return equal(actual, c.Value)
	case model.OpNotEquals:
		return !equal(actual, c.Value)
	case model.OpGreaterThan:
		a, b, ok := numericPair(actual, c.Value)
		return ok && a > b
	case model.OpLessThan:
		a, b, ok := numericPair(actual, c.Value)
		return ok && a < b
	case model.OpContains:
		return strings.Contains(fmt.Sprint(actual), fmt.Sprint(c.Value))
	}
	return false
}

// equal compares numerically when both sides coerce to numbers, otherwise
// by string form. This keeps YAML-loaded int/float literals comparable to
// context values of either type.
func equal(a, b any) bool {
	if fa, fb, ok := numericPair(a, b); ok {
		return fa == fb
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func numericPair(a, b any) (float64, float64, bool) {
	fa, ok := toFloat(a)
	if !ok {
		return 0, 0, false
	}
	fb, ok := toFloat(b)
	if !ok {
		return 0, 0, false
	}
	return fa, fb, true
}

func toFloat(v any) (float64, bool) {
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
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
