package ir

import (
	"fmt"

	"github.com/nl2sqlc/nl2sqlc/compileerr"
)

// Validate runs the structural, catalog-independent checks from
// spec.md §4.2: field presence, operator-to-value-shape agreement,
// alias uniqueness across projections, and limit/offset non-negativity.
// Catalog-dependent checks (entity resolution, GROUP BY completeness
// against metric defaults, HAVING alias resolution) happen later in
// the compiler driver, once the catalog is available.
func Validate(q *NL2SQL_IR) *compileerr.Error {
	if len(q.Projections) == 0 {
		return compileerr.New(compileerr.EmptyProjection, "/projections", "projections must be a non-empty list")
	}

	seenAlias := make(map[string]int)
	for i, p := range q.Projections {
		loc := fmt.Sprintf("/projections/%d", i)
		if p.Entity == "" {
			return compileerr.New(compileerr.InvalidIR, loc+"/entity", "projection is missing entity")
		}
		if p.HasOp() && !validOp(p.Op) {
			return compileerr.New(compileerr.UnsupportedOperator, loc+"/op", "unknown projection operator %q", p.Op)
		}
		if p.Alias != "" {
			if prev, dup := seenAlias[p.Alias]; dup {
				return compileerr.New(compileerr.InvalidIR, loc+"/alias", "alias %q also used by projection %d", p.Alias, prev)
			}
			seenAlias[p.Alias] = i
		}
	}

	if q.Filters != nil {
		if err := validateGroup(*q.Filters, "/filters"); err != nil {
			return err
		}
	}

	for i, g := range q.GroupBy {
		if g.Entity == "" {
			return compileerr.New(compileerr.InvalidIR, fmt.Sprintf("/group_by/%d/entity", i), "group_by entry is missing entity")
		}
	}

	if q.Having != nil {
		if err := validateGroup(*q.Having, "/having"); err != nil {
			return err
		}
	}

	for i, o := range q.OrderBy {
		loc := fmt.Sprintf("/order_by/%d", i)
		if o.Field == "" {
			return compileerr.New(compileerr.InvalidIR, loc+"/field", "order_by entry is missing field")
		}
		switch o.Direction {
		case "", Asc, Desc:
		default:
			return compileerr.New(compileerr.InvalidIR, loc+"/direction", "unknown order_by direction %q", o.Direction)
		}
		switch o.Nulls {
		case "", NullsFirst, NullsLast:
		default:
			return compileerr.New(compileerr.InvalidIR, loc+"/nulls", "unknown order_by nulls placement %q", o.Nulls)
		}
	}

	if q.Limit != nil && *q.Limit < 0 {
		return compileerr.New(compileerr.InvalidIR, "/limit", "limit must be >= 0, got %d", *q.Limit)
	}
	if q.Offset != nil && *q.Offset < 0 {
		return compileerr.New(compileerr.InvalidIR, "/offset", "offset must be >= 0, got %d", *q.Offset)
	}

	return nil
}

func validOp(op Op) bool {
	switch op {
	case OpSum, OpCount, OpAvg, OpMin, OpMax, OpCountDistinct:
		return true
	}
	return false
}

// valueShapeRules: which ConditionOps require a value, forbid one, or
// require a list/window shape specifically.
func validateCondition(c Condition, loc string) *compileerr.Error {
	if !c.IsAliasRef() && c.Entity == "" {
		return compileerr.New(compileerr.InvalidIR, loc, "condition must set entity or entity_alias")
	}
	if c.IsAliasRef() && c.Entity != "" {
		return compileerr.New(compileerr.InvalidIR, loc, "condition must not set both entity and entity_alias")
	}

	switch c.Op {
	case OpEqual, OpNotEqual, OpGreaterThan, OpLessThan, OpGTE, OpLTE,
		OpContains, OpStartsWith, OpEndsWith:
		if !c.HasValue {
			return compileerr.New(compileerr.OperatorValueMismatch, loc, "operator %s requires a scalar value", c.Op)
		}
		if isList(c.Value) {
			return compileerr.New(compileerr.OperatorValueMismatch, loc, "operator %s requires a scalar value, got a list", c.Op)
		}

	case OpIn, OpNotIn:
		if !c.HasValue || !isList(c.Value) {
			return compileerr.New(compileerr.OperatorValueMismatch, loc, "operator %s requires a list value", c.Op)
		}

	case OpIsNull, OpIsNotNull, OpLastMonth, OpThisYear:
		if c.HasValue {
			return compileerr.New(compileerr.OperatorValueMismatch, loc, "operator %s must not carry a value", c.Op)
		}

	case OpLastNDays:
		if !c.HasValue || !isNumber(c.Value) {
			return compileerr.New(compileerr.OperatorValueMismatch, loc, "operator %s requires a numeric window value", c.Op)
		}

	default:
		return compileerr.New(compileerr.UnsupportedOperator, loc+"/op", "unknown condition operator %q", c.Op)
	}

	return nil
}

func validateGroup(g FilterGroup, loc string) *compileerr.Error {
	if g.IsLeaf() {
		return validateCondition(*g.Leaf, loc)
	}

	switch g.Operator {
	case And, Or:
	default:
		return compileerr.New(compileerr.InvalidIR, loc+"/operator", "unknown boolean operator %q", g.Operator)
	}
	if len(g.Conditions) == 0 {
		return compileerr.New(compileerr.InvalidIR, loc+"/conditions", "compound filter group has no conditions")
	}
	for i, c := range g.Conditions {
		if err := validateGroup(c, fmt.Sprintf("%s/conditions/%d", loc, i)); err != nil {
			return err
		}
	}
	return nil
}

func isList(v Value) bool {
	switch v.(type) {
	case []any, []string, []int, []float64:
		return true
	}
	return false
}

func isNumber(v Value) bool {
	switch v.(type) {
	case int, int32, int64, float32, float64:
		return true
	}
	return false
}
