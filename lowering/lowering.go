// Package lowering translates validated IR fragments — entity
// references, projections, filter/having trees, GROUP BY and ORDER BY
// entries — into SQL text fragments bound to a planner.Plan's aliases
// (spec.md §4.4). It never decides clause order or omission; that is
// emit's job. lowering only answers "what text does this IR node
// produce," given a catalog, a join plan, and a dialect.
package lowering

import (
	"strings"

	"github.com/nl2sqlc/nl2sqlc/catalog"
	"github.com/nl2sqlc/nl2sqlc/catalog/metricexpr"
	"github.com/nl2sqlc/nl2sqlc/compileerr"
	"github.com/nl2sqlc/nl2sqlc/dialect"
	"github.com/nl2sqlc/nl2sqlc/ir"
	"github.com/nl2sqlc/nl2sqlc/planner"
)

// Lowerer holds the fixed context (catalog, join plan, dialect, clock)
// a single compile's lowering needs. It carries no mutable state and
// is safe to reuse across the projections/filters/having/order_by of
// one query — never across queries, since Plan is query-specific.
type Lowerer struct {
	Cat    *catalog.Catalog
	Plan   *planner.Plan
	Dialect dialect.Dialect
	Clock  Clock
}

// New builds a Lowerer, defaulting Clock to SystemClock when nil.
func New(cat *catalog.Catalog, plan *planner.Plan, d dialect.Dialect, clock Clock) *Lowerer {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Lowerer{Cat: cat, Plan: plan, Dialect: d, Clock: clock}
}

// resolve fetches an entity, wrapping catalog's UnknownEntityError in
// a compileerr.Error. Entities should already have been validated to
// exist by the compiler's entity-walk step; this is a defensive
// second check, not the primary one.
func (l *Lowerer) resolve(name, loc string) (catalog.Entity, *compileerr.Error) {
	e, err := l.Cat.ResolveEntity(name)
	if err != nil {
		return catalog.Entity{}, compileerr.New(compileerr.UnknownEntity, loc, "unknown entity %q", name)
	}
	return e, nil
}

// entityFragmentRaw renders an entity's unwrapped SQL fragment: an
// Attribute becomes "alias.column"; a Metric becomes its expression
// text with every (table, column) slot rewritten to "alias.column",
// via metricexpr.Rewrite — never by string substitution.
func (l *Lowerer) entityFragmentRaw(e catalog.Entity) string {
	if e.Kind == catalog.KindAttribute {
		return l.Plan.AliasFor(e.Ref.Table) + "." + e.Ref.Column
	}
	aliasFor := func(table string) string { return l.Plan.AliasFor(table) }
	return metricexpr.Rewrite(e.Expression.Text, e.Expression.Spans, aliasFor)
}

// entityFragmentStandalone is entityFragmentRaw, parenthesized when
// the entity is a Metric so the fragment is safe to use bare as a
// comparison operand or ORDER BY/GROUP BY item (arithmetic precedence,
// independent of any AND/OR boolean grouping — see spec.md §8 S3).
func (l *Lowerer) entityFragmentStandalone(e catalog.Entity) string {
	raw := l.entityFragmentRaw(e)
	if e.Kind == catalog.KindMetric {
		return "(" + raw + ")"
	}
	return raw
}

func wrapAgg(op catalog.AggFunc, fragment string) string {
	if op == catalog.AggCountDistinct {
		return "COUNT(DISTINCT " + fragment + ")"
	}
	return string(op) + "(" + fragment + ")"
}

// LowerGroupByEntity renders one GROUP BY entry's fragment.
func (l *Lowerer) LowerGroupByEntity(name, loc string) (string, *compileerr.Error) {
	e, err := l.resolve(name, loc)
	if err != nil {
		return "", err
	}
	return l.entityFragmentStandalone(e), nil
}

// LowerOrderByField renders one ORDER BY field: if it names a
// projection alias it is rendered bare (unqualified, per spec.md
// §4.4); otherwise it is resolved as a catalog entity.
func (l *Lowerer) LowerOrderByField(field string, projectionAliases map[string]bool, loc string) (string, *compileerr.Error) {
	if projectionAliases[field] {
		return field, nil
	}
	e, err := l.resolve(field, loc)
	if err != nil {
		return "", err
	}
	return l.entityFragmentStandalone(e), nil
}

// LowerProjection renders one SELECT-list entry's SQL text, including
// its "AS alias" suffix when present. hasAggregates tells the lowerer
// whether the overall query contains any aggregation at all (explicit
// op, or a bare metric reference) — a metric entity without an
// explicit op only has its default aggregation applied implicitly
// when the query is already an aggregate query; standing alone it is
// a raw (row-level) expression (spec.md §4.4).
func (l *Lowerer) LowerProjection(p ir.Projection, hasAggregates bool, loc string) (string, *compileerr.Error) {
	expr, err := l.LowerProjectionExpr(p, hasAggregates, loc)
	if err != nil {
		return "", err
	}
	if p.Alias != "" {
		expr += " AS " + p.Alias
	}
	return expr, nil
}

// LowerProjectionExpr is LowerProjection without the trailing "AS
// alias" — used by the emitter's synthetic-ORDER-BY path (SQL Server
// pagination without an explicit order_by), which needs the same
// sort key the SELECT list computes, not a second, independently
// aggregated copy.
func (l *Lowerer) LowerProjectionExpr(p ir.Projection, hasAggregates bool, loc string) (string, *compileerr.Error) {
	e, err := l.resolve(p.Entity, loc+"/entity")
	if err != nil {
		return "", err
	}

	switch {
	case p.HasOp():
		return wrapAgg(catalog.AggFunc(p.Op), l.entityFragmentRaw(e)), nil
	case e.Kind == catalog.KindMetric && e.HasDefault && hasAggregates:
		return wrapAgg(e.DefaultAgg, l.entityFragmentRaw(e)), nil
	default:
		return l.entityFragmentStandalone(e), nil
	}
}

// LowerCondition renders one leaf Condition. having distinguishes a
// HAVING-context condition (where a bare entity reference implies its
// default aggregation — "aggregates inline", spec.md §3.2) from a
// WHERE-context condition (where entities are always row-level,
// unaggregated).
func (l *Lowerer) LowerCondition(c ir.Condition, having bool, loc string) (string, *compileerr.Error) {
	var operand string
	if c.IsAliasRef() {
		operand = c.EntityAlias
	} else {
		e, err := l.resolve(c.Entity, loc+"/entity")
		if err != nil {
			return "", err
		}
		if err := checkEnumConstraint(e, c, loc); err != nil {
			return "", err
		}
		if having && e.Kind == catalog.KindMetric && e.HasDefault {
			operand = wrapAgg(e.DefaultAgg, l.entityFragmentRaw(e))
		} else {
			operand = l.entityFragmentStandalone(e)
		}
	}

	return l.renderComparison(operand, c.Op, c.Value, loc)
}

// checkEnumConstraint enforces an attribute entity's enum_values
// constraint (spec.md §7 EnumValueRejected) against the literal values
// of an EQUAL/NOT_EQUAL/IN/NOT_IN condition. catalog.CheckEnumValue
// decides severity per the entity's strict flag; only a strict
// violation reaches here as an error.
func checkEnumConstraint(e catalog.Entity, c ir.Condition, loc string) *compileerr.Error {
	if e.Kind != catalog.KindAttribute || e.EnumValues == nil {
		return nil
	}
	switch c.Op {
	case ir.OpEqual, ir.OpNotEqual:
		s, ok := c.Value.(string)
		if !ok {
			return nil
		}
		if !catalog.CheckEnumValue(e, s) {
			return compileerr.New(compileerr.EnumValueRejected, loc, "value %q is not a declared enum_value for entity %q", s, e.Name)
		}
	case ir.OpIn, ir.OpNotIn:
		items, err := toSlice(c.Value, loc)
		if err != nil {
			return nil
		}
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				continue
			}
			if !catalog.CheckEnumValue(e, s) {
				return compileerr.New(compileerr.EnumValueRejected, loc, "value %q is not a declared enum_value for entity %q", s, e.Name)
			}
		}
	}
	return nil
}

// LowerFilterGroup recursively renders a filter/having tree per
// spec.md §4.4: a leaf renders as its condition; a single-child
// compound renders as its child, unwrapped; an N-child (N>1) compound
// renders as "(c1) OP (c2) OP ... (cN)".
func (l *Lowerer) LowerFilterGroup(g ir.FilterGroup, having bool, loc string) (string, *compileerr.Error) {
	if g.IsLeaf() {
		return l.LowerCondition(*g.Leaf, having, loc)
	}
	if len(g.Conditions) == 1 {
		return l.LowerFilterGroup(g.Conditions[0], having, loc+"/conditions/0")
	}

	parts := make([]string, len(g.Conditions))
	for i, c := range g.Conditions {
		s, err := l.LowerFilterGroup(c, having, loc+"/conditions/"+itoa(i))
		if err != nil {
			return "", err
		}
		parts[i] = "(" + s + ")"
	}
	return strings.Join(parts, " "+string(g.Operator)+" "), nil
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var digits []byte
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}
