// Package emit assembles already-lowered SQL fragments into the final
// statement text, in the fixed clause order spec.md §4.5 mandates:
// SELECT, FROM + JOINs, WHERE, GROUP BY, HAVING, ORDER BY, then
// pagination. A clause whose IR input is empty is omitted entirely —
// emit never writes "WHERE" with nothing after it.
//
// emit owns no validation: by the time an ir.NL2SQL_IR reaches
// here, the compiler driver has already run ir.Validate and every
// catalog-dependent check (entity resolution, GroupByMismatch,
// UnknownAlias). emit's only job is clause order and omission.
package emit

import (
	"strconv"
	"strings"

	"github.com/nl2sqlc/nl2sqlc/compileerr"
	"github.com/nl2sqlc/nl2sqlc/dialect"
	"github.com/nl2sqlc/nl2sqlc/ir"
	"github.com/nl2sqlc/nl2sqlc/lowering"
	"github.com/nl2sqlc/nl2sqlc/planner"
)

// Emit renders the full SELECT statement for query, given its already
// -computed join plan and an expression lowerer bound to that plan.
func Emit(query *ir.NL2SQL_IR, plan *planner.Plan, l *lowering.Lowerer, d dialect.Dialect) (string, *compileerr.Error) {
	hasAggregates, err := lowering.DetermineAggregateContext(l.Cat, query.Projections)
	if err != nil {
		return "", err
	}

	var b strings.Builder

	selectList, err := renderSelectList(query.Projections, hasAggregates, l)
	if err != nil {
		return "", err
	}
	b.WriteString("SELECT ")
	b.WriteString(selectList)

	b.WriteString("\nFROM ")
	b.WriteString(renderFrom(plan))

	if query.Filters != nil {
		whereClause, err := l.LowerFilterGroup(*query.Filters, false, "/filters")
		if err != nil {
			return "", err
		}
		b.WriteString("\nWHERE ")
		b.WriteString(whereClause)
	}

	if len(query.GroupBy) > 0 {
		groupClause, err := renderGroupBy(query.GroupBy, l)
		if err != nil {
			return "", err
		}
		b.WriteString("\nGROUP BY ")
		b.WriteString(groupClause)
	}

	if query.Having != nil {
		havingClause, err := l.LowerFilterGroup(*query.Having, true, "/having")
		if err != nil {
			return "", err
		}
		b.WriteString("\nHAVING ")
		b.WriteString(havingClause)
	}

	projectionAliases := aliasSet(query.Projections)
	orderByItems, err := renderOrderBy(query.OrderBy, projectionAliases, l)
	if err != nil {
		return "", err
	}

	needsPagination := query.Limit != nil || query.Offset != nil
	if orderByItems == "" && needsPagination && !d.UsesStandardPagination() {
		// SQL Server's OFFSET/FETCH requires an ORDER BY (spec.md §8 S6,
		// DESIGN.md Open Question). Synthesize a stable one over the
		// first projection rather than rejecting the query outright.
		synthetic, err := renderSyntheticOrderBy(query.Projections, hasAggregates, l)
		if err != nil {
			return "", err
		}
		orderByItems = synthetic
	}

	if orderByItems != "" {
		b.WriteString("\nORDER BY ")
		b.WriteString(orderByItems)
	}

	pagination, err := renderPagination(query, d)
	if err != nil {
		return "", err
	}
	if pagination != "" {
		b.WriteString("\n")
		b.WriteString(pagination)
	}

	return b.String(), nil
}

func renderSelectList(projections []ir.Projection, hasAggregates bool, l *lowering.Lowerer) (string, *compileerr.Error) {
	parts := make([]string, len(projections))
	for i, p := range projections {
		loc := "/projections/" + strconv.Itoa(i)
		expr, err := l.LowerProjection(p, hasAggregates, loc)
		if err != nil {
			return "", err
		}
		parts[i] = expr
	}
	return strings.Join(parts, ", "), nil
}

func renderFrom(plan *planner.Plan) string {
	var b strings.Builder
	b.WriteString(plan.Driving)
	b.WriteString(" AS ")
	b.WriteString(plan.AliasFor(plan.Driving))
	for _, j := range plan.Joins {
		b.WriteString("\nINNER JOIN ")
		b.WriteString(j.Table)
		b.WriteString(" AS ")
		b.WriteString(j.Alias)
		b.WriteString(" ON ")
		b.WriteString(j.LeftAlias)
		b.WriteString(".")
		b.WriteString(j.LeftColumn)
		b.WriteString(" = ")
		b.WriteString(j.Alias)
		b.WriteString(".")
		b.WriteString(j.RightColumn)
	}
	return b.String()
}

func renderGroupBy(groupBy []ir.GroupBy, l *lowering.Lowerer) (string, *compileerr.Error) {
	parts := make([]string, len(groupBy))
	for i, g := range groupBy {
		loc := "/group_by/" + strconv.Itoa(i) + "/entity"
		frag, err := l.LowerGroupByEntity(g.Entity, loc)
		if err != nil {
			return "", err
		}
		parts[i] = frag
	}
	return strings.Join(parts, ", "), nil
}

func renderOrderBy(orderBy []ir.OrderBy, projectionAliases map[string]bool, l *lowering.Lowerer) (string, *compileerr.Error) {
	items := make([]string, len(orderBy))
	for i, o := range orderBy {
		loc := "/order_by/" + strconv.Itoa(i) + "/field"
		frag, err := l.LowerOrderByField(o.Field, projectionAliases, loc)
		if err != nil {
			return "", err
		}
		item := frag + " " + string(o.EffectiveDirection())
		if o.Nulls != "" {
			item += " NULLS " + string(o.Nulls)
		}
		items[i] = item
	}
	return strings.Join(items, ", "), nil
}

// renderSyntheticOrderBy builds a stable "<first projection> ASC"
// ORDER BY: the first projection's alias when it has one, otherwise
// the same expression the SELECT list renders for it (via
// LowerProjectionExpr, aggregate wrapper included).
func renderSyntheticOrderBy(projections []ir.Projection, hasAggregates bool, l *lowering.Lowerer) (string, *compileerr.Error) {
	if len(projections) == 0 {
		return "", compileerr.New(compileerr.DialectRequiresOrderBy, "/order_by", "dialect requires ORDER BY for pagination and the query has no projections to synthesize one from")
	}
	first := projections[0]
	if first.Alias != "" {
		return first.Alias + " ASC", nil
	}
	expr, err := l.LowerProjectionExpr(first, hasAggregates, "/projections/0")
	if err != nil {
		return "", err
	}
	return expr + " ASC", nil
}

func aliasSet(projections []ir.Projection) map[string]bool {
	out := make(map[string]bool, len(projections))
	for _, p := range projections {
		if p.Alias != "" {
			out[p.Alias] = true
		}
	}
	return out
}
