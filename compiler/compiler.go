// Package compiler is the driver: it runs IR validation, entity
// resolution, join planning, expression lowering, and SQL emission in
// sequence, producing one SQL string or one structured compileerr.Error
// (spec.md §1, §6.3). Compile is a pure function of its four
// arguments — no I/O, no mutable state, no process clock unless the
// caller passes lowering.SystemClock{} or nil — so it is safe to call from
// any number of goroutines concurrently (spec.md §5's determinism and
// concurrency invariants).
package compiler

import (
	"strconv"

	"github.com/nl2sqlc/nl2sqlc/catalog"
	"github.com/nl2sqlc/nl2sqlc/compileerr"
	"github.com/nl2sqlc/nl2sqlc/dialect"
	"github.com/nl2sqlc/nl2sqlc/emit"
	"github.com/nl2sqlc/nl2sqlc/ir"
	"github.com/nl2sqlc/nl2sqlc/lowering"
	"github.com/nl2sqlc/nl2sqlc/planner"
)

// Compile lowers a validated IR query against cat into a single SQL
// statement for the given dialect. clock resolves semantic temporal
// operators (LAST_MONTH, LAST_N_DAYS, THIS_YEAR); pass nil to use
// lowering.SystemClock{}.
func Compile(query *ir.NL2SQL_IR, cat *catalog.Catalog, d dialect.Dialect, clock lowering.Clock) (string, *compileerr.Error) {
	if err := ir.Validate(query); err != nil {
		return "", err
	}

	requirements, err := collectRequirements(cat, query)
	if err != nil {
		return "", err
	}

	aliases := projectionAliasSet(query.Projections)
	if query.Having != nil {
		if err := validateHavingAliases(*query.Having, aliases, "/having"); err != nil {
			return "", err
		}
	}

	hasAggregates, err := lowering.DetermineAggregateContext(cat, query.Projections)
	if err != nil {
		return "", err
	}
	if err := validateGroupByCompleteness(cat, query.Projections, query.GroupBy, hasAggregates); err != nil {
		return "", err
	}

	plan, err := planner.Build(cat, requirements)
	if err != nil {
		return "", err
	}

	l := lowering.New(cat, plan, d, clock)
	return emit.Emit(query, plan, l, d)
}

// collectRequirements walks every entity-bearing position in the IR,
// in the fixed order projections -> filters -> group_by -> having ->
// order_by, resolving each against the catalog and recording the
// first-occurrence table set the join planner needs.
func collectRequirements(cat *catalog.Catalog, query *ir.NL2SQL_IR) ([]planner.TableRequirement, *compileerr.Error) {
	rc := newRequirementCollector(cat)

	for i, p := range query.Projections {
		if err := rc.addEntity(p.Entity, "/projections/"+strconv.Itoa(i)+"/entity"); err != nil {
			return nil, err
		}
	}

	if query.Filters != nil {
		if err := rc.collectFilterGroup(*query.Filters, "/filters"); err != nil {
			return nil, err
		}
	}

	for i, g := range query.GroupBy {
		if err := rc.addEntity(g.Entity, "/group_by/"+strconv.Itoa(i)+"/entity"); err != nil {
			return nil, err
		}
	}

	if query.Having != nil {
		if err := rc.collectFilterGroup(*query.Having, "/having"); err != nil {
			return nil, err
		}
	}

	aliases := projectionAliasSet(query.Projections)
	for i, o := range query.OrderBy {
		if aliases[o.Field] {
			continue
		}
		if err := rc.addEntity(o.Field, "/order_by/"+strconv.Itoa(i)+"/field"); err != nil {
			return nil, err
		}
	}

	return rc.required, nil
}
