package compiler

import (
	"github.com/nl2sqlc/nl2sqlc/catalog"
	"github.com/nl2sqlc/nl2sqlc/compileerr"
	"github.com/nl2sqlc/nl2sqlc/ir"
	"github.com/nl2sqlc/nl2sqlc/lowering"
	"github.com/nl2sqlc/nl2sqlc/planner"
)

// Explain runs the same validation and join-planning steps Compile
// does, without lowering or emitting SQL, and returns the resolved
// plan — the table set, driving table, and join sequence — for the
// CLI's --explain mode (SPEC_FULL.md's supplemented structured
// compile trace, grounded on sqldef's --dry-run/--export dual mode).
func Explain(query *ir.NL2SQL_IR, cat *catalog.Catalog) (*planner.Plan, *compileerr.Error) {
	if err := ir.Validate(query); err != nil {
		return nil, err
	}

	requirements, err := collectRequirements(cat, query)
	if err != nil {
		return nil, err
	}

	aliases := projectionAliasSet(query.Projections)
	if query.Having != nil {
		if err := validateHavingAliases(*query.Having, aliases, "/having"); err != nil {
			return nil, err
		}
	}

	hasAggregates, err := lowering.DetermineAggregateContext(cat, query.Projections)
	if err != nil {
		return nil, err
	}
	if err := validateGroupByCompleteness(cat, query.Projections, query.GroupBy, hasAggregates); err != nil {
		return nil, err
	}

	return planner.Build(cat, requirements)
}
