package lowering

import (
	"fmt"

	"github.com/nl2sqlc/nl2sqlc/catalog"
	"github.com/nl2sqlc/nl2sqlc/compileerr"
	"github.com/nl2sqlc/nl2sqlc/ir"
)

// DetermineAggregateContext reports whether the query is an aggregate
// query at all: true if any projection carries an explicit op, or
// resolves to a Metric entity with a default aggregation (spec.md
// §3.2/§4.4 — a metric reference aggregates implicitly once the query
// is already an aggregate query). The compiler uses this both to
// decide how LowerProjection should treat bare metric references and
// to validate GroupByMismatch (every non-aggregate projection must
// appear in group_by when this is true).
func DetermineAggregateContext(cat *catalog.Catalog, projections []ir.Projection) (bool, *compileerr.Error) {
	for i, p := range projections {
		if p.HasOp() {
			return true, nil
		}
		e, err := cat.ResolveEntity(p.Entity)
		if err != nil {
			return false, compileerr.New(compileerr.UnknownEntity, fmt.Sprintf("/projections/%d/entity", i), "unknown entity %q", p.Entity)
		}
		if e.Kind == catalog.KindMetric && e.HasDefault {
			return true, nil
		}
	}
	return false, nil
}
