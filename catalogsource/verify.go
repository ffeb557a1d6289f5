package catalogsource

import (
	"fmt"

	"github.com/nl2sqlc/nl2sqlc/catalog"
	"github.com/nl2sqlc/nl2sqlc/dialect"
)

// Verify introspects the live schema and cross-checks every entity in
// cat against it: an Attribute's Ref and every (table, column) a
// Metric's expression touches (via MetricExpr.Refs) must resolve to a
// real table/column, once both sides are case-folded per the source's
// dialect. This is the identifier comparison dialect.FoldIdentifier's
// doc describes — a hand-authored catalog document can decline to
// quote "Region" while MySQL/Postgres happen to report it back as
// "region", and that must not read as a mismatch.
func (s *Source) Verify(cat *catalog.Catalog) ([]string, error) {
	live, err := s.IntrospectTables()
	if err != nil {
		return nil, err
	}
	return diffAgainstLive(live, cat, s.d), nil
}

// diffAgainstLive is the pure comparison at Verify's core, split out so
// it can be exercised without a live database connection.
func diffAgainstLive(live map[string]catalog.TableDoc, cat *catalog.Catalog, d dialect.Dialect) []string {
	folded := make(map[string]map[string]bool, len(live))
	for table, doc := range live {
		cols := make(map[string]bool, len(doc.Columns))
		for _, c := range doc.Columns {
			cols[d.FoldIdentifier(c)] = true
		}
		folded[d.FoldIdentifier(table)] = cols
	}

	var mismatches []string
	for _, name := range cat.EntityNames() {
		entity, err := cat.ResolveEntity(name)
		if err != nil {
			continue
		}

		var refs []catalog.ColumnRef
		if entity.Kind == catalog.KindAttribute {
			refs = []catalog.ColumnRef{entity.Ref}
		} else {
			refs = entity.Expression.Refs()
		}

		for _, ref := range refs {
			cols, ok := folded[d.FoldIdentifier(ref.Table)]
			if !ok {
				mismatches = append(mismatches, fmt.Sprintf("entity %q: table %q not found in live schema", name, ref.Table))
				continue
			}
			if !cols[d.FoldIdentifier(ref.Column)] {
				mismatches = append(mismatches, fmt.Sprintf("entity %q: column %s not found in live schema", name, ref))
			}
		}
	}
	return mismatches
}
