package compiler

import (
	"strconv"

	"github.com/nl2sqlc/nl2sqlc/catalog"
	"github.com/nl2sqlc/nl2sqlc/compileerr"
	"github.com/nl2sqlc/nl2sqlc/ir"
	"github.com/nl2sqlc/nl2sqlc/planner"
)

// requirementCollector walks an IR tree collecting, in first-occurrence
// order, every physical table an entity reference needs and validating
// that every referenced entity actually exists in the catalog
// (spec.md §7 UnknownEntity). Table dedup preserves first-occurrence
// order so planner.Build's T0 choice (required[0]) matches "the first
// table referenced anywhere in the IR" (spec.md §4.3).
type requirementCollector struct {
	cat      *catalog.Catalog
	seen     map[string]bool
	required []planner.TableRequirement
}

func newRequirementCollector(cat *catalog.Catalog) *requirementCollector {
	return &requirementCollector{cat: cat, seen: map[string]bool{}}
}

func (rc *requirementCollector) addEntity(name, loc string) *compileerr.Error {
	e, err := rc.cat.ResolveEntity(name)
	if err != nil {
		return compileerr.New(compileerr.UnknownEntity, loc, "unknown entity %q", name)
	}
	for _, table := range e.Tables() {
		if !rc.seen[table] {
			rc.seen[table] = true
			rc.required = append(rc.required, planner.TableRequirement{Table: table, Location: loc})
		}
	}
	return nil
}

// collectFilterGroup walks a FilterGroup, resolving every entity-style
// leaf. Alias-style leaves (HAVING referencing a projection alias)
// contribute no table requirement; their alias is validated separately
// by validateHavingAliases.
func (rc *requirementCollector) collectFilterGroup(g ir.FilterGroup, loc string) *compileerr.Error {
	if g.IsLeaf() {
		if g.Leaf.IsAliasRef() {
			return nil
		}
		return rc.addEntity(g.Leaf.Entity, loc+"/entity")
	}
	for i, c := range g.Conditions {
		if err := rc.collectFilterGroup(c, loc+"/conditions/"+strconv.Itoa(i)); err != nil {
			return err
		}
	}
	return nil
}

// validateHavingAliases checks every alias-style leaf in a HAVING tree
// names a projection that actually declared that alias (spec.md §7
// UnknownAlias).
func validateHavingAliases(g ir.FilterGroup, aliases map[string]bool, loc string) *compileerr.Error {
	if g.IsLeaf() {
		if g.Leaf.IsAliasRef() && !aliases[g.Leaf.EntityAlias] {
			return compileerr.New(compileerr.UnknownAlias, loc+"/entity_alias", "having references undeclared alias %q", g.Leaf.EntityAlias)
		}
		return nil
	}
	for i, c := range g.Conditions {
		if err := validateHavingAliases(c, aliases, loc+"/conditions/"+strconv.Itoa(i)); err != nil {
			return err
		}
	}
	return nil
}

func projectionAliasSet(projections []ir.Projection) map[string]bool {
	out := make(map[string]bool, len(projections))
	for _, p := range projections {
		if p.Alias != "" {
			out[p.Alias] = true
		}
	}
	return out
}

// validateGroupByCompleteness enforces spec.md §3.2's invariant: when
// the query contains any aggregation, every projection that is itself
// not an aggregate (no explicit op, and not a metric with a default
// aggregation) must name an entity present in group_by. A query with
// no aggregation at all carries no such requirement (spec.md §8
// testable property 5).
func validateGroupByCompleteness(cat *catalog.Catalog, projections []ir.Projection, groupBy []ir.GroupBy, hasAggregates bool) *compileerr.Error {
	if !hasAggregates {
		return nil
	}

	grouped := make(map[string]bool, len(groupBy))
	for _, g := range groupBy {
		grouped[g.Entity] = true
	}

	for i, p := range projections {
		loc := "/projections/" + strconv.Itoa(i)
		if p.HasOp() {
			continue
		}
		e, err := cat.ResolveEntity(p.Entity)
		if err != nil {
			return compileerr.New(compileerr.UnknownEntity, loc+"/entity", "unknown entity %q", p.Entity)
		}
		if e.Kind == catalog.KindMetric && e.HasDefault {
			continue
		}
		if !grouped[p.Entity] {
			return compileerr.New(compileerr.GroupByMismatch, loc, "non-aggregate projection %q must appear in group_by", p.Entity)
		}
	}
	return nil
}
