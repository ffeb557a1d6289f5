// Package planner implements spec.md §4.3: given the physical tables
// an IR references, compute a minimal connected subgraph of the
// catalog's foreign-key graph spanning them, assign stable aliases,
// and describe the FROM + JOIN sequence. INNER JOIN is the sole join
// kind (§4.3's rationale: the semantic layer does not express
// optionality in this MVP).
//
// The BFS below is the spiritual descendant of the teacher's
// schema/tsort.go: a generic graph walk keyed by string identifiers,
// with explicit visited bookkeeping so traversal order — and hence
// the emitted SQL — is reproducible across runs (spec.md §8 property 1).
package planner

import (
	"sort"

	"github.com/nl2sqlc/nl2sqlc/catalog"
	"github.com/nl2sqlc/nl2sqlc/compileerr"
)

// TableRequirement is one physical table an IR walk determined the
// query needs, tagged with the location of the first IR node that
// introduced it (used for error reporting and for picking T0).
type TableRequirement struct {
	Table    string
	Location string
}

// Join describes one `INNER JOIN <Table> AS <Alias> ON <LeftAlias>.<LeftColumn> = <Alias>.<RightColumn>`.
type Join struct {
	Table       string
	Alias       string
	LeftAlias   string
	LeftColumn  string
	RightColumn string
}

// Plan is the resolved driving table, alias assignment, and join
// sequence for one compile.
type Plan struct {
	Driving    string
	Aliases    map[string]string // physical table name -> "t1", "t2", ...
	AliasOrder []string          // table names, index 0 is the driving table (t1)
	Joins      []Join
}

// AliasFor returns the alias assigned to table, or "" if table did not
// participate in this plan.
func (p *Plan) AliasFor(table string) string { return p.Aliases[table] }

// Build computes the join plan for the given table requirements, in
// first-occurrence IR-traversal order. required must be de-duplicated
// by the caller (see compiler's entity-walk step) so required[0] is
// unambiguously the first table referenced anywhere in the IR.
func Build(cat *catalog.Catalog, required []TableRequirement) (*Plan, *compileerr.Error) {
	if len(required) == 0 {
		return nil, compileerr.New(compileerr.EmptyProjection, "/projections", "query does not reference any physical table")
	}

	t0 := required[0].Table
	if len(required) == 1 {
		return &Plan{
			Driving:    t0,
			Aliases:    map[string]string{t0: "t1"},
			AliasOrder: []string{t0},
		}, nil
	}

	type pendingJoin struct {
		fromTable   string
		table       string
		leftColumn  string
		rightColumn string
	}

	// Full BFS from t0 over its entire connected component, recording a
	// shortest-path parent tree: parent[table] is the single edge BFS
	// first reached it by. Visiting order here is the traversal order
	// the spec's tie-break rules (FK-declaration order, then FIFO
	// discovery) determine — it is NOT yet the join plan, since most of
	// this component may be irrelevant to the query (spec.md §4.3 step
	// 4/6(b): only bridge tables actually required to connect R belong
	// in the plan).
	visited := map[string]bool{t0: true}
	discoveryOrder := []string{t0}
	parent := map[string]pendingJoin{}

	queue := []string{t0}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		edges := append([]catalog.ForeignKeyEdge(nil), cat.EdgesOf(cur)...)
		sort.Slice(edges, func(i, j int) bool { return edges[i].DeclOrder < edges[j].DeclOrder })

		for _, e := range edges {
			leftCol, other := e.Other(cur)
			if visited[other.Table] {
				continue
			}
			visited[other.Table] = true
			discoveryOrder = append(discoveryOrder, other.Table)
			parent[other.Table] = pendingJoin{
				fromTable:   cur,
				table:       other.Table,
				leftColumn:  leftCol,
				rightColumn: other.Column,
			}
			queue = append(queue, other.Table)
		}
	}

	needed := requiredSet(required)
	if missing := firstUnreached(required, visited); missing != nil {
		return nil, compileerr.New(compileerr.DisconnectedJoinGraph, missing.Location,
			"table %q is not reachable from %q via the declared foreign keys", missing.Table, t0)
	}

	// Backtrack from every required table to t0 along the parent tree,
	// marking only the tables actually on a connecting path. Tables the
	// flood-fill above reached but that no required table's path passes
	// through (e.g. a second FK edge off a bridge table leading
	// somewhere no entity references) are left unmarked and excluded
	// from the plan.
	keep := map[string]bool{t0: true}
	for table := range needed {
		for cur := table; cur != t0; {
			if keep[cur] {
				break
			}
			keep[cur] = true
			cur = parent[cur].fromTable
		}
	}

	order := make([]string, 0, len(keep))
	for _, t := range discoveryOrder {
		if keep[t] {
			order = append(order, t)
		}
	}

	aliases := make(map[string]string, len(order))
	for i, t := range order {
		aliases[t] = aliasName(i)
	}

	joins := make([]Join, 0, len(order)-1)
	for _, t := range order {
		if t == t0 {
			continue
		}
		pj := parent[t]
		joins = append(joins, Join{
			Table:       pj.table,
			Alias:       aliases[pj.table],
			LeftAlias:   aliases[pj.fromTable],
			LeftColumn:  pj.leftColumn,
			RightColumn: pj.rightColumn,
		})
	}

	return &Plan{
		Driving:    t0,
		Aliases:    aliases,
		AliasOrder: order,
		Joins:      joins,
	}, nil
}

func aliasName(i int) string {
	// t1, t2, ... — i is zero-based inclusion order, T0 is always t1.
	digits := []byte{}
	n := i + 1
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return "t" + string(digits)
}

func requiredSet(required []TableRequirement) map[string]struct{} {
	out := make(map[string]struct{}, len(required))
	for _, r := range required {
		out[r.Table] = struct{}{}
	}
	return out
}

// firstUnreached returns the first (in required's original order)
// requirement whose table never got visited, or nil if all did.
func firstUnreached(required []TableRequirement, visited map[string]bool) *TableRequirement {
	seen := map[string]bool{}
	for i := range required {
		r := required[i]
		if seen[r.Table] {
			continue
		}
		seen[r.Table] = true
		if !visited[r.Table] {
			return &required[i]
		}
	}
	return nil
}
