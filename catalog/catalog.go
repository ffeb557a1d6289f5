// Package catalog holds the semantic layer: the read-only, in-memory
// mapping from business-level entity names to physical tables, columns,
// and the foreign-key graph that connects them.
//
// A Catalog is built once (via LoadFile, Parse or New) and never mutated
// afterwards. It is safe to share across any number of concurrent
// Compile calls.
package catalog

import (
	"fmt"
	"regexp"

	"github.com/nl2sqlc/nl2sqlc/catalog/metricexpr"
	"github.com/nl2sqlc/nl2sqlc/util"
)

// identifierPattern is the grammar §9 requires for all identifiers:
// table names, column names, entity names, and aliases.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether name matches the catalog's identifier
// grammar ([A-Za-z_][A-Za-z0-9_]*). Quoted identifiers with embedded
// specials are out of scope for this implementation.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// AggFunc is one of the default aggregation functions a Metric may
// carry, or one explicitly requested on a Projection.
type AggFunc string

const (
	AggSum           AggFunc = "SUM"
	AggCount         AggFunc = "COUNT"
	AggAvg           AggFunc = "AVG"
	AggMin           AggFunc = "MIN"
	AggMax           AggFunc = "MAX"
	AggCountDistinct AggFunc = "COUNT_DISTINCT"
)

// PhysicalTable is an immutable physical table: a name and its set of
// columns, keyed by column name for O(1) membership checks.
type PhysicalTable struct {
	Name    string
	Columns map[string]struct{}
}

// HasColumn reports whether the table declares the given column.
func (t PhysicalTable) HasColumn(column string) bool {
	_, ok := t.Columns[column]
	return ok
}

// ColumnRef is a single (table, column) slot, the atomic unit both
// Attribute entities and Metric expressions resolve to.
type ColumnRef struct {
	Table  string
	Column string
}

func (r ColumnRef) String() string {
	return fmt.Sprintf("%s.%s", r.Table, r.Column)
}

// EntityKind distinguishes an Attribute (single column) from a Metric
// (computed, possibly aggregated expression).
type EntityKind int

const (
	KindAttribute EntityKind = iota
	KindMetric
)

// Entity is a business-level name bound to either a single physical
// column (Attribute) or a computed expression over one or more columns
// (Metric). Exactly one of the Attribute/Metric-specific fields is
// meaningful, selected by Kind.
type Entity struct {
	Name string
	Kind EntityKind

	// Attribute fields.
	Ref        ColumnRef
	EnumValues map[string]struct{} // nil means unconstrained
	EnumStrict bool                // see DESIGN.md Open Questions

	// Metric fields.
	Expression  MetricExpr
	DefaultAgg  AggFunc
	HasDefault  bool // whether DefaultAgg is meaningful (metrics always set this true)
}

// Tables returns the set of physical table names this entity's
// resolution touches: exactly one for an Attribute, one or more for a
// Metric.
func (e Entity) Tables() []string {
	if e.Kind == KindAttribute {
		return []string{e.Ref.Table}
	}
	seen := make(map[string]struct{}, len(e.Expression.Spans))
	var out []string
	for _, ref := range e.Expression.Spans {
		if _, ok := seen[ref.Table]; !ok {
			seen[ref.Table] = struct{}{}
			out = append(out, ref.Table)
		}
	}
	return out
}

// MetricExpr is the structured form of a metric's defining SQL
// expression: opaque text plus the (table, column) slots found inside
// it, each located by byte span so the expression lowerer can rewrite
// them to alias-qualified form without string substitution (§9).
type MetricExpr struct {
	Text  string
	Spans []metricexpr.RefSpan
}

// Refs returns the distinct (table, column) pairs the expression
// touches, ignoring span position.
func (m MetricExpr) Refs() []ColumnRef {
	seen := make(map[ColumnRef]struct{}, len(m.Spans))
	var out []ColumnRef
	for _, s := range m.Spans {
		ref := ColumnRef{Table: s.Table, Column: s.Column}
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return out
}

// ForeignKeyEdge is an undirected join condition between two physical
// columns, as declared in the catalog document. Order of declaration
// (recorded via DeclOrder) is significant for join-planner tie-breaks.
type ForeignKeyEdge struct {
	DeclOrder int
	Left      ColumnRef
	Right     ColumnRef
}

// Other returns the endpoint of the edge that is not table t, along
// with the matching column on t's side. Panics if t is neither
// endpoint — callers only invoke this for edges already known to touch t.
func (e ForeignKeyEdge) Other(t string) (thisCol string, other ColumnRef) {
	if e.Left.Table == t {
		return e.Left.Column, e.Right
	}
	if e.Right.Table == t {
		return e.Right.Column, e.Left
	}
	panic(fmt.Sprintf("catalog: edge %s<->%s does not touch table %q", e.Left, e.Right, t))
}

// Catalog is the fully-resolved, read-only semantic layer.
type Catalog struct {
	tables   map[string]PhysicalTable
	entities map[string]Entity
	edges    []ForeignKeyEdge          // in declaration order
	adjacent map[string][]ForeignKeyEdge // table name -> edges touching it, in declaration order
}

// ResolveEntity looks up an entity by its business-level name.
func (c *Catalog) ResolveEntity(name string) (Entity, error) {
	e, ok := c.entities[name]
	if !ok {
		return Entity{}, &UnknownEntityError{Name: name}
	}
	return e, nil
}

// Table looks up a physical table by name.
func (c *Catalog) Table(name string) (PhysicalTable, bool) {
	t, ok := c.tables[name]
	return t, ok
}

// EdgesOf returns the foreign-key edges touching table, in the order
// they were declared in the catalog document — the join planner's
// first tie-break rule depends on this order being stable.
func (c *Catalog) EdgesOf(table string) []ForeignKeyEdge {
	return c.adjacent[table]
}

// EntityNames returns every entity name in the catalog, sorted for
// deterministic iteration (see util.CanonicalMapIter).
func (c *Catalog) EntityNames() []string {
	var names []string
	for name := range util.CanonicalMapIter(c.entities) {
		names = append(names, name)
	}
	return names
}
