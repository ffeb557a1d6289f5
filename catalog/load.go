package catalog

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/nl2sqlc/nl2sqlc/catalog/metricexpr"
	"gopkg.in/yaml.v2"
)

// LoadFile reads and parses a catalog document from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a catalog document from YAML bytes and builds a
// Catalog, running every invariant check in spec.md §3.1/§4.1.
func Parse(data []byte) (*Catalog, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &CatalogError{Message: fmt.Sprintf("invalid catalog document: %s", err)}
	}
	return New(doc)
}

// New builds a Catalog from an already-decoded Document, running the
// same validation Parse does. Exposed separately so catalog documents
// assembled programmatically (e.g. by catalogsource's live
// introspection) can skip the YAML round-trip.
func New(doc Document) (*Catalog, error) {
	tables, err := buildTables(doc)
	if err != nil {
		return nil, err
	}
	declared := declaredTableSet(tables)

	entities := make(map[string]Entity, len(doc.Entities))
	for name := range doc.Entities {
		if !ValidIdentifier(name) {
			return nil, &CatalogError{Location: "/entities/" + name, Message: "entity name is not a valid identifier"}
		}
	}

	for name, ed := range doc.Entities {
		loc := "/entities/" + name
		entity, err := buildEntity(name, ed, tables, declared, loc)
		if err != nil {
			return nil, err
		}
		if _, dup := entities[name]; dup {
			return nil, &CatalogError{Location: loc, Message: "duplicate entity name"}
		}
		entities[name] = entity
	}

	edges := make([]ForeignKeyEdge, 0, len(doc.ForeignKeys))
	adjacent := make(map[string][]ForeignKeyEdge)
	for i, fd := range doc.ForeignKeys {
		loc := fmt.Sprintf("/foreign_keys/%d", i)
		edge, err := buildEdge(i, fd, tables, declared, loc)
		if err != nil {
			return nil, err
		}
		edges = append(edges, edge)
		adjacent[edge.Left.Table] = append(adjacent[edge.Left.Table], edge)
		adjacent[edge.Right.Table] = append(adjacent[edge.Right.Table], edge)
	}

	return &Catalog{
		tables:   tables,
		entities: entities,
		edges:    edges,
		adjacent: adjacent,
	}, nil
}

func buildTables(doc Document) (map[string]PhysicalTable, error) {
	tables := make(map[string]PhysicalTable, len(doc.Tables))
	for name, td := range doc.Tables {
		if !ValidIdentifier(name) {
			return nil, &CatalogError{Location: "/tables/" + name, Message: "table name is not a valid identifier"}
		}
		cols := make(map[string]struct{}, len(td.Columns))
		for _, c := range td.Columns {
			if !ValidIdentifier(c) {
				return nil, &CatalogError{Location: "/tables/" + name, Message: fmt.Sprintf("column %q is not a valid identifier", c)}
			}
			cols[c] = struct{}{}
		}
		tables[name] = PhysicalTable{Name: name, Columns: cols}
	}
	return tables, nil
}

// ensureTable returns the named table, synthesizing an entry with no
// declared columns if the (optional) `tables:` section omitted it —
// §6.1 marks `tables` optional, used "for validation" only when present.
func ensureTable(tables map[string]PhysicalTable, name string) PhysicalTable {
	if t, ok := tables[name]; ok {
		return t
	}
	t := PhysicalTable{Name: name, Columns: map[string]struct{}{}}
	tables[name] = t
	return t
}

// columnKnown reports whether table/column is a valid reference: true
// if the table was never declared in `tables:` (nothing to validate
// against) or if it was declared and lists the column.
func columnKnown(tables map[string]PhysicalTable, declaredTables map[string]bool, table, column string) bool {
	if !declaredTables[table] {
		return true
	}
	return tables[table].HasColumn(column)
}

func buildEntity(name string, ed EntityDoc, tables map[string]PhysicalTable, declared map[string]bool, loc string) (Entity, error) {
	switch ed.Type {
	case "attribute":
		if ed.Table == "" || ed.Column == "" {
			return Entity{}, &CatalogError{Location: loc, Message: "attribute entity requires table and column"}
		}
		if !columnKnown(tables, declared, ed.Table, ed.Column) {
			return Entity{}, &CatalogError{Location: loc, Message: fmt.Sprintf("dangling column reference %s.%s", ed.Table, ed.Column)}
		}
		ensureTable(tables, ed.Table)

		entity := Entity{
			Name: name,
			Kind: KindAttribute,
			Ref:  ColumnRef{Table: ed.Table, Column: ed.Column},
		}
		if len(ed.EnumValues) > 0 {
			enum := make(map[string]struct{}, len(ed.EnumValues))
			for _, v := range ed.EnumValues {
				enum[v] = struct{}{}
			}
			entity.EnumValues = enum
			entity.EnumStrict = ed.Strict == nil || *ed.Strict
		}
		return entity, nil

	case "metric":
		if ed.Expression == "" || len(ed.MetricTables) == 0 {
			return Entity{}, &CatalogError{Location: loc, Message: "metric entity requires expression and tables"}
		}
		agg := AggFunc(ed.DefaultAgg)
		switch agg {
		case AggSum, AggCount, AggAvg, AggMin, AggMax, AggCountDistinct:
		default:
			return Entity{}, &CatalogError{Location: loc, Message: fmt.Sprintf("unknown default_agg %q", ed.DefaultAgg)}
		}

		spans, err := metricexpr.Parse(ed.Expression)
		if err != nil {
			return Entity{}, &CatalogError{Location: loc, Message: err.Error()}
		}
		if len(spans) == 0 {
			return Entity{}, &CatalogError{Location: loc, Message: "metric expression references no columns"}
		}

		declaredMetricTables := make(map[string]bool, len(ed.MetricTables))
		for _, t := range ed.MetricTables {
			declaredMetricTables[t] = true
			ensureTable(tables, t)
		}
		for _, s := range spans {
			if !declaredMetricTables[s.Table] {
				return Entity{}, &CatalogError{Location: loc, Message: fmt.Sprintf("metric expression references table %q not listed in its tables", s.Table)}
			}
			if !columnKnown(tables, declared, s.Table, s.Column) {
				return Entity{}, &CatalogError{Location: loc, Message: fmt.Sprintf("dangling column reference %s.%s", s.Table, s.Column)}
			}
		}

		return Entity{
			Name:       name,
			Kind:       KindMetric,
			Expression: MetricExpr{Text: ed.Expression, Spans: spans},
			DefaultAgg: agg,
			HasDefault: true,
		}, nil

	default:
		return Entity{}, &CatalogError{Location: loc, Message: fmt.Sprintf("unknown entity type %q", ed.Type)}
	}
}

func declaredTableSet(tables map[string]PhysicalTable) map[string]bool {
	// A nil/empty `tables:` section means the document never opted
	// into per-column validation; columnKnown treats every table as
	// undeclared in that case by consulting this set, which is built
	// from the document's own Tables map *before* ensureTable starts
	// synthesizing entries for unlisted tables referenced elsewhere.
	out := make(map[string]bool, len(tables))
	for name := range tables {
		out[name] = true
	}
	return out
}

func buildEdge(order int, fd ForeignKeyDoc, tables map[string]PhysicalTable, declared map[string]bool, loc string) (ForeignKeyEdge, error) {
	if fd.LeftTable == "" || fd.LeftColumn == "" || fd.RightTable == "" || fd.RightColumn == "" {
		return ForeignKeyEdge{}, &CatalogError{Location: loc, Message: "foreign key edge requires left_table, left_column, right_table, right_column"}
	}
	if !columnKnown(tables, declared, fd.LeftTable, fd.LeftColumn) {
		return ForeignKeyEdge{}, &CatalogError{Location: loc, Message: fmt.Sprintf("dangling column reference %s.%s", fd.LeftTable, fd.LeftColumn)}
	}
	if !columnKnown(tables, declared, fd.RightTable, fd.RightColumn) {
		return ForeignKeyEdge{}, &CatalogError{Location: loc, Message: fmt.Sprintf("dangling column reference %s.%s", fd.RightTable, fd.RightColumn)}
	}
	ensureTable(tables, fd.LeftTable)
	ensureTable(tables, fd.RightTable)

	return ForeignKeyEdge{
		DeclOrder: order,
		Left:      ColumnRef{Table: fd.LeftTable, Column: fd.LeftColumn},
		Right:     ColumnRef{Table: fd.RightTable, Column: fd.RightColumn},
	}, nil
}

// CheckEnumValue validates a literal against an attribute entity's
// enum_values constraint, if any. It returns ok=false only when the
// entity is strict about its enum; a non-strict violation is logged
// and reported as accepted (see DESIGN.md's EnumValueRejected note).
func CheckEnumValue(entity Entity, value string) (ok bool) {
	if entity.EnumValues == nil {
		return true
	}
	if _, in := entity.EnumValues[value]; in {
		return true
	}
	if !entity.EnumStrict {
		slog.Warn("literal outside declared enum_values", "entity", entity.Name, "value", value)
		return true
	}
	return false
}
