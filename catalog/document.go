package catalog

// Document is the on-disk shape of a semantic catalog, as described in
// spec.md §6.1. It is decoded from YAML — a JSON superset that permits
// comments, satisfying the "JSON-family, comments permitted" wording
// without a bespoke JSON5 parser (see SPEC_FULL.md AMBIENT STACK).
type Document struct {
	Tables      map[string]TableDoc  `yaml:"tables"`
	Entities    map[string]EntityDoc `yaml:"entities"`
	ForeignKeys []ForeignKeyDoc      `yaml:"foreign_keys"`
}

// TableDoc enumerates a physical table's columns, used for validation
// when present. Optional: a catalog document may omit it entirely and
// rely purely on entity/FK column references to imply table shape, or
// (see catalogsource) have it populated by live introspection.
type TableDoc struct {
	Columns []string `yaml:"columns"`
}

// EntityDoc is the union of an attribute document and a metric
// document; Type selects which fields are meaningful.
type EntityDoc struct {
	Type string `yaml:"type"` // "attribute" | "metric"

	// Attribute fields.
	Table      string   `yaml:"table"`
	Column     string   `yaml:"column"`
	EnumValues []string `yaml:"enum_values"`
	Strict     *bool    `yaml:"strict"` // default true, see DESIGN.md

	// Metric fields.
	Expression string   `yaml:"expression"`
	MetricTables []string `yaml:"tables"`
	DefaultAgg string   `yaml:"default_agg"`
}

// ForeignKeyDoc is one `{left_table, left_column, right_table,
// right_column}` edge. Declaration order in ForeignKeys is
// semantically significant for join-planner tie-breaking.
type ForeignKeyDoc struct {
	LeftTable   string `yaml:"left_table"`
	LeftColumn  string `yaml:"left_column"`
	RightTable  string `yaml:"right_table"`
	RightColumn string `yaml:"right_column"`
}
