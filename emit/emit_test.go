package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nl2sqlc/nl2sqlc/catalog"
	"github.com/nl2sqlc/nl2sqlc/dialect"
	"github.com/nl2sqlc/nl2sqlc/ir"
	"github.com/nl2sqlc/nl2sqlc/lowering"
	"github.com/nl2sqlc/nl2sqlc/planner"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	doc := catalog.Document{
		Tables: map[string]catalog.TableDoc{
			"customers":   {Columns: []string{"id", "region"}},
			"products":    {Columns: []string{"id", "name"}},
			"order_items": {Columns: []string{"id", "customer_id", "product_id", "quantity", "unit_price"}},
		},
		Entities: map[string]catalog.EntityDoc{
			"region":       {Type: "attribute", Table: "customers", Column: "region"},
			"product_name": {Type: "attribute", Table: "products", Column: "name"},
			"sales_amount": {Type: "metric", Expression: "order_items.quantity * order_items.unit_price",
				MetricTables: []string{"order_items"}, DefaultAgg: "SUM"},
		},
		ForeignKeys: []catalog.ForeignKeyDoc{
			{LeftTable: "order_items", LeftColumn: "customer_id", RightTable: "customers", RightColumn: "id"},
			{LeftTable: "order_items", LeftColumn: "product_id", RightTable: "products", RightColumn: "id"},
		},
	}
	cat, err := catalog.New(doc)
	require.NoError(t, err)
	return cat
}

// TestEmitS1BasicProjectionAndFilter reproduces spec.md §8 scenario S1:
// a single-table projection with a CONTAINS filter, no joins.
func TestEmitS1BasicProjectionAndFilter(t *testing.T) {
	cat, err := catalog.New(catalog.Document{
		Tables:   map[string]catalog.TableDoc{"products": {Columns: []string{"id", "name"}}},
		Entities: map[string]catalog.EntityDoc{"product_name": {Type: "attribute", Table: "products", Column: "name"}},
	})
	require.NoError(t, err)

	query := &ir.NL2SQL_IR{
		Projections: []ir.Projection{{Entity: "product_name"}},
		Filters: &ir.FilterGroup{Leaf: &ir.Condition{
			Entity: "product_name", Op: ir.OpContains, Value: "电脑", HasValue: true,
		}},
	}

	plan, cerr := planner.Build(cat, []planner.TableRequirement{{Table: "products", Location: "/projections/0"}})
	require.Nil(t, cerr)

	l := lowering.New(cat, plan, dialect.Standard, nil)
	sql, cerr := Emit(query, plan, l, dialect.Standard)
	require.Nil(t, cerr)

	assert.Equal(t, "SELECT t1.name\nFROM products AS t1\nWHERE t1.name LIKE '%电脑%'", sql)
}

// TestEmitS2AggregationWithJoinAndGroupBy reproduces spec.md §8 S2.
func TestEmitS2AggregationWithJoinAndGroupBy(t *testing.T) {
	cat := testCatalog(t)

	query := &ir.NL2SQL_IR{
		Projections: []ir.Projection{
			{Entity: "region"},
			{Entity: "sales_amount", Op: ir.OpSum, Alias: "total_sales"},
		},
		GroupBy: []ir.GroupBy{{Entity: "region"}},
	}

	plan, cerr := planner.Build(cat, []planner.TableRequirement{
		{Table: "customers", Location: "/projections/0"},
		{Table: "order_items", Location: "/projections/1"},
	})
	require.Nil(t, cerr)

	l := lowering.New(cat, plan, dialect.Standard, nil)
	sql, cerr := Emit(query, plan, l, dialect.Standard)
	require.Nil(t, cerr)

	assert.Contains(t, sql, "SELECT t1.region, SUM(t2.quantity * t2.unit_price) AS total_sales")
	assert.Contains(t, sql, "INNER JOIN order_items AS t2 ON t1.id = t2.customer_id")
	assert.Contains(t, sql, "GROUP BY t1.region")
}

// TestEmitS4HavingAliasReference reproduces spec.md §8 S4.
func TestEmitS4HavingAliasReference(t *testing.T) {
	cat := testCatalog(t)

	query := &ir.NL2SQL_IR{
		Projections: []ir.Projection{
			{Entity: "region"},
			{Entity: "sales_amount", Op: ir.OpSum, Alias: "total_sales"},
		},
		GroupBy: []ir.GroupBy{{Entity: "region"}},
		Having: &ir.FilterGroup{Leaf: &ir.Condition{
			EntityAlias: "total_sales", Op: ir.OpGreaterThan, Value: 1000, HasValue: true,
		}},
	}

	plan, cerr := planner.Build(cat, []planner.TableRequirement{
		{Table: "customers", Location: "/projections/0"},
		{Table: "order_items", Location: "/projections/1"},
	})
	require.Nil(t, cerr)

	l := lowering.New(cat, plan, dialect.Standard, nil)
	sql, cerr := Emit(query, plan, l, dialect.Standard)
	require.Nil(t, cerr)
	assert.Contains(t, sql, "HAVING total_sales > 1000")
}

// TestEmitS6SQLServerPaginationSynthesizesOrderBy reproduces spec.md
// §8 S6: SQL Server pagination with no explicit order_by.
func TestEmitS6SQLServerPaginationSynthesizesOrderBy(t *testing.T) {
	cat, err := catalog.New(catalog.Document{
		Tables:   map[string]catalog.TableDoc{"products": {Columns: []string{"id", "name"}}},
		Entities: map[string]catalog.EntityDoc{"product_name": {Type: "attribute", Table: "products", Column: "name"}},
	})
	require.NoError(t, err)

	limit := 10
	query := &ir.NL2SQL_IR{
		Projections: []ir.Projection{{Entity: "product_name"}},
		Limit:       &limit,
	}

	plan, cerr := planner.Build(cat, []planner.TableRequirement{{Table: "products", Location: "/projections/0"}})
	require.Nil(t, cerr)

	l := lowering.New(cat, plan, dialect.SQLServer, nil)
	sql, cerr := Emit(query, plan, l, dialect.SQLServer)
	require.Nil(t, cerr)

	assert.Contains(t, sql, "ORDER BY t1.name ASC")
	assert.Contains(t, sql, "OFFSET 0 ROWS FETCH NEXT 10 ROWS ONLY")
}

func TestEmitStandardPaginationOmitsOrderByWhenNotRequested(t *testing.T) {
	cat, err := catalog.New(catalog.Document{
		Tables:   map[string]catalog.TableDoc{"products": {Columns: []string{"id", "name"}}},
		Entities: map[string]catalog.EntityDoc{"product_name": {Type: "attribute", Table: "products", Column: "name"}},
	})
	require.NoError(t, err)

	limit := 5
	query := &ir.NL2SQL_IR{
		Projections: []ir.Projection{{Entity: "product_name"}},
		Limit:       &limit,
	}

	plan, cerr := planner.Build(cat, []planner.TableRequirement{{Table: "products", Location: "/projections/0"}})
	require.Nil(t, cerr)

	l := lowering.New(cat, plan, dialect.Standard, nil)
	sql, cerr := Emit(query, plan, l, dialect.Standard)
	require.Nil(t, cerr)

	assert.NotContains(t, sql, "ORDER BY")
	assert.Contains(t, sql, "LIMIT 5")
}

func TestEmitEmptyFilterOmitsWhereClause(t *testing.T) {
	cat, err := catalog.New(catalog.Document{
		Tables:   map[string]catalog.TableDoc{"products": {Columns: []string{"id", "name"}}},
		Entities: map[string]catalog.EntityDoc{"product_name": {Type: "attribute", Table: "products", Column: "name"}},
	})
	require.NoError(t, err)

	query := &ir.NL2SQL_IR{Projections: []ir.Projection{{Entity: "product_name"}}}
	plan, cerr := planner.Build(cat, []planner.TableRequirement{{Table: "products", Location: "/projections/0"}})
	require.Nil(t, cerr)

	l := lowering.New(cat, plan, dialect.Standard, nil)
	sql, cerr := Emit(query, plan, l, dialect.Standard)
	require.Nil(t, cerr)
	assert.NotContains(t, sql, "WHERE")
}
