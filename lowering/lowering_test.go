package lowering

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nl2sqlc/nl2sqlc/catalog"
	"github.com/nl2sqlc/nl2sqlc/compileerr"
	"github.com/nl2sqlc/nl2sqlc/dialect"
	"github.com/nl2sqlc/nl2sqlc/ir"
	"github.com/nl2sqlc/nl2sqlc/planner"
)

func salesCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	strict := true
	doc := catalog.Document{
		Tables: map[string]catalog.TableDoc{
			"customers":   {Columns: []string{"id", "region"}},
			"products":    {Columns: []string{"id", "name"}},
			"order_items": {Columns: []string{"id", "customer_id", "product_id", "quantity", "unit_price"}},
		},
		Entities: map[string]catalog.EntityDoc{
			"region": {Type: "attribute", Table: "customers", Column: "region",
				EnumValues: []string{"中国", "美国", "日本"}, Strict: &strict},
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

func buildPlan(t *testing.T, cat *catalog.Catalog, required ...string) *planner.Plan {
	t.Helper()
	reqs := make([]planner.TableRequirement, len(required))
	for i, r := range required {
		reqs[i] = planner.TableRequirement{Table: r, Location: "/test"}
	}
	plan, cerr := planner.Build(cat, reqs)
	require.Nil(t, cerr)
	return plan
}

func TestLowerProjectionExplicitAgg(t *testing.T) {
	cat := salesCatalog(t)
	plan := buildPlan(t, cat, "order_items")
	l := New(cat, plan, dialect.Standard, nil)

	out, err := l.LowerProjection(ir.Projection{Entity: "sales_amount", Op: ir.OpSum, Alias: "total_sales"}, true, "/projections/0")
	require.Nil(t, err)
	assert.Equal(t, "SUM(t1.quantity * t1.unit_price) AS total_sales", out)
}

func TestLowerProjectionImplicitDefaultAgg(t *testing.T) {
	cat := salesCatalog(t)
	plan := buildPlan(t, cat, "order_items")
	l := New(cat, plan, dialect.Standard, nil)

	out, err := l.LowerProjection(ir.Projection{Entity: "sales_amount"}, true, "/projections/0")
	require.Nil(t, err)
	assert.Equal(t, "SUM(t1.quantity * t1.unit_price)", out)
}

func TestLowerProjectionRawAttribute(t *testing.T) {
	cat := salesCatalog(t)
	plan := buildPlan(t, cat, "customers")
	l := New(cat, plan, dialect.Standard, nil)

	out, err := l.LowerProjection(ir.Projection{Entity: "region"}, true, "/projections/0")
	require.Nil(t, err)
	assert.Equal(t, "t1.region", out)
}

func TestLowerConditionNestedBooleanFilter(t *testing.T) {
	// Reproduces spec.md §8 scenario S3's filter tree.
	cat := salesCatalog(t)
	plan := buildPlan(t, cat, "customers", "order_items", "products")
	l := New(cat, plan, dialect.Standard, nil)

	group := ir.FilterGroup{
		Operator: ir.And,
		Conditions: []ir.FilterGroup{
			{Leaf: &ir.Condition{Entity: "region", Op: ir.OpIn, Value: []any{"中国", "美国"}, HasValue: true}},
			{
				Operator: ir.Or,
				Conditions: []ir.FilterGroup{
					{Leaf: &ir.Condition{Entity: "sales_amount", Op: ir.OpGreaterThan, Value: 1000, HasValue: true}},
					{Leaf: &ir.Condition{Entity: "product_name", Op: ir.OpIsNull}},
				},
			},
		},
	}

	out, err := l.LowerFilterGroup(group, false, "/filters")
	require.Nil(t, err)
	assert.Contains(t, out, "t1.region IN ('中国', '美国')")
	assert.Contains(t, out, "(t2.quantity * t2.unit_price) > 1000")
	assert.Contains(t, out, "t3.name IS NULL")
	assert.Contains(t, out, " AND ")
	assert.Contains(t, out, " OR ")
}

func TestLowerConditionContainsLike(t *testing.T) {
	cat := salesCatalog(t)
	plan := buildPlan(t, cat, "products")
	l := New(cat, plan, dialect.Standard, nil)

	out, err := l.LowerCondition(ir.Condition{Entity: "product_name", Op: ir.OpContains, Value: "电脑", HasValue: true}, false, "/filters")
	require.Nil(t, err)
	assert.Equal(t, "t1.name LIKE '%电脑%'", out)
}

func TestLowerConditionContainsLikeEscapesMetacharacters(t *testing.T) {
	cat := salesCatalog(t)
	plan := buildPlan(t, cat, "products")
	l := New(cat, plan, dialect.Standard, nil)

	out, err := l.LowerCondition(ir.Condition{Entity: "product_name", Op: ir.OpContains, Value: "50%_off", HasValue: true}, false, "/filters")
	require.Nil(t, err)
	assert.Equal(t, `t1.name LIKE '%50\%\_off%' ESCAPE '\'`, out)
}

func TestLowerConditionHavingAlias(t *testing.T) {
	cat := salesCatalog(t)
	plan := buildPlan(t, cat, "order_items")
	l := New(cat, plan, dialect.Standard, nil)

	out, err := l.LowerCondition(ir.Condition{EntityAlias: "total_sales", Op: ir.OpGreaterThan, Value: 1000, HasValue: true}, true, "/having")
	require.Nil(t, err)
	assert.Equal(t, "total_sales > 1000", out)
}

func TestLowerConditionLastMonth(t *testing.T) {
	cat := salesCatalog(t)
	doc := catalog.Document{
		Tables: map[string]catalog.TableDoc{"orders": {Columns: []string{"id", "placed_at"}}},
		Entities: map[string]catalog.EntityDoc{
			"placed_at": {Type: "attribute", Table: "orders", Column: "placed_at"},
		},
	}
	cat2, err := catalog.New(doc)
	require.NoError(t, err)
	_ = cat

	plan := buildPlan(t, cat2, "orders")
	clock := FixedClock(time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC))
	l := New(cat2, plan, dialect.Standard, clock)

	out, cerr := l.LowerCondition(ir.Condition{Entity: "placed_at", Op: ir.OpLastMonth}, false, "/filters")
	require.Nil(t, cerr)
	assert.Equal(t, "t1.placed_at BETWEEN '2025-09-01' AND '2025-09-30'", out)
}

func TestLowerConditionEnumValueRejected(t *testing.T) {
	cat := salesCatalog(t)
	plan := buildPlan(t, cat, "customers")
	l := New(cat, plan, dialect.Standard, nil)

	_, err := l.LowerCondition(ir.Condition{Entity: "region", Op: ir.OpEqual, Value: "火星", HasValue: true}, false, "/filters")
	require.NotNil(t, err)
	assert.Equal(t, compileerr.EnumValueRejected, err.Kind)
}

func TestLowerFilterGroupSingleLeafUnwrapped(t *testing.T) {
	cat := salesCatalog(t)
	plan := buildPlan(t, cat, "products")
	l := New(cat, plan, dialect.Standard, nil)

	group := ir.FilterGroup{Leaf: &ir.Condition{Entity: "product_name", Op: ir.OpContains, Value: "电脑", HasValue: true}}
	out, err := l.LowerFilterGroup(group, false, "/filters")
	require.Nil(t, err)
	assert.Equal(t, "t1.name LIKE '%电脑%'", out)
}
