package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nl2sqlc/nl2sqlc/catalog"
	"github.com/nl2sqlc/nl2sqlc/compileerr"
)

func buildCatalog(t *testing.T, doc catalog.Document) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(doc)
	require.NoError(t, err)
	return cat
}

func TestBuildSingleTableNeedsNoJoins(t *testing.T) {
	cat := buildCatalog(t, catalog.Document{
		Tables: map[string]catalog.TableDoc{"products": {Columns: []string{"id", "name"}}},
	})

	plan, err := Build(cat, []TableRequirement{{Table: "products", Location: "/projections/0"}})
	require.Nil(t, err)
	assert.Equal(t, "products", plan.Driving)
	assert.Equal(t, "t1", plan.AliasFor("products"))
	assert.Empty(t, plan.Joins)
}

func TestBuildEmptyRequirementsIsError(t *testing.T) {
	cat := buildCatalog(t, catalog.Document{})
	_, err := Build(cat, nil)
	require.NotNil(t, err)
	assert.Equal(t, compileerr.EmptyProjection, err.Kind)
}

// TestBuildPrunesBranchNotOnAnyRequiredPath reproduces the minimal
// join-set regression: customers has two FK children, orders and
// promos, but only orders is actually required, so promos must not
// appear in the plan even though BFS discovers it while expanding
// customers.
func TestBuildPrunesBranchNotOnAnyRequiredPath(t *testing.T) {
	doc := catalog.Document{
		Tables: map[string]catalog.TableDoc{
			"customers": {Columns: []string{"id", "region"}},
			"orders":    {Columns: []string{"id", "customer_id", "order_date"}},
			"promos":    {Columns: []string{"id", "customer_id"}},
		},
		ForeignKeys: []catalog.ForeignKeyDoc{
			{LeftTable: "orders", LeftColumn: "customer_id", RightTable: "customers", RightColumn: "id"},
			{LeftTable: "promos", LeftColumn: "customer_id", RightTable: "customers", RightColumn: "id"},
		},
	}
	cat := buildCatalog(t, doc)

	required := []TableRequirement{
		{Table: "customers", Location: "/projections/0"},
		{Table: "orders", Location: "/projections/1"},
	}
	plan, err := Build(cat, required)
	require.Nil(t, err)

	assert.Equal(t, "customers", plan.Driving)
	assert.ElementsMatch(t, []string{"customers", "orders"}, plan.AliasOrder)
	require.Len(t, plan.Joins, 1)
	assert.Equal(t, "orders", plan.Joins[0].Table)
	assert.Equal(t, "", plan.AliasFor("promos"))
}

func TestBuildChainOfThreeTables(t *testing.T) {
	doc := catalog.Document{
		Tables: map[string]catalog.TableDoc{
			"customers":   {Columns: []string{"id", "region"}},
			"orders":      {Columns: []string{"id", "customer_id"}},
			"order_items": {Columns: []string{"id", "order_id"}},
		},
		ForeignKeys: []catalog.ForeignKeyDoc{
			{LeftTable: "orders", LeftColumn: "customer_id", RightTable: "customers", RightColumn: "id"},
			{LeftTable: "order_items", LeftColumn: "order_id", RightTable: "orders", RightColumn: "id"},
		},
	}
	cat := buildCatalog(t, doc)

	required := []TableRequirement{
		{Table: "customers", Location: "/projections/0"},
		{Table: "order_items", Location: "/projections/1"},
	}
	plan, err := Build(cat, required)
	require.Nil(t, err)

	assert.Equal(t, []string{"customers", "orders", "order_items"}, plan.AliasOrder)
	require.Len(t, plan.Joins, 2)
	assert.Equal(t, "orders", plan.Joins[0].Table)
	assert.Equal(t, "order_items", plan.Joins[1].Table)
}

func TestBuildDisconnectedGraphIsError(t *testing.T) {
	doc := catalog.Document{
		Tables: map[string]catalog.TableDoc{
			"customers": {Columns: []string{"id"}},
			"warehouses": {Columns: []string{"id"}},
		},
	}
	cat := buildCatalog(t, doc)

	required := []TableRequirement{
		{Table: "customers", Location: "/projections/0"},
		{Table: "warehouses", Location: "/projections/1"},
	}
	_, err := Build(cat, required)
	require.NotNil(t, err)
	assert.Equal(t, compileerr.DisconnectedJoinGraph, err.Kind)
}
