package planner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ariga.io/atlas/sql/schema"

	"github.com/relkit/relkit/command"
	"github.com/relkit/relkit/rtype"
)

func orderTypeWithChildTable() *rtype.RecordType {
	return &rtype.RecordType{
		Name: "Order", MainTable: "orders", IDProperty: "id",
		Container: &rtype.Container{Properties: []*rtype.Property{
			{Name: "id", Kind: rtype.KindScalar, Value: rtype.TypeString, Storage: rtype.StorageInlineColumn, Flags: rtype.FlagID},
			{Name: "status", Kind: rtype.KindScalar, Value: rtype.TypeString, Storage: rtype.StorageInlineColumn},
			{Name: "items", Kind: rtype.KindArray, Value: rtype.TypeObject, Storage: rtype.StorageChildTable,
				Table: &schema.Table{Name: "order_items"}, ParentIDColumn: "order_id"},
		}},
	}
}

// TestDeletePlanNoFilterTakesDirectStrategy covers the unfiltered
// delete-all case: no child-table anchoring is needed since there is
// nothing to correlate against.
func TestDeletePlanNoFilterTakesDirectStrategy(t *testing.T) {
	rt := orderTypeWithChildTable()
	plan, err := DeletePlan(rt, nil)
	require.NoError(t, err)

	b := &Builder{Exec: noopExecutor{}}
	cmds, err := plan.Build(b)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	stmt := cmds[0].(*command.ExecuteStatement)
	require.Equal(t, "DELETE FROM orders", stmt.Tmpl)
}

// TestDeletePlanFilteredOnIdTakesDirectStrategy: a filter that only
// references the id property doesn't need anchoring either — it
// already identifies the exact rows.
func TestDeletePlanFilteredOnIdTakesDirectStrategy(t *testing.T) {
	rt := orderTypeWithChildTable()
	plan, err := DeletePlan(rt, []any{"id|eq", "ord-1"})
	require.NoError(t, err)

	b := &Builder{Exec: noopExecutor{}}
	cmds, err := plan.Build(b)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	stmt := cmds[0].(*command.ExecuteStatement)
	require.Contains(t, stmt.Tmpl, "DELETE FROM orders WHERE")
}

// TestDeletePlanFilteredOnOtherColumnUsesAnchorStrategy covers S3: a
// filter referencing a non-id column on a record type with a child
// table forces the anchor-table strategy, so the child rows can be
// deleted against a stable snapshot of matching parent ids before the
// parent rows themselves disappear.
func TestDeletePlanFilteredOnOtherColumnUsesAnchorStrategy(t *testing.T) {
	rt := orderTypeWithChildTable()
	plan, err := DeletePlan(rt, []any{"status|eq", "cancelled"})
	require.NoError(t, err)

	b := &Builder{Exec: noopExecutor{}}
	cmds, err := plan.Build(b)
	require.NoError(t, err)
	require.Len(t, cmds, 4)

	load, ok := cmds[0].(*command.LoadAnchorTable)
	require.True(t, ok)
	require.Equal(t, "q_orders", load.AnchorTable)
	require.Contains(t, load.SelectStump, "WHERE orders.status")

	childDelete, ok := cmds[1].(*command.ExecuteStatement)
	require.True(t, ok)
	require.Contains(t, childDelete.Tmpl, "DELETE FROM order_items")
	require.Contains(t, childDelete.Tmpl, "order_id IN (SELECT id FROM q_orders)")

	parentDelete, ok := cmds[2].(*command.ExecuteStatement)
	require.True(t, ok)
	require.Contains(t, parentDelete.Tmpl, "DELETE FROM orders WHERE id IN (SELECT id FROM q_orders)")

	drop, ok := cmds[3].(*command.ExecuteStatement)
	require.True(t, ok)
	require.Equal(t, "DROP q_orders", drop.Tmpl)
}

// TestDeletePlanCollectionTestRendersCorrelatedExists covers an
// `items|empty` filter: the planner must emit a correlated EXISTS
// subquery over the child table rather than echoing the bare path as
// raw SQL.
func TestDeletePlanCollectionTestRendersCorrelatedExists(t *testing.T) {
	rt := orderTypeWithChildTable()
	plan, err := DeletePlan(rt, []any{"items|!empty"})
	require.NoError(t, err)

	b := &Builder{Exec: noopExecutor{}}
	cmds, err := plan.Build(b)
	require.NoError(t, err)
	load := cmds[0].(*command.LoadAnchorTable)
	require.Contains(t, load.SelectStump, "NOT EXISTS (SELECT 1 FROM order_items AS x1 WHERE x1.order_id = orders.id)")
}

// TestDeletePlanCollectionTestSubFilterRendersCorrelatedColumn covers a
// nested sub-filter on a collection test: the sub-filter's property
// must resolve against the child table's own container, qualified by
// the subquery's own alias, not the outer table's.
func TestDeletePlanCollectionTestSubFilterRendersCorrelatedColumn(t *testing.T) {
	rt := orderTypeWithChildTable()
	rt.Container.Properties[2].Object = &rtype.Container{Properties: []*rtype.Property{
		{Name: "sku", Kind: rtype.KindScalar, Value: rtype.TypeString, Storage: rtype.StorageInlineColumn},
	}}
	plan, err := DeletePlan(rt, []any{"items|!empty", []any{"sku|eq", "X1"}})
	require.NoError(t, err)

	b := &Builder{Exec: noopExecutor{}}
	cmds, err := plan.Build(b)
	require.NoError(t, err)
	load := cmds[0].(*command.LoadAnchorTable)
	require.Contains(t, load.SelectStump, "x1.order_id = orders.id")
	require.Contains(t, load.SelectStump, "x1.sku =")
}

func TestDeletePlanWeakDependencyChildTableIsNotAnchored(t *testing.T) {
	rt := orderTypeWithChildTable()
	rt.Container.Properties[2].Flags = rtype.FlagWeakDependency
	plan, err := DeletePlan(rt, []any{"status|eq", "cancelled"})
	require.NoError(t, err)

	b := &Builder{Exec: noopExecutor{}}
	cmds, err := plan.Build(b)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	require.Contains(t, cmds[0].(*command.ExecuteStatement).Tmpl, "DELETE FROM orders WHERE")
}
