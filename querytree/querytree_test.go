package querytree

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ariga.io/atlas/sql/schema"

	"github.com/relkit/relkit/proptree"
	"github.com/relkit/relkit/rtype"
)

func orderType() *rtype.RecordType {
	return &rtype.RecordType{
		Name: "Order", MainTable: "orders", IDProperty: "id",
		Container: &rtype.Container{Properties: []*rtype.Property{
			{Name: "id", Kind: rtype.KindScalar, Value: rtype.TypeString, Storage: rtype.StorageInlineColumn, Flags: rtype.FlagID},
			{Name: "total", Kind: rtype.KindScalar, Value: rtype.TypeNumber, Storage: rtype.StorageInlineColumn},
			{Name: "items", Kind: rtype.KindArray, Value: rtype.TypeObject, Storage: rtype.StorageChildTable,
				Table: &schema.Table{Name: "order_items"}, ParentIDColumn: "order_id",
				Object: &rtype.Container{Properties: []*rtype.Property{
					{Name: "sku", Kind: rtype.KindScalar, Value: rtype.TypeString, Storage: rtype.StorageInlineColumn},
				}},
			},
		}},
	}
}

func TestForDirectQueryRootNode(t *testing.T) {
	rt := orderType()
	lib := rtype.NewLibrary(rt)
	ptree, err := proptree.Build(lib, rt, proptree.ClauseSelect, []string{"total"})
	require.NoError(t, err)
	qt := ForDirectQuery(rt, proptree.ClauseSelect, ptree)
	require.Equal(t, "orders", qt.Root.Table)
	require.Equal(t, JoinRoot, qt.Root.Join)
	require.True(t, qt.Root.Proper)
	require.Len(t, qt.Root.Select, 1)
	require.Equal(t, "total", qt.Root.Select[0].Label)
}

func TestForDirectQueryChildTableLeftOuterByDefault(t *testing.T) {
	rt := orderType()
	lib := rtype.NewLibrary(rt)
	ptree, err := proptree.Build(lib, rt, proptree.ClauseSelect, []string{"items.sku"})
	require.NoError(t, err)
	qt := ForDirectQuery(rt, proptree.ClauseSelect, ptree)
	require.Len(t, qt.Root.Children, 1)
	child := qt.Root.Children[0]
	require.Equal(t, "order_items", child.Table)
	require.Equal(t, JoinLeftOuter, child.Join)
	require.True(t, child.Proper)
}

func TestForDirectQueryChildTableInnerJoinWhenFiltered(t *testing.T) {
	rt := orderType()
	lib := rtype.NewLibrary(rt)
	selTree, err := proptree.Build(lib, rt, proptree.ClauseSelect, []string{"items.sku"})
	require.NoError(t, err)
	whereTree, err := proptree.Build(lib, rt, proptree.ClauseWhere, []string{"items.sku"})
	require.NoError(t, err)
	combined := proptree.Combine(selTree, whereTree)

	qt := ForDirectQuery(rt, proptree.ClauseSelect, combined)
	child := qt.Root.Children[0]
	require.Equal(t, JoinInner, child.Join)
}

func personTypeWithAddress() *rtype.RecordType {
	address := &rtype.Container{Properties: []*rtype.Property{
		{Name: "city", Kind: rtype.KindScalar, Value: rtype.TypeString, Storage: rtype.StorageInlineColumn},
	}}
	return &rtype.RecordType{
		Name: "Person", MainTable: "people", IDProperty: "id",
		Container: &rtype.Container{Properties: []*rtype.Property{
			{Name: "id", Kind: rtype.KindScalar, Value: rtype.TypeString, Storage: rtype.StorageInlineColumn, Flags: rtype.FlagID},
			{Name: "address", Kind: rtype.KindScalar, Value: rtype.TypeObject, Storage: rtype.StorageInlineColumn, Object: address},
		}},
	}
}

// TestForDirectQueryFlattensNestedObjectColumns covers a TypeObject
// property (§4.2/§4.4): its own properties select as columns on the
// same node as their parent rather than spawning a join, since the
// object has no table of its own.
func TestForDirectQueryFlattensNestedObjectColumns(t *testing.T) {
	rt := personTypeWithAddress()
	lib := rtype.NewLibrary(rt)
	ptree, err := proptree.Build(lib, rt, proptree.ClauseSelect, []string{"address.city"})
	require.NoError(t, err)
	qt := ForDirectQuery(rt, proptree.ClauseSelect, ptree)
	require.Empty(t, qt.Root.Children)
	require.Len(t, qt.Root.Select, 1)
	require.Equal(t, "address.city", qt.Root.Select[0].Label)
}

func TestForIdsOnlyQuerySelectsJustID(t *testing.T) {
	rt := orderType()
	qt := ForIdsOnlyQuery(rt)
	require.Len(t, qt.Root.Select, 1)
	require.Equal(t, "id", qt.Root.Select[0].Label)
}

func TestForAnchoredQueryJoinsOnAnchorTable(t *testing.T) {
	rt := orderType()
	lib := rtype.NewLibrary(rt)
	ptree, err := proptree.Build(lib, rt, proptree.ClauseSelect, []string{"total"})
	require.NoError(t, err)
	qt := ForAnchoredQuery(rt, proptree.ClauseSelect, ptree, "q_orders")
	require.Equal(t, "q_orders", qt.Root.Table)
	require.False(t, qt.Root.Proper)
	require.Len(t, qt.Root.Children, 1)
	require.True(t, qt.Root.Children[0].Proper)
	require.Contains(t, qt.Root.Children[0].Condition, qt.Root.Alias+".id")
}

func TestWalkAndWalkReverseOrder(t *testing.T) {
	rt := orderType()
	lib := rtype.NewLibrary(rt)
	ptree, err := proptree.Build(lib, rt, proptree.ClauseSelect, []string{"items.sku"})
	require.NoError(t, err)
	qt := ForDirectQuery(rt, proptree.ClauseSelect, ptree)

	var pre []string
	qt.Walk(func(n *Node) { pre = append(pre, n.Table) })
	require.Equal(t, []string{"orders", "order_items"}, pre)

	var post []string
	qt.WalkReverse(func(n *Node) { post = append(post, n.Table) })
	require.Equal(t, []string{"order_items", "orders"}, post)
}
