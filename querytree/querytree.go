// Package querytree builds the join tree (§3 Query tree, §4.4) from a
// properties tree: one node per table participation, with alias, join
// kind/condition, select-list, group-by/order-by, and proper-vs-referred
// locking classification. Grounded on the teacher's sqlgraph
// NodeSpec/EdgeSpec join-step shape (dialect/sql/sqlgraph/eval_test.go),
// generalized from a fixed generated-edge walk to a dynamic
// properties-tree-driven join plan.
package querytree

import (
	"fmt"

	"github.com/relkit/relkit/proptree"
	"github.com/relkit/relkit/rtype"
)

// JoinKind is the SQL join type used to bring a node's table in.
type JoinKind int

const (
	JoinRoot JoinKind = iota
	JoinInner
	JoinLeftOuter
)

// SelectItem is one SELECT-list entry: a SQL value expression paired
// with the markup label the result-set parser uses to place it back
// onto the output object.
type SelectItem struct {
	Expr  string
	Label string
}

// Node is one table participation in the query tree.
type Node struct {
	Table     string
	Alias     string
	Join      JoinKind
	Condition string // empty for the root node
	Aggregate bool
	Select    []SelectItem
	GroupBy   []string
	OrderBy   []string
	// Proper marks a node exclusively lockable/mutable by this query;
	// a non-proper ("referred") node is a read-only join excluded from
	// exclusive locking (§4.4).
	Proper bool

	ParentAlias string
	Children    []*Node
}

// Tree is the full join tree plus its deterministic alias table.
type Tree struct {
	Root    *Node
	aliases map[string]string // property path -> alias
	next    int
}

func (t *Tree) allocAlias(path string) string {
	if a, ok := t.aliases[path]; ok {
		return a
	}
	a := fmt.Sprintf("t%d", t.next)
	t.next++
	t.aliases[path] = a
	return a
}

// AliasFor returns the stable alias assigned to a property path's
// owning table, if any node claimed it.
func (t *Tree) AliasFor(path string) (string, bool) {
	a, ok := t.aliases[path]
	return a, ok
}

// ForDirectQuery builds a single-SELECT plan directly over the
// properties tree, rooted at the record type's main table.
func ForDirectQuery(rt *rtype.RecordType, clause proptree.Clause, ptree *proptree.Tree) *Tree {
	t := &Tree{aliases: map[string]string{}}
	rootAlias := t.allocAlias("")
	root := &Node{Table: rt.MainTable, Alias: rootAlias, Join: JoinRoot, Proper: true}
	t.Root = root
	buildChildren(t, root, ptree.Root, "")
	return t
}

// ForIdsOnlyQuery builds a minimal tree selecting only the id column,
// used to populate an anchor table (§4.4 forIdsOnlyQuery).
func ForIdsOnlyQuery(rt *rtype.RecordType) *Tree {
	t := &Tree{aliases: map[string]string{}}
	alias := t.allocAlias("")
	root := &Node{
		Table:  rt.MainTable,
		Alias:  alias,
		Join:   JoinRoot,
		Proper: true,
		Select: []SelectItem{{Expr: alias + "." + rt.IDProperty, Label: "id"}},
	}
	t.Root = root
	return t
}

// ForAnchoredQuery builds a tree joining the record's main table
// against a previously-populated anchor table as the root (§4.4
// forAnchoredQuery).
func ForAnchoredQuery(rt *rtype.RecordType, clause proptree.Clause, ptree *proptree.Tree, anchorTable string) *Tree {
	t := &Tree{aliases: map[string]string{}}
	anchorAlias := t.allocAlias("$anchor")
	anchor := &Node{Table: anchorTable, Alias: anchorAlias, Join: JoinRoot, Proper: false}
	rootAlias := t.allocAlias("")
	root := &Node{
		Table:       rt.MainTable,
		Alias:       rootAlias,
		Join:        JoinInner,
		Condition:   fmt.Sprintf("%s.%s = %s.id", rootAlias, rt.IDProperty, anchorAlias),
		Proper:      true,
		ParentAlias: anchorAlias,
	}
	anchor.Children = []*Node{root}
	t.Root = anchor
	buildChildren(t, root, ptree.Root, "")
	return t
}

func buildChildren(t *Tree, parent *Node, pnode *proptree.Node, prefix string) {
	keys := sortedKeys(pnode.Children)
	for _, k := range keys {
		child := pnode.Children[k]
		p := child.Property
		path := joinPath(prefix, k)
		if p == nil || p.IsScalarColumn() {
			if p != nil {
				parent.Select = append(parent.Select, SelectItem{
					Expr:  parent.Alias + "." + columnName(p),
					Label: path,
				})
			}
			buildChildren(t, parent, child, path)
			continue
		}
		switch p.Storage {
		case rtype.StorageChildTable, rtype.StorageLinkTable:
			alias := t.allocAlias(path)
			join := JoinLeftOuter
			if child.Usage&proptree.UsageWhere != 0 {
				join = JoinInner
			}
			n := &Node{
				Table:       p.Table.Name,
				Alias:       alias,
				Join:        join,
				Condition:   fmt.Sprintf("%s.%s = %s.%s", alias, p.ParentIDColumn, parent.Alias, idColumnOf(parent)),
				Proper:      child.Usage&proptree.UsageSelect != 0,
				ParentAlias: parent.Alias,
			}
			parent.Children = append(parent.Children, n)
			buildChildren(t, n, child, "")
		default:
			buildChildren(t, parent, child, path)
		}
	}
}

func idColumnOf(n *Node) string { return "id" }

func columnName(p *rtype.Property) string {
	if p.Column != nil {
		return p.Column.Name
	}
	return p.Name
}

func joinPath(prefix, seg string) string {
	if prefix == "" {
		return seg
	}
	return prefix + "." + seg
}

func sortedKeys(m map[string]*proptree.Node) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

// Walk visits nodes preorder (root to leaves).
func (t *Tree) Walk(visit func(*Node)) { walkPre(t.Root, visit) }

func walkPre(n *Node, visit func(*Node)) {
	visit(n)
	for _, c := range n.Children {
		walkPre(c, visit)
	}
}

// WalkReverse visits nodes postorder (leaves to root), the order the
// delete planner emits cascade DELETEs in (§4.11).
func (t *Tree) WalkReverse(visit func(*Node)) { walkPost(t.Root, visit) }

func walkPost(n *Node, visit func(*Node)) {
	for _, c := range n.Children {
		walkPost(c, visit)
	}
	visit(n)
}
