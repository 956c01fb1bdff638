// Package sqlassemble assembles a SELECT statement from a query tree
// plus translated filter/order fragments (§4.5): select list, FROM
// with ordered joins, WHERE, GROUP BY (only when any node aggregates),
// ORDER BY (deduplicated by key). Range application and lock-clause
// wrapping are left to the dialect driver. Grounded on the teacher's
// dialect/sql query builder's SELECT-rendering pass (sql/builder.go
// lineage), generalized from a *sql.Selector's fluent API to a
// standalone function operating on a querytree.Tree.
package sqlassemble

import (
	"fmt"
	"strings"

	"github.com/relkit/relkit/querytree"
)

// Assembled is a compiled SELECT statement and the metadata the driver
// needs to apply range/lock wrapping.
type Assembled struct {
	SQL      string
	Args     []any
	IDExpr   string
	selectN  int
}

// Assemble builds the SELECT for tree, applying whereSQL/whereArgs and
// the compiled order fragments. If stumpOnly, only the FROM/JOIN/WHERE
// clause is produced (no select list or order), for embedding into an
// anchor-table population statement.
func Assemble(tree *querytree.Tree, whereSQL string, whereArgs []any, orderBy []string, stumpOnly bool) *Assembled {
	var b strings.Builder
	selectItems, idExpr := collectSelect(tree)
	if !stumpOnly {
		b.WriteString("SELECT ")
		if len(selectItems) == 0 {
			b.WriteString("*")
		} else {
			for i, s := range selectItems {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(s.Expr)
				b.WriteString(" AS ")
				b.WriteString(safeLabel(s.Label))
			}
		}
		b.WriteString(" ")
	}
	b.WriteString("FROM ")
	writeFrom(&b, tree.Root, true)

	if whereSQL != "" {
		b.WriteString(" WHERE ")
		b.WriteString(whereSQL)
	}

	groupBy := collectGroupBy(tree)
	if len(groupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(groupBy, ", "))
	}

	if !stumpOnly && len(orderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(dedupe(orderBy), ", "))
	}

	return &Assembled{SQL: b.String(), Args: whereArgs, IDExpr: idExpr, selectN: len(selectItems)}
}

func collectSelect(tree *querytree.Tree) ([]querytree.SelectItem, string) {
	var items []querytree.SelectItem
	idExpr := ""
	tree.Walk(func(n *querytree.Node) {
		items = append(items, n.Select...)
		if n == tree.Root && idExpr == "" {
			idExpr = n.Alias + ".id"
		}
	})
	return items, idExpr
}

func collectGroupBy(tree *querytree.Tree) []string {
	var out []string
	hasAgg := false
	tree.Walk(func(n *querytree.Node) {
		if n.Aggregate {
			hasAgg = true
		}
		out = append(out, n.GroupBy...)
	})
	if !hasAgg {
		return nil
	}
	return out
}

func writeFrom(b *strings.Builder, n *querytree.Node, root bool) {
	if root {
		fmt.Fprintf(b, "%s AS %s", n.Table, n.Alias)
	}
	for _, c := range n.Children {
		switch c.Join {
		case querytree.JoinLeftOuter:
			fmt.Fprintf(b, " LEFT OUTER JOIN %s AS %s ON %s", c.Table, c.Alias, c.Condition)
		default:
			fmt.Fprintf(b, " JOIN %s AS %s ON %s", c.Table, c.Alias, c.Condition)
		}
		writeFrom(b, c, false)
	}
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		key := strings.SplitN(s, " ", 2)[0]
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// GetTablesForLock partitions the tree's tables into exclusive/shared
// sets for the given lock type (§5 Locking, §4.5 getTablesForLock).
func GetTablesForLock(tree *querytree.Tree, lockType string) (exclusive, shared []string) {
	tree.Walk(func(n *querytree.Node) {
		switch {
		case lockType == "shared":
			shared = append(shared, n.Alias)
		case n.Proper:
			exclusive = append(exclusive, n.Alias)
		default:
			shared = append(shared, n.Alias)
		}
	})
	return
}

func safeLabel(markup string) string {
	return "\"" + strings.ReplaceAll(markup, "\"", "\"\"") + "\""
}
