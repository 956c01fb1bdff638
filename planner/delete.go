package planner

import (
	"fmt"
	"strings"

	"github.com/relkit/relkit"
	"github.com/relkit/relkit/command"
	"github.com/relkit/relkit/filter"
	"github.com/relkit/relkit/filterparams"
	"github.com/relkit/relkit/rtype"
)

// DeletePlan compiles the delete planner (§4.11): direct strategy when
// there is no filter, the filter references only the id property, or
// the record type has no child tables; anchored strategy otherwise
// (SELECT id INTO anchor, then DELETEs joined against it, §P5).
func DeletePlan(rt *rtype.RecordType, filterSpec []any) (*Plan, error) {
	reg := filterparams.NewRegistry()
	term, err := filter.BuildFilter(filterSpec)
	if err != nil {
		return nil, err
	}
	// The generated DELETE/SELECT statements never alias the main
	// table, so the table's own name doubles as its qualifier (valid
	// wherever a bare identifier would be) — both for the WHERE clause
	// itself and for any correlated EXISTS subquery it contains.
	ctx := rootFilterContext(rt, rt.MainTable)
	whereSQL, err := renderWhere(term, reg, ctx, &aliasAllocator{})
	if err != nil {
		return nil, err
	}

	childTables := childTablesOf(rt)
	direct := term == nil || onlyReferencesID(term, rt.IDProperty) || len(childTables) == 0

	p := &Plan{RecordType: rt, Registry: reg}
	p.Build = func(b *Builder) ([]command.Command, error) {
		if direct {
			return directDelete(b, rt, whereSQL)
		}
		return anchoredDelete(b, rt, whereSQL, childTables)
	}
	return p, nil
}

func directDelete(b *Builder, rt *rtype.RecordType, whereSQL string) ([]command.Command, error) {
	tmpl := fmt.Sprintf("DELETE FROM %s", rt.MainTable)
	if whereSQL != "" {
		tmpl += " WHERE " + whereSQL
	}
	return []command.Command{
		&command.ExecuteStatement{Exec: b.Exec, Conn: b.Conn, Tmpl: tmpl, Stmt: rt.Name},
	}, nil
}

func anchoredDelete(b *Builder, rt *rtype.RecordType, whereSQL string, childTables []*rtype.Property) ([]command.Command, error) {
	anchor := "q_" + rt.MainTable
	selectStump := fmt.Sprintf("SELECT id, row_number() OVER () AS ord FROM %s", rt.MainTable)
	if whereSQL != "" {
		selectStump += " WHERE " + whereSQL
	}
	var cmds []command.Command
	cmds = append(cmds, &command.LoadAnchorTable{
		Exec: b.Exec, Conn: b.Conn,
		AnchorTable: anchor, RootTable: rt.MainTable, IDColumn: "id",
		IDExpr: "id", SelectStump: selectStump, Stmt: "load:" + anchor,
	})
	// Postorder: leaf (child) tables first, root last (§4.11 emission order).
	for _, p := range childTables {
		tmpl := fmt.Sprintf("DELETE FROM %s WHERE %s IN (SELECT id FROM %s)", p.Table.Name, p.ParentIDColumn, anchor)
		cmds = append(cmds, &command.ExecuteStatement{Exec: b.Exec, Conn: b.Conn, Tmpl: tmpl, Stmt: p.Table.Name})
	}
	tmpl := fmt.Sprintf("DELETE FROM %s WHERE id IN (SELECT id FROM %s)", rt.MainTable, anchor)
	cmds = append(cmds, &command.ExecuteStatement{Exec: b.Exec, Conn: b.Conn, Tmpl: tmpl, Stmt: rt.Name})
	cmds = append(cmds, &command.ExecuteStatement{Exec: b.Exec, Conn: b.Conn, Tmpl: "DROP " + anchor, Stmt: "drop:" + anchor})
	return cmds, nil
}

func childTablesOf(rt *rtype.RecordType) []*rtype.Property {
	var out []*rtype.Property
	for _, p := range rt.Container.Properties {
		if p.Storage == rtype.StorageChildTable && !p.Flags.Has(rtype.FlagWeakDependency) {
			out = append(out, p)
		}
	}
	return out
}

func onlyReferencesID(term filter.Term, idProp string) bool {
	switch t := term.(type) {
	case *filter.SingleTest:
		return t.Path == idProp
	case *filter.Junction:
		for _, c := range t.Children {
			if !onlyReferencesID(c, idProp) {
				return false
			}
		}
		return true
	}
	return false
}

// filterContext resolves a filter path against a record type's
// container tree into a column reference qualified by the table alias
// the path's owning table is actually joined/selected under,
// generalized from querytree's per-path alias table (§4.4
// translatePropPath/getPropValueColumn). rebase produces the context a
// nested collection's own SubFilter resolves against.
type filterContext struct {
	alias     string
	container *rtype.Container
}

func rootFilterContext(rt *rtype.RecordType, alias string) *filterContext {
	return &filterContext{alias: alias, container: rt.Container}
}

// rebase returns the filter context for a joined collection's own
// table, aliased independently of the parent it was reached from.
func (c *filterContext) rebase(container *rtype.Container, alias string) *filterContext {
	return &filterContext{alias: alias, container: container}
}

// getPropValueColumn walks path (dotted through any nested-object
// properties) against c's container and returns the aliased column
// reference for its final segment, along with that segment's
// property descriptor.
func (c *filterContext) getPropValueColumn(path string) (string, *rtype.Property, error) {
	segs := strings.Split(path, ".")
	cur := c.container
	var prop *rtype.Property
	for _, seg := range segs {
		p, ok := cur.Property(seg)
		if !ok {
			return "", nil, relkit.NewUsageError("planner", fmt.Sprintf("unknown property %q in filter path %q", seg, path))
		}
		prop = p
		if p.Object != nil {
			cur = p.Object
		}
	}
	return c.alias + "." + columnName(prop), prop, nil
}

// aliasAllocator hands out fresh correlated-subquery aliases, kept
// independent of querytree's own "tN" select-list aliases since a
// WHERE clause's EXISTS subqueries never appear in that tree.
type aliasAllocator struct{ n int }

func (a *aliasAllocator) next() string {
	a.n++
	return fmt.Sprintf("x%d", a.n)
}

// renderWhere flattens a filter.Term tree into a literal WHERE clause
// string, resolving every property path to its properly aliased column
// via ctx and rendering *filter.CollectionTest's SubFilter as a
// correlated EXISTS/NOT EXISTS subquery over the collection's own
// table (§4.4, §4.11). Values are registered as filter parameters
// rather than rendered inline; actual literal rendering is
// dialect-specific and happens at filterparams.Substitute time.
func renderWhere(term filter.Term, reg *filterparams.Registry, ctx *filterContext, alloc *aliasAllocator) (string, error) {
	if term == nil {
		return "", nil
	}
	switch t := term.(type) {
	case *filter.SingleTest:
		col, _, err := ctx.getPropValueColumn(t.Path)
		if err != nil {
			return "", err
		}
		ref := reg.Register(t.Path, filterparams.ValueFunc(t.Op))
		op := sqlOp(t.Op)
		expr := fmt.Sprintf("%s %s %s", col, op, ref)
		if t.Inverted {
			expr = "NOT (" + expr + ")"
		}
		return expr, nil
	case *filter.Junction:
		parts := make([]string, 0, len(t.Children))
		for _, c := range t.Children {
			sql, err := renderWhere(c, reg, ctx, alloc)
			if err != nil {
				return "", err
			}
			parts = append(parts, sql)
		}
		joiner := " AND "
		if t.Kind == filter.Or {
			joiner = " OR "
		}
		expr := "(" + strings.Join(parts, joiner) + ")"
		if t.Inverted {
			expr = "NOT " + expr
		}
		return expr, nil
	case *filter.CollectionTest:
		return renderCollectionTest(t, reg, ctx, alloc)
	}
	return "", nil
}

// renderCollectionTest builds a correlated EXISTS/NOT EXISTS subquery
// over t.Path's child/link table, joined back to ctx's own aliased
// table on the collection's parent-id column, recursively rendering
// t.SubFilter (if any) against the collection's own properties.
func renderCollectionTest(t *filter.CollectionTest, reg *filterparams.Registry, ctx *filterContext, alloc *aliasAllocator) (string, error) {
	_, prop, err := ctx.getPropValueColumn(t.Path)
	if err != nil {
		return "", err
	}
	switch prop.Storage {
	case rtype.StorageChildTable, rtype.StorageLinkTable:
	default:
		return "", relkit.NewUsageError("planner", fmt.Sprintf("filter path %q is not a collection property", t.Path))
	}

	childAlias := alloc.next()
	sub := fmt.Sprintf("SELECT 1 FROM %s AS %s WHERE %s.%s = %s",
		prop.Table.Name, childAlias, childAlias, prop.ParentIDColumn, ctx.alias+".id")
	if t.SubFilter != nil {
		childCtx := ctx.rebase(childContainer(prop), childAlias)
		subWhere, err := renderWhere(t.SubFilter, reg, childCtx, alloc)
		if err != nil {
			return "", err
		}
		if subWhere != "" {
			sub += " AND " + subWhere
		}
	}
	kw := "EXISTS"
	if t.Inverted {
		kw = "NOT EXISTS"
	}
	return fmt.Sprintf("%s (%s)", kw, sub), nil
}

func sqlOp(op filter.TestOp) string {
	switch op {
	case filter.OpEq:
		return "="
	case filter.OpNe:
		return "<>"
	case filter.OpGe:
		return ">="
	case filter.OpLe:
		return "<="
	case filter.OpGt:
		return ">"
	case filter.OpLt:
		return "<"
	case filter.OpIn:
		return "IN"
	default:
		return "="
	}
}
