package planner

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/relkit/relkit"
	"github.com/relkit/relkit/command"
	"github.com/relkit/relkit/filter"
	"github.com/relkit/relkit/filterparams"
	"github.com/relkit/relkit/patch"
	"github.com/relkit/relkit/rtype"
)

// UpdateResult is the public result shape of an update DBO (§4.12
// step 5).
type UpdateResult struct {
	RecordsUpdated  int
	TestFailed      bool
	FailedRecordIDs []any
}

// UpdatePlan compiles the JSON-patch-driven update planner (§4.12). It
// validates filterSpec and returns a Plan whose Build emits no
// commands: no records are fetched, and neither Build nor the Engine
// calls ApplyPatch. ApplyPatch produces the commands for one record
// that a caller has already fetched.
func UpdatePlan(rt *rtype.RecordType, ops []patch.Op, filterSpec []any) (*Plan, error) {
	reg := filterparams.NewRegistry()
	term, err := filter.BuildFilter(filterSpec)
	if err != nil {
		return nil, err
	}
	_ = term

	p := &Plan{RecordType: rt, Registry: reg}
	p.Build = func(b *Builder) ([]command.Command, error) {
		// No commands are emitted here; per-record commands come only
		// from ApplyPatch (below), which takes an already-fetched
		// record.
		return nil, nil
	}
	return p, nil
}

// ApplyPatch drives phase 2 of the update planner (§4.12) for one
// already-fetched record: it walks ops via package patch, translating
// each callback into commands anchored on the record's id. A scalar
// set resolves its JSON-pointer path against rt's container tree
// (dotted through nested objects, indexed through child/link-table
// collections) and threads the new value through a `?{ref}` generated
// parameter rather than splicing it into the template; a collection
// add/remove emits the matching child/link-table INSERT/DELETE.
// Returns the commands to append to the execution chain and whether
// the record's test op(s) failed.
func ApplyPatch(b *Builder, rt *rtype.RecordType, recordID any, current map[string]any, ops []patch.Op) ([]command.Command, bool, error) {
	var cmds []command.Command
	anchor := fmt.Sprintf("id = %v", recordID)

	testFailed, err := patch.Walk(ops, current, patch.Callbacks{
		OnSet: func(ptr string, newValue, oldValue any) error {
			target, err := resolvePatchTarget(rt.Container, ptr)
			if err != nil {
				return err
			}
			switch target.kind {
			case targetColumn:
				cmds = append(cmds, setColumnCommand(b, rt.MainTable, target.column, anchor, newValue, ptr)...)
			case targetElementColumn:
				childAnchor := fmt.Sprintf("%s = %v AND %s = %d", target.prop.ParentIDColumn, recordID, target.prop.IndexColumn, target.index)
				cmds = append(cmds, setColumnCommand(b, target.prop.Table.Name, target.column, childAnchor, newValue, ptr)...)
			default:
				return relkit.NewUsageError("planner.ApplyPatch", fmt.Sprintf("patch path %q does not address a single column", ptr))
			}
			return nil
		},
		OnInsert: func(ptr string, newValue any) error {
			target, err := resolvePatchTarget(rt.Container, ptr)
			if err != nil {
				return err
			}
			inserted, err := insertCollectionOps(b, target, recordID, newValue)
			if err != nil {
				return err
			}
			cmds = append(cmds, inserted...)
			return nil
		},
		OnRemove: func(ptr string, oldValue any) error {
			target, err := resolvePatchTarget(rt.Container, ptr)
			if err != nil {
				return err
			}
			removed, err := removeCollectionOps(b, target, recordID)
			if err != nil {
				return err
			}
			cmds = append(cmds, removed...)
			return nil
		},
	})
	if err != nil {
		return nil, false, err
	}
	if testFailed {
		return nil, true, nil
	}
	if len(cmds) == 0 {
		return nil, false, nil
	}
	if rt.MetaInfo.HasVersion() {
		meta := metaUpdateStatement(rt, anchor)
		cmds = append([]command.Command{meta(b)}, cmds...)
	}
	return cmds, false, nil
}

func metaUpdateStatement(rt *rtype.RecordType, anchor string) func(b *Builder) command.Command {
	return func(b *Builder) command.Command {
		tmpl := fmt.Sprintf(
			"UPDATE %s SET %s = %s + 1, %s = ?{ctx.executedOn}, %s = ?{ctx.actor} WHERE %s",
			rt.MainTable, rt.MetaInfo.VersionProperty, rt.MetaInfo.VersionProperty,
			rt.MetaInfo.ModificationTimestampProperty, rt.MetaInfo.ModificationActorProperty, anchor,
		)
		return &command.ExecuteStatement{Exec: b.Exec, Conn: b.Conn, Tmpl: tmpl, Stmt: rt.Name + "#meta"}
	}
}

// setColumnCommand threads newValue through the execution context as a
// generated parameter (mirroring the insert planner's assigned-id
// pattern) and references it from the UPDATE template via `?{ref}`,
// rather than formatting newValue directly into SQL text.
func setColumnCommand(b *Builder, table, column, whereClause string, newValue any, ptr string) []command.Command {
	genPath := b.nextStmtID("patch:" + ptr)
	tmpl := fmt.Sprintf("UPDATE %s SET %s = ?{%s} WHERE %s", table, column, genPath, whereClause)
	return []command.Command{
		&command.AssignedId{Path: genPath, Data: newValue},
		&command.ExecuteStatement{Exec: b.Exec, Conn: b.Conn, Tmpl: tmpl, Stmt: table + "#" + column},
	}
}

// patchTargetKind classifies what a resolved JSON-pointer path
// addresses.
type patchTargetKind int

const (
	targetColumn patchTargetKind = iota
	targetElementColumn
	targetElement
	targetCollection
)

// patchTarget is the result of walking a patch op's path against a
// record type's container tree.
type patchTarget struct {
	kind   patchTargetKind
	column string          // set for targetColumn/targetElementColumn
	prop   *rtype.Property // set for targetElement/targetElementColumn/targetCollection
	index  int             // set for targetElement/targetElementColumn
}

// resolvePatchTarget walks ptr (dotted through nested-object
// properties, indexed through child/link-table collections) against
// container, generalizing the old bare ptrToColumn lookup to the
// shapes a JSON-patch path can actually take: a plain column
// ("/name"), a column nested inside an inline object ("/address/city"),
// a whole collection ("/items"), one of its elements ("/items/2"), or
// one column of one element ("/items/2/price").
func resolvePatchTarget(container *rtype.Container, ptr string) (*patchTarget, error) {
	segs := strings.Split(strings.TrimPrefix(ptr, "/"), "/")
	cur := container
	for i := 0; i < len(segs); i++ {
		prop, ok := cur.Property(segs[i])
		if !ok {
			return nil, relkit.NewUsageError("planner.ApplyPatch", fmt.Sprintf("unknown property %q in patch path %q", segs[i], ptr))
		}
		switch prop.Storage {
		case rtype.StorageChildTable, rtype.StorageLinkTable:
			if i == len(segs)-1 {
				return &patchTarget{kind: targetCollection, prop: prop}, nil
			}
			idx, err := strconv.Atoi(segs[i+1])
			if err != nil {
				return nil, relkit.NewUsageError("planner.ApplyPatch", fmt.Sprintf("collection path %q must index by integer position", ptr))
			}
			if i+1 == len(segs)-1 {
				return &patchTarget{kind: targetElement, prop: prop, index: idx}, nil
			}
			elemContainer := childContainer(prop)
			elemProp, ok := elemContainer.Property(segs[i+2])
			if !ok || i+2 != len(segs)-1 {
				return nil, relkit.NewUsageError("planner.ApplyPatch", fmt.Sprintf("patch path %q reaches past a collection element's own field", ptr))
			}
			return &patchTarget{kind: targetElementColumn, prop: prop, index: idx, column: columnName(elemProp)}, nil
		default:
			if i == len(segs)-1 {
				return &patchTarget{kind: targetColumn, column: columnName(prop)}, nil
			}
			if prop.Object == nil {
				return nil, relkit.NewUsageError("planner.ApplyPatch", fmt.Sprintf("property %q in patch path %q is not a nested object", segs[i], ptr))
			}
			cur = prop.Object
		}
	}
	return nil, relkit.NewUsageError("planner.ApplyPatch", fmt.Sprintf("empty patch path %q", ptr))
}

// insertCollectionOps builds the INSERT(s) a collection add resolves
// to: one row for a single-element add (targetElement), or one row per
// element for a whole-collection add/replace (targetCollection).
func insertCollectionOps(b *Builder, target *patchTarget, recordID, newValue any) ([]command.Command, error) {
	switch target.kind {
	case targetElement:
		if !elementShapeOK(target.prop, newValue) {
			return nil, relkit.NewUsageError("planner.ApplyPatch", "collection element value has the wrong shape")
		}
		return collectionInsertCommand(b, target.prop, recordID, target.index, newValue), nil
	case targetCollection:
		list, ok := newValue.([]any)
		if !ok {
			return nil, relkit.NewUsageError("planner.ApplyPatch", "whole-collection insert requires an array value")
		}
		var cmds []command.Command
		for idx, elem := range list {
			if !elementShapeOK(target.prop, elem) {
				return nil, relkit.NewUsageError("planner.ApplyPatch", "collection element value has the wrong shape")
			}
			cmds = append(cmds, collectionInsertCommand(b, target.prop, recordID, idx, elem)...)
		}
		return cmds, nil
	default:
		return nil, relkit.NewUsageError("planner.ApplyPatch", "patch path does not address a collection")
	}
}

func elementShapeOK(prop *rtype.Property, v any) bool {
	if prop.Storage == rtype.StorageLinkTable {
		return v != nil
	}
	_, ok := v.(map[string]any)
	return ok
}

// collectionInsertCommand emits one INSERT row for a child/link-table
// element, threading every column value through a generated parameter
// rather than formatting it into the template directly.
func collectionInsertCommand(b *Builder, prop *rtype.Property, recordID any, index int, elem any) []command.Command {
	if prop.Storage == rtype.StorageLinkTable {
		refPath := b.nextStmtID("patch:" + prop.Table.Name + ":ref")
		tmpl := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (%v, ?{%s})", prop.Table.Name, prop.ParentIDColumn, "ref_id", recordID, refPath)
		return []command.Command{
			&command.AssignedId{Path: refPath, Data: elem},
			&command.ExecuteStatement{Exec: b.Exec, Conn: b.Conn, Tmpl: tmpl, Stmt: b.nextStmtID("insert:" + prop.Table.Name)},
		}
	}

	m, _ := elem.(map[string]any)
	columns := []string{prop.ParentIDColumn}
	values := []string{fmt.Sprintf("%v", recordID)}
	if prop.IndexColumn != "" {
		columns = append(columns, prop.IndexColumn)
		values = append(values, fmt.Sprintf("%d", index))
	}

	var cmds []command.Command
	elemContainer := childContainer(prop)
	for _, name := range sortedDataKeys(m) {
		elemProp, ok := elemContainer.Property(name)
		if !ok {
			continue
		}
		refPath := b.nextStmtID("patch:" + prop.Table.Name + ":" + name)
		cmds = append(cmds, &command.AssignedId{Path: refPath, Data: m[name]})
		columns = append(columns, columnName(elemProp))
		values = append(values, "?{"+refPath+"}")
	}
	tmpl := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", prop.Table.Name, strings.Join(columns, ", "), strings.Join(values, ", "))
	cmds = append(cmds, &command.ExecuteStatement{Exec: b.Exec, Conn: b.Conn, Tmpl: tmpl, Stmt: b.nextStmtID("insert:" + prop.Table.Name)})
	return cmds
}

// removeCollectionOps builds the DELETE a collection remove resolves
// to: every row owned by recordID for a whole-collection remove, or
// the one row at target.index for an element remove (which requires
// the collection to carry an index column to address by position).
func removeCollectionOps(b *Builder, target *patchTarget, recordID any) ([]command.Command, error) {
	switch target.kind {
	case targetElement:
		if target.prop.IndexColumn == "" {
			return nil, relkit.NewUsageError("planner.ApplyPatch",
				fmt.Sprintf("collection %q has no index column; cannot remove a single element by position", target.prop.Name))
		}
		tmpl := fmt.Sprintf("DELETE FROM %s WHERE %s = %v AND %s = %d",
			target.prop.Table.Name, target.prop.ParentIDColumn, recordID, target.prop.IndexColumn, target.index)
		return []command.Command{&command.ExecuteStatement{Exec: b.Exec, Conn: b.Conn, Tmpl: tmpl, Stmt: b.nextStmtID("delete:" + target.prop.Table.Name)}}, nil
	case targetCollection:
		tmpl := fmt.Sprintf("DELETE FROM %s WHERE %s = %v", target.prop.Table.Name, target.prop.ParentIDColumn, recordID)
		return []command.Command{&command.ExecuteStatement{Exec: b.Exec, Conn: b.Conn, Tmpl: tmpl, Stmt: b.nextStmtID("delete:" + target.prop.Table.Name)}}, nil
	default:
		return nil, relkit.NewUsageError("planner.ApplyPatch", "patch path does not address a collection")
	}
}
