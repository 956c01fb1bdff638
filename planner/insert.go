// Package planner implements the four per-operation planners (§4.10-
// §4.13): insert, delete, update, fetch. Each consults the
// properties/filter/query-tree builders and the value-expression
// compiler to produce a static command list plus SQL templates
// carrying `?{ref}` placeholders, to be substituted and executed later
// by package command against an execctx.Context. Grounded on the
// teacher's sqlgraph CreateNode/UpdateNode/DeleteNodes planning pass
// (per dialect/sql/sqlgraph/eval_test.go's NodeSpec/EdgeSpec shape),
// generalized from a fixed generated-edge model to this engine's
// dynamic rtype.RecordType descriptors.
package planner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/relkit/relkit"
	"github.com/relkit/relkit/command"
	"github.com/relkit/relkit/filterparams"
	"github.com/relkit/relkit/rtype"
)

// Plan is a compiled, immutable, re-executable DBO (§3 Lifecycle).
type Plan struct {
	RecordType *rtype.RecordType
	Registry   *filterparams.Registry
	Build      func(b *Builder) ([]command.Command, error)
	// RequiresActor is true when the insert plan writes the meta-info
	// creation-actor column, whose value is ?{ctx.actor}.
	RequiresActor bool
}

// Builder threads an Executor/Conn pair and statement-id allocation
// through the planner's command construction, so tests can swap in a
// sqlmock-backed Executor without touching planner logic.
type Builder struct {
	Exec command.Executor
	Conn any
	n    int
}

func (b *Builder) nextStmtID(prefix string) string {
	b.n++
	return fmt.Sprintf("%s#%d", prefix, b.n)
}

// InsertPlan compiles an ordered command list for inserting one record
// of rt, given the input object shaped as nested map[string]any /
// []any per property (§4.10).
func InsertPlan(rt *rtype.RecordType, input map[string]any) (*Plan, error) {
	reg := filterparams.NewRegistry()
	p := &Plan{RecordType: rt, Registry: reg}
	p.Build = func(b *Builder) ([]command.Command, error) {
		ctxState := &insertState{rt: rt, reg: reg, entangled: map[string][]any{}}
		container := rt.Container
		var subtype *rtype.Subtype
		if rt.DiscriminatorProperty != "" {
			st, err := resolveSubtype(rt, input)
			if err != nil {
				return nil, err
			}
			subtype = st
			if subtype.ExtensionTable == "" {
				container = mergeContainers(rt.Container, subtype.Container)
			}
		}
		cmds, err := ctxState.planContainer(b, rt.MainTable, rt.IDProperty, container, input, rt.MetaInfo, nil, nil)
		if err != nil {
			return nil, err
		}
		if subtype != nil && subtype.ExtensionTable != "" {
			idProperty, _ := rt.Property(rt.IDProperty)
			extCmds, err := ctxState.planContainer(b, subtype.ExtensionTable, "", subtype.Container, input, nil,
				[]string{columnName(idProperty)}, []string{"?{" + rt.IDProperty + "}"})
			if err != nil {
				return nil, err
			}
			cmds = append(cmds, extCmds...)
		}
		if len(ctxState.entangled) > 0 {
			var updates []command.EntangledUpdate
			for typeName, ids := range ctxState.entangled {
				_ = ids
				updates = append(updates, command.EntangledUpdate{
					RecordType: typeName,
					Stmt:       "entangled:" + typeName,
					Tmpl: fmt.Sprintf(
						"UPDATE %s SET version = version + 1, modificationTimestamp = ?{ctx.executedOn}, modificationActor = ?{ctx.actor} WHERE id IN (%s)",
						typeName, joinIDs(ids),
					),
				})
			}
			cmds = append(cmds, &command.UpdateEntangledRecords{Exec: b.Exec, Conn: b.Conn, Types: updates})
		}
		return cmds, nil
	}
	p.RequiresActor = rt.MetaInfo != nil && rt.MetaInfo.CreationActorProperty != ""
	return p, nil
}

// resolveSubtype reads rt's discriminator property out of input and
// looks up the matching declared subtype, failing at plan-build time
// (not mid-execution) when the discriminator is missing or names no
// declared subtype (§4.10 polymorphic insert).
func resolveSubtype(rt *rtype.RecordType, input map[string]any) (*rtype.Subtype, error) {
	discVal, ok := input[rt.DiscriminatorProperty]
	if !ok {
		return nil, relkit.NewUsageError("planner.InsertPlan",
			fmt.Sprintf("record type %q is polymorphic: missing discriminator property %q", rt.Name, rt.DiscriminatorProperty))
	}
	discStr, ok := discVal.(string)
	if !ok {
		return nil, relkit.NewUsageError("planner.InsertPlan",
			fmt.Sprintf("record type %q: discriminator property %q must be a string, got %T", rt.Name, rt.DiscriminatorProperty, discVal))
	}
	st, found := rt.Subtype(discStr)
	if !found {
		return nil, relkit.NewUsageError("planner.InsertPlan",
			fmt.Sprintf("record type %q: discriminator %q names no declared subtype", rt.Name, discStr))
	}
	return st, nil
}

// mergeContainers combines base's properties with those of ext not
// already present on base, used for a subtype that folds into the
// base table instead of owning an extension table.
func mergeContainers(base, ext *rtype.Container) *rtype.Container {
	merged := &rtype.Container{Name: base.Name, Properties: append([]*rtype.Property{}, base.Properties...)}
	for _, p := range ext.Properties {
		if _, ok := base.Property(p.Name); ok {
			continue
		}
		merged.Properties = append(merged.Properties, p)
	}
	return merged
}

func joinIDs(ids []any) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%v", id)
	}
	return strings.Join(parts, ", ")
}

type insertState struct {
	rt        *rtype.RecordType
	reg       *filterparams.Registry
	entangled map[string][]any
}

// planContainer emits the ordered command list for one table-backed
// container: id generation, the INSERT itself, then any recursive
// child-table inserts (§4.10 steps 1-6). extraCols/extraVals carry a
// caller-supplied parent-id and/or array-index column to splice into
// the INSERT's column list.
func (s *insertState) planContainer(b *Builder, table, idProp string, c *rtype.Container, data map[string]any, meta *rtype.MetaInfo, extraCols, extraVals []string) ([]command.Command, error) {
	var cmds []command.Command
	columns := append([]string{}, extraCols...)
	values := append([]string{}, extraVals...)

	idProperty, _ := c.Property(idProp)
	generatedIDColumn := ""
	idPath := idProp
	if idProperty != nil {
		switch idProperty.Generator {
		case rtype.GeneratorAuto:
			generatedIDColumn = columnName(idProperty)
		case rtype.GeneratorFuncKind:
			cmds = append(cmds, &command.Generator{Path: idPath, Fn: idProperty.GeneratorFunc})
			columns = append(columns, columnName(idProperty))
			values = append(values, "?{"+idPath+"}")
		default: // assigned
			if v, ok := data[idProp]; ok {
				cmds = append(cmds, &command.AssignedId{Path: idPath, Data: v})
				columns = append(columns, columnName(idProperty))
				values = append(values, "?{"+idPath+"}")
			}
		}
	}

	var childCmds []command.Command
	keys := sortedDataKeys(data)
	for _, name := range keys {
		if name == idProp {
			continue
		}
		prop, ok := c.Property(name)
		if !ok {
			continue
		}
		val := data[name]
		if prop.Value == rtype.TypeRef && prop.Flags.Has(rtype.FlagEntangled) && prop.RefType != "" {
			s.entangled[prop.RefType] = append(s.entangled[prop.RefType], val)
		}
		switch prop.Storage {
		case rtype.StorageInlineColumn:
			ref := s.reg.Register(name, "")
			columns = append(columns, columnName(prop))
			values = append(values, ref)
		case rtype.StorageChildTable:
			list, _ := val.([]any)
			for idx, elem := range list {
				elemMap, _ := elem.(map[string]any)
				childExtraCols := []string{prop.ParentIDColumn}
				childExtraVals := []string{"?{" + idPath + "}"}
				if prop.IndexColumn != "" {
					childExtraCols = append(childExtraCols, prop.IndexColumn)
					childExtraVals = append(childExtraVals, fmt.Sprintf("%d", idx))
				}
				sub, err := s.planContainer(b, prop.Table.Name, "", childContainer(prop), elemMap, nil, childExtraCols, childExtraVals)
				if err != nil {
					return nil, err
				}
				childCmds = append(childCmds, sub...)
			}
		case rtype.StorageLinkTable:
			list, _ := val.([]any)
			for _, elem := range list {
				childCmds = append(childCmds, &command.Insert{
					Exec: b.Exec, Conn: b.Conn,
					Tmpl: fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?{%s}, '%v')", prop.Table.Name, prop.ParentIDColumn, "ref_id", idPath, elem),
					Stmt: b.nextStmtID("insert:" + prop.Table.Name),
				})
			}
		}
	}

	if meta != nil {
		if meta.VersionProperty != "" {
			columns = append(columns, meta.VersionProperty)
			values = append(values, "1")
		}
		if meta.CreationTimestampProperty != "" {
			columns = append(columns, meta.CreationTimestampProperty)
			values = append(values, "?{ctx.executedOn}")
		}
		if meta.CreationActorProperty != "" {
			columns = append(columns, meta.CreationActorProperty)
			values = append(values, "?{ctx.actor}")
		}
	}

	tmpl := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), strings.Join(values, ", "))
	insertCmd := &command.Insert{
		Exec: b.Exec, Conn: b.Conn,
		Tmpl:              tmpl,
		Stmt:              b.nextStmtID("insert:" + table),
		GeneratedIDColumn: generatedIDColumn,
		IDPath:            idPath,
	}
	cmds = append(cmds, insertCmd)
	cmds = append(cmds, childCmds...)
	return cmds, nil
}

func childContainer(p *rtype.Property) *rtype.Container {
	if p.Object != nil {
		return p.Object
	}
	return &rtype.Container{}
}

func columnName(p *rtype.Property) string {
	if p.Column != nil {
		return p.Column.Name
	}
	return p.Name
}

func sortedDataKeys(data map[string]any) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
