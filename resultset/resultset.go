// Package resultset consumes a row stream and reconstructs record
// objects from it (§6 "result-set parser"). A default implementation
// is provided: it maps each row's columns back onto a nested
// map[string]any tree keyed by the SELECT label path (dot-separated),
// and merges rows from several branch SELECTs into one record per id,
// keeping records in the order their ids were first seen (§4.13).
// Grounded on the teacher's entity-loading scan
// pass (ent's generated scanValues/assignValues), generalized from
// fixed per-type struct fields to a dynamic label-path tree.
package resultset

import (
	"strings"

	"github.com/relkit/relkit"
)

// Row is one driver row that reports its column labels. command.Rows
// has no Columns method and so does not satisfy it.
type Row interface {
	Columns() ([]string, error)
	Scan(dest ...any) error
}

// Builder accumulates records keyed by id across one or more branch
// SELECTs sharing the same anchor ordering (§4.13).
type Builder struct {
	idPath  string
	records map[any]map[string]any
	order   []any
}

// NewBuilder creates a Builder keyed on the record type's id path.
func NewBuilder(idPath string) *Builder {
	return &Builder{idPath: idPath, records: map[any]map[string]any{}}
}

// ConsumeRow merges one row, given as a label -> value map built from
// the query's select list, into the record tree.
func (b *Builder) ConsumeRow(values map[string]any) error {
	id, ok := values[b.idPath]
	if !ok {
		return relkit.NewIntegrityError("resultset: row missing id column")
	}
	rec, ok := b.records[id]
	if !ok {
		rec = map[string]any{}
		b.records[id] = rec
		b.order = append(b.order, id)
	}
	for label, v := range values {
		assign(rec, label, v)
	}
	return nil
}

func assign(root map[string]any, label string, v any) {
	segs := strings.Split(label, ".")
	cur := root
	for i, seg := range segs {
		if i == len(segs)-1 {
			cur[seg] = v
			return
		}
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[seg] = next
		}
		cur = next
	}
}

// Records returns the reconstructed records in first-seen (anchor)
// order.
func (b *Builder) Records() []map[string]any {
	out := make([]map[string]any, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.records[id])
	}
	return out
}
