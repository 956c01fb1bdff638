// Package proptree builds the properties tree (§3, §4.2): expanding
// inclusion patterns (wildcards, nested paths; a subtype name used as a
// path segment is not resolved and fails as an unknown property)
// against a record-type library into a typed tree of selected
// properties, and combining trees for multi-clause plans. Grounded on
// the teacher's sqlgraph query-spec FieldSpec/EdgeSpec shape (per
// dialect/sql/sqlgraph/eval_test.go), generalized from a fixed
// generated-field list to a dynamic, pattern-driven selection.
package proptree

import (
	"fmt"
	"strings"

	"github.com/relkit/relkit"
	"github.com/relkit/relkit/rtype"
)

// Clause is the usage tag a tree (or a node within it) was built for.
type Clause int

const (
	ClauseSelect Clause = iota
	ClauseWhere
	ClauseOrder
	ClauseDelete
	ClauseUpdate
)

// UsageFlags is a bitset of the clauses that reference a node.
type UsageFlags uint8

const (
	UsageSelect UsageFlags = 1 << iota
	UsageWhere
	UsageOrder
	UsageDelete
	UsageUpdate
)

func (c Clause) flag() UsageFlags {
	switch c {
	case ClauseSelect:
		return UsageSelect
	case ClauseWhere:
		return UsageWhere
	case ClauseOrder:
		return UsageOrder
	case ClauseDelete:
		return UsageDelete
	case ClauseUpdate:
		return UsageUpdate
	}
	return 0
}

// Node is one entry in a properties tree: a resolved property at a
// dot-separated path, the usage clauses that reference it, and its
// children keyed by the next path segment (or, for a polymorphic node,
// by subtype discriminator).
type Node struct {
	Path     string
	Property *rtype.Property
	Usage    UsageFlags
	// Subtype is set when this node's parent is polymorphic and this
	// node represents one subtype's extension container.
	Subtype  string
	Children map[string]*Node
}

func newNode(path string, p *rtype.Property, clause Clause) *Node {
	return &Node{Path: path, Property: p, Usage: clause.flag(), Children: map[string]*Node{}}
}

// Tree is a built properties tree rooted at a record type's container.
type Tree struct {
	RecordType *rtype.RecordType
	Root       *Node
}

// Build expands patterns against recordType's container for the given
// clause, producing a Tree (§4.2).
func Build(lib *rtype.Library, recordType *rtype.RecordType, clause Clause, patterns []string) (*Tree, error) {
	root := &Node{Path: "", Children: map[string]*Node{}}
	includes := make([]string, 0, len(patterns))
	excludes := make(map[string]bool)
	for _, p := range patterns {
		if strings.HasPrefix(p, "-") {
			excludes[p[1:]] = true
			continue
		}
		includes = append(includes, p)
	}
	for _, pat := range includes {
		if err := apply(lib, recordType, recordType.Container, root, clause, pat, excludes); err != nil {
			return nil, err
		}
	}
	return &Tree{RecordType: recordType, Root: root}, nil
}

func apply(lib *rtype.Library, rootType *rtype.RecordType, container *rtype.Container, node *Node, clause Clause, pattern string, excludes map[string]bool) error {
	if strings.HasPrefix(pattern, ".") {
		// Super-property: resolved against the synthetic parent type.
		if rootType.SuperRecordType == nil {
			return relkit.NewUsageError("proptree", fmt.Sprintf("pattern %q: record type %q has no super type", pattern, rootType.Name))
		}
		return apply(lib, rootType.SuperRecordType, rootType.SuperRecordType.Container, node, clause, pattern[1:], excludes)
	}
	if pattern == "*" {
		for _, p := range container.Properties {
			if !fetchableByDefault(p) {
				continue
			}
			if excludes[p.Name] {
				continue
			}
			if p.Value == rtype.TypeObject && p.Object != nil {
				child, ok := node.Children[p.Name]
				if !ok {
					child = newNode(joinPath(node.Path, p.Name), p, clause)
					node.Children[p.Name] = child
				} else {
					child.Usage |= clause.flag()
				}
				if err := apply(lib, rootType, p.Object, child, clause, "*", childExcludes(excludes, p.Name)); err != nil {
					return err
				}
				continue
			}
			if err := addLeaf(lib, container, node, clause, p.Name, excludes); err != nil {
				return err
			}
		}
		return nil
	}
	return addLeaf(lib, container, node, clause, pattern, excludes)
}

// joinPath appends seg to a dotted path prefix, which may be empty at
// the tree root.
func joinPath(prefix, seg string) string {
	if prefix == "" {
		return seg
	}
	return prefix + "." + seg
}

// childExcludes narrows an exclude set to the patterns rooted under
// prefix, stripping the leading "prefix." so they apply relative to
// the nested container the same way they apply at the top level.
func childExcludes(excludes map[string]bool, prefix string) map[string]bool {
	out := make(map[string]bool)
	for k := range excludes {
		if rest, ok := strings.CutPrefix(k, prefix+"."); ok {
			out[rest] = true
		}
	}
	return out
}

// fetchableByDefault reports whether a property is included in `*`
// wildcard expansion: scalar columns, nested objects (recursed into),
// non-scalar collections, and reverse-reference properties — but never
// calculated or view-only properties.
func fetchableByDefault(p *rtype.Property) bool {
	if p.Flags.Has(rtype.FlagCalculated) || p.Flags.Has(rtype.FlagView) {
		return false
	}
	if p.Value == rtype.TypeObject {
		return p.Object != nil
	}
	return p.IsScalarColumn() || p.Kind != rtype.KindScalar || p.Storage == rtype.StorageReverseReference
}

// addLeaf resolves a dotted path of property names starting at
// container, attaching nodes under node. Subtype segments are not
// traversed: a segment naming no property of the current container is
// an error.
func addLeaf(lib *rtype.Library, container *rtype.Container, node *Node, clause Clause, path string, excludes map[string]bool) error {
	segs := strings.Split(path, ".")
	cur := node
	curContainer := container
	var curProp *rtype.Property
	walked := ""
	for i, seg := range segs {
		if walked == "" {
			walked = seg
		} else {
			walked = walked + "." + seg
		}
		if excludes[walked] {
			return nil
		}
		child, ok := cur.Children[seg]
		if !ok {
			p, found := curContainer.Property(seg)
			if !found {
				// A subtype name on a polymorphic node also ends up
				// here; it is not resolved.
				return relkit.NewUsageError("proptree", fmt.Sprintf("unknown property %q in pattern %q", seg, path))
			}
			if clause != ClauseSelect && p.Kind != rtype.KindScalar && p.Value != rtype.TypeRef {
				return relkit.NewUsageError("proptree", fmt.Sprintf("pattern %q: intermediate property %q must be scalar for this clause (I1)", path, seg))
			}
			child = newNode(walked, p, clause)
			cur.Children[seg] = child
			curProp = p
		} else {
			child.Usage |= clause.flag()
			curProp = child.Property
		}
		cur = child
		if curProp != nil && curProp.Object != nil {
			curContainer = curProp.Object
		}
		_ = i
	}
	return nil
}

// Combine yields a tree whose node set is the union of a and b, usage
// flags bitwise-or'd, recursively combined (§4.2 combine()).
func Combine(a, b *Tree) *Tree {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return &Tree{RecordType: a.RecordType, Root: combineNode(a.Root, b.Root)}
}

func combineNode(a, b *Node) *Node {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	out := &Node{
		Path:     a.Path,
		Property: a.Property,
		Subtype:  a.Subtype,
		Usage:    a.Usage | b.Usage,
		Children: make(map[string]*Node, len(a.Children)+len(b.Children)),
	}
	if out.Property == nil {
		out.Property = b.Property
	}
	for k, v := range a.Children {
		out.Children[k] = v
	}
	for k, v := range b.Children {
		if existing, ok := out.Children[k]; ok {
			out.Children[k] = combineNode(existing, v)
		} else {
			out.Children[k] = v
		}
	}
	return out
}

// Walk visits every node in the tree in preorder, depth-first,
// deterministically ordered by child key for reproducible SQL.
func (t *Tree) Walk(visit func(path string, n *Node)) {
	walk(t.Root, visit)
}

func walk(n *Node, visit func(string, *Node)) {
	if n.Property != nil {
		visit(n.Path, n)
	}
	keys := sortedKeys(n.Children)
	for _, k := range keys {
		walk(n.Children[k], visit)
	}
}

func sortedKeys(m map[string]*Node) []string {
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
