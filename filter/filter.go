// Package filter turns declarative filter/order/range specifications
// (§4.3) into a junction/leaf tree of tests, with operator
// canonicalization and arity validation. Grounded on the teacher's
// dialect/sql predicate tree shape (sql/predicate.go's AND/OR/Not
// composition), generalized from raw *sql.Predicate composition to
// the declarative []any spec form clients send over the wire.
package filter

import (
	"fmt"

	"github.com/relkit/relkit"
	"github.com/relkit/relkit/valexpr"
)

// JunctionKind is the boolean combinator for a Junction node.
type JunctionKind int

const (
	And JunctionKind = iota
	Or
)

// TestOp is a canonicalized single-property test operator.
type TestOp string

const (
	OpEq        TestOp = "eq"
	OpNe        TestOp = "ne"
	OpGe        TestOp = "ge"
	OpLe        TestOp = "le"
	OpGt        TestOp = "gt"
	OpLt        TestOp = "lt"
	OpIn        TestOp = "in"
	OpBetween   TestOp = "between"
	OpContains  TestOp = "contains"
	OpContainsI TestOp = "containsi"
	OpPrefix    TestOp = "prefix"
	OpPrefixI   TestOp = "prefixi"
	OpMatches   TestOp = "matches"
	OpMatchesI  TestOp = "matchesi"
	OpEmpty     TestOp = "empty"
)

// aliases maps synonymous operator spellings onto their canonical form
// (§4.3: min->ge, max->le, rng->between, sub->containsi, pre->prefixi,
// re->matchesi).
var aliases = map[string]TestOp{
	"min": OpGe, "max": OpLe, "rng": OpBetween,
	"sub": OpContainsI, "pre": OpPrefixI, "re": OpMatchesI,
}

// invertedAliases folds a `!op` spelling into its logical negation's
// canonical op, paired with the Inverted flag it implies.
var invertedAliases = map[string]TestOp{
	"!eq": OpNe, "!ne": OpEq, "!ge": OpLt, "!lt": OpGe, "!le": OpGt, "!gt": OpLe,
}

func canonicalize(op string) (TestOp, bool, error) {
	if op == "" {
		return OpEq, false, nil
	}
	if canon, ok := invertedAliases[op]; ok {
		return canon, false, nil
	}
	if len(op) > 0 && op[0] == '!' {
		base, inv, err := canonicalize(op[1:])
		if err != nil {
			return "", false, err
		}
		return base, !inv, nil
	}
	if canon, ok := aliases[op]; ok {
		return canon, false, nil
	}
	switch TestOp(op) {
	case OpEq, OpNe, OpGe, OpLe, OpGt, OpLt, OpIn, OpBetween,
		OpContains, OpContainsI, OpPrefix, OpPrefixI, OpMatches, OpMatchesI, OpEmpty:
		return TestOp(op), false, nil
	}
	return "", false, relkit.NewUsageError("filter", fmt.Sprintf("unknown filter operator %q", op))
}

// Term is the sum type for one node of a filter tree: *Junction,
// *SingleTest, or *CollectionTest.
type Term interface{ isTerm() }

// Junction combines children with AND/OR, optionally inverted.
type Junction struct {
	Kind     JunctionKind
	Inverted bool
	Children []Term
}

func (*Junction) isTerm() {}

// SingleTest compares one scalar property path (optionally piped
// through a value function) against a test operator and its
// parameters.
type SingleTest struct {
	Path       string
	ValueFunc  valexpr.ValueFunc
	Op         TestOp
	Inverted   bool
	Parameters []any
}

func (*SingleTest) isTerm() {}

// CollectionTest asserts existence/non-existence over a non-scalar
// path, optionally filtered by a recursive sub-filter.
type CollectionTest struct {
	Path      string
	Inverted  bool
	SubFilter Term
}

func (*CollectionTest) isTerm() {}

// Order is one compiled order-by element.
type Order struct {
	Expr *valexpr.Translatable
	Desc bool
}

// Range is a non-negative offset/limit pair.
type Range struct {
	Offset int
	Limit  int
}

var singleValueOps = map[TestOp]bool{
	OpEq: true, OpNe: true, OpLt: true, OpLe: true, OpGt: true, OpGe: true,
	OpContains: true, OpContainsI: true, OpPrefix: true, OpPrefixI: true,
	OpMatches: true, OpMatchesI: true,
}

// BuildFilter compiles a filter specification (a slice of []any
// entries) into a Term tree, validating operator arity (§4.3).
func BuildFilter(spec []any) (Term, error) {
	if len(spec) == 0 {
		return nil, nil
	}
	// A spec whose first element is itself a slice is an implicit AND
	// of sibling filter arrays.
	if _, ok := spec[0].([]any); ok {
		children := make([]Term, 0, len(spec))
		for _, s := range spec {
			sub, ok := s.([]any)
			if !ok {
				return nil, relkit.NewUsageError("filter", "filter spec list element must be an array")
			}
			t, err := buildOne(sub)
			if err != nil {
				return nil, err
			}
			children = append(children, t)
		}
		return &Junction{Kind: And, Children: children}, nil
	}
	return buildOne(spec)
}

func buildOne(spec []any) (Term, error) {
	if len(spec) == 0 {
		return nil, relkit.NewUsageError("filter", "empty filter spec array")
	}
	head, ok := spec[0].(string)
	if !ok {
		return nil, relkit.NewUsageError("filter", "filter spec's first element must be a string")
	}
	args := spec[1:]

	switch stripBang(head) {
	case ":and", ":or", ":any", ":none", ":all":
		return buildJunction(head, args)
	}
	return buildSingle(head, args)
}

func stripBang(s string) string {
	if len(s) > 0 && s[0] == '!' {
		return s[1:]
	}
	return s
}

func buildJunction(head string, args []any) (Term, error) {
	inverted := len(head) > 0 && head[0] == '!'
	kw := stripBang(head)
	kind := And
	switch kw {
	case ":and", ":all":
		kind = And
	case ":or", ":any":
		kind = Or
	case ":none":
		kind, inverted = Or, !inverted
	}
	children := make([]Term, 0, len(args))
	for _, a := range args {
		sub, ok := a.([]any)
		if !ok {
			return nil, relkit.NewUsageError("filter", fmt.Sprintf("%s child must be a filter spec array", head))
		}
		t, err := buildOne(sub)
		if err != nil {
			return nil, err
		}
		children = append(children, t)
	}
	return &Junction{Kind: kind, Inverted: inverted, Children: children}, nil
}

// buildSingle parses a "path [| valuefn] [| testop]" predicate head.
func buildSingle(head string, args []any) (Term, error) {
	path, fn, opStr := splitHead(head)
	op, inv, err := canonicalize(opStr)
	if err != nil {
		return nil, err
	}
	if err := checkArity(op, args); err != nil {
		return nil, err
	}
	if op == OpEmpty {
		ct := &CollectionTest{Path: path, Inverted: inv}
		if len(args) == 1 {
			sub, ok := args[0].([]any)
			if !ok {
				return nil, relkit.NewUsageError("filter", "collection test sub-filter must be a filter spec array")
			}
			subTerm, err := BuildFilter(sub)
			if err != nil {
				return nil, err
			}
			ct.SubFilter = subTerm
		}
		return ct, nil
	}
	return &SingleTest{
		Path:       path,
		ValueFunc:  valexpr.ValueFunc(fn),
		Op:         op,
		Inverted:   inv,
		Parameters: args,
	}, nil
}

func splitHead(head string) (path, fn, op string) {
	parts := splitPipe(head)
	path = parts[0]
	if len(parts) == 2 {
		op = parts[1]
	} else if len(parts) >= 3 {
		fn = parts[1]
		op = parts[2]
	}
	return
}

func splitPipe(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '|' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

func checkArity(op TestOp, args []any) error {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpContains, OpContainsI, OpPrefix, OpPrefixI, OpMatches, OpMatchesI:
		if len(args) != 1 {
			return relkit.NewUsageError("filter", fmt.Sprintf("operator %q takes exactly one value", op))
		}
	case OpBetween:
		if len(args) == 1 {
			if list, ok := args[0].([]any); ok && len(list) == 2 {
				return nil
			}
			return relkit.NewUsageError("filter", "operator \"between\" takes two scalars or a 2-element list")
		}
		if len(args) != 2 {
			return relkit.NewUsageError("filter", "operator \"between\" takes two scalars or a 2-element list")
		}
	case OpIn:
		flat := flatten(args)
		if len(flat) == 0 {
			return relkit.NewUsageError("filter", "operator \"in\" requires at least one value")
		}
		for _, v := range flat {
			if v == nil {
				return relkit.NewUsageError("filter", "operator \"in\" does not accept null elements")
			}
		}
	case OpEmpty:
		if len(args) > 1 {
			return relkit.NewUsageError("filter", "operator \"empty\" takes no arguments or one sub-filter array")
		}
	}
	return nil
}

func flatten(args []any) []any {
	var out []any
	for _, a := range args {
		if list, ok := a.([]any); ok {
			out = append(out, flatten(list)...)
			continue
		}
		out = append(out, a)
	}
	return out
}

// Flatten exposes flatten for planners/translators that need the
// normalized element list of an `in`/`between` test's parameters.
func Flatten(args []any) []any { return flatten(args) }

// BuildOrder compiles an order spec: each element is "expr" or
// "expr | asc" / "expr | desc".
func BuildOrder(base string, spec []any) ([]Order, error) {
	out := make([]Order, 0, len(spec))
	for _, raw := range spec {
		s, ok := raw.(string)
		if !ok {
			return nil, relkit.NewUsageError("filter", "order element must be a string")
		}
		parts := splitPipe(s)
		desc := false
		if len(parts) == 2 {
			switch parts[1] {
			case "asc":
				desc = false
			case "desc":
				desc = true
			default:
				return nil, relkit.NewUsageError("filter", fmt.Sprintf("order direction must be asc|desc, got %q", parts[1]))
			}
		}
		expr, err := valexpr.Parse(base, parts[0])
		if err != nil {
			return nil, err
		}
		out = append(out, Order{Expr: expr, Desc: desc})
	}
	return out, nil
}

// BuildRange validates a [offset, limit] tuple of non-negative ints.
func BuildRange(spec []any) (*Range, error) {
	if spec == nil {
		return nil, nil
	}
	if len(spec) != 2 {
		return nil, relkit.NewUsageError("filter", "range must be a 2-element [offset, limit] array")
	}
	offset, err := toNonNegInt(spec[0])
	if err != nil {
		return nil, err
	}
	limit, err := toNonNegInt(spec[1])
	if err != nil {
		return nil, err
	}
	return &Range{Offset: offset, Limit: limit}, nil
}

func toNonNegInt(v any) (int, error) {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case float64:
		f = n
	default:
		return 0, relkit.NewUsageError("filter", "range elements must be non-negative integers")
	}
	if f < 0 {
		return 0, relkit.NewUsageError("filter", "range elements must be non-negative integers")
	}
	return int(f), nil
}
