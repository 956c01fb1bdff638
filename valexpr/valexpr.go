// Package valexpr compiles value-expression strings of the form
// "a.b | op(args)" into translatable value objects (§4.1): a set of
// referenced property paths (relative to a base) plus a translate
// function that emits a SQL fragment against a translation context.
// Grounded on the teacher's dialect/sql query-builder expression
// helpers, generalized from raw *sql.Selector composition to the
// record-type-aware path resolution this engine needs.
package valexpr

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/relkit/relkit"
	"github.com/relkit/relkit/rtype"
)

// Context resolves a property path against the containers in scope for
// a value-expression evaluation: the base path it was written relative
// to, and the container chain used to validate each segment.
type Context interface {
	// ResolvePath validates path (relative to the expression's base)
	// against the record type's property tree and returns the
	// property descriptor the path terminates on.
	ResolvePath(path string) (*rtype.Property, error)
	// Translate maps a fully-resolved property path to its SQL
	// column expression (aliased to the owning query-tree node).
	Translate(path string) (string, error)
}

// ValueFunc is one of the value functions a path may be piped through:
// val (identity), len, lc (lowercase), uc (uppercase), sub (substring),
// lpad.
type ValueFunc string

const (
	FuncVal  ValueFunc = "val"
	FuncLen  ValueFunc = "len"
	FuncLc   ValueFunc = "lc"
	FuncUc   ValueFunc = "uc"
	FuncSub  ValueFunc = "sub"
	FuncLpad ValueFunc = "lpad"
)

var caser = cases.Fold()

// Translatable is a compiled value expression: the property paths it
// reads (relative to the base it was parsed under) and a translate
// operation producing SQL. Translatables are immutable; Rebase never
// mutates the receiver.
type Translatable struct {
	paths []string
	fn    ValueFunc
	args  []string
	raw   string
}

// Paths returns the property paths this expression references,
// relative to the base path it was compiled under.
func (t *Translatable) Paths() []string {
	out := make([]string, len(t.paths))
	copy(out, t.paths)
	return out
}

// Rebase returns a new Translatable whose referenced paths are
// prefix-composed under prefix; the receiver is untouched.
func (t *Translatable) Rebase(prefix string) (*Translatable, error) {
	if prefix == "" {
		return t, nil
	}
	rebased := make([]string, len(t.paths))
	for i, p := range t.paths {
		if p == "" {
			rebased[i] = prefix
			continue
		}
		rebased[i] = prefix + "." + p
	}
	return &Translatable{paths: rebased, fn: t.fn, args: t.args, raw: t.raw}, nil
}

// Translate resolves the expression's path(s) via ctx and applies its
// value function, returning the SQL fragment.
func (t *Translatable) Translate(ctx Context) (string, error) {
	if len(t.paths) == 0 {
		return "", relkit.NewValidationError("valexpr", fmt.Errorf("relkit: expression %q references no path", t.raw))
	}
	col, err := ctx.Translate(t.paths[0])
	if err != nil {
		return "", err
	}
	switch t.fn {
	case "", FuncVal:
		return col, nil
	case FuncLen:
		return fmt.Sprintf("LENGTH(%s)", col), nil
	case FuncLc:
		return fmt.Sprintf("LOWER(%s)", col), nil
	case FuncUc:
		return fmt.Sprintf("UPPER(%s)", col), nil
	case FuncSub:
		if len(t.args) < 2 {
			return "", relkit.NewValidationError("valexpr", fmt.Errorf("relkit: sub() requires (start, length) on %q", t.raw))
		}
		return fmt.Sprintf("SUBSTRING(%s, %s, %s)", col, t.args[0], t.args[1]), nil
	case FuncLpad:
		if len(t.args) < 2 {
			return "", relkit.NewValidationError("valexpr", fmt.Errorf("relkit: lpad() requires (length, pad) on %q", t.raw))
		}
		return fmt.Sprintf("LPAD(%s, %s, %s)", col, t.args[0], t.args[1]), nil
	default:
		return "", relkit.NewValidationError("valexpr", fmt.Errorf("relkit: unknown value function %q", t.fn))
	}
}

// FoldCase applies Unicode case folding via golang.org/x/text.
// Translate does not call it: the `lc`/`uc` value functions are
// rendered as SQL LOWER/UPPER and left to the database.
func FoldCase(s string) string { return caser.String(s) }

// Uc/Lc apply locale-aware upper/lower casing via golang.org/x/text.
// Translate does not call them either.
func Uc(s string) string { return cases.Upper(language.Und).String(s) }
func Lc(s string) string { return cases.Lower(language.Und).String(s) }

// Parse compiles a value-expression string of the form "path" or
// "path | fn" or "path | fn(args)" relative to base. base is prefixed
// onto the parsed path so the expression's Paths() are absolute from
// the properties-tree root; pass "" to keep paths expression-relative.
func Parse(base, expr string) (*Translatable, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, relkit.NewValidationError("valexpr", fmt.Errorf("relkit: empty value expression"))
	}
	parts := strings.SplitN(expr, "|", 2)
	path := strings.TrimSpace(parts[0])
	if path == "" {
		return nil, relkit.NewValidationError("valexpr", fmt.Errorf("relkit: value expression %q has no path", expr))
	}
	fullPath := path
	if base != "" {
		fullPath = base + "." + path
	}
	t := &Translatable{paths: []string{fullPath}, fn: FuncVal, raw: expr}
	if len(parts) == 1 {
		return t, nil
	}
	fnExpr := strings.TrimSpace(parts[1])
	name, args, err := parseCall(fnExpr)
	if err != nil {
		return nil, err
	}
	t.fn = ValueFunc(name)
	t.args = args
	switch t.fn {
	case FuncVal, FuncLen, FuncLc, FuncUc, FuncSub, FuncLpad:
	default:
		return nil, relkit.NewValidationError("valexpr", fmt.Errorf("relkit: unknown value function %q in %q", name, expr))
	}
	return t, nil
}

func parseCall(s string) (name string, args []string, err error) {
	open := strings.IndexByte(s, '(')
	if open < 0 {
		return s, nil, nil
	}
	if !strings.HasSuffix(s, ")") {
		return "", nil, relkit.NewValidationError("valexpr", fmt.Errorf("relkit: malformed function call %q", s))
	}
	name = strings.TrimSpace(s[:open])
	inner := s[open+1 : len(s)-1]
	if strings.TrimSpace(inner) == "" {
		return name, nil, nil
	}
	for _, a := range strings.Split(inner, ",") {
		args = append(args, strings.TrimSpace(a))
	}
	return name, args, nil
}
