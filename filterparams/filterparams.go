// Package filterparams implements the filter-parameter registry and
// `?{ref}` placeholder substitution (§4.6). Parameter references of
// the form `ctx.executedOn`/`ctx.actor` resolve against the execution
// context; plain integer refs index the registry; dotted refs name
// generated parameters by property path. Grounded on the teacher's
// dialect/sql placeholder-rewriting pass (sql/builder.go Query()
// argument handling), generalized from positional driver placeholders
// to named `?{ref}` substitution resolved at execute time.
package filterparams

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/relkit/relkit"
)

// ValueFunc names the value function a registered parameter's value
// must be coerced through before rendering as a literal.
type ValueFunc string

// Registry is the immutable, compiled-in-the-DBO set of named filter
// parameters, keyed by a monotonically assigned numeric reference.
type Registry struct {
	names []string // index -> client-visible name
	funcs []ValueFunc
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry { return &Registry{} }

// Register assigns the next numeric reference to name and returns the
// placeholder string to embed in a SQL template.
func (r *Registry) Register(name string, fn ValueFunc) string {
	ref := len(r.names)
	r.names = append(r.names, name)
	r.funcs = append(r.funcs, fn)
	return fmt.Sprintf("?{%d}", ref)
}

func (r *Registry) nameAt(ref int) (string, ValueFunc, bool) {
	if ref < 0 || ref >= len(r.names) {
		return "", "", false
	}
	return r.names[ref], r.funcs[ref], true
}

// Resolver resolves one placeholder reference to a SQL literal or
// errors per §4.6 (MissingParameter, InvalidParameter, TypeMismatch).
type Resolver interface {
	ResolveExecutedOn() (string, error)
	ResolveActor() (string, error)
	// ResolveInput returns the value supplied for a registered filter
	// parameter's client-visible name.
	ResolveInput(name string) (any, bool, error)
	// ResolveGenerated returns a generated parameter by property path.
	ResolveGenerated(path string) (any, bool)
	// Literal renders a resolved Go value as a dialect-correct SQL
	// literal (strings, numbers, bools); list values are expanded
	// element by element before Literal is called.
	Literal(v any) (string, error)
}

// Substitute scans tmpl for `?{ref}` placeholders outside single-quoted
// string literals and replaces each with the resolved literal (§P2).
func Substitute(tmpl string, reg *Registry, resolver Resolver) (string, error) {
	var b strings.Builder
	i := 0
	n := len(tmpl)
	for i < n {
		c := tmpl[i]
		if c == '\'' {
			j := i + 1
			for j < n {
				if tmpl[j] == '\'' {
					if j+1 < n && tmpl[j+1] == '\'' {
						j += 2
						continue
					}
					break
				}
				j++
			}
			if j >= n {
				return "", relkit.NewUsageError("filterparams", "unterminated string literal in SQL template")
			}
			b.WriteString(tmpl[i : j+1])
			i = j + 1
			continue
		}
		if c == '?' && i+1 < n && tmpl[i+1] == '{' {
			close := strings.IndexByte(tmpl[i+2:], '}')
			if close < 0 {
				return "", relkit.NewUsageError("filterparams", "unterminated placeholder in SQL template")
			}
			ref := tmpl[i+2 : i+2+close]
			lit, err := resolveRef(ref, reg, resolver)
			if err != nil {
				return "", err
			}
			b.WriteString(lit)
			i = i + 2 + close + 1
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String(), nil
}

func resolveRef(ref string, reg *Registry, resolver Resolver) (string, error) {
	switch ref {
	case "ctx.executedOn":
		return resolver.ResolveExecutedOn()
	case "ctx.actor":
		return resolver.ResolveActor()
	}
	if n, err := strconv.Atoi(ref); err == nil {
		name, fn, ok := reg.nameAt(n)
		if !ok {
			return "", relkit.NewUsageError("filterparams", fmt.Sprintf("no filter parameter registered for ?{%d}", n))
		}
		v, found, err := resolver.ResolveInput(name)
		if err != nil {
			return "", err
		}
		if !found {
			return "", relkit.NewValidationError("filterparams", fmt.Errorf("relkit: missing value for filter parameter %q", name))
		}
		if err := checkValueFunc(name, fn, v); err != nil {
			return "", err
		}
		return renderValue(v, resolver)
	}
	// Dotted ref: a generated parameter by property path.
	v, ok := resolver.ResolveGenerated(ref)
	if !ok {
		return "", relkit.NewValidationError("filterparams", fmt.Errorf("relkit: missing generated parameter %q", ref))
	}
	return renderValue(v, resolver)
}

// listShapedFuncs names the registered value functions whose parameter
// must resolve to a list value — the multi-valued filter operators
// ("in", "between"). Every other value function expects a scalar.
var listShapedFuncs = map[ValueFunc]bool{
	"in": true, "between": true,
}

// checkValueFunc enforces that v's shape agrees with what fn declares
// acceptable (§4.6 TypeMismatch). An empty fn (the common case for
// insert/update parameters, which carry no value function) imposes no
// constraint.
func checkValueFunc(name string, fn ValueFunc, v any) error {
	if fn == "" {
		return nil
	}
	_, isList := v.([]any)
	switch {
	case listShapedFuncs[fn] && !isList:
		return relkit.NewTypeMismatchError(name, "list", v)
	case !listShapedFuncs[fn] && isList:
		return relkit.NewTypeMismatchError(name, "scalar", v)
	}
	return nil
}

func renderValue(v any, resolver Resolver) (string, error) {
	if list, ok := v.([]any); ok {
		parts := make([]string, 0, len(list))
		for _, e := range list {
			lit, err := renderValue(e, resolver)
			if err != nil {
				return "", err
			}
			parts = append(parts, lit)
		}
		return strings.Join(parts, ", "), nil
	}
	if err := checkFinite(v); err != nil {
		return "", err
	}
	return resolver.Literal(v)
}

func checkFinite(v any) error {
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return relkit.NewValidationError("filterparams", fmt.Errorf("relkit: parameter value is NaN or infinite"))
	}
	return nil
}
