// Package predicate provides generic, type-checked helpers that build
// the []any filter-spec entries §4.3 expects, so callers get compile
// time field-name/type checking instead of hand-writing spec arrays.
// Adapted from the teacher's dialect/sql/predicate.go generics
// (StringField[P]/IntField[P]/...), generalized from a *sql.Selector
// mutator to a declarative spec-array builder.
package predicate

// Spec is one compiled filter-spec leaf: ["path|op", args...].
type Spec = []any

// StringField builds string-typed predicates for a named property.
type StringField string

func (f StringField) EQ(v string) Spec        { return Spec{string(f) + "|eq", v} }
func (f StringField) NEQ(v string) Spec       { return Spec{string(f) + "|ne", v} }
func (f StringField) In(vs ...string) Spec    { return Spec{string(f) + "|in", toAny(vs)} }
func (f StringField) Contains(v string) Spec  { return Spec{string(f) + "|contains", v} }
func (f StringField) ContainsFold(v string) Spec { return Spec{string(f) + "|containsi", v} }
func (f StringField) HasPrefix(v string) Spec { return Spec{string(f) + "|prefix", v} }
func (f StringField) Empty() Spec             { return Spec{string(f) + "|empty"} }
func (f StringField) NotEmpty() Spec          { return Spec{"!" + string(f) + "|empty"} }

// IntField builds numeric predicates for an integer-valued property.
type IntField string

func (f IntField) EQ(v int64) Spec          { return Spec{string(f) + "|eq", v} }
func (f IntField) NEQ(v int64) Spec         { return Spec{string(f) + "|ne", v} }
func (f IntField) GT(v int64) Spec          { return Spec{string(f) + "|gt", v} }
func (f IntField) GTE(v int64) Spec         { return Spec{string(f) + "|ge", v} }
func (f IntField) LT(v int64) Spec          { return Spec{string(f) + "|lt", v} }
func (f IntField) LTE(v int64) Spec         { return Spec{string(f) + "|le", v} }
func (f IntField) Between(a, b int64) Spec  { return Spec{string(f) + "|between", a, b} }
func (f IntField) In(vs ...int64) Spec      { return Spec{string(f) + "|in", toAny(vs)} }

// FloatField builds numeric predicates for a float-valued property.
type FloatField string

func (f FloatField) EQ(v float64) Spec         { return Spec{string(f) + "|eq", v} }
func (f FloatField) NEQ(v float64) Spec        { return Spec{string(f) + "|ne", v} }
func (f FloatField) GT(v float64) Spec         { return Spec{string(f) + "|gt", v} }
func (f FloatField) GTE(v float64) Spec        { return Spec{string(f) + "|ge", v} }
func (f FloatField) LT(v float64) Spec         { return Spec{string(f) + "|lt", v} }
func (f FloatField) LTE(v float64) Spec        { return Spec{string(f) + "|le", v} }
func (f FloatField) Between(a, b float64) Spec { return Spec{string(f) + "|between", a, b} }

// BoolField builds equality predicates for a boolean-valued property.
type BoolField string

func (f BoolField) EQ(v bool) Spec { return Spec{string(f) + "|eq", v} }

// TimeField builds comparison predicates for a datetime-valued
// property, over any type T an ISO-8601 encoder produces a wire value
// from (typically time.Time or a string already in wire format).
type TimeField[T any] string

func (f TimeField[T]) EQ(v T) Spec         { return Spec{string(f) + "|eq", v} }
func (f TimeField[T]) GT(v T) Spec         { return Spec{string(f) + "|gt", v} }
func (f TimeField[T]) GTE(v T) Spec        { return Spec{string(f) + "|ge", v} }
func (f TimeField[T]) LT(v T) Spec         { return Spec{string(f) + "|lt", v} }
func (f TimeField[T]) LTE(v T) Spec        { return Spec{string(f) + "|le", v} }
func (f TimeField[T]) Between(a, b T) Spec { return Spec{string(f) + "|between", a, b} }

// RefField builds equality/membership predicates for a ref-valued
// property, in "TypeName#id" form.
type RefField string

func (f RefField) EQ(ref string) Spec       { return Spec{string(f) + "|eq", ref} }
func (f RefField) In(refs ...string) Spec   { return Spec{string(f) + "|in", toAny(refs)} }

// And/Or compose sub-filter specs into a junction spec.
func And(specs ...Spec) Spec { return join(":and", specs) }
func Or(specs ...Spec) Spec  { return join(":or", specs) }
func Not(s Spec) Spec        { return Spec{":none", s} }

func join(kw string, specs []Spec) Spec {
	out := Spec{kw}
	for _, s := range specs {
		out = append(out, s)
	}
	return out
}

func toAny[T any](vs []T) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}
