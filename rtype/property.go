package rtype

import (
	"ariga.io/atlas/sql/schema"
)

// Property describes a single field of a record type or nested object
// container (§3 Property descriptor).
type Property struct {
	Name    string
	Kind    StructuralKind
	Value   ValueType
	Storage StorageShape
	Flags   Flags

	// Generator controls how a value is produced on insert. Only
	// meaningful for id properties and properties the caller never
	// supplies (StorageCalculated excluded).
	Generator     GeneratorKind
	GeneratorFunc GeneratorFunc

	// RefType names the target record type when Value == TypeRef.
	RefType string

	// Column is the physical column this property is read from/written
	// to when Storage == StorageInlineColumn. Backed by atlas's schema
	// model rather than a bespoke {name,type} pair, so the same
	// descriptor can drive both planning and (if a caller wants it)
	// migration tooling built on ariga.io/atlas.
	Column *schema.Column

	// Table is the child/link table for StorageChildTable/StorageLinkTable
	// storage. ParentIDColumn is always present on it; IndexColumn is set
	// for KindArray collections; KeyColumn/KeyType are set for KindMap
	// collections.
	Table          *schema.Table
	ParentIDColumn string
	IndexColumn    string
	KeyColumn      string
	KeyType        ValueType

	// Object is the nested container descriptor for a property whose
	// Value is an inline object (not a ref), used by the properties-tree
	// and insert planner to recurse into its own property list.
	Object *Container

	// ValueExpr is the value-expression source for a StorageCalculated
	// property (§4.1), evaluated relative to the owning container.
	ValueExpr string
}

// IsScalarColumn reports whether this property reads/writes a single
// column on the owning container's own table — the "fetchable by
// default" test used by `*` wildcard expansion (§4.2). A TypeObject
// property is inline-stored but not scalar: it owns a nested Object
// container that must itself be expanded column-by-column rather than
// selected as one opaque value.
func (p *Property) IsScalarColumn() bool {
	return p.Kind == KindScalar && p.Storage == StorageInlineColumn && p.Value != TypeObject
}

// Optional reports whether the property may be omitted on insert.
func (p *Property) Optional() bool { return p.Flags.Has(FlagOptional) }

// IsID reports whether this is the record type's id property.
func (p *Property) IsID() bool { return p.Flags.Has(FlagID) }

// Container is a properties grouping: a record type's top-level property
// list, a nested object's property list, or a polymorphic subtype
// extension's property list.
type Container struct {
	// Name is empty for a record type's own container (identified by
	// the owning RecordType instead).
	Name       string
	Properties []*Property
}

// Property looks up a direct property by name.
func (c *Container) Property(name string) (*Property, bool) {
	for _, p := range c.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}
