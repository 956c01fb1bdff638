// Package rtype is the record-types library: it describes record types,
// their properties, containers, polymorphism, and modification
// meta-information. It is constructed once and is immutable thereafter
// (§3 Lifecycle); the planning/execution engine consumes it read-only.
package rtype

// ValueType is a property's scalar value type.
type ValueType int

const (
	TypeString ValueType = iota
	TypeNumber
	TypeBoolean
	TypeDatetime
	TypeRef
	TypeObject
)

func (t ValueType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeBoolean:
		return "boolean"
	case TypeDatetime:
		return "datetime"
	case TypeRef:
		return "ref"
	case TypeObject:
		return "object"
	default:
		return "unknown"
	}
}

// StructuralKind is a property's structural shape.
type StructuralKind int

const (
	KindScalar StructuralKind = iota
	KindArray
	KindMap
)

func (k StructuralKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// StorageShape says where a property's value physically lives.
type StorageShape int

const (
	// StorageInlineColumn: a column on the owning container's table.
	StorageInlineColumn StorageShape = iota
	// StorageChildTable: a one-to-many collection in its own table,
	// keyed by a parent-id column (and an index/key column for
	// arrays/maps).
	StorageChildTable
	// StorageLinkTable: a many-to-many association table.
	StorageLinkTable
	// StorageView: backed by a read-only database view.
	StorageView
	// StorageCalculated: computed by a value expression, never stored.
	StorageCalculated
	// StorageReverseReference: the inverse side of a ref property
	// declared on another record type.
	StorageReverseReference
)

// GeneratorKind says how an id/value is produced on insert.
type GeneratorKind int

const (
	GeneratorNone GeneratorKind = iota
	GeneratorAuto
	GeneratorFuncKind
)

// GeneratorFunc is a user-supplied id/value generator. It may return a
// future-like value by blocking internally; the insert planner treats
// the call as a suspension point (§5).
type GeneratorFunc func() (any, error)

// Flags are boolean property modifiers, combined with bitwise-or.
type Flags uint16

const (
	FlagOptional Flags = 1 << iota
	FlagID
	FlagRecordMetaInfo
	FlagView
	FlagCalculated
	FlagEntangled
	FlagWeakDependency
	FlagPolymorphic
)

// Has reports whether all bits in want are set in f.
func (f Flags) Has(want Flags) bool { return f&want == want }
