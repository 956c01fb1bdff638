package rtype

// MetaInfo names the properties on a record type that hold modification
// meta-information, if the record type opts in (§3).
type MetaInfo struct {
	VersionProperty                string
	CreationTimestampProperty      string
	CreationActorProperty          string
	ModificationTimestampProperty  string
	ModificationActorProperty      string
}

// HasVersion reports whether optimistic-concurrency versioning is enabled.
func (m *MetaInfo) HasVersion() bool { return m != nil && m.VersionProperty != "" }

// Subtype is one polymorphic variant of a record type: it extends the
// base container with its own properties, optionally backed by its own
// extension table (StorageChildTable-shaped, keyed 1:1 on the base id).
type Subtype struct {
	Discriminator string // the value of the type-discriminator property
	Container     *Container
	ExtensionTable string // empty if the subtype folds into the base table
}

// RecordType is the top-level descriptor for a named entity class.
type RecordType struct {
	Name         string
	MainTable    string
	IDProperty   string
	Container    *Container
	MetaInfo     *MetaInfo

	// DiscriminatorProperty names the property that selects a subtype,
	// empty if this record type is not polymorphic.
	DiscriminatorProperty string
	Subtypes              []*Subtype

	// SuperRecordType is a synthetic parent used to express "the
	// collection of records of type X" as a property, so a `.super`
	// path in a pattern can reach super-properties (§4.2).
	SuperRecordType *RecordType
}

// Property looks up a top-level property by dotted path segment on the
// record type's own container (not recursing into nested objects).
func (r *RecordType) Property(name string) (*Property, bool) {
	return r.Container.Property(name)
}

// Subtype looks up a declared subtype by discriminator value.
func (r *RecordType) Subtype(discriminator string) (*Subtype, bool) {
	for _, s := range r.Subtypes {
		if s.Discriminator == discriminator {
			return s, true
		}
	}
	return nil, false
}

// IDValueType returns the scalar value type of the id property.
func (r *RecordType) IDValueType() ValueType {
	if p, ok := r.Property(r.IDProperty); ok {
		return p.Value
	}
	return TypeString
}
