package rtype

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/relkit/relkit"
)

// Library is the immutable, process-wide registry of record types (§3
// Lifecycle: "constructed once... and is immutable"). Build one with
// NewLibrary and call Validate before handing it to an Engine.
type Library struct {
	types map[string]*RecordType
}

// NewLibrary builds a Library from a set of record type descriptors.
// It does not validate; call Validate separately so construction and
// validation failures are distinguishable.
func NewLibrary(types ...*RecordType) *Library {
	l := &Library{types: make(map[string]*RecordType, len(types))}
	for _, t := range types {
		l.types[t.Name] = t
	}
	return l
}

// HasRecordType reports whether name is registered.
func (l *Library) HasRecordType(name string) bool {
	_, ok := l.types[name]
	return ok
}

// GetRecordTypeDesc returns the descriptor for name, or false if absent.
func (l *Library) GetRecordTypeDesc(name string) (*RecordType, bool) {
	t, ok := l.types[name]
	return t, ok
}

// MustGet panics-free lookup wrapper for planner code that has already
// validated typeName exists; returns a UsageError otherwise.
func (l *Library) MustGet(typeName string) (*RecordType, error) {
	t, ok := l.types[typeName]
	if !ok {
		return nil, relkit.NewUsageError("rtype.Library", fmt.Sprintf("unknown record type %q", typeName))
	}
	return t, nil
}

// RefToId parses a "TypeName#id" reference string and coerces id to the
// target record type's id property type (§6 Reference string format).
func (l *Library) RefToId(typeName, refString string) (any, error) {
	prefix := typeName + "#"
	if !strings.HasPrefix(refString, prefix) {
		return nil, relkit.NewValidationError("ref", fmt.Errorf("relkit: reference %q does not target %q", refString, typeName))
	}
	raw := refString[len(prefix):]
	t, ok := l.types[typeName]
	if !ok {
		return nil, relkit.NewUsageError("rtype.RefToId", fmt.Sprintf("unknown record type %q", typeName))
	}
	switch t.IDValueType() {
	case TypeNumber:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, relkit.NewValidationError("ref", fmt.Errorf("relkit: reference id %q is not numeric: %w", raw, err))
		}
		return n, nil
	case TypeString:
		return raw, nil
	default:
		return nil, relkit.NewValidationError("ref", fmt.Errorf("relkit: record type %q has an unsupported id value type for references", typeName))
	}
}

// Validate performs the one-time structural checks the engine relies on
// before ever planning an operation against this library: every ref
// property names a registered target, every subtype discriminator is
// reachable, and entanglement does not form a cycle a single UPDATE
// command could not resolve. Adapted from the teacher's
// dialect/sql/schema validation pass, which likewise validates a whole
// schema graph once up front rather than per-query.
func (l *Library) Validate() error {
	for _, t := range l.types {
		if t.Container == nil {
			return relkit.NewUsageError("rtype.Validate", fmt.Sprintf("record type %q has no container", t.Name))
		}
		if _, ok := t.Property(t.IDProperty); !ok {
			return relkit.NewUsageError("rtype.Validate", fmt.Sprintf("record type %q: id property %q not declared", t.Name, t.IDProperty))
		}
		if err := l.validateContainer(t.Name, t.Container); err != nil {
			return err
		}
		if t.DiscriminatorProperty != "" {
			if _, ok := t.Property(t.DiscriminatorProperty); !ok {
				return relkit.NewUsageError("rtype.Validate", fmt.Sprintf("record type %q: discriminator property %q not declared", t.Name, t.DiscriminatorProperty))
			}
			for _, st := range t.Subtypes {
				if st.Container == nil {
					return relkit.NewUsageError("rtype.Validate", fmt.Sprintf("record type %q: subtype %q has no container", t.Name, st.Discriminator))
				}
				if err := l.validateContainer(t.Name+"#"+st.Discriminator, st.Container); err != nil {
					return err
				}
			}
		}
		if err := l.checkEntanglementCycle(t.Name, map[string]bool{}); err != nil {
			return err
		}
	}
	return nil
}

func (l *Library) validateContainer(ctx string, c *Container) error {
	for _, p := range c.Properties {
		if p.Value == TypeRef && p.RefType != "" {
			if !l.HasRecordType(p.RefType) {
				return relkit.NewUsageError("rtype.Validate", fmt.Sprintf("%s: property %q refs unknown record type %q", ctx, p.Name, p.RefType))
			}
		}
		if p.Kind != KindScalar && (p.Storage == StorageChildTable) && p.Table == nil {
			return relkit.NewUsageError("rtype.Validate", fmt.Sprintf("%s: property %q is a child-table collection with no table descriptor", ctx, p.Name))
		}
		if p.Object != nil {
			if err := l.validateContainer(ctx+"."+p.Name, p.Object); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkEntanglementCycle walks outgoing entangled refs from typeName and
// fails if it ever revisits a type already on the current path.
func (l *Library) checkEntanglementCycle(typeName string, onPath map[string]bool) error {
	if onPath[typeName] {
		return relkit.NewUsageError("rtype.Validate", fmt.Sprintf("entanglement cycle detected at %q", typeName))
	}
	t, ok := l.types[typeName]
	if !ok {
		return nil
	}
	onPath[typeName] = true
	defer delete(onPath, typeName)
	for _, p := range t.Container.Properties {
		if p.Value == TypeRef && p.Flags.Has(FlagEntangled) && p.RefType != "" {
			if err := l.checkEntanglementCycle(p.RefType, onPath); err != nil {
				return err
			}
		}
	}
	return nil
}
