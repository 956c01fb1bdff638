// Package rtfixture loads record-type descriptor fixtures from YAML
// for tests, so test cases can declare a small schema inline instead
// of hand-building rtype.RecordType literals field by field. Grounded
// on the teacher's schema test fixtures (schema/schema_test.go's
// declarative per-field test tables), generalized from Go struct
// literals to a YAML document using gopkg.in/yaml.v3, the teacher's
// only non-test-only YAML dependency.
package rtfixture

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/relkit/relkit/rtype"
)

// Doc is the top-level fixture document: one or more record types.
type Doc struct {
	RecordTypes []TypeDoc `yaml:"recordTypes"`
}

// TypeDoc is one record type's YAML shape.
type TypeDoc struct {
	Name       string       `yaml:"name"`
	Table      string       `yaml:"table"`
	ID         string       `yaml:"id"`
	Properties []PropertyDoc `yaml:"properties"`
	Version    bool         `yaml:"version"`
}

// PropertyDoc is one property's YAML shape.
type PropertyDoc struct {
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"`     // scalar|array|map
	Value    string `yaml:"value"`    // string|number|boolean|datetime|ref|object
	Storage  string `yaml:"storage"`  // column|child|link|view|calculated|reverse
	Ref      string `yaml:"ref"`
	Optional bool   `yaml:"optional"`
	ID       bool   `yaml:"id"`
	Entangled bool  `yaml:"entangled"`
	Generator string `yaml:"generator"` // "", "auto"
}

// Load parses a YAML fixture document into a set of RecordType
// descriptors, keyed by name.
func Load(data []byte) (map[string]*rtype.RecordType, error) {
	var doc Doc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("rtfixture: %w", err)
	}
	out := make(map[string]*rtype.RecordType, len(doc.RecordTypes))
	for _, td := range doc.RecordTypes {
		rt, err := buildType(td)
		if err != nil {
			return nil, err
		}
		out[rt.Name] = rt
	}
	return out, nil
}

func buildType(td TypeDoc) (*rtype.RecordType, error) {
	container := &rtype.Container{}
	for _, pd := range td.Properties {
		p, err := buildProperty(pd)
		if err != nil {
			return nil, fmt.Errorf("rtfixture: type %q: %w", td.Name, err)
		}
		container.Properties = append(container.Properties, p)
	}
	var meta *rtype.MetaInfo
	if td.Version {
		meta = &rtype.MetaInfo{
			VersionProperty:               "version",
			CreationTimestampProperty:     "creationTimestamp",
			ModificationTimestampProperty: "modificationTimestamp",
		}
		container.Properties = append(container.Properties,
			&rtype.Property{Name: "version", Kind: rtype.KindScalar, Value: rtype.TypeNumber, Storage: rtype.StorageInlineColumn, Flags: rtype.FlagRecordMetaInfo},
			&rtype.Property{Name: "creationTimestamp", Kind: rtype.KindScalar, Value: rtype.TypeDatetime, Storage: rtype.StorageInlineColumn, Flags: rtype.FlagRecordMetaInfo},
			&rtype.Property{Name: "modificationTimestamp", Kind: rtype.KindScalar, Value: rtype.TypeDatetime, Storage: rtype.StorageInlineColumn, Flags: rtype.FlagRecordMetaInfo},
		)
	}
	table := td.Table
	if table == "" {
		table = rtype.DefaultTableName(td.Name)
	}
	return &rtype.RecordType{
		Name:       td.Name,
		MainTable:  table,
		IDProperty: td.ID,
		Container:  container,
		MetaInfo:   meta,
	}, nil
}

func buildProperty(pd PropertyDoc) (*rtype.Property, error) {
	kind, err := parseKind(pd.Kind)
	if err != nil {
		return nil, err
	}
	value, err := parseValue(pd.Value)
	if err != nil {
		return nil, err
	}
	storage, err := parseStorage(pd.Storage)
	if err != nil {
		return nil, err
	}
	var flags rtype.Flags
	if pd.Optional {
		flags |= rtype.FlagOptional
	}
	if pd.ID {
		flags |= rtype.FlagID
	}
	if pd.Entangled {
		flags |= rtype.FlagEntangled
	}
	gen := rtype.GeneratorNone
	if pd.Generator == "auto" {
		gen = rtype.GeneratorAuto
	}
	return &rtype.Property{
		Name: pd.Name, Kind: kind, Value: value, Storage: storage,
		RefType: pd.Ref, Flags: flags, Generator: gen,
	}, nil
}

func parseKind(s string) (rtype.StructuralKind, error) {
	switch s {
	case "", "scalar":
		return rtype.KindScalar, nil
	case "array":
		return rtype.KindArray, nil
	case "map":
		return rtype.KindMap, nil
	}
	return 0, fmt.Errorf("unknown kind %q", s)
}

func parseValue(s string) (rtype.ValueType, error) {
	switch s {
	case "string":
		return rtype.TypeString, nil
	case "number":
		return rtype.TypeNumber, nil
	case "boolean":
		return rtype.TypeBoolean, nil
	case "datetime":
		return rtype.TypeDatetime, nil
	case "ref":
		return rtype.TypeRef, nil
	case "object":
		return rtype.TypeObject, nil
	}
	return 0, fmt.Errorf("unknown value type %q", s)
}

func parseStorage(s string) (rtype.StorageShape, error) {
	switch s {
	case "", "column":
		return rtype.StorageInlineColumn, nil
	case "child":
		return rtype.StorageChildTable, nil
	case "link":
		return rtype.StorageLinkTable, nil
	case "view":
		return rtype.StorageView, nil
	case "calculated":
		return rtype.StorageCalculated, nil
	case "reverse":
		return rtype.StorageReverseReference, nil
	}
	return 0, fmt.Errorf("unknown storage shape %q", s)
}
