// Package metamixin provides a reusable bundle of the five modification
// meta-info properties (version, creation/modification timestamp and
// actor) that a record type descriptor can splice in instead of
// re-declaring each one, the same way the teacher's schema/mixin package
// lets a schema embed a shared field set.
package metamixin

import "github.com/relkit/relkit/rtype"

// Properties returns the standard meta-info property set: version
// (number, starts at 1 on insert and increments by one per affected row
// on every mutation, §3/§8 P8), creationTimestamp/creationActor (set
// once on insert), modificationTimestamp/modificationActor (set on
// every mutation).
func Properties() []*rtype.Property {
	return []*rtype.Property{
		{
			Name:    "version",
			Kind:    rtype.KindScalar,
			Value:   rtype.TypeNumber,
			Storage: rtype.StorageInlineColumn,
			Flags:   rtype.FlagRecordMetaInfo,
		},
		{
			Name:    "creationTimestamp",
			Kind:    rtype.KindScalar,
			Value:   rtype.TypeDatetime,
			Storage: rtype.StorageInlineColumn,
			Flags:   rtype.FlagRecordMetaInfo,
		},
		{
			Name:    "creationActor",
			Kind:    rtype.KindScalar,
			Value:   rtype.TypeString,
			Storage: rtype.StorageInlineColumn,
			Flags:   rtype.FlagRecordMetaInfo | rtype.FlagOptional,
		},
		{
			Name:    "modificationTimestamp",
			Kind:    rtype.KindScalar,
			Value:   rtype.TypeDatetime,
			Storage: rtype.StorageInlineColumn,
			Flags:   rtype.FlagRecordMetaInfo,
		},
		{
			Name:    "modificationActor",
			Kind:    rtype.KindScalar,
			Value:   rtype.TypeString,
			Storage: rtype.StorageInlineColumn,
			Flags:   rtype.FlagRecordMetaInfo | rtype.FlagOptional,
		},
	}
}

// Info returns the MetaInfo mapping that pairs with Properties(), ready
// to assign to a RecordType that embeds the mixin unmodified.
func Info() *rtype.MetaInfo {
	return &rtype.MetaInfo{
		VersionProperty:               "version",
		CreationTimestampProperty:     "creationTimestamp",
		CreationActorProperty:         "creationActor",
		ModificationTimestampProperty: "modificationTimestamp",
		ModificationActorProperty:     "modificationActor",
	}
}

// Apply appends the mixin's properties onto container and returns the
// MetaInfo mapping, for the common case of building a RecordType inline.
func Apply(container *rtype.Container) *rtype.MetaInfo {
	container.Properties = append(container.Properties, Properties()...)
	return Info()
}
