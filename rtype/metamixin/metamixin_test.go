package metamixin

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relkit/relkit/rtype"
)

func TestPropertiesIncludesAllFiveMetaFields(t *testing.T) {
	props := Properties()
	require.Len(t, props, 5)
	names := make(map[string]bool, len(props))
	for _, p := range props {
		names[p.Name] = true
		require.True(t, p.Flags.Has(rtype.FlagRecordMetaInfo))
	}
	for _, want := range []string{"version", "creationTimestamp", "creationActor", "modificationTimestamp", "modificationActor"} {
		require.True(t, names[want], want)
	}
}

func TestInfoMatchesPropertyNames(t *testing.T) {
	info := Info()
	require.Equal(t, "version", info.VersionProperty)
	require.Equal(t, "creationTimestamp", info.CreationTimestampProperty)
	require.Equal(t, "creationActor", info.CreationActorProperty)
	require.Equal(t, "modificationTimestamp", info.ModificationTimestampProperty)
	require.Equal(t, "modificationActor", info.ModificationActorProperty)
	require.True(t, info.HasVersion())
}

func TestApplyAppendsPropertiesAndReturnsInfo(t *testing.T) {
	c := &rtype.Container{Properties: []*rtype.Property{
		{Name: "id", Flags: rtype.FlagID},
	}}
	info := Apply(c)
	require.Len(t, c.Properties, 6)
	require.Equal(t, "version", info.VersionProperty)
	_, ok := c.Property("version")
	require.True(t, ok)
}
