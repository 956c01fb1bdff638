package rtfixture

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relkit/relkit/rtype"
)

const doc = `
recordTypes:
  - name: Account
    table: accounts
    id: id
    version: true
    properties:
      - name: id
        value: string
        id: true
      - name: name
        value: string
      - name: owner
        value: ref
        ref: Person
        optional: true
      - name: tags
        kind: array
        value: string
        storage: child
`

func TestLoadBuildsRecordTypeWithMetaInfo(t *testing.T) {
	types, err := Load([]byte(doc))
	require.NoError(t, err)
	rt, ok := types["Account"]
	require.True(t, ok)
	require.Equal(t, "accounts", rt.MainTable)
	require.Equal(t, "id", rt.IDProperty)
	require.True(t, rt.MetaInfo.HasVersion())

	idProp, ok := rt.Property("id")
	require.True(t, ok)
	require.True(t, idProp.IsID())

	ownerProp, ok := rt.Property("owner")
	require.True(t, ok)
	require.Equal(t, rtype.TypeRef, ownerProp.Value)
	require.Equal(t, "Person", ownerProp.RefType)
	require.True(t, ownerProp.Optional())

	tagsProp, ok := rt.Property("tags")
	require.True(t, ok)
	require.Equal(t, rtype.KindArray, tagsProp.Kind)
	require.Equal(t, rtype.StorageChildTable, tagsProp.Storage)
}

func TestLoadDefaultsTableNameWhenOmitted(t *testing.T) {
	types, err := Load([]byte(`
recordTypes:
  - name: Widget
    id: id
    properties:
      - name: id
        value: string
        id: true
`))
	require.NoError(t, err)
	require.NotEmpty(t, types["Widget"].MainTable)
}

func TestLoadRejectsUnknownKind(t *testing.T) {
	_, err := Load([]byte(`
recordTypes:
  - name: Bad
    id: id
    properties:
      - name: id
        kind: bogus
        value: string
`))
	require.Error(t, err)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	_, err := Load([]byte("not: [valid"))
	require.Error(t, err)
}
