package rtype

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ariga.io/atlas/sql/schema"
)

func accountType() *RecordType {
	return &RecordType{
		Name:       "Account",
		MainTable:  "accounts",
		IDProperty: "id",
		Container: &Container{Properties: []*Property{
			{Name: "id", Kind: KindScalar, Value: TypeString, Storage: StorageInlineColumn, Flags: FlagID},
			{Name: "name", Kind: KindScalar, Value: TypeString, Storage: StorageInlineColumn},
		}},
	}
}

func TestValidatePassesForWellFormedLibrary(t *testing.T) {
	lib := NewLibrary(accountType())
	require.NoError(t, lib.Validate())
}

func TestValidateRejectsMissingIDProperty(t *testing.T) {
	rt := accountType()
	rt.IDProperty = "missing"
	lib := NewLibrary(rt)
	require.Error(t, lib.Validate())
}

func TestValidateRejectsDanglingRefTarget(t *testing.T) {
	rt := accountType()
	rt.Container.Properties = append(rt.Container.Properties, &Property{
		Name: "owner", Value: TypeRef, Storage: StorageInlineColumn, RefType: "Nonexistent",
	})
	lib := NewLibrary(rt)
	require.Error(t, lib.Validate())
}

func TestValidateRejectsChildCollectionWithoutTable(t *testing.T) {
	rt := accountType()
	rt.Container.Properties = append(rt.Container.Properties, &Property{
		Name: "tags", Kind: KindArray, Value: TypeString, Storage: StorageChildTable,
	})
	lib := NewLibrary(rt)
	require.Error(t, lib.Validate())
}

func TestValidateAcceptsChildCollectionWithTable(t *testing.T) {
	rt := accountType()
	rt.Container.Properties = append(rt.Container.Properties, &Property{
		Name: "tags", Kind: KindArray, Value: TypeString, Storage: StorageChildTable,
		Table: &schema.Table{Name: "account_tags"},
	})
	lib := NewLibrary(rt)
	require.NoError(t, lib.Validate())
}

func TestValidateDetectsEntanglementCycle(t *testing.T) {
	a := &RecordType{
		Name: "A", MainTable: "a", IDProperty: "id",
		Container: &Container{Properties: []*Property{
			{Name: "id", Value: TypeString, Flags: FlagID},
			{Name: "b", Value: TypeRef, RefType: "B", Flags: FlagEntangled},
		}},
	}
	b := &RecordType{
		Name: "B", MainTable: "b", IDProperty: "id",
		Container: &Container{Properties: []*Property{
			{Name: "id", Value: TypeString, Flags: FlagID},
			{Name: "a", Value: TypeRef, RefType: "A", Flags: FlagEntangled},
		}},
	}
	lib := NewLibrary(a, b)
	require.Error(t, lib.Validate())
}

func TestValidateAllowsNonEntangledRefCycle(t *testing.T) {
	a := &RecordType{
		Name: "A", MainTable: "a", IDProperty: "id",
		Container: &Container{Properties: []*Property{
			{Name: "id", Value: TypeString, Flags: FlagID},
			{Name: "b", Value: TypeRef, RefType: "B"},
		}},
	}
	b := &RecordType{
		Name: "B", MainTable: "b", IDProperty: "id",
		Container: &Container{Properties: []*Property{
			{Name: "id", Value: TypeString, Flags: FlagID},
			{Name: "a", Value: TypeRef, RefType: "A"},
		}},
	}
	lib := NewLibrary(a, b)
	require.NoError(t, lib.Validate())
}

func TestRefToIdParsesStringId(t *testing.T) {
	lib := NewLibrary(accountType())
	id, err := lib.RefToId("Account", "Account#acc-1")
	require.NoError(t, err)
	require.Equal(t, "acc-1", id)
}

func TestRefToIdParsesNumericId(t *testing.T) {
	rt := accountType()
	rt.Container.Properties[0].Value = TypeNumber
	lib := NewLibrary(rt)
	id, err := lib.RefToId("Account", "Account#42")
	require.NoError(t, err)
	require.Equal(t, float64(42), id)
}

func TestRefToIdRejectsWrongPrefix(t *testing.T) {
	lib := NewLibrary(accountType())
	_, err := lib.RefToId("Account", "Other#1")
	require.Error(t, err)
}

func TestRefToIdRejectsNonNumericForNumberType(t *testing.T) {
	rt := accountType()
	rt.Container.Properties[0].Value = TypeNumber
	lib := NewLibrary(rt)
	_, err := lib.RefToId("Account", "Account#notanumber")
	require.Error(t, err)
}

func TestMustGetUnknownType(t *testing.T) {
	lib := NewLibrary(accountType())
	_, err := lib.MustGet("Bogus")
	require.Error(t, err)
}
