package rtype

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestIsScalarColumnExcludesObjectValues covers §4.2: a TypeObject
// property is inline-stored but owns a nested container that must be
// expanded column-by-column, so it is not itself a "fetchable by
// default" scalar column.
func TestIsScalarColumnExcludesObjectValues(t *testing.T) {
	scalar := &Property{Kind: KindScalar, Value: TypeString, Storage: StorageInlineColumn}
	require.True(t, scalar.IsScalarColumn())

	object := &Property{Kind: KindScalar, Value: TypeObject, Storage: StorageInlineColumn, Object: &Container{}}
	require.False(t, object.IsScalarColumn())
}

func TestIsScalarColumnExcludesNonInlineStorage(t *testing.T) {
	childTable := &Property{Kind: KindArray, Value: TypeObject, Storage: StorageChildTable}
	require.False(t, childTable.IsScalarColumn())

	calculated := &Property{Kind: KindScalar, Value: TypeString, Storage: StorageCalculated}
	require.False(t, calculated.IsScalarColumn())
}
