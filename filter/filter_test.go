// Grounded on the teacher's sql/predicate_test.go table-driven style:
// one test function per operator family, asserting the compiled tree
// shape rather than any SQL string (SQL rendering is sqlassemble's job).
package filter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildFilterSimpleEq(t *testing.T) {
	term, err := BuildFilter([]any{"name", "acme"})
	require.NoError(t, err)
	st, ok := term.(*SingleTest)
	require.True(t, ok)
	require.Equal(t, "name", st.Path)
	require.Equal(t, OpEq, st.Op)
	require.False(t, st.Inverted)
	require.Equal(t, []any{"acme"}, st.Parameters)
}

func TestBuildFilterAliasOperators(t *testing.T) {
	single := map[string]TestOp{
		"age|min": OpGe, "age|max": OpLe,
		"name|sub": OpContainsI, "name|pre": OpPrefixI, "name|re": OpMatchesI,
	}
	for head, want := range single {
		term, err := BuildFilter([]any{head, "x"})
		require.NoError(t, err, head)
		st := term.(*SingleTest)
		require.Equal(t, want, st.Op, head)
	}

	term, err := BuildFilter([]any{"age|rng", 1, 2})
	require.NoError(t, err)
	require.Equal(t, OpBetween, term.(*SingleTest).Op)
}

func TestBuildFilterInvertedAlias(t *testing.T) {
	term, err := BuildFilter([]any{"status|!eq", "closed"})
	require.NoError(t, err)
	st := term.(*SingleTest)
	require.Equal(t, OpNe, st.Op)
	require.False(t, st.Inverted)
}

func TestBuildFilterBangPrefixNegatesUnknownBase(t *testing.T) {
	term, err := BuildFilter([]any{"status|!contains", "x"})
	require.NoError(t, err)
	st := term.(*SingleTest)
	require.Equal(t, OpContains, st.Op)
	require.True(t, st.Inverted)
}

func TestBuildFilterUnknownOperator(t *testing.T) {
	_, err := BuildFilter([]any{"name|bogus", "x"})
	require.Error(t, err)
}

func TestBuildFilterValueFunc(t *testing.T) {
	term, err := BuildFilter([]any{"name|lower|eq", "acme"})
	require.NoError(t, err)
	st := term.(*SingleTest)
	require.Equal(t, "name", st.Path)
	require.EqualValues(t, "lower", st.ValueFunc)
	require.Equal(t, OpEq, st.Op)
}

func TestBuildFilterArityScalarOp(t *testing.T) {
	_, err := BuildFilter([]any{"age|ge", 1, 2})
	require.Error(t, err)
}

func TestBuildFilterArityBetweenAcceptsTwoScalarsOrList(t *testing.T) {
	_, err := BuildFilter([]any{"age|between", 1, 2})
	require.NoError(t, err)

	_, err = BuildFilter([]any{"age|between", []any{1, 2}})
	require.NoError(t, err)

	_, err = BuildFilter([]any{"age|between", 1})
	require.Error(t, err)
}

func TestBuildFilterArityInRejectsEmptyAndNull(t *testing.T) {
	_, err := BuildFilter([]any{"tag|in"})
	require.Error(t, err)

	_, err = BuildFilter([]any{"tag|in", nil})
	require.Error(t, err)

	term, err := BuildFilter([]any{"tag|in", []any{"a", "b"}})
	require.NoError(t, err)
	st := term.(*SingleTest)
	require.Equal(t, []any{"a", "b"}, Flatten(st.Parameters))
}

func TestBuildFilterEmptyOpTakesNoArgsAndYieldsCollectionTest(t *testing.T) {
	term, err := BuildFilter([]any{"tags|empty"})
	require.NoError(t, err)
	ct, ok := term.(*CollectionTest)
	require.True(t, ok)
	require.Equal(t, "tags", ct.Path)

	_, err = BuildFilter([]any{"tags|empty", "x"})
	require.Error(t, err)
}

func TestBuildFilterEmptyOpAcceptsSubFilter(t *testing.T) {
	term, err := BuildFilter([]any{"items|empty", []any{"sku|eq", "X1"}})
	require.NoError(t, err)
	ct, ok := term.(*CollectionTest)
	require.True(t, ok)
	require.Equal(t, "items", ct.Path)
	require.NotNil(t, ct.SubFilter)
	sub, ok := ct.SubFilter.(*SingleTest)
	require.True(t, ok)
	require.Equal(t, "sku", sub.Path)
}

func TestBuildFilterExplicitJunction(t *testing.T) {
	term, err := BuildFilter([]any{":and", []any{"a", 1}, []any{"b", 2}})
	require.NoError(t, err)
	j, ok := term.(*Junction)
	require.True(t, ok)
	require.Equal(t, And, j.Kind)
	require.Len(t, j.Children, 2)
}

func TestBuildFilterNoneIsInvertedOr(t *testing.T) {
	term, err := BuildFilter([]any{":none", []any{"a", 1}, []any{"b", 2}})
	require.NoError(t, err)
	j := term.(*Junction)
	require.Equal(t, Or, j.Kind)
	require.True(t, j.Inverted)
}

func TestBuildFilterImplicitSiblingArraysAreAnded(t *testing.T) {
	term, err := BuildFilter([]any{[]any{"a", 1}, []any{"b", 2}})
	require.NoError(t, err)
	j, ok := term.(*Junction)
	require.True(t, ok)
	require.Equal(t, And, j.Kind)
	require.Len(t, j.Children, 2)
}

func TestBuildFilterEmptySpecIsNil(t *testing.T) {
	term, err := BuildFilter(nil)
	require.NoError(t, err)
	require.Nil(t, term)
}

func TestBuildOrderAscDesc(t *testing.T) {
	orders, err := BuildOrder("", []any{"name", "age|desc"})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	require.False(t, orders[0].Desc)
	require.True(t, orders[1].Desc)
}

func TestBuildOrderInvalidDirection(t *testing.T) {
	_, err := BuildOrder("", []any{"name|sideways"})
	require.Error(t, err)
}

func TestBuildRangeValid(t *testing.T) {
	r, err := BuildRange([]any{0, 20})
	require.NoError(t, err)
	require.Equal(t, 0, r.Offset)
	require.Equal(t, 20, r.Limit)
}

func TestBuildRangeNilIsNil(t *testing.T) {
	r, err := BuildRange(nil)
	require.NoError(t, err)
	require.Nil(t, r)
}

func TestBuildRangeRejectsNegative(t *testing.T) {
	_, err := BuildRange([]any{-1, 10})
	require.Error(t, err)
}

func TestBuildRangeRejectsWrongArity(t *testing.T) {
	_, err := BuildRange([]any{0, 10, 20})
	require.Error(t, err)
}
