package predicate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringFieldBuildsSpecLeaves(t *testing.T) {
	f := StringField("name")
	require.Equal(t, Spec{"name|eq", "Acme"}, f.EQ("Acme"))
	require.Equal(t, Spec{"name|ne", "Acme"}, f.NEQ("Acme"))
	require.Equal(t, Spec{"name|in", []any{"a", "b"}}, f.In("a", "b"))
	require.Equal(t, Spec{"name|containsi", "cme"}, f.ContainsFold("cme"))
	require.Equal(t, Spec{"name|empty"}, f.Empty())
	require.Equal(t, Spec{"!name|empty"}, f.NotEmpty())
}

func TestIntFieldBuildsSpecLeaves(t *testing.T) {
	f := IntField("age")
	require.Equal(t, Spec{"age|ge", int64(18)}, f.GTE(18))
	require.Equal(t, Spec{"age|between", int64(1), int64(5)}, f.Between(1, 5))
	require.Equal(t, Spec{"age|in", []any{int64(1), int64(2)}}, f.In(1, 2))
}

func TestRefFieldBuildsSpecLeaves(t *testing.T) {
	f := RefField("owner")
	require.Equal(t, Spec{"owner|eq", "Person#p1"}, f.EQ("Person#p1"))
	require.Equal(t, Spec{"owner|in", []any{"Person#p1", "Person#p2"}}, f.In("Person#p1", "Person#p2"))
}

func TestAndOrComposeJunctionSpecs(t *testing.T) {
	a := StringField("status").EQ("open")
	b := IntField("priority").GT(3)
	require.Equal(t, Spec{":and", a, b}, And(a, b))
	require.Equal(t, Spec{":or", a, b}, Or(a, b))
	require.Equal(t, Spec{":none", a}, Not(a))
}
