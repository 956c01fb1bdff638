package mysql

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relkit/relkit/dialect"
)

func TestStringLiteralEscapesBackslashAndQuote(t *testing.T) {
	d := New()
	require.Equal(t, `'plain'`, d.StringLiteral("plain"))
	require.Equal(t, `'it''s'`, d.StringLiteral("it's"))
	require.Equal(t, `'back\\slash'`, d.StringLiteral(`back\slash`))
}

func TestMakeSelectWithLocksPromotesToForUpdate(t *testing.T) {
	d := New()
	require.Equal(t, "SELECT 1 FOR UPDATE", d.MakeSelectWithLocks("SELECT 1", []string{"t0"}, []string{"t1"}))
	require.Equal(t, "SELECT 1 LOCK IN SHARE MODE", d.MakeSelectWithLocks("SELECT 1", nil, []string{"t1"}))
	require.Equal(t, "SELECT 1", d.MakeSelectWithLocks("SELECT 1", nil, nil))
}

func TestMakeSelectIntoTempTableUsesTemporaryKeyword(t *testing.T) {
	d := New()
	pre, post := d.MakeSelectIntoTempTable("SELECT id FROM accounts", "q_accounts")
	require.Equal(t, []string{"CREATE TEMPORARY TABLE q_accounts AS SELECT id FROM accounts"}, pre)
	require.Equal(t, []string{"DROP TEMPORARY TABLE q_accounts"}, post)
}

func TestSQLDelegatesStringsToStringLiteral(t *testing.T) {
	d := New()
	s, err := d.SQL("it's")
	require.NoError(t, err)
	require.Equal(t, `'it''s'`, s)
}

func TestDriverSatisfiesDialectInterface(t *testing.T) {
	var _ dialect.Driver = New()
}
