package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/relkit/relkit/dialect"
)

func TestStringLiteralDoublesQuotesOnly(t *testing.T) {
	d := New()
	require.Equal(t, `'it''s'`, d.StringLiteral("it's"))
	require.Equal(t, `'back\slash'`, d.StringLiteral(`back\slash`))
}

func TestMakeSelectWithLocksEmitsBothClausesWhenMixed(t *testing.T) {
	d := New()
	out := d.MakeSelectWithLocks("SELECT 1", []string{"t0"}, []string{"t1"})
	require.Equal(t, "SELECT 1 FOR UPDATE OF t0 FOR SHARE OF t1", out)
}

func TestMakeSelectWithLocksNoLocksIsNoop(t *testing.T) {
	d := New()
	require.Equal(t, "SELECT 1", d.MakeSelectWithLocks("SELECT 1", nil, nil))
}

func TestMakeSelectIntoTempTableUsesNativeTempTable(t *testing.T) {
	d := New()
	pre, post := d.MakeSelectIntoTempTable("SELECT id FROM accounts", "q_accounts")
	require.Equal(t, []string{"CREATE TEMP TABLE q_accounts AS SELECT id FROM accounts"}, pre)
	require.Equal(t, []string{"DROP TABLE q_accounts"}, post)
}

func TestDriverSatisfiesDialectInterface(t *testing.T) {
	var _ dialect.Driver = New()
}

func TestExecuteInsertAppendsReturningAndScansGeneratedId(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO accounts \\(name\\) VALUES \\(\\$1\\) RETURNING id").
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	d := New()
	n, id, err := d.ExecuteInsert(context.Background(), db, "INSERT INTO accounts (name) VALUES ($1)", []any{"acme"}, "id", dialect.StmtHandlers{})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	require.EqualValues(t, 7, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteInsertWithoutGeneratedColumnSkipsReturning(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO accounts \\(name\\) VALUES \\(\\$1\\)").
		WithArgs("acme").
		WillReturnResult(sqlmock.NewResult(0, 1))

	d := New()
	n, id, err := d.ExecuteInsert(context.Background(), db, "INSERT INTO accounts (name) VALUES ($1)", []any{"acme"}, "", dialect.StmtHandlers{})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	require.Nil(t, id)
	require.NoError(t, mock.ExpectationsWereMet())
}
