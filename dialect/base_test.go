package dialect

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestBaseExecuteUpdateReportsRowsAffected(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE accounts SET name = \\?").
		WithArgs("acme").
		WillReturnResult(sqlmock.NewResult(0, 1))

	b := &Base{DialectName: "mock"}
	n, err := b.ExecuteUpdate(context.Background(), db, "UPDATE accounts SET name = ?", []any{"acme"}, StmtHandlers{})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseExecuteQueryStreamsRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "name"}).AddRow("acc-1", "Acme")
	mock.ExpectQuery("SELECT id, name FROM accounts").WillReturnRows(rows)

	b := &Base{DialectName: "mock"}
	res, err := b.ExecuteQuery(context.Background(), db, "SELECT id, name FROM accounts", nil, StmtHandlers{})
	require.NoError(t, err)
	defer res.Close()
	require.True(t, res.Next())
	var id, name string
	require.NoError(t, res.Scan(&id, &name))
	require.Equal(t, "acc-1", id)
	require.Equal(t, "Acme", name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseExecuteInsertReadsLastInsertId(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO accounts").
		WillReturnResult(sqlmock.NewResult(42, 1))

	b := &Base{DialectName: "mock"}
	n, id, err := b.ExecuteInsert(context.Background(), db, "INSERT INTO accounts (name) VALUES (?)", []any{"acme"}, "id", StmtHandlers{})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	require.EqualValues(t, 42, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseExecuteUpdateInvokesErrorHandler(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM accounts").WillReturnError(sqlmockErr{})

	b := &Base{DialectName: "mock"}
	var gotErr error
	_, err = b.ExecuteUpdate(context.Background(), db, "DELETE FROM accounts", nil, StmtHandlers{
		OnError: func(e error) { gotErr = e },
	})
	require.Error(t, err)
	require.Error(t, gotErr)
}

func TestBaseSQLLiteralRendering(t *testing.T) {
	b := &Base{}
	s, err := b.SQL("it's")
	require.NoError(t, err)
	require.Equal(t, "'it''s'", s)

	n, err := b.SQL(42)
	require.NoError(t, err)
	require.Equal(t, "42", n)

	nullLit, err := b.SQL(nil)
	require.NoError(t, err)
	require.Equal(t, "NULL", nullLit)

	_, err = b.SQL(struct{}{})
	require.Error(t, err)
}

func TestBaseMakeRangedSelectAppendsLimitOffset(t *testing.T) {
	b := &Base{}
	require.Equal(t, "SELECT * FROM t LIMIT 10 OFFSET 5", b.MakeRangedSelect("SELECT * FROM t", 5, 10))
}

func TestBaseBuildDeleteWithJoins(t *testing.T) {
	b := &Base{}
	sql := b.BuildDeleteWithJoins("orders", "t0", []JoinClause{
		{Kind: "JOIN", Table: "accounts", Alias: "t1", Condition: "t1.id = t0.account_id"},
	}, "t1.status = 'closed'", false)
	require.Equal(t, "DELETE t0 FROM orders AS t0 JOIN accounts AS t1 ON t1.id = t0.account_id WHERE t1.status = 'closed'", sql)
}

type sqlmockErr struct{}

func (sqlmockErr) Error() string { return "boom" }
