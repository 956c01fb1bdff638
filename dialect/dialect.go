// Package dialect declares the database driver interface this engine
// consumes (§6): connection lifecycle, transaction lifecycle,
// statement execution, anchor-table support, and the value/dialect
// helpers planners call through rather than hand-rolling SQL syntax
// differences. Concrete backends live in dialect/mysql,
// dialect/postgres, dialect/sqlite. Grounded on the teacher's
// dialect/sql.Driver + dialect.Driver boundary (dialect/doc.go,
// dialect/sql/driver.go), generalized from a *sql.DB wrapper exposing
// Exec/Query to this engine's richer planner-facing operation set.
package dialect

import (
	"context"
	"database/sql"
)

// Dialect names, matching the teacher's dialect name constants.
const (
	MySQL    = "mysql"
	Postgres = "postgres"
	SQLite   = "sqlite3"
)

// ConnHandlers are invoked around connect/release (§6 connect,
// releaseConnection).
type ConnHandlers struct {
	OnSuccess func()
	OnError   func(error)
}

// StmtHandlers are invoked around a single statement's execution.
type StmtHandlers struct {
	Trace     func(sql string, args []any)
	OnSuccess func()
	OnError   func(error)
}

// Driver is the database driver abstraction the engine plans against.
// One Driver instance is bound to one data source; connections are
// leased per execution context.
type Driver interface {
	Dialect() string

	Connect(ctx context.Context, source string, h ConnHandlers) (*sql.DB, error)
	ReleaseConnection(source string, conn *sql.DB, err error)

	StartTransaction(ctx context.Context, conn *sql.DB) (*sql.Tx, error)
	CommitTransaction(tx *sql.Tx) error
	RollbackTransaction(tx *sql.Tx) error

	ExecuteQuery(ctx context.Context, q Querier, sqlText string, args []any, h StmtHandlers) (*sql.Rows, error)
	ExecuteUpdate(ctx context.Context, q Querier, sqlText string, args []any, h StmtHandlers) (int64, error)
	ExecuteInsert(ctx context.Context, q Querier, sqlText string, args []any, generatedIDColumn string, h StmtHandlers) (int64, any, error)

	SelectIntoAnchorTable(ctx context.Context, q Querier, anchor, topTable, idColumn, idExpr, selectStump string, h StmtHandlers) error

	MakeRangedSelect(sqlText string, offset, limit int) string
	MakeSelectWithLocks(sqlText string, exclusiveTables, sharedTables []string) string
	MakeSelectIntoTempTable(selectQuery, anchor string) (preStmts, postStmts []string)

	SQL(v any) (string, error)
	StringLiteral(s string) string
	BooleanLiteral(b bool) string
	SafeLabel(markup string) string

	BuildDeleteWithJoins(table, alias string, joins []JoinClause, whereExpr string, whereNeedsParen bool) string
	BuildUpdateWithJoins(table, alias string, sets []string, joins []JoinClause, whereExpr string, whereNeedsParen bool) string
}

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// JoinClause is one join fragment used by buildDeleteWithJoins and
// buildUpdateWithJoins to render a multi-table DELETE/UPDATE.
type JoinClause struct {
	Kind      string // "JOIN" | "LEFT OUTER JOIN"
	Table     string
	Alias     string
	Condition string
}
