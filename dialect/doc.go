// Package dialect declares the database-driver abstraction the engine
// plans and executes against, plus the per-backend implementations the
// planner layer never needs to know apart from by name.
//
// # Supported dialects
//
//	dialect.MySQL    = "mysql"
//	dialect.Postgres = "postgres"
//	dialect.SQLite   = "sqlite3"
//
// # Driver interface
//
// A Driver owns connection/transaction lifecycle, statement execution,
// anchor-table population, and the handful of syntax differences a
// planner's static SQL template can't paper over (lock clauses, ranged
// selects, temp-table creation, literal quoting, multi-table
// DELETE/UPDATE joins):
//
//	type Driver interface {
//	    Dialect() string
//	    Connect(ctx context.Context, source string, h ConnHandlers) (*sql.DB, error)
//	    ReleaseConnection(source string, conn *sql.DB, err error)
//	    StartTransaction(ctx context.Context, conn *sql.DB) (*sql.Tx, error)
//	    CommitTransaction(tx *sql.Tx) error
//	    RollbackTransaction(tx *sql.Tx) error
//	    ExecuteQuery(ctx context.Context, q Querier, sqlText string, args []any, h StmtHandlers) (*sql.Rows, error)
//	    ExecuteUpdate(ctx context.Context, q Querier, sqlText string, args []any, h StmtHandlers) (int64, error)
//	    ExecuteInsert(ctx context.Context, q Querier, sqlText string, args []any, generatedIDColumn string, h StmtHandlers) (int64, any, error)
//	    SelectIntoAnchorTable(ctx context.Context, q Querier, anchor, topTable, idColumn, idExpr, selectStump string, h StmtHandlers) error
//	    MakeRangedSelect(sqlText string, offset, limit int) string
//	    MakeSelectWithLocks(sqlText string, exclusiveTables, sharedTables []string) string
//	    MakeSelectIntoTempTable(selectQuery, anchor string) (preStmts, postStmts []string)
//	    SQL(v any) (string, error)
//	    StringLiteral(s string) string
//	    BooleanLiteral(b bool) string
//	    SafeLabel(markup string) string
//	    BuildDeleteWithJoins(table, alias string, joins []JoinClause, whereExpr string, whereNeedsParen bool) string
//	    BuildUpdateWithJoins(table, alias string, sets []string, joins []JoinClause, whereExpr string, whereNeedsParen bool) string
//	}
//
// Base implements everything dialect-independent (connection lifecycle,
// generic statement execution, generic SQL(v) literal rendering) so a
// concrete backend only overrides what actually differs.
//
// # Sub-packages
//
//   - dialect/mysql: string literals with backslash and quote escaping,
//     FOR UPDATE / LOCK IN SHARE MODE, TEMPORARY TABLE,
//     LastInsertId-based generated ids.
//   - dialect/postgres: RETURNING-based generated ids, FOR UPDATE OF /
//     FOR SHARE OF, native TEMP TABLE, single-quote literal doubling
//     with backslashes left as-is.
//   - dialect/sqlite: no-op locking, TEMP TABLE, single-quote literal
//     doubling.
//
// StatsDriver and DebugDriver (stats.go) wrap any Driver with query
// statistics collection and structured debug logging, respectively —
// optional decorators, not hard-wired into the engine.
package dialect
