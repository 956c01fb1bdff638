// Package mysql implements dialect.Driver for MySQL/MariaDB, grounded
// on the teacher's github.com/go-sql-driver/mysql wiring
// (dialect/sql/driver.go's Open(dialect, source) convention) and its
// MySQL-specific error-number handling (dialect/sql/sqlgraph/errors.go),
// whose counterpart lives in the root package's Is*ConstraintError
// helpers; this package does not call them.
package mysql

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"github.com/relkit/relkit/dialect"
)

// Driver is the MySQL dialect.Driver. MySQL has no native temp-table
// "SELECT INTO"; anchor tables are staged as a real temporary table
// created by CREATE TEMPORARY TABLE ... AS SELECT (§6 "precise
// temp-table syntax... left to the driver abstraction").
type Driver struct {
	dialect.Base
}

// New returns a MySQL driver.
func New() *Driver {
	return &Driver{Base: dialect.Base{DialectName: dialect.MySQL}}
}

func (d *Driver) ExecuteInsert(ctx context.Context, q dialect.Querier, sqlText string, args []any, generatedIDColumn string, h dialect.StmtHandlers) (int64, any, error) {
	if h.Trace != nil {
		h.Trace(sqlText, args)
	}
	res, err := q.ExecContext(ctx, sqlText, args...)
	if err != nil {
		if h.OnError != nil {
			h.OnError(err)
		}
		return 0, nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil, err
	}
	var id any
	if generatedIDColumn != "" {
		lid, err := res.LastInsertId()
		if err == nil {
			id = lid
		}
	}
	if h.OnSuccess != nil {
		h.OnSuccess()
	}
	return n, id, nil
}

// StringLiteral escapes both embedded single quotes and backslashes,
// matching MySQL's default (non-NO_BACKSLASH_ESCAPES) string syntax.
func (d *Driver) StringLiteral(s string) string {
	if !strings.ContainsAny(s, `'\`) {
		return "'" + s + "'"
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", "''")
	return "'" + s + "'"
}

func (d *Driver) SQL(v any) (string, error) {
	if s, ok := v.(string); ok {
		return d.StringLiteral(s), nil
	}
	return d.Base.SQL(v)
}

// MakeSelectWithLocks appends MySQL's FOR UPDATE/LOCK IN SHARE MODE
// clause; MySQL does not support per-table lock-strength mixing in one
// statement, so an exclusive request on any table promotes the whole
// statement to FOR UPDATE.
func (d *Driver) MakeSelectWithLocks(sqlText string, exclusiveTables, sharedTables []string) string {
	if len(exclusiveTables) > 0 {
		return sqlText + " FOR UPDATE"
	}
	if len(sharedTables) > 0 {
		return sqlText + " LOCK IN SHARE MODE"
	}
	return sqlText
}

// MakeSelectIntoTempTable stages a MySQL TEMPORARY TABLE since MySQL
// lacks "SELECT ... INTO" (that syntax is a stored-procedure variable
// assignment in MySQL, not a table-creation statement).
func (d *Driver) MakeSelectIntoTempTable(selectQuery, anchor string) (pre, post []string) {
	pre = []string{
		fmt.Sprintf("CREATE TEMPORARY TABLE %s AS %s", anchor, selectQuery),
	}
	post = []string{fmt.Sprintf("DROP TEMPORARY TABLE %s", anchor)}
	return pre, post
}

func (d *Driver) SelectIntoAnchorTable(ctx context.Context, q dialect.Querier, anchor, topTable, idColumn, idExpr, selectStump string, h dialect.StmtHandlers) error {
	sqlText := fmt.Sprintf(
		"CREATE TEMPORARY TABLE %s AS SELECT %s AS id, (@rownum := @rownum + 1) AS ord FROM %s, (SELECT @rownum := 0) r %s",
		anchor, idExpr, topTable, selectStump,
	)
	if h.Trace != nil {
		h.Trace(sqlText, nil)
	}
	if _, err := q.ExecContext(ctx, sqlText); err != nil {
		if h.OnError != nil {
			h.OnError(err)
		}
		return err
	}
	if h.OnSuccess != nil {
		h.OnSuccess()
	}
	return nil
}

var _ dialect.Driver = (*Driver)(nil)
