// Package sqlite implements dialect.Driver for SQLite, grounded on the
// teacher's modernc.org/sqlite wiring (a pure-Go driver, matching the
// teacher's preference for CGo-free dependencies in dialect/sql). Used
// by tests that want a real (file or :memory:) database instead of
// sqlmock, and as the lightweight default for examples.
package sqlite

import (
	"context"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/relkit/relkit/dialect"
)

// Driver is the SQLite dialect.Driver.
type Driver struct {
	dialect.Base
}

// New returns a SQLite driver.
func New() *Driver {
	return &Driver{Base: dialect.Base{DialectName: dialect.SQLite}}
}

// MakeSelectWithLocks is a no-op: SQLite serializes writers at the
// database-file level and has no row/table lock clause syntax.
func (d *Driver) MakeSelectWithLocks(sqlText string, exclusiveTables, sharedTables []string) string {
	return sqlText
}

// MakeSelectIntoTempTable uses SQLite's CREATE TEMP TABLE ... AS.
func (d *Driver) MakeSelectIntoTempTable(selectQuery, anchor string) (pre, post []string) {
	pre = []string{fmt.Sprintf("CREATE TEMP TABLE %s AS %s", anchor, selectQuery)}
	post = []string{fmt.Sprintf("DROP TABLE %s", anchor)}
	return pre, post
}

func (d *Driver) SelectIntoAnchorTable(ctx context.Context, q dialect.Querier, anchor, topTable, idColumn, idExpr, selectStump string, h dialect.StmtHandlers) error {
	sqlText := fmt.Sprintf(
		"CREATE TEMP TABLE %s AS SELECT %s AS id, row_number() OVER () AS ord FROM %s %s",
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

func (d *Driver) StringLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

var _ dialect.Driver = (*Driver)(nil)
