// Package postgres implements dialect.Driver for PostgreSQL, grounded
// on the teacher's github.com/lib/pq wiring (dialect/sql/driver.go's
// Open(dialect, source) convention) and PostgreSQL's native RETURNING
// clause and CREATE TEMP TABLE ... AS temp-table syntax.
package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"

	"github.com/relkit/relkit/dialect"
)

// Driver is the PostgreSQL dialect.Driver.
type Driver struct {
	dialect.Base
}

// New returns a PostgreSQL driver.
func New() *Driver {
	return &Driver{Base: dialect.Base{DialectName: dialect.Postgres}}
}

// ExecuteInsert appends RETURNING <col> to read back the generated id,
// since lib/pq does not implement sql.Result.LastInsertId.
func (d *Driver) ExecuteInsert(ctx context.Context, q dialect.Querier, sqlText string, args []any, generatedIDColumn string, h dialect.StmtHandlers) (int64, any, error) {
	if generatedIDColumn == "" {
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
		if h.OnSuccess != nil {
			h.OnSuccess()
		}
		return n, nil, err
	}
	returning := sqlText
	if !strings.Contains(strings.ToUpper(sqlText), "RETURNING") {
		returning = fmt.Sprintf("%s RETURNING %s", sqlText, generatedIDColumn)
	}
	if h.Trace != nil {
		h.Trace(returning, args)
	}
	rows, err := q.QueryContext(ctx, returning, args...)
	if err != nil {
		if h.OnError != nil {
			h.OnError(err)
		}
		return 0, nil, err
	}
	defer rows.Close()
	var id any
	n := int64(0)
	for rows.Next() {
		if err := rows.Scan(&id); err != nil {
			return 0, nil, err
		}
		n++
	}
	if h.OnSuccess != nil {
		h.OnSuccess()
	}
	return n, id, nil
}

// StringLiteral doubles embedded single quotes; PostgreSQL treats
// backslashes literally in standard_conforming_strings mode (the
// default since PG 9.1), so unlike MySQL no backslash escaping is
// applied here.
func (d *Driver) StringLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (d *Driver) SQL(v any) (string, error) {
	if s, ok := v.(string); ok {
		return d.StringLiteral(s), nil
	}
	return d.Base.SQL(v)
}

// MakeRangedSelect uses Postgres's LIMIT/OFFSET, identical to the base
// implementation; kept explicit since Postgres also accepts "FETCH
// FIRST n ROWS ONLY" and a future dialect option may prefer it.
func (d *Driver) MakeRangedSelect(sqlText string, offset, limit int) string {
	return sqlText + " LIMIT " + strconv.Itoa(limit) + " OFFSET " + strconv.Itoa(offset)
}

// MakeSelectWithLocks appends FOR UPDATE/FOR SHARE; Postgres (unlike
// MySQL) supports OF <alias> qualification so exclusive and shared
// tables can be expressed precisely in one statement when both sets
// are non-empty by emitting two clauses.
func (d *Driver) MakeSelectWithLocks(sqlText string, exclusiveTables, sharedTables []string) string {
	out := sqlText
	if len(exclusiveTables) > 0 {
		out += " FOR UPDATE OF " + strings.Join(exclusiveTables, ", ")
	}
	if len(sharedTables) > 0 {
		out += " FOR SHARE OF " + strings.Join(sharedTables, ", ")
	}
	return out
}

// MakeSelectIntoTempTable uses Postgres's native CREATE TEMP TABLE AS.
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

var _ dialect.Driver = (*Driver)(nil)
