package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Base implements the mechanical, dialect-independent parts of Driver
// (connection lifecycle, statement execution, generic SQL(v)) so
// concrete dialects only need to override syntax that actually
// differs: anchor-table creation, lock clauses, ranged selects, and
// literal quoting. Grounded on the teacher's dialect/sql.Conn
// Exec/Query wrapper (dialect/sql/driver.go), generalized to this
// engine's richer per-operation handler set.
type Base struct {
	DialectName string
}

func (b *Base) Dialect() string { return b.DialectName }

func (b *Base) Connect(ctx context.Context, source string, h ConnHandlers) (*sql.DB, error) {
	db, err := sql.Open(b.DialectName, source)
	if err != nil {
		if h.OnError != nil {
			h.OnError(err)
		}
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		if h.OnError != nil {
			h.OnError(err)
		}
		return nil, err
	}
	if h.OnSuccess != nil {
		h.OnSuccess()
	}
	return db, nil
}

func (b *Base) ReleaseConnection(source string, conn *sql.DB, err error) {
	// Connection pooling is owned by database/sql; nothing to release
	// eagerly per call. Present for interface symmetry with the
	// consumed driver contract (§6 releaseConnection).
}

func (b *Base) StartTransaction(ctx context.Context, conn *sql.DB) (*sql.Tx, error) {
	return conn.BeginTx(ctx, nil)
}

func (b *Base) CommitTransaction(tx *sql.Tx) error   { return tx.Commit() }
func (b *Base) RollbackTransaction(tx *sql.Tx) error { return tx.Rollback() }

func (b *Base) ExecuteQuery(ctx context.Context, q Querier, sqlText string, args []any, h StmtHandlers) (*sql.Rows, error) {
	if h.Trace != nil {
		h.Trace(sqlText, args)
	}
	rows, err := q.QueryContext(ctx, sqlText, args...)
	if err != nil {
		if h.OnError != nil {
			h.OnError(err)
		}
		return nil, err
	}
	if h.OnSuccess != nil {
		h.OnSuccess()
	}
	return rows, nil
}

func (b *Base) ExecuteUpdate(ctx context.Context, q Querier, sqlText string, args []any, h StmtHandlers) (int64, error) {
	if h.Trace != nil {
		h.Trace(sqlText, args)
	}
	res, err := q.ExecContext(ctx, sqlText, args...)
	if err != nil {
		if h.OnError != nil {
			h.OnError(err)
		}
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if h.OnSuccess != nil {
		h.OnSuccess()
	}
	return n, nil
}

func (b *Base) ExecuteInsert(ctx context.Context, q Querier, sqlText string, args []any, generatedIDColumn string, h StmtHandlers) (int64, any, error) {
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

// SQL renders a generic Go value as a literal using database/sql-style
// formatting; dialects override StringLiteral/BooleanLiteral for their
// own quoting rules and call SQL for the remaining scalar types.
func (b *Base) SQL(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "NULL", nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case string:
		return b.StringLiteral(t), nil
	case bool:
		return b.BooleanLiteral(t), nil
	case time.Time:
		return b.StringLiteral(t.UTC().Format("2006-01-02T15:04:05.000Z")), nil
	default:
		return "", fmt.Errorf("relkit/dialect: unsupported literal type %T", v)
	}
}

// StringLiteral default-quotes a string by doubling embedded single
// quotes; MySQL additionally escapes backslashes (overridden there).
func (b *Base) StringLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (b *Base) BooleanLiteral(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

func (b *Base) SafeLabel(markup string) string {
	return `"` + strings.ReplaceAll(markup, `"`, `""`) + `"`
}

func (b *Base) BuildDeleteWithJoins(table, alias string, joins []JoinClause, whereExpr string, whereNeedsParen bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "DELETE %s FROM %s AS %s", alias, table, alias)
	for _, j := range joins {
		fmt.Fprintf(&sb, " %s %s AS %s ON %s", j.Kind, j.Table, j.Alias, j.Condition)
	}
	if whereExpr != "" {
		sb.WriteString(" WHERE ")
		if whereNeedsParen {
			sb.WriteString("(" + whereExpr + ")")
		} else {
			sb.WriteString(whereExpr)
		}
	}
	return sb.String()
}

func (b *Base) BuildUpdateWithJoins(table, alias string, sets []string, joins []JoinClause, whereExpr string, whereNeedsParen bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "UPDATE %s AS %s", table, alias)
	for _, j := range joins {
		fmt.Fprintf(&sb, " %s %s AS %s ON %s", j.Kind, j.Table, j.Alias, j.Condition)
	}
	sb.WriteString(" SET ")
	sb.WriteString(strings.Join(sets, ", "))
	if whereExpr != "" {
		sb.WriteString(" WHERE ")
		if whereNeedsParen {
			sb.WriteString("(" + whereExpr + ")")
		} else {
			sb.WriteString(whereExpr)
		}
	}
	return sb.String()
}

func (b *Base) MakeRangedSelect(sqlText string, offset, limit int) string {
	return fmt.Sprintf("%s LIMIT %d OFFSET %d", sqlText, limit, offset)
}
