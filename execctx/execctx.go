// Package execctx implements the per-DBO-call execution context (§3
// Execution context, §4.9): connection/transaction, actor, execution
// timestamp, filter-parameter resolution, generated params, entangled
// updates, affected-rows accounting, and the operation result shape.
// Grounded on the teacher's ent.TxOptions / mutation-context plumbing
// (schema/ mixin hook context conventions), generalized to this
// engine's explicit, hand-written context rather than codegen'd fields.
package execctx

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/relkit/relkit"
	"github.com/relkit/relkit/filterparams"
	"github.com/relkit/relkit/txn"
)

// DatetimeLayout is the wire format for timestamps (§6): ISO-8601 with
// millisecond precision and trailing Z.
const DatetimeLayout = "2006-01-02T15:04:05.000Z"

// Literal renders a SQL literal for a dialect; dialect packages provide
// concrete implementations (quoting/escaping rules differ per backend).
type Literal interface {
	StringLiteral(s string) string
	BooleanLiteral(b bool) string
	SQL(v any) (string, error)
}

// Context is the per-execution mutable state threaded through a DBO's
// command chain.
type Context struct {
	Conn       any
	Tx         *txn.Handle
	Actor      *string
	ExecutedOn time.Time

	reg        *filterparams.Registry
	input      map[string]any
	generated  map[string]any
	genOrder   []string
	entangled  map[string]map[any]bool
	affected   map[string]int64
	dialect    Literal

	RollbackOnError bool
	WrapInTx        bool
}

// New builds an execution context. If tx is non-nil it must already be
// active (externally managed transactions are the caller's
// responsibility to start); otherwise statements run directly on conn.
// wrapInTx records that no handle was supplied; the context itself
// never starts, commits or rolls back a transaction.
func New(conn any, tx *txn.Handle, actor *string, reg *filterparams.Registry, input map[string]any, dialect Literal, wrapInTx bool) (*Context, error) {
	if tx != nil && tx.State() != txn.StateActive {
		return nil, relkit.NewUsageError("execctx.New", "supplied transaction handle is not active")
	}
	return &Context{
		Conn:            conn,
		Tx:              tx,
		Actor:           actor,
		ExecutedOn:      time.Now().UTC(),
		reg:             reg,
		input:           input,
		generated:       map[string]any{},
		entangled:       map[string]map[any]bool{},
		affected:        map[string]int64{},
		dialect:         dialect,
		WrapInTx:        wrapInTx,
		RollbackOnError: true,
	}, nil
}

// ResolveSQL substitutes `?{ref}` placeholders in tmpl (§4.6).
func (c *Context) ResolveSQL(tmpl string) (string, []any, error) {
	sql, err := filterparams.Substitute(tmpl, c.reg, c)
	return sql, nil, err
}

// ExecQuerier returns the active connection/transaction for driver
// calls; the transaction handle's raw driver tx when a handle is set,
// else Conn.
func (c *Context) ExecQuerier() any {
	if c.Tx != nil {
		return c.Tx.Raw()
	}
	return c.Conn
}

// RecordAffectedRows accumulates a statement's affected-row count.
func (c *Context) RecordAffectedRows(stmtID string, n int64) { c.affected[stmtID] += n }

// AffectedRows returns the accumulated count for a statement id.
func (c *Context) AffectedRows(stmtID string) int64 { return c.affected[stmtID] }

// RecordGeneratedID stores an id produced by an Insert command. It
// writes the same store as SetGenerated, so the id also feeds
// placeholders.
func (c *Context) RecordGeneratedID(path string, id any) { c.SetGenerated(path, id) }

// RecordEntangled marks ids of recordType as needing an entangled
// meta-info bump (§4.10 step 6).
func (c *Context) RecordEntangled(recordType string, ids []any) {
	set, ok := c.entangled[recordType]
	if !ok {
		set = map[any]bool{}
		c.entangled[recordType] = set
	}
	for _, id := range ids {
		set[id] = true
	}
}

// EntangledIDs returns the accumulated ids per entangled record type.
func (c *Context) EntangledIDs() map[string][]any {
	out := make(map[string][]any, len(c.entangled))
	for t, set := range c.entangled {
		ids := make([]any, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		out[t] = ids
	}
	return out
}

// GetGenerated looks up a generated parameter by property path.
func (c *Context) GetGenerated(path string) (any, bool) {
	v, ok := c.generated[path]
	return v, ok
}

// SetGenerated stores a generated parameter by property path.
func (c *Context) SetGenerated(path string, v any) {
	if _, exists := c.generated[path]; !exists {
		c.genOrder = append(c.genOrder, path)
	}
	c.generated[path] = v
}

// ClearGenerated drops all generated parameters.
func (c *Context) ClearGenerated() {
	c.generated = map[string]any{}
	c.genOrder = nil
}

// ResolveExecutedOn implements filterparams.Resolver.
func (c *Context) ResolveExecutedOn() (string, error) {
	return c.dialect.StringLiteral(c.ExecutedOn.Format(DatetimeLayout)), nil
}

// ResolveActor implements filterparams.Resolver.
func (c *Context) ResolveActor() (string, error) {
	if c.Actor == nil {
		return "NULL", nil
	}
	return c.dialect.StringLiteral(*c.Actor), nil
}

// ResolveInput implements filterparams.Resolver.
func (c *Context) ResolveInput(name string) (any, bool, error) {
	v, ok := c.input[name]
	return v, ok, nil
}

// ResolveGenerated implements filterparams.Resolver.
func (c *Context) ResolveGenerated(path string) (any, bool) { return c.GetGenerated(path) }

// Literal implements filterparams.Resolver, rendering v via the
// dialect's SQL literal rules.
func (c *Context) Literal(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return c.dialect.StringLiteral(t), nil
	case bool:
		return c.dialect.BooleanLiteral(t), nil
	case time.Time:
		return c.dialect.StringLiteral(t.UTC().Format(DatetimeLayout)), nil
	default:
		return c.dialect.SQL(v)
	}
}

// CacheDigest msgpack-encodes the currently supplied filter params for
// cache-key derivation, matching the teacher's cache package's use of
// msgpack for composite key material.
func (c *Context) CacheDigest() ([]byte, error) {
	b, err := msgpack.Marshal(c.input)
	if err != nil {
		return nil, fmt.Errorf("relkit: cache digest: %w", err)
	}
	return b, nil
}
