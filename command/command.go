// Package command implements the unit-of-work abstraction (§4.7): each
// command schedules itself onto a linear result-future chain, reading
// and updating the execution context as it runs. Grounded on the
// teacher's tx.go Committer/Rollbacker hook-chain pattern, restated per
// the DESIGN NOTES as a command chain rather than a callback-promise
// chain (this is a thread-based, synchronous language; "future" here
// means "result of the previous command," not an async promise).
package command

import (
	"context"
	"fmt"

	"github.com/relkit/relkit"
)

// Context is the minimal execution-context surface a Command needs.
// execctx.Context implements it; kept as an interface here so that
// command does not import execctx.
type Context interface {
	ResolveSQL(tmpl string) (string, []any, error)
	ExecQuerier() any
	RecordAffectedRows(stmtID string, n int64)
	RecordGeneratedID(path string, id any)
	RecordEntangled(recordType string, ids []any)
	GetGenerated(path string) (any, bool)
	SetGenerated(path string, v any)
	ClearGenerated()
}

// Result is the outcome threaded through the command chain: the most
// recently produced value (a generated id, an affected-row count, ...)
// available to the next command as input.
type Result struct {
	Value any
}

// Command is one step of a plan's execution chain.
type Command interface {
	// Run executes this command against ctx, given the prior command's
	// result, and returns this command's own result or an error.
	Run(goCtx context.Context, ctx Context, prev *Result) (*Result, error)
	// StmtID identifies which logical statement this command
	// contributes to, for affected-rows aggregation.
	StmtID() string
}

// Chain runs commands in order, short-circuiting on the first error.
func Chain(goCtx context.Context, ctx Context, cmds []Command) (*Result, error) {
	var res *Result
	for _, c := range cmds {
		var err error
		res, err = c.Run(goCtx, ctx, res)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Executor issues SQL against a connection; satisfied by a dialect
// driver. Kept narrow so command doesn't import dialect (dialect may
// in turn want to wrap commands for stats/debug logging).
type Executor interface {
	ExecuteQuery(goCtx context.Context, conn any, sql string, args []any) (Rows, error)
	ExecuteUpdate(goCtx context.Context, conn any, sql string, args []any) (int64, error)
	ExecuteInsert(goCtx context.Context, conn any, sql string, args []any, generatedIDColumn string) (int64, any, error)
}

// Rows is the minimal row-stream surface a command consumes; satisfied
// by *sql.Rows via a thin adapter the driver package provides.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
}

// ExecuteStatement runs a plain SQL template (INSERT/UPDATE/DELETE or
// SELECT). A non-SELECT records its affected-row count; a SELECT hands
// its rows to OnRows when set and records no count.
type ExecuteStatement struct {
	Exec   Executor
	Conn   any
	Tmpl   string
	Stmt   string
	Select bool // true if this is a SELECT whose rows feed a result-set parser
	OnRows func(Rows) error
}

func (c *ExecuteStatement) StmtID() string { return c.Stmt }

func (c *ExecuteStatement) Run(goCtx context.Context, ctx Context, prev *Result) (*Result, error) {
	sql, args, err := ctx.ResolveSQL(c.Tmpl)
	if err != nil {
		return nil, err
	}
	if c.Select {
		rows, err := c.Exec.ExecuteQuery(goCtx, c.Conn, sql, args)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		if c.OnRows != nil {
			if err := c.OnRows(rows); err != nil {
				return nil, err
			}
		}
		return &Result{}, nil
	}
	n, err := c.Exec.ExecuteUpdate(goCtx, c.Conn, sql, args)
	if err != nil {
		return nil, err
	}
	ctx.RecordAffectedRows(c.Stmt, n)
	return &Result{Value: n}, nil
}

// LoadAnchorTable populates an anchor temp-table with ids matching a
// stump SELECT (§4.7).
type LoadAnchorTable struct {
	Exec        Executor
	Conn        any
	AnchorTable string
	RootTable   string
	IDColumn    string
	IDExpr      string
	SelectStump string
	Stmt        string
}

func (c *LoadAnchorTable) StmtID() string { return c.Stmt }

func (c *LoadAnchorTable) Run(goCtx context.Context, ctx Context, prev *Result) (*Result, error) {
	sql, args, err := ctx.ResolveSQL(c.SelectStump)
	if err != nil {
		return nil, err
	}
	n, err := c.Exec.ExecuteUpdate(goCtx, c.Conn, sql, args)
	if err != nil {
		return nil, err
	}
	ctx.RecordAffectedRows(c.Stmt, n)
	return &Result{}, nil
}

// Generator calls a user-supplied id/value generator function and
// stores the result as a generated param at path.
type Generator struct {
	Path string
	Fn   func() (any, error)
}

func (c *Generator) StmtID() string { return "generator:" + c.Path }

func (c *Generator) Run(goCtx context.Context, ctx Context, prev *Result) (*Result, error) {
	v, err := c.Fn()
	if err != nil {
		return nil, relkit.NewUsageError("command.Generator", fmt.Sprintf("generator for %q failed: %v", c.Path, err))
	}
	ctx.SetGenerated(c.Path, v)
	return &Result{Value: v}, nil
}

// AssignedId promotes a client-provided id value into generated params.
type AssignedId struct {
	Path string
	Data any
}

func (c *AssignedId) StmtID() string { return "assigned:" + c.Path }

func (c *AssignedId) Run(goCtx context.Context, ctx Context, prev *Result) (*Result, error) {
	ctx.SetGenerated(c.Path, c.Data)
	return &Result{Value: c.Data}, nil
}

// Insert issues an INSERT, optionally returning a generated id.
type Insert struct {
	Exec              Executor
	Conn              any
	Tmpl              string
	Stmt              string
	GeneratedIDColumn string
	IDPath            string
}

func (c *Insert) StmtID() string { return c.Stmt }

func (c *Insert) Run(goCtx context.Context, ctx Context, prev *Result) (*Result, error) {
	sql, args, err := ctx.ResolveSQL(c.Tmpl)
	if err != nil {
		return nil, err
	}
	n, id, err := c.Exec.ExecuteInsert(goCtx, c.Conn, sql, args, c.GeneratedIDColumn)
	if err != nil {
		return nil, err
	}
	ctx.RecordAffectedRows(c.Stmt, n)
	if c.GeneratedIDColumn != "" && c.IDPath != "" {
		ctx.RecordGeneratedID(c.IDPath, id)
		ctx.SetGenerated(c.IDPath, id)
	}
	return &Result{Value: id}, nil
}

// UpdateEntangledRecords emits one UPDATE per entangled type bumping
// version/modificationTimestamp/modificationActor for the collected ids.
type UpdateEntangledRecords struct {
	Exec  Executor
	Conn  any
	Types []EntangledUpdate
}

// EntangledUpdate is one entangled-type UPDATE to emit.
type EntangledUpdate struct {
	RecordType string
	Table      string
	IDColumn   string
	Tmpl       string
	Stmt       string
}

func (c *UpdateEntangledRecords) StmtID() string { return "entangled" }

func (c *UpdateEntangledRecords) Run(goCtx context.Context, ctx Context, prev *Result) (*Result, error) {
	for _, u := range c.Types {
		sql, args, err := ctx.ResolveSQL(u.Tmpl)
		if err != nil {
			return nil, err
		}
		n, err := c.Exec.ExecuteUpdate(goCtx, c.Conn, sql, args)
		if err != nil {
			return nil, err
		}
		ctx.RecordAffectedRows(u.Stmt, n)
	}
	return &Result{}, nil
}

// NotifyRecordCollectionsMonitor notifies the external monitor
// (boundary defined in package monitor); a no-op if Notify is nil or
// Types is empty.
type NotifyRecordCollectionsMonitor struct {
	Notify func(goCtx context.Context, updatedTypes map[string]bool) error
	Types  map[string]bool
}

func (c *NotifyRecordCollectionsMonitor) StmtID() string { return "notify" }

func (c *NotifyRecordCollectionsMonitor) Run(goCtx context.Context, ctx Context, prev *Result) (*Result, error) {
	if c.Notify == nil || len(c.Types) == 0 {
		return &Result{}, nil
	}
	if err := c.Notify(goCtx, c.Types); err != nil {
		return nil, err
	}
	return &Result{}, nil
}
