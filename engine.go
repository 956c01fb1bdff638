// Package relkit is the client-visible DBO factory (§6): it compiles
// fetch/insert/update/delete operations over a record-type Library
// into immutable, re-executable Plans, and drives their execution
// against a dialect.Driver, either directly on a connection or inside
// a caller-supplied transaction handle. Fetch and delete plan
// compilation is memoized per (recordType, operation, spec-digest) via
// golang.org/x/sync/singleflight so concurrent first-callers of the
// same shape share one compile, matching the teacher's own use of
// singleflight-style request coalescing for expensive shared work;
// insert and update plans are compiled anew on every Build call.
package relkit

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/singleflight"

	"github.com/relkit/relkit/command"
	"github.com/relkit/relkit/dialect"
	"github.com/relkit/relkit/execctx"
	"github.com/relkit/relkit/filterparams"
	"github.com/relkit/relkit/monitor"
	"github.com/relkit/relkit/patch"
	"github.com/relkit/relkit/planner"
	"github.com/relkit/relkit/rtype"
	"github.com/relkit/relkit/txn"
)

// Engine is the compiled-DBO factory bound to one record-type Library
// and one dialect.Driver.
type Engine struct {
	lib     *rtype.Library
	driver  dialect.Driver
	monitor monitor.RecordCollectionsMonitor

	group     singleflight.Group
	planCache map[string]*planner.Plan
}

// NewEngine builds an Engine. lib must already have passed Validate.
func NewEngine(lib *rtype.Library, driver dialect.Driver, mon monitor.RecordCollectionsMonitor) *Engine {
	return &Engine{lib: lib, driver: driver, monitor: mon, planCache: map[string]*planner.Plan{}}
}

// DBO is a compiled, immutable, re-executable database operation
// (§3 Lifecycle).
type DBO struct {
	engine     *Engine
	recordType *rtype.RecordType
	plan       *planner.Plan
	input      map[string]any
	ops        []patch.Op
}

// Conn is the minimal connection surface Execute needs; *sql.DB or a
// pooled connection wrapper satisfying dialect.Querier plus BeginTx.
type Conn interface {
	dialect.Querier
}

func (e *Engine) memoize(key string, build func() (*planner.Plan, error)) (*planner.Plan, error) {
	if p, ok := e.planCache[key]; ok {
		return p, nil
	}
	v, err, _ := e.group.Do(key, func() (any, error) { return build() })
	if err != nil {
		return nil, err
	}
	p := v.(*planner.Plan)
	e.planCache[key] = p
	return p, nil
}

func digestKey(op, typeName string, v any) string {
	b, _ := msgpack.Marshal(v)
	return fmt.Sprintf("%s:%s:%x", op, typeName, b)
}

// BuildFetch compiles a fetch DBO (§6 buildFetch).
func (e *Engine) BuildFetch(recordType string, spec planner.FetchSpec) (*DBO, error) {
	rt, err := e.lib.MustGet(recordType)
	if err != nil {
		return nil, err
	}
	key := digestKey("fetch", recordType, spec)
	p, err := e.memoize(key, func() (*planner.Plan, error) { return planner.FetchPlan(e.lib, rt, spec) })
	if err != nil {
		return nil, err
	}
	return &DBO{engine: e, recordType: rt, plan: p}, nil
}

// BuildInsert compiles an insert DBO (§6 buildInsert).
func (e *Engine) BuildInsert(recordType string, record map[string]any) (*DBO, error) {
	rt, err := e.lib.MustGet(recordType)
	if err != nil {
		return nil, err
	}
	p, err := planner.InsertPlan(rt, record)
	if err != nil {
		return nil, err
	}
	return &DBO{engine: e, recordType: rt, plan: p, input: record}, nil
}

// BuildUpdate compiles an update DBO (§6 buildUpdate).
func (e *Engine) BuildUpdate(recordType string, ops []patch.Op, filterSpec []any) (*DBO, error) {
	rt, err := e.lib.MustGet(recordType)
	if err != nil {
		return nil, err
	}
	p, err := planner.UpdatePlan(rt, ops, filterSpec)
	if err != nil {
		return nil, err
	}
	return &DBO{engine: e, recordType: rt, plan: p, ops: ops}, nil
}

// BuildDelete compiles a delete DBO (§6 buildDelete).
func (e *Engine) BuildDelete(recordType string, filterSpec []any) (*DBO, error) {
	rt, err := e.lib.MustGet(recordType)
	if err != nil {
		return nil, err
	}
	key := digestKey("delete", recordType, filterSpec)
	p, err := e.memoize(key, func() (*planner.Plan, error) { return planner.DeletePlan(rt, filterSpec) })
	if err != nil {
		return nil, err
	}
	return &DBO{engine: e, recordType: rt, plan: p}, nil
}

// NewTransaction starts (and returns) an externally-managed transaction
// handle a caller can pass to Execute so several DBOs share one
// transaction (§6 newTransaction).
func (e *Engine) NewTransaction(ctx context.Context, conn any) (*txn.Handle, error) {
	dbconn, ok := conn.(interface {
		BeginTx(ctx context.Context) (any, error)
	})
	if !ok {
		return nil, NewUsageError("Engine.NewTransaction", "connection does not support BeginTx")
	}
	h := txn.New(connAdapter{dbconn}, nil)
	if err := h.Start(ctx); err != nil {
		return nil, err
	}
	return h, nil
}

type connAdapter struct {
	c interface {
		BeginTx(ctx context.Context) (any, error)
	}
}

func (a connAdapter) BeginTx(ctx context.Context) (any, error) { return a.c.BeginTx(ctx) }
func (a connAdapter) Commit(tx any) error {
	if c, ok := tx.(interface{ Commit() error }); ok {
		return c.Commit()
	}
	return nil
}

func (a connAdapter) Rollback(tx any) error {
	if r, ok := tx.(interface{ Rollback() error }); ok {
		return r.Rollback()
	}
	return nil
}

// Execute runs the DBO. Execute itself never starts, commits or rolls
// back a transaction: if tx is nil the command chain runs directly on
// conn, and if tx is set it runs inside that externally managed
// transaction, which the caller commits or rolls back. actor is
// required when the record type carries meta-info.
func (d *DBO) Execute(ctx context.Context, conn Conn, tx *txn.Handle, actor *string, input map[string]any) (*execctx.Context, error) {
	wrapInTx := tx == nil
	litAdapter := literalAdapter{d.engine.driver}
	ectx, err := execctx.New(conn, tx, actor, d.plan.Registry, mergeInput(d.input, input), litAdapter, wrapInTx)
	if err != nil {
		return nil, err
	}

	exec := &driverExecutor{driver: d.engine.driver}
	b := &planner.Builder{Exec: exec, Conn: ectx.ExecQuerier()}
	cmds, err := d.plan.Build(b)
	if err != nil {
		return nil, err
	}

	runErr := func() error {
		_, err := command.Chain(ctx, ectx, cmds)
		return err
	}()

	if runErr != nil {
		if wrapInTx && ectx.RollbackOnError && ectx.Tx != nil {
			_ = ectx.Tx.Rollback(ctx)
		}
		return nil, runErr
	}

	if d.engine.monitor != nil {
		types := map[string]bool{d.recordType.Name: true}
		_ = d.engine.monitor.CollectionsUpdated(ctx, types)
	}
	return ectx, nil
}

func mergeInput(planInput, callInput map[string]any) map[string]any {
	if planInput == nil {
		return callInput
	}
	out := make(map[string]any, len(planInput)+len(callInput))
	for k, v := range planInput {
		out[k] = v
	}
	for k, v := range callInput {
		out[k] = v
	}
	return out
}

// driverExecutor adapts a dialect.Driver to command.Executor.
type driverExecutor struct{ driver dialect.Driver }

func (e *driverExecutor) ExecuteQuery(ctx context.Context, conn any, sqlText string, args []any) (command.Rows, error) {
	q, ok := conn.(dialect.Querier)
	if !ok {
		return nil, NewUsageError("driverExecutor.ExecuteQuery", "connection does not implement dialect.Querier")
	}
	rows, err := e.driver.ExecuteQuery(ctx, q, sqlText, args, dialect.StmtHandlers{})
	if err != nil {
		return nil, err
	}
	return rowsAdapter{rows}, nil
}

func (e *driverExecutor) ExecuteUpdate(ctx context.Context, conn any, sqlText string, args []any) (int64, error) {
	q, ok := conn.(dialect.Querier)
	if !ok {
		return 0, NewUsageError("driverExecutor.ExecuteUpdate", "connection does not implement dialect.Querier")
	}
	return e.driver.ExecuteUpdate(ctx, q, sqlText, args, dialect.StmtHandlers{})
}

func (e *driverExecutor) ExecuteInsert(ctx context.Context, conn any, sqlText string, args []any, generatedIDColumn string) (int64, any, error) {
	q, ok := conn.(dialect.Querier)
	if !ok {
		return 0, nil, NewUsageError("driverExecutor.ExecuteInsert", "connection does not implement dialect.Querier")
	}
	return e.driver.ExecuteInsert(ctx, q, sqlText, args, generatedIDColumn, dialect.StmtHandlers{})
}

type rowsAdapter struct{ rows interface {
	Next() bool
	Scan(...any) error
	Close() error
} }

func (r rowsAdapter) Next() bool          { return r.rows.Next() }
func (r rowsAdapter) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r rowsAdapter) Close() error        { return r.rows.Close() }

type literalAdapter struct{ driver dialect.Driver }

func (l literalAdapter) StringLiteral(s string) string  { return l.driver.StringLiteral(s) }
func (l literalAdapter) BooleanLiteral(b bool) string   { return l.driver.BooleanLiteral(b) }
func (l literalAdapter) SQL(v any) (string, error)      { return l.driver.SQL(v) }

var _ filterparams.Resolver = (*execctx.Context)(nil)
