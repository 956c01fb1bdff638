package command

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeCtx struct {
	generated map[string]any
	affected  map[string]int64
	genIDs    map[string]any
	entangled map[string][]any
}

func newFakeCtx() *fakeCtx {
	return &fakeCtx{generated: map[string]any{}, affected: map[string]int64{}, genIDs: map[string]any{}, entangled: map[string][]any{}}
}

func (f *fakeCtx) ResolveSQL(tmpl string) (string, []any, error) { return tmpl, nil, nil }
func (f *fakeCtx) ExecQuerier() any                              { return nil }
func (f *fakeCtx) RecordAffectedRows(stmtID string, n int64)     { f.affected[stmtID] = n }
func (f *fakeCtx) RecordGeneratedID(path string, id any)         { f.genIDs[path] = id }
func (f *fakeCtx) RecordEntangled(recordType string, ids []any)  { f.entangled[recordType] = ids }
func (f *fakeCtx) GetGenerated(path string) (any, bool)          { v, ok := f.generated[path]; return v, ok }
func (f *fakeCtx) SetGenerated(path string, v any)               { f.generated[path] = v }
func (f *fakeCtx) ClearGenerated()                               { f.generated = map[string]any{} }

type fakeExecutor struct {
	updateN    int64
	updateErr  error
	insertID   any
	insertN    int64
	insertErr  error
	queryErr   error
	lastSQL    string
	lastArgs   []any
	rows       Rows
}

func (e *fakeExecutor) ExecuteQuery(goCtx context.Context, conn any, sql string, args []any) (Rows, error) {
	e.lastSQL, e.lastArgs = sql, args
	if e.queryErr != nil {
		return nil, e.queryErr
	}
	return e.rows, nil
}

func (e *fakeExecutor) ExecuteUpdate(goCtx context.Context, conn any, sql string, args []any) (int64, error) {
	e.lastSQL, e.lastArgs = sql, args
	return e.updateN, e.updateErr
}

func (e *fakeExecutor) ExecuteInsert(goCtx context.Context, conn any, sql string, args []any, generatedIDColumn string) (int64, any, error) {
	e.lastSQL, e.lastArgs = sql, args
	return e.insertN, e.insertID, e.insertErr
}

type noRows struct{ closed bool }

func (n *noRows) Next() bool          { return false }
func (n *noRows) Scan(dest ...any) error { return nil }
func (n *noRows) Close() error        { n.closed = true; return nil }

func TestExecuteStatementUpdateRecordsAffectedRows(t *testing.T) {
	ctx := newFakeCtx()
	exec := &fakeExecutor{updateN: 3}
	cmd := &ExecuteStatement{Exec: exec, Tmpl: "UPDATE t SET x = 1", Stmt: "t#x"}
	res, err := cmd.Run(context.Background(), ctx, nil)
	require.NoError(t, err)
	require.EqualValues(t, 3, res.Value)
	require.EqualValues(t, 3, ctx.affected["t#x"])
}

func TestExecuteStatementSelectClosesRowsAndInvokesCallback(t *testing.T) {
	ctx := newFakeCtx()
	rows := &noRows{}
	exec := &fakeExecutor{rows: rows}
	called := false
	cmd := &ExecuteStatement{Exec: exec, Tmpl: "SELECT 1", Stmt: "sel", Select: true, OnRows: func(r Rows) error {
		called = true
		return nil
	}}
	_, err := cmd.Run(context.Background(), ctx, nil)
	require.NoError(t, err)
	require.True(t, called)
	require.True(t, rows.closed)
}

func TestExecuteStatementPropagatesUpdateError(t *testing.T) {
	ctx := newFakeCtx()
	exec := &fakeExecutor{updateErr: errors.New("boom")}
	cmd := &ExecuteStatement{Exec: exec, Tmpl: "UPDATE t SET x = 1", Stmt: "t#x"}
	_, err := cmd.Run(context.Background(), ctx, nil)
	require.Error(t, err)
}

func TestGeneratorStoresValue(t *testing.T) {
	ctx := newFakeCtx()
	cmd := &Generator{Path: "id", Fn: func() (any, error) { return "abc123", nil }}
	res, err := cmd.Run(context.Background(), ctx, nil)
	require.NoError(t, err)
	require.Equal(t, "abc123", res.Value)
	v, ok := ctx.GetGenerated("id")
	require.True(t, ok)
	require.Equal(t, "abc123", v)
}

func TestGeneratorWrapsFailure(t *testing.T) {
	ctx := newFakeCtx()
	cmd := &Generator{Path: "id", Fn: func() (any, error) { return nil, errors.New("no more ids") }}
	_, err := cmd.Run(context.Background(), ctx, nil)
	require.Error(t, err)
}

func TestAssignedIdSetsGenerated(t *testing.T) {
	ctx := newFakeCtx()
	cmd := &AssignedId{Path: "id", Data: "client-supplied"}
	_, err := cmd.Run(context.Background(), ctx, nil)
	require.NoError(t, err)
	v, _ := ctx.GetGenerated("id")
	require.Equal(t, "client-supplied", v)
}

func TestInsertRecordsGeneratedID(t *testing.T) {
	ctx := newFakeCtx()
	exec := &fakeExecutor{insertN: 1, insertID: int64(42)}
	cmd := &Insert{Exec: exec, Tmpl: "INSERT INTO t (x) VALUES (1)", Stmt: "t", GeneratedIDColumn: "id", IDPath: "id"}
	res, err := cmd.Run(context.Background(), ctx, nil)
	require.NoError(t, err)
	require.EqualValues(t, 42, res.Value)
	require.EqualValues(t, 42, ctx.genIDs["id"])
	v, _ := ctx.GetGenerated("id")
	require.EqualValues(t, 42, v)
}

func TestInsertWithoutGeneratedColumnSkipsRecording(t *testing.T) {
	ctx := newFakeCtx()
	exec := &fakeExecutor{insertN: 1}
	cmd := &Insert{Exec: exec, Tmpl: "INSERT INTO t (id) VALUES ('x')", Stmt: "t"}
	_, err := cmd.Run(context.Background(), ctx, nil)
	require.NoError(t, err)
	require.Empty(t, ctx.genIDs)
}

func TestChainShortCircuitsOnError(t *testing.T) {
	ctx := newFakeCtx()
	execOK := &fakeExecutor{updateN: 1}
	execFail := &fakeExecutor{updateErr: errors.New("boom")}
	ran3 := false
	cmds := []Command{
		&ExecuteStatement{Exec: execOK, Tmpl: "UPDATE a", Stmt: "a"},
		&ExecuteStatement{Exec: execFail, Tmpl: "UPDATE b", Stmt: "b"},
		&Generator{Path: "never", Fn: func() (any, error) { ran3 = true; return nil, nil }},
	}
	_, err := Chain(context.Background(), ctx, cmds)
	require.Error(t, err)
	require.False(t, ran3)
}

func TestUpdateEntangledRecordsIssuesOnePerType(t *testing.T) {
	ctx := newFakeCtx()
	exec := &fakeExecutor{updateN: 2}
	cmd := &UpdateEntangledRecords{Exec: exec, Types: []EntangledUpdate{
		{RecordType: "Account", Tmpl: "UPDATE accounts SET version = version + 1", Stmt: "accounts#bump"},
	}}
	_, err := cmd.Run(context.Background(), ctx, nil)
	require.NoError(t, err)
	require.EqualValues(t, 2, ctx.affected["accounts#bump"])
}

func TestNotifyRecordCollectionsMonitorNoopWhenNilOrEmpty(t *testing.T) {
	ctx := newFakeCtx()
	cmd := &NotifyRecordCollectionsMonitor{}
	_, err := cmd.Run(context.Background(), ctx, nil)
	require.NoError(t, err)
}

func TestNotifyRecordCollectionsMonitorInvokesCallback(t *testing.T) {
	ctx := newFakeCtx()
	var seen map[string]bool
	cmd := &NotifyRecordCollectionsMonitor{
		Types: map[string]bool{"Account": true},
		Notify: func(goCtx context.Context, types map[string]bool) error {
			seen = types
			return nil
		},
	}
	_, err := cmd.Run(context.Background(), ctx, nil)
	require.NoError(t, err)
	require.True(t, seen["Account"])
}
