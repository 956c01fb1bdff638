// Package txn implements the transaction handle state machine (§4.8):
// new -> active -> finished, with idempotence guards and event fan-out.
// Listeners run synchronously, in registration order, on the calling
// goroutine after the state transition. Grounded on the teacher's tx.go Committer/Rollbacker
// lifecycle (generated per-client Tx wrapper with hooks), generalized
// from driver-specific generated wrappers into one hand-written handle
// any dialect.Driver can back.
package txn

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/relkit/relkit"
)

// State is a transaction handle's lifecycle state.
type State int

const (
	StateNew State = iota
	StateActive
	StateFinished
)

// Event is one lifecycle transition a listener can observe.
type Event int

const (
	EventBegin Event = iota
	EventCommit
	EventRollback
)

// Listener observes transaction lifecycle events. Errors returned by a
// listener are logged and swallowed (§4.8), never propagated to the
// caller of start/commit/rollback.
type Listener func(ctx context.Context, id int64, ev Event) error

// Conn is the narrow connection surface a Handle drives through; a
// dialect.Driver's raw connection/begin/commit/rollback satisfy it.
type Conn interface {
	BeginTx(ctx context.Context) (any, error)
	Commit(tx any) error
	Rollback(tx any) error
}

// Logger receives swallowed listener errors, matching the teacher's
// plain log/slog-based stats/debug driver logging.
type Logger interface {
	Error(msg string, args ...any)
}

var nextID int64

// nextTxnID returns a monotonically increasing id, process-global per
// §4.8/§5 ("The monotonic transaction id is process-global"), kept in
// an atomic counter per the DESIGN NOTES ("remove hidden global state").
func nextTxnID() int64 { return atomic.AddInt64(&nextID, 1) }

// Handle is a transaction's lifecycle state machine.
type Handle struct {
	id        int64
	conn      Conn
	log       Logger
	mu        sync.Mutex
	state     State
	raw       any
	listeners []Listener
}

// New creates a not-yet-started handle bound to conn.
func New(conn Conn, log Logger) *Handle {
	return &Handle{id: nextTxnID(), conn: conn, log: log, state: StateNew}
}

// ID returns the process-global transaction id assigned at creation.
func (h *Handle) ID() int64 { return h.id }

// State reports the current lifecycle state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// OnEvent registers a lifecycle listener.
func (h *Handle) OnEvent(l Listener) { h.listeners = append(h.listeners, l) }

// Start transitions new -> active.
func (h *Handle) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.state != StateNew {
		h.mu.Unlock()
		return relkit.NewUsageError("txn.Start", "transaction is already active or finished")
	}
	raw, err := h.conn.BeginTx(ctx)
	if err != nil {
		h.mu.Unlock()
		return err
	}
	h.raw = raw
	h.state = StateActive
	h.mu.Unlock()
	h.fire(ctx, EventBegin)
	return nil
}

// Commit transitions active -> finished. If the driver commit fails,
// the handle attempts a rollback (best effort) before surfacing the
// original commit error, per §4.8.
func (h *Handle) Commit(ctx context.Context) error {
	h.mu.Lock()
	if h.state != StateActive {
		h.mu.Unlock()
		return relkit.NewUsageError("txn.Commit", "transaction is not active")
	}
	raw := h.raw
	commitErr := h.conn.Commit(raw)
	h.state = StateFinished
	h.mu.Unlock()
	if commitErr != nil {
		if rbErr := h.conn.Rollback(raw); rbErr != nil {
			return &relkit.RollbackError{Err: commitErr, RollbackErr: rbErr}
		}
		return commitErr
	}
	h.fire(ctx, EventCommit)
	return nil
}

// Rollback transitions active -> finished.
func (h *Handle) Rollback(ctx context.Context) error {
	h.mu.Lock()
	if h.state != StateActive {
		h.mu.Unlock()
		return relkit.NewUsageError("txn.Rollback", "transaction is not active")
	}
	raw := h.raw
	h.state = StateFinished
	h.mu.Unlock()
	err := h.conn.Rollback(raw)
	h.fire(ctx, EventRollback)
	return err
}

// Raw returns the underlying driver transaction handle for command
// execution.
func (h *Handle) Raw() any { return h.raw }

func (h *Handle) fire(ctx context.Context, ev Event) {
	for _, l := range h.listeners {
		if err := l(ctx, h.id, ev); err != nil && h.log != nil {
			h.log.Error("relkit: transaction listener error", "txn", h.id, "event", ev, "err", err)
		}
	}
}
