package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// QueryStats holds driver-wide query execution statistics. Adapted
// directly from the teacher's dialect/sql/stats.go, generalized from
// dialect/sql.Driver's two-method Query/Exec surface to this engine's
// richer ExecuteQuery/ExecuteUpdate/ExecuteInsert surface.
type QueryStats struct {
	TotalQueries  atomic.Int64
	TotalExecs    atomic.Int64
	TotalDuration atomic.Int64
	SlowQueries   atomic.Int64
	Errors        atomic.Int64
}

func (s *QueryStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		TotalQueries:  s.TotalQueries.Load(),
		TotalExecs:    s.TotalExecs.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		SlowQueries:   s.SlowQueries.Load(),
		Errors:        s.Errors.Load(),
	}
}

// StatsSnapshot is a point-in-time statistics snapshot.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
}

func (s StatsSnapshot) AvgQueryDuration() time.Duration {
	total := s.TotalQueries + s.TotalExecs
	if total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(total)
}

func (s StatsSnapshot) String() string {
	return fmt.Sprintf("queries=%d execs=%d duration=%s avg=%s slow=%d errors=%d",
		s.TotalQueries, s.TotalExecs, s.TotalDuration, s.AvgQueryDuration(), s.SlowQueries, s.Errors)
}

// SlowQueryHook is called when a statement exceeds the slow threshold.
type SlowQueryHook func(ctx context.Context, sqlText string, args []any, duration time.Duration)

// StatsDriver wraps a Driver with query statistics collection and slow
// query detection.
type StatsDriver struct {
	Driver
	stats         *QueryStats
	slowThreshold time.Duration
	slowHook      SlowQueryHook
	mu            sync.RWMutex
}

type StatsOption func(*StatsDriver)

func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) { s.slowThreshold = d }
}

func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsDriver) { s.slowHook = hook }
}

func WithSlowQueryLog() StatsOption {
	return WithSlowQueryHook(func(_ context.Context, sqlText string, args []any, duration time.Duration) {
		slog.Warn("relkit: slow query detected", "duration", duration, "sql", sqlText, "args", args)
	})
}

// NewStatsDriver wraps drv with statistics collection.
func NewStatsDriver(drv Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{Driver: drv, stats: &QueryStats{}, slowThreshold: 100 * time.Millisecond}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (d *StatsDriver) QueryStats() *QueryStats { return d.stats }

func (d *StatsDriver) ExecuteQuery(ctx context.Context, q Querier, sqlText string, args []any, h StmtHandlers) (*sql.Rows, error) {
	start := time.Now()
	rows, err := d.Driver.ExecuteQuery(ctx, q, sqlText, args, h)
	d.record(ctx, sqlText, args, start, err, true)
	return rows, err
}

func (d *StatsDriver) ExecuteUpdate(ctx context.Context, q Querier, sqlText string, args []any, h StmtHandlers) (int64, error) {
	start := time.Now()
	n, err := d.Driver.ExecuteUpdate(ctx, q, sqlText, args, h)
	d.record(ctx, sqlText, args, start, err, false)
	return n, err
}

func (d *StatsDriver) ExecuteInsert(ctx context.Context, q Querier, sqlText string, args []any, generatedIDColumn string, h StmtHandlers) (int64, any, error) {
	start := time.Now()
	n, id, err := d.Driver.ExecuteInsert(ctx, q, sqlText, args, generatedIDColumn, h)
	d.record(ctx, sqlText, args, start, err, false)
	return n, id, err
}

func (d *StatsDriver) record(ctx context.Context, sqlText string, args []any, start time.Time, err error, isQuery bool) {
	duration := time.Since(start)
	if isQuery {
		d.stats.TotalQueries.Add(1)
	} else {
		d.stats.TotalExecs.Add(1)
	}
	d.stats.TotalDuration.Add(int64(duration))
	if err != nil {
		d.stats.Errors.Add(1)
	}
	d.mu.RLock()
	threshold, hook := d.slowThreshold, d.slowHook
	d.mu.RUnlock()
	if duration > threshold {
		d.stats.SlowQueries.Add(1)
		if hook != nil {
			hook(ctx, sqlText, args, duration)
		}
	}
}

// DebugDriver logs every statement and its arguments via log/slog,
// the same structured-logging approach the teacher uses throughout
// (plain log/slog, no external logging library).
type DebugDriver struct {
	Driver
	logger *slog.Logger
}

// NewDebugDriver wraps drv with per-statement debug logging. A nil
// logger falls back to slog.Default().
func NewDebugDriver(drv Driver, logger *slog.Logger) *DebugDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &DebugDriver{Driver: drv, logger: logger}
}

func (d *DebugDriver) ExecuteQuery(ctx context.Context, q Querier, sqlText string, args []any, h StmtHandlers) (*sql.Rows, error) {
	d.logger.Debug("relkit: query", "sql", sqlText, "args", args)
	rows, err := d.Driver.ExecuteQuery(ctx, q, sqlText, args, h)
	if err != nil {
		d.logger.Error("relkit: query failed", "sql", sqlText, "err", err)
	}
	return rows, err
}

func (d *DebugDriver) ExecuteUpdate(ctx context.Context, q Querier, sqlText string, args []any, h StmtHandlers) (int64, error) {
	d.logger.Debug("relkit: exec", "sql", sqlText, "args", args)
	n, err := d.Driver.ExecuteUpdate(ctx, q, sqlText, args, h)
	if err != nil {
		d.logger.Error("relkit: exec failed", "sql", sqlText, "err", err)
	}
	return n, err
}

func (d *DebugDriver) ExecuteInsert(ctx context.Context, q Querier, sqlText string, args []any, generatedIDColumn string, h StmtHandlers) (int64, any, error) {
	d.logger.Debug("relkit: insert", "sql", sqlText, "args", args)
	n, id, err := d.Driver.ExecuteInsert(ctx, q, sqlText, args, generatedIDColumn, h)
	if err != nil {
		d.logger.Error("relkit: insert failed", "sql", sqlText, "err", err)
	}
	return n, id, err
}
