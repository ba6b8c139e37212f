// Package datacontext implements the unit of work: a session that owns one
// transaction, stages repository writes and finalizes them on Commit or
// Rollback.
//
// Every operation of a session, blocking or not, runs as a job on the
// session's serial executor, so operations execute in the order they were
// issued. Blocking methods submit the job and wait for it. Sessions are
// independent of one another and may run in parallel.
package datacontext

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/tinydal/internal/domain/repository"
	"github.com/ahrav/tinydal/internal/infra/storage"
	"github.com/ahrav/tinydal/pkg/common/async"
	"github.com/ahrav/tinydal/pkg/common/logger"
	"github.com/ahrav/tinydal/pkg/common/timeutil"
)

var _ repository.Session = (*DataContext)(nil)

// State is the lifecycle position of a session.
type State int32

const (
	StateOpen State = iota
	StateCommitted
	StateRolledBack
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// DataContext is a unit-of-work session over one storage transaction.
type DataContext struct {
	id        string
	tenantID  *int64
	isolation storage.IsolationLevel
	driver    storage.Driver
	builder   statementBuilder

	tx      storage.Tx
	tracker *tracker
	state   atomic.Int32

	exec *async.Serial
	// submitMu orders submissions against Close so nothing reaches a stopped executor.
	submitMu  sync.RWMutex
	disposed  bool
	closeOnce sync.Once

	logger  *logger.Logger
	tracer  trace.Tracer
	metrics SessionMetrics
	clock   timeutil.Provider
}

// Open begins a transaction on driver and returns a session bound to it.
// The session must be closed to release its transaction and executor.
func Open(ctx context.Context, driver storage.Driver, opts ...Option) (*DataContext, error) {
	cfg := config{isolation: storage.DefaultIsolationLevel}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Noop()
	}
	if cfg.tracer == nil {
		cfg.tracer = otel.Tracer("github.com/ahrav/tinydal/datacontext")
	}
	if cfg.metrics == nil {
		cfg.metrics = noopMetrics{}
	}
	if cfg.clock == nil {
		cfg.clock = timeutil.Default()
	}

	dc := &DataContext{
		id:        uuid.New().String(),
		tenantID:  cfg.tenantID,
		isolation: cfg.isolation,
		driver:    driver,
		builder:   newStatementBuilder(driver.Placeholder()),
		tracker:   newTracker(),
		tracer:    cfg.tracer,
		metrics:   cfg.metrics,
		clock:     cfg.clock,
	}
	var tenant any
	if cfg.tenantID != nil {
		tenant = *cfg.tenantID
	}
	dc.logger = cfg.logger.With(
		"component", "datacontext",
		"session_id", dc.id,
		"tenant_id", tenant,
		"isolation", cfg.isolation.String(),
		"driver", driver.Name(),
	)

	err := storage.ExecuteAndTrace(ctx, dc.tracer, "datacontext.Open", dc.spanAttributes(), func(ctx context.Context) error {
		tx, err := driver.BeginTx(context.WithoutCancel(ctx), cfg.isolation)
		if err != nil {
			return err
		}
		dc.tx = tx
		return nil
	})
	if err != nil {
		dc.metrics.IncStoreErrors(ctx, driver.Name(), "begin", storage.KindName(err))
		dc.logger.Error(ctx, "failed to begin transaction", "error", err)
		return nil, fmt.Errorf("datacontext: begin transaction: %w", err)
	}

	dc.exec = async.NewSerial()
	dc.metrics.IncSessionsOpened(ctx, driver.Name(), cfg.tenantID != nil)
	dc.logger.Debug(ctx, "session opened")
	return dc, nil
}

// ID returns the session identifier used in logs and spans.
func (dc *DataContext) ID() string { return dc.id }

// TenantID returns the session tenant, or nil for an unscoped session.
func (dc *DataContext) TenantID() *int64 {
	if dc.tenantID == nil {
		return nil
	}
	id := *dc.tenantID
	return &id
}

// IsolationLevel returns the level the transaction was opened with.
func (dc *DataContext) IsolationLevel() storage.IsolationLevel { return dc.isolation }

// State returns the current lifecycle state.
func (dc *DataContext) State() State { return State(dc.state.Load()) }

func (dc *DataContext) setState(s State) { dc.state.Store(int32(s)) }

func (dc *DataContext) spanAttributes(extra ...attribute.KeyValue) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("db.system", dc.driver.Name()),
		attribute.String("session.id", dc.id),
		attribute.String("session.isolation", dc.isolation.String()),
	}
	if dc.tenantID != nil {
		attrs = append(attrs, attribute.Int64("session.tenant_id", *dc.tenantID))
	}
	return append(attrs, extra...)
}

// submit runs fn as the next job of dc. Jobs issued after the session left
// StateOpen resolve with ErrSessionClosed.
func submit[R any](dc *DataContext, ctx context.Context, fn func(ctx context.Context) (R, error)) *async.Future[R] {
	// Cancellation is not honoured once an operation is issued.
	ctx = context.WithoutCancel(ctx)

	dc.submitMu.RLock()
	defer dc.submitMu.RUnlock()
	if dc.disposed {
		var zero R
		return async.Resolved(zero, ErrSessionClosed)
	}
	return async.Submit(dc.exec, func() (R, error) {
		if dc.State() != StateOpen {
			var zero R
			return zero, ErrSessionClosed
		}
		return fn(ctx)
	})
}

func submitErr(dc *DataContext, ctx context.Context, fn func(ctx context.Context) error) *async.Future[struct{}] {
	return submit(dc, ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
}

// Save flushes staged operations into the transaction.
func (dc *DataContext) Save(ctx context.Context) error { return dc.SaveAsync(ctx).Err() }

// SaveAsync flushes staged operations in staging order. A failing operation
// rolls the whole transaction back and moves the session to StateRolledBack.
func (dc *DataContext) SaveAsync(ctx context.Context) *async.Future[struct{}] {
	return submitErr(dc, ctx, dc.save)
}

func (dc *DataContext) save(ctx context.Context) error {
	ops := dc.tracker.drain()
	if len(ops) == 0 {
		return nil
	}

	start := dc.clock.Now()
	err := storage.ExecuteAndTrace(ctx, dc.tracer, "datacontext.Save",
		dc.spanAttributes(attribute.Int("operations", len(ops))),
		func(ctx context.Context) error {
			for i, op := range ops {
				if err := op.run(ctx, dc.tx); err != nil {
					return fmt.Errorf("%s %s (operation %d of %d): %w", op.kind, op.table, i+1, len(ops), err)
				}
			}
			return nil
		})
	dc.metrics.ObserveSaveDuration(ctx, dc.driver.Name(), len(ops), timeutil.Since(dc.clock, start))

	if err != nil {
		dc.metrics.IncStoreErrors(ctx, dc.driver.Name(), "save", storage.KindName(err))
		dc.logger.Error(ctx, "save failed, rolling back", "error", err, "operations", len(ops))
		dc.abort(ctx, RollbackSaveFailed)
		return fmt.Errorf("datacontext: save: %w", err)
	}

	dc.logger.Debug(ctx, "saved staged operations", "operations", len(ops))
	return nil
}

// Commit finalizes the transaction.
func (dc *DataContext) Commit(ctx context.Context) error { return dc.CommitAsync(ctx).Err() }

// CommitAsync finalizes the transaction. Operations staged since the last
// Save are discarded. A failed commit leaves the session in StateRolledBack.
func (dc *DataContext) CommitAsync(ctx context.Context) *async.Future[struct{}] {
	return submitErr(dc, ctx, dc.commit)
}

func (dc *DataContext) commit(ctx context.Context) error {
	if discarded := dc.tracker.drain(); len(discarded) > 0 {
		dc.logger.Warn(ctx, "discarding operations staged after the last save", "operations", len(discarded))
	}

	err := storage.ExecuteAndTrace(ctx, dc.tracer, "datacontext.Commit", dc.spanAttributes(), dc.tx.Commit)
	if err != nil {
		dc.metrics.IncStoreErrors(ctx, dc.driver.Name(), "commit", storage.KindName(err))
		dc.logger.Error(ctx, "commit failed, rolling back", "error", err)
		dc.abort(ctx, RollbackCommitFailed)
		return fmt.Errorf("datacontext: commit: %w", err)
	}

	dc.tracker.reset()
	dc.setState(StateCommitted)
	dc.metrics.IncCommits(ctx, dc.driver.Name())
	dc.logger.Info(ctx, "session committed")
	return nil
}

// Rollback discards staged and saved effects.
func (dc *DataContext) Rollback(ctx context.Context) error { return dc.RollbackAsync(ctx).Err() }

// RollbackAsync discards staged and saved effects. The session ends in
// StateRolledBack even when the store reports a failure.
func (dc *DataContext) RollbackAsync(ctx context.Context) *async.Future[struct{}] {
	return submitErr(dc, ctx, func(ctx context.Context) error {
		if err := dc.rollback(ctx, RollbackExplicit); err != nil {
			return fmt.Errorf("datacontext: rollback: %w", err)
		}
		return nil
	})
}

func (dc *DataContext) rollback(ctx context.Context, reason string) error {
	dc.tracker.reset()
	err := storage.ExecuteAndTrace(ctx, dc.tracer, "datacontext.Rollback",
		dc.spanAttributes(attribute.String("reason", reason)), dc.tx.Rollback)
	dc.setState(StateRolledBack)
	dc.metrics.IncRollbacks(ctx, dc.driver.Name(), reason)
	if err != nil {
		dc.metrics.IncStoreErrors(ctx, dc.driver.Name(), "rollback", storage.KindName(err))
		return err
	}
	dc.logger.Info(ctx, "session rolled back", "reason", reason)
	return nil
}

// abort rolls back after a failed save or commit. The original failure is
// what the caller sees, so a rollback error is only logged.
func (dc *DataContext) abort(ctx context.Context, reason string) {
	if err := dc.rollback(ctx, reason); err != nil {
		dc.logger.Error(ctx, "rollback after failure did not complete", "error", err, "reason", reason)
	}
}

// Close releases the session. An open transaction is rolled back first.
// Close is safe to call after Commit or Rollback and returns nil on every
// call after the first. Failures while releasing are logged and returned;
// the session is StateDisposed either way.
func (dc *DataContext) Close(ctx context.Context) error {
	var err error
	dc.closeOnce.Do(func() {
		ctx := context.WithoutCancel(ctx)

		dc.submitMu.Lock()
		dc.disposed = true
		dc.submitMu.Unlock()

		// Queued jobs have already been accepted, so this release job runs after
		// all of them.
		release := async.Submit(dc.exec, func() (struct{}, error) {
			if dc.State() != StateOpen {
				return struct{}{}, nil
			}
			return struct{}{}, dc.rollback(ctx, RollbackClose)
		})
		err = release.Err()
		dc.exec.Shutdown()
		dc.setState(StateDisposed)

		if err != nil {
			err = fmt.Errorf("datacontext: close: %w", err)
			dc.logger.Error(ctx, "failed to release session", "error", err)
			return
		}
		dc.logger.Debug(ctx, "session closed")
	})
	return err
}

// ExecRaw runs a statement in the session transaction immediately, bypassing
// staging and predicate composition. The statement must use the driver's
// placeholder syntax. It returns the number of affected rows.
func (dc *DataContext) ExecRaw(ctx context.Context, query string, args ...any) (int64, error) {
	return dc.ExecRawAsync(ctx, query, args...).Await()
}

func (dc *DataContext) ExecRawAsync(ctx context.Context, query string, args ...any) *async.Future[int64] {
	return submit(dc, ctx, func(ctx context.Context) (int64, error) {
		var n int64
		err := storage.ExecuteAndTrace(ctx, dc.tracer, "datacontext.ExecRaw", dc.spanAttributes(), func(ctx context.Context) error {
			var err error
			n, err = dc.tx.Exec(ctx, query, args...)
			return err
		})
		if err != nil {
			dc.metrics.IncStoreErrors(ctx, dc.driver.Name(), "exec_raw", storage.KindName(err))
			return 0, fmt.Errorf("datacontext: exec raw: %w", err)
		}
		return n, nil
	})
}

// Run opens a session, calls fn, then saves and commits. The session is rolled
// back when fn or the save fails and is always closed.
func Run(ctx context.Context, driver storage.Driver, fn func(ctx context.Context, dc *DataContext) error, opts ...Option) (err error) {
	dc, err := Open(ctx, driver, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := dc.Close(ctx); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := fn(ctx, dc); err != nil {
		if rbErr := dc.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, ErrSessionClosed) {
			return errors.Join(err, rbErr)
		}
		return err
	}
	if err := dc.Save(ctx); err != nil {
		return err
	}
	return dc.Commit(ctx)
}
