package datacontext

import (
	"context"
	"time"
)

// Rollback reasons reported to SessionMetrics.
const (
	RollbackExplicit     = "explicit"
	RollbackSaveFailed   = "save_failed"
	RollbackCommitFailed = "commit_failed"
	RollbackClose        = "close"
)

// SessionMetrics defines metrics for session lifecycles.
type SessionMetrics interface {
	// IncSessionsOpened counts sessions whose transaction began.
	IncSessionsOpened(ctx context.Context, driver string, tenantScoped bool)

	// IncCommits counts successful commits.
	IncCommits(ctx context.Context, driver string)

	// IncRollbacks counts rollbacks by reason.
	IncRollbacks(ctx context.Context, driver string, reason string)

	// IncStoreErrors counts failed store calls by operation and error kind.
	IncStoreErrors(ctx context.Context, driver string, op string, kind string)

	// ObserveSaveDuration records how long flushing staged operations took.
	ObserveSaveDuration(ctx context.Context, driver string, operations int, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) IncSessionsOpened(context.Context, string, bool)                {}
func (noopMetrics) IncCommits(context.Context, string)                             {}
func (noopMetrics) IncRollbacks(context.Context, string, string)                   {}
func (noopMetrics) IncStoreErrors(context.Context, string, string, string)         {}
func (noopMetrics) ObserveSaveDuration(context.Context, string, int, time.Duration) {}
