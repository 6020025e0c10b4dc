package migration

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tphakala/auditlog-go/internal/logging"
)

// Options selects the migration path and its parameters.
type Options struct {
	CheckOnly  bool   // report the pending count without mutating anything
	Engine     string // native engine name; empty uses the batch path
	BatchSize  int    // batch path only; zero disables batching
	MigrateM2M bool   // batch path only; rewrite the old patched m2m shape
}

// Migration paths reported by Report.Path.
const (
	PathNone   = "none"
	PathBatch  = "batch"
	PathNative = "native"
)

// Report describes the outcome of one migration run.
type Report struct {
	PendingBefore   int64  // pending records at the initial check
	PendingAfter    int64  // pending records after the run, ideally zero
	Updated         int64  // records written in this run
	FailedIDs       []uint // records whose legacy text failed to parse
	Path            string // which path performed the work
	AlreadyMigrated bool   // true when the initial check found nothing to do
	CheckOnly       bool   // true when the run stopped after the check
}

// Runner orchestrates a migration run: check, dispatch to one path, verify.
type Runner struct {
	store               Store
	logger              *slog.Logger
	textFallbackEnabled bool
}

// NewRunner creates a runner over the given store. textFallbackEnabled
// should mirror the auditlog.usetextchangesfallback setting; it only
// affects the advice logged once migration is complete.
func NewRunner(store Store, textFallbackEnabled bool) *Runner {
	return &Runner{
		store:               store,
		logger:              logging.ForService("migration").With("run_id", uuid.New().String()),
		textFallbackEnabled: textFallbackEnabled,
	}
}

// Run performs one migration pass. Residual pending records, for example
// records whose legacy text failed to parse, are left for a subsequent
// invocation rather than retried automatically.
//
// Concurrent runs against the same store are not supported; callers must
// serialize invocations.
func (r *Runner) Run(ctx context.Context, opts Options) (Report, error) {
	report := Report{Path: PathNone, CheckOnly: opts.CheckOnly}

	pending, err := r.store.CountPendingChanges(ctx)
	if err != nil {
		return report, err
	}
	report.PendingBefore = pending
	report.PendingAfter = pending

	if pending == 0 {
		report.AlreadyMigrated = true
		r.logger.Info("All records have been migrated")
		if r.textFallbackEnabled {
			r.logger.Info("The changes_text fallback is no longer needed, auditlog.usetextchangesfallback can be disabled")
		}
		return report, nil
	}

	r.logger.Info("Records need migration", "pending", pending, "dialect", r.store.Dialect())

	if opts.CheckOnly {
		return report, nil
	}

	if opts.Engine != "" {
		report.Path = PathNative
		updated, err := NewNativeMigrator(r.store, r.logger).Run(ctx, opts.Engine)
		report.Updated = updated
		if err != nil {
			return report, err
		}
	} else {
		report.Path = PathBatch
		result, err := NewBatchEngine(r.store, r.logger).Run(ctx, opts.BatchSize, opts.MigrateM2M)
		report.Updated = result.Updated
		report.FailedIDs = result.FailedIDs
		if err != nil {
			return report, err
		}
	}

	after, err := r.store.CountPendingChanges(ctx)
	if err != nil {
		return report, err
	}
	report.PendingAfter = after

	r.logger.Info("Migration run finished",
		"path", report.Path,
		"updated", report.Updated,
		"pending_after", after,
		"failed_count", len(report.FailedIDs))

	return report, nil
}
