package migration

import (
	"context"
	"log/slog"

	"github.com/tphakala/auditlog-go/internal/datastore"
	"github.com/tphakala/auditlog-go/internal/errors"
	"github.com/tphakala/auditlog-go/internal/logging"
)

// DefaultBatchSize is the default number of records converted per batch.
const DefaultBatchSize = 500

// Store is the subset of the datastore surface the migration engine needs.
type Store interface {
	Dialect() string
	CountPendingChanges(ctx context.Context) (int64, error)
	PendingChanges(ctx context.Context, limit int) ([]datastore.LogEntry, error)
	SaveConvertedChanges(ctx context.Context, entries []datastore.LogEntry) (int64, error)
	ExecChangesStatement(ctx context.Context, statement string) (int64, error)
}

// Result accumulates the outcome of one engine run.
type Result struct {
	Updated   int64  // records whose changes column was written
	FailedIDs []uint // records whose legacy text failed to parse, still pending
}

// BatchEngine drives the application-level migration path: it pages through
// pending records, converts each one, and persists successes batch by batch.
type BatchEngine struct {
	store  Store
	logger *slog.Logger
}

// NewBatchEngine creates a batch engine over the given store.
func NewBatchEngine(store Store, logger *slog.Logger) *BatchEngine {
	if logger == nil {
		logger = logging.ForService("migration")
	}
	return &BatchEngine{store: store, logger: logger}
}

// Run converts all pending records. A batchSize of zero fetches the whole
// pending set at once; a positive batchSize commits one transaction per
// batch, so a mid-run abort keeps every earlier batch durably migrated.
//
// Each iteration re-queries the first batchSize pending records rather than
// paging by offset: migrated records leave the pending set, so the head of
// the pending query naturally advances. Records that fail conversion stay
// pending for a future run and are skipped for the rest of this one.
func (e *BatchEngine) Run(ctx context.Context, batchSize int, migrateM2M bool) (Result, error) {
	if batchSize < 0 {
		return Result{}, errors.Newf("batch size must be zero or positive, got %d", batchSize).
			Component("migration").
			Category(errors.CategoryValidation).
			Build()
	}

	if batchSize == 0 {
		entries, err := e.store.PendingChanges(ctx, 0)
		if err != nil {
			return Result{}, err
		}
		return e.applyBatch(ctx, entries, migrateM2M, nil)
	}

	pending, err := e.store.CountPendingChanges(ctx)
	if err != nil {
		return Result{}, err
	}

	var total Result
	failed := make(map[uint]bool)

	iterations := (pending + int64(batchSize) - 1) / int64(batchSize)
	for i := int64(0); i < iterations; i++ {
		// Over-fetch by the number of known-failed records so each batch
		// still carries batchSize convertible candidates past them.
		entries, err := e.store.PendingChanges(ctx, batchSize+len(failed))
		if err != nil {
			return total, err
		}

		batch := entries[:0:0]
		for _, entry := range entries {
			if failed[entry.ID] {
				continue
			}
			batch = append(batch, entry)
			if len(batch) == batchSize {
				break
			}
		}
		if len(batch) == 0 {
			break
		}

		result, err := e.applyBatch(ctx, batch, migrateM2M, failed)
		total.Updated += result.Updated
		total.FailedIDs = append(total.FailedIDs, result.FailedIDs...)
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

// applyBatch converts one batch of records and persists the successes in a
// single bulk write. Parse failures are collected, logged, and excluded
// from the write; they do not abort the batch.
func (e *BatchEngine) applyBatch(ctx context.Context, entries []datastore.LogEntry, migrateM2M bool, failed map[uint]bool) (Result, error) {
	var result Result
	converted := entries[:0:0]

	for _, entry := range entries {
		changes, err := ConvertChanges(entry.ChangesText, migrateM2M)
		if err != nil {
			result.FailedIDs = append(result.FailedIDs, entry.ID)
			if failed != nil {
				failed[entry.ID] = true
			}
			e.logger.Warn("Failed to convert changes_text, record left pending",
				"record_id", entry.ID,
				"error", err)
			continue
		}
		entry.Changes = &changes
		converted = append(converted, entry)
	}

	updated, err := e.store.SaveConvertedChanges(ctx, converted)
	result.Updated = updated
	if err != nil {
		return result, err
	}

	if len(result.FailedIDs) > 0 {
		e.logger.Error("Some records could not be converted and were excluded from this batch",
			"failed_count", len(result.FailedIDs),
			"failed_ids", result.FailedIDs)
	}

	return result, nil
}
