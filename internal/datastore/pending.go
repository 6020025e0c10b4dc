package datastore

import (
	"context"

	"gorm.io/gorm"

	"github.com/tphakala/auditlog-go/internal/errors"
)

// pendingChanges scopes a query to log entries that still need their
// legacy changes_text converted: non-empty text and no structured value.
func pendingChanges(db *gorm.DB) *gorm.DB {
	return db.Where("changes_text IS NOT NULL AND changes_text <> '' AND changes IS NULL")
}

// CountPendingChanges returns the number of log entries pending changes migration.
func (ds *DataStore) CountPendingChanges(ctx context.Context) (int64, error) {
	var count int64
	err := pendingChanges(ds.DB.WithContext(ctx).Model(&LogEntry{})).Count(&count).Error
	if err != nil {
		return 0, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "count_pending_changes").
			Build()
	}
	return count, nil
}

// PendingChanges returns log entries pending changes migration in stable
// id order. A limit of zero or less returns the whole pending set.
//
// Successfully migrated entries drop out of this result set, so repeated
// calls with the same limit walk the backlog from the head without offset
// bookkeeping.
func (ds *DataStore) PendingChanges(ctx context.Context, limit int) ([]LogEntry, error) {
	query := pendingChanges(ds.DB.WithContext(ctx)).Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var entries []LogEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "fetch_pending_changes").
			Context("limit", limit).
			Build()
	}
	return entries, nil
}

// SaveConvertedChanges persists the structured changes column for the given
// entries in a single transaction. Only the changes column is written; all
// other columns are left untouched. Returns the number of rows updated.
func (ds *DataStore) SaveConvertedChanges(ctx context.Context, entries []LogEntry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	var updated int64
	err := ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range entries {
			result := tx.Model(&LogEntry{}).
				Where("id = ?", entries[i].ID).
				Update("changes", entries[i].Changes)
			if result.Error != nil {
				return result.Error
			}
			updated += result.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "save_converted_changes").
			Context("batch_len", len(entries)).
			Build()
	}

	return updated, nil
}

// ExecChangesStatement runs one raw SQL statement against the log entry
// table and returns the number of rows affected. This is the escape hatch
// for the native bulk migration path and must not be used elsewhere.
func (ds *DataStore) ExecChangesStatement(ctx context.Context, statement string) (int64, error) {
	result := ds.DB.WithContext(ctx).Exec(statement)
	if result.Error != nil {
		return 0, errors.New(result.Error).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "exec_changes_statement").
			Build()
	}
	return result.RowsAffected, nil
}
