// Package datastore defines the store interface and its GORM-backed implementations.
package datastore

import (
	"context"

	"gorm.io/gorm"

	"github.com/tphakala/auditlog-go/internal/conf"
	"github.com/tphakala/auditlog-go/internal/errors"
)

// Interface abstracts the underlying database implementation and defines
// the operations the migration engine and CLI need.
type Interface interface {
	Open() error
	Close() error
	Dialect() string

	Save(ctx context.Context, entry *LogEntry) error
	Get(ctx context.Context, id uint) (LogEntry, error)

	// Changes migration surface
	CountPendingChanges(ctx context.Context) (int64, error)
	PendingChanges(ctx context.Context, limit int) ([]LogEntry, error)
	SaveConvertedChanges(ctx context.Context, entries []LogEntry) (int64, error)
	ExecChangesStatement(ctx context.Context, statement string) (int64, error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a new DataStore instance based on the provided settings.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			Settings: settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			Settings: settings,
		}
	default:
		return nil
	}
}

// Dialect returns the name of the connected database dialect.
func (ds *DataStore) Dialect() string {
	if ds.DB == nil {
		return ""
	}
	return ds.DB.Dialector.Name()
}

// Save stores a log entry in the database.
func (ds *DataStore) Save(ctx context.Context, entry *LogEntry) error {
	if err := ds.DB.WithContext(ctx).Create(entry).Error; err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "save_log_entry").
			Build()
	}
	return nil
}

// Get retrieves a log entry by its ID.
func (ds *DataStore) Get(ctx context.Context, id uint) (LogEntry, error) {
	var entry LogEntry
	if err := ds.DB.WithContext(ctx).First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LogEntry{}, errors.Newf("log entry %d not found", id).
				Component("datastore").
				Category(errors.CategoryNotFound).
				Build()
		}
		return LogEntry{}, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "get_log_entry").
			Context("record_id", id).
			Build()
	}
	return entry, nil
}

// performAutoMigration runs the GORM schema migration for the log entry table.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&LogEntry{}); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "auto_migration").
			Context("db_type", dbType).
			Build()
	}

	if debug {
		getLogger().Debug("Database schema migrated", "db_type", dbType, "connection", connectionInfo)
	}
	return nil
}
