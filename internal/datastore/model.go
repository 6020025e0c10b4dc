package datastore

import (
	"time"
)

// Action identifies the kind of model change a log entry records.
type Action uint8

const (
	ActionCreate Action = 0
	ActionUpdate Action = 1
	ActionDelete Action = 2
	ActionAdd    Action = 3
)

// String returns the human-readable action name.
func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	case ActionAdd:
		return "add"
	default:
		return "unknown"
	}
}

// LogEntry represents one audit log record.
//
// Changes history is stored twice during the transition period: the legacy
// ChangesText column holds JSON-encoded text written by old deployments,
// and the Changes column holds the structured JSON value. A record is
// pending migration when ChangesText is non-empty and Changes is NULL.
type LogEntry struct {
	ID          uint      `gorm:"primaryKey"`
	Timestamp   time.Time `gorm:"index:idx_logentries_timestamp"`
	Actor       string    `gorm:"index:idx_logentries_actor"`
	ObjectPK    string    `gorm:"column:object_pk"`
	ObjectRepr  string    `gorm:"column:object_repr"`
	Action      Action
	ChangesText string  `gorm:"column:changes_text;type:text"`
	Changes     *string `gorm:"column:changes;type:json"`
}

// TableName overrides the default GORM table name.
func (LogEntry) TableName() string {
	return "auditlog_logentries"
}

// HasStructuredChanges reports whether the structured changes column is populated.
func (le *LogEntry) HasStructuredChanges() bool {
	return le.Changes != nil && *le.Changes != ""
}

// PendingMigration reports whether this entry still needs its changes_text
// converted to the structured changes column.
func (le *LogEntry) PendingMigration() bool {
	return le.ChangesText != "" && !le.HasStructuredChanges()
}
