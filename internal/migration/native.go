package migration

import (
	"context"
	"log/slog"
	"sort"

	"github.com/tphakala/auditlog-go/internal/errors"
	"github.com/tphakala/auditlog-go/internal/logging"
)

// nativeStatements maps an engine name to the single set-based statement
// that performs the whole conversion server-side. Engines listed in
// KnownEngines without a statement here are recognized but not implemented.
var nativeStatements = map[string]string{
	"sqlite": `UPDATE auditlog_logentries
SET changes = json(changes_text)
WHERE changes_text IS NOT NULL
    AND changes_text <> ''
    AND changes IS NULL`,
}

// KnownEngines is the closed set of engine names accepted by the native path.
var KnownEngines = []string{"sqlite", "mysql", "postgres"}

// SupportedEngines returns the engine names with an implemented statement.
func SupportedEngines() []string {
	engines := make([]string, 0, len(nativeStatements))
	for name := range nativeStatements {
		engines = append(engines, name)
	}
	sort.Strings(engines)
	return engines
}

// NativeMigrator runs the database-native migration path: one engine-specific
// bulk statement converting every pending record in place.
type NativeMigrator struct {
	store  Store
	logger *slog.Logger
}

// NewNativeMigrator creates a native migrator over the given store.
func NewNativeMigrator(store Store, logger *slog.Logger) *NativeMigrator {
	if logger == nil {
		logger = logging.ForService("migration")
	}
	return &NativeMigrator{store: store, logger: logger}
}

// Run executes the native conversion statement for the named engine and
// returns the number of rows affected. Requesting an engine without an
// implemented statement fails before any write; there is no silent
// fallback to the batch path.
func (m *NativeMigrator) Run(ctx context.Context, engine string) (int64, error) {
	statement, ok := nativeStatements[engine]
	if !ok {
		return 0, errors.Newf("migrating the records using %s is not implemented, run the command without a database engine to use batched updates", engine).
			Component("migration").
			Category(errors.CategoryUnsupportedEngine).
			Context("engine", engine).
			Context("supported_engines", SupportedEngines()).
			Build()
	}

	m.logger.Info("Running native changes migration", "engine", engine)

	affected, err := m.store.ExecChangesStatement(ctx, statement)
	if err != nil {
		return 0, err
	}

	m.logger.Info("Native changes migration finished", "engine", engine, "rows_affected", affected)
	return affected, nil
}
