package datastore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/auditlog-go/internal/conf"
)

// newTestStore creates a SQLite store backed by a temporary database file.
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "auditlog.db")

	store := &SQLiteStore{Settings: settings}
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func strPtr(s string) *string {
	return &s
}

// seedEntry saves a log entry with the given changes columns and returns its ID.
func seedEntry(t *testing.T, store *SQLiteStore, changesText string, changes *string) uint {
	t.Helper()

	entry := &LogEntry{
		Timestamp:   time.Now(),
		Actor:       "tester",
		ObjectPK:    "1",
		ObjectRepr:  "widget",
		Action:      ActionUpdate,
		ChangesText: changesText,
		Changes:     changes,
	}
	require.NoError(t, store.Save(context.Background(), entry))
	return entry.ID
}

func TestCountPendingChanges_AppliesPendingInvariant(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Pending: legacy text present, no structured value
	seedEntry(t, store, `{"name": ["a", "b"]}`, nil)
	seedEntry(t, store, `{"owner": ["x", "y"]}`, nil)
	// Not pending: already migrated
	seedEntry(t, store, `{"name": ["a", "b"]}`, strPtr(`{"name": ["a", "b"]}`))
	// Not pending: no legacy text at all
	seedEntry(t, store, "", nil)

	count, err := store.CountPendingChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestPendingChanges_StableOrderAndLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := seedEntry(t, store, `{"a": [1, 2]}`, nil)
	second := seedEntry(t, store, `{"b": [1, 2]}`, nil)
	third := seedEntry(t, store, `{"c": [1, 2]}`, nil)

	entries, err := store.PendingChanges(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, first, entries[0].ID)
	assert.Equal(t, second, entries[1].ID)

	// Zero limit returns everything
	all, err := store.PendingChanges(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, third, all[2].ID)
}

func TestPendingChanges_RequeryAdvancesAsRecordsMigrate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedEntry(t, store, `{"a": [1, 2]}`, nil)
	remaining := seedEntry(t, store, `{"b": [1, 2]}`, nil)

	batch, err := store.PendingChanges(ctx, 1)
	require.NoError(t, err)
	require.Len(t, batch, 1)

	// Migrate the head record; the next re-query from the head must return
	// the record behind it.
	batch[0].Changes = strPtr(batch[0].ChangesText)
	updated, err := store.SaveConvertedChanges(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	next, err := store.PendingChanges(ctx, 1)
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, remaining, next[0].ID)
}

func TestSaveConvertedChanges_WritesOnlyChangesColumn(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id := seedEntry(t, store, `{"name": ["a", "b"]}`, nil)

	entries, err := store.PendingChanges(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entries[0].Changes = strPtr(`{"name": ["a", "b"]}`)
	entries[0].Actor = "should-not-be-written"

	updated, err := store.SaveConvertedChanges(ctx, entries)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "tester", got.Actor)
	require.NotNil(t, got.Changes)
	assert.JSONEq(t, `{"name": ["a", "b"]}`, *got.Changes)
	assert.False(t, got.PendingMigration())
}

func TestSaveConvertedChanges_EmptyBatch(t *testing.T) {
	store := newTestStore(t)

	updated, err := store.SaveConvertedChanges(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, updated)
}

func TestExecChangesStatement_ReturnsRowsAffected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedEntry(t, store, `{"a": [1, 2]}`, nil)
	seedEntry(t, store, `{"b": [1, 2]}`, nil)

	affected, err := store.ExecChangesStatement(ctx,
		"UPDATE auditlog_logentries SET changes = json(changes_text) "+
			"WHERE changes_text IS NOT NULL AND changes_text <> '' AND changes IS NULL")
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	count, err := store.CountPendingChanges(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
