package migration

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/auditlog-go/internal/conf"
	"github.com/tphakala/auditlog-go/internal/datastore"
)

// newTestStore creates a SQLite store backed by a temporary database file.
func newTestStore(t *testing.T) *datastore.SQLiteStore {
	t.Helper()

	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "auditlog.db")

	store := &datastore.SQLiteStore{Settings: settings}
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	return store
}

// seedPending saves a log entry holding only legacy changes text and returns its ID.
func seedPending(t *testing.T, store *datastore.SQLiteStore, changesText string) uint {
	t.Helper()

	entry := &datastore.LogEntry{
		Timestamp:   time.Now(),
		Actor:       "tester",
		ObjectPK:    "1",
		ObjectRepr:  "widget",
		Action:      datastore.ActionUpdate,
		ChangesText: changesText,
	}
	require.NoError(t, store.Save(context.Background(), entry))
	return entry.ID
}

func pendingCount(t *testing.T, store *datastore.SQLiteStore) int64 {
	t.Helper()
	count, err := store.CountPendingChanges(context.Background())
	require.NoError(t, err)
	return count
}

func TestBatchEngine_UnbatchedMigratesEverything(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		seedPending(t, store, `{"name": ["old", "new"]}`)
	}

	result, err := NewBatchEngine(store, nil).Run(ctx, 0, false)
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.Updated)
	assert.Empty(t, result.FailedIDs)
	assert.Zero(t, pendingCount(t, store))
}

func TestBatchEngine_BatchedMigratesEverything(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		seedPending(t, store, `{"name": ["old", "new"]}`)
	}

	result, err := NewBatchEngine(store, nil).Run(ctx, 3, false)
	require.NoError(t, err)
	assert.Equal(t, int64(7), result.Updated)
	assert.Zero(t, pendingCount(t, store))
}

func TestBatchEngine_Idempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		seedPending(t, store, `{"name": ["old", "new"]}`)
	}

	engine := NewBatchEngine(store, nil)

	first, err := engine.Run(ctx, 2, false)
	require.NoError(t, err)
	assert.Equal(t, int64(4), first.Updated)

	second, err := engine.Run(ctx, 2, false)
	require.NoError(t, err)
	assert.Zero(t, second.Updated)
	assert.Empty(t, second.FailedIDs)
}

func TestBatchEngine_FailedRecordsStayPending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	goodID := seedPending(t, store, `{"name": ["old", "new"]}`)
	badID := seedPending(t, store, `{not valid}`)

	result, err := NewBatchEngine(store, nil).Run(ctx, 0, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Updated)
	assert.Equal(t, []uint{badID}, result.FailedIDs)

	good, err := store.Get(ctx, goodID)
	require.NoError(t, err)
	assert.False(t, good.PendingMigration())

	bad, err := store.Get(ctx, badID)
	require.NoError(t, err)
	assert.True(t, bad.PendingMigration())
}

func TestBatchEngine_FailingHeadDoesNotBlockTheBacklog(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Unparseable record at the head of the pending set
	badID := seedPending(t, store, `{not valid}`)
	for i := 0; i < 4; i++ {
		seedPending(t, store, `{"name": ["old", "new"]}`)
	}

	result, err := NewBatchEngine(store, nil).Run(ctx, 1, false)
	require.NoError(t, err)
	assert.Equal(t, int64(4), result.Updated)
	assert.Equal(t, []uint{badID}, result.FailedIDs)
	assert.Equal(t, int64(1), pendingCount(t, store))
}

func TestBatchEngine_BatchSizeInvariance(t *testing.T) {
	type finalState struct {
		updated int64
		failed  int
		pending int64
	}

	run := func(t *testing.T, batchSize int) finalState {
		t.Helper()
		store := newTestStore(t)
		ctx := context.Background()

		seedPending(t, store, `{"name": ["a", "b"]}`)
		seedPending(t, store, `{not valid}`)
		seedPending(t, store, `{"tags": {"Added": ["x"]}}`)
		seedPending(t, store, `{"owner": ["p", "q"]}`)
		seedPending(t, store, `{"a": 1, "b": 2}`)

		result, err := NewBatchEngine(store, nil).Run(ctx, batchSize, true)
		require.NoError(t, err)
		return finalState{
			updated: result.Updated,
			failed:  len(result.FailedIDs),
			pending: pendingCount(t, store),
		}
	}

	want := finalState{updated: 4, failed: 1, pending: 1}
	assert.Equal(t, want, run(t, 0), "batchSize=0")
	assert.Equal(t, want, run(t, 1), "batchSize=1")
	assert.Equal(t, want, run(t, 3), "batchSize=3")
}

func TestBatchEngine_AllFailuresCommitNothing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedPending(t, store, `{not valid}`)
	seedPending(t, store, `also not valid`)

	result, err := NewBatchEngine(store, nil).Run(ctx, 0, false)
	require.NoError(t, err)
	assert.Zero(t, result.Updated)
	assert.Len(t, result.FailedIDs, 2)
	assert.Equal(t, int64(2), pendingCount(t, store))
}

func TestBatchEngine_NegativeBatchSize(t *testing.T) {
	store := newTestStore(t)

	_, err := NewBatchEngine(store, nil).Run(context.Background(), -1, false)
	assert.Error(t, err)
}

func TestBatchEngine_AppliesM2MRewrite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id := seedPending(t, store, `{"tags": {"Added": ["x", "y"]}}`)

	_, err := NewBatchEngine(store, nil).Run(ctx, 0, true)
	require.NoError(t, err)

	entry, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, entry.Changes)
	assert.JSONEq(t, `{"tags": {"type": "m2m", "operation": "add", "objects": ["x", "y"]}}`, *entry.Changes)
}
