package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_Suite(t *testing.T) {
	storeTestSuite(t, func(t *testing.T) Store { return newTestSQLiteStore(t) })
}

// --- Page Cache ---

func TestSQLite_PageCache_SetAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	key := URLHash("https://joespizza.example")
	require.NoError(t, st.SetCachedPage(ctx, key, []byte("<html></html>"), time.Hour))

	data, err := st.GetCachedPage(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(data))
}

func TestSQLite_PageCache_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	data, err := st.GetCachedPage(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestSQLite_PageCache_Expired(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetCachedPage(ctx, "expired", []byte("old"), -time.Hour))

	data, err := st.GetCachedPage(ctx, "expired")
	require.NoError(t, err)
	assert.Nil(t, data)

	n, err := st.DeleteExpiredPages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLite_PageCache_Overwrite(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetCachedPage(ctx, "k", []byte("original"), time.Hour))
	require.NoError(t, st.SetCachedPage(ctx, "k", []byte("updated"), time.Hour))

	data, err := st.GetCachedPage(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "updated", string(data))
}

func TestSQLite_Ping(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Ping(context.Background()))
}

func TestURLHash_Stable(t *testing.T) {
	assert.Equal(t, URLHash("https://a.example"), URLHash("https://a.example"))
	assert.NotEqual(t, URLHash("https://a.example"), URLHash("https://b.example"))
	assert.Len(t, URLHash("x"), 64)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), configFor("mysql", "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestOpen_SQLite(t *testing.T) {
	s, err := Open(context.Background(), configFor("sqlite", filepath.Join(t.TempDir(), "open.db")))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))

	_, err = s.CreateAudit(context.Background(), model.AuditRequest{BusinessName: "Open Test"})
	assert.NoError(t, err)
}
