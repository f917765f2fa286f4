package repository

import (
	"context"
	"path/filepath"
	"testing"

	"Mansoor88-6/coding-activity-agent/internal/database"
	"Mansoor88-6/coding-activity-agent/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setupRepo(t *testing.T) *DocumentRepository {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "nested", "remote.db"), zaptest.NewLogger(t))
	require.NoError(t, err, "Failed to initialize test database")

	repo := NewDocumentRepository(db)
	t.Cleanup(func() {
		assert.NoError(t, repo.Close())
	})
	return repo
}

func TestWriteAndGet(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	id, err := repo.Write(ctx, "events", "", map[string]any{
		"userId": "u1",
		"data":   map[string]any{"changes": 2},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	fields, err := repo.Get(ctx, "events", id)
	require.NoError(t, err)
	assert.Equal(t, "u1", fields["userId"])
	assert.Equal(t, map[string]any{"changes": float64(2)}, fields["data"])

	// explicit ids overwrite
	_, err = repo.Write(ctx, "events", id, map[string]any{"userId": "u2"})
	require.NoError(t, err)
	fields, err = repo.Get(ctx, "events", id)
	require.NoError(t, err)
	assert.Equal(t, "u2", fields["userId"])

	_, err = repo.Get(ctx, "other", id)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestQueryFilters(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	rows := []map[string]any{
		{"userId": "u1", "timestamp": "2024-01-01T08:00:00.000Z"},
		{"userId": "u1", "timestamp": "2024-01-01T12:00:00.000Z"},
		{"userId": "u2", "timestamp": "2024-01-01T12:00:00.000Z"},
		{"userId": "u1", "timestamp": "2024-01-02T00:00:00.000Z"},
	}
	for _, row := range rows {
		_, err := repo.Write(ctx, "events", "", row)
		require.NoError(t, err)
	}

	docs, err := repo.Query(ctx, "events",
		store.Filter{Field: "userId", Op: store.OpEqual, Value: "u1"},
		store.Filter{Field: "timestamp", Op: store.OpGreaterOrEqual, Value: "2024-01-01T08:00:00.000Z"},
		store.Filter{Field: "timestamp", Op: store.OpLessOrEqual, Value: "2024-01-01T12:00:00.000Z"},
	)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "2024-01-01T08:00:00.000Z", docs[0].Fields["timestamp"])
	assert.Equal(t, "2024-01-01T12:00:00.000Z", docs[1].Fields["timestamp"])

	docs, err = repo.Query(ctx, "events", store.Filter{Field: "timestamp", Op: store.OpGreater, Value: "2024-01-01T12:00:00.000Z"})
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	_, err = repo.Query(ctx, "events", store.Filter{Field: "bad field", Op: store.OpEqual, Value: 1})
	assert.Error(t, err)
}
