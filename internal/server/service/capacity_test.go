package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"chatter/internal/server/database"
	"chatter/internal/server/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapacityGuard_Check(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, limit int64) (*CapacityGuard, *fakeRepo, *storage.FileSystemStore) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), make([]byte, 300), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "b.jpg"), make([]byte, 300), 0644))

		repo := newFakeRepo()
		repo.uploads["a.jpg"] = &database.Upload{Filename: "a.jpg"}
		repo.uploads["b.jpg"] = &database.Upload{Filename: "b.jpg"}
		repo.messages = []*database.Message{{Message: "a.jpg"}, {Message: "b.jpg"}}

		store := storage.NewFileSystemStore(dir)
		return NewCapacityGuard(store, repo, limit), repo, store
	}

	t.Run("under the limit keeps everything", func(t *testing.T) {
		guard, repo, store := setup(t, 600)

		purged, err := guard.Check(ctx)
		require.NoError(t, err)
		assert.False(t, purged)

		total, err := store.TotalSize(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(600), total)
		assert.Len(t, repo.uploads, 2)
	})

	t.Run("over the limit leaves zero blobs and rows", func(t *testing.T) {
		guard, repo, store := setup(t, 599)

		purged, err := guard.Check(ctx)
		require.NoError(t, err)
		assert.True(t, purged)

		blobs, err := store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, blobs)
		assert.Empty(t, repo.uploads)
		assert.Empty(t, repo.messages)
	})

	t.Run("row purge failure keeps blobs", func(t *testing.T) {
		guard, repo, store := setup(t, 1)
		repo.purgeErr = errors.New("db down")

		_, err := guard.Check(ctx)
		require.Error(t, err)

		blobs, err := store.List(ctx)
		require.NoError(t, err)
		assert.Len(t, blobs, 2)
	})
}
