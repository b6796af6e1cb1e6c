package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mikesparr/redis-workflow/persistence"
	"github.com/stretchr/testify/require"
)

func openTestStorage(t *testing.T) *sqliteStorage {
	storage, err := Open(filepath.Join(t.TempDir(), "workflows.db"))
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })
	return storage
}

func TestKeyValue(t *testing.T) {
	ctx := context.Background()
	storage := openTestStorage(t)

	_, err := storage.Get(ctx, "c1:1")
	require.ErrorAs(t, err, &persistence.KeyNotFoundError{})

	require.NoError(t, storage.Set(ctx, "c1:1", []byte("v1")))
	require.NoError(t, storage.Set(ctx, "c1:1", []byte("v2")))
	data, err := storage.Get(ctx, "c1:1")
	require.NoError(t, err)
	require.Equal(t, "v2", string(data))

	require.NoError(t, storage.Delete(ctx, "c1:1"))
	_, err = storage.Get(ctx, "c1:1")
	require.ErrorAs(t, err, &persistence.KeyNotFoundError{})
}

func TestMembers(t *testing.T) {
	ctx := context.Background()
	storage := openTestStorage(t)

	members, err := storage.Members(ctx, "c1:workflows")
	require.NoError(t, err)
	require.Empty(t, members)

	require.NoError(t, storage.AddMember(ctx, "c1:workflows", "c1:2"))
	require.NoError(t, storage.AddMember(ctx, "c1:workflows", "c1:1"))
	require.NoError(t, storage.AddMember(ctx, "c1:workflows", "c1:1"))
	require.NoError(t, storage.AddMember(ctx, "c2:workflows", "c2:9"))
	members, err = storage.Members(ctx, "c1:workflows")
	require.NoError(t, err)
	require.Equal(t, []string{"c1:1", "c1:2"}, members)

	require.NoError(t, storage.RemoveMember(ctx, "c1:workflows", "c1:1"))
	members, err = storage.Members(ctx, "c1:workflows")
	require.NoError(t, err)
	require.Equal(t, []string{"c1:2"}, members)

	// deleting a set key drops the whole set
	require.NoError(t, storage.Delete(ctx, "c1:workflows"))
	members, err = storage.Members(ctx, "c1:workflows")
	require.NoError(t, err)
	require.Empty(t, members)
	members, err = storage.Members(ctx, "c2:workflows")
	require.NoError(t, err)
	require.Len(t, members, 1)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflows.db")
	storage, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, storage.Set(context.Background(), "k", []byte("v")))
	require.NoError(t, storage.Close())

	storage, err = Open(path)
	require.NoError(t, err)
	defer storage.Close()
	data, err := storage.Get(context.Background(), "k")
	require.NoError(t, err)
	require.Equal(t, "v", string(data))
}
