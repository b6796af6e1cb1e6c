package memory

import (
	"context"
	"testing"

	"github.com/mikesparr/redis-workflow/persistence"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()

	_, err := storage.Get(ctx, "k")
	require.ErrorAs(t, err, &persistence.KeyNotFoundError{})

	value := []byte("v")
	require.NoError(t, storage.Set(ctx, "k", value))
	value[0] = 'x'
	data, err := storage.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", string(data))

	require.NoError(t, storage.AddMember(ctx, "set", "b"))
	require.NoError(t, storage.AddMember(ctx, "set", "a"))
	members, err := storage.Members(ctx, "set")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, members)

	require.NoError(t, storage.RemoveMember(ctx, "set", "a"))
	require.NoError(t, storage.RemoveMember(ctx, "unknown", "a"))
	require.NoError(t, storage.Delete(ctx, "k", "set"))
	members, err = storage.Members(ctx, "set")
	require.NoError(t, err)
	require.Empty(t, members)
	_, err = storage.Get(ctx, "k")
	require.Error(t, err)
}

func TestMemoryDelayQueue(t *testing.T) {
	ctx := context.Background()
	queue := NewMemoryDelayQueue()
	require.NoError(t, queue.Push(ctx, "q", 300, []byte("c")))
	require.NoError(t, queue.Push(ctx, "q", 100, []byte("a")))
	require.NoError(t, queue.Push(ctx, "q", 200, []byte("b")))
	require.NoError(t, queue.Push(ctx, "other", 1, []byte("z")))

	res, err := queue.PopDue(ctx, "q", 99)
	require.NoError(t, err)
	require.Empty(t, res)

	res, err = queue.PopDue(ctx, "q", 200)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, res)

	res, err = queue.PopDue(ctx, "q", 1000)
	require.NoError(t, err)
	require.Equal(t, []string{"c"}, res)

	res, err = queue.PopDue(ctx, "other", 1000)
	require.NoError(t, err)
	require.Equal(t, []string{"z"}, res)
}
