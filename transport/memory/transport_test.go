package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPublishSubscribe(t *testing.T) {
	ctx := context.Background()
	tr := NewMemoryTransport(8)
	sub, err := tr.Subscribe(ctx, "c1")
	require.NoError(t, err)
	other, err := tr.Subscribe(ctx, "c2")
	require.NoError(t, err)

	require.NoError(t, tr.Publish(ctx, "c1", "one"))
	require.NoError(t, tr.Publish(ctx, "c1", "two"))
	require.NoError(t, tr.Publish(ctx, "nobody", "lost"))

	require.Equal(t, "one", <-sub.Messages())
	require.Equal(t, "two", <-sub.Messages())
	require.Empty(t, other.Messages())
}

func TestClosedSubscriptionDoesNotBlockPublisher(t *testing.T) {
	ctx := context.Background()
	tr := NewMemoryTransport(0)
	sub, err := tr.Subscribe(ctx, "c1")
	require.NoError(t, err)

	published := make(chan error)
	go func() {
		published <- tr.Publish(ctx, "c1", "payload")
	}()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	select {
	case err := <-published:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a closed subscription")
	}
	<-sub.Done()
}

func TestPublishHonoursContext(t *testing.T) {
	tr := NewMemoryTransport(0)
	_, err := tr.Subscribe(context.Background(), "c1")
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, tr.Publish(ctx, "c1", "payload"), context.DeadlineExceeded)
}

func TestCloseEndsSubscriptions(t *testing.T) {
	tr := NewMemoryTransport(1)
	sub, err := tr.Subscribe(context.Background(), "c1")
	require.NoError(t, err)
	require.NoError(t, tr.Close())
	<-sub.Done()
	require.ErrorIs(t, tr.Publish(context.Background(), "c1", "x"), ErrClosed)
	_, err = tr.Subscribe(context.Background(), "c1")
	require.ErrorIs(t, err, ErrClosed)
}
